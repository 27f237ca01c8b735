package client

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"

	"golang.org/x/oauth2"

	reachfive "github.com/ReachFive/identity-android-sdk-sub000"
)

// ExchangeCode trades an authorization code obtained outside the SDK flows
func (c *Client) ExchangeCode(ctx context.Context, code string, pkce *reachfive.PkceChallenge) (*reachfive.AuthToken, error) {
	s, err := c.snapshot()
	if err != nil {
		return nil, err
	}
	return s.env.ExchangeCode(ctx, code, pkce)
}

// Refresh runs the refresh_token grant. The tenant may answer without a new
// refresh token, in which case the previous one stays valid and is kept.
func (c *Client) Refresh(ctx context.Context, tok *reachfive.AuthToken) (*reachfive.AuthToken, error) {
	s, err := c.snapshot()
	if err != nil {
		return nil, err
	}
	if tok == nil || !tok.HasRefreshToken() {
		return nil, &reachfive.ValidationError{Field: "refresh_token", Message: "is required"}
	}
	c.transition(ctx, FlowEvent{State: StateResolving, Modality: ModalityRefresh})
	next, err := c.refresh(ctx, s, tok)
	return finish(ctx, c, ModalityRefresh, 0, next, err)
}

func (c *Client) refresh(ctx context.Context, s *snapshot, tok *reachfive.AuthToken) (*reachfive.AuthToken, error) {
	resp, err := c.api.RefreshAccessToken(ctx, tok.RefreshToken, c.cfg.Scheme)
	if err != nil {
		return nil, err
	}
	next, err := s.env.Normalize(resp)
	if err != nil {
		return nil, err
	}
	if next.RefreshToken == "" {
		next.RefreshToken = tok.RefreshToken
	}
	if next.IDToken == "" {
		next.IDToken, next.User = tok.IDToken, tok.User
	}
	return next, nil
}

// Logout releases provider sessions, revokes tok and ends the tenant session.
// Every step runs even when an earlier one fails; the failures are joined.
func (c *Client) Logout(ctx context.Context, tok *reachfive.AuthToken) error {
	var errs []error
	if s := c.current.Load(); s != nil {
		for _, p := range s.providers {
			if err := reachfive.Logout(ctx, p); err != nil {
				errs = append(errs, err)
			}
		}
	}
	if tok != nil {
		token, hint := tok.AccessToken, "access_token"
		if tok.HasRefreshToken() {
			token, hint = tok.RefreshToken, "refresh_token"
		}
		if err := c.api.Revoke(ctx, token, hint); err != nil {
			errs = append(errs, fmt.Errorf("revoke: %w", err))
		}
	}
	if err := c.api.Logout(ctx); err != nil {
		errs = append(errs, fmt.Errorf("backend logout: %w", err))
	}
	if err := errors.Join(errs...); err != nil {
		c.logger.WarnContext(ctx, "logout incomplete", "error", err)
		return err
	}
	return nil
}

// WebLogoutURL is the tenant session logout page, returning to redirectTo
func (c *Client) WebLogoutURL(redirectTo string) string {
	return c.api.LogoutURL(redirectTo)
}

// TokenSource returns a source that starts from tok and refreshes through
// Refresh once it expires. The context is used for every refresh.
func (c *Client) TokenSource(ctx context.Context, tok *reachfive.AuthToken) oauth2.TokenSource {
	r := &refresher{ctx: ctx, client: c, current: tok}
	return oauth2.ReuseTokenSource(tok.OAuth2Token(), r)
}

// HTTPClient returns a client that authenticates every request with tok,
// refreshing it as needed
func (c *Client) HTTPClient(ctx context.Context, tok *reachfive.AuthToken) *http.Client {
	return &http.Client{Transport: NewAuthTransportWithBase(c.baseTransport, c.TokenSource(ctx, tok))}
}

type refresher struct {
	ctx    context.Context
	client *Client

	mu      sync.Mutex
	current *reachfive.AuthToken
}

func (r *refresher) Token() (*oauth2.Token, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	next, err := r.client.Refresh(r.ctx, r.current)
	if err != nil {
		return nil, err
	}
	r.current = next
	return next.OAuth2Token(), nil
}
