package api

import (
	"context"
	"io"
	"net/http"
	"net/url"

	reachfive "github.com/ReachFive/identity-android-sdk-sub000"
)

// AuthorizeParams are the parameters of /oauth/authorize
type AuthorizeParams struct {
	RedirectURI string
	Scope       reachfive.ScopeSet
	Pkce        *reachfive.PkceChallenge
	Tkn         string
	Provider    string
	Origin      string
	State       string
	Nonce       string
}

func (c *Client) authorizeQuery(p AuthorizeParams) url.Values {
	q := url.Values{}
	q.Set("client_id", c.clientID)
	q.Set("redirect_uri", p.RedirectURI)
	q.Set("response_type", ResponseTypeCode)
	q.Set("scope", p.Scope.String())
	if p.Pkce != nil {
		q.Set("code_challenge", p.Pkce.CodeChallenge())
		q.Set("code_challenge_method", p.Pkce.Method())
	}
	optional := map[string]string{
		"tkn":      p.Tkn,
		"provider": p.Provider,
		"origin":   p.Origin,
		"state":    p.State,
		"nonce":    p.Nonce,
	}
	for k, v := range optional {
		if v != "" {
			q.Set(k, v)
		}
	}
	return q
}

// AuthorizeURL builds the /oauth/authorize URL a browser is sent to
func (c *Client) AuthorizeURL(p AuthorizeParams) string {
	return c.endpoint("/oauth/authorize", c.authorizeQuery(p))
}

// Authorize calls /oauth/authorize without following the redirect and returns
// the authorization code carried by its Location header.
func (c *Client) Authorize(ctx context.Context, p AuthorizeParams) (string, error) {
	cl := call{method: http.MethodGet, path: "/oauth/authorize", query: c.authorizeQuery(p)}
	req, err := c.newRequest(ctx, cl)
	if err != nil {
		return "", err
	}

	noRedirect := *c.httpClient
	noRedirect.CheckRedirect = func(req *http.Request, via []*http.Request) error {
		return http.ErrUseLastResponse
	}
	resp, err := noRedirect.Do(req)
	if err != nil {
		return "", &reachfive.TransportError{Op: "GET /oauth/authorize", Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
		return "", decodeAPIError(resp.StatusCode, body)
	}

	location := resp.Header.Get("Location")
	if location == "" {
		return "", reachfive.ErrNoAuthCode
	}
	u, err := url.Parse(location)
	if err != nil {
		return "", &reachfive.TransportError{Op: "GET /oauth/authorize", Err: err}
	}
	return reachfive.AuthorizationCode(u.Query())
}

// ExchangeCode runs the authorization_code grant with the PKCE verifier
func (c *Client) ExchangeCode(ctx context.Context, code string, pkce *reachfive.PkceChallenge) (*reachfive.TokenResponse, error) {
	req := AuthCodeRequest{
		ClientID:     c.clientID,
		Code:         code,
		RedirectURI:  pkce.RedirectURI,
		CodeVerifier: pkce.CodeVerifier,
		GrantType:    GrantAuthorizationCode,
	}
	var resp reachfive.TokenResponse
	if err := c.do(ctx, call{method: http.MethodPost, path: "/oauth/token", body: req, out: &resp}); err != nil {
		return nil, err
	}
	return &resp, nil
}

// RefreshAccessToken runs the refresh_token grant
func (c *Client) RefreshAccessToken(ctx context.Context, refreshToken, redirectURI string) (*reachfive.TokenResponse, error) {
	req := RefreshRequest{
		ClientID:     c.clientID,
		RefreshToken: refreshToken,
		RedirectURI:  redirectURI,
		GrantType:    GrantRefreshToken,
	}
	var resp reachfive.TokenResponse
	if err := c.do(ctx, call{method: http.MethodPost, path: "/oauth/token", body: req, out: &resp}); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Revoke revokes token. tokenTypeHint is "access_token" or "refresh_token".
func (c *Client) Revoke(ctx context.Context, token, tokenTypeHint string) error {
	if token == "" {
		return &reachfive.ValidationError{Field: "token", Message: "is required"}
	}
	req := RevokeRequest{
		ClientID:      c.clientID,
		Token:         token,
		TokenTypeHint: tokenTypeHint,
	}
	return c.do(ctx, call{method: http.MethodPost, path: "/oauth/revoke", body: req})
}

// Logout ends the backend session
func (c *Client) Logout(ctx context.Context) error {
	return c.do(ctx, call{method: http.MethodGet, path: "/identity/v1/logout"})
}

// LogoutURL is the session logout URL a browser can be sent to
func (c *Client) LogoutURL(redirectTo string) string {
	q := url.Values{}
	if redirectTo != "" {
		q.Set("redirect_to", redirectTo)
	}
	return c.endpoint("/identity/v1/logout", q)
}
