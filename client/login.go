package client

import (
	"context"
	"fmt"

	reachfive "github.com/ReachFive/identity-android-sdk-sub000"
	"github.com/ReachFive/identity-android-sdk-sub000/providers"
)

// Modalities reported in FlowEvent
const (
	ModalityPassword     = "password"
	ModalityPasswordless = "passwordless"
	ModalityWeb          = "web"
	ModalityWebAuthn     = "webauthn"
	ModalityRefresh      = "refresh"
)

// PasswordLogin is a login with one identifier and a password. An empty Scope
// means the tenant default.
type PasswordLogin = providers.PasswordLogin

// LoginOptions are the per call parameters of redirect and provider logins
type LoginOptions struct {
	Scope  reachfive.ScopeSet
	State  string
	Nonce  string
	Origin string
}

func (o LoginOptions) request(s *snapshot) reachfive.LoginRequest {
	return reachfive.LoginRequest{
		Origin: o.Origin,
		Scope:  s.scope(o.Scope),
		State:  o.State,
		Nonce:  o.Nonce,
	}
}

// SignupOptions are the per call parameters of Signup
type SignupOptions struct {
	Scope reachfive.ScopeSet
	// RedirectURL is where the identifier verification link points
	RedirectURL string
	Origin      string
}

// SignupResult is AchievedLogin or AwaitingIdentifierVerification
type SignupResult interface {
	signupResult()
}

// AchievedLogin is a signup that logged the user in
type AchievedLogin struct {
	Token *reachfive.AuthToken
}

// AwaitingIdentifierVerification is a signup the tenant holds until the email
// or phone number is verified
type AwaitingIdentifierVerification struct{}

func (AchievedLogin) signupResult()                  {}
func (AwaitingIdentifierVerification) signupResult() {}

// Signup creates an account with a password
func (c *Client) Signup(ctx context.Context, profile *reachfive.ProfileSignupRequest, opts SignupOptions) (SignupResult, error) {
	s, err := c.snapshot()
	if err != nil {
		return nil, err
	}
	c.transition(ctx, FlowEvent{State: StateResolving, Modality: ModalityPassword})
	tok, err := s.password.Signup(ctx, providers.Signup{
		Profile:     profile,
		Scope:       s.scope(opts.Scope),
		RedirectURL: opts.RedirectURL,
		Origin:      opts.Origin,
	})
	var result SignupResult
	switch {
	case err != nil:
	case tok != nil:
		result = AchievedLogin{Token: tok}
	default:
		result = AwaitingIdentifierVerification{}
	}
	return finish(ctx, c, ModalityPassword, 0, result, err)
}

// Login logs in with a password
func (c *Client) Login(ctx context.Context, req PasswordLogin) (*reachfive.AuthToken, error) {
	s, err := c.snapshot()
	if err != nil {
		return nil, err
	}
	req.Scope = s.scope(req.Scope)
	c.transition(ctx, FlowEvent{State: StateResolving, Modality: ModalityPassword})
	tok, err := s.password.Login(ctx, req)
	return finish(ctx, c, ModalityPassword, 0, tok, err)
}

// LoginWithProvider starts the login of the provider called name. The result
// arrives later through OnResult.
func (c *Client) LoginWithProvider(ctx context.Context, name string, opts LoginOptions) error {
	s, err := c.snapshot()
	if err != nil {
		return err
	}
	p := s.provider(name)
	if p == nil {
		return fmt.Errorf("%w: %s", reachfive.ErrUnmatchedProvider, name)
	}
	return c.suspended(ctx, name, p.RequestCode(), p.Login(ctx, opts.request(s)))
}

// LoginWithWeb opens the hosted login page in the browser. The redirect
// arrives later through OnResult under reachfive.RequestCodeWebLogin.
func (c *Client) LoginWithWeb(ctx context.Context, opts LoginOptions) error {
	s, err := c.snapshot()
	if err != nil {
		return err
	}
	return c.suspended(ctx, ModalityWeb, s.web.RequestCode(), s.web.Login(ctx, opts.request(s)))
}

// OnResult is the host callback for every suspended flow. WebAuthn codes are
// matched first, then the web redirect, then provider codes. The pending state
// of the flow is gone when OnResult returns, whatever the outcome. Device
// registration completes with a nil token.
func (c *Client) OnResult(ctx context.Context, requestCode int, outcome reachfive.Outcome) (*reachfive.AuthToken, error) {
	s, err := c.snapshot()
	if err != nil {
		return nil, err
	}
	owner, ok := c.flows.Correlator.Owner(requestCode)
	if !ok {
		return finish[*reachfive.AuthToken](ctx, c, "", requestCode, nil, fmt.Errorf("%w: %d", reachfive.ErrUnmatched, requestCode))
	}
	flow, err := c.flows.Resume(ctx, requestCode)
	if err != nil {
		return finish[*reachfive.AuthToken](ctx, c, owner, requestCode, nil, err)
	}
	ctx = reachfive.WithFlow(ctx, flow)
	c.transition(ctx, FlowEvent{State: StateResolving, Modality: owner, RequestCode: requestCode})

	var tok *reachfive.AuthToken
	switch owner {
	case reachfive.OwnerWebAuthn:
		tok, err = s.webauthn.OnResult(ctx, flow, outcome)
	case reachfive.OwnerWeb:
		tok, err = s.web.OnResult(ctx, flow, outcome)
	default:
		tok, err = c.providerResult(ctx, s, flow, outcome)
	}
	return finish(ctx, c, owner, requestCode, tok, err)
}

func (c *Client) providerResult(ctx context.Context, s *snapshot, flow *reachfive.PendingFlow, outcome reachfive.Outcome) (*reachfive.AuthToken, error) {
	p := s.providerByCode(flow.RequestCode)
	if flow.Provider != "" {
		p = s.provider(flow.Provider)
	}
	if p == nil {
		c.flows.Finish(ctx, flow)
		return nil, fmt.Errorf("%w: %q for request code %d", reachfive.ErrUnmatchedProvider, flow.Provider, flow.RequestCode)
	}
	return p.OnResult(ctx, flow, outcome)
}

// OnPermissionResult forwards a runtime permission answer to the provider
// that claims requestCode
func (c *Client) OnPermissionResult(ctx context.Context, requestCode int, permissions []string, granted []bool) error {
	s, err := c.snapshot()
	if err != nil {
		return err
	}
	p := s.providerByCode(requestCode)
	if p == nil {
		return fmt.Errorf("%w: request code %d", reachfive.ErrUnmatchedProvider, requestCode)
	}
	return reachfive.OnPermissionResult(ctx, p, requestCode, permissions, granted)
}

// OnSuspend tells every provider the host process is going away
func (c *Client) OnSuspend() {
	s := c.current.Load()
	if s == nil {
		return
	}
	for _, p := range s.providers {
		reachfive.Suspend(p)
	}
}
