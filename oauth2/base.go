// Package oauth2 runs a social login against the identity provider itself:
// authorization code with PKCE through the browser, then the provider tokens
// are traded for ReachFive tokens. It serves providers the tenant accepts
// provider tokens for and the host has no native SDK for.
package oauth2

import (
	"context"
	"errors"
	"net/http"

	"golang.org/x/oauth2"

	reachfive "github.com/ReachFive/identity-android-sdk-sub000"
	"github.com/ReachFive/identity-android-sdk-sub000/providers"
)

// Provider is a social provider driven through its OAuth2 endpoints
type Provider struct {
	*providers.Social
	env         *providers.Env
	oauthConfig oauth2.Config
	httpClient  *http.Client
}

// Option configures a Provider
type Option func(*Provider)

// WithScopes replaces the scopes requested from the provider
func WithScopes(scopes ...string) Option {
	return func(p *Provider) {
		p.oauthConfig.Scopes = scopes
	}
}

// WithEndpoint replaces the provider endpoints. Tests point it at a mock server.
func WithEndpoint(endpoint oauth2.Endpoint) Option {
	return func(p *Provider) {
		p.oauthConfig.Endpoint = endpoint
	}
}

// WithClientSecret sets the secret of confidential clients
func WithClientSecret(secret string) Option {
	return func(p *Provider) {
		p.oauthConfig.ClientSecret = secret
	}
}

// WithHTTPClient sets the client used for the token exchange with the provider
func WithHTTPClient(client *http.Client) Option {
	return func(p *Provider) {
		p.httpClient = client
	}
}

// New creates a provider for cfg served by endpoint. The provider client id
// and default scopes come from the backend configuration.
func New(cfg reachfive.ProviderConfig, requestCode int, endpoint oauth2.Endpoint, env *providers.Env, opts ...Option) *Provider {
	p := &Provider{
		Social: providers.NewSocial(cfg, requestCode, env),
		env:    env,
		oauthConfig: oauth2.Config{
			ClientID:    cfg.ClientID,
			RedirectURL: env.RedirectURI,
			Scopes:      cfg.Scope,
			Endpoint:    endpoint,
		},
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// AuthCodeURL is the provider authorization URL for state and the verifier of pkce
func (p *Provider) AuthCodeURL(state, nonce string, pkce *reachfive.PkceChallenge) string {
	opts := []oauth2.AuthCodeOption{oauth2.S256ChallengeOption(pkce.CodeVerifier)}
	if nonce != "" {
		opts = append(opts, oauth2.SetAuthURLParam("nonce", nonce))
	}
	return p.oauthConfig.AuthCodeURL(state, opts...)
}

// Login opens the provider authorization page. A state is generated when the
// caller sets none, so the redirect can always be checked.
func (p *Provider) Login(ctx context.Context, req reachfive.LoginRequest) error {
	if p.env.Browser == nil {
		return providers.ErrNoBrowser
	}
	if req.State == "" {
		req.State = reachfive.NewState()
	}
	flow := p.NewFlow(req)
	return p.env.Flows.Begin(ctx, flow, p.oauthConfig.RedirectURL, func(ctx context.Context, pkce *reachfive.PkceChallenge) error {
		return p.env.Browser.OpenURL(ctx, p.RequestCode(), p.AuthCodeURL(flow.State, flow.Nonce, pkce))
	})
}

// OnResult exchanges the provider code, then the provider tokens
func (p *Provider) OnResult(ctx context.Context, flow *reachfive.PendingFlow, outcome reachfive.Outcome) (*reachfive.AuthToken, error) {
	defer p.env.Flows.Finish(ctx, flow)

	if err := outcome.Check(); err != nil {
		return nil, err
	}
	q, err := outcome.Query()
	if err != nil {
		return nil, err
	}
	code, err := reachfive.AuthorizationCode(q)
	if err != nil {
		return nil, err
	}
	if q.Get("state") != flow.State {
		return nil, providers.ErrStateMismatch
	}
	pkce, err := p.env.Flows.Verifier(ctx, flow)
	if err != nil {
		return nil, err
	}

	tok, err := p.exchange(ctx, code, pkce)
	if err != nil {
		return nil, err
	}
	cred := providers.ProviderCredential{AccessToken: tok.AccessToken, Nonce: flow.Nonce}
	if idToken, ok := tok.Extra("id_token").(string); ok {
		cred.IDToken = idToken
	}
	return p.Exchange(ctx, cred, flow.Scope, flow.Origin)
}

func (p *Provider) exchange(ctx context.Context, code string, pkce *reachfive.PkceChallenge) (*oauth2.Token, error) {
	if p.httpClient != nil {
		ctx = context.WithValue(ctx, oauth2.HTTPClient, p.httpClient)
	}
	tok, err := p.oauthConfig.Exchange(ctx, code, oauth2.VerifierOption(pkce.CodeVerifier))
	if err != nil {
		return nil, retrieveError(err)
	}
	return tok, nil
}

// retrieveError maps a provider token endpoint failure onto the error taxonomy
func retrieveError(err error) error {
	var re *oauth2.RetrieveError
	if !errors.As(err, &re) {
		return &reachfive.TransportError{Op: "provider token exchange", Err: err}
	}
	apiErr := &reachfive.APIError{Code: re.ErrorCode, Description: re.ErrorDescription}
	if re.Response != nil {
		apiErr.StatusCode = re.Response.StatusCode
	}
	if apiErr.Code == "" {
		apiErr.Code = "provider_error"
		apiErr.Description = string(re.Body)
	}
	return apiErr
}
