// Package providers implements the login modalities of the SDK.
//
// Password and Passwordless complete synchronously (passwordless may span two
// calls, with the verifier persisted in between). Web, Native and the oauth2
// package providers suspend on an external agent: they register a PendingFlow
// through reachfive.Suspension before handing control away and finish in
// OnResult once the host forwards the outcome.
package providers

import (
	"context"
	"errors"
	"log/slog"

	reachfive "github.com/ReachFive/identity-android-sdk-sub000"
	"github.com/ReachFive/identity-android-sdk-sub000/api"
)

// ErrNoBrowser is returned when a redirect flow starts without a browser surface
var ErrNoBrowser = errors.New("providers: no browser configured")

// Env is what every provider shares: the backend, the suspension machinery and
// the host surfaces.
type Env struct {
	API   *api.Client
	Flows *reachfive.Suspension
	// Browser opens authorization URLs. Redirect flows fail with ErrNoBrowser without it.
	Browser reachfive.Browser
	// RedirectURI is where the tenant sends authorization codes
	RedirectURI  string
	Origin       string
	TokenOptions []reachfive.TokenOption
	Logger       *slog.Logger
}

func (e *Env) logger() *slog.Logger {
	if e.Logger == nil {
		return slog.Default()
	}
	return e.Logger
}

func (e *Env) origin(override string) string {
	if override != "" {
		return override
	}
	return e.Origin
}

// Normalize converts a raw token response into an AuthToken
func (e *Env) Normalize(resp *reachfive.TokenResponse) (*reachfive.AuthToken, error) {
	return reachfive.NormalizeToken(resp, e.TokenOptions...)
}

// ExchangeCode trades an authorization code and its verifier for an AuthToken
func (e *Env) ExchangeCode(ctx context.Context, code string, pkce *reachfive.PkceChallenge) (*reachfive.AuthToken, error) {
	resp, err := e.API.ExchangeCode(ctx, code, pkce)
	if err != nil {
		return nil, err
	}
	return e.Normalize(resp)
}

// LoginCallback turns an orchestration token into an AuthToken: authorize with
// tkn and a fresh verifier, then exchange the returned code. The verifier never
// leaves the call, so it is not persisted.
func (e *Env) LoginCallback(ctx context.Context, tkn string, scope reachfive.ScopeSet, origin string) (*reachfive.AuthToken, error) {
	pkce, err := reachfive.GeneratePkce(e.RedirectURI)
	if err != nil {
		return nil, err
	}
	code, err := e.API.Authorize(ctx, api.AuthorizeParams{
		RedirectURI: e.RedirectURI,
		Scope:       scope,
		Pkce:        pkce,
		Tkn:         tkn,
		Origin:      e.origin(origin),
	})
	if err != nil {
		return nil, err
	}
	return e.ExchangeCode(ctx, code, pkce)
}
