package providers

import (
	"context"
	"errors"
	"fmt"

	reachfive "github.com/ReachFive/identity-android-sdk-sub000"
	"github.com/ReachFive/identity-android-sdk-sub000/api"
)

// Web view providers share one request code
const (
	WebViewName        = "webview"
	RequestCodeWebView = 52559
)

// ErrStateMismatch is returned when a redirect carries a state the flow did not send
var ErrStateMismatch = fmt.Errorf("%w: state mismatch", reachfive.ErrUnexpectedExternalResult)

// Web runs the browser redirect flow against /oauth/authorize
type Web struct {
	name     string
	code     int
	owner    string
	provider string
	env      *Env
}

// NewWeb creates the hosted login page flow
func NewWeb(env *Env) *Web {
	return &Web{name: reachfive.OwnerWeb, code: reachfive.RequestCodeWebLogin, owner: reachfive.OwnerWeb, env: env}
}

// NewWebView creates a redirect flow that goes straight to the provider named in cfg
func NewWebView(cfg reachfive.ProviderConfig, env *Env) *Web {
	return &Web{name: cfg.Provider, code: RequestCodeWebView, owner: WebViewName, provider: cfg.Provider, env: env}
}

func (w *Web) Name() string { return w.name }

func (w *Web) RequestCode() int { return w.code }

// CodeOwner groups every web view provider under one claim
func (w *Web) CodeOwner() string { return w.owner }

// AuthorizeURL builds the URL the browser is sent to
func (w *Web) AuthorizeURL(flow *reachfive.PendingFlow, pkce *reachfive.PkceChallenge) string {
	return w.env.API.AuthorizeURL(api.AuthorizeParams{
		RedirectURI: pkce.RedirectURI,
		Scope:       flow.Scope,
		Pkce:        pkce,
		Provider:    w.provider,
		Origin:      flow.Origin,
		State:       flow.State,
		Nonce:       flow.Nonce,
	})
}

// Login persists the flow and opens the authorize URL in the browser
func (w *Web) Login(ctx context.Context, req reachfive.LoginRequest) error {
	if w.env.Browser == nil {
		return ErrNoBrowser
	}
	flow := reachfive.NewPendingFlow(reachfive.FlowWebRedirect, w.code, req.Scope)
	flow.Provider = w.provider
	flow.Origin = w.env.origin(req.Origin)
	flow.State = req.State
	flow.Nonce = req.Nonce

	return w.env.Flows.Begin(ctx, flow, w.env.RedirectURI, func(ctx context.Context, pkce *reachfive.PkceChallenge) error {
		return w.env.Browser.OpenURL(ctx, w.code, w.AuthorizeURL(flow, pkce))
	})
}

// OnResult reads the code from the redirect and exchanges it with the
// persisted verifier. The verifier is gone afterwards whatever the result.
func (w *Web) OnResult(ctx context.Context, flow *reachfive.PendingFlow, outcome reachfive.Outcome) (*reachfive.AuthToken, error) {
	defer w.env.Flows.Finish(ctx, flow)

	if err := outcome.Check(); err != nil {
		if errors.Is(err, reachfive.ErrUserCancelled) {
			return nil, reachfive.ErrWebFlowCancelled
		}
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
	if flow.State != "" && q.Get("state") != flow.State {
		return nil, ErrStateMismatch
	}
	pkce, err := w.env.Flows.Verifier(ctx, flow)
	if err != nil {
		return nil, err
	}
	return w.env.ExchangeCode(ctx, code, pkce)
}

// WebViewCreator is the fallback creator for providers without a native one
func WebViewCreator() Creator {
	return NewCreator(WebViewName, func(cfg reachfive.ProviderConfig, env *Env) (reachfive.Provider, error) {
		return NewWebView(cfg, env), nil
	})
}
