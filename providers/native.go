package providers

import (
	"context"

	reachfive "github.com/ReachFive/identity-android-sdk-sub000"
)

// NativeLauncher is the host side of a provider SDK (Facebook, Google, WeChat
// app). It shows the provider UI and later forwards the result to the client's
// OnResult under requestCode, with the JSON encoded ProviderCredential as data.
type NativeLauncher interface {
	Launch(ctx context.Context, requestCode int, cfg reachfive.ProviderConfig, scope reachfive.ScopeSet) error
}

// NativeLogouter is implemented by launchers whose provider keeps its own session
type NativeLogouter interface {
	Logout(ctx context.Context) error
}

// Native is a social provider driven by a host provider SDK
type Native struct {
	*Social
	launcher NativeLauncher
}

// NewNative creates a native provider
func NewNative(cfg reachfive.ProviderConfig, requestCode int, env *Env, launcher NativeLauncher) *Native {
	return &Native{Social: NewSocial(cfg, requestCode, env), launcher: launcher}
}

// Login registers the flow and launches the provider UI
func (n *Native) Login(ctx context.Context, req reachfive.LoginRequest) error {
	flow := n.NewFlow(req)
	return n.env.Flows.Begin(ctx, flow, "", func(ctx context.Context, _ *reachfive.PkceChallenge) error {
		return n.launcher.Launch(ctx, n.code, n.config, req.Scope)
	})
}

// OnResult exchanges the credential the provider SDK returned
func (n *Native) OnResult(ctx context.Context, flow *reachfive.PendingFlow, outcome reachfive.Outcome) (*reachfive.AuthToken, error) {
	if err := outcome.Check(); err != nil {
		return nil, err
	}
	cred, err := ParseProviderCredential(outcome.Data)
	if err != nil {
		return nil, err
	}
	if cred.Nonce == "" {
		cred.Nonce = flow.Nonce
	}
	return n.Exchange(ctx, cred, flow.Scope, flow.Origin)
}

// Logout ends the provider SDK session when it has one
func (n *Native) Logout(ctx context.Context) error {
	if l, ok := n.launcher.(NativeLogouter); ok {
		return l.Logout(ctx)
	}
	return nil
}

// NativeCreator registers a host provider SDK under name
func NativeCreator(name string, requestCode int, launcher NativeLauncher) Creator {
	return NewCreator(name, func(cfg reachfive.ProviderConfig, env *Env) (reachfive.Provider, error) {
		return NewNative(cfg, requestCode, env, launcher), nil
	})
}
