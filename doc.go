// Package reachfive is the core of a client-side identity SDK for ReachFive.
//
// It authenticates end users through password, passwordless, social, browser
// redirect and WebAuthn flows and normalizes each of them into one AuthToken.
//
// # Architecture
//
// Flows that hand control to an external agent (system browser, platform
// credential manager, third-party identity app) are suspended, not awaited.
// Before control leaves the process the SDK persists everything it needs to
// resume:
//
// PkceChallenge: the code verifier and redirect URI of an authorization code
// flow, keyed by flow key ("<kind>:<requestCode>"). It is consumed exactly once.
//
// PendingFlow: the kind, scope, origin, state and nonce of the flow, keyed by
// request code. It is taken exactly once when the result comes back.
//
// The Correlator maps the request code of an incoming result to the flow that
// started it. Structural codes (web redirect and WebAuthn) are matched before
// codes claimed by providers, and conflicting claims fail at registration.
//
// # Basic Usage
//
// The orchestrator lives in the client package:
//
//	import (
//	    "github.com/ReachFive/identity-android-sdk-sub000/client"
//	    "github.com/ReachFive/identity-android-sdk-sub000/stores/fs"
//	)
//
//	cfg, _ := reachfive.LoadConfigFromEnv()
//	store, _ := fs.NewFSStore("", cfg.AppName)
//	c, _ := client.New(cfg, store, client.WithBrowser(browser))
//	if err := c.Initialize(ctx); err != nil { ... }
//
//	tok, err := c.Login(ctx, client.PasswordLogin{
//	    Identifier: reachfive.Identifier{Email: "bob@example.com"},
//	    Password:   "secret",
//	})
//
// Redirect flows complete through the host callback:
//
//	err := c.LoginWithWeb(ctx, client.LoginOptions{Scope: reachfive.NewScopeSet("openid")})
//	// ... browser returns to the app ...
//	tok, err := c.OnResult(ctx, reachfive.RequestCodeWebLogin, reachfive.Outcome{RedirectURL: deepLink})
//
// # Errors
//
// Backend failures are *APIError, network failures *TransportError and local
// input problems *ValidationError. A result with no pending state is
// ErrMissingFlowState. CodeOf maps any error to a numeric ErrorCode.
//
// # Storage
//
// The stores package provides an in-memory Store. Durable backends live in
// stores/fs, stores/redis and stores/gorm.
package reachfive
