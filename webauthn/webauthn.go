// Package webauthn runs the FIDO2 ceremonies of the tenant: passkey signup,
// device registration and login.
//
// Each ceremony fetches options from the backend, hands them to the platform
// authenticator, then submits the re-encoded response. The platform is either
// a Launcher, which suspends the flow until the host forwards the credential,
// or a CredentialManager, which blocks until the user is done.
package webauthn

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/go-webauthn/webauthn/protocol"

	reachfive "github.com/ReachFive/identity-android-sdk-sub000"
	"github.com/ReachFive/identity-android-sdk-sub000/api"
	"github.com/ReachFive/identity-android-sdk-sub000/providers"
)

var (
	// ErrNoLauncher is returned by suspending ceremonies when no Launcher is set
	ErrNoLauncher = errors.New("webauthn: no launcher configured")

	// ErrNoCredentialManager is returned by passkey ceremonies when no CredentialManager is set
	ErrNoCredentialManager = errors.New("webauthn: no credential manager configured")
)

// Adapter drives WebAuthn ceremonies against the tenant
type Adapter struct {
	env      *providers.Env
	launcher Launcher
	manager  CredentialManager
	hostname func() (string, error)
}

// Option configures an Adapter
type Option func(*Adapter)

// WithLauncher sets the suspending platform surface
func WithLauncher(l Launcher) Option {
	return func(a *Adapter) {
		a.launcher = l
	}
}

// WithCredentialManager sets the blocking passkey surface
func WithCredentialManager(m CredentialManager) Option {
	return func(a *Adapter) {
		a.manager = m
	}
}

// WithHostname replaces os.Hostname as the source of default friendly names
func WithHostname(fn func() (string, error)) Option {
	return func(a *Adapter) {
		a.hostname = fn
	}
}

// New creates an Adapter
func New(env *providers.Env, opts ...Option) *Adapter {
	a := &Adapter{env: env, hostname: os.Hostname}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// SignupRequest describes a new account created with a WebAuthn credential
type SignupRequest struct {
	Profile      reachfive.ProfileWebAuthnSignupRequest
	Origin       string
	FriendlyName string
	Scope        reachfive.ScopeSet
}

// LoginRequest identifies the account to log in. Without email or phone number
// the authenticator chooses among its discoverable credentials.
type LoginRequest struct {
	Email       string
	PhoneNumber string
	Origin      string
	Scope       reachfive.ScopeSet
}

// DeviceRequest adds a credential to the account owning Token
type DeviceRequest struct {
	Token        *reachfive.AuthToken
	Origin       string
	FriendlyName string
}

func (a *Adapter) logger() *slog.Logger {
	if a.env.Logger == nil {
		return slog.Default()
	}
	return a.env.Logger
}

func (a *Adapter) origin(override string) string {
	if override != "" {
		return override
	}
	return a.env.Origin
}

func (a *Adapter) friendlyName(name string) string {
	if name != "" {
		return name
	}
	host, err := a.hostname()
	if err != nil {
		a.logger().Warn("hostname unavailable for friendly name", "error", err)
		return ""
	}
	return host
}

func (a *Adapter) signupOptions(ctx context.Context, req SignupRequest) (*api.RegistrationOptions, error) {
	profile := req.Profile
	if err := (reachfive.Identifier{Email: profile.Email, PhoneNumber: profile.PhoneNumber, CustomIdentifier: profile.CustomIdentifier}).Validate(); err != nil {
		return nil, err
	}
	return a.env.API.WebAuthnSignupOptions(ctx, api.WebAuthnRegistrationRequest{
		Origin:       a.origin(req.Origin),
		FriendlyName: a.friendlyName(req.FriendlyName),
		Profile:      &profile,
	})
}

func (a *Adapter) registrationOptions(ctx context.Context, req DeviceRequest) (*api.RegistrationOptions, error) {
	if req.Token == nil {
		return nil, reachfive.ErrNoAccessToken
	}
	return a.env.API.WebAuthnRegistrationOptions(ctx, req.Token.AuthHeader(), api.WebAuthnRegistrationRequest{
		Origin:       a.origin(req.Origin),
		FriendlyName: a.friendlyName(req.FriendlyName),
	})
}

func (a *Adapter) authenticationOptions(ctx context.Context, req LoginRequest) (*api.AuthenticationOptions, error) {
	return a.env.API.WebAuthnAuthenticationOptions(ctx, api.WebAuthnLoginRequest{
		Origin:      a.origin(req.Origin),
		Email:       req.Email,
		PhoneNumber: req.PhoneNumber,
		Scope:       req.Scope.String(),
	})
}

// SignupWithWebAuthn starts a signup and suspends until the Launcher delivers
// the new credential. Resume with OnSignupResult.
func (a *Adapter) SignupWithWebAuthn(ctx context.Context, req SignupRequest) error {
	if a.launcher == nil {
		return ErrNoLauncher
	}
	wire, err := a.signupOptions(ctx, req)
	if err != nil {
		return err
	}
	opts, err := CreationOptions(wire)
	if err != nil {
		return err
	}
	flow := reachfive.NewPendingFlow(reachfive.FlowWebAuthnSignup, reachfive.RequestCodeWebAuthnSignup, req.Scope)
	flow.Origin = a.origin(req.Origin)
	flow.WithExtra(reachfive.ExtraWebAuthnID, wire.UserID())
	return a.env.Flows.Begin(ctx, flow, "", func(ctx context.Context, _ *reachfive.PkceChallenge) error {
		return a.launcher.LaunchRegistration(ctx, flow.RequestCode, opts)
	})
}

// OnSignupResult completes a signup started by SignupWithWebAuthn
func (a *Adapter) OnSignupResult(ctx context.Context, flow *reachfive.PendingFlow, outcome reachfive.Outcome) (*reachfive.AuthToken, error) {
	if err := outcome.Check(); err != nil {
		return nil, err
	}
	resp, err := ParseCreationResponse(outcome.Data)
	if err != nil {
		return nil, err
	}
	return a.completeSignup(ctx, flow.Extra[reachfive.ExtraWebAuthnID], resp, flow.Scope, flow.Origin)
}

// AddNewWebAuthnDevice starts registering a new device for the token owner and
// suspends until the Launcher delivers the credential. Resume with OnRegisterDeviceResult.
func (a *Adapter) AddNewWebAuthnDevice(ctx context.Context, req DeviceRequest) error {
	if a.launcher == nil {
		return ErrNoLauncher
	}
	wire, err := a.registrationOptions(ctx, req)
	if err != nil {
		return err
	}
	opts, err := CreationOptions(wire)
	if err != nil {
		return err
	}
	flow := reachfive.NewPendingFlow(reachfive.FlowDeviceRegistration, reachfive.RequestCodeWebAuthnRegisterDevice, nil)
	flow.Origin = a.origin(req.Origin)
	flow.WithExtra(reachfive.ExtraAuthHeader, req.Token.AuthHeader())
	flow.WithExtra(reachfive.ExtraFriendlyName, wire.FriendlyName)
	return a.env.Flows.Begin(ctx, flow, "", func(ctx context.Context, _ *reachfive.PkceChallenge) error {
		return a.launcher.LaunchRegistration(ctx, flow.RequestCode, opts)
	})
}

// OnRegisterDeviceResult completes a registration started by AddNewWebAuthnDevice
func (a *Adapter) OnRegisterDeviceResult(ctx context.Context, flow *reachfive.PendingFlow, outcome reachfive.Outcome) error {
	if err := outcome.Check(); err != nil {
		return err
	}
	resp, err := ParseCreationResponse(outcome.Data)
	if err != nil {
		return err
	}
	auth := flow.Extra[reachfive.ExtraAuthHeader]
	if auth == "" {
		return fmt.Errorf("%w: flow carries no authorization", reachfive.ErrUnexpectedExternalResult)
	}
	return a.env.API.WebAuthnRegister(ctx, auth, RegistrationCredential(resp))
}

// LoginWithWebAuthn starts a login and suspends until the Launcher delivers
// the assertion. Resume with OnLoginResult.
func (a *Adapter) LoginWithWebAuthn(ctx context.Context, req LoginRequest) error {
	if a.launcher == nil {
		return ErrNoLauncher
	}
	wire, err := a.authenticationOptions(ctx, req)
	if err != nil {
		return err
	}
	opts, err := RequestOptions(wire)
	if err != nil {
		return err
	}
	flow := reachfive.NewPendingFlow(reachfive.FlowWebAuthnLogin, reachfive.RequestCodeWebAuthnLogin, req.Scope)
	flow.Origin = a.origin(req.Origin)
	return a.env.Flows.Begin(ctx, flow, "", func(ctx context.Context, _ *reachfive.PkceChallenge) error {
		return a.launcher.LaunchAuthentication(ctx, flow.RequestCode, opts)
	})
}

// OnLoginResult completes a login started by LoginWithWebAuthn
func (a *Adapter) OnLoginResult(ctx context.Context, flow *reachfive.PendingFlow, outcome reachfive.Outcome) (*reachfive.AuthToken, error) {
	if err := outcome.Check(); err != nil {
		return nil, err
	}
	resp, err := ParseAssertionResponse(outcome.Data)
	if err != nil {
		return nil, err
	}
	return a.completeLogin(ctx, resp, flow.Scope, flow.Origin)
}

// OnResult routes a resumed WebAuthn flow by kind. Device registration
// completes without a token.
func (a *Adapter) OnResult(ctx context.Context, flow *reachfive.PendingFlow, outcome reachfive.Outcome) (*reachfive.AuthToken, error) {
	switch flow.Kind {
	case reachfive.FlowWebAuthnSignup:
		return a.OnSignupResult(ctx, flow, outcome)
	case reachfive.FlowWebAuthnLogin:
		return a.OnLoginResult(ctx, flow, outcome)
	case reachfive.FlowDeviceRegistration:
		return nil, a.OnRegisterDeviceResult(ctx, flow, outcome)
	}
	return nil, fmt.Errorf("%w: flow kind %s", reachfive.ErrUnmatched, flow.Kind)
}

// SignupWithPasskey creates an account and its passkey in one blocking call
func (a *Adapter) SignupWithPasskey(ctx context.Context, req SignupRequest) (*reachfive.AuthToken, error) {
	if a.manager == nil {
		return nil, ErrNoCredentialManager
	}
	wire, err := a.signupOptions(ctx, req)
	if err != nil {
		return nil, err
	}
	opts, err := CreationOptions(wire)
	if err != nil {
		return nil, err
	}
	resp, err := a.manager.CreateCredential(ctx, opts)
	if err != nil {
		return nil, platformError(err)
	}
	return a.completeSignup(ctx, wire.UserID(), resp, req.Scope, a.origin(req.Origin))
}

// RegisterNewPasskey adds a passkey to the token owner
func (a *Adapter) RegisterNewPasskey(ctx context.Context, req DeviceRequest) error {
	if a.manager == nil {
		return ErrNoCredentialManager
	}
	wire, err := a.registrationOptions(ctx, req)
	if err != nil {
		return err
	}
	opts, err := CreationOptions(wire)
	if err != nil {
		return err
	}
	resp, err := a.manager.CreateCredential(ctx, opts)
	if err != nil {
		return platformError(err)
	}
	return a.env.API.WebAuthnRegister(ctx, req.Token.AuthHeader(), RegistrationCredential(resp))
}

// LoginWithPasskey logs in with a passkey. With neither email nor phone number
// the login is discoverable.
func (a *Adapter) LoginWithPasskey(ctx context.Context, req LoginRequest) (*reachfive.AuthToken, error) {
	if a.manager == nil {
		return nil, ErrNoCredentialManager
	}
	wire, err := a.authenticationOptions(ctx, req)
	if err != nil {
		return nil, err
	}
	opts, err := RequestOptions(wire)
	if err != nil {
		return nil, err
	}
	resp, err := a.manager.GetCredential(ctx, opts)
	if err != nil {
		return nil, platformError(err)
	}
	return a.completeLogin(ctx, resp, req.Scope, a.origin(req.Origin))
}

// ListWebAuthnDevices lists the credentials registered for the token owner
func (a *Adapter) ListWebAuthnDevices(ctx context.Context, tok *reachfive.AuthToken) ([]api.DeviceCredential, error) {
	if tok == nil {
		return nil, reachfive.ErrNoAccessToken
	}
	return a.env.API.WebAuthnRegistrations(ctx, tok.AuthHeader())
}

// RemoveWebAuthnDevice deletes the credential id of the token owner
func (a *Adapter) RemoveWebAuthnDevice(ctx context.Context, tok *reachfive.AuthToken, id string) error {
	if tok == nil {
		return reachfive.ErrNoAccessToken
	}
	return a.env.API.DeleteWebAuthnRegistration(ctx, tok.AuthHeader(), id)
}

func (a *Adapter) completeSignup(ctx context.Context, webauthnID string, resp *protocol.CredentialCreationResponse, scope reachfive.ScopeSet, origin string) (*reachfive.AuthToken, error) {
	if webauthnID == "" {
		return nil, fmt.Errorf("%w: missing webauthn id", reachfive.ErrUnexpectedExternalResult)
	}
	at, err := a.env.API.WebAuthnSignup(ctx, api.WebauthnSignupCredential{
		WebauthnID:          webauthnID,
		PublicKeyCredential: RegistrationCredential(resp),
	})
	if err != nil {
		return nil, err
	}
	return a.env.LoginCallback(ctx, at.Tkn, scope, origin)
}

func (a *Adapter) completeLogin(ctx context.Context, resp *protocol.CredentialAssertionResponse, scope reachfive.ScopeSet, origin string) (*reachfive.AuthToken, error) {
	at, err := a.env.API.WebAuthnAuthenticate(ctx, AuthenticationCredential(resp))
	if err != nil {
		return nil, err
	}
	return a.env.LoginCallback(ctx, at.Tkn, scope, origin)
}

// platformError passes cancellations through and marks anything else as a platform failure
func platformError(err error) error {
	if errors.Is(err, reachfive.ErrUserCancelled) {
		return err
	}
	return fmt.Errorf("%w: %w", reachfive.ErrUnexpectedExternalResult, err)
}
