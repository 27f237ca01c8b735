package webauthn_test

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"testing"

	"github.com/go-webauthn/webauthn/protocol"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	reachfive "github.com/ReachFive/identity-android-sdk-sub000"
	"github.com/ReachFive/identity-android-sdk-sub000/internal/backendtest"
	"github.com/ReachFive/identity-android-sdk-sub000/providers"
	"github.com/ReachFive/identity-android-sdk-sub000/stores"
	"github.com/ReachFive/identity-android-sdk-sub000/webauthn"
)

var scope = reachfive.NewScopeSet("openid", "email", "offline_access")

func b64(s string) string {
	return base64.RawURLEncoding.EncodeToString([]byte(s))
}

// fakePlatform is both a Launcher and a CredentialManager. It answers every
// ceremony with the credential named id.
type fakePlatform struct {
	id  string
	err error

	launchedCode int
	creation     *protocol.PublicKeyCredentialCreationOptions
	request      *protocol.PublicKeyCredentialRequestOptions
}

func (f *fakePlatform) LaunchRegistration(_ context.Context, code int, opts protocol.PublicKeyCredentialCreationOptions) error {
	f.launchedCode, f.creation = code, &opts
	return f.err
}

func (f *fakePlatform) LaunchAuthentication(_ context.Context, code int, opts protocol.PublicKeyCredentialRequestOptions) error {
	f.launchedCode, f.request = code, &opts
	return f.err
}

func (f *fakePlatform) CreateCredential(_ context.Context, opts protocol.PublicKeyCredentialCreationOptions) (*protocol.CredentialCreationResponse, error) {
	f.creation = &opts
	if f.err != nil {
		return nil, f.err
	}
	var resp protocol.CredentialCreationResponse
	if err := json.Unmarshal(f.creationJSON(), &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (f *fakePlatform) GetCredential(_ context.Context, opts protocol.PublicKeyCredentialRequestOptions) (*protocol.CredentialAssertionResponse, error) {
	f.request = &opts
	if f.err != nil {
		return nil, f.err
	}
	var resp protocol.CredentialAssertionResponse
	if err := json.Unmarshal(f.assertionJSON(), &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (f *fakePlatform) creationJSON() []byte {
	return []byte(`{"id":"` + f.id + `","rawId":"` + f.id + `","type":"public-key","response":{` +
		`"clientDataJSON":"` + b64(`{"type":"webauthn.create"}`) + `",` +
		`"attestationObject":"` + b64("attestation") + `"}}`)
}

func (f *fakePlatform) assertionJSON() []byte {
	return []byte(`{"id":"` + f.id + `","rawId":"` + f.id + `","type":"public-key","response":{` +
		`"clientDataJSON":"` + b64(`{"type":"webauthn.get"}`) + `",` +
		`"authenticatorData":"` + b64("authenticator-data") + `",` +
		`"signature":"` + b64("signature") + `"}}`)
}

func newEnv(t *testing.T, b *backendtest.Backend) *providers.Env {
	t.Helper()
	return &providers.Env{
		API:          b.APIClient(),
		Flows:        reachfive.NewSuspension(stores.NewMemoryStore(), nil),
		RedirectURI:  backendtest.RedirectURI,
		Origin:       "webauthn-test",
		TokenOptions: []reachfive.TokenOption{reachfive.WithIDTokenKeyfunc(b.Keyfunc(), b.ClientID)},
	}
}

func passwordToken(t *testing.T, env *providers.Env, email string) *reachfive.AuthToken {
	t.Helper()
	tok, err := providers.NewPassword(env, nil).Login(context.Background(), providers.PasswordLogin{
		Identifier: reachfive.Identifier{Email: email},
		Password:   "correct-horse",
		Scope:      scope,
	})
	require.NoError(t, err)
	return tok
}

func resume(t *testing.T, env *providers.Env, a *webauthn.Adapter, code int, outcome reachfive.Outcome) (*reachfive.AuthToken, error) {
	t.Helper()
	ctx := context.Background()
	flow, err := env.Flows.Resume(ctx, code)
	require.NoError(t, err)
	return a.OnResult(ctx, flow, outcome)
}

func TestSignupWithWebAuthn(t *testing.T) {
	ctx := context.Background()
	b := backendtest.New(t)
	env := newEnv(t, b)
	platform := &fakePlatform{id: b64("signup-credential")}
	a := webauthn.New(env, webauthn.WithLauncher(platform))

	err := a.SignupWithWebAuthn(ctx, webauthn.SignupRequest{
		Profile:      reachfive.ProfileWebAuthnSignupRequest{Email: "passkey@example.com", GivenName: "Pass"},
		FriendlyName: "phone",
		Scope:        scope,
	})
	require.NoError(t, err)
	assert.Equal(t, reachfive.RequestCodeWebAuthnSignup, platform.launchedCode)
	require.NotNil(t, platform.creation)
	assert.Equal(t, backendtest.RelyingPartyID, platform.creation.RelyingParty.ID)
	assert.Len(t, []byte(platform.creation.Challenge), 32)

	tok, err := resume(t, env, a, reachfive.RequestCodeWebAuthnSignup, reachfive.Outcome{Data: platform.creationJSON()})
	require.NoError(t, err)
	assert.NotEmpty(t, tok.AccessToken)
	require.NotNil(t, tok.User)
	assert.Equal(t, "passkey@example.com", tok.User.Email)

	_, err = env.Flows.Resume(ctx, reachfive.RequestCodeWebAuthnSignup)
	assert.ErrorIs(t, err, reachfive.ErrMissingFlowState)
}

func TestSignupWithWebAuthn_Failures(t *testing.T) {
	ctx := context.Background()

	t.Run("email already used", func(t *testing.T) {
		b := backendtest.New(t)
		b.AddUser("taken@example.com", "correct-horse")
		a := webauthn.New(newEnv(t, b), webauthn.WithLauncher(&fakePlatform{}))
		err := a.SignupWithWebAuthn(ctx, webauthn.SignupRequest{
			Profile: reachfive.ProfileWebAuthnSignupRequest{Email: "taken@example.com"},
		})
		apiErr, ok := reachfive.AsAPIError(err)
		require.True(t, ok, "want APIError, got %v", err)
		assert.Equal(t, "email_already_exists", apiErr.Code)
	})

	t.Run("no identifier", func(t *testing.T) {
		b := backendtest.New(t)
		a := webauthn.New(newEnv(t, b), webauthn.WithLauncher(&fakePlatform{}))
		err := a.SignupWithWebAuthn(ctx, webauthn.SignupRequest{})
		var verr *reachfive.ValidationError
		assert.ErrorAs(t, err, &verr)
	})

	t.Run("no launcher", func(t *testing.T) {
		b := backendtest.New(t)
		a := webauthn.New(newEnv(t, b))
		err := a.SignupWithWebAuthn(ctx, webauthn.SignupRequest{
			Profile: reachfive.ProfileWebAuthnSignupRequest{Email: "x@example.com"},
		})
		assert.ErrorIs(t, err, webauthn.ErrNoLauncher)
	})

	t.Run("launch failure leaves nothing pending", func(t *testing.T) {
		b := backendtest.New(t)
		env := newEnv(t, b)
		boom := errors.New("no authenticator")
		a := webauthn.New(env, webauthn.WithLauncher(&fakePlatform{err: boom}))
		err := a.SignupWithWebAuthn(ctx, webauthn.SignupRequest{
			Profile: reachfive.ProfileWebAuthnSignupRequest{Email: "x@example.com"},
		})
		assert.ErrorIs(t, err, boom)
		_, err = env.Flows.Resume(ctx, reachfive.RequestCodeWebAuthnSignup)
		assert.ErrorIs(t, err, reachfive.ErrMissingFlowState)
	})

	t.Run("outcomes", func(t *testing.T) {
		cases := []struct {
			name    string
			outcome reachfive.Outcome
			want    error
		}{
			{"cancelled", reachfive.Outcome{ResultCode: reachfive.ResultCanceled}, reachfive.ErrUserCancelled},
			{"platform error", reachfive.Outcome{ResultCode: reachfive.ResultError, Err: errors.New("nfc off")}, reachfive.ErrUnexpectedExternalResult},
			{"no payload", reachfive.Outcome{}, reachfive.ErrUnexpectedExternalResult},
			{"garbage payload", reachfive.Outcome{Data: []byte("{")}, reachfive.ErrUnexpectedExternalResult},
			{"incomplete credential", reachfive.Outcome{Data: []byte(`{"id":"x"}`)}, reachfive.ErrUnexpectedExternalResult},
		}
		for _, c := range cases {
			t.Run(c.name, func(t *testing.T) {
				b := backendtest.New(t)
				env := newEnv(t, b)
				a := webauthn.New(env, webauthn.WithLauncher(&fakePlatform{}))
				require.NoError(t, a.SignupWithWebAuthn(ctx, webauthn.SignupRequest{
					Profile: reachfive.ProfileWebAuthnSignupRequest{Email: "x@example.com"},
				}))
				_, err := resume(t, env, a, reachfive.RequestCodeWebAuthnSignup, c.outcome)
				assert.ErrorIs(t, err, c.want)
			})
		}
	})
}

func TestDeviceLifecycle(t *testing.T) {
	ctx := context.Background()
	b := backendtest.New(t)
	b.AddUser("alice@example.com", "correct-horse")
	env := newEnv(t, b)
	tok := passwordToken(t, env, "alice@example.com")
	platform := &fakePlatform{id: b64("laptop-credential")}
	a := webauthn.New(env, webauthn.WithLauncher(platform))

	require.NoError(t, a.AddNewWebAuthnDevice(ctx, webauthn.DeviceRequest{Token: tok, FriendlyName: "laptop"}))
	assert.Equal(t, reachfive.RequestCodeWebAuthnRegisterDevice, platform.launchedCode)

	got, err := resume(t, env, a, reachfive.RequestCodeWebAuthnRegisterDevice, reachfive.Outcome{Data: platform.creationJSON()})
	require.NoError(t, err)
	assert.Nil(t, got)

	devices, err := a.ListWebAuthnDevices(ctx, tok)
	require.NoError(t, err)
	require.Len(t, devices, 1)
	assert.Equal(t, "laptop", devices[0].FriendlyName)
	assert.Equal(t, platform.id, devices[0].ID)

	t.Run("login with the device", func(t *testing.T) {
		require.NoError(t, a.LoginWithWebAuthn(ctx, webauthn.LoginRequest{Email: "alice@example.com", Scope: scope}))
		require.NotNil(t, platform.request)
		require.Len(t, platform.request.AllowedCredentials, 1)
		assert.Equal(t, []byte("laptop-credential"), []byte(platform.request.AllowedCredentials[0].CredentialID))

		logged, err := resume(t, env, a, reachfive.RequestCodeWebAuthnLogin, reachfive.Outcome{Data: platform.assertionJSON()})
		require.NoError(t, err)
		assert.NotEmpty(t, logged.AccessToken)
		assert.Equal(t, "alice@example.com", logged.User.Email)
	})

	t.Run("remove", func(t *testing.T) {
		require.NoError(t, a.RemoveWebAuthnDevice(ctx, tok, platform.id))
		devices, err := a.ListWebAuthnDevices(ctx, tok)
		require.NoError(t, err)
		assert.Empty(t, devices)

		err = a.RemoveWebAuthnDevice(ctx, tok, platform.id)
		apiErr, ok := reachfive.AsAPIError(err)
		require.True(t, ok, "want APIError, got %v", err)
		assert.Equal(t, 404, apiErr.StatusCode)
	})

	t.Run("no token", func(t *testing.T) {
		assert.ErrorIs(t, a.AddNewWebAuthnDevice(ctx, webauthn.DeviceRequest{}), reachfive.ErrNoAccessToken)
		_, err := a.ListWebAuthnDevices(ctx, nil)
		assert.ErrorIs(t, err, reachfive.ErrNoAccessToken)
	})
}

func TestFriendlyNameDefaultsToHostname(t *testing.T) {
	ctx := context.Background()
	b := backendtest.New(t)
	b.AddUser("alice@example.com", "correct-horse")
	env := newEnv(t, b)
	tok := passwordToken(t, env, "alice@example.com")
	platform := &fakePlatform{id: b64("host-credential")}
	a := webauthn.New(env,
		webauthn.WithCredentialManager(platform),
		webauthn.WithHostname(func() (string, error) { return "build-host", nil }),
	)

	require.NoError(t, a.RegisterNewPasskey(ctx, webauthn.DeviceRequest{Token: tok}))
	devices, err := a.ListWebAuthnDevices(ctx, tok)
	require.NoError(t, err)
	require.Len(t, devices, 1)
	assert.Equal(t, "build-host", devices[0].FriendlyName)
}

func TestPasskeys(t *testing.T) {
	ctx := context.Background()
	b := backendtest.New(t)
	env := newEnv(t, b)
	platform := &fakePlatform{id: b64("passkey")}
	a := webauthn.New(env, webauthn.WithCredentialManager(platform))

	tok, err := a.SignupWithPasskey(ctx, webauthn.SignupRequest{
		Profile: reachfive.ProfileWebAuthnSignupRequest{Email: "bob@example.com"},
		Scope:   scope,
	})
	require.NoError(t, err)
	assert.Equal(t, "bob@example.com", tok.User.Email)

	t.Run("discoverable login", func(t *testing.T) {
		tok, err := a.LoginWithPasskey(ctx, webauthn.LoginRequest{Scope: scope})
		require.NoError(t, err)
		assert.Equal(t, "bob@example.com", tok.User.Email)
		assert.Empty(t, platform.request.AllowedCredentials)
	})

	t.Run("login by email", func(t *testing.T) {
		_, err := a.LoginWithPasskey(ctx, webauthn.LoginRequest{Email: "bob@example.com", Scope: scope})
		require.NoError(t, err)
		assert.Len(t, platform.request.AllowedCredentials, 1)
	})

	t.Run("cancelled", func(t *testing.T) {
		cancelled := &fakePlatform{err: reachfive.ErrUserCancelled}
		a := webauthn.New(env, webauthn.WithCredentialManager(cancelled))
		_, err := a.LoginWithPasskey(ctx, webauthn.LoginRequest{Scope: scope})
		assert.ErrorIs(t, err, reachfive.ErrUserCancelled)
		assert.True(t, reachfive.IsCancelled(err))
	})

	t.Run("platform failure", func(t *testing.T) {
		broken := &fakePlatform{err: errors.New("authenticator locked")}
		a := webauthn.New(env, webauthn.WithCredentialManager(broken))
		_, err := a.LoginWithPasskey(ctx, webauthn.LoginRequest{Scope: scope})
		assert.ErrorIs(t, err, reachfive.ErrUnexpectedExternalResult)
	})

	t.Run("no credential manager", func(t *testing.T) {
		_, err := webauthn.New(env).LoginWithPasskey(ctx, webauthn.LoginRequest{})
		assert.ErrorIs(t, err, webauthn.ErrNoCredentialManager)
	})
}

func TestOnResult_UnknownKind(t *testing.T) {
	a := webauthn.New(&providers.Env{})
	flow := reachfive.NewPendingFlow(reachfive.FlowWebRedirect, reachfive.RequestCodeWebLogin, nil)
	_, err := a.OnResult(context.Background(), flow, reachfive.Outcome{})
	assert.ErrorIs(t, err, reachfive.ErrUnmatched)
}
