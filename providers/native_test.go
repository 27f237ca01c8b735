package providers_test

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	reachfive "github.com/ReachFive/identity-android-sdk-sub000"
	"github.com/ReachFive/identity-android-sdk-sub000/internal/backendtest"
	"github.com/ReachFive/identity-android-sdk-sub000/providers"
)

const requestCodeFacebook = 64206

type fakeLauncher struct {
	launches  int
	lastCode  int
	lastScope reachfive.ScopeSet
	err       error
	loggedOut bool
}

func (l *fakeLauncher) Launch(ctx context.Context, requestCode int, cfg reachfive.ProviderConfig, scope reachfive.ScopeSet) error {
	l.launches++
	l.lastCode = requestCode
	l.lastScope = scope
	return l.err
}

func (l *fakeLauncher) Logout(ctx context.Context) error {
	l.loggedOut = true
	return nil
}

func credentialData(t *testing.T, cred providers.ProviderCredential) []byte {
	t.Helper()
	data, err := json.Marshal(cred)
	require.NoError(t, err)
	return data
}

func TestNative_LoginAndResume(t *testing.T) {
	ctx := context.Background()
	b := backendtest.New(t)
	userID := b.AddUser("ivan@example.com", "")
	b.AddProviderUser("facebook", "fb-token", userID)

	env := newEnv(t, b)
	launcher := &fakeLauncher{}
	fb := providers.NewNative(reachfive.ProviderConfig{Provider: "facebook"}, requestCodeFacebook, env, launcher)
	require.NoError(t, env.Flows.Correlator.ClaimAll([]reachfive.Provider{fb}))

	require.NoError(t, fb.Login(ctx, reachfive.LoginRequest{Scope: defaultScope}))
	assert.Equal(t, 1, launcher.launches)
	assert.Equal(t, requestCodeFacebook, launcher.lastCode)

	flow, err := env.Flows.Resume(ctx, requestCodeFacebook)
	require.NoError(t, err)
	assert.Equal(t, "facebook", flow.Provider)
	assert.Equal(t, reachfive.FlowSocialProvider, flow.Kind)

	tok, err := fb.OnResult(ctx, flow, reachfive.Outcome{Data: credentialData(t, providers.ProviderCredential{AccessToken: "fb-token"})})
	require.NoError(t, err)
	assert.Equal(t, userID, tok.User.ID)

	require.NoError(t, reachfive.Logout(ctx, fb))
	assert.True(t, launcher.loggedOut)
}

func TestNative_OnResultFailures(t *testing.T) {
	ctx := context.Background()
	b := backendtest.New(t)
	env := newEnv(t, b)
	fb := providers.NewNative(reachfive.ProviderConfig{Provider: "facebook"}, requestCodeFacebook, env, &fakeLauncher{})
	flow := reachfive.NewPendingFlow(reachfive.FlowSocialProvider, requestCodeFacebook, defaultScope)

	_, err := fb.OnResult(ctx, flow, reachfive.Outcome{ResultCode: reachfive.ResultCanceled})
	assert.ErrorIs(t, err, reachfive.ErrUserCancelled)

	_, err = fb.OnResult(ctx, flow, reachfive.Outcome{})
	assert.ErrorIs(t, err, reachfive.ErrUnexpectedExternalResult)

	_, err = fb.OnResult(ctx, flow, reachfive.Outcome{Data: []byte(`{"nonce":"n"}`)})
	assert.ErrorIs(t, err, reachfive.ErrUnexpectedExternalResult)

	_, err = fb.OnResult(ctx, flow, reachfive.Outcome{Data: credentialData(t, providers.ProviderCredential{AccessToken: "unknown"})})
	apiErr, ok := reachfive.AsAPIError(err)
	require.True(t, ok)
	assert.Equal(t, "invalid_grant", apiErr.Code)
}

func TestNative_LaunchFailureLeavesNothingPending(t *testing.T) {
	ctx := context.Background()
	b := backendtest.New(t)
	env := newEnv(t, b)
	launcher := &fakeLauncher{err: errors.New("sdk unavailable")}
	fb := providers.NewNative(reachfive.ProviderConfig{Provider: "facebook"}, requestCodeFacebook, env, launcher)
	require.NoError(t, env.Flows.Correlator.ClaimAll([]reachfive.Provider{fb}))

	require.Error(t, fb.Login(ctx, reachfive.LoginRequest{}))
	_, err := env.Flows.Resume(ctx, requestCodeFacebook)
	assert.ErrorIs(t, err, reachfive.ErrMissingFlowState)

	launcher.err = nil
	assert.NoError(t, fb.Login(ctx, reachfive.LoginRequest{}), "a failed launch does not block the next login")
}

func TestParseProviderCredential(t *testing.T) {
	tests := []struct {
		name    string
		data    string
		want    providers.ProviderCredential
		wantErr bool
	}{
		{name: "access token", data: `{"access_token":"a"}`, want: providers.ProviderCredential{AccessToken: "a"}},
		{name: "code and nonce", data: `{"code":"c","nonce":"n"}`, want: providers.ProviderCredential{Code: "c", Nonce: "n"}},
		{name: "id token", data: `{"id_token":"i"}`, want: providers.ProviderCredential{IDToken: "i"}},
		{name: "empty object", data: `{}`, wantErr: true},
		{name: "empty", data: ``, wantErr: true},
		{name: "garbage", data: `not json`, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := providers.ParseProviderCredential([]byte(tt.data))
			if tt.wantErr {
				assert.ErrorIs(t, err, reachfive.ErrUnexpectedExternalResult)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
