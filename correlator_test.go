package reachfive_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	reachfive "github.com/ReachFive/identity-android-sdk-sub000"
	"github.com/ReachFive/identity-android-sdk-sub000/stores"
)

type stubProvider struct {
	name string
	code int
}

func (p stubProvider) Name() string     { return p.name }
func (p stubProvider) RequestCode() int { return p.code }
func (p stubProvider) Login(context.Context, reachfive.LoginRequest) error {
	return nil
}
func (p stubProvider) OnResult(context.Context, *reachfive.PendingFlow, reachfive.Outcome) (*reachfive.AuthToken, error) {
	return nil, nil
}

func TestCorrelator_Claim(t *testing.T) {
	c := reachfive.NewCorrelator(stores.NewMemoryStore(), nil)

	require.NoError(t, c.Claim(14267, "google"))
	require.NoError(t, c.Claim(14267, "google"), "re-claim by the same owner is fine")

	err := c.Claim(14267, "facebook")
	assert.ErrorIs(t, err, reachfive.ErrDuplicateRequestCode)

	for _, code := range []int{
		reachfive.RequestCodeWebLogin,
		reachfive.RequestCodeWebAuthnSignup,
		reachfive.RequestCodeWebAuthnLogin,
		reachfive.RequestCodeWebAuthnRegisterDevice,
	} {
		assert.ErrorIs(t, c.Claim(code, "custom"), reachfive.ErrDuplicateRequestCode, "code %d", code)
	}
}

func TestCorrelator_ClaimAllIsAtomic(t *testing.T) {
	c := reachfive.NewCorrelator(stores.NewMemoryStore(), nil)
	require.NoError(t, c.ClaimAll([]reachfive.Provider{stubProvider{"google", 14267}}))

	err := c.ClaimAll([]reachfive.Provider{
		stubProvider{"facebook", 64206},
		stubProvider{"line", 64206},
	})
	assert.ErrorIs(t, err, reachfive.ErrDuplicateRequestCode)
	assert.Equal(t, []int{14267}, c.ClaimedCodes(), "failed ClaimAll must keep the previous claims")

	require.NoError(t, c.ClaimAll([]reachfive.Provider{stubProvider{"facebook", 64206}}))
	assert.Equal(t, []int{64206}, c.ClaimedCodes())
	_, ok := c.Owner(14267)
	assert.False(t, ok)
}

func TestCorrelator_ReservedOwnerNames(t *testing.T) {
	c := reachfive.NewCorrelator(stores.NewMemoryStore(), nil)

	assert.ErrorIs(t, c.Claim(70001, reachfive.OwnerWeb), reachfive.ErrDuplicateRequestCode)
	assert.ErrorIs(t, c.Claim(70001, reachfive.OwnerWebAuthn), reachfive.ErrDuplicateRequestCode)
	assert.Empty(t, c.ClaimedCodes())

	require.NoError(t, c.ClaimAll([]reachfive.Provider{stubProvider{"google", 14267}}))
	err := c.ClaimAll([]reachfive.Provider{
		stubProvider{"google", 14267},
		stubProvider{reachfive.OwnerWebAuthn, 70002},
	})
	assert.ErrorIs(t, err, reachfive.ErrDuplicateRequestCode)
	assert.Equal(t, []int{14267}, c.ClaimedCodes())

	owner, ok := c.Owner(reachfive.RequestCodeWebLogin)
	assert.True(t, ok)
	assert.Equal(t, reachfive.OwnerWeb, owner)
}

func TestCorrelator_Owner(t *testing.T) {
	c := reachfive.NewCorrelator(stores.NewMemoryStore(), nil)
	require.NoError(t, c.Claim(14267, "google"))

	tests := []struct {
		code  int
		owner string
		ok    bool
	}{
		{reachfive.RequestCodeWebAuthnLogin, reachfive.OwnerWebAuthn, true},
		{reachfive.RequestCodeWebLogin, reachfive.OwnerWeb, true},
		{14267, "google", true},
		{1, "", false},
	}
	for _, tt := range tests {
		owner, ok := c.Owner(tt.code)
		assert.Equal(t, tt.ok, ok, "code %d", tt.code)
		assert.Equal(t, tt.owner, owner, "code %d", tt.code)
	}
}

func TestCorrelator_RegisterResolve(t *testing.T) {
	ctx := context.Background()
	c := reachfive.NewCorrelator(stores.NewMemoryStore(), nil)

	flow := reachfive.NewPendingFlow(reachfive.FlowWebRedirect, reachfive.RequestCodeWebLogin, reachfive.NewScopeSet("openid"))
	require.NoError(t, c.Register(ctx, flow))

	second := reachfive.NewPendingFlow(reachfive.FlowWebRedirect, reachfive.RequestCodeWebLogin, nil)
	assert.ErrorIs(t, c.Register(ctx, second), reachfive.ErrFlowInProgress)

	got, err := c.Resolve(ctx, reachfive.RequestCodeWebLogin)
	require.NoError(t, err)
	assert.Equal(t, flow.ID, got.ID)
	assert.Equal(t, reachfive.NewScopeSet("openid"), got.Scope)

	_, err = c.Resolve(ctx, reachfive.RequestCodeWebLogin)
	assert.ErrorIs(t, err, reachfive.ErrMissingFlowState)
	assert.ErrorIs(t, err, reachfive.ErrUnmatched)
}

func TestCorrelator_Unmatched(t *testing.T) {
	ctx := context.Background()
	c := reachfive.NewCorrelator(stores.NewMemoryStore(), nil)

	_, err := c.Resolve(ctx, 4242)
	assert.ErrorIs(t, err, reachfive.ErrUnmatched)
	assert.False(t, errors.Is(err, reachfive.ErrMissingFlowState))

	err = c.Register(ctx, reachfive.NewPendingFlow(reachfive.FlowSocialProvider, 4242, nil))
	assert.ErrorIs(t, err, reachfive.ErrUnmatched)
}

func TestCorrelator_Discard(t *testing.T) {
	ctx := context.Background()
	c := reachfive.NewCorrelator(stores.NewMemoryStore(), nil)

	require.NoError(t, c.Register(ctx, reachfive.NewPendingFlow(reachfive.FlowWebAuthnLogin, reachfive.RequestCodeWebAuthnLogin, nil)))
	require.NoError(t, c.Discard(ctx, reachfive.RequestCodeWebAuthnLogin))
	require.NoError(t, c.Discard(ctx, reachfive.RequestCodeWebAuthnLogin))

	_, err := c.Resolve(ctx, reachfive.RequestCodeWebAuthnLogin)
	assert.ErrorIs(t, err, reachfive.ErrMissingFlowState)
}

type sharedStub struct {
	stubProvider
	owner string
}

func (p sharedStub) CodeOwner() string { return p.owner }

func TestCorrelator_ClaimAllSharedCode(t *testing.T) {
	c := reachfive.NewCorrelator(stores.NewMemoryStore(), nil)

	require.NoError(t, c.ClaimAll([]reachfive.Provider{
		sharedStub{stubProvider{"twitter", 52559}, "webview"},
		sharedStub{stubProvider{"apple", 52559}, "webview"},
	}))
	owner, ok := c.Owner(52559)
	require.True(t, ok)
	assert.Equal(t, "webview", owner)

	err := c.ClaimAll([]reachfive.Provider{
		sharedStub{stubProvider{"twitter", 52559}, "webview"},
		stubProvider{"custom", 52559},
	})
	assert.ErrorIs(t, err, reachfive.ErrDuplicateRequestCode)
	assert.Equal(t, "webview", reachfive.ClaimOwner(sharedStub{stubProvider{"apple", 52559}, "webview"}))
	assert.Equal(t, "custom", reachfive.ClaimOwner(stubProvider{"custom", 1}))
}
