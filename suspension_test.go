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

func newSuspension(t *testing.T) (*reachfive.Suspension, *stores.MemoryStore) {
	t.Helper()
	store := stores.NewMemoryStore()
	return reachfive.NewSuspension(store, nil), store
}

func TestSuspension_BeginPersistsFlowAndVerifier(t *testing.T) {
	ctx := context.Background()
	s, store := newSuspension(t)
	flow := reachfive.NewPendingFlow(reachfive.FlowWebRedirect, reachfive.RequestCodeWebLogin, reachfive.NewScopeSet("openid"))

	var launched *reachfive.PkceChallenge
	err := s.Begin(ctx, flow, "app://callback", func(ctx context.Context, p *reachfive.PkceChallenge) error {
		launched = p
		return nil
	})
	require.NoError(t, err)
	require.NotNil(t, launched)

	stored, err := store.RetrievePkce(ctx, flow.PkceKey())
	require.NoError(t, err)
	assert.Equal(t, launched.CodeVerifier, stored.CodeVerifier)

	resumed, err := s.Resume(ctx, reachfive.RequestCodeWebLogin)
	require.NoError(t, err)
	assert.Equal(t, flow.ID, resumed.ID)

	verifier, err := s.Verifier(ctx, resumed)
	require.NoError(t, err)
	assert.Equal(t, launched.CodeVerifier, verifier.CodeVerifier)

	_, err = store.RetrievePkce(ctx, flow.PkceKey())
	assert.ErrorIs(t, err, reachfive.ErrMissingFlowState)
}

func TestSuspension_BeginWithoutRedirectSkipsPkce(t *testing.T) {
	ctx := context.Background()
	s, store := newSuspension(t)
	require.NoError(t, s.Correlator.Claim(14267, "google"))
	flow := reachfive.NewPendingFlow(reachfive.FlowSocialProvider, 14267, nil)

	err := s.Begin(ctx, flow, "", func(ctx context.Context, p *reachfive.PkceChallenge) error {
		assert.Nil(t, p)
		return nil
	})
	require.NoError(t, err)

	_, err = store.RetrievePkce(ctx, flow.PkceKey())
	assert.ErrorIs(t, err, reachfive.ErrMissingFlowState)
}

func TestSuspension_LaunchFailureRollsBack(t *testing.T) {
	ctx := context.Background()
	s, store := newSuspension(t)
	flow := reachfive.NewPendingFlow(reachfive.FlowWebRedirect, reachfive.RequestCodeWebLogin, nil)
	boom := errors.New("no browser")

	err := s.Begin(ctx, flow, "app://callback", func(ctx context.Context, p *reachfive.PkceChallenge) error {
		return boom
	})
	require.ErrorIs(t, err, boom)

	_, err = store.RetrievePkce(ctx, flow.PkceKey())
	assert.ErrorIs(t, err, reachfive.ErrMissingFlowState)
	_, err = s.Resume(ctx, reachfive.RequestCodeWebLogin)
	assert.ErrorIs(t, err, reachfive.ErrUnmatched)
}

func TestSuspension_SecondBeginKeepsFirstVerifier(t *testing.T) {
	ctx := context.Background()
	s, store := newSuspension(t)
	first := reachfive.NewPendingFlow(reachfive.FlowWebRedirect, reachfive.RequestCodeWebLogin, nil)

	var firstPkce *reachfive.PkceChallenge
	require.NoError(t, s.Begin(ctx, first, "app://callback", func(ctx context.Context, p *reachfive.PkceChallenge) error {
		firstPkce = p
		return nil
	}))

	second := reachfive.NewPendingFlow(reachfive.FlowWebRedirect, reachfive.RequestCodeWebLogin, nil)
	err := s.Begin(ctx, second, "app://callback", func(ctx context.Context, p *reachfive.PkceChallenge) error {
		t.Fatal("launch must not run for a code already in flight")
		return nil
	})
	require.ErrorIs(t, err, reachfive.ErrFlowInProgress)

	stored, err := store.RetrievePkce(ctx, first.PkceKey())
	require.NoError(t, err)
	assert.Equal(t, firstPkce.CodeVerifier, stored.CodeVerifier)
}

func TestSuspension_FinishDiscardsVerifier(t *testing.T) {
	ctx := context.Background()
	s, store := newSuspension(t)
	flow := reachfive.NewPendingFlow(reachfive.FlowWebRedirect, reachfive.RequestCodeWebLogin, nil)
	require.NoError(t, s.Begin(ctx, flow, "app://callback", func(context.Context, *reachfive.PkceChallenge) error { return nil }))

	resumed, err := s.Resume(ctx, reachfive.RequestCodeWebLogin)
	require.NoError(t, err)
	s.Finish(ctx, resumed)

	_, err = store.RetrievePkce(ctx, flow.PkceKey())
	assert.ErrorIs(t, err, reachfive.ErrMissingFlowState)
}
