// Package storetest is the conformance suite every reachfive.Store backend runs.
package storetest

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	reachfive "github.com/ReachFive/identity-android-sdk-sub000"
)

// Factory returns a fresh, empty store for one subtest
type Factory func(t *testing.T) reachfive.Store

// RunStoreTests exercises the full Store contract against stores built by newStore
func RunStoreTests(t *testing.T, newStore Factory) {
	t.Run("PkceRoundTrip", func(t *testing.T) { testPkceRoundTrip(t, newStore(t)) })
	t.Run("PkceMissing", func(t *testing.T) { testPkceMissing(t, newStore(t)) })
	t.Run("PkceOverwrite", func(t *testing.T) { testPkceOverwrite(t, newStore(t)) })
	t.Run("PkceDiscardIdempotent", func(t *testing.T) { testPkceDiscardIdempotent(t, newStore(t)) })
	t.Run("FlowRoundTrip", func(t *testing.T) { testFlowRoundTrip(t, newStore(t)) })
	t.Run("FlowTakenOnce", func(t *testing.T) { testFlowTakenOnce(t, newStore(t)) })
	t.Run("FlowInProgress", func(t *testing.T) { testFlowInProgress(t, newStore(t)) })
	t.Run("FlowDelete", func(t *testing.T) { testFlowDelete(t, newStore(t)) })
	t.Run("FlowConcurrentTake", func(t *testing.T) { testFlowConcurrentTake(t, newStore(t)) })
	t.Run("KeysIsolated", func(t *testing.T) { testKeysIsolated(t, newStore(t)) })
}

func testPkceRoundTrip(t *testing.T, s reachfive.Store) {
	ctx := context.Background()
	p, err := reachfive.GeneratePkce("app://callback")
	require.NoError(t, err)

	require.NoError(t, s.PersistPkce(ctx, "web_redirect:52557", p))

	got, err := s.RetrievePkce(ctx, "web_redirect:52557")
	require.NoError(t, err)
	assert.Equal(t, p.CodeVerifier, got.CodeVerifier)
	assert.Equal(t, p.RedirectURI, got.RedirectURI)
	assert.Equal(t, p.CodeChallenge(), got.CodeChallenge())
}

func testPkceMissing(t *testing.T, s reachfive.Store) {
	_, err := s.RetrievePkce(context.Background(), "nothing:1")
	assert.ErrorIs(t, err, reachfive.ErrMissingFlowState)
}

func testPkceOverwrite(t *testing.T, s reachfive.Store) {
	ctx := context.Background()
	first := &reachfive.PkceChallenge{CodeVerifier: "first", RedirectURI: "app://a"}
	second := &reachfive.PkceChallenge{CodeVerifier: "second", RedirectURI: "app://b"}
	require.NoError(t, s.PersistPkce(ctx, "k", first))
	require.NoError(t, s.PersistPkce(ctx, "k", second))

	got, err := s.RetrievePkce(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, "second", got.CodeVerifier)
}

func testPkceDiscardIdempotent(t *testing.T, s reachfive.Store) {
	ctx := context.Background()
	require.NoError(t, s.PersistPkce(ctx, "k", &reachfive.PkceChallenge{CodeVerifier: "v"}))
	require.NoError(t, s.DiscardPkce(ctx, "k"))
	require.NoError(t, s.DiscardPkce(ctx, "k"))

	_, err := s.RetrievePkce(ctx, "k")
	assert.ErrorIs(t, err, reachfive.ErrMissingFlowState)
}

func newFlow(code int) *reachfive.PendingFlow {
	f := reachfive.NewPendingFlow(reachfive.FlowWebRedirect, code, reachfive.NewScopeSet("openid", "email"))
	f.Origin = "storetest"
	f.State = "state-1"
	f.Nonce = "nonce-1"
	f.WithExtra(reachfive.ExtraWebAuthnID, "user-123")
	// Backends may store at reduced precision
	f.CreatedAt = f.CreatedAt.Truncate(time.Second)
	return f
}

func testFlowRoundTrip(t *testing.T, s reachfive.Store) {
	ctx := context.Background()
	flow := newFlow(52557)
	require.NoError(t, s.SaveFlow(ctx, flow))

	got, err := s.TakeFlow(ctx, 52557)
	require.NoError(t, err)
	assert.Equal(t, flow.ID, got.ID)
	assert.Equal(t, flow.Kind, got.Kind)
	assert.Equal(t, flow.Scope, got.Scope)
	assert.Equal(t, flow.Origin, got.Origin)
	assert.Equal(t, flow.State, got.State)
	assert.Equal(t, flow.Nonce, got.Nonce)
	assert.Equal(t, "user-123", got.Extra[reachfive.ExtraWebAuthnID])
	assert.True(t, flow.CreatedAt.Equal(got.CreatedAt), "created_at %v != %v", got.CreatedAt, flow.CreatedAt)
}

func testFlowTakenOnce(t *testing.T, s reachfive.Store) {
	ctx := context.Background()
	require.NoError(t, s.SaveFlow(ctx, newFlow(52557)))

	_, err := s.TakeFlow(ctx, 52557)
	require.NoError(t, err)

	_, err = s.TakeFlow(ctx, 52557)
	assert.ErrorIs(t, err, reachfive.ErrMissingFlowState)
}

func testFlowInProgress(t *testing.T, s reachfive.Store) {
	ctx := context.Background()
	require.NoError(t, s.SaveFlow(ctx, newFlow(31002)))

	err := s.SaveFlow(ctx, newFlow(31002))
	assert.ErrorIs(t, err, reachfive.ErrFlowInProgress)

	// The original flow is untouched
	_, err = s.TakeFlow(ctx, 31002)
	require.NoError(t, err)
	require.NoError(t, s.SaveFlow(ctx, newFlow(31002)))
}

func testFlowDelete(t *testing.T, s reachfive.Store) {
	ctx := context.Background()
	require.NoError(t, s.SaveFlow(ctx, newFlow(14267)))
	require.NoError(t, s.DeleteFlow(ctx, 14267))
	require.NoError(t, s.DeleteFlow(ctx, 14267))

	_, err := s.TakeFlow(ctx, 14267)
	assert.ErrorIs(t, err, reachfive.ErrMissingFlowState)
}

func testFlowConcurrentTake(t *testing.T, s reachfive.Store) {
	ctx := context.Background()
	require.NoError(t, s.SaveFlow(ctx, newFlow(52559)))

	const workers = 8
	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		taken   int
		missing int
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.TakeFlow(ctx, 52559)
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				taken++
			case errors.Is(err, reachfive.ErrMissingFlowState):
				missing++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, taken)
	assert.Equal(t, workers-1, missing)
}

func testKeysIsolated(t *testing.T, s reachfive.Store) {
	ctx := context.Background()
	require.NoError(t, s.PersistPkce(ctx, "web_redirect:52557", &reachfive.PkceChallenge{CodeVerifier: "a"}))
	require.NoError(t, s.PersistPkce(ctx, "passwordless:0", &reachfive.PkceChallenge{CodeVerifier: "b"}))
	require.NoError(t, s.SaveFlow(ctx, newFlow(1)))
	require.NoError(t, s.SaveFlow(ctx, newFlow(2)))

	require.NoError(t, s.DiscardPkce(ctx, "web_redirect:52557"))
	got, err := s.RetrievePkce(ctx, "passwordless:0")
	require.NoError(t, err)
	assert.Equal(t, "b", got.CodeVerifier)

	_, err = s.TakeFlow(ctx, 1)
	require.NoError(t, err)
	_, err = s.TakeFlow(ctx, 2)
	require.NoError(t, err)
}
