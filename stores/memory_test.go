package stores

import (
	"context"
	"testing"
	"time"

	reachfive "github.com/ReachFive/identity-android-sdk-sub000"
	"github.com/ReachFive/identity-android-sdk-sub000/stores/storetest"
)

func TestMemoryStore(t *testing.T) {
	storetest.RunStoreTests(t, func(t *testing.T) reachfive.Store {
		return NewMemoryStore()
	})
}

func TestMemoryStore_FlowTTL(t *testing.T) {
	now := time.Now()
	s := NewMemoryStore(WithFlowTTL(time.Minute), WithClock(func() time.Time { return now }))
	ctx := context.Background()

	flow := reachfive.NewPendingFlow(reachfive.FlowWebRedirect, 52557, nil)
	flow.CreatedAt = now
	if err := s.SaveFlow(ctx, flow); err != nil {
		t.Fatalf("SaveFlow() error = %v", err)
	}

	now = now.Add(2 * time.Minute)

	// An expired flow no longer blocks a new one
	fresh := reachfive.NewPendingFlow(reachfive.FlowWebRedirect, 52557, nil)
	fresh.CreatedAt = now
	if err := s.SaveFlow(ctx, fresh); err != nil {
		t.Fatalf("SaveFlow() over expired flow error = %v", err)
	}

	got, err := s.TakeFlow(ctx, 52557)
	if err != nil {
		t.Fatalf("TakeFlow() error = %v", err)
	}
	if got.ID != fresh.ID {
		t.Errorf("TakeFlow() ID = %v, want %v", got.ID, fresh.ID)
	}
}

func TestMemoryStore_StoredFlowIsCopied(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	flow := reachfive.NewPendingFlow(reachfive.FlowWebAuthnSignup, 31001, nil)
	flow.WithExtra(reachfive.ExtraWebAuthnID, "original")
	if err := s.SaveFlow(ctx, flow); err != nil {
		t.Fatalf("SaveFlow() error = %v", err)
	}
	flow.Extra[reachfive.ExtraWebAuthnID] = "mutated"

	got, err := s.TakeFlow(ctx, 31001)
	if err != nil {
		t.Fatalf("TakeFlow() error = %v", err)
	}
	if got.Extra[reachfive.ExtraWebAuthnID] != "original" {
		t.Errorf("stored flow changed through caller's map: %v", got.Extra)
	}
}
