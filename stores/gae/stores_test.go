//go:build !wasm
// +build !wasm

package gae

import (
	"context"
	"os"
	"testing"

	"cloud.google.com/go/datastore"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	reachfive "github.com/ReachFive/identity-android-sdk-sub000"
	"github.com/ReachFive/identity-android-sdk-sub000/stores/storetest"
)

// openTestClient connects to the Datastore emulator. Start one with
// `gcloud beta emulators datastore start` and export DATASTORE_EMULATOR_HOST.
func openTestClient(t *testing.T) *datastore.Client {
	if os.Getenv("DATASTORE_EMULATOR_HOST") == "" {
		t.Skip("DATASTORE_EMULATOR_HOST not set")
	}
	project := os.Getenv("DATASTORE_PROJECT_ID")
	if project == "" {
		project = "reachfive-test"
	}
	client, err := datastore.NewClient(context.Background(), project)
	require.NoError(t, err)
	t.Cleanup(func() { client.Close() })
	return client
}

// newTestStore isolates every subtest in its own namespace
func newTestStore(t *testing.T) *DatastoreStore {
	return NewDatastoreStore(openTestClient(t), "test-"+uuid.NewString())
}

func TestDatastoreStore(t *testing.T) {
	storetest.RunStoreTests(t, func(t *testing.T) reachfive.Store {
		return newTestStore(t)
	})
}

func TestDatastoreStore_NamespacesAreIsolated(t *testing.T) {
	client := openTestClient(t)
	a := NewDatastoreStore(client, "a-"+uuid.NewString())
	b := NewDatastoreStore(client, "b-"+uuid.NewString())
	ctx := context.Background()

	require.NoError(t, a.SaveFlow(ctx, reachfive.NewPendingFlow(reachfive.FlowWebRedirect, reachfive.RequestCodeWebLogin, nil)))
	require.NoError(t, b.SaveFlow(ctx, reachfive.NewPendingFlow(reachfive.FlowWebRedirect, reachfive.RequestCodeWebLogin, nil)))

	_, err := a.TakeFlow(ctx, reachfive.RequestCodeWebLogin)
	require.NoError(t, err)
	_, err = b.TakeFlow(ctx, reachfive.RequestCodeWebLogin)
	assert.NoError(t, err)
}

func TestFlowEntity_RoundTrip(t *testing.T) {
	flow := reachfive.NewPendingFlow(reachfive.FlowWebAuthnSignup, reachfive.RequestCodeWebAuthnSignup, reachfive.NewScopeSet("openid", "email"))
	flow.Extra = map[string]string{reachfive.ExtraWebAuthnID: "w1"}

	key := datastore.NameKey(KindFlow, "31001", nil)
	entity, err := FlowToEntity(flow, key)
	require.NoError(t, err)
	assert.Equal(t, flow.ID, entity.FlowID)
	assert.Equal(t, reachfive.RequestCodeWebAuthnSignup, entity.RequestCode)

	got, err := entity.ToFlow()
	require.NoError(t, err)
	assert.Equal(t, flow.ID, got.ID)
	assert.Equal(t, flow.Kind, got.Kind)
	assert.Equal(t, "w1", got.Extra[reachfive.ExtraWebAuthnID])
	assert.True(t, got.Scope.Contains("email"))
}

func TestPkceEntity_ToPkce(t *testing.T) {
	e := &PkceEntity{CodeVerifier: "v", RedirectURI: "app://cb"}
	assert.Equal(t, &reachfive.PkceChallenge{CodeVerifier: "v", RedirectURI: "app://cb"}, e.ToPkce())
}
