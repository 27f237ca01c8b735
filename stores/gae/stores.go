//go:build !wasm
// +build !wasm

package gae

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"cloud.google.com/go/datastore"

	reachfive "github.com/ReachFive/identity-android-sdk-sub000"
)

// Kind constants for Datastore entities
const (
	KindPkce = "ReachFivePkce"
	KindFlow = "ReachFiveFlow"
)

// maxTxAttempts covers contention between concurrent takes of one request code
const maxTxAttempts = 16

// Verify interface compliance
var _ reachfive.Store = (*DatastoreStore)(nil)

// DatastoreStore implements reachfive.Store using Google Cloud Datastore
type DatastoreStore struct {
	client    *datastore.Client
	namespace string
}

// NewDatastoreStore creates a new Datastore-backed store
func NewDatastoreStore(client *datastore.Client, namespace string) *DatastoreStore {
	return &DatastoreStore{
		client:    client,
		namespace: namespace,
	}
}

func (s *DatastoreStore) namespacedKey(kind, name string) *datastore.Key {
	key := datastore.NameKey(kind, name, nil)
	key.Namespace = s.namespace
	return key
}

func (s *DatastoreStore) flowKey(requestCode int) *datastore.Key {
	return s.namespacedKey(KindFlow, strconv.Itoa(requestCode))
}

func (s *DatastoreStore) PersistPkce(ctx context.Context, flowKey string, p *reachfive.PkceChallenge) error {
	key := s.namespacedKey(KindPkce, flowKey)
	entity := &PkceEntity{
		Key:          key,
		CodeVerifier: p.CodeVerifier,
		RedirectURI:  p.RedirectURI,
		CreatedAt:    time.Now(),
	}
	if _, err := s.client.Put(ctx, key, entity); err != nil {
		return fmt.Errorf("failed to save pkce: %w", err)
	}
	return nil
}

func (s *DatastoreStore) RetrievePkce(ctx context.Context, flowKey string) (*reachfive.PkceChallenge, error) {
	var entity PkceEntity
	if err := s.client.Get(ctx, s.namespacedKey(KindPkce, flowKey), &entity); err != nil {
		if errors.Is(err, datastore.ErrNoSuchEntity) {
			return nil, reachfive.ErrMissingFlowState
		}
		return nil, fmt.Errorf("failed to get pkce: %w", err)
	}
	return entity.ToPkce(), nil
}

// DiscardPkce is idempotent: Datastore deletes of missing keys succeed
func (s *DatastoreStore) DiscardPkce(ctx context.Context, flowKey string) error {
	if err := s.client.Delete(ctx, s.namespacedKey(KindPkce, flowKey)); err != nil {
		return fmt.Errorf("failed to delete pkce: %w", err)
	}
	return nil
}

// SaveFlow checks and writes in one transaction so only one flow per request
// code can be outstanding
func (s *DatastoreStore) SaveFlow(ctx context.Context, flow *reachfive.PendingFlow) error {
	key := s.flowKey(flow.RequestCode)
	entity, err := FlowToEntity(flow, key)
	if err != nil {
		return err
	}
	_, err = s.client.RunInTransaction(ctx, func(tx *datastore.Transaction) error {
		var existing FlowEntity
		err := tx.Get(key, &existing)
		if err == nil {
			return reachfive.ErrFlowInProgress
		}
		if !errors.Is(err, datastore.ErrNoSuchEntity) {
			return err
		}
		_, err = tx.Put(key, entity)
		return err
	}, datastore.MaxAttempts(maxTxAttempts))
	return err
}

// TakeFlow gets and deletes in one transaction. A concurrent take that commits
// first makes the retried transaction see no entity.
func (s *DatastoreStore) TakeFlow(ctx context.Context, requestCode int) (*reachfive.PendingFlow, error) {
	key := s.flowKey(requestCode)
	var entity FlowEntity
	_, err := s.client.RunInTransaction(ctx, func(tx *datastore.Transaction) error {
		if err := tx.Get(key, &entity); err != nil {
			if errors.Is(err, datastore.ErrNoSuchEntity) {
				return reachfive.ErrMissingFlowState
			}
			return err
		}
		return tx.Delete(key)
	}, datastore.MaxAttempts(maxTxAttempts))
	if err != nil {
		return nil, err
	}
	return entity.ToFlow()
}

func (s *DatastoreStore) DeleteFlow(ctx context.Context, requestCode int) error {
	if err := s.client.Delete(ctx, s.flowKey(requestCode)); err != nil {
		return fmt.Errorf("failed to delete flow: %w", err)
	}
	return nil
}
