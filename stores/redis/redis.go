// Package redis provides a Redis-backed reachfive.Store.
//
// Records never expire unless the host sets an expiry with WithTTL.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	reachfive "github.com/ReachFive/identity-android-sdk-sub000"
)

// Verify interface compliance
var _ reachfive.Store = (*RedisStore)(nil)

// RedisStore implements reachfive.Store on Redis.
// Keys are <prefix>:pkce:<flowKey> and <prefix>:flow:<requestCode>.
type RedisStore struct {
	client redis.UniversalClient
	prefix string
	ttl    time.Duration
}

// Option configures a RedisStore
type Option func(*RedisStore)

// WithPrefix namespaces every key
func WithPrefix(prefix string) Option {
	return func(s *RedisStore) {
		s.prefix = prefix
	}
}

// WithTTL sets the expiry of every record. Zero, the default, keeps
// records until they are taken or discarded.
func WithTTL(ttl time.Duration) Option {
	return func(s *RedisStore) {
		s.ttl = ttl
	}
}

// NewRedisStore creates a store on client
func NewRedisStore(client redis.UniversalClient, opts ...Option) *RedisStore {
	s := &RedisStore{
		client: client,
		prefix: "reachfive",
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *RedisStore) pkceKey(flowKey string) string {
	return s.prefix + ":pkce:" + flowKey
}

func (s *RedisStore) flowKey(requestCode int) string {
	return s.prefix + ":flow:" + strconv.Itoa(requestCode)
}

func (s *RedisStore) PersistPkce(ctx context.Context, flowKey string, p *reachfive.PkceChallenge) error {
	data, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("failed to marshal pkce: %w", err)
	}
	if err := s.client.Set(ctx, s.pkceKey(flowKey), data, s.ttl).Err(); err != nil {
		return fmt.Errorf("failed to save pkce: %w", err)
	}
	return nil
}

func (s *RedisStore) RetrievePkce(ctx context.Context, flowKey string) (*reachfive.PkceChallenge, error) {
	data, err := s.client.Get(ctx, s.pkceKey(flowKey)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, reachfive.ErrMissingFlowState
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get pkce: %w", err)
	}

	var p reachfive.PkceChallenge
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("failed to unmarshal pkce: %w", err)
	}
	return &p, nil
}

func (s *RedisStore) DiscardPkce(ctx context.Context, flowKey string) error {
	if err := s.client.Del(ctx, s.pkceKey(flowKey)).Err(); err != nil {
		return fmt.Errorf("failed to delete pkce: %w", err)
	}
	return nil
}

// SaveFlow uses SETNX so only one flow per request code can be outstanding
func (s *RedisStore) SaveFlow(ctx context.Context, flow *reachfive.PendingFlow) error {
	data, err := json.Marshal(flow)
	if err != nil {
		return fmt.Errorf("failed to marshal flow: %w", err)
	}
	ok, err := s.client.SetNX(ctx, s.flowKey(flow.RequestCode), data, s.ttl).Result()
	if err != nil {
		return fmt.Errorf("failed to save flow: %w", err)
	}
	if !ok {
		return reachfive.ErrFlowInProgress
	}
	return nil
}

// TakeFlow uses GETDEL so concurrent resumes cannot both win
func (s *RedisStore) TakeFlow(ctx context.Context, requestCode int) (*reachfive.PendingFlow, error) {
	data, err := s.client.GetDel(ctx, s.flowKey(requestCode)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, reachfive.ErrMissingFlowState
	}
	if err != nil {
		return nil, fmt.Errorf("failed to take flow: %w", err)
	}

	var flow reachfive.PendingFlow
	if err := json.Unmarshal(data, &flow); err != nil {
		return nil, fmt.Errorf("failed to unmarshal flow: %w", err)
	}
	return &flow, nil
}

func (s *RedisStore) DeleteFlow(ctx context.Context, requestCode int) error {
	if err := s.client.Del(ctx, s.flowKey(requestCode)).Err(); err != nil {
		return fmt.Errorf("failed to delete flow: %w", err)
	}
	return nil
}
