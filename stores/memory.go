// Package stores provides persistence for suspended flows.
//
// MemoryStore keeps everything in process and is meant for tests and for hosts
// that never lose their process while a flow is suspended. Durable backends
// live in the fs, redis and gorm subpackages.
package stores

import (
	"context"
	"sync"
	"time"

	reachfive "github.com/ReachFive/identity-android-sdk-sub000"
)

// MemoryStore is an in-memory reachfive.Store
type MemoryStore struct {
	mu    sync.Mutex
	pkce  map[string]reachfive.PkceChallenge
	flows map[int]reachfive.PendingFlow
	ttl   time.Duration
	now   func() time.Time
}

// MemoryOption configures a MemoryStore
type MemoryOption func(*MemoryStore)

// WithFlowTTL makes flows older than ttl count as missing
func WithFlowTTL(ttl time.Duration) MemoryOption {
	return func(s *MemoryStore) {
		s.ttl = ttl
	}
}

// WithClock overrides the time source used for TTL checks
func WithClock(now func() time.Time) MemoryOption {
	return func(s *MemoryStore) {
		s.now = now
	}
}

// NewMemoryStore creates an empty store
func NewMemoryStore(opts ...MemoryOption) *MemoryStore {
	s := &MemoryStore{
		pkce:  make(map[string]reachfive.PkceChallenge),
		flows: make(map[int]reachfive.PendingFlow),
		now:   time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *MemoryStore) PersistPkce(ctx context.Context, flowKey string, p *reachfive.PkceChallenge) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pkce[flowKey] = *p
	return nil
}

func (s *MemoryStore) RetrievePkce(ctx context.Context, flowKey string) (*reachfive.PkceChallenge, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.pkce[flowKey]
	if !ok {
		return nil, reachfive.ErrMissingFlowState
	}
	return &p, nil
}

func (s *MemoryStore) DiscardPkce(ctx context.Context, flowKey string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.pkce, flowKey)
	return nil
}

func (s *MemoryStore) SaveFlow(ctx context.Context, flow *reachfive.PendingFlow) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if existing, ok := s.flows[flow.RequestCode]; ok && !s.expired(existing) {
		return reachfive.ErrFlowInProgress
	}
	s.flows[flow.RequestCode] = cloneFlow(flow)
	return nil
}

func (s *MemoryStore) TakeFlow(ctx context.Context, requestCode int) (*reachfive.PendingFlow, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	flow, ok := s.flows[requestCode]
	if !ok {
		return nil, reachfive.ErrMissingFlowState
	}
	delete(s.flows, requestCode)
	if s.expired(flow) {
		return nil, reachfive.ErrMissingFlowState
	}
	return &flow, nil
}

func (s *MemoryStore) DeleteFlow(ctx context.Context, requestCode int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.flows, requestCode)
	return nil
}

func (s *MemoryStore) expired(flow reachfive.PendingFlow) bool {
	return s.ttl > 0 && s.now().Sub(flow.CreatedAt) > s.ttl
}

// cloneFlow copies the mutable parts so callers cannot alter stored state
func cloneFlow(flow *reachfive.PendingFlow) reachfive.PendingFlow {
	c := *flow
	if flow.Scope != nil {
		c.Scope = append(reachfive.ScopeSet(nil), flow.Scope...)
	}
	if flow.Extra != nil {
		c.Extra = make(map[string]string, len(flow.Extra))
		for k, v := range flow.Extra {
			c.Extra[k] = v
		}
	}
	return c
}
