package reachfive

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
)

// Request codes reserved by the SDK itself
const (
	RequestCodeWebLogin               = 52557
	RequestCodeWebAuthnSignup         = 31001
	RequestCodeWebAuthnLogin          = 31002
	RequestCodeWebAuthnRegisterDevice = 31003
)

// Owners of the structural request codes
const (
	OwnerWebAuthn = "webauthn"
	OwnerWeb      = "web"
)

// structuralCodes is ordered: WebAuthn codes are matched before the web redirect
var structuralCodes = []struct {
	code  int
	owner string
}{
	{RequestCodeWebAuthnSignup, OwnerWebAuthn},
	{RequestCodeWebAuthnLogin, OwnerWebAuthn},
	{RequestCodeWebAuthnRegisterDevice, OwnerWebAuthn},
	{RequestCodeWebLogin, OwnerWeb},
}

// IsStructuralCode reports whether code is reserved by the SDK
func IsStructuralCode(code int) bool {
	_, ok := structuralOwner(code)
	return ok
}

func structuralOwner(code int) (string, bool) {
	for _, s := range structuralCodes {
		if s.code == code {
			return s.owner, true
		}
	}
	return "", false
}

// Correlator routes an asynchronous external result back to the flow that started it.
// Codes are claimed up front so conflicts surface at registration, never at dispatch.
type Correlator struct {
	mu     sync.RWMutex
	flows  FlowStore
	claims map[int]string
	logger *slog.Logger
}

// NewCorrelator creates a correlator persisting flows in flows
func NewCorrelator(flows FlowStore, logger *slog.Logger) *Correlator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Correlator{
		flows:  flows,
		claims: make(map[int]string),
		logger: logger,
	}
}

// Claim reserves code for owner. Claiming a structural code, a code another
// owner holds, or claiming under a structural owner name fails with
// ErrDuplicateRequestCode.
func (c *Correlator) Claim(code int, owner string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := checkClaim(c.claims, code, owner); err != nil {
		return err
	}
	c.claims[code] = owner
	return nil
}

// ClaimAll replaces every provider claim with the codes of providers.
// Either all claims are taken or none are.
func (c *Correlator) ClaimAll(providers []Provider) error {
	next := make(map[int]string, len(providers))
	for _, p := range providers {
		owner := ClaimOwner(p)
		if err := checkClaim(next, p.RequestCode(), owner); err != nil {
			return err
		}
		next[p.RequestCode()] = owner
	}

	c.mu.Lock()
	c.claims = next
	c.mu.Unlock()
	return nil
}

func checkClaim(claims map[int]string, code int, owner string) error {
	if s, ok := structuralOwner(code); ok {
		return fmt.Errorf("%w: %d is reserved for %s, requested by %s", ErrDuplicateRequestCode, code, s, owner)
	}
	if owner == OwnerWeb || owner == OwnerWebAuthn {
		return fmt.Errorf("%w: owner name %q is reserved, requested for %d", ErrDuplicateRequestCode, owner, code)
	}
	if existing, ok := claims[code]; ok && existing != owner {
		return fmt.Errorf("%w: %d is claimed by %s and %s", ErrDuplicateRequestCode, code, existing, owner)
	}
	return nil
}

// Owner reports who claims code. Structural codes are checked first.
func (c *Correlator) Owner(code int) (string, bool) {
	if owner, ok := structuralOwner(code); ok {
		return owner, true
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	owner, ok := c.claims[code]
	return owner, ok
}

// ClaimedCodes lists the provider claimed codes in ascending order
func (c *Correlator) ClaimedCodes() []int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	codes := make([]int, 0, len(c.claims))
	for code := range c.claims {
		codes = append(codes, code)
	}
	sort.Ints(codes)
	return codes
}

// Register persists flow under its request code
func (c *Correlator) Register(ctx context.Context, flow *PendingFlow) error {
	if _, ok := c.Owner(flow.RequestCode); !ok {
		return fmt.Errorf("%w: %d", ErrUnmatched, flow.RequestCode)
	}
	if err := c.flows.SaveFlow(ctx, flow); err != nil {
		return err
	}
	c.logger.DebugContext(ctx, "flow registered",
		"request_code", flow.RequestCode, "flow_id", flow.ID, "kind", flow.Kind.String())
	return nil
}

// Resolve takes the pending flow for code. The record is single use: a second
// resolve fails with ErrMissingFlowState.
func (c *Correlator) Resolve(ctx context.Context, code int) (*PendingFlow, error) {
	if _, ok := c.Owner(code); !ok {
		return nil, fmt.Errorf("%w: %d", ErrUnmatched, code)
	}
	flow, err := c.flows.TakeFlow(ctx, code)
	if err != nil {
		c.logger.WarnContext(ctx, "no pending flow for result", "request_code", code, "error", err)
		return nil, err
	}
	c.logger.DebugContext(ctx, "flow resolved",
		"request_code", code, "flow_id", flow.ID, "kind", flow.Kind.String())
	return flow, nil
}

// Discard drops any pending flow for code. Used to roll back a flow that
// never reached the external agent.
func (c *Correlator) Discard(ctx context.Context, code int) error {
	return c.flows.DeleteFlow(ctx, code)
}
