package reachfive

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// FlowKind identifies the modality a suspended flow belongs to
type FlowKind int

const (
	FlowWebRedirect FlowKind = iota + 1
	FlowSocialProvider
	FlowWebAuthnLogin
	FlowWebAuthnSignup
	FlowDeviceRegistration
	FlowPasswordless
)

var flowKindNames = map[FlowKind]string{
	FlowWebRedirect:        "web_redirect",
	FlowSocialProvider:     "social_provider",
	FlowWebAuthnLogin:      "webauthn_login",
	FlowWebAuthnSignup:     "webauthn_signup",
	FlowDeviceRegistration: "device_registration",
	FlowPasswordless:       "passwordless",
}

func (k FlowKind) String() string {
	if name, ok := flowKindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("flow_kind(%d)", int(k))
}

// MarshalText encodes the kind by name so persisted flows stay readable
func (k FlowKind) MarshalText() ([]byte, error) {
	if _, ok := flowKindNames[k]; !ok {
		return nil, fmt.Errorf("unknown flow kind %d", int(k))
	}
	return []byte(k.String()), nil
}

// UnmarshalText decodes a kind written by MarshalText
func (k *FlowKind) UnmarshalText(text []byte) error {
	for kind, name := range flowKindNames {
		if name == string(text) {
			*k = kind
			return nil
		}
	}
	return fmt.Errorf("unknown flow kind %q", text)
}

// Keys used in PendingFlow.Extra
const (
	ExtraWebAuthnID   = "webauthn_id"
	ExtraAuthHeader   = "authorization"
	ExtraFriendlyName = "friendly_name"
	ExtraOrigin       = "origin"
)

// PendingFlow is the durable record of a flow suspended on an external agent.
// It is created before control leaves the process and taken exactly once on resume.
type PendingFlow struct {
	ID          string            `json:"id"`
	RequestCode int               `json:"request_code"`
	Kind        FlowKind          `json:"kind"`
	Scope       ScopeSet          `json:"scope,omitempty"`
	Origin      string            `json:"origin,omitempty"`
	State       string            `json:"state,omitempty"`
	Nonce       string            `json:"nonce,omitempty"`
	Provider    string            `json:"provider,omitempty"`
	Extra       map[string]string `json:"extra,omitempty"`
	CreatedAt   time.Time         `json:"created_at"`
}

// NewPendingFlow creates a flow record with a fresh ID
func NewPendingFlow(kind FlowKind, requestCode int, scope ScopeSet) *PendingFlow {
	return &PendingFlow{
		ID:          uuid.NewString(),
		RequestCode: requestCode,
		Kind:        kind,
		Scope:       scope,
		CreatedAt:   time.Now(),
	}
}

// PkceKey is the flow key under which this flow's verifier is persisted
func (f *PendingFlow) PkceKey() string {
	return FlowKey(f.Kind, f.RequestCode)
}

// WithExtra sets a ceremony value that must survive suspension
func (f *PendingFlow) WithExtra(key, value string) *PendingFlow {
	if f.Extra == nil {
		f.Extra = make(map[string]string)
	}
	f.Extra[key] = value
	return f
}

// FlowKey builds the PKCE flow key for a kind and request code
func FlowKey(kind FlowKind, requestCode int) string {
	return fmt.Sprintf("%s:%d", kind, requestCode)
}

// FlowStore persists PendingFlow records keyed by request code.
type FlowStore interface {
	// SaveFlow returns ErrFlowInProgress if a flow is already stored for the code.
	SaveFlow(ctx context.Context, flow *PendingFlow) error

	// TakeFlow atomically loads and removes the flow for requestCode.
	// Returns ErrMissingFlowState if none is stored.
	TakeFlow(ctx context.Context, requestCode int) (*PendingFlow, error)

	// DeleteFlow is a no-op when nothing is stored.
	DeleteFlow(ctx context.Context, requestCode int) error
}

// Store is everything a flow needs to survive suspension
type Store interface {
	PkceStore
	FlowStore
}

// NewState returns a random opaque value usable as OAuth state or nonce
func NewState() string {
	return uuid.NewString()
}
