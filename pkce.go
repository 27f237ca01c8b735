package reachfive

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"log/slog"
)

// PkceMethod is the only code_challenge_method this SDK emits
const PkceMethod = "S256"

const verifierBytes = 32

// PkceChallenge is the persisted half of a PKCE pair. The challenge is always
// derived from the verifier, so only the verifier and the redirect target are stored.
type PkceChallenge struct {
	CodeVerifier string `json:"code_verifier"`
	RedirectURI  string `json:"redirect_uri"`
}

// CodeChallenge is base64url(SHA-256(verifier)) without padding
func (p *PkceChallenge) CodeChallenge() string {
	return ChallengeFor(p.CodeVerifier)
}

// Method returns the code_challenge_method
func (p *PkceChallenge) Method() string {
	return PkceMethod
}

// GeneratePkce creates a fresh verifier bound to redirectURI.
// Verifiers are never reused across flow attempts.
func GeneratePkce(redirectURI string) (*PkceChallenge, error) {
	b := make([]byte, verifierBytes)
	if _, err := rand.Read(b); err != nil {
		return nil, fmt.Errorf("failed to generate code verifier: %w", err)
	}
	return &PkceChallenge{
		CodeVerifier: base64.RawURLEncoding.EncodeToString(b),
		RedirectURI:  redirectURI,
	}, nil
}

// ChallengeFor computes the S256 challenge of a verifier
func ChallengeFor(verifier string) string {
	sum := sha256.Sum256([]byte(verifier))
	return base64.RawURLEncoding.EncodeToString(sum[:])
}

// PkceStore persists PKCE records across process suspension.
type PkceStore interface {
	// PersistPkce stores the challenge under flowKey, replacing any previous record.
	PersistPkce(ctx context.Context, flowKey string, p *PkceChallenge) error

	// RetrievePkce returns ErrMissingFlowState when nothing is stored under flowKey.
	RetrievePkce(ctx context.Context, flowKey string) (*PkceChallenge, error)

	// DiscardPkce is a no-op for unknown keys.
	DiscardPkce(ctx context.Context, flowKey string) error
}

// PkceEngine generates verifiers and manages their single-use lifecycle
type PkceEngine struct {
	store  PkceStore
	logger *slog.Logger
}

// NewPkceEngine creates an engine over store
func NewPkceEngine(store PkceStore, logger *slog.Logger) *PkceEngine {
	if logger == nil {
		logger = slog.Default()
	}
	return &PkceEngine{store: store, logger: logger}
}

// Generate creates a new PKCE pair for redirectURI
func (e *PkceEngine) Generate(redirectURI string) (*PkceChallenge, error) {
	return GeneratePkce(redirectURI)
}

// Persist stores p under flowKey
func (e *PkceEngine) Persist(ctx context.Context, flowKey string, p *PkceChallenge) error {
	if err := e.store.PersistPkce(ctx, flowKey, p); err != nil {
		return fmt.Errorf("failed to persist pkce for %s: %w", flowKey, err)
	}
	return nil
}

// Retrieve loads the record for flowKey without consuming it
func (e *PkceEngine) Retrieve(ctx context.Context, flowKey string) (*PkceChallenge, error) {
	return e.store.RetrievePkce(ctx, flowKey)
}

// Discard removes the record for flowKey
func (e *PkceEngine) Discard(ctx context.Context, flowKey string) error {
	return e.store.DiscardPkce(ctx, flowKey)
}

// Start generates a pair for redirectURI and persists it under flowKey.
func (e *PkceEngine) Start(ctx context.Context, flowKey, redirectURI string) (*PkceChallenge, error) {
	p, err := e.Generate(redirectURI)
	if err != nil {
		return nil, err
	}
	if err := e.Persist(ctx, flowKey, p); err != nil {
		return nil, err
	}
	return p, nil
}

// Consume retrieves the record for flowKey and discards it whatever happens next.
// The verifier can therefore be presented to the token endpoint at most once.
func (e *PkceEngine) Consume(ctx context.Context, flowKey string) (*PkceChallenge, error) {
	p, err := e.store.RetrievePkce(ctx, flowKey)
	if derr := e.store.DiscardPkce(ctx, flowKey); derr != nil {
		e.logger.WarnContext(ctx, "failed to discard pkce", "flow_key", flowKey, "error", derr)
	}
	if err != nil {
		return nil, err
	}
	return p, nil
}
