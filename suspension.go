package reachfive

import (
	"context"
	"errors"
	"log/slog"
)

// Suspension ties the correlator and the PKCE engine together for flows that
// hand control to an external agent and resume from persisted state.
type Suspension struct {
	Correlator *Correlator
	Pkce       *PkceEngine
	logger     *slog.Logger
}

// NewSuspension creates a Suspension whose flows and verifiers live in store
func NewSuspension(store Store, logger *slog.Logger) *Suspension {
	if logger == nil {
		logger = slog.Default()
	}
	return &Suspension{
		Correlator: NewCorrelator(store, logger),
		Pkce:       NewPkceEngine(store, logger),
		logger:     logger,
	}
}

// LaunchFunc hands control to the external agent. p is nil for flows without PKCE.
type LaunchFunc func(ctx context.Context, p *PkceChallenge) error

// Begin registers flow, persists a fresh verifier for redirectURI when it is not
// empty, then calls launch. When any step fails everything persisted so far is
// removed, so a flow is only ever awaited after launch returned nil.
func (s *Suspension) Begin(ctx context.Context, flow *PendingFlow, redirectURI string, launch LaunchFunc) error {
	ctx = WithFlow(ctx, flow)
	if err := s.Correlator.Register(ctx, flow); err != nil {
		return err
	}

	var pkce *PkceChallenge
	if redirectURI != "" {
		p, err := s.Pkce.Start(ctx, flow.PkceKey(), redirectURI)
		if err != nil {
			return errors.Join(err, s.rollback(ctx, flow))
		}
		pkce = p
	}

	if err := launch(ctx, pkce); err != nil {
		s.logger.WarnContext(ctx, "external agent launch failed", "error", err)
		return errors.Join(err, s.rollback(ctx, flow))
	}
	s.logger.InfoContext(ctx, "awaiting external result")
	return nil
}

// Resume takes the pending flow for requestCode
func (s *Suspension) Resume(ctx context.Context, requestCode int) (*PendingFlow, error) {
	return s.Correlator.Resolve(ctx, requestCode)
}

// Verifier consumes the PKCE record of flow
func (s *Suspension) Verifier(ctx context.Context, flow *PendingFlow) (*PkceChallenge, error) {
	return s.Pkce.Consume(ctx, flow.PkceKey())
}

// Finish drops the PKCE record of a resumed flow. Flows that never reached
// Verifier, because the agent reported a cancel or an error, still leave no trace.
func (s *Suspension) Finish(ctx context.Context, flow *PendingFlow) {
	if err := s.Pkce.Discard(ctx, flow.PkceKey()); err != nil {
		s.logger.WarnContext(ctx, "failed to discard pkce", "flow_key", flow.PkceKey(), "error", err)
	}
}

func (s *Suspension) rollback(ctx context.Context, flow *PendingFlow) error {
	return errors.Join(
		s.Pkce.Discard(ctx, flow.PkceKey()),
		s.Correlator.Discard(ctx, flow.RequestCode),
	)
}
