package client

import (
	"context"
	"fmt"

	reachfive "github.com/ReachFive/identity-android-sdk-sub000"
)

// FlowState is the stage a login flow has reached
type FlowState int

const (
	StateIdle FlowState = iota
	StateAwaitingExternalResult
	StateResolving
	StateCompleted
	StateFailed
)

func (s FlowState) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateAwaitingExternalResult:
		return "awaiting_external_result"
	case StateResolving:
		return "resolving"
	case StateCompleted:
		return "completed"
	case StateFailed:
		return "failed"
	}
	return fmt.Sprintf("flow_state(%d)", int(s))
}

// FlowEvent is one state transition
type FlowEvent struct {
	State FlowState
	// Modality names the provider or flow family: "password", "web", "webauthn", ...
	Modality    string
	RequestCode int
	Err         error
}

// FlowObserver is notified of every flow transition. It is called
// synchronously on the goroutine driving the flow.
type FlowObserver interface {
	OnFlowState(ctx context.Context, ev FlowEvent)
}

// FlowObserverFunc adapts a function to FlowObserver
type FlowObserverFunc func(ctx context.Context, ev FlowEvent)

func (f FlowObserverFunc) OnFlowState(ctx context.Context, ev FlowEvent) { f(ctx, ev) }

func (c *Client) transition(ctx context.Context, ev FlowEvent) {
	attrs := []any{"state", ev.State.String(), "modality", ev.Modality}
	if ev.RequestCode != 0 {
		attrs = append(attrs, "request_code", ev.RequestCode)
	}
	if ev.Err != nil {
		attrs = append(attrs, "error", ev.Err, "error_code", int(reachfive.CodeOf(ev.Err)))
		c.logger.WarnContext(ctx, "flow failed", attrs...)
	} else {
		c.logger.DebugContext(ctx, "flow transition", attrs...)
	}
	if c.observer != nil {
		c.observer.OnFlowState(ctx, ev)
	}
}

// finish reports the terminal state of a flow and passes its result through
func finish[T any](ctx context.Context, c *Client, modality string, code int, v T, err error) (T, error) {
	ev := FlowEvent{State: StateCompleted, Modality: modality, RequestCode: code}
	if err != nil {
		ev.State, ev.Err = StateFailed, err
	}
	c.transition(ctx, ev)
	return v, err
}

// suspended reports a flow handed to an external agent, or its failure to get there
func (c *Client) suspended(ctx context.Context, modality string, code int, err error) error {
	ev := FlowEvent{State: StateAwaitingExternalResult, Modality: modality, RequestCode: code}
	if err != nil {
		ev.State, ev.Err = StateFailed, err
	}
	c.transition(ctx, ev)
	return err
}
