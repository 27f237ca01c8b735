package reachfive

import (
	"context"
	"log/slog"
)

// ContextHandler adds the flow attributes stored in the context to every record
type ContextHandler struct {
	slog.Handler
}

// NewContextHandler wraps h
func NewContextHandler(h slog.Handler) *ContextHandler {
	return &ContextHandler{Handler: h}
}

func (h *ContextHandler) Handle(ctx context.Context, r slog.Record) error {
	if attrs, ok := ctx.Value(logAttrsKey{}).([]slog.Attr); ok {
		r.AddAttrs(slog.Group("flow", attrsToAny(attrs)...))
	}
	return h.Handler.Handle(ctx, r)
}

func (h *ContextHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &ContextHandler{Handler: h.Handler.WithAttrs(attrs)}
}

func (h *ContextHandler) WithGroup(name string) slog.Handler {
	return &ContextHandler{Handler: h.Handler.WithGroup(name)}
}

type logAttrsKey struct{}

// WithLogAttrs returns a context whose records carry attrs in the "flow" group
func WithLogAttrs(ctx context.Context, attrs ...slog.Attr) context.Context {
	existing, _ := ctx.Value(logAttrsKey{}).([]slog.Attr)
	merged := make([]slog.Attr, 0, len(existing)+len(attrs))
	merged = append(merged, existing...)
	merged = append(merged, attrs...)
	return context.WithValue(ctx, logAttrsKey{}, merged)
}

// WithFlow tags ctx with the identity of flow
func WithFlow(ctx context.Context, flow *PendingFlow) context.Context {
	return WithLogAttrs(ctx,
		slog.String("id", flow.ID),
		slog.Int("request_code", flow.RequestCode),
		slog.String("kind", flow.Kind.String()),
	)
}

func attrsToAny(attrs []slog.Attr) []any {
	out := make([]any, len(attrs))
	for i, a := range attrs {
		out[i] = a
	}
	return out
}
