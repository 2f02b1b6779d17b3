package observability

import (
	"context"
	"log/slog"

	"go.opentelemetry.io/otel/trace"
)

const (
	logAttrTraceID = "trace_id"
	logAttrSpanID  = "span_id"
)

// TraceContextHandler adds trace_id and span_id to records logged with a context
// that carries a valid span.
type TraceContextHandler struct {
	next slog.Handler
}

// NewTraceContextHandler wraps next.
func NewTraceContextHandler(next slog.Handler) *TraceContextHandler {
	return &TraceContextHandler{next: next}
}

func (h *TraceContextHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.next.Enabled(ctx, level)
}

func (h *TraceContextHandler) Handle(ctx context.Context, record slog.Record) error {
	if spanContext := trace.SpanContextFromContext(ctx); spanContext.IsValid() {
		record = record.Clone()
		record.AddAttrs(
			slog.String(logAttrTraceID, spanContext.TraceID().String()),
			slog.String(logAttrSpanID, spanContext.SpanID().String()),
		)
	}

	return h.next.Handle(ctx, record)
}

func (h *TraceContextHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &TraceContextHandler{next: h.next.WithAttrs(attrs)}
}

func (h *TraceContextHandler) WithGroup(name string) slog.Handler {
	return &TraceContextHandler{next: h.next.WithGroup(name)}
}
