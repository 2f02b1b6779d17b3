package postgresengine

import (
	"github.com/AntonStoeckl/fakersql-go/fakersql"
)

// Option defines a functional option for configuring the Pool, the Invoker, and the FakerService.
type Option func(*observability) error

// WithLogger sets the logger.
// The logger will receive messages at different levels based on the logger's configured level:
//
// Debug level: SQL queries with execution timing (development use)
// Info level: pool lifecycle, procedure calls with row counts and durations (production-safe)
// Warn level: non-critical issues like rollback or cleanup failures
// Error level: failures that fail a unit of work.
func WithLogger(logger fakersql.Logger) Option {
	return func(o *observability) error {
		o.logger = logger
		return nil
	}
}

// WithContextualLogger sets the contextual logger.
// It takes precedence over the plain Logger and receives trace/span correlation from the context.
func WithContextualLogger(logger fakersql.ContextualLogger) Option {
	return func(o *observability) error {
		o.contextualLogger = logger
		return nil
	}
}

// WithMetrics sets the metrics collector.
// It receives acquire wait times, pool exhaustion and cancellation counts,
// unit of work and procedure call durations, and returned row counts.
func WithMetrics(collector fakersql.MetricsCollector) Option {
	return func(o *observability) error {
		o.metricsCollector = collector
		return nil
	}
}

// WithTracing sets the tracing collector.
// Spans are created for units of work and for procedure calls.
func WithTracing(collector fakersql.TracingCollector) Option {
	return func(o *observability) error {
		o.tracingCollector = collector
		return nil
	}
}
