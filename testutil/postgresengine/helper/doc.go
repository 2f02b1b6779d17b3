// Package helper provides test doubles for the fakersql observability interfaces.
//
// LogHandlerSpy captures slog records, ContextualLoggerSpy captures context-aware log calls,
// MetricsCollectorSpy captures metric calls, and TracingCollectorSpy captures spans, so tests
// can assert on what the pool, the units of work and the invoker reported.
package helper
