package postgresengine

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/AntonStoeckl/fakersql-go/fakersql"
)

const (
	metricAcquireDuration       = "fakersql_pool_acquire_duration_seconds"
	metricPoolExhausted         = "fakersql_pool_exhausted_total"
	metricAcquireCanceled       = "fakersql_pool_acquire_canceled_total"
	metricConnectionsDiscarded  = "fakersql_pool_connections_discarded_total"
	metricUnitOfWorkDuration    = "fakersql_unit_of_work_duration_seconds"
	metricProcedureCallDuration = "fakersql_procedure_call_duration_seconds"
	metricProcedureRows         = "fakersql_procedure_rows_returned"
	metricProcedureErrors       = "fakersql_procedure_errors_total"

	spanNameUnitOfWork    = "fakersql.unit_of_work"
	spanNameProcedureCall = "fakersql.procedure_call"

	spanAttrOperation  = "operation"
	spanAttrProcedure  = "procedure"
	spanAttrTxMode     = "tx_mode"
	spanAttrRowCount   = "row_count"
	spanAttrDurationMS = "duration_ms"
	spanAttrErrorType  = "error_type"

	labelStatus = "status"

	statusSuccess = "success"
	statusError   = "error"

	operationAcquire    = "acquire"
	operationUnitOfWork = "unit_of_work"
	operationCall       = "call"

	errorTypeBuildQuery = "build_query"
	errorTypeQuery      = "query"
	errorTypeScan       = "scan"
	errorTypeBeginTx    = "begin_tx"
	errorTypeCommit     = "commit"
	errorTypeRollback   = "rollback"
	errorTypeBody       = "body"
	errorTypeAcquire    = "acquire"
)

// observability bundles the optional logging, metrics and tracing collaborators.
// All methods are no-ops for collaborators that are not configured.
type observability struct {
	logger           fakersql.Logger
	contextualLogger fakersql.ContextualLogger
	metricsCollector fakersql.MetricsCollector
	tracingCollector fakersql.TracingCollector
}

// logQueryWithDuration logs SQL queries with execution time at debug level.
func (o *observability) logQueryWithDuration(ctx context.Context, sqlQuery, action string, duration time.Duration) {
	args := []any{logAttrDurationMS, toMilliseconds(duration), logAttrQuery, sqlQuery}

	switch {
	case o.contextualLogger != nil:
		o.contextualLogger.DebugContext(ctx, logMsgSQLExecuted+action, args...)
	case o.logger != nil:
		o.logger.Debug(logMsgSQLExecuted+action, args...)
	}
}

// logOperation logs operational information at info level.
func (o *observability) logOperation(ctx context.Context, action string, args ...any) {
	switch {
	case o.contextualLogger != nil:
		o.contextualLogger.InfoContext(ctx, logMsgOperation+action, args...)
	case o.logger != nil:
		o.logger.Info(logMsgOperation+action, args...)
	}
}

// logWarning logs non-critical problems at warn level.
func (o *observability) logWarning(ctx context.Context, message string, err error, args ...any) {
	allArgs := append([]any{logAttrError, err.Error()}, args...)

	switch {
	case o.contextualLogger != nil:
		o.contextualLogger.WarnContext(ctx, message, allArgs...)
	case o.logger != nil:
		o.logger.Warn(message, allArgs...)
	}
}

// logError logs failures at error level.
func (o *observability) logError(ctx context.Context, message string, err error, args ...any) {
	allArgs := append([]any{logAttrError, err.Error()}, args...)

	switch {
	case o.contextualLogger != nil:
		o.contextualLogger.ErrorContext(ctx, message, allArgs...)
	case o.logger != nil:
		o.logger.Error(message, allArgs...)
	}
}

// toMilliseconds converts a time.Duration to float64 milliseconds with 3 decimal places.
func toMilliseconds(d time.Duration) float64 {
	return math.Round(float64(d.Nanoseconds())/1e6*1000) / 1000
}

// recordDuration records a duration, using the context-aware method if available.
func (o *observability) recordDuration(ctx context.Context, metric string, d time.Duration, labels map[string]string) {
	if o.metricsCollector == nil {
		return
	}

	if contextual, ok := o.metricsCollector.(fakersql.ContextualMetricsCollector); ok {
		contextual.RecordDurationContext(ctx, metric, d, labels)
		return
	}

	o.metricsCollector.RecordDuration(metric, d, labels)
}

// incrementCounter increments a counter, using the context-aware method if available.
func (o *observability) incrementCounter(ctx context.Context, metric string, labels map[string]string) {
	if o.metricsCollector == nil {
		return
	}

	if contextual, ok := o.metricsCollector.(fakersql.ContextualMetricsCollector); ok {
		contextual.IncrementCounterContext(ctx, metric, labels)
		return
	}

	o.metricsCollector.IncrementCounter(metric, labels)
}

// recordValue records a value, using the context-aware method if available.
func (o *observability) recordValue(ctx context.Context, metric string, value float64, labels map[string]string) {
	if o.metricsCollector == nil {
		return
	}

	if contextual, ok := o.metricsCollector.(fakersql.ContextualMetricsCollector); ok {
		contextual.RecordValueContext(ctx, metric, value, labels)
		return
	}

	o.metricsCollector.RecordValue(metric, value, labels)
}

// startSpan starts a tracing span if the tracing collector is configured.
func (o *observability) startSpan(
	ctx context.Context,
	name string,
	attrs map[string]string,
) (context.Context, fakersql.SpanContext) {
	if o.tracingCollector != nil {
		return o.tracingCollector.StartSpan(ctx, name, attrs)
	}

	return ctx, nil
}

// finishSpanSuccess finishes a span with the duration and any extra attributes.
func (o *observability) finishSpanSuccess(span fakersql.SpanContext, duration time.Duration, attrs map[string]string) {
	if o.tracingCollector == nil || span == nil {
		return
	}

	span.AddAttribute(spanAttrDurationMS, formatDuration(duration))
	o.tracingCollector.FinishSpan(span, statusSuccess, attrs)
}

// finishSpanError finishes a span with error details.
func (o *observability) finishSpanError(span fakersql.SpanContext, errorType string, duration time.Duration) {
	if o.tracingCollector == nil || span == nil {
		return
	}

	span.AddAttribute(spanAttrErrorType, errorType)
	if duration > 0 {
		span.AddAttribute(spanAttrDurationMS, formatDuration(duration))
	}

	o.tracingCollector.FinishSpan(span, statusError, map[string]string{spanAttrErrorType: errorType})
}

func formatDuration(d time.Duration) string {
	return fmt.Sprintf("%.2f", toMilliseconds(d))
}
