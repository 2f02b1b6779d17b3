package postgresengine

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/doug-martin/goqu/v9"
	_ "github.com/doug-martin/goqu/v9/dialect/postgres" // dialect registration

	"github.com/AntonStoeckl/fakersql-go/fakersql"
	"github.com/AntonStoeckl/fakersql-go/fakersql/postgresengine/internal/adapters"
)

const (
	dialectPostgres = "postgres"

	logMsgBuildCallQueryFailed = "failed to build procedure call query"
	logMsgProcedureCallFailed  = "procedure call failed"
	logMsgCloseRowsFailed      = "failed to close database rows"
	logMsgScanRowFailed        = "failed to scan database row"
	logActionCall              = "call"
)

// Invoker runs procedure calls on checked-out connections.
type Invoker struct {
	observability
}

// NewInvoker creates an Invoker with optional configuration.
func NewInvoker(options ...Option) (*Invoker, error) {
	inv := &Invoker{}

	for _, option := range options {
		if err := option(&inv.observability); err != nil {
			return nil, err
		}
	}

	return inv, nil
}

// Invoker returns an Invoker that shares the pool's logger, metrics and tracing.
func (p *Pool) Invoker() *Invoker {
	return &Invoker{observability: p.observability}
}

// Call runs "SELECT * FROM name($1, ..., $n)" with the call's arguments bound positionally.
//
// It uses the connection's open transaction if there is one. All rows are returned in the
// order the backing store produced them. Backing-store errors are returned joined with
// fakersql.ErrProcedureCallFailed, with the driver's message unchanged.
func (inv *Invoker) Call(ctx context.Context, conn *Conn, call fakersql.ProcedureCall) (fakersql.ResultRows, error) {
	if conn == nil {
		return nil, errors.Join(fakersql.ErrProcedureCallFailed, fakersql.ErrConnectionNotCheckedOut)
	}

	ctx, span := inv.startSpan(ctx, spanNameProcedureCall, map[string]string{
		spanAttrOperation: operationCall,
		spanAttrProcedure: string(call.Name),
	})

	sqlQuery, args, err := buildCallQuery(call)
	if err != nil {
		inv.logError(ctx, logMsgBuildCallQueryFailed, err, logAttrProcedure, string(call.Name))
		inv.recordCallError(ctx, span, call, errorTypeBuildQuery, 0)

		return nil, err
	}

	start := time.Now()

	rows, err := inv.readRows(ctx, conn.querier(), sqlQuery, args)
	duration := time.Since(start)

	inv.logQueryWithDuration(ctx, sqlQuery, logActionCall, duration)

	if err != nil {
		errorType := errorTypeQuery
		if errors.Is(err, fakersql.ErrScanningDBRowFailed) {
			errorType = errorTypeScan
			inv.logError(ctx, logMsgScanRowFailed, err, logAttrProcedure, string(call.Name))
		} else {
			inv.logError(ctx, logMsgProcedureCallFailed, err, logAttrProcedure, string(call.Name))
		}
		inv.recordCallError(ctx, span, call, errorType, duration)

		return nil, errors.Join(fakersql.ErrProcedureCallFailed, err)
	}

	labels := map[string]string{spanAttrProcedure: string(call.Name), labelStatus: statusSuccess}
	inv.recordDuration(ctx, metricProcedureCallDuration, duration, labels)
	inv.recordValue(ctx, metricProcedureRows, float64(len(rows)), labels)
	inv.logOperation(
		ctx,
		logActionCall,
		logAttrProcedure, string(call.Name),
		logAttrRowCount, len(rows),
		logAttrDurationMS, toMilliseconds(duration),
	)
	inv.finishSpanSuccess(span, duration, map[string]string{spanAttrRowCount: strconv.Itoa(len(rows))})

	return rows, nil
}

func (inv *Invoker) recordCallError(
	ctx context.Context,
	span fakersql.SpanContext,
	call fakersql.ProcedureCall,
	errorType string,
	duration time.Duration,
) {
	inv.incrementCounter(ctx, metricProcedureErrors, map[string]string{
		spanAttrProcedure: string(call.Name),
		spanAttrErrorType: errorType,
	})

	if duration > 0 {
		inv.recordDuration(ctx, metricProcedureCallDuration, duration, map[string]string{
			spanAttrProcedure: string(call.Name),
			labelStatus:       statusError,
		})
	}

	inv.finishSpanError(span, errorType, duration)
}

// buildCallQuery builds the prepared statement for a procedure call.
// Only names from the procedure enumeration are accepted.
func buildCallQuery(call fakersql.ProcedureCall) (string, []any, error) {
	if err := call.Check(); err != nil {
		return "", nil, err
	}

	sqlQuery, args, err := goqu.Dialect(dialectPostgres).
		From(goqu.Func(string(call.Name), call.Args...)).
		Prepared(true).
		ToSQL()
	if err != nil {
		return "", nil, errors.Join(fakersql.ErrBuildingQueryFailed, err)
	}

	return sqlQuery, args, nil
}

func (inv *Invoker) readRows(
	ctx context.Context,
	querier adapters.DBQuerier,
	sqlQuery string,
	args []any,
) (fakersql.ResultRows, error) {

	rows, err := querier.Query(ctx, sqlQuery, args...)
	if err != nil {
		return nil, err
	}

	defer func() {
		if closeErr := rows.Close(); closeErr != nil {
			inv.logWarning(ctx, logMsgCloseRowsFailed, closeErr)
		}
	}()

	columns, err := rows.Columns()
	if err != nil {
		return nil, errors.Join(fakersql.ErrScanningDBRowFailed, err)
	}

	result := make(fakersql.ResultRows, 0)

	for rows.Next() {
		values, valuesErr := rows.Values()
		if valuesErr != nil {
			return nil, errors.Join(fakersql.ErrScanningDBRowFailed, valuesErr)
		}

		row, rowErr := fakersql.NewResultRow(columns, values)
		if rowErr != nil {
			return nil, errors.Join(fakersql.ErrScanningDBRowFailed, rowErr)
		}

		result = append(result, row)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return result, nil
}
