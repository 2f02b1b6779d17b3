package postgresengine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/AntonStoeckl/fakersql-go/fakersql"
)

const (
	logMsgBeginTxFailed          = "failed to begin transaction"
	logMsgCommitFailed           = "failed to commit transaction"
	logMsgRollbackFailed         = "failed to roll back transaction"
	logMsgUnitOfWorkFailed       = "unit of work failed"
	logMsgUnitOfWorkPanicked     = "unit of work panicked"
	logMsgReleaseAfterUnitFailed = "failed to release connection after unit of work"
)

// TxMode selects how a successful unit of work ends its transaction.
type TxMode int

const (
	// ReadOnly ends the transaction with a rollback, also when the body succeeds.
	ReadOnly TxMode = iota

	// CommitOnSuccess commits the transaction when the body succeeds.
	CommitOnSuccess
)

func (m TxMode) String() string {
	switch m {
	case ReadOnly:
		return "read_only"
	case CommitOnSuccess:
		return "commit_on_success"
	default:
		return fmt.Sprintf("tx_mode(%d)", int(m))
	}
}

// UnitOfWorkFunc is the body of a unit of work. The connection has an open transaction
// and must not be released by the body.
type UnitOfWorkFunc func(ctx context.Context, conn *Conn) error

// Run executes body as one unit of work: acquire, begin, body, commit or rollback, release.
//
// If body returns an error or panics, the transaction is rolled back before the connection
// is returned and the error is returned, or the panic re-raised. On success the transaction
// is committed in CommitOnSuccess mode and rolled back in ReadOnly mode.
// The connection is handed back exactly once on every path. It is discarded instead when
// it broke or when the rollback failed.
func (p *Pool) Run(ctx context.Context, mode TxMode, body UnitOfWorkFunc) (err error) {
	start := time.Now()

	ctx, span := p.startSpan(ctx, spanNameUnitOfWork, map[string]string{
		spanAttrOperation: operationUnitOfWork,
		spanAttrTxMode:    mode.String(),
	})

	conn, err := p.Acquire(ctx)
	if err != nil {
		p.finishUnitOfWork(ctx, span, errorTypeAcquire, time.Since(start))
		return err
	}

	discard := false
	errorType := ""

	defer func() {
		if discard || conn.raw.IsClosed() {
			_ = p.Discard(ctx, conn)
		} else if releaseErr := p.Release(conn); releaseErr != nil {
			p.logError(ctx, logMsgReleaseAfterUnitFailed, releaseErr)
			err = errors.Join(err, releaseErr)
		}

		p.finishUnitOfWork(ctx, span, errorType, time.Since(start))
	}()

	tx, err := conn.raw.Begin(ctx)
	if err != nil {
		errorType = errorTypeBeginTx
		p.logError(ctx, logMsgBeginTxFailed, err, logAttrTxMode, mode.String())

		return errors.Join(fakersql.ErrBeginTxFailed, err)
	}
	conn.tx = tx

	defer func() {
		if r := recover(); r != nil {
			errorType = errorTypeBody
			p.logError(ctx, logMsgUnitOfWorkPanicked, fmt.Errorf("%v", r), logAttrTxMode, mode.String())
			if rollbackErr := p.rollback(ctx, conn); rollbackErr != nil {
				discard = true
			}

			panic(r)
		}
	}()

	if bodyErr := body(ctx, conn); bodyErr != nil {
		errorType = errorTypeBody
		p.logError(ctx, logMsgUnitOfWorkFailed, bodyErr, logAttrTxMode, mode.String())

		if rollbackErr := p.rollback(ctx, conn); rollbackErr != nil {
			discard = true
			return errors.Join(bodyErr, rollbackErr)
		}

		return bodyErr
	}

	if mode == CommitOnSuccess {
		commitErr := conn.tx.Commit(ctx)
		conn.tx = nil

		if commitErr != nil {
			errorType = errorTypeCommit
			p.logError(ctx, logMsgCommitFailed, commitErr)

			return errors.Join(fakersql.ErrCommitFailed, commitErr)
		}

		return nil
	}

	// A failed rollback after a successful read does not invalidate the rows that were read.
	if rollbackErr := p.rollback(ctx, conn); rollbackErr != nil {
		discard = true
	}

	return nil
}

// rollback ends the connection's transaction. It also runs when ctx is already canceled.
func (p *Pool) rollback(ctx context.Context, conn *Conn) error {
	tx := conn.tx
	conn.tx = nil

	if tx == nil {
		return nil
	}

	if err := tx.Rollback(context.WithoutCancel(ctx)); err != nil {
		p.logWarning(ctx, logMsgRollbackFailed, err)
		return errors.Join(fakersql.ErrRollbackFailed, err)
	}

	return nil
}

func (p *Pool) finishUnitOfWork(ctx context.Context, span fakersql.SpanContext, errorType string, duration time.Duration) {
	status := statusSuccess
	if errorType != "" {
		status = statusError
	}

	p.recordDuration(ctx, metricUnitOfWorkDuration, duration, map[string]string{
		spanAttrOperation: operationUnitOfWork,
		labelStatus:       status,
	})

	if errorType != "" {
		p.finishSpanError(span, errorType, duration)
		return
	}

	p.finishSpanSuccess(span, duration, nil)
}
