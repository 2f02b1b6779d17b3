package adapters

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"sync/atomic"
)

// ensureMaxOpenConns raises the database/sql open-connection limit to at least n. Zero means unlimited.
func ensureMaxOpenConns(db *sql.DB, n int) {
	if limit := db.Stats().MaxOpenConnections; limit != 0 && limit < n {
		db.SetMaxOpenConns(n)
	}
}

// connHealth tracks whether a database/sql connection returned a connection-level error.
type connHealth struct {
	broken atomic.Bool
}

func (h *connHealth) observe(err error) error {
	if errors.Is(err, driver.ErrBadConn) || errors.Is(err, sql.ErrConnDone) {
		h.broken.Store(true)
	}

	return err
}

func (h *connHealth) IsClosed() bool {
	return h.broken.Load()
}

// discardSQLConn makes database/sql close the driver connection instead of pooling it.
func discardSQLConn(conn *sql.Conn) error {
	err := conn.Raw(func(any) error {
		return driver.ErrBadConn
	})
	if errors.Is(err, driver.ErrBadConn) {
		return nil
	}

	return err
}

// stdRows wraps standard library sql.Rows to implement DBRows interface.
type stdRows struct {
	rows   *sql.Rows
	health *connHealth
}

func (s *stdRows) Columns() ([]string, error) {
	return s.rows.Columns()
}

func (s *stdRows) Next() bool {
	return s.rows.Next()
}

func (s *stdRows) Values() ([]any, error) {
	columns, err := s.rows.Columns()
	if err != nil {
		return nil, err
	}

	values := make([]any, len(columns))
	dest := make([]any, len(columns))
	for i := range values {
		dest[i] = &values[i]
	}

	if err := s.rows.Scan(dest...); err != nil {
		return nil, err
	}

	return values, nil
}

func (s *stdRows) Err() error {
	return s.health.observe(s.rows.Err())
}

func (s *stdRows) Close() error {
	return s.rows.Close()
}

// stdTx wraps sql.Tx to implement DBTx interface.
type stdTx struct {
	tx     *sql.Tx
	health *connHealth
}

func (t *stdTx) Query(ctx context.Context, query string, args ...any) (DBRows, error) {
	rows, err := t.tx.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, t.health.observe(err)
	}

	return &stdRows{rows: rows, health: t.health}, nil
}

func (t *stdTx) Commit(_ context.Context) error {
	return t.health.observe(t.tx.Commit())
}

func (t *stdTx) Rollback(_ context.Context) error {
	return t.health.observe(ignoreTxDone(t.tx.Rollback()))
}

// ignoreTxDone treats a transaction that database/sql already ended (e.g. on context cancellation)
// as rolled back.
func ignoreTxDone(err error) error {
	if errors.Is(err, sql.ErrTxDone) {
		return nil
	}

	return err
}
