package adapters

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PGXAdapter implements DBAdapter for pgxpool.Pool.
type PGXAdapter struct {
	pool *pgxpool.Pool
}

// NewPGXAdapter creates a new PGX adapter.
func NewPGXAdapter(pool *pgxpool.Pool) *PGXAdapter {
	return &PGXAdapter{pool: pool}
}

// Connect acquires a connection from the pgx pool.
func (p *PGXAdapter) Connect(ctx context.Context) (DBConn, error) {
	conn, err := p.pool.Acquire(ctx)
	if err != nil {
		return nil, err
	}

	return &pgxConn{conn: conn}, nil
}

// EnsureCapacity checks MaxConns, which cannot be changed after the pgx pool was created.
func (p *PGXAdapter) EnsureCapacity(n int) error {
	if maxConns := p.pool.Config().MaxConns; int(maxConns) < n {
		return fmt.Errorf("pgx pool MaxConns is %d, need at least %d", maxConns, n)
	}

	return nil
}

// Kind returns the adapter name.
func (p *PGXAdapter) Kind() string {
	return "pgx.pool"
}

type pgxConn struct {
	conn *pgxpool.Conn
}

func (c *pgxConn) Query(ctx context.Context, query string, args ...any) (DBRows, error) {
	rows, err := c.conn.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}

	return &pgxRows{rows: rows}, nil
}

func (c *pgxConn) Begin(ctx context.Context) (DBTx, error) {
	tx, err := c.conn.Begin(ctx)
	if err != nil {
		return nil, err
	}

	return &pgxTx{tx: tx}, nil
}

func (c *pgxConn) IsClosed() bool {
	return c.conn.Conn().IsClosed()
}

// Discard takes the connection out of the pgx pool's ownership before closing it.
func (c *pgxConn) Discard(ctx context.Context) error {
	return c.conn.Hijack().Close(ctx)
}

type pgxTx struct {
	tx pgx.Tx
}

func (t *pgxTx) Query(ctx context.Context, query string, args ...any) (DBRows, error) {
	rows, err := t.tx.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}

	return &pgxRows{rows: rows}, nil
}

func (t *pgxTx) Commit(ctx context.Context) error {
	return t.tx.Commit(ctx)
}

// Rollback treats an already closed transaction as rolled back.
func (t *pgxTx) Rollback(ctx context.Context) error {
	if err := t.tx.Rollback(ctx); err != nil && !errors.Is(err, pgx.ErrTxClosed) {
		return err
	}

	return nil
}

// pgxRows wraps pgx.Rows to implement the DBRows interface.
type pgxRows struct {
	rows pgx.Rows
}

func (r *pgxRows) Columns() ([]string, error) {
	fields := r.rows.FieldDescriptions()
	columns := make([]string, len(fields))
	for i, field := range fields {
		columns[i] = field.Name
	}

	return columns, nil
}

func (r *pgxRows) Next() bool {
	return r.rows.Next()
}

func (r *pgxRows) Values() ([]any, error) {
	return r.rows.Values()
}

func (r *pgxRows) Err() error {
	return r.rows.Err()
}

func (r *pgxRows) Close() error {
	r.rows.Close()
	return nil
}
