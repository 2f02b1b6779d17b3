package adapters

import (
	"context"

	"github.com/jmoiron/sqlx"
)

// SQLXAdapter implements DBAdapter for sqlx.DB.
type SQLXAdapter struct {
	db *sqlx.DB
}

// NewSQLXAdapter creates a new SQLX adapter.
func NewSQLXAdapter(db *sqlx.DB) *SQLXAdapter {
	return &SQLXAdapter{db: db}
}

// Connect reserves a dedicated connection from the sqlx.DB.
func (s *SQLXAdapter) Connect(ctx context.Context) (DBConn, error) {
	conn, err := s.db.Connx(ctx)
	if err != nil {
		return nil, err
	}

	return &sqlxConn{conn: conn}, nil
}

// EnsureCapacity raises MaxOpenConns if it is lower than n.
func (s *SQLXAdapter) EnsureCapacity(n int) error {
	ensureMaxOpenConns(s.db.DB, n)
	return nil
}

// Kind returns the adapter name.
func (s *SQLXAdapter) Kind() string {
	return "sqlx.db"
}

type sqlxConn struct {
	connHealth
	conn *sqlx.Conn
}

func (c *sqlxConn) Query(ctx context.Context, query string, args ...any) (DBRows, error) {
	rows, err := c.conn.QueryxContext(ctx, query, args...)
	if err != nil {
		return nil, c.observe(err)
	}

	return &sqlxRows{rows: rows, health: &c.connHealth}, nil
}

func (c *sqlxConn) Begin(ctx context.Context) (DBTx, error) {
	tx, err := c.conn.BeginTxx(ctx, nil)
	if err != nil {
		return nil, c.observe(err)
	}

	return &sqlxTx{tx: tx, health: &c.connHealth}, nil
}

func (c *sqlxConn) Discard(_ context.Context) error {
	return discardSQLConn(c.conn.Conn)
}

type sqlxTx struct {
	tx     *sqlx.Tx
	health *connHealth
}

func (t *sqlxTx) Query(ctx context.Context, query string, args ...any) (DBRows, error) {
	rows, err := t.tx.QueryxContext(ctx, query, args...)
	if err != nil {
		return nil, t.health.observe(err)
	}

	return &sqlxRows{rows: rows, health: t.health}, nil
}

func (t *sqlxTx) Commit(_ context.Context) error {
	return t.health.observe(t.tx.Commit())
}

func (t *sqlxTx) Rollback(_ context.Context) error {
	return t.health.observe(ignoreTxDone(t.tx.Rollback()))
}

// sqlxRows uses SliceScan, which sizes the destination from the column list.
type sqlxRows struct {
	rows   *sqlx.Rows
	health *connHealth
}

func (r *sqlxRows) Columns() ([]string, error) {
	return r.rows.Columns()
}

func (r *sqlxRows) Next() bool {
	return r.rows.Next()
}

func (r *sqlxRows) Values() ([]any, error) {
	return r.rows.SliceScan()
}

func (r *sqlxRows) Err() error {
	return r.health.observe(r.rows.Err())
}

func (r *sqlxRows) Close() error {
	return r.rows.Close()
}
