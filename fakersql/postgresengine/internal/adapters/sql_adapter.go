package adapters

import (
	"context"
	"database/sql"
)

// SQLAdapter implements DBAdapter for sql.DB.
type SQLAdapter struct {
	db *sql.DB
}

// NewSQLAdapter creates a new SQL adapter.
func NewSQLAdapter(db *sql.DB) *SQLAdapter {
	return &SQLAdapter{db: db}
}

// Connect reserves a dedicated connection from the sql.DB.
func (s *SQLAdapter) Connect(ctx context.Context) (DBConn, error) {
	conn, err := s.db.Conn(ctx)
	if err != nil {
		return nil, err
	}

	return &sqlConn{conn: conn}, nil
}

// EnsureCapacity raises MaxOpenConns if it is lower than n.
func (s *SQLAdapter) EnsureCapacity(n int) error {
	ensureMaxOpenConns(s.db, n)
	return nil
}

// Kind returns the adapter name.
func (s *SQLAdapter) Kind() string {
	return "sql.db"
}

type sqlConn struct {
	connHealth
	conn *sql.Conn
}

func (c *sqlConn) Query(ctx context.Context, query string, args ...any) (DBRows, error) {
	rows, err := c.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, c.observe(err)
	}

	return &stdRows{rows: rows, health: &c.connHealth}, nil
}

func (c *sqlConn) Begin(ctx context.Context) (DBTx, error) {
	tx, err := c.conn.BeginTx(ctx, nil)
	if err != nil {
		return nil, c.observe(err)
	}

	return &stdTx{tx: tx, health: &c.connHealth}, nil
}

func (c *sqlConn) Discard(_ context.Context) error {
	return discardSQLConn(c.conn)
}
