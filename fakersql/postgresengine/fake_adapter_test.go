package postgresengine

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/AntonStoeckl/fakersql-go/fakersql/postgresengine/internal/adapters"
)

// fakeAdapter is an in-memory adapters.DBAdapter that records what the pool does with it.
type fakeAdapter struct {
	mu sync.Mutex

	connectErr  error
	capacityErr error
	beginErr    error
	commitErr   error
	rollbackErr error
	queryErr    error
	rowsErr     error
	valuesErr   error

	// breakOnQueryErr marks the connection as closed when a query fails.
	breakOnQueryErr bool

	columns []string
	rows    [][]any

	opened    int
	discarded int
	begins    int
	commits   int
	rollbacks int
	queries   []recordedQuery
}

type recordedQuery struct {
	sql  string
	args []any
	inTx bool
}

func newFakeAdapter() *fakeAdapter {
	return &fakeAdapter{}
}

func (a *fakeAdapter) Connect(_ context.Context) (adapters.DBConn, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.connectErr != nil {
		return nil, a.connectErr
	}

	a.opened++

	return &fakeConn{adapter: a}, nil
}

func (a *fakeAdapter) EnsureCapacity(_ int) error {
	return a.capacityErr
}

func (a *fakeAdapter) Kind() string {
	return "fake"
}

func (a *fakeAdapter) set(fn func(a *fakeAdapter)) {
	a.mu.Lock()
	defer a.mu.Unlock()
	fn(a)
}

type adapterCounts struct {
	opened    int
	discarded int
	begins    int
	commits   int
	rollbacks int
	queries   []recordedQuery
}

func (a *fakeAdapter) snapshot() adapterCounts {
	a.mu.Lock()
	defer a.mu.Unlock()

	return adapterCounts{
		opened:    a.opened,
		discarded: a.discarded,
		begins:    a.begins,
		commits:   a.commits,
		rollbacks: a.rollbacks,
		queries:   append([]recordedQuery(nil), a.queries...),
	}
}

type fakeConn struct {
	adapter *fakeAdapter
	closed  atomic.Bool
}

func (c *fakeConn) query(inTx bool, query string, args []any) (adapters.DBRows, error) {
	a := c.adapter
	a.mu.Lock()
	defer a.mu.Unlock()

	a.queries = append(a.queries, recordedQuery{sql: query, args: args, inTx: inTx})

	if a.queryErr != nil {
		if a.breakOnQueryErr {
			c.closed.Store(true)
		}

		return nil, a.queryErr
	}

	return &fakeRows{columns: a.columns, rows: a.rows, rowsErr: a.rowsErr, valuesErr: a.valuesErr, pos: -1}, nil
}

func (c *fakeConn) Query(_ context.Context, query string, args ...any) (adapters.DBRows, error) {
	return c.query(false, query, args)
}

func (c *fakeConn) Begin(_ context.Context) (adapters.DBTx, error) {
	a := c.adapter
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.beginErr != nil {
		return nil, a.beginErr
	}

	a.begins++

	return &fakeTx{conn: c}, nil
}

func (c *fakeConn) IsClosed() bool {
	return c.closed.Load()
}

func (c *fakeConn) Discard(_ context.Context) error {
	c.adapter.mu.Lock()
	defer c.adapter.mu.Unlock()

	c.adapter.discarded++
	c.closed.Store(true)

	return nil
}

type fakeTx struct {
	conn *fakeConn
}

func (t *fakeTx) Query(_ context.Context, query string, args ...any) (adapters.DBRows, error) {
	return t.conn.query(true, query, args)
}

func (t *fakeTx) Commit(_ context.Context) error {
	a := t.conn.adapter
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.commitErr != nil {
		return a.commitErr
	}

	a.commits++

	return nil
}

func (t *fakeTx) Rollback(_ context.Context) error {
	a := t.conn.adapter
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.rollbackErr != nil {
		return a.rollbackErr
	}

	a.rollbacks++

	return nil
}

type fakeRows struct {
	columns   []string
	rows      [][]any
	rowsErr   error
	valuesErr error
	pos       int
}

func (r *fakeRows) Columns() ([]string, error) {
	return r.columns, nil
}

func (r *fakeRows) Next() bool {
	if r.pos+1 >= len(r.rows) {
		return false
	}

	r.pos++

	return true
}

func (r *fakeRows) Values() ([]any, error) {
	if r.valuesErr != nil {
		return nil, r.valuesErr
	}

	return r.rows[r.pos], nil
}

func (r *fakeRows) Err() error {
	return r.rowsErr
}

func (r *fakeRows) Close() error {
	return nil
}
