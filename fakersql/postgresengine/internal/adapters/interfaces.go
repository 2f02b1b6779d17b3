package adapters

import "context"

// DBAdapter opens dedicated connections from an underlying driver pool.
type DBAdapter interface {
	Connect(ctx context.Context) (DBConn, error)

	// EnsureCapacity makes sure the driver pool can hand out at least n connections at once.
	EnsureCapacity(n int) error

	Kind() string
}

// DBQuerier runs a query with positional bound arguments.
type DBQuerier interface {
	Query(ctx context.Context, query string, args ...any) (DBRows, error)
}

// DBConn is one dedicated connection.
type DBConn interface {
	DBQuerier
	Begin(ctx context.Context) (DBTx, error)

	// IsClosed reports whether the connection is known to be broken.
	IsClosed() bool

	// Discard physically closes the connection instead of handing it back.
	Discard(ctx context.Context) error
}

// DBTx is an open transaction on a DBConn.
type DBTx interface {
	DBQuerier
	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
}

// DBRows iterates over query results, yielding each row as values in column order.
type DBRows interface {
	Columns() ([]string, error)
	Next() bool
	Values() ([]any, error)
	Err() error
	Close() error
}
