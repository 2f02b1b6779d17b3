package pgtesthelpers

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"

	"github.com/AntonStoeckl/fakersql-go/fakersql"
	"github.com/AntonStoeckl/fakersql-go/fakersql/postgresengine"
	"github.com/AntonStoeckl/fakersql-go/testutil/postgresengine/config"
	"github.com/AntonStoeckl/fakersql-go/testutil/postgresengine/fixtures"
)

// Adapter type names, matching the pool's Stats().Adapter.
const (
	TypePGXPool = "pgx.pool"
	TypeSQLDB   = "sql.db"
	TypeSQLX    = "sqlx.db"
)

const connectTimeout = 3 * time.Second

// Wrapper abstracts over the driver pools a fakersql Pool can be built on.
type Wrapper interface {
	AdapterType() string
	NewPool(cfg fakersql.PoolConfig, options ...postgresengine.Option) (*postgresengine.Pool, error)
	Exec(ctx context.Context, query string) error
	Close()
}

// PGXPoolWrapper wraps a pgxpool.Pool.
type PGXPoolWrapper struct {
	pool *pgxpool.Pool
}

func (w *PGXPoolWrapper) AdapterType() string { return TypePGXPool }

func (w *PGXPoolWrapper) NewPool(cfg fakersql.PoolConfig, options ...postgresengine.Option) (*postgresengine.Pool, error) {
	return postgresengine.NewPoolFromPGXPool(w.pool, cfg, options...)
}

func (w *PGXPoolWrapper) Exec(ctx context.Context, query string) error {
	_, err := w.pool.Exec(ctx, query)
	return err
}

func (w *PGXPoolWrapper) Close() {
	w.pool.Close()
}

// SQLDBWrapper wraps a database/sql DB.
type SQLDBWrapper struct {
	db *sql.DB
}

func (w *SQLDBWrapper) AdapterType() string { return TypeSQLDB }

func (w *SQLDBWrapper) NewPool(cfg fakersql.PoolConfig, options ...postgresengine.Option) (*postgresengine.Pool, error) {
	return postgresengine.NewPoolFromSQLDB(w.db, cfg, options...)
}

func (w *SQLDBWrapper) Exec(ctx context.Context, query string) error {
	_, err := w.db.ExecContext(ctx, query)
	return err
}

func (w *SQLDBWrapper) Close() {
	_ = w.db.Close() // ignore error
}

// SQLXWrapper wraps a sqlx.DB.
type SQLXWrapper struct {
	db *sqlx.DB
}

func (w *SQLXWrapper) AdapterType() string { return TypeSQLX }

func (w *SQLXWrapper) NewPool(cfg fakersql.PoolConfig, options ...postgresengine.Option) (*postgresengine.Pool, error) {
	return postgresengine.NewPoolFromSQLX(w.db, cfg, options...)
}

func (w *SQLXWrapper) Exec(ctx context.Context, query string) error {
	_, err := w.db.ExecContext(ctx, query)
	return err
}

func (w *SQLXWrapper) Close() {
	_ = w.db.Close() // ignore error
}

// AdapterTypesUnderTest returns the adapter types selected by ADAPTER_TYPE, or all of them.
func AdapterTypesUnderTest() []string {
	fromEnv := strings.ToLower(strings.TrimSpace(os.Getenv("ADAPTER_TYPE")))
	if fromEnv == "" {
		return []string{TypePGXPool, TypeSQLDB, TypeSQLX}
	}

	return []string{fromEnv}
}

// CreateWrapper connects to the test database with the given adapter type and installs the fixture schema.
// The test is skipped when the database is not reachable. The wrapper is closed on test cleanup.
func CreateWrapper(t testing.TB, adapterType string) Wrapper {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), connectTimeout)
	defer cancel()

	var wrapper Wrapper

	switch adapterType {
	case TypePGXPool:
		pool, err := config.PostgresPGXPool(ctx)
		if err != nil {
			t.Skipf("test database not reachable: %v", err)
		}
		wrapper = &PGXPoolWrapper{pool: pool}

	case TypeSQLDB:
		db, err := config.PostgresSQLDB(ctx)
		if err != nil {
			t.Skipf("test database not reachable: %v", err)
		}
		wrapper = &SQLDBWrapper{db: db}

	case TypeSQLX:
		db, err := config.PostgresSQLX(ctx)
		if err != nil {
			t.Skipf("test database not reachable: %v", err)
		}
		wrapper = &SQLXWrapper{db: db}

	default:
		panic(fmt.Sprintf("unsupported adapter type: %s", adapterType))
	}

	t.Cleanup(wrapper.Close)

	require.NoError(t, wrapper.Exec(context.Background(), fixtures.SchemaSQL), "error installing the fixture schema")

	return wrapper
}

// CreateInitializedPool builds and initializes a fakersql Pool on the wrapper. CloseAll runs on test cleanup.
func CreateInitializedPool(
	t testing.TB,
	wrapper Wrapper,
	cfg fakersql.PoolConfig,
	options ...postgresengine.Option,
) *postgresengine.Pool {
	t.Helper()

	if cfg.DSN == "" {
		cfg.DSN = config.PostgresTestDSN()
	}

	pool, err := wrapper.NewPool(cfg, options...)
	require.NoError(t, err, "error creating the pool")
	require.NoError(t, pool.Initialize(context.Background()), "error initializing the pool")

	t.Cleanup(func() { _ = pool.CloseAll(context.Background()) })

	return pool
}
