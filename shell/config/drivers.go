package config

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq" // postgres driver

	"github.com/AntonStoeckl/fakersql-go/fakersql/postgresengine"
)

const (
	driverMaxConnLifetime = time.Hour
	driverMaxConnIdleTime = time.Minute * 5
	driverConnectTimeout  = time.Second * 5
)

// PGXPoolConfig creates the pgxpool.Config for cfg. The driver pool may hold as many
// connections as the fakersql pool and never runs its own health checks.
func PGXPoolConfig(cfg Config) (*pgxpool.Config, error) {
	dbConfig, err := pgxpool.ParseConfig(cfg.DSN())
	if err != nil {
		return nil, errors.Join(ErrInvalidConfig, fmt.Errorf("parse dsn: %s", RedactDSN(err.Error())))
	}

	dbConfig.MaxConns = int32(min(cfg.Database.MaxConn, math.MaxInt32)) //nolint:gosec
	dbConfig.MinConns = 0
	dbConfig.MaxConnLifetime = driverMaxConnLifetime
	dbConfig.MaxConnIdleTime = driverMaxConnIdleTime
	dbConfig.HealthCheckPeriod = time.Duration(math.MaxInt64)
	dbConfig.ConnConfig.ConnectTimeout = driverConnectTimeout

	return dbConfig, nil
}

// OpenPGXPool creates a pgxpool.Pool for cfg. No connection is opened yet.
func OpenPGXPool(ctx context.Context, cfg Config) (*pgxpool.Pool, error) {
	dbConfig, err := PGXPoolConfig(cfg)
	if err != nil {
		return nil, err
	}

	pool, err := pgxpool.NewWithConfig(ctx, dbConfig)
	if err != nil {
		return nil, fmt.Errorf("create pgx pool: %s", RedactDSN(err.Error()))
	}

	return pool, nil
}

// OpenSQLDB creates a *sql.DB for cfg using the lib/pq driver. No connection is opened yet.
func OpenSQLDB(cfg Config) (*sql.DB, error) {
	db, err := sql.Open("postgres", cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("open database: %s", RedactDSN(err.Error()))
	}

	configureSQLDB(db, cfg)

	return db, nil
}

// OpenSQLX creates a *sqlx.DB for cfg using the lib/pq driver. No connection is opened yet.
func OpenSQLX(cfg Config) (*sqlx.DB, error) {
	db, err := sqlx.Open("postgres", cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("open database: %s", RedactDSN(err.Error()))
	}

	configureSQLDB(db.DB, cfg)

	return db, nil
}

func configureSQLDB(db *sql.DB, cfg Config) {
	db.SetMaxOpenConns(cfg.Database.MaxConn)
	db.SetMaxIdleConns(cfg.Database.MaxConn)
	db.SetConnMaxLifetime(driverMaxConnLifetime)
	db.SetConnMaxIdleTime(driverMaxConnIdleTime)
}

// Database bundles the fakersql pool with the driver handle underneath it.
type Database struct {
	Pool        *postgresengine.Pool
	closeDriver func()
}

// OpenDatabase creates the driver handle for the configured adapter and a fakersql pool on top of it.
// The pool is not initialized.
func OpenDatabase(ctx context.Context, cfg Config, options ...postgresengine.Option) (*Database, error) {
	var (
		pool        *postgresengine.Pool
		closeDriver func()
		err         error
	)

	switch cfg.Database.Adapter {
	case AdapterPGXPool:
		var db *pgxpool.Pool
		if db, err = OpenPGXPool(ctx, cfg); err != nil {
			return nil, err
		}

		closeDriver = db.Close
		pool, err = postgresengine.NewPoolFromPGXPool(db, cfg.PoolConfig(), options...)

	case AdapterSQLDB:
		var db *sql.DB
		if db, err = OpenSQLDB(cfg); err != nil {
			return nil, err
		}

		closeDriver = func() { _ = db.Close() }
		pool, err = postgresengine.NewPoolFromSQLDB(db, cfg.PoolConfig(), options...)

	case AdapterSQLX:
		var db *sqlx.DB
		if db, err = OpenSQLX(cfg); err != nil {
			return nil, err
		}

		closeDriver = func() { _ = db.Close() }
		pool, err = postgresengine.NewPoolFromSQLX(db, cfg.PoolConfig(), options...)

	default:
		return nil, errors.Join(ErrInvalidConfig, fmt.Errorf("unknown database adapter %q", cfg.Database.Adapter))
	}

	if err != nil {
		closeDriver()
		return nil, err
	}

	return &Database{Pool: pool, closeDriver: closeDriver}, nil
}

// Close closes all pooled connections and then the driver handle.
func (d *Database) Close(ctx context.Context) error {
	err := d.Pool.CloseAll(ctx)
	d.closeDriver()

	return err
}
