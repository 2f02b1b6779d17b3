package config

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// TestMaxConnections is the driver-level connection limit used by all test factories.
const TestMaxConnections = 20

// PostgresPGXPoolTestConfig creates a pgxpool.Config for the test database.
func PostgresPGXPoolTestConfig() (*pgxpool.Config, error) {
	const defaultMaxConnLifetime = time.Hour
	const defaultMaxConnIdleTime = time.Minute * 5
	const defaultConnectTimeout = time.Second * 2

	dbConfig, err := pgxpool.ParseConfig(PostgresTestDSN())
	if err != nil {
		return nil, fmt.Errorf("parse test dsn: %w", err)
	}

	dbConfig.MaxConns = TestMaxConnections
	dbConfig.MinConns = 0
	dbConfig.MaxConnLifetime = defaultMaxConnLifetime
	dbConfig.MaxConnIdleTime = defaultMaxConnIdleTime
	dbConfig.ConnConfig.ConnectTimeout = defaultConnectTimeout

	return dbConfig, nil
}

// PostgresPGXPool creates and pings a pgxpool.Pool for the test database.
func PostgresPGXPool(ctx context.Context) (*pgxpool.Pool, error) {
	dbConfig, err := PostgresPGXPoolTestConfig()
	if err != nil {
		return nil, err
	}

	pool, err := pgxpool.NewWithConfig(ctx, dbConfig)
	if err != nil {
		return nil, fmt.Errorf("create pgx pool: %w", err)
	}

	if pingErr := pool.Ping(ctx); pingErr != nil {
		pool.Close()
		return nil, fmt.Errorf("ping test database: %w", pingErr)
	}

	return pool, nil
}
