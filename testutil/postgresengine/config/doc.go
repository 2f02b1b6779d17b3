// Package config provides PostgreSQL connection factories for fakersql tests.
//
// It creates driver pools for all supported adapters (pgx.Pool, sql.DB, sqlx.DB)
// against the test database. The DSN defaults to a local faker_db and can be
// overridden with TEST_DATABASE_URL. Factories return errors instead of exiting,
// so tests can skip when no database is reachable.
package config
