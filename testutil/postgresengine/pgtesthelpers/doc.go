// Package pgtesthelpers runs fakersql integration tests against every supported driver pool.
//
// A Wrapper owns one driver pool (pgx.Pool, sql.DB or sqlx.DB) connected to the test database
// and builds fakersql pools on top of it. Tests skip instead of failing when the database
// cannot be reached.
//
// Environment Variables:
//
//	ADAPTER_TYPE: restricts the adapters under test (pgx.pool, sql.db, sqlx.db); empty means all
//	TEST_DATABASE_URL: PostgreSQL DSN of the test database
package pgtesthelpers
