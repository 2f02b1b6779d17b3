// Package adapters provide connection-level database adapters for the fakersql connection pool.
//
// Three PostgreSQL libraries are supported: pgxpool.Pool, sql.DB and sqlx.DB. Each adapter opens
// dedicated connections from its driver pool and exposes them through the DBConn interface, so the
// connection pool can begin transactions, run bound-parameter queries, and discard broken connections
// without knowing which library is underneath.
package adapters
