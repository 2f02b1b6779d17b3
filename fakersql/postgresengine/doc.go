// Package postgresengine provides the PostgreSQL connection pool, units of work and
// procedure invocation for fakersql.
//
// It supports multiple database adapters (pgx, sql.DB, sqlx). The Pool bounds the number of
// checked-out connections, Run wraps a body in acquire, begin, commit-or-rollback and release,
// and the Invoker maps fakersql.ProcedureCall values onto "SELECT * FROM name($1, ...)".
//
// Key features:
//   - Multiple database adapter support (PGX, SQL, SQLX)
//   - Bounded acquire wait with PoolExhausted and context cancellation without leaked slots
//   - Exactly-once connection release on every exit path, including panics
//   - Discarding of connections that broke during a unit of work
//   - Optional logging, metrics and tracing through the fakersql observability interfaces
//
// Usage examples:
//
//	db, _ := pgxpool.NewWithConfig(ctx, pgxConfig)
//	pool, _ := postgresengine.NewPoolFromPGXPool(db, fakersql.DefaultPoolConfig(dsn),
//		postgresengine.WithLogger(slog.Default()),
//	)
//	_ = pool.Initialize(ctx)
//	defer pool.CloseAll(ctx)
//
//	service, _ := postgresengine.NewFakerService(pool)
//	locales, _ := service.GetLocales(ctx)
//
//	// Custom units of work
//	invoker := pool.Invoker()
//	err := pool.Run(ctx, postgresengine.ReadOnly, func(ctx context.Context, conn *postgresengine.Conn) error {
//		rows, err := invoker.Call(ctx, conn, fakersql.ProcedureCall{Name: fakersql.ProcGetAvailableLocales})
//		...
//	})
package postgresengine
