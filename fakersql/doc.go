// Package fakersql provides the core abstractions and types for dispatching fake-data
// generation requests to stored procedures in a PostgreSQL backing store.
//
// This package defines the types shared by the engine and the HTTP glue:
//   - ProcedureName / ProcedureCall: the closed set of procedures that may be called
//   - ResultRow: an ordered column -> value mapping for one returned row
//   - PoolConfig: bounds and target of the connection pool
//   - Locale, FakeUser, BenchmarkResult: typed views of the procedure results
//   - the validation functions that coerce untrusted request input
//   - the sentinel errors and the dependency-free observability interfaces
//
// Common usage pattern:
//
//	seed, ok := fakersql.ValidateSeed(r.URL.Query().Get("seed"))
//	if !ok {
//		// reply with 400
//	}
//
//	call, err := fakersql.NewProcedureCall(fakersql.ProcGenerateFakeUsers, "en_US", seed, int64(0), 10, false)
//	rows, err := pool.Invoker().Call(ctx, conn, call)
package fakersql
