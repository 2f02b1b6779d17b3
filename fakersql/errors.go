package fakersql

import "errors"

var (
	// ErrPoolNotInitialized is returned when the pool is used before Initialize or after CloseAll.
	ErrPoolNotInitialized = errors.New("connection pool not initialized")

	// ErrPoolExhausted is returned when no connection became available within the acquire timeout.
	ErrPoolExhausted = errors.New("connection pool exhausted")

	// ErrAcquireCanceled is returned when the caller's context ended while waiting for a connection.
	ErrAcquireCanceled = errors.New("connection acquire canceled")

	// ErrConnectingFailed is returned when a new backing-store connection could not be opened.
	ErrConnectingFailed = errors.New("opening backing-store connection failed")

	// ErrConnectionNotCheckedOut is returned when a connection is released twice or does not belong to the pool.
	ErrConnectionNotCheckedOut = errors.New("connection is not checked out from this pool")

	// ErrProcedureCallFailed is returned when the backing store rejected or failed a procedure call.
	ErrProcedureCallFailed = errors.New("procedure call failed")

	// ErrUnknownProcedure is returned for procedure names outside the known enumeration.
	ErrUnknownProcedure = errors.New("unknown procedure")

	// ErrValidationFailed marks client input that was rejected before any backing-store interaction.
	ErrValidationFailed = errors.New("validation failed")

	ErrBeginTxFailed       = errors.New("beginning transaction failed")
	ErrCommitFailed        = errors.New("committing transaction failed")
	ErrRollbackFailed      = errors.New("rolling back transaction failed")
	ErrBuildingQueryFailed = errors.New("building query failed")
	ErrScanningDBRowFailed = errors.New("scanning database row failed")
	ErrInvalidPoolConfig   = errors.New("invalid pool config")

	// ErrNilDatabaseConnection is returned when a constructor receives a nil driver handle.
	ErrNilDatabaseConnection = errors.New("database connection must not be nil")
)
