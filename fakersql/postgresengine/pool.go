package postgresengine

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jmoiron/sqlx"
	"golang.org/x/sync/semaphore"

	"github.com/AntonStoeckl/fakersql-go/fakersql"
	"github.com/AntonStoeckl/fakersql-go/fakersql/postgresengine/internal/adapters"
)

const (
	logMsgPoolInitialized        = "pool initialized"
	logMsgPoolClosed             = "pool closed"
	logMsgCapacityBelowMaxSize   = "driver pool capacity is below the configured max size"
	logMsgWarmupFailed           = "failed to open warm connection"
	logMsgTopUpFailed            = "failed to replace discarded connection"
	logMsgAcquireFailed          = "failed to acquire connection"
	logMsgDiscardFailed          = "failed to close discarded connection"
	logMsgReleaseUnknownConn     = "released connection is not checked out from this pool"
	logMsgBrokenIdleConnReplaced = "replacing broken idle connection"
	logMsgSQLExecuted            = "executed sql for: "
	logMsgOperation              = "fakersql operation: "
	logAttrError                 = "error"
	logAttrQuery                 = "query"
	logAttrDurationMS            = "duration_ms"
	logAttrAdapter               = "adapter"
	logAttrMinSize               = "min_size"
	logAttrMaxSize               = "max_size"
	logAttrIdle                  = "idle"
	logAttrCheckedOut            = "checked_out"
	logAttrProcedure             = "procedure"
	logAttrRowCount              = "row_count"
	logAttrTxMode                = "tx_mode"
	logActionInitialize          = "initialize"
	logActionCloseAll            = "close_all"
)

// Pool is a bounded pool of dedicated backing-store connections.
//
// At most PoolConfig.MaxSize connections are checked out at the same time. Acquire waits
// up to PoolConfig.AcquireTimeout for a free slot. A Pool must be initialized before use
// and is safe for concurrent use by multiple goroutines.
type Pool struct {
	observability

	db  adapters.DBAdapter
	cfg fakersql.PoolConfig

	mu          sync.Mutex
	initialized bool
	generation  uint64
	// slots is shared by all generations, so connections checked out before CloseAll
	// keep counting against MaxSize until they are released.
	slots       *semaphore.Weighted
	idle        []*Conn
	checkedOut  map[*Conn]struct{}
	opening     int

	acquireCount   int64
	exhaustedCount int64
	canceledCount  int64
}

// Conn is a connection checked out from a Pool.
// It is owned by exactly one caller until it is released.
type Conn struct {
	raw        adapters.DBConn
	tx         adapters.DBTx
	generation uint64
}

// InTransaction reports whether a transaction is open on the connection.
func (c *Conn) InTransaction() bool {
	return c.tx != nil
}

// querier returns the open transaction or, outside a transaction, the connection itself.
func (c *Conn) querier() adapters.DBQuerier {
	if c.tx != nil {
		return c.tx
	}

	return c.raw
}

// PoolStats is a point-in-time snapshot of the pool's bookkeeping.
type PoolStats struct {
	Adapter        string `json:"adapter"`
	Initialized    bool   `json:"initialized"`
	MaxSize        int    `json:"max_size"`
	CheckedOut     int    `json:"checked_out"`
	Idle           int    `json:"idle"`
	Total          int    `json:"total"`
	AcquireCount   int64  `json:"acquire_count"`
	ExhaustedCount int64  `json:"exhausted_count"`
	CanceledCount  int64  `json:"canceled_count"`
}

// NewPoolFromPGXPool creates a new Pool on top of a pgx Pool with optional configuration.
func NewPoolFromPGXPool(db *pgxpool.Pool, cfg fakersql.PoolConfig, options ...Option) (*Pool, error) {
	if db == nil {
		return nil, fakersql.ErrNilDatabaseConnection
	}

	return newPool(adapters.NewPGXAdapter(db), cfg, options...)
}

// NewPoolFromSQLDB creates a new Pool on top of a sql.DB with optional configuration.
func NewPoolFromSQLDB(db *sql.DB, cfg fakersql.PoolConfig, options ...Option) (*Pool, error) {
	if db == nil {
		return nil, fakersql.ErrNilDatabaseConnection
	}

	return newPool(adapters.NewSQLAdapter(db), cfg, options...)
}

// NewPoolFromSQLX creates a new Pool on top of a sqlx.DB with optional configuration.
func NewPoolFromSQLX(db *sqlx.DB, cfg fakersql.PoolConfig, options ...Option) (*Pool, error) {
	if db == nil {
		return nil, fakersql.ErrNilDatabaseConnection
	}

	return newPool(adapters.NewSQLXAdapter(db), cfg, options...)
}

func newPool(db adapters.DBAdapter, cfg fakersql.PoolConfig, options ...Option) (*Pool, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	p := &Pool{
		db:         db,
		cfg:        cfg,
		slots:      semaphore.NewWeighted(int64(cfg.MaxSize)),
		checkedOut: make(map[*Conn]struct{}),
	}

	for _, option := range options {
		if err := option(&p.observability); err != nil {
			return nil, err
		}
	}

	return p, nil
}

// Initialize opens MinSize connections and makes the pool usable.
// Calling it on an initialized pool is a no-op. Connections still checked out from before
// a CloseAll count against MaxSize, so fewer warm connections may be opened.
func (p *Pool) Initialize(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.initialized {
		return nil
	}

	if err := p.db.EnsureCapacity(p.cfg.MaxSize); err != nil {
		p.logWarning(ctx, logMsgCapacityBelowMaxSize, err, logAttrAdapter, p.db.Kind())
	}

	generation := p.generation + 1
	warmCount := min(p.cfg.MinSize, p.cfg.MaxSize-len(p.checkedOut))

	warm := make([]*Conn, 0, max(warmCount, 0))
	for range warmCount {
		raw, err := p.db.Connect(ctx)
		if err != nil {
			p.logError(ctx, logMsgWarmupFailed, err, logAttrAdapter, p.db.Kind())
			for _, conn := range warm {
				p.closeConn(ctx, conn)
			}

			return errors.Join(fakersql.ErrConnectingFailed, err)
		}

		warm = append(warm, &Conn{raw: raw, generation: generation})
	}

	p.generation = generation
	p.idle = warm
	p.initialized = true

	p.logOperation(
		ctx,
		logActionInitialize,
		logAttrAdapter, p.db.Kind(),
		logAttrMinSize, p.cfg.MinSize,
		logAttrMaxSize, p.cfg.MaxSize,
	)

	return nil
}

// Acquire checks out a connection.
//
// It waits up to the configured acquire timeout for a free slot and fails with
// fakersql.ErrPoolExhausted afterward. If ctx ends first, the error wraps
// fakersql.ErrAcquireCanceled and ctx.Err(). Before Initialize and after CloseAll
// it fails with fakersql.ErrPoolNotInitialized.
func (p *Pool) Acquire(ctx context.Context) (*Conn, error) {
	start := time.Now()

	p.mu.Lock()
	if !p.initialized {
		p.mu.Unlock()
		return nil, fakersql.ErrPoolNotInitialized
	}
	generation := p.generation
	p.mu.Unlock()

	if err := p.waitForSlot(ctx); err != nil {
		p.logError(ctx, logMsgAcquireFailed, err, logAttrDurationMS, toMilliseconds(time.Since(start)))
		return nil, err
	}

	conn, err := p.checkOut(ctx, generation)
	if err != nil {
		p.slots.Release(1)
		p.logError(ctx, logMsgAcquireFailed, err, logAttrAdapter, p.db.Kind())

		return nil, err
	}

	p.recordDuration(ctx, metricAcquireDuration, time.Since(start), map[string]string{labelStatus: statusSuccess})

	return conn, nil
}

// waitForSlot reserves one of the MaxSize slots. On failure no reservation is held.
func (p *Pool) waitForSlot(ctx context.Context) error {
	timeout := p.cfg.EffectiveAcquireTimeout()

	waitCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	err := p.slots.Acquire(waitCtx, 1)
	if err == nil {
		p.mu.Lock()
		p.acquireCount++
		p.mu.Unlock()

		return nil
	}

	if ctxErr := ctx.Err(); ctxErr != nil {
		p.mu.Lock()
		p.canceledCount++
		p.mu.Unlock()
		p.incrementCounter(ctx, metricAcquireCanceled, map[string]string{spanAttrOperation: operationAcquire})

		return errors.Join(fakersql.ErrAcquireCanceled, ctxErr)
	}

	p.mu.Lock()
	p.exhaustedCount++
	p.mu.Unlock()
	p.incrementCounter(ctx, metricPoolExhausted, map[string]string{spanAttrOperation: operationAcquire})

	return errors.Join(
		fakersql.ErrPoolExhausted,
		fmt.Errorf("no connection became available within %s (max size %d)", timeout, p.cfg.MaxSize),
	)
}

// checkOut hands out an idle connection or opens a new one. The caller holds a slot.
func (p *Pool) checkOut(ctx context.Context, generation uint64) (*Conn, error) {
	p.mu.Lock()
	for len(p.idle) > 0 && p.initialized && p.generation == generation {
		conn := p.idle[len(p.idle)-1]
		p.idle = p.idle[:len(p.idle)-1]

		if conn.raw.IsClosed() {
			p.mu.Unlock()
			p.logWarning(ctx, logMsgBrokenIdleConnReplaced, errors.New("connection is closed"))
			p.closeConn(ctx, conn)
			p.mu.Lock()

			continue
		}

		p.checkedOut[conn] = struct{}{}
		p.mu.Unlock()

		return conn, nil
	}

	if !p.initialized || p.generation != generation {
		p.mu.Unlock()
		return nil, fakersql.ErrPoolNotInitialized
	}

	p.opening++
	p.mu.Unlock()

	raw, err := p.db.Connect(ctx)

	p.mu.Lock()
	p.opening--

	if err != nil {
		p.mu.Unlock()
		return nil, errors.Join(fakersql.ErrConnectingFailed, err)
	}

	conn := &Conn{raw: raw, generation: generation}

	if !p.initialized || p.generation != generation {
		p.mu.Unlock()
		p.closeConn(ctx, conn)

		return nil, fakersql.ErrPoolNotInitialized
	}

	p.checkedOut[conn] = struct{}{}
	p.mu.Unlock()

	return conn, nil
}

// Release returns a checked-out connection to the idle set.
//
// Releasing a connection twice, or one that was not checked out from this pool, fails fast
// with fakersql.ErrConnectionNotCheckedOut and leaves the pool untouched.
// Connections that report themselves closed, or that were checked out before CloseAll,
// are closed instead of being returned.
func (p *Pool) Release(conn *Conn) error {
	return p.checkIn(context.Background(), conn, false)
}

// Discard returns the connection's slot to the pool and closes the connection.
// It is meant for connections that failed and must not be reused. If the pool drops
// below MinSize, a replacement is opened before Discard returns.
func (p *Pool) Discard(ctx context.Context, conn *Conn) error {
	return p.checkIn(ctx, conn, true)
}

func (p *Pool) checkIn(ctx context.Context, conn *Conn, discard bool) error {
	if conn == nil {
		return errors.Join(fakersql.ErrConnectionNotCheckedOut, errors.New("connection is nil"))
	}

	p.mu.Lock()
	if _, ok := p.checkedOut[conn]; !ok {
		p.mu.Unlock()
		p.logWarning(ctx, logMsgReleaseUnknownConn, fakersql.ErrConnectionNotCheckedOut)

		return fakersql.ErrConnectionNotCheckedOut
	}

	delete(p.checkedOut, conn)
	conn.tx = nil

	keep := !discard && p.initialized && conn.generation == p.generation && !conn.raw.IsClosed()
	if keep {
		p.idle = append(p.idle, conn)
	}
	p.mu.Unlock()

	p.slots.Release(1)

	if !keep {
		p.closeConn(ctx, conn)
		p.topUp(ctx)
	}

	return nil
}

// topUp opens idle connections until the pool holds MinSize again.
// A failed connect is logged and leaves the pool below MinSize.
func (p *Pool) topUp(ctx context.Context) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), p.cfg.EffectiveAcquireTimeout())
	defer cancel()

	for {
		p.mu.Lock()
		total := len(p.checkedOut) + len(p.idle) + p.opening
		if !p.initialized || total >= p.cfg.MinSize || total >= p.cfg.MaxSize {
			p.mu.Unlock()
			return
		}

		generation := p.generation
		p.opening++
		p.mu.Unlock()

		raw, err := p.db.Connect(ctx)

		p.mu.Lock()
		p.opening--

		if err != nil {
			p.mu.Unlock()
			p.logWarning(ctx, logMsgTopUpFailed, err, logAttrAdapter, p.db.Kind())

			return
		}

		conn := &Conn{raw: raw, generation: generation}
		if !p.initialized || p.generation != generation {
			p.mu.Unlock()
			p.closeConn(ctx, conn)

			return
		}

		p.idle = append(p.idle, conn)
		p.mu.Unlock()
	}
}

// closeConn physically closes a connection that is neither idle nor checked out.
func (p *Pool) closeConn(ctx context.Context, conn *Conn) {
	p.incrementCounter(ctx, metricConnectionsDiscarded, map[string]string{logAttrAdapter: p.db.Kind()})

	if err := conn.raw.Discard(context.WithoutCancel(ctx)); err != nil {
		p.logWarning(ctx, logMsgDiscardFailed, err, logAttrAdapter, p.db.Kind())
	}
}

// CloseAll closes all idle connections and marks the pool uninitialized.
// Connections that are checked out at this time are closed when they are released.
// A later Initialize starts over with fresh connections.
func (p *Pool) CloseAll(ctx context.Context) error {
	p.mu.Lock()
	if !p.initialized {
		p.mu.Unlock()
		return nil
	}

	idle := p.idle
	inFlight := len(p.checkedOut)
	p.idle = nil
	p.initialized = false
	p.generation++
	p.mu.Unlock()

	var errs []error
	for _, conn := range idle {
		if err := conn.raw.Discard(ctx); err != nil {
			errs = append(errs, err)
		}
	}

	p.logOperation(ctx, logActionCloseAll, logAttrIdle, len(idle), logAttrCheckedOut, inFlight)

	return errors.Join(errs...)
}

// Stats returns a snapshot of the pool's bookkeeping.
func (p *Pool) Stats() PoolStats {
	p.mu.Lock()
	defer p.mu.Unlock()

	return PoolStats{
		Adapter:        p.db.Kind(),
		Initialized:    p.initialized,
		MaxSize:        p.cfg.MaxSize,
		CheckedOut:     len(p.checkedOut),
		Idle:           len(p.idle),
		Total:          len(p.checkedOut) + len(p.idle) + p.opening,
		AcquireCount:   p.acquireCount,
		ExhaustedCount: p.exhaustedCount,
		CanceledCount:  p.canceledCount,
	}
}
