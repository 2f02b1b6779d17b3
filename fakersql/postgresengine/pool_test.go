package postgresengine

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AntonStoeckl/fakersql-go/fakersql"
	"github.com/AntonStoeckl/fakersql-go/testutil/postgresengine/helper"
)

func testPoolConfig(minSize, maxSize int, acquireTimeout time.Duration) fakersql.PoolConfig {
	return fakersql.PoolConfig{
		DSN:            "fake",
		MinSize:        minSize,
		MaxSize:        maxSize,
		AcquireTimeout: acquireTimeout,
	}
}

func newInitializedTestPool(t *testing.T, db *fakeAdapter, cfg fakersql.PoolConfig, options ...Option) *Pool {
	t.Helper()

	pool, err := newPool(db, cfg, options...)
	require.NoError(t, err)
	require.NoError(t, pool.Initialize(context.Background()))

	t.Cleanup(func() { _ = pool.CloseAll(context.Background()) })

	return pool
}

func Test_NewPool_When_Config_Is_Invalid(t *testing.T) {
	// act
	_, err := newPool(newFakeAdapter(), testPoolConfig(3, 2, time.Second))

	// assert
	assert.ErrorIs(t, err, fakersql.ErrInvalidPoolConfig)
}

func Test_NewPoolFromDrivers_When_Database_Is_Nil(t *testing.T) {
	cfg := testPoolConfig(1, 2, time.Second)

	_, pgxErr := NewPoolFromPGXPool(nil, cfg)
	_, sqlErr := NewPoolFromSQLDB(nil, cfg)
	_, sqlxErr := NewPoolFromSQLX(nil, cfg)

	assert.ErrorIs(t, pgxErr, fakersql.ErrNilDatabaseConnection)
	assert.ErrorIs(t, sqlErr, fakersql.ErrNilDatabaseConnection)
	assert.ErrorIs(t, sqlxErr, fakersql.ErrNilDatabaseConnection)
}

func Test_Pool_Acquire_When_Not_Initialized(t *testing.T) {
	// setup
	pool, err := newPool(newFakeAdapter(), testPoolConfig(1, 2, time.Second))
	require.NoError(t, err)

	// act
	_, err = pool.Acquire(context.Background())

	// assert
	assert.ErrorIs(t, err, fakersql.ErrPoolNotInitialized)
}

func Test_Pool_Initialize_Warms_MinSize_And_Is_Idempotent(t *testing.T) {
	// setup
	db := newFakeAdapter()
	logSpy := helper.NewLogHandlerSpy(false)
	pool := newInitializedTestPool(t, db, testPoolConfig(2, 5, time.Second), WithLogger(slog.New(logSpy)))

	// act
	err := pool.Initialize(context.Background())

	// assert
	require.NoError(t, err)
	assert.Equal(t, 2, db.snapshot().opened)

	stats := pool.Stats()
	assert.True(t, stats.Initialized)
	assert.Equal(t, 2, stats.Idle)
	assert.Equal(t, 0, stats.CheckedOut)
	assert.Equal(t, 5, stats.MaxSize)
	assert.True(t, logSpy.HasLogWithMessage(slog.LevelInfo, logMsgOperation+logActionInitialize).
		WithAttr(logAttrAdapter, "fake").
		Assert())
}

func Test_Pool_Initialize_When_Warmup_Fails(t *testing.T) {
	// setup
	db := newFakeAdapter()
	db.connectErr = errors.New("connection refused")
	pool, err := newPool(db, testPoolConfig(2, 5, time.Second))
	require.NoError(t, err)

	// act
	err = pool.Initialize(context.Background())

	// assert
	assert.ErrorIs(t, err, fakersql.ErrConnectingFailed)
	assert.ErrorContains(t, err, "connection refused")
	assert.False(t, pool.Stats().Initialized)

	_, acquireErr := pool.Acquire(context.Background())
	assert.ErrorIs(t, acquireErr, fakersql.ErrPoolNotInitialized)
}

func Test_Pool_Initialize_When_Driver_Capacity_Is_Too_Small(t *testing.T) {
	// setup
	db := newFakeAdapter()
	db.capacityErr = errors.New("pgx pool MaxConns is 4, need at least 10")
	logSpy := helper.NewLogHandlerSpy(false)

	// act
	pool := newInitializedTestPool(t, db, testPoolConfig(1, 10, time.Second), WithLogger(slog.New(logSpy)))

	// assert
	assert.True(t, pool.Stats().Initialized)
	assert.True(t, logSpy.HasLog(slog.LevelWarn, logMsgCapacityBelowMaxSize))
}

func Test_Pool_Never_Hands_Out_More_Than_MaxSize_Concurrently(t *testing.T) {
	// setup
	const maxSize = 3
	const workers = 25

	db := newFakeAdapter()
	pool := newInitializedTestPool(t, db, testPoolConfig(1, maxSize, 5*time.Second))

	var live, peak atomic.Int64
	var wg sync.WaitGroup
	errs := make(chan error, workers)

	// act
	for range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()

			conn, err := pool.Acquire(context.Background())
			if err != nil {
				errs <- err
				return
			}

			current := live.Add(1)
			for {
				observed := peak.Load()
				if current <= observed || peak.CompareAndSwap(observed, current) {
					break
				}
			}

			time.Sleep(5 * time.Millisecond)
			live.Add(-1)

			errs <- pool.Release(conn)
		}()
	}

	wg.Wait()
	close(errs)

	// assert
	for err := range errs {
		require.NoError(t, err)
	}

	assert.LessOrEqual(t, peak.Load(), int64(maxSize))
	assert.LessOrEqual(t, db.snapshot().opened, maxSize)

	stats := pool.Stats()
	assert.Equal(t, 0, stats.CheckedOut)
	assert.LessOrEqual(t, stats.Total, maxSize)
	assert.Equal(t, int64(workers), stats.AcquireCount)
}

func Test_Pool_Acquire_When_Exhausted(t *testing.T) {
	// setup
	const acquireTimeout = 50 * time.Millisecond

	metricsSpy := helper.NewMetricsCollectorSpy(true)
	pool := newInitializedTestPool(t, newFakeAdapter(), testPoolConfig(1, 1, acquireTimeout), WithMetrics(metricsSpy))

	// arrange
	held, err := pool.Acquire(context.Background())
	require.NoError(t, err)

	// act
	start := time.Now()
	_, err = pool.Acquire(context.Background())
	elapsed := time.Since(start)

	// assert
	assert.ErrorIs(t, err, fakersql.ErrPoolExhausted)
	assert.NotErrorIs(t, err, fakersql.ErrAcquireCanceled)
	assert.GreaterOrEqual(t, elapsed, acquireTimeout)
	assert.Less(t, elapsed, 2*time.Second)
	assert.Equal(t, int64(1), pool.Stats().ExhaustedCount)
	assert.Equal(t, 1, metricsSpy.CountCounterRecords(metricPoolExhausted, nil))

	require.NoError(t, pool.Release(held))
}

func Test_Pool_Acquire_When_Context_Is_Canceled_While_Waiting(t *testing.T) {
	// setup
	pool := newInitializedTestPool(t, newFakeAdapter(), testPoolConfig(1, 1, 5*time.Second))

	// arrange
	held, err := pool.Acquire(context.Background())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	time.AfterFunc(20*time.Millisecond, cancel)

	// act
	start := time.Now()
	_, err = pool.Acquire(ctx)
	elapsed := time.Since(start)

	// assert
	assert.ErrorIs(t, err, fakersql.ErrAcquireCanceled)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Less(t, elapsed, time.Second)
	assert.Equal(t, int64(1), pool.Stats().CanceledCount)

	// the canceled waiter must not hold a slot
	require.NoError(t, pool.Release(held))

	quickCtx, quickCancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
	defer quickCancel()

	conn, err := pool.Acquire(quickCtx)
	require.NoError(t, err)
	require.NoError(t, pool.Release(conn))
}

func Test_Pool_Acquire_When_Context_Is_Already_Canceled(t *testing.T) {
	// setup
	pool := newInitializedTestPool(t, newFakeAdapter(), testPoolConfig(0, 1, time.Second))

	// arrange
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	// act
	conn, err := pool.Acquire(ctx)

	// assert
	if err == nil {
		// the semaphore may grant a free slot before it looks at ctx
		require.NoError(t, pool.Release(conn))
		return
	}

	assert.ErrorIs(t, err, fakersql.ErrAcquireCanceled)
	assert.Equal(t, 0, pool.Stats().CheckedOut)
}

func Test_Pool_Release_Twice_Fails_Fast(t *testing.T) {
	// setup
	pool := newInitializedTestPool(t, newFakeAdapter(), testPoolConfig(0, 2, time.Second))

	// arrange
	conn, err := pool.Acquire(context.Background())
	require.NoError(t, err)
	require.NoError(t, pool.Release(conn))

	// act
	err = pool.Release(conn)

	// assert
	assert.ErrorIs(t, err, fakersql.ErrConnectionNotCheckedOut)

	stats := pool.Stats()
	assert.Equal(t, 1, stats.Idle)
	assert.Equal(t, 0, stats.CheckedOut)
}

func Test_Pool_Release_When_Connection_Is_Foreign_Or_Nil(t *testing.T) {
	// setup
	pool := newInitializedTestPool(t, newFakeAdapter(), testPoolConfig(0, 2, time.Second))
	otherPool := newInitializedTestPool(t, newFakeAdapter(), testPoolConfig(0, 2, time.Second))

	// arrange
	foreign, err := otherPool.Acquire(context.Background())
	require.NoError(t, err)

	// act
	foreignErr := pool.Release(foreign)
	nilErr := pool.Release(nil)

	// assert
	assert.ErrorIs(t, foreignErr, fakersql.ErrConnectionNotCheckedOut)
	assert.ErrorIs(t, nilErr, fakersql.ErrConnectionNotCheckedOut)
	assert.Equal(t, 1, otherPool.Stats().CheckedOut)

	require.NoError(t, otherPool.Release(foreign))
}

func Test_Pool_Release_When_Connection_Is_Broken(t *testing.T) {
	// setup
	db := newFakeAdapter()
	pool := newInitializedTestPool(t, db, testPoolConfig(0, 2, time.Second))

	// arrange
	conn, err := pool.Acquire(context.Background())
	require.NoError(t, err)
	conn.raw.(*fakeConn).closed.Store(true)

	// act
	err = pool.Release(conn)

	// assert
	require.NoError(t, err)
	assert.Equal(t, 0, pool.Stats().Idle)
	assert.Equal(t, 1, db.snapshot().discarded)
}

func Test_Pool_Discard(t *testing.T) {
	// setup
	db := newFakeAdapter()
	pool := newInitializedTestPool(t, db, testPoolConfig(1, 1, 100*time.Millisecond))

	// arrange
	conn, err := pool.Acquire(context.Background())
	require.NoError(t, err)

	// act
	err = pool.Discard(context.Background(), conn)

	// assert
	require.NoError(t, err)
	assert.Equal(t, 1, db.snapshot().discarded)
	assert.Equal(t, 1, pool.Stats().Idle, "a replacement keeps MinSize warm")

	next, err := pool.Acquire(context.Background())
	require.NoError(t, err, "discard must return the slot")
	assert.NotSame(t, conn, next)
	assert.Equal(t, 2, db.snapshot().opened)
	require.NoError(t, pool.Release(next))
}

func Test_Pool_Acquire_Replaces_Broken_Idle_Connection(t *testing.T) {
	// setup
	db := newFakeAdapter()
	pool := newInitializedTestPool(t, db, testPoolConfig(1, 1, time.Second))

	// arrange
	conn, err := pool.Acquire(context.Background())
	require.NoError(t, err)
	require.NoError(t, pool.Release(conn))
	conn.raw.(*fakeConn).closed.Store(true)

	// act
	next, err := pool.Acquire(context.Background())

	// assert
	require.NoError(t, err)
	assert.NotSame(t, conn, next)
	assert.Equal(t, 1, db.snapshot().discarded)
	assert.Equal(t, 2, db.snapshot().opened)
	require.NoError(t, pool.Release(next))
}

func Test_Pool_Acquire_When_Connecting_Fails(t *testing.T) {
	// setup
	db := newFakeAdapter()
	pool := newInitializedTestPool(t, db, testPoolConfig(0, 1, 100*time.Millisecond))

	// arrange
	db.set(func(a *fakeAdapter) { a.connectErr = errors.New("too many clients") })

	// act
	_, err := pool.Acquire(context.Background())

	// assert
	assert.ErrorIs(t, err, fakersql.ErrConnectingFailed)
	assert.ErrorContains(t, err, "too many clients")
	assert.Equal(t, 0, pool.Stats().CheckedOut)

	// the failed attempt must not keep the only slot
	db.set(func(a *fakeAdapter) { a.connectErr = nil })
	conn, err := pool.Acquire(context.Background())
	require.NoError(t, err)
	require.NoError(t, pool.Release(conn))
}

func Test_Pool_CloseAll(t *testing.T) {
	// setup
	db := newFakeAdapter()
	pool, err := newPool(db, testPoolConfig(2, 3, time.Second))
	require.NoError(t, err)
	require.NoError(t, pool.Initialize(context.Background()))

	// arrange
	inFlight, err := pool.Acquire(context.Background())
	require.NoError(t, err)

	// act
	err = pool.CloseAll(context.Background())

	// assert
	require.NoError(t, err)
	assert.Equal(t, 1, db.snapshot().discarded, "the idle connection is closed")

	_, acquireErr := pool.Acquire(context.Background())
	assert.ErrorIs(t, acquireErr, fakersql.ErrPoolNotInitialized)

	require.NoError(t, pool.Release(inFlight))
	assert.Equal(t, 2, db.snapshot().discarded, "the in-flight connection is closed on release")
	assert.Equal(t, 0, pool.Stats().Idle)

	require.NoError(t, pool.CloseAll(context.Background()), "closing twice is a no-op")
}

func Test_Pool_Initialize_After_CloseAll_Starts_A_New_Generation(t *testing.T) {
	// setup
	db := newFakeAdapter()
	pool, err := newPool(db, testPoolConfig(1, 2, 100*time.Millisecond))
	require.NoError(t, err)
	require.NoError(t, pool.Initialize(context.Background()))

	// arrange
	old, err := pool.Acquire(context.Background())
	require.NoError(t, err)
	require.NoError(t, pool.CloseAll(context.Background()))

	// act
	require.NoError(t, pool.Initialize(context.Background()))
	fresh, err := pool.Acquire(context.Background())

	// assert
	require.NoError(t, err)
	assert.NotSame(t, old, fresh)
	require.NoError(t, pool.Release(old))
	assert.True(t, old.raw.IsClosed(), "connections of the old generation are closed on release")
	require.NoError(t, pool.Release(fresh))
	assert.Equal(t, 1, pool.Stats().Idle)

	require.NoError(t, pool.CloseAll(context.Background()))
}

func Test_Pool_Initialize_After_CloseAll_Counts_Old_Connections_Against_MaxSize(t *testing.T) {
	// setup
	db := newFakeAdapter()
	pool, err := newPool(db, testPoolConfig(1, 1, 50*time.Millisecond))
	require.NoError(t, err)
	require.NoError(t, pool.Initialize(context.Background()))
	t.Cleanup(func() { _ = pool.CloseAll(context.Background()) })

	// arrange
	old, err := pool.Acquire(context.Background())
	require.NoError(t, err)
	require.NoError(t, pool.CloseAll(context.Background()))
	require.NoError(t, pool.Initialize(context.Background()))

	// act
	_, acquireErr := pool.Acquire(context.Background())

	// assert
	assert.ErrorIs(t, acquireErr, fakersql.ErrPoolExhausted)

	stats := pool.Stats()
	assert.LessOrEqual(t, stats.CheckedOut, 1)
	assert.LessOrEqual(t, stats.Total, 1)

	// arrange
	require.NoError(t, pool.Release(old))

	// act
	fresh, err := pool.Acquire(context.Background())

	// assert
	require.NoError(t, err, "releasing the old connection frees its slot")
	assert.NotSame(t, old, fresh)
	assert.Equal(t, 1, pool.Stats().Total)
	require.NoError(t, pool.Release(fresh))
}

func Test_Pool_Discard_Keeps_MinSize_Warm(t *testing.T) {
	// setup
	const units = 1000

	db := newFakeAdapter()
	pool := newInitializedTestPool(t, db, testPoolConfig(2, 3, time.Second))

	// act
	for range units {
		conn, err := pool.Acquire(context.Background())
		require.NoError(t, err)
		conn.raw.(*fakeConn).closed.Store(true)
		require.NoError(t, pool.Release(conn))
	}

	// assert
	stats := pool.Stats()
	assert.Equal(t, 2, stats.Idle)
	assert.Equal(t, 2, stats.Total)
	assert.Equal(t, 0, stats.CheckedOut)
	assert.Equal(t, units, db.snapshot().discarded)
}

func Test_Pool_Discard_When_Replacement_Cannot_Be_Opened(t *testing.T) {
	// setup
	logSpy := helper.NewLogHandlerSpy(false)
	db := newFakeAdapter()
	pool := newInitializedTestPool(t, db, testPoolConfig(1, 2, time.Second), WithLogger(slog.New(logSpy)))

	// arrange
	conn, err := pool.Acquire(context.Background())
	require.NoError(t, err)
	db.set(func(a *fakeAdapter) { a.connectErr = errors.New("too many clients") })

	// act
	err = pool.Discard(context.Background(), conn)

	// assert
	require.NoError(t, err)
	assert.Equal(t, 0, pool.Stats().Total)
	assert.True(t, logSpy.HasLog(slog.LevelWarn, logMsgTopUpFailed))

	// the pool recovers on the next acquire
	db.set(func(a *fakeAdapter) { a.connectErr = nil })
	next, err := pool.Acquire(context.Background())
	require.NoError(t, err)
	require.NoError(t, pool.Release(next))
}

func Test_Pool_Prefers_Contextual_Logger(t *testing.T) {
	// setup
	logSpy := helper.NewLogHandlerSpy(false)
	contextualSpy := helper.NewContextualLoggerSpy()

	type ctxKey struct{}
	ctx := context.WithValue(context.Background(), ctxKey{}, "request-1")

	pool, err := newPool(
		newFakeAdapter(),
		testPoolConfig(1, 1, time.Second),
		WithLogger(slog.New(logSpy)),
		WithContextualLogger(contextualSpy),
	)
	require.NoError(t, err)

	// act
	require.NoError(t, pool.Initialize(ctx))
	defer func() { _ = pool.CloseAll(context.Background()) }()

	// assert
	assert.True(t, contextualSpy.HasLog(helper.LevelInfo, logMsgOperation+logActionInitialize))
	assert.Equal(t, "request-1", contextualSpy.GetRecords(helper.LevelInfo)[0].Context.Value(ctxKey{}))
	assert.Equal(t, 0, logSpy.GetRecordCount())
}
