package postgresengine

import (
	"context"
	"errors"
	"time"

	jsoniter "github.com/json-iterator/go"

	"github.com/AntonStoeckl/fakersql-go/fakersql"
	"github.com/AntonStoeckl/fakersql-go/fakersql/localecache"
)

const (
	localesCacheKey = "locales"

	logMsgLocaleCacheReadFailed  = "failed to read locales from cache"
	logMsgLocaleCacheWriteFailed = "failed to write locales to cache"
	logMsgLocaleCacheDecode      = "failed to decode cached locales"
)

var jsonAPI = jsoniter.ConfigCompatibleWithStandardLibrary

// LocaleCache is the subset of localecache.Cache the FakerService needs.
type LocaleCache interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}

// FakerService exposes the backing-store procedures as typed operations.
// Every operation runs in its own read-only unit of work.
type FakerService struct {
	pool           *Pool
	invoker        *Invoker
	localeCache    LocaleCache
	localeCacheTTL time.Duration
}

// ServiceOption configures a FakerService.
type ServiceOption func(*FakerService) error

// WithLocaleCache enables read-through caching of the locale list for ttl.
// A ttl of zero keeps caching disabled, so every lookup queries the backing store.
func WithLocaleCache(cache LocaleCache, ttl time.Duration) ServiceOption {
	return func(s *FakerService) error {
		if ttl < 0 {
			return errors.New("locale cache ttl must not be negative")
		}

		if cache != nil && ttl > 0 {
			s.localeCache = cache
			s.localeCacheTTL = ttl
		}

		return nil
	}
}

// NewFakerService creates a FakerService on top of an initialized or to-be-initialized Pool.
func NewFakerService(pool *Pool, options ...ServiceOption) (*FakerService, error) {
	if pool == nil {
		return nil, fakersql.ErrNilDatabaseConnection
	}

	s := &FakerService{
		pool:    pool,
		invoker: pool.Invoker(),
	}

	for _, option := range options {
		if err := option(s); err != nil {
			return nil, err
		}
	}

	return s, nil
}

// Pool returns the underlying connection pool.
func (s *FakerService) Pool() *Pool {
	return s.pool
}

// GetLocales returns all available locales in backing-store order.
func (s *FakerService) GetLocales(ctx context.Context) ([]fakersql.Locale, error) {
	if cached, ok := s.cachedLocales(ctx); ok {
		return cached, nil
	}

	rows, err := s.call(ctx, fakersql.ProcedureCall{Name: fakersql.ProcGetAvailableLocales})
	if err != nil {
		return nil, err
	}

	locales := fakersql.LocalesFromRows(rows)
	s.cacheLocales(ctx, locales)

	return locales, nil
}

// ValidateLocale reports whether code is one of the available locales.
// Without a locale cache this queries the backing store on every call.
func (s *FakerService) ValidateLocale(ctx context.Context, code string) (bool, error) {
	locales, err := s.GetLocales(ctx)
	if err != nil {
		return false, err
	}

	return fakersql.ValidateLocale(code, locales), nil
}

// GenerateUsers generates one batch of fake users. The same params always yield the same users.
func (s *FakerService) GenerateUsers(ctx context.Context, params fakersql.ValidatedParams) ([]fakersql.FakeUser, error) {
	call, err := fakersql.NewProcedureCall(
		fakersql.ProcGenerateFakeUsers,
		params.Locale,
		params.Seed,
		params.BatchIndex,
		params.BatchSize,
		params.IncludeBio,
	)
	if err != nil {
		return nil, err
	}

	rows, err := s.call(ctx, call)
	if err != nil {
		return nil, err
	}

	return fakersql.FakeUsersFromRows(rows), nil
}

// RunBenchmark runs the generation benchmark procedure for a locale.
func (s *FakerService) RunBenchmark(ctx context.Context, locale string, iterations int) (fakersql.BenchmarkResult, error) {
	call, err := fakersql.NewProcedureCall(fakersql.ProcBenchmarkGeneration, locale, iterations)
	if err != nil {
		return fakersql.BenchmarkResult{}, err
	}

	rows, err := s.call(ctx, call)
	if err != nil {
		return fakersql.BenchmarkResult{}, err
	}

	return fakersql.BenchmarkResultFromRows(rows), nil
}

// InvalidateLocales drops the cached locale list, if caching is enabled.
func (s *FakerService) InvalidateLocales(ctx context.Context) error {
	if s.localeCache == nil {
		return nil
	}

	return s.localeCache.Delete(ctx, localesCacheKey)
}

func (s *FakerService) call(ctx context.Context, call fakersql.ProcedureCall) (fakersql.ResultRows, error) {
	var rows fakersql.ResultRows

	err := s.pool.Run(ctx, ReadOnly, func(ctx context.Context, conn *Conn) error {
		var callErr error
		rows, callErr = s.invoker.Call(ctx, conn, call)

		return callErr
	})
	if err != nil {
		return nil, err
	}

	return rows, nil
}

func (s *FakerService) cachedLocales(ctx context.Context) ([]fakersql.Locale, bool) {
	if s.localeCache == nil {
		return nil, false
	}

	data, err := s.localeCache.Get(ctx, localesCacheKey)
	if err != nil {
		if !errors.Is(err, localecache.ErrNotFound) {
			s.pool.logWarning(ctx, logMsgLocaleCacheReadFailed, err)
		}

		return nil, false
	}

	var locales []fakersql.Locale
	if err := jsonAPI.Unmarshal(data, &locales); err != nil {
		s.pool.logWarning(ctx, logMsgLocaleCacheDecode, err)
		return nil, false
	}

	return locales, true
}

func (s *FakerService) cacheLocales(ctx context.Context, locales []fakersql.Locale) {
	if s.localeCache == nil {
		return
	}

	data, err := jsonAPI.Marshal(locales)
	if err != nil {
		s.pool.logWarning(ctx, logMsgLocaleCacheWriteFailed, err)
		return
	}

	if err := s.localeCache.Set(ctx, localesCacheKey, data, s.localeCacheTTL); err != nil {
		s.pool.logWarning(ctx, logMsgLocaleCacheWriteFailed, err)
	}
}
