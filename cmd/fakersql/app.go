package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	jsoniter "github.com/json-iterator/go"

	"github.com/AntonStoeckl/fakersql-go/fakersql/localecache"
	"github.com/AntonStoeckl/fakersql-go/fakersql/postgresengine"
	"github.com/AntonStoeckl/fakersql-go/shell/config"
	"github.com/AntonStoeckl/fakersql-go/shell/observability"
)

var jsonAPI = jsoniter.ConfigCompatibleWithStandardLibrary

// app is the wired process: config, telemetry, the initialized pool and the service on top.
type app struct {
	cfg       config.Config
	telemetry *observability.Telemetry
	db        *config.Database
	cache     localecache.Cache
	service   *postgresengine.FakerService
}

func loadConfig(flags *rootFlags) (config.Config, error) {
	cfg, err := config.Load(flags.configPath)
	if err != nil {
		return config.Config{}, err
	}

	if flags.logLevel != "" {
		cfg.Log.Level = flags.logLevel
	}

	return cfg, nil
}

func newApp(ctx context.Context, cfg config.Config) (*app, error) {
	telemetry, err := observability.Setup(ctx, cfg, os.Stderr)
	if err != nil {
		return nil, fmt.Errorf("setup telemetry: %w", err)
	}

	a := &app{cfg: cfg, telemetry: telemetry}

	if a.db, err = config.OpenDatabase(ctx, cfg, telemetry.PoolOptions()...); err != nil {
		return nil, errors.Join(err, a.close(ctx))
	}

	if err = a.db.Pool.Initialize(ctx); err != nil {
		return nil, errors.Join(fmt.Errorf("initialize pool: %s", config.RedactDSN(err.Error())), a.close(ctx))
	}

	if err = telemetry.RegisterPool(a.db.Pool); err != nil {
		return nil, errors.Join(err, a.close(ctx))
	}

	if a.cache, err = newLocaleCache(ctx, cfg); err != nil {
		return nil, errors.Join(err, a.close(ctx))
	}

	var serviceOptions []postgresengine.ServiceOption
	if a.cache != nil {
		serviceOptions = append(serviceOptions, postgresengine.WithLocaleCache(a.cache, cfg.LocaleCache.TTL))
	}

	if a.service, err = postgresengine.NewFakerService(a.db.Pool, serviceOptions...); err != nil {
		return nil, errors.Join(err, a.close(ctx))
	}

	return a, nil
}

// newLocaleCache returns nil when caching is disabled.
func newLocaleCache(ctx context.Context, cfg config.Config) (localecache.Cache, error) {
	if cfg.LocaleCache.TTL == 0 {
		return nil, nil //nolint:nilnil
	}

	if cfg.LocaleCache.Backend != config.CacheBackendRedis {
		return localecache.NewInMemoryCache(), nil
	}

	cache := localecache.NewRedisCache(localecache.RedisConfig{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})

	if err := cache.Ping(ctx); err != nil {
		_ = cache.Close()
		return nil, fmt.Errorf("connect locale cache: %w", err)
	}

	return cache, nil
}

// close releases everything newApp created, in reverse order.
func (a *app) close(ctx context.Context) error {
	var errs []error

	if a.cache != nil {
		errs = append(errs, a.cache.Close())
	}

	if a.db != nil {
		errs = append(errs, a.db.Close(ctx))
	}

	errs = append(errs, a.telemetry.Shutdown(ctx))

	return errors.Join(errs...)
}

func writeJSON(w io.Writer, v any) error {
	data, err := jsonAPI.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}

	_, err = fmt.Fprintln(w, string(data))

	return err
}
