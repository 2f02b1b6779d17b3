package config

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

type lookupFunc func(key string) (string, bool)

// applyEnv overrides cfg with every set environment variable.
func applyEnv(cfg *Config, lookup lookupFunc) error {
	env := envReader{lookup: lookup}

	env.string("DATABASE_URL", &cfg.Database.URL)
	env.string("DB_HOST", &cfg.Database.Host)
	env.int("DB_PORT", &cfg.Database.Port)
	env.string("DB_NAME", &cfg.Database.Name)
	env.string("DB_USER", &cfg.Database.User)
	env.string("DB_PASSWORD", &cfg.Database.Password)
	env.string("DB_SSLMODE", &cfg.Database.SSLMode)
	env.int("DB_MIN_CONN", &cfg.Database.MinConn)
	env.int("DB_MAX_CONN", &cfg.Database.MaxConn)
	env.duration("DB_ACQUIRE_TIMEOUT", &cfg.Database.AcquireTimeout)
	env.string("DB_ADAPTER", &cfg.Database.Adapter)

	env.string("HTTP_HOST", &cfg.HTTP.Host)
	env.int("HTTP_PORT", &cfg.HTTP.Port)

	env.string("LOG_LEVEL", &cfg.Log.Level)
	env.string("LOG_FORMAT", &cfg.Log.Format)

	env.int("MAX_BATCH_SIZE", &cfg.Generation.MaxBatchSize)

	env.duration("LOCALE_CACHE_TTL", &cfg.LocaleCache.TTL)
	env.string("LOCALE_CACHE_BACKEND", &cfg.LocaleCache.Backend)

	env.string("REDIS_ADDR", &cfg.Redis.Addr)
	env.string("REDIS_PASSWORD", &cfg.Redis.Password)
	env.int("REDIS_DB", &cfg.Redis.DB)

	env.bool("METRICS_ENABLED", &cfg.Metrics.Enabled)

	env.string("OTEL_EXPORTER_OTLP_ENDPOINT", &cfg.Tracing.Endpoint)
	env.string("OTEL_SERVICE_NAME", &cfg.Tracing.ServiceName)

	return env.err()
}

type envReader struct {
	lookup lookupFunc
	errs   []error
}

func (r *envReader) value(key string) (string, bool) {
	v, ok := r.lookup(key)
	if !ok {
		return "", false
	}

	return strings.TrimSpace(v), true
}

func (r *envReader) string(key string, target *string) {
	if v, ok := r.value(key); ok && v != "" {
		*target = v
	}
}

func (r *envReader) int(key string, target *int) {
	v, ok := r.value(key)
	if !ok || v == "" {
		return
	}

	n, err := strconv.Atoi(v)
	if err != nil {
		r.errs = append(r.errs, fmt.Errorf("%s=%q is not an integer", key, v))
		return
	}

	*target = n
}

func (r *envReader) bool(key string, target *bool) {
	v, ok := r.value(key)
	if !ok || v == "" {
		return
	}

	b, err := strconv.ParseBool(v)
	if err != nil {
		r.errs = append(r.errs, fmt.Errorf("%s=%q is not a boolean", key, v))
		return
	}

	*target = b
}

// duration accepts Go durations ("2s", "500ms") and plain integers as seconds.
func (r *envReader) duration(key string, target *time.Duration) {
	v, ok := r.value(key)
	if !ok || v == "" {
		return
	}

	if seconds, err := strconv.Atoi(v); err == nil {
		*target = time.Duration(seconds) * time.Second
		return
	}

	d, err := time.ParseDuration(v)
	if err != nil {
		r.errs = append(r.errs, fmt.Errorf("%s=%q is not a duration", key, v))
		return
	}

	*target = d
}

func (r *envReader) err() error {
	if len(r.errs) == 0 {
		return nil
	}

	return errors.Join(append([]error{ErrInvalidConfig}, r.errs...)...)
}
