// Package config loads the service configuration: defaults, then an optional YAML file,
// then environment overrides. It also builds the driver pools for the configured adapter.
package config

import (
	"errors"
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/AntonStoeckl/fakersql-go/fakersql"
)

// Adapter names for DatabaseConfig.Adapter.
const (
	AdapterPGXPool = "pgx.pool"
	AdapterSQLDB   = "sql.db"
	AdapterSQLX    = "sqlx.db"
)

// Locale cache backends for LocaleCacheConfig.Backend.
const (
	CacheBackendMemory = "memory"
	CacheBackendRedis  = "redis"
)

var (
	// ErrInvalidConfig is returned when a value cannot be parsed or is out of range.
	ErrInvalidConfig = errors.New("invalid configuration")
)

// DatabaseConfig describes the backing store and the connection pool bounds.
type DatabaseConfig struct {
	URL            string        `yaml:"url"`
	Host           string        `yaml:"host"`
	Port           int           `yaml:"port"`
	Name           string        `yaml:"name"`
	User           string        `yaml:"user"`
	Password       string        `yaml:"password"`
	SSLMode        string        `yaml:"sslmode"`
	MinConn        int           `yaml:"min_conn"`
	MaxConn        int           `yaml:"max_conn"`
	AcquireTimeout time.Duration `yaml:"acquire_timeout"`
	Adapter        string        `yaml:"adapter"`
}

// HTTPConfig is the listen address of the API.
type HTTPConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// LogConfig selects the slog handler and level.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// GenerationConfig bounds user generation requests.
type GenerationConfig struct {
	MaxBatchSize int `yaml:"max_batch_size"`
}

// LocaleCacheConfig enables caching of the locale list. A TTL of zero disables it.
type LocaleCacheConfig struct {
	TTL     time.Duration `yaml:"ttl"`
	Backend string        `yaml:"backend"`
}

// RedisConfig holds Redis connection settings for the redis cache backend.
type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

// MetricsConfig toggles the Prometheus metrics collector and /metrics.
type MetricsConfig struct {
	Enabled bool `yaml:"enabled"`
}

// TracingConfig configures the OTLP/HTTP trace exporter. An empty endpoint disables tracing.
type TracingConfig struct {
	Endpoint    string  `yaml:"endpoint"`
	ServiceName string  `yaml:"service_name"`
	SampleRate  float64 `yaml:"sample_rate"`
}

// Config is the complete service configuration.
type Config struct {
	Database    DatabaseConfig    `yaml:"database"`
	HTTP        HTTPConfig        `yaml:"http"`
	Log         LogConfig         `yaml:"log"`
	Generation  GenerationConfig  `yaml:"generation"`
	LocaleCache LocaleCacheConfig `yaml:"locale_cache"`
	Redis       RedisConfig       `yaml:"redis"`
	Metrics     MetricsConfig     `yaml:"metrics"`
	Tracing     TracingConfig     `yaml:"tracing"`
}

// Default returns the configuration used when nothing is overridden.
func Default() Config {
	return Config{
		Database: DatabaseConfig{
			Host:           "localhost",
			Port:           5432,
			Name:           "faker_db",
			User:           "faker_user",
			Password:       "faker_password",
			SSLMode:        "disable",
			MinConn:        fakersql.DefaultMinPoolSize,
			MaxConn:        fakersql.DefaultMaxPoolSize,
			AcquireTimeout: fakersql.DefaultAcquireTimeout,
			Adapter:        AdapterPGXPool,
		},
		HTTP: HTTPConfig{
			Host: "0.0.0.0",
			Port: 5000,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
		Generation: GenerationConfig{
			MaxBatchSize: fakersql.DefaultMaxBatchSize,
		},
		LocaleCache: LocaleCacheConfig{
			Backend: CacheBackendMemory,
		},
		Redis: RedisConfig{
			Addr: "localhost:6379",
		},
		Tracing: TracingConfig{
			ServiceName: "fakersql",
			SampleRate:  1,
		},
	}
}

// Load returns Default, overridden by the YAML file at path (skipped when path is empty)
// and then by the environment. The result is validated.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config file: %w", err)
		}

		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, errors.Join(ErrInvalidConfig, fmt.Errorf("parse config file %s: %w", path, err))
		}
	}

	if err := applyEnv(&cfg, os.LookupEnv); err != nil {
		return Config{}, err
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

// Validate checks the values that cannot be checked by parsing alone.
func (c Config) Validate() error {
	if err := c.PoolConfig().Validate(); err != nil {
		return errors.Join(ErrInvalidConfig, err)
	}

	switch c.Database.Adapter {
	case AdapterPGXPool, AdapterSQLDB, AdapterSQLX:
	default:
		return errors.Join(ErrInvalidConfig, fmt.Errorf("unknown database adapter %q", c.Database.Adapter))
	}

	switch c.LocaleCache.Backend {
	case CacheBackendMemory, CacheBackendRedis:
	default:
		return errors.Join(ErrInvalidConfig, fmt.Errorf("unknown locale cache backend %q", c.LocaleCache.Backend))
	}

	if c.Generation.MaxBatchSize < 1 {
		return errors.Join(ErrInvalidConfig, fmt.Errorf("max batch size %d must be at least 1", c.Generation.MaxBatchSize))
	}

	if c.LocaleCache.TTL < 0 {
		return errors.Join(ErrInvalidConfig, fmt.Errorf("locale cache ttl %s is negative", c.LocaleCache.TTL))
	}

	if c.HTTP.Port < 0 || c.HTTP.Port > 65535 {
		return errors.Join(ErrInvalidConfig, fmt.Errorf("http port %d is out of range", c.HTTP.Port))
	}

	return nil
}

// DSN returns Database.URL if set, otherwise a libpq key=value connection string.
func (c Config) DSN() string {
	db := c.Database
	if db.URL != "" {
		return db.URL
	}

	parts := []string{
		"host=" + quoteDSNValue(db.Host),
		"port=" + strconv.Itoa(db.Port),
		"dbname=" + quoteDSNValue(db.Name),
		"user=" + quoteDSNValue(db.User),
		"password=" + quoteDSNValue(db.Password),
	}

	if db.SSLMode != "" {
		parts = append(parts, "sslmode="+quoteDSNValue(db.SSLMode))
	}

	return strings.Join(parts, " ")
}

// PoolConfig returns the pool bounds for the fakersql pool.
func (c Config) PoolConfig() fakersql.PoolConfig {
	return fakersql.PoolConfig{
		DSN:            c.DSN(),
		MinSize:        c.Database.MinConn,
		MaxSize:        c.Database.MaxConn,
		AcquireTimeout: c.Database.AcquireTimeout,
	}
}

// ListenAddr returns host:port for the HTTP server.
func (c Config) ListenAddr() string {
	return net.JoinHostPort(c.HTTP.Host, strconv.Itoa(c.HTTP.Port))
}

// quoteDSNValue quotes a libpq connection string value when it is empty or contains
// spaces, quotes or backslashes.
func quoteDSNValue(v string) string {
	if v != "" && !strings.ContainsAny(v, ` '\`) {
		return v
	}

	escaped := strings.NewReplacer(`\`, `\\`, `'`, `\'`).Replace(v)

	return "'" + escaped + "'"
}
