package fakersql

import (
	"errors"
	"fmt"
	"time"
)

const (
	// DefaultMinPoolSize mirrors DB_MIN_CONN's default.
	DefaultMinPoolSize = 1

	// DefaultMaxPoolSize mirrors DB_MAX_CONN's default.
	DefaultMaxPoolSize = 10

	// DefaultAcquireTimeout bounds how long Acquire waits for a free connection.
	DefaultAcquireTimeout = 5 * time.Second
)

// PoolConfig describes the connection target and the bounds of the connection pool.
type PoolConfig struct {
	// DSN is either a URL (postgres://...) or a libpq key=value connection string.
	DSN            string
	MinSize        int
	MaxSize        int
	AcquireTimeout time.Duration
}

// DefaultPoolConfig returns a PoolConfig with the default bounds for the given DSN.
func DefaultPoolConfig(dsn string) PoolConfig {
	return PoolConfig{
		DSN:            dsn,
		MinSize:        DefaultMinPoolSize,
		MaxSize:        DefaultMaxPoolSize,
		AcquireTimeout: DefaultAcquireTimeout,
	}
}

// Validate checks 0 <= MinSize <= MaxSize and MaxSize >= 1.
func (c PoolConfig) Validate() error {
	switch {
	case c.MinSize < 0:
		return errors.Join(ErrInvalidPoolConfig, fmt.Errorf("min size %d is negative", c.MinSize))
	case c.MaxSize < 1:
		return errors.Join(ErrInvalidPoolConfig, fmt.Errorf("max size %d must be at least 1", c.MaxSize))
	case c.MinSize > c.MaxSize:
		return errors.Join(ErrInvalidPoolConfig, fmt.Errorf("min size %d exceeds max size %d", c.MinSize, c.MaxSize))
	case c.AcquireTimeout < 0:
		return errors.Join(ErrInvalidPoolConfig, fmt.Errorf("acquire timeout %s is negative", c.AcquireTimeout))
	}

	return nil
}

// EffectiveAcquireTimeout returns AcquireTimeout or DefaultAcquireTimeout when it is zero.
func (c PoolConfig) EffectiveAcquireTimeout() time.Duration {
	if c.AcquireTimeout == 0 {
		return DefaultAcquireTimeout
	}

	return c.AcquireTimeout
}
