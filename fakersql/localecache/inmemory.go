package localecache

import (
	"context"
	"sync"
	"time"
)

// InMemoryCache is a process-local Cache. Expired entries are dropped lazily on access.
type InMemoryCache struct {
	mu      sync.RWMutex
	entries map[string]memEntry
	now     func() time.Time
	closed  bool
}

type memEntry struct {
	value     []byte
	expiresAt time.Time
}

func (e memEntry) expired(now time.Time) bool {
	return !e.expiresAt.IsZero() && now.After(e.expiresAt)
}

// NewInMemoryCache creates an empty in-memory cache.
func NewInMemoryCache() *InMemoryCache {
	return &InMemoryCache{
		entries: make(map[string]memEntry),
		now:     time.Now,
	}
}

// Get returns a copy of the stored value, or ErrNotFound if the key is missing or expired.
func (c *InMemoryCache) Get(_ context.Context, key string) ([]byte, error) {
	c.mu.RLock()
	entry, ok := c.entries[key]
	c.mu.RUnlock()

	if !ok {
		return nil, ErrNotFound
	}

	if entry.expired(c.now()) {
		c.mu.Lock()
		if current, still := c.entries[key]; still && current.expired(c.now()) {
			delete(c.entries, key)
		}
		c.mu.Unlock()

		return nil, ErrNotFound
	}

	return append([]byte(nil), entry.value...), nil
}

// Set stores a copy of value. A zero TTL means the entry does not expire.
// After Close, Set is a no-op.
func (c *InMemoryCache) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil
	}

	var expiresAt time.Time
	if ttl > 0 {
		expiresAt = c.now().Add(ttl)
	}

	c.entries[key] = memEntry{value: append([]byte(nil), value...), expiresAt: expiresAt}

	return nil
}

// Delete removes the key if present.
func (c *InMemoryCache) Delete(_ context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	delete(c.entries, key)

	return nil
}

// Ping always succeeds.
func (c *InMemoryCache) Ping(_ context.Context) error { return nil }

// Close drops all entries and turns later Set calls into no-ops.
func (c *InMemoryCache) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.closed = true
	c.entries = make(map[string]memEntry)

	return nil
}

var _ Cache = (*InMemoryCache)(nil)
