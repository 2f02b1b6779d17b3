package localecache_test

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AntonStoeckl/fakersql-go/fakersql/localecache"
)

func redisCacheForTest(t *testing.T) *localecache.RedisCache {
	t.Helper()

	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		addr = "localhost:6379"
	}

	// a unique prefix keeps parallel test runs apart
	cache := localecache.NewRedisCache(localecache.RedisConfig{
		Addr:      addr,
		KeyPrefix: "fakersql:test:" + uuid.NewString() + ":",
	})

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	if err := cache.Ping(ctx); err != nil {
		_ = cache.Close()
		t.Skipf("redis not reachable at %s: %v", addr, err)
	}

	t.Cleanup(func() { _ = cache.Close() })

	return cache
}

func Test_RedisCache_Roundtrip(t *testing.T) {
	// setup
	ctx := context.Background()
	cache := redisCacheForTest(t)

	// act
	_, missErr := cache.Get(ctx, "locales")
	require.NoError(t, cache.Set(ctx, "locales", []byte(`["en_US"]`), time.Minute))
	got, getErr := cache.Get(ctx, "locales")
	require.NoError(t, cache.Delete(ctx, "locales"))
	_, deletedErr := cache.Get(ctx, "locales")

	// assert
	assert.ErrorIs(t, missErr, localecache.ErrNotFound)
	require.NoError(t, getErr)
	assert.Equal(t, `["en_US"]`, string(got))
	assert.ErrorIs(t, deletedErr, localecache.ErrNotFound)
}

func Test_RedisCache_Get_When_Entry_Expired(t *testing.T) {
	// setup
	ctx := context.Background()
	cache := redisCacheForTest(t)

	// arrange
	require.NoError(t, cache.Set(ctx, "locales", []byte("x"), 50*time.Millisecond))

	// act
	time.Sleep(150 * time.Millisecond)
	_, err := cache.Get(ctx, "locales")

	// assert
	assert.ErrorIs(t, err, localecache.ErrNotFound)
}
