package localecache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func Test_InMemoryCache_Get_When_Key_Is_Missing(t *testing.T) {
	// setup
	cache := NewInMemoryCache()

	// act
	_, err := cache.Get(context.Background(), "locales")

	// assert
	assert.ErrorIs(t, err, ErrNotFound)
}

func Test_InMemoryCache_Set_Then_Get_Returns_A_Copy(t *testing.T) {
	// setup
	ctx := context.Background()
	cache := NewInMemoryCache()
	value := []byte(`[{"code":"en_US"}]`)

	// act
	require.NoError(t, cache.Set(ctx, "locales", value, time.Minute))
	value[0] = 'X'
	got, err := cache.Get(ctx, "locales")

	// assert
	require.NoError(t, err)
	assert.Equal(t, `[{"code":"en_US"}]`, string(got))
}

func Test_InMemoryCache_Get_When_Entry_Expired(t *testing.T) {
	// setup
	ctx := context.Background()
	cache := NewInMemoryCache()
	now := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	cache.now = func() time.Time { return now }

	// arrange
	require.NoError(t, cache.Set(ctx, "locales", []byte("x"), 30*time.Second))

	// act
	_, beforeErr := cache.Get(ctx, "locales")
	now = now.Add(31 * time.Second)
	_, afterErr := cache.Get(ctx, "locales")

	// assert
	assert.NoError(t, beforeErr)
	assert.ErrorIs(t, afterErr, ErrNotFound)
	assert.Empty(t, cache.entries)
}

func Test_InMemoryCache_Zero_TTL_Never_Expires(t *testing.T) {
	// setup
	ctx := context.Background()
	cache := NewInMemoryCache()
	now := time.Now()
	cache.now = func() time.Time { return now }

	// arrange
	require.NoError(t, cache.Set(ctx, "locales", []byte("x"), 0))
	now = now.Add(1000 * time.Hour)

	// act
	got, err := cache.Get(ctx, "locales")

	// assert
	require.NoError(t, err)
	assert.Equal(t, []byte("x"), got)
}

func Test_InMemoryCache_Delete_And_Close(t *testing.T) {
	// setup
	ctx := context.Background()
	cache := NewInMemoryCache()

	// arrange
	require.NoError(t, cache.Set(ctx, "a", []byte("1"), 0))
	require.NoError(t, cache.Set(ctx, "b", []byte("2"), 0))

	// act
	require.NoError(t, cache.Delete(ctx, "a"))
	require.NoError(t, cache.Delete(ctx, "does-not-exist"))
	_, errA := cache.Get(ctx, "a")
	_, errB := cache.Get(ctx, "b")
	require.NoError(t, cache.Close())
	_, errAfterClose := cache.Get(ctx, "b")
	require.NoError(t, cache.Set(ctx, "c", []byte("3"), 0))
	_, errSetAfterClose := cache.Get(ctx, "c")

	// assert
	assert.ErrorIs(t, errA, ErrNotFound)
	assert.NoError(t, errB)
	assert.ErrorIs(t, errAfterClose, ErrNotFound)
	assert.ErrorIs(t, errSetAfterClose, ErrNotFound)
	assert.NoError(t, cache.Ping(ctx))
}
