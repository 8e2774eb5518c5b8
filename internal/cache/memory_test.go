package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// cachedListing is a simple struct used for testing the generic memory cache.
type cachedListing struct {
	Data string
}

func TestMemoryGet_NotFound(t *testing.T) {
	ctx := context.Background()
	cache, err := NewMemory[cachedListing](time.Minute, 100)
	require.NoError(t, err)

	value, found, err := cache.Get(ctx, "nonexistent")

	assert.NoError(t, err)
	assert.False(t, found)
	assert.Equal(t, cachedListing{}, value)
}

func TestMemorySetAndGet_Success(t *testing.T) {
	ctx := context.Background()
	cache, err := NewMemory[cachedListing](time.Minute, 100)
	require.NoError(t, err)

	expected := cachedListing{Data: "testdata"}

	err = cache.Set(ctx, "test-key", expected)
	require.NoError(t, err)

	value, found, err := cache.Get(ctx, "test-key")

	assert.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, expected, value)
}

func TestMemorySet_Overwrites(t *testing.T) {
	ctx := context.Background()
	cache, err := NewMemory[cachedListing](time.Minute, 100)
	require.NoError(t, err)

	require.NoError(t, cache.Set(ctx, "test-key", cachedListing{Data: "first"}))
	require.NoError(t, cache.Set(ctx, "test-key", cachedListing{Data: "second"}))

	value, found, err := cache.Get(ctx, "test-key")
	assert.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, cachedListing{Data: "second"}, value)
}

func TestMemoryInvalidate_RemovesValue(t *testing.T) {
	ctx := context.Background()
	cache, err := NewMemory[cachedListing](time.Minute, 100)
	require.NoError(t, err)

	err = cache.Set(ctx, "test-key", cachedListing{Data: "testdata"})
	require.NoError(t, err)

	err = cache.Invalidate(ctx, "test-key")
	require.NoError(t, err)

	_, found, err := cache.Get(ctx, "test-key")
	assert.NoError(t, err)
	assert.False(t, found)
}

func TestMemoryClear_RemovesAllValues(t *testing.T) {
	ctx := context.Background()
	cache, err := NewMemory[cachedListing](time.Minute, 100)
	require.NoError(t, err)

	require.NoError(t, cache.Set(ctx, "a", cachedListing{Data: "a"}))
	require.NoError(t, cache.Set(ctx, "b", cachedListing{Data: "b"}))

	require.NoError(t, cache.Clear(ctx))

	_, found, err := cache.Get(ctx, "a")
	assert.NoError(t, err)
	assert.False(t, found)

	_, found, err = cache.Get(ctx, "b")
	assert.NoError(t, err)
	assert.False(t, found)
}

func TestMemoryTTLExpiry(t *testing.T) {
	ctx := context.Background()
	// Use very short TTL for testing
	cache, err := NewMemory[cachedListing](100*time.Millisecond, 100)
	require.NoError(t, err)

	err = cache.Set(ctx, "test-key", cachedListing{Data: "testdata"})
	require.NoError(t, err)

	// Verify value is present immediately
	_, found, err := cache.Get(ctx, "test-key")
	assert.NoError(t, err)
	assert.True(t, found)

	// Wait for TTL to expire
	time.Sleep(150 * time.Millisecond)

	// Verify value is no longer present
	_, found, err = cache.Get(ctx, "test-key")
	assert.NoError(t, err)
	assert.False(t, found)
}
