package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryCacheRoundTrip(t *testing.T) {
	c := NewMemoryCache(time.Minute, time.Minute)
	ctx := context.Background()

	_, found := c.Get(ctx, "missing")
	assert.False(t, found)

	require.NoError(t, c.Set(ctx, "geocode:11.49850,79.76440", []byte(`{"City":"Parangipettai"}`), time.Minute))

	val, found := c.Get(ctx, "geocode:11.49850,79.76440")
	require.True(t, found)
	assert.Equal(t, []byte(`{"City":"Parangipettai"}`), val)
}

func TestMemoryCacheIgnoresForeignEntryType(t *testing.T) {
	c := NewMemoryCache(time.Minute, time.Minute)

	// Write past the typed API; a mismatched entry must read as a miss,
	// not panic.
	c.cache.Set("k", 42, time.Minute)

	val, found := c.Get(context.Background(), "k")
	assert.False(t, found)
	assert.Nil(t, val)
}

func TestMemoryCacheExpiry(t *testing.T) {
	c := NewMemoryCache(time.Minute, time.Minute)
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "k", []byte("v"), 10*time.Millisecond))
	time.Sleep(30 * time.Millisecond)

	_, found := c.Get(ctx, "k")
	assert.False(t, found)
}
