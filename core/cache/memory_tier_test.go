package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryTier_RoundTrip(t *testing.T) {
	ctx := context.Background()
	tier, err := NewMemoryTier(MemoryTierConfig{TTL: time.Hour})
	require.NoError(t, err)
	defer tier.Close()

	key := QueryKey("vid-1", "what is go")
	created := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	require.NoError(t, tier.Set(ctx, key, &Entry{Value: "a language", Query: "what is go", CreatedAt: created}))
	tier.Wait()

	entry, ok, err := tier.Get(ctx, key)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "a language", entry.Value)
	assert.Equal(t, "memory", entry.Tier)
}

func TestMemoryTier_MissingIsMiss(t *testing.T) {
	tier, err := NewMemoryTier(MemoryTierConfig{TTL: time.Hour})
	require.NoError(t, err)
	defer tier.Close()

	_, ok, err := tier.Get(context.Background(), VideoKey("never-stored"))
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestMemoryTier_GetReturnsCopy(t *testing.T) {
	ctx := context.Background()
	tier, err := NewMemoryTier(MemoryTierConfig{TTL: time.Hour})
	require.NoError(t, err)
	defer tier.Close()

	key := QueryKey("vid-1", "query")
	require.NoError(t, tier.Set(ctx, key, &Entry{Value: "original", Query: "query", CreatedAt: time.Now()}))
	tier.Wait()

	first, ok, err := tier.Get(ctx, key)
	require.NoError(t, err)
	require.True(t, ok)
	first.Value = "mutated"

	second, ok, err := tier.Get(ctx, key)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "original", second.Value, "callers must not be able to mutate cached state")
}
