package cache

import (
	"context"
	"time"

	"github.com/dgraph-io/ristretto"
)

const (
	defaultNumCounters = 10_000 // 10x expected max entries for admission policy
	defaultMaxCost     = 1 << 24
	defaultBufferItems = 64
)

// MemoryTierConfig configures the in-process tier.
type MemoryTierConfig struct {
	NumCounters int64
	MaxCost     int64
	BufferItems int64
	TTL         time.Duration
}

// MemoryTier is the fastest tier: a bounded in-process cache with TTL
// eviction. Entries evicted here are recovered from the slower tiers via
// promotion-on-hit.
type MemoryTier struct {
	cache *ristretto.Cache
	ttl   time.Duration
}

// NewMemoryTier creates the in-process tier.
func NewMemoryTier(cfg MemoryTierConfig) (*MemoryTier, error) {
	if cfg.NumCounters <= 0 {
		cfg.NumCounters = defaultNumCounters
	}
	if cfg.MaxCost <= 0 {
		cfg.MaxCost = defaultMaxCost
	}
	if cfg.BufferItems <= 0 {
		cfg.BufferItems = defaultBufferItems
	}

	cache, err := ristretto.NewCache(&ristretto.Config{
		NumCounters: cfg.NumCounters,
		MaxCost:     cfg.MaxCost,
		BufferItems: cfg.BufferItems,
	})
	if err != nil {
		return nil, err
	}

	return &MemoryTier{cache: cache, ttl: cfg.TTL}, nil
}

func (t *MemoryTier) Name() string { return "memory" }

func (t *MemoryTier) Get(ctx context.Context, key Key) (*Entry, bool, error) {
	value, found := t.cache.Get(key.String())
	if !found {
		return nil, false, nil
	}
	entry, ok := value.(*Entry)
	if !ok {
		return nil, false, ErrMalformedRecord
	}
	e := *entry
	e.Key = key
	e.Tier = t.Name()
	return &e, true, nil
}

func (t *MemoryTier) Set(ctx context.Context, key Key, entry *Entry) error {
	cost := int64(len(entry.Value) + len(entry.Query) + 64)
	t.cache.SetWithTTL(key.String(), entry, cost, t.ttl)
	return nil
}

// Wait blocks until buffered writes are applied. Used by tests and by
// callers that need read-your-write visibility on this tier.
func (t *MemoryTier) Wait() { t.cache.Wait() }

// Close releases the tier's resources.
func (t *MemoryTier) Close() { t.cache.Close() }
