package cache

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// DefaultTTL is the process-wide entry lifetime.
const DefaultTTL = 24 * time.Hour

// ManagerConfig configures the tiered cache manager.
type ManagerConfig struct {
	// Tiers is the ordered probe list, fastest first. The last tier is the
	// durable source of truth; its write failures propagate to callers.
	Tiers []Tier

	// Records enumerates query history for approximate matching; usually the
	// file tier. Nil disables the fallback.
	Records QueryEnumerator

	// TTL for all entries. Zero means DefaultTTL.
	TTL time.Duration

	// SimilarityThreshold for the approximate-match fallback.
	SimilarityThreshold float64

	// Now is the clock, injectable for tests. Nil means time.Now.
	Now func() time.Time

	Logger *slog.Logger
}

// Manager orchestrates read-through and write-through across the cache
// tiers for video-processed markers and query responses. A hit found in a
// slower tier is promoted into every faster tier before being returned.
type Manager struct {
	tiers   []Tier
	similar *SimilarMatcher
	ttl     time.Duration
	now     func() time.Time
	logger  *slog.Logger
}

// NewManager creates a tiered cache manager.
func NewManager(cfg ManagerConfig) (*Manager, error) {
	if len(cfg.Tiers) == 0 {
		return nil, fmt.Errorf("cache manager: at least one tier is required")
	}
	if cfg.TTL <= 0 {
		cfg.TTL = DefaultTTL
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	m := &Manager{
		tiers:  cfg.Tiers,
		ttl:    cfg.TTL,
		now:    cfg.Now,
		logger: cfg.Logger,
	}
	if cfg.Records != nil {
		m.similar = NewSimilarMatcher(cfg.Records, cfg.SimilarityThreshold, cfg.TTL, cfg.Now, cfg.Logger)
	}
	return m, nil
}

// TTL returns the configured entry lifetime.
func (m *Manager) TTL() time.Duration { return m.ttl }

// HasProcessed reports whether the video has a valid processed marker in any
// tier. A pure miss has no side effects.
func (m *Manager) HasProcessed(ctx context.Context, videoID string) bool {
	_, ok := m.lookup(ctx, VideoKey(videoID))
	return ok
}

// MarkProcessed writes the processed marker through all tiers, stamped with
// the current time. Repeated calls refresh the timestamp.
func (m *Manager) MarkProcessed(ctx context.Context, videoID string) error {
	entry := &Entry{Value: "1", CreatedAt: m.now()}
	return m.writeThrough(ctx, VideoKey(videoID), entry)
}

// GetResponse returns the cached response for the query, normalizing the
// query before lookup. On a full miss across all tiers the approximate-match
// fallback is consulted; callers see ok=false only after both fail.
func (m *Manager) GetResponse(ctx context.Context, videoID, query string) (string, bool) {
	normalized := NormalizeQuery(query)
	if entry, ok := m.lookup(ctx, QueryKey(videoID, normalized)); ok {
		return entry.Value, true
	}
	if m.similar == nil {
		return "", false
	}
	return m.similar.FindSimilar(ctx, videoID, normalized)
}

// PutResponse writes the response through all tiers under the normalized
// query fingerprint. Last write wins; prior records with the same
// fingerprint are superseded, not merged.
func (m *Manager) PutResponse(ctx context.Context, videoID, query, response string) error {
	normalized := NormalizeQuery(query)
	entry := &Entry{Value: response, Query: normalized, CreatedAt: m.now()}
	return m.writeThrough(ctx, QueryKey(videoID, normalized), entry)
}

// lookup probes the tiers in order and promotes a valid hit into every
// faster tier. Expired entries are treated as absent and never promoted.
// Tier errors (unavailable storage, malformed records) demote to a miss on
// that tier only.
func (m *Manager) lookup(ctx context.Context, key Key) (*Entry, bool) {
	now := m.now()
	for i, tier := range m.tiers {
		entry, ok, err := tier.Get(ctx, key)
		if err != nil {
			m.logger.Warn("cache tier read failed", "tier", tier.Name(), "key", key.String(), "error", err)
			continue
		}
		if !ok {
			continue
		}
		if entry.Expired(now, m.ttl) {
			continue
		}
		m.promote(ctx, key, entry, m.tiers[:i])
		return entry, true
	}
	return nil, false
}

// promote copies a hit into the faster tiers, preserving the original
// timestamp so the entry's remaining lifetime is unchanged.
func (m *Manager) promote(ctx context.Context, key Key, entry *Entry, faster []Tier) {
	for _, tier := range faster {
		if err := tier.Set(ctx, key, entry); err != nil {
			m.logger.Warn("cache promotion failed", "tier", tier.Name(), "key", key.String(), "error", err)
		}
	}
}

// writeThrough stores the entry in every tier. Failures in non-durable
// tiers are logged and swallowed; a failure in the last (durable) tier is
// returned, since that tier is the source of truth.
func (m *Manager) writeThrough(ctx context.Context, key Key, entry *Entry) error {
	durable := len(m.tiers) - 1
	for i, tier := range m.tiers {
		err := tier.Set(ctx, key, entry)
		if err == nil {
			continue
		}
		if i == durable {
			return fmt.Errorf("cache write-through %s: %w", key, err)
		}
		m.logger.Warn("cache tier write failed", "tier", tier.Name(), "key", key.String(), "error", err)
	}
	return nil
}
