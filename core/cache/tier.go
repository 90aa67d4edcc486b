package cache

import (
	"context"
	"errors"
)

// ErrMalformedRecord is returned by a tier when a persisted entry fails to
// parse. The manager treats it as a miss on that tier and keeps probing.
var ErrMalformedRecord = errors.New("cache: malformed record")

// Tier is one backing store in the cache hierarchy. Tiers hold no cross-tier
// logic and perform no TTL interpretation beyond best-effort local eviction;
// validity is decided by the Manager.
type Tier interface {
	// Name identifies the tier in logs.
	Name() string

	// Get returns the entry for key, or ok=false on a miss. A non-nil error
	// with ok=false indicates the tier failed or the record was malformed;
	// callers skip the tier rather than aborting.
	Get(ctx context.Context, key Key) (entry *Entry, ok bool, err error)

	// Set stores the entry under key, replacing any prior value.
	Set(ctx context.Context, key Key, entry *Entry) error
}
