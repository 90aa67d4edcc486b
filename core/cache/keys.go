package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"time"
)

// Kind identifies the entity class a cache entry belongs to.
type Kind string

const (
	// KindVideoStatus marks a video as fully processed (transcribed and indexed).
	KindVideoStatus Kind = "video-status"

	// KindQueryResponse caches the generated answer for a (video, query) pair.
	KindQueryResponse Kind = "query-response"
)

// Key is an immutable composite cache key. For query-response entries the
// Fingerprint is the stable hash of the normalized query text; for
// video-status entries it is empty.
type Key struct {
	Kind        Kind
	VideoID     string
	Fingerprint string
}

// VideoKey builds the key for a video's processed marker.
func VideoKey(videoID string) Key {
	return Key{Kind: KindVideoStatus, VideoID: videoID}
}

// QueryKey builds the key for a cached query response. The query must
// already be normalized.
func QueryKey(videoID, normalizedQuery string) Key {
	return Key{
		Kind:        KindQueryResponse,
		VideoID:     videoID,
		Fingerprint: Fingerprint(normalizedQuery),
	}
}

// String encodes the key for use in flat key-value tiers.
func (k Key) String() string {
	if k.Kind == KindVideoStatus {
		return fmt.Sprintf("video_processed:%s", k.VideoID)
	}
	return fmt.Sprintf("query:%s:%s", k.VideoID, k.Fingerprint)
}

// NormalizeQuery lower-cases the query and collapses runs of whitespace to a
// single space. Normalization is idempotent.
func NormalizeQuery(query string) string {
	return strings.Join(strings.Fields(strings.ToLower(query)), " ")
}

// Fingerprint returns the stable hash of a normalized query string.
func Fingerprint(normalizedQuery string) string {
	sum := sha256.Sum256([]byte(normalizedQuery))
	return hex.EncodeToString(sum[:])
}

// Entry is a single cached value. An entry is valid iff its age is below the
// process-wide TTL; readers must treat expired entries as absent.
type Entry struct {
	Key       Key       `json:"-"`
	Value     string    `json:"value"`
	Query     string    `json:"query,omitempty"` // normalized query text, query-response entries only
	CreatedAt time.Time `json:"created_at"`
	Tier      string    `json:"-"` // tier of origin, set by the tier that served the read
}

// Expired reports whether the entry's age has reached the TTL.
func (e *Entry) Expired(now time.Time, ttl time.Duration) bool {
	return now.Sub(e.CreatedAt) >= ttl
}
