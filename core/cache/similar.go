package cache

import (
	"context"
	"log/slog"
	"strings"
	"time"
)

// DefaultSimilarityThreshold is the Jaccard similarity a prior query must
// strictly exceed before its response is reused.
const DefaultSimilarityThreshold = 0.5

// QueryEnumerator lists a video's cached query records. The flat-file tier
// implements it.
type QueryEnumerator interface {
	QueryRecords(ctx context.Context, videoID string) ([]QueryRecord, error)
}

// SimilarMatcher recovers from cache misses caused by paraphrased queries by
// scanning a video's prior queries for a sufficiently similar one. It is a
// best-effort optimization: every failure path degrades to a miss.
type SimilarMatcher struct {
	records   QueryEnumerator
	threshold float64
	ttl       time.Duration
	now       func() time.Time
	logger    *slog.Logger
}

// NewSimilarMatcher creates a matcher over the given record source.
func NewSimilarMatcher(records QueryEnumerator, threshold float64, ttl time.Duration, now func() time.Time, logger *slog.Logger) *SimilarMatcher {
	if threshold <= 0 {
		threshold = DefaultSimilarityThreshold
	}
	if now == nil {
		now = time.Now
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &SimilarMatcher{records: records, threshold: threshold, ttl: ttl, now: now, logger: logger}
}

// FindSimilar returns the response of the most similar non-expired prior
// query for the video, provided its Jaccard similarity strictly exceeds the
// threshold. Ties at the threshold yield a miss.
func (m *SimilarMatcher) FindSimilar(ctx context.Context, videoID, normalizedQuery string) (string, bool) {
	records, err := m.records.QueryRecords(ctx, videoID)
	if err != nil {
		m.logger.Warn("similar query scan failed", "video_id", videoID, "error", err)
		return "", false
	}

	queryTokens := tokenSet(normalizedQuery)
	if len(queryTokens) == 0 {
		return "", false
	}

	now := m.now()
	bestScore := m.threshold
	var bestResponse string
	var found bool

	for _, rec := range records {
		if now.Sub(rec.CreatedAt) >= m.ttl {
			continue
		}
		candidateTokens := tokenSet(strings.ToLower(rec.Query))
		if len(candidateTokens) == 0 {
			continue
		}
		score := jaccard(queryTokens, candidateTokens)
		if score > bestScore {
			bestScore = score
			bestResponse = rec.Response
			found = true
		}
	}

	return bestResponse, found
}

func tokenSet(s string) map[string]struct{} {
	fields := strings.Fields(s)
	set := make(map[string]struct{}, len(fields))
	for _, f := range fields {
		set[f] = struct{}{}
	}
	return set
}

func jaccard(a, b map[string]struct{}) float64 {
	var intersection int
	for tok := range a {
		if _, ok := b[tok]; ok {
			intersection++
		}
	}
	union := len(a) + len(b) - intersection
	if union == 0 {
		return 0
	}
	return float64(intersection) / float64(union)
}
