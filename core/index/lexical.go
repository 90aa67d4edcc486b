// Package index provides the per-video lexical retrieval index.
package index

import (
	"math"
	"sort"
	"strings"
	"sync"
)

// BM25 free parameters.
const (
	bm25K1 = 1.5
	bm25B  = 0.75
)

// Passage is one indexed transcript chunk. Passages are owned by the
// indexing collaborator; the index only references them.
type Passage struct {
	ID       string
	Text     string
	Metadata map[string]string
}

// ScoredPassage is a lexical search result.
type ScoredPassage struct {
	Passage Passage
	Score   float64
}

// PassageSource supplies the current passage set for a video, used for lazy
// index construction on first search.
type PassageSource interface {
	Passages(videoID string) []Passage
}

// Registry builds and holds one lexical index per video namespace. Rebuilds
// are wholesale: a new snapshot is constructed off-lock and published by
// swapping the namespace's reference, so concurrent readers always observe a
// complete index, old or new.
type Registry struct {
	mu        sync.RWMutex
	snapshots map[string]*snapshot
	source    PassageSource
}

// NewRegistry creates a registry. source may be nil, in which case search on
// an unbuilt namespace returns no results.
func NewRegistry(source PassageSource) *Registry {
	return &Registry{
		snapshots: make(map[string]*snapshot),
		source:    source,
	}
}

// Ensure builds the index for the video over the given passages, replacing
// any prior index for that namespace.
func (r *Registry) Ensure(videoID string, passages []Passage) {
	snap := buildSnapshot(passages)
	r.mu.Lock()
	r.snapshots[videoID] = snap
	r.mu.Unlock()
}

// Invalidate drops the video's index; the next search rebuilds it lazily.
func (r *Registry) Invalidate(videoID string) {
	r.mu.Lock()
	delete(r.snapshots, videoID)
	r.mu.Unlock()
}

// Has reports whether an index is currently published for the video.
func (r *Registry) Has(videoID string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.snapshots[videoID]
	return ok
}

// Search scores all passages in the video's index against the query and
// returns the top k by descending score, ties broken by passage insertion
// order. A namespace with no index is built lazily from the passage source;
// a namespace with zero passages yields an empty result.
func (r *Registry) Search(videoID, query string, k int) []ScoredPassage {
	r.mu.RLock()
	snap, ok := r.snapshots[videoID]
	r.mu.RUnlock()

	if !ok {
		if r.source == nil {
			return nil
		}
		snap = buildSnapshot(r.source.Passages(videoID))
		r.mu.Lock()
		r.snapshots[videoID] = snap
		r.mu.Unlock()
	}

	return snap.search(query, k)
}

// snapshot is an immutable term-frequency index over one passage set.
type snapshot struct {
	passages []Passage
	termFreq []map[string]int // per passage
	docLen   []int
	avgLen   float64
	docFreq  map[string]int
}

func buildSnapshot(passages []Passage) *snapshot {
	snap := &snapshot{
		passages: passages,
		termFreq: make([]map[string]int, len(passages)),
		docLen:   make([]int, len(passages)),
		docFreq:  make(map[string]int),
	}

	var totalLen int
	for i, p := range passages {
		tokens := Tokenize(p.Text)
		freq := make(map[string]int, len(tokens))
		for _, tok := range tokens {
			freq[tok]++
		}
		snap.termFreq[i] = freq
		snap.docLen[i] = len(tokens)
		totalLen += len(tokens)
		for tok := range freq {
			snap.docFreq[tok]++
		}
	}
	if len(passages) > 0 {
		snap.avgLen = float64(totalLen) / float64(len(passages))
	}
	return snap
}

func (s *snapshot) search(query string, k int) []ScoredPassage {
	if len(s.passages) == 0 || k <= 0 {
		return nil
	}

	queryTokens := Tokenize(query)
	results := make([]ScoredPassage, len(s.passages))
	for i, p := range s.passages {
		results[i] = ScoredPassage{Passage: p, Score: s.score(queryTokens, i)}
	}

	// Stable: equal scores keep insertion order.
	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})

	if len(results) > k {
		results = results[:k]
	}
	return results
}

// score computes the BM25 score of passage i against the query tokens.
func (s *snapshot) score(queryTokens []string, i int) float64 {
	var total float64
	n := float64(len(s.passages))
	lenNorm := 1 - bm25B + bm25B*float64(s.docLen[i])/s.avgLen

	for _, tok := range queryTokens {
		tf := float64(s.termFreq[i][tok])
		if tf == 0 {
			continue
		}
		df := float64(s.docFreq[tok])
		idf := math.Log((n-df+0.5)/(df+0.5) + 1)
		total += idf * tf * (bm25K1 + 1) / (tf + bm25K1*lenNorm)
	}
	return total
}

// Tokenize splits text into lower-cased whitespace-delimited terms.
func Tokenize(text string) []string {
	return strings.Fields(strings.ToLower(text))
}
