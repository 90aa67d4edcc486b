// Package retrieval merges dense and lexical ranking signals into one
// ordered result set per video.
package retrieval

import (
	"context"
	"fmt"
	"log/slog"
	"sort"

	"github.com/vidqa/vidqa/core/index"
)

// DefaultVectorWeight balances dense against lexical scores in hybrid mode.
const DefaultVectorWeight = 0.7

// DenseSearcher is the external embedding/vector-search collaborator. It
// returns up to k passage contents for the query, best first, namespaced
// per video.
type DenseSearcher interface {
	SimilaritySearch(ctx context.Context, videoID, query string, k int) ([]string, error)
}

// Engine fuses dense-similarity and lexical candidate lists. Both lists are
// normalized by rank position rather than raw score, which makes the two
// structurally incomparable scoring systems combinable without calibration.
type Engine struct {
	dense   DenseSearcher
	lexical *index.Registry
	logger  *slog.Logger
}

// NewEngine creates a fusion engine over the given retrieval signals.
func NewEngine(dense DenseSearcher, lexical *index.Registry, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{dense: dense, lexical: lexical, logger: logger}
}

// HybridSearch returns the top k passage contents for the query, ranked by
// the weighted fusion of dense and lexical signals. vectorWeight 1.0
// degenerates to pure dense ranking, 0.0 to pure lexical. A dense-provider
// failure degrades to lexical-only results; an empty result from both
// signals yields an empty slice, not an error.
func (e *Engine) HybridSearch(ctx context.Context, videoID, query string, k int, vectorWeight float64) ([]string, error) {
	if vectorWeight < 0 || vectorWeight > 1 {
		return nil, fmt.Errorf("hybrid search: vector weight %v out of range [0,1]", vectorWeight)
	}
	if k <= 0 {
		return nil, nil
	}

	var denseList []string
	if e.dense != nil {
		var err error
		denseList, err = e.dense.SimilaritySearch(ctx, videoID, query, k)
		if err != nil {
			e.logger.Warn("dense retrieval unavailable, degrading to lexical-only",
				"video_id", videoID, "error", err)
			denseList = nil
		}
	}

	var lexicalList []string
	if e.lexical != nil {
		for _, sp := range e.lexical.Search(videoID, query, k) {
			lexicalList = append(lexicalList, sp.Passage.Text)
		}
	}

	fused := fuse(denseList, lexicalList, vectorWeight)
	if len(fused) > k {
		fused = fused[:k]
	}
	return fused, nil
}

type fusedCandidate struct {
	content string
	score   float64
}

// fuse combines the two ranked lists. Each list contributes a positional
// score of 1 - i/N; candidates are deduplicated by exact content, with an
// absent contribution counting as 0. Discovery order (dense list first,
// then lexical-only additions) breaks score ties via the stable sort.
func fuse(denseList, lexicalList []string, vectorWeight float64) []string {
	denseScores := positionScores(denseList)
	lexicalScores := positionScores(lexicalList)

	seen := make(map[string]bool, len(denseList)+len(lexicalList))
	var candidates []fusedCandidate
	for _, lists := range [][]string{denseList, lexicalList} {
		for _, content := range lists {
			if seen[content] {
				continue
			}
			seen[content] = true
			score := denseScores[content]*vectorWeight + lexicalScores[content]*(1-vectorWeight)
			candidates = append(candidates, fusedCandidate{content: content, score: score})
		}
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].score > candidates[j].score
	})

	contents := make([]string, len(candidates))
	for i, c := range candidates {
		contents[i] = c.content
	}
	return contents
}

// positionScores maps each item to 1 - i/N for zero-based position i. When
// the same content appears more than once the best (first) position wins.
func positionScores(list []string) map[string]float64 {
	scores := make(map[string]float64, len(list))
	n := float64(len(list))
	for i, content := range list {
		if _, ok := scores[content]; ok {
			continue
		}
		scores[content] = 1 - float64(i)/n
	}
	return scores
}
