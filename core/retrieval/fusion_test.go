package retrieval

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vidqa/vidqa/core/index"
)

type stubDense struct {
	results []string
	err     error
	calls   int
}

func (s *stubDense) SimilaritySearch(ctx context.Context, videoID, query string, k int) ([]string, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	if len(s.results) > k {
		return s.results[:k], nil
	}
	return s.results, nil
}

func lexicalOver(videoID string, texts ...string) *index.Registry {
	passages := make([]index.Passage, len(texts))
	for i, text := range texts {
		passages[i] = index.Passage{ID: fmt.Sprintf("p%d", i), Text: text}
	}
	r := index.NewRegistry(nil)
	r.Ensure(videoID, passages)
	return r
}

func TestFuse_SharedCandidateWins(t *testing.T) {
	// B appears in both lists; its combined score beats A's dense-only
	// score at the default weight.
	//   A: dense 1.0 * 0.7                  = 0.7
	//   B: dense (2/3) * 0.7 + lex 1.0 * 0.3 ~= 0.767
	fused := fuse([]string{"A", "B", "C"}, []string{"B", "D"}, 0.7)
	require.NotEmpty(t, fused)
	assert.Equal(t, "B", fused[0])
	assert.ElementsMatch(t, []string{"A", "B", "C", "D"}, fused)
}

func TestFuse_PureDenseWeight(t *testing.T) {
	fused := fuse([]string{"A", "B", "C"}, []string{"C", "B", "A"}, 1.0)
	assert.Equal(t, []string{"A", "B", "C"}, fused)
}

func TestFuse_PureLexicalWeight(t *testing.T) {
	fused := fuse([]string{"A", "B", "C"}, []string{"C", "B", "A"}, 0.0)
	assert.Equal(t, []string{"C", "B", "A"}, fused)
}

func TestFuse_TiesKeepDiscoveryOrder(t *testing.T) {
	// Symmetric lists at equal weight: every candidate scores the same, so
	// the dense list's order is preserved and lexical-only items follow.
	fused := fuse([]string{"A", "B"}, []string{"C", "D"}, 0.5)
	assert.Equal(t, []string{"A", "C", "B", "D"}, fused)
}

func TestFuse_Deterministic(t *testing.T) {
	dense := []string{"A", "B", "C"}
	lexical := []string{"B", "D", "A"}
	first := fuse(dense, lexical, 0.7)
	for i := 0; i < 20; i++ {
		assert.Equal(t, first, fuse(dense, lexical, 0.7))
	}
}

func TestHybridSearch_WeightValidation(t *testing.T) {
	e := NewEngine(&stubDense{}, nil, nil)

	_, err := e.HybridSearch(context.Background(), "vid-1", "query", 4, -0.1)
	assert.Error(t, err)

	_, err = e.HybridSearch(context.Background(), "vid-1", "query", 4, 1.1)
	assert.Error(t, err)
}

func TestHybridSearch_TopK(t *testing.T) {
	dense := &stubDense{results: []string{"A", "B", "C", "D"}}
	e := NewEngine(dense, lexicalOver("vid-1", "E", "F"), nil)

	results, err := e.HybridSearch(context.Background(), "vid-1", "query", 2, 0.7)
	require.NoError(t, err)
	assert.Len(t, results, 2)
}

func TestHybridSearch_DenseFailureDegradesToLexical(t *testing.T) {
	dense := &stubDense{err: fmt.Errorf("embedding service down")}
	lexical := lexicalOver("vid-1",
		"goroutines are lightweight threads",
		"unrelated weather report",
	)
	e := NewEngine(dense, lexical, nil)

	results, err := e.HybridSearch(context.Background(), "vid-1", "goroutines", 4, 0.7)
	require.NoError(t, err, "dense failure must not fail the search")
	require.NotEmpty(t, results)
	assert.Equal(t, "goroutines are lightweight threads", results[0])
}

func TestHybridSearch_BothEmpty(t *testing.T) {
	e := NewEngine(&stubDense{}, index.NewRegistry(nil), nil)

	results, err := e.HybridSearch(context.Background(), "vid-1", "query", 4, 0.7)
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestHybridSearch_NonPositiveK(t *testing.T) {
	dense := &stubDense{results: []string{"A"}}
	e := NewEngine(dense, nil, nil)

	results, err := e.HybridSearch(context.Background(), "vid-1", "query", 0, 0.7)
	require.NoError(t, err)
	assert.Empty(t, results)
	assert.Zero(t, dense.calls, "k<=0 short-circuits before any retrieval")
}
