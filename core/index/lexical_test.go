package index

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func passagesFrom(texts ...string) []Passage {
	passages := make([]Passage, len(texts))
	for i, text := range texts {
		passages[i] = Passage{ID: fmt.Sprintf("p%d", i), Text: text}
	}
	return passages
}

func resultTexts(results []ScoredPassage) []string {
	texts := make([]string, len(results))
	for i, r := range results {
		texts[i] = r.Passage.Text
	}
	return texts
}

func TestSearch_RanksByRelevance(t *testing.T) {
	r := NewRegistry(nil)
	r.Ensure("vid-1", passagesFrom(
		"the weather today is sunny and warm",
		"goroutines are lightweight threads managed by the go runtime",
		"channels let goroutines communicate safely",
	))

	results := r.Search("vid-1", "goroutines threads", 3)
	require.NotEmpty(t, results)
	assert.Equal(t, "goroutines are lightweight threads managed by the go runtime", results[0].Passage.Text)
	assert.Greater(t, results[0].Score, results[1].Score)
}

func TestSearch_TopK(t *testing.T) {
	r := NewRegistry(nil)
	r.Ensure("vid-1", passagesFrom(
		"go routines one", "go routines two", "go routines three", "go routines four",
	))

	results := r.Search("vid-1", "go routines", 2)
	assert.Len(t, results, 2)
}

func TestSearch_TiesKeepInsertionOrder(t *testing.T) {
	r := NewRegistry(nil)
	// Identical passages score identically for any query.
	r.Ensure("vid-1", passagesFrom(
		"shared phrase alpha", "shared phrase alpha", "shared phrase alpha",
	))

	results := r.Search("vid-1", "shared phrase", 3)
	require.Len(t, results, 3)
	assert.Equal(t, []string{"p0", "p1", "p2"}, []string{
		results[0].Passage.ID, results[1].Passage.ID, results[2].Passage.ID,
	})
}

func TestSearch_NoMatchingTermsScoresZero(t *testing.T) {
	r := NewRegistry(nil)
	r.Ensure("vid-1", passagesFrom("completely unrelated content"))

	results := r.Search("vid-1", "quantum chromodynamics", 5)
	require.Len(t, results, 1)
	assert.Zero(t, results[0].Score)
}

func TestSearch_EmptyNamespace(t *testing.T) {
	r := NewRegistry(nil)
	r.Ensure("vid-1", nil)

	assert.Empty(t, r.Search("vid-1", "anything", 5))
}

func TestSearch_UnknownVideoWithoutSource(t *testing.T) {
	r := NewRegistry(nil)
	assert.Empty(t, r.Search("never-indexed", "anything", 5))
}

type mapSource struct {
	mu       sync.Mutex
	passages map[string][]Passage
	calls    int
}

func (s *mapSource) Passages(videoID string) []Passage {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	return s.passages[videoID]
}

func TestSearch_LazyBuildFromSource(t *testing.T) {
	source := &mapSource{passages: map[string][]Passage{
		"vid-1": passagesFrom("goroutines are lightweight threads"),
	}}
	r := NewRegistry(source)

	require.False(t, r.Has("vid-1"))

	results := r.Search("vid-1", "goroutines", 5)
	require.Len(t, results, 1)
	assert.True(t, r.Has("vid-1"))
	assert.Equal(t, 1, source.calls)

	// Second search reuses the published snapshot.
	r.Search("vid-1", "goroutines", 5)
	assert.Equal(t, 1, source.calls)
}

func TestInvalidate_TriggersRebuild(t *testing.T) {
	source := &mapSource{passages: map[string][]Passage{
		"vid-1": passagesFrom("old content"),
	}}
	r := NewRegistry(source)

	r.Search("vid-1", "content", 5)
	require.Equal(t, 1, source.calls)

	source.mu.Lock()
	source.passages["vid-1"] = passagesFrom("new content entirely")
	source.mu.Unlock()

	r.Invalidate("vid-1")
	results := r.Search("vid-1", "new", 5)
	require.Len(t, results, 1)
	assert.Equal(t, "new content entirely", results[0].Passage.Text)
}

func TestRegistry_ConcurrentSearchAndRebuild(t *testing.T) {
	r := NewRegistry(nil)
	r.Ensure("vid-1", passagesFrom("alpha beta gamma", "delta epsilon zeta"))

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				results := r.Search("vid-1", "alpha delta", 2)
				// Readers always see a complete snapshot, old or new.
				assert.LessOrEqual(t, len(results), 2)
			}
		}()
	}
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				r.Ensure("vid-1", passagesFrom("alpha beta gamma", "delta epsilon zeta", "eta theta iota"))
			}
		}()
	}
	wg.Wait()
}

func TestTokenize(t *testing.T) {
	assert.Equal(t, []string{"hello", "world"}, Tokenize("  Hello   WORLD  "))
	assert.Empty(t, Tokenize("   "))
}
