package engine

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vidqa/vidqa/core/cache"
	"github.com/vidqa/vidqa/core/index"
	"github.com/vidqa/vidqa/core/llm"
	"github.com/vidqa/vidqa/core/retrieval"
	"github.com/vidqa/vidqa/core/vector"
)

// stubProvider returns a canned answer and records the prompts it saw.
type stubProvider struct {
	answer   string
	err      error
	calls    int
	requests []*llm.Request
}

func (p *stubProvider) Name() string { return "stub" }

func (p *stubProvider) Complete(ctx context.Context, req *llm.Request) (*llm.Response, error) {
	p.calls++
	p.requests = append(p.requests, req)
	if p.err != nil {
		return nil, p.err
	}
	return &llm.Response{Content: p.answer, Model: "stub"}, nil
}

func newTestEngine(t *testing.T, provider llm.Provider) *Engine {
	t.Helper()

	fileTier, err := cache.NewFileTier(t.TempDir())
	require.NoError(t, err)

	cacheMgr, err := cache.NewManager(cache.ManagerConfig{
		Tiers:   []cache.Tier{fileTier},
		Records: fileTier,
	})
	require.NoError(t, err)

	store, err := vector.NewStore(vector.StoreConfig{Embedder: vector.NewMockEmbedder(32)})
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	lexical := index.NewRegistry(store)
	retriever := retrieval.NewEngine(store, lexical, nil)

	return New(cacheMgr, store, lexical, retriever, provider, Config{}, nil)
}

const testTranscript = `Welcome to this introduction to the Go programming language.

Goroutines are lightweight threads managed by the Go runtime, and channels
let goroutines communicate without explicit locks.

The standard library ships an HTTP server, a template engine, and testing
support out of the box.`

func TestProcessTranscript_Validation(t *testing.T) {
	e := newTestEngine(t, &stubProvider{answer: "ok"})
	ctx := context.Background()

	assert.Error(t, e.ProcessTranscript(ctx, "", "some text", false))
	assert.Error(t, e.ProcessTranscript(ctx, "vid-1", "   ", false))
}

func TestProcessTranscript_Idempotent(t *testing.T) {
	e := newTestEngine(t, &stubProvider{answer: "ok"})
	ctx := context.Background()

	require.NoError(t, e.ProcessTranscript(ctx, "vid-1", testTranscript, false))
	require.Equal(t, 1, e.store.Count("vid-1"))

	// Second run without force is a no-op even with a different transcript.
	require.NoError(t, e.ProcessTranscript(ctx, "vid-1", "entirely new text", false))
	assert.Equal(t, 1, e.store.Count("vid-1"))

	// Force reindexes.
	require.NoError(t, e.ProcessTranscript(ctx, "vid-1", "entirely new text", true))
	passages := e.store.Passages("vid-1")
	require.Len(t, passages, 1)
	assert.Equal(t, "entirely new text", passages[0].Text)
}

func TestAsk_UnprocessedVideo(t *testing.T) {
	e := newTestEngine(t, &stubProvider{answer: "ok"})

	_, err := e.Ask(context.Background(), "vid-1", "what is go", "en", SearchHybrid)
	assert.True(t, errors.Is(err, ErrNotProcessed))
}

func TestAsk_GeneratesAndCaches(t *testing.T) {
	provider := &stubProvider{answer: "goroutines are cheap"}
	e := newTestEngine(t, provider)
	ctx := context.Background()

	require.NoError(t, e.ProcessTranscript(ctx, "vid-1", testTranscript, false))

	answer, err := e.Ask(ctx, "vid-1", "what are goroutines", "en", SearchHybrid)
	require.NoError(t, err)
	assert.Equal(t, "goroutines are cheap", answer)
	require.Equal(t, 1, provider.calls)

	// The prompt carries retrieved transcript content.
	req := provider.requests[0]
	require.Len(t, req.Messages, 1)
	assert.Contains(t, req.Messages[0].Content, "Goroutines are lightweight")

	// Repeat question is served from cache without another completion.
	answer, err = e.Ask(ctx, "vid-1", "What ARE goroutines", "en", SearchHybrid)
	require.NoError(t, err)
	assert.Equal(t, "goroutines are cheap", answer)
	assert.Equal(t, 1, provider.calls, "cached answer must not call the provider")
}

func TestAsk_LanguageSelectsSystemPrompt(t *testing.T) {
	provider := &stubProvider{answer: "respuesta"}
	e := newTestEngine(t, provider)
	ctx := context.Background()

	require.NoError(t, e.ProcessTranscript(ctx, "vid-1", testTranscript, false))

	_, err := e.Ask(ctx, "vid-1", "de que trata el video", "es", SearchHybrid)
	require.NoError(t, err)
	require.Len(t, provider.requests, 1)
	assert.Equal(t, llm.SystemPrompt("es"), provider.requests[0].SystemPrompt)
	assert.NotEqual(t, llm.SystemPrompt("en"), provider.requests[0].SystemPrompt)
}

func TestAsk_ProviderFailure(t *testing.T) {
	provider := &stubProvider{err: fmt.Errorf("rate limited")}
	e := newTestEngine(t, provider)
	ctx := context.Background()

	require.NoError(t, e.ProcessTranscript(ctx, "vid-1", testTranscript, false))

	_, err := e.Ask(ctx, "vid-1", "what are goroutines", "en", SearchHybrid)
	assert.Error(t, err)

	// A failed generation is not cached.
	provider.err = nil
	provider.answer = "recovered"
	answer, err := e.Ask(ctx, "vid-1", "what are goroutines", "en", SearchHybrid)
	require.NoError(t, err)
	assert.Equal(t, "recovered", answer)
}

func TestSummarize_CachedPerLength(t *testing.T) {
	provider := &stubProvider{answer: "a summary"}
	e := newTestEngine(t, provider)
	ctx := context.Background()

	require.NoError(t, e.ProcessTranscript(ctx, "vid-1", testTranscript, false))

	_, err := e.Summarize(ctx, "vid-1", "short", "en")
	require.NoError(t, err)
	require.Equal(t, 1, provider.calls)

	// Same length hits the cache; a different length generates again.
	_, err = e.Summarize(ctx, "vid-1", "short", "en")
	require.NoError(t, err)
	assert.Equal(t, 1, provider.calls)

	_, err = e.Summarize(ctx, "vid-1", "long", "en")
	require.NoError(t, err)
	assert.Equal(t, 2, provider.calls)
}

func TestSummarize_UnprocessedVideo(t *testing.T) {
	e := newTestEngine(t, &stubProvider{answer: "ok"})

	_, err := e.Summarize(context.Background(), "vid-1", "medium", "en")
	assert.True(t, errors.Is(err, ErrNotProcessed))
}

func TestSearchMethods_AllAnswer(t *testing.T) {
	for _, method := range []SearchMethod{SearchHybrid, SearchVector, SearchKeyword} {
		t.Run(string(method), func(t *testing.T) {
			provider := &stubProvider{answer: "answer for " + string(method)}
			e := newTestEngine(t, provider)
			ctx := context.Background()

			require.NoError(t, e.ProcessTranscript(ctx, "vid-1", testTranscript, false))

			answer, err := e.Ask(ctx, "vid-1", "goroutines channels runtime", "en", method)
			require.NoError(t, err)
			assert.True(t, strings.HasSuffix(answer, string(method)))
		})
	}
}
