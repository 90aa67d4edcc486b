// Package engine orchestrates transcript processing and question answering.
// It ties the chunker, the vector store, the lexical index, the retrieval
// fusion layer, and the LLM provider together behind a small API, with the
// response cache consulted before any retrieval or generation work happens.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/vidqa/vidqa/core/cache"
	"github.com/vidqa/vidqa/core/chunking"
	"github.com/vidqa/vidqa/core/index"
	"github.com/vidqa/vidqa/core/llm"
	"github.com/vidqa/vidqa/core/retrieval"
	"github.com/vidqa/vidqa/core/vector"
)

const (
	// DefaultTopK is the passage count retrieved for a question.
	DefaultTopK = 4

	// SummarizeTopK is the passage count retrieved for summaries. Summaries
	// want broad coverage of the transcript rather than a narrow match.
	SummarizeTopK = 20

	// summarizeQuery is the retrieval query used when summarizing. It is
	// deliberately generic so fusion surfaces passages from across the
	// whole transcript.
	summarizeQuery = "full transcript"
)

// SearchMethod selects how retrieval weighs dense versus lexical results.
type SearchMethod string

const (
	SearchHybrid  SearchMethod = "hybrid"
	SearchVector  SearchMethod = "vector"
	SearchKeyword SearchMethod = "keyword"
)

// ErrNotProcessed is returned when a question targets a video whose
// transcript has not been indexed yet.
var ErrNotProcessed = errors.New("video not processed")

// ErrNoContext is returned when retrieval produces no passages for a query.
var ErrNoContext = errors.New("no relevant passages found")

// Config carries the engine's tunables.
type Config struct {
	TopK         int
	VectorWeight float64
	Chunking     chunking.Options
}

// Engine answers questions about processed video transcripts.
type Engine struct {
	cache     *cache.Manager
	store     *vector.Store
	lexical   *index.Registry
	retriever *retrieval.Engine
	provider  llm.Provider
	config    Config
	logger    *slog.Logger
}

// New creates an engine. The lexical registry should use the vector store as
// its passage source so lexical indexes can be rebuilt lazily after restart.
func New(cacheMgr *cache.Manager, store *vector.Store, lexical *index.Registry, retriever *retrieval.Engine, provider llm.Provider, cfg Config, logger *slog.Logger) *Engine {
	if cfg.TopK <= 0 {
		cfg.TopK = DefaultTopK
	}
	if cfg.VectorWeight == 0 {
		cfg.VectorWeight = retrieval.DefaultVectorWeight
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{
		cache:     cacheMgr,
		store:     store,
		lexical:   lexical,
		retriever: retriever,
		provider:  provider,
		config:    cfg,
		logger:    logger,
	}
}

// ProcessTranscript chunks and indexes a transcript for the given video.
// Processing is idempotent: a video already marked processed is skipped
// unless force is set.
func (e *Engine) ProcessTranscript(ctx context.Context, videoID, transcript string, force bool) error {
	if videoID == "" {
		return fmt.Errorf("video id is required")
	}
	if strings.TrimSpace(transcript) == "" {
		return fmt.Errorf("transcript is empty")
	}

	if !force && e.cache.HasProcessed(ctx, videoID) {
		e.logger.Info("video already processed, skipping", "video_id", videoID)
		return nil
	}

	chunks := chunking.Split(transcript, e.config.Chunking)
	e.logger.Info("transcript chunked", "video_id", videoID, "chunks", len(chunks))

	passages := make([]index.Passage, len(chunks))
	for i, chunk := range chunks {
		passages[i] = index.Passage{
			ID:   fmt.Sprintf("%s:%d", videoID, i),
			Text: chunk,
		}
	}

	if err := e.store.IndexPassages(ctx, videoID, passages); err != nil {
		return fmt.Errorf("index passages for %s: %w", videoID, err)
	}

	// Replace any stale lexical snapshot with one built from the new chunks.
	e.lexical.Invalidate(videoID)
	e.lexical.Ensure(videoID, passages)

	if err := e.cache.MarkProcessed(ctx, videoID); err != nil {
		return fmt.Errorf("mark processed %s: %w", videoID, err)
	}

	e.logger.Info("transcript processed", "video_id", videoID, "passages", len(passages))
	return nil
}

// Ask answers a question about a processed video. Answers are served from
// the response cache when an exact or sufficiently similar query has been
// answered before.
func (e *Engine) Ask(ctx context.Context, videoID, question, lang string, method SearchMethod) (string, error) {
	if strings.TrimSpace(question) == "" {
		return "", fmt.Errorf("question is empty")
	}
	if !e.cache.HasProcessed(ctx, videoID) {
		return "", fmt.Errorf("%w: %s", ErrNotProcessed, videoID)
	}

	reqID := uuid.NewString()
	if answer, ok := e.cache.GetResponse(ctx, videoID, question); ok {
		e.logger.Info("answer served from cache", "request_id", reqID, "video_id", videoID)
		return answer, nil
	}

	passages, err := e.retrieve(ctx, videoID, question, e.config.TopK, method)
	if err != nil {
		return "", err
	}
	if len(passages) == 0 {
		return "", fmt.Errorf("%w: video %s", ErrNoContext, videoID)
	}

	answer, err := e.generate(ctx, llm.SystemPrompt(lang), llm.AnswerPrompt(question, strings.Join(passages, "\n\n")))
	if err != nil {
		return "", err
	}
	e.logger.Info("answer generated", "request_id", reqID, "video_id", videoID, "passages", len(passages))

	if err := e.cache.PutResponse(ctx, videoID, question, answer); err != nil {
		e.logger.Warn("failed to cache answer", "request_id", reqID, "video_id", videoID, "error", err)
	}
	return answer, nil
}

// Summarize produces a summary of a processed video at the requested length
// (short, medium, or long). Summaries share the response cache with answers,
// keyed by a synthetic query so repeated requests are served without any
// retrieval or generation.
func (e *Engine) Summarize(ctx context.Context, videoID, length, lang string) (string, error) {
	if !e.cache.HasProcessed(ctx, videoID) {
		return "", fmt.Errorf("%w: %s", ErrNotProcessed, videoID)
	}

	reqID := uuid.NewString()
	cacheQuery := "summarize " + length
	if summary, ok := e.cache.GetResponse(ctx, videoID, cacheQuery); ok {
		e.logger.Info("summary served from cache", "request_id", reqID, "video_id", videoID, "length", length)
		return summary, nil
	}

	passages, err := e.retrieve(ctx, videoID, summarizeQuery, SummarizeTopK, SearchHybrid)
	if err != nil {
		return "", err
	}
	if len(passages) == 0 {
		return "", fmt.Errorf("%w: video %s", ErrNoContext, videoID)
	}

	summary, err := e.generate(ctx, llm.SystemPrompt(lang), llm.SummaryPrompt(strings.Join(passages, "\n\n"), length))
	if err != nil {
		return "", err
	}

	if err := e.cache.PutResponse(ctx, videoID, cacheQuery, summary); err != nil {
		e.logger.Warn("failed to cache summary", "request_id", reqID, "video_id", videoID, "error", err)
	}
	return summary, nil
}

func (e *Engine) retrieve(ctx context.Context, videoID, query string, k int, method SearchMethod) ([]string, error) {
	weight := e.config.VectorWeight
	switch method {
	case SearchVector:
		weight = 1.0
	case SearchKeyword:
		weight = 0.0
	}

	passages, err := e.retriever.HybridSearch(ctx, videoID, query, k, weight)
	if err != nil {
		return nil, fmt.Errorf("retrieve for %s: %w", videoID, err)
	}
	return passages, nil
}

func (e *Engine) generate(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	resp, err := e.provider.Complete(ctx, &llm.Request{
		SystemPrompt: systemPrompt,
		Messages:     []llm.Message{{Role: llm.RoleUser, Content: userPrompt}},
	})
	if err != nil {
		return "", fmt.Errorf("llm completion: %w", err)
	}
	return resp.Content, nil
}
