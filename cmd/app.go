package cmd

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/vidqa/vidqa/core/cache"
	"github.com/vidqa/vidqa/core/config"
	"github.com/vidqa/vidqa/core/engine"
	"github.com/vidqa/vidqa/core/index"
	"github.com/vidqa/vidqa/core/llm"
	"github.com/vidqa/vidqa/core/retrieval"
	"github.com/vidqa/vidqa/core/vector"
)

// app bundles the wired components for one command invocation.
type app struct {
	engine *engine.Engine

	memory *cache.MemoryTier
	bolt   *cache.BoltTier
	store  *vector.Store
}

// newApp wires the full stack from the loaded configuration. Call close on
// the result when done.
func newApp(cfg *config.Config) (*app, error) {
	logger := slog.Default()

	dataDir := cfg.Storage.DataDir
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}

	memory, err := cache.NewMemoryTier(cache.MemoryTierConfig{
		MaxCost: cfg.Cache.MemoryMaxBytes,
		TTL:     cfg.Cache.TTL.Std(),
	})
	if err != nil {
		return nil, fmt.Errorf("memory tier: %w", err)
	}

	boltTier, err := cache.OpenBoltTier(filepath.Join(dataDir, "cache.db"))
	if err != nil {
		memory.Close()
		return nil, fmt.Errorf("bolt tier: %w", err)
	}

	fileTier, err := cache.NewFileTier(filepath.Join(dataDir, "cache"))
	if err != nil {
		memory.Close()
		boltTier.Close()
		return nil, fmt.Errorf("file tier: %w", err)
	}

	cacheMgr, err := cache.NewManager(cache.ManagerConfig{
		Tiers:               []cache.Tier{memory, boltTier, fileTier},
		Records:             fileTier,
		TTL:                 cfg.Cache.TTL.Std(),
		SimilarityThreshold: cfg.Cache.SimilarityThreshold,
		Logger:              logger,
	})
	if err != nil {
		memory.Close()
		boltTier.Close()
		return nil, fmt.Errorf("cache manager: %w", err)
	}

	embedder, err := newEmbedder(cfg, logger)
	if err != nil {
		memory.Close()
		boltTier.Close()
		return nil, err
	}

	store, err := vector.NewStore(vector.StoreConfig{
		Embedder:       embedder,
		DBPath:         filepath.Join(dataDir, "vectors.db"),
		QueryCacheSize: cfg.Retrieval.QueryCacheSize,
		Logger:         logger,
	})
	if err != nil {
		memory.Close()
		boltTier.Close()
		return nil, fmt.Errorf("vector store: %w", err)
	}

	lexical := index.NewRegistry(store)
	retriever := retrieval.NewEngine(store, lexical, logger)

	provider, err := newProvider(cfg)
	if err != nil {
		memory.Close()
		boltTier.Close()
		store.Close()
		return nil, err
	}

	eng := engine.New(cacheMgr, store, lexical, retriever, provider, engine.Config{
		TopK:         cfg.Retrieval.TopK,
		VectorWeight: cfg.Retrieval.VectorWeight,
		Chunking:     cfg.Chunking.Options(),
	}, logger)

	return &app{engine: eng, memory: memory, bolt: boltTier, store: store}, nil
}

func (a *app) close() {
	a.memory.Close()
	a.bolt.Close()
	a.store.Close()
}

func newEmbedder(cfg *config.Config, logger *slog.Logger) (vector.Embedder, error) {
	if key := os.Getenv("OPENAI_API_KEY"); key != "" {
		return vector.NewOpenAIEmbedder(vector.OpenAIEmbedderConfig{
			APIKey: key,
			Model:  cfg.LLM.EmbeddingModel,
		})
	}
	logger.Warn("OPENAI_API_KEY not set, using deterministic local embeddings")
	return vector.NewMockEmbedder(0), nil
}

func newProvider(cfg *config.Config) (llm.Provider, error) {
	base := llm.BaseConfig{
		Model:       cfg.LLM.Model,
		MaxTokens:   cfg.LLM.MaxTokens,
		Temperature: cfg.LLM.Temperature,
		Timeout:     cfg.LLM.Timeout.Std(),
	}

	switch cfg.LLM.Provider {
	case "openai":
		base.APIKey = os.Getenv("OPENAI_API_KEY")
		return llm.NewOpenAIProvider(llm.OpenAIConfig{BaseConfig: base})
	case "anthropic":
		base.APIKey = os.Getenv("ANTHROPIC_API_KEY")
		return llm.NewAnthropicProvider(llm.AnthropicConfig{BaseConfig: base})
	default:
		return nil, fmt.Errorf("unknown llm provider: %s", cfg.LLM.Provider)
	}
}
