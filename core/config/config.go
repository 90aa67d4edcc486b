// Package config loads and watches the application configuration. Defaults
// are always valid; a YAML file and environment variables overlay them.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"
	"unsafe"

	"github.com/fsnotify/fsnotify"
	"gopkg.in/yaml.v3"

	"github.com/vidqa/vidqa/core/cache"
	"github.com/vidqa/vidqa/core/chunking"
	"github.com/vidqa/vidqa/core/retrieval"
	"github.com/vidqa/vidqa/core/vector"
)

// reloadDebounce coalesces bursts of file events into one reload. Editors
// commonly emit several writes when saving.
const reloadDebounce = 100 * time.Millisecond

// Duration is a time.Duration that unmarshals from YAML strings like "24h".
type Duration time.Duration

func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err == nil {
		parsed, err := time.ParseDuration(s)
		if err != nil {
			return fmt.Errorf("parse duration %q: %w", s, err)
		}
		*d = Duration(parsed)
		return nil
	}
	var n int64
	if err := value.Decode(&n); err != nil {
		return fmt.Errorf("parse duration: %w", err)
	}
	*d = Duration(n)
	return nil
}

// Std returns the wrapped time.Duration.
func (d Duration) Std() time.Duration { return time.Duration(d) }

type Config struct {
	Storage   StorageConfig   `yaml:"storage"`
	Cache     CacheConfig     `yaml:"cache"`
	Retrieval RetrievalConfig `yaml:"retrieval"`
	Chunking  ChunkingConfig  `yaml:"chunking"`
	LLM       LLMConfig       `yaml:"llm"`
}

type StorageConfig struct {
	// DataDir is the root directory for all persistent state. The file
	// cache, the bolt database, and the vector database live under it.
	DataDir string `yaml:"data_dir"`
}

type CacheConfig struct {
	TTL                 Duration `yaml:"ttl"`
	MemoryMaxBytes      int64    `yaml:"memory_max_bytes"`
	SimilarityThreshold float64  `yaml:"similarity_threshold"`
}

type RetrievalConfig struct {
	TopK           int     `yaml:"top_k"`
	VectorWeight   float64 `yaml:"vector_weight"`
	QueryCacheSize int     `yaml:"query_cache_size"`
}

type ChunkingConfig struct {
	ChunkSize    int `yaml:"chunk_size"`
	ChunkOverlap int `yaml:"chunk_overlap"`
}

type LLMConfig struct {
	Provider       string   `yaml:"provider"`
	Model          string   `yaml:"model"`
	MaxTokens      int      `yaml:"max_tokens"`
	Temperature    float64  `yaml:"temperature"`
	Timeout        Duration `yaml:"timeout"`
	EmbeddingModel string   `yaml:"embedding_model"`
}

func DefaultConfig() *Config {
	return &Config{
		Storage: StorageConfig{
			DataDir: defaultDataDir(),
		},
		Cache: CacheConfig{
			TTL:                 Duration(cache.DefaultTTL),
			MemoryMaxBytes:      64 << 20,
			SimilarityThreshold: cache.DefaultSimilarityThreshold,
		},
		Retrieval: RetrievalConfig{
			TopK:           4,
			VectorWeight:   retrieval.DefaultVectorWeight,
			QueryCacheSize: vector.DefaultQueryCacheSize,
		},
		Chunking: ChunkingConfig{
			ChunkSize:    chunking.DefaultChunkSize,
			ChunkOverlap: chunking.DefaultChunkOverlap,
		},
		LLM: LLMConfig{
			Provider:       "openai",
			Model:          "",
			MaxTokens:      800,
			Temperature:    0.2,
			Timeout:        Duration(2 * time.Minute),
			EmbeddingModel: "text-embedding-3-small",
		},
	}
}

func defaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".vidqa"
	}
	return filepath.Join(home, ".vidqa")
}

// Options converts the chunking section to splitter options.
func (c ChunkingConfig) Options() chunking.Options {
	return chunking.Options{ChunkSize: c.ChunkSize, ChunkOverlap: c.ChunkOverlap}
}

// Manager holds the live configuration and reloads it when the underlying
// file changes. Get is safe from any goroutine.
type Manager struct {
	configPtr unsafe.Pointer
	path      string
	watchers  []func(*Config)
	watcherMu sync.RWMutex
	stopWatch chan struct{}
	watchOnce sync.Once
}

// NewManager creates a manager bound to the given config file path. The
// file may not exist; defaults apply until it does.
func NewManager(path string) *Manager {
	m := &Manager{
		path:      path,
		stopWatch: make(chan struct{}),
	}
	atomic.StorePointer(&m.configPtr, unsafe.Pointer(DefaultConfig()))
	return m
}

func (m *Manager) Get() *Config {
	return (*Config)(atomic.LoadPointer(&m.configPtr))
}

// Load reads the config file onto defaults and applies environment
// overrides. A missing file is not an error.
func (m *Manager) Load() error {
	cfg := DefaultConfig()

	if err := m.loadYAMLFile(m.path, cfg); err != nil {
		return fmt.Errorf("config file %s: %w", m.path, err)
	}

	m.applyEnvironment(cfg)

	atomic.StorePointer(&m.configPtr, unsafe.Pointer(cfg))
	m.notifyWatchers(cfg)

	return nil
}

func (m *Manager) loadYAMLFile(path string, cfg *Config) error {
	if path == "" {
		return nil
	}
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return err
	}

	return yaml.Unmarshal(data, cfg)
}

func (m *Manager) applyEnvironment(cfg *Config) {
	if v := os.Getenv("VIDQA_DATA_DIR"); v != "" {
		cfg.Storage.DataDir = v
	}
	if v := os.Getenv("VIDQA_CACHE_TTL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Cache.TTL = Duration(d)
		}
	}
	if v := os.Getenv("VIDQA_VECTOR_WEIGHT"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.Retrieval.VectorWeight = f
		}
	}
	if v := os.Getenv("VIDQA_TOP_K"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Retrieval.TopK = n
		}
	}
	if v := os.Getenv("VIDQA_LLM_PROVIDER"); v != "" {
		cfg.LLM.Provider = strings.ToLower(v)
	}
	if v := os.Getenv("VIDQA_LLM_MODEL"); v != "" {
		cfg.LLM.Model = v
	}
	if v := os.Getenv("VIDQA_LLM_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.LLM.Timeout = Duration(d)
		}
	}
	if v := os.Getenv("VIDQA_EMBEDDING_MODEL"); v != "" {
		cfg.LLM.EmbeddingModel = v
	}
}

// OnChange registers a callback invoked after every successful reload.
func (m *Manager) OnChange(fn func(*Config)) {
	m.watcherMu.Lock()
	m.watchers = append(m.watchers, fn)
	m.watcherMu.Unlock()
}

func (m *Manager) notifyWatchers(cfg *Config) {
	m.watcherMu.RLock()
	watchers := m.watchers
	m.watcherMu.RUnlock()

	for _, fn := range watchers {
		fn(cfg)
	}
}

// Watch reloads the configuration when the config file changes. It returns
// immediately; the watch runs until Close. Watching a file that does not
// exist yet watches its parent directory.
func (m *Manager) Watch() error {
	if m.path == "" {
		return nil
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}

	dir := filepath.Dir(m.path)
	if err := watcher.Add(dir); err != nil {
		watcher.Close()
		return fmt.Errorf("watch %s: %w", dir, err)
	}

	go m.watchLoop(watcher)
	return nil
}

func (m *Manager) watchLoop(watcher *fsnotify.Watcher) {
	defer watcher.Close()

	var timer *time.Timer
	for {
		select {
		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			if event.Name != m.path {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			if timer != nil {
				timer.Stop()
			}
			timer = time.AfterFunc(reloadDebounce, func() {
				// A failed reload keeps the previous config.
				_ = m.Load()
			})
		case _, ok := <-watcher.Errors:
			if !ok {
				return
			}
		case <-m.stopWatch:
			return
		}
	}
}

func (m *Manager) Close() error {
	m.watchOnce.Do(func() {
		close(m.stopWatch)
	})
	return nil
}
