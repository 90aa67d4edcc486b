package vector

import (
	"context"
	"database/sql"
	"encoding/binary"
	"fmt"
	"log/slog"
	"math"
	"sort"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/viterin/vek/vek32"
	_ "modernc.org/sqlite"

	"github.com/vidqa/vidqa/core/index"
)

// DefaultQueryCacheSize bounds the query-embedding cache.
const DefaultQueryCacheSize = 1024

// StoreConfig configures the dense store.
type StoreConfig struct {
	Embedder Embedder

	// DBPath enables sqlite persistence of embeddings; empty keeps the
	// store in-memory only.
	DBPath string

	// QueryCacheSize bounds the cache of embedded queries. <= 0 uses the
	// default.
	QueryCacheSize int

	Logger *slog.Logger
}

type passageEntry struct {
	passage index.Passage
	vector  []float32
}

// Store holds one vector namespace per video and ranks passages by cosine
// similarity against the embedded query. It implements the dense-searcher
// side of hybrid retrieval and doubles as the passage source for lazy
// lexical index builds.
type Store struct {
	mu         sync.RWMutex
	namespaces map[string][]passageEntry

	embedder   Embedder
	queryCache *lru.Cache[string, []float32]
	db         *sql.DB
	logger     *slog.Logger
}

// NewStore creates a dense store. When cfg.DBPath is set, previously
// persisted namespaces are loaded back into memory.
func NewStore(cfg StoreConfig) (*Store, error) {
	if cfg.Embedder == nil {
		return nil, fmt.Errorf("vector store: embedder is required")
	}
	if cfg.QueryCacheSize <= 0 {
		cfg.QueryCacheSize = DefaultQueryCacheSize
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	queryCache, err := lru.New[string, []float32](cfg.QueryCacheSize)
	if err != nil {
		return nil, err
	}

	s := &Store{
		namespaces: make(map[string][]passageEntry),
		embedder:   cfg.Embedder,
		queryCache: queryCache,
		logger:     cfg.Logger,
	}

	if cfg.DBPath != "" {
		db, err := sql.Open("sqlite", cfg.DBPath)
		if err != nil {
			return nil, fmt.Errorf("vector store: open db: %w", err)
		}
		if err := initSchema(db); err != nil {
			db.Close()
			return nil, fmt.Errorf("vector store: init schema: %w", err)
		}
		s.db = db
		if err := s.loadFromDB(); err != nil {
			db.Close()
			return nil, fmt.Errorf("vector store: load: %w", err)
		}
	}

	return s, nil
}

func initSchema(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS passages (
			id TEXT PRIMARY KEY,
			video_id TEXT NOT NULL,
			content TEXT NOT NULL,
			embedding BLOB NOT NULL,
			position INTEGER NOT NULL,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP
		);
		CREATE INDEX IF NOT EXISTS idx_passages_video ON passages(video_id, position);
	`)
	return err
}

// IndexPassages embeds the passages and replaces the video's namespace
// wholesale. The previous namespace content, if any, is discarded.
func (s *Store) IndexPassages(ctx context.Context, videoID string, passages []index.Passage) error {
	texts := make([]string, len(passages))
	for i, p := range passages {
		texts[i] = p.Text
	}

	vectors, err := s.embedder.EmbedBatch(ctx, texts)
	if err != nil {
		return fmt.Errorf("vector store: embed passages: %w", err)
	}
	if len(vectors) != len(passages) {
		return fmt.Errorf("vector store: got %d vectors for %d passages", len(vectors), len(passages))
	}

	entries := make([]passageEntry, len(passages))
	for i, p := range passages {
		entries[i] = passageEntry{passage: p, vector: vectors[i]}
	}

	s.mu.Lock()
	s.namespaces[videoID] = entries
	s.mu.Unlock()

	if s.db != nil {
		if err := s.persistNamespace(ctx, videoID, entries); err != nil {
			s.logger.Warn("vector namespace persistence failed", "video_id", videoID, "error", err)
		}
	}
	return nil
}

func (s *Store) persistNamespace(ctx context.Context, videoID string, entries []passageEntry) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM passages WHERE video_id = ?`, videoID); err != nil {
		return err
	}
	for i, e := range entries {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO passages (id, video_id, content, embedding, position, created_at)
			VALUES (?, ?, ?, ?, ?, ?)
		`, e.passage.ID, videoID, e.passage.Text, encodeVector(e.vector), i, time.Now().UTC())
		if err != nil {
			return err
		}
	}
	return tx.Commit()
}

func (s *Store) loadFromDB() error {
	rows, err := s.db.Query(`SELECT id, video_id, content, embedding FROM passages ORDER BY video_id, position`)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var id, videoID, content string
		var blob []byte
		if err := rows.Scan(&id, &videoID, &content, &blob); err != nil {
			return err
		}
		s.namespaces[videoID] = append(s.namespaces[videoID], passageEntry{
			passage: index.Passage{ID: id, Text: content},
			vector:  decodeVector(blob),
		})
	}
	return rows.Err()
}

// SimilaritySearch returns up to k passage contents for the query ranked by
// cosine similarity, best first. An unknown video yields an empty result.
func (s *Store) SimilaritySearch(ctx context.Context, videoID, query string, k int) ([]string, error) {
	if k <= 0 {
		return nil, nil
	}

	queryVec, err := s.embedQuery(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("vector store: embed query: %w", err)
	}

	s.mu.RLock()
	entries := s.namespaces[videoID]
	s.mu.RUnlock()
	if len(entries) == 0 {
		return nil, nil
	}

	type scored struct {
		content string
		score   float64
	}
	results := make([]scored, len(entries))
	for i, e := range entries {
		results[i] = scored{content: e.passage.Text, score: cosineSimilarity(queryVec, e.vector)}
	}
	sort.SliceStable(results, func(i, j int) bool {
		return results[i].score > results[j].score
	})

	if len(results) > k {
		results = results[:k]
	}
	contents := make([]string, len(results))
	for i, r := range results {
		contents[i] = r.content
	}
	return contents, nil
}

func (s *Store) embedQuery(ctx context.Context, query string) ([]float32, error) {
	if vec, ok := s.queryCache.Get(query); ok {
		return vec, nil
	}
	vec, err := s.embedder.Embed(ctx, query)
	if err != nil {
		return nil, err
	}
	s.queryCache.Add(query, vec)
	return vec, nil
}

// Passages returns the video's indexed passages in insertion order. It
// satisfies index.PassageSource for lazy lexical builds.
func (s *Store) Passages(videoID string) []index.Passage {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entries := s.namespaces[videoID]
	passages := make([]index.Passage, len(entries))
	for i, e := range entries {
		passages[i] = e.passage
	}
	return passages
}

// Count returns the number of passages indexed for the video.
func (s *Store) Count(videoID string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.namespaces[videoID])
}

// Close releases the persistence handle, if any.
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

func cosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	dot := float64(vek32.Dot(a, b))
	normA := math.Sqrt(float64(vek32.Dot(a, a)))
	normB := math.Sqrt(float64(vek32.Dot(b, b)))
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (normA * normB)
}

func encodeVector(vec []float32) []byte {
	buf := make([]byte, 4*len(vec))
	for i, v := range vec {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(v))
	}
	return buf
}

func decodeVector(buf []byte) []float32 {
	vec := make([]float32, len(buf)/4)
	for i := range vec {
		vec[i] = math.Float32frombits(binary.LittleEndian.Uint32(buf[i*4:]))
	}
	return vec
}
