// Package vector provides the per-video dense retrieval store.
package vector

import (
	"context"
	"crypto/sha256"
	"math"
)

// Embedder generates text embeddings for indexing and search.
type Embedder interface {
	// Embed generates an embedding for the given text.
	Embed(ctx context.Context, text string) ([]float32, error)

	// EmbedBatch generates embeddings for multiple texts.
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)

	// Dimension returns the embedding dimension.
	Dimension() int
}

// MockEmbedder produces deterministic pseudo-embeddings derived from the
// text's hash. Identical texts map to identical vectors, so similarity
// ranking is stable across runs. Intended for tests and offline use.
type MockEmbedder struct {
	dimension int
}

// NewMockEmbedder creates a mock embedder with the given dimension.
func NewMockEmbedder(dimension int) *MockEmbedder {
	if dimension <= 0 {
		dimension = 64
	}
	return &MockEmbedder{dimension: dimension}
}

func (m *MockEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	seed := sha256.Sum256([]byte(text))
	vec := make([]float32, m.dimension)
	// Expand the digest into a unit-norm vector.
	var norm float64
	for i := range vec {
		b := seed[i%len(seed)]
		v := float32(int(b)-128) / 128
		// Mix in the position so long vectors are not periodic.
		v += float32(math.Sin(float64(i+1) * float64(seed[(i+7)%len(seed)]+1)))
		vec[i] = v
		norm += float64(v) * float64(v)
	}
	if norm > 0 {
		scale := float32(1 / math.Sqrt(norm))
		for i := range vec {
			vec[i] *= scale
		}
	}
	return vec, nil
}

func (m *MockEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	vectors := make([][]float32, len(texts))
	for i, text := range texts {
		vec, err := m.Embed(ctx, text)
		if err != nil {
			return nil, err
		}
		vectors[i] = vec
	}
	return vectors, nil
}

func (m *MockEmbedder) Dimension() int { return m.dimension }
