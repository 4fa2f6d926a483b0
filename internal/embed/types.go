// Package embed generates dense vectors for chunks and queries.
//
// The default provider is a deterministic hash-based embedder that needs
// no network or model files. Providers that are unavailable degrade to
// "none", which disables the dense retrieval leg without erroring.
package embed

import (
	"context"
	"math"
)

// DefaultDimensions is the vector dimension of the static embedder.
const DefaultDimensions = 256

// DefaultCacheSize is the default number of query embeddings kept in the
// LRU cache.
const DefaultCacheSize = 1000

// Embedder generates vector embeddings for text.
type Embedder interface {
	// Embed generates the embedding for a single text.
	Embed(ctx context.Context, text string) ([]float32, error)

	// EmbedBatch generates embeddings for multiple texts.
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)

	// Dimensions returns the embedding dimension.
	Dimensions() int

	// ModelName returns the provider identifier.
	ModelName() string

	// Available reports whether the embedder is ready to serve.
	Available(ctx context.Context) bool

	// Close releases resources.
	Close() error
}

// normalizeVector scales a vector to unit length. Zero vectors are
// returned unchanged.
func normalizeVector(v []float32) []float32 {
	var sumSquares float64
	for _, val := range v {
		sumSquares += float64(val) * float64(val)
	}

	magnitude := math.Sqrt(sumSquares)
	if magnitude == 0 {
		return v
	}

	normalized := make([]float32, len(v))
	for i, val := range v {
		normalized[i] = float32(float64(val) / magnitude)
	}
	return normalized
}
