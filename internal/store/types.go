// Package store is the persistence layer: the BM25 lexical index
// (Bleve or SQLite FTS5), the HNSW vector store and the SQLite
// metadata store for documents and chunks.
package store

import (
	"context"
	"fmt"

	"github.com/duclm1x1/dive-engine/internal/chunk"
)

// State keys in the metadata store.
const (
	// StateKeyIndexDimension records the embedding dimension the vector
	// index was built with, so a provider change is detected on open.
	StateKeyIndexDimension = "index_embedding_dimension"

	// StateKeyIndexModel records the embedding model name.
	StateKeyIndexModel = "index_embedding_model"

	// StateKeySchemaVersion records the metadata schema version.
	StateKeySchemaVersion = "schema_version"
)

// IndexEntry is what the lexical index stores per chunk: the id and the
// text to analyze.
type IndexEntry struct {
	ChunkID string
	Text    string
}

// BM25Result is a single lexical search hit.
type BM25Result struct {
	ChunkID      string
	Score        float64
	MatchedTerms []string
}

// IndexStats summarizes the lexical index.
type IndexStats struct {
	ChunkCount int
}

// BM25Index is the lexical retrieval leg.
type BM25Index interface {
	// Index upserts entries. Existing ids are replaced.
	Index(ctx context.Context, entries []*IndexEntry) error

	// Search returns the top entries for the query, scored by BM25.
	// An empty query yields no results, not an error.
	Search(ctx context.Context, query string, limit int) ([]*BM25Result, error)

	// Delete removes entries by chunk id.
	Delete(ctx context.Context, chunkIDs []string) error

	// AllIDs returns every chunk id present, for consistency checks.
	AllIDs() ([]string, error)

	// Stats returns index statistics.
	Stats() *IndexStats

	// Save flushes pending state to disk where the backend buffers.
	Save() error

	Close() error
}

// BM25Config configures the lexical index.
//
// K1 and B record the BM25 parameters the index scores with. Both
// backends score at the standard 1.2/0.75: bleve compiles them in as
// constants and FTS5's bm25() only takes column weights. The fields
// are informational; changing them does not change scoring.
type BM25Config struct {
	// K1 is the term frequency saturation parameter.
	K1 float64

	// B is the length normalization parameter.
	B float64

	// StopWords are filtered during analysis.
	StopWords []string

	// MinTokenLength drops tokens shorter than this.
	MinTokenLength int
}

// DefaultBM25Config returns the standard BM25 parameters.
func DefaultBM25Config() BM25Config {
	return BM25Config{
		K1:             1.2,
		B:              0.75,
		StopWords:      DefaultStopWords,
		MinTokenLength: 2,
	}
}

// DefaultStopWords are high-frequency terms that carry no ranking signal
// in prose or rendered CSV rows.
var DefaultStopWords = []string{
	"the", "a", "an", "and", "or", "of", "in", "on", "at",
	"to", "is", "are", "was", "were", "be", "been",
	"for", "with", "as", "by", "that", "this", "it",
}

// VectorResult is a single dense search hit.
type VectorResult struct {
	ChunkID  string
	Distance float32
	Score    float32
}

// VectorStoreConfig configures the HNSW store.
type VectorStoreConfig struct {
	// Dimensions is the vector dimension.
	Dimensions int

	// Metric is "cos" or "l2".
	Metric string

	// M is the max connections per HNSW layer.
	M int

	// EfSearch is the query-time search width.
	EfSearch int
}

// DefaultVectorStoreConfig returns HNSW defaults for a dimension.
func DefaultVectorStoreConfig(dimensions int) VectorStoreConfig {
	return VectorStoreConfig{
		Dimensions: dimensions,
		Metric:     "cos",
		M:          16,
		EfSearch:   32,
	}
}

// VectorStore is the dense retrieval leg. The null implementation keeps
// the engine functional when no embedder is configured.
type VectorStore interface {
	// Add upserts vectors by chunk id.
	Add(ctx context.Context, ids []string, vectors [][]float32) error

	// Search finds the k nearest neighbors.
	Search(ctx context.Context, query []float32, k int) ([]*VectorResult, error)

	// Delete removes vectors by chunk id.
	Delete(ctx context.Context, ids []string) error

	// Contains reports whether a chunk id is present.
	Contains(id string) bool

	// Count returns the number of live vectors.
	Count() int

	// Save and Load persist the graph and its id mappings.
	Save(path string) error
	Load(path string) error

	Close() error
}

// MetadataStore persists documents, chunks and engine state in SQLite.
type MetadataStore interface {
	// ReplaceDocument atomically replaces a document and all of its
	// chunks, returning the chunk ids that were removed. First
	// ingestion returns an empty removed set.
	ReplaceDocument(ctx context.Context, doc *chunk.Document, chunks []*chunk.Chunk) (removed []string, err error)

	// GetDocument fetches a document by id.
	GetDocument(ctx context.Context, id string) (*chunk.Document, error)

	// ListDocumentIDs returns all document ids in lexical order.
	ListDocumentIDs(ctx context.Context) ([]string, error)

	// DeleteDocument removes a document and its chunks, returning the
	// removed chunk ids.
	DeleteDocument(ctx context.Context, id string) ([]string, error)

	// GetChunk fetches a chunk by id.
	GetChunk(ctx context.Context, id string) (*chunk.Chunk, error)

	// GetChunks batch-fetches chunks; missing ids are skipped.
	GetChunks(ctx context.Context, ids []string) ([]*chunk.Chunk, error)

	// GetChunksByDoc returns a document's chunks in offset order.
	GetChunksByDoc(ctx context.Context, docID string) ([]*chunk.Chunk, error)

	// DocumentKind returns the kind of a chunk's parent document.
	DocumentKind(ctx context.Context, docID string) (chunk.Kind, error)

	// Counts returns document and chunk totals.
	Counts(ctx context.Context) (docs, chunks int, err error)

	// GetState and SetState form a small key-value store.
	GetState(ctx context.Context, key string) (string, error)
	SetState(ctx context.Context, key, value string) error

	Close() error
}

// ErrDimensionMismatch indicates a vector with the wrong dimension.
type ErrDimensionMismatch struct {
	Expected int
	Got      int
}

func (e ErrDimensionMismatch) Error() string {
	return fmt.Sprintf("dimension mismatch: expected %d, got %d", e.Expected, e.Got)
}
