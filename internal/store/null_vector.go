package store

import "context"

// NullVectorStore is the dense-leg fallback when no embedder is
// configured: every operation succeeds and every search is empty, so
// retrieval degrades to lexical-only without erroring.
type NullVectorStore struct{}

var _ VectorStore = (*NullVectorStore)(nil)

// NewNullVectorStore returns the no-op vector store.
func NewNullVectorStore() *NullVectorStore {
	return &NullVectorStore{}
}

func (n *NullVectorStore) Add(ctx context.Context, ids []string, vectors [][]float32) error {
	return nil
}

func (n *NullVectorStore) Search(ctx context.Context, query []float32, k int) ([]*VectorResult, error) {
	return []*VectorResult{}, nil
}

func (n *NullVectorStore) Delete(ctx context.Context, ids []string) error { return nil }

func (n *NullVectorStore) Contains(id string) bool { return false }

func (n *NullVectorStore) Count() int { return 0 }

func (n *NullVectorStore) Save(path string) error { return nil }

func (n *NullVectorStore) Load(path string) error { return nil }

func (n *NullVectorStore) Close() error { return nil }
