package search

import "context"

// Reranker reorders fused candidates with a second-stage scorer.
// The engine applies it after fusion and before context assembly.
type Reranker interface {
	// Rerank reorders candidates by relevance to the query, truncating
	// to topK when topK > 0.
	Rerank(ctx context.Context, query string, candidates []*Candidate, topK int) ([]*Candidate, error)

	// Available reports whether the reranker can currently score.
	Available(ctx context.Context) bool

	// Close releases resources.
	Close() error
}

// NoOpReranker keeps the fused order and only applies the topK cut.
// Used when no second-stage scorer is configured.
type NoOpReranker struct{}

func (n *NoOpReranker) Rerank(_ context.Context, _ string, candidates []*Candidate, topK int) ([]*Candidate, error) {
	if topK > 0 && topK < len(candidates) {
		candidates = candidates[:topK]
	}
	return candidates, nil
}

func (n *NoOpReranker) Available(_ context.Context) bool {
	return true
}

func (n *NoOpReranker) Close() error {
	return nil
}

var _ Reranker = (*NoOpReranker)(nil)
