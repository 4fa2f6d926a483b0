package search

import (
	"context"
	"errors"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/duclm1x1/dive-engine/internal/chunk"
	"github.com/duclm1x1/dive-engine/internal/embed"
	"github.com/duclm1x1/dive-engine/internal/store"
)

// Retriever runs the two retrieval legs in parallel and merges their
// hits into deduplicated candidates enriched with chunk metadata.
type Retriever struct {
	bm25     store.BM25Index
	vector   store.VectorStore
	embedder embed.Embedder
	metadata store.MetadataStore
}

// NewRetriever wires the retrieval legs. embedder may be nil, which
// permanently disables the dense leg.
func NewRetriever(bm25 store.BM25Index, vector store.VectorStore, embedder embed.Embedder, metadata store.MetadataStore) *Retriever {
	return &Retriever{
		bm25:     bm25,
		vector:   vector,
		embedder: embedder,
		metadata: metadata,
	}
}

// retrieval carries one pass's merged output plus leg bookkeeping for
// the trace.
type retrieval struct {
	candidates   []*Candidate
	bm25Count    int
	denseCount   int
	denseSkipped bool
}

// Retrieve runs both legs for the query and merges hits by chunk id.
// A failing leg degrades to empty results instead of failing the query;
// only both legs failing is an error.
func (r *Retriever) Retrieve(ctx context.Context, query string, limit int, bm25Only bool) (*retrieval, error) {
	var (
		bm25Results []*store.BM25Result
		vecResults  []*store.VectorResult
		bm25Err     error
		vecErr      error
	)

	denseSkipped := bm25Only || r.embedder == nil

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		var err error
		bm25Results, err = r.bm25.Search(gctx, query, limit)
		if err != nil {
			bm25Err = err
		}
		return nil
	})

	if !denseSkipped {
		g.Go(func() error {
			embedding, err := r.embedder.Embed(gctx, query)
			if err != nil {
				vecErr = err
				return nil
			}
			vecResults, err = r.vector.Search(gctx, embedding, limit)
			if err != nil {
				vecErr = err
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	if bm25Err != nil && (denseSkipped || vecErr != nil) {
		return nil, errors.Join(bm25Err, vecErr)
	}
	if bm25Err != nil {
		slog.Warn("lexical search failed, continuing with dense results only", "error", bm25Err)
	}
	if vecErr != nil {
		slog.Warn("dense search failed, continuing with lexical results only", "error", vecErr)
	}

	candidates, err := r.merge(ctx, bm25Results, vecResults)
	if err != nil {
		return nil, err
	}

	return &retrieval{
		candidates:   candidates,
		bm25Count:    len(bm25Results),
		denseCount:   len(vecResults),
		denseSkipped: denseSkipped,
	}, nil
}

// merge deduplicates the legs' hits by chunk id, then batch-loads chunk
// metadata. Hits whose chunks vanished from the metadata store (stale
// index entries) are dropped.
func (r *Retriever) merge(ctx context.Context, bm25Results []*store.BM25Result, vecResults []*store.VectorResult) ([]*Candidate, error) {
	byID := make(map[string]*Candidate, len(bm25Results)+len(vecResults))
	order := make([]string, 0, len(bm25Results)+len(vecResults))

	for rank, hit := range bm25Results {
		c, ok := byID[hit.ChunkID]
		if !ok {
			c = &Candidate{ChunkID: hit.ChunkID}
			byID[hit.ChunkID] = c
			order = append(order, hit.ChunkID)
		}
		c.BM25Score = hit.Score
		c.BM25Rank = rank + 1
		c.MatchedTerms = hit.MatchedTerms
	}

	for rank, hit := range vecResults {
		c, ok := byID[hit.ChunkID]
		if !ok {
			c = &Candidate{ChunkID: hit.ChunkID}
			byID[hit.ChunkID] = c
			order = append(order, hit.ChunkID)
		}
		c.DenseScore = float64(hit.Score)
		c.DenseRank = rank + 1
		if c.BM25Rank > 0 {
			c.InBoth = true
		}
	}

	chunks, err := r.metadata.GetChunks(ctx, order)
	if err != nil {
		return nil, err
	}

	kinds := make(map[string]struct{})
	enriched := make([]*Candidate, 0, len(chunks))
	for _, ch := range chunks {
		c := byID[ch.ID]
		c.DocID = ch.DocID
		c.Offset = ch.Offset
		c.Text = ch.Text
		c.Strategy = ch.Strategy
		kinds[ch.DocID] = struct{}{}
		enriched = append(enriched, c)
	}

	// Resolve document kinds for structural boosts, one lookup per doc.
	kindByDoc := make(map[string]chunk.Kind, len(kinds))
	for docID := range kinds {
		kind, err := r.metadata.DocumentKind(ctx, docID)
		if err != nil {
			continue
		}
		kindByDoc[docID] = kind
	}
	for _, c := range enriched {
		if kind, ok := kindByDoc[c.DocID]; ok {
			c.Kind = kind
		}
	}

	return enriched, nil
}
