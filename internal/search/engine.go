package search

import (
	"context"
	stderrors "errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/duclm1x1/dive-engine/internal/chunk"
	"github.com/duclm1x1/dive-engine/internal/config"
	"github.com/duclm1x1/dive-engine/internal/embed"
	enginerrors "github.com/duclm1x1/dive-engine/internal/errors"
	"github.com/duclm1x1/dive-engine/internal/store"
)

// vectorFileName is the HNSW graph file inside the data directory.
const vectorFileName = "vectors.hnsw"

// candidateMultiplier over-fetches each retrieval leg relative to the
// requested top-k, so fusion has enough overlap to rank with.
const candidateMultiplier = 3

// Engine ties the stores and query stages together. Queries may run
// concurrently; ingestion and deletion take the write lock so a running
// query never observes a partially updated index.
type Engine struct {
	mu  sync.RWMutex
	cfg *config.Config

	metadata store.MetadataStore
	bm25     store.BM25Index
	vector   store.VectorStore
	embedder embed.Embedder

	retriever  *Retriever
	fuser      *Fuser
	corrective *CorrectivePass
	assembler  *Assembler
	reranker   Reranker

	kindBoosts map[chunk.Kind]float64
	lock       *store.IndexLock
	vectorPath string
	closed     bool
}

// NewEngine opens or creates all stores under cfg.Index.Dir and wires
// the query pipeline. A "none" embeddings provider yields a fully
// functional lexical-only engine.
func NewEngine(cfg *config.Config) (*Engine, error) {
	dataDir := cfg.Index.Dir
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return nil, enginerrors.Wrap(enginerrors.ErrCodeIndexNotFound, err)
	}

	metadata, err := store.NewSQLiteStore(filepath.Join(dataDir, "metadata.db"))
	if err != nil {
		return nil, err
	}

	bm25Config := store.DefaultBM25Config()
	bm25Config.K1 = cfg.Index.K1
	bm25Config.B = cfg.Index.B
	bm25, err := store.NewBM25Index(dataDir, bm25Config, cfg.Index.BM25Backend)
	if err != nil {
		metadata.Close()
		return nil, err
	}

	embedder, err := embed.NewEmbedder(cfg.Embeddings)
	if err != nil {
		metadata.Close()
		bm25.Close()
		return nil, err
	}

	vectorPath := filepath.Join(dataDir, vectorFileName)
	vector, err := openVectorStore(embedder, vectorPath, cfg.Embeddings.Dimensions)
	if err != nil {
		metadata.Close()
		bm25.Close()
		if embedder != nil {
			embedder.Close()
		}
		return nil, err
	}

	kindBoosts := make(map[chunk.Kind]float64, len(cfg.Search.KindBoosts))
	for kind, boost := range cfg.Search.KindBoosts {
		kindBoosts[chunk.Kind(kind)] = boost
	}

	e := &Engine{
		cfg:        cfg,
		metadata:   metadata,
		bm25:       bm25,
		vector:     vector,
		embedder:   embedder,
		retriever:  NewRetriever(bm25, vector, embedder, metadata),
		fuser:      NewFuser(FusionMode(cfg.Search.Fusion), cfg.Search.RRFConstant, kindBoosts),
		corrective: NewCorrectivePass(cfg.Corrective, NewQueryExpander()),
		assembler:  NewAssembler(cfg.Search.MaxContextChars),
		reranker:   &NoOpReranker{},
		kindBoosts: kindBoosts,
		lock:       store.NewIndexLock(dataDir),
		vectorPath: vectorPath,
	}
	return e, nil
}

// openVectorStore builds the dense store for the configured embedder.
// A nil embedder disables the dense leg entirely; an existing graph
// built with a different dimension is rejected rather than silently
// returning nonsense neighbors.
func openVectorStore(embedder embed.Embedder, vectorPath string, dimensions int) (store.VectorStore, error) {
	if embedder == nil {
		return store.NewNullVectorStore(), nil
	}

	// StoredDimensions reports 0 when no index has been written yet.
	if stored, err := store.StoredDimensions(vectorPath); err == nil && stored != 0 && stored != embedder.Dimensions() {
		return nil, enginerrors.ConfigError(
			fmt.Sprintf("vector index was built with %d dimensions, embedder produces %d", stored, embedder.Dimensions()), nil).
			WithDetail("stored", strconv.Itoa(stored)).
			WithDetail("configured", strconv.Itoa(embedder.Dimensions())).
			WithSuggestion("delete the index directory and re-ingest, or restore embeddings.dimensions")
	}

	hnsw, err := store.NewHNSWStore(store.DefaultVectorStoreConfig(dimensions))
	if err != nil {
		return nil, err
	}
	if _, statErr := os.Stat(vectorPath); statErr == nil {
		if loadErr := hnsw.Load(vectorPath); loadErr != nil {
			slog.Warn("vector index unreadable, starting empty", "path", vectorPath, "error", loadErr)
		}
	}
	return hnsw, nil
}

// IngestResult reports what an ingestion changed.
type IngestResult struct {
	DocID    string
	Strategy chunk.Strategy
	Chunks   int
	Removed  int
}

// Ingest chunks a document and replaces its entries across all three
// stores. Re-ingesting an unchanged document is idempotent: the same
// chunk ids are written again and nothing leaks. An empty strategy
// picks csv_row for CSV documents and the configured default otherwise.
func (e *Engine) Ingest(ctx context.Context, doc *chunk.Document, strategy chunk.Strategy) (*IngestResult, error) {
	if doc == nil || doc.ID == "" {
		return nil, enginerrors.MalformedInput("document id must not be empty", nil)
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return nil, enginerrors.InternalError("engine is closed", nil)
	}

	// Guard against a second process mutating the same data directory.
	if err := e.lock.Acquire(); err != nil {
		return nil, err
	}
	defer e.lock.Release()

	if strategy == "" {
		strategy = e.strategyFor(doc.Kind)
	}

	chunks, err := chunk.Split(doc, strategy, e.chunkOptions())
	if err != nil {
		return nil, err
	}

	removed, err := e.metadata.ReplaceDocument(ctx, doc, chunks)
	if err != nil {
		return nil, enginerrors.Wrap(enginerrors.ErrCodeIngestFailed, err)
	}

	if len(removed) > 0 {
		if err := e.bm25.Delete(ctx, removed); err != nil {
			return nil, enginerrors.Wrap(enginerrors.ErrCodeIngestFailed, err)
		}
		if err := e.vector.Delete(ctx, removed); err != nil {
			slog.Warn("failed to evict stale vectors", "doc", doc.ID, "error", err)
		}
	}

	entries := make([]*store.IndexEntry, len(chunks))
	texts := make([]string, len(chunks))
	ids := make([]string, len(chunks))
	for i, c := range chunks {
		entries[i] = &store.IndexEntry{ChunkID: c.ID, Text: c.Text}
		texts[i] = c.Text
		ids[i] = c.ID
	}

	if err := e.bm25.Index(ctx, entries); err != nil {
		return nil, enginerrors.Wrap(enginerrors.ErrCodeIngestFailed, err)
	}

	// Dense indexing is best effort: an embedding failure degrades this
	// document to lexical-only retrieval instead of failing the ingest.
	if e.embedder != nil && len(chunks) > 0 {
		if err := e.indexVectors(ctx, ids, texts); err != nil {
			slog.Warn("dense indexing failed, document is lexical-only",
				"doc", doc.ID, "error", err)
		}
	}

	if err := e.save(); err != nil {
		return nil, err
	}

	slog.Info("document ingested",
		"doc", doc.ID,
		"strategy", string(strategy),
		"chunks", len(chunks),
		"removed", len(removed))

	return &IngestResult{
		DocID:    doc.ID,
		Strategy: strategy,
		Chunks:   len(chunks),
		Removed:  len(removed),
	}, nil
}

func (e *Engine) indexVectors(ctx context.Context, ids []string, texts []string) error {
	vectors, err := e.embedder.EmbedBatch(ctx, texts)
	if err != nil {
		return err
	}
	if err := e.vector.Add(ctx, ids, vectors); err != nil {
		return err
	}

	// Record the embedding shape so a provider change is caught on the
	// next open instead of corrupting neighbor results.
	if err := e.metadata.SetState(ctx, store.StateKeyIndexDimension, strconv.Itoa(e.embedder.Dimensions())); err != nil {
		return err
	}
	return e.metadata.SetState(ctx, store.StateKeyIndexModel, e.embedder.ModelName())
}

// Delete removes a document and all of its chunks from every store.
func (e *Engine) Delete(ctx context.Context, docID string) (int, error) {
	if docID == "" {
		return 0, enginerrors.MalformedInput("document id must not be empty", nil)
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return 0, enginerrors.InternalError("engine is closed", nil)
	}

	if err := e.lock.Acquire(); err != nil {
		return 0, err
	}
	defer e.lock.Release()

	removed, err := e.metadata.DeleteDocument(ctx, docID)
	if err != nil {
		if stderrors.Is(err, store.ErrNotFound) {
			return 0, enginerrors.New(enginerrors.ErrCodeUnknownDoc,
				fmt.Sprintf("document %q is not indexed", docID), nil)
		}
		return 0, err
	}

	if err := e.bm25.Delete(ctx, removed); err != nil {
		return 0, err
	}
	if err := e.vector.Delete(ctx, removed); err != nil {
		slog.Warn("failed to evict vectors for deleted document", "doc", docID, "error", err)
	}

	if err := e.save(); err != nil {
		return 0, err
	}

	slog.Info("document deleted", "doc", docID, "chunks", len(removed))
	return len(removed), nil
}

// Query runs the full pipeline: retrieve, fuse, evaluate, optionally
// reformulate once, then assemble a context under the character budget.
func (e *Engine) Query(ctx context.Context, query string, opts QueryOptions) (*QueryResult, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, enginerrors.New(enginerrors.ErrCodeEmptyQuery, "query must not be empty", nil)
	}

	e.mu.RLock()
	defer e.mu.RUnlock()
	if e.closed {
		return nil, enginerrors.InternalError("engine is closed", nil)
	}

	start := time.Now()
	topK := e.resolveTopK(opts.TopK)
	weights, err := e.resolveWeights(opts.Weights)
	if err != nil {
		return nil, err
	}
	fuser := e.resolveFuser(opts.FusionMode)
	limit := topK * candidateMultiplier

	trace := &RetrievalTrace{
		Query:          query,
		EffectiveQuery: query,
		FusionMode:     fuser.mode,
		Weights:        weights,
		States:         []CorrectiveState{StateInitialRetrieve},
		ContextBudget:  e.resolveBudget(opts.MaxContextChars),
	}

	ret, err := e.retriever.Retrieve(ctx, query, limit, opts.BM25Only)
	if err != nil {
		return nil, enginerrors.Wrap(enginerrors.ErrCodeSearchFailed, err)
	}
	trace.BM25Count = ret.bm25Count
	trace.DenseCount = ret.denseCount
	trace.DenseSkipped = ret.denseSkipped

	ranked := fuser.Fuse(ret.candidates, weights)
	trace.States = append(trace.States, StateEvaluate)

	correctiveOn := e.cfg.Corrective.Enabled && !opts.NoCorrective
	if !correctiveOn {
		trace.CorrectiveReason = CorrectiveDisabled
		trace.States = append(trace.States, StateAccept)
	} else if adequate, reason := e.corrective.Adequate(query, ranked); adequate {
		trace.CorrectiveReason = reason
		trace.States = append(trace.States, StateAccept)
	} else if reformulated, ok := e.corrective.Reformulate(query); !ok {
		trace.CorrectiveReason = CorrectiveSameQuery
		trace.States = append(trace.States, StateAccept)
	} else {
		trace.CorrectiveReason = reason
		trace.States = append(trace.States, StateReformulateRetrieve)
		trace.Reformulated = true
		trace.EffectiveQuery = reformulated

		// The second pass is accepted as-is, adequate or not.
		ret, err = e.retriever.Retrieve(ctx, reformulated, limit, opts.BM25Only)
		if err != nil {
			return nil, enginerrors.Wrap(enginerrors.ErrCodeSearchFailed, err)
		}
		trace.BM25Count = ret.bm25Count
		trace.DenseCount = ret.denseCount
		ranked = fuser.Fuse(ret.candidates, weights)
	}
	trace.States = append(trace.States, StateDone)

	ranked, err = e.reranker.Rerank(ctx, query, ranked, topK)
	if err != nil {
		return nil, enginerrors.Wrap(enginerrors.ErrCodeSearchFailed, err)
	}

	assembled, used, entries := e.assembler.Assemble(ranked, trace.ContextBudget)
	trace.ContextChars = used
	trace.Entries = entries
	trace.Elapsed = time.Since(start)

	return &QueryResult{
		Candidates: ranked,
		Context:    assembled,
		Trace:      trace,
	}, nil
}

// Stats reports document, chunk and vector counts.
func (e *Engine) Stats(ctx context.Context) (*EngineStats, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if e.closed {
		return nil, enginerrors.InternalError("engine is closed", nil)
	}

	docs, chunks, err := e.metadata.Counts(ctx)
	if err != nil {
		return nil, err
	}
	return &EngineStats{
		Documents:  docs,
		Chunks:     chunks,
		BM25Stats:  e.bm25.Stats(),
		Vectors:    e.vector.Count(),
		DenseReady: e.embedder != nil,
	}, nil
}

// save flushes the lexical and vector indexes to disk.
func (e *Engine) save() error {
	if err := e.bm25.Save(); err != nil {
		return err
	}
	if err := e.vector.Save(e.vectorPath); err != nil {
		return err
	}
	return nil
}

// Close flushes and closes all stores. Safe to call once.
func (e *Engine) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return nil
	}
	e.closed = true

	var firstErr error
	record := func(err error) {
		if err != nil && firstErr == nil {
			firstErr = err
		}
	}

	record(e.save())
	record(e.bm25.Close())
	record(e.vector.Close())
	if e.embedder != nil {
		record(e.embedder.Close())
	}
	record(e.reranker.Close())
	record(e.metadata.Close())
	return firstErr
}

// strategyFor picks the chunking strategy for a document kind when the
// caller did not declare one.
func (e *Engine) strategyFor(kind chunk.Kind) chunk.Strategy {
	if kind == chunk.KindCSV {
		return chunk.StrategyCSVRow
	}
	if s, err := chunk.ParseStrategy(e.cfg.Chunking.Strategy); err == nil {
		return s
	}
	return chunk.StrategyCharWindow
}

func (e *Engine) chunkOptions() chunk.Options {
	return chunk.Options{
		ChunkSize:       e.cfg.Chunking.ChunkSize,
		Overlap:         e.cfg.Chunking.Overlap,
		MinChunkChars:   e.cfg.Chunking.MinChunkChars,
		ColumnTolerance: e.cfg.Chunking.ColumnTolerance,
	}
}

func (e *Engine) resolveTopK(topK int) int {
	if topK <= 0 {
		return e.cfg.Search.TopK
	}
	if topK > e.cfg.Search.MaxTopK {
		return e.cfg.Search.MaxTopK
	}
	return topK
}

// resolveWeights returns the configured weights, or a caller override
// after checking it against the same sum-to-1.0 rule config enforces.
func (e *Engine) resolveWeights(w *Weights) (Weights, error) {
	if w != nil {
		if err := w.Validate(); err != nil {
			return Weights{}, err
		}
		return *w, nil
	}
	return Weights{
		BM25:       e.cfg.Search.BM25Weight,
		Dense:      e.cfg.Search.DenseWeight,
		Structural: e.cfg.Search.StructuralWeight,
	}, nil
}

func (e *Engine) resolveBudget(budget int) int {
	if budget > 0 {
		return budget
	}
	return e.cfg.Search.MaxContextChars
}

// resolveFuser returns the configured fuser, or a per-query one when
// the caller overrides the fusion mode.
func (e *Engine) resolveFuser(mode FusionMode) *Fuser {
	if mode == "" || mode == e.fuser.mode {
		return e.fuser
	}
	return NewFuser(mode, e.cfg.Search.RRFConstant, e.kindBoosts)
}
