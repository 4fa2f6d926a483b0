package mcp

import (
	"context"
	"errors"
	"log/slog"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/duclm1x1/dive-engine/internal/chunk"
	"github.com/duclm1x1/dive-engine/internal/ingest"
	"github.com/duclm1x1/dive-engine/internal/search"
	"github.com/duclm1x1/dive-engine/pkg/version"
)

// Server bridges MCP clients with the retrieval engine.
type Server struct {
	mcp    *mcp.Server
	engine *search.Engine
	logger *slog.Logger
}

// NewServer creates the MCP server and registers its tools.
func NewServer(engine *search.Engine) (*Server, error) {
	if engine == nil {
		return nil, errors.New("engine is required")
	}

	s := &Server{
		engine: engine,
		logger: slog.Default(),
	}
	s.mcp = mcp.NewServer(
		&mcp.Implementation{
			Name:    "dive-engine",
			Version: version.Version,
		},
		nil,
	)
	s.registerTools()
	return s, nil
}

func (s *Server) registerTools() {
	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "query",
		Description: "Hybrid retrieval over the ingested documents: BM25 and dense results fused into one ranked list, with an assembled context under a character budget. Set explain for the full fusion and budget trace.",
	}, s.queryHandler)

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "ingest",
		Description: "Ingest or re-ingest a file into the index. Re-ingesting the same path replaces its chunks. CSV files chunk per data row; text uses the configured strategy.",
	}, s.ingestHandler)

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "delete_document",
		Description: "Remove a document and all of its chunks from the index.",
	}, s.deleteHandler)

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "index_status",
		Description: "Report index statistics: document, chunk and vector counts, and whether dense retrieval is active.",
	}, s.statusHandler)

	s.logger.Debug("mcp tools registered", "count", 4)
}

func (s *Server) queryHandler(ctx context.Context, _ *mcp.CallToolRequest, input QueryInput) (
	*mcp.CallToolResult,
	QueryOutput,
	error,
) {
	if input.Query == "" {
		return nil, QueryOutput{}, NewInvalidParamsError("query parameter is required")
	}

	opts := search.QueryOptions{
		TopK:            input.TopK,
		MaxContextChars: input.MaxContextChars,
		BM25Only:        input.BM25Only,
		NoCorrective:    input.NoCorrective,
	}
	res, err := s.engine.Query(ctx, input.Query, opts)
	if err != nil {
		return nil, QueryOutput{}, MapError(err)
	}

	output := QueryOutput{
		Results: make([]ResultOutput, 0, len(res.Candidates)),
		Context: res.Context,
	}
	for _, c := range res.Candidates {
		output.Results = append(output.Results, ResultOutput{
			ChunkID:      c.ChunkID,
			DocID:        c.DocID,
			Text:         c.Text,
			Score:        c.Score,
			BM25Score:    c.BM25Score,
			DenseScore:   c.DenseScore,
			MatchedTerms: c.MatchedTerms,
			InBoth:       c.InBoth,
		})
	}
	if input.Explain {
		output.Trace = res.Trace
	}
	return nil, output, nil
}

func (s *Server) ingestHandler(ctx context.Context, _ *mcp.CallToolRequest, input IngestInput) (
	*mcp.CallToolResult,
	IngestOutput,
	error,
) {
	if input.Path == "" {
		return nil, IngestOutput{}, NewInvalidParamsError("path parameter is required")
	}

	var kind chunk.Kind
	if input.Kind != "" {
		parsed, err := chunk.ParseKind(input.Kind)
		if err != nil {
			return nil, IngestOutput{}, MapError(err)
		}
		kind = parsed
	}

	var strategy chunk.Strategy
	if input.Strategy != "" {
		parsed, err := chunk.ParseStrategy(input.Strategy)
		if err != nil {
			return nil, IngestOutput{}, MapError(err)
		}
		strategy = parsed
	}

	doc, err := ingest.LoadDocument(input.Path, kind)
	if err != nil {
		return nil, IngestOutput{}, MapError(err)
	}

	result, err := s.engine.Ingest(ctx, doc, strategy)
	if err != nil {
		return nil, IngestOutput{}, MapError(err)
	}

	return nil, IngestOutput{
		DocID:    result.DocID,
		Strategy: string(result.Strategy),
		Chunks:   result.Chunks,
		Removed:  result.Removed,
	}, nil
}

func (s *Server) deleteHandler(ctx context.Context, _ *mcp.CallToolRequest, input DeleteInput) (
	*mcp.CallToolResult,
	DeleteOutput,
	error,
) {
	if input.DocID == "" {
		return nil, DeleteOutput{}, NewInvalidParamsError("doc_id parameter is required")
	}

	removed, err := s.engine.Delete(ctx, input.DocID)
	if err != nil {
		return nil, DeleteOutput{}, MapError(err)
	}
	return nil, DeleteOutput{DocID: input.DocID, Removed: removed}, nil
}

func (s *Server) statusHandler(ctx context.Context, _ *mcp.CallToolRequest, _ StatusInput) (
	*mcp.CallToolResult,
	StatusOutput,
	error,
) {
	stats, err := s.engine.Stats(ctx)
	if err != nil {
		return nil, StatusOutput{}, MapError(err)
	}

	out := StatusOutput{
		Documents:  stats.Documents,
		Chunks:     stats.Chunks,
		Vectors:    stats.Vectors,
		DenseReady: stats.DenseReady,
	}
	if stats.BM25Stats != nil {
		out.BM25Entries = stats.BM25Stats.ChunkCount
	}
	return nil, out, nil
}

// Run serves MCP over stdio until ctx is cancelled.
func (s *Server) Run(ctx context.Context) error {
	s.logger.Info("mcp server starting", "transport", "stdio")
	err := s.mcp.Run(ctx, &mcp.StdioTransport{})
	if err != nil && !errors.Is(err, context.Canceled) {
		s.logger.Error("mcp server stopped with error", "error", err)
		return err
	}
	s.logger.Info("mcp server stopped")
	return nil
}
