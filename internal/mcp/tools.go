package mcp

import "github.com/duclm1x1/dive-engine/internal/search"

// QueryInput defines the input schema for the query tool.
type QueryInput struct {
	Query           string `json:"query" jsonschema:"the search query to execute"`
	TopK            int    `json:"top_k,omitempty" jsonschema:"maximum number of ranked results, default from config"`
	MaxContextChars int    `json:"max_context_chars,omitempty" jsonschema:"character budget for the assembled context"`
	BM25Only        bool   `json:"bm25_only,omitempty" jsonschema:"skip dense retrieval for this query"`
	NoCorrective    bool   `json:"no_corrective,omitempty" jsonschema:"disable the corrective reformulation pass"`
	Explain         bool   `json:"explain,omitempty" jsonschema:"include the full retrieval trace in the response"`
}

// ResultOutput is a single ranked result.
type ResultOutput struct {
	ChunkID      string   `json:"chunk_id" jsonschema:"deterministic chunk identifier"`
	DocID        string   `json:"doc_id" jsonschema:"owning document id"`
	Text         string   `json:"text" jsonschema:"chunk text"`
	Score        float64  `json:"score" jsonschema:"fused relevance score between 0 and 1"`
	BM25Score    float64  `json:"bm25_score,omitempty" jsonschema:"raw lexical score"`
	DenseScore   float64  `json:"dense_score,omitempty" jsonschema:"raw dense similarity score"`
	MatchedTerms []string `json:"matched_terms,omitempty" jsonschema:"query terms that matched this chunk"`
	InBoth       bool     `json:"in_both,omitempty" jsonschema:"true when both retrieval legs returned this chunk"`
}

// QueryOutput defines the output schema for the query tool.
type QueryOutput struct {
	Results []ResultOutput         `json:"results" jsonschema:"ranked results"`
	Context string                 `json:"context" jsonschema:"assembled context under the character budget"`
	Trace   *search.RetrievalTrace `json:"trace,omitempty" jsonschema:"retrieval trace, present when explain was set"`
}

// IngestInput defines the input schema for the ingest tool.
type IngestInput struct {
	Path     string `json:"path" jsonschema:"file path to ingest"`
	Kind     string `json:"kind,omitempty" jsonschema:"document kind: text, csv or code; detected from the extension when omitted"`
	Strategy string `json:"strategy,omitempty" jsonschema:"chunk strategy: char_window, csv_row or proposition; defaults per kind"`
}

// IngestOutput defines the output schema for the ingest tool.
type IngestOutput struct {
	DocID    string `json:"doc_id"`
	Strategy string `json:"strategy"`
	Chunks   int    `json:"chunks"`
	Removed  int    `json:"removed"`
}

// DeleteInput defines the input schema for the delete_document tool.
type DeleteInput struct {
	DocID string `json:"doc_id" jsonschema:"document id to remove"`
}

// DeleteOutput defines the output schema for the delete_document tool.
type DeleteOutput struct {
	DocID   string `json:"doc_id"`
	Removed int    `json:"removed"`
}

// StatusInput defines the input schema for the index_status tool.
type StatusInput struct{}

// StatusOutput defines the output schema for the index_status tool.
type StatusOutput struct {
	Documents   int  `json:"documents"`
	Chunks      int  `json:"chunks"`
	BM25Entries int  `json:"bm25_entries"`
	Vectors     int  `json:"vectors"`
	DenseReady  bool `json:"dense_ready"`
}
