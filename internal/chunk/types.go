// Package chunk splits documents into addressable retrieval units.
//
// All strategies are pure functions of (content, options): identical input
// always yields the identical chunk set and ids, which is what makes
// re-ingestion idempotent further up the stack.
package chunk

import (
	"fmt"

	enginerrors "github.com/duclm1x1/dive-engine/internal/errors"
)

// Kind represents the type of content in a document.
type Kind string

const (
	KindText Kind = "text"
	KindCSV  Kind = "csv"
	KindCode Kind = "code"
)

// ParseKind validates a document kind string.
func ParseKind(s string) (Kind, error) {
	switch Kind(s) {
	case KindText, KindCSV, KindCode:
		return Kind(s), nil
	default:
		return "", enginerrors.New(enginerrors.ErrCodeMalformedInput,
			fmt.Sprintf("unknown document kind %q", s), nil)
	}
}

// Strategy identifies a chunking strategy. The set is closed: dispatch is
// over these three values, not open-ended registration.
type Strategy string

const (
	StrategyCharWindow  Strategy = "char_window"
	StrategyCSVRow      Strategy = "csv_row"
	StrategyProposition Strategy = "proposition"
)

// ParseStrategy validates a strategy string.
func ParseStrategy(s string) (Strategy, error) {
	switch Strategy(s) {
	case StrategyCharWindow, StrategyCSVRow, StrategyProposition:
		return Strategy(s), nil
	default:
		return "", enginerrors.New(enginerrors.ErrCodeBadStrategy,
			fmt.Sprintf("unknown chunk strategy %q", s), nil).
			WithSuggestion("use char_window, csv_row or proposition")
	}
}

// Document is the ingest-side input: a stable id, a source path or URI,
// a kind and the raw content. Immutable once ingested; re-ingestion with
// the same ID replaces all prior chunks.
type Document struct {
	ID      string
	Source  string
	Kind    Kind
	Content string
}

// Chunk is an addressable retrieval unit derived from a document.
// Offset is strategy-defined: a character index for char_window and
// proposition, a zero-based row index for csv_row.
type Chunk struct {
	ID       string
	DocID    string
	Offset   int
	Text     string
	Strategy Strategy
}

// ID derives the deterministic chunk id for a document offset.
// Stable across re-ingestion when content and strategy are unchanged.
func ID(docID string, offset int) string {
	return fmt.Sprintf("%s::off%d", docID, offset)
}

// Options holds per-strategy chunking parameters.
type Options struct {
	// ChunkSize is the window length in characters (char_window).
	ChunkSize int

	// Overlap is the number of characters shared between consecutive
	// windows (char_window). Must be smaller than ChunkSize.
	Overlap int

	// MinChunkChars discards proposition fragments shorter than this.
	MinChunkChars int

	// ColumnTolerance is the allowed per-row column count drift for
	// csv_row before the document is rejected as malformed.
	ColumnTolerance int
}

// DefaultOptions returns the chunking defaults.
func DefaultOptions() Options {
	return Options{
		ChunkSize:       800,
		Overlap:         100,
		MinChunkChars:   24,
		ColumnTolerance: 0,
	}
}

// validate checks options against a strategy's requirements.
// Fails fast with a config error before any chunking happens.
func (o Options) validate(strategy Strategy) error {
	switch strategy {
	case StrategyCharWindow:
		if o.ChunkSize <= 0 {
			return enginerrors.New(enginerrors.ErrCodeBadChunkOpts,
				fmt.Sprintf("chunk_size must be positive, got %d", o.ChunkSize), nil)
		}
		if o.Overlap < 0 || o.Overlap >= o.ChunkSize {
			return enginerrors.New(enginerrors.ErrCodeBadChunkOpts,
				fmt.Sprintf("overlap %d must be in [0, chunk_size)", o.Overlap), nil)
		}
	case StrategyCSVRow:
		if o.ColumnTolerance < 0 {
			return enginerrors.New(enginerrors.ErrCodeBadChunkOpts,
				"column_tolerance must be non-negative", nil)
		}
	case StrategyProposition:
		if o.MinChunkChars < 0 {
			return enginerrors.New(enginerrors.ErrCodeBadChunkOpts,
				"min_chunk_chars must be non-negative", nil)
		}
	}
	return nil
}

// Split chunks a document with the given strategy.
// Returns chunks in document order. An empty document yields no chunks.
func Split(doc *Document, strategy Strategy, opts Options) ([]*Chunk, error) {
	if err := opts.validate(strategy); err != nil {
		return nil, err
	}

	switch strategy {
	case StrategyCharWindow:
		return splitCharWindow(doc, opts), nil
	case StrategyCSVRow:
		return splitCSVRows(doc, opts)
	case StrategyProposition:
		return splitPropositions(doc, opts), nil
	default:
		return nil, enginerrors.New(enginerrors.ErrCodeBadStrategy,
			fmt.Sprintf("unknown chunk strategy %q", strategy), nil)
	}
}
