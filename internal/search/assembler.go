package search

import (
	"strings"
	"unicode/utf8"
)

// contextSeparator joins chunks in the assembled context.
const contextSeparator = "\n\n"

// Assembler packs ranked candidates into a context string under a
// character budget. Admission is whole-chunk and prefix-only: chunks
// are taken in fused order until the next one would exceed the budget,
// and nothing after that point is admitted. A chunk is never truncated.
// Every candidate gets a trace entry recording the decision and the
// running total at decision time.
type Assembler struct {
	maxContextChars int
}

// NewAssembler creates an assembler with the given default budget.
func NewAssembler(maxContextChars int) *Assembler {
	return &Assembler{maxContextChars: maxContextChars}
}

// Assemble builds the context from ranked candidates. budget <= 0 uses
// the configured default. Chunk size is measured in runes of the chunk
// text; separators between admitted chunks do not count against the
// budget.
func (a *Assembler) Assemble(candidates []*Candidate, budget int) (string, int, []TraceEntry) {
	if budget <= 0 {
		budget = a.maxContextChars
	}

	entries := make([]TraceEntry, 0, len(candidates))
	parts := make([]string, 0, len(candidates))
	used := 0
	full := false

	for _, c := range candidates {
		chars := utf8.RuneCountInString(c.Text)
		entry := TraceEntry{
			ChunkID:      c.ChunkID,
			DocID:        c.DocID,
			Score:        c.Score,
			BM25Score:    c.BM25Score,
			DenseScore:   c.DenseScore,
			Boost:        c.Boost,
			Chars:        chars,
			RunningChars: used,
		}

		switch {
		case full:
			entry.Reason = ReasonBudgetFull
		case used+chars > budget:
			entry.Reason = ReasonBudgetExceeded
			full = true
		default:
			entry.Included = true
			entry.Reason = ReasonIncluded
			parts = append(parts, c.Text)
			used += chars
			entry.RunningChars = used
		}
		entries = append(entries, entry)
	}

	return strings.Join(parts, contextSeparator), used, entries
}
