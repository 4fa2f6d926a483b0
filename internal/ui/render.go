package ui

import (
	"fmt"
	"io"
	"strings"

	"github.com/duclm1x1/dive-engine/internal/search"
)

// Renderer writes human-readable output for the CLI.
type Renderer struct {
	out    io.Writer
	styles Styles
}

// NewRenderer creates a renderer. noColor selects the plain style set.
func NewRenderer(out io.Writer, noColor bool) *Renderer {
	return &Renderer{
		out:    out,
		styles: GetStyles(noColor),
	}
}

// snippetLength caps the preview text per ranked candidate.
const snippetLength = 120

// QueryResult renders ranked candidates, the assembled context and,
// when explain is set, the full retrieval trace.
func (r *Renderer) QueryResult(res *search.QueryResult, explain bool) {
	if len(res.Candidates) == 0 {
		fmt.Fprintln(r.out, r.styles.Warning.Render("no results"))
		if explain {
			r.trace(res.Trace)
		}
		return
	}

	fmt.Fprintln(r.out, r.styles.Header.Render(fmt.Sprintf("Results (%d)", len(res.Candidates))))
	for i, c := range res.Candidates {
		score := r.styles.Score.Render(fmt.Sprintf("%.4f", c.Score))
		id := r.styles.ChunkID.Render(c.ChunkID)
		fmt.Fprintf(r.out, "%2d. %s  %s\n", i+1, score, id)

		details := []string{fmt.Sprintf("bm25=%.3f dense=%.3f", c.BM25Score, c.DenseScore)}
		if c.Boost > 0 {
			details = append(details, fmt.Sprintf("boost=%.2f", c.Boost))
		}
		if len(c.MatchedTerms) > 0 {
			details = append(details, "terms="+strings.Join(c.MatchedTerms, ","))
		}
		fmt.Fprintf(r.out, "    %s\n", r.styles.Label.Render(strings.Join(details, "  ")))
		fmt.Fprintf(r.out, "    %s\n", snippet(c.Text))
	}

	if explain {
		r.trace(res.Trace)
	}
}

// Context renders the assembled context block only.
func (r *Renderer) Context(res *search.QueryResult) {
	fmt.Fprintln(r.out, res.Context)
}

// trace renders the explainability record: the corrective path taken
// and the per-candidate assembly decisions.
func (r *Renderer) trace(t *search.RetrievalTrace) {
	fmt.Fprintln(r.out)
	fmt.Fprintln(r.out, r.styles.Header.Render("Trace"))

	states := make([]string, len(t.States))
	for i, s := range t.States {
		states[i] = string(s)
	}
	fmt.Fprintf(r.out, "  %s %s\n", r.styles.Label.Render("states:"), strings.Join(states, " -> "))
	if t.CorrectiveReason != "" {
		fmt.Fprintf(r.out, "  %s %s\n", r.styles.Label.Render("decision:"), t.CorrectiveReason)
	}
	fmt.Fprintf(r.out, "  %s %q", r.styles.Label.Render("query:"), t.Query)
	if t.Reformulated {
		fmt.Fprintf(r.out, " %s %q", r.styles.Label.Render("reformulated:"), t.EffectiveQuery)
	}
	fmt.Fprintln(r.out)
	fmt.Fprintf(r.out, "  %s mode=%s bm25=%d dense=%d elapsed=%s\n",
		r.styles.Label.Render("legs:"), t.FusionMode, t.BM25Count, t.DenseCount, t.Elapsed.Round(1e5))
	if t.DenseSkipped {
		fmt.Fprintf(r.out, "  %s\n", r.styles.Warning.Render("dense leg skipped"))
	}
	fmt.Fprintf(r.out, "  %s %d/%d chars\n", r.styles.Label.Render("budget:"), t.ContextChars, t.ContextBudget)

	for _, entry := range t.Entries {
		marker := r.styles.Success.Render("+")
		line := fmt.Sprintf("%s  %.4f  %4d chars  %s", entry.ChunkID, entry.Score, entry.Chars, entry.Reason)
		if !entry.Included {
			marker = r.styles.Excluded.Render("-")
			line = r.styles.Excluded.Render(line)
		}
		fmt.Fprintf(r.out, "  %s %s\n", marker, line)
	}
}

// IngestResult renders a single document's ingestion outcome.
func (r *Renderer) IngestResult(res *search.IngestResult) {
	fmt.Fprintf(r.out, "%s %s: %d chunks (%s), %d replaced\n",
		r.styles.Success.Render("indexed"),
		r.styles.ChunkID.Render(res.DocID),
		res.Chunks, res.Strategy, res.Removed)
}

// Stats renders engine statistics.
func (r *Renderer) Stats(stats *search.EngineStats) {
	fmt.Fprintln(r.out, r.styles.Header.Render("Index"))
	fmt.Fprintf(r.out, "  %s %d\n", r.styles.Label.Render("documents:"), stats.Documents)
	fmt.Fprintf(r.out, "  %s %d\n", r.styles.Label.Render("chunks:"), stats.Chunks)
	if stats.BM25Stats != nil {
		fmt.Fprintf(r.out, "  %s %d\n", r.styles.Label.Render("bm25 entries:"), stats.BM25Stats.ChunkCount)
	}
	dense := "disabled"
	if stats.DenseReady {
		dense = fmt.Sprintf("%d vectors", stats.Vectors)
	}
	fmt.Fprintf(r.out, "  %s %s\n", r.styles.Label.Render("dense:"), dense)
}

// Error renders an error line.
func (r *Renderer) Error(err error) {
	fmt.Fprintf(r.out, "%s %v\n", r.styles.Error.Render("error:"), err)
}

// snippet returns a single-line preview of chunk text.
func snippet(text string) string {
	text = strings.Join(strings.Fields(text), " ")
	runes := []rune(text)
	if len(runes) <= snippetLength {
		return text
	}
	return string(runes[:snippetLength]) + "..."
}
