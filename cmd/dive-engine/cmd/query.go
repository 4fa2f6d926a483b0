package cmd

import (
	"strings"

	"github.com/spf13/cobra"

	"github.com/duclm1x1/dive-engine/internal/search"
)

func newQueryCmd() *cobra.Command {
	var (
		topK            int
		maxContextChars int
		bm25Only        bool
		noCorrective    bool
		explain         bool
		contextOnly     bool
	)

	cmd := &cobra.Command{
		Use:   "query <text>...",
		Short: "Search the index and assemble a context window",
		Long: `Query runs hybrid retrieval over the index, fuses lexical and dense
scores, and assembles an answer context within the character budget.

Use --explain to print the retrieval trace alongside the results, or
--context-only to emit only the assembled context text.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			query := strings.Join(args, " ")

			engine, _, err := openEngine()
			if err != nil {
				return err
			}
			defer engine.Close()

			res, err := engine.Query(cmd.Context(), query, search.QueryOptions{
				TopK:            topK,
				MaxContextChars: maxContextChars,
				BM25Only:        bm25Only,
				NoCorrective:    noCorrective,
			})
			if err != nil {
				return err
			}

			out := renderer()
			if contextOnly {
				out.Context(res)
				return nil
			}
			out.QueryResult(res, explain)
			return nil
		},
	}

	cmd.Flags().IntVar(&topK, "top-k", 0, "number of results to return (default from config)")
	cmd.Flags().IntVar(&maxContextChars, "max-context-chars", 0, "context budget in characters (default from config)")
	cmd.Flags().BoolVar(&bm25Only, "bm25-only", false, "skip the dense leg and search lexically only")
	cmd.Flags().BoolVar(&noCorrective, "no-corrective", false, "disable the corrective retrieval pass")
	cmd.Flags().BoolVar(&explain, "explain", false, "print the retrieval trace")
	cmd.Flags().BoolVar(&contextOnly, "context-only", false, "print only the assembled context")
	return cmd
}
