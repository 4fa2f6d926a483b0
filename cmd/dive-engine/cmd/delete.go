package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <doc-id>...",
		Short: "Remove documents from the index",
		Long: `Delete removes every chunk of the named documents from all indexes.
Document ids are the slash-normalized paths printed at ingest time.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			engine, _, err := openEngine()
			if err != nil {
				return err
			}
			defer engine.Close()

			for _, docID := range args {
				removed, err := engine.Delete(cmd.Context(), docID)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "deleted %s (%d chunks)\n", docID, removed)
			}
			return nil
		},
	}
}
