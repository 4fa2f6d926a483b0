package cmd

import (
	"context"
	"io/fs"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/duclm1x1/dive-engine/internal/chunk"
	"github.com/duclm1x1/dive-engine/internal/ingest"
	"github.com/duclm1x1/dive-engine/internal/search"
	"github.com/duclm1x1/dive-engine/internal/ui"
	"github.com/duclm1x1/dive-engine/internal/watcher"
)

func newIngestCmd() *cobra.Command {
	var (
		strategyFlag string
		kindFlag     string
		watchFlag    bool
	)

	cmd := &cobra.Command{
		Use:   "ingest <path>...",
		Short: "Ingest files or directories into the index",
		Long: `Ingest reads files, chunks them and indexes the chunks for retrieval.
Directories are walked recursively. Re-ingesting a path replaces its
previous chunks; unchanged content keeps the same chunk ids.

CSV files chunk one row at a time. Other files use the configured
default strategy unless --strategy overrides it.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var strategy chunk.Strategy
			if strategyFlag != "" {
				parsed, err := chunk.ParseStrategy(strategyFlag)
				if err != nil {
					return err
				}
				strategy = parsed
			}
			var kind chunk.Kind
			if kindFlag != "" {
				parsed, err := chunk.ParseKind(kindFlag)
				if err != nil {
					return err
				}
				kind = parsed
			}

			engine, _, err := openEngine()
			if err != nil {
				return err
			}
			defer engine.Close()

			out := renderer()
			for _, path := range args {
				if err := ingestPath(cmd.Context(), engine, out, path, kind, strategy); err != nil {
					return err
				}
			}

			if watchFlag {
				return watchPaths(cmd.Context(), engine, out, args, kind, strategy)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&strategyFlag, "strategy", "", "chunk strategy: char_window, csv_row or proposition")
	cmd.Flags().StringVar(&kindFlag, "kind", "", "document kind: text, csv or code (default: by extension)")
	cmd.Flags().BoolVar(&watchFlag, "watch", false, "keep running and re-ingest files as they change")
	return cmd
}

// ingestPath ingests a file, or every regular file under a directory.
func ingestPath(ctx context.Context, engine *search.Engine, out *ui.Renderer, path string, kind chunk.Kind, strategy chunk.Strategy) error {
	info, err := os.Stat(path)
	if err != nil {
		return err
	}
	if !info.IsDir() {
		return ingestFile(ctx, engine, out, path, kind, strategy)
	}

	return filepath.WalkDir(path, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if strings.HasPrefix(d.Name(), ".") && p != path {
				return filepath.SkipDir
			}
			return nil
		}
		if strings.HasPrefix(d.Name(), ".") {
			return nil
		}
		if err := ingestFile(ctx, engine, out, p, kind, strategy); err != nil {
			// A single unreadable file should not abort a directory walk.
			slog.Warn("skipping file", "path", p, "error", err)
			out.Error(err)
		}
		return nil
	})
}

func ingestFile(ctx context.Context, engine *search.Engine, out *ui.Renderer, path string, kind chunk.Kind, strategy chunk.Strategy) error {
	doc, err := ingest.LoadDocument(path, kind)
	if err != nil {
		return err
	}
	result, err := engine.Ingest(ctx, doc, strategy)
	if err != nil {
		return err
	}
	out.IngestResult(result)
	return nil
}

// watchPaths re-ingests changed files until interrupted.
func watchPaths(ctx context.Context, engine *search.Engine, out *ui.Renderer, paths []string, kind chunk.Kind, strategy chunk.Strategy) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	w, err := watcher.New(watcher.DefaultDebounceWindow)
	if err != nil {
		return err
	}
	defer w.Stop()

	for _, path := range paths {
		info, err := os.Stat(path)
		if err != nil {
			return err
		}
		root := path
		if !info.IsDir() {
			root = filepath.Dir(path)
		}
		if err := w.Start(ctx, root); err != nil {
			return err
		}
	}
	slog.Info("watching for changes", "paths", paths)

	for {
		select {
		case <-ctx.Done():
			return nil
		case err := <-w.Errors():
			slog.Warn("watch error", "error", err)
		case batch, ok := <-w.Events():
			if !ok {
				return nil
			}
			for _, event := range batch {
				handleWatchEvent(ctx, engine, out, event, kind, strategy)
			}
		}
	}
}

func handleWatchEvent(ctx context.Context, engine *search.Engine, out *ui.Renderer, event watcher.FileEvent, kind chunk.Kind, strategy chunk.Strategy) {
	switch event.Operation {
	case watcher.OpDelete:
		if _, err := engine.Delete(ctx, ingest.DocID(event.Path)); err != nil {
			slog.Debug("delete skipped", "path", event.Path, "error", err)
		}
	default:
		if err := ingestFile(ctx, engine, out, event.Path, kind, strategy); err != nil {
			slog.Warn("re-ingest failed", "path", event.Path, "error", err)
		}
	}
}
