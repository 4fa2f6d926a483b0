// Package watcher watches document directories for the ingest --watch
// mode. Raw fsnotify events are debounced so editor save bursts and git
// checkouts collapse into one re-ingest per file.
package watcher

import (
	"context"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Operation is the coalesced file change type.
type Operation int

const (
	OpCreate Operation = iota
	OpModify
	OpDelete
)

// String returns a human-readable representation of the operation.
func (op Operation) String() string {
	switch op {
	case OpCreate:
		return "CREATE"
	case OpModify:
		return "MODIFY"
	case OpDelete:
		return "DELETE"
	default:
		return "UNKNOWN"
	}
}

// FileEvent is one debounced file change.
type FileEvent struct {
	Path      string
	Operation Operation
	Timestamp time.Time
}

// DefaultDebounceWindow coalesces events arriving within this window.
const DefaultDebounceWindow = 200 * time.Millisecond

// Watcher watches a directory tree and emits debounced file events.
type Watcher struct {
	fsw       *fsnotify.Watcher
	debouncer *Debouncer
	errors    chan error
}

// New creates a watcher. window <= 0 uses DefaultDebounceWindow.
func New(window time.Duration) (*Watcher, error) {
	if window <= 0 {
		window = DefaultDebounceWindow
	}
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	return &Watcher{
		fsw:       fsw,
		debouncer: NewDebouncer(window),
		errors:    make(chan error, 16),
	}, nil
}

// Start watches root recursively until ctx is cancelled. Subdirectories
// created later are picked up from their create events.
func (w *Watcher) Start(ctx context.Context, root string) error {
	if err := w.addRecursive(root); err != nil {
		return err
	}

	go w.run(ctx)
	return nil
}

func (w *Watcher) run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			w.Stop()
			return
		case event, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			w.handle(event)
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			select {
			case w.errors <- err:
			default:
				slog.Warn("watcher error dropped", "error", err)
			}
		}
	}
}

func (w *Watcher) handle(event fsnotify.Event) {
	if isHiddenPath(event.Name) {
		return
	}

	op, ok := translateOp(event.Op)
	if !ok {
		return
	}

	// New directories need their own watch; their files arrive as
	// separate create events.
	if op == OpCreate {
		if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
			if err := w.addRecursive(event.Name); err != nil {
				slog.Warn("failed to watch new directory", "path", event.Name, "error", err)
			}
			return
		}
	}

	w.debouncer.Add(FileEvent{
		Path:      event.Name,
		Operation: op,
		Timestamp: time.Now(),
	})
}

// translateOp maps fsnotify bits to a coalesced operation. Chmod-only
// events carry no content change and are dropped.
func translateOp(op fsnotify.Op) (Operation, bool) {
	switch {
	case op.Has(fsnotify.Create):
		return OpCreate, true
	case op.Has(fsnotify.Write):
		return OpModify, true
	case op.Has(fsnotify.Remove), op.Has(fsnotify.Rename):
		return OpDelete, true
	default:
		return 0, false
	}
}

// isHiddenPath filters dotfiles and dot-directories anywhere in the path,
// which covers .git, .divengine and editor swap conventions.
func isHiddenPath(path string) bool {
	for _, part := range strings.Split(filepath.ToSlash(path), "/") {
		if len(part) > 1 && strings.HasPrefix(part, ".") {
			return true
		}
	}
	return false
}

func (w *Watcher) addRecursive(root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if isHiddenPath(path) && path != root {
			return filepath.SkipDir
		}
		return w.fsw.Add(path)
	})
}

// Events returns the channel of debounced event batches.
func (w *Watcher) Events() <-chan []FileEvent {
	return w.debouncer.Output()
}

// Errors returns non-fatal watcher errors.
func (w *Watcher) Errors() <-chan error {
	return w.errors
}

// Stop stops watching and closes the event channel. Safe to call twice.
func (w *Watcher) Stop() error {
	err := w.fsw.Close()
	w.debouncer.Stop()
	return err
}
