package store

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"

	enginerrors "github.com/duclm1x1/dive-engine/internal/errors"
)

// IndexLock guards the index directory against concurrent writers from
// other processes. Readers within a process are coordinated by the
// engine's RWMutex; this lock only fences cross-process ingestion.
type IndexLock struct {
	path   string
	flock  *flock.Flock
	locked bool
}

// NewIndexLock creates a lock for the given index directory. The lock
// file lives at <dir>/.index.lock.
func NewIndexLock(dir string) *IndexLock {
	lockPath := filepath.Join(dir, ".index.lock")
	return &IndexLock{
		path:  lockPath,
		flock: flock.New(lockPath),
	}
}

// Acquire takes the exclusive lock without blocking. A held lock
// surfaces as ErrCodeIndexLocked so the CLI can tell the user which
// file to check rather than hanging.
func (l *IndexLock) Acquire() error {
	if err := os.MkdirAll(filepath.Dir(l.path), 0o755); err != nil {
		return fmt.Errorf("failed to create lock directory: %w", err)
	}

	acquired, err := l.flock.TryLock()
	if err != nil {
		return fmt.Errorf("failed to acquire index lock: %w", err)
	}
	if !acquired {
		return enginerrors.New(enginerrors.ErrCodeIndexLocked,
			fmt.Sprintf("index is locked by another process (%s)", l.path), nil).
			WithSuggestion("wait for the other process to finish or remove the stale lock file")
	}

	l.locked = true
	return nil
}

// Release drops the lock. Safe to call when not held.
func (l *IndexLock) Release() error {
	if !l.locked {
		return nil
	}
	l.locked = false
	if err := l.flock.Unlock(); err != nil {
		return fmt.Errorf("failed to release index lock: %w", err)
	}
	return nil
}

// Path returns the lock file path.
func (l *IndexLock) Path() string {
	return l.path
}
