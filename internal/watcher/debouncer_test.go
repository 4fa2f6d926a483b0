package watcher

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func event(path string, op Operation) FileEvent {
	return FileEvent{Path: path, Operation: op, Timestamp: time.Now()}
}

func collectBatch(t *testing.T, d *Debouncer) []FileEvent {
	t.Helper()
	select {
	case batch := <-d.Output():
		return batch
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for debounced batch")
		return nil
	}
}

func TestDebouncer_CoalescesSamePath(t *testing.T) {
	d := NewDebouncer(20 * time.Millisecond)
	defer d.Stop()

	d.Add(event("a.txt", OpModify))
	d.Add(event("a.txt", OpModify))
	d.Add(event("a.txt", OpModify))

	batch := collectBatch(t, d)
	require.Len(t, batch, 1)
	assert.Equal(t, OpModify, batch[0].Operation)
}

func TestDebouncer_CreateThenModifyStaysCreate(t *testing.T) {
	d := NewDebouncer(20 * time.Millisecond)
	defer d.Stop()

	d.Add(event("a.txt", OpCreate))
	d.Add(event("a.txt", OpModify))

	batch := collectBatch(t, d)
	require.Len(t, batch, 1)
	assert.Equal(t, OpCreate, batch[0].Operation)
}

func TestDebouncer_CreateThenDeleteCancels(t *testing.T) {
	d := NewDebouncer(20 * time.Millisecond)
	defer d.Stop()

	d.Add(event("a.txt", OpCreate))
	d.Add(event("a.txt", OpDelete))
	d.Add(event("b.txt", OpModify))

	batch := collectBatch(t, d)
	require.Len(t, batch, 1, "cancelled events must not be emitted")
	assert.Equal(t, "b.txt", batch[0].Path)
}

func TestDebouncer_DeleteThenCreateBecomesModify(t *testing.T) {
	d := NewDebouncer(20 * time.Millisecond)
	defer d.Stop()

	d.Add(event("a.txt", OpDelete))
	d.Add(event("a.txt", OpCreate))

	batch := collectBatch(t, d)
	require.Len(t, batch, 1)
	assert.Equal(t, OpModify, batch[0].Operation)
}

func TestDebouncer_SeparatePathsAllEmitted(t *testing.T) {
	d := NewDebouncer(20 * time.Millisecond)
	defer d.Stop()

	d.Add(event("a.txt", OpModify))
	d.Add(event("b.txt", OpCreate))
	d.Add(event("c.txt", OpDelete))

	batch := collectBatch(t, d)
	assert.Len(t, batch, 3)
}

func TestDebouncer_AddAfterStopIsIgnored(t *testing.T) {
	d := NewDebouncer(20 * time.Millisecond)
	d.Stop()
	d.Add(event("a.txt", OpModify))

	_, open := <-d.Output()
	assert.False(t, open, "output must be closed after Stop")
}

func TestTranslateOp(t *testing.T) {
	assert.Equal(t, "CREATE", OpCreate.String())
	assert.Equal(t, "MODIFY", OpModify.String())
	assert.Equal(t, "DELETE", OpDelete.String())
}

func TestIsHiddenPath(t *testing.T) {
	assert.True(t, isHiddenPath("docs/.git/config"))
	assert.True(t, isHiddenPath(".divengine/metadata.db"))
	assert.False(t, isHiddenPath("docs/readme.md"))
	assert.False(t, isHiddenPath("."))
}
