package store

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/duclm1x1/dive-engine/internal/chunk"
)

func newTestMetadataStore(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := NewSQLiteStore("")
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func fruitDoc() (*chunk.Document, []*chunk.Chunk) {
	doc := &chunk.Document{
		ID:      "fruit.csv",
		Source:  "data/fruit.csv",
		Kind:    chunk.KindCSV,
		Content: "name,price\napple,1\nbanana,2\n",
	}
	chunks := []*chunk.Chunk{
		{ID: "fruit.csv::off0", DocID: "fruit.csv", Offset: 0, Text: "name: apple | price: 1", Strategy: chunk.StrategyCSVRow},
		{ID: "fruit.csv::off1", DocID: "fruit.csv", Offset: 1, Text: "name: banana | price: 2", Strategy: chunk.StrategyCSVRow},
	}
	return doc, chunks
}

func TestSQLiteStore_ReplaceDocumentFirstIngest(t *testing.T) {
	s := newTestMetadataStore(t)
	ctx := context.Background()

	doc, chunks := fruitDoc()
	removed, err := s.ReplaceDocument(ctx, doc, chunks)
	require.NoError(t, err)
	assert.Empty(t, removed)

	got, err := s.GetDocument(ctx, "fruit.csv")
	require.NoError(t, err)
	assert.Equal(t, chunk.KindCSV, got.Kind)
	assert.Equal(t, doc.Content, got.Content)

	docs, chunkCount, err := s.Counts(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, docs)
	assert.Equal(t, 2, chunkCount)
}

func TestSQLiteStore_ReplaceDocumentReturnsRemovedChunks(t *testing.T) {
	s := newTestMetadataStore(t)
	ctx := context.Background()

	doc, chunks := fruitDoc()
	_, err := s.ReplaceDocument(ctx, doc, chunks)
	require.NoError(t, err)

	// Re-ingest with a shorter chunk set; old ids come back as removed.
	doc.Content = "name,price\napple,1\n"
	newChunks := chunks[:1]
	removed, err := s.ReplaceDocument(ctx, doc, newChunks)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"fruit.csv::off0", "fruit.csv::off1"}, removed)

	remaining, err := s.GetChunksByDoc(ctx, "fruit.csv")
	require.NoError(t, err)
	require.Len(t, remaining, 1)
	assert.Equal(t, "fruit.csv::off0", remaining[0].ID)
}

func TestSQLiteStore_GetChunksPreservesRequestOrder(t *testing.T) {
	s := newTestMetadataStore(t)
	ctx := context.Background()

	doc, chunks := fruitDoc()
	_, err := s.ReplaceDocument(ctx, doc, chunks)
	require.NoError(t, err)

	got, err := s.GetChunks(ctx, []string{"fruit.csv::off1", "missing::off9", "fruit.csv::off0"})
	require.NoError(t, err)
	require.Len(t, got, 2, "missing ids are skipped")
	assert.Equal(t, "fruit.csv::off1", got[0].ID)
	assert.Equal(t, "fruit.csv::off0", got[1].ID)
	assert.Equal(t, chunk.StrategyCSVRow, got[0].Strategy)
}

func TestSQLiteStore_GetChunkNotFound(t *testing.T) {
	s := newTestMetadataStore(t)

	_, err := s.GetChunk(context.Background(), "nope::off0")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestSQLiteStore_DeleteDocumentCascades(t *testing.T) {
	s := newTestMetadataStore(t)
	ctx := context.Background()

	doc, chunks := fruitDoc()
	_, err := s.ReplaceDocument(ctx, doc, chunks)
	require.NoError(t, err)

	removed, err := s.DeleteDocument(ctx, "fruit.csv")
	require.NoError(t, err)
	assert.Len(t, removed, 2)

	_, err = s.GetDocument(ctx, "fruit.csv")
	assert.True(t, errors.Is(err, ErrNotFound))

	docs, chunkCount, err := s.Counts(ctx)
	require.NoError(t, err)
	assert.Zero(t, docs)
	assert.Zero(t, chunkCount)
}

func TestSQLiteStore_DeleteUnknownDocument(t *testing.T) {
	s := newTestMetadataStore(t)

	_, err := s.DeleteDocument(context.Background(), "never-ingested.txt")
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestSQLiteStore_DocumentKind(t *testing.T) {
	s := newTestMetadataStore(t)
	ctx := context.Background()

	doc, chunks := fruitDoc()
	_, err := s.ReplaceDocument(ctx, doc, chunks)
	require.NoError(t, err)

	kind, err := s.DocumentKind(ctx, "fruit.csv")
	require.NoError(t, err)
	assert.Equal(t, chunk.KindCSV, kind)

	_, err = s.DocumentKind(ctx, "absent")
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestSQLiteStore_StateRoundTrip(t *testing.T) {
	s := newTestMetadataStore(t)
	ctx := context.Background()

	val, err := s.GetState(ctx, "unset_key")
	require.NoError(t, err)
	assert.Empty(t, val)

	require.NoError(t, s.SetState(ctx, StateKeyIndexModel, "static"))
	require.NoError(t, s.SetState(ctx, StateKeyIndexModel, "static-v2"))

	val, err = s.GetState(ctx, StateKeyIndexModel)
	require.NoError(t, err)
	assert.Equal(t, "static-v2", val)
}

func TestSQLiteStore_PersistsOnDisk(t *testing.T) {
	path := filepath.Join(t.TempDir(), "meta.db")
	ctx := context.Background()

	s, err := NewSQLiteStore(path)
	require.NoError(t, err)

	doc, chunks := fruitDoc()
	_, err = s.ReplaceDocument(ctx, doc, chunks)
	require.NoError(t, err)
	require.NoError(t, s.Close())

	reopened, err := NewSQLiteStore(path)
	require.NoError(t, err)
	defer reopened.Close()

	ids, err := reopened.ListDocumentIDs(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"fruit.csv"}, ids)
}

func TestIndexLock_SecondAcquireFails(t *testing.T) {
	dir := t.TempDir()

	first := NewIndexLock(dir)
	require.NoError(t, first.Acquire())
	defer first.Release()

	second := NewIndexLock(dir)
	err := second.Acquire()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ERR_202")

	require.NoError(t, first.Release())
	require.NoError(t, second.Acquire())
	require.NoError(t, second.Release())
}
