package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newBM25Backends returns one in-memory index per backend so every test
// runs against both implementations.
func newBM25Backends(t *testing.T) map[string]BM25Index {
	t.Helper()

	bleveIdx, err := NewBleveBM25Index("", DefaultBM25Config())
	require.NoError(t, err)
	t.Cleanup(func() { _ = bleveIdx.Close() })

	sqliteIdx, err := NewSQLiteBM25Index("", DefaultBM25Config())
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqliteIdx.Close() })

	return map[string]BM25Index{
		"bleve":  bleveIdx,
		"sqlite": sqliteIdx,
	}
}

func sampleEntries() []*IndexEntry {
	return []*IndexEntry{
		{ChunkID: "fruit.csv::off0", Text: "name: apple | price: 1"},
		{ChunkID: "fruit.csv::off1", Text: "name: banana | price: 2"},
		{ChunkID: "fruit.csv::off2", Text: "name: cherry | price: 3"},
		{ChunkID: "doc.txt::off0", Text: "banana plantations require tropical climates"},
	}
}

func TestBM25Index_SearchFindsMatchingChunks(t *testing.T) {
	for name, idx := range newBM25Backends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			require.NoError(t, idx.Index(ctx, sampleEntries()))

			results, err := idx.Search(ctx, "banana", 10)
			require.NoError(t, err)
			require.Len(t, results, 2)

			ids := []string{results[0].ChunkID, results[1].ChunkID}
			assert.Contains(t, ids, "fruit.csv::off1")
			assert.Contains(t, ids, "doc.txt::off0")

			for _, r := range results {
				assert.Greater(t, r.Score, 0.0)
				assert.Contains(t, r.MatchedTerms, "banana")
			}
		})
	}
}

func TestBM25Index_EmptyQueryYieldsNoResults(t *testing.T) {
	for name, idx := range newBM25Backends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			require.NoError(t, idx.Index(ctx, sampleEntries()))

			for _, q := range []string{"", "   "} {
				results, err := idx.Search(ctx, q, 10)
				require.NoError(t, err)
				assert.Empty(t, results)
			}
		})
	}
}

func TestBM25Index_UpsertReplacesContent(t *testing.T) {
	for name, idx := range newBM25Backends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			require.NoError(t, idx.Index(ctx, []*IndexEntry{
				{ChunkID: "doc::off0", Text: "original mango text"},
			}))
			require.NoError(t, idx.Index(ctx, []*IndexEntry{
				{ChunkID: "doc::off0", Text: "replacement papaya text"},
			}))

			results, err := idx.Search(ctx, "mango", 10)
			require.NoError(t, err)
			assert.Empty(t, results, "old content should be gone after upsert")

			results, err = idx.Search(ctx, "papaya", 10)
			require.NoError(t, err)
			require.Len(t, results, 1)
			assert.Equal(t, "doc::off0", results[0].ChunkID)

			assert.Equal(t, 1, idx.Stats().ChunkCount)
		})
	}
}

func TestBM25Index_DeleteRemovesChunks(t *testing.T) {
	for name, idx := range newBM25Backends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			require.NoError(t, idx.Index(ctx, sampleEntries()))

			require.NoError(t, idx.Delete(ctx, []string{"fruit.csv::off1", "doc.txt::off0"}))

			results, err := idx.Search(ctx, "banana", 10)
			require.NoError(t, err)
			assert.Empty(t, results)

			ids, err := idx.AllIDs()
			require.NoError(t, err)
			assert.Len(t, ids, 2)
		})
	}
}

func TestBM25Index_AllIDs(t *testing.T) {
	for name, idx := range newBM25Backends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			require.NoError(t, idx.Index(ctx, sampleEntries()))

			ids, err := idx.AllIDs()
			require.NoError(t, err)
			assert.ElementsMatch(t, []string{
				"fruit.csv::off0", "fruit.csv::off1", "fruit.csv::off2", "doc.txt::off0",
			}, ids)
		})
	}
}

func TestBM25Index_LimitRespected(t *testing.T) {
	for name, idx := range newBM25Backends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			require.NoError(t, idx.Index(ctx, sampleEntries()))

			results, err := idx.Search(ctx, "banana", 1)
			require.NoError(t, err)
			assert.Len(t, results, 1)
		})
	}
}

func TestNewBM25Index_BackendSelection(t *testing.T) {
	idx, err := NewBM25Index("", DefaultBM25Config(), "bleve")
	require.NoError(t, err)
	require.IsType(t, &BleveBM25Index{}, idx)
	_ = idx.Close()

	idx, err = NewBM25Index("", DefaultBM25Config(), "sqlite")
	require.NoError(t, err)
	require.IsType(t, &SQLiteBM25Index{}, idx)
	_ = idx.Close()

	_, err = NewBM25Index("", DefaultBM25Config(), "elastic")
	require.Error(t, err)
}

func TestSQLiteBM25Index_PersistsAcrossReopen(t *testing.T) {
	dir := t.TempDir()
	idx, err := NewBM25Index(dir, DefaultBM25Config(), "sqlite")
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, idx.Index(ctx, sampleEntries()))
	require.NoError(t, idx.Save())
	require.NoError(t, idx.Close())

	reopened, err := NewBM25Index(dir, DefaultBM25Config(), "sqlite")
	require.NoError(t, err)
	defer reopened.Close()

	results, err := reopened.Search(ctx, "cherry", 10)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "fruit.csv::off2", results[0].ChunkID)
}
