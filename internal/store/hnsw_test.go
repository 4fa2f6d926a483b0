package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestVectorStore(t *testing.T) *HNSWStore {
	t.Helper()
	s, err := NewHNSWStore(DefaultVectorStoreConfig(4))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestHNSWStore_AddAndSearch(t *testing.T) {
	s := newTestVectorStore(t)
	ctx := context.Background()

	require.NoError(t, s.Add(ctx,
		[]string{"a::off0", "b::off0", "c::off0"},
		[][]float32{
			{1, 0, 0, 0},
			{0, 1, 0, 0},
			{0.9, 0.1, 0, 0},
		}))

	results, err := s.Search(ctx, []float32{1, 0, 0, 0}, 2)
	require.NoError(t, err)
	require.Len(t, results, 2)

	assert.Equal(t, "a::off0", results[0].ChunkID)
	assert.Equal(t, "c::off0", results[1].ChunkID)
	assert.Greater(t, results[0].Score, results[1].Score)
}

func TestHNSWStore_DimensionMismatch(t *testing.T) {
	s := newTestVectorStore(t)
	ctx := context.Background()

	err := s.Add(ctx, []string{"a"}, [][]float32{{1, 0}})
	require.Error(t, err)
	assert.IsType(t, ErrDimensionMismatch{}, err)

	_, err = s.Search(ctx, []float32{1, 0}, 1)
	require.Error(t, err)
}

func TestHNSWStore_UpsertReplacesVector(t *testing.T) {
	s := newTestVectorStore(t)
	ctx := context.Background()

	require.NoError(t, s.Add(ctx, []string{"a"}, [][]float32{{1, 0, 0, 0}}))
	require.NoError(t, s.Add(ctx, []string{"a"}, [][]float32{{0, 1, 0, 0}}))

	assert.Equal(t, 1, s.Count())

	results, err := s.Search(ctx, []float32{0, 1, 0, 0}, 1)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "a", results[0].ChunkID)
	assert.InDelta(t, 1.0, float64(results[0].Score), 1e-5)
}

func TestHNSWStore_DeleteHidesVector(t *testing.T) {
	s := newTestVectorStore(t)
	ctx := context.Background()

	require.NoError(t, s.Add(ctx,
		[]string{"a", "b"},
		[][]float32{{1, 0, 0, 0}, {0, 1, 0, 0}}))
	require.NoError(t, s.Delete(ctx, []string{"a"}))

	assert.False(t, s.Contains("a"))
	assert.True(t, s.Contains("b"))
	assert.Equal(t, 1, s.Count())

	results, err := s.Search(ctx, []float32{1, 0, 0, 0}, 2)
	require.NoError(t, err)
	for _, r := range results {
		assert.NotEqual(t, "a", r.ChunkID)
	}
}

func TestHNSWStore_SearchEmptyStore(t *testing.T) {
	s := newTestVectorStore(t)

	results, err := s.Search(context.Background(), []float32{1, 0, 0, 0}, 5)
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestHNSWStore_SaveLoadRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "vectors.hnsw")
	ctx := context.Background()

	s, err := NewHNSWStore(DefaultVectorStoreConfig(4))
	require.NoError(t, err)

	require.NoError(t, s.Add(ctx,
		[]string{"a", "b"},
		[][]float32{{1, 0, 0, 0}, {0, 1, 0, 0}}))
	require.NoError(t, s.Save(path))
	require.NoError(t, s.Close())

	loaded, err := NewHNSWStore(DefaultVectorStoreConfig(4))
	require.NoError(t, err)
	defer loaded.Close()
	require.NoError(t, loaded.Load(path))

	assert.Equal(t, 2, loaded.Count())
	results, err := loaded.Search(ctx, []float32{1, 0, 0, 0}, 1)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "a", results[0].ChunkID)

	dims, err := StoredDimensions(path)
	require.NoError(t, err)
	assert.Equal(t, 4, dims)
}

func TestStoredDimensions_MissingSidecar(t *testing.T) {
	dims, err := StoredDimensions(filepath.Join(t.TempDir(), "absent.hnsw"))
	require.NoError(t, err)
	assert.Zero(t, dims)
}

func TestNullVectorStore_NoOps(t *testing.T) {
	s := NewNullVectorStore()
	ctx := context.Background()

	require.NoError(t, s.Add(ctx, []string{"a"}, [][]float32{{1}}))

	results, err := s.Search(ctx, []float32{1}, 5)
	require.NoError(t, err)
	assert.Empty(t, results)

	assert.False(t, s.Contains("a"))
	assert.Zero(t, s.Count())
	require.NoError(t, s.Delete(ctx, []string{"a"}))
	require.NoError(t, s.Save("unused"))
	require.NoError(t, s.Load("unused"))
	require.NoError(t, s.Close())
}
