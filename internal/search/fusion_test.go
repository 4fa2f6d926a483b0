package search

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/duclm1x1/dive-engine/internal/chunk"
)

func TestFuseWeighted_CombinesBothLegs(t *testing.T) {
	f := NewFuser(FusionWeighted, 0, nil)
	candidates := []*Candidate{
		{ChunkID: "a::off0", Offset: 0, BM25Score: 2.0, BM25Rank: 1, DenseScore: 0.9, DenseRank: 1},
		{ChunkID: "b::off0", Offset: 0, BM25Score: 1.0, BM25Rank: 2},
		{ChunkID: "c::off5", Offset: 5, DenseScore: 0.5, DenseRank: 2},
	}

	ranked := f.Fuse(candidates, DefaultWeights())
	require.Len(t, ranked, 3)

	// Top of both legs: bm25 norm 1.0 and dense norm 1.0.
	assert.Equal(t, "a::off0", ranked[0].ChunkID)
	assert.InDelta(t, 0.9, ranked[0].Score, 1e-9)

	// Both leg minima normalize to 0; the score tie breaks on offset.
	assert.Equal(t, "b::off0", ranked[1].ChunkID)
	assert.Equal(t, "c::off5", ranked[2].ChunkID)
	assert.InDelta(t, 0.0, ranked[1].Score, 1e-9)
	assert.InDelta(t, 0.0, ranked[2].Score, 1e-9)
}

func TestFuseWeighted_ZeroWidthRangeScoresFull(t *testing.T) {
	f := NewFuser(FusionWeighted, 0, nil)

	// Single candidate: min == max, the leg must contribute 1.0, not 0.
	ranked := f.Fuse([]*Candidate{
		{ChunkID: "a::off0", BM25Score: 3.0, BM25Rank: 1},
	}, DefaultWeights())
	assert.InDelta(t, 0.5, ranked[0].Score, 1e-9)

	// Two candidates with identical bm25 scores: both get the full leg.
	ranked = f.Fuse([]*Candidate{
		{ChunkID: "a::off4", Offset: 4, BM25Score: 2.0, BM25Rank: 1},
		{ChunkID: "b::off1", Offset: 1, BM25Score: 2.0, BM25Rank: 2},
	}, DefaultWeights())
	assert.InDelta(t, 0.5, ranked[0].Score, 1e-9)
	assert.InDelta(t, 0.5, ranked[1].Score, 1e-9)
	assert.Equal(t, "b::off1", ranked[0].ChunkID, "tie must break on lower offset")
}

func TestFuseWeighted_StructuralBoost(t *testing.T) {
	f := NewFuser(FusionWeighted, 0, map[chunk.Kind]float64{chunk.KindCSV: 0.5})
	ranked := f.Fuse([]*Candidate{
		{ChunkID: "plain.txt::off0", Kind: chunk.KindText, BM25Score: 1.0, BM25Rank: 1},
		{ChunkID: "table.csv::off0", Kind: chunk.KindCSV, BM25Score: 1.0, BM25Rank: 2},
	}, DefaultWeights())

	assert.Equal(t, "table.csv::off0", ranked[0].ChunkID)
	assert.InDelta(t, 0.55, ranked[0].Score, 1e-9)
	assert.InDelta(t, 0.5, ranked[1].Score, 1e-9)
	assert.Equal(t, 0.5, ranked[0].Boost)
}

func TestFuseWeighted_BoostClamped(t *testing.T) {
	f := NewFuser(FusionWeighted, 0, map[chunk.Kind]float64{
		chunk.KindCSV:  3.0,
		chunk.KindCode: -1.0,
	})
	ranked := f.Fuse([]*Candidate{
		{ChunkID: "a::off0", Kind: chunk.KindCSV, BM25Score: 1.0, BM25Rank: 1},
		{ChunkID: "b::off0", Kind: chunk.KindCode, BM25Score: 1.0, BM25Rank: 2},
	}, DefaultWeights())

	assert.Equal(t, 1.0, ranked[0].Boost, "boost above 1 must clamp to 1")
	assert.Equal(t, 0.0, ranked[1].Boost, "negative boost must clamp to 0")
}

func TestFuse_Deterministic(t *testing.T) {
	build := func() []*Candidate {
		return []*Candidate{
			{ChunkID: "a::off0", Offset: 0, BM25Score: 1.0, BM25Rank: 1, MatchedTerms: []string{"x"}},
			{ChunkID: "b::off0", Offset: 0, BM25Score: 1.0, BM25Rank: 2, MatchedTerms: []string{"x", "y"}},
			{ChunkID: "c::off0", Offset: 0, BM25Score: 1.0, BM25Rank: 3, MatchedTerms: []string{"x"}},
		}
	}

	f := NewFuser(FusionWeighted, 0, nil)

	first := f.Fuse(build(), DefaultWeights())
	// Same candidates presented in reverse order.
	reversed := build()
	reversed[0], reversed[2] = reversed[2], reversed[0]
	second := f.Fuse(reversed, DefaultWeights())

	require.Len(t, second, len(first))
	for i := range first {
		assert.Equal(t, first[i].ChunkID, second[i].ChunkID, "order must not depend on input order")
	}

	// All scores and offsets equal: b wins on matched terms, then a
	// beats c on chunk id.
	assert.Equal(t, "b::off0", first[0].ChunkID)
	assert.Equal(t, "a::off0", first[1].ChunkID)
	assert.Equal(t, "c::off0", first[2].ChunkID)
}

func TestFuseRRF_RanksByReciprocalRank(t *testing.T) {
	f := NewFuser(FusionRRF, 0, nil)
	ranked := f.Fuse([]*Candidate{
		{ChunkID: "a::off0", BM25Rank: 1, BM25Score: 9.0, DenseRank: 1, DenseScore: 0.9},
		{ChunkID: "b::off0", BM25Rank: 2, BM25Score: 1.0},
	}, DefaultWeights())

	require.Equal(t, "a::off0", ranked[0].ChunkID)
	assert.InDelta(t, 1.0, ranked[0].Score, 1e-9, "rrf scores normalize against the max")
	assert.Greater(t, ranked[1].Score, 0.0)
	assert.Less(t, ranked[1].Score, 1.0)
}

func TestFuse_EmptyInput(t *testing.T) {
	f := NewFuser(FusionWeighted, 0, nil)
	assert.Empty(t, f.Fuse(nil, DefaultWeights()))
}
