package search

import (
	"sort"

	"github.com/duclm1x1/dive-engine/internal/chunk"
)

// maxStructuralBoost clamps per-kind boosts so a boost can reorder close
// scores but never dominate the retrieval signal.
const maxStructuralBoost = 1.0

// Fuser combines the candidates' per-leg scores into a final ranking.
type Fuser struct {
	mode        FusionMode
	rrfConstant int

	// kindBoosts maps a document kind to a structural boost in [0, 1].
	kindBoosts map[chunk.Kind]float64
}

// NewFuser creates a fuser. An invalid rrfConstant falls back to the
// default of 60.
func NewFuser(mode FusionMode, rrfConstant int, kindBoosts map[chunk.Kind]float64) *Fuser {
	if rrfConstant <= 0 {
		rrfConstant = DefaultRRFConstant
	}
	if mode == "" {
		mode = FusionWeighted
	}
	return &Fuser{
		mode:        mode,
		rrfConstant: rrfConstant,
		kindBoosts:  kindBoosts,
	}
}

// Fuse scores and sorts candidates in place, returning them ranked best
// first. The ordering is fully deterministic: score ties break on lower
// offset, then more matched terms, then chunk id.
func (f *Fuser) Fuse(candidates []*Candidate, weights Weights) []*Candidate {
	if len(candidates) == 0 {
		return []*Candidate{}
	}

	switch f.mode {
	case FusionRRF:
		f.scoreRRF(candidates, weights)
	default:
		f.scoreWeighted(candidates, weights)
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		return compareCandidates(candidates[i], candidates[j])
	})
	return candidates
}

// scoreWeighted min-max normalizes each leg over the candidate set and
// combines with the weights, then adds the clamped structural boost
// scaled by the structural weight.
//
// When a leg's scores are all equal (including the single-candidate
// case) every candidate gets 1.0 for that leg: an equal share rather
// than a degenerate 0.
func (f *Fuser) scoreWeighted(candidates []*Candidate, weights Weights) {
	bm25Min, bm25Max := legRange(candidates, func(c *Candidate) (float64, bool) {
		return c.BM25Score, c.BM25Rank > 0
	})
	denseMin, denseMax := legRange(candidates, func(c *Candidate) (float64, bool) {
		return c.DenseScore, c.DenseRank > 0
	})

	for _, c := range candidates {
		var bm25Norm, denseNorm float64
		if c.BM25Rank > 0 {
			bm25Norm = normalize(c.BM25Score, bm25Min, bm25Max)
		}
		if c.DenseRank > 0 {
			denseNorm = normalize(c.DenseScore, denseMin, denseMax)
		}

		c.Boost = f.boostFor(c.Kind)
		c.Score = weights.BM25*bm25Norm +
			weights.Dense*denseNorm +
			weights.Structural*c.Boost
	}
}

// scoreRRF combines by reciprocal rank. Structural boosts still apply,
// scaled down to the magnitude of an RRF contribution so they stay a
// tie-breaker rather than a ranking override.
func (f *Fuser) scoreRRF(candidates []*Candidate, weights Weights) {
	k := float64(f.rrfConstant)
	for _, c := range candidates {
		var score float64
		if c.BM25Rank > 0 {
			score += weights.BM25 / (k + float64(c.BM25Rank))
		}
		if c.DenseRank > 0 {
			score += weights.Dense / (k + float64(c.DenseRank))
		}
		c.Boost = f.boostFor(c.Kind)
		score += weights.Structural * c.Boost / (k + 1)
		c.Score = score
	}

	// Normalize to 0-1 with the max as reference.
	var maxScore float64
	for _, c := range candidates {
		if c.Score > maxScore {
			maxScore = c.Score
		}
	}
	if maxScore > 0 {
		for _, c := range candidates {
			c.Score /= maxScore
		}
	}
}

// boostFor looks up and clamps the structural boost for a kind.
func (f *Fuser) boostFor(kind chunk.Kind) float64 {
	boost := f.kindBoosts[kind]
	if boost < 0 {
		return 0
	}
	if boost > maxStructuralBoost {
		return maxStructuralBoost
	}
	return boost
}

// legRange finds the min and max score among candidates present in a leg.
func legRange(candidates []*Candidate, get func(*Candidate) (float64, bool)) (min, max float64) {
	first := true
	for _, c := range candidates {
		score, present := get(c)
		if !present {
			continue
		}
		if first {
			min, max = score, score
			first = false
			continue
		}
		if score < min {
			min = score
		}
		if score > max {
			max = score
		}
	}
	return min, max
}

// normalize maps score into [0, 1] over [min, max]. A zero-width range
// yields 1.0 for every present candidate.
func normalize(score, min, max float64) float64 {
	if max == min {
		return 1.0
	}
	return (score - min) / (max - min)
}

// compareCandidates reports whether a ranks strictly before b.
//
// Order: higher fused score, then lower chunk offset (earlier in the
// document), then more matched query terms, then chunk id ascending.
func compareCandidates(a, b *Candidate) bool {
	if a.Score != b.Score {
		return a.Score > b.Score
	}
	if a.Offset != b.Offset {
		return a.Offset < b.Offset
	}
	if len(a.MatchedTerms) != len(b.MatchedTerms) {
		return len(a.MatchedTerms) > len(b.MatchedTerms)
	}
	return a.ChunkID < b.ChunkID
}
