package search

import (
	"log/slog"

	"github.com/duclm1x1/dive-engine/internal/config"
	"github.com/duclm1x1/dive-engine/internal/store"
)

// CorrectivePass decides whether an initial retrieval is adequate and,
// when it is not, produces exactly one reformulated query. The pass is
// bounded: after the reformulated retrieval the engine accepts whatever
// it got, so a query never triggers more than two retrievals.
type CorrectivePass struct {
	expander       *QueryExpander
	minTopScore    float64
	minTermOverlap int
}

// NewCorrectivePass builds the pass from config thresholds.
func NewCorrectivePass(cfg config.CorrectiveConfig, expander *QueryExpander) *CorrectivePass {
	return &CorrectivePass{
		expander:       expander,
		minTopScore:    cfg.MinTopScore,
		minTermOverlap: cfg.MinTermOverlap,
	}
}

// Adequate evaluates fused candidates against both thresholds: the top
// fused score must reach minTopScore and the candidates together must
// match at least minTermOverlap distinct query terms. An empty
// candidate list is never adequate. The returned reason names which
// check decided, for the retrieval trace.
func (p *CorrectivePass) Adequate(query string, candidates []*Candidate) (bool, string) {
	if len(candidates) == 0 {
		return false, CorrectiveNoCandidates
	}
	if candidates[0].Score < p.minTopScore {
		return false, CorrectiveLowTopScore
	}
	if p.minTermOverlap <= 0 {
		return true, CorrectiveAdequate
	}

	queryTerms := store.BuildStopWordMap(store.TokenizeText(query))
	matched := make(map[string]struct{})
	for _, c := range candidates {
		for _, term := range c.MatchedTerms {
			if _, ok := queryTerms[term]; ok {
				matched[term] = struct{}{}
			}
		}
	}
	if len(matched) < p.minTermOverlap {
		return false, CorrectiveLowTermOverlap
	}
	return true, CorrectiveAdequate
}

// Reformulate produces the single corrected query. If reformulation
// yields the same query text there is nothing new to retrieve and the
// caller should accept the initial results.
func (p *CorrectivePass) Reformulate(query string) (string, bool) {
	reformulated := p.expander.Reformulate(query)
	if reformulated == query {
		return query, false
	}
	slog.Debug("reformulated query for corrective retrieval",
		"query", query,
		"reformulated", reformulated)
	return reformulated, true
}
