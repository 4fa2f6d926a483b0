package search

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/duclm1x1/dive-engine/internal/config"
)

func TestReformulate_DropsStopWordsAndExpands(t *testing.T) {
	e := NewQueryExpander()

	got := e.Reformulate("what is the price of banana")
	assert.Equal(t, "what price banana cost amount", got)
}

func TestReformulate_NeverEmpty(t *testing.T) {
	e := NewQueryExpander()

	// Every term is a stop word: the original terms are kept.
	got := e.Reformulate("the and of")
	assert.Equal(t, "the and of", got)

	// Nothing tokenizable at all: the query passes through.
	assert.Equal(t, "!?", e.Reformulate("!?"))
}

func TestReformulate_CustomSynonyms(t *testing.T) {
	e := NewQueryExpander(
		WithCustomSynonyms(map[string][]string{"latency": {"slowness"}}),
		WithMaxExpansions(1),
	)

	assert.Equal(t, "latency slowness", e.Reformulate("latency"))
	// MaxExpansions caps default tables too.
	assert.Equal(t, "price cost", e.Reformulate("price"))
}

func newCorrectivePass(minTopScore float64, minTermOverlap int) *CorrectivePass {
	return NewCorrectivePass(config.CorrectiveConfig{
		Enabled:        true,
		MinTopScore:    minTopScore,
		MinTermOverlap: minTermOverlap,
	}, NewQueryExpander())
}

func TestAdequate_EmptyResultsNeverAdequate(t *testing.T) {
	p := newCorrectivePass(0, 0)

	ok, reason := p.Adequate("banana", nil)
	assert.False(t, ok)
	assert.Equal(t, CorrectiveNoCandidates, reason)
}

func TestAdequate_TopScoreThreshold(t *testing.T) {
	p := newCorrectivePass(0.25, 0)

	low := []*Candidate{{ChunkID: "a::off0", Score: 0.1}}
	high := []*Candidate{{ChunkID: "a::off0", Score: 0.9}}

	ok, reason := p.Adequate("banana", low)
	assert.False(t, ok)
	assert.Equal(t, CorrectiveLowTopScore, reason)

	ok, reason = p.Adequate("banana", high)
	assert.True(t, ok)
	assert.Equal(t, CorrectiveAdequate, reason)
}

func TestAdequate_TermOverlap(t *testing.T) {
	p := newCorrectivePass(0, 2)

	oneTerm := []*Candidate{
		{ChunkID: "a::off0", Score: 0.9, MatchedTerms: []string{"banana"}},
	}
	bothTerms := []*Candidate{
		{ChunkID: "a::off0", Score: 0.9, MatchedTerms: []string{"banana"}},
		{ChunkID: "b::off0", Score: 0.5, MatchedTerms: []string{"price"}},
	}

	ok, reason := p.Adequate("banana price", oneTerm)
	assert.False(t, ok)
	assert.Equal(t, CorrectiveLowTermOverlap, reason)

	ok, _ = p.Adequate("banana price", bothTerms)
	assert.True(t, ok, "distinct matched terms accumulate across candidates")
}

func TestAdequate_IgnoresTermsOutsideQuery(t *testing.T) {
	p := newCorrectivePass(0, 1)

	candidates := []*Candidate{
		{ChunkID: "a::off0", Score: 0.9, MatchedTerms: []string{"cherry"}},
	}
	ok, reason := p.Adequate("banana", candidates)
	assert.False(t, ok)
	assert.Equal(t, CorrectiveLowTermOverlap, reason)
}

func TestReformulate_UnchangedQueryReportsNoRewrite(t *testing.T) {
	p := newCorrectivePass(0.25, 1)

	// No stop words, no synonyms: nothing new to retrieve with.
	got, ok := p.Reformulate("banana")
	require.False(t, ok)
	assert.Equal(t, "banana", got)

	got, ok = p.Reformulate("the banana price")
	require.True(t, ok)
	assert.Equal(t, "banana price cost amount", got)
}
