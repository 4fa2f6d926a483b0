package search

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func candidateWithText(id string, text string) *Candidate {
	return &Candidate{ChunkID: id, DocID: "doc.txt", Text: text, Score: 1.0}
}

func TestAssemble_WholeChunksUnderBudget(t *testing.T) {
	a := NewAssembler(4000)
	candidates := []*Candidate{
		candidateWithText("doc.txt::off0", strings.Repeat("a", 10)),
		candidateWithText("doc.txt::off10", strings.Repeat("b", 10)),
	}

	context, used, entries := a.Assemble(candidates, 30)
	assert.Equal(t, 20, used)
	assert.Equal(t, strings.Repeat("a", 10)+"\n\n"+strings.Repeat("b", 10), context)

	require.Len(t, entries, 2)
	for _, entry := range entries {
		assert.True(t, entry.Included)
		assert.Equal(t, ReasonIncluded, entry.Reason)
	}
	assert.Equal(t, 10, entries[0].RunningChars)
	assert.Equal(t, 20, entries[1].RunningChars)
}

func TestAssemble_StopsAtFirstOverflow(t *testing.T) {
	a := NewAssembler(4000)
	candidates := []*Candidate{
		candidateWithText("doc.txt::off0", strings.Repeat("a", 10)),
		candidateWithText("doc.txt::off10", strings.Repeat("b", 20)),
		// Would fit the remaining budget, but admission is prefix-only.
		candidateWithText("doc.txt::off30", strings.Repeat("c", 5)),
	}

	context, used, entries := a.Assemble(candidates, 25)
	assert.Equal(t, 10, used)
	assert.Equal(t, strings.Repeat("a", 10), context)

	require.Len(t, entries, 3)
	assert.Equal(t, ReasonIncluded, entries[0].Reason)
	assert.Equal(t, ReasonBudgetExceeded, entries[1].Reason)
	assert.False(t, entries[1].Included)
	assert.Equal(t, 10, entries[1].RunningChars)
	assert.Equal(t, ReasonBudgetFull, entries[2].Reason)
	assert.False(t, entries[2].Included)
}

func TestAssemble_NeverExceedsBudget(t *testing.T) {
	a := NewAssembler(4000)
	texts := []string{"short", strings.Repeat("x", 50), "mid length text", strings.Repeat("y", 7)}
	candidates := make([]*Candidate, len(texts))
	for i, text := range texts {
		candidates[i] = candidateWithText("doc.txt::off0", text)
	}

	for budget := 1; budget <= 80; budget += 7 {
		_, used, _ := a.Assemble(candidates, budget)
		assert.LessOrEqual(t, used, budget)
	}
}

func TestAssemble_ChunkNeverTruncated(t *testing.T) {
	a := NewAssembler(4000)
	text := "never cut this chunk in half"
	context, used, entries := a.Assemble([]*Candidate{
		candidateWithText("doc.txt::off0", text),
	}, 5)

	assert.Empty(t, context, "a chunk that does not fit is skipped whole")
	assert.Zero(t, used)
	require.Len(t, entries, 1)
	assert.Equal(t, ReasonBudgetExceeded, entries[0].Reason)
	assert.Equal(t, utf8.RuneCountInString(text), entries[0].Chars)
}

func TestAssemble_ZeroBudgetUsesDefault(t *testing.T) {
	a := NewAssembler(10)
	context, used, _ := a.Assemble([]*Candidate{
		candidateWithText("doc.txt::off0", "1234567890"),
	}, 0)

	assert.Equal(t, "1234567890", context)
	assert.Equal(t, 10, used)
}

func TestAssemble_MultibyteBudgetCountsRunes(t *testing.T) {
	a := NewAssembler(4000)
	text := "héllo wörld"
	_, used, _ := a.Assemble([]*Candidate{
		candidateWithText("doc.txt::off0", text),
	}, 11)

	assert.Equal(t, 11, used, "budget is measured in runes, not bytes")
}
