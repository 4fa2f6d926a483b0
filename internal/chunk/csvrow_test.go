package chunk

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	enginerrors "github.com/duclm1x1/dive-engine/internal/errors"
)

func TestSplitCSVRows_OneChunkPerDataRow(t *testing.T) {
	doc := &Document{
		ID:   "fruit.csv",
		Kind: KindCSV,
		Content: "name,price\n" +
			"apple,1\n" +
			"banana,2\n" +
			"cherry,3\n",
	}

	chunks, err := Split(doc, StrategyCSVRow, DefaultOptions())
	require.NoError(t, err)
	require.Len(t, chunks, 3, "header row must not become a chunk")

	assert.Equal(t, "fruit.csv::off0", chunks[0].ID)
	assert.Equal(t, "fruit.csv::off1", chunks[1].ID)
	assert.Equal(t, "fruit.csv::off2", chunks[2].ID)

	assert.Equal(t, "name: apple | price: 1", chunks[0].Text)
	assert.Equal(t, "name: banana | price: 2", chunks[1].Text)
	assert.Equal(t, "name: cherry | price: 3", chunks[2].Text)

	for i, c := range chunks {
		assert.Equal(t, i, c.Offset)
		assert.Equal(t, StrategyCSVRow, c.Strategy)
	}
}

func TestSplitCSVRows_EmptyDocumentIsMalformed(t *testing.T) {
	for _, content := range []string{"", "   \n  "} {
		doc := &Document{ID: "empty.csv", Kind: KindCSV, Content: content}

		_, err := Split(doc, StrategyCSVRow, DefaultOptions())
		require.Error(t, err)
		assert.True(t, enginerrors.IsMalformedInput(err))
	}
}

func TestSplitCSVRows_HeaderOnlyYieldsNoChunks(t *testing.T) {
	doc := &Document{ID: "head.csv", Kind: KindCSV, Content: "name,price\n"}

	chunks, err := Split(doc, StrategyCSVRow, DefaultOptions())
	require.NoError(t, err)
	assert.Empty(t, chunks)
}

func TestSplitCSVRows_ColumnDriftRejectedAtZeroTolerance(t *testing.T) {
	doc := &Document{
		ID:   "drift.csv",
		Kind: KindCSV,
		Content: "name,price\n" +
			"apple,1\n" +
			"banana,2,extra\n",
	}

	_, err := Split(doc, StrategyCSVRow, DefaultOptions())
	require.Error(t, err)
	assert.True(t, enginerrors.IsMalformedInput(err))

	engErr, ok := enginerrors.AsEngineError(err)
	require.True(t, ok)
	assert.Equal(t, "1", engErr.Details["row"])
}

func TestSplitCSVRows_ColumnDriftWithinTolerance(t *testing.T) {
	doc := &Document{
		ID:   "drift.csv",
		Kind: KindCSV,
		Content: "name,price\n" +
			"apple,1,organic\n" +
			"banana\n",
	}

	opts := DefaultOptions()
	opts.ColumnTolerance = 1

	chunks, err := Split(doc, StrategyCSVRow, opts)
	require.NoError(t, err)
	require.Len(t, chunks, 2)

	// Extra columns are dropped, missing ones leave a shorter row text.
	assert.Equal(t, "name: apple | price: 1", chunks[0].Text)
	assert.Equal(t, "name: banana", chunks[1].Text)
}

func TestSplitCSVRows_QuotedFieldsWithCommas(t *testing.T) {
	doc := &Document{
		ID:      "notes.csv",
		Kind:    KindCSV,
		Content: "name,note\napple,\"sweet, crisp\"\n",
	}

	chunks, err := Split(doc, StrategyCSVRow, DefaultOptions())
	require.NoError(t, err)
	require.Len(t, chunks, 1)
	assert.Equal(t, "name: apple | note: sweet, crisp", chunks[0].Text)
}
