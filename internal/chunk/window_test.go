package chunk

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplitCharWindow_ShortDocumentSingleChunk(t *testing.T) {
	doc := &Document{ID: "doc1", Kind: KindText, Content: "hello world"}

	chunks, err := Split(doc, StrategyCharWindow, DefaultOptions())
	require.NoError(t, err)
	require.Len(t, chunks, 1)

	assert.Equal(t, "doc1::off0", chunks[0].ID)
	assert.Equal(t, 0, chunks[0].Offset)
	assert.Equal(t, "hello world", chunks[0].Text)
	assert.Equal(t, StrategyCharWindow, chunks[0].Strategy)
}

func TestSplitCharWindow_OverlapAndOffsets(t *testing.T) {
	content := strings.Repeat("a", 250)
	doc := &Document{ID: "doc1", Kind: KindText, Content: content}

	opts := DefaultOptions()
	opts.ChunkSize = 100
	opts.Overlap = 20

	chunks, err := Split(doc, StrategyCharWindow, opts)
	require.NoError(t, err)

	// Step is 80, so windows start at 0, 80, 160; the last one is short.
	require.Len(t, chunks, 3)
	assert.Equal(t, 0, chunks[0].Offset)
	assert.Equal(t, 80, chunks[1].Offset)
	assert.Equal(t, 160, chunks[2].Offset)
	assert.Len(t, []rune(chunks[0].Text), 100)
	assert.Len(t, []rune(chunks[2].Text), 90)

	// Consecutive windows share exactly the overlap region.
	tail := chunks[0].Text[len(chunks[0].Text)-20:]
	assert.Equal(t, tail, chunks[1].Text[:20])
}

func TestSplitCharWindow_ExactMultipleNoEmptyTail(t *testing.T) {
	doc := &Document{ID: "doc1", Kind: KindText, Content: strings.Repeat("x", 160)}

	opts := DefaultOptions()
	opts.ChunkSize = 100
	opts.Overlap = 40

	chunks, err := Split(doc, StrategyCharWindow, opts)
	require.NoError(t, err)

	// Windows at 0 and 60; the second ends exactly at the document end.
	require.Len(t, chunks, 2)
	assert.Equal(t, 60, chunks[1].Offset)
	assert.Len(t, []rune(chunks[1].Text), 100)
}

func TestSplitCharWindow_EmptyDocument(t *testing.T) {
	doc := &Document{ID: "doc1", Kind: KindText, Content: ""}

	chunks, err := Split(doc, StrategyCharWindow, DefaultOptions())
	require.NoError(t, err)
	assert.Empty(t, chunks)
}

func TestSplitCharWindow_MultibyteRunes(t *testing.T) {
	// Offsets count characters, not bytes.
	content := strings.Repeat("é", 120)
	doc := &Document{ID: "doc1", Kind: KindText, Content: content}

	opts := DefaultOptions()
	opts.ChunkSize = 100
	opts.Overlap = 50

	chunks, err := Split(doc, StrategyCharWindow, opts)
	require.NoError(t, err)
	require.Len(t, chunks, 2)
	assert.Equal(t, 50, chunks[1].Offset)
	assert.Len(t, []rune(chunks[1].Text), 70)
}

func TestSplit_Idempotent(t *testing.T) {
	doc := &Document{ID: "doc1", Kind: KindText, Content: strings.Repeat("some text here. ", 100)}

	for _, strategy := range []Strategy{StrategyCharWindow, StrategyProposition} {
		t.Run(string(strategy), func(t *testing.T) {
			first, err := Split(doc, strategy, DefaultOptions())
			require.NoError(t, err)
			second, err := Split(doc, strategy, DefaultOptions())
			require.NoError(t, err)

			require.Equal(t, len(first), len(second))
			for i := range first {
				assert.Equal(t, first[i].ID, second[i].ID)
				assert.Equal(t, first[i].Offset, second[i].Offset)
				assert.Equal(t, first[i].Text, second[i].Text)
			}
		})
	}
}

func TestSplit_UnknownStrategy(t *testing.T) {
	doc := &Document{ID: "doc1", Kind: KindText, Content: "hello"}

	_, err := Split(doc, Strategy("semantic"), DefaultOptions())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ERR_404")
}

func TestChunkID_Format(t *testing.T) {
	assert.Equal(t, "readme.md::off0", ID("readme.md", 0))
	assert.Equal(t, "a/b.txt::off1337", ID("a/b.txt", 1337))
}

func TestParseStrategy(t *testing.T) {
	tests := []struct {
		input   string
		want    Strategy
		wantErr bool
	}{
		{"char_window", StrategyCharWindow, false},
		{"csv_row", StrategyCSVRow, false},
		{"proposition", StrategyProposition, false},
		{"", "", true},
		{"paragraph", "", true},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("%q", tt.input), func(t *testing.T) {
			got, err := ParseStrategy(tt.input)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
