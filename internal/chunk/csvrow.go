package chunk

import (
	"encoding/csv"
	"fmt"
	"strings"

	enginerrors "github.com/duclm1x1/dive-engine/internal/errors"
)

// splitCSVRows produces one chunk per data row. The header row is consumed
// for column names and never emitted as a chunk. Offsets are zero-based
// data-row indexes, so ids stay stable when unrelated rows change.
func splitCSVRows(doc *Document, opts Options) ([]*Chunk, error) {
	if strings.TrimSpace(doc.Content) == "" {
		return nil, enginerrors.MalformedInput(
			fmt.Sprintf("document %s: csv_row requires a header row", doc.ID), nil)
	}

	reader := csv.NewReader(strings.NewReader(doc.Content))
	reader.FieldsPerRecord = -1 // column drift is checked against the tolerance below
	reader.TrimLeadingSpace = true

	records, err := reader.ReadAll()
	if err != nil {
		return nil, enginerrors.MalformedInput(
			fmt.Sprintf("document %s: %v", doc.ID, err), err)
	}
	if len(records) == 0 {
		return nil, enginerrors.MalformedInput(
			fmt.Sprintf("document %s: csv_row requires a header row", doc.ID), nil)
	}

	header := records[0]
	chunks := make([]*Chunk, 0, len(records)-1)

	for row, record := range records[1:] {
		drift := len(record) - len(header)
		if drift < 0 {
			drift = -drift
		}
		if drift > opts.ColumnTolerance {
			return nil, enginerrors.MalformedInput(
				fmt.Sprintf("document %s row %d: %d columns, header has %d (tolerance %d)",
					doc.ID, row, len(record), len(header), opts.ColumnTolerance), nil).
				WithDetail("row", fmt.Sprintf("%d", row))
		}

		chunks = append(chunks, &Chunk{
			ID:       ID(doc.ID, row),
			DocID:    doc.ID,
			Offset:   row,
			Text:     renderRow(header, record),
			Strategy: StrategyCSVRow,
		})
	}

	return chunks, nil
}

// renderRow formats a data row as "col: val | col: val".
// Columns beyond the shorter of header/record are dropped; that only
// happens inside the configured tolerance.
func renderRow(header, record []string) string {
	n := len(header)
	if len(record) < n {
		n = len(record)
	}

	parts := make([]string, 0, n)
	for i := 0; i < n; i++ {
		parts = append(parts, header[i]+": "+record[i])
	}
	return strings.Join(parts, " | ")
}
