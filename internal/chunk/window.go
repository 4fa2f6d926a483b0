package chunk

// splitCharWindow produces overlapping fixed-size windows.
// Consecutive windows share opts.Overlap characters; the offset is the
// starting character index (rune-based, so multi-byte text windows
// cleanly). The final window may be shorter than ChunkSize.
func splitCharWindow(doc *Document, opts Options) []*Chunk {
	runes := []rune(doc.Content)
	if len(runes) == 0 {
		return []*Chunk{}
	}

	step := opts.ChunkSize - opts.Overlap

	chunks := make([]*Chunk, 0, len(runes)/step+1)
	for start := 0; start < len(runes); start += step {
		end := start + opts.ChunkSize
		if end > len(runes) {
			end = len(runes)
		}

		chunks = append(chunks, &Chunk{
			ID:       ID(doc.ID, start),
			DocID:    doc.ID,
			Offset:   start,
			Text:     string(runes[start:end]),
			Strategy: StrategyCharWindow,
		})

		// The last window ends at the document end; a trailing
		// overlap-only window would duplicate content already emitted.
		if end == len(runes) {
			break
		}
	}

	return chunks
}
