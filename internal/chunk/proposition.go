package chunk

import (
	"unicode"
)

// isTerminator reports whether r ends a sentence.
func isTerminator(r rune) bool {
	return r == '.' || r == '!' || r == '?'
}

// splitPropositions splits text on sentence and bullet boundaries using a
// deterministic punctuation/newline heuristic — no model call. A sentence
// ends at `.`, `!` or `?` followed by whitespace (or end of input), and at
// every line break, so bullet lists come out one proposition per bullet.
//
// The offset is the character index of the first non-space rune of the
// sentence, which keeps ids stable when surrounding whitespace changes
// are the only edit.
func splitPropositions(doc *Document, opts Options) []*Chunk {
	runes := []rune(doc.Content)
	if len(runes) == 0 {
		return []*Chunk{}
	}

	var chunks []*Chunk
	start := 0

	flush := func(end int) {
		seg := runes[start:end]

		// Trim, tracking how much the leading trim shifts the offset.
		lead := 0
		for lead < len(seg) && unicode.IsSpace(seg[lead]) {
			lead++
		}
		tail := len(seg)
		for tail > lead && unicode.IsSpace(seg[tail-1]) {
			tail--
		}

		trimmed := seg[lead:tail]
		if len(trimmed) < opts.MinChunkChars {
			return
		}

		offset := start + lead
		chunks = append(chunks, &Chunk{
			ID:       ID(doc.ID, offset),
			DocID:    doc.ID,
			Offset:   offset,
			Text:     string(trimmed),
			Strategy: StrategyProposition,
		})
	}

	for i := 0; i < len(runes); i++ {
		r := runes[i]

		if r == '\n' {
			flush(i)
			start = i + 1
			continue
		}

		if isTerminator(r) {
			// Consume a run of terminators ("..." , "?!") as one boundary.
			j := i
			for j+1 < len(runes) && isTerminator(runes[j+1]) {
				j++
			}
			atEnd := j+1 >= len(runes)
			if atEnd || unicode.IsSpace(runes[j+1]) {
				flush(j + 1)
				start = j + 1
			}
			i = j
		}
	}

	if start < len(runes) {
		flush(len(runes))
	}

	if chunks == nil {
		return []*Chunk{}
	}
	return chunks
}
