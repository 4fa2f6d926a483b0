// Package ingest turns files into documents for the engine.
package ingest

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/duclm1x1/dive-engine/internal/chunk"
	enginerrors "github.com/duclm1x1/dive-engine/internal/errors"
)

// MaxDocumentBytes rejects files too large to chunk sensibly.
const MaxDocumentBytes = 32 << 20

// codeExtensions marks files whose chunks should carry the code kind.
var codeExtensions = map[string]bool{
	".go": true, ".py": true, ".js": true, ".ts": true, ".tsx": true,
	".java": true, ".rs": true, ".c": true, ".h": true, ".cpp": true,
	".rb": true, ".sh": true, ".sql": true,
}

// DetectKind maps a file path to a document kind by extension.
func DetectKind(path string) chunk.Kind {
	ext := strings.ToLower(filepath.Ext(path))
	switch {
	case ext == ".csv":
		return chunk.KindCSV
	case codeExtensions[ext]:
		return chunk.KindCode
	default:
		return chunk.KindText
	}
}

// DocID derives the stable document id for a path: the cleaned
// slash-separated path, so the same file maps to the same id across
// platforms and re-ingestions.
func DocID(path string) string {
	return filepath.ToSlash(filepath.Clean(path))
}

// LoadDocument reads a file into a Document. An empty kind is detected
// from the extension. Binary content is rejected as malformed input.
func LoadDocument(path string, kind chunk.Kind) (*chunk.Document, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, enginerrors.MalformedInput(fmt.Sprintf("cannot read %s", path), err)
	}
	if info.IsDir() {
		return nil, enginerrors.MalformedInput(fmt.Sprintf("%s is a directory", path), nil)
	}
	if info.Size() > MaxDocumentBytes {
		return nil, enginerrors.MalformedInput(
			fmt.Sprintf("%s exceeds the %d byte document limit", path, MaxDocumentBytes), nil)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, enginerrors.MalformedInput(fmt.Sprintf("cannot read %s", path), err)
	}
	if !utf8.Valid(data) {
		return nil, enginerrors.MalformedInput(fmt.Sprintf("%s is not valid UTF-8 text", path), nil)
	}

	if kind == "" {
		kind = DetectKind(path)
	}

	return &chunk.Document{
		ID:      DocID(path),
		Source:  path,
		Kind:    kind,
		Content: string(data),
	}, nil
}
