package store

import (
	"fmt"
	"path/filepath"
)

// BM25Backend selects the lexical index implementation.
type BM25Backend string

const (
	// BM25BackendBleve uses Bleve v2 (default). Single process due to
	// the BoltDB file lock.
	BM25BackendBleve BM25Backend = "bleve"

	// BM25BackendSQLite uses SQLite FTS5 with WAL mode, which allows
	// concurrent readers across processes.
	BM25BackendSQLite BM25Backend = "sqlite"
)

// NewBM25Index creates a BM25 index in dataDir for the given backend.
// An empty dataDir gives an in-memory index for tests.
func NewBM25Index(dataDir string, config BM25Config, backend string) (BM25Index, error) {
	switch BM25Backend(backend) {
	case BM25BackendBleve, "":
		var path string
		if dataDir != "" {
			path = filepath.Join(dataDir, "bm25.bleve")
		}
		return NewBleveBM25Index(path, config)

	case BM25BackendSQLite:
		var path string
		if dataDir != "" {
			path = filepath.Join(dataDir, "bm25.db")
		}
		return NewSQLiteBM25Index(path, config)

	default:
		return nil, fmt.Errorf("unknown bm25 backend %q (valid: bleve, sqlite)", backend)
	}
}
