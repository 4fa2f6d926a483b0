package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/duclm1x1/dive-engine/internal/chunk"
	enginerrors "github.com/duclm1x1/dive-engine/internal/errors"
)

// ErrNotFound is returned for missing documents and chunks.
var ErrNotFound = errors.New("not found")

// SQLiteStore implements MetadataStore on modernc.org/sqlite.
type SQLiteStore struct {
	mu     sync.RWMutex
	db     *sql.DB
	closed bool
}

var _ MetadataStore = (*SQLiteStore)(nil)

// schemaVersion bumps when the table layout changes.
const schemaVersion = "1"

// NewSQLiteStore opens or creates the metadata database. An empty path
// gives an in-memory store for tests.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	dsn := ":memory:"
	if path != "" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("failed to create directory: %w", err)
		}
		dsn = path
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA foreign_keys = ON",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to set pragma: %w", err)
		}
	}

	s := &SQLiteStore{db: db}
	if err := s.initSchema(); err != nil {
		_ = db.Close()
		return nil, enginerrors.New(enginerrors.ErrCodeCorruptIndex,
			"failed to initialize metadata schema", err)
	}
	return s, nil
}

func (s *SQLiteStore) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS documents (
		id       TEXT PRIMARY KEY,
		source   TEXT NOT NULL,
		kind     TEXT NOT NULL,
		content  TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS chunks (
		id       TEXT PRIMARY KEY,
		doc_id   TEXT NOT NULL REFERENCES documents(id) ON DELETE CASCADE,
		chunk_offset INTEGER NOT NULL,
		text     TEXT NOT NULL,
		strategy TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_chunks_doc ON chunks(doc_id, chunk_offset);

	CREATE TABLE IF NOT EXISTS state (
		key   TEXT PRIMARY KEY,
		value TEXT NOT NULL
	);
	`
	if _, err := s.db.Exec(schema); err != nil {
		return err
	}

	_, err := s.db.Exec(
		`INSERT OR IGNORE INTO state(key, value) VALUES (?, ?)`,
		StateKeySchemaVersion, schemaVersion)
	return err
}

// ReplaceDocument swaps a document and its chunk set in one transaction.
// The removed chunk ids let the caller evict the same ids from the
// lexical and vector indexes, keeping all three stores consistent.
func (s *SQLiteStore) ReplaceDocument(ctx context.Context, doc *chunk.Document, chunks []*chunk.Chunk) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil, fmt.Errorf("store is closed")
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	rows, err := tx.QueryContext(ctx, `SELECT id FROM chunks WHERE doc_id = ?`, doc.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to list old chunks: %w", err)
	}
	var removed []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return nil, fmt.Errorf("failed to scan chunk id: %w", err)
		}
		removed = append(removed, id)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM chunks WHERE doc_id = ?`, doc.ID); err != nil {
		return nil, fmt.Errorf("failed to delete old chunks: %w", err)
	}

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO documents(id, source, kind, content) VALUES (?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET source=excluded.source, kind=excluded.kind, content=excluded.content`,
		doc.ID, doc.Source, string(doc.Kind), doc.Content); err != nil {
		return nil, fmt.Errorf("failed to upsert document: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO chunks(id, doc_id, chunk_offset, text, strategy) VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		return nil, fmt.Errorf("failed to prepare chunk insert: %w", err)
	}
	defer stmt.Close()

	for _, c := range chunks {
		if _, err := stmt.ExecContext(ctx, c.ID, c.DocID, c.Offset, c.Text, string(c.Strategy)); err != nil {
			return nil, fmt.Errorf("failed to insert chunk %s: %w", c.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit: %w", err)
	}
	return removed, nil
}

// GetDocument fetches a document by id.
func (s *SQLiteStore) GetDocument(ctx context.Context, id string) (*chunk.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, fmt.Errorf("store is closed")
	}

	var doc chunk.Document
	var kind string
	err := s.db.QueryRowContext(ctx,
		`SELECT id, source, kind, content FROM documents WHERE id = ?`, id).
		Scan(&doc.ID, &doc.Source, &kind, &doc.Content)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("document %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get document: %w", err)
	}
	doc.Kind = chunk.Kind(kind)
	return &doc, nil
}

// ListDocumentIDs returns all document ids in lexical order.
func (s *SQLiteStore) ListDocumentIDs(ctx context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, fmt.Errorf("store is closed")
	}

	rows, err := s.db.QueryContext(ctx, `SELECT id FROM documents ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list documents: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// DeleteDocument removes a document and its chunks, returning the
// removed chunk ids.
func (s *SQLiteStore) DeleteDocument(ctx context.Context, id string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil, fmt.Errorf("store is closed")
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	rows, err := tx.QueryContext(ctx, `SELECT id FROM chunks WHERE doc_id = ?`, id)
	if err != nil {
		return nil, fmt.Errorf("failed to list chunks: %w", err)
	}
	var removed []string
	for rows.Next() {
		var chunkID string
		if err := rows.Scan(&chunkID); err != nil {
			rows.Close()
			return nil, err
		}
		removed = append(removed, chunkID)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}

	res, err := tx.ExecContext(ctx, `DELETE FROM documents WHERE id = ?`, id)
	if err != nil {
		return nil, fmt.Errorf("failed to delete document: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("failed to read rows affected: %w", err)
	}
	if affected == 0 {
		return nil, fmt.Errorf("document %s: %w", id, ErrNotFound)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit: %w", err)
	}
	return removed, nil
}

// GetChunk fetches a chunk by id.
func (s *SQLiteStore) GetChunk(ctx context.Context, id string) (*chunk.Chunk, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, fmt.Errorf("store is closed")
	}

	c, err := scanChunk(s.db.QueryRowContext(ctx,
		`SELECT id, doc_id, chunk_offset, text, strategy FROM chunks WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("chunk %s: %w", id, ErrNotFound)
	}
	return c, err
}

// GetChunks batch-fetches chunks by id; missing ids are silently
// skipped so a stale index entry cannot fail a whole query.
func (s *SQLiteStore) GetChunks(ctx context.Context, ids []string) ([]*chunk.Chunk, error) {
	if len(ids) == 0 {
		return []*chunk.Chunk{}, nil
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, fmt.Errorf("store is closed")
	}

	placeholders := make([]string, len(ids))
	args := make([]any, len(ids))
	for i, id := range ids {
		placeholders[i] = "?"
		args[i] = id
	}

	rows, err := s.db.QueryContext(ctx, fmt.Sprintf(
		`SELECT id, doc_id, chunk_offset, text, strategy FROM chunks WHERE id IN (%s)`,
		strings.Join(placeholders, ",")), args...)
	if err != nil {
		return nil, fmt.Errorf("failed to get chunks: %w", err)
	}
	defer rows.Close()

	byID := make(map[string]*chunk.Chunk, len(ids))
	for rows.Next() {
		c, err := scanChunkRows(rows)
		if err != nil {
			return nil, err
		}
		byID[c.ID] = c
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	// Preserve the requested order.
	result := make([]*chunk.Chunk, 0, len(byID))
	for _, id := range ids {
		if c, ok := byID[id]; ok {
			result = append(result, c)
		}
	}
	return result, nil
}

// GetChunksByDoc returns a document's chunks in offset order.
func (s *SQLiteStore) GetChunksByDoc(ctx context.Context, docID string) ([]*chunk.Chunk, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, fmt.Errorf("store is closed")
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, doc_id, chunk_offset, text, strategy FROM chunks WHERE doc_id = ? ORDER BY chunk_offset`, docID)
	if err != nil {
		return nil, fmt.Errorf("failed to get chunks: %w", err)
	}
	defer rows.Close()

	var chunks []*chunk.Chunk
	for rows.Next() {
		c, err := scanChunkRows(rows)
		if err != nil {
			return nil, err
		}
		chunks = append(chunks, c)
	}
	return chunks, rows.Err()
}

// DocumentKind returns the kind of a chunk's parent document.
func (s *SQLiteStore) DocumentKind(ctx context.Context, docID string) (chunk.Kind, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return "", fmt.Errorf("store is closed")
	}

	var kind string
	err := s.db.QueryRowContext(ctx, `SELECT kind FROM documents WHERE id = ?`, docID).Scan(&kind)
	if errors.Is(err, sql.ErrNoRows) {
		return "", fmt.Errorf("document %s: %w", docID, ErrNotFound)
	}
	if err != nil {
		return "", err
	}
	return chunk.Kind(kind), nil
}

// Counts returns document and chunk totals.
func (s *SQLiteStore) Counts(ctx context.Context) (int, int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return 0, 0, fmt.Errorf("store is closed")
	}

	var docs, chunks int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM documents`).Scan(&docs); err != nil {
		return 0, 0, err
	}
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM chunks`).Scan(&chunks); err != nil {
		return 0, 0, err
	}
	return docs, chunks, nil
}

// GetState reads a state value; missing keys return "".
func (s *SQLiteStore) GetState(ctx context.Context, key string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return "", fmt.Errorf("store is closed")
	}

	var value string
	err := s.db.QueryRowContext(ctx, `SELECT value FROM state WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	return value, err
}

// SetState writes a state value.
func (s *SQLiteStore) SetState(ctx context.Context, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return fmt.Errorf("store is closed")
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO state(key, value) VALUES (?, ?)
		 ON CONFLICT(key) DO UPDATE SET value=excluded.value`, key, value)
	return err
}

// Close closes the database.
func (s *SQLiteStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true
	return s.db.Close()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanChunk(row rowScanner) (*chunk.Chunk, error) {
	var c chunk.Chunk
	var strategy string
	if err := row.Scan(&c.ID, &c.DocID, &c.Offset, &c.Text, &strategy); err != nil {
		return nil, err
	}
	c.Strategy = chunk.Strategy(strategy)
	return &c, nil
}

func scanChunkRows(rows *sql.Rows) (*chunk.Chunk, error) {
	c, err := scanChunk(rows)
	if err != nil {
		return nil, fmt.Errorf("failed to scan chunk: %w", err)
	}
	return c, nil
}
