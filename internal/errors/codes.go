// Package errors provides structured error handling for dive-engine.
//
// Error codes follow the pattern ERR_XXX_DESCRIPTION where:
//   - 1XX: Configuration errors
//   - 2XX: IO errors (index files, sqlite)
//   - 4XX: Input validation errors
//   - 5XX: Internal errors
package errors

// Category defines error categories for classification.
type Category string

const (
	// CategoryConfig indicates configuration-related errors.
	CategoryConfig Category = "CONFIG"
	// CategoryIO indicates index file and database I/O errors.
	CategoryIO Category = "IO"
	// CategoryInput indicates document or query validation errors.
	CategoryInput Category = "INPUT"
	// CategoryInternal indicates unexpected internal errors.
	CategoryInternal Category = "INTERNAL"
)

// Severity defines error severity levels.
type Severity string

const (
	// SeverityFatal indicates unrecoverable error, must abort.
	SeverityFatal Severity = "FATAL"
	// SeverityError indicates operation failed but can continue.
	SeverityError Severity = "ERROR"
	// SeverityWarning indicates degraded operation, continuing.
	SeverityWarning Severity = "WARNING"
)

// Error codes organized by category.
const (
	// Config errors (100-199)
	ErrCodeConfigNotFound = "ERR_101_CONFIG_NOT_FOUND"
	ErrCodeConfigInvalid  = "ERR_102_CONFIG_INVALID"
	ErrCodeBadWeights     = "ERR_103_BAD_WEIGHTS"
	ErrCodeBadChunkOpts   = "ERR_104_BAD_CHUNK_OPTIONS"

	// IO errors (200-299)
	ErrCodeIndexNotFound = "ERR_201_INDEX_NOT_FOUND"
	ErrCodeIndexLocked   = "ERR_202_INDEX_LOCKED"
	ErrCodeCorruptIndex  = "ERR_203_CORRUPT_INDEX"

	// Input errors (400-499)
	ErrCodeMalformedInput = "ERR_401_MALFORMED_INPUT"
	ErrCodeEmptyQuery     = "ERR_402_QUERY_EMPTY"
	ErrCodeUnknownDoc     = "ERR_403_UNKNOWN_DOCUMENT"
	ErrCodeBadStrategy    = "ERR_404_UNKNOWN_STRATEGY"

	// Internal errors (500-599)
	ErrCodeInternal     = "ERR_501_INTERNAL"
	ErrCodeSearchFailed = "ERR_502_SEARCH_FAILED"
	ErrCodeIngestFailed = "ERR_503_INGEST_FAILED"
)

// categoryFromCode extracts category from error code.
func categoryFromCode(code string) Category {
	if len(code) < 7 {
		return CategoryInternal
	}
	switch code[4] {
	case '1':
		return CategoryConfig
	case '2':
		return CategoryIO
	case '4':
		return CategoryInput
	default:
		return CategoryInternal
	}
}

// severityFromCode derives severity from error code.
// Config and input errors abort the operation that raised them; everything
// else defaults to ERROR.
func severityFromCode(code string) Severity {
	switch categoryFromCode(code) {
	case CategoryConfig:
		return SeverityFatal
	default:
		return SeverityError
	}
}
