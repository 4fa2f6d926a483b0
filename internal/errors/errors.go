package errors

import (
	"fmt"
)

// EngineError is the structured error type for dive-engine.
// It carries a stable code, a category, and an optional user-facing
// suggestion so the CLI and MCP layers can present actionable messages.
type EngineError struct {
	// Code is the unique error code (e.g., "ERR_401_MALFORMED_INPUT").
	Code string

	// Message is the human-readable error message.
	Message string

	// Category is the error category (Config, IO, Input, Internal).
	Category Category

	// Severity is the error severity level.
	Severity Severity

	// Details contains additional context as key-value pairs.
	Details map[string]string

	// Cause is the underlying error that caused this error.
	Cause error

	// Suggestion is an actionable suggestion for the user.
	Suggestion string
}

// Error implements the error interface.
func (e *EngineError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause for error chain support.
func (e *EngineError) Unwrap() error {
	return e.Cause
}

// Is checks if this error matches the target error by code.
// This enables errors.Is() to work with EngineError.
func (e *EngineError) Is(target error) bool {
	if t, ok := target.(*EngineError); ok {
		return e.Code == t.Code
	}
	return false
}

// WithDetail adds a key-value detail to the error.
// Returns the error for method chaining.
func (e *EngineError) WithDetail(key, value string) *EngineError {
	if e.Details == nil {
		e.Details = make(map[string]string)
	}
	e.Details[key] = value
	return e
}

// WithSuggestion adds an actionable suggestion for the user.
// Returns the error for method chaining.
func (e *EngineError) WithSuggestion(suggestion string) *EngineError {
	e.Suggestion = suggestion
	return e
}

// New creates a new EngineError with the given code and message.
// Category and severity are derived from the code.
func New(code string, message string, cause error) *EngineError {
	return &EngineError{
		Code:     code,
		Message:  message,
		Category: categoryFromCode(code),
		Severity: severityFromCode(code),
		Cause:    cause,
	}
}

// Wrap creates an EngineError from an existing error.
// The error's message becomes the EngineError message.
func Wrap(code string, err error) *EngineError {
	if err == nil {
		return nil
	}
	return New(code, err.Error(), err)
}

// ConfigError creates a configuration-related error.
// Raised when fusion weights or chunking parameters are invalid;
// fails fast at configuration time, before any query runs.
func ConfigError(message string, cause error) *EngineError {
	return New(ErrCodeConfigInvalid, message, cause)
}

// MalformedInput creates an input validation error.
// Raised by the chunker when input violates a strategy's structural
// precondition (e.g. inconsistent CSV columns). Ingestion of the
// offending document aborts without partially indexing it.
func MalformedInput(message string, cause error) *EngineError {
	return New(ErrCodeMalformedInput, message, cause)
}

// InternalError creates an internal error.
func InternalError(message string, cause error) *EngineError {
	return New(ErrCodeInternal, message, cause)
}

// IsMalformedInput reports whether err is a malformed-input error.
func IsMalformedInput(err error) bool {
	e, ok := AsEngineError(err)
	return ok && e.Code == ErrCodeMalformedInput
}

// IsConfigError reports whether err is a configuration error.
func IsConfigError(err error) bool {
	e, ok := AsEngineError(err)
	return ok && e.Category == CategoryConfig
}

// AsEngineError extracts an EngineError from an error chain.
func AsEngineError(err error) (*EngineError, bool) {
	for err != nil {
		if e, ok := err.(*EngineError); ok {
			return e, true
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			return nil, false
		}
		err = u.Unwrap()
	}
	return nil, false
}
