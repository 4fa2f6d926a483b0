// Package mcp exposes the retrieval engine over the Model Context
// Protocol, so AI clients can query and maintain the index directly.
package mcp

import (
	"fmt"

	enginerrors "github.com/duclm1x1/dive-engine/internal/errors"
)

// JSON-RPC error codes used by the tools.
const (
	ErrCodeInvalidParams = -32602
	ErrCodeInternalError = -32603

	// ErrCodeIndexLocked indicates another process holds the index.
	ErrCodeIndexLocked = -32001
)

// ProtocolError is a JSON-RPC error with code and message.
type ProtocolError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (e *ProtocolError) Error() string {
	return fmt.Sprintf("mcp error %d: %s", e.Code, e.Message)
}

// NewInvalidParamsError creates an invalid-params protocol error.
func NewInvalidParamsError(message string) *ProtocolError {
	return &ProtocolError{Code: ErrCodeInvalidParams, Message: message}
}

// MapError converts an engine error into a protocol error, preserving
// the engine's code string in the message so clients can branch on it.
func MapError(err error) error {
	engErr, ok := enginerrors.AsEngineError(err)
	if !ok {
		return &ProtocolError{Code: ErrCodeInternalError, Message: err.Error()}
	}

	code := ErrCodeInternalError
	switch engErr.Code {
	case enginerrors.ErrCodeEmptyQuery,
		enginerrors.ErrCodeMalformedInput,
		enginerrors.ErrCodeUnknownDoc,
		enginerrors.ErrCodeBadStrategy,
		enginerrors.ErrCodeBadChunkOpts,
		enginerrors.ErrCodeBadWeights:
		code = ErrCodeInvalidParams
	case enginerrors.ErrCodeIndexLocked:
		code = ErrCodeIndexLocked
	}
	return &ProtocolError{Code: code, Message: engErr.Error()}
}
