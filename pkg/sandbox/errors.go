package sandbox

import (
	"errors"
	"fmt"
)

// ErrNotSelect is returned when the executor refuses text that does not
// begin with the SELECT keyword.
var ErrNotSelect = errors.New("query does not begin with SELECT")

// ErrClosed is returned when the executor has been closed.
var ErrClosed = errors.New("sandbox executor is closed")

// ExecError wraps any execution-time failure (nonexistent column, type
// mismatch, engine fault). Callers convert it into an ERROR outcome rather
// than letting it abort the batch.
type ExecError struct {
	Query string // Query text that failed
	Cause error  // Underlying error
}

// Error implements the error interface.
func (e *ExecError) Error() string {
	return fmt.Sprintf("query execution failed: %v", e.Cause)
}

// Unwrap returns the underlying cause error.
func (e *ExecError) Unwrap() error {
	return e.Cause
}

// NewExecError creates a new ExecError.
func NewExecError(query string, cause error) *ExecError {
	return &ExecError{Query: query, Cause: cause}
}
