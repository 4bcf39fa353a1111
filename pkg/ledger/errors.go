package ledger

import (
	"errors"
	"fmt"
)

// ErrClosed is returned when appending to a ledger that has been closed.
var ErrClosed = errors.New("ledger is closed")

// WriteFault represents a failure to persist an audit event. It is fatal to
// the operation that triggered the append: the caller must not report the
// operation as successful when its audit trail is missing.
type WriteFault struct {
	Seq   uint64    // Sequence number the event would have received
	Kind  EventKind // Kind of the event that could not be written
	Cause error     // Underlying storage error
}

// Error implements the error interface.
func (e *WriteFault) Error() string {
	return fmt.Sprintf("ledger write fault [seq=%d, kind=%s]: %v", e.Seq, e.Kind, e.Cause)
}

// Unwrap returns the underlying cause error.
func (e *WriteFault) Unwrap() error {
	return e.Cause
}

// NewWriteFault creates a new WriteFault.
func NewWriteFault(seq uint64, kind EventKind, cause error) *WriteFault {
	return &WriteFault{
		Seq:   seq,
		Kind:  kind,
		Cause: cause,
	}
}

// StorageError represents an error from the ledger storage backend.
type StorageError struct {
	Backend   string // Storage backend type ("sqlite", "memory")
	Operation string // Operation that failed ("append", "query", etc.)
	Cause     error  // Underlying error
}

// Error implements the error interface.
func (e *StorageError) Error() string {
	return fmt.Sprintf("ledger storage error [backend=%s, operation=%s]: %v", e.Backend, e.Operation, e.Cause)
}

// Unwrap returns the underlying cause error.
func (e *StorageError) Unwrap() error {
	return e.Cause
}

// NewStorageError creates a new StorageError.
func NewStorageError(backend, operation string, cause error) *StorageError {
	return &StorageError{
		Backend:   backend,
		Operation: operation,
		Cause:     cause,
	}
}
