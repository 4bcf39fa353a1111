package monitor

import (
	"errors"
	"fmt"
)

// ErrReportNotFound is returned when no report has been stored for the
// requested mode.
var ErrReportNotFound = errors.New("report not found")

// StorageError represents a storage backend failure.
type StorageError struct {
	Backend   string
	Operation string
	Cause     error
}

// Error implements the error interface.
func (e *StorageError) Error() string {
	return fmt.Sprintf("monitor storage %s failed on %s: %v", e.Operation, e.Backend, e.Cause)
}

// Unwrap returns the underlying cause.
func (e *StorageError) Unwrap() error {
	return e.Cause
}

// NewStorageError creates a new storage error.
func NewStorageError(backend, operation string, cause error) *StorageError {
	return &StorageError{
		Backend:   backend,
		Operation: operation,
		Cause:     cause,
	}
}
