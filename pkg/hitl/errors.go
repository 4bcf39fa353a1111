package hitl

import (
	"errors"
	"fmt"
)

// ErrDecisionNotFound is returned when no decision exists for a key.
var ErrDecisionNotFound = errors.New("decision not found")

// ErrMissingKey is returned when a decision is submitted without a key.
var ErrMissingKey = errors.New("decision key is required")

// InvalidStateError reports a disposition outside the recognized set.
type InvalidStateError struct {
	State State
}

// Error implements the error interface.
func (e *InvalidStateError) Error() string {
	return fmt.Sprintf("invalid decision state %q", string(e.State))
}

// NewInvalidStateError creates a new InvalidStateError.
func NewInvalidStateError(state State) *InvalidStateError {
	return &InvalidStateError{State: state}
}

// StorageError represents an error from the decision storage backend.
type StorageError struct {
	Backend   string // Storage backend type ("sqlite", "memory")
	Operation string // Operation that failed ("upsert", "get", etc.)
	Cause     error  // Underlying error
}

// Error implements the error interface.
func (e *StorageError) Error() string {
	return fmt.Sprintf("hitl storage error [backend=%s, operation=%s]: %v", e.Backend, e.Operation, e.Cause)
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
