package rules

import (
	"errors"
	"fmt"
)

// ErrRuleNotFound is returned when a rule lookup matches no live rule.
var ErrRuleNotFound = errors.New("rule not found")

// ErrSnapshotNotFound is returned when a snapshot version does not exist.
var ErrSnapshotNotFound = errors.New("snapshot not found")

// RuleError describes why a single candidate rule was rejected during
// validation. It names the exact field that failed so callers can fix the
// input; rejection of one rule never aborts the rest of the batch.
type RuleError struct {
	Index   int    `json:"index"`             // Position in the ingest batch
	RuleID  string `json:"rule_id,omitempty"` // Identifier, if the candidate had one
	Field   string `json:"field"`             // Name of the failing field
	Message string `json:"message"`           // What was wrong with it
}

// Error implements the error interface.
func (e *RuleError) Error() string {
	if e.RuleID != "" {
		return fmt.Sprintf("rule %q invalid: field %q: %s", e.RuleID, e.Field, e.Message)
	}
	return fmt.Sprintf("rule at index %d invalid: field %q: %s", e.Index, e.Field, e.Message)
}

// NewRuleError creates a new RuleError.
func NewRuleError(index int, ruleID, field, message string) *RuleError {
	return &RuleError{
		Index:   index,
		RuleID:  ruleID,
		Field:   field,
		Message: message,
	}
}

// StorageError represents an error from the rules storage backend.
type StorageError struct {
	Backend   string // Storage backend type ("sqlite", "memory")
	Operation string // Operation that failed ("insert_rule", "snapshots", etc.)
	Cause     error  // Underlying error
}

// Error implements the error interface.
func (e *StorageError) Error() string {
	return fmt.Sprintf("rules storage error [backend=%s, operation=%s]: %v", e.Backend, e.Operation, e.Cause)
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
