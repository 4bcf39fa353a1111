package monitor

import (
	"context"
	"time"
)

// Status classifies the outcome of checking one rule.
type Status string

const (
	// StatusSuccess means the query executed; RowCount holds the true
	// match count, which may be zero.
	StatusSuccess Status = "SUCCESS"

	// StatusBlocked means validation rejected the candidate query before
	// it reached the engine.
	StatusBlocked Status = "BLOCKED"

	// StatusError means the query could not be built or the engine
	// failed while executing it.
	StatusError Status = "ERROR"
)

// Mode selects which dataset table a run checks and which report it
// replaces.
type Mode string

const (
	// ModeMain checks the full historical transaction table.
	ModeMain Mode = "main"

	// ModeLive checks the live feed table.
	ModeLive Mode = "live"
)

// Machine-readable reasons for ERROR records. BLOCKED records carry the
// validator's reason instead.
const (
	// ReasonBuildFailed marks rules whose candidate query could not be
	// rendered.
	ReasonBuildFailed = "QUERY_BUILD_FAILED"

	// ReasonExecutionFailed marks engine-level failures on a validated
	// query.
	ReasonExecutionFailed = "EXECUTION_FAILED"
)

// Record is the outcome of checking one rule within a run. Records are
// immutable once created; a later run supersedes them by replacing the
// whole report.
type Record struct {
	// RuleID identifies the checked rule.
	RuleID string `json:"rule_id"`

	// RuleDescription is carried from the rule for display.
	RuleDescription string `json:"rule_description,omitempty"`

	// Query is the candidate query text, present whenever the producer
	// rendered one.
	Query string `json:"query,omitempty"`

	// Provenance says where the query text came from.
	Provenance string `json:"provenance,omitempty"`

	// Status classifies the outcome.
	Status Status `json:"status"`

	// Reason is the machine-readable cause for BLOCKED and ERROR records.
	// Empty on SUCCESS.
	Reason string `json:"reason,omitempty"`

	// RowCount is the true number of matching rows, independent of the
	// sandbox row cap. Zero unless Status is SUCCESS.
	RowCount int64 `json:"row_count"`

	// Sample holds up to the configured number of example rows.
	Sample []map[string]any `json:"sample,omitempty"`

	// ElapsedMS is the query execution time in milliseconds.
	ElapsedMS int64 `json:"elapsed_ms"`

	// RecordedAt is when the outcome was recorded, in UTC.
	RecordedAt time.Time `json:"recorded_at"`
}

// Report is the aggregated result of one pipeline run.
type Report struct {
	// RunID uniquely identifies the run.
	RunID string `json:"run_id"`

	// Mode is the dataset mode the run checked.
	Mode Mode `json:"mode"`

	// StartedAt and FinishedAt bound the run, in UTC.
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`

	// RulesChecked is the number of rules the run processed.
	RulesChecked int `json:"rules_checked"`

	// Violations is the number of SUCCESS records with at least one
	// matching row.
	Violations int `json:"violations"`

	// Blocked and Errors count the non-SUCCESS records.
	Blocked int `json:"blocked"`
	Errors  int `json:"errors"`

	// TotalRows is the sum of true match counts across all records.
	TotalRows int64 `json:"total_rows"`

	// Records holds one entry per rule, in rule-set order.
	Records []Record `json:"records"`
}

// Storage defines the interface for violation report persistence.
// Implementations must be thread-safe.
type Storage interface {
	// ReplaceReport atomically replaces the stored report for the
	// report's mode, records included.
	ReplaceReport(ctx context.Context, report *Report) error

	// Report returns the latest stored report for a mode.
	// Returns ErrReportNotFound when no run has been stored yet.
	Report(ctx context.Context, mode Mode) (*Report, error)

	// Records returns the stored records for a mode in run order.
	// Returns an empty slice when no run has been stored yet.
	Records(ctx context.Context, mode Mode) ([]Record, error)

	// Close releases any resources held by the storage backend.
	Close() error
}
