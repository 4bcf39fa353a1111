package ledger

import (
	"context"
	"encoding/json"
	"time"
)

// EventKind identifies the category of an audit event.
type EventKind string

// Audit event kinds recorded by the system.
const (
	// KindRulesIngested records the summary of a rule ingest call.
	KindRulesIngested EventKind = "RULES_INGESTED"

	// KindDuplicateRule records a candidate rule dropped because its
	// fingerprint already exists in the live rule set. Informational,
	// never an error.
	KindDuplicateRule EventKind = "DUPLICATE_RULE"

	// KindRuleRejected records a candidate rule that failed structural
	// validation.
	KindRuleRejected EventKind = "RULE_REJECTED"

	// KindSnapshotCreated records the creation of a rule-set snapshot.
	KindSnapshotCreated EventKind = "SNAPSHOT_CREATED"

	// KindQueryBlocked records a candidate query rejected by validation
	// before reaching the execution sandbox.
	KindQueryBlocked EventKind = "QUERY_BLOCKED"

	// KindExecutionError records an engine-level failure while executing
	// a validated query.
	KindExecutionError EventKind = "EXECUTION_ERROR"

	// KindPipelineRun records the completion of a monitoring pipeline run
	// with its summary statistics.
	KindPipelineRun EventKind = "PIPELINE_RUN"

	// KindDecision records a human review decision, including the prior
	// and new states.
	KindDecision EventKind = "HITL_DECISION"
)

// Kinds returns all event kinds the system records.
func Kinds() []EventKind {
	return []EventKind{
		KindRulesIngested,
		KindDuplicateRule,
		KindRuleRejected,
		KindSnapshotCreated,
		KindQueryBlocked,
		KindExecutionError,
		KindPipelineRun,
		KindDecision,
	}
}

// Event is a single immutable entry in the audit ledger.
type Event struct {
	// Seq is the strictly increasing, gapless sequence number. Assigned by
	// the ledger at append time; never reused.
	Seq uint64 `json:"seq"`

	// Kind categorizes the event.
	Kind EventKind `json:"kind"`

	// RuleID associates the event with a rule when applicable. Empty for
	// events that concern the system as a whole (e.g. pipeline runs).
	RuleID string `json:"rule_id,omitempty"`

	// Timestamp is when the event was appended, in UTC.
	Timestamp time.Time `json:"timestamp"`

	// Payload carries kind-specific details as opaque JSON. The ledger
	// never interprets it.
	Payload json.RawMessage `json:"payload,omitempty"`
}

// Query defines filter parameters for reading back audit events.
// Results are always returned in ascending sequence order.
type Query struct {
	// Kinds restricts results to the given event kinds. Empty means all.
	Kinds []EventKind `json:"kinds,omitempty"`

	// RuleID restricts results to events for a single rule.
	RuleID string `json:"rule_id,omitempty"`

	// Since restricts results to events at or after this time (inclusive).
	Since *time.Time `json:"since,omitempty"`

	// Until restricts results to events at or before this time (inclusive).
	Until *time.Time `json:"until,omitempty"`

	// Limit caps the number of events returned. Zero means no cap.
	Limit int `json:"limit,omitempty"`
}

// Storage defines the interface for ledger storage backends.
// Implementations must be thread-safe. The ledger serializes appends, but
// reads may run concurrently with writes.
type Storage interface {
	// Append persists an event at its pre-assigned sequence number.
	// Implementations must reject duplicate sequence numbers.
	Append(ctx context.Context, event *Event) error

	// Events returns events matching the query in ascending sequence order.
	// Returns an empty slice if no events match.
	Events(ctx context.Context, query *Query) ([]*Event, error)

	// Count returns the number of events matching the query.
	Count(ctx context.Context, query *Query) (int64, error)

	// MaxSeq returns the highest stored sequence number, or zero when the
	// ledger is empty.
	MaxSeq(ctx context.Context) (uint64, error)

	// Close releases any resources held by the storage backend.
	Close() error
}
