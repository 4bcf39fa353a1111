package rules

import (
	"context"
	"time"
)

// Kind classifies a policy rule. The set is closed: anything outside it is
// rejected at ingestion with a field-level error rather than coerced.
type Kind string

const (
	// KindThreshold compares a numeric field against a threshold value.
	KindThreshold Kind = "threshold"

	// KindPattern matches a text field against a literal or list of literals.
	KindPattern Kind = "pattern"

	// KindFrequency limits how often a field value may occur.
	KindFrequency Kind = "frequency"

	// KindJurisdiction restricts a location-bearing field to allowed values.
	KindJurisdiction Kind = "jurisdiction"

	// KindRatio compares a derived ratio of two fields against a threshold.
	KindRatio Kind = "ratio"
)

// ValidKinds returns the closed set of accepted rule kinds.
func ValidKinds() []Kind {
	return []Kind{KindThreshold, KindPattern, KindFrequency, KindJurisdiction, KindRatio}
}

// IsValid reports whether the kind is one of the accepted rule kinds.
func (k Kind) IsValid() bool {
	switch k {
	case KindThreshold, KindPattern, KindFrequency, KindJurisdiction, KindRatio:
		return true
	}
	return false
}

// Rule is a single policy rule. Threshold holds a scalar or a list of
// scalars; it must be JSON-serializable because the fingerprint and the
// storage layer both canonicalize it through JSON.
type Rule struct {
	// ID uniquely identifies the rule. Assigned a UUID at ingestion when the
	// candidate arrives without one.
	ID string `json:"id"`

	// Kind is the rule classification. Must be one of ValidKinds.
	Kind Kind `json:"kind"`

	// Description is free human-readable text. Not part of the fingerprint.
	Description string `json:"description"`

	// Field is the dataset column the rule constrains.
	Field string `json:"field"`

	// Operator is the comparison operator, canonicalized at validation
	// ("==" becomes "=", "!=" becomes "<>", IN and NOT IN are uppercased).
	Operator string `json:"operator"`

	// Threshold is the comparison value: a number, a string, or a list.
	Threshold any `json:"threshold"`

	// QueryHint optionally carries extra conditions for query building,
	// e.g. "status = 'completed'". Untrusted free text.
	QueryHint string `json:"query_hint,omitempty"`

	// Fingerprint is the content hash over {kind, field, operator,
	// threshold}. Computed at ingestion; unique within the live set.
	Fingerprint string `json:"fingerprint"`

	// IngestedAt records when the rule entered the live set.
	IngestedAt time.Time `json:"ingested_at"`
}

// Snapshot is an immutable copy of a full rule set, taken immediately before
// a mutation of the live set. Version numbers increase monotonically.
type Snapshot struct {
	// Version is the monotonically increasing snapshot number, starting at 1.
	Version int64 `json:"version"`

	// CreatedAt is the snapshot creation time.
	CreatedAt time.Time `json:"created_at"`

	// Note describes what triggered the snapshot.
	Note string `json:"note,omitempty"`

	// Rules is the full pre-mutation rule set, in ingestion order.
	Rules []Rule `json:"rules"`
}

// IngestResult reports the outcome of one Ingest call.
type IngestResult struct {
	// Accepted holds the rules added to the live set, with fingerprints and
	// identifiers assigned.
	Accepted []Rule `json:"accepted"`

	// Duplicates holds candidates whose fingerprint already existed in the
	// live set. Informational, not errors.
	Duplicates []Rule `json:"duplicates"`

	// Rejected holds per-rule validation failures. The rest of the batch
	// still proceeds.
	Rejected []*RuleError `json:"rejected"`

	// SnapshotVersion is the version of the pre-mutation snapshot written
	// for this call, or 0 when the batch was empty and no snapshot was taken.
	SnapshotVersion int64 `json:"snapshot_version"`
}

// Storage defines the persistence interface for rules and snapshots.
// Implementations must be safe for concurrent use.
type Storage interface {
	// InsertRule adds a rule to the live set.
	// Returns an error if the fingerprint already exists.
	InsertRule(ctx context.Context, rule *Rule) error

	// Rules returns the live rule set in ingestion order.
	Rules(ctx context.Context) ([]Rule, error)

	// Rule returns the live rule with the given identifier.
	// Returns ErrRuleNotFound if no such rule exists.
	Rule(ctx context.Context, id string) (*Rule, error)

	// HasFingerprint reports whether a live rule with the fingerprint exists.
	HasFingerprint(ctx context.Context, fingerprint string) (bool, error)

	// InsertSnapshot persists an immutable snapshot.
	// Returns an error if the version already exists.
	InsertSnapshot(ctx context.Context, snapshot *Snapshot) error

	// Snapshots returns all snapshots in creation (version) order.
	Snapshots(ctx context.Context) ([]Snapshot, error)

	// Snapshot returns the snapshot with the given version.
	// Returns ErrSnapshotNotFound if no such version exists.
	Snapshot(ctx context.Context, version int64) (*Snapshot, error)

	// MaxSnapshotVersion returns the highest stored snapshot version, or 0
	// when no snapshots exist.
	MaxSnapshotVersion(ctx context.Context) (int64, error)

	// Close releases any resources held by the storage backend.
	Close() error
}
