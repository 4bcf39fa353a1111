package hitl

import (
	"context"
	"time"
)

// State is an analyst disposition for one violation.
type State string

const (
	// StatePending is the implicit initial state of every violation.
	StatePending State = "PENDING"

	// StateConfirmed marks a violation verified as a true finding.
	StateConfirmed State = "CONFIRMED"

	// StateDismissed marks a violation judged a false positive.
	StateDismissed State = "DISMISSED"

	// StateEscalated marks a violation handed to a higher review tier.
	StateEscalated State = "ESCALATED"
)

// ValidStates returns all recognized decision states.
func ValidStates() []State {
	return []State{StatePending, StateConfirmed, StateDismissed, StateEscalated}
}

// IsValid reports whether the state is one of the recognized states.
func (s State) IsValid() bool {
	switch s {
	case StatePending, StateConfirmed, StateDismissed, StateEscalated:
		return true
	}
	return false
}

// Decision is the current disposition of one violation key.
type Decision struct {
	// Key identifies the violation, normally the rule identifier.
	Key string `json:"key"`

	// State is the current disposition.
	State State `json:"state"`

	// Analyst identifies who made the decision.
	Analyst string `json:"analyst"`

	// Notes carries free-text analyst commentary.
	Notes string `json:"notes,omitempty"`

	// UpdatedAt is when the decision was last changed.
	UpdatedAt time.Time `json:"updated_at"`
}

// Storage defines the persistence interface for current-state decisions.
// Implementations must be safe for concurrent use.
type Storage interface {
	// Upsert writes the current decision for a key, replacing any prior row.
	Upsert(ctx context.Context, decision *Decision) error

	// Get returns the current decision for a key.
	// Returns ErrDecisionNotFound when no decision has been recorded.
	Get(ctx context.Context, key string) (*Decision, error)

	// List returns all recorded decisions ordered by key.
	List(ctx context.Context) ([]Decision, error)

	// CountByState returns the number of recorded decisions per state.
	CountByState(ctx context.Context) (map[State]int64, error)

	// Close releases any resources held by the storage backend.
	Close() error
}
