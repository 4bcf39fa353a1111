package hitl

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"warden-hq/warden/pkg/ledger"
)

// decisionPayload is the audit payload for one transition. Prior and new
// state together make the full history reconstructable from the ledger.
type decisionPayload struct {
	Key        string `json:"key"`
	PriorState State  `json:"prior_state"`
	NewState   State  `json:"new_state"`
	Analyst    string `json:"analyst"`
	Notes      string `json:"notes,omitempty"`
}

// Store manages current-state analyst decisions, mirroring every transition
// into the audit ledger.
type Store struct {
	storage Storage
	ledger  *ledger.Ledger
	logger  *slog.Logger

	mu sync.Mutex // makes prior-state capture and write one logical operation
}

// NewStore creates a decision store over the given storage backend.
func NewStore(storage Storage, auditLedger *ledger.Ledger) *Store {
	return &Store{
		storage: storage,
		ledger:  auditLedger,
		logger:  slog.Default().With("component", "hitl.store"),
	}
}

// Decide transitions a violation key to newState. Transitions are
// unconditional: any state may move to any other, including back to
// PENDING. The audit event is appended before the current-state row is
// written so the ledger never lags the store; a ledger write fault
// therefore aborts the decision entirely.
func (s *Store) Decide(ctx context.Context, key string, newState State, analyst, notes string) (*Decision, error) {
	if key == "" {
		return nil, ErrMissingKey
	}
	if !newState.IsValid() {
		return nil, NewInvalidStateError(newState)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	prior := StatePending
	if existing, err := s.storage.Get(ctx, key); err == nil {
		prior = existing.State
	} else if !errors.Is(err, ErrDecisionNotFound) {
		return nil, err
	}

	if _, err := s.ledger.Append(ctx, ledger.KindDecision, key, decisionPayload{
		Key:        key,
		PriorState: prior,
		NewState:   newState,
		Analyst:    analyst,
		Notes:      notes,
	}); err != nil {
		return nil, err
	}

	decision := &Decision{
		Key:       key,
		State:     newState,
		Analyst:   analyst,
		Notes:     notes,
		UpdatedAt: time.Now().UTC(),
	}
	if err := s.storage.Upsert(ctx, decision); err != nil {
		return nil, err
	}

	s.logger.Info("decision recorded",
		"key", key,
		"prior_state", prior,
		"new_state", newState,
		"analyst", analyst,
	)
	return decision, nil
}

// Current returns the disposition of a key, PENDING when none is recorded.
func (s *Store) Current(ctx context.Context, key string) (State, error) {
	decision, err := s.storage.Get(ctx, key)
	if errors.Is(err, ErrDecisionNotFound) {
		return StatePending, nil
	}
	if err != nil {
		return "", err
	}
	return decision.State, nil
}

// Get returns the full current decision for a key.
// Returns ErrDecisionNotFound when no decision has been recorded.
func (s *Store) Get(ctx context.Context, key string) (*Decision, error) {
	return s.storage.Get(ctx, key)
}

// List returns all recorded decisions ordered by key.
func (s *Store) List(ctx context.Context) ([]Decision, error) {
	return s.storage.List(ctx)
}

// Summarize returns decision counts per state. Every recognized state is
// present in the result, zero-valued when unused.
func (s *Store) Summarize(ctx context.Context) (map[State]int64, error) {
	counts, err := s.storage.CountByState(ctx)
	if err != nil {
		return nil, err
	}

	summary := make(map[State]int64, len(ValidStates()))
	for _, state := range ValidStates() {
		summary[state] = counts[state]
	}
	return summary, nil
}
