package ledger

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// Ledger serializes appends to an append-only audit event store and assigns
// gapless, strictly increasing sequence numbers.
type Ledger struct {
	storage Storage
	logger  *slog.Logger

	// mu is the single-writer lock. Sequence assignment and the storage
	// append happen under it, so concurrent callers cannot interleave.
	mu      sync.Mutex
	nextSeq uint64
	closed  bool
}

// New creates a Ledger over the given storage backend. The next sequence
// number is seeded from the highest sequence already in storage, so a
// reopened ledger resumes numbering without gaps or reuse.
func New(storage Storage) (*Ledger, error) {
	maxSeq, err := storage.MaxSeq(context.Background())
	if err != nil {
		return nil, fmt.Errorf("failed to read ledger sequence: %w", err)
	}

	l := &Ledger{
		storage: storage,
		logger:  slog.Default().With("component", "ledger"),
		nextSeq: maxSeq + 1,
	}

	l.logger.Info("ledger opened", "next_seq", l.nextSeq)
	return l, nil
}

// Append records a new audit event and returns its sequence number.
//
// The payload is marshaled to JSON; pass nil for events without details.
// The sequence counter advances only after the storage backend accepts the
// event, so a failed append leaves no gap. A storage failure is returned as
// a *WriteFault and the caller must treat the surrounding operation as
// failed.
func (l *Ledger) Append(ctx context.Context, kind EventKind, ruleID string, payload any) (uint64, error) {
	var raw json.RawMessage
	if payload != nil {
		b, err := json.Marshal(payload)
		if err != nil {
			return 0, fmt.Errorf("failed to marshal event payload: %w", err)
		}
		raw = b
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if l.closed {
		return 0, ErrClosed
	}

	event := &Event{
		Seq:       l.nextSeq,
		Kind:      kind,
		RuleID:    ruleID,
		Timestamp: time.Now().UTC(),
		Payload:   raw,
	}

	if err := l.storage.Append(ctx, event); err != nil {
		l.logger.Error("audit event write failed",
			"seq", event.Seq,
			"kind", string(kind),
			"error", err,
		)
		return 0, NewWriteFault(event.Seq, kind, err)
	}

	l.nextSeq++
	return event.Seq, nil
}

// Query returns events matching the filter in ascending sequence order.
func (l *Ledger) Query(ctx context.Context, query *Query) ([]*Event, error) {
	if query == nil {
		query = &Query{}
	}
	return l.storage.Events(ctx, query)
}

// Count returns the number of events matching the filter.
func (l *Ledger) Count(ctx context.Context, query *Query) (int64, error) {
	if query == nil {
		query = &Query{}
	}
	return l.storage.Count(ctx, query)
}

// LastSeq returns the sequence number of the most recently appended event,
// or zero if the ledger is empty.
func (l *Ledger) LastSeq() uint64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.nextSeq - 1
}

// Close closes the ledger. Further appends return ErrClosed.
// The underlying storage is left open; callers that own it close it
// separately.
func (l *Ledger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.closed {
		return nil
	}
	l.closed = true
	l.logger.Info("ledger closed", "last_seq", l.nextSeq-1)
	return nil
}
