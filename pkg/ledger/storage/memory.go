package storage

import (
	"context"
	"fmt"
	"sync"

	"warden-hq/warden/pkg/ledger"
)

// MemoryStorage implements the ledger Storage interface using an in-memory
// slice. This implementation is intended for testing only and should not be
// used in production.
type MemoryStorage struct {
	events []*ledger.Event
	mu     sync.RWMutex
}

// NewMemoryStorage creates a new in-memory ledger backend.
func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{}
}

// Append persists an audit event to memory.
func (s *MemoryStorage) Append(ctx context.Context, event *ledger.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if n := len(s.events); n > 0 && event.Seq <= s.events[n-1].Seq {
		return ledger.NewStorageError("memory", "append",
			fmt.Errorf("sequence %d already used", event.Seq))
	}

	eventCopy := *event
	s.events = append(s.events, &eventCopy)
	return nil
}

// Events returns events matching the query in ascending sequence order.
func (s *MemoryStorage) Events(ctx context.Context, query *ledger.Query) ([]*ledger.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	results := []*ledger.Event{}
	for _, event := range s.events {
		if !matchesQuery(event, query) {
			continue
		}
		eventCopy := *event
		results = append(results, &eventCopy)
		if query.Limit > 0 && len(results) >= query.Limit {
			break
		}
	}

	return results, nil
}

// Count returns the number of events matching the query.
func (s *MemoryStorage) Count(ctx context.Context, query *ledger.Query) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var count int64
	for _, event := range s.events {
		if matchesQuery(event, query) {
			count++
		}
	}
	return count, nil
}

// MaxSeq returns the highest stored sequence number, or zero when empty.
func (s *MemoryStorage) MaxSeq(ctx context.Context) (uint64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if len(s.events) == 0 {
		return 0, nil
	}
	return s.events[len(s.events)-1].Seq, nil
}

// Close releases resources held by the storage backend.
func (s *MemoryStorage) Close() error {
	return nil
}

// matchesQuery checks if an event matches the query filters.
func matchesQuery(event *ledger.Event, query *ledger.Query) bool {
	if len(query.Kinds) > 0 {
		found := false
		for _, kind := range query.Kinds {
			if event.Kind == kind {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}

	if query.RuleID != "" && event.RuleID != query.RuleID {
		return false
	}

	if query.Since != nil && event.Timestamp.Before(*query.Since) {
		return false
	}
	if query.Until != nil && event.Timestamp.After(*query.Until) {
		return false
	}

	return true
}
