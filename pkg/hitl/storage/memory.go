package storage

import (
	"context"
	"sort"
	"sync"

	"warden-hq/warden/pkg/hitl"
)

// MemoryStorage implements the hitl.Storage interface in memory.
// It is intended for testing and development only.
type MemoryStorage struct {
	mu        sync.RWMutex
	decisions map[string]hitl.Decision
}

// NewMemoryStorage creates a new in-memory decision storage backend.
func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{
		decisions: make(map[string]hitl.Decision),
	}
}

// Upsert writes the current decision for a key, replacing any prior entry.
func (s *MemoryStorage) Upsert(ctx context.Context, decision *hitl.Decision) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.decisions[decision.Key] = *decision
	return nil
}

// Get returns the current decision for a key.
func (s *MemoryStorage) Get(ctx context.Context, key string) (*hitl.Decision, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	decision, ok := s.decisions[key]
	if !ok {
		return nil, hitl.ErrDecisionNotFound
	}
	return &decision, nil
}

// List returns all recorded decisions ordered by key.
func (s *MemoryStorage) List(ctx context.Context) ([]hitl.Decision, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]hitl.Decision, 0, len(s.decisions))
	for _, decision := range s.decisions {
		result = append(result, decision)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Key < result[j].Key })
	return result, nil
}

// CountByState returns the number of recorded decisions per state.
func (s *MemoryStorage) CountByState(ctx context.Context) (map[hitl.State]int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	counts := make(map[hitl.State]int64)
	for _, decision := range s.decisions {
		counts[decision.State]++
	}
	return counts, nil
}

// Close is a no-op for memory storage.
func (s *MemoryStorage) Close() error {
	return nil
}
