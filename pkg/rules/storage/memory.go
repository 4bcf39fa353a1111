package storage

import (
	"context"
	"fmt"
	"sync"

	"warden-hq/warden/pkg/rules"
)

// MemoryStorage implements the rules.Storage interface in memory.
// It is intended for testing and development only; nothing survives a
// process restart.
type MemoryStorage struct {
	mu           sync.RWMutex
	rules        []rules.Rule
	fingerprints map[string]bool
	snapshots    []rules.Snapshot
}

// NewMemoryStorage creates a new in-memory rules storage backend.
func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{
		fingerprints: make(map[string]bool),
	}
}

// InsertRule adds a rule to the live set, rejecting fingerprint duplicates.
func (s *MemoryStorage) InsertRule(ctx context.Context, rule *rules.Rule) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.fingerprints[rule.Fingerprint] {
		return fmt.Errorf("fingerprint %s already exists", rule.Fingerprint)
	}

	s.rules = append(s.rules, *rule)
	s.fingerprints[rule.Fingerprint] = true
	return nil
}

// Rules returns a copy of the live rule set in ingestion order.
func (s *MemoryStorage) Rules(ctx context.Context) ([]rules.Rule, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]rules.Rule, len(s.rules))
	copy(result, s.rules)
	return result, nil
}

// Rule returns the live rule with the given identifier.
func (s *MemoryStorage) Rule(ctx context.Context, id string) (*rules.Rule, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for i := range s.rules {
		if s.rules[i].ID == id {
			rule := s.rules[i]
			return &rule, nil
		}
	}
	return nil, rules.ErrRuleNotFound
}

// HasFingerprint reports whether a live rule with the fingerprint exists.
func (s *MemoryStorage) HasFingerprint(ctx context.Context, fingerprint string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.fingerprints[fingerprint], nil
}

// InsertSnapshot persists a snapshot, rejecting version reuse.
func (s *MemoryStorage) InsertSnapshot(ctx context.Context, snapshot *rules.Snapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.snapshots {
		if s.snapshots[i].Version == snapshot.Version {
			return fmt.Errorf("snapshot version %d already exists", snapshot.Version)
		}
	}

	stored := *snapshot
	stored.Rules = make([]rules.Rule, len(snapshot.Rules))
	copy(stored.Rules, snapshot.Rules)
	s.snapshots = append(s.snapshots, stored)
	return nil
}

// Snapshots returns copies of all snapshots in version order.
func (s *MemoryStorage) Snapshots(ctx context.Context) ([]rules.Snapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]rules.Snapshot, len(s.snapshots))
	for i := range s.snapshots {
		result[i] = s.snapshots[i]
		result[i].Rules = make([]rules.Rule, len(s.snapshots[i].Rules))
		copy(result[i].Rules, s.snapshots[i].Rules)
	}
	return result, nil
}

// Snapshot returns the snapshot with the given version.
func (s *MemoryStorage) Snapshot(ctx context.Context, version int64) (*rules.Snapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for i := range s.snapshots {
		if s.snapshots[i].Version == version {
			snapshot := s.snapshots[i]
			snapshot.Rules = make([]rules.Rule, len(s.snapshots[i].Rules))
			copy(snapshot.Rules, s.snapshots[i].Rules)
			return &snapshot, nil
		}
	}
	return nil, rules.ErrSnapshotNotFound
}

// MaxSnapshotVersion returns the highest stored snapshot version, or 0.
func (s *MemoryStorage) MaxSnapshotVersion(ctx context.Context) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var max int64
	for i := range s.snapshots {
		if s.snapshots[i].Version > max {
			max = s.snapshots[i].Version
		}
	}
	return max, nil
}

// Close is a no-op for memory storage.
func (s *MemoryStorage) Close() error {
	return nil
}
