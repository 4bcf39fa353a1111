package storage

import (
	"context"
	"sync"

	"warden-hq/warden/pkg/monitor"
)

// MemoryStorage implements the monitor.Storage interface in memory.
// It is intended for testing and development only.
type MemoryStorage struct {
	mu      sync.RWMutex
	reports map[monitor.Mode]*monitor.Report
}

// NewMemoryStorage creates a new in-memory report storage backend.
func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{
		reports: make(map[monitor.Mode]*monitor.Report),
	}
}

// ReplaceReport replaces the stored report for the report's mode.
func (s *MemoryStorage) ReplaceReport(ctx context.Context, report *monitor.Report) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.reports[report.Mode] = copyReport(report)
	return nil
}

// Report returns the latest stored report for a mode.
func (s *MemoryStorage) Report(ctx context.Context, mode monitor.Mode) (*monitor.Report, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	report, ok := s.reports[mode]
	if !ok {
		return nil, monitor.ErrReportNotFound
	}
	return copyReport(report), nil
}

// Records returns the stored records for a mode in run order.
func (s *MemoryStorage) Records(ctx context.Context, mode monitor.Mode) ([]monitor.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	report, ok := s.reports[mode]
	if !ok {
		return []monitor.Record{}, nil
	}

	records := make([]monitor.Record, len(report.Records))
	copy(records, report.Records)
	return records, nil
}

// Close is a no-op for memory storage.
func (s *MemoryStorage) Close() error {
	return nil
}

// copyReport clones a report so callers cannot mutate stored state.
func copyReport(report *monitor.Report) *monitor.Report {
	clone := *report
	clone.Records = make([]monitor.Record, len(report.Records))
	copy(clone.Records, report.Records)
	return &clone
}
