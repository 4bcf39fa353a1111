package ingest

import (
	"context"
	"errors"
	"testing"

	"warden-hq/warden/pkg/rules"
)

type stubIngestor struct {
	result *rules.IngestResult
	err    error
}

func (s *stubIngestor) Ingest(ctx context.Context, candidates []rules.Rule) (*rules.IngestResult, error) {
	return s.result, s.err
}

type captureRecorder struct {
	calls      int
	accepted   int
	duplicates int
	rejected   int
}

func (c *captureRecorder) RecordIngest(accepted, duplicates, rejected int) {
	c.calls++
	c.accepted = accepted
	c.duplicates = duplicates
	c.rejected = rejected
}

func TestWithMetricsRecordsOutcomes(t *testing.T) {
	ingestor := &stubIngestor{
		result: &rules.IngestResult{
			Accepted:   make([]rules.Rule, 3),
			Duplicates: make([]rules.Rule, 2),
			Rejected:   make([]*rules.RuleError, 1),
		},
	}
	recorder := &captureRecorder{}

	result, err := WithMetrics(ingestor, recorder).Ingest(context.Background(), nil)
	if err != nil {
		t.Fatalf("Ingest failed: %v", err)
	}
	if result != ingestor.result {
		t.Error("wrapped ingestor did not pass the result through")
	}

	if recorder.calls != 1 {
		t.Fatalf("RecordIngest called %d times, want 1", recorder.calls)
	}
	if recorder.accepted != 3 || recorder.duplicates != 2 || recorder.rejected != 1 {
		t.Errorf("RecordIngest(%d, %d, %d), want (3, 2, 1)",
			recorder.accepted, recorder.duplicates, recorder.rejected)
	}
}

func TestWithMetricsSkipsFailedIngest(t *testing.T) {
	ingestor := &stubIngestor{err: errors.New("ledger write failed")}
	recorder := &captureRecorder{}

	if _, err := WithMetrics(ingestor, recorder).Ingest(context.Background(), nil); err == nil {
		t.Fatal("expected the wrapped error, got nil")
	}
	if recorder.calls != 0 {
		t.Errorf("RecordIngest called %d times on failure, want 0", recorder.calls)
	}
}
