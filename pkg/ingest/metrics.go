package ingest

import (
	"context"

	"warden-hq/warden/pkg/rules"
)

// IngestRecorder receives the outcome counts of each completed ingest
// call. *metrics.Collector satisfies it.
type IngestRecorder interface {
	RecordIngest(accepted, duplicates, rejected int)
}

// WithMetrics wraps an Ingestor so every successful Ingest reports its
// outcome counts to the recorder. Failed calls record nothing; a storage
// or ledger fault has no per-rule outcome to count.
func WithMetrics(ingestor Ingestor, recorder IngestRecorder) Ingestor {
	return &recordingIngestor{ingestor: ingestor, recorder: recorder}
}

type recordingIngestor struct {
	ingestor Ingestor
	recorder IngestRecorder
}

func (r *recordingIngestor) Ingest(ctx context.Context, candidates []rules.Rule) (*rules.IngestResult, error) {
	result, err := r.ingestor.Ingest(ctx, candidates)
	if err != nil {
		return nil, err
	}
	r.recorder.RecordIngest(len(result.Accepted), len(result.Duplicates), len(result.Rejected))
	return result, nil
}
