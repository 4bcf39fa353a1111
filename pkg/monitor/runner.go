package monitor

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"warden-hq/warden/pkg/ledger"
	"warden-hq/warden/pkg/query"
	"warden-hq/warden/pkg/rules"
	"warden-hq/warden/pkg/sandbox"
)

// Pipeline sizing defaults.
const (
	DefaultBatchSize  = 5
	DefaultWorkers    = 4
	DefaultSampleRows = 5
)

// RuleSource provides the rule set a run checks.
type RuleSource interface {
	CurrentSet(ctx context.Context) ([]rules.Rule, error)
}

// Executor runs validated queries against the sandboxed dataset.
type Executor interface {
	Execute(ctx context.Context, text string) (*sandbox.Result, error)
}

// Config contains pipeline run configuration.
type Config struct {
	// Mode selects the dataset table and the report the run replaces.
	// Default: ModeMain
	Mode Mode

	// BatchSize is the number of rules processed per batch.
	// Default: 5
	BatchSize int

	// Workers is the number of concurrent workers within a batch.
	// Default: 4
	Workers int

	// SampleRows is the number of example rows retained per record.
	// Default: 5
	SampleRows int
}

// DefaultConfig returns a config with default values.
func DefaultConfig() *Config {
	return &Config{
		Mode:       ModeMain,
		BatchSize:  DefaultBatchSize,
		Workers:    DefaultWorkers,
		SampleRows: DefaultSampleRows,
	}
}

// blockedPayload is the audit payload for a validation rejection.
type blockedPayload struct {
	RuleID string `json:"rule_id"`
	Query  string `json:"query"`
	Stage  string `json:"stage"`
	Reason string `json:"reason"`
	Detail string `json:"detail,omitempty"`
}

// execErrorPayload is the audit payload for an engine failure.
type execErrorPayload struct {
	RuleID string `json:"rule_id"`
	Query  string `json:"query"`
	Error  string `json:"error"`
}

// runPayload is the audit payload for a completed run.
type runPayload struct {
	RunID        string `json:"run_id"`
	Mode         Mode   `json:"mode"`
	RulesChecked int    `json:"rules_checked"`
	Violations   int    `json:"violations"`
	Blocked      int    `json:"blocked"`
	Errors       int    `json:"errors"`
	TotalRows    int64  `json:"total_rows"`
	DurationMS   int64  `json:"duration_ms"`
}

// Runner executes full pipeline passes: rule set in, violation report out.
// It is safe for concurrent use, though callers normally serialize runs.
type Runner struct {
	config    *Config
	source    RuleSource
	producer  query.Producer
	validator *query.Validator
	executor  Executor
	storage   Storage
	ledger    *ledger.Ledger
	logger    *slog.Logger
}

// NewRunner creates a pipeline runner. A nil config uses defaults; zero
// config fields fall back to their defaults individually.
func NewRunner(config *Config, source RuleSource, producer query.Producer, validator *query.Validator, executor Executor, storage Storage, auditLedger *ledger.Ledger) *Runner {
	if config == nil {
		config = DefaultConfig()
	}
	if config.Mode == "" {
		config.Mode = ModeMain
	}
	if config.BatchSize <= 0 {
		config.BatchSize = DefaultBatchSize
	}
	if config.Workers <= 0 {
		config.Workers = DefaultWorkers
	}
	if config.SampleRows <= 0 {
		config.SampleRows = DefaultSampleRows
	}

	return &Runner{
		config:    config,
		source:    source,
		producer:  producer,
		validator: validator,
		executor:  executor,
		storage:   storage,
		ledger:    auditLedger,
		logger:    slog.Default().With("component", "monitor.runner"),
	}
}

// Mode returns the dataset mode this runner checks.
func (r *Runner) Mode() Mode {
	return r.config.Mode
}

// Run executes one full pipeline pass over the current rule set.
//
// Rules are processed in fixed-size batches with a bounded worker pool
// inside each batch; the resulting records keep rule-set order. BLOCKED
// and ERROR outcomes are recorded per rule and never abort the run.
// Cancellation is checked between batches. An audit write fault aborts
// the run and the previous report is left in place.
func (r *Runner) Run(ctx context.Context) (*Report, error) {
	startedAt := time.Now().UTC()
	runID := uuid.New().String()

	set, err := r.source.CurrentSet(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load rule set: %w", err)
	}

	r.logger.Info("pipeline run started",
		"run_id", runID,
		"mode", string(r.config.Mode),
		"rules", len(set),
		"batch_size", r.config.BatchSize,
		"workers", r.config.Workers,
	)

	records := make([]Record, len(set))
	for start := 0; start < len(set); start += r.config.BatchSize {
		if err := ctx.Err(); err != nil {
			r.logger.Warn("pipeline run canceled",
				"run_id", runID,
				"rules_completed", start,
			)
			return nil, err
		}

		end := start + r.config.BatchSize
		if end > len(set) {
			end = len(set)
		}
		if err := r.runBatch(ctx, set[start:end], records[start:end]); err != nil {
			return nil, err
		}
	}

	report := &Report{
		RunID:        runID,
		Mode:         r.config.Mode,
		StartedAt:    startedAt,
		FinishedAt:   time.Now().UTC(),
		RulesChecked: len(set),
		Records:      records,
	}
	for i := range records {
		switch records[i].Status {
		case StatusSuccess:
			if records[i].RowCount > 0 {
				report.Violations++
			}
			report.TotalRows += records[i].RowCount
		case StatusBlocked:
			report.Blocked++
		case StatusError:
			report.Errors++
		}
	}

	if _, err := r.ledger.Append(ctx, ledger.KindPipelineRun, "", runPayload{
		RunID:        report.RunID,
		Mode:         report.Mode,
		RulesChecked: report.RulesChecked,
		Violations:   report.Violations,
		Blocked:      report.Blocked,
		Errors:       report.Errors,
		TotalRows:    report.TotalRows,
		DurationMS:   report.FinishedAt.Sub(report.StartedAt).Milliseconds(),
	}); err != nil {
		return nil, err
	}

	if err := r.storage.ReplaceReport(ctx, report); err != nil {
		return nil, fmt.Errorf("failed to persist report: %w", err)
	}

	r.logger.Info("pipeline run finished",
		"run_id", runID,
		"mode", string(r.config.Mode),
		"violations", report.Violations,
		"blocked", report.Blocked,
		"errors", report.Errors,
		"total_rows", report.TotalRows,
		"duration", report.FinishedAt.Sub(report.StartedAt),
	)
	return report, nil
}

// runBatch checks one batch of rules concurrently, writing each outcome
// to the output slot matching its input position. The returned error is
// non-nil only for audit write faults.
func (r *Runner) runBatch(ctx context.Context, batch []rules.Rule, out []Record) error {
	workers := r.config.Workers
	if workers > len(batch) {
		workers = len(batch)
	}

	jobs := make(chan int)
	faults := make([]error, len(batch))
	var wg sync.WaitGroup

	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				out[i], faults[i] = r.checkRule(ctx, batch[i])
			}
		}()
	}

	for i := range batch {
		jobs <- i
	}
	close(jobs)
	wg.Wait()

	for _, err := range faults {
		if err != nil {
			return err
		}
	}
	return nil
}

// checkRule runs the produce, validate, execute sequence for one rule.
// Failures along the way become the record's status; the returned error
// is non-nil only when the audit ledger refused a write.
func (r *Runner) checkRule(ctx context.Context, rule rules.Rule) (Record, error) {
	record := Record{
		RuleID:          rule.ID,
		RuleDescription: rule.Description,
		RecordedAt:      time.Now().UTC(),
	}

	candidate, err := r.producer.Produce(rule)
	if err != nil {
		record.Status = StatusError
		record.Reason = ReasonBuildFailed
		r.logger.Warn("query build failed",
			"rule_id", rule.ID,
			"error", err,
		)
		return record, nil
	}
	record.Query = candidate.Text
	record.Provenance = candidate.Provenance

	outcome := r.validator.Validate(candidate.Text)
	if !outcome.Valid {
		record.Status = StatusBlocked
		record.Reason = string(outcome.Reason)
		r.logger.Warn("query blocked",
			"rule_id", rule.ID,
			"stage", string(outcome.Stage),
			"reason", string(outcome.Reason),
		)
		if _, err := r.ledger.Append(ctx, ledger.KindQueryBlocked, rule.ID, blockedPayload{
			RuleID: rule.ID,
			Query:  candidate.Text,
			Stage:  string(outcome.Stage),
			Reason: string(outcome.Reason),
			Detail: outcome.Detail,
		}); err != nil {
			return record, err
		}
		return record, nil
	}

	result, err := r.executor.Execute(ctx, candidate.Text)
	if err != nil {
		record.Status = StatusError
		record.Reason = ReasonExecutionFailed
		r.logger.Warn("query execution failed",
			"rule_id", rule.ID,
			"error", err,
		)
		if _, err := r.ledger.Append(ctx, ledger.KindExecutionError, rule.ID, execErrorPayload{
			RuleID: rule.ID,
			Query:  candidate.Text,
			Error:  err.Error(),
		}); err != nil {
			return record, err
		}
		return record, nil
	}

	record.Status = StatusSuccess
	record.RowCount = result.Count
	record.Sample = sampleRows(result.Rows, r.config.SampleRows)
	record.ElapsedMS = result.Elapsed.Milliseconds()
	return record, nil
}

// sampleRows copies up to n rows so the record does not pin the full
// capped result set.
func sampleRows(rows []map[string]any, n int) []map[string]any {
	if len(rows) == 0 {
		return nil
	}
	if n > len(rows) {
		n = len(rows)
	}
	sample := make([]map[string]any, n)
	copy(sample, rows[:n])
	return sample
}
