package monitor

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
)

// DefaultWatchSchedule is the default live table poll schedule.
const DefaultWatchSchedule = "@every 20s"

// TableCounter reports the current row count of a dataset table.
// *sandbox.Executor satisfies it.
type TableCounter interface {
	TableCount(ctx context.Context, table string) (int64, error)
}

// RunFunc triggers one live pipeline pass.
type RunFunc func(ctx context.Context) (*Report, error)

// WatcherConfig contains live watchdog configuration.
type WatcherConfig struct {
	// Schedule is the cron expression for the poll. Supports the @every
	// form.
	// Default: "@every 20s"
	Schedule string

	// Table is the live table whose row count is watched.
	Table string
}

// Watcher polls the live table on a schedule and triggers a live pass
// whenever the row count grows past the last seen baseline.
type Watcher struct {
	config  *WatcherConfig
	counter TableCounter
	run     RunFunc
	cron    *cron.Cron
	logger  *slog.Logger

	mu      sync.Mutex // guards running and the cron lifecycle
	running bool

	// countMu guards lastCount separately so a poll in flight never
	// blocks Stop, which holds mu while waiting for jobs to finish.
	countMu   sync.Mutex
	lastCount int64

	// passMu keeps polls from overlapping when a live pass outlasts the
	// poll interval.
	passMu sync.Mutex
}

// NewWatcher creates a live watchdog. It does not start polling until
// Start is called.
func NewWatcher(config *WatcherConfig, counter TableCounter, run RunFunc) *Watcher {
	if config == nil {
		config = &WatcherConfig{}
	}
	if config.Schedule == "" {
		config.Schedule = DefaultWatchSchedule
	}

	return &Watcher{
		config:  config,
		counter: counter,
		run:     run,
		cron:    cron.New(),
		logger:  slog.Default().With("component", "monitor.watcher"),
	}
}

// Start begins polling on the configured schedule. The watcher stops
// itself when ctx is canceled.
func (w *Watcher) Start(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.running {
		return nil
	}

	if _, err := cron.ParseStandard(w.config.Schedule); err != nil {
		return fmt.Errorf("invalid watch schedule %q: %w", w.config.Schedule, err)
	}

	if _, err := w.cron.AddFunc(w.config.Schedule, func() {
		w.poll(ctx)
	}); err != nil {
		return fmt.Errorf("failed to schedule live watch: %w", err)
	}

	w.cron.Start()
	w.running = true

	w.logger.Info("live watchdog started",
		"schedule", w.config.Schedule,
		"table", w.config.Table,
	)

	go func() {
		<-ctx.Done()
		w.Stop()
	}()

	return nil
}

// poll compares the live table row count against the last seen baseline
// and triggers a live pass on growth. The baseline advances only after a
// successful pass, so a failed pass is retried on the next tick.
func (w *Watcher) poll(ctx context.Context) {
	if !w.passMu.TryLock() {
		w.logger.Debug("previous live pass still running, skipping poll")
		return
	}
	defer w.passMu.Unlock()

	count, err := w.counter.TableCount(ctx, w.config.Table)
	if err != nil {
		w.logger.Error("live table poll failed",
			"table", w.config.Table,
			"error", err,
		)
		return
	}

	w.countMu.Lock()
	last := w.lastCount
	w.countMu.Unlock()

	if count <= last {
		if count < last {
			// The feed table was truncated; adopt the smaller baseline
			// so future growth is seen again.
			w.setLastCount(count)
		}
		return
	}

	w.logger.Info("live table grew, starting live pass",
		"table", w.config.Table,
		"rows", count,
		"previous", last,
	)

	if _, err := w.run(ctx); err != nil {
		w.logger.Error("live pass failed",
			"table", w.config.Table,
			"error", err,
		)
		return
	}
	w.setLastCount(count)
}

func (w *Watcher) setLastCount(count int64) {
	w.countMu.Lock()
	w.lastCount = count
	w.countMu.Unlock()
}

// Stop stops the watcher and waits for a running poll to complete.
func (w *Watcher) Stop() {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.cron != nil && w.running {
		stopCtx := w.cron.Stop()
		<-stopCtx.Done()
		w.running = false
		w.logger.Info("live watchdog stopped")
	}
}

// IsRunning returns true if the watcher is polling.
func (w *Watcher) IsRunning() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.running
}

// NextPoll returns the next scheduled poll time, or nil when the watcher
// is not running.
func (w *Watcher) NextPoll() *time.Time {
	w.mu.Lock()
	defer w.mu.Unlock()

	if !w.running {
		return nil
	}
	entries := w.cron.Entries()
	if len(entries) == 0 {
		return nil
	}
	next := entries[0].Next
	return &next
}
