package server

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"warden-hq/warden/pkg/monitor"
)

// ErrRunInProgress is returned when a run trigger arrives while another
// run is still active. Runs are single-flight across both modes because
// they share the sandbox and the report storage.
var ErrRunInProgress = errors.New("a pipeline run is already in progress")

// runCoordinator serializes pipeline runs triggered through the API and
// keeps the status the /api/run endpoints report.
type runCoordinator struct {
	logger *slog.Logger

	mu        sync.Mutex
	running   bool
	mode      monitor.Mode
	startedAt time.Time
	last      *reportSummary
	lastErr   string

	// observe is called with each finished report, outside the lock.
	// Used to feed the metrics collector. May be nil.
	observe func(*monitor.Report)
}

func newRunCoordinator(observe func(*monitor.Report)) *runCoordinator {
	return &runCoordinator{
		logger:  slog.Default().With("component", "server.run"),
		observe: observe,
	}
}

// Trigger starts a run in the background. It returns ErrRunInProgress
// without starting anything when a run is already active. The run uses
// the supplied context, which should outlive the HTTP request that
// triggered it.
func (rc *runCoordinator) Trigger(ctx context.Context, runner *monitor.Runner) error {
	rc.mu.Lock()
	if rc.running {
		rc.mu.Unlock()
		return ErrRunInProgress
	}
	rc.running = true
	rc.mode = runner.Mode()
	rc.startedAt = time.Now().UTC()
	rc.mu.Unlock()

	go func() {
		report, err := runner.Run(ctx)

		rc.mu.Lock()
		rc.running = false
		if err != nil {
			rc.lastErr = err.Error()
		} else {
			rc.lastErr = ""
			rc.last = summarize(report)
		}
		rc.mu.Unlock()

		if err != nil {
			rc.logger.Error("triggered run failed", "mode", string(runner.Mode()), "error", err)
			return
		}
		if rc.observe != nil {
			rc.observe(report)
		}
	}()

	return nil
}

// RunAndObserve runs synchronously on behalf of a non-HTTP caller (the
// live watchdog) while still holding the single-flight slot and feeding
// the status and metrics paths.
func (rc *runCoordinator) RunAndObserve(ctx context.Context, runner *monitor.Runner) (*monitor.Report, error) {
	rc.mu.Lock()
	if rc.running {
		rc.mu.Unlock()
		return nil, ErrRunInProgress
	}
	rc.running = true
	rc.mode = runner.Mode()
	rc.startedAt = time.Now().UTC()
	rc.mu.Unlock()

	report, err := runner.Run(ctx)

	rc.mu.Lock()
	rc.running = false
	if err != nil {
		rc.lastErr = err.Error()
	} else {
		rc.lastErr = ""
		rc.last = summarize(report)
	}
	rc.mu.Unlock()

	if err != nil {
		return nil, err
	}
	if rc.observe != nil {
		rc.observe(report)
	}
	return report, nil
}

// Status returns the coordinator state for /api/run/status.
func (rc *runCoordinator) Status() runStatusResponse {
	rc.mu.Lock()
	defer rc.mu.Unlock()

	status := runStatusResponse{
		Running:   rc.running,
		Last:      rc.last,
		LastError: rc.lastErr,
	}
	if rc.running {
		status.Mode = rc.mode
		startedAt := rc.startedAt
		status.StartedAt = &startedAt
	}
	return status
}
