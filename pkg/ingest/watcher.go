package ingest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"warden-hq/warden/pkg/rules"
)

// DefaultDebounceDelay is how long to wait after the last file event
// before scanning, so editors that write in multiple steps settle first.
const DefaultDebounceDelay = 500 * time.Millisecond

// Ingestor accepts batches of candidate rules. *rules.Repository
// satisfies it.
type Ingestor interface {
	Ingest(ctx context.Context, candidates []rules.Rule) (*rules.IngestResult, error)
}

// Config contains drop-directory watcher configuration.
type Config struct {
	// Dir is the watched drop directory. Created if missing.
	Dir string

	// DebounceDelay is the quiet period after the last file event before
	// a scan runs.
	// Default: 500ms
	DebounceDelay time.Duration
}

// DefaultConfig returns the default watcher configuration.
func DefaultConfig() *Config {
	return &Config{
		Dir:           "data/rules",
		DebounceDelay: DefaultDebounceDelay,
	}
}

// FileResult is the ingestion outcome for one dropped file.
type FileResult struct {
	Path       string
	Accepted   int
	Duplicates int
	Rejected   int
	Err        error
}

// Watcher watches the drop directory and ingests rule files as they
// appear or change.
type Watcher struct {
	watcher  *fsnotify.Watcher
	ingestor Ingestor
	config   *Config
	logger   *slog.Logger

	mu        sync.Mutex
	running   bool
	stopCh    chan struct{}
	doneCh    chan struct{}
	processed map[string]time.Time
}

// NewWatcher creates a drop-directory watcher.
func NewWatcher(config *Config, ingestor Ingestor) (*Watcher, error) {
	if config == nil {
		config = DefaultConfig()
	}
	if config.DebounceDelay <= 0 {
		config.DebounceDelay = DefaultDebounceDelay
	}

	fsWatcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create fsnotify watcher: %w", err)
	}

	return &Watcher{
		watcher:   fsWatcher,
		ingestor:  ingestor,
		config:    config,
		logger:    slog.Default().With("component", "ingest.watcher"),
		stopCh:    make(chan struct{}),
		doneCh:    make(chan struct{}),
		processed: make(map[string]time.Time),
	}, nil
}

// Run watches the drop directory until ctx is canceled or Stop is
// called. File events are debounced into directory scans.
func (w *Watcher) Run(ctx context.Context) error {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return errors.New("watcher already running")
	}
	w.running = true
	w.mu.Unlock()

	defer func() {
		w.mu.Lock()
		w.running = false
		w.mu.Unlock()
		close(w.doneCh)
	}()

	if err := os.MkdirAll(w.config.Dir, 0o755); err != nil {
		return fmt.Errorf("failed to create drop directory: %w", err)
	}
	if err := w.watcher.Add(w.config.Dir); err != nil {
		return fmt.Errorf("failed to watch drop directory: %w", err)
	}

	w.logger.Info("rule drop watcher started",
		"dir", w.config.Dir,
		"debounce_ms", w.config.DebounceDelay.Milliseconds(),
	)

	scan := newDebouncer(w.config.DebounceDelay, func() {
		w.ScanOnce(ctx)
	})
	defer scan.stop()

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("rule drop watcher stopped")
			return nil

		case <-w.stopCh:
			w.logger.Info("rule drop watcher stopped")
			return nil

		case event, ok := <-w.watcher.Events:
			if !ok {
				return errors.New("watcher events channel closed")
			}
			if !w.shouldProcessEvent(event) {
				continue
			}
			w.logger.Debug("rule file event",
				"path", event.Name,
				"op", event.Op.String(),
			)
			scan.trigger()

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return errors.New("watcher errors channel closed")
			}
			w.logger.Error("rule drop watcher error", "error", err)
		}
	}
}

// ScanOnce sweeps the drop directory and ingests every rule file that is
// new or has changed since it was last processed. Callers typically run
// it once at startup before Run takes over.
func (w *Watcher) ScanOnce(ctx context.Context) []FileResult {
	entries, err := os.ReadDir(w.config.Dir)
	if err != nil {
		w.logger.Error("failed to read drop directory",
			"dir", w.config.Dir,
			"error", err,
		)
		return nil
	}

	var results []FileResult
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		if strings.HasPrefix(name, ".") || !strings.EqualFold(filepath.Ext(name), ".json") {
			continue
		}

		info, err := entry.Info()
		if err != nil {
			continue
		}
		path := filepath.Join(w.config.Dir, name)

		w.mu.Lock()
		seen, ok := w.processed[path]
		w.mu.Unlock()
		if ok && !info.ModTime().After(seen) {
			continue
		}

		result := w.ingestFile(ctx, path)
		results = append(results, result)

		// Failed files stay unmarked so the next scan retries them.
		if result.Err == nil {
			w.mu.Lock()
			w.processed[path] = info.ModTime()
			w.mu.Unlock()
		}
	}
	return results
}

// ingestFile reads, parses, and ingests a single rule file.
func (w *Watcher) ingestFile(ctx context.Context, path string) FileResult {
	result := FileResult{Path: path}

	data, err := os.ReadFile(path)
	if err != nil {
		result.Err = fmt.Errorf("failed to read rule file: %w", err)
		w.logger.Warn("rule file unreadable", "path", path, "error", err)
		return result
	}

	candidates, err := ParseRuleFile(data)
	if err != nil {
		result.Err = err
		w.logger.Warn("rule file rejected", "path", path, "error", err)
		return result
	}
	if len(candidates) == 0 {
		w.logger.Info("rule file contains no rules", "path", path)
		return result
	}

	ingested, err := w.ingestor.Ingest(ctx, candidates)
	if err != nil {
		result.Err = fmt.Errorf("ingest failed: %w", err)
		w.logger.Error("rule file ingest failed", "path", path, "error", err)
		return result
	}

	result.Accepted = len(ingested.Accepted)
	result.Duplicates = len(ingested.Duplicates)
	result.Rejected = len(ingested.Rejected)
	w.logger.Info("rule file ingested",
		"path", path,
		"accepted", result.Accepted,
		"duplicates", result.Duplicates,
		"rejected", result.Rejected,
		"snapshot_version", ingested.SnapshotVersion,
	)
	return result
}

// shouldProcessEvent filters events down to visible *.json files.
func (w *Watcher) shouldProcessEvent(event fsnotify.Event) bool {
	if event.Op&fsnotify.Chmod == fsnotify.Chmod {
		return false
	}
	name := filepath.Base(event.Name)
	if strings.HasPrefix(name, ".") {
		return false
	}
	return strings.EqualFold(filepath.Ext(name), ".json")
}

// Stop stops the watcher and waits for the event loop to exit.
func (w *Watcher) Stop() error {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return w.watcher.Close()
	}
	w.mu.Unlock()

	close(w.stopCh)
	<-w.doneCh

	return w.watcher.Close()
}

// IsRunning returns true while the event loop is active.
func (w *Watcher) IsRunning() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.running
}

// debouncer coalesces bursts of events into one callback after a quiet
// period.
type debouncer struct {
	interval time.Duration
	fn       func()

	mu      sync.Mutex
	timer   *time.Timer
	stopped bool
}

func newDebouncer(interval time.Duration, fn func()) *debouncer {
	return &debouncer{interval: interval, fn: fn}
}

// trigger schedules the callback, resetting any pending one.
func (d *debouncer) trigger() {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.stopped {
		return
	}
	if d.timer != nil {
		d.timer.Stop()
	}
	d.timer = time.AfterFunc(d.interval, d.fn)
}

// stop cancels any pending callback.
func (d *debouncer) stop() {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.stopped = true
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
}
