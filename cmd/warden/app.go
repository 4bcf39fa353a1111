package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"warden-hq/warden/pkg/config"
	"warden-hq/warden/pkg/hitl"
	hitlstorage "warden-hq/warden/pkg/hitl/storage"
	"warden-hq/warden/pkg/ledger"
	ledgerstorage "warden-hq/warden/pkg/ledger/storage"
	"warden-hq/warden/pkg/monitor"
	monitorstorage "warden-hq/warden/pkg/monitor/storage"
	"warden-hq/warden/pkg/query"
	"warden-hq/warden/pkg/rules"
	rulesstorage "warden-hq/warden/pkg/rules/storage"
	"warden-hq/warden/pkg/sandbox"
	"warden-hq/warden/pkg/telemetry/logging"
)

// loadWardenConfig loads the configuration with environment overrides. A
// missing file at the default path is not an error; defaults apply, so the
// binary works out of the box.
func loadWardenConfig() (*config.Config, error) {
	if _, err := os.Stat(cfgFile); errors.Is(err, os.ErrNotExist) && !rootCmd.PersistentFlags().Changed("config") {
		cfg := &config.Config{}
		config.ApplyDefaults(cfg)
		if err := config.Validate(cfg); err != nil {
			return nil, err
		}
		return cfg, nil
	}
	return config.LoadConfigWithEnvOverrides(cfgFile)
}

// setupLogging installs the slog default from config. --verbose forces
// debug level regardless of the configured level.
func setupLogging(cfg *config.Config) error {
	logCfg := cfg.Telemetry.Logging
	if verbose {
		logCfg.Level = "debug"
	}
	_, err := logging.Setup(&logCfg)
	return err
}

// core holds the wired trust-boundary components a command works with.
// Commands that never touch the dataset open the core without the sandbox.
type core struct {
	cfg *config.Config

	ledger    *ledger.Ledger
	repo      *rules.Repository
	decisions *hitl.Store
	reports   monitor.Storage
	executor  *sandbox.Executor
	validator *query.Validator

	closers []func() error
}

// openCore opens the ledger, the state stores, and (optionally) the
// read-only dataset handle. The ledger comes first: nothing that could
// emit an audit event is wired before audit capability exists.
func openCore(cfg *config.Config, withDataset bool) (*core, error) {
	c := &core{cfg: cfg}

	ledgerStore, err := ledgerstorage.NewSQLiteStorage(&ledgerstorage.SQLiteConfig{
		Path:        cfg.Ledger.Path,
		BusyTimeout: cfg.Ledger.BusyTimeout,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open ledger storage: %w", err)
	}
	c.closers = append(c.closers, ledgerStore.Close)

	c.ledger, err = ledger.New(ledgerStore)
	if err != nil {
		c.Close()
		return nil, fmt.Errorf("failed to open audit ledger: %w", err)
	}

	ruleStore, err := rulesstorage.NewSQLiteStorage(&rulesstorage.SQLiteConfig{
		Path:         cfg.State.Path,
		MaxOpenConns: cfg.State.MaxOpenConns,
		MaxIdleConns: cfg.State.MaxIdleConns,
		WALMode:      cfg.State.WALMode,
		BusyTimeout:  cfg.State.BusyTimeout,
	})
	if err != nil {
		c.Close()
		return nil, fmt.Errorf("failed to open rule storage: %w", err)
	}
	c.closers = append(c.closers, ruleStore.Close)
	c.repo = rules.NewRepository(ruleStore, c.ledger)

	decisionStore, err := hitlstorage.NewSQLiteStorage(&hitlstorage.SQLiteConfig{
		Path:         cfg.State.Path,
		MaxOpenConns: cfg.State.MaxOpenConns,
		MaxIdleConns: cfg.State.MaxIdleConns,
		WALMode:      cfg.State.WALMode,
		BusyTimeout:  cfg.State.BusyTimeout,
	})
	if err != nil {
		c.Close()
		return nil, fmt.Errorf("failed to open decision storage: %w", err)
	}
	c.closers = append(c.closers, decisionStore.Close)
	c.decisions = hitl.NewStore(decisionStore, c.ledger)

	reportStore, err := monitorstorage.NewSQLiteStorage(&monitorstorage.SQLiteConfig{
		Path:         cfg.State.Path,
		MaxOpenConns: cfg.State.MaxOpenConns,
		MaxIdleConns: cfg.State.MaxIdleConns,
		WALMode:      cfg.State.WALMode,
		BusyTimeout:  cfg.State.BusyTimeout,
	})
	if err != nil {
		c.Close()
		return nil, fmt.Errorf("failed to open report storage: %w", err)
	}
	c.closers = append(c.closers, reportStore.Close)
	c.reports = reportStore

	c.validator = query.NewValidator(cfg.Pipeline.MaxQueryBytes)

	if withDataset {
		c.executor, err = sandbox.New(&sandbox.Config{
			Path:         cfg.Dataset.Path,
			RowCap:       cfg.Dataset.RowCap,
			QueryTimeout: cfg.Dataset.QueryTimeout,
		})
		if err != nil {
			c.Close()
			return nil, fmt.Errorf("failed to open dataset sandbox: %w", err)
		}
		c.closers = append(c.closers, c.executor.Close)
	}

	return c, nil
}

// Close releases all opened resources in reverse open order.
func (c *core) Close() {
	for i := len(c.closers) - 1; i >= 0; i-- {
		_ = c.closers[i]()
	}
	c.closers = nil
}

// producerColumns is the query projection: the preferred reporting columns
// filtered to what the dataset table actually has. An empty result projects
// everything.
func (c *core) producerColumns(ctx context.Context, table string) []string {
	if c.executor == nil {
		return nil
	}
	have, err := c.executor.Columns(ctx, table)
	if err != nil {
		return nil
	}
	present := make(map[string]bool, len(have))
	for _, col := range have {
		present[col] = true
	}
	var cols []string
	for _, col := range query.DefaultPreferredColumns {
		if present[col] {
			cols = append(cols, col)
		}
	}
	return cols
}

// runner builds a pipeline runner for the given mode, wired to the shared
// stores and the sandbox.
func (c *core) runner(ctx context.Context, mode monitor.Mode) *monitor.Runner {
	table := c.cfg.Dataset.Table
	if mode == monitor.ModeLive {
		table = c.cfg.Dataset.LiveTable
	}
	producer := query.NewTemplateProducer(table, c.producerColumns(ctx, table))

	return monitor.NewRunner(&monitor.Config{
		Mode:       mode,
		BatchSize:  c.cfg.Pipeline.BatchSize,
		Workers:    c.cfg.Pipeline.Workers,
		SampleRows: c.cfg.Dataset.SampleRows,
	}, c.repo, producer, c.validator, c.executor, c.reports, c.ledger)
}
