package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"warden-hq/warden/pkg/cli"
	"warden-hq/warden/pkg/ingest"
	"warden-hq/warden/pkg/monitor"
	"warden-hq/warden/pkg/server"
	"warden-hq/warden/pkg/telemetry/metrics"
)

var runFlags struct {
	listenAddress string
	logLevel      string
	dryRun        bool
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Start the Warden API server and monitoring pipeline",
	Long: `Start the Warden API server with the specified configuration.

The server exposes the violation reports, the rule repository, the audit
ledger, and the review-decision endpoints over HTTP, and triggers
monitoring pipeline runs on demand. When configured, it also starts the
rule-drop directory watcher and the live-table watchdog.

Examples:
  # Start with default config
  warden run

  # Start with custom config
  warden run --config /etc/warden/config.yaml

  # Override listen address
  warden run --listen 0.0.0.0:8600

  # Validate config without starting the server
  warden run --dry-run`,
	RunE: runServer,
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().StringVarP(&runFlags.listenAddress, "listen", "l", "", "override listen address")
	runCmd.Flags().StringVar(&runFlags.logLevel, "log-level", "", "override log level (debug, info, warn, error)")
	runCmd.Flags().BoolVar(&runFlags.dryRun, "dry-run", false, "validate config without starting the server")
}

func runServer(cmd *cobra.Command, args []string) error {
	cfg, err := loadWardenConfig()
	if err != nil {
		return cli.NewCommandError("run", err)
	}

	// Apply flag overrides
	if runFlags.listenAddress != "" {
		cfg.Server.ListenAddress = runFlags.listenAddress
	}
	if runFlags.logLevel != "" {
		cfg.Telemetry.Logging.Level = runFlags.logLevel
	}

	if err := setupLogging(cfg); err != nil {
		return cli.NewCommandError("run", err)
	}

	if runFlags.dryRun {
		fmt.Println("✓ Configuration valid")
		return nil
	}

	fmt.Printf("Warden v%s\n", Version)
	fmt.Printf("Loading configuration from: %s\n", cfgFile)

	// Everything the server serves shares one core: single ledger writer,
	// single state database, single read-only dataset handle.
	core, err := openCore(cfg, true)
	if err != nil {
		return cli.NewCommandError("run", err)
	}
	defer core.Close()

	fmt.Println("✓ Audit ledger opened")
	fmt.Println("✓ State stores opened")
	fmt.Printf("✓ Dataset opened read-only (%s)\n", cfg.Dataset.Path)

	ctx, stop := cli.SignalContext()
	defer stop()

	mainRunner := core.runner(ctx, monitor.ModeMain)
	liveRunner := core.runner(ctx, monitor.ModeLive)

	// Metrics are optional; the server mounts the exposition handler only
	// when a collector is wired.
	var collector *metrics.Collector
	if cfg.Telemetry.Metrics.Enabled {
		collector = metrics.NewCollector(&cfg.Telemetry.Metrics, nil)
		collector.Registry().MustRegister(
			metrics.NewStateCollector(core.ledger, core.decisions, &cfg.Telemetry.Metrics))
	}

	srv := server.NewServer(&cfg.Server, &server.Deps{
		Rules:      core.repo,
		Reports:    core.reports,
		Ledger:     core.ledger,
		Decisions:  core.decisions,
		Runner:     mainRunner,
		LiveRunner: liveRunner,
		Metrics:    collector,
		Version:    Version,
	})

	// Rule-drop directory watcher
	if cfg.Ingest.Watch {
		var ingestor ingest.Ingestor = core.repo
		if collector != nil {
			ingestor = ingest.WithMetrics(core.repo, collector)
		}
		watcher, err := ingest.NewWatcher(&ingest.Config{
			Dir:           cfg.Ingest.WatchDir,
			DebounceDelay: cfg.Ingest.DebounceDelay,
		}, ingestor)
		if err != nil {
			return cli.NewCommandError("run", err)
		}
		go func() {
			if err := watcher.Run(ctx); err != nil && ctx.Err() == nil {
				slog.Error("rule watcher stopped", "error", err)
			}
		}()
		defer func() { _ = watcher.Stop() }()
		fmt.Printf("✓ Watching %s for rule files\n", cfg.Ingest.WatchDir)
	}

	// Live-table watchdog, sharing the server's single-flight run slot
	if cfg.Live.Enabled {
		watchdog := monitor.NewWatcher(&monitor.WatcherConfig{
			Schedule: cfg.Live.Schedule,
			Table:    cfg.Dataset.LiveTable,
		}, core.executor, func(runCtx context.Context) (*monitor.Report, error) {
			return srv.Runs().RunAndObserve(runCtx, liveRunner)
		})
		if err := watchdog.Start(ctx); err != nil {
			return cli.NewCommandError("run", err)
		}
		defer watchdog.Stop()
		fmt.Printf("✓ Live watchdog started (%s)\n", cfg.Live.Schedule)
	}

	fmt.Println()
	fmt.Printf("✓ Server listening on %s\n", cfg.Server.ListenAddress)
	fmt.Printf("✓ Health endpoint: http://%s/api/health\n", cfg.Server.ListenAddress)
	if collector != nil {
		fmt.Printf("✓ Metrics endpoint: http://%s%s\n", cfg.Server.ListenAddress, cfg.Telemetry.Metrics.Path)
	}
	fmt.Println("\nPress Ctrl+C to stop")

	// Start blocks until the signal context is canceled, then shuts down
	// gracefully within the configured timeout.
	if err := srv.Start(ctx); err != nil {
		return cli.NewCommandError("run", err)
	}

	fmt.Println("✓ Server stopped")
	return nil
}
