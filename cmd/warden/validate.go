package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"warden-hq/warden/pkg/cli"
	"warden-hq/warden/pkg/config"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate the configuration file",
	Long: `Load the configuration file, apply defaults and environment overrides,
and report any validation errors.

Examples:
  warden validate
  warden validate --config /etc/warden/config.yaml`,
	RunE: runValidate,
}

func init() {
	rootCmd.AddCommand(validateCmd)
}

func runValidate(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadConfigWithEnvOverrides(cfgFile)
	if err != nil {
		return cli.NewCommandError("validate", err)
	}

	fmt.Printf("✓ %s is valid\n", cfgFile)
	fmt.Printf("  server:   %s\n", cfg.Server.ListenAddress)
	fmt.Printf("  dataset:  %s (table %s, row cap %d)\n",
		cfg.Dataset.Path, cfg.Dataset.Table, cfg.Dataset.RowCap)
	fmt.Printf("  state:    %s\n", cfg.State.Path)
	fmt.Printf("  ledger:   %s\n", cfg.Ledger.Path)
	fmt.Printf("  pipeline: batch %d, workers %d\n",
		cfg.Pipeline.BatchSize, cfg.Pipeline.Workers)
	if cfg.Ingest.Watch {
		fmt.Printf("  ingest:   watching %s\n", cfg.Ingest.WatchDir)
	}
	if cfg.Live.Enabled {
		fmt.Printf("  live:     %s\n", cfg.Live.Schedule)
	}
	return nil
}
