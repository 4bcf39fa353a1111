package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"warden-hq/warden/pkg/cli"
	"warden-hq/warden/pkg/ingest"
)

var ingestFlags struct {
	dir string
}

var ingestCmd = &cobra.Command{
	Use:   "ingest [files...]",
	Short: "Ingest rule descriptor files into the repository",
	Long: `Ingest one or more JSON rule descriptor files.

Each file is parsed and its rules are validated, fingerprinted, and added
to the live rule set. Duplicates (by content fingerprint) are skipped as
informational, structurally invalid rules are rejected per rule, and a
pre-mutation snapshot of the rule set is written before any change.

Examples:
  # Ingest specific files
  warden ingest rules/aml.json rules/sanctions.json

  # Scan a drop directory once
  warden ingest --dir data/rules/`,
	RunE: runIngest,
}

func init() {
	rootCmd.AddCommand(ingestCmd)

	ingestCmd.Flags().StringVarP(&ingestFlags.dir, "dir", "d", "", "scan a directory of *.json rule files once")
}

func runIngest(cmd *cobra.Command, args []string) error {
	if len(args) == 0 && ingestFlags.dir == "" {
		return cli.NewUsageError("ingest requires rule files or --dir")
	}

	cfg, err := loadWardenConfig()
	if err != nil {
		return cli.NewCommandError("ingest", err)
	}
	if err := setupLogging(cfg); err != nil {
		return cli.NewCommandError("ingest", err)
	}

	core, err := openCore(cfg, false)
	if err != nil {
		return cli.NewCommandError("ingest", err)
	}
	defer core.Close()

	ctx, stop := cli.SignalContext()
	defer stop()

	if ingestFlags.dir != "" {
		watcher, err := ingest.NewWatcher(&ingest.Config{Dir: ingestFlags.dir}, core.repo)
		if err != nil {
			return cli.NewCommandError("ingest", err)
		}
		defer func() { _ = watcher.Stop() }()

		for _, result := range watcher.ScanOnce(ctx) {
			printFileResult(result)
		}
		return nil
	}

	var failed bool
	for _, path := range args {
		data, err := os.ReadFile(path)
		if err != nil {
			printFileResult(ingest.FileResult{Path: path, Err: err})
			failed = true
			continue
		}
		candidates, err := ingest.ParseRuleFile(data)
		if err != nil {
			printFileResult(ingest.FileResult{Path: path, Err: err})
			failed = true
			continue
		}
		result, err := core.repo.Ingest(ctx, candidates)
		if err != nil {
			// Only a ledger or repository storage fault lands here; it is
			// fatal to the whole ingest, not a per-rule problem.
			return cli.NewCommandError("ingest", err)
		}
		printFileResult(ingest.FileResult{
			Path:       path,
			Accepted:   len(result.Accepted),
			Duplicates: len(result.Duplicates),
			Rejected:   len(result.Rejected),
		})
		for _, ruleErr := range result.Rejected {
			fmt.Printf("    rejected: %v\n", ruleErr)
		}
	}

	if failed {
		return cli.NewCommandError("ingest", fmt.Errorf("some files could not be ingested"))
	}
	return nil
}

func printFileResult(result ingest.FileResult) {
	if result.Err != nil {
		fmt.Printf("✗ %s: %v\n", result.Path, result.Err)
		return
	}
	fmt.Printf("✓ %s: %d accepted, %d duplicates, %d rejected\n",
		result.Path, result.Accepted, result.Duplicates, result.Rejected)
}
