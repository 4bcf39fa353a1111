package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"warden-hq/warden/pkg/cli"
	"warden-hq/warden/pkg/monitor"
)

var checkFlags struct {
	live   bool
	format string
}

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Run one compliance pass without starting the server",
	Long: `Run a single monitoring pipeline pass over the current rule set.

Each rule is rendered into a candidate query, validated, and executed in
the read-only sandbox; the resulting violation report replaces the stored
report for the selected mode. Blocked queries and execution errors are
recorded per rule and never abort the pass.

Examples:
  # Check the main transaction table
  warden check

  # Check the live feed table
  warden check --live

  # Print the full report as JSON
  warden check --format json`,
	RunE: runCheck,
}

func init() {
	rootCmd.AddCommand(checkCmd)

	checkCmd.Flags().BoolVar(&checkFlags.live, "live", false, "check the live feed table instead of the main table")
	checkCmd.Flags().StringVarP(&checkFlags.format, "format", "f", "text", "output format (text, json)")
}

func runCheck(cmd *cobra.Command, args []string) error {
	cfg, err := loadWardenConfig()
	if err != nil {
		return cli.NewCommandError("check", err)
	}
	if err := setupLogging(cfg); err != nil {
		return cli.NewCommandError("check", err)
	}

	core, err := openCore(cfg, true)
	if err != nil {
		return cli.NewCommandError("check", err)
	}
	defer core.Close()

	ctx, stop := cli.SignalContext()
	defer stop()

	mode := monitor.ModeMain
	if checkFlags.live {
		mode = monitor.ModeLive
	}

	report, err := core.runner(ctx, mode).Run(ctx)
	if err != nil {
		return cli.NewCommandError("check", err)
	}

	if cli.OutputFormat(checkFlags.format) == cli.FormatJSON {
		return cli.NewFormatter(cli.FormatJSON).FormatTo(os.Stdout, report)
	}

	printReport(report)
	return nil
}

func printReport(report *monitor.Report) {
	fmt.Printf("Run %s (%s mode)\n", report.RunID, report.Mode)
	fmt.Printf("Checked %d rules in %s\n",
		report.RulesChecked, report.FinishedAt.Sub(report.StartedAt).Round(time.Millisecond))
	fmt.Printf("  violations: %d (rows: %d)\n", report.Violations, report.TotalRows)
	fmt.Printf("  blocked:    %d\n", report.Blocked)
	fmt.Printf("  errors:     %d\n", report.Errors)

	for _, record := range report.Records {
		switch record.Status {
		case monitor.StatusSuccess:
			if record.RowCount > 0 {
				fmt.Printf("  [VIOLATION] %s: %d rows\n", record.RuleID, record.RowCount)
			}
		case monitor.StatusBlocked:
			fmt.Printf("  [BLOCKED]   %s: %s\n", record.RuleID, record.Reason)
		case monitor.StatusError:
			fmt.Printf("  [ERROR]     %s: %s\n", record.RuleID, record.Reason)
		}
	}
}
