package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	// Global flags
	cfgFile string
	verbose bool
)

var rootCmd = &cobra.Command{
	Use:   "warden",
	Short: "Warden - compliance monitoring with an auditable trust boundary",
	Long: `Warden converts policy rules into read-only data-access queries and runs
them against a transactional dataset without ever allowing a write, a
multi-statement injection, or an unbounded result set.

Every pipeline decision - rule ingestion, snapshot creation, blocked
queries, execution failures, completed runs, and analyst review actions -
is recorded in a strictly-ordered, append-only audit ledger.`,
	Version: Version,
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	// Global persistent flags (available to all subcommands)
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "config.yaml", "config file path")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
}
