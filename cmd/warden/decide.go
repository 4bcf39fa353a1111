package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"warden-hq/warden/pkg/cli"
	"warden-hq/warden/pkg/hitl"
)

var decideFlags struct {
	key     string
	state   string
	analyst string
	notes   string
}

var decideCmd = &cobra.Command{
	Use:   "decide",
	Short: "Record an analyst decision on a violation",
	Long: `Record a review decision for a violation key.

Any transition is allowed, including re-opening a confirmed finding back
to PENDING. The decision store holds only the latest state; the full
history, including the prior state of every transition, lives in the
audit ledger.

Examples:
  warden decide --key RULE-7 --state CONFIRMED --analyst avu
  warden decide --key RULE-7 --state DISMISSED --analyst avu --notes "test data"`,
	RunE: runDecide,
}

func init() {
	rootCmd.AddCommand(decideCmd)

	decideCmd.Flags().StringVarP(&decideFlags.key, "key", "k", "", "violation key (rule identifier)")
	decideCmd.Flags().StringVarP(&decideFlags.state, "state", "s", "", "new state (PENDING, CONFIRMED, DISMISSED, ESCALATED)")
	decideCmd.Flags().StringVarP(&decideFlags.analyst, "analyst", "a", "", "analyst identifier")
	decideCmd.Flags().StringVar(&decideFlags.notes, "notes", "", "free-text notes")
	_ = decideCmd.MarkFlagRequired("key")
	_ = decideCmd.MarkFlagRequired("state")
	_ = decideCmd.MarkFlagRequired("analyst")
}

func runDecide(cmd *cobra.Command, args []string) error {
	state := hitl.State(strings.ToUpper(strings.TrimSpace(decideFlags.state)))
	if !state.IsValid() {
		return cli.NewUsageError("invalid state %q: must be one of %v",
			decideFlags.state, hitl.ValidStates())
	}

	cfg, err := loadWardenConfig()
	if err != nil {
		return cli.NewCommandError("decide", err)
	}
	if err := setupLogging(cfg); err != nil {
		return cli.NewCommandError("decide", err)
	}

	core, err := openCore(cfg, false)
	if err != nil {
		return cli.NewCommandError("decide", err)
	}
	defer core.Close()

	ctx, stop := cli.SignalContext()
	defer stop()

	prior, err := core.decisions.Current(ctx, decideFlags.key)
	if err != nil {
		return cli.NewCommandError("decide", err)
	}

	decision, err := core.decisions.Decide(ctx, decideFlags.key, state,
		decideFlags.analyst, decideFlags.notes)
	if err != nil {
		return cli.NewCommandError("decide", err)
	}

	fmt.Printf("✓ %s: %s → %s (by %s at %s)\n",
		decision.Key, prior, decision.State, decision.Analyst,
		decision.UpdatedAt.Format("2006-01-02 15:04:05"))
	return nil
}
