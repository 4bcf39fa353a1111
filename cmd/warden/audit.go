package main

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"warden-hq/warden/pkg/cli"
	"warden-hq/warden/pkg/ledger"
)

var auditFlags struct {
	kinds  []string
	rule   string
	since  string
	until  string
	limit  int
	format string
}

var auditCmd = &cobra.Command{
	Use:   "audit",
	Short: "Query the append-only audit ledger",
	Long: `Query audit events, in ascending sequence order.

The ledger records every rule ingestion, snapshot, blocked query,
execution failure, pipeline run, and review decision. Events are immutable
and totally ordered by sequence number; this command only reads.

Examples:
  # The last events of any kind
  warden audit --limit 20

  # Blocked queries for one rule
  warden audit --kind QUERY_BLOCKED --rule RULE-7

  # Review decisions in a time window
  warden audit --kind HITL_DECISION --since 2026-08-01T00:00:00Z --until 2026-08-24T00:00:00Z`,
	RunE: runAudit,
}

func init() {
	rootCmd.AddCommand(auditCmd)

	auditCmd.Flags().StringSliceVarP(&auditFlags.kinds, "kind", "k", nil, "filter by event kind (repeatable)")
	auditCmd.Flags().StringVarP(&auditFlags.rule, "rule", "r", "", "filter by rule identifier")
	auditCmd.Flags().StringVar(&auditFlags.since, "since", "", "events at or after this RFC 3339 time")
	auditCmd.Flags().StringVar(&auditFlags.until, "until", "", "events at or before this RFC 3339 time")
	auditCmd.Flags().IntVarP(&auditFlags.limit, "limit", "n", 100, "maximum events to return (0 = no cap)")
	auditCmd.Flags().StringVarP(&auditFlags.format, "format", "f", "text", "output format (text, json)")
}

func runAudit(cmd *cobra.Command, args []string) error {
	filter, err := buildAuditQuery(auditFlags.kinds, auditFlags.rule,
		auditFlags.since, auditFlags.until, auditFlags.limit)
	if err != nil {
		return cli.NewUsageError("%v", err)
	}

	cfg, err := loadWardenConfig()
	if err != nil {
		return cli.NewCommandError("audit", err)
	}
	if err := setupLogging(cfg); err != nil {
		return cli.NewCommandError("audit", err)
	}

	core, err := openCore(cfg, false)
	if err != nil {
		return cli.NewCommandError("audit", err)
	}
	defer core.Close()

	ctx, stop := cli.SignalContext()
	defer stop()

	events, err := core.ledger.Query(ctx, filter)
	if err != nil {
		return cli.NewCommandError("audit", err)
	}

	if cli.OutputFormat(auditFlags.format) == cli.FormatJSON {
		return cli.NewFormatter(cli.FormatJSON).FormatTo(os.Stdout, events)
	}

	for _, event := range events {
		line := fmt.Sprintf("#%d %s %s", event.Seq,
			event.Timestamp.Format(time.RFC3339), event.Kind)
		if event.RuleID != "" {
			line += " rule=" + event.RuleID
		}
		if len(event.Payload) > 0 {
			line += " " + string(event.Payload)
		}
		fmt.Println(line)
	}
	fmt.Printf("%d events\n", len(events))
	return nil
}

// buildAuditQuery converts the flag values into a ledger query, rejecting
// unknown event kinds and malformed timestamps up front.
func buildAuditQuery(kinds []string, rule, since, until string, limit int) (*ledger.Query, error) {
	filter := &ledger.Query{RuleID: rule, Limit: limit}

	for _, raw := range kinds {
		kind, err := parseEventKind(raw)
		if err != nil {
			return nil, err
		}
		filter.Kinds = append(filter.Kinds, kind)
	}

	if since != "" {
		t, err := time.Parse(time.RFC3339, since)
		if err != nil {
			return nil, fmt.Errorf("invalid --since %q: must be RFC 3339", since)
		}
		filter.Since = &t
	}
	if until != "" {
		t, err := time.Parse(time.RFC3339, until)
		if err != nil {
			return nil, fmt.Errorf("invalid --until %q: must be RFC 3339", until)
		}
		filter.Until = &t
	}
	return filter, nil
}

// parseEventKind matches a flag value against the recorded event kinds,
// case-insensitively.
func parseEventKind(raw string) (ledger.EventKind, error) {
	want := strings.ToUpper(strings.TrimSpace(raw))
	for _, kind := range ledger.Kinds() {
		if string(kind) == want {
			return kind, nil
		}
	}
	return "", fmt.Errorf("unknown event kind %q", raw)
}
