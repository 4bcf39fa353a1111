package main

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	_ "modernc.org/sqlite" // SQLite driver

	"warden-hq/warden/pkg/cli"
)

var feedFlags struct {
	batch    int
	interval time.Duration
	count    int
}

var feedCmd = &cobra.Command{
	Use:   "feed",
	Short: "Simulate a live transaction feed",
	Long: `Copy random rows from the main transaction table into the live feed
table on an interval, so the live watchdog has growth to detect.

Like seed, this writes to the dataset from outside the trust boundary;
the monitoring pipeline itself never holds a writable handle.

Examples:
  # Feed 10 rows every 5 seconds until interrupted
  warden feed

  # Feed 3 batches of 25 rows, 2 seconds apart
  warden feed --batch 25 --interval 2s --count 3`,
	RunE: runFeed,
}

func init() {
	rootCmd.AddCommand(feedCmd)

	feedCmd.Flags().IntVarP(&feedFlags.batch, "batch", "b", 10, "rows copied per batch")
	feedCmd.Flags().DurationVarP(&feedFlags.interval, "interval", "i", 5*time.Second, "delay between batches")
	feedCmd.Flags().IntVarP(&feedFlags.count, "count", "n", 0, "number of batches (0 = until interrupted)")
}

func runFeed(cmd *cobra.Command, args []string) error {
	if feedFlags.batch <= 0 {
		return cli.NewUsageError("--batch must be positive")
	}

	cfg, err := loadWardenConfig()
	if err != nil {
		return cli.NewCommandError("feed", err)
	}
	if err := setupLogging(cfg); err != nil {
		return cli.NewCommandError("feed", err)
	}

	if !seedIdentPattern.MatchString(cfg.Dataset.Table) || !seedIdentPattern.MatchString(cfg.Dataset.LiveTable) {
		return cli.NewCommandError("feed", fmt.Errorf("unsafe table name in dataset config"))
	}

	db, err := sql.Open("sqlite", "file:"+cfg.Dataset.Path)
	if err != nil {
		return cli.NewCommandError("feed", err)
	}
	defer db.Close()

	cloneStmt := fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s AS SELECT * FROM %s WHERE 0",
		cfg.Dataset.LiveTable, cfg.Dataset.Table)
	if _, err := db.Exec(cloneStmt); err != nil {
		return cli.NewCommandError("feed", err)
	}

	copyStmt := fmt.Sprintf("INSERT INTO %s SELECT * FROM %s ORDER BY RANDOM() LIMIT ?",
		cfg.Dataset.LiveTable, cfg.Dataset.Table)

	ctx, stop := cli.SignalContext()
	defer stop()

	fmt.Printf("Feeding %s → %s: %d rows every %s\n",
		cfg.Dataset.Table, cfg.Dataset.LiveTable, feedFlags.batch, feedFlags.interval)

	ticker := time.NewTicker(feedFlags.interval)
	defer ticker.Stop()

	var total int64
	for batches := 0; feedFlags.count == 0 || batches < feedFlags.count; batches++ {
		result, err := db.ExecContext(ctx, copyStmt, feedFlags.batch)
		if err != nil {
			return cli.NewCommandError("feed", err)
		}
		copied, _ := result.RowsAffected()
		total += copied
		fmt.Printf("  batch %d: copied %d rows (total %d)\n", batches+1, copied, total)

		if feedFlags.count != 0 && batches+1 >= feedFlags.count {
			break
		}
		select {
		case <-ctx.Done():
			fmt.Printf("✓ Interrupted after %d rows\n", total)
			return nil
		case <-ticker.C:
		}
	}

	fmt.Printf("✓ Fed %d rows\n", total)
	return nil
}
