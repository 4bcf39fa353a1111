package main

import (
	"database/sql"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"regexp"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	_ "modernc.org/sqlite" // SQLite driver

	"warden-hq/warden/pkg/cli"
)

// seedIdentPattern matches safe table and column identifiers.
var seedIdentPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

var seedFlags struct {
	csvPath string
	table   string
	replace bool
}

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Load a transactions CSV into the dataset",
	Long: `Load a CSV file into the dataset database.

This is the only write path to the dataset and it lives outside the
monitoring trust boundary: the pipeline itself always opens the dataset
read-only. The first CSV row must be a header; column types are inferred
from the data. An empty clone of the table is created as the live feed
table if it does not exist yet.

Examples:
  # Load into the configured transactions table
  warden seed --csv transactions.csv

  # Replace an existing table
  warden seed --csv transactions.csv --replace`,
	RunE: runSeed,
}

func init() {
	rootCmd.AddCommand(seedCmd)

	seedCmd.Flags().StringVar(&seedFlags.csvPath, "csv", "", "CSV file to load")
	seedCmd.Flags().StringVarP(&seedFlags.table, "table", "t", "", "target table (default: configured dataset table)")
	seedCmd.Flags().BoolVar(&seedFlags.replace, "replace", false, "drop and recreate the table if it exists")
	_ = seedCmd.MarkFlagRequired("csv")
}

func runSeed(cmd *cobra.Command, args []string) error {
	cfg, err := loadWardenConfig()
	if err != nil {
		return cli.NewCommandError("seed", err)
	}
	if err := setupLogging(cfg); err != nil {
		return cli.NewCommandError("seed", err)
	}

	table := seedFlags.table
	if table == "" {
		table = cfg.Dataset.Table
	}
	if !seedIdentPattern.MatchString(table) {
		return cli.NewUsageError("invalid table name %q", table)
	}

	file, err := os.Open(seedFlags.csvPath)
	if err != nil {
		return cli.NewCommandError("seed", err)
	}
	defer file.Close()

	reader := csv.NewReader(file)
	header, err := reader.Read()
	if err != nil {
		return cli.NewCommandError("seed", fmt.Errorf("failed to read CSV header: %w", err))
	}
	for _, col := range header {
		if !seedIdentPattern.MatchString(col) {
			return cli.NewCommandError("seed", fmt.Errorf("unsafe column name %q in CSV header", col))
		}
	}

	db, err := sql.Open("sqlite", "file:"+cfg.Dataset.Path)
	if err != nil {
		return cli.NewCommandError("seed", err)
	}
	defer db.Close()

	if seedFlags.replace {
		if _, err := db.Exec("DROP TABLE IF EXISTS " + table); err != nil {
			return cli.NewCommandError("seed", err)
		}
	}

	// Buffer the rows: types are inferred from the data before the table
	// is created. Dataset CSVs are small enough to hold in memory.
	var rows [][]string
	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return cli.NewCommandError("seed", fmt.Errorf("failed to read CSV: %w", err))
		}
		if len(row) != len(header) {
			return cli.NewCommandError("seed",
				fmt.Errorf("row %d has %d fields, header has %d", len(rows)+2, len(row), len(header)))
		}
		rows = append(rows, row)
	}

	types := inferColumnTypes(header, rows)
	columns := make([]string, len(header))
	for i, col := range header {
		columns[i] = col + " " + types[i]
	}
	createStmt := fmt.Sprintf("CREATE TABLE %s (%s)", table, strings.Join(columns, ", "))
	if _, err := db.Exec(createStmt); err != nil {
		return cli.NewCommandError("seed", err)
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(header)), ", ")
	insertStmt := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		table, strings.Join(header, ", "), placeholders)

	tx, err := db.Begin()
	if err != nil {
		return cli.NewCommandError("seed", err)
	}
	stmt, err := tx.Prepare(insertStmt)
	if err != nil {
		_ = tx.Rollback()
		return cli.NewCommandError("seed", err)
	}

	progress := cli.NewProgress("loading "+table, int64(len(rows)), nil)
	for i, row := range rows {
		values := make([]any, len(row))
		for j, raw := range row {
			values[j] = convertValue(raw, types[j])
		}
		if _, err := stmt.Exec(values...); err != nil {
			_ = tx.Rollback()
			return cli.NewCommandError("seed", fmt.Errorf("failed to insert row %d: %w", i+2, err))
		}
		if (i+1)%1000 == 0 {
			progress.Update(int64(i + 1))
		}
	}
	if err := tx.Commit(); err != nil {
		return cli.NewCommandError("seed", err)
	}
	progress.Finish()

	// Empty clone for the live feed, so the watchdog has a table to count
	// even before the feed starts.
	liveStmt := fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s AS SELECT * FROM %s WHERE 0",
		cfg.Dataset.LiveTable, table)
	if _, err := db.Exec(liveStmt); err != nil {
		return cli.NewCommandError("seed", err)
	}

	fmt.Printf("✓ Loaded %d rows into %s (%s)\n", len(rows), table, cfg.Dataset.Path)
	return nil
}

// inferColumnTypes picks an SQLite type per column: INTEGER when every
// non-empty value parses as an integer, REAL when every non-empty value is
// numeric, TEXT otherwise. A column with no values is TEXT.
func inferColumnTypes(header []string, rows [][]string) []string {
	types := make([]string, len(header))
	for col := range header {
		isInteger, isReal, seen := true, true, false
		for _, row := range rows {
			raw := strings.TrimSpace(row[col])
			if raw == "" {
				continue
			}
			seen = true
			if _, err := strconv.ParseInt(raw, 10, 64); err != nil {
				isInteger = false
			}
			if _, err := strconv.ParseFloat(raw, 64); err != nil {
				isReal = false
			}
			if !isInteger && !isReal {
				break
			}
		}
		switch {
		case seen && isInteger:
			types[col] = "INTEGER"
		case seen && isReal:
			types[col] = "REAL"
		default:
			types[col] = "TEXT"
		}
	}
	return types
}

// convertValue turns a CSV field into the Go value matching the inferred
// column type. Empty fields become NULL.
func convertValue(raw, columnType string) any {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	switch columnType {
	case "INTEGER":
		if n, err := strconv.ParseInt(raw, 10, 64); err == nil {
			return n
		}
	case "REAL":
		if f, err := strconv.ParseFloat(raw, 64); err == nil {
			return f
		}
	}
	return raw
}
