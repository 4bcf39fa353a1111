package sandbox

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"time"

	_ "modernc.org/sqlite" // SQLite driver
)

var (
	// selectOnly re-confirms the read-query prefix independently of the
	// validator.
	selectOnly = regexp.MustCompile(`(?i)^\s*SELECT\b`)

	// hasTrailingLimit detects an existing LIMIT clause at the end of a
	// query, including the OFFSET and comma forms, so the row cap is not
	// appended twice.
	hasTrailingLimit = regexp.MustCompile(`(?i)\bLIMIT\s+\d+(?:\s*,\s*\d+|\s+OFFSET\s+\d+)?\s*;?\s*$`)

	// identPattern matches safe table identifiers.
	identPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)
)

// Config contains configuration for the sandboxed executor.
type Config struct {
	// Path is the dataset database file path. The file must already exist;
	// read-only mode never creates it.
	Path string

	// RowCap is the hard ceiling on rows materialized into memory per
	// query, independent of the true match count.
	// Default: 1000
	RowCap int

	// MaxOpenConns is the maximum number of concurrent reader connections.
	// Default: 8
	MaxOpenConns int

	// QueryTimeout bounds a single query execution.
	// Default: 30 seconds
	QueryTimeout time.Duration
}

// DefaultConfig returns the default executor configuration.
func DefaultConfig() *Config {
	return &Config{
		Path:         "data/transactions.db",
		RowCap:       1000,
		MaxOpenConns: 8,
		QueryTimeout: 30 * time.Second,
	}
}

// Result is the outcome of one sandboxed query execution.
type Result struct {
	// Count is the true match count, computed independently of the cap.
	Count int64 `json:"count"`

	// Columns is the result column order.
	Columns []string `json:"columns"`

	// Rows holds the materialized rows, at most RowCap of them.
	Rows []map[string]any `json:"rows"`

	// Elapsed is the wall-clock execution time.
	Elapsed time.Duration `json:"elapsed"`
}

// Executor runs validated queries against the read-only dataset handle.
// It is safe for concurrent use; the engine supports concurrent readers.
type Executor struct {
	db     *sql.DB
	config *Config
	logger *slog.Logger
}

// New opens the dataset in read-only mode and verifies the handle works.
// Opening fails if the dataset file does not exist.
func New(config *Config) (*Executor, error) {
	if config == nil {
		config = DefaultConfig()
	}
	if config.RowCap <= 0 {
		config.RowCap = 1000
	}
	if config.MaxOpenConns <= 0 {
		config.MaxOpenConns = 8
	}

	logger := slog.Default().With("component", "sandbox.executor")

	dsn := fmt.Sprintf("file:%s?mode=ro", config.Path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open dataset %q: %w", config.Path, err)
	}
	db.SetMaxOpenConns(config.MaxOpenConns)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to open dataset %q read-only: %w", config.Path, err)
	}

	logger.Info("dataset opened read-only",
		"path", config.Path,
		"row_cap", config.RowCap,
	)

	return &Executor{
		db:     db,
		config: config,
		logger: logger,
	}, nil
}

// RowCap returns the configured row ceiling.
func (e *Executor) RowCap() int {
	return e.config.RowCap
}

// Execute runs a validated SELECT query. The true match count is computed
// with an independent COUNT(*) wrapper; materialized rows are capped at
// RowCap by an appended LIMIT (when the query carries none) and again at
// scan time. Every execution failure comes back as *ExecError.
func (e *Executor) Execute(ctx context.Context, text string) (*Result, error) {
	if !selectOnly.MatchString(text) {
		return nil, NewExecError(text, ErrNotSelect)
	}

	if e.config.QueryTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.config.QueryTimeout)
		defer cancel()
	}

	started := time.Now()

	count, err := e.countMatches(ctx, text)
	if err != nil {
		return nil, NewExecError(text, err)
	}

	columns, rows, err := e.fetchCapped(ctx, text)
	if err != nil {
		return nil, NewExecError(text, err)
	}

	result := &Result{
		Count:   count,
		Columns: columns,
		Rows:    rows,
		Elapsed: time.Since(started),
	}

	e.logger.Debug("query executed",
		"count", result.Count,
		"materialized", len(result.Rows),
		"elapsed", result.Elapsed,
	)
	return result, nil
}

// countMatches wraps the query in SELECT COUNT(*) so the reported total is
// independent of the row cap.
func (e *Executor) countMatches(ctx context.Context, text string) (int64, error) {
	wrapped := fmt.Sprintf("SELECT COUNT(*) FROM (%s)", trimStatement(text))

	var count int64
	if err := e.db.QueryRowContext(ctx, wrapped).Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}

// fetchCapped materializes at most RowCap rows from the query.
func (e *Executor) fetchCapped(ctx context.Context, text string) ([]string, []map[string]any, error) {
	capped := trimStatement(text)
	if !hasTrailingLimit.MatchString(capped) {
		capped = fmt.Sprintf("%s\nLIMIT %d", capped, e.config.RowCap)
	}

	rows, err := e.db.QueryContext(ctx, capped)
	if err != nil {
		return nil, nil, err
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return nil, nil, err
	}

	var out []map[string]any
	for rows.Next() {
		if len(out) >= e.config.RowCap {
			break
		}

		values := make([]any, len(columns))
		pointers := make([]any, len(columns))
		for i := range values {
			pointers[i] = &values[i]
		}
		if err := rows.Scan(pointers...); err != nil {
			return nil, nil, err
		}

		row := make(map[string]any, len(columns))
		for i, column := range columns {
			row[column] = normalizeValue(values[i])
		}
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, nil, err
	}

	return columns, out, nil
}

// TableCount returns the row count of a table. The identifier is checked
// before interpolation because table names cannot be bound parameters.
func (e *Executor) TableCount(ctx context.Context, table string) (int64, error) {
	if !identPattern.MatchString(table) {
		return 0, NewExecError(table, fmt.Errorf("invalid table identifier %q", table))
	}

	var count int64
	err := e.db.QueryRowContext(ctx, fmt.Sprintf("SELECT COUNT(*) FROM %s", table)).Scan(&count)
	if err != nil {
		return 0, NewExecError(table, err)
	}
	return count, nil
}

// Columns returns the column names of a table in schema order, for
// filtering a preferred projection down to what actually exists.
func (e *Executor) Columns(ctx context.Context, table string) ([]string, error) {
	if !identPattern.MatchString(table) {
		return nil, NewExecError(table, fmt.Errorf("invalid table identifier %q", table))
	}

	rows, err := e.db.QueryContext(ctx,
		"SELECT name FROM pragma_table_info(?) ORDER BY cid", table)
	if err != nil {
		return nil, NewExecError(table, err)
	}
	defer rows.Close()

	var columns []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, NewExecError(table, err)
		}
		columns = append(columns, name)
	}
	if err := rows.Err(); err != nil {
		return nil, NewExecError(table, err)
	}
	return columns, nil
}

// Close closes the dataset handle.
func (e *Executor) Close() error {
	return e.db.Close()
}

// trimStatement removes trailing whitespace and statement separators so the
// text can be wrapped or extended safely.
func trimStatement(text string) string {
	return strings.TrimRight(strings.TrimSpace(text), "; \n\t")
}

// normalizeValue converts driver-specific scan types into plain JSON-ready
// values.
func normalizeValue(v any) any {
	switch n := v.(type) {
	case []byte:
		return string(n)
	case time.Time:
		return n.UTC().Format(time.RFC3339)
	default:
		return v
	}
}
