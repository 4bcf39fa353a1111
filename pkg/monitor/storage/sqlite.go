package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"warden-hq/warden/pkg/monitor"
)

// SQLiteConfig contains configuration for the SQLite report storage
// backend.
type SQLiteConfig struct {
	// Path is the database file path. The report tables may share a file
	// with other state tables.
	Path string

	// MaxOpenConns is the maximum number of open connections to the database.
	// Default: 10
	MaxOpenConns int

	// MaxIdleConns is the maximum number of idle connections.
	// Default: 5
	MaxIdleConns int

	// WALMode enables Write-Ahead Logging mode for better concurrency.
	// Default: true
	WALMode bool

	// BusyTimeout is the duration to wait when the database is locked.
	// Default: 5 seconds
	BusyTimeout time.Duration
}

// DefaultSQLiteConfig returns the default SQLite configuration.
func DefaultSQLiteConfig() *SQLiteConfig {
	return &SQLiteConfig{
		Path:         "data/warden.db",
		MaxOpenConns: 10,
		MaxIdleConns: 5,
		WALMode:      true,
		BusyTimeout:  5 * time.Second,
	}
}

// SQLiteStorage implements the monitor.Storage interface using SQLite.
type SQLiteStorage struct {
	db     *sql.DB
	config *SQLiteConfig
	logger *slog.Logger
}

// NewSQLiteStorage creates a new SQLite report storage backend.
// It initializes the database schema and enables WAL mode if configured.
func NewSQLiteStorage(config *SQLiteConfig) (*SQLiteStorage, error) {
	if config == nil {
		config = DefaultSQLiteConfig()
	}

	logger := slog.Default().With("component", "monitor.storage.sqlite")

	db, err := sql.Open("sqlite3", config.Path)
	if err != nil {
		return nil, monitor.NewStorageError("sqlite", "open", err)
	}

	db.SetMaxOpenConns(config.MaxOpenConns)
	db.SetMaxIdleConns(config.MaxIdleConns)

	s := &SQLiteStorage{
		db:     db,
		config: config,
		logger: logger,
	}

	if err := s.initialize(); err != nil {
		db.Close()
		return nil, err
	}

	logger.Info("SQLite report storage initialized",
		"path", config.Path,
		"wal_mode", config.WALMode,
	)

	return s, nil
}

// initialize sets up the database schema and enables WAL mode.
func (s *SQLiteStorage) initialize() error {
	if s.config.WALMode {
		if _, err := s.db.Exec("PRAGMA journal_mode=WAL;"); err != nil {
			return monitor.NewStorageError("sqlite", "enable_wal", err)
		}
	}

	busyTimeoutMs := s.config.BusyTimeout.Milliseconds()
	if _, err := s.db.Exec(fmt.Sprintf("PRAGMA busy_timeout=%d;", busyTimeoutMs)); err != nil {
		return monitor.NewStorageError("sqlite", "set_busy_timeout", err)
	}

	if _, err := s.db.Exec(Schema); err != nil {
		return monitor.NewStorageError("sqlite", "create_schema", err)
	}

	if _, err := s.db.Exec(InsertSchemaVersion, SchemaVersion); err != nil {
		return monitor.NewStorageError("sqlite", "insert_schema_version", err)
	}

	var version int
	err := s.db.QueryRow(GetSchemaVersion).Scan(&version)
	if err != nil && err != sql.ErrNoRows {
		return monitor.NewStorageError("sqlite", "get_schema_version", err)
	}
	if version != SchemaVersion {
		return monitor.NewStorageError("sqlite", "schema_version_mismatch",
			fmt.Errorf("expected schema version %d, got %d", SchemaVersion, version))
	}

	return nil
}

// recordTable maps a mode to its record table. The two names are fixed
// by the schema; the table name is never built from caller input.
func recordTable(mode monitor.Mode) string {
	if mode == monitor.ModeLive {
		return "violations_live"
	}
	return "violations"
}

// ReplaceReport replaces the stored report for the report's mode in a
// single transaction: the summary row is upserted and the record table
// is rewritten from scratch.
func (s *SQLiteStorage) ReplaceReport(ctx context.Context, report *monitor.Report) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return monitor.NewStorageError("sqlite", "begin_replace_report", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO violation_reports (mode, run_id, started_at, finished_at, rules_checked, violations, blocked, errors, total_rows)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(mode) DO UPDATE SET
			run_id = excluded.run_id,
			started_at = excluded.started_at,
			finished_at = excluded.finished_at,
			rules_checked = excluded.rules_checked,
			violations = excluded.violations,
			blocked = excluded.blocked,
			errors = excluded.errors,
			total_rows = excluded.total_rows
	`, string(report.Mode), report.RunID, report.StartedAt, report.FinishedAt,
		report.RulesChecked, report.Violations, report.Blocked, report.Errors, report.TotalRows)
	if err != nil {
		return monitor.NewStorageError("sqlite", "upsert_report", err)
	}

	table := recordTable(report.Mode)
	if _, err := tx.ExecContext(ctx, fmt.Sprintf("DELETE FROM %s", table)); err != nil {
		return monitor.NewStorageError("sqlite", "clear_records", err)
	}

	insert := fmt.Sprintf(`
		INSERT INTO %s (position, rule_id, rule_description, query, provenance, status, reason, row_count, sample, elapsed_ms, recorded_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, table)
	for i := range report.Records {
		record := &report.Records[i]

		var sampleJSON any
		if len(record.Sample) > 0 {
			b, err := json.Marshal(record.Sample)
			if err != nil {
				return monitor.NewStorageError("sqlite", "marshal_sample", err)
			}
			sampleJSON = string(b)
		}

		_, err := tx.ExecContext(ctx, insert,
			i,
			record.RuleID,
			nullableString(record.RuleDescription),
			nullableString(record.Query),
			nullableString(record.Provenance),
			string(record.Status),
			nullableString(record.Reason),
			record.RowCount,
			sampleJSON,
			record.ElapsedMS,
			record.RecordedAt,
		)
		if err != nil {
			return monitor.NewStorageError("sqlite", "insert_record", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return monitor.NewStorageError("sqlite", "commit_replace_report", err)
	}

	s.logger.Debug("report replaced",
		"mode", string(report.Mode),
		"run_id", report.RunID,
		"records", len(report.Records),
	)
	return nil
}

// Report returns the latest stored report for a mode, records included.
func (s *SQLiteStorage) Report(ctx context.Context, mode monitor.Mode) (*monitor.Report, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT run_id, started_at, finished_at, rules_checked, violations, blocked, errors, total_rows
		FROM violation_reports
		WHERE mode = ?
	`, string(mode))

	report := &monitor.Report{Mode: mode}
	err := row.Scan(&report.RunID, &report.StartedAt, &report.FinishedAt,
		&report.RulesChecked, &report.Violations, &report.Blocked, &report.Errors, &report.TotalRows)
	if err == sql.ErrNoRows {
		return nil, monitor.ErrReportNotFound
	}
	if err != nil {
		return nil, monitor.NewStorageError("sqlite", "get_report", err)
	}

	records, err := s.Records(ctx, mode)
	if err != nil {
		return nil, err
	}
	report.Records = records
	return report, nil
}

// Records returns the stored records for a mode in run order.
func (s *SQLiteStorage) Records(ctx context.Context, mode monitor.Mode) ([]monitor.Record, error) {
	query := fmt.Sprintf(`
		SELECT rule_id, rule_description, query, provenance, status, reason, row_count, sample, elapsed_ms, recorded_at
		FROM %s
		ORDER BY position ASC
	`, recordTable(mode))

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, monitor.NewStorageError("sqlite", "list_records", err)
	}
	defer rows.Close()

	records := []monitor.Record{}
	for rows.Next() {
		record, err := scanRecord(rows)
		if err != nil {
			return nil, monitor.NewStorageError("sqlite", "scan_record", err)
		}
		records = append(records, *record)
	}
	if err := rows.Err(); err != nil {
		return nil, monitor.NewStorageError("sqlite", "iterate_records", err)
	}

	return records, nil
}

// Close closes the database connection.
func (s *SQLiteStorage) Close() error {
	s.logger.Debug("closing SQLite report storage")
	return s.db.Close()
}

// GetSchemaVersion returns the current schema version of the database.
func (s *SQLiteStorage) GetSchemaVersion() (int, error) {
	var version int
	err := s.db.QueryRow(GetSchemaVersion).Scan(&version)
	if err != nil {
		return 0, monitor.NewStorageError("sqlite", "get_schema_version", err)
	}
	return version, nil
}

// nullableString converts an empty string to a NULL-able value.
func nullableString(s string) any {
	if s == "" {
		return nil
	}
	return s
}

// scanRecord scans a record row.
func scanRecord(rows *sql.Rows) (*monitor.Record, error) {
	var (
		record      monitor.Record
		description sql.NullString
		queryText   sql.NullString
		provenance  sql.NullString
		reason      sql.NullString
		sampleJSON  sql.NullString
		status      string
	)

	err := rows.Scan(&record.RuleID, &description, &queryText, &provenance,
		&status, &reason, &record.RowCount, &sampleJSON, &record.ElapsedMS, &record.RecordedAt)
	if err != nil {
		return nil, err
	}

	record.Status = monitor.Status(status)
	record.RuleDescription = description.String
	record.Query = queryText.String
	record.Provenance = provenance.String
	record.Reason = reason.String

	if sampleJSON.Valid && sampleJSON.String != "" {
		if err := json.Unmarshal([]byte(sampleJSON.String), &record.Sample); err != nil {
			return nil, fmt.Errorf("failed to unmarshal sample: %w", err)
		}
	}

	return &record, nil
}
