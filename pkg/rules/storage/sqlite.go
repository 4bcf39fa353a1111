package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"warden-hq/warden/pkg/rules"
)

// SQLiteConfig contains configuration for the SQLite rules storage backend.
type SQLiteConfig struct {
	// Path is the database file path. The rules tables may share a file
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

// SQLiteStorage implements the rules.Storage interface using SQLite.
type SQLiteStorage struct {
	db     *sql.DB
	config *SQLiteConfig
	logger *slog.Logger
}

// NewSQLiteStorage creates a new SQLite rules storage backend.
// It initializes the database schema and enables WAL mode if configured.
func NewSQLiteStorage(config *SQLiteConfig) (*SQLiteStorage, error) {
	if config == nil {
		config = DefaultSQLiteConfig()
	}

	logger := slog.Default().With("component", "rules.storage.sqlite")

	db, err := sql.Open("sqlite3", config.Path)
	if err != nil {
		return nil, rules.NewStorageError("sqlite", "open", err)
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

	logger.Info("SQLite rules storage initialized",
		"path", config.Path,
		"wal_mode", config.WALMode,
	)

	return s, nil
}

// initialize sets up the database schema and enables WAL mode.
func (s *SQLiteStorage) initialize() error {
	if s.config.WALMode {
		if _, err := s.db.Exec("PRAGMA journal_mode=WAL;"); err != nil {
			return rules.NewStorageError("sqlite", "enable_wal", err)
		}
	}

	busyTimeoutMs := s.config.BusyTimeout.Milliseconds()
	if _, err := s.db.Exec(fmt.Sprintf("PRAGMA busy_timeout=%d;", busyTimeoutMs)); err != nil {
		return rules.NewStorageError("sqlite", "set_busy_timeout", err)
	}

	if _, err := s.db.Exec(Schema); err != nil {
		return rules.NewStorageError("sqlite", "create_schema", err)
	}

	if _, err := s.db.Exec(InsertSchemaVersion, SchemaVersion); err != nil {
		return rules.NewStorageError("sqlite", "insert_schema_version", err)
	}

	var version int
	err := s.db.QueryRow(GetSchemaVersion).Scan(&version)
	if err != nil && err != sql.ErrNoRows {
		return rules.NewStorageError("sqlite", "get_schema_version", err)
	}
	if version != SchemaVersion {
		return rules.NewStorageError("sqlite", "schema_version_mismatch",
			fmt.Errorf("expected schema version %d, got %d", SchemaVersion, version))
	}

	return nil
}

// InsertRule adds a rule to the live set. The UNIQUE constraint on the
// fingerprint column rejects duplicates that slipped past the repository.
func (s *SQLiteStorage) InsertRule(ctx context.Context, rule *rules.Rule) error {
	thresholdJSON, err := json.Marshal(rule.Threshold)
	if err != nil {
		return rules.NewStorageError("sqlite", "insert_rule", err)
	}

	query := `
		INSERT INTO rules (id, kind, description, field, operator, threshold, query_hint, fingerprint, ingested_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err = s.db.ExecContext(ctx, query,
		rule.ID, string(rule.Kind), rule.Description, rule.Field, rule.Operator,
		string(thresholdJSON), nullableString(rule.QueryHint), rule.Fingerprint, rule.IngestedAt,
	)
	if err != nil {
		return rules.NewStorageError("sqlite", "insert_rule", err)
	}
	return nil
}

// Rules returns the live rule set in ingestion order.
func (s *SQLiteStorage) Rules(ctx context.Context) ([]rules.Rule, error) {
	query := `
		SELECT id, kind, description, field, operator, threshold, query_hint, fingerprint, ingested_at
		FROM rules ORDER BY rowid ASC
	`
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, rules.NewStorageError("sqlite", "rules", err)
	}
	defer rows.Close()

	var result []rules.Rule
	for rows.Next() {
		rule, err := scanRule(rows)
		if err != nil {
			return nil, rules.NewStorageError("sqlite", "scan_rule", err)
		}
		result = append(result, *rule)
	}
	if err := rows.Err(); err != nil {
		return nil, rules.NewStorageError("sqlite", "rules", err)
	}
	return result, nil
}

// Rule returns the live rule with the given identifier.
func (s *SQLiteStorage) Rule(ctx context.Context, id string) (*rules.Rule, error) {
	query := `
		SELECT id, kind, description, field, operator, threshold, query_hint, fingerprint, ingested_at
		FROM rules WHERE id = ?
	`
	rows, err := s.db.QueryContext(ctx, query, id)
	if err != nil {
		return nil, rules.NewStorageError("sqlite", "rule", err)
	}
	defer rows.Close()

	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return nil, rules.NewStorageError("sqlite", "rule", err)
		}
		return nil, rules.ErrRuleNotFound
	}
	rule, err := scanRule(rows)
	if err != nil {
		return nil, rules.NewStorageError("sqlite", "scan_rule", err)
	}
	return rule, nil
}

// HasFingerprint reports whether a live rule with the fingerprint exists.
func (s *SQLiteStorage) HasFingerprint(ctx context.Context, fingerprint string) (bool, error) {
	var count int64
	err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM rules WHERE fingerprint = ?", fingerprint).Scan(&count)
	if err != nil {
		return false, rules.NewStorageError("sqlite", "has_fingerprint", err)
	}
	return count > 0, nil
}

// InsertSnapshot persists an immutable snapshot. The version column is the
// primary key, so a repeated version is rejected by the engine.
func (s *SQLiteStorage) InsertSnapshot(ctx context.Context, snapshot *rules.Snapshot) error {
	rulesJSON, err := json.Marshal(snapshot.Rules)
	if err != nil {
		return rules.NewStorageError("sqlite", "insert_snapshot", err)
	}

	query := `
		INSERT INTO rule_snapshots (version, created_at, note, rules)
		VALUES (?, ?, ?, ?)
	`
	_, err = s.db.ExecContext(ctx, query,
		snapshot.Version, snapshot.CreatedAt, nullableString(snapshot.Note), string(rulesJSON))
	if err != nil {
		return rules.NewStorageError("sqlite", "insert_snapshot", err)
	}
	return nil
}

// Snapshots returns all snapshots in version order.
func (s *SQLiteStorage) Snapshots(ctx context.Context) ([]rules.Snapshot, error) {
	query := `
		SELECT version, created_at, note, rules
		FROM rule_snapshots ORDER BY version ASC
	`
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, rules.NewStorageError("sqlite", "snapshots", err)
	}
	defer rows.Close()

	var result []rules.Snapshot
	for rows.Next() {
		snapshot, err := scanSnapshot(rows)
		if err != nil {
			return nil, rules.NewStorageError("sqlite", "scan_snapshot", err)
		}
		result = append(result, *snapshot)
	}
	if err := rows.Err(); err != nil {
		return nil, rules.NewStorageError("sqlite", "snapshots", err)
	}
	return result, nil
}

// Snapshot returns the snapshot with the given version.
func (s *SQLiteStorage) Snapshot(ctx context.Context, version int64) (*rules.Snapshot, error) {
	query := `
		SELECT version, created_at, note, rules
		FROM rule_snapshots WHERE version = ?
	`
	rows, err := s.db.QueryContext(ctx, query, version)
	if err != nil {
		return nil, rules.NewStorageError("sqlite", "snapshot", err)
	}
	defer rows.Close()

	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return nil, rules.NewStorageError("sqlite", "snapshot", err)
		}
		return nil, rules.ErrSnapshotNotFound
	}
	snapshot, err := scanSnapshot(rows)
	if err != nil {
		return nil, rules.NewStorageError("sqlite", "scan_snapshot", err)
	}
	return snapshot, nil
}

// MaxSnapshotVersion returns the highest stored snapshot version, or 0 when
// no snapshots exist.
func (s *SQLiteStorage) MaxSnapshotVersion(ctx context.Context) (int64, error) {
	var version int64
	err := s.db.QueryRowContext(ctx,
		"SELECT COALESCE(MAX(version), 0) FROM rule_snapshots").Scan(&version)
	if err != nil {
		return 0, rules.NewStorageError("sqlite", "max_snapshot_version", err)
	}
	return version, nil
}

// Close closes the database connection.
func (s *SQLiteStorage) Close() error {
	return s.db.Close()
}

// nullableString converts an empty string to NULL for optional columns.
func nullableString(s string) any {
	if s == "" {
		return nil
	}
	return s
}

// scanRule reads one rule row. The threshold column holds canonical JSON.
func scanRule(rows *sql.Rows) (*rules.Rule, error) {
	var (
		rule          rules.Rule
		kind          string
		thresholdJSON string
		description   sql.NullString
		queryHint     sql.NullString
	)
	err := rows.Scan(&rule.ID, &kind, &description, &rule.Field, &rule.Operator,
		&thresholdJSON, &queryHint, &rule.Fingerprint, &rule.IngestedAt)
	if err != nil {
		return nil, err
	}

	rule.Kind = rules.Kind(kind)
	rule.Description = description.String
	rule.QueryHint = queryHint.String
	if err := json.Unmarshal([]byte(thresholdJSON), &rule.Threshold); err != nil {
		return nil, err
	}
	return &rule, nil
}

// scanSnapshot reads one snapshot row, decoding the serialized rule set.
func scanSnapshot(rows *sql.Rows) (*rules.Snapshot, error) {
	var (
		snapshot  rules.Snapshot
		note      sql.NullString
		rulesJSON string
	)
	if err := rows.Scan(&snapshot.Version, &snapshot.CreatedAt, &note, &rulesJSON); err != nil {
		return nil, err
	}

	snapshot.Note = note.String
	if err := json.Unmarshal([]byte(rulesJSON), &snapshot.Rules); err != nil {
		return nil, err
	}
	if snapshot.Rules == nil {
		snapshot.Rules = []rules.Rule{}
	}
	return &snapshot, nil
}
