package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"warden-hq/warden/pkg/hitl"
)

// SQLiteConfig contains configuration for the SQLite decision storage.
type SQLiteConfig struct {
	// Path is the database file path. The decision table may share a file
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

// SQLiteStorage implements the hitl.Storage interface using SQLite.
type SQLiteStorage struct {
	db     *sql.DB
	config *SQLiteConfig
	logger *slog.Logger
}

// NewSQLiteStorage creates a new SQLite decision storage backend.
func NewSQLiteStorage(config *SQLiteConfig) (*SQLiteStorage, error) {
	if config == nil {
		config = DefaultSQLiteConfig()
	}

	logger := slog.Default().With("component", "hitl.storage.sqlite")

	db, err := sql.Open("sqlite3", config.Path)
	if err != nil {
		return nil, hitl.NewStorageError("sqlite", "open", err)
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

	logger.Info("SQLite decision storage initialized", "path", config.Path)

	return s, nil
}

// initialize sets up the database schema and enables WAL mode.
func (s *SQLiteStorage) initialize() error {
	if s.config.WALMode {
		if _, err := s.db.Exec("PRAGMA journal_mode=WAL;"); err != nil {
			return hitl.NewStorageError("sqlite", "enable_wal", err)
		}
	}

	busyTimeoutMs := s.config.BusyTimeout.Milliseconds()
	if _, err := s.db.Exec(fmt.Sprintf("PRAGMA busy_timeout=%d;", busyTimeoutMs)); err != nil {
		return hitl.NewStorageError("sqlite", "set_busy_timeout", err)
	}

	if _, err := s.db.Exec(Schema); err != nil {
		return hitl.NewStorageError("sqlite", "create_schema", err)
	}

	if _, err := s.db.Exec(InsertSchemaVersion, SchemaVersion); err != nil {
		return hitl.NewStorageError("sqlite", "insert_schema_version", err)
	}

	var version int
	err := s.db.QueryRow(GetSchemaVersion).Scan(&version)
	if err != nil && err != sql.ErrNoRows {
		return hitl.NewStorageError("sqlite", "get_schema_version", err)
	}
	if version != SchemaVersion {
		return hitl.NewStorageError("sqlite", "schema_version_mismatch",
			fmt.Errorf("expected schema version %d, got %d", SchemaVersion, version))
	}

	return nil
}

// Upsert writes the current decision for a key, replacing any prior row.
func (s *SQLiteStorage) Upsert(ctx context.Context, decision *hitl.Decision) error {
	query := `
		INSERT INTO hitl_decisions (key, state, analyst, notes, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET
			state = excluded.state,
			analyst = excluded.analyst,
			notes = excluded.notes,
			updated_at = excluded.updated_at
	`
	_, err := s.db.ExecContext(ctx, query,
		decision.Key, string(decision.State), decision.Analyst,
		nullableString(decision.Notes), decision.UpdatedAt)
	if err != nil {
		return hitl.NewStorageError("sqlite", "upsert", err)
	}
	return nil
}

// Get returns the current decision for a key.
func (s *SQLiteStorage) Get(ctx context.Context, key string) (*hitl.Decision, error) {
	query := `
		SELECT key, state, analyst, notes, updated_at
		FROM hitl_decisions WHERE key = ?
	`
	var (
		decision hitl.Decision
		state    string
		analyst  sql.NullString
		notes    sql.NullString
	)
	err := s.db.QueryRowContext(ctx, query, key).Scan(
		&decision.Key, &state, &analyst, &notes, &decision.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, hitl.ErrDecisionNotFound
	}
	if err != nil {
		return nil, hitl.NewStorageError("sqlite", "get", err)
	}

	decision.State = hitl.State(state)
	decision.Analyst = analyst.String
	decision.Notes = notes.String
	return &decision, nil
}

// List returns all recorded decisions ordered by key.
func (s *SQLiteStorage) List(ctx context.Context) ([]hitl.Decision, error) {
	query := `
		SELECT key, state, analyst, notes, updated_at
		FROM hitl_decisions ORDER BY key ASC
	`
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, hitl.NewStorageError("sqlite", "list", err)
	}
	defer rows.Close()

	var result []hitl.Decision
	for rows.Next() {
		var (
			decision hitl.Decision
			state    string
			analyst  sql.NullString
			notes    sql.NullString
		)
		if err := rows.Scan(&decision.Key, &state, &analyst, &notes, &decision.UpdatedAt); err != nil {
			return nil, hitl.NewStorageError("sqlite", "scan_decision", err)
		}
		decision.State = hitl.State(state)
		decision.Analyst = analyst.String
		decision.Notes = notes.String
		result = append(result, decision)
	}
	if err := rows.Err(); err != nil {
		return nil, hitl.NewStorageError("sqlite", "list", err)
	}
	return result, nil
}

// CountByState returns the number of recorded decisions per state.
func (s *SQLiteStorage) CountByState(ctx context.Context) (map[hitl.State]int64, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT state, COUNT(*) FROM hitl_decisions GROUP BY state")
	if err != nil {
		return nil, hitl.NewStorageError("sqlite", "count_by_state", err)
	}
	defer rows.Close()

	counts := make(map[hitl.State]int64)
	for rows.Next() {
		var (
			state string
			count int64
		)
		if err := rows.Scan(&state, &count); err != nil {
			return nil, hitl.NewStorageError("sqlite", "count_by_state", err)
		}
		counts[hitl.State(state)] = count
	}
	if err := rows.Err(); err != nil {
		return nil, hitl.NewStorageError("sqlite", "count_by_state", err)
	}
	return counts, nil
}

// Close closes the database connection.
func (s *SQLiteStorage) Close() error {
	return s.db.Close()
}

// GetSchemaVersion returns the current schema version of the database.
func (s *SQLiteStorage) GetSchemaVersion() (int, error) {
	var version int
	err := s.db.QueryRow(GetSchemaVersion).Scan(&version)
	if err != nil {
		return 0, hitl.NewStorageError("sqlite", "get_schema_version", err)
	}
	return version, nil
}

// nullableString converts an empty string to NULL for optional columns.
func nullableString(s string) any {
	if s == "" {
		return nil
	}
	return s
}
