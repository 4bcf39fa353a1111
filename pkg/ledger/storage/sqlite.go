package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"warden-hq/warden/pkg/ledger"
)

// SQLiteConfig contains configuration for the SQLite ledger backend.
type SQLiteConfig struct {
	// Path is the database file path.
	Path string

	// BusyTimeout is the duration to wait when the database is locked.
	// Default: 5 seconds
	BusyTimeout time.Duration
}

// DefaultSQLiteConfig returns the default SQLite configuration.
func DefaultSQLiteConfig() *SQLiteConfig {
	return &SQLiteConfig{
		Path:        "data/audit.db",
		BusyTimeout: 5 * time.Second,
	}
}

// SQLiteStorage implements the ledger Storage interface using SQLite.
// The ledger gets a database file of its own so audit history can be
// retained and backed up independently of mutable state.
type SQLiteStorage struct {
	db     *sql.DB
	config *SQLiteConfig
	logger *slog.Logger
}

// NewSQLiteStorage creates a new SQLite ledger backend.
// It initializes the database schema and enables WAL mode.
func NewSQLiteStorage(config *SQLiteConfig) (*SQLiteStorage, error) {
	if config == nil {
		config = DefaultSQLiteConfig()
	}

	logger := slog.Default().With("component", "ledger.storage.sqlite")

	db, err := sql.Open("sqlite3", config.Path)
	if err != nil {
		return nil, ledger.NewStorageError("sqlite", "open", err)
	}

	s := &SQLiteStorage{
		db:     db,
		config: config,
		logger: logger,
	}

	if err := s.initialize(); err != nil {
		db.Close()
		return nil, err
	}

	logger.Info("ledger storage initialized", "path", config.Path)
	return s, nil
}

// initialize sets up the database schema and enables WAL mode.
func (s *SQLiteStorage) initialize() error {
	if _, err := s.db.Exec("PRAGMA journal_mode=WAL;"); err != nil {
		return ledger.NewStorageError("sqlite", "enable_wal", err)
	}

	busyTimeoutMs := s.config.BusyTimeout.Milliseconds()
	if _, err := s.db.Exec(fmt.Sprintf("PRAGMA busy_timeout=%d;", busyTimeoutMs)); err != nil {
		return ledger.NewStorageError("sqlite", "set_busy_timeout", err)
	}

	if _, err := s.db.Exec(Schema); err != nil {
		return ledger.NewStorageError("sqlite", "create_schema", err)
	}

	if _, err := s.db.Exec(InsertSchemaVersion, SchemaVersion); err != nil {
		return ledger.NewStorageError("sqlite", "insert_schema_version", err)
	}

	var version int
	err := s.db.QueryRow(GetSchemaVersion).Scan(&version)
	if err != nil && err != sql.ErrNoRows {
		return ledger.NewStorageError("sqlite", "get_schema_version", err)
	}
	if version != SchemaVersion {
		return ledger.NewStorageError("sqlite", "schema_version_mismatch",
			fmt.Errorf("expected schema version %d, got %d", SchemaVersion, version))
	}

	return nil
}

// Append persists an audit event at its pre-assigned sequence number.
// Writing an already-used sequence number fails on the primary key, which
// keeps the append-only contract enforced at the storage level as well.
func (s *SQLiteStorage) Append(ctx context.Context, event *ledger.Event) error {
	var ruleID interface{}
	if event.RuleID != "" {
		ruleID = event.RuleID
	}
	var payload interface{}
	if len(event.Payload) > 0 {
		payload = string(event.Payload)
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO audit_events (seq, kind, rule_id, timestamp, payload) VALUES (?, ?, ?, ?, ?)`,
		event.Seq, string(event.Kind), ruleID, event.Timestamp, payload,
	)
	if err != nil {
		return ledger.NewStorageError("sqlite", "append", err)
	}

	return nil
}

// Events returns events matching the query in ascending sequence order.
func (s *SQLiteStorage) Events(ctx context.Context, query *ledger.Query) ([]*ledger.Event, error) {
	whereClause, args := buildWhereClause(query)

	sqlQuery := "SELECT seq, kind, rule_id, timestamp, payload FROM audit_events"
	if whereClause != "" {
		sqlQuery += " WHERE " + whereClause
	}
	sqlQuery += " ORDER BY seq ASC"
	if query.Limit > 0 {
		sqlQuery += fmt.Sprintf(" LIMIT %d", query.Limit)
	}

	rows, err := s.db.QueryContext(ctx, sqlQuery, args...)
	if err != nil {
		return nil, ledger.NewStorageError("sqlite", "query", err)
	}
	defer rows.Close()

	events := []*ledger.Event{}
	for rows.Next() {
		event, err := scanRow(rows)
		if err != nil {
			return nil, ledger.NewStorageError("sqlite", "scan", err)
		}
		events = append(events, event)
	}

	if err := rows.Err(); err != nil {
		return nil, ledger.NewStorageError("sqlite", "query", err)
	}

	return events, nil
}

// Count returns the number of events matching the query.
func (s *SQLiteStorage) Count(ctx context.Context, query *ledger.Query) (int64, error) {
	whereClause, args := buildWhereClause(query)

	sqlQuery := "SELECT COUNT(*) FROM audit_events"
	if whereClause != "" {
		sqlQuery += " WHERE " + whereClause
	}

	var count int64
	if err := s.db.QueryRowContext(ctx, sqlQuery, args...).Scan(&count); err != nil {
		return 0, ledger.NewStorageError("sqlite", "count", err)
	}

	return count, nil
}

// MaxSeq returns the highest stored sequence number, or zero when empty.
func (s *SQLiteStorage) MaxSeq(ctx context.Context) (uint64, error) {
	var max uint64
	err := s.db.QueryRowContext(ctx, "SELECT COALESCE(MAX(seq), 0) FROM audit_events").Scan(&max)
	if err != nil {
		return 0, ledger.NewStorageError("sqlite", "max_seq", err)
	}
	return max, nil
}

// Close releases resources held by the storage backend.
func (s *SQLiteStorage) Close() error {
	if err := s.db.Close(); err != nil {
		return ledger.NewStorageError("sqlite", "close", err)
	}
	s.logger.Info("ledger storage closed")
	return nil
}

// buildWhereClause builds a SQL WHERE clause from query filters.
// Returns the WHERE clause (without "WHERE" keyword) and the query arguments.
func buildWhereClause(query *ledger.Query) (string, []interface{}) {
	var conditions []string
	var args []interface{}

	if len(query.Kinds) > 0 {
		placeholders := make([]string, len(query.Kinds))
		for i, kind := range query.Kinds {
			placeholders[i] = "?"
			args = append(args, string(kind))
		}
		conditions = append(conditions, fmt.Sprintf("kind IN (%s)", strings.Join(placeholders, ", ")))
	}

	if query.RuleID != "" {
		conditions = append(conditions, "rule_id = ?")
		args = append(args, query.RuleID)
	}

	if query.Since != nil {
		conditions = append(conditions, "timestamp >= ?")
		args = append(args, *query.Since)
	}
	if query.Until != nil {
		conditions = append(conditions, "timestamp <= ?")
		args = append(args, *query.Until)
	}

	return strings.Join(conditions, " AND "), args
}

// scanRow scans a database row into an Event.
func scanRow(rows *sql.Rows) (*ledger.Event, error) {
	var event ledger.Event
	var kind string
	var ruleID, payload sql.NullString

	if err := rows.Scan(&event.Seq, &kind, &ruleID, &event.Timestamp, &payload); err != nil {
		return nil, err
	}

	event.Kind = ledger.EventKind(kind)
	if ruleID.Valid {
		event.RuleID = ruleID.String
	}
	if payload.Valid && payload.String != "" {
		event.Payload = []byte(payload.String)
	}

	return &event, nil
}
