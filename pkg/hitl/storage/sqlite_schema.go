package storage

// SchemaVersion is the current decision-store schema version.
const SchemaVersion = 1

// Schema defines the SQLite schema for current-state decisions. One row per
// violation key, replaced in place on every transition; history lives in
// the audit ledger, not here.
const Schema = `
CREATE TABLE IF NOT EXISTS hitl_decisions (
    key TEXT PRIMARY KEY,
    state TEXT NOT NULL,
    analyst TEXT,
    notes TEXT,
    updated_at TIMESTAMP NOT NULL
);

CREATE TABLE IF NOT EXISTS hitl_schema_version (
    version INTEGER PRIMARY KEY,
    applied_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_hitl_decisions_state ON hitl_decisions(state);
`

// InsertSchemaVersion is the query to insert the schema version.
const InsertSchemaVersion = `
INSERT OR IGNORE INTO hitl_schema_version (version) VALUES (?);
`

// GetSchemaVersion is the query to retrieve the current schema version.
const GetSchemaVersion = `
SELECT version FROM hitl_schema_version ORDER BY version DESC LIMIT 1;
`
