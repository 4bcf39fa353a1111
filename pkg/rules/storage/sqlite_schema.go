package storage

// SchemaVersion is the current rules schema version.
const SchemaVersion = 1

// Schema defines the SQLite schema for the rule repository.
//
// The rules table holds the live deduplicated set; ingestion order is the
// rowid order. The rule_snapshots table holds one immutable row per
// snapshot, with the full rule set serialized as JSON. Snapshots are never
// updated or deleted.
const Schema = `
CREATE TABLE IF NOT EXISTS rules (
    id TEXT PRIMARY KEY,
    kind TEXT NOT NULL,
    description TEXT,
    field TEXT NOT NULL,
    operator TEXT NOT NULL,
    threshold TEXT NOT NULL,
    query_hint TEXT,
    fingerprint TEXT NOT NULL UNIQUE,
    ingested_at TIMESTAMP NOT NULL
);

CREATE TABLE IF NOT EXISTS rule_snapshots (
    version INTEGER PRIMARY KEY,
    created_at TIMESTAMP NOT NULL,
    note TEXT,
    rules TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS rules_schema_version (
    version INTEGER PRIMARY KEY,
    applied_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_rules_kind ON rules(kind);
CREATE INDEX IF NOT EXISTS idx_rules_ingested_at ON rules(ingested_at);
`

// InsertSchemaVersion is the query to insert the schema version.
const InsertSchemaVersion = `
INSERT OR IGNORE INTO rules_schema_version (version) VALUES (?);
`

// GetSchemaVersion is the query to retrieve the current schema version.
const GetSchemaVersion = `
SELECT version FROM rules_schema_version ORDER BY version DESC LIMIT 1;
`
