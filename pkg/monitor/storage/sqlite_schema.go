package storage

// SchemaVersion is the current monitor schema version.
const SchemaVersion = 1

// Schema contains the SQL statements to create the violation report
// tables. Main and live passes write to separate record tables so both
// reports stay queryable side by side; each pass replaces its table
// wholesale.
const Schema = `
CREATE TABLE IF NOT EXISTS violation_reports (
	mode TEXT PRIMARY KEY,
	run_id TEXT NOT NULL,
	started_at TIMESTAMP NOT NULL,
	finished_at TIMESTAMP NOT NULL,
	rules_checked INTEGER NOT NULL,
	violations INTEGER NOT NULL,
	blocked INTEGER NOT NULL,
	errors INTEGER NOT NULL,
	total_rows INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS violations (
	position INTEGER PRIMARY KEY,
	rule_id TEXT NOT NULL,
	rule_description TEXT,
	query TEXT,
	provenance TEXT,
	status TEXT NOT NULL,
	reason TEXT,
	row_count INTEGER NOT NULL,
	sample TEXT,
	elapsed_ms INTEGER NOT NULL,
	recorded_at TIMESTAMP NOT NULL
);

CREATE TABLE IF NOT EXISTS violations_live (
	position INTEGER PRIMARY KEY,
	rule_id TEXT NOT NULL,
	rule_description TEXT,
	query TEXT,
	provenance TEXT,
	status TEXT NOT NULL,
	reason TEXT,
	row_count INTEGER NOT NULL,
	sample TEXT,
	elapsed_ms INTEGER NOT NULL,
	recorded_at TIMESTAMP NOT NULL
);

CREATE TABLE IF NOT EXISTS monitor_schema_version (
	version INTEGER PRIMARY KEY,
	applied_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_violations_rule_id ON violations(rule_id);
CREATE INDEX IF NOT EXISTS idx_violations_status ON violations(status);
CREATE INDEX IF NOT EXISTS idx_violations_live_rule_id ON violations_live(rule_id);
CREATE INDEX IF NOT EXISTS idx_violations_live_status ON violations_live(status);
`

// InsertSchemaVersion is the SQL to record the schema version.
const InsertSchemaVersion = `
INSERT OR IGNORE INTO monitor_schema_version (version) VALUES (?)
`

// GetSchemaVersion is the SQL to retrieve the current schema version.
const GetSchemaVersion = `
SELECT MAX(version) FROM monitor_schema_version
`
