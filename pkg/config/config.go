package config

import "time"

// Config is the root configuration structure for Warden.
// It contains all configuration sections for the rule repository, the
// sandboxed dataset, the monitoring pipeline, the audit ledger, the API
// server, and telemetry settings.
type Config struct {
	// Server contains HTTP API server configuration including listen
	// address, timeouts, and CORS settings.
	Server ServerConfig `yaml:"server"`

	// Dataset contains configuration for the read-only transaction dataset
	// that compliance queries execute against.
	Dataset DatasetConfig `yaml:"dataset"`

	// State contains configuration for the state database holding rules,
	// rule-set snapshots, violation reports, and review decisions.
	State StateConfig `yaml:"state"`

	// Ledger contains configuration for the append-only audit ledger.
	Ledger LedgerConfig `yaml:"ledger"`

	// Pipeline contains configuration for the rule-checking pipeline
	// including batching and worker pool sizing.
	Pipeline PipelineConfig `yaml:"pipeline"`

	// Ingest contains configuration for rule-file ingestion, including
	// the watched drop directory.
	Ingest IngestConfig `yaml:"ingest"`

	// Live contains configuration for live-table monitoring.
	Live LiveConfig `yaml:"live"`

	// Telemetry contains configuration for observability including logging
	// and metrics.
	Telemetry TelemetryConfig `yaml:"telemetry"`
}

// ServerConfig contains configuration for the HTTP API server.
type ServerConfig struct {
	// ListenAddress is the address and port for the API server to listen on.
	// Format: "host:port" (e.g., "127.0.0.1:8600", "0.0.0.0:8600").
	// Default: "127.0.0.1:8600"
	ListenAddress string `yaml:"listen_address"`

	// ReadTimeout is the maximum duration for reading the entire request,
	// including the body. A zero or negative value means no timeout.
	// Default: 30s
	ReadTimeout time.Duration `yaml:"read_timeout"`

	// WriteTimeout is the maximum duration before timing out writes of the
	// response. A zero or negative value means no timeout.
	// Default: 30s
	WriteTimeout time.Duration `yaml:"write_timeout"`

	// IdleTimeout is the maximum amount of time to wait for the next request
	// when keep-alives are enabled. If IdleTimeout is zero, ReadTimeout is used.
	// Default: 120s
	IdleTimeout time.Duration `yaml:"idle_timeout"`

	// ShutdownTimeout is the maximum duration to wait for graceful shutdown.
	// If requests are still in-flight after this timeout, the server will
	// force shutdown.
	// Default: 30s
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`

	// MaxHeaderBytes controls the maximum number of bytes the server will
	// read parsing the request header's keys and values, including the
	// request line. It does not limit the size of the request body.
	// Default: 1048576 (1MB)
	MaxHeaderBytes int `yaml:"max_header_bytes"`

	// CORS contains Cross-Origin Resource Sharing configuration.
	CORS CORSConfig `yaml:"cors"`
}

// CORSConfig contains CORS (Cross-Origin Resource Sharing) configuration.
type CORSConfig struct {
	// Enabled controls whether CORS is enabled.
	// Default: true
	Enabled bool `yaml:"enabled"`

	// AllowedOrigins is a list of allowed origins for CORS requests.
	// Use ["*"] to allow all origins (not recommended for production).
	// Default: ["*"]
	AllowedOrigins []string `yaml:"allowed_origins"`

	// AllowedMethods is a list of allowed HTTP methods for CORS requests.
	// Default: ["GET", "POST", "OPTIONS"]
	AllowedMethods []string `yaml:"allowed_methods"`

	// AllowedHeaders is a list of allowed HTTP headers for CORS requests.
	// Default: ["Content-Type", "X-Request-ID"]
	AllowedHeaders []string `yaml:"allowed_headers"`

	// MaxAge is the maximum age (in seconds) for preflight request cache.
	// Default: 3600 (1 hour)
	MaxAge int `yaml:"max_age"`
}

// DatasetConfig contains configuration for the monitored transaction dataset.
// The dataset is always opened read-only; Warden never writes to it while
// monitoring.
type DatasetConfig struct {
	// Path is the file path for the dataset SQLite database.
	// Default: "data/transactions.db"
	Path string `yaml:"path"`

	// Table is the main transaction table compliance queries run against.
	// Default: "transactions"
	Table string `yaml:"table"`

	// LiveTable is the table populated by the live transaction feed.
	// Live monitoring passes query this table instead of Table.
	// Default: "transactions_live"
	LiveTable string `yaml:"live_table"`

	// RowCap is the maximum number of result rows a single query may
	// materialize. The true match count is computed separately and is not
	// affected by this cap.
	// Default: 1000
	RowCap int `yaml:"row_cap"`

	// SampleRows is the number of example rows retained per violation record.
	// Default: 5
	SampleRows int `yaml:"sample_rows"`

	// QueryTimeout is the execution timeout for a single compliance query.
	// Default: 30s
	QueryTimeout time.Duration `yaml:"query_timeout"`
}

// StateConfig contains configuration for the state database.
type StateConfig struct {
	// Path is the file path for the state SQLite database.
	// Default: "data/warden.db"
	Path string `yaml:"path"`

	// MaxOpenConns is the maximum number of open database connections.
	// Default: 10
	MaxOpenConns int `yaml:"max_open_conns"`

	// MaxIdleConns is the maximum number of idle database connections.
	// Default: 5
	MaxIdleConns int `yaml:"max_idle_conns"`

	// WALMode enables Write-Ahead Logging mode for better concurrency.
	// Default: true
	WALMode bool `yaml:"wal_mode"`

	// BusyTimeout is the duration to wait when the database is locked.
	// Default: 5s
	BusyTimeout time.Duration `yaml:"busy_timeout"`
}

// LedgerConfig contains configuration for the audit ledger database.
// The ledger lives in its own database file so that audit history can be
// retained and backed up independently of mutable state.
type LedgerConfig struct {
	// Path is the file path for the ledger SQLite database.
	// Default: "data/audit.db"
	Path string `yaml:"path"`

	// BusyTimeout is the duration to wait when the database is locked.
	// Default: 5s
	BusyTimeout time.Duration `yaml:"busy_timeout"`
}

// PipelineConfig contains configuration for the rule-checking pipeline.
type PipelineConfig struct {
	// BatchSize is the number of rules processed per batch.
	// Default: 5
	BatchSize int `yaml:"batch_size"`

	// Workers is the number of concurrent workers within a batch.
	// Default: 4
	Workers int `yaml:"workers"`

	// MaxQueryBytes is the maximum length in bytes a candidate query may
	// have before it is rejected outright.
	// Default: 65536 (64KB)
	MaxQueryBytes int `yaml:"max_query_bytes"`
}

// IngestConfig contains configuration for rule-file ingestion.
type IngestConfig struct {
	// WatchDir is the directory watched for dropped rule descriptor files.
	// Files matching *.json are parsed and ingested when they appear.
	// Default: "data/rules/"
	WatchDir string `yaml:"watch_dir"`

	// Watch enables the drop-directory watcher.
	// Default: false
	Watch bool `yaml:"watch"`

	// DebounceDelay is how long to wait after the last file event before
	// ingesting, so editors that write in multiple steps settle first.
	// Default: 500ms
	DebounceDelay time.Duration `yaml:"debounce_delay"`
}

// LiveConfig contains configuration for live-table monitoring.
type LiveConfig struct {
	// Enabled controls whether the live watchdog runs.
	// Default: false
	Enabled bool `yaml:"enabled"`

	// Schedule is a cron expression for the watchdog poll.
	// Supports the @every form (e.g., "@every 20s").
	// Default: "@every 20s"
	Schedule string `yaml:"schedule"`
}

// TelemetryConfig contains configuration for observability.
type TelemetryConfig struct {
	// Logging contains logging configuration.
	Logging LoggingConfig `yaml:"logging"`

	// Metrics contains metrics collection configuration.
	Metrics MetricsConfig `yaml:"metrics"`
}

// LoggingConfig contains logging configuration.
type LoggingConfig struct {
	// Level is the minimum log level to emit.
	// Options: "debug", "info", "warn", "error"
	// Default: "info"
	Level string `yaml:"level"`

	// Format controls the log output format.
	// Options: "json", "text"
	// Default: "json"
	Format string `yaml:"format"`

	// AddSource includes file and line number in log entries.
	// Default: false
	AddSource bool `yaml:"add_source"`
}

// MetricsConfig contains metrics collection configuration.
type MetricsConfig struct {
	// Enabled controls whether metrics collection is active.
	// Default: true
	Enabled bool `yaml:"enabled"`

	// Path is the HTTP path for the Prometheus metrics endpoint.
	// Default: "/metrics"
	Path string `yaml:"path"`

	// Namespace is the metric name prefix.
	// Default: "warden"
	Namespace string `yaml:"namespace"`

	// Subsystem is the metric subsystem name.
	// Default: "core"
	Subsystem string `yaml:"subsystem"`
}
