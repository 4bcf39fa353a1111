package config

import "time"

// Default values for configuration fields.
const (
	// Server defaults
	DefaultListenAddress   = "127.0.0.1:8600"
	DefaultReadTimeout     = 30 * time.Second
	DefaultWriteTimeout    = 30 * time.Second
	DefaultIdleTimeout     = 120 * time.Second
	DefaultShutdownTimeout = 30 * time.Second
	DefaultMaxHeaderBytes  = 1048576 // 1MB

	// CORS defaults
	DefaultCORSEnabled = true
	DefaultCORSMaxAge  = 3600 // 1 hour

	// Dataset defaults
	DefaultDatasetPath      = "data/transactions.db"
	DefaultDatasetTable     = "transactions"
	DefaultDatasetLiveTable = "transactions_live"
	DefaultRowCap           = 1000
	DefaultSampleRows       = 5
	DefaultQueryTimeout     = 30 * time.Second

	// State defaults
	DefaultStatePath         = "data/warden.db"
	DefaultStateMaxOpenConns = 10
	DefaultStateMaxIdleConns = 5
	DefaultStateWALMode      = true
	DefaultStateBusyTimeout  = 5 * time.Second

	// Ledger defaults
	DefaultLedgerPath        = "data/audit.db"
	DefaultLedgerBusyTimeout = 5 * time.Second

	// Pipeline defaults
	DefaultBatchSize     = 5
	DefaultWorkers       = 4
	DefaultMaxQueryBytes = 64 * 1024

	// Ingest defaults
	DefaultIngestWatchDir = "data/rules/"
	DefaultIngestWatch    = false
	DefaultDebounceDelay  = 500 * time.Millisecond

	// Live defaults
	DefaultLiveEnabled  = false
	DefaultLiveSchedule = "@every 20s"

	// Telemetry defaults
	DefaultLoggingLevel     = "info"
	DefaultLoggingFormat    = "json"
	DefaultMetricsEnabled   = true
	DefaultPrometheusPath   = "/metrics"
	DefaultMetricsNamespace = "warden"
	DefaultMetricsSubsystem = "core"
)

// ApplyDefaults applies default values to a Config struct.
// It sets defaults for any fields that have zero values.
// This function is idempotent and safe to call multiple times.
func ApplyDefaults(cfg *Config) {
	// Server defaults
	if cfg.Server.ListenAddress == "" {
		cfg.Server.ListenAddress = DefaultListenAddress
	}
	if cfg.Server.ReadTimeout == 0 {
		cfg.Server.ReadTimeout = DefaultReadTimeout
	}
	if cfg.Server.WriteTimeout == 0 {
		cfg.Server.WriteTimeout = DefaultWriteTimeout
	}
	if cfg.Server.IdleTimeout == 0 {
		cfg.Server.IdleTimeout = DefaultIdleTimeout
	}
	if cfg.Server.ShutdownTimeout == 0 {
		cfg.Server.ShutdownTimeout = DefaultShutdownTimeout
	}
	if cfg.Server.MaxHeaderBytes == 0 {
		cfg.Server.MaxHeaderBytes = DefaultMaxHeaderBytes
	}
	applyCORSDefaults(&cfg.Server.CORS)

	// Dataset defaults
	if cfg.Dataset.Path == "" {
		cfg.Dataset.Path = DefaultDatasetPath
	}
	if cfg.Dataset.Table == "" {
		cfg.Dataset.Table = DefaultDatasetTable
	}
	if cfg.Dataset.LiveTable == "" {
		cfg.Dataset.LiveTable = DefaultDatasetLiveTable
	}
	if cfg.Dataset.RowCap == 0 {
		cfg.Dataset.RowCap = DefaultRowCap
	}
	if cfg.Dataset.SampleRows == 0 {
		cfg.Dataset.SampleRows = DefaultSampleRows
	}
	if cfg.Dataset.QueryTimeout == 0 {
		cfg.Dataset.QueryTimeout = DefaultQueryTimeout
	}

	// State defaults
	if cfg.State.Path == "" {
		cfg.State.Path = DefaultStatePath
	}
	if cfg.State.MaxOpenConns == 0 {
		cfg.State.MaxOpenConns = DefaultStateMaxOpenConns
	}
	if cfg.State.MaxIdleConns == 0 {
		cfg.State.MaxIdleConns = DefaultStateMaxIdleConns
	}
	if !cfg.State.WALMode {
		cfg.State.WALMode = DefaultStateWALMode
	}
	if cfg.State.BusyTimeout == 0 {
		cfg.State.BusyTimeout = DefaultStateBusyTimeout
	}

	// Ledger defaults
	if cfg.Ledger.Path == "" {
		cfg.Ledger.Path = DefaultLedgerPath
	}
	if cfg.Ledger.BusyTimeout == 0 {
		cfg.Ledger.BusyTimeout = DefaultLedgerBusyTimeout
	}

	// Pipeline defaults
	if cfg.Pipeline.BatchSize == 0 {
		cfg.Pipeline.BatchSize = DefaultBatchSize
	}
	if cfg.Pipeline.Workers == 0 {
		cfg.Pipeline.Workers = DefaultWorkers
	}
	if cfg.Pipeline.MaxQueryBytes == 0 {
		cfg.Pipeline.MaxQueryBytes = DefaultMaxQueryBytes
	}

	// Ingest defaults
	if cfg.Ingest.WatchDir == "" {
		cfg.Ingest.WatchDir = DefaultIngestWatchDir
	}
	if cfg.Ingest.DebounceDelay == 0 {
		cfg.Ingest.DebounceDelay = DefaultDebounceDelay
	}

	// Live defaults
	if cfg.Live.Schedule == "" {
		cfg.Live.Schedule = DefaultLiveSchedule
	}

	// Telemetry defaults
	if cfg.Telemetry.Logging.Level == "" {
		cfg.Telemetry.Logging.Level = DefaultLoggingLevel
	}
	if cfg.Telemetry.Logging.Format == "" {
		cfg.Telemetry.Logging.Format = DefaultLoggingFormat
	}
	if cfg.Telemetry.Metrics.Path == "" {
		cfg.Telemetry.Metrics.Path = DefaultPrometheusPath
	}
	if cfg.Telemetry.Metrics.Namespace == "" {
		cfg.Telemetry.Metrics.Namespace = DefaultMetricsNamespace
	}
	if cfg.Telemetry.Metrics.Subsystem == "" {
		cfg.Telemetry.Metrics.Subsystem = DefaultMetricsSubsystem
	}
}

// applyCORSDefaults applies default values to CORS configuration.
func applyCORSDefaults(cors *CORSConfig) {
	if !cors.Enabled {
		// Treat any explicit CORS configuration as opting in; an entirely
		// empty section gets the default.
		hasAnyConfig := len(cors.AllowedOrigins) > 0 ||
			len(cors.AllowedMethods) > 0 ||
			len(cors.AllowedHeaders) > 0 ||
			cors.MaxAge > 0

		if !hasAnyConfig {
			cors.Enabled = DefaultCORSEnabled
		}
	}

	if len(cors.AllowedOrigins) == 0 {
		cors.AllowedOrigins = []string{"*"}
	}
	if len(cors.AllowedMethods) == 0 {
		cors.AllowedMethods = []string{"GET", "POST", "OPTIONS"}
	}
	if len(cors.AllowedHeaders) == 0 {
		cors.AllowedHeaders = []string{"Content-Type", "X-Request-ID"}
	}
	if cors.MaxAge == 0 {
		cors.MaxAge = DefaultCORSMaxAge
	}
}
