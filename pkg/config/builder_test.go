package config

import "time"

// ConfigBuilder provides a fluent API for building Config instances in tests.
// It starts with default values and allows selective overrides.
type ConfigBuilder struct {
	cfg Config
}

// NewTestConfig creates a new ConfigBuilder with sensible defaults for testing.
// The resulting configuration is valid and can be used immediately.
func NewTestConfig() *ConfigBuilder {
	cfg := Config{}
	ApplyDefaults(&cfg)
	return &ConfigBuilder{cfg: cfg}
}

// Build returns the built Config instance.
func (b *ConfigBuilder) Build() *Config {
	cfg := b.cfg
	return &cfg
}

// WithListenAddress sets the API server listen address.
func (b *ConfigBuilder) WithListenAddress(addr string) *ConfigBuilder {
	b.cfg.Server.ListenAddress = addr
	return b
}

// WithDatasetPath sets the dataset database path.
func (b *ConfigBuilder) WithDatasetPath(path string) *ConfigBuilder {
	b.cfg.Dataset.Path = path
	return b
}

// WithStatePath sets the state database path.
func (b *ConfigBuilder) WithStatePath(path string) *ConfigBuilder {
	b.cfg.State.Path = path
	return b
}

// WithLedgerPath sets the ledger database path.
func (b *ConfigBuilder) WithLedgerPath(path string) *ConfigBuilder {
	b.cfg.Ledger.Path = path
	return b
}

// WithRowCap sets the dataset row cap.
func (b *ConfigBuilder) WithRowCap(n int) *ConfigBuilder {
	b.cfg.Dataset.RowCap = n
	return b
}

// WithBatchSize sets the pipeline batch size.
func (b *ConfigBuilder) WithBatchSize(n int) *ConfigBuilder {
	b.cfg.Pipeline.BatchSize = n
	return b
}

// WithWorkers sets the pipeline worker count.
func (b *ConfigBuilder) WithWorkers(n int) *ConfigBuilder {
	b.cfg.Pipeline.Workers = n
	return b
}

// WithQueryTimeout sets the dataset query timeout.
func (b *ConfigBuilder) WithQueryTimeout(d time.Duration) *ConfigBuilder {
	b.cfg.Dataset.QueryTimeout = d
	return b
}

// WithLiveEnabled enables or disables live monitoring.
func (b *ConfigBuilder) WithLiveEnabled(enabled bool) *ConfigBuilder {
	b.cfg.Live.Enabled = enabled
	return b
}

// WithLoggingLevel sets the logging level.
func (b *ConfigBuilder) WithLoggingLevel(level string) *ConfigBuilder {
	b.cfg.Telemetry.Logging.Level = level
	return b
}
