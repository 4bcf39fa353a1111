package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// LoadConfig loads configuration from a YAML file at the specified path.
// It applies default values, validates the configuration, and returns any errors.
// The configuration is not modified by environment variables; use LoadConfigWithEnvOverrides
// for that functionality.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read configuration file %q: %w", path, err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse configuration file %q: %w", path, err)
	}

	ApplyDefaults(&cfg)

	if err := Validate(&cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return &cfg, nil
}

// LoadConfigWithEnvOverrides loads configuration from a YAML file and applies
// environment variable overrides. Environment variables follow the naming
// convention WARDEN_SECTION_FIELD (e.g., WARDEN_SERVER_LISTEN_ADDRESS).
// Environment variables always take precedence over file-based configuration.
//
// The loading sequence is:
// 1. Load YAML from file
// 2. Apply default values
// 3. Apply environment variable overrides
// 4. Validate final configuration
func LoadConfigWithEnvOverrides(path string) (*Config, error) {
	cfg, err := LoadConfig(path)
	if err != nil {
		return nil, err
	}

	applyEnvOverrides(cfg)

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed after environment overrides: %w", err)
	}

	return cfg, nil
}

// DefaultIfMissing loads configuration from path when the file exists and
// falls back to a fully defaulted configuration when it does not. Any other
// read or validation error is still reported.
func DefaultIfMissing(path string) (*Config, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		cfg := &Config{}
		ApplyDefaults(cfg)
		applyEnvOverrides(cfg)
		if err := Validate(cfg); err != nil {
			return nil, fmt.Errorf("configuration validation failed: %w", err)
		}
		return cfg, nil
	}
	return LoadConfigWithEnvOverrides(path)
}

// applyEnvOverrides applies environment variable overrides to the configuration.
// Environment variables use the format WARDEN_SECTION_FIELD.
func applyEnvOverrides(cfg *Config) {
	// Server overrides
	if val := os.Getenv("WARDEN_SERVER_LISTEN_ADDRESS"); val != "" {
		cfg.Server.ListenAddress = val
	}
	if val := os.Getenv("WARDEN_SERVER_READ_TIMEOUT"); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			cfg.Server.ReadTimeout = d
		}
	}
	if val := os.Getenv("WARDEN_SERVER_WRITE_TIMEOUT"); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			cfg.Server.WriteTimeout = d
		}
	}
	if val := os.Getenv("WARDEN_SERVER_IDLE_TIMEOUT"); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			cfg.Server.IdleTimeout = d
		}
	}
	if val := os.Getenv("WARDEN_SERVER_MAX_HEADER_BYTES"); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			cfg.Server.MaxHeaderBytes = i
		}
	}

	// Dataset overrides
	if val := os.Getenv("WARDEN_DATASET_PATH"); val != "" {
		cfg.Dataset.Path = val
	}
	if val := os.Getenv("WARDEN_DATASET_TABLE"); val != "" {
		cfg.Dataset.Table = val
	}
	if val := os.Getenv("WARDEN_DATASET_LIVE_TABLE"); val != "" {
		cfg.Dataset.LiveTable = val
	}
	if val := os.Getenv("WARDEN_DATASET_ROW_CAP"); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			cfg.Dataset.RowCap = i
		}
	}
	if val := os.Getenv("WARDEN_DATASET_SAMPLE_ROWS"); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			cfg.Dataset.SampleRows = i
		}
	}
	if val := os.Getenv("WARDEN_DATASET_QUERY_TIMEOUT"); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			cfg.Dataset.QueryTimeout = d
		}
	}

	// State overrides
	if val := os.Getenv("WARDEN_STATE_PATH"); val != "" {
		cfg.State.Path = val
	}
	if val := os.Getenv("WARDEN_STATE_BUSY_TIMEOUT"); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			cfg.State.BusyTimeout = d
		}
	}

	// Ledger overrides
	if val := os.Getenv("WARDEN_LEDGER_PATH"); val != "" {
		cfg.Ledger.Path = val
	}
	if val := os.Getenv("WARDEN_LEDGER_BUSY_TIMEOUT"); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			cfg.Ledger.BusyTimeout = d
		}
	}

	// Pipeline overrides
	if val := os.Getenv("WARDEN_PIPELINE_BATCH_SIZE"); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			cfg.Pipeline.BatchSize = i
		}
	}
	if val := os.Getenv("WARDEN_PIPELINE_WORKERS"); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			cfg.Pipeline.Workers = i
		}
	}
	if val := os.Getenv("WARDEN_PIPELINE_MAX_QUERY_BYTES"); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			cfg.Pipeline.MaxQueryBytes = i
		}
	}

	// Ingest overrides
	if val := os.Getenv("WARDEN_INGEST_WATCH_DIR"); val != "" {
		cfg.Ingest.WatchDir = val
	}
	if val := os.Getenv("WARDEN_INGEST_WATCH"); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			cfg.Ingest.Watch = b
		}
	}

	// Live overrides
	if val := os.Getenv("WARDEN_LIVE_ENABLED"); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			cfg.Live.Enabled = b
		}
	}
	if val := os.Getenv("WARDEN_LIVE_SCHEDULE"); val != "" {
		cfg.Live.Schedule = val
	}

	// Telemetry overrides
	if val := os.Getenv("WARDEN_TELEMETRY_LOGGING_LEVEL"); val != "" {
		cfg.Telemetry.Logging.Level = val
	}
	if val := os.Getenv("WARDEN_TELEMETRY_LOGGING_FORMAT"); val != "" {
		cfg.Telemetry.Logging.Format = val
	}
	if val := os.Getenv("WARDEN_TELEMETRY_METRICS_ENABLED"); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			cfg.Telemetry.Metrics.Enabled = b
		}
	}
	if val := os.Getenv("WARDEN_TELEMETRY_METRICS_PATH"); val != "" {
		cfg.Telemetry.Metrics.Path = val
	}
}
