package config

import (
	"fmt"
	"regexp"
	"strings"
)

// identPattern matches SQL identifiers that are safe to interpolate into
// generated queries. Table names from configuration must match it.
var identPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// FieldError represents a validation error for a specific configuration field.
type FieldError struct {
	// Field is the dotted path to the configuration field (e.g., "server.listen_address").
	Field string

	// Message is a human-readable error message.
	Message string
}

// Error returns the error message for this field error.
func (e FieldError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidationError represents one or more validation errors in a configuration.
// It implements the error interface and provides access to all field errors.
type ValidationError struct {
	// Errors contains all validation errors found in the configuration.
	Errors []FieldError
}

// Error returns a formatted string containing all validation errors.
func (e ValidationError) Error() string {
	if len(e.Errors) == 0 {
		return "configuration validation failed"
	}
	if len(e.Errors) == 1 {
		return fmt.Sprintf("configuration validation failed: %s", e.Errors[0].Error())
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("configuration validation failed with %d errors:\n", len(e.Errors)))
	for _, err := range e.Errors {
		sb.WriteString(fmt.Sprintf("  - %s\n", err.Error()))
	}
	return sb.String()
}

// Validate validates the entire configuration and returns a ValidationError
// if any validation rules fail. It returns nil if the configuration is valid.
// All validation errors are collected and returned together.
func Validate(cfg *Config) error {
	var errs []FieldError

	errs = append(errs, validateServer(&cfg.Server)...)
	errs = append(errs, validateDataset(&cfg.Dataset)...)
	errs = append(errs, validateState(&cfg.State)...)
	errs = append(errs, validateLedger(&cfg.Ledger)...)
	errs = append(errs, validatePipeline(&cfg.Pipeline)...)
	errs = append(errs, validateLive(&cfg.Live)...)
	errs = append(errs, validateTelemetry(&cfg.Telemetry)...)

	if len(errs) > 0 {
		return ValidationError{Errors: errs}
	}

	return nil
}

// validateServer validates HTTP server configuration.
func validateServer(cfg *ServerConfig) []FieldError {
	var errs []FieldError

	if cfg.ListenAddress == "" {
		errs = append(errs, FieldError{
			Field:   "server.listen_address",
			Message: "listen address is required",
		})
	}

	if cfg.ReadTimeout < 0 {
		errs = append(errs, FieldError{
			Field:   "server.read_timeout",
			Message: "read timeout must be positive",
		})
	}
	if cfg.WriteTimeout < 0 {
		errs = append(errs, FieldError{
			Field:   "server.write_timeout",
			Message: "write timeout must be positive",
		})
	}
	if cfg.IdleTimeout < 0 {
		errs = append(errs, FieldError{
			Field:   "server.idle_timeout",
			Message: "idle timeout must be positive",
		})
	}

	if cfg.MaxHeaderBytes < 0 {
		errs = append(errs, FieldError{
			Field:   "server.max_header_bytes",
			Message: "max header bytes must be non-negative",
		})
	}
	if cfg.MaxHeaderBytes > 10*1024*1024 { // 10MB is excessive
		errs = append(errs, FieldError{
			Field:   "server.max_header_bytes",
			Message: "max header bytes exceeds reasonable limit (10MB)",
		})
	}

	return errs
}

// validateDataset validates dataset configuration.
func validateDataset(cfg *DatasetConfig) []FieldError {
	var errs []FieldError

	if cfg.Path == "" {
		errs = append(errs, FieldError{
			Field:   "dataset.path",
			Message: "dataset path is required",
		})
	}

	if cfg.Table == "" {
		errs = append(errs, FieldError{
			Field:   "dataset.table",
			Message: "table name is required",
		})
	} else if !identPattern.MatchString(cfg.Table) {
		errs = append(errs, FieldError{
			Field:   "dataset.table",
			Message: fmt.Sprintf("invalid table name %q: must be a plain SQL identifier", cfg.Table),
		})
	}

	if cfg.LiveTable == "" {
		errs = append(errs, FieldError{
			Field:   "dataset.live_table",
			Message: "live table name is required",
		})
	} else if !identPattern.MatchString(cfg.LiveTable) {
		errs = append(errs, FieldError{
			Field:   "dataset.live_table",
			Message: fmt.Sprintf("invalid table name %q: must be a plain SQL identifier", cfg.LiveTable),
		})
	}

	if cfg.RowCap < 1 {
		errs = append(errs, FieldError{
			Field:   "dataset.row_cap",
			Message: "row cap must be at least 1",
		})
	}
	if cfg.SampleRows < 1 {
		errs = append(errs, FieldError{
			Field:   "dataset.sample_rows",
			Message: "sample rows must be at least 1",
		})
	}
	if cfg.SampleRows > cfg.RowCap {
		errs = append(errs, FieldError{
			Field:   "dataset.sample_rows",
			Message: "sample rows cannot exceed row cap",
		})
	}

	if cfg.QueryTimeout < 0 {
		errs = append(errs, FieldError{
			Field:   "dataset.query_timeout",
			Message: "query timeout must be positive",
		})
	}

	return errs
}

// validateState validates state database configuration.
func validateState(cfg *StateConfig) []FieldError {
	var errs []FieldError

	if cfg.Path == "" {
		errs = append(errs, FieldError{
			Field:   "state.path",
			Message: "state database path is required",
		})
	}
	if cfg.MaxOpenConns < 0 {
		errs = append(errs, FieldError{
			Field:   "state.max_open_conns",
			Message: "max open connections must be non-negative",
		})
	}
	if cfg.MaxIdleConns < 0 {
		errs = append(errs, FieldError{
			Field:   "state.max_idle_conns",
			Message: "max idle connections must be non-negative",
		})
	}
	if cfg.BusyTimeout < 0 {
		errs = append(errs, FieldError{
			Field:   "state.busy_timeout",
			Message: "busy timeout must be positive",
		})
	}

	return errs
}

// validateLedger validates ledger database configuration.
func validateLedger(cfg *LedgerConfig) []FieldError {
	var errs []FieldError

	if cfg.Path == "" {
		errs = append(errs, FieldError{
			Field:   "ledger.path",
			Message: "ledger database path is required",
		})
	}
	if cfg.BusyTimeout < 0 {
		errs = append(errs, FieldError{
			Field:   "ledger.busy_timeout",
			Message: "busy timeout must be positive",
		})
	}

	return errs
}

// validatePipeline validates pipeline configuration.
func validatePipeline(cfg *PipelineConfig) []FieldError {
	var errs []FieldError

	if cfg.BatchSize < 1 {
		errs = append(errs, FieldError{
			Field:   "pipeline.batch_size",
			Message: "batch size must be at least 1",
		})
	}
	if cfg.Workers < 1 {
		errs = append(errs, FieldError{
			Field:   "pipeline.workers",
			Message: "workers must be at least 1",
		})
	}
	if cfg.MaxQueryBytes < 1 {
		errs = append(errs, FieldError{
			Field:   "pipeline.max_query_bytes",
			Message: "max query bytes must be at least 1",
		})
	}

	return errs
}

// validateLive validates live monitoring configuration.
func validateLive(cfg *LiveConfig) []FieldError {
	var errs []FieldError

	if cfg.Enabled && cfg.Schedule == "" {
		errs = append(errs, FieldError{
			Field:   "live.schedule",
			Message: "schedule is required when live monitoring is enabled",
		})
	}

	return errs
}

// validateTelemetry validates telemetry configuration.
func validateTelemetry(cfg *TelemetryConfig) []FieldError {
	var errs []FieldError

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if cfg.Logging.Level == "" {
		errs = append(errs, FieldError{
			Field:   "telemetry.logging.level",
			Message: "logging level is required",
		})
	} else if !validLevels[cfg.Logging.Level] {
		errs = append(errs, FieldError{
			Field:   "telemetry.logging.level",
			Message: fmt.Sprintf("invalid logging level %q: must be 'debug', 'info', 'warn', or 'error'", cfg.Logging.Level),
		})
	}

	validFormats := map[string]bool{"json": true, "text": true}
	if cfg.Logging.Format == "" {
		errs = append(errs, FieldError{
			Field:   "telemetry.logging.format",
			Message: "logging format is required",
		})
	} else if !validFormats[cfg.Logging.Format] {
		errs = append(errs, FieldError{
			Field:   "telemetry.logging.format",
			Message: fmt.Sprintf("invalid logging format %q: must be 'json' or 'text'", cfg.Logging.Format),
		})
	}

	if cfg.Metrics.Enabled && cfg.Metrics.Path == "" {
		errs = append(errs, FieldError{
			Field:   "telemetry.metrics.path",
			Message: "metrics path is required when metrics are enabled",
		})
	}
	if cfg.Metrics.Path != "" && cfg.Metrics.Path[0] != '/' {
		errs = append(errs, FieldError{
			Field:   "telemetry.metrics.path",
			Message: "metrics path must start with /",
		})
	}

	return errs
}
