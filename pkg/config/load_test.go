package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestLoadConfig_ValidFile(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	configContent := `
server:
  listen_address: "0.0.0.0:8600"
  read_timeout: "60s"

dataset:
  path: "./test-transactions.db"
  table: "transactions"
  row_cap: 200
  sample_rows: 3

state:
  path: "./test-warden.db"

ledger:
  path: "./test-audit.db"

pipeline:
  batch_size: 10
  workers: 2

telemetry:
  logging:
    level: "debug"
    format: "text"
  metrics:
    enabled: true
`

	if err := os.WriteFile(configPath, []byte(configContent), 0644); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}

	cfg, err := LoadConfig(configPath)
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}

	if cfg.Server.ListenAddress != "0.0.0.0:8600" {
		t.Errorf("expected listen address %q, got %q", "0.0.0.0:8600", cfg.Server.ListenAddress)
	}
	if cfg.Server.ReadTimeout != 60*time.Second {
		t.Errorf("expected read timeout %v, got %v", 60*time.Second, cfg.Server.ReadTimeout)
	}
	if cfg.Dataset.RowCap != 200 {
		t.Errorf("expected row cap 200, got %d", cfg.Dataset.RowCap)
	}
	if cfg.Dataset.SampleRows != 3 {
		t.Errorf("expected sample rows 3, got %d", cfg.Dataset.SampleRows)
	}
	if cfg.Pipeline.BatchSize != 10 {
		t.Errorf("expected batch size 10, got %d", cfg.Pipeline.BatchSize)
	}
	if cfg.Telemetry.Logging.Level != "debug" {
		t.Errorf("expected logging level %q, got %q", "debug", cfg.Telemetry.Logging.Level)
	}

	// Unset fields fall back to defaults.
	if cfg.Dataset.LiveTable != DefaultDatasetLiveTable {
		t.Errorf("expected default live table, got %q", cfg.Dataset.LiveTable)
	}
	if cfg.Live.Schedule != DefaultLiveSchedule {
		t.Errorf("expected default live schedule, got %q", cfg.Live.Schedule)
	}
}

func TestLoadConfig_MissingFile(t *testing.T) {
	_, err := LoadConfig("/nonexistent/path/config.yaml")
	if err == nil {
		t.Fatal("expected error for missing file, got nil")
	}
	if !strings.Contains(err.Error(), "failed to read configuration file") {
		t.Errorf("unexpected error message: %v", err)
	}
}

func TestLoadConfig_InvalidYAML(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	if err := os.WriteFile(configPath, []byte("server: [not a mapping"), 0644); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}

	_, err := LoadConfig(configPath)
	if err == nil {
		t.Fatal("expected error for invalid YAML, got nil")
	}
	if !strings.Contains(err.Error(), "failed to parse configuration file") {
		t.Errorf("unexpected error message: %v", err)
	}
}

func TestLoadConfig_ValidationFailure(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	// A table name with embedded SQL is rejected by validation.
	configContent := `
dataset:
  table: "transactions; DROP TABLE x"
`
	if err := os.WriteFile(configPath, []byte(configContent), 0644); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}

	_, err := LoadConfig(configPath)
	if err == nil {
		t.Fatal("expected validation error, got nil")
	}

	var vErr ValidationError
	if !errors.As(err, &vErr) {
		t.Fatalf("expected ValidationError, got %T: %v", err, err)
	}
}

func TestLoadConfigWithEnvOverrides(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	configContent := `
server:
  listen_address: "127.0.0.1:8600"
dataset:
  row_cap: 100
`
	if err := os.WriteFile(configPath, []byte(configContent), 0644); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}

	t.Setenv("WARDEN_SERVER_LISTEN_ADDRESS", "0.0.0.0:9999")
	t.Setenv("WARDEN_DATASET_ROW_CAP", "250")
	t.Setenv("WARDEN_TELEMETRY_LOGGING_LEVEL", "warn")

	cfg, err := LoadConfigWithEnvOverrides(configPath)
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}

	if cfg.Server.ListenAddress != "0.0.0.0:9999" {
		t.Errorf("env override not applied: got %q", cfg.Server.ListenAddress)
	}
	if cfg.Dataset.RowCap != 250 {
		t.Errorf("env override not applied: got %d", cfg.Dataset.RowCap)
	}
	if cfg.Telemetry.Logging.Level != "warn" {
		t.Errorf("env override not applied: got %q", cfg.Telemetry.Logging.Level)
	}
}

func TestLoadConfigWithEnvOverrides_InvalidValueIgnored(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	if err := os.WriteFile(configPath, []byte("dataset:\n  row_cap: 100\n"), 0644); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}

	t.Setenv("WARDEN_DATASET_ROW_CAP", "not-a-number")

	cfg, err := LoadConfigWithEnvOverrides(configPath)
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}
	if cfg.Dataset.RowCap != 100 {
		t.Errorf("expected file value 100 to survive unparseable override, got %d", cfg.Dataset.RowCap)
	}
}

func TestDefaultIfMissing(t *testing.T) {
	t.Run("missing file yields defaults", func(t *testing.T) {
		cfg, err := DefaultIfMissing(filepath.Join(t.TempDir(), "absent.yaml"))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if cfg.Server.ListenAddress != DefaultListenAddress {
			t.Errorf("expected default listen address, got %q", cfg.Server.ListenAddress)
		}
		if cfg.State.Path != DefaultStatePath {
			t.Errorf("expected default state path, got %q", cfg.State.Path)
		}
	})

	t.Run("existing file is loaded", func(t *testing.T) {
		tmpDir := t.TempDir()
		configPath := filepath.Join(tmpDir, "config.yaml")
		if err := os.WriteFile(configPath, []byte("pipeline:\n  batch_size: 9\n"), 0644); err != nil {
			t.Fatalf("failed to write config file: %v", err)
		}

		cfg, err := DefaultIfMissing(configPath)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if cfg.Pipeline.BatchSize != 9 {
			t.Errorf("expected batch size 9 from file, got %d", cfg.Pipeline.BatchSize)
		}
	})
}
