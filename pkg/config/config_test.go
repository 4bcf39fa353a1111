package config

import (
	"testing"
	"time"
)

func TestNewTestConfig(t *testing.T) {
	cfg := NewTestConfig().Build()

	if cfg.Server.ListenAddress != DefaultListenAddress {
		t.Errorf("expected listen address %q, got %q", DefaultListenAddress, cfg.Server.ListenAddress)
	}
	if cfg.Server.ReadTimeout != DefaultReadTimeout {
		t.Errorf("expected read timeout %v, got %v", DefaultReadTimeout, cfg.Server.ReadTimeout)
	}
	if cfg.Dataset.Table != DefaultDatasetTable {
		t.Errorf("expected table %q, got %q", DefaultDatasetTable, cfg.Dataset.Table)
	}
	if cfg.Pipeline.BatchSize != DefaultBatchSize {
		t.Errorf("expected batch size %d, got %d", DefaultBatchSize, cfg.Pipeline.BatchSize)
	}

	// The builder output must pass validation as-is.
	if err := Validate(cfg); err != nil {
		t.Errorf("test config failed validation: %v", err)
	}
}

func TestConfigBuilder_Overrides(t *testing.T) {
	cfg := NewTestConfig().
		WithListenAddress("0.0.0.0:9000").
		WithStatePath("/tmp/state.db").
		WithRowCap(50).
		WithQueryTimeout(10 * time.Second).
		Build()

	if cfg.Server.ListenAddress != "0.0.0.0:9000" {
		t.Errorf("expected overridden listen address, got %q", cfg.Server.ListenAddress)
	}
	if cfg.State.Path != "/tmp/state.db" {
		t.Errorf("expected overridden state path, got %q", cfg.State.Path)
	}
	if cfg.Dataset.RowCap != 50 {
		t.Errorf("expected row cap 50, got %d", cfg.Dataset.RowCap)
	}
	if cfg.Dataset.QueryTimeout != 10*time.Second {
		t.Errorf("expected query timeout 10s, got %v", cfg.Dataset.QueryTimeout)
	}
}

func TestConfigBuilder_BuildCopies(t *testing.T) {
	b := NewTestConfig()
	first := b.Build()
	b.WithRowCap(7)
	second := b.Build()

	if first.Dataset.RowCap == 7 {
		t.Error("expected earlier Build result to be unaffected by later overrides")
	}
	if second.Dataset.RowCap != 7 {
		t.Errorf("expected second build to carry override, got %d", second.Dataset.RowCap)
	}
}
