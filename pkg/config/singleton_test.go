package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestSetConfigAndGetConfig(t *testing.T) {
	t.Cleanup(func() { SetConfig(nil) })

	cfg := &Config{}
	ApplyDefaults(cfg)
	cfg.Server.ListenAddress = "127.0.0.1:7777"
	SetConfig(cfg)

	got := GetConfig()
	if got == nil {
		t.Fatal("GetConfig returned nil after SetConfig")
	}
	if got.Server.ListenAddress != "127.0.0.1:7777" {
		t.Errorf("expected installed config, got listen address %q", got.Server.ListenAddress)
	}
}

func TestReloadConfig(t *testing.T) {
	t.Cleanup(func() { SetConfig(nil) })

	configPath := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(configPath, []byte("pipeline:\n  batch_size: 7\n"), 0644); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}

	defaults := &Config{}
	ApplyDefaults(defaults)
	SetConfig(defaults)

	if err := ReloadConfig(configPath); err != nil {
		t.Fatalf("ReloadConfig failed: %v", err)
	}
	if got := GetConfig().Pipeline.BatchSize; got != 7 {
		t.Errorf("expected batch size 7 after reload, got %d", got)
	}
}

func TestReloadConfig_FailureKeepsCurrent(t *testing.T) {
	t.Cleanup(func() { SetConfig(nil) })

	installed := &Config{}
	ApplyDefaults(installed)
	installed.Pipeline.BatchSize = 42
	SetConfig(installed)

	if err := ReloadConfig(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Fatal("expected error for missing file, got nil")
	}
	if got := GetConfig(); got != installed {
		t.Error("failed reload must leave the running configuration in place")
	}
}

func TestMustGetConfig_PanicsUninitialized(t *testing.T) {
	t.Cleanup(func() { SetConfig(nil) })

	SetConfig(nil)
	defer func() {
		if recover() == nil {
			t.Error("expected MustGetConfig to panic with no configuration installed")
		}
	}()
	MustGetConfig()
}
