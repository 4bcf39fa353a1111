package config

import (
	"fmt"
	"sync"
)

// The process-wide configuration. Guarded by mu; written once by
// Initialize and replaced atomically by ReloadConfig or SetConfig.
var (
	current *Config
	mu      sync.RWMutex
	once    sync.Once
)

// Initialize loads the configuration from path, applies environment
// overrides, and installs it as the process-wide instance. Only the
// first call does anything; later calls return nil without reloading.
func Initialize(path string) error {
	var initErr error
	once.Do(func() {
		cfg, err := LoadConfigWithEnvOverrides(path)
		if err != nil {
			initErr = err
			return
		}
		mu.Lock()
		current = cfg
		mu.Unlock()
	})
	return initErr
}

// GetConfig returns the process-wide configuration, or nil before a
// successful Initialize. Components that can take a *Config directly
// should; the singleton exists for the paths that cannot.
func GetConfig() *Config {
	mu.RLock()
	defer mu.RUnlock()
	return current
}

// SetConfig replaces the process-wide configuration. Tests use this to
// install a known instance without touching the filesystem.
func SetConfig(cfg *Config) {
	mu.Lock()
	defer mu.Unlock()
	current = cfg
}

// ReloadConfig re-reads the configuration from path and swaps it in.
// On any load or validation failure the running configuration stays as
// it was.
func ReloadConfig(path string) error {
	cfg, err := LoadConfigWithEnvOverrides(path)
	if err != nil {
		return fmt.Errorf("failed to reload configuration: %w", err)
	}
	SetConfig(cfg)
	return nil
}

// MustGetConfig is GetConfig for call sites that run strictly after
// startup; it panics when no configuration has been installed.
func MustGetConfig() *Config {
	cfg := GetConfig()
	if cfg == nil {
		panic("configuration not initialized: call Initialize first")
	}
	return cfg
}
