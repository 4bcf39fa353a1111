package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"warden-hq/warden/pkg/config"
)

// Format is the log output format.
type Format string

const (
	// FormatJSON outputs one JSON object per entry.
	FormatJSON Format = "json"

	// FormatText outputs key=value text entries.
	FormatText Format = "text"
)

// Setup builds a root logger from the logging config, installs it as the
// slog default, and returns it. Component loggers derived with
// slog.Default().With pick up the handler automatically.
func Setup(cfg *config.LoggingConfig) (*slog.Logger, error) {
	return SetupWithWriter(cfg, os.Stdout)
}

// SetupWithWriter is Setup with an explicit output writer, for tests.
func SetupWithWriter(cfg *config.LoggingConfig, w io.Writer) (*slog.Logger, error) {
	level, err := ParseLevel(cfg.Level)
	if err != nil {
		return nil, err
	}
	format, err := ParseFormat(cfg.Format)
	if err != nil {
		return nil, err
	}

	opts := &slog.HandlerOptions{
		Level:     level,
		AddSource: cfg.AddSource,
	}

	var handler slog.Handler
	switch format {
	case FormatText:
		handler = slog.NewTextHandler(w, opts)
	default:
		handler = slog.NewJSONHandler(w, opts)
	}

	logger := slog.New(&contextHandler{inner: handler})
	slog.SetDefault(logger)
	return logger, nil
}

// ParseLevel converts a config level string into a slog.Level. The empty
// string defaults to info.
func ParseLevel(level string) (slog.Level, error) {
	switch level {
	case "debug":
		return slog.LevelDebug, nil
	case "info", "":
		return slog.LevelInfo, nil
	case "warn":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("unknown log level: %q", level)
	}
}

// ParseFormat converts a config format string into a Format. The empty
// string defaults to JSON.
func ParseFormat(format string) (Format, error) {
	switch format {
	case "json", "":
		return FormatJSON, nil
	case "text":
		return FormatText, nil
	default:
		return FormatJSON, fmt.Errorf("unknown log format: %q", format)
	}
}
