// Package logging configures structured logging for Warden.
//
// All packages log through log/slog with component-scoped loggers
// (slog.Default().With("component", ...)). This package owns the process
// setup: it builds the root handler from the telemetry.logging config
// section and installs it as the slog default, and it carries the request
// ID through context so HTTP handlers and the packages they call log
// correlated entries.
package logging
