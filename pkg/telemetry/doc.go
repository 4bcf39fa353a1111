// Package telemetry provides observability for Warden.
//
// Subpackages:
//   - logging: structured logging built on log/slog, configured from the
//     telemetry.logging config section
//   - metrics: Prometheus metrics for pipeline runs, validation outcomes,
//     the audit ledger, and review decisions
package telemetry
