// Package metrics provides Prometheus metrics for Warden.
//
// The Collector owns the registry and the event-driven metrics: pipeline
// run counts and durations, rules checked, violation rows, blocked
// queries by reason, execution errors, ingest outcomes, and review
// decisions. The StateCollector complements it with scrape-time gauges
// read straight from the audit ledger and the decision store, so ledger
// event totals and current decision states are always consistent with
// what those stores actually hold.
package metrics
