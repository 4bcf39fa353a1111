// Package monitor runs the rule-checking pipeline and aggregates the
// results into violation reports.
//
// A run takes the current rule set, builds one candidate query per rule,
// validates it, executes it in the sandbox, and records the outcome as an
// immutable Record. Rules are processed in fixed-size batches with a
// bounded worker pool inside each batch; the output is equivalent to
// sequential processing, including input order. Per-rule failures are
// recorded as BLOCKED or ERROR records and never abort the run; an audit
// ledger write fault does.
//
// Each pass replaces the previous report for its mode wholesale. Main and
// live passes are stored separately so the dashboard endpoints can show
// both. The Watcher polls the live table on a cron schedule and triggers a
// live pass when the row count grows.
package monitor
