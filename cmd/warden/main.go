// Warden is a compliance monitoring engine for transactional datasets.
//
// It converts policy rules into read-only data-access queries, executes
// them inside a sandboxed query pipeline, and keeps an append-only audit
// ledger of every decision made along the way:
//   - Versioned rule repository with content-fingerprint deduplication
//   - Multi-stage query validation (SELECT-only, single statement,
//     keyword blocklist, size limits)
//   - Read-only sandboxed execution with a hard row cap
//   - Strictly-ordered append-only audit ledger
//   - Human-in-the-loop review decisions mirrored into the ledger
//
// Usage:
//
//	# Start the API server and monitoring pipeline
//	warden run
//
//	# Start with custom configuration file
//	warden run --config /path/to/config.yaml
//
//	# Run one compliance pass without the server
//	warden check
//
//	# Ingest rule descriptor files
//	warden ingest rules/*.json
//
//	# Query the audit ledger
//	warden audit --kind QUERY_BLOCKED --since 2026-08-01T00:00:00Z
//
//	# Record an analyst decision
//	warden decide --key RULE-7 --state CONFIRMED --analyst avu
//
//	# Load a transactions CSV into the dataset
//	warden seed --csv transactions.csv
package main

func main() {
	Execute()
}
