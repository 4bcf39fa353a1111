// Package server provides the Warden HTTP API.
//
// The API is the read surface over the core stores plus the two write
// operations the product exposes: recording an analyst decision and
// triggering a pipeline run. Rule mutation happens through the ingest
// pipeline, not the API, and nothing here can write to the dataset or
// the audit ledger directly.
//
// Routes:
//
//	GET  /api/health        liveness plus store reachability
//	GET  /api/stats         rule, report, ledger, and decision summaries
//	GET  /api/rules         current rule set
//	GET  /api/versions      rule-set snapshot summaries
//	GET  /api/versions/{n}  one full snapshot
//	GET  /api/violations    latest report (?live=1 for the live pass)
//	GET  /api/audit-log     filtered audit events
//	POST /api/hitl-decision record an analyst decision
//	POST /api/run           trigger a pipeline run (409 while one is active)
//	GET  /api/run/status    current and last run state
//	GET  /metrics           Prometheus exposition
//
// Every handler runs behind the recovery, request ID, logging, and CORS
// middleware chain.
package server
