package server

import (
	"encoding/json"
	"net/http"
	"time"

	"warden-hq/warden/pkg/hitl"
	"warden-hq/warden/pkg/monitor"
	"warden-hq/warden/pkg/rules"
)

// apiError is the JSON error envelope. Code is machine-readable and
// stable; Message is for humans.
type apiError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Stable error codes returned by the API.
const (
	codeBadRequest    = "BAD_REQUEST"
	codeNotFound      = "NOT_FOUND"
	codeRunInProgress = "RUN_IN_PROGRESS"
	codeInternal      = "INTERNAL"
	codeLedgerFault   = "LEDGER_WRITE_FAULT"
	codeInvalidState  = "INVALID_STATE"
)

// healthResponse is the GET /api/health body.
type healthResponse struct {
	Status        string `json:"status"`
	Version       string `json:"version"`
	UptimeSeconds int64  `json:"uptime_seconds"`
	LedgerSeq     uint64 `json:"ledger_seq"`
}

// statsResponse is the GET /api/stats body.
type statsResponse struct {
	Rules        int                  `json:"rules"`
	Snapshots    int                  `json:"snapshots"`
	LedgerEvents int64                `json:"ledger_events"`
	Decisions    map[hitl.State]int64 `json:"decisions"`
	Main         *reportSummary       `json:"main,omitempty"`
	Live         *reportSummary       `json:"live,omitempty"`
}

// reportSummary is a report without its records, for list endpoints.
type reportSummary struct {
	RunID        string       `json:"run_id"`
	Mode         monitor.Mode `json:"mode"`
	StartedAt    time.Time    `json:"started_at"`
	FinishedAt   time.Time    `json:"finished_at"`
	RulesChecked int          `json:"rules_checked"`
	Violations   int          `json:"violations"`
	Blocked      int          `json:"blocked"`
	Errors       int          `json:"errors"`
	TotalRows    int64        `json:"total_rows"`
}

// summarize strips the records off a report.
func summarize(report *monitor.Report) *reportSummary {
	if report == nil {
		return nil
	}
	return &reportSummary{
		RunID:        report.RunID,
		Mode:         report.Mode,
		StartedAt:    report.StartedAt,
		FinishedAt:   report.FinishedAt,
		RulesChecked: report.RulesChecked,
		Violations:   report.Violations,
		Blocked:      report.Blocked,
		Errors:       report.Errors,
		TotalRows:    report.TotalRows,
	}
}

// rulesResponse is the GET /api/rules body.
type rulesResponse struct {
	Count int          `json:"count"`
	Rules []rules.Rule `json:"rules"`
}

// snapshotSummary is one entry in the GET /api/versions body.
type snapshotSummary struct {
	Version   int64     `json:"version"`
	CreatedAt time.Time `json:"created_at"`
	Note      string    `json:"note,omitempty"`
	RuleCount int       `json:"rule_count"`
}

// decisionRequest is the POST /api/hitl-decision body.
type decisionRequest struct {
	Key     string `json:"key"`
	State   string `json:"state"`
	Analyst string `json:"analyst"`
	Notes   string `json:"notes"`
}

// runStatusResponse is the GET /api/run/status body.
type runStatusResponse struct {
	Running   bool           `json:"running"`
	Mode      monitor.Mode   `json:"mode,omitempty"`
	StartedAt *time.Time     `json:"started_at,omitempty"`
	Last      *reportSummary `json:"last,omitempty"`
	LastError string         `json:"last_error,omitempty"`
}

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

// writeError writes the JSON error envelope.
func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, map[string]apiError{"error": {Code: code, Message: message}})
}
