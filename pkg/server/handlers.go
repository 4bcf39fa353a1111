package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"warden-hq/warden/pkg/hitl"
	"warden-hq/warden/pkg/ledger"
	"warden-hq/warden/pkg/monitor"
)

// defaultAuditLimit caps audit-log responses when the caller supplies no
// limit of their own.
const defaultAuditLimit = 100

// handleHealth reports liveness. The ledger sequence doubles as a cheap
// audit-store reachability signal: it is only ever read from memory, but
// a process that lost its ledger never got this far.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.mu.RLock()
	startedAt := s.startedAt
	s.mu.RUnlock()

	uptime := int64(0)
	if !startedAt.IsZero() {
		uptime = int64(time.Since(startedAt).Seconds())
	}

	writeJSON(w, http.StatusOK, healthResponse{
		Status:        "ok",
		Version:       s.deps.Version,
		UptimeSeconds: uptime,
		LedgerSeq:     s.deps.Ledger.LastSeq(),
	})
}

// handleStats aggregates counts across all stores.
func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	set, err := s.deps.Rules.CurrentSet(ctx)
	if err != nil {
		writeError(w, http.StatusInternalServerError, codeInternal, fmt.Sprintf("failed to load rules: %v", err))
		return
	}
	snapshots, err := s.deps.Rules.Snapshots(ctx)
	if err != nil {
		writeError(w, http.StatusInternalServerError, codeInternal, fmt.Sprintf("failed to load snapshots: %v", err))
		return
	}
	events, err := s.deps.Ledger.Count(ctx, &ledger.Query{})
	if err != nil {
		writeError(w, http.StatusInternalServerError, codeInternal, fmt.Sprintf("failed to count audit events: %v", err))
		return
	}
	decisions, err := s.deps.Decisions.Summarize(ctx)
	if err != nil {
		writeError(w, http.StatusInternalServerError, codeInternal, fmt.Sprintf("failed to summarize decisions: %v", err))
		return
	}

	stats := statsResponse{
		Rules:        len(set),
		Snapshots:    len(snapshots),
		LedgerEvents: events,
		Decisions:    decisions,
	}

	if report, err := s.deps.Reports.Report(ctx, monitor.ModeMain); err == nil {
		stats.Main = summarize(report)
	}
	if report, err := s.deps.Reports.Report(ctx, monitor.ModeLive); err == nil {
		stats.Live = summarize(report)
	}

	writeJSON(w, http.StatusOK, stats)
}

// handleRules returns the live rule set.
func (s *Server) handleRules(w http.ResponseWriter, r *http.Request) {
	set, err := s.deps.Rules.CurrentSet(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, codeInternal, fmt.Sprintf("failed to load rules: %v", err))
		return
	}
	writeJSON(w, http.StatusOK, rulesResponse{Count: len(set), Rules: set})
}

// handleVersions lists snapshot summaries in creation order.
func (s *Server) handleVersions(w http.ResponseWriter, r *http.Request) {
	snapshots, err := s.deps.Rules.Snapshots(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, codeInternal, fmt.Sprintf("failed to load snapshots: %v", err))
		return
	}

	summaries := make([]snapshotSummary, 0, len(snapshots))
	for i := range snapshots {
		summaries = append(summaries, snapshotSummary{
			Version:   snapshots[i].Version,
			CreatedAt: snapshots[i].CreatedAt,
			Note:      snapshots[i].Note,
			RuleCount: len(snapshots[i].Rules),
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{"count": len(summaries), "versions": summaries})
}

// handleVersion returns one full snapshot including its rules.
func (s *Server) handleVersion(w http.ResponseWriter, r *http.Request) {
	version, err := strconv.ParseInt(r.PathValue("version"), 10, 64)
	if err != nil || version < 1 {
		writeError(w, http.StatusBadRequest, codeBadRequest, "version must be a positive integer")
		return
	}

	snapshot, err := s.deps.Rules.RulesAt(r.Context(), version)
	if err != nil {
		writeError(w, http.StatusNotFound, codeNotFound, fmt.Sprintf("snapshot version %d not found", version))
		return
	}
	writeJSON(w, http.StatusOK, snapshot)
}

// handleViolations returns the latest report, main by default or live
// with ?live=1.
func (s *Server) handleViolations(w http.ResponseWriter, r *http.Request) {
	mode := monitor.ModeMain
	if isTruthy(r.URL.Query().Get("live")) {
		mode = monitor.ModeLive
	}

	report, err := s.deps.Reports.Report(r.Context(), mode)
	if err != nil {
		if errors.Is(err, monitor.ErrReportNotFound) {
			writeError(w, http.StatusNotFound, codeNotFound, fmt.Sprintf("no %s report recorded yet", mode))
			return
		}
		writeError(w, http.StatusInternalServerError, codeInternal, fmt.Sprintf("failed to load report: %v", err))
		return
	}
	writeJSON(w, http.StatusOK, report)
}

// handleAuditLog returns filtered audit events in ascending sequence
// order. Filters: kind (comma-separated), rule, since, until (RFC 3339),
// limit.
func (s *Server) handleAuditLog(w http.ResponseWriter, r *http.Request) {
	params := r.URL.Query()

	query := &ledger.Query{
		RuleID: params.Get("rule"),
		Limit:  defaultAuditLimit,
	}

	if kinds := params.Get("kind"); kinds != "" {
		for _, kind := range strings.Split(kinds, ",") {
			query.Kinds = append(query.Kinds, ledger.EventKind(strings.TrimSpace(kind)))
		}
	}
	if since := params.Get("since"); since != "" {
		t, err := time.Parse(time.RFC3339, since)
		if err != nil {
			writeError(w, http.StatusBadRequest, codeBadRequest, "since must be RFC 3339")
			return
		}
		query.Since = &t
	}
	if until := params.Get("until"); until != "" {
		t, err := time.Parse(time.RFC3339, until)
		if err != nil {
			writeError(w, http.StatusBadRequest, codeBadRequest, "until must be RFC 3339")
			return
		}
		query.Until = &t
	}
	if limit := params.Get("limit"); limit != "" {
		n, err := strconv.Atoi(limit)
		if err != nil || n < 0 {
			writeError(w, http.StatusBadRequest, codeBadRequest, "limit must be a non-negative integer")
			return
		}
		query.Limit = n
	}

	events, err := s.deps.Ledger.Query(r.Context(), query)
	if err != nil {
		writeError(w, http.StatusInternalServerError, codeInternal, fmt.Sprintf("failed to query audit log: %v", err))
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"count": len(events), "events": events})
}

// handleDecision records an analyst decision. The decision store appends
// the audit event before touching current state; a ledger write fault
// comes back as 500 with a dedicated code because the run must not go on
// without audit capability.
func (s *Server) handleDecision(w http.ResponseWriter, r *http.Request) {
	var req decisionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, "invalid JSON body")
		return
	}
	if req.Key == "" {
		writeError(w, http.StatusBadRequest, codeBadRequest, "key is required")
		return
	}
	if req.Analyst == "" {
		writeError(w, http.StatusBadRequest, codeBadRequest, "analyst is required")
		return
	}

	state := hitl.State(strings.ToUpper(req.State))
	if !state.IsValid() {
		writeError(w, http.StatusBadRequest, codeInvalidState,
			fmt.Sprintf("state must be one of %v", hitl.ValidStates()))
		return
	}

	decision, err := s.deps.Decisions.Decide(r.Context(), req.Key, state, req.Analyst, req.Notes)
	if err != nil {
		var fault *ledger.WriteFault
		if errors.As(err, &fault) {
			if s.deps.Metrics != nil {
				s.deps.Metrics.RecordLedgerWriteFault()
			}
			writeError(w, http.StatusInternalServerError, codeLedgerFault,
				"audit ledger write failed; decision not recorded")
			return
		}
		writeError(w, http.StatusInternalServerError, codeInternal, fmt.Sprintf("failed to record decision: %v", err))
		return
	}

	if s.deps.Metrics != nil {
		s.deps.Metrics.RecordDecision(string(decision.State))
	}
	writeJSON(w, http.StatusOK, decision)
}

// handleRunTrigger starts a pipeline run in the background. ?live=1
// selects the live runner. While any run is active further triggers get
// 409.
func (s *Server) handleRunTrigger(w http.ResponseWriter, r *http.Request) {
	runner := s.deps.Runner
	if isTruthy(r.URL.Query().Get("live")) {
		runner = s.deps.LiveRunner
	}
	if runner == nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, "requested run mode is not configured")
		return
	}

	// The run outlives the HTTP request; it stops with the server, not
	// with the client connection.
	if err := s.runs.Trigger(s.runContext(), runner); err != nil {
		if errors.Is(err, ErrRunInProgress) {
			writeError(w, http.StatusConflict, codeRunInProgress, err.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, codeInternal, err.Error())
		return
	}

	writeJSON(w, http.StatusAccepted, map[string]any{
		"status": "started",
		"mode":   runner.Mode(),
	})
}

// handleRunStatus reports the coordinator state.
func (s *Server) handleRunStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.runs.Status())
}

// isTruthy interprets common query-parameter truth spellings.
func isTruthy(value string) bool {
	switch strings.ToLower(value) {
	case "1", "true", "yes":
		return true
	}
	return false
}
