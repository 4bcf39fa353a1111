package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"warden-hq/warden/pkg/config"
	"warden-hq/warden/pkg/hitl"
	hitlstorage "warden-hq/warden/pkg/hitl/storage"
	"warden-hq/warden/pkg/ledger"
	ledgerstorage "warden-hq/warden/pkg/ledger/storage"
	"warden-hq/warden/pkg/monitor"
	monitorstorage "warden-hq/warden/pkg/monitor/storage"
	"warden-hq/warden/pkg/query"
	"warden-hq/warden/pkg/rules"
	rulesstorage "warden-hq/warden/pkg/rules/storage"
	"warden-hq/warden/pkg/sandbox"
	"warden-hq/warden/pkg/telemetry/metrics"
)

// stubExecutor returns a fixed result, optionally blocking until released
// so conflict behavior can be observed.
type stubExecutor struct {
	count   int64
	release chan struct{}
}

func (s *stubExecutor) Execute(ctx context.Context, text string) (*sandbox.Result, error) {
	if s.release != nil {
		select {
		case <-s.release:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return &sandbox.Result{
		Count:   s.count,
		Columns: []string{"acct", "amount"},
		Rows:    []map[string]any{{"acct": "A-1", "amount": 12000.0}},
	}, nil
}

// testServer bundles the server with the stores tests poke directly.
type testServer struct {
	server    *Server
	repo      *rules.Repository
	reports   monitor.Storage
	ledger    *ledger.Ledger
	decisions *hitl.Store
}

func newTestServer(t *testing.T, executor monitor.Executor) *testServer {
	t.Helper()

	auditLedger, err := ledger.New(ledgerstorage.NewMemoryStorage())
	if err != nil {
		t.Fatalf("failed to create ledger: %v", err)
	}

	repo := rules.NewRepository(rulesstorage.NewMemoryStorage(), auditLedger)
	reports := monitorstorage.NewMemoryStorage()
	decisions := hitl.NewStore(hitlstorage.NewMemoryStorage(), auditLedger)

	if executor == nil {
		executor = &stubExecutor{count: 42}
	}
	runner := monitor.NewRunner(nil, repo,
		query.NewTemplateProducer("transactions", nil),
		query.NewValidator(0), executor, reports, auditLedger)

	collector := metrics.NewCollector(&config.MetricsConfig{
		Enabled: true, Path: "/metrics", Namespace: "warden", Subsystem: "core",
	}, nil)

	cfg := &config.Config{}
	config.ApplyDefaults(cfg)

	srv := NewServer(&cfg.Server, &Deps{
		Rules:     repo,
		Reports:   reports,
		Ledger:    auditLedger,
		Decisions: decisions,
		Runner:    runner,
		Metrics:   collector,
		Version:   "test",
	})

	return &testServer{
		server:    srv,
		repo:      repo,
		reports:   reports,
		ledger:    auditLedger,
		decisions: decisions,
	}
}

func (ts *testServer) ingestRules(t *testing.T, candidates ...rules.Rule) {
	t.Helper()
	result, err := ts.repo.Ingest(context.Background(), candidates)
	if err != nil {
		t.Fatalf("ingest failed: %v", err)
	}
	if len(result.Rejected) > 0 {
		t.Fatalf("ingest rejected %d rules: %v", len(result.Rejected), result.Rejected[0])
	}
}

func (ts *testServer) do(t *testing.T, method, target string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("failed to marshal body: %v", err)
		}
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, target, reader)
	rec := httptest.NewRecorder()
	ts.server.Handler().ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("failed to decode response: %v\nbody: %s", err, rec.Body.String())
	}
	return out
}

func thresholdRule(id string) rules.Rule {
	return rules.Rule{
		ID:          id,
		Kind:        rules.KindThreshold,
		Description: "large transaction",
		Field:       "amount",
		Operator:    ">",
		Threshold:   10000,
	}
}

func TestHealthEndpoint(t *testing.T) {
	ts := newTestServer(t, nil)

	rec := ts.do(t, http.MethodGet, "/api/health", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	health := decode[healthResponse](t, rec)
	if health.Status != "ok" {
		t.Errorf("status = %q, want ok", health.Status)
	}
	if health.Version != "test" {
		t.Errorf("version = %q, want test", health.Version)
	}
}

func TestRulesEndpoint(t *testing.T) {
	ts := newTestServer(t, nil)
	ts.ingestRules(t, thresholdRule("r1"), rules.Rule{
		ID: "r2", Kind: rules.KindJurisdiction, Description: "sanctioned countries",
		Field: "country", Operator: "IN", Threshold: []any{"KP", "IR"},
	})

	rec := ts.do(t, http.MethodGet, "/api/rules", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	resp := decode[rulesResponse](t, rec)
	if resp.Count != 2 || len(resp.Rules) != 2 {
		t.Errorf("count = %d (len %d), want 2", resp.Count, len(resp.Rules))
	}
}

func TestVersionsEndpoints(t *testing.T) {
	ts := newTestServer(t, nil)
	ts.ingestRules(t, thresholdRule("r1"))
	ts.ingestRules(t, rules.Rule{
		ID: "r2", Kind: rules.KindThreshold, Description: "very large",
		Field: "amount", Operator: ">", Threshold: 50000,
	})

	rec := ts.do(t, http.MethodGet, "/api/versions", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("versions status = %d, want 200", rec.Code)
	}
	list := decode[struct {
		Count    int               `json:"count"`
		Versions []snapshotSummary `json:"versions"`
	}](t, rec)
	if list.Count != 2 {
		t.Fatalf("snapshot count = %d, want 2", list.Count)
	}

	// Snapshot 2 is the pre-mutation set of the second ingest: one rule.
	rec = ts.do(t, http.MethodGet, "/api/versions/2", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("version status = %d, want 200", rec.Code)
	}
	snapshot := decode[rules.Snapshot](t, rec)
	if snapshot.Version != 2 {
		t.Errorf("version = %d, want 2", snapshot.Version)
	}
	if len(snapshot.Rules) != 1 {
		t.Errorf("snapshot rules = %d, want 1", len(snapshot.Rules))
	}

	rec = ts.do(t, http.MethodGet, "/api/versions/99", nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("missing version status = %d, want 404", rec.Code)
	}

	rec = ts.do(t, http.MethodGet, "/api/versions/zero", nil)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("bad version status = %d, want 400", rec.Code)
	}
}

func TestViolationsEndpoint(t *testing.T) {
	ts := newTestServer(t, nil)

	rec := ts.do(t, http.MethodGet, "/api/violations", nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status before any run = %d, want 404", rec.Code)
	}

	report := &monitor.Report{
		RunID: "run-1", Mode: monitor.ModeMain,
		StartedAt: time.Now().UTC(), FinishedAt: time.Now().UTC(),
		RulesChecked: 1, Violations: 1, TotalRows: 42,
		Records: []monitor.Record{{RuleID: "r1", Status: monitor.StatusSuccess, RowCount: 42}},
	}
	if err := ts.reports.ReplaceReport(context.Background(), report); err != nil {
		t.Fatalf("failed to store report: %v", err)
	}

	rec = ts.do(t, http.MethodGet, "/api/violations", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	got := decode[monitor.Report](t, rec)
	if got.RunID != "run-1" || len(got.Records) != 1 {
		t.Errorf("unexpected report: run_id=%q records=%d", got.RunID, len(got.Records))
	}

	rec = ts.do(t, http.MethodGet, "/api/violations?live=1", nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("live status = %d, want 404 (no live run)", rec.Code)
	}
}

func TestAuditLogEndpoint(t *testing.T) {
	ts := newTestServer(t, nil)
	ts.ingestRules(t, thresholdRule("r1"))

	rec := ts.do(t, http.MethodGet, "/api/audit-log", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	all := decode[struct {
		Count  int             `json:"count"`
		Events []*ledger.Event `json:"events"`
	}](t, rec)
	if all.Count == 0 {
		t.Fatal("expected audit events after ingest")
	}
	for i := 1; i < len(all.Events); i++ {
		if all.Events[i].Seq <= all.Events[i-1].Seq {
			t.Fatalf("events not in ascending seq order at %d", i)
		}
	}

	rec = ts.do(t, http.MethodGet, "/api/audit-log?kind=SNAPSHOT_CREATED", nil)
	filtered := decode[struct {
		Count  int             `json:"count"`
		Events []*ledger.Event `json:"events"`
	}](t, rec)
	if filtered.Count != 1 {
		t.Errorf("SNAPSHOT_CREATED count = %d, want 1", filtered.Count)
	}

	rec = ts.do(t, http.MethodGet, "/api/audit-log?since=yesterday", nil)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("bad since status = %d, want 400", rec.Code)
	}

	rec = ts.do(t, http.MethodGet, "/api/audit-log?limit=-3", nil)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("bad limit status = %d, want 400", rec.Code)
	}
}

func TestDecisionEndpoint(t *testing.T) {
	ts := newTestServer(t, nil)

	rec := ts.do(t, http.MethodPost, "/api/hitl-decision", decisionRequest{
		Key: "r1", State: "confirmed", Analyst: "alice", Notes: "verified",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200\nbody: %s", rec.Code, rec.Body.String())
	}
	decision := decode[hitl.Decision](t, rec)
	if decision.State != hitl.StateConfirmed {
		t.Errorf("state = %q, want CONFIRMED", decision.State)
	}

	// The decision mirrored into the ledger.
	events, err := ts.ledger.Query(context.Background(), &ledger.Query{
		Kinds: []ledger.EventKind{ledger.KindDecision},
	})
	if err != nil {
		t.Fatalf("ledger query failed: %v", err)
	}
	if len(events) != 1 {
		t.Fatalf("decision events = %d, want 1", len(events))
	}

	tests := []struct {
		name string
		body decisionRequest
		want int
	}{
		{name: "missing key", body: decisionRequest{State: "CONFIRMED", Analyst: "alice"}, want: http.StatusBadRequest},
		{name: "missing analyst", body: decisionRequest{Key: "r1", State: "CONFIRMED"}, want: http.StatusBadRequest},
		{name: "invalid state", body: decisionRequest{Key: "r1", State: "MAYBE", Analyst: "alice"}, want: http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := ts.do(t, http.MethodPost, "/api/hitl-decision", tt.body)
			if rec.Code != tt.want {
				t.Errorf("status = %d, want %d", rec.Code, tt.want)
			}
		})
	}
}

func TestStatsEndpoint(t *testing.T) {
	ts := newTestServer(t, nil)
	ts.ingestRules(t, thresholdRule("r1"))
	if _, err := ts.decisions.Decide(context.Background(), "r1", hitl.StateEscalated, "bob", ""); err != nil {
		t.Fatalf("decide failed: %v", err)
	}

	rec := ts.do(t, http.MethodGet, "/api/stats", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	stats := decode[statsResponse](t, rec)
	if stats.Rules != 1 {
		t.Errorf("rules = %d, want 1", stats.Rules)
	}
	if stats.Snapshots != 1 {
		t.Errorf("snapshots = %d, want 1", stats.Snapshots)
	}
	if stats.LedgerEvents == 0 {
		t.Error("ledger_events = 0, want > 0")
	}
	if stats.Decisions[hitl.StateEscalated] != 1 {
		t.Errorf("escalated decisions = %d, want 1", stats.Decisions[hitl.StateEscalated])
	}
}

func TestRunTriggerAndStatus(t *testing.T) {
	release := make(chan struct{})
	executor := &stubExecutor{count: 7, release: release}
	ts := newTestServer(t, executor)
	ts.ingestRules(t, thresholdRule("r1"))

	rec := ts.do(t, http.MethodPost, "/api/run", nil)
	if rec.Code != http.StatusAccepted {
		t.Fatalf("first trigger status = %d, want 202\nbody: %s", rec.Code, rec.Body.String())
	}

	// Second trigger while the stub executor blocks the first run.
	deadline := time.Now().Add(2 * time.Second)
	for {
		rec = ts.do(t, http.MethodPost, "/api/run", nil)
		if rec.Code == http.StatusConflict {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("second trigger status = %d, want 409", rec.Code)
		}
		time.Sleep(5 * time.Millisecond)
	}

	close(release)

	// The run finishes and status reflects it.
	deadline = time.Now().Add(2 * time.Second)
	for {
		status := decode[runStatusResponse](t, ts.do(t, http.MethodGet, "/api/run/status", nil))
		if !status.Running && status.Last != nil {
			if status.Last.RulesChecked != 1 {
				t.Errorf("last.rules_checked = %d, want 1", status.Last.RulesChecked)
			}
			if status.Last.TotalRows != 7 {
				t.Errorf("last.total_rows = %d, want 7", status.Last.TotalRows)
			}
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("run never finished")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestRunTriggerWithoutLiveRunner(t *testing.T) {
	ts := newTestServer(t, nil)

	rec := ts.do(t, http.MethodPost, "/api/run?live=1", nil)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400 when live runner absent", rec.Code)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	ts := newTestServer(t, nil)

	rec := ts.do(t, http.MethodGet, "/metrics", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if rec.Body.Len() == 0 {
		t.Error("empty exposition body")
	}
}

func TestRequestIDMiddleware(t *testing.T) {
	ts := newTestServer(t, nil)

	rec := ts.do(t, http.MethodGet, "/api/health", nil)
	if rec.Header().Get(requestIDHeader) == "" {
		t.Error("response missing generated request ID")
	}

	req := httptest.NewRequest(http.MethodGet, "/api/health", nil)
	req.Header.Set(requestIDHeader, "client-id-1")
	out := httptest.NewRecorder()
	ts.server.Handler().ServeHTTP(out, req)
	if got := out.Header().Get(requestIDHeader); got != "client-id-1" {
		t.Errorf("request ID = %q, want client-supplied client-id-1", got)
	}
}

func TestCORSPreflight(t *testing.T) {
	ts := newTestServer(t, nil)

	req := httptest.NewRequest(http.MethodOptions, "/api/rules", nil)
	req.Header.Set("Origin", "https://dashboard.example.com")
	rec := httptest.NewRecorder()
	ts.server.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusNoContent {
		t.Fatalf("preflight status = %d, want 204", rec.Code)
	}
	if rec.Header().Get("Access-Control-Allow-Origin") != "*" {
		t.Errorf("Allow-Origin = %q, want *", rec.Header().Get("Access-Control-Allow-Origin"))
	}
	if rec.Header().Get("Access-Control-Allow-Methods") == "" {
		t.Error("preflight missing Allow-Methods")
	}
}

func TestRecoveryMiddleware(t *testing.T) {
	panicking := http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	})
	handler := recoveryMiddleware(panicking)

	req := httptest.NewRequest(http.MethodGet, "/api/anything", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", rec.Code)
	}
	var body map[string]apiError
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("error body is not JSON: %v", err)
	}
	if body["error"].Code != codeInternal {
		t.Errorf("error code = %q, want %q", body["error"].Code, codeInternal)
	}
}

func TestUnknownRouteReturns404(t *testing.T) {
	ts := newTestServer(t, nil)
	rec := ts.do(t, http.MethodGet, "/api/nope", nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}
}
