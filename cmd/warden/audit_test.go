package main

import (
	"testing"
	"time"

	"warden-hq/warden/pkg/ledger"
)

func TestBuildAuditQuery(t *testing.T) {
	t.Run("kinds and rule", func(t *testing.T) {
		filter, err := buildAuditQuery([]string{"query_blocked", "PIPELINE_RUN"}, "RULE-1", "", "", 50)
		if err != nil {
			t.Fatalf("buildAuditQuery failed: %v", err)
		}
		if len(filter.Kinds) != 2 {
			t.Fatalf("got %d kinds, want 2", len(filter.Kinds))
		}
		if filter.Kinds[0] != ledger.KindQueryBlocked {
			t.Errorf("Kinds[0] = %q, want %q", filter.Kinds[0], ledger.KindQueryBlocked)
		}
		if filter.RuleID != "RULE-1" {
			t.Errorf("RuleID = %q, want RULE-1", filter.RuleID)
		}
		if filter.Limit != 50 {
			t.Errorf("Limit = %d, want 50", filter.Limit)
		}
	})

	t.Run("time range", func(t *testing.T) {
		filter, err := buildAuditQuery(nil, "", "2026-08-01T00:00:00Z", "2026-08-24T00:00:00Z", 0)
		if err != nil {
			t.Fatalf("buildAuditQuery failed: %v", err)
		}
		wantSince := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
		if filter.Since == nil || !filter.Since.Equal(wantSince) {
			t.Errorf("Since = %v, want %v", filter.Since, wantSince)
		}
		if filter.Until == nil {
			t.Error("Until is nil, want a value")
		}
	})

	t.Run("unknown kind", func(t *testing.T) {
		if _, err := buildAuditQuery([]string{"NOT_A_KIND"}, "", "", "", 0); err == nil {
			t.Error("expected error for unknown event kind")
		}
	})

	t.Run("malformed since", func(t *testing.T) {
		if _, err := buildAuditQuery(nil, "", "yesterday", "", 0); err == nil {
			t.Error("expected error for non-RFC3339 since")
		}
	})
}

func TestParseEventKindCoversAllKinds(t *testing.T) {
	for _, kind := range ledger.Kinds() {
		got, err := parseEventKind(string(kind))
		if err != nil {
			t.Errorf("parseEventKind(%q) failed: %v", kind, err)
			continue
		}
		if got != kind {
			t.Errorf("parseEventKind(%q) = %q", kind, got)
		}
	}
}
