package storage

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"warden-hq/warden/pkg/rules"
)

// createTempDB creates a temporary SQLite rules database for testing.
func createTempDB(t *testing.T) *SQLiteStorage {
	t.Helper()

	config := DefaultSQLiteConfig()
	config.Path = filepath.Join(t.TempDir(), "warden.db")

	storage, err := NewSQLiteStorage(config)
	if err != nil {
		t.Fatalf("Failed to create SQLite storage: %v", err)
	}
	return storage
}

func testRule(id, field, fingerprint string) *rules.Rule {
	return &rules.Rule{
		ID:          id,
		Kind:        rules.KindThreshold,
		Description: "check on " + field,
		Field:       field,
		Operator:    ">",
		Threshold:   10000,
		Fingerprint: fingerprint,
		IngestedAt:  time.Now().UTC(),
	}
}

func TestSQLiteStorage_InsertAndListRules(t *testing.T) {
	storage := createTempDB(t)
	defer storage.Close()

	ctx := context.Background()

	if err := storage.InsertRule(ctx, testRule("rule-001", "amount", "fp-1")); err != nil {
		t.Fatalf("InsertRule() failed: %v", err)
	}
	if err := storage.InsertRule(ctx, testRule("rule-002", "balance", "fp-2")); err != nil {
		t.Fatalf("InsertRule() failed: %v", err)
	}

	live, err := storage.Rules(ctx)
	if err != nil {
		t.Fatalf("Rules() failed: %v", err)
	}
	if len(live) != 2 {
		t.Fatalf("expected 2 rules, got %d", len(live))
	}
	if live[0].ID != "rule-001" || live[1].ID != "rule-002" {
		t.Errorf("ingestion order not preserved: %s, %s", live[0].ID, live[1].ID)
	}

	// Thresholds come back through JSON as float64.
	if got, ok := live[0].Threshold.(float64); !ok || got != 10000 {
		t.Errorf("expected threshold 10000, got %v (%T)", live[0].Threshold, live[0].Threshold)
	}
}

func TestSQLiteStorage_RuleByID(t *testing.T) {
	storage := createTempDB(t)
	defer storage.Close()

	ctx := context.Background()

	inserted := testRule("rule-001", "amount", "fp-1")
	inserted.QueryHint = "status = 'completed'"
	if err := storage.InsertRule(ctx, inserted); err != nil {
		t.Fatalf("InsertRule() failed: %v", err)
	}

	rule, err := storage.Rule(ctx, "rule-001")
	if err != nil {
		t.Fatalf("Rule() failed: %v", err)
	}
	if rule.Field != "amount" || rule.Operator != ">" {
		t.Errorf("rule not round-tripped: %+v", rule)
	}
	if rule.QueryHint != "status = 'completed'" {
		t.Errorf("query hint not round-tripped: %q", rule.QueryHint)
	}

	if _, err := storage.Rule(ctx, "missing"); !errors.Is(err, rules.ErrRuleNotFound) {
		t.Errorf("expected ErrRuleNotFound, got %v", err)
	}
}

func TestSQLiteStorage_FingerprintUnique(t *testing.T) {
	storage := createTempDB(t)
	defer storage.Close()

	ctx := context.Background()

	if err := storage.InsertRule(ctx, testRule("rule-001", "amount", "fp-same")); err != nil {
		t.Fatalf("InsertRule() failed: %v", err)
	}
	if err := storage.InsertRule(ctx, testRule("rule-002", "amount", "fp-same")); err == nil {
		t.Error("expected error for duplicate fingerprint, got nil")
	}

	exists, err := storage.HasFingerprint(ctx, "fp-same")
	if err != nil {
		t.Fatalf("HasFingerprint() failed: %v", err)
	}
	if !exists {
		t.Error("expected fingerprint to exist")
	}

	exists, err = storage.HasFingerprint(ctx, "fp-other")
	if err != nil {
		t.Fatalf("HasFingerprint() failed: %v", err)
	}
	if exists {
		t.Error("expected fingerprint to be absent")
	}
}

func TestSQLiteStorage_Snapshots(t *testing.T) {
	storage := createTempDB(t)
	defer storage.Close()

	ctx := context.Background()

	first := &rules.Snapshot{
		Version:   1,
		CreatedAt: time.Now().UTC(),
		Note:      "pre-ingest of 2 candidates",
		Rules:     []rules.Rule{},
	}
	if err := storage.InsertSnapshot(ctx, first); err != nil {
		t.Fatalf("InsertSnapshot() failed: %v", err)
	}

	second := &rules.Snapshot{
		Version:   2,
		CreatedAt: time.Now().UTC(),
		Rules:     []rules.Rule{*testRule("rule-001", "amount", "fp-1")},
	}
	if err := storage.InsertSnapshot(ctx, second); err != nil {
		t.Fatalf("InsertSnapshot() failed: %v", err)
	}

	snapshots, err := storage.Snapshots(ctx)
	if err != nil {
		t.Fatalf("Snapshots() failed: %v", err)
	}
	if len(snapshots) != 2 {
		t.Fatalf("expected 2 snapshots, got %d", len(snapshots))
	}
	if snapshots[0].Version != 1 || snapshots[1].Version != 2 {
		t.Errorf("snapshots out of order: %d, %d", snapshots[0].Version, snapshots[1].Version)
	}
	if len(snapshots[1].Rules) != 1 {
		t.Errorf("expected snapshot 2 to hold 1 rule, got %d", len(snapshots[1].Rules))
	}

	got, err := storage.Snapshot(ctx, 2)
	if err != nil {
		t.Fatalf("Snapshot(2) failed: %v", err)
	}
	if got.Rules[0].ID != "rule-001" {
		t.Errorf("snapshot rules not round-tripped: %+v", got.Rules)
	}

	if _, err := storage.Snapshot(ctx, 99); !errors.Is(err, rules.ErrSnapshotNotFound) {
		t.Errorf("expected ErrSnapshotNotFound, got %v", err)
	}
}

func TestSQLiteStorage_SnapshotVersionImmutable(t *testing.T) {
	storage := createTempDB(t)
	defer storage.Close()

	ctx := context.Background()

	snapshot := &rules.Snapshot{Version: 1, CreatedAt: time.Now().UTC(), Rules: []rules.Rule{}}
	if err := storage.InsertSnapshot(ctx, snapshot); err != nil {
		t.Fatalf("InsertSnapshot() failed: %v", err)
	}
	if err := storage.InsertSnapshot(ctx, snapshot); err == nil {
		t.Error("expected error on version reuse, got nil")
	}
}

func TestSQLiteStorage_MaxSnapshotVersion(t *testing.T) {
	storage := createTempDB(t)
	defer storage.Close()

	ctx := context.Background()

	version, err := storage.MaxSnapshotVersion(ctx)
	if err != nil {
		t.Fatalf("MaxSnapshotVersion() failed: %v", err)
	}
	if version != 0 {
		t.Errorf("expected 0 for empty table, got %d", version)
	}

	for v := int64(1); v <= 3; v++ {
		snapshot := &rules.Snapshot{Version: v, CreatedAt: time.Now().UTC(), Rules: []rules.Rule{}}
		if err := storage.InsertSnapshot(ctx, snapshot); err != nil {
			t.Fatalf("InsertSnapshot(%d) failed: %v", v, err)
		}
	}

	version, err = storage.MaxSnapshotVersion(ctx)
	if err != nil {
		t.Fatalf("MaxSnapshotVersion() failed: %v", err)
	}
	if version != 3 {
		t.Errorf("expected 3, got %d", version)
	}
}

func TestSQLiteStorage_PersistsAcrossReopen(t *testing.T) {
	config := DefaultSQLiteConfig()
	config.Path = filepath.Join(t.TempDir(), "warden.db")

	first, err := NewSQLiteStorage(config)
	if err != nil {
		t.Fatalf("Failed to create storage: %v", err)
	}
	ctx := context.Background()
	if err := first.InsertRule(ctx, testRule("rule-001", "amount", "fp-1")); err != nil {
		t.Fatalf("InsertRule() failed: %v", err)
	}
	snapshot := &rules.Snapshot{Version: 1, CreatedAt: time.Now().UTC(), Rules: []rules.Rule{}}
	if err := first.InsertSnapshot(ctx, snapshot); err != nil {
		t.Fatalf("InsertSnapshot() failed: %v", err)
	}
	if err := first.Close(); err != nil {
		t.Fatalf("Close() failed: %v", err)
	}

	second, err := NewSQLiteStorage(config)
	if err != nil {
		t.Fatalf("Failed to reopen storage: %v", err)
	}
	defer second.Close()

	live, err := second.Rules(ctx)
	if err != nil {
		t.Fatalf("Rules() failed: %v", err)
	}
	if len(live) != 1 {
		t.Errorf("expected 1 rule after reopen, got %d", len(live))
	}
	version, err := second.MaxSnapshotVersion(ctx)
	if err != nil {
		t.Fatalf("MaxSnapshotVersion() failed: %v", err)
	}
	if version != 1 {
		t.Errorf("expected snapshot version 1 after reopen, got %d", version)
	}
}
