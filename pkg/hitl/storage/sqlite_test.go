package storage

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"warden-hq/warden/pkg/hitl"
)

func createTempDB(t *testing.T) (*SQLiteStorage, string) {
	t.Helper()

	dbPath := filepath.Join(t.TempDir(), "test_hitl.db")
	config := DefaultSQLiteConfig()
	config.Path = dbPath

	storage, err := NewSQLiteStorage(config)
	if err != nil {
		t.Fatalf("failed to create sqlite storage: %v", err)
	}
	t.Cleanup(func() { storage.Close() })

	return storage, dbPath
}

func testDecision(key string, state hitl.State) *hitl.Decision {
	return &hitl.Decision{
		Key:       key,
		State:     state,
		Analyst:   "analyst-1",
		Notes:     "reviewed",
		UpdatedAt: time.Now().UTC(),
	}
}

func TestSQLiteStorage_Initialize(t *testing.T) {
	storage, _ := createTempDB(t)

	version, err := storage.GetSchemaVersion()
	if err != nil {
		t.Fatalf("failed to get schema version: %v", err)
	}
	if version != SchemaVersion {
		t.Errorf("schema version = %d, want %d", version, SchemaVersion)
	}
}

func TestSQLiteStorage_UpsertAndGet(t *testing.T) {
	storage, _ := createTempDB(t)
	ctx := context.Background()

	decision := testDecision("rule-001", hitl.StateConfirmed)
	if err := storage.Upsert(ctx, decision); err != nil {
		t.Fatalf("failed to upsert decision: %v", err)
	}

	got, err := storage.Get(ctx, "rule-001")
	if err != nil {
		t.Fatalf("failed to get decision: %v", err)
	}
	if got.State != hitl.StateConfirmed {
		t.Errorf("state = %q, want %q", got.State, hitl.StateConfirmed)
	}
	if got.Analyst != "analyst-1" {
		t.Errorf("analyst = %q, want %q", got.Analyst, "analyst-1")
	}
	if got.Notes != "reviewed" {
		t.Errorf("notes = %q, want %q", got.Notes, "reviewed")
	}
}

func TestSQLiteStorage_UpsertReplacesPrior(t *testing.T) {
	storage, _ := createTempDB(t)
	ctx := context.Background()

	if err := storage.Upsert(ctx, testDecision("rule-001", hitl.StateConfirmed)); err != nil {
		t.Fatalf("failed to upsert first decision: %v", err)
	}

	second := testDecision("rule-001", hitl.StateDismissed)
	second.Analyst = "analyst-2"
	if err := storage.Upsert(ctx, second); err != nil {
		t.Fatalf("failed to upsert second decision: %v", err)
	}

	got, err := storage.Get(ctx, "rule-001")
	if err != nil {
		t.Fatalf("failed to get decision: %v", err)
	}
	if got.State != hitl.StateDismissed {
		t.Errorf("state = %q, want %q", got.State, hitl.StateDismissed)
	}
	if got.Analyst != "analyst-2" {
		t.Errorf("analyst = %q, want %q", got.Analyst, "analyst-2")
	}

	all, err := storage.List(ctx)
	if err != nil {
		t.Fatalf("failed to list decisions: %v", err)
	}
	if len(all) != 1 {
		t.Errorf("decision count = %d, want 1", len(all))
	}
}

func TestSQLiteStorage_GetMissing(t *testing.T) {
	storage, _ := createTempDB(t)

	_, err := storage.Get(context.Background(), "unknown")
	if !errors.Is(err, hitl.ErrDecisionNotFound) {
		t.Errorf("error = %v, want ErrDecisionNotFound", err)
	}
}

func TestSQLiteStorage_ListOrderedByKey(t *testing.T) {
	storage, _ := createTempDB(t)
	ctx := context.Background()

	for _, key := range []string{"rule-c", "rule-a", "rule-b"} {
		if err := storage.Upsert(ctx, testDecision(key, hitl.StatePending)); err != nil {
			t.Fatalf("failed to upsert %s: %v", key, err)
		}
	}

	all, err := storage.List(ctx)
	if err != nil {
		t.Fatalf("failed to list decisions: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("decision count = %d, want 3", len(all))
	}
	wantOrder := []string{"rule-a", "rule-b", "rule-c"}
	for i, want := range wantOrder {
		if all[i].Key != want {
			t.Errorf("decision[%d].Key = %q, want %q", i, all[i].Key, want)
		}
	}
}

func TestSQLiteStorage_CountByState(t *testing.T) {
	storage, _ := createTempDB(t)
	ctx := context.Background()

	seed := map[string]hitl.State{
		"rule-a": hitl.StateConfirmed,
		"rule-b": hitl.StateConfirmed,
		"rule-c": hitl.StateDismissed,
		"rule-d": hitl.StateEscalated,
	}
	for key, state := range seed {
		if err := storage.Upsert(ctx, testDecision(key, state)); err != nil {
			t.Fatalf("failed to upsert %s: %v", key, err)
		}
	}

	counts, err := storage.CountByState(ctx)
	if err != nil {
		t.Fatalf("failed to count by state: %v", err)
	}
	if counts[hitl.StateConfirmed] != 2 {
		t.Errorf("confirmed count = %d, want 2", counts[hitl.StateConfirmed])
	}
	if counts[hitl.StateDismissed] != 1 {
		t.Errorf("dismissed count = %d, want 1", counts[hitl.StateDismissed])
	}
	if counts[hitl.StateEscalated] != 1 {
		t.Errorf("escalated count = %d, want 1", counts[hitl.StateEscalated])
	}
}

func TestSQLiteStorage_PersistsAcrossReopen(t *testing.T) {
	storage, dbPath := createTempDB(t)
	ctx := context.Background()

	if err := storage.Upsert(ctx, testDecision("rule-001", hitl.StateEscalated)); err != nil {
		t.Fatalf("failed to upsert decision: %v", err)
	}
	if err := storage.Close(); err != nil {
		t.Fatalf("failed to close storage: %v", err)
	}

	config := DefaultSQLiteConfig()
	config.Path = dbPath
	reopened, err := NewSQLiteStorage(config)
	if err != nil {
		t.Fatalf("failed to reopen storage: %v", err)
	}
	defer reopened.Close()

	got, err := reopened.Get(ctx, "rule-001")
	if err != nil {
		t.Fatalf("failed to get decision after reopen: %v", err)
	}
	if got.State != hitl.StateEscalated {
		t.Errorf("state = %q, want %q", got.State, hitl.StateEscalated)
	}
}
