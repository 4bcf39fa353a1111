package ledger

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"testing"
)

// fakeStorage is a minimal in-memory Storage for exercising the ledger core.
// It can be told to fail appends to simulate storage faults.
type fakeStorage struct {
	mu     sync.Mutex
	events []*Event
	fail   bool
}

func (f *fakeStorage) Append(ctx context.Context, event *Event) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.fail {
		return errors.New("disk on fire")
	}
	if n := len(f.events); n > 0 && event.Seq <= f.events[n-1].Seq {
		return fmt.Errorf("sequence %d already used", event.Seq)
	}
	copy := *event
	f.events = append(f.events, &copy)
	return nil
}

func (f *fakeStorage) Events(ctx context.Context, query *Query) ([]*Event, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]*Event, len(f.events))
	copy(out, f.events)
	return out, nil
}

func (f *fakeStorage) Count(ctx context.Context, query *Query) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return int64(len(f.events)), nil
}

func (f *fakeStorage) MaxSeq(ctx context.Context) (uint64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.events) == 0 {
		return 0, nil
	}
	return f.events[len(f.events)-1].Seq, nil
}

func (f *fakeStorage) Close() error { return nil }

func (f *fakeStorage) setFail(fail bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fail = fail
}

func newTestLedger(t *testing.T) (*Ledger, *fakeStorage) {
	t.Helper()

	storage := &fakeStorage{}
	l, err := New(storage)
	if err != nil {
		t.Fatalf("failed to create ledger: %v", err)
	}
	return l, storage
}

func TestLedger_AppendAssignsSequence(t *testing.T) {
	l, _ := newTestLedger(t)
	ctx := context.Background()

	for want := uint64(1); want <= 5; want++ {
		seq, err := l.Append(ctx, KindPipelineRun, "", nil)
		if err != nil {
			t.Fatalf("Append() failed: %v", err)
		}
		if seq != want {
			t.Errorf("expected seq %d, got %d", want, seq)
		}
	}

	if got := l.LastSeq(); got != 5 {
		t.Errorf("expected LastSeq 5, got %d", got)
	}
}

func TestLedger_PayloadMarshaled(t *testing.T) {
	l, storage := newTestLedger(t)
	ctx := context.Background()

	payload := map[string]any{"rules_checked": 12, "run_id": "r-1"}
	if _, err := l.Append(ctx, KindPipelineRun, "", payload); err != nil {
		t.Fatalf("Append() failed: %v", err)
	}

	events, _ := storage.Events(ctx, &Query{})
	if len(events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(events))
	}

	var decoded map[string]any
	if err := json.Unmarshal(events[0].Payload, &decoded); err != nil {
		t.Fatalf("failed to decode payload: %v", err)
	}
	if decoded["run_id"] != "r-1" {
		t.Errorf("expected run_id r-1, got %v", decoded["run_id"])
	}
}

func TestLedger_NilPayload(t *testing.T) {
	l, storage := newTestLedger(t)

	if _, err := l.Append(context.Background(), KindSnapshotCreated, "", nil); err != nil {
		t.Fatalf("Append() failed: %v", err)
	}

	events, _ := storage.Events(context.Background(), &Query{})
	if len(events[0].Payload) != 0 {
		t.Errorf("expected empty payload, got %q", events[0].Payload)
	}
}

func TestLedger_WriteFaultLeavesNoGap(t *testing.T) {
	l, storage := newTestLedger(t)
	ctx := context.Background()

	if _, err := l.Append(ctx, KindPipelineRun, "", nil); err != nil {
		t.Fatalf("Append() failed: %v", err)
	}

	storage.setFail(true)
	_, err := l.Append(ctx, KindPipelineRun, "", nil)
	if err == nil {
		t.Fatal("expected error from failing storage, got nil")
	}

	var fault *WriteFault
	if !errors.As(err, &fault) {
		t.Fatalf("expected *WriteFault, got %T: %v", err, err)
	}
	if fault.Seq != 2 {
		t.Errorf("expected fault at seq 2, got %d", fault.Seq)
	}

	// The failed sequence number is reused by the next successful append.
	storage.setFail(false)
	seq, err := l.Append(ctx, KindPipelineRun, "", nil)
	if err != nil {
		t.Fatalf("Append() after recovery failed: %v", err)
	}
	if seq != 2 {
		t.Errorf("expected seq 2 after recovery, got %d", seq)
	}
}

func TestLedger_ConcurrentAppendsGapless(t *testing.T) {
	l, storage := newTestLedger(t)
	ctx := context.Background()

	const goroutines = 8
	const perGoroutine = 25

	var wg sync.WaitGroup
	errCh := make(chan error, goroutines*perGoroutine)

	for g := 0; g < goroutines; g++ {
		wg.Add(1)
		go func(g int) {
			defer wg.Done()
			for i := 0; i < perGoroutine; i++ {
				ruleID := fmt.Sprintf("rule-%d", g)
				if _, err := l.Append(ctx, KindQueryBlocked, ruleID, nil); err != nil {
					errCh <- err
					return
				}
			}
		}(g)
	}
	wg.Wait()
	close(errCh)

	for err := range errCh {
		t.Fatalf("concurrent Append() failed: %v", err)
	}

	events, err := storage.Events(ctx, &Query{})
	if err != nil {
		t.Fatalf("Events() failed: %v", err)
	}

	total := goroutines * perGoroutine
	if len(events) != total {
		t.Fatalf("expected %d events, got %d", total, len(events))
	}

	// Sequence must be exactly 1..total in order: no gaps, no duplicates.
	for i, event := range events {
		if event.Seq != uint64(i+1) {
			t.Fatalf("expected seq %d at position %d, got %d", i+1, i, event.Seq)
		}
	}
}

func TestLedger_ResumesSequenceFromStorage(t *testing.T) {
	storage := &fakeStorage{}
	ctx := context.Background()

	first, err := New(storage)
	if err != nil {
		t.Fatalf("failed to create ledger: %v", err)
	}
	for i := 0; i < 3; i++ {
		if _, err := first.Append(ctx, KindRulesIngested, "", nil); err != nil {
			t.Fatalf("Append() failed: %v", err)
		}
	}
	first.Close()

	// A second ledger over the same storage continues the numbering.
	second, err := New(storage)
	if err != nil {
		t.Fatalf("failed to reopen ledger: %v", err)
	}
	seq, err := second.Append(ctx, KindRulesIngested, "", nil)
	if err != nil {
		t.Fatalf("Append() failed: %v", err)
	}
	if seq != 4 {
		t.Errorf("expected seq 4 after reopen, got %d", seq)
	}
}

func TestLedger_AppendAfterClose(t *testing.T) {
	l, _ := newTestLedger(t)

	if err := l.Close(); err != nil {
		t.Fatalf("Close() failed: %v", err)
	}

	_, err := l.Append(context.Background(), KindPipelineRun, "", nil)
	if !errors.Is(err, ErrClosed) {
		t.Errorf("expected ErrClosed, got %v", err)
	}

	// Closing twice is harmless.
	if err := l.Close(); err != nil {
		t.Errorf("second Close() failed: %v", err)
	}
}

func TestLedger_UnmarshalablePayload(t *testing.T) {
	l, storage := newTestLedger(t)

	_, err := l.Append(context.Background(), KindPipelineRun, "", func() {})
	if err == nil {
		t.Fatal("expected error for unmarshalable payload, got nil")
	}

	// The failure happens before sequence assignment; nothing was stored.
	events, _ := storage.Events(context.Background(), &Query{})
	if len(events) != 0 {
		t.Errorf("expected no events, got %d", len(events))
	}
	seq, err := l.Append(context.Background(), KindPipelineRun, "", nil)
	if err != nil {
		t.Fatalf("Append() failed: %v", err)
	}
	if seq != 1 {
		t.Errorf("expected seq 1, got %d", seq)
	}
}
