package server

import (
	"context"
	"testing"
)

func TestServerLifecycleFlags(t *testing.T) {
	ts := newTestServer(t, nil)

	if ts.server.IsRunning() {
		t.Error("IsRunning = true before Start")
	}

	// Shutdown before Start is a no-op, not an error.
	if err := ts.server.Shutdown(context.Background()); err != nil {
		t.Errorf("Shutdown before Start returned %v", err)
	}
}

func TestRunCoordinatorStatusIdle(t *testing.T) {
	rc := newRunCoordinator(nil)

	status := rc.Status()
	if status.Running {
		t.Error("Running = true on fresh coordinator")
	}
	if status.Last != nil {
		t.Error("Last non-nil on fresh coordinator")
	}
	if status.StartedAt != nil {
		t.Error("StartedAt non-nil while idle")
	}
}
