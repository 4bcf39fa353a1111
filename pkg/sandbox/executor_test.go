package sandbox

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"testing"
	"time"
)

// createTestDataset builds a dataset file with a populated transactions
// table and returns its path. The executor under test opens it read-only.
func createTestDataset(t *testing.T, rowCount int) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "transactions.db")
	db, err := sql.Open("sqlite", path)
	if err != nil {
		t.Fatalf("Failed to create dataset: %v", err)
	}
	defer db.Close()

	schema := `
		CREATE TABLE transactions (
			account TEXT NOT NULL,
			amount REAL NOT NULL,
			country TEXT NOT NULL,
			status TEXT NOT NULL
		);
	`
	if _, err := db.Exec(schema); err != nil {
		t.Fatalf("Failed to create schema: %v", err)
	}

	countries := []string{"US", "GB", "KP"}
	for i := 0; i < rowCount; i++ {
		_, err := db.Exec(
			"INSERT INTO transactions (account, amount, country, status) VALUES (?, ?, ?, ?)",
			fmt.Sprintf("acct-%04d", i), float64(i)*100, countries[i%len(countries)], "completed",
		)
		if err != nil {
			t.Fatalf("Failed to insert row %d: %v", i, err)
		}
	}

	return path
}

// newTestExecutor opens an executor over a freshly built dataset.
func newTestExecutor(t *testing.T, rowCount, rowCap int) *Executor {
	t.Helper()

	config := &Config{
		Path:         createTestDataset(t, rowCount),
		RowCap:       rowCap,
		QueryTimeout: 10 * time.Second,
	}
	executor, err := New(config)
	if err != nil {
		t.Fatalf("Failed to create executor: %v", err)
	}
	t.Cleanup(func() { executor.Close() })
	return executor
}

func TestNew_MissingDataset(t *testing.T) {
	config := DefaultConfig()
	config.Path = filepath.Join(t.TempDir(), "does-not-exist.db")

	if _, err := New(config); err == nil {
		t.Fatal("expected error for missing dataset, got nil")
	}
}

func TestExecutor_Execute(t *testing.T) {
	executor := newTestExecutor(t, 50, 1000)

	result, err := executor.Execute(context.Background(),
		"SELECT account, amount FROM transactions WHERE amount > 2000")
	if err != nil {
		t.Fatalf("Execute() failed: %v", err)
	}

	// Rows 21..49 have amount > 2000.
	if result.Count != 29 {
		t.Errorf("expected count 29, got %d", result.Count)
	}
	if len(result.Rows) != 29 {
		t.Errorf("expected 29 materialized rows, got %d", len(result.Rows))
	}
	if len(result.Columns) != 2 || result.Columns[0] != "account" || result.Columns[1] != "amount" {
		t.Errorf("unexpected columns: %v", result.Columns)
	}
	if result.Rows[0]["account"] == nil {
		t.Error("expected account values in materialized rows")
	}
}

func TestExecutor_CountExceedsCap(t *testing.T) {
	executor := newTestExecutor(t, 150, 10)

	result, err := executor.Execute(context.Background(), "SELECT * FROM transactions")
	if err != nil {
		t.Fatalf("Execute() failed: %v", err)
	}

	if result.Count != 150 {
		t.Errorf("expected true count 150, got %d", result.Count)
	}
	if len(result.Rows) != 10 {
		t.Errorf("expected cap of 10 materialized rows, got %d", len(result.Rows))
	}
}

func TestExecutor_RefusesNonSelect(t *testing.T) {
	executor := newTestExecutor(t, 5, 1000)

	tests := []string{
		"DELETE FROM transactions",
		"UPDATE transactions SET amount = 0",
		"DROP TABLE transactions",
		"  INSERT INTO transactions VALUES ('x', 1, 'US', 'completed')",
	}
	for _, text := range tests {
		_, err := executor.Execute(context.Background(), text)
		if err == nil {
			t.Fatalf("expected refusal for %q, got nil", text)
		}
		if !errors.Is(err, ErrNotSelect) {
			t.Errorf("expected ErrNotSelect for %q, got %v", text, err)
		}
	}
}

func TestExecutor_ExecutionErrorIsolated(t *testing.T) {
	executor := newTestExecutor(t, 5, 1000)

	_, err := executor.Execute(context.Background(),
		"SELECT no_such_column FROM transactions")
	if err == nil {
		t.Fatal("expected error for nonexistent column, got nil")
	}

	var execErr *ExecError
	if !errors.As(err, &execErr) {
		t.Fatalf("expected *ExecError, got %T: %v", err, err)
	}
	if execErr.Query == "" {
		t.Error("expected the failing query to be recorded")
	}
}

func TestExecutor_ExistingLimitKept(t *testing.T) {
	executor := newTestExecutor(t, 50, 1000)

	result, err := executor.Execute(context.Background(),
		"SELECT account FROM transactions LIMIT 3")
	if err != nil {
		t.Fatalf("Execute() failed: %v", err)
	}
	if result.Count != 3 {
		t.Errorf("expected count 3 for explicitly limited query, got %d", result.Count)
	}
	if len(result.Rows) != 3 {
		t.Errorf("expected 3 rows, got %d", len(result.Rows))
	}
}

func TestExecutor_LimitWithOffsetKept(t *testing.T) {
	executor := newTestExecutor(t, 50, 10)

	result, err := executor.Execute(context.Background(),
		"SELECT account FROM transactions LIMIT 30 OFFSET 5")
	if err != nil {
		t.Fatalf("Execute() failed: %v", err)
	}
	if result.Count != 30 {
		t.Errorf("expected count 30 for LIMIT ... OFFSET query, got %d", result.Count)
	}
	if len(result.Rows) != 10 {
		t.Errorf("expected row cap of 10 to hold, got %d rows", len(result.Rows))
	}
}

func TestExecutor_TrailingSemicolon(t *testing.T) {
	executor := newTestExecutor(t, 5, 1000)

	result, err := executor.Execute(context.Background(), "SELECT account FROM transactions;")
	if err != nil {
		t.Fatalf("Execute() failed: %v", err)
	}
	if result.Count != 5 {
		t.Errorf("expected count 5, got %d", result.Count)
	}
}

func TestExecutor_TableCount(t *testing.T) {
	executor := newTestExecutor(t, 25, 1000)

	count, err := executor.TableCount(context.Background(), "transactions")
	if err != nil {
		t.Fatalf("TableCount() failed: %v", err)
	}
	if count != 25 {
		t.Errorf("expected 25, got %d", count)
	}

	if _, err := executor.TableCount(context.Background(), "transactions; DROP TABLE x"); err == nil {
		t.Error("expected error for invalid identifier, got nil")
	}
}

func TestExecutor_Columns(t *testing.T) {
	executor := newTestExecutor(t, 1, 1000)

	columns, err := executor.Columns(context.Background(), "transactions")
	if err != nil {
		t.Fatalf("Columns() failed: %v", err)
	}

	want := []string{"account", "amount", "country", "status"}
	if len(columns) != len(want) {
		t.Fatalf("expected %d columns, got %d: %v", len(want), len(columns), columns)
	}
	for i, column := range columns {
		if column != want[i] {
			t.Errorf("column %d = %q, want %q", i, column, want[i])
		}
	}
}
