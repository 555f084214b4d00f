package history

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func newTestHistory(t *testing.T, dir string) *History {
	t.Helper()
	h, err := Open(filepath.Join(dir, "history.db"))
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	return h
}

func TestOpenCreatesDBFile(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "dir")
	h, err := Open(filepath.Join(dir, "history.db"))
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer h.Close()

	if _, err := os.Stat(filepath.Join(dir, "history.db")); err != nil {
		t.Errorf("history.db not created: %v", err)
	}

	runs, err := h.Recent(10)
	if err != nil {
		t.Fatalf("Recent() on new DB error = %v", err)
	}
	if len(runs) != 0 {
		t.Errorf("Recent() on new DB = %d runs, want 0", len(runs))
	}
}

func TestAddAndRecent(t *testing.T) {
	h := newTestHistory(t, t.TempDir())
	defer h.Close()

	base := time.Date(2025, 1, 1, 10, 0, 0, 0, time.UTC)
	for i, cmd := range []string{"extract", "diff", "generate-sql"} {
		err := h.Add(Run{
			Command:    cmd,
			Catalog:    "prod",
			Source:     "databricks://adb-1/sql/1.0/warehouses/x",
			ExecutedAt: base.Add(time.Duration(i) * time.Minute),
		})
		if err != nil {
			t.Fatalf("Add() error = %v", err)
		}
	}

	runs, err := h.Recent(10)
	if err != nil {
		t.Fatalf("Recent() error = %v", err)
	}
	if len(runs) != 3 {
		t.Fatalf("Recent() = %d runs, want 3", len(runs))
	}
	if runs[0].Command != "generate-sql" || runs[2].Command != "extract" {
		t.Errorf("order = %s..%s, want most recent first", runs[0].Command, runs[2].Command)
	}

	limited, err := h.Recent(2)
	if err != nil {
		t.Fatalf("Recent(2) error = %v", err)
	}
	if len(limited) != 2 {
		t.Errorf("Recent(2) = %d runs, want 2", len(limited))
	}
}

func TestRunFields(t *testing.T) {
	h := newTestHistory(t, t.TempDir())
	defer h.Close()

	execAt := time.Date(2025, 6, 15, 14, 30, 0, 0, time.UTC)
	want := Run{
		Command:    "diff",
		Catalog:    "prod",
		Source:     "sqlite://shop.db",
		Stored:     "./snapshots/prod",
		ExecutedAt: execAt,
		DurationMS: 1234,
		HasChanges: true,
		Added:      2,
		Removed:    1,
		Modified:   3,
		Statements: 7,
	}
	if err := h.Add(want); err != nil {
		t.Fatalf("Add() error = %v", err)
	}

	runs, err := h.Recent(1)
	if err != nil || len(runs) != 1 {
		t.Fatalf("Recent() = %v, %v", runs, err)
	}
	got := runs[0]
	if got.ID == 0 {
		t.Error("ID should be assigned")
	}
	if got.Command != want.Command || got.Catalog != want.Catalog || got.Source != want.Source || got.Stored != want.Stored {
		t.Errorf("text fields = %+v", got)
	}
	if got.DurationMS != 1234 || !got.HasChanges || got.Added != 2 || got.Removed != 1 || got.Modified != 3 || got.Statements != 7 {
		t.Errorf("counters = %+v", got)
	}
	if got.IsError {
		t.Error("IsError = true, want false")
	}
	if got.ExecutedAt.Sub(execAt).Abs() > time.Second {
		t.Errorf("ExecutedAt = %v, want approximately %v", got.ExecutedAt, execAt)
	}
}

func TestAddDefaultsTimestamp(t *testing.T) {
	h := newTestHistory(t, t.TempDir())
	defer h.Close()

	before := time.Now().UTC().Add(-time.Second)
	if err := h.Add(Run{Command: "extract"}); err != nil {
		t.Fatalf("Add() error = %v", err)
	}
	runs, err := h.Recent(1)
	if err != nil || len(runs) != 1 {
		t.Fatalf("Recent() = %v, %v", runs, err)
	}
	if runs[0].ExecutedAt.Before(before) {
		t.Errorf("ExecutedAt = %v, want after %v", runs[0].ExecutedAt, before)
	}
}

func TestSearch(t *testing.T) {
	h := newTestHistory(t, t.TempDir())
	defer h.Close()

	now := time.Now().UTC()
	runs := []Run{
		{Command: "extract", Catalog: "prod", Source: "databricks://a", ExecutedAt: now},
		{Command: "diff", Catalog: "staging", Source: "postgres://db/staging", ExecutedAt: now.Add(time.Second)},
		{Command: "generate-sql", Catalog: "prod", Source: "databricks://a", ExecutedAt: now.Add(2 * time.Second)},
	}
	for _, r := range runs {
		if err := h.Add(r); err != nil {
			t.Fatalf("Add() error = %v", err)
		}
	}

	tests := []struct {
		pattern string
		want    []string
	}{
		{"prod", []string{"generate-sql", "extract"}},
		{"%post%", []string{"diff"}},
		{"gen%", []string{"generate-sql"}},
		{"nothing", nil},
	}
	for _, tt := range tests {
		got, err := h.Search(tt.pattern, 10)
		if err != nil {
			t.Fatalf("Search(%q) error = %v", tt.pattern, err)
		}
		var cmds []string
		for _, r := range got {
			cmds = append(cmds, r.Command)
		}
		if len(cmds) != len(tt.want) {
			t.Errorf("Search(%q) = %v, want %v", tt.pattern, cmds, tt.want)
			continue
		}
		for i := range cmds {
			if cmds[i] != tt.want[i] {
				t.Errorf("Search(%q) = %v, want %v", tt.pattern, cmds, tt.want)
				break
			}
		}
	}
}

func TestClear(t *testing.T) {
	h := newTestHistory(t, t.TempDir())
	defer h.Close()

	for range 3 {
		if err := h.Add(Run{Command: "diff"}); err != nil {
			t.Fatalf("Add() error = %v", err)
		}
	}
	if err := h.Clear(); err != nil {
		t.Fatalf("Clear() error = %v", err)
	}
	runs, err := h.Recent(10)
	if err != nil {
		t.Fatalf("Recent() error = %v", err)
	}
	if len(runs) != 0 {
		t.Errorf("Recent() after Clear = %d runs, want 0", len(runs))
	}
}

func TestCloseAndReopen(t *testing.T) {
	dir := t.TempDir()

	h1 := newTestHistory(t, dir)
	for i := range 3 {
		err := h1.Add(Run{
			Command:    "run_" + string(rune('A'+i)),
			ExecutedAt: time.Now().UTC().Add(time.Duration(i) * time.Second),
		})
		if err != nil {
			t.Fatalf("Add() error = %v", err)
		}
	}
	if err := h1.Close(); err != nil {
		t.Fatalf("Close() first session error = %v", err)
	}

	h2 := newTestHistory(t, dir)
	defer h2.Close()

	runs, err := h2.Recent(10)
	if err != nil {
		t.Fatalf("Recent() after reopen error = %v", err)
	}
	if len(runs) != 3 {
		t.Fatalf("Recent() after reopen = %d runs, want 3", len(runs))
	}
	if runs[0].Command != "run_C" {
		t.Errorf("runs[0].Command = %q, want %q", runs[0].Command, "run_C")
	}
}

func TestErrorRuns(t *testing.T) {
	h := newTestHistory(t, t.TempDir())
	defer h.Close()

	now := time.Now().UTC()
	for i, isErr := range []bool{false, true, false} {
		if err := h.Add(Run{Command: "diff", ExecutedAt: now.Add(time.Duration(i) * time.Second), IsError: isErr}); err != nil {
			t.Fatalf("Add() error = %v", err)
		}
	}

	runs, err := h.Recent(10)
	if err != nil {
		t.Fatalf("Recent() error = %v", err)
	}
	wantErrors := []bool{false, true, false}
	for i, want := range wantErrors {
		if runs[i].IsError != want {
			t.Errorf("runs[%d].IsError = %v, want %v", i, runs[i].IsError, want)
		}
	}
}
