package store

import (
	"path/filepath"
	"testing"
	"time"

	"avaris/internal/model"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := New(filepath.Join(t.TempDir(), "avaris.db"))
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestRecordRunAndReadBack(t *testing.T) {
	s := newTestStore(t)

	added := 5
	run := &model.RunResult{
		ID:      "run-1",
		Success: true,
		Objects: []model.ObjectResult{
			{Object: "Vrátnice A", Status: model.ObjectSuccess, RowsTotal: 10, RowsKept: 8, Duration: 3 * time.Second},
			{Object: "Vrátnice B", Status: model.ObjectFailed, Error: "scrape failed", Duration: time.Second},
		},
		Merge:        &model.MergeResult{Added: added, Watermark: "04.02.2025 18:22:47"},
		ArtifactPath: "/tmp/target.xlsx",
		StartedAt:    time.Now().Truncate(time.Second),
		Duration:     5 * time.Second,
	}

	if err := s.RecordRun(run, "Vrátnice A,Vrátnice B"); err != nil {
		t.Fatalf("RecordRun failed: %v", err)
	}

	runs, err := s.ListRuns(10)
	if err != nil {
		t.Fatalf("ListRuns failed: %v", err)
	}
	if len(runs) != 1 {
		t.Fatalf("len(runs)=%d, want 1", len(runs))
	}
	if !runs[0].Success || runs[0].ID != "run-1" {
		t.Fatalf("runs[0]=%+v", runs[0])
	}
	if runs[0].MergeAdded == nil || *runs[0].MergeAdded != added {
		t.Fatalf("MergeAdded=%v, want %d", runs[0].MergeAdded, added)
	}

	detail, err := s.GetRun("run-1")
	if err != nil {
		t.Fatalf("GetRun failed: %v", err)
	}
	if len(detail.ObjectResults) != 2 {
		t.Fatalf("len(ObjectResults)=%d, want 2", len(detail.ObjectResults))
	}
	if detail.ObjectResults[0].Object != "Vrátnice A" || detail.ObjectResults[0].RowsKept != 8 {
		t.Fatalf("ObjectResults[0]=%+v", detail.ObjectResults[0])
	}
	if detail.ObjectResults[1].Status != "failed" || detail.ObjectResults[1].Error == "" {
		t.Fatalf("ObjectResults[1]=%+v", detail.ObjectResults[1])
	}
}

func TestGetRun_NotFound(t *testing.T) {
	s := newTestStore(t)
	if _, err := s.GetRun("neexistuje"); err == nil {
		t.Fatalf("expected error for unknown run id")
	}
}

func TestRecordRun_NoMerge(t *testing.T) {
	s := newTestStore(t)

	run := &model.RunResult{
		ID:        "run-2",
		Success:   false,
		Objects:   []model.ObjectResult{{Object: "A", Status: model.ObjectFailed, Error: "x"}},
		StartedAt: time.Now(),
	}
	if err := s.RecordRun(run, "A"); err != nil {
		t.Fatalf("RecordRun failed: %v", err)
	}

	runs, err := s.ListRuns(0)
	if err != nil {
		t.Fatalf("ListRuns failed: %v", err)
	}
	if len(runs) != 1 || runs[0].Success {
		t.Fatalf("runs=%+v", runs)
	}
	if runs[0].MergeAdded != nil {
		t.Fatalf("MergeAdded should be nil when no merge ran")
	}
}
