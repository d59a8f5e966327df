package archive_test

import (
	"context"
	"testing"
	"time"

	"github.com/eval-bench/eval-bench/internal/abstractions"
	"github.com/eval-bench/eval-bench/internal/archive"
	"github.com/eval-bench/eval-bench/internal/logging"
	"github.com/eval-bench/eval-bench/internal/messages"
	"github.com/eval-bench/eval-bench/internal/serviceerrors"
	"github.com/eval-bench/eval-bench/pkg/api"
)

func newTestArchive(t *testing.T) abstractions.Archive {
	t.Helper()
	databaseConfig := map[string]any{
		"driver": "sqlite",
		"url":    ":memory:",
	}
	a, err := archive.NewArchive(&databaseConfig, logging.FallbackLogger())
	if err != nil {
		t.Fatalf("NewArchive returned error: %v", err)
	}
	t.Cleanup(func() { _ = a.Close() })
	return a
}

func archivedRecord(id string, status api.State, createdAt time.Time) *api.RunRecord {
	completedAt := createdAt.Add(time.Minute)
	return &api.RunRecord{
		ID: id,
		Config: api.RunConfig{
			Model:      "llama3",
			Provider:   "ollama",
			Benchmarks: []string{"mmlu"},
		},
		Status:      status,
		Log:         []api.LogLine{{Timestamp: createdAt, Text: "Starting MMLU..."}},
		Results:     map[string]api.MetricBundle{"mmlu": {Accuracy: 0.66, Correct: 2, Total: 3}},
		CreatedAt:   createdAt,
		CompletedAt: &completedAt,
	}
}

func TestNewArchive(t *testing.T) {
	t.Run("nil config disables the archive", func(t *testing.T) {
		a, err := archive.NewArchive(nil, logging.FallbackLogger())
		if err != nil {
			t.Fatalf("NewArchive returned error: %v", err)
		}
		if a != nil {
			t.Error("Expected a nil archive when no database is configured")
		}
	})

	t.Run("unsupported driver is rejected", func(t *testing.T) {
		databaseConfig := map[string]any{"driver": "oracle", "url": "whatever"}
		if _, err := archive.NewArchive(&databaseConfig, logging.FallbackLogger()); err == nil {
			t.Error("Expected an unsupported driver error")
		}
	})
}

func TestArchiveSaveAndGet(t *testing.T) {
	a := newTestArchive(t)
	ctx := context.Background()

	record := archivedRecord("run-1", api.StateCompleted, time.Now().UTC())
	if err := a.SaveRun(ctx, record); err != nil {
		t.Fatalf("SaveRun returned error: %v", err)
	}

	loaded, err := a.GetRun(ctx, "run-1")
	if err != nil {
		t.Fatalf("GetRun returned error: %v", err)
	}
	if loaded.ID != "run-1" || loaded.Status != api.StateCompleted {
		t.Errorf("Loaded record mismatch: %+v", loaded)
	}
	if len(loaded.Log) != 1 || loaded.Log[0].Text != "Starting MMLU..." {
		t.Errorf("Expected the log to round-trip, got %+v", loaded.Log)
	}
	if loaded.Results["mmlu"].Correct != 2 {
		t.Errorf("Expected the results to round-trip, got %+v", loaded.Results)
	}

	t.Run("unknown id is not found", func(t *testing.T) {
		_, err := a.GetRun(ctx, "no-such-run")
		if !serviceerrors.HasMessageCode(err, messages.ResourceNotFound) {
			t.Errorf("Expected ResourceNotFound, got %v", err)
		}
	})

	t.Run("save is an upsert", func(t *testing.T) {
		record.Status = api.StateCancelled
		if err := a.SaveRun(ctx, record); err != nil {
			t.Fatalf("Second SaveRun returned error: %v", err)
		}
		loaded, err := a.GetRun(ctx, "run-1")
		if err != nil {
			t.Fatalf("GetRun returned error: %v", err)
		}
		if loaded.Status != api.StateCancelled {
			t.Errorf("Expected the upsert to replace the record, got %s", loaded.Status)
		}
	})
}

func TestArchiveListRuns(t *testing.T) {
	a := newTestArchive(t)
	ctx := context.Background()

	base := time.Now().UTC().Add(-time.Hour)
	for i, status := range []api.State{api.StateCompleted, api.StateFailed, api.StateCompleted, api.StateCancelled} {
		record := archivedRecord(
			[]string{"run-a", "run-b", "run-c", "run-d"}[i],
			status,
			base.Add(time.Duration(i)*time.Minute),
		)
		if err := a.SaveRun(ctx, record); err != nil {
			t.Fatalf("SaveRun returned error: %v", err)
		}
	}

	t.Run("newest first with a total count", func(t *testing.T) {
		results, err := a.ListRuns(ctx, 10, 0, "")
		if err != nil {
			t.Fatalf("ListRuns returned error: %v", err)
		}
		if results.TotalStored != 4 {
			t.Errorf("Expected total 4, got %d", results.TotalStored)
		}
		if len(results.Items) != 4 {
			t.Fatalf("Expected 4 items, got %d", len(results.Items))
		}
		if results.Items[0].ID != "run-d" || results.Items[3].ID != "run-a" {
			t.Errorf("Expected newest first ordering, got %s ... %s", results.Items[0].ID, results.Items[3].ID)
		}
	})

	t.Run("limit and offset page the listing", func(t *testing.T) {
		results, err := a.ListRuns(ctx, 2, 1, "")
		if err != nil {
			t.Fatalf("ListRuns returned error: %v", err)
		}
		if results.TotalStored != 4 {
			t.Errorf("Expected total 4, got %d", results.TotalStored)
		}
		if len(results.Items) != 2 {
			t.Fatalf("Expected 2 items, got %d", len(results.Items))
		}
		if results.Items[0].ID != "run-c" {
			t.Errorf("Expected run-c at offset 1, got %s", results.Items[0].ID)
		}
	})

	t.Run("status filter narrows the listing", func(t *testing.T) {
		results, err := a.ListRuns(ctx, 10, 0, string(api.StateCompleted))
		if err != nil {
			t.Fatalf("ListRuns returned error: %v", err)
		}
		if results.TotalStored != 2 || len(results.Items) != 2 {
			t.Fatalf("Expected 2 completed runs, got total=%d items=%d", results.TotalStored, len(results.Items))
		}
		for _, item := range results.Items {
			if item.Status != api.StateCompleted {
				t.Errorf("Expected only completed runs, got %s", item.Status)
			}
		}
	})
}
