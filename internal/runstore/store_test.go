package runstore_test

import (
	"testing"

	"github.com/eval-bench/eval-bench/internal/logging"
	"github.com/eval-bench/eval-bench/internal/messages"
	"github.com/eval-bench/eval-bench/internal/runstore"
	"github.com/eval-bench/eval-bench/internal/serviceerrors"
	"github.com/eval-bench/eval-bench/pkg/api"
)

func testConfig() api.RunConfig {
	return api.RunConfig{
		Model:      "llama3",
		Provider:   "ollama",
		Benchmarks: []string{"mmlu"},
	}
}

func TestStoreCreate(t *testing.T) {
	store := runstore.NewStore(logging.FallbackLogger())

	t.Run("new record is pending with a stable id", func(t *testing.T) {
		runID := store.Create(testConfig())
		if runID == "" {
			t.Fatal("Create returned an empty run id")
		}

		record, err := store.Get(runID)
		if err != nil {
			t.Fatalf("Get returned error: %v", err)
		}
		if record.Status != api.StatePending {
			t.Errorf("Expected status pending, got %s", record.Status)
		}
		if record.CreatedAt.IsZero() {
			t.Error("Expected CreatedAt to be set")
		}
		if record.StartedAt != nil || record.CompletedAt != nil {
			t.Error("Expected no start or completion timestamp on a pending record")
		}
	})

	t.Run("unknown run id is not found", func(t *testing.T) {
		_, err := store.Get("no-such-run")
		if !serviceerrors.HasMessageCode(err, messages.ResourceNotFound) {
			t.Errorf("Expected ResourceNotFound, got %v", err)
		}
	})
}

func TestStoreTransition(t *testing.T) {
	store := runstore.NewStore(logging.FallbackLogger())

	t.Run("pending to running to completed", func(t *testing.T) {
		runID := store.Create(testConfig())

		applied, err := store.Transition(runID, api.StateRunning, nil)
		if err != nil || !applied {
			t.Fatalf("Transition to running failed: applied=%v err=%v", applied, err)
		}
		record, _ := store.Get(runID)
		if record.StartedAt == nil {
			t.Error("Expected StartedAt to be set on the running transition")
		}

		applied, err = store.Transition(runID, api.StateCompleted, nil)
		if err != nil || !applied {
			t.Fatalf("Transition to completed failed: applied=%v err=%v", applied, err)
		}
		record, _ = store.Get(runID)
		if record.CompletedAt == nil {
			t.Error("Expected CompletedAt to be set on the terminal transition")
		}
	})

	t.Run("terminal state never changes again", func(t *testing.T) {
		runID := store.Create(testConfig())
		if _, err := store.Transition(runID, api.StateCancelled, nil); err != nil {
			t.Fatalf("Transition to cancelled failed: %v", err)
		}

		applied, err := store.Transition(runID, api.StateRunning, nil)
		if applied {
			t.Error("Expected transition out of a terminal state to not apply")
		}
		if !serviceerrors.HasMessageCode(err, messages.RunAlreadyTerminal) {
			t.Errorf("Expected RunAlreadyTerminal, got %v", err)
		}

		record, _ := store.Get(runID)
		if record.Status != api.StateCancelled {
			t.Errorf("Expected status to stay cancelled, got %s", record.Status)
		}
	})

	t.Run("failed transition records the error detail", func(t *testing.T) {
		runID := store.Create(testConfig())
		detail := &api.MessageInfo{Message: "provider unreachable", MessageCode: "run_failed"}

		if _, err := store.Transition(runID, api.StateFailed, detail); err != nil {
			t.Fatalf("Transition to failed returned error: %v", err)
		}

		record, _ := store.Get(runID)
		if record.Error == nil || record.Error.Message != "provider unreachable" {
			t.Errorf("Expected error detail on the record, got %+v", record.Error)
		}
	})
}

func TestStoreLog(t *testing.T) {
	store := runstore.NewStore(logging.FallbackLogger())

	t.Run("log lines accumulate in order", func(t *testing.T) {
		runID := store.Create(testConfig())

		for _, text := range []string{"Starting MMLU...", "Progress: 50%", "Progress: 100%"} {
			if err := store.AppendLog(runID, text); err != nil {
				t.Fatalf("AppendLog returned error: %v", err)
			}
		}

		record, _ := store.Get(runID)
		if len(record.Log) != 3 {
			t.Fatalf("Expected 3 log lines, got %d", len(record.Log))
		}
		if record.Log[0].Text != "Starting MMLU..." || record.Log[2].Text != "Progress: 100%" {
			t.Errorf("Log lines out of order: %+v", record.Log)
		}
		if record.Log[1].Timestamp.IsZero() {
			t.Error("Expected log line timestamps to be set")
		}
	})

	t.Run("readers get copies not references", func(t *testing.T) {
		runID := store.Create(testConfig())
		if err := store.AppendLog(runID, "first"); err != nil {
			t.Fatalf("AppendLog returned error: %v", err)
		}

		record, _ := store.Get(runID)
		record.Log[0].Text = "mutated"
		record.Status = api.StateFailed

		fresh, _ := store.Get(runID)
		if fresh.Log[0].Text != "first" {
			t.Error("Mutating a returned record leaked into the store")
		}
		if fresh.Status != api.StatePending {
			t.Errorf("Expected status pending, got %s", fresh.Status)
		}
	})
}

func TestStoreNotify(t *testing.T) {
	store := runstore.NewStore(logging.FallbackLogger())

	var events []runstore.Event
	store.SetNotify(func(ev runstore.Event) {
		events = append(events, ev)
	})

	runID := store.Create(testConfig())
	_ = store.AppendLog(runID, "Starting MMLU...")
	_, _ = store.Transition(runID, api.StateRunning, nil)
	_ = store.SetResults(runID, map[string]api.MetricBundle{"mmlu": {Accuracy: 100}})

	expected := []runstore.EventKind{
		runstore.EventStatusChanged,
		runstore.EventLogAppended,
		runstore.EventStatusChanged,
		runstore.EventResultsUpdated,
	}
	if len(events) != len(expected) {
		t.Fatalf("Expected %d events, got %d", len(expected), len(events))
	}
	for i, kind := range expected {
		if events[i].Kind != kind {
			t.Errorf("Event %d: expected %s, got %s", i, kind, events[i].Kind)
		}
		if events[i].RunID != runID {
			t.Errorf("Event %d: expected run id %s, got %s", i, runID, events[i].RunID)
		}
	}
}

func TestStoreList(t *testing.T) {
	store := runstore.NewStore(logging.FallbackLogger())

	first := store.Create(testConfig())
	second := store.Create(testConfig())

	records := store.List()
	if len(records) != 2 {
		t.Fatalf("Expected 2 records, got %d", len(records))
	}
	if records[0].ID != first || records[1].ID != second {
		t.Error("Expected records in creation order")
	}
}
