package runstore

import (
	"log/slog"
	"sync"
	"time"

	"github.com/eval-bench/eval-bench/internal/messages"
	"github.com/eval-bench/eval-bench/internal/metrics"
	"github.com/eval-bench/eval-bench/internal/serviceerrors"
	"github.com/eval-bench/eval-bench/pkg/api"
	"github.com/google/uuid"
)

// EventKind classifies a change notification emitted by the store.
type EventKind string

const (
	EventLogAppended    EventKind = "log_appended"
	EventStatusChanged  EventKind = "status_changed"
	EventResultsUpdated EventKind = "results_updated"
)

// Event is delivered to the notify hook after the store mutation committed.
type Event struct {
	RunID string
	Kind  EventKind
}

// Store owns the canonical state of every run. All mutations go through its
// API and are serialized by a single mutex; readers get deep copies so no
// caller ever holds a reference into store-owned memory.
type Store struct {
	mu     sync.RWMutex
	runs   map[string]*api.RunRecord
	order  []string
	logger *slog.Logger
	notify func(Event)
}

func NewStore(logger *slog.Logger) *Store {
	return &Store{
		runs:   make(map[string]*api.RunRecord),
		logger: logger,
	}
}

// SetNotify installs the change hook. The hook is invoked after the lock is
// released, on the mutating goroutine, so it must not block for long.
func (s *Store) SetNotify(notify func(Event)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.notify = notify
}

func (s *Store) emit(ev Event) {
	s.mu.RLock()
	notify := s.notify
	s.mu.RUnlock()
	if notify != nil {
		notify(ev)
	}
}

// Create wraps config in a new pending record and returns the assigned run id.
func (s *Store) Create(config api.RunConfig) string {
	id := uuid.New().String()
	record := &api.RunRecord{
		ID:        id,
		Config:    config,
		Status:    api.StatePending,
		CreatedAt: time.Now(),
	}

	s.mu.Lock()
	s.runs[id] = record
	s.order = append(s.order, id)
	s.mu.Unlock()

	metrics.RunsByStatus.WithLabelValues(string(api.StatePending)).Inc()
	s.logger.Info("Run record created", "run_id", id, "model", config.Model, "benchmarks", len(config.Benchmarks))
	s.emit(Event{RunID: id, Kind: EventStatusChanged})
	return id
}

// AppendLog appends one line to the run's log. The log is append-only; there
// is no way to rewrite or truncate it.
func (s *Store) AppendLog(runID string, text string) error {
	s.mu.Lock()
	record, ok := s.runs[runID]
	if !ok {
		s.mu.Unlock()
		return notFound(runID)
	}
	record.Log = append(record.Log, api.LogLine{Timestamp: time.Now(), Text: text})
	s.mu.Unlock()

	s.emit(Event{RunID: runID, Kind: EventLogAppended})
	return nil
}

// SetResults stores the results map for a run. Called by the scheduler just
// before the completed transition.
func (s *Store) SetResults(runID string, results map[string]api.MetricBundle) error {
	s.mu.Lock()
	record, ok := s.runs[runID]
	if !ok {
		s.mu.Unlock()
		return notFound(runID)
	}
	record.Results = results
	s.mu.Unlock()

	s.emit(Event{RunID: runID, Kind: EventResultsUpdated})
	return nil
}

// Transition moves a run to newStatus. Moving out of a terminal state is an
// idempotent no-op: applied is false and the error carries the
// RunAlreadyTerminal code so callers can tell the condition apart from a
// real failure without aborting.
func (s *Store) Transition(runID string, newStatus api.State, errDetail *api.MessageInfo) (applied bool, err error) {
	s.mu.Lock()
	record, ok := s.runs[runID]
	if !ok {
		s.mu.Unlock()
		return false, notFound(runID)
	}
	if record.Status.IsTerminal() {
		status := record.Status
		s.mu.Unlock()
		return false, serviceerrors.NewServiceError(messages.RunAlreadyTerminal, "ResourceId", runID, "Status", status)
	}

	previous := record.Status
	record.Status = newStatus
	now := time.Now()
	switch newStatus {
	case api.StateRunning:
		record.StartedAt = &now
	case api.StateCompleted, api.StateFailed, api.StateCancelled:
		record.CompletedAt = &now
		if record.StartedAt != nil {
			metrics.RunDuration.Observe(now.Sub(*record.StartedAt).Seconds())
		}
	}
	if newStatus == api.StateFailed {
		record.Error = errDetail
	}
	s.mu.Unlock()

	metrics.RunsByStatus.WithLabelValues(string(previous)).Dec()
	metrics.RunsByStatus.WithLabelValues(string(newStatus)).Inc()
	s.logger.Info("Run status changed", "run_id", runID, "from", previous, "to", newStatus)
	s.emit(Event{RunID: runID, Kind: EventStatusChanged})
	return true, nil
}

// Get returns a deep copy of the record.
func (s *Store) Get(runID string) (*api.RunRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	record, ok := s.runs[runID]
	if !ok {
		return nil, notFound(runID)
	}
	return copyRecord(record), nil
}

// List returns deep copies of all records in creation order.
func (s *Store) List() []*api.RunRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()
	records := make([]*api.RunRecord, 0, len(s.order))
	for _, id := range s.order {
		records = append(records, copyRecord(s.runs[id]))
	}
	return records
}

func notFound(runID string) error {
	return serviceerrors.NewServiceError(messages.ResourceNotFound, "Type", "run", "ResourceId", runID)
}

func copyRecord(record *api.RunRecord) *api.RunRecord {
	out := *record
	if record.Log != nil {
		out.Log = make([]api.LogLine, len(record.Log))
		copy(out.Log, record.Log)
	}
	if record.Results != nil {
		out.Results = make(map[string]api.MetricBundle, len(record.Results))
		for k, v := range record.Results {
			out.Results[k] = v
		}
	}
	return &out
}
