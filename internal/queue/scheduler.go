// Package queue owns the FIFO list of submitted runs and enforces the
// single-active-run discipline: exactly one run executes at a time, the
// queue advances only when the active run reaches a terminal state, and a
// failed run never halts the queue.
package queue

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/eval-bench/eval-bench/internal/abstractions"
	"github.com/eval-bench/eval-bench/internal/config"
	"github.com/eval-bench/eval-bench/internal/constants"
	"github.com/eval-bench/eval-bench/internal/messages"
	"github.com/eval-bench/eval-bench/internal/metrics"
	"github.com/eval-bench/eval-bench/internal/runstore"
	"github.com/eval-bench/eval-bench/internal/serviceerrors"
	"github.com/eval-bench/eval-bench/pkg/api"
)

// item is one queue entry. Entries stay in the list after finishing so the
// queue view keeps its submission-time order.
type item struct {
	runID  string
	config api.RunConfig
	cancel context.CancelFunc // non-nil only while the item is active
}

// Scheduler drives the queue state machine idle -> running -> {completed,
// cancelled}. A single mutex, held only for state flips and never across an
// executor call, guards all fields.
type Scheduler struct {
	logger   *slog.Logger
	store    *runstore.Store
	executor abstractions.Executor
	archive  abstractions.Archive // may be nil
	conf     config.QueueConfig

	mu     sync.Mutex
	status api.QueueStatus
	items  []*item
	active int // index of the running item, -1 when none

	notify func() // queue level change hook, invoked outside the lock
}

func NewScheduler(logger *slog.Logger, store *runstore.Store, executor abstractions.Executor, archive abstractions.Archive, conf config.QueueConfig) *Scheduler {
	return &Scheduler{
		logger:   logger,
		store:    store,
		executor: executor,
		archive:  archive,
		conf:     conf.WithDefaults(),
		status:   api.QueueIdle,
		active:   -1,
	}
}

// SetNotify installs the queue change hook used by the status gateway.
func (s *Scheduler) SetNotify(notify func()) {
	s.mu.Lock()
	s.notify = notify
	s.mu.Unlock()
}

func (s *Scheduler) emit() {
	s.mu.Lock()
	notify := s.notify
	s.mu.Unlock()
	if notify != nil {
		notify()
	}
}

// Enqueue appends configs to the queue tail. Each config is wrapped in a
// pending run record immediately so its id is stable from submission on.
// Appending never starts execution; an explicit Start is required while the
// queue is idle, and a running queue picks the items up when it advances.
func (s *Scheduler) Enqueue(configs []api.RunConfig) []api.SubmittedRun {
	submitted := make([]api.SubmittedRun, 0, len(configs))

	s.mu.Lock()
	for _, cfg := range configs {
		cfg.Settings.ApplyDefaults()
		runID := s.store.Create(cfg)
		s.items = append(s.items, &item{runID: runID, config: cfg})
		submitted = append(submitted, api.SubmittedRun{RunID: runID, Position: len(s.items) - 1})
	}
	// new work after a completed or cancelled drain returns the queue to
	// idle; it still needs an explicit Start
	if len(configs) > 0 && s.status != api.QueueRunning {
		s.status = api.QueueIdle
	}
	s.updateDepthLocked()
	s.mu.Unlock()

	s.emit()
	return submitted
}

// Start begins processing. It fails with QueueAlreadyRunning while a run is
// active and with QueueEmpty when nothing is pending. A completed or
// cancelled queue can be started again once new items were enqueued.
func (s *Scheduler) Start() error {
	s.mu.Lock()
	// s.active stays set until the executor goroutine reports back. A
	// cancelled queue whose executor is still inside a non-preemptible call
	// must refuse to start the next item, or two runs would execute at once.
	if s.status == api.QueueRunning || s.active >= 0 {
		s.mu.Unlock()
		return serviceerrors.NewServiceError(messages.QueueAlreadyRunning)
	}
	next := s.nextPendingLocked()
	if next < 0 {
		s.mu.Unlock()
		return serviceerrors.NewServiceError(messages.QueueEmpty)
	}
	s.status = api.QueueRunning
	s.startLocked(next)
	s.mu.Unlock()

	s.logger.Info("Queue started", constants.LOG_QUEUE, api.QueueRunning)
	s.emit()
	return nil
}

// nextPendingLocked returns the index of the first item whose record is
// still pending, or -1.
func (s *Scheduler) nextPendingLocked() int {
	for i, it := range s.items {
		record, err := s.store.Get(it.runID)
		if err != nil {
			continue
		}
		if record.Status == api.StatePending {
			return i
		}
	}
	return -1
}

// startLocked promotes the item at idx to running and hands it to the
// executor on its own goroutine. Caller holds the lock.
func (s *Scheduler) startLocked(idx int) {
	it := s.items[idx]
	ctx, cancel := context.WithCancel(context.Background())
	it.cancel = cancel
	s.active = idx

	if _, err := s.store.Transition(it.runID, api.StateRunning, nil); err != nil {
		// the record was cancelled between scheduling decisions; skip it
		s.logger.Warn("Skipping run that is no longer pending", constants.LOG_RUN_ID, it.runID, "error", err.Error())
		it.cancel = nil
		s.active = -1
		cancel()
		s.advanceLocked()
		return
	}

	go s.runJob(ctx, it)
}

// runJob executes one run off the scheduling path and reports the terminal
// state back. It is the only goroutine appending to this run's log.
func (s *Scheduler) runJob(ctx context.Context, it *item) {
	runID := it.runID
	logf := func(text string) {
		if err := s.store.AppendLog(runID, text); err != nil {
			s.logger.Error("Failed to append run log", constants.LOG_RUN_ID, runID, "error", err.Error())
		}
	}

	results, err := s.executor.Execute(ctx, it.config, logf)

	switch {
	case ctx.Err() != nil:
		// cancellation requested; the grace timer may have already flipped
		// the record, in which case this transition is a no-op
		s.transition(runID, api.StateCancelled, nil)
	case err != nil:
		s.logger.Error("Run failed", constants.LOG_RUN_ID, runID, "error", err.Error())
		s.transition(runID, api.StateFailed, &api.MessageInfo{
			Message:     err.Error(),
			MessageCode: constants.MESSAGE_CODE_RUN_FAILED,
		})
	default:
		if err := s.store.SetResults(runID, results); err != nil {
			s.logger.Error("Failed to store results", constants.LOG_RUN_ID, runID, "error", err.Error())
		}
		s.transition(runID, api.StateCompleted, nil)
	}

	s.archiveRun(runID)

	s.mu.Lock()
	if it.cancel != nil {
		it.cancel()
		it.cancel = nil
	}
	if s.active >= 0 && s.items[s.active] == it {
		s.active = -1
	}
	if s.status == api.QueueRunning {
		s.advanceLocked()
	}
	s.updateDepthLocked()
	s.mu.Unlock()
	s.emit()
}

// transition applies a status change and tolerates the already-terminal
// condition, which is expected when cancellation raced the executor.
func (s *Scheduler) transition(runID string, status api.State, detail *api.MessageInfo) {
	applied, err := s.store.Transition(runID, status, detail)
	if err != nil && !serviceerrors.HasMessageCode(err, messages.RunAlreadyTerminal) {
		s.logger.Error("Run transition failed", constants.LOG_RUN_ID, runID, "status", status, "error", err.Error())
		return
	}
	if !applied {
		s.logger.Info("Run already terminal, transition skipped", constants.LOG_RUN_ID, runID, "status", status)
	}
}

// advanceLocked starts the next pending item or completes the queue.
// Invoked only after the current run reached a terminal state, which keeps
// the single-active-run invariant under concurrent submissions.
func (s *Scheduler) advanceLocked() {
	if s.active >= 0 {
		return
	}
	next := s.nextPendingLocked()
	if next < 0 {
		s.status = api.QueueCompleted
		s.logger.Info("Queue completed", constants.LOG_QUEUE, s.status)
		return
	}
	s.startLocked(next)
}

func (s *Scheduler) archiveRun(runID string) {
	if s.archive == nil {
		return
	}
	record, err := s.store.Get(runID)
	if err != nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := s.archive.SaveRun(ctx, record); err != nil {
		// archive failures never affect queue progress
		s.logger.Error("Failed to archive run", constants.LOG_RUN_ID, runID, "error", err.Error())
	}
}

func (s *Scheduler) updateDepthLocked() {
	depth := 0
	for _, it := range s.items {
		record, err := s.store.Get(it.runID)
		if err == nil && record.Status == api.StatePending {
			depth++
		}
	}
	metrics.QueueDepth.Set(float64(depth))
}

// State assembles the externally visible queue view with the advisory ETA.
func (s *Scheduler) State() api.QueueState {
	s.mu.Lock()
	defer s.mu.Unlock()

	state := api.QueueState{
		Status: s.status,
		Items:  make([]api.QueueItem, 0, len(s.items)),
	}
	for i, it := range s.items {
		record, err := s.store.Get(it.runID)
		if err != nil {
			continue
		}
		qi := api.QueueItem{
			Position:   i,
			RunID:      it.runID,
			Status:     record.Status,
			Model:      it.config.Model,
			Provider:   it.config.Provider,
			Benchmarks: it.config.Benchmarks,
			Active:     i == s.active,
		}
		state.Items = append(state.Items, qi)
		if qi.Active {
			id := it.runID
			state.ActiveRun = &id
		}
		if !record.Status.IsTerminal() {
			state.ETASeconds += estimateSeconds(it.config, s.conf.ETAThroughput)
		}
	}
	return state
}
