package queue

import (
	"time"

	"github.com/eval-bench/eval-bench/internal/constants"
	"github.com/eval-bench/eval-bench/internal/messages"
	"github.com/eval-bench/eval-bench/internal/serviceerrors"
	"github.com/eval-bench/eval-bench/pkg/api"
)

// CancelRun cancels a single run. A pending run is removed from the queue
// and its record flipped to cancelled. For a running run the executor is
// signalled and a grace timer is armed: whichever of executor return and
// timer expiry comes first performs the cancelled transition, the loser's
// transition is an already-terminal no-op. Cancelling an already terminal
// run is a no-op, not an error.
func (s *Scheduler) CancelRun(runID string) error {
	// the status check and the pending->cancelled flip happen under the
	// scheduler lock: startLocked promotes records under the same lock, so
	// a run cannot slip into running between check and flip
	s.mu.Lock()
	record, err := s.store.Get(runID)
	if err != nil {
		s.mu.Unlock()
		return err
	}

	switch record.Status {
	case api.StateCompleted, api.StateFailed, api.StateCancelled:
		s.mu.Unlock()
		return nil

	case api.StatePending:
		s.removeItemLocked(runID)
		s.transition(runID, api.StateCancelled, nil)
		s.updateDepthLocked()
		s.mu.Unlock()
		s.emit()
		return nil

	case api.StateRunning:
		s.mu.Unlock()
		s.signalCancel(runID)
		return nil
	}
	s.mu.Unlock()
	return nil
}

// signalCancel cancels the executor context for runID and arms the grace
// timer. Cancellation is cooperative: the in-flight provider call cannot be
// preempted, so the record may stay running until the call returns or the
// grace period elapses.
func (s *Scheduler) signalCancel(runID string) {
	s.mu.Lock()
	var cancelled bool
	for _, it := range s.items {
		if it.runID == runID && it.cancel != nil {
			it.cancel()
			cancelled = true
			break
		}
	}
	grace := s.conf.CancelGracePeriod
	s.mu.Unlock()

	if !cancelled {
		return
	}
	s.logger.Info("Cancellation signalled", constants.LOG_RUN_ID, runID, "grace", grace)

	time.AfterFunc(grace, func() {
		record, err := s.store.Get(runID)
		if err != nil || record.Status.IsTerminal() {
			return
		}
		s.logger.Warn("Cancellation grace period elapsed, forcing terminal state", constants.LOG_RUN_ID, runID)
		s.transition(runID, api.StateCancelled, nil)
		s.archiveRun(runID)
		s.emit()
	})
}

// CancelQueue cancels the active run, discards all pending items and sets
// the queue status to cancelled. Repeated calls after the queue is already
// cancelled or completed are no-ops.
func (s *Scheduler) CancelQueue() error {
	s.mu.Lock()
	if s.status == api.QueueCancelled || (s.status != api.QueueRunning && s.nextPendingLocked() < 0) {
		s.mu.Unlock()
		return nil
	}
	s.status = api.QueueCancelled

	var activeID string
	var pending []string
	kept := make([]*item, 0, len(s.items))
	for i, it := range s.items {
		record, err := s.store.Get(it.runID)
		if err != nil {
			continue
		}
		if i == s.active {
			activeID = it.runID
			kept = append(kept, it)
			continue
		}
		if record.Status == api.StatePending {
			pending = append(pending, it.runID)
			continue
		}
		kept = append(kept, it)
	}
	s.items = kept
	s.reindexActiveLocked()
	s.updateDepthLocked()
	s.mu.Unlock()

	for _, runID := range pending {
		s.transition(runID, api.StateCancelled, nil)
	}
	if activeID != "" {
		s.signalCancel(activeID)
	}

	s.logger.Info("Queue cancelled", constants.LOG_QUEUE, api.QueueCancelled, "discarded", len(pending))
	s.emit()
	return nil
}

// Reorder moves the pending item at fromIndex to toIndex. Only entries that
// are still pending may move; touching the active or a finished entry fails
// with QueueItemNotPending.
func (s *Scheduler) Reorder(fromIndex int, toIndex int) error {
	s.mu.Lock()
	defer func() { s.mu.Unlock(); s.emit() }()

	if err := s.checkIndexLocked(fromIndex); err != nil {
		return err
	}
	if toIndex < 0 || toIndex >= len(s.items) {
		return serviceerrors.NewServiceError(messages.QueueIndexOutOfRange, "Index", toIndex)
	}
	if err := s.checkPendingLocked(fromIndex); err != nil {
		return err
	}
	if err := s.checkPendingLocked(toIndex); err != nil {
		return err
	}

	it := s.items[fromIndex]
	s.items = append(s.items[:fromIndex], s.items[fromIndex+1:]...)
	rest := make([]*item, 0, len(s.items)+1)
	rest = append(rest, s.items[:toIndex]...)
	rest = append(rest, it)
	rest = append(rest, s.items[toIndex:]...)
	s.items = rest
	s.reindexActiveLocked()
	return nil
}

// Remove deletes the pending item at index and cancels its record.
func (s *Scheduler) Remove(index int) error {
	s.mu.Lock()
	if err := s.checkIndexLocked(index); err != nil {
		s.mu.Unlock()
		return err
	}
	if err := s.checkPendingLocked(index); err != nil {
		s.mu.Unlock()
		return err
	}
	runID := s.items[index].runID
	s.items = append(s.items[:index], s.items[index+1:]...)
	s.reindexActiveLocked()
	s.updateDepthLocked()
	s.mu.Unlock()

	s.transition(runID, api.StateCancelled, nil)
	s.emit()
	return nil
}

// Duplicate inserts a copy of the pending item at index right after it. The
// copy gets its own run id and record.
func (s *Scheduler) Duplicate(index int) (*api.SubmittedRun, error) {
	s.mu.Lock()
	if err := s.checkIndexLocked(index); err != nil {
		s.mu.Unlock()
		return nil, err
	}
	if err := s.checkPendingLocked(index); err != nil {
		s.mu.Unlock()
		return nil, err
	}
	cfg := s.items[index].config
	runID := s.store.Create(cfg)
	dup := &item{runID: runID, config: cfg}
	rest := make([]*item, 0, len(s.items)+1)
	rest = append(rest, s.items[:index+1]...)
	rest = append(rest, dup)
	rest = append(rest, s.items[index+1:]...)
	s.items = rest
	s.reindexActiveLocked()
	s.updateDepthLocked()
	position := index + 1
	s.mu.Unlock()

	s.emit()
	return &api.SubmittedRun{RunID: runID, Position: position}, nil
}

func (s *Scheduler) checkIndexLocked(index int) error {
	if index < 0 || index >= len(s.items) {
		return serviceerrors.NewServiceError(messages.QueueIndexOutOfRange, "Index", index)
	}
	return nil
}

func (s *Scheduler) checkPendingLocked(index int) error {
	record, err := s.store.Get(s.items[index].runID)
	if err != nil {
		return err
	}
	if record.Status != api.StatePending {
		return serviceerrors.NewServiceError(messages.QueueItemNotPending, "Index", index, "Status", record.Status)
	}
	return nil
}

func (s *Scheduler) removeItemLocked(runID string) {
	for i, it := range s.items {
		if it.runID == runID {
			s.items = append(s.items[:i], s.items[i+1:]...)
			break
		}
	}
	s.reindexActiveLocked()
}

// reindexActiveLocked repairs the active cursor after a structural change.
func (s *Scheduler) reindexActiveLocked() {
	s.active = -1
	for i, it := range s.items {
		if it.cancel != nil {
			s.active = i
			return
		}
	}
}
