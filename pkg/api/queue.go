package api

import "fmt"

// QueueStatus represents the queue level state enum
type QueueStatus string

const (
	QueueIdle      QueueStatus = "idle"
	QueueRunning   QueueStatus = "running"
	QueueCompleted QueueStatus = "completed"
	QueueCancelled QueueStatus = "cancelled"
)

func GetQueueStatus(s string) (QueueStatus, error) {
	switch s {
	case string(QueueIdle):
		return QueueIdle, nil
	case string(QueueRunning):
		return QueueRunning, nil
	case string(QueueCompleted):
		return QueueCompleted, nil
	case string(QueueCancelled):
		return QueueCancelled, nil
	default:
		return QueueStatus(s), fmt.Errorf("invalid queue status: %s", s)
	}
}

// QueueItem is one entry of the queue: the run identifier plus enough of
// the record to render the queue without a second lookup.
type QueueItem struct {
	Position   int      `json:"position"`
	RunID      string   `json:"run_id"`
	Status     State    `json:"status"`
	Model      string   `json:"model"`
	Provider   string   `json:"provider"`
	Benchmarks []string `json:"benchmarks"`
	Active     bool     `json:"active"`
}

// QueueState is the scheduler's externally visible view.
type QueueState struct {
	Status     QueueStatus `json:"status"`
	Items      []QueueItem `json:"items"`
	ActiveRun  *string     `json:"active_run,omitempty"`
	ETASeconds float64     `json:"eta_seconds"`
}

// SubmitRunsRequest submits one or more run configurations.
type SubmitRunsRequest struct {
	Runs []RunConfig `json:"runs" validate:"required,min=1,dive"`
}

// SubmittedRun reports the id and queue position assigned to one config.
type SubmittedRun struct {
	RunID    string `json:"run_id"`
	Position int    `json:"position"`
}

// SubmitRunsResponse is the response to a submission.
type SubmitRunsResponse struct {
	Runs []SubmittedRun `json:"runs"`
}

// ReorderRequest moves a pending queue item from one index to another.
type ReorderRequest struct {
	FromIndex int `json:"from_index" validate:"gte=0"`
	ToIndex   int `json:"to_index" validate:"gte=0"`
}

// DuplicateRequest duplicates the pending queue item at Index.
type DuplicateRequest struct {
	Index int `json:"index" validate:"gte=0"`
}
