package api

import (
	"fmt"
	"time"
)

// State represents the run state enum
type State string

const (
	StatePending   State = "pending"
	StateRunning   State = "running"
	StateCompleted State = "completed"
	StateFailed    State = "failed"
	StateCancelled State = "cancelled"
)

// IsTerminal reports whether the state is absorbing. A run in a terminal
// state never transitions again.
func (s State) IsTerminal() bool {
	switch s {
	case StateCompleted, StateFailed, StateCancelled:
		return true
	}
	return false
}

func GetState(s string) (State, error) {
	switch s {
	case string(StatePending):
		return StatePending, nil
	case string(StateRunning):
		return StateRunning, nil
	case string(StateCompleted):
		return StateCompleted, nil
	case string(StateFailed):
		return StateFailed, nil
	case string(StateCancelled):
		return StateCancelled, nil
	default:
		return State(s), fmt.Errorf("invalid run state: %s", s)
	}
}

// InferenceSettings are the sampling parameters forwarded to the provider.
// Zero values are replaced by the documented defaults at submission time.
type InferenceSettings struct {
	Temperature *float64 `json:"temperature,omitempty" validate:"omitempty,gte=0,lte=2"`
	TopP        *float64 `json:"top_p,omitempty" validate:"omitempty,gte=0,lte=1"`
	TopK        *int     `json:"top_k,omitempty" validate:"omitempty,gt=0"`
	MaxTokens   *int     `json:"max_tokens,omitempty" validate:"omitempty,gt=0"`
	Seed        *int64   `json:"seed,omitempty"`
}

// Defaults applied when the submitter leaves a setting unset.
const (
	DefaultTemperature = 0.7
	DefaultTopP        = 0.9
	DefaultTopK        = 40
	DefaultMaxTokens   = 512
)

// ApplyDefaults fills unset sampling parameters in place.
func (s *InferenceSettings) ApplyDefaults() {
	if s.Temperature == nil {
		v := DefaultTemperature
		s.Temperature = &v
	}
	if s.TopP == nil {
		v := DefaultTopP
		s.TopP = &v
	}
	if s.TopK == nil {
		v := DefaultTopK
		s.TopK = &v
	}
	if s.MaxTokens == nil {
		v := DefaultMaxTokens
		s.MaxTokens = &v
	}
}

// RunConfig is the immutable description of one evaluation job. It is
// created by the submitter and never mutated afterwards.
//
// SampleSize 0 means "all available samples" for each benchmark.
type RunConfig struct {
	Model      string            `json:"model" validate:"required"`
	Provider   string            `json:"provider" validate:"required"`
	Benchmarks []string          `json:"benchmarks" validate:"required,min=1,dive,required"`
	SampleSize int               `json:"sample_size" validate:"gte=0"`
	Settings   InferenceSettings `json:"settings"`
	Endpoint   string            `json:"endpoint,omitempty" validate:"omitempty,url"`
	Credential string            `json:"credential,omitempty"`
}

// MetricBundle holds the scored outcome of a single benchmark.
type MetricBundle struct {
	Accuracy float64        `json:"accuracy"`
	Correct  int            `json:"correct"`
	Total    int            `json:"total"`
	Extra    map[string]any `json:"extra,omitempty"`
}

// RunRecord is the mutable execution record for one submitted RunConfig.
// It is owned exclusively by the run store; the executor only appends to
// the log and results, and status only changes through store transitions.
type RunRecord struct {
	ID          string                  `json:"id"`
	Config      RunConfig               `json:"config"`
	Status      State                   `json:"status"`
	Log         []LogLine               `json:"log,omitempty"`
	Results     map[string]MetricBundle `json:"results,omitempty"`
	CreatedAt   time.Time               `json:"created_at"`
	StartedAt   *time.Time              `json:"started_at,omitempty"`
	CompletedAt *time.Time              `json:"completed_at,omitempty"`
	Error       *MessageInfo            `json:"error,omitempty"`
}

// ProgressSnapshot is the derived, point-in-time view of a running
// evaluation. It is recomputed from the log on every read and never stored.
type ProgressSnapshot struct {
	CurrentBenchmark *string  `json:"current_benchmark"`
	Percent          float64  `json:"percent"`
	Accuracy         *float64 `json:"accuracy"`
	LastLogIndex     int      `json:"last_log_index"`
}

// RunView is the REST shape of a run: the record plus its derived progress.
type RunView struct {
	RunRecord
	Progress ProgressSnapshot `json:"progress"`
}

// RunListResponse is the response for listing runs.
type RunListResponse struct {
	Items      []RunView `json:"items"`
	TotalCount int       `json:"total_count"`
}
