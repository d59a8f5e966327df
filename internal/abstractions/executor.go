package abstractions

import (
	"context"

	"github.com/eval-bench/eval-bench/pkg/api"
)

// LogFunc receives one free-text log line from the executor. Lines are
// appended to the run's log in call order; the executor is the single
// writer for its run.
type LogFunc func(text string)

// Executor runs one evaluation job to completion or failure. Implementations
// may be long running; they must watch ctx between external calls and return
// promptly once it is cancelled. There is no mechanism to preempt an
// in-flight provider call.
type Executor interface {
	Name() string
	Execute(ctx context.Context, config api.RunConfig, log LogFunc) (map[string]api.MetricBundle, error)
}
