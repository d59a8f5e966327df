package runtimes

import (
	"log/slog"

	"github.com/eval-bench/eval-bench/internal/abstractions"
	"github.com/eval-bench/eval-bench/internal/runtimes/local"
)

// NewExecutor selects the executor implementation. Only the in-process
// local executor exists today; this is the seam a remote executor would
// plug into.
func NewExecutor(logger *slog.Logger) (abstractions.Executor, error) {
	return local.NewLocalExecutor(logger)
}
