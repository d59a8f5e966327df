package abstractions

import (
	"context"
	"time"

	"github.com/eval-bench/eval-bench/pkg/api"
)

type QueryResults[T any] struct {
	Items       []T
	TotalStored int
}

// Archive is the durable store for finished run records. The queue itself
// only ever reads its in-memory view; the archive is written once per run
// on the terminal transition and serves retention queries.
type Archive interface {
	// This is used to identify the archive implementation in the logs and error messages
	GetDatasourceName() string

	Ping(timeout time.Duration) error

	SaveRun(ctx context.Context, record *api.RunRecord) error
	GetRun(ctx context.Context, id string) (*api.RunRecord, error)
	ListRuns(ctx context.Context, limit int, offset int, statusFilter string) (*QueryResults[api.RunRecord], error)

	// Close the archive connection
	Close() error
}

// This interface must be decoupled from the service HTTP layer.
// Do not pass ExecutionContext, Request or Response wrappers either.
