package handlers

import (
	"net/http"
	"time"

	"github.com/eval-bench/eval-bench/internal/executioncontext"
	"github.com/eval-bench/eval-bench/internal/http_wrappers"
)

type StatusResponse struct {
	Service     string    `json:"service"`
	Version     string    `json:"version"`
	Status      string    `json:"status"`
	QueueStatus string    `json:"queue_status"`
	ActiveRun   *string   `json:"active_run,omitempty"`
	QueuedRuns  int       `json:"queued_runs"`
	Archive     string    `json:"archive,omitempty"`
	Timestamp   time.Time `json:"timestamp"`
}

// HandleStatus reports the service identity plus a one-line view of the
// queue, cheap enough to poll from a dashboard.
func (h *Handlers) HandleStatus(ctx *executioncontext.ExecutionContext, r http_wrappers.RequestWrapper, w http_wrappers.ResponseWrapper, version string) {
	queueState := h.gateway.QueueView()

	response := StatusResponse{
		Service:     "eval-bench",
		Version:     version,
		Status:      "running",
		QueueStatus: string(queueState.Status),
		ActiveRun:   queueState.ActiveRun,
		QueuedRuns:  len(queueState.Items),
		Timestamp:   time.Now().UTC(),
	}
	if h.archive != nil {
		response.Archive = h.archive.GetDatasourceName()
	}
	w.WriteJSON(response, http.StatusOK)
}
