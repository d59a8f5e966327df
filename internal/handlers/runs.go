package handlers

import (
	"net/http"
	"net/url"
	"strconv"

	"github.com/eval-bench/eval-bench/internal/constants"
	"github.com/eval-bench/eval-bench/internal/executioncontext"
	"github.com/eval-bench/eval-bench/internal/http_wrappers"
	"github.com/eval-bench/eval-bench/internal/messages"
	"github.com/eval-bench/eval-bench/internal/progress"
	"github.com/eval-bench/eval-bench/internal/serviceerrors"
	"github.com/eval-bench/eval-bench/pkg/api"
)

const (
	defaultListLimit = 50
	maxListLimit     = 200
)

// HandleGetRun handles GET /api/v1/runs/{run_id}
func (h *Handlers) HandleGetRun(ctx *executioncontext.ExecutionContext, r http_wrappers.RequestWrapper, w http_wrappers.ResponseWrapper) {
	runID, ok := h.pathParameter(ctx, r, w, constants.PATH_PARAMETER_RUN_ID)
	if !ok {
		return
	}

	view, err := h.gateway.RunView(runID)
	if err != nil {
		h.errorResponse(ctx, w, err)
		return
	}
	h.successResponse(ctx, w, view, http.StatusOK)
}

// HandleListRuns handles GET /api/v1/runs
func (h *Handlers) HandleListRuns(ctx *executioncontext.ExecutionContext, r http_wrappers.RequestWrapper, w http_wrappers.ResponseWrapper) {
	views := h.gateway.RunViews()
	h.successResponse(ctx, w, api.RunListResponse{
		Items:      views,
		TotalCount: len(views),
	}, http.StatusOK)
}

// HandleCancelRun handles DELETE /api/v1/runs/{run_id}
func (h *Handlers) HandleCancelRun(ctx *executioncontext.ExecutionContext, r http_wrappers.RequestWrapper, w http_wrappers.ResponseWrapper) {
	runID, ok := h.pathParameter(ctx, r, w, constants.PATH_PARAMETER_RUN_ID)
	if !ok {
		return
	}

	if err := h.scheduler.CancelRun(runID); err != nil {
		h.errorResponse(ctx, w, err)
		return
	}
	ctx.Logger.Info("Run cancellation requested", constants.LOG_RUN_ID, runID)

	view, err := h.gateway.RunView(runID)
	if err != nil {
		h.errorResponse(ctx, w, err)
		return
	}
	h.successResponse(ctx, w, view, http.StatusAccepted)
}

// HandleListArchivedRuns handles GET /api/v1/archive/runs
func (h *Handlers) HandleListArchivedRuns(ctx *executioncontext.ExecutionContext, r http_wrappers.RequestWrapper, w http_wrappers.ResponseWrapper) {
	if h.archive == nil {
		h.errorResponse(ctx, w, serviceerrors.NewServiceError(messages.ResourceNotFound, "Type", "archive", "ResourceId", "runs"))
		return
	}

	query, err := url.ParseQuery(ctx.Query)
	if err != nil {
		h.errorResponse(ctx, w, serviceerrors.NewServiceError(messages.QueryParameterInvalid, "ParameterName", "query", "Type", "query string", "Value", ctx.Query))
		return
	}

	limit, ok := h.intQueryParameter(ctx, w, query, "limit", defaultListLimit)
	if !ok {
		return
	}
	if limit <= 0 || limit > maxListLimit {
		limit = defaultListLimit
	}
	offset, ok := h.intQueryParameter(ctx, w, query, "offset", 0)
	if !ok {
		return
	}
	statusFilter := query.Get("status")
	if statusFilter != "" {
		if _, err := api.GetState(statusFilter); err != nil {
			h.errorResponse(ctx, w, serviceerrors.NewServiceError(messages.QueryParameterInvalid, "ParameterName", "status", "Type", "run status", "Value", statusFilter))
			return
		}
	}

	results, err := h.archive.ListRuns(ctx.Ctx, limit, offset, statusFilter)
	if err != nil {
		h.errorResponse(ctx, w, err)
		return
	}

	views := make([]api.RunView, 0, len(results.Items))
	for i := range results.Items {
		views = append(views, api.RunView{
			RunRecord: results.Items[i],
			Progress:  progress.Derive(results.Items[i].Log),
		})
	}
	h.successResponse(ctx, w, api.RunListResponse{
		Items:      views,
		TotalCount: results.TotalStored,
	}, http.StatusOK)
}

func (h *Handlers) intQueryParameter(ctx *executioncontext.ExecutionContext, w http_wrappers.ResponseWrapper, query url.Values, name string, fallback int) (int, bool) {
	raw := query.Get(name)
	if raw == "" {
		return fallback, true
	}
	value, err := strconv.Atoi(raw)
	if err != nil || value < 0 {
		h.errorResponse(ctx, w, serviceerrors.NewServiceError(messages.QueryParameterInvalid, "ParameterName", name, "Type", "integer", "Value", raw))
		return 0, false
	}
	return value, true
}
