package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/eval-bench/eval-bench/internal/constants"
	"github.com/eval-bench/eval-bench/internal/executioncontext"
	"github.com/eval-bench/eval-bench/internal/http_wrappers"
	"github.com/eval-bench/eval-bench/internal/messages"
	"github.com/eval-bench/eval-bench/internal/serialization"
	"github.com/eval-bench/eval-bench/internal/serviceerrors"
	"github.com/eval-bench/eval-bench/pkg/api"
	"github.com/go-playground/validator/v10"
)

// HandleSubmitRuns handles POST /api/v1/queue/runs
func (h *Handlers) HandleSubmitRuns(ctx *executioncontext.ExecutionContext, r http_wrappers.RequestWrapper, w http_wrappers.ResponseWrapper) {
	bodyBytes, err := ctx.GetBodyAsBytes()
	if err != nil {
		h.errorResponse(ctx, w, serviceerrors.NewServiceError(messages.InternalServerError, "Error", err.Error()))
		return
	}

	request := &api.SubmitRunsRequest{}
	if err := serialization.Unmarshal(h.validate, ctx, bodyBytes, request); err != nil {
		var validationErrors validator.ValidationErrors
		if errors.As(err, &validationErrors) {
			h.errorResponse(ctx, w, serviceerrors.NewServiceError(messages.InvalidRunConfig, "Error", err.Error()))
			return
		}
		h.errorResponse(ctx, w, serviceerrors.NewServiceError(messages.JSONUnmarshalFailed, "Type", "run submission", "Error", err.Error()))
		return
	}

	submitted := h.scheduler.Enqueue(request.Runs)
	h.successResponse(ctx, w, api.SubmitRunsResponse{Runs: submitted}, http.StatusAccepted)
}

// HandleStartQueue handles POST /api/v1/queue/start
func (h *Handlers) HandleStartQueue(ctx *executioncontext.ExecutionContext, r http_wrappers.RequestWrapper, w http_wrappers.ResponseWrapper) {
	if err := h.scheduler.Start(); err != nil {
		h.errorResponse(ctx, w, err)
		return
	}
	h.successResponse(ctx, w, h.gateway.QueueView(), http.StatusAccepted)
}

// HandleGetQueue handles GET /api/v1/queue
func (h *Handlers) HandleGetQueue(ctx *executioncontext.ExecutionContext, r http_wrappers.RequestWrapper, w http_wrappers.ResponseWrapper) {
	h.successResponse(ctx, w, h.gateway.QueueView(), http.StatusOK)
}

// HandleCancelQueue handles DELETE /api/v1/queue
func (h *Handlers) HandleCancelQueue(ctx *executioncontext.ExecutionContext, r http_wrappers.RequestWrapper, w http_wrappers.ResponseWrapper) {
	if err := h.scheduler.CancelQueue(); err != nil {
		h.errorResponse(ctx, w, err)
		return
	}
	h.successResponse(ctx, w, h.gateway.QueueView(), http.StatusOK)
}

// HandleReorderQueue handles POST /api/v1/queue/reorder
func (h *Handlers) HandleReorderQueue(ctx *executioncontext.ExecutionContext, r http_wrappers.RequestWrapper, w http_wrappers.ResponseWrapper) {
	bodyBytes, err := ctx.GetBodyAsBytes()
	if err != nil {
		h.errorResponse(ctx, w, serviceerrors.NewServiceError(messages.InternalServerError, "Error", err.Error()))
		return
	}

	request := &api.ReorderRequest{}
	if err := serialization.Unmarshal(h.validate, ctx, bodyBytes, request); err != nil {
		h.errorResponse(ctx, w, serviceerrors.NewServiceError(messages.JSONUnmarshalFailed, "Type", "reorder request", "Error", err.Error()))
		return
	}

	if err := h.scheduler.Reorder(request.FromIndex, request.ToIndex); err != nil {
		h.errorResponse(ctx, w, err)
		return
	}
	h.successResponse(ctx, w, h.gateway.QueueView(), http.StatusOK)
}

// HandleDuplicateItem handles POST /api/v1/queue/duplicate
func (h *Handlers) HandleDuplicateItem(ctx *executioncontext.ExecutionContext, r http_wrappers.RequestWrapper, w http_wrappers.ResponseWrapper) {
	bodyBytes, err := ctx.GetBodyAsBytes()
	if err != nil {
		h.errorResponse(ctx, w, serviceerrors.NewServiceError(messages.InternalServerError, "Error", err.Error()))
		return
	}

	request := &api.DuplicateRequest{}
	if err := serialization.Unmarshal(h.validate, ctx, bodyBytes, request); err != nil {
		h.errorResponse(ctx, w, serviceerrors.NewServiceError(messages.JSONUnmarshalFailed, "Type", "duplicate request", "Error", err.Error()))
		return
	}

	submitted, err := h.scheduler.Duplicate(request.Index)
	if err != nil {
		h.errorResponse(ctx, w, err)
		return
	}
	h.successResponse(ctx, w, submitted, http.StatusCreated)
}

// HandleRemoveItem handles DELETE /api/v1/queue/items/{index}
func (h *Handlers) HandleRemoveItem(ctx *executioncontext.ExecutionContext, r http_wrappers.RequestWrapper, w http_wrappers.ResponseWrapper) {
	raw, ok := h.pathParameter(ctx, r, w, constants.PATH_PARAMETER_ITEM_INDEX)
	if !ok {
		return
	}
	index, err := strconv.Atoi(raw)
	if err != nil {
		h.errorResponse(ctx, w, serviceerrors.NewServiceError(messages.QueryParameterInvalid, "ParameterName", constants.PATH_PARAMETER_ITEM_INDEX, "Type", "integer", "Value", raw))
		return
	}

	if err := h.scheduler.Remove(index); err != nil {
		h.errorResponse(ctx, w, err)
		return
	}
	h.successResponse(ctx, w, h.gateway.QueueView(), http.StatusOK)
}
