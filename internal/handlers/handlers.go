package handlers

import (
	"github.com/eval-bench/eval-bench/internal/abstractions"
	"github.com/eval-bench/eval-bench/internal/config"
	"github.com/eval-bench/eval-bench/internal/executioncontext"
	"github.com/eval-bench/eval-bench/internal/gateway"
	"github.com/eval-bench/eval-bench/internal/http_wrappers"
	"github.com/eval-bench/eval-bench/internal/logging"
	"github.com/eval-bench/eval-bench/internal/messages"
	"github.com/eval-bench/eval-bench/internal/queue"
	"github.com/eval-bench/eval-bench/internal/serviceerrors"
	"github.com/go-playground/validator/v10"
)

type Handlers struct {
	scheduler     *queue.Scheduler
	gateway       *gateway.Gateway
	archive       abstractions.Archive
	validate      *validator.Validate
	serviceConfig *config.Config
}

func New(scheduler *queue.Scheduler,
	gateway *gateway.Gateway,
	archive abstractions.Archive,
	validate *validator.Validate,
	serviceConfig *config.Config) *Handlers {

	return &Handlers{
		scheduler:     scheduler,
		gateway:       gateway,
		archive:       archive,
		validate:      validate,
		serviceConfig: serviceConfig,
	}
}

// errorResponse maps a service error to its message code response, falling
// back to UnknownError for anything that is not a ServiceError.
func (h *Handlers) errorResponse(ctx *executioncontext.ExecutionContext, w http_wrappers.ResponseWrapper, err error) {
	w.Error(err, ctx.RequestID)
}

func (h *Handlers) successResponse(ctx *executioncontext.ExecutionContext, w http_wrappers.ResponseWrapper, response any, code int) {
	w.WriteJSON(response, code)
	logging.LogRequestSuccess(ctx, code)
}

// pathParameter fetches a required path parameter or writes the error response.
func (h *Handlers) pathParameter(ctx *executioncontext.ExecutionContext, r http_wrappers.RequestWrapper, w http_wrappers.ResponseWrapper, name string) (string, bool) {
	value := r.PathValue(name)
	if value == "" {
		h.errorResponse(ctx, w, serviceerrors.NewServiceError(messages.MissingPathParameter, "ParameterName", name))
		return "", false
	}
	return value, true
}
