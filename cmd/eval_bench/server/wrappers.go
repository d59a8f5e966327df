package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/eval-bench/eval-bench/internal/executioncontext"
	"github.com/eval-bench/eval-bench/internal/logging"
	"github.com/eval-bench/eval-bench/internal/messages"
	"github.com/eval-bench/eval-bench/internal/serviceerrors"
	"github.com/eval-bench/eval-bench/pkg/api"
)

// ReqWrapper adapts *http.Request to the handler facing request interface.
type ReqWrapper struct {
	Request *http.Request
}

func NewRequestWrapper(r *http.Request) *ReqWrapper {
	return &ReqWrapper{Request: r}
}

func (r *ReqWrapper) Method() string {
	return r.Request.Method
}

func (r *ReqWrapper) URI() string {
	if r.Request.URL != nil {
		return r.Request.URL.Path
	}
	return r.Request.RequestURI
}

func (r *ReqWrapper) Header(key string) string {
	return r.Request.Header.Get(key)
}

func (r *ReqWrapper) Query(key string) []string {
	return r.Request.URL.Query()[key]
}

func (r *ReqWrapper) BodyAsBytes() ([]byte, error) {
	return nil, fmt.Errorf("request body must be read through the execution context")
}

func (r *ReqWrapper) PathValue(name string) string {
	return r.Request.PathValue(name)
}

// RespWrapper adapts http.ResponseWriter and owns the error serialization:
// service errors map to their message code status, anything else becomes an
// internal server error.
type RespWrapper struct {
	writer http.ResponseWriter
	ctx    *executioncontext.ExecutionContext
}

func NewRespWrapper(w http.ResponseWriter, ctx *executioncontext.ExecutionContext) *RespWrapper {
	return &RespWrapper{writer: w, ctx: ctx}
}

func (w *RespWrapper) Error(err error, requestId string) {
	var serviceError *serviceerrors.ServiceError
	if errors.As(err, &serviceError) {
		w.ErrorWithMessageCode(requestId, serviceError.MessageCode(), serviceError.MessageParams()...)
		return
	}
	w.ErrorWithMessageCode(requestId, messages.UnknownError, "Error", err.Error())
}

func (w *RespWrapper) ErrorWithMessageCode(requestId string, messageCode *messages.MessageCode, messageParams ...any) {
	message := messages.GetErrorMessage(messageCode, messageParams...)
	code := messageCode.GetCode()

	w.SetHeader("Content-Type", "application/json; charset=utf-8")
	w.SetHeader("X-Content-Type-Options", "nosniff")
	w.SetStatusCode(code)

	body := api.Error{
		MessageCode: fmt.Sprintf("%d", code),
		Message:     message,
		Trace:       requestId,
	}
	if err := json.NewEncoder(w.writer).Encode(body); err != nil {
		w.ctx.Logger.Error("Failed to encode error response", "error", err.Error())
	}

	logging.LogRequestFailed(w.ctx, code, message)
}

func (w *RespWrapper) SetHeader(key string, value string) {
	w.writer.Header().Set(key, value)
}

func (w *RespWrapper) SetStatusCode(code int) {
	w.writer.WriteHeader(code)
}

func (w *RespWrapper) Write(buf []byte) (n int, err error) {
	return w.writer.Write(buf)
}

func (w *RespWrapper) WriteJSON(v any, code int) {
	jsonBytes, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		w.ErrorWithMessageCode(w.ctx.RequestID, messages.InternalServerError, "Error", err.Error())
		return
	}
	w.SetHeader("Content-Type", "application/json; charset=utf-8")
	w.SetStatusCode(code)
	if _, err := w.writer.Write(jsonBytes); err != nil {
		w.ctx.Logger.Error("Failed to write response body", "error", err.Error())
	}
}
