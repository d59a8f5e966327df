package server

import (
	"context"
	"net/http"

	"github.com/eval-bench/eval-bench/internal/executioncontext"
	"github.com/eval-bench/eval-bench/internal/logging"
)

// newExecutionContext creates the request-scoped context handed to handlers.
// The logger is already enriched with the request fields so every log line
// written while serving the request carries the request id.
func (s *Server) newExecutionContext(r *http.Request) *executioncontext.ExecutionContext {
	requestID, enhancedLogger := s.loggerWithRequest(r)

	ctx := executioncontext.NewExecutionContext(
		context.Background(),
		requestID,
		enhancedLogger,
		r.Method,
		r.URL.Path,
		r.URL.RawQuery,
		r.Header,
		r.Body,
	)
	logging.LogRequestStarted(ctx)
	return ctx
}
