package executioncontext

import (
	"context"
	"io"
	"log/slog"
	"net/http"
)

// ExecutionContext carries the request-scoped state handed to handlers:
// the request id, a logger already enriched with request fields, and the
// raw request so the body can be read once and cached.
type ExecutionContext struct {
	Ctx       context.Context
	RequestID string
	Logger    *slog.Logger
	Method    string
	URI       string
	Query     string
	Header    http.Header

	body      io.ReadCloser
	bodyBytes []byte
	bodyRead  bool
}

func NewExecutionContext(ctx context.Context,
	requestID string,
	logger *slog.Logger,
	method string,
	uri string,
	query string,
	header http.Header,
	body io.ReadCloser) *ExecutionContext {

	return &ExecutionContext{
		Ctx:       ctx,
		RequestID: requestID,
		Logger:    logger,
		Method:    method,
		URI:       uri,
		Query:     query,
		Header:    header,
		body:      body,
	}
}

// GetBodyAsBytes reads and caches the request body. Repeated calls return
// the cached bytes.
func (e *ExecutionContext) GetBodyAsBytes() ([]byte, error) {
	if e.bodyRead {
		return e.bodyBytes, nil
	}
	e.bodyRead = true
	if e.body == nil {
		return nil, nil
	}
	defer e.body.Close()
	buf, err := io.ReadAll(e.body)
	if err != nil {
		return nil, err
	}
	e.bodyBytes = buf
	return buf, nil
}
