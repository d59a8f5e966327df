package http_wrappers

import "github.com/eval-bench/eval-bench/internal/messages"

// RequestWrapper abstracts the underlying HTTP request.
type RequestWrapper interface {
	Method() string
	URI() string
	Header(key string) string
	Query(key string) []string
	BodyAsBytes() ([]byte, error)
	PathValue(name string) string
}

// ResponseWrapper abstracts the underlying HTTP response writer.
type ResponseWrapper interface {
	Error(err error, requestId string)
	ErrorWithMessageCode(requestId string, messageCode *messages.MessageCode, messageParams ...any)
	SetHeader(key string, value string)
	SetStatusCode(code int)
	Write(buf []byte) (n int, err error)
	WriteJSON(v any, code int)
}
