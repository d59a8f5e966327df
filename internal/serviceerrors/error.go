package serviceerrors

import (
	"errors"

	"github.com/eval-bench/eval-bench/internal/messages"
)

type ServiceError struct {
	messageCode   *messages.MessageCode
	messageParams []any
}

func (e *ServiceError) Error() string {
	return messages.GetErrorMessage(e.messageCode, e.messageParams...)
}

func (e *ServiceError) MessageCode() *messages.MessageCode {
	return e.messageCode
}

func (e *ServiceError) MessageParams() []any {
	return e.messageParams
}

func NewServiceError(messageCode *messages.MessageCode, messageParams ...any) *ServiceError {
	return &ServiceError{
		messageCode:   messageCode,
		messageParams: messageParams,
	}
}

// HasMessageCode reports whether err is a ServiceError carrying the given code.
func HasMessageCode(err error, messageCode *messages.MessageCode) bool {
	var se *ServiceError
	if errors.As(err, &se) {
		return se.messageCode == messageCode
	}
	return false
}
