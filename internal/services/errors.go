package services

import (
	"errors"
	"fmt"

	"chamberhub/campaigns/internal/constants"
)

// ServiceError is returned by every service operation that fails for a
// domain reason. Handlers map Code to an HTTP status.
type ServiceError struct {
	Code    string
	Message string
	Err     error
}

func (e *ServiceError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *ServiceError) Unwrap() error {
	return e.Err
}

func Rejection(format string, args ...interface{}) error {
	return &ServiceError{Code: constants.ErrCodeRejected, Message: fmt.Sprintf(format, args...)}
}

func Validation(format string, args ...interface{}) error {
	return &ServiceError{Code: constants.ErrCodeValidation, Message: fmt.Sprintf(format, args...)}
}

func NotFound(what string) error {
	return &ServiceError{Code: constants.ErrCodeNotFound, Message: what + " not found"}
}

func Forbidden(format string, args ...interface{}) error {
	return &ServiceError{Code: constants.ErrCodeForbidden, Message: fmt.Sprintf(format, args...)}
}

func Consistency(message string, err error) error {
	return &ServiceError{Code: constants.ErrCodeConsistency, Message: message, Err: err}
}

func InvalidLink(err error) error {
	return &ServiceError{Code: constants.ErrCodeInvalidLink, Message: constants.GetErrorMessage(constants.ErrCodeInvalidLink), Err: err}
}

// ErrorCode returns the ServiceError code carried by err, or "" for
// infrastructure errors.
func ErrorCode(err error) string {
	var svcErr *ServiceError
	if errors.As(err, &svcErr) {
		return svcErr.Code
	}
	return ""
}
