package errors

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	ErrValidation       = NewError("VALIDATION_ERROR", "validation failed", http.StatusBadRequest)
	ErrInternal         = NewError("INTERNAL_ERROR", "internal server error", http.StatusInternalServerError)
	ErrNotFound         = NewError("NOT_FOUND", "resource not found", http.StatusNotFound)
	ErrReferenceData    = NewError("REFERENCE_DATA_ERROR", "reference data unavailable", http.StatusServiceUnavailable)
	ErrTooManyRequests  = NewError("TOO_MANY_REQUESTS", "rate limit exceeded", http.StatusTooManyRequests)
	ErrDispatcherConfig = NewError("DISPATCHER_CONFIGURATION_ERROR", "dispatcher configuration error", http.StatusInternalServerError)
	ErrDelivery         = NewError("DELIVERY_ERROR", "destination rejected the delivery", http.StatusBadGateway)
)

// fatalCodes are never worth another attempt unless explicitly marked otherwise.
var fatalCodes = map[string]bool{
	ErrValidation.Code:       true,
	ErrNotFound.Code:         true,
	ErrDispatcherConfig.Code: true,
}

type RetryableError interface {
	error
	IsRetryable() bool
}

type FatalError interface {
	error
	IsFatal() bool
}

type Error struct {
	Code      string
	Message   string
	Status    int
	Details   map[string]interface{}
	Cause     error
	retryable *bool
}

func NewError(code, message string, status int) *Error {
	return &Error{
		Code:    code,
		Message: message,
		Status:  status,
		Details: make(map[string]interface{}),
	}
}

func (e *Error) Error() string {
	msg := e.Message

	if len(e.Details) > 0 {
		if detailMsg, ok := e.Details["message"].(string); ok && detailMsg != "" {
			msg = detailMsg
		}
	}

	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Code, msg, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, msg)
}

func (e *Error) Unwrap() error {
	return e.Cause
}

func (e *Error) IsRetryable() bool {
	if e.retryable != nil {
		return *e.retryable
	}
	return !fatalCodes[e.Code]
}

func (e *Error) IsFatal() bool {
	return !e.IsRetryable()
}

func (e *Error) WithCause(cause error) *Error {
	err := *e
	err.Cause = cause
	return &err
}

// WithMessage overrides the generic message while keeping the code.
func (e *Error) WithMessage(msg string) *Error {
	err := *e
	err.Message = msg
	return &err
}

func (e *Error) WithDetail(key string, value interface{}) *Error {
	err := *e
	details := make(map[string]interface{}, len(e.Details)+1)
	for k, v := range e.Details {
		details[k] = v
	}
	details[key] = value
	err.Details = details
	return &err
}

func (e *Error) AsRetryable() *Error {
	err := *e
	retryable := true
	err.retryable = &retryable
	return &err
}

func (e *Error) AsFatal() *Error {
	err := *e
	retryable := false
	err.retryable = &retryable
	return &err
}

func Wrap(err error, appErr *Error) *Error {
	if err == nil {
		return nil
	}
	return appErr.WithCause(err)
}

func hasCode(err error, code string) bool {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Code == code
	}
	return false
}

func IsNotFound(err error) bool {
	return hasCode(err, ErrNotFound.Code)
}

func IsValidation(err error) bool {
	return hasCode(err, ErrValidation.Code)
}

func IsReferenceData(err error) bool {
	return hasCode(err, ErrReferenceData.Code)
}

func IsTooManyRequests(err error) bool {
	return hasCode(err, ErrTooManyRequests.Code)
}

func IsDispatcherConfig(err error) bool {
	return hasCode(err, ErrDispatcherConfig.Code)
}

func IsDelivery(err error) bool {
	return hasCode(err, ErrDelivery.Code)
}

// IsFatal reports whether err must not be redelivered.
func IsFatal(err error) bool {
	var fatalErr FatalError
	if errors.As(err, &fatalErr) {
		return fatalErr.IsFatal()
	}
	return false
}

func ToHTTPStatus(err error) int {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Status
	}
	return http.StatusInternalServerError
}

func ToErrorResponse(err error) map[string]interface{} {
	var appErr *Error
	if !errors.As(err, &appErr) {
		appErr = ErrInternal.WithCause(err)
	}

	response := map[string]interface{}{
		"error":      appErr.Error(),
		"error_code": appErr.Code,
	}

	if len(appErr.Details) > 0 {
		response["details"] = appErr.Details
	}

	return response
}
