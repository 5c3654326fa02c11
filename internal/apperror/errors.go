// Package apperror is the hot tub controller's single error currency:
// every domain failure that reaches the HTTP boundary is (or wraps) an
// *AppError, grounded on the teacher's pkg/errors.
package apperror

import (
	"errors"
	"fmt"
	"net/http"
)

// AppError is a classified, HTTP-status-bearing error.
type AppError struct {
	Code       string
	Message    string
	HTTPStatus int
	Err        error
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// Error codes the domain packages raise; the HTTP error handler writes each
// as the wire envelope's "error_code" field.
const (
	CodeBadRequest         = "BAD_REQUEST"
	CodeUnauthorized       = "UNAUTHORIZED"
	CodeForbidden          = "FORBIDDEN"
	CodeNotFound           = "NOT_FOUND"
	CodeConflict           = "CONFLICT"
	CodeValidation         = "VALIDATION_ERROR"
	CodeInternal           = "INTERNAL_SERVER_ERROR"
	CodeUnavailable        = "SERVICE_UNAVAILABLE"
	CodeTimeout            = "TIMEOUT"
	CodeCronAccess         = "CRON_ACCESS_ERROR"
	CodeCronWrite          = "CRON_WRITE_ERROR"
	CodeSensorUnreachable  = "SENSOR_UNREACHABLE"
	CodeWebhookFailed      = "WEBHOOK_FAILED"
	CodeSafetyLimit        = "SAFETY_LIMIT_EXCEEDED"
	CodeStaleReading       = "STALE_READING"
)

func New(code, message string, httpStatus int) *AppError {
	return &AppError{Code: code, Message: message, HTTPStatus: httpStatus}
}

func Wrap(err error, code, message string, httpStatus int) *AppError {
	return &AppError{Code: code, Message: message, HTTPStatus: httpStatus, Err: err}
}

func BadRequest(message string) *AppError {
	return New(CodeBadRequest, message, http.StatusBadRequest)
}

func Unauthorized(message string) *AppError {
	return New(CodeUnauthorized, message, http.StatusUnauthorized)
}

func Forbidden(message string) *AppError {
	return New(CodeForbidden, message, http.StatusForbidden)
}

func NotFound(message string) *AppError {
	return New(CodeNotFound, message, http.StatusNotFound)
}

func Conflict(message string) *AppError {
	return New(CodeConflict, message, http.StatusConflict)
}

func ValidationError(message string) *AppError {
	return New(CodeValidation, message, http.StatusBadRequest)
}

func Internal(message string) *AppError {
	return New(CodeInternal, message, http.StatusInternalServerError)
}

func Unavailable(message string) *AppError {
	return New(CodeUnavailable, message, http.StatusServiceUnavailable)
}

// CronAccessError wraps a failure to read the host crontab, per spec.md
// §4.1's C1 contract.
func CronAccessError(err error) *AppError {
	return Wrap(err, CodeCronAccess, "failed to read crontab", http.StatusInternalServerError)
}

// CronWriteError wraps a failure to install the new crontab.
func CronWriteError(err error) *AppError {
	return Wrap(err, CodeCronWrite, "failed to write crontab", http.StatusInternalServerError)
}

func SensorUnreachable(err error) *AppError {
	return Wrap(err, CodeSensorUnreachable, "sensor cloud unreachable", http.StatusServiceUnavailable)
}

func WebhookFailed(err error) *AppError {
	return Wrap(err, CodeWebhookFailed, "webhook dispatch failed", http.StatusBadGateway)
}

func SafetyLimitExceeded(message string) *AppError {
	return New(CodeSafetyLimit, message, http.StatusConflict)
}

func StaleReading(message string) *AppError {
	return New(CodeStaleReading, message, http.StatusConflict)
}

// As is a package-local convenience over errors.As for the one type callers
// ever need to recover.
func As(err error) (*AppError, bool) {
	var ae *AppError
	ok := errors.As(err, &ae)
	return ae, ok
}
