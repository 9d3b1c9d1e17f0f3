package http

import (
	"fmt"
	"net/http"
)

// AppError is an error with an HTTP status and a stable code for clients.
type AppError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Field   string `json:"field,omitempty"`
	Status  int    `json:"-"`
	Err     error  `json:"-"`
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *AppError) Unwrap() error { return e.Err }

// WithError attaches the cause. It is logged, never serialized.
func (e *AppError) WithError(err error) *AppError {
	e.Err = err
	return e
}

func NewAppError(code, field, message string, status int) *AppError {
	return &AppError{Code: code, Field: field, Message: message, Status: status}
}

var statusCodes = map[int]string{
	http.StatusBadRequest:          "ERR_BAD_REQUEST",
	http.StatusNotFound:            "ERR_NOT_FOUND",
	http.StatusUnprocessableEntity: "ERR_UNPROCESSABLE",
	http.StatusTooManyRequests:     "ERR_RATE_LIMITED",
	http.StatusInternalServerError: "ERR_INTERNAL",
	http.StatusBadGateway:          "ERR_BAD_GATEWAY",
	http.StatusServiceUnavailable:  "ERR_UNAVAILABLE",
}

// StatusAppError builds an AppError whose code follows from status.
func StatusAppError(status int, message string) *AppError {
	code, ok := statusCodes[status]
	if !ok {
		code = "ERR_HTTP_" + fmt.Sprint(status)
	}
	return NewAppError(code, "", message, status)
}

func BadRequestError(msg string) *AppError { return StatusAppError(http.StatusBadRequest, msg) }

func NotFoundError(msg string) *AppError { return StatusAppError(http.StatusNotFound, msg) }

func UnprocessableError(msg string) *AppError {
	return StatusAppError(http.StatusUnprocessableEntity, msg)
}

func TooManyRequestsError(msg string) *AppError {
	return StatusAppError(http.StatusTooManyRequests, msg)
}

func InternalError(msg string) *AppError {
	return StatusAppError(http.StatusInternalServerError, msg)
}

// BadGatewayError reports a failing upstream.
func BadGatewayError(msg string) *AppError { return StatusAppError(http.StatusBadGateway, msg) }

func UnavailableError(msg string) *AppError {
	return StatusAppError(http.StatusServiceUnavailable, msg)
}
