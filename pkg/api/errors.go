package api

import (
	"fmt"
	"net/http"
)

// ErrorType classifies request and service faults. Failures of the submitted
// code are never APIErrors; they travel inside the ExecutionReport.
type ErrorType string

const (
	ErrorTypeInvalidRequest  ErrorType = "invalid_request"
	ErrorTypeNotFound        ErrorType = "not_found"
	ErrorTypeTooManyRequests ErrorType = "too_many_requests"
	ErrorTypeServerError     ErrorType = "server_error"
)

// CodeUnauthenticated marks invalid_request errors caused by missing or
// rejected credentials.
const CodeUnauthenticated = "unauthenticated"

// APIError is the body of every error response.
type APIError struct {
	Type    ErrorType `json:"type"`
	Code    string    `json:"code,omitempty"`
	Param   string    `json:"param,omitempty"`
	Message string    `json:"message"`

	// Status overrides the HTTP status derived from Type. Clients fill it in
	// from the response they decoded the error from.
	Status int `json:"-"`
}

func (e *APIError) Error() string {
	msg := string(e.Type) + ": " + e.Message
	if e.Param != "" {
		msg += fmt.Sprintf(" (param: %s)", e.Param)
	}
	return msg
}

// HTTPStatus returns the status code the error is served with.
func (e *APIError) HTTPStatus() int {
	if e.Status != 0 {
		return e.Status
	}
	switch e.Type {
	case ErrorTypeInvalidRequest:
		if e.Code == CodeUnauthenticated {
			return http.StatusUnauthorized
		}
		return http.StatusBadRequest
	case ErrorTypeNotFound:
		return http.StatusNotFound
	case ErrorTypeTooManyRequests:
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}

// WithStatus sets an explicit HTTP status and returns e.
func (e *APIError) WithStatus(status int) *APIError {
	e.Status = status
	return e
}

// ErrorResponse is the JSON envelope {"error": {...}}.
type ErrorResponse struct {
	Error *APIError `json:"error"`
}

func NewInvalidRequestError(param, message string) *APIError {
	return &APIError{Type: ErrorTypeInvalidRequest, Param: param, Message: message}
}

func NewNotFoundError(message string) *APIError {
	return &APIError{Type: ErrorTypeNotFound, Message: message}
}

// NewTooManyRequestsError reports a saturated worker pool or an exhausted
// rate limit.
func NewTooManyRequestsError(message string) *APIError {
	return &APIError{Type: ErrorTypeTooManyRequests, Message: message}
}

func NewServerError(message string) *APIError {
	return &APIError{Type: ErrorTypeServerError, Message: message}
}

// NewUnauthenticatedError is served as 401.
func NewUnauthenticatedError(message string) *APIError {
	return &APIError{Type: ErrorTypeInvalidRequest, Code: CodeUnauthenticated, Message: message}
}
