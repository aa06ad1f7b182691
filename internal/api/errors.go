// errors.go - Structured error handling for API responses
package api

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pdf-tools/backend/internal/flow"
	"github.com/pdf-tools/backend/internal/session"
)

// APIError represents a structured API error response
type APIError struct {
	Status  int    `json:"-"`
	Code    string `json:"code"`
	Message string `json:"message"`
	Details string `json:"details,omitempty"`
}

// Error implements the error interface
func (e *APIError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// NewBadRequestError creates a 400 Bad Request error
func NewBadRequestError(message string, cause error) *APIError {
	err := &APIError{
		Status:  http.StatusBadRequest,
		Code:    "BAD_REQUEST",
		Message: message,
	}
	if cause != nil {
		err.Details = cause.Error()
	}
	return err
}

// NewValidationError creates a 400 validation error for a specific field
func NewValidationError(field string) *APIError {
	return &APIError{
		Status:  http.StatusBadRequest,
		Code:    "VALIDATION_ERROR",
		Message: fmt.Sprintf("validation failed for field: %s", field),
	}
}

// NewNotFoundError creates a 404 Not Found error
func NewNotFoundError(resource string, id string) *APIError {
	return &APIError{
		Status:  http.StatusNotFound,
		Code:    "NOT_FOUND",
		Message: fmt.Sprintf("%s not found: %s", resource, id),
	}
}

// NewConflictError creates a 409 Conflict error
func NewConflictError(message string) *APIError {
	return &APIError{
		Status:  http.StatusConflict,
		Code:    "CONFLICT",
		Message: message,
	}
}

// NewUnsupportedMediaTypeError creates a 415 error for a rejected content type
func NewUnsupportedMediaTypeError(contentType string) *APIError {
	return &APIError{
		Status:  http.StatusUnsupportedMediaType,
		Code:    "UNSUPPORTED_MEDIA_TYPE",
		Message: fmt.Sprintf("expected %s file metadata, got %q", echo.MIMEApplicationJSON, contentType),
	}
}

// NewInternalError creates a 500 Internal Server Error
func NewInternalError(message string, cause error) *APIError {
	err := &APIError{
		Status:  http.StatusInternalServerError,
		Code:    "INTERNAL_ERROR",
		Message: message,
	}
	if cause != nil {
		err.Details = cause.Error()
	}
	return err
}

// NewServiceUnavailableError creates a 503 Service Unavailable error
func NewServiceUnavailableError(message string) *APIError {
	return &APIError{
		Status:  http.StatusServiceUnavailable,
		Code:    "SERVICE_UNAVAILABLE",
		Message: message,
	}
}

// fromDomainError maps flow and session errors onto API errors.
func fromDomainError(err error, sessionID string) *APIError {
	switch {
	case errors.Is(err, session.ErrSessionNotFound), errors.Is(err, flow.ErrClosed):
		return NewNotFoundError("session", sessionID)
	case errors.Is(err, session.ErrTooManySessions):
		return NewServiceUnavailableError(err.Error())
	case errors.Is(err, flow.ErrUnknownTool):
		return &APIError{
			Status:  http.StatusNotFound,
			Code:    "NOT_FOUND",
			Message: err.Error(),
		}
	case errors.Is(err, flow.ErrNoToolSelected),
		errors.Is(err, flow.ErrNothingToProcess),
		errors.Is(err, flow.ErrAlreadyProcessing),
		errors.Is(err, flow.ErrNotCompleted):
		return NewConflictError(err.Error())
	default:
		return NewInternalError("unexpected error", err)
	}
}

// ErrorHandler is the default echo error handler. Details of server-side
// failures are withheld from clients.
// Usage: e.HTTPErrorHandler = api.ErrorHandler
func ErrorHandler(err error, c echo.Context) {
	handleError(err, c, false)
}

// NewErrorHandler returns an error handler that exposes internal error text
// in the details field when showDetails is set.
func NewErrorHandler(showDetails bool) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		handleError(err, c, showDetails)
	}
}

func handleError(err error, c echo.Context, showDetails bool) {
	if c.Response().Committed {
		return
	}

	var apiErr *APIError
	var httpErr *echo.HTTPError

	switch {
	case errors.As(err, &apiErr):
	case errors.As(err, &httpErr):
		apiErr = &APIError{
			Status:  httpErr.Code,
			Code:    "HTTP_ERROR",
			Message: fmt.Sprintf("%v", httpErr.Message),
		}
	default:
		apiErr = &APIError{
			Status:  http.StatusInternalServerError,
			Code:    "UNKNOWN_ERROR",
			Message: "An unexpected error occurred",
			Details: err.Error(),
		}
		slog.Error("unhandled request error", "path", c.Request().URL.Path, "err", err)
	}

	if apiErr.Status >= http.StatusInternalServerError && apiErr.Details != "" && !showDetails {
		redacted := *apiErr
		redacted.Details = ""
		apiErr = &redacted
	}

	if c.Request().Method == http.MethodHead {
		_ = c.NoContent(apiErr.Status)
		return
	}
	_ = c.JSON(apiErr.Status, apiErr)
}
