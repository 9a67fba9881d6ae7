package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/radio-control/rfkd/internal/adapter"
	"github.com/radio-control/rfkd/internal/arbitrator"
)

// APIError is an error with its HTTP status.
type APIError struct {
	Code       string
	Message    string
	Details    interface{}
	StatusCode int
}

// NewAPIError creates an API error.
func NewAPIError(code, message string, statusCode int, details interface{}) *APIError {
	return &APIError{Code: code, Message: message, Details: details, StatusCode: statusCode}
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// ToAPIError maps err to a status and code. Lookup and parameter errors are
// checked before device kinds since a device error may carry both.
func ToAPIError(err error) *APIError {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr
	}

	var details interface{}
	var fmErr *arbitrator.FlightModeError
	if errors.As(err, &fmErr) {
		details = map[string]string{"type": fmErr.Type.String()}
	}

	switch {
	case errors.Is(err, arbitrator.ErrNotFound):
		return NewAPIError("NOT_FOUND", "Resource not found", http.StatusNotFound, details)
	case errors.Is(err, arbitrator.ErrInvalidParameter):
		return NewAPIError("BAD_REQUEST", "Malformed or missing required parameter", http.StatusBadRequest, details)
	case errors.Is(err, adapter.ErrInProgress):
		return NewAPIError("IN_PROGRESS", "Another request for this radio is in progress", http.StatusConflict, details)
	case errors.Is(err, adapter.ErrEmergency):
		return NewAPIError("EMERGENCY", "Refused while an emergency call is active", http.StatusLocked, details)
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return NewAPIError("UNAVAILABLE", "Request abandoned before the radio answered", http.StatusServiceUnavailable, details)
	case errors.Is(err, adapter.ErrGeneral):
		return NewAPIError("GENERAL", err.Error(), http.StatusInternalServerError, details)
	default:
		return NewAPIError("INTERNAL", "Internal server error", http.StatusInternalServerError,
			map[string]interface{}{"original": err.Error()})
	}
}
