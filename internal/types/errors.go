package types

import (
	"errors"
	"fmt"
)

// ErrorCode is a typed string categorizing application errors. The façade
// returns these so callers (the excluded API layer) can map each failure to
// a specific response instead of pattern-matching message text.
type ErrorCode string

const (
	// Validation
	ErrCodeValidationMissingField  ErrorCode = "validation_missing_required_field"
	ErrCodeValidationWindow        ErrorCode = "validation_trip_window_invalid"
	ErrCodeValidationItinerary     ErrorCode = "validation_itinerary_invalid"

	// Not found
	ErrCodeNotFoundTrip      ErrorCode = "not_found_trip"
	ErrCodeNotFoundAlert     ErrorCode = "not_found_alert"
	ErrCodeNotFoundDeltaPlan ErrorCode = "not_found_delta_plan"

	// State conflicts
	ErrCodeAlreadyMonitoring ErrorCode = "conflict_already_monitoring"
	ErrCodeTripEnded         ErrorCode = "conflict_trip_ended"
	ErrCodeInvalidState      ErrorCode = "conflict_invalid_state"

	// Upstream (Reasoning Engine)
	ErrCodeEngineUnavailable ErrorCode = "upstream_engine_unavailable"
	ErrCodeEngineRateLimited ErrorCode = "upstream_engine_rate_limited"

	// Internal
	ErrCodeInternalDB         ErrorCode = "internal_database_error"
	ErrCodeInternalUnexpected ErrorCode = "internal_unexpected_error"
)

// AppError is the standard application error type. Domain and façade errors
// are expressed as AppError so callers can branch on Code via errors.As.
type AppError struct {
	Code    ErrorCode      `json:"code"`
	Message string         `json:"message"`
	Err     error          `json:"-"`
	Details map[string]any `json:"details,omitempty"`
}

// Error implements the error interface.
func (e *AppError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying error for errors.Is/errors.As support.
func (e *AppError) Unwrap() error {
	return e.Err
}

// NewAppError creates an AppError with the given code, message, and optional
// underlying error.
func NewAppError(code ErrorCode, message string, err error) *AppError {
	return &AppError{Code: code, Message: message, Err: err}
}

// NewAppErrorWithDetails creates an AppError carrying structured details.
func NewAppErrorWithDetails(code ErrorCode, message string, err error, details map[string]any) *AppError {
	return &AppError{Code: code, Message: message, Err: err, Details: details}
}

// CodeOf extracts the ErrorCode from an error chain. Returns
// ErrCodeInternalUnexpected for non-AppError chains.
func CodeOf(err error) ErrorCode {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return ErrCodeInternalUnexpected
}

// IsCode reports whether the error chain carries the given code.
func IsCode(err error, code ErrorCode) bool {
	return CodeOf(err) == code
}

// IsNotFound reports whether the error is any of the not-found codes.
func IsNotFound(err error) bool {
	switch CodeOf(err) {
	case ErrCodeNotFoundTrip, ErrCodeNotFoundAlert, ErrCodeNotFoundDeltaPlan:
		return true
	}
	return false
}
