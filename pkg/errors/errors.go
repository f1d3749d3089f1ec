package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
)

// ErrorCode represents a typed error code.
type ErrorCode string

const (
	// ErrorCodeInternal represents an internal server error.
	ErrorCodeInternal ErrorCode = "INTERNAL_ERROR"
	// ErrorCodeNotFound represents a resource not found error.
	ErrorCodeNotFound ErrorCode = "NOT_FOUND"
	// ErrorCodeBadRequest represents a bad request error.
	ErrorCodeBadRequest ErrorCode = "BAD_REQUEST"
	// ErrorCodeUnauthorized represents an unauthorized error.
	ErrorCodeUnauthorized ErrorCode = "UNAUTHORIZED"
	// ErrorCodeValidation represents a validation error.
	ErrorCodeValidation ErrorCode = "VALIDATION_ERROR"
	// ErrorCodeServiceUnavailable represents a service unavailable error.
	ErrorCodeServiceUnavailable ErrorCode = "SERVICE_UNAVAILABLE"

	// ErrorCodeInvalidInput is used when tabular input has the wrong shape,
	// e.g. a column whose value is not a sequence.
	ErrorCodeInvalidInput ErrorCode = "INVALID_INPUT"
	// ErrorCodeColumnLengthMismatch is used when columns of a batch differ in length.
	ErrorCodeColumnLengthMismatch ErrorCode = "COLUMN_LENGTH_MISMATCH"
	// ErrorCodeClosedSink is used when a writer is used after Close.
	ErrorCodeClosedSink ErrorCode = "CLOSED_SINK"
)

// ColumnLengthMismatchMessage is the fixed message of ErrorCodeColumnLengthMismatch errors.
const ColumnLengthMismatchMessage = "All columns must have the same number of rows."

// AppError represents an application error with code, message, and HTTP status.
type AppError struct {
	Code       ErrorCode
	Message    string
	HTTPStatus int
	Err        error
	Details    map[string]interface{}
}

// Error implements the error interface.
func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s (%v)", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying error.
func (e *AppError) Unwrap() error {
	return e.Err
}

// NewAppError creates a new application error.
func NewAppError(code ErrorCode, message string, httpStatus int) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: httpStatus,
	}
}

// NewAppErrorWithErr creates a new application error with an underlying error.
func NewAppErrorWithErr(code ErrorCode, message string, httpStatus int, err error) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: httpStatus,
		Err:        err,
	}
}

// WithDetails adds details to the error.
func (e *AppError) WithDetails(details map[string]interface{}) *AppError {
	e.Details = details
	return e
}

// ErrorResponse represents the JSON error response format.
type ErrorResponse struct {
	Code    ErrorCode              `json:"code"`
	Message string                 `json:"message"`
	Details map[string]interface{} `json:"details,omitempty"`
}

// ToErrorResponse converts an AppError to an ErrorResponse for JSON serialization.
func (e *AppError) ToErrorResponse() ErrorResponse {
	return ErrorResponse{
		Code:    e.Code,
		Message: e.Message,
		Details: e.Details,
	}
}

// ToHTTPStatus maps an error code to HTTP status code.
func ToHTTPStatus(code ErrorCode) int {
	switch code {
	case ErrorCodeBadRequest, ErrorCodeValidation, ErrorCodeInvalidInput, ErrorCodeColumnLengthMismatch:
		return http.StatusBadRequest
	case ErrorCodeUnauthorized:
		return http.StatusUnauthorized
	case ErrorCodeNotFound:
		return http.StatusNotFound
	case ErrorCodeClosedSink:
		return http.StatusConflict
	case ErrorCodeServiceUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// FromError converts a standard error to an AppError.
// An AppError anywhere in the chain is returned as-is; anything else is
// wrapped as an internal error.
func FromError(err error) *AppError {
	if err == nil {
		return nil
	}

	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr
	}

	return NewAppErrorWithErr(
		ErrorCodeInternal,
		"An internal error occurred",
		http.StatusInternalServerError,
		err,
	)
}

// HasCode reports whether err wraps an AppError carrying code.
func HasCode(err error, code ErrorCode) bool {
	var appErr *AppError
	if !stderrors.As(err, &appErr) {
		return false
	}
	return appErr.Code == code
}

// Common error constructors

// NewBadRequestError creates a bad request error.
func NewBadRequestError(message string) *AppError {
	return NewAppError(ErrorCodeBadRequest, message, http.StatusBadRequest)
}

// NewNotFoundError creates a not found error.
func NewNotFoundError(message string) *AppError {
	return NewAppError(ErrorCodeNotFound, message, http.StatusNotFound)
}

// NewUnauthorizedError creates an unauthorized error.
func NewUnauthorizedError(message string) *AppError {
	return NewAppError(ErrorCodeUnauthorized, message, http.StatusUnauthorized)
}

// NewInternalError creates an internal error.
func NewInternalError(message string) *AppError {
	return NewAppError(ErrorCodeInternal, message, http.StatusInternalServerError)
}

// NewValidationError creates a validation error.
func NewValidationError(message string) *AppError {
	return NewAppError(ErrorCodeValidation, message, http.StatusBadRequest)
}

// NewServiceUnavailableError creates a service unavailable error.
func NewServiceUnavailableError(message string) *AppError {
	return NewAppError(ErrorCodeServiceUnavailable, message, http.StatusServiceUnavailable)
}

// NewInvalidInputError creates an invalid input error.
func NewInvalidInputError(message string) *AppError {
	return NewAppError(ErrorCodeInvalidInput, message, http.StatusBadRequest)
}

// NewColumnLengthMismatchError creates the error returned when the columns
// of a batch do not all hold the same number of values.
func NewColumnLengthMismatchError() *AppError {
	return NewAppError(ErrorCodeColumnLengthMismatch, ColumnLengthMismatchMessage, http.StatusBadRequest)
}

// NewClosedSinkError creates the error returned by a writer after Close.
func NewClosedSinkError() *AppError {
	return NewAppError(ErrorCodeClosedSink, "csv writer is closed", http.StatusConflict)
}
