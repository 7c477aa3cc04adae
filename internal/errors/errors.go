// internal/errors/errors.go
package errors

import (
	"errors"
	"fmt"
)

// ErrorType classifies application errors so the API layer can map them
// to status codes without inspecting error strings.
type ErrorType string

const (
	ErrorTypeValidation    ErrorType = "validation_error"
	ErrorTypeNotFound      ErrorType = "not_found"
	ErrorTypeConflict      ErrorType = "conflict"
	ErrorTypeTransport     ErrorType = "transport_error"
	ErrorTypeMalformed     ErrorType = "malformed_response"
	ErrorTypeConfiguration ErrorType = "configuration_error"
	ErrorTypeProcessing    ErrorType = "processing_error"
)

// AppError carries the error type, a user-safe message and the wrapped cause.
type AppError struct {
	Type    ErrorType
	Message string
	Err     error
	Code    string
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

// NewAppError creates an AppError of the given type.
func NewAppError(errType ErrorType, message string, cause error) *AppError {
	return &AppError{
		Type:    errType,
		Message: message,
		Err:     cause,
		Code:    errorCode(errType),
	}
}

// NewValidationError reports invalid caller-supplied input.
func NewValidationError(message string, cause error) *AppError {
	return NewAppError(ErrorTypeValidation, message, cause)
}

// NewNotFoundError reports a missing resource, e.g. an unknown game id.
func NewNotFoundError(message string, cause error) *AppError {
	return NewAppError(ErrorTypeNotFound, message, cause)
}

// NewConflictError reports an operation rejected by the resource's state.
func NewConflictError(message string, cause error) *AppError {
	return NewAppError(ErrorTypeConflict, message, cause)
}

// NewTransportError reports a failed call to a remote backend.
func NewTransportError(message string, cause error) *AppError {
	return NewAppError(ErrorTypeTransport, message, cause)
}

// NewMalformedResponseError reports a remote reply that did not parse as expected.
func NewMalformedResponseError(message string, cause error) *AppError {
	return NewAppError(ErrorTypeMalformed, message, cause)
}

// NewConfigurationError reports missing or invalid startup configuration.
func NewConfigurationError(message string, cause error) *AppError {
	return NewAppError(ErrorTypeConfiguration, message, cause)
}

// NewProcessingError reports an internal failure with no more specific type.
func NewProcessingError(message string, cause error) *AppError {
	return NewAppError(ErrorTypeProcessing, message, cause)
}

// IsValidationError checks whether err is a validation error.
func IsValidationError(err error) bool {
	return hasType(err, ErrorTypeValidation)
}

// IsNotFoundError checks whether err is a not-found error.
func IsNotFoundError(err error) bool {
	return hasType(err, ErrorTypeNotFound)
}

// IsConflictError checks whether err is a conflict error.
func IsConflictError(err error) bool {
	return hasType(err, ErrorTypeConflict)
}

// IsTransportError checks whether err is a transport error.
func IsTransportError(err error) bool {
	return hasType(err, ErrorTypeTransport)
}

// IsConfigurationError checks whether err is a configuration error.
func IsConfigurationError(err error) bool {
	return hasType(err, ErrorTypeConfiguration)
}

func hasType(err error, t ErrorType) bool {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Type == t
	}
	return false
}

func errorCode(errType ErrorType) string {
	switch errType {
	case ErrorTypeValidation:
		return "VALIDATION_ERROR"
	case ErrorTypeNotFound:
		return "NOT_FOUND"
	case ErrorTypeConflict:
		return "CONFLICT"
	case ErrorTypeTransport:
		return "TRANSPORT_ERROR"
	case ErrorTypeMalformed:
		return "MALFORMED_RESPONSE"
	case ErrorTypeConfiguration:
		return "CONFIGURATION_ERROR"
	case ErrorTypeProcessing:
		return "PROCESSING_ERROR"
	default:
		return "UNKNOWN_ERROR"
	}
}

// WrapError wraps err with a message, preserving an existing AppError type.
func WrapError(err error, message string, errType ErrorType) error {
	if err == nil {
		return nil
	}

	var appErr *AppError
	if errors.As(err, &appErr) {
		return &AppError{
			Type:    appErr.Type,
			Message: fmt.Sprintf("%s: %s", message, appErr.Message),
			Err:     appErr,
			Code:    appErr.Code,
		}
	}

	return NewAppError(errType, message, err)
}
