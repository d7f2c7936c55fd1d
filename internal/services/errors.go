package services

import (
	"errors"
	"fmt"
	"net/http"

	"learnhub/internal/repositories"
)

// ===============================
// ERROR TYPES
// ===============================

// ServiceError represents a structured service error
type ServiceError struct {
	Type       string                 `json:"type"`
	Message    string                 `json:"message"`
	Code       string                 `json:"code,omitempty"`
	Details    map[string]interface{} `json:"details,omitempty"`
	StatusCode int                    `json:"-"`
	Cause      error                  `json:"-"`
}

// Error implements the error interface
func (e *ServiceError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Type, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// Unwrap returns the underlying error
func (e *ServiceError) Unwrap() error {
	return e.Cause
}

// GetStatusCode returns the HTTP status code for this error
func (e *ServiceError) GetStatusCode() int {
	if e.StatusCode > 0 {
		return e.StatusCode
	}
	return http.StatusInternalServerError
}

// WithDetail attaches one key to the error details
func (e *ServiceError) WithDetail(key string, value interface{}) *ServiceError {
	if e.Details == nil {
		e.Details = make(map[string]interface{})
	}
	e.Details[key] = value
	return e
}

// ===============================
// ERROR CONSTRUCTORS
// ===============================

// NewValidationError creates a validation error
func NewValidationError(message string, cause error) *ServiceError {
	return &ServiceError{
		Type:       "VALIDATION_ERROR",
		Message:    message,
		StatusCode: http.StatusBadRequest,
		Cause:      cause,
	}
}

// NewNotFoundError creates a not found error
func NewNotFoundError(message string) *ServiceError {
	return &ServiceError{
		Type:       "NOT_FOUND",
		Message:    message,
		StatusCode: http.StatusNotFound,
	}
}

// NewInternalError creates an internal server error
func NewInternalError(message string, cause error) *ServiceError {
	return &ServiceError{
		Type:       "INTERNAL_ERROR",
		Message:    message,
		StatusCode: http.StatusInternalServerError,
		Cause:      cause,
	}
}

// NewServiceUnavailableError creates a service unavailable error
func NewServiceUnavailableError(message string, cause error) *ServiceError {
	return &ServiceError{
		Type:       "SERVICE_UNAVAILABLE",
		Message:    message,
		StatusCode: http.StatusServiceUnavailable,
		Cause:      cause,
	}
}

// EntityNotFoundError creates a standard entity not found error
func EntityNotFoundError(entityType string, id interface{}) *ServiceError {
	return NewNotFoundError(fmt.Sprintf("%s not found", entityType)).
		WithDetail("resource", entityType).
		WithDetail("id", id)
}

// ===============================
// ERROR UTILITIES
// ===============================

// GetServiceError extracts a ServiceError anywhere in the chain, or wraps err
// as an internal error
func GetServiceError(err error) *ServiceError {
	if err == nil {
		return nil
	}
	var serviceErr *ServiceError
	if errors.As(err, &serviceErr) {
		return serviceErr
	}
	return NewInternalError("internal error", err)
}

// IsErrorType checks if an error is of a specific type
func IsErrorType(err error, errorType string) bool {
	var serviceErr *ServiceError
	return errors.As(err, &serviceErr) && serviceErr.Type == errorType
}

// IsNotFoundError checks if an error is a not found error
func IsNotFoundError(err error) bool {
	return IsErrorType(err, "NOT_FOUND")
}

// IsValidationError checks if an error is a validation error
func IsValidationError(err error) bool {
	return IsErrorType(err, "VALIDATION_ERROR")
}

// translateRepoError maps repository sentinels onto service errors
func translateRepoError(err error, entity string, id interface{}) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, repositories.ErrNotFound) {
		return EntityNotFoundError(entity, id)
	}
	return NewServiceUnavailableError(fmt.Sprintf("failed to load %s", entity), err)
}
