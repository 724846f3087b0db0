// Package domain contains custom error types for the application.
package domain

import (
	"errors"
	"fmt"
)

// Base errors
var (
	ErrNotFound           = errors.New("resource not found")
	ErrInvalidInput       = errors.New("invalid input")
	ErrMissingArgument    = errors.New("missing argument")
	ErrUnsupportedBackend = errors.New("unsupported backend")
	ErrSessionNotFound    = errors.New("session not found")
	ErrUnauthorized       = errors.New("unauthorized")
	ErrNetworkError       = errors.New("network error")
)

// APIError represents a non-2xx answer from the Proxmox API.
type APIError struct {
	Method     string
	Path       string
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("proxmox api error [%s %s]: status %d: %s",
		e.Method, e.Path, e.StatusCode, e.Message)
}

// NewAPIError creates a new APIError
func NewAPIError(method, path string, statusCode int, message string) *APIError {
	return &APIError{
		Method:     method,
		Path:       path,
		StatusCode: statusCode,
		Message:    message,
	}
}

// ValidationError represents input validation errors
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error [field=%s]: %s", e.Field, e.Message)
}

// NewValidationError creates a new ValidationError
func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{
		Field:   field,
		Message: message,
	}
}

// DispatchError represents a failure while executing a classified intent
type DispatchError struct {
	Intent Intent
	Err    error
}

func (e *DispatchError) Error() string {
	return fmt.Sprintf("dispatch error [intent=%s]: %v", e.Intent, e.Err)
}

func (e *DispatchError) Unwrap() error {
	return e.Err
}

// NewDispatchError creates a new DispatchError
func NewDispatchError(intent Intent, err error) *DispatchError {
	return &DispatchError{
		Intent: intent,
		Err:    err,
	}
}
