// Package util provides utility functions and types shared by navroute.
//
// # Error Conventions
//
// This project follows a standardized error pattern across all packages:
//
//   - Sentinel errors (errors.New) for well-known, stable conditions
//     that callers check with errors.Is(). Example: ErrNotFound.
//   - Structured error types for context-rich errors that carry
//     additional fields (e.g., ConfigError, RouteNotFoundError). Each type
//     implements Error(), Unwrap() (if wrapping), and Is().
//   - fmt.Errorf with %w for ad-hoc wrapping that adds context to an
//     existing error without introducing a new type.
//
// All custom error types must implement:
//
//	Error() string           – human-readable message
//	Unwrap() error           – if the type wraps another error
//	Is(target error) bool    – for errors.Is() compatibility
package util

import (
	"errors"
	"fmt"
	"time"
)

// Common sentinel errors.
var (
	ErrNotFound            = errors.New("not found")
	ErrInvalidInput        = errors.New("invalid input")
	ErrConfigInvalid       = errors.New("invalid configuration")
	ErrRouterDestroyed     = errors.New("router destroyed")
	ErrNavigationThrottled = errors.New("navigation throttled")
)

// ConfigError represents a configuration-related error.
type ConfigError struct {
	Field   string
	Message string
	Cause   error
}

// Error implements the error interface.
func (e *ConfigError) Error() string {
	msg := "config error: " + e.Message
	if e.Field != "" {
		msg = fmt.Sprintf("config error at %s: %s", e.Field, e.Message)
	}
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	return msg
}

// Unwrap returns the underlying error.
func (e *ConfigError) Unwrap() error {
	return e.Cause
}

// Is checks if the error matches the target.
func (e *ConfigError) Is(target error) bool {
	if target == ErrConfigInvalid {
		return true
	}
	_, ok := target.(*ConfigError)
	return ok || errors.Is(e.Cause, target)
}

// NewConfigError creates a new ConfigError.
func NewConfigError(field, message string) *ConfigError {
	return &ConfigError{Field: field, Message: message}
}

// NewConfigErrorWithCause creates a new ConfigError with a cause.
func NewConfigErrorWithCause(field, message string, cause error) *ConfigError {
	return &ConfigError{Field: field, Message: message, Cause: cause}
}

// ValidationError represents a validation failure.
type ValidationError struct {
	Fields  map[string]string
	Message string
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	if len(e.Fields) == 0 {
		return fmt.Sprintf("validation error: %s", e.Message)
	}
	return fmt.Sprintf("validation error: %s (fields: %v)", e.Message, e.Fields)
}

// Is checks if the error matches the target.
func (e *ValidationError) Is(target error) bool {
	if target == ErrInvalidInput {
		return true
	}
	_, ok := target.(*ValidationError)
	return ok
}

// NewValidationError creates a new ValidationError.
func NewValidationError(message string) *ValidationError {
	return &ValidationError{Message: message, Fields: make(map[string]string)}
}

// AddField adds a field error.
func (e *ValidationError) AddField(field, message string) {
	if e.Fields == nil {
		e.Fields = make(map[string]string)
	}
	e.Fields[field] = message
}

// RouteNotFoundError reports that no registered route matched a path, or
// that a named route does not exist.
type RouteNotFoundError struct {
	Path string
	Name string
}

// Error implements the error interface.
func (e *RouteNotFoundError) Error() string {
	if e.Name != "" {
		return fmt.Sprintf("no route named %q", e.Name)
	}
	return fmt.Sprintf("no route found for %s", e.Path)
}

// Is checks if the error matches the target.
func (e *RouteNotFoundError) Is(target error) bool {
	if target == ErrNotFound {
		return true
	}
	_, ok := target.(*RouteNotFoundError)
	return ok
}

// NewRouteNotFoundError creates a new RouteNotFoundError for a path.
func NewRouteNotFoundError(path string) *RouteNotFoundError {
	return &RouteNotFoundError{Path: path}
}

// NewNamedRouteNotFoundError creates a new RouteNotFoundError for a route name.
func NewNamedRouteNotFoundError(name string) *RouteNotFoundError {
	return &RouteNotFoundError{Name: name}
}

// ThrottleError is returned when navigation exceeds the configured rate.
type ThrottleError struct {
	Target     string
	RetryAfter time.Duration
}

// Error implements the error interface.
func (e *ThrottleError) Error() string {
	return fmt.Sprintf("navigation to %s throttled (retry after: %v)", e.Target, e.RetryAfter)
}

// Is checks if the error matches the target.
func (e *ThrottleError) Is(target error) bool {
	if target == ErrNavigationThrottled {
		return true
	}
	_, ok := target.(*ThrottleError)
	return ok
}

// NewThrottleError creates a new ThrottleError.
func NewThrottleError(target string, retryAfter time.Duration) *ThrottleError {
	return &ThrottleError{Target: target, RetryAfter: retryAfter}
}

// WrapError wraps an error with additional context.
func WrapError(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}

// IsNotFound reports whether err describes a missing route or resource.
func IsNotFound(err error) bool {
	return err != nil && errors.Is(err, ErrNotFound)
}
