// Package util provides utility functions and types for navroute.
//
// This package contains shared utilities used across the module
// including context helpers, error types, and validation functions.
//
// # Context Helpers
//
// Context utilities for dispatch-scoped data:
//
//	ctx = util.ContextWithRoute(ctx, "/users/:id")
//	pattern := util.RouteFromContext(ctx)
//
// # Error Types
//
// Structured error types for consistent error handling:
//
//   - ConfigError: configuration validation errors
//   - RouteNotFoundError: unmatched paths and unknown route names
//   - ThrottleError: navigation rejected by the rate limiter
//   - Common sentinel errors: ErrNotFound, ErrNavigationThrottled, etc.
//
// # Validation
//
// Input validation helpers for patterns, durations, and ports:
//
//	err := util.ValidateRegex("^/legacy/(\\d+)$")
//	err := util.ValidatePositiveDuration(200 * time.Millisecond)
package util
