package flow

import (
	"errors"
	"fmt"
)

// ConfigurationError indicates an invalid adapter configuration.
// Fatal at construction, never retried.
type ConfigurationError struct {
	Field  string
	Reason string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("configuration error: %s: %s", e.Field, e.Reason)
}

// CapacityError indicates an adapter or global ceiling is full.
// Signals the caller to back off or use fallback; never retried internally.
type CapacityError struct {
	Flow string
	Load int
	Max  int
}

func (e *CapacityError) Error() string {
	return fmt.Sprintf("flow %q at capacity (%d/%d)", e.Flow, e.Load, e.Max)
}

// AuthenticationError indicates required authentication is missing.
// Surfaced immediately, not retried.
type AuthenticationError struct {
	Flow    string
	AuthURL string
}

func (e *AuthenticationError) Error() string {
	if e.AuthURL != "" {
		return fmt.Sprintf("flow %q requires authentication (visit %s)", e.Flow, e.AuthURL)
	}
	return fmt.Sprintf("flow %q requires authentication", e.Flow)
}

// BackendExecutionError wraps a failed backend call. Retried per policy,
// then surfaced as a failed ExecutionResult rather than thrown.
type BackendExecutionError struct {
	Flow     string
	Attempts int
	Err      error
}

func (e *BackendExecutionError) Error() string {
	return fmt.Sprintf("flow %q backend failed after %d attempt(s): %v", e.Flow, e.Attempts, e.Err)
}

func (e *BackendExecutionError) Unwrap() error {
	return e.Err
}

// RoutingError indicates no available or matching flow was found.
type RoutingError struct {
	Reason string
}

func (e *RoutingError) Error() string {
	return fmt.Sprintf("routing error: %s", e.Reason)
}

// IsCapacity reports whether err is a capacity error.
func IsCapacity(err error) bool {
	var ce *CapacityError
	return errors.As(err, &ce)
}

// IsAuthentication reports whether err is an authentication error.
func IsAuthentication(err error) bool {
	var ae *AuthenticationError
	return errors.As(err, &ae)
}

// IsRouting reports whether err is a routing error.
func IsRouting(err error) bool {
	var re *RoutingError
	return errors.As(err, &re)
}
