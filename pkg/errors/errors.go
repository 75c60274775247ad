// Package errors provides the structured error type shared by the studio packages.
//
// ContextualError records which component failed, what it was doing, and an
// optional status code and details. It unwraps to its cause so errors.Is and
// errors.As keep working across package boundaries.
//
//	err := errors.New("live", "Start", devErr).WithDetails(map[string]any{"mode": "video+voice"})
package errors

import (
	"errors"
	"fmt"
)

// ContextualError describes where and why an operation failed.
type ContextualError struct {
	// Component is the package that produced the error (e.g. "live", "gemini", "canvas").
	Component string

	// Operation is what the component was doing.
	Operation string

	// StatusCode is an optional transport or application status code.
	StatusCode int

	// Details holds optional structured metadata.
	Details map[string]any

	// Cause is the underlying error, if any.
	Cause error
}

// New creates a ContextualError for component and operation wrapping cause.
func New(component, operation string, cause error) *ContextualError {
	return &ContextualError{
		Component: component,
		Operation: operation,
		Cause:     cause,
	}
}

// Error formats the error as "[component] operation (status N): cause".
func (e *ContextualError) Error() string {
	base := fmt.Sprintf("[%s] %s", e.Component, e.Operation)

	if e.StatusCode != 0 {
		base += fmt.Sprintf(" (status %d)", e.StatusCode)
	}

	if e.Cause != nil {
		base += ": " + e.Cause.Error()
	}

	return base
}

// Unwrap returns the underlying cause.
func (e *ContextualError) Unwrap() error {
	return e.Cause
}

// WithStatusCode sets the status code and returns e for chaining.
func (e *ContextualError) WithStatusCode(code int) *ContextualError {
	e.StatusCode = code
	return e
}

// WithDetails sets the details map and returns e for chaining.
func (e *ContextualError) WithDetails(details map[string]any) *ContextualError {
	e.Details = details
	return e
}

// ComponentOf returns the component of the first ContextualError in err's chain,
// or "" when there is none.
func ComponentOf(err error) string {
	var ce *ContextualError
	if errors.As(err, &ce) {
		return ce.Component
	}
	return ""
}
