package core

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	// ErrNotFound is returned when a stored or remote object does not exist
	ErrNotFound = errors.New("not found")

	// ErrActionNotFound is returned when a saved action does not exist
	ErrActionNotFound = fmt.Errorf("action %w", ErrNotFound)

	// ErrWorkflowNotFound is returned when a workflow does not exist
	ErrWorkflowNotFound = fmt.Errorf("workflow %w", ErrNotFound)

	// ErrNodeNotFound is returned when a node id is not part of a workflow
	ErrNodeNotFound = fmt.Errorf("workflow node %w", ErrNotFound)

	// ErrInvalidID is returned when an identifier is not a valid object id
	ErrInvalidID = errors.New("invalid id")

	// ErrInvalidInput is returned when a request or value fails validation
	ErrInvalidInput = errors.New("invalid input")

	// ErrUnknownMethod is returned for data collection methods outside the method table
	ErrUnknownMethod = errors.New("unknown method")

	// ErrVersionConflict is returned when a workflow changed between read and write
	ErrVersionConflict = errors.New("workflow was modified concurrently")

	// ErrNotConnected is returned when an integration has no connection yet
	ErrNotConnected = errors.New("integration is not connected")
)

// PlatformError is a non-2xx answer from the integration platform.
// Data holds the error payload returned by the platform, if any.
type PlatformError struct {
	Status  int    `json:"status"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

func (e *PlatformError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("platform request failed with status %d", e.Status)
	}
	return fmt.Sprintf("platform request failed with status %d: %s", e.Status, e.Message)
}

// Is lets errors.Is(err, ErrNotFound) match a platform 404.
func (e *PlatformError) Is(target error) bool {
	return target == ErrNotFound && e.Status == http.StatusNotFound
}

// Temporary reports whether the failure should count against the circuit breaker.
func (e *PlatformError) Temporary() bool {
	return e.Status >= http.StatusInternalServerError || e.Status == http.StatusTooManyRequests
}

// ValidationError lists the fields of a value that failed validation.
type ValidationError struct {
	Fields []FieldError `json:"fields"`
}

// FieldError is a single validation failure.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func (e *ValidationError) Error() string {
	if len(e.Fields) == 0 {
		return ErrInvalidInput.Error()
	}
	return fmt.Sprintf("%s: %s %s", ErrInvalidInput, e.Fields[0].Field, e.Fields[0].Message)
}

func (e *ValidationError) Unwrap() error {
	return ErrInvalidInput
}
