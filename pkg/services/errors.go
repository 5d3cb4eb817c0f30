// Package services implements the application operations behind the API:
// workflow CRUD, lifecycle transitions, run-now, import/export, and run
// history queries.
package services

import (
	"errors"
	"fmt"

	"github.com/convoca/convoca/pkg/persistence"
	"github.com/convoca/convoca/pkg/workflow"
)

// Not-found errors (404).
var (
	ErrWorkflowNotFound = persistence.ErrWorkflowNotFound
	ErrRunNotFound      = persistence.ErrRunNotFound
)

// Validation errors (400).
var (
	ErrWorkflowNil     = errors.New("workflow cannot be nil")
	ErrInvalidWorkflow = errors.New("invalid workflow definition")
	ErrInvalidCron     = errors.New("invalid cron expression")
	ErrInvalidImport   = errors.New("invalid import document")
)

// Conflict errors (409).
var (
	// ErrNotRunnable mirrors the executor's rejection: paused, completed,
	// or action-less workflows cannot be run.
	ErrNotRunnable = workflow.ErrNotRunnable
)

// ServiceError wraps service-level errors with operation context.
type ServiceError struct {
	Op      string
	Message string
	Err     error
}

func (e *ServiceError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%s: %s", e.Op, e.Message)
	}

	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *ServiceError) Unwrap() error {
	return e.Err
}

func (e *ServiceError) Is(target error) bool {
	return errors.Is(e.Err, target)
}

// NewValidationError creates a validation error with context.
func NewValidationError(op, message string, err error) *ServiceError {
	return &ServiceError{Op: op, Message: message, Err: err}
}

// IsValidationError checks if an error should map to HTTP 400.
func IsValidationError(err error) bool {
	return errors.Is(err, ErrWorkflowNil) ||
		errors.Is(err, ErrInvalidWorkflow) ||
		errors.Is(err, ErrInvalidCron) ||
		errors.Is(err, ErrInvalidImport)
}

// IsConflictError checks if an error should map to HTTP 409.
func IsConflictError(err error) bool {
	return errors.Is(err, ErrNotRunnable)
}

// IsNotFoundError checks if an error should map to HTTP 404.
func IsNotFoundError(err error) bool {
	return persistence.IsWorkflowNotFound(err) ||
		persistence.IsRunNotFound(err) ||
		errors.Is(err, ErrWorkflowNotFound) ||
		errors.Is(err, ErrRunNotFound)
}
