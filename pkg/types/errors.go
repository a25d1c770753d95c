// Package types defines error types
package types

import (
	"errors"
	"fmt"
)

// Predefined errors
var (
	// ErrQueueClosed indicates the task queue has been shut down
	ErrQueueClosed = errors.New("task queue is closed")

	// ErrCancelled is the cause recorded when a running work item is aborted
	ErrCancelled = errors.New("blocking task cancelled")

	// ErrInvalidConfig indicates a rejected pool or application configuration
	ErrInvalidConfig = errors.New("invalid configuration")

	// ErrNilTarget indicates a work item was built without a target
	ErrNilTarget = errors.New("target cannot be nil")
)

// TaskError represents a failure raised while executing a blocking target
type TaskError struct {
	// Operation is the stage where the error occurred
	Operation string

	// TaskID identifies the work item
	TaskID string

	// Cause is the underlying error
	Cause error

	// Context contains error context information
	Context map[string]interface{}
}

// Error implements the error interface
func (e *TaskError) Error() string {
	return fmt.Sprintf("task %s failed in %s: %v", e.TaskID, e.Operation, e.Cause)
}

// Unwrap returns the underlying error
func (e *TaskError) Unwrap() error {
	return e.Cause
}

// Is checks if the error is a specific error
func (e *TaskError) Is(target error) bool {
	return errors.Is(e.Cause, target)
}

// NewTaskError creates a new task error
func NewTaskError(operation, taskID string, cause error) *TaskError {
	return &TaskError{
		Operation: operation,
		TaskID:    taskID,
		Cause:     cause,
		Context:   make(map[string]interface{}),
	}
}

// WithContext adds error context
func (e *TaskError) WithContext(key string, value interface{}) *TaskError {
	e.Context[key] = value
	return e
}

// IsCancelled reports whether err records an aborted work item
func IsCancelled(err error) bool {
	return errors.Is(err, ErrCancelled)
}
