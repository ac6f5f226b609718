// Package types defines error types
package types

import (
	"errors"
	"fmt"
)

// Predefined errors
var (
	// ErrInvalidCapacity indicates a ring capacity that is not a positive power of two
	ErrInvalidCapacity = errors.New("capacity must be a positive power of two")

	// ErrInvalidThreadCount indicates a worker count below one
	ErrInvalidThreadCount = errors.New("thread count must be at least 1")

	// ErrExecutorShutdown indicates the executor no longer accepts tasks
	ErrExecutorShutdown = errors.New("executor is shut down")

	// ErrExecutorRunning indicates the executor was already started
	ErrExecutorRunning = errors.New("executor is already running")

	// ErrQueueFull indicates a non-spinning submission found no free slot
	ErrQueueFull = errors.New("queue is full")

	// ErrNilTask indicates a nil task was submitted
	ErrNilTask = errors.New("task cannot be nil")

	// ErrTimeout indicates operation timeout
	ErrTimeout = errors.New("operation timeout")
)

// ExecutorError describes a failure inside the executor, most commonly a
// task body that panicked on a worker.
type ExecutorError struct {
	// Operation is the name of the operation where the error occurred
	Operation string

	// Cause is the underlying error
	Cause error

	// Context contains error context information
	Context map[string]interface{}
}

// Error implements the error interface
func (e *ExecutorError) Error() string {
	return fmt.Sprintf("executor error in operation %s: %v", e.Operation, e.Cause)
}

// Unwrap returns the underlying error
func (e *ExecutorError) Unwrap() error {
	return e.Cause
}

// Is checks if the error is a specific error
func (e *ExecutorError) Is(target error) bool {
	return errors.Is(e.Cause, target)
}

// NewExecutorError creates a new executor error
func NewExecutorError(operation string, cause error) *ExecutorError {
	return &ExecutorError{
		Operation: operation,
		Cause:     cause,
		Context:   make(map[string]interface{}),
	}
}

// WithContext adds error context
func (e *ExecutorError) WithContext(key string, value interface{}) *ExecutorError {
	e.Context[key] = value
	return e
}

// PanicError is the cause recorded when a task body panics with a value
// that is not an error.
type PanicError struct {
	Value interface{}
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("panic: %v", e.Value)
}
