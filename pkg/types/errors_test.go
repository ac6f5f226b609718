package types

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPredefinedErrors(t *testing.T) {
	tests := []struct {
		name string
		err  error
	}{
		{"ErrInvalidCapacity", ErrInvalidCapacity},
		{"ErrInvalidThreadCount", ErrInvalidThreadCount},
		{"ErrExecutorShutdown", ErrExecutorShutdown},
		{"ErrExecutorRunning", ErrExecutorRunning},
		{"ErrQueueFull", ErrQueueFull},
		{"ErrNilTask", ErrNilTask},
		{"ErrTimeout", ErrTimeout},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Error(t, tt.err)
			assert.NotEmpty(t, tt.err.Error())
		})
	}
}

func TestExecutorError(t *testing.T) {
	cause := errors.New("boom")
	err := NewExecutorError("task", cause).
		WithContext("worker_id", 3).
		WithContext("stack_trace", "goroutine 1")

	assert.Equal(t, "executor error in operation task: boom", err.Error())
	assert.Equal(t, cause, errors.Unwrap(err))
	assert.True(t, errors.Is(err, cause))
	assert.Equal(t, 3, err.Context["worker_id"])
	assert.Len(t, err.Context, 2)

	wrapped := fmt.Errorf("outer: %w", err)
	var target *ExecutorError
	assert.True(t, errors.As(wrapped, &target))
	assert.Equal(t, "task", target.Operation)
}

func TestExecutorError_IsSentinel(t *testing.T) {
	err := NewExecutorError("submit", ErrExecutorShutdown)
	assert.True(t, errors.Is(err, ErrExecutorShutdown))
	assert.False(t, errors.Is(err, ErrQueueFull))
}

func TestPanicError(t *testing.T) {
	err := &PanicError{Value: 42}
	assert.Equal(t, "panic: 42", err.Error())
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "Created", StateCreated.String())
	assert.Equal(t, "Running", StateRunning.String())
	assert.Equal(t, "ShuttingDown", StateShuttingDown.String())
	assert.Equal(t, "Stopped", StateStopped.String())
	assert.Equal(t, "Unknown", State(99).String())
}
