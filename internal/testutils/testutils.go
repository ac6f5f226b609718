// Package testutils provides testing helpers shared by the executor packages
package testutils

import (
	"io"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/coder/quartz"
	"github.com/stretchr/testify/assert"
)

// SyncWriter serialises writes so a logger can be shared between goroutines
// in tests
type SyncWriter struct {
	W  io.Writer
	mu sync.Mutex
}

func (w *SyncWriter) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.W.Write(p)
}

// ExecutionRecorder counts how many times each task index ran and the
// order in which a single consumer ran them
type ExecutionRecorder struct {
	counts []atomic.Int32
	mu     sync.Mutex
	order  []int
}

// NewExecutionRecorder creates a recorder for task indexes [0, n)
func NewExecutionRecorder(n int) *ExecutionRecorder {
	return &ExecutionRecorder{counts: make([]atomic.Int32, n)}
}

// Record marks task i as executed
func (r *ExecutionRecorder) Record(i int) {
	r.counts[i].Add(1)
	r.mu.Lock()
	r.order = append(r.order, i)
	r.mu.Unlock()
}

// Count returns how many times task i ran
func (r *ExecutionRecorder) Count(i int) int32 {
	return r.counts[i].Load()
}

// Order returns the recorded execution order
func (r *ExecutionRecorder) Order() []int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]int(nil), r.order...)
}

// Total returns the number of recorded executions
func (r *ExecutionRecorder) Total() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.order)
}

// AssertExactlyOnce fails t for every index not executed exactly once
func (r *ExecutionRecorder) AssertExactlyOnce(t testing.TB) bool {
	t.Helper()
	ok := true
	for i := range r.counts {
		if n := r.counts[i].Load(); n != 1 {
			ok = assert.Failf(t, "task not executed exactly once", "task %d executed %d times", i, n)
		}
	}
	return ok
}

// AdvanceUntil advances mock in steps until cond holds or maxSteps is
// reached. Each step must not pass the next pending timer.
func AdvanceUntil(t testing.TB, mock *quartz.Mock, step time.Duration, maxSteps int, cond func() bool) bool {
	t.Helper()
	for i := 0; i < maxSteps; i++ {
		if cond() {
			return true
		}
		mock.Advance(step)
		time.Sleep(time.Millisecond)
	}
	return cond()
}
