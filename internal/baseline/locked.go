// Package baseline provides a mutex-guarded executor used as the reference
// point when benchmarking the lock-free executor.
package baseline

import (
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/eapache/queue"
	"github.com/jzx17/gospmc/pkg/backoff"
	"github.com/jzx17/gospmc/pkg/types"
)

// LockedExecutor runs tasks from an unbounded queue guarded by one mutex.
// Workers poll the queue and idle through a backoff.Idler when it is empty,
// the same way the lock-free executor idles, so benchmarks compare only the
// queue itself.
type LockedExecutor struct {
	mu    sync.Mutex
	tasks *queue.Queue

	running atomic.Bool
	wg      sync.WaitGroup
	idler   backoff.Idler

	completed atomic.Int64
}

// NewLockedExecutor creates and starts an executor with threadCount workers
func NewLockedExecutor(threadCount int) (*LockedExecutor, error) {
	if threadCount < 1 {
		return nil, fmt.Errorf("%w, got %d", types.ErrInvalidThreadCount, threadCount)
	}

	e := &LockedExecutor{
		tasks: queue.New(),
		idler: backoff.DefaultIdler(),
	}
	e.running.Store(true)

	e.wg.Add(threadCount)
	for i := 0; i < threadCount; i++ {
		go e.work()
	}
	return e, nil
}

// Submit appends task to the queue. Safe for concurrent use.
func (e *LockedExecutor) Submit(task types.Task) error {
	if task == nil {
		return types.ErrNilTask
	}
	if !e.running.Load() {
		return types.ErrExecutorShutdown
	}

	e.mu.Lock()
	e.tasks.Add(task)
	e.mu.Unlock()
	return nil
}

// Len returns the number of queued tasks
func (e *LockedExecutor) Len() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.tasks.Length()
}

// Completed returns the number of tasks that returned without panicking
func (e *LockedExecutor) Completed() int64 {
	return e.completed.Load()
}

// Shutdown stops the workers after their current task and waits for them.
// Queued tasks are dropped.
func (e *LockedExecutor) Shutdown() {
	if e.running.CompareAndSwap(true, false) {
		e.wg.Wait()
	}
}

func (e *LockedExecutor) poll() (types.Task, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.tasks.Length() == 0 {
		return nil, false
	}
	return e.tasks.Remove().(types.Task), true
}

func (e *LockedExecutor) work() {
	defer e.wg.Done()
	idler := e.idler

	for e.running.Load() {
		task, ok := e.poll()
		if !ok {
			idler.Idle()
			continue
		}
		idler.Reset()
		e.run(task)
	}
}

func (e *LockedExecutor) run(task types.Task) {
	defer func() {
		// failures are only counted by the executor under test
		_ = recover()
	}()
	task()
	e.completed.Add(1)
}
