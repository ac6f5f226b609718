package worker

import (
	"context"
	"errors"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/jzx17/gospmc/internal/affinity"
	"github.com/jzx17/gospmc/pkg/types"
	"github.com/rs/zerolog"
)

// Source hands out tasks to workers. TakeContext must wait until a task is
// available and return an error once ctx is done and nothing can be claimed.
// *ring.Ring[types.Task] satisfies it.
type Source interface {
	TakeContext(ctx context.Context) (types.Task, error)
}

// WorkerState defines the state of a Worker
type WorkerState int32

const (
	// WorkerStateIdle represents idle worker state
	WorkerStateIdle WorkerState = iota
	// WorkerStateWorking represents working worker state
	WorkerStateWorking
	// WorkerStateStopped represents stopped worker state
	WorkerStateStopped
)

// String returns the string representation of WorkerState
func (ws WorkerState) String() string {
	switch ws {
	case WorkerStateIdle:
		return "idle"
	case WorkerStateWorking:
		return "working"
	case WorkerStateStopped:
		return "stopped"
	default:
		return "unknown"
	}
}

// Worker repeatedly claims tasks from a Source and runs them on its own
// goroutine while the shared running flag is set
type Worker struct {
	id      int
	state   int32 // atomic state
	source  Source
	running *atomic.Bool
	done    chan struct{}

	// goroutine is the id of the goroutine executing Run, 0 outside Run
	goroutine atomic.Uint64

	// statistics
	totalProcessed int64
	totalFailed    int64
	lastTaskTime   int64 // Unix nanosecond timestamp

	// error handling
	errorHandler types.ErrorHandler
	logger       zerolog.Logger

	// pool callback for syncing statistics
	completionCallback func(time.Duration, bool)

	binding affinity.Binding
	clock   types.Clock

	// synchronization
	mu sync.RWMutex
}

// NewWorker creates a Worker bound to source. running is owned by the
// caller; the worker only reads it.
func NewWorker(id int, source Source, running *atomic.Bool, clock types.Clock) *Worker {
	if clock == nil {
		clock = types.NewRealClock()
	}

	return &Worker{
		id:      id,
		state:   int32(WorkerStateIdle),
		source:  source,
		running: running,
		done:    make(chan struct{}),
		logger:  zerolog.Nop(),
		clock:   clock,
	}
}

// ID returns the Worker ID
func (w *Worker) ID() int {
	return w.id
}

// State returns the current Worker state
func (w *Worker) State() WorkerState {
	return WorkerState(atomic.LoadInt32(&w.state))
}

// Done is closed once Run has returned
func (w *Worker) Done() <-chan struct{} {
	return w.done
}

// SetErrorHandler sets the error handler
func (w *Worker) SetErrorHandler(handler types.ErrorHandler) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.errorHandler = handler
}

// SetCompletionCallback sets the task completion callback
func (w *Worker) SetCompletionCallback(callback func(time.Duration, bool)) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.completionCallback = callback
}

// SetLogger sets the logger used for task failures
func (w *Worker) SetLogger(logger zerolog.Logger) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.logger = logger.With().Int("worker_id", w.id).Logger()
}

// SetBinding sets how Run attaches to its OS thread. Must be called before Run.
func (w *Worker) SetBinding(binding affinity.Binding) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.binding = binding
}

// Run executes the worker loop until the running flag is cleared. A take
// interrupted by ctx loops back to the flag check. Run must be called once.
func (w *Worker) Run(ctx context.Context) {
	defer close(w.done)
	defer atomic.StoreInt32(&w.state, int32(WorkerStateStopped))

	w.goroutine.Store(goroutineID())
	defer w.goroutine.Store(0)

	w.mu.RLock()
	binding, logger := w.binding, w.logger
	w.mu.RUnlock()

	release, err := binding.Apply(w.id)
	defer release()
	if err != nil {
		logger.Warn().Err(err).Msg("worker thread binding failed")
	}

	logger.Debug().Msg("worker started")
	for w.running.Load() {
		task, err := w.source.TakeContext(ctx)
		if err != nil {
			// interrupted; the owner clears the flag before cancelling
			runtime.Gosched()
			continue
		}
		w.processTask(task)
	}
	logger.Debug().Msg("worker stopped")
}

// processTask processes a single task
func (w *Worker) processTask(task types.Task) {
	if task == nil {
		return
	}

	atomic.StoreInt32(&w.state, int32(WorkerStateWorking))
	defer atomic.StoreInt32(&w.state, int32(WorkerStateIdle))

	startTime := w.clock.Now()
	atomic.StoreInt64(&w.lastTaskTime, startTime.UnixNano())

	err := w.executeTask(task)

	executionTime := w.clock.Since(startTime)

	failed := err != nil
	if failed {
		atomic.AddInt64(&w.totalFailed, 1)
		w.handleError(err)
	} else {
		atomic.AddInt64(&w.totalProcessed, 1)
	}

	w.mu.RLock()
	callback := w.completionCallback
	w.mu.RUnlock()

	if callback != nil {
		callback(executionTime, failed)
	}
}

// executeTask executes a task with panic recovery support
func (w *Worker) executeTask(task types.Task) (err error) {
	defer func() {
		if r := recover(); r != nil {
			var buf [4096]byte
			n := runtime.Stack(buf[:], false)

			cause, ok := r.(error)
			if !ok {
				cause = &types.PanicError{Value: r}
			}

			err = types.NewExecutorError("task", cause).
				WithContext("stack_trace", string(buf[:n])).
				WithContext("worker_id", w.id)
		}
	}()

	task()
	return nil
}

// handleError logs the failure and passes it to the error handler
func (w *Worker) handleError(err error) {
	w.mu.RLock()
	handler, logger := w.errorHandler, w.logger
	w.mu.RUnlock()

	event := logger.Error().Err(err)
	var execErr *types.ExecutorError
	if errors.As(err, &execErr) {
		if stack, ok := execErr.Context["stack_trace"].(string); ok {
			event = event.Str("stack_trace", stack)
		}
	}
	event.Msg("task failed")

	if handler != nil {
		if handledErr := handler(err); handledErr != nil {
			logger.Warn().Err(handledErr).Msg("error handler returned error")
		}
	}
}

// Stats gets Worker statistics
func (w *Worker) Stats() WorkerStats {
	var lastTaskTime time.Time
	if ns := atomic.LoadInt64(&w.lastTaskTime); ns != 0 {
		lastTaskTime = time.Unix(0, ns)
	}

	return WorkerStats{
		ID:             w.id,
		State:          w.State(),
		TotalProcessed: atomic.LoadInt64(&w.totalProcessed),
		TotalFailed:    atomic.LoadInt64(&w.totalFailed),
		LastTaskTime:   lastTaskTime,
	}
}

// WorkerStats defines Worker statistics
type WorkerStats struct {
	ID             int
	State          WorkerState
	TotalProcessed int64
	TotalFailed    int64
	LastTaskTime   time.Time
}

// IsActive checks if Worker is active
func (ws WorkerStats) IsActive() bool {
	return ws.State == WorkerStateWorking
}

// IsIdle checks if Worker is idle
func (ws WorkerStats) IsIdle() bool {
	return ws.State == WorkerStateIdle
}

// GetSuccessRate gets the success rate
func (ws WorkerStats) GetSuccessRate() float64 {
	total := ws.TotalProcessed + ws.TotalFailed
	if total == 0 {
		return 0
	}
	return float64(ws.TotalProcessed) / float64(total)
}

// GetErrorRate gets the error rate
func (ws WorkerStats) GetErrorRate() float64 {
	total := ws.TotalProcessed + ws.TotalFailed
	if total == 0 {
		return 0
	}
	return float64(ws.TotalFailed) / float64(total)
}

// goroutineID returns the current goroutine's id as printed in stack traces
func goroutineID() uint64 {
	var buf [64]byte
	n := runtime.Stack(buf[:], false)
	var id uint64
	for i := len("goroutine "); i < n; i++ {
		if buf[i] < '0' || buf[i] > '9' {
			break
		}
		id = id*10 + uint64(buf[i]-'0')
	}
	return id
}
