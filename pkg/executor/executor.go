package executor

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/jzx17/gospmc/pkg/backoff"
	"github.com/jzx17/gospmc/pkg/ring"
	"github.com/jzx17/gospmc/pkg/types"
	"github.com/jzx17/gospmc/pkg/worker"
	"github.com/rs/zerolog"
)

// Executor runs submitted tasks on a fixed pool of workers fed by a
// lock-free single-producer ring.
//
// Submit, SubmitContext and TrySubmit form the producer side and must not be
// called concurrently with each other. Everything else is safe for
// concurrent use.
type Executor struct {
	config *Config
	ring   *ring.Ring[types.Task]
	pool   *worker.Pool
	logger zerolog.Logger

	state int32 // atomic types.State

	// lifetime is cancelled when shutdown begins; it aborts a producer
	// spinning on a full ring
	lifetime      context.Context
	closeLifetime context.CancelFunc
	shutdownOnce  sync.Once

	// terminated is closed after every worker returned and the state is
	// StateStopped
	terminated chan struct{}

	totalSubmitted int64
}

// New creates an executor with threadCount workers and a ring of capacity
// slots. Workers do not run until Start.
func New(threadCount, capacity int, opts ...Option) (*Executor, error) {
	config := DefaultConfig()
	config.ThreadCount = threadCount
	config.Capacity = capacity
	for _, opt := range opts {
		opt(config)
	}
	return NewWithConfig(config)
}

// NewStarted creates an executor and starts its workers
func NewStarted(threadCount, capacity int, opts ...Option) (*Executor, error) {
	e, err := New(threadCount, capacity, opts...)
	if err != nil {
		return nil, err
	}
	if err := e.Start(context.Background()); err != nil {
		return nil, err
	}
	return e, nil
}

// NewWithConfig creates an executor from config; nil uses DefaultConfig
func NewWithConfig(config *Config) (*Executor, error) {
	if config == nil {
		config = DefaultConfig()
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}

	if config.Clock == nil {
		config.Clock = types.NewRealClock()
	}

	logger := worker.DefaultLogger()
	if config.Logger != nil {
		logger = *config.Logger
	}

	idler := backoff.DefaultIdler()
	if config.Idler != nil {
		idler = *config.Idler
	}

	r, err := ring.New[types.Task](config.Capacity, ring.WithIdler(idler))
	if err != nil {
		return nil, err
	}

	pool, err := worker.NewPool(r, &worker.PoolConfig{
		PoolSize:     config.ThreadCount,
		StopTimeout:  config.StopTimeout,
		Clock:        config.Clock,
		Logger:       &logger,
		ErrorHandler: config.ErrorHandler,
		LockOSThread: config.LockOSThread,
		PinCPUs:      config.PinCPUs,
	})
	if err != nil {
		return nil, err
	}

	e := &Executor{
		config: config,
		ring:   r,
		pool:   pool,
		logger:     logger,
		state:      int32(types.StateCreated),
		terminated: make(chan struct{}),
	}
	e.lifetime, e.closeLifetime = context.WithCancel(context.Background())
	return e, nil
}

// Start starts the workers. Tasks submitted before Start stay queued until
// then; once the ring is full Submit spins until a worker claims one.
// Cancelling ctx shuts the executor down as Shutdown does, without waiting.
func (e *Executor) Start(ctx context.Context) error {
	if !atomic.CompareAndSwapInt32(&e.state, int32(types.StateCreated), int32(types.StateRunning)) {
		if e.State() == types.StateRunning {
			return types.ErrExecutorRunning
		}
		return types.ErrExecutorShutdown
	}

	if err := e.pool.Start(ctx); err != nil {
		// a concurrent Shutdown halted the pool first
		if e.IsShutdown() {
			return types.ErrExecutorShutdown
		}
		return err
	}
	context.AfterFunc(ctx, e.beginShutdown)

	e.logger.Debug().
		Int("thread_count", e.config.ThreadCount).
		Int("capacity", e.config.Capacity).
		Msg("executor started")
	return nil
}

// Submit queues task, spinning while the ring is full. It must only be
// called from one goroutine at a time. Submitting after Shutdown returns
// ErrExecutorShutdown, as does a Submit still spinning when shutdown begins.
func (e *Executor) Submit(task types.Task) error {
	if err := e.checkSubmit(task); err != nil {
		return err
	}

	if err := e.ring.PutContext(e.lifetime, task); err != nil {
		return types.ErrExecutorShutdown
	}

	atomic.AddInt64(&e.totalSubmitted, 1)
	return nil
}

// SubmitContext is Submit bounded by ctx. A ring that stays full until ctx
// is done returns ctx.Err().
func (e *Executor) SubmitContext(ctx context.Context, task types.Task) error {
	if err := e.checkSubmit(task); err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	stop := context.AfterFunc(e.lifetime, cancel)
	defer stop()

	if err := e.ring.PutContext(ctx, task); err != nil {
		if e.lifetime.Err() != nil {
			return types.ErrExecutorShutdown
		}
		return err
	}

	atomic.AddInt64(&e.totalSubmitted, 1)
	return nil
}

// TrySubmit queues task without spinning, returning ErrQueueFull when no
// slot is free
func (e *Executor) TrySubmit(task types.Task) error {
	if err := e.checkSubmit(task); err != nil {
		return err
	}

	if !e.ring.TryPut(task) {
		return types.ErrQueueFull
	}

	atomic.AddInt64(&e.totalSubmitted, 1)
	return nil
}

func (e *Executor) checkSubmit(task types.Task) error {
	if task == nil {
		return types.ErrNilTask
	}
	if e.State() >= types.StateShuttingDown {
		return types.ErrExecutorShutdown
	}
	return nil
}

// Shutdown stops the executor: the running flag is cleared, idle workers are
// interrupted and all workers are joined within the configured StopTimeout.
// Tasks already executing finish; tasks still queued are dropped. Every call
// waits for termination, so calls after the executor stopped return nil.
// A task may call Shutdown; it then returns without waiting for its own
// worker.
func (e *Executor) Shutdown() error {
	return e.ShutdownWithTimeout(e.config.StopTimeout)
}

// ShutdownWithTimeout is Shutdown with an explicit join timeout; zero waits
// forever. On timeout the executor stays in StateShuttingDown until the last
// worker returns, then moves to StateStopped on its own.
func (e *Executor) ShutdownWithTimeout(timeout time.Duration) error {
	e.beginShutdown()
	if e.pool.OnWorker() {
		return nil
	}

	if timeout <= 0 {
		<-e.terminated
		return nil
	}

	select {
	case <-e.terminated:
		return nil
	default:
	}

	timer := e.config.Clock.NewTimer(timeout)
	defer timer.Stop()

	select {
	case <-e.terminated:
		return nil
	case <-timer.C():
		e.logger.Warn().Dur("timeout", timeout).Msg("timeout waiting for workers to stop")
		return fmt.Errorf("waiting for workers to stop: %w", types.ErrTimeout)
	}
}

// beginShutdown moves the executor to StateShuttingDown, releases a spinning
// producer and halts the pool. The first call also starts the watcher that
// moves the executor to StateStopped once the pool has joined.
func (e *Executor) beginShutdown() {
	e.shutdownOnce.Do(func() {
		prev := types.State(atomic.SwapInt32(&e.state, int32(types.StateShuttingDown)))
		e.closeLifetime()
		e.pool.Halt()

		e.logger.Debug().Stringer("from", prev).Msg("executor shutting down")

		go func() {
			<-e.pool.Done()
			atomic.StoreInt32(&e.state, int32(types.StateStopped))
			e.logger.Debug().
				Int("dropped", e.ring.Len()).
				Msg("executor stopped")
			close(e.terminated)
		}()
	})
}

// Terminated is closed once the executor reached StateStopped
func (e *Executor) Terminated() <-chan struct{} {
	return e.terminated
}

// State returns the lifecycle state
func (e *Executor) State() types.State {
	return types.State(atomic.LoadInt32(&e.state))
}

// IsShutdown reports whether shutdown has begun
func (e *Executor) IsShutdown() bool {
	return e.State() >= types.StateShuttingDown
}

// IsTerminated reports whether shutdown completed and every worker returned
func (e *Executor) IsTerminated() bool {
	return e.State() == types.StateStopped
}

// ThreadCount returns the number of workers
func (e *Executor) ThreadCount() int {
	return e.pool.Size()
}

// Capacity returns the ring capacity
func (e *Executor) Capacity() int {
	return e.ring.Cap()
}

// QueueLength returns the number of queued, unclaimed tasks
func (e *Executor) QueueLength() int {
	return e.ring.Len()
}

// Stats returns a snapshot of executor statistics
func (e *Executor) Stats() Stats {
	poolStats := e.pool.Stats()
	return Stats{
		State:                e.State(),
		ThreadCount:          poolStats.PoolSize,
		Capacity:             e.ring.Cap(),
		QueueLength:          e.ring.Len(),
		ActiveWorkers:        poolStats.ActiveWorkers,
		TotalSubmitted:       atomic.LoadInt64(&e.totalSubmitted),
		TotalCompleted:       poolStats.TotalCompleted,
		TotalFailed:          poolStats.TotalFailed,
		AverageExecutionTime: poolStats.AverageExecutionTime,
	}
}

// WorkerStats returns per-worker statistics
func (e *Executor) WorkerStats() []worker.WorkerStats {
	return e.pool.GetWorkerStats()
}

// Stats defines executor statistics
type Stats struct {
	State                types.State
	ThreadCount          int
	Capacity             int
	QueueLength          int
	ActiveWorkers        int
	TotalSubmitted       int64
	TotalCompleted       int64
	TotalFailed          int64
	AverageExecutionTime time.Duration
}
