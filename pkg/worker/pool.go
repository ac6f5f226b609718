package worker

import (
	"context"
	"fmt"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/jzx17/gospmc/internal/affinity"
	"github.com/jzx17/gospmc/pkg/types"
	"github.com/rs/zerolog"
)

const (
	poolStateCreated int32 = iota
	poolStateRunning
	poolStateStopped
)

// PoolConfig defines configuration for the worker pool
type PoolConfig struct {
	// PoolSize is the number of worker goroutines
	PoolSize int

	// StopTimeout bounds how long Stop waits for workers to join; zero waits forever
	StopTimeout time.Duration

	// Clock for time operations (optional, defaults to real clock)
	Clock types.Clock

	// Logger receives task failures and lifecycle events (optional)
	Logger *zerolog.Logger

	// ErrorHandler is called with every task failure (optional)
	ErrorHandler types.ErrorHandler

	// LockOSThread wires each worker goroutine to its own OS thread
	LockOSThread bool

	// PinCPUs pins each worker thread to a CPU (Linux only); implies LockOSThread
	PinCPUs bool
}

// DefaultPoolConfig returns default configuration
func DefaultPoolConfig() *PoolConfig {
	return &PoolConfig{
		PoolSize:    4,
		StopTimeout: 10 * time.Second,
		Clock:       types.NewRealClock(),
	}
}

// DefaultLogger returns the logger used when none is configured: JSON to
// stderr with timestamps, warnings and above
func DefaultLogger() zerolog.Logger {
	return zerolog.New(os.Stderr).Level(zerolog.WarnLevel).With().Timestamp().Logger()
}

// Pool is a fixed set of workers sharing one Source and one running flag
type Pool struct {
	config  *PoolConfig
	source  Source
	workers []*Worker
	logger  zerolog.Logger

	// running is the flag every worker loop checks
	running atomic.Bool

	// state management; mu serialises Start and Halt
	mu     sync.Mutex
	state  int32
	ctx    context.Context
	cancel context.CancelFunc
	joined chan struct{}

	// statistics
	totalCompleted int64
	totalFailed    int64
	totalExecNanos int64
}

// NewPool creates a pool of config.PoolSize workers pulling from source
func NewPool(source Source, config *PoolConfig) (*Pool, error) {
	if config == nil {
		config = DefaultPoolConfig()
	}

	if source == nil {
		return nil, fmt.Errorf("task source cannot be nil")
	}
	if config.PoolSize < 1 {
		return nil, fmt.Errorf("%w, got %d", types.ErrInvalidThreadCount, config.PoolSize)
	}
	if config.StopTimeout < 0 {
		return nil, fmt.Errorf("stop timeout must not be negative, got %v", config.StopTimeout)
	}

	if config.Clock == nil {
		config.Clock = types.NewRealClock()
	}

	logger := DefaultLogger()
	if config.Logger != nil {
		logger = *config.Logger
	}

	pool := &Pool{
		config:  config,
		source:  source,
		workers: make([]*Worker, config.PoolSize),
		logger:  logger,
		joined:  make(chan struct{}),
	}
	pool.ctx, pool.cancel = context.WithCancel(context.Background())

	binding := affinity.Binding{
		LockOSThread: config.LockOSThread,
		PinCPU:       config.PinCPUs,
	}

	for i := 0; i < config.PoolSize; i++ {
		worker := NewWorker(i, source, &pool.running, config.Clock)
		worker.SetLogger(logger)
		worker.SetBinding(binding)
		worker.SetCompletionCallback(pool.recordCompletion)
		if config.ErrorHandler != nil {
			worker.SetErrorHandler(config.ErrorHandler)
		}
		pool.workers[i] = worker
	}

	return pool, nil
}

// Start starts every worker. Cancelling ctx halts the pool the same way
// Stop does but without waiting for the workers.
func (p *Pool) Start(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	switch atomic.LoadInt32(&p.state) {
	case poolStateRunning:
		return fmt.Errorf("worker pool is already running")
	case poolStateStopped:
		return fmt.Errorf("worker pool is stopped")
	}

	p.running.Store(true)
	for _, worker := range p.workers {
		go worker.Run(p.ctx)
	}
	go func() {
		for _, worker := range p.workers {
			<-worker.Done()
		}
		p.logger.Debug().Msg("worker pool stopped")
		close(p.joined)
	}()
	atomic.StoreInt32(&p.state, poolStateRunning)

	context.AfterFunc(ctx, p.Halt)

	p.logger.Debug().Int("pool_size", len(p.workers)).Msg("worker pool started")
	return nil
}

// Halt clears the running flag and interrupts idle workers without waiting
// for them. It is safe to call any number of times and from any goroutine.
func (p *Pool) Halt() {
	p.mu.Lock()
	defer p.mu.Unlock()

	switch atomic.LoadInt32(&p.state) {
	case poolStateCreated:
		// no worker ever ran
		close(p.joined)
	case poolStateStopped:
		return
	}

	atomic.StoreInt32(&p.state, poolStateStopped)
	p.running.Store(false)
	p.cancel()
}

// Done is closed once every worker has returned, or when a pool that was
// never started is halted
func (p *Pool) Done() <-chan struct{} {
	return p.joined
}

// Stop halts the pool and waits up to StopTimeout for all workers to return.
// Tasks being executed finish; tasks still queued are left unclaimed.
func (p *Pool) Stop() error {
	return p.StopWithTimeout(p.config.StopTimeout)
}

// StopWithTimeout is Stop with an explicit join timeout; zero waits forever.
// Called from a task running on one of the pool's workers it halts the pool
// and returns without waiting, since that worker cannot return before the
// task does.
func (p *Pool) StopWithTimeout(timeout time.Duration) error {
	p.Halt()
	if p.OnWorker() {
		return nil
	}
	return p.Wait(timeout)
}

// Wait blocks until Done is closed or timeout elapses on the pool's clock;
// zero waits forever
func (p *Pool) Wait(timeout time.Duration) error {
	if timeout <= 0 {
		<-p.joined
		return nil
	}

	select {
	case <-p.joined:
		return nil
	default:
	}

	timer := p.config.Clock.NewTimer(timeout)
	defer timer.Stop()

	select {
	case <-p.joined:
		return nil
	case <-timer.C():
		p.logger.Warn().Dur("timeout", timeout).Msg("timeout waiting for workers to stop")
		return fmt.Errorf("waiting for workers to stop: %w", types.ErrTimeout)
	}
}

// OnWorker reports whether the caller is running on one of the pool's workers
func (p *Pool) OnWorker() bool {
	id := goroutineID()
	for _, worker := range p.workers {
		if worker.goroutine.Load() == id {
			return true
		}
	}
	return false
}

func (p *Pool) recordCompletion(executionTime time.Duration, failed bool) {
	if failed {
		atomic.AddInt64(&p.totalFailed, 1)
	} else {
		atomic.AddInt64(&p.totalCompleted, 1)
	}
	atomic.AddInt64(&p.totalExecNanos, int64(executionTime))
}

// Size returns the worker pool size
func (p *Pool) Size() int {
	return p.config.PoolSize
}

// IsRunning checks if the running flag is set
func (p *Pool) IsRunning() bool {
	return p.running.Load()
}

// IsStopped checks if the pool has been halted
func (p *Pool) IsStopped() bool {
	return atomic.LoadInt32(&p.state) == poolStateStopped
}

// Stats gets pool statistics
func (p *Pool) Stats() PoolStats {
	stats := PoolStats{
		PoolSize:       p.config.PoolSize,
		TotalCompleted: atomic.LoadInt64(&p.totalCompleted),
		TotalFailed:    atomic.LoadInt64(&p.totalFailed),
	}

	for _, worker := range p.workers {
		switch worker.State() {
		case WorkerStateWorking:
			stats.ActiveWorkers++
		case WorkerStateIdle:
			stats.IdleWorkers++
		}
	}

	if total := stats.TotalCompleted + stats.TotalFailed; total > 0 {
		stats.AverageExecutionTime = time.Duration(atomic.LoadInt64(&p.totalExecNanos) / total)
	}
	return stats
}

// GetWorkerStats gets statistics of all Workers
func (p *Pool) GetWorkerStats() []WorkerStats {
	stats := make([]WorkerStats, len(p.workers))
	for i, worker := range p.workers {
		stats[i] = worker.Stats()
	}
	return stats
}

// PoolStats defines pool statistics
type PoolStats struct {
	PoolSize             int
	ActiveWorkers        int
	IdleWorkers          int
	TotalCompleted       int64
	TotalFailed          int64
	AverageExecutionTime time.Duration
}
