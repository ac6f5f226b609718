package worker

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jzx17/gospmc/internal/testutils"
	"github.com/jzx17/gospmc/pkg/types"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func quietConfig(size int) *PoolConfig {
	logger := zerolog.Nop()
	return &PoolConfig{PoolSize: size, Logger: &logger}
}

func TestNewPool(t *testing.T) {
	r := newTaskRing(t, 8)

	tests := []struct {
		name        string
		source      Source
		config      *PoolConfig
		expectError error
	}{
		{
			name:   "nil config should use default",
			source: r,
			config: nil,
		},
		{
			name:   "valid config",
			source: r,
			config: &PoolConfig{PoolSize: 3},
		},
		{
			name:        "zero pool size should error",
			source:      r,
			config:      &PoolConfig{PoolSize: 0},
			expectError: types.ErrInvalidThreadCount,
		},
		{
			name:        "negative pool size should error",
			source:      r,
			config:      &PoolConfig{PoolSize: -1},
			expectError: types.ErrInvalidThreadCount,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pool, err := NewPool(tt.source, tt.config)
			if tt.expectError != nil {
				assert.ErrorIs(t, err, tt.expectError)
				assert.Nil(t, pool)
				return
			}
			require.NoError(t, err)
			if tt.config == nil {
				assert.Equal(t, 4, pool.Size())
			} else {
				assert.Equal(t, tt.config.PoolSize, pool.Size())
			}
		})
	}

	t.Run("nil source should error", func(t *testing.T) {
		pool, err := NewPool(nil, &PoolConfig{PoolSize: 1})
		assert.Error(t, err)
		assert.Nil(t, pool)
	})

	t.Run("negative stop timeout should error", func(t *testing.T) {
		pool, err := NewPool(r, &PoolConfig{PoolSize: 1, StopTimeout: -time.Second})
		assert.Error(t, err)
		assert.Nil(t, pool)
	})
}

func TestPool_StartStop(t *testing.T) {
	pool, err := NewPool(newTaskRing(t, 8), quietConfig(3))
	require.NoError(t, err)

	ctx := context.Background()

	assert.NoError(t, pool.Start(ctx))
	assert.True(t, pool.IsRunning())

	assert.Error(t, pool.Start(ctx))

	assert.NoError(t, pool.Stop())
	assert.False(t, pool.IsRunning())
	assert.True(t, pool.IsStopped())

	for _, ws := range pool.GetWorkerStats() {
		assert.Equal(t, WorkerStateStopped, ws.State)
	}

	// stopping again only waits for the join that already happened
	assert.NoError(t, pool.Stop())
	assert.Error(t, pool.Start(ctx))
}

func TestPool_StopBeforeStart(t *testing.T) {
	pool, err := NewPool(newTaskRing(t, 8), quietConfig(2))
	require.NoError(t, err)

	assert.NoError(t, pool.Stop())
	assert.True(t, pool.IsStopped())
	assert.Error(t, pool.Start(context.Background()))

	select {
	case <-pool.Done():
	default:
		t.Fatal("done not closed for a pool that never started")
	}
}

func TestPool_TaskExecution(t *testing.T) {
	r := newTaskRing(t, 16)
	pool, err := NewPool(r, quietConfig(2))
	require.NoError(t, err)
	require.NoError(t, pool.Start(context.Background()))
	defer pool.Stop()

	var counter int64
	var wg sync.WaitGroup

	numTasks := 100
	wg.Add(numTasks)
	for i := 0; i < numTasks; i++ {
		r.Put(func() {
			atomic.AddInt64(&counter, 1)
			wg.Done()
		})
	}
	wg.Wait()

	assert.Equal(t, int64(numTasks), atomic.LoadInt64(&counter))

	assert.Eventually(t, func() bool {
		return pool.Stats().TotalCompleted == int64(numTasks)
	}, time.Second, time.Millisecond)

	stats := pool.Stats()
	assert.Equal(t, 2, stats.PoolSize)
	assert.Equal(t, int64(0), stats.TotalFailed)
	assert.GreaterOrEqual(t, stats.AverageExecutionTime, time.Duration(0))
}

func TestPool_PanicDoesNotKillWorker(t *testing.T) {
	r := newTaskRing(t, 8)
	var failures atomic.Int64
	config := quietConfig(1)
	config.ErrorHandler = func(err error) error {
		failures.Add(1)
		return err
	}

	pool, err := NewPool(r, config)
	require.NoError(t, err)
	require.NoError(t, pool.Start(context.Background()))
	defer pool.Stop()

	var wg sync.WaitGroup
	wg.Add(4)
	for i := 0; i < 4; i++ {
		i := i
		r.Put(func() {
			defer wg.Done()
			if i%2 == 0 {
				panic("task failed")
			}
		})
	}
	wg.Wait()

	assert.Eventually(t, func() bool {
		s := pool.Stats()
		return s.TotalCompleted == 2 && s.TotalFailed == 2
	}, time.Second, time.Millisecond)
	assert.Equal(t, int64(2), failures.Load())
}

func TestPool_StopLetsRunningTaskFinish(t *testing.T) {
	r := newTaskRing(t, 8)
	pool, err := NewPool(r, quietConfig(1))
	require.NoError(t, err)
	require.NoError(t, pool.Start(context.Background()))

	started := make(chan struct{})
	release := make(chan struct{})
	var finished atomic.Bool
	r.Put(func() {
		close(started)
		<-release
		finished.Store(true)
	})
	<-started

	stopped := make(chan error, 1)
	go func() { stopped <- pool.Stop() }()

	select {
	case <-stopped:
		t.Fatal("stop returned while a task was still running")
	case <-time.After(20 * time.Millisecond):
	}

	close(release)
	assert.NoError(t, <-stopped)
	assert.True(t, finished.Load())
}

func TestPool_StopDropsUnclaimedTasks(t *testing.T) {
	r := newTaskRing(t, 8)
	pool, err := NewPool(r, quietConfig(1))
	require.NoError(t, err)
	require.NoError(t, pool.Start(context.Background()))

	started := make(chan struct{})
	release := make(chan struct{})
	r.Put(func() {
		close(started)
		<-release
	})
	<-started

	var ran atomic.Int64
	for i := 0; i < 3; i++ {
		r.Put(func() { ran.Add(1) })
	}

	stopped := make(chan error, 1)
	go func() { stopped <- pool.Stop() }()
	assert.Eventually(t, func() bool { return !pool.IsRunning() }, time.Second, time.Millisecond)
	close(release)

	require.NoError(t, <-stopped)
	assert.Equal(t, int64(0), ran.Load())
	assert.Equal(t, 3, r.Len())
}

func TestPool_StopTimeout(t *testing.T) {
	mock := testutils.NewMockClock(t)
	r := newTaskRing(t, 4)

	config := quietConfig(1)
	config.Clock = testutils.NewClockWrapper(mock)
	config.StopTimeout = 10 * time.Second

	pool, err := NewPool(r, config)
	require.NoError(t, err)
	require.NoError(t, pool.Start(context.Background()))

	started := make(chan struct{})
	release := make(chan struct{})
	r.Put(func() {
		close(started)
		<-release
	})
	<-started

	stopped := make(chan error, 1)
	go func() { stopped <- pool.Stop() }()

	var stopErr error
	ok := testutils.AdvanceUntil(t, mock, time.Second, 30, func() bool {
		select {
		case stopErr = <-stopped:
			return true
		default:
			return false
		}
	})
	require.True(t, ok, "stop did not time out")
	assert.True(t, errors.Is(stopErr, types.ErrTimeout))
	assert.True(t, pool.IsStopped())

	// the join completes once the task returns
	close(release)
	select {
	case <-pool.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("workers did not join after the task returned")
	}
	assert.NoError(t, pool.Stop())
}

func TestPool_ParentContextCancelClearsFlag(t *testing.T) {
	r := newTaskRing(t, 4)
	pool, err := NewPool(r, quietConfig(2))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, pool.Start(ctx))
	cancel()

	assert.Eventually(t, func() bool {
		for _, ws := range pool.GetWorkerStats() {
			if ws.State != WorkerStateStopped {
				return false
			}
		}
		return true
	}, time.Second, time.Millisecond)
	assert.False(t, pool.IsRunning())
	assert.True(t, pool.IsStopped())
	<-pool.Done()
	assert.NoError(t, pool.Stop())
}

func TestPool_StopFromTask(t *testing.T) {
	r := newTaskRing(t, 4)
	config := quietConfig(2)
	config.StopTimeout = 0

	pool, err := NewPool(r, config)
	require.NoError(t, err)
	require.NoError(t, pool.Start(context.Background()))

	result := make(chan error, 1)
	r.Put(func() { result <- pool.Stop() })

	select {
	case err := <-result:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("stop called from a task waited for its own worker")
	}

	select {
	case <-pool.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("workers did not join")
	}
	assert.False(t, pool.OnWorker())
}

func TestPool_ConcurrentStartStop(t *testing.T) {
	for i := 0; i < 200; i++ {
		pool, err := NewPool(newTaskRing(t, 4), quietConfig(2))
		require.NoError(t, err)

		var wg sync.WaitGroup
		wg.Add(2)
		go func() {
			defer wg.Done()
			_ = pool.Start(context.Background())
		}()
		go func() {
			defer wg.Done()
			assert.NoError(t, pool.Stop())
		}()
		wg.Wait()

		select {
		case <-pool.Done():
		case <-time.After(2 * time.Second):
			t.Fatalf("iteration %d: pool did not join", i)
		}
		assert.False(t, pool.IsRunning())
	}
}

func TestPool_LockOSThread(t *testing.T) {
	r := newTaskRing(t, 4)
	config := quietConfig(2)
	config.LockOSThread = true

	pool, err := NewPool(r, config)
	require.NoError(t, err)
	require.NoError(t, pool.Start(context.Background()))

	done := make(chan struct{})
	r.Put(func() { close(done) })
	<-done
	assert.NoError(t, pool.Stop())
}
