/*
Package executor provides a fixed-size task executor built on a lock-free
single-producer/multi-consumer ring.

# Overview

An Executor owns one ring.Ring of tasks and one worker.Pool. One producer
goroutine submits tasks; ThreadCount workers race to claim them with
compare-and-swap and run each claimed task to completion. Tasks are claimed
in submission order; completion order across workers is not defined.

# Lifecycle

	Created → Running → ShuttingDown → Stopped

New returns a Created executor; Start moves it to Running. NewStarted does
both. Shutdown clears the workers' running flag, interrupts idle workers and
joins them. Queued tasks that no worker claimed are dropped. The executor
reaches Stopped when the last worker returns, even if the Shutdown call that
began it timed out. Cancelling the context given to Start begins the same
shutdown, and a task may call Shutdown without waiting for its own worker.

# Submission

Submit is fire-and-forget and spins while the ring is full; it is the
producer's only form of backpressure. SubmitContext bounds that wait with a
context and TrySubmit does not wait at all. None of the three may run
concurrently with another. After shutdown begins every submission fails
with types.ErrExecutorShutdown.

# Failures

Construction rejects a ThreadCount below one and a Capacity that is not a
power of two. A task that panics is recovered on its worker, logged through
zerolog, counted in Stats and passed to the optional ErrorHandler; neither
the producer nor the other workers observe it.

# Usage

	exec, err := executor.NewStarted(4, 1024,
		executor.WithLogger(zerolog.New(os.Stderr)))
	if err != nil {
		log.Fatal(err)
	}
	defer exec.Shutdown()

	var sum atomic.Int64
	for i := 1; i <= 100; i++ {
		i := i
		if err := exec.Submit(func() { sum.Add(int64(i)) }); err != nil {
			log.Printf("submit: %v", err)
		}
	}
*/
package executor
