/*
Package worker provides the fixed-size worker pool that drains a task source.

# Overview

A Pool owns PoolSize Worker goroutines and one running flag. Every worker
runs the same loop:

	for running {
		task, err := source.TakeContext(ctx)
		if err != nil {
			continue // interrupted, re-check the flag
		}
		run task, recovering any panic
	}

The source is normally a *ring.Ring[types.Task]; any type with a matching
TakeContext method works.

# Failures

A task that panics never takes its worker down. The panic is recovered,
wrapped in a *types.ExecutorError carrying the worker id and stack trace,
logged at error level through zerolog, counted, and handed to the optional
ErrorHandler. Nothing is propagated to the producer.

# Shutdown

Halt clears the running flag and cancels the context passed to
TakeContext, which wakes idle workers. Workers that are running a task
finish it and then exit. Tasks still queued are not drained. Done is closed
once every worker has returned. Stop halts and then waits on Done, bounded
by StopTimeout measured on the configured Clock; called from a task it
returns without waiting.

# Threads

With LockOSThread each worker goroutine owns an OS thread for its whole
life; PinCPUs additionally pins that thread on Linux to one of the CPUs the
process may use, chosen round-robin by worker id. A pinned thread exits with
its worker instead of returning to the runtime.

# Usage

	r, _ := ring.New[types.Task](1024)
	pool, err := worker.NewPool(r, &worker.PoolConfig{PoolSize: 4})
	if err != nil {
		log.Fatal(err)
	}
	if err := pool.Start(context.Background()); err != nil {
		log.Fatal(err)
	}
	defer pool.Stop()

	r.Put(func() { fmt.Println("hello") })
*/
package worker
