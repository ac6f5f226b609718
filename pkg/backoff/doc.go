/*
Package backoff provides the idle strategies used by the ring buffer while the
producer waits for a free slot or a consumer waits for a published task.

# Overview

The ring buffer never blocks on an OS primitive. Instead every waiting
goroutine escalates through three phases:

  - spin: retry immediately, for the lowest wake-up latency
  - yield: runtime.Gosched, letting other goroutines on the same P progress
  - sleep: a short time.Sleep chosen by a Strategy

The escalation restarts from the spin phase whenever the caller makes
progress (Idler.Reset).

# Strategies

  - FixedBackoff: same delay every time
  - ExponentialBackoff: initial delay multiplied per attempt, capped at a max delay

Both accept jitter functions (FullJitter, EqualJitter) through options.

# Usage

	idler := backoff.NewIdler(64, 16,
		backoff.NewExponentialBackoff(time.Microsecond,
			backoff.WithBackoffMaxDelay(500*time.Microsecond)))

	for !ready() {
		idler.Idle()
	}
	idler.Reset()

An Idler is a small value owned by one goroutine. Copy a configured Idler to
give each goroutine its own attempt counter; the Strategy it refers to is
shared and must be safe for concurrent use, which all strategies in this
package are.
*/
package backoff
