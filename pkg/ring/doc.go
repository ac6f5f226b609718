/*
Package ring implements a bounded, array-backed, lock-free
single-producer/multi-consumer ring buffer.

# Overview

Ring holds up to Cap() values in a power-of-two slot array addressed by two
monotonically increasing cursors, each isolated on its own cache line by
PaddedCounter:

  - write: the sequence number of the last published value; only the
    producer advances it
  - consumed: the sequence number of the last claimed value; consumers
    advance it with compare-and-swap

Sequence i lives in slot i & (Cap()-1). The ring is empty when
consumed == write and full when write-consumed == Cap().

# Protocol

The producer stores into the slot first and publishes the new write cursor
second. A consumer snapshots both cursors, reads the slot for consumed+1 and
only then tries to claim it with CAS; reading after the claim could observe
a value the producer already wrote for a later lap. A consumer that loses
the CAS discards what it read and starts over.

Claims happen in strict sequence order: the n-th successful Take returns the
n-th value put. Completion order across consumers is not ordered.

# Waiting

Neither side blocks on a mutex or condition variable. A producer facing a
full ring and a consumer facing an empty one idle through a backoff.Idler
(spin, then yield, then short sleeps). PutContext and TakeContext stop
waiting when their context is done.

# Usage

	r, err := ring.New[func()](1024)
	if err != nil {
		return err
	}

	// producer goroutine, exactly one
	r.Put(func() { fmt.Println("hello") })

	// any number of consumer goroutines
	task, err := r.TakeContext(ctx)
	if err == nil {
		task()
	}

Calling Put, PutContext or TryPut from more than one goroutine at a time is
not supported and corrupts the ring.
*/
package ring
