package ring

import (
	"sync/atomic"

	"golang.org/x/sys/cpu"
)

// PaddedCounter is an atomic int64 that owns its cache line. Keeping the
// producer's write cursor and the consumers' claim cursor on separate lines
// stops every claim from invalidating the producer's line and vice versa.
type PaddedCounter struct {
	_ cpu.CacheLinePad
	v atomic.Int64
	_ cpu.CacheLinePad
}

// Load atomically reads the counter
func (c *PaddedCounter) Load() int64 {
	return c.v.Load()
}

// CompareAndSwap sets the counter to new if it currently holds old
func (c *PaddedCounter) CompareAndSwap(old, new int64) bool {
	return c.v.CompareAndSwap(old, new)
}

// LazyStore publishes v. Only eventual visibility is required by callers,
// but Go exposes no relaxed store, so this is a sequentially consistent
// store and also orders every earlier write before it.
func (c *PaddedCounter) LazyStore(v int64) {
	c.v.Store(v)
}
