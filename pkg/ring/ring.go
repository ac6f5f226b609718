package ring

import (
	"context"
	"fmt"
	"sync/atomic"

	"github.com/jzx17/gospmc/pkg/backoff"
	"github.com/jzx17/gospmc/pkg/types"
)

// Option configures a Ring
type Option func(*options)

type options struct {
	idler backoff.Idler
}

// WithIdler sets the idle strategy used while the ring is full or empty.
// Each waiting call works on its own copy of idler.
func WithIdler(idler backoff.Idler) Option {
	return func(o *options) {
		o.idler = idler
	}
}

// Ring is a bounded single-producer/multi-consumer queue
type Ring[T any] struct {
	write    PaddedCounter
	consumed PaddedCounter

	// slots hold immutable boxes; a box is never written after publication,
	// so a consumer may dereference it after its claim succeeds
	slots    []atomic.Pointer[T]
	mask     int64
	capacity int64

	idler backoff.Idler
}

// New creates a ring holding up to capacity values. capacity must be a
// positive power of two.
func New[T any](capacity int, opts ...Option) (*Ring[T], error) {
	if !IsPowerOfTwo(capacity) {
		return nil, fmt.Errorf("%w, got %d", types.ErrInvalidCapacity, capacity)
	}

	o := options{idler: backoff.DefaultIdler()}
	for _, opt := range opts {
		opt(&o)
	}

	return &Ring[T]{
		slots:    make([]atomic.Pointer[T], capacity),
		mask:     int64(capacity - 1),
		capacity: int64(capacity),
		idler:    o.idler,
	}, nil
}

// IsPowerOfTwo reports whether n is a positive power of two
func IsPowerOfTwo(n int) bool {
	return n > 0 && n&(n-1) == 0
}

// Put appends v, idling while the ring is full. Producer only.
func (r *Ring[T]) Put(v T) {
	_ = r.put(context.Background(), v)
}

// PutContext appends v, idling while the ring is full until ctx is done.
// Producer only.
func (r *Ring[T]) PutContext(ctx context.Context, v T) error {
	return r.put(ctx, v)
}

// TryPut appends v if a slot is free. Producer only.
func (r *Ring[T]) TryPut(v T) bool {
	next := r.write.Load() + 1
	if next-r.consumed.Load() > r.capacity {
		return false
	}
	r.publish(next, v)
	return true
}

func (r *Ring[T]) put(ctx context.Context, v T) error {
	next := r.write.Load() + 1

	if next-r.consumed.Load() > r.capacity {
		done := ctx.Done()
		idler := r.idler
		for next-r.consumed.Load() > r.capacity {
			select {
			case <-done:
				return ctx.Err()
			default:
			}
			idler.Idle()
		}
	}

	r.publish(next, v)
	return nil
}

// publish stores v for sequence next and then advances the write cursor.
// The slot store is atomic, so it happens before the cursor store.
func (r *Ring[T]) publish(next int64, v T) {
	box := new(T)
	*box = v
	r.slots[next&r.mask].Store(box)
	r.write.LazyStore(next)
}

// Take claims the oldest unclaimed value, idling while the ring is empty
func (r *Ring[T]) Take() T {
	v, _, _ := r.take(context.Background())
	return v
}

// TakeContext claims the oldest unclaimed value, idling while the ring is
// empty. Once ctx is done it returns ctx.Err() without claiming, even when
// values are queued.
func (r *Ring[T]) TakeContext(ctx context.Context) (T, error) {
	v, _, err := r.take(ctx)
	return v, err
}

// TryTake claims the oldest unclaimed value if one is published. Lost CAS
// races are retried; only an empty ring returns false.
func (r *Ring[T]) TryTake() (T, bool) {
	for {
		lastFilled := r.write.Load()
		lastConsumed := r.consumed.Load()
		if lastConsumed >= lastFilled {
			var zero T
			return zero, false
		}
		if v, ok := r.claim(lastConsumed); ok {
			return v, true
		}
	}
}

// take returns the claimed value together with its sequence number
func (r *Ring[T]) take(ctx context.Context) (T, int64, error) {
	done := ctx.Done()
	idler := r.idler
	for {
		// checked before every attempt so an interrupted consumer claims nothing
		select {
		case <-done:
			var zero T
			return zero, 0, ctx.Err()
		default:
		}

		lastFilled := r.write.Load()
		lastConsumed := r.consumed.Load()

		if lastConsumed >= lastFilled {
			idler.Idle()
			continue
		}

		if v, ok := r.claim(lastConsumed); ok {
			return v, lastConsumed + 1, nil
		}
	}
}

// claim reads the slot for lastConsumed+1 and then tries to advance the
// consumed cursor past it. The read must come first.
func (r *Ring[T]) claim(lastConsumed int64) (T, bool) {
	box := r.slots[(lastConsumed+1)&r.mask].Load()
	if !r.consumed.CompareAndSwap(lastConsumed, lastConsumed+1) {
		var zero T
		return zero, false
	}
	return *box, true
}

// Len returns the number of published but unclaimed values. The result is a
// snapshot and may be stale by the time it is used.
func (r *Ring[T]) Len() int {
	consumed := r.consumed.Load()
	write := r.write.Load()
	n := write - consumed
	if n < 0 {
		return 0
	}
	if n > r.capacity {
		return int(r.capacity)
	}
	return int(n)
}

// Cap returns the ring capacity
func (r *Ring[T]) Cap() int {
	return int(r.capacity)
}

// Cursors returns the write and consumed cursors. consumed is read first,
// so consumed <= write holds for the returned pair.
func (r *Ring[T]) Cursors() (write, consumed int64) {
	consumed = r.consumed.Load()
	write = r.write.Load()
	return write, consumed
}
