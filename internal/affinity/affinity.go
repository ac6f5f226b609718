// Package affinity wires worker goroutines to OS threads and, where the
// platform allows it, pins those threads to CPUs.
package affinity

import (
	"errors"
	"fmt"
	"runtime"
)

// ErrUnsupported is returned by Pin on platforms without thread affinity
var ErrUnsupported = errors.New("affinity: cpu pinning not supported on this platform")

// Binding describes how a worker thread is attached
type Binding struct {
	// LockOSThread wires the calling goroutine to its current OS thread
	LockOSThread bool
	// PinCPU additionally restricts that thread to one CPU; implies LockOSThread
	PinCPU bool
}

// Enabled reports whether the binding changes anything
func (b Binding) Enabled() bool {
	return b.LockOSThread || b.PinCPU
}

// Apply binds the calling goroutine for worker id. The returned release
// function must be called from the same goroutine when the worker exits.
// A thread that was pinned stays locked after release, so the runtime
// terminates it with the goroutine instead of reusing it elsewhere.
func (b Binding) Apply(id int) (release func(), err error) {
	if !b.Enabled() {
		return func() {}, nil
	}

	runtime.LockOSThread()
	if !b.PinCPU {
		return runtime.UnlockOSThread, nil
	}

	cpu := CPUFor(id)
	if err := pin(cpu); err != nil {
		return runtime.UnlockOSThread, fmt.Errorf("pin worker %d to cpu %d: %w", id, cpu, err)
	}
	return func() {}, nil
}

// CPUFor maps a worker id round-robin onto the CPUs the calling thread is
// allowed to run on, falling back to 0..NumCPU-1 when that set is unknown
func CPUFor(id int) int {
	if id < 0 {
		id = -id
	}
	if cpus, err := current(); err == nil && len(cpus) > 0 {
		return cpus[id%len(cpus)]
	}
	return id % runtime.NumCPU()
}
