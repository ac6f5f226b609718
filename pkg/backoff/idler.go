package backoff

import (
	"runtime"
	"time"
)

const (
	// DefaultSpinCount is the number of immediate retries before yielding
	DefaultSpinCount = 30
	// DefaultYieldCount is the number of runtime.Gosched rounds before sleeping
	DefaultYieldCount = 10
)

// Phase identifies the escalation stage an Idler is in
type Phase int

const (
	// PhaseSpin retries immediately
	PhaseSpin Phase = iota
	// PhaseYield calls runtime.Gosched
	PhaseYield
	// PhaseSleep sleeps for Strategy.NextDelay
	PhaseSleep
)

// String returns the string representation of Phase
func (p Phase) String() string {
	switch p {
	case PhaseSpin:
		return "spin"
	case PhaseYield:
		return "yield"
	case PhaseSleep:
		return "sleep"
	default:
		return "unknown"
	}
}

// Idler implements spin-then-yield-then-sleep escalation for busy-wait loops.
// The zero value never sleeps: it spins DefaultSpinCount times and yields
// afterwards.
type Idler struct {
	spinCount  int
	yieldCount int
	strategy   Strategy
	attempt    int
}

// NewIdler creates an Idler. A nil strategy yields forever after the spin phase.
func NewIdler(spinCount, yieldCount int, strategy Strategy) Idler {
	if spinCount < 0 {
		spinCount = 0
	}
	if yieldCount < 0 {
		yieldCount = 0
	}
	return Idler{
		spinCount:  spinCount,
		yieldCount: yieldCount,
		strategy:   strategy,
	}
}

// DefaultIdler spins, yields and then sleeps from 1µs doubling up to 1ms
func DefaultIdler() Idler {
	return NewIdler(DefaultSpinCount, DefaultYieldCount,
		NewExponentialBackoff(time.Microsecond, WithBackoffMaxDelay(time.Millisecond)))
}

// Phase returns the phase the next call to Idle will use
func (i *Idler) Phase() Phase {
	next := i.attempt + 1
	switch {
	case next <= i.spins():
		return PhaseSpin
	case next <= i.spins()+i.yieldCount || i.strategy == nil:
		return PhaseYield
	default:
		return PhaseSleep
	}
}

// Idle waits once according to the current phase and advances the attempt counter
func (i *Idler) Idle() {
	phase := i.Phase()
	i.attempt++

	switch phase {
	case PhaseSpin:
		// the caller's retry is the spin
	case PhaseYield:
		runtime.Gosched()
	case PhaseSleep:
		delay := i.strategy.NextDelay(i.attempt - i.spins() - i.yieldCount)
		if delay <= 0 {
			runtime.Gosched()
			return
		}
		time.Sleep(delay)
	}
}

// Attempts returns how many times Idle ran since the last Reset
func (i *Idler) Attempts() int {
	return i.attempt
}

// Reset restarts the escalation from the spin phase and resets the strategy
func (i *Idler) Reset() {
	i.attempt = 0
	if i.strategy != nil {
		i.strategy.Reset()
	}
}

func (i *Idler) spins() int {
	if i.spinCount == 0 && i.yieldCount == 0 && i.strategy == nil {
		return DefaultSpinCount
	}
	return i.spinCount
}
