// Package backoff provides backoff algorithm implementations
package backoff

import (
	"math"
	"math/rand"
	"time"
)

// Strategy defines the backoff strategy interface
type Strategy interface {
	// NextDelay calculates the delay for the given sleep attempt (1-based)
	NextDelay(attempt int) time.Duration

	// Reset resets the backoff state
	Reset()
}

// FixedBackoff implements fixed backoff strategy
type FixedBackoff struct {
	delay  time.Duration
	jitter JitterFunc
}

// NewFixedBackoff creates a fixed backoff strategy
func NewFixedBackoff(delay time.Duration, opts ...StrategyOption) *FixedBackoff {
	b := &FixedBackoff{
		delay: delay,
	}

	for _, opt := range opts {
		opt.applyToFixed(b)
	}

	return b
}

// NextDelay calculates the delay for the next attempt
func (b *FixedBackoff) NextDelay(attempt int) time.Duration {
	delay := b.delay
	if b.jitter != nil {
		delay = b.jitter(delay)
	}
	return delay
}

// Reset resets the backoff state
func (b *FixedBackoff) Reset() {}

// ExponentialBackoff implements exponential backoff strategy
type ExponentialBackoff struct {
	initialDelay time.Duration
	multiplier   float64
	maxDelay     time.Duration
	jitter       JitterFunc
}

// NewExponentialBackoff creates an exponential backoff strategy
func NewExponentialBackoff(initialDelay time.Duration, opts ...StrategyOption) *ExponentialBackoff {
	b := &ExponentialBackoff{
		initialDelay: initialDelay,
		multiplier:   2.0,
		maxDelay:     time.Millisecond,
	}

	for _, opt := range opts {
		opt.applyToExponential(b)
	}

	return b
}

// NextDelay calculates the delay for the next attempt
func (b *ExponentialBackoff) NextDelay(attempt int) time.Duration {
	if attempt <= 0 {
		attempt = 1
	}

	// math.Pow overflows to +Inf long before attempt wraps, so compare as float
	scaled := float64(b.initialDelay) * math.Pow(b.multiplier, float64(attempt-1))
	delay := b.maxDelay
	if scaled < float64(b.maxDelay) {
		delay = time.Duration(scaled)
	}

	if b.jitter != nil {
		delay = b.jitter(delay)
	}

	return delay
}

// Reset resets the backoff state
func (b *ExponentialBackoff) Reset() {}

// JitterFunc jitter function type
type JitterFunc func(time.Duration) time.Duration

// FullJitter full jitter function - random within [0, delay) range
func FullJitter(delay time.Duration) time.Duration {
	if delay <= 0 {
		return 0
	}
	return time.Duration(rand.Int63n(int64(delay)))
}

// EqualJitter equal jitter function - delay/2 + random(0, delay/2)
func EqualJitter(delay time.Duration) time.Duration {
	half := delay / 2
	if half <= 0 {
		return delay
	}
	return half + time.Duration(rand.Int63n(int64(half)))
}

// StrategyOption backoff strategy configuration option
type StrategyOption interface {
	applyToFixed(*FixedBackoff)
	applyToExponential(*ExponentialBackoff)
}

type strategyOption struct {
	multiplier *float64
	maxDelay   *time.Duration
	jitter     JitterFunc
}

func (o *strategyOption) applyToFixed(b *FixedBackoff) {
	if o.jitter != nil {
		b.jitter = o.jitter
	}
}

func (o *strategyOption) applyToExponential(b *ExponentialBackoff) {
	if o.multiplier != nil {
		b.multiplier = *o.multiplier
	}
	if o.maxDelay != nil {
		b.maxDelay = *o.maxDelay
	}
	if o.jitter != nil {
		b.jitter = o.jitter
	}
}

// WithBackoffMultiplier sets backoff multiplier (exponential backoff only)
func WithBackoffMultiplier(multiplier float64) StrategyOption {
	return &strategyOption{multiplier: &multiplier}
}

// WithBackoffMaxDelay sets maximum delay time
func WithBackoffMaxDelay(maxDelay time.Duration) StrategyOption {
	return &strategyOption{maxDelay: &maxDelay}
}

// WithBackoffJitter sets jitter function
func WithBackoffJitter(jitter JitterFunc) StrategyOption {
	return &strategyOption{jitter: jitter}
}
