package executor

import (
	"fmt"
	"runtime"
	"time"

	"github.com/jzx17/gospmc/pkg/backoff"
	"github.com/jzx17/gospmc/pkg/ring"
	"github.com/jzx17/gospmc/pkg/types"
	"github.com/rs/zerolog"
)

// Config defines configuration for an Executor
type Config struct {
	// ThreadCount is the number of worker goroutines, at least 1
	ThreadCount int

	// Capacity is the ring size; must be a power of two
	Capacity int

	// StopTimeout bounds how long Shutdown waits for workers; zero waits forever
	StopTimeout time.Duration

	// Clock for time operations (optional, defaults to real clock)
	Clock types.Clock

	// Logger receives task failures and lifecycle events (optional)
	Logger *zerolog.Logger

	// ErrorHandler is called with every task failure (optional)
	ErrorHandler types.ErrorHandler

	// Idler is the wait strategy used while the ring is full or empty
	// (optional, defaults to backoff.DefaultIdler)
	Idler *backoff.Idler

	// LockOSThread wires each worker goroutine to its own OS thread
	LockOSThread bool

	// PinCPUs pins each worker thread to a CPU (Linux only)
	PinCPUs bool
}

// DefaultConfig returns default configuration: one worker per CPU and a
// 1024 slot ring
func DefaultConfig() *Config {
	return &Config{
		ThreadCount: runtime.NumCPU(),
		Capacity:    1024,
		StopTimeout: 10 * time.Second,
		Clock:       types.NewRealClock(),
	}
}

// Validate checks the configuration and returns an error if invalid
func (c *Config) Validate() error {
	if c.ThreadCount < 1 {
		return fmt.Errorf("%w, got %d", types.ErrInvalidThreadCount, c.ThreadCount)
	}
	if !ring.IsPowerOfTwo(c.Capacity) {
		return fmt.Errorf("%w, got %d", types.ErrInvalidCapacity, c.Capacity)
	}
	if c.StopTimeout < 0 {
		return fmt.Errorf("stop timeout must not be negative, got %v", c.StopTimeout)
	}
	return nil
}

// Option modifies a Config
type Option func(*Config)

// WithStopTimeout sets how long Shutdown waits for workers to join
func WithStopTimeout(timeout time.Duration) Option {
	return func(c *Config) {
		c.StopTimeout = timeout
	}
}

// WithClock sets the clock used for shutdown timeouts and task timestamps
func WithClock(clock types.Clock) Option {
	return func(c *Config) {
		c.Clock = clock
	}
}

// WithLogger sets the logger
func WithLogger(logger zerolog.Logger) Option {
	return func(c *Config) {
		c.Logger = &logger
	}
}

// WithErrorHandler sets the handler called with every task failure
func WithErrorHandler(handler types.ErrorHandler) Option {
	return func(c *Config) {
		c.ErrorHandler = handler
	}
}

// WithIdler sets the wait strategy for a full or empty ring
func WithIdler(idler backoff.Idler) Option {
	return func(c *Config) {
		c.Idler = &idler
	}
}

// WithLockOSThread wires each worker to its own OS thread
func WithLockOSThread(enabled bool) Option {
	return func(c *Config) {
		c.LockOSThread = enabled
	}
}

// WithPinCPUs pins each worker thread to a CPU
func WithPinCPUs(enabled bool) Option {
	return func(c *Config) {
		c.PinCPUs = enabled
	}
}
