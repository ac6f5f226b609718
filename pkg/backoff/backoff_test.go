package backoff

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestFixedBackoff(t *testing.T) {
	delay := 100 * time.Microsecond
	backoff := NewFixedBackoff(delay)

	tests := []struct {
		attempt int
		want    time.Duration
	}{
		{1, delay},
		{2, delay},
		{10, delay},
	}

	for _, tt := range tests {
		got := backoff.NextDelay(tt.attempt)
		if got != tt.want {
			t.Errorf("NextDelay(%d) = %v, want %v", tt.attempt, got, tt.want)
		}
	}
}

func TestExponentialBackoff(t *testing.T) {
	backoff := NewExponentialBackoff(time.Microsecond,
		WithBackoffMultiplier(2.0),
		WithBackoffMaxDelay(10*time.Microsecond))

	tests := []struct {
		attempt int
		want    time.Duration
	}{
		{0, 1 * time.Microsecond},
		{1, 1 * time.Microsecond},
		{2, 2 * time.Microsecond},
		{3, 4 * time.Microsecond},
		{4, 8 * time.Microsecond},
		{5, 10 * time.Microsecond},
		{5000, 10 * time.Microsecond},
	}

	for _, tt := range tests {
		got := backoff.NextDelay(tt.attempt)
		if got != tt.want {
			t.Errorf("NextDelay(%d) = %v, want %v", tt.attempt, got, tt.want)
		}
	}
}

func TestExponentialBackoff_DefaultMaxDelay(t *testing.T) {
	backoff := NewExponentialBackoff(time.Microsecond)
	assert.Equal(t, time.Millisecond, backoff.NextDelay(64))
}

func TestJitter(t *testing.T) {
	delay := 100 * time.Microsecond

	for i := 0; i < 100; i++ {
		full := FullJitter(delay)
		assert.GreaterOrEqual(t, full, time.Duration(0))
		assert.Less(t, full, delay)

		equal := EqualJitter(delay)
		assert.GreaterOrEqual(t, equal, delay/2)
		assert.Less(t, equal, delay)
	}

	assert.Equal(t, time.Duration(0), FullJitter(0))
	assert.Equal(t, time.Duration(1), EqualJitter(1))
}

func TestFixedBackoffWithJitter(t *testing.T) {
	delay := 50 * time.Microsecond
	backoff := NewFixedBackoff(delay, WithBackoffJitter(FullJitter))

	for i := 1; i <= 20; i++ {
		assert.Less(t, backoff.NextDelay(i), delay)
	}
}
