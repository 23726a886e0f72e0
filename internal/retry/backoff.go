// Package retry implements the deterministic exponential backoff used
// by the reconnect supervisor.
package retry

import (
	"sync"
	"time"
)

// MinInitialDelay is the smallest initial delay a Backoff accepts.
// Anything lower would hammer an unreachable peer.
const MinInitialDelay = 200 * time.Millisecond

// Next returns the delay to use after a failed attempt: the current
// delay doubled, capped at max.  No jitter is applied.
func Next(delay, max time.Duration) time.Duration {
	if delay <= 0 {
		return max
	}
	if delay > max/2 {
		return max
	}
	return delay * 2
}

// ── Backoff ──────────────────────────────────────────────────────────

// Backoff tracks the current retry delay between InitialDelay and
// MaxDelay.  It is safe for concurrent use: the supervisor advances it
// while callers may reconfigure the bounds.
type Backoff struct {
	mu      sync.Mutex
	initial time.Duration
	max     time.Duration
	current time.Duration
}

// NewBackoff returns a Backoff starting at initial.  initial is floored
// to [MinInitialDelay] and max is floored to initial.
func NewBackoff(initial, max time.Duration) *Backoff {
	b := &Backoff{}
	b.Configure(initial, max)
	return b
}

// Configure replaces both bounds and resets the current delay.
func (b *Backoff) Configure(initial, max time.Duration) {
	initial, max = Normalize(initial, max)

	b.mu.Lock()
	defer b.mu.Unlock()
	b.initial = initial
	b.max = max
	b.current = initial
}

// Normalize applies the delay floors: initial ≥ MinInitialDelay and
// max ≥ initial.
func Normalize(initial, max time.Duration) (time.Duration, time.Duration) {
	if initial < MinInitialDelay {
		initial = MinInitialDelay
	}
	if max < initial {
		max = initial
	}
	return initial, max
}

// Current returns the delay the next attempt should wait.
func (b *Backoff) Current() time.Duration {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.current
}

// Fail records a failed attempt and returns the new current delay.
func (b *Backoff) Fail() time.Duration {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.current = Next(b.current, b.max)
	return b.current
}

// Reset puts the delay back to the initial value.  Call it after every
// successful connection.
func (b *Backoff) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.current = b.initial
}

// Bounds returns the configured initial and max delays.
func (b *Backoff) Bounds() (initial, max time.Duration) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.initial, b.max
}
