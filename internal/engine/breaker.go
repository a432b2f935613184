package engine

// breaker.go adapts the teacher's elevator-hardware circuit breaker to a new
// purpose: protecting the RPC boundary from repeated INTERNAL errors. Per
// spec §7, an invariant violation inside the tick pipeline is fatal to the
// step call that raised it — there are no retries inside the engine. The
// breaker's job is purely to stop a client hammering a provably broken
// engine instance with further step calls once INTERNAL errors recur,
// rather than protecting against a flaky hardware operation as in the
// teacher's original use.

import (
	"sync"
	"time"
)

// BreakerState mirrors the teacher's three-state circuit breaker.
type BreakerState int

const (
	BreakerClosed BreakerState = iota
	BreakerOpen
	BreakerHalfOpen
)

// Breaker trips open after maxFailures consecutive INTERNAL errors, and
// half-opens after resetTimeout to test recovery.
type Breaker struct {
	mu           sync.RWMutex
	state        BreakerState
	failureCount int
	successCount int
	nextRetry    time.Time

	maxFailures   int
	resetTimeout  time.Duration
	halfOpenLimit int
}

// NewBreaker constructs a breaker with the given tolerance and recovery
// parameters.
func NewBreaker(maxFailures int, resetTimeout time.Duration, halfOpenLimit int) *Breaker {
	return &Breaker{state: BreakerClosed, maxFailures: maxFailures, resetTimeout: resetTimeout, halfOpenLimit: halfOpenLimit}
}

// Allow reports whether a step call should be let through right now.
func (b *Breaker) Allow() bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case BreakerClosed:
		return true
	case BreakerOpen:
		if time.Now().After(b.nextRetry) {
			b.state = BreakerHalfOpen
			b.successCount = 0
			return true
		}
		return false
	case BreakerHalfOpen:
		return b.successCount < b.halfOpenLimit
	default:
		return false
	}
}

// RecordSuccess resets the failure streak and, in half-open state, may
// close the breaker once enough trial requests succeed.
func (b *Breaker) RecordSuccess() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.failureCount = 0
	if b.state == BreakerHalfOpen {
		b.successCount++
		if b.successCount >= b.halfOpenLimit {
			b.state = BreakerClosed
		}
	}
}

// RecordFailure counts an INTERNAL error toward the trip threshold.
func (b *Breaker) RecordFailure() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.failureCount++
	if b.state == BreakerHalfOpen {
		b.state = BreakerOpen
		b.nextRetry = time.Now().Add(b.resetTimeout)
		return
	}
	if b.failureCount >= b.maxFailures {
		b.state = BreakerOpen
		b.nextRetry = time.Now().Add(b.resetTimeout)
	}
}

// State returns the current breaker state, for health reporting.
func (b *Breaker) State() BreakerState {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.state
}
