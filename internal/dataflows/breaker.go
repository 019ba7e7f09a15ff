package dataflows

import (
	"sync"
	"time"
)

type breakerState int

const (
	breakerClosed breakerState = iota
	breakerOpen
	breakerHalfOpen
)

// CircuitBreaker fails fast after repeated consecutive failures within
// a window, then probes recovery with a single call after a cool-down.
type CircuitBreaker struct {
	mu sync.Mutex

	maxFailures int
	window      time.Duration
	coolDown    time.Duration

	state        breakerState
	failures     int
	firstFailure time.Time
	openedAt     time.Time
	probing      bool
}

// NewCircuitBreaker opens after maxFailures consecutive failures inside
// window and half-opens after coolDown.
func NewCircuitBreaker(maxFailures int, window, coolDown time.Duration) *CircuitBreaker {
	if maxFailures < 1 {
		maxFailures = 1
	}
	return &CircuitBreaker{
		maxFailures: maxFailures,
		window:      window,
		coolDown:    coolDown,
	}
}

// Call runs fn under breaker control. While open it returns
// ErrBreakerOpen without invoking fn; half-open admits one probe.
func (cb *CircuitBreaker) Call(fn func() error) error {
	if err := cb.admit(); err != nil {
		return err
	}
	err := fn()
	cb.record(err)
	return err
}

func (cb *CircuitBreaker) admit() error {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	switch cb.state {
	case breakerOpen:
		if time.Since(cb.openedAt) < cb.coolDown {
			return ErrBreakerOpen
		}
		cb.state = breakerHalfOpen
		cb.probing = false
		fallthrough
	case breakerHalfOpen:
		if cb.probing {
			return ErrBreakerOpen
		}
		cb.probing = true
	}
	return nil
}

func (cb *CircuitBreaker) record(err error) {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	if err == nil {
		cb.state = breakerClosed
		cb.failures = 0
		cb.probing = false
		return
	}

	now := time.Now()
	if cb.state == breakerHalfOpen {
		// Probe failed, back to open.
		cb.state = breakerOpen
		cb.openedAt = now
		cb.probing = false
		return
	}

	if cb.failures == 0 || now.Sub(cb.firstFailure) > cb.window {
		cb.failures = 0
		cb.firstFailure = now
	}
	cb.failures++
	if cb.failures >= cb.maxFailures {
		cb.state = breakerOpen
		cb.openedAt = now
	}
}

// Open reports whether the breaker is currently refusing calls.
func (cb *CircuitBreaker) Open() bool {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.state == breakerOpen && time.Since(cb.openedAt) < cb.coolDown
}
