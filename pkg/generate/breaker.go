package generate

import (
	"sync"
	"time"
)

const (
	circuitClosed   = 0
	circuitOpen     = 1
	circuitHalfOpen = 2

	breakerThreshold = 5
	breakerTimeout   = 30 * time.Second
)

// circuitBreaker guards one provider. After breakerThreshold consecutive
// failures the breaker opens for breakerTimeout, then lets a single probe
// through (half-open) before closing again on success.
type circuitBreaker struct {
	mu          sync.Mutex
	failures    int
	threshold   int
	timeout     time.Duration
	lastFailure time.Time
	state       int // 0=closed, 1=open, 2=half-open
}

func newCircuitBreaker() *circuitBreaker {
	return &circuitBreaker{
		threshold: breakerThreshold,
		timeout:   breakerTimeout,
	}
}

// Allow checks if requests should be allowed through
func (cb *circuitBreaker) Allow() bool {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	switch cb.state {
	case circuitClosed:
		return true
	case circuitOpen:
		// Check if timeout has passed to transition to half-open
		if time.Since(cb.lastFailure) > cb.timeout {
			cb.state = circuitHalfOpen
			return true
		}
		return false
	case circuitHalfOpen:
		return true
	default:
		return false
	}
}

// RecordSuccess records a successful request
func (cb *circuitBreaker) RecordSuccess() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	cb.failures = 0
	cb.state = circuitClosed
}

// RecordFailure records a failed request
func (cb *circuitBreaker) RecordFailure() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	cb.failures++
	cb.lastFailure = time.Now()

	if cb.failures >= cb.threshold {
		cb.state = circuitOpen
	}
}
