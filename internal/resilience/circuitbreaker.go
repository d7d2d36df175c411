// Package resilience provides the circuit breaker that guards the coach
// API. When the gateway fails repeatedly the breaker opens and requests
// fail fast, letting the journal fall back to its local mirror instead
// of stacking timeouts.
package resilience

import (
	"errors"
	"sync"
	"time"
)

// CircuitState is the state of a circuit breaker.
type CircuitState string

const (
	CircuitClosed   CircuitState = "CLOSED"
	CircuitOpen     CircuitState = "OPEN"
	CircuitHalfOpen CircuitState = "HALF_OPEN"
)

// ErrCircuitOpen is returned while the breaker is rejecting requests.
var ErrCircuitOpen = errors.New("circuit breaker is open")

// BreakerConfig holds circuit breaker tuning.
type BreakerConfig struct {
	// FailureThreshold is the number of consecutive failures before the
	// circuit opens.
	FailureThreshold int
	// SuccessThreshold is the number of successes in half-open state
	// required to close the circuit again.
	SuccessThreshold int
	// Cooldown is how long an open circuit waits before letting a probe
	// request through.
	Cooldown time.Duration
}

// DefaultBreakerConfig returns the defaults used for the coach API.
func DefaultBreakerConfig() BreakerConfig {
	return BreakerConfig{
		FailureThreshold: 5,
		SuccessThreshold: 2,
		Cooldown:         30 * time.Second,
	}
}

// Breaker implements the circuit breaker pattern. The caller reports
// outcomes explicitly: only transport-level failures should be counted,
// a negative verdict or a 4xx response is a healthy API answering.
type Breaker struct {
	config BreakerConfig

	mu          sync.Mutex
	state       CircuitState
	failures    int
	successes   int
	lastFailure time.Time
	rejected    int64
}

// NewBreaker creates a closed circuit breaker.
func NewBreaker(config BreakerConfig) *Breaker {
	if config.FailureThreshold <= 0 {
		config.FailureThreshold = DefaultBreakerConfig().FailureThreshold
	}
	if config.SuccessThreshold <= 0 {
		config.SuccessThreshold = DefaultBreakerConfig().SuccessThreshold
	}
	if config.Cooldown <= 0 {
		config.Cooldown = DefaultBreakerConfig().Cooldown
	}
	return &Breaker{config: config, state: CircuitClosed}
}

// Allow reports whether a request may proceed. An open circuit admits a
// single probe once the cooldown has passed.
func (b *Breaker) Allow() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case CircuitOpen:
		if time.Since(b.lastFailure) > b.config.Cooldown {
			b.state = CircuitHalfOpen
			b.successes = 0
			return nil
		}
		b.rejected++
		return ErrCircuitOpen
	default:
		return nil
	}
}

// Success records a successful request.
func (b *Breaker) Success() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.failures = 0
	if b.state == CircuitHalfOpen {
		b.successes++
		if b.successes >= b.config.SuccessThreshold {
			b.state = CircuitClosed
		}
	}
}

// Failure records a failed request. A failure in half-open state reopens
// the circuit immediately.
func (b *Breaker) Failure() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.lastFailure = time.Now()
	switch b.state {
	case CircuitHalfOpen:
		b.state = CircuitOpen
	case CircuitClosed:
		b.failures++
		if b.failures >= b.config.FailureThreshold {
			b.state = CircuitOpen
		}
	}
}

// State returns the current circuit state.
func (b *Breaker) State() CircuitState {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

// Rejected returns how many requests the open circuit has turned away.
func (b *Breaker) Rejected() int64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.rejected
}
