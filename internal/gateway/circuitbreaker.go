package gateway

import (
	"sync"
	"time"
)

// BreakerState represents the state of one connector's circuit.
type BreakerState int

const (
	BreakerClosed BreakerState = iota
	BreakerOpen
	BreakerHalfOpen
)

const (
	defaultFailureThreshold         = 5
	defaultOpenStateTimeout         = 30 * time.Second
	defaultHalfOpenSuccessThreshold = 2
)

type connectorState struct {
	state                BreakerState
	consecutiveFailures  int
	consecutiveSuccesses int
	openUntil            time.Time
}

// CircuitBreaker gates Direct-path dispatch per connector: transport-level
// faults and 5xx responses count as failures, declines do not. In-memory,
// per process.
type CircuitBreaker struct {
	mu                       sync.Mutex
	connectors               map[string]*connectorState
	failureThreshold         int
	openStateTimeout         time.Duration
	halfOpenSuccessThreshold int
}

// NewCircuitBreaker creates a breaker with default thresholds.
func NewCircuitBreaker() *CircuitBreaker {
	return NewCircuitBreakerWithSettings(defaultFailureThreshold, defaultOpenStateTimeout, defaultHalfOpenSuccessThreshold)
}

// NewCircuitBreakerWithSettings creates a breaker with custom thresholds.
func NewCircuitBreakerWithSettings(failThreshold int, openTimeout time.Duration, halfOpenSuccess int) *CircuitBreaker {
	return &CircuitBreaker{
		connectors:               make(map[string]*connectorState),
		failureThreshold:         failThreshold,
		openStateTimeout:         openTimeout,
		halfOpenSuccessThreshold: halfOpenSuccess,
	}
}

func (cb *CircuitBreaker) getState(connectorName string) *connectorState {
	cs, exists := cb.connectors[connectorName]
	if !exists {
		cs = &connectorState{state: BreakerClosed}
		cb.connectors[connectorName] = cs
	}
	return cs
}

// IsHealthy reports whether Direct calls are allowed for the connector.
// An expired Open circuit transitions to HalfOpen here.
func (cb *CircuitBreaker) IsHealthy(connectorName string) bool {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	cs := cb.getState(connectorName)
	switch cs.state {
	case BreakerClosed:
		return true
	case BreakerOpen:
		if time.Now().After(cs.openUntil) {
			cs.state = BreakerHalfOpen
			cs.consecutiveSuccesses = 0
			return true
		}
		return false
	case BreakerHalfOpen:
		return true
	default:
		cs.state = BreakerClosed
		return true
	}
}

// RecordFailure counts a transport fault or 5xx against the connector.
func (cb *CircuitBreaker) RecordFailure(connectorName string) {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	cs := cb.getState(connectorName)
	switch cs.state {
	case BreakerClosed:
		cs.consecutiveFailures++
		if cs.consecutiveFailures >= cb.failureThreshold {
			cs.state = BreakerOpen
			cs.openUntil = time.Now().Add(cb.openStateTimeout)
		}
	case BreakerHalfOpen:
		// A probe failed; re-open immediately.
		cs.state = BreakerOpen
		cs.openUntil = time.Now().Add(cb.openStateTimeout)
		cs.consecutiveFailures = 0
		cs.consecutiveSuccesses = 0
	case BreakerOpen:
	}
}

// RecordSuccess counts a healthy response for the connector.
func (cb *CircuitBreaker) RecordSuccess(connectorName string) {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	cs := cb.getState(connectorName)
	switch cs.state {
	case BreakerClosed:
		cs.consecutiveFailures = 0
	case BreakerHalfOpen:
		cs.consecutiveSuccesses++
		if cs.consecutiveSuccesses >= cb.halfOpenSuccessThreshold {
			cs.state = BreakerClosed
			cs.consecutiveFailures = 0
			cs.consecutiveSuccesses = 0
		}
	case BreakerOpen:
	}
}

// State returns the connector's circuit state without transitioning it.
func (cb *CircuitBreaker) State(connectorName string) BreakerState {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	cs, exists := cb.connectors[connectorName]
	if !exists {
		return BreakerClosed
	}
	return cs.state
}
