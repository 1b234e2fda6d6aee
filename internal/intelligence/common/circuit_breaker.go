package common

import (
	"context"
	"errors"
	"sync/atomic"
	"time"
)

var ErrCircuitOpen = errors.New("circuit breaker is open")

// CircuitState is the state of a CircuitBreaker.
type CircuitState int32

const (
	CircuitClosed CircuitState = iota
	CircuitOpen
	CircuitHalfOpen
)

func (s CircuitState) String() string {
	switch s {
	case CircuitClosed:
		return "closed"
	case CircuitOpen:
		return "open"
	case CircuitHalfOpen:
		return "half_open"
	default:
		return "unknown"
	}
}

// CircuitBreaker trips after Threshold consecutive failures and lets a single
// probe through once ResetAfter has elapsed. A zero threshold disables it.
type CircuitBreaker struct {
	name       string
	threshold  int32
	resetAfter time.Duration
	logger     Logger
	metrics    IntelligenceMetrics

	state            atomic.Int32
	consecutiveFails atomic.Int32
	openedAt         atomic.Int64
	probes           atomic.Int32
}

func NewCircuitBreaker(name string, threshold int, resetAfter time.Duration, logger Logger, metrics IntelligenceMetrics) *CircuitBreaker {
	if logger == nil {
		logger = NewNoopLogger()
	}
	if metrics == nil {
		metrics = NewNoopIntelligenceMetrics()
	}
	return &CircuitBreaker{
		name:       name,
		threshold:  int32(threshold),
		resetAfter: resetAfter,
		logger:     logger,
		metrics:    metrics,
	}
}

func (cb *CircuitBreaker) disabled() bool { return cb == nil || cb.threshold <= 0 }

// State reports the current state.
func (cb *CircuitBreaker) State() CircuitState {
	if cb == nil {
		return CircuitClosed
	}
	return CircuitState(cb.state.Load())
}

// Allow reports whether a call may proceed.
func (cb *CircuitBreaker) Allow() bool {
	if cb.disabled() {
		return true
	}
	switch CircuitState(cb.state.Load()) {
	case CircuitClosed:
		return true
	case CircuitOpen:
		if time.Since(time.Unix(0, cb.openedAt.Load())) < cb.resetAfter {
			return false
		}
		if cb.state.CompareAndSwap(int32(CircuitOpen), int32(CircuitHalfOpen)) {
			cb.probes.Store(1)
			cb.transition(CircuitOpen, CircuitHalfOpen)
		}
		return cb.probes.Add(-1) >= 0
	case CircuitHalfOpen:
		return cb.probes.Add(-1) >= 0
	}
	return false
}

func (cb *CircuitBreaker) RecordSuccess() {
	if cb.disabled() {
		return
	}
	cb.consecutiveFails.Store(0)
	if cb.state.CompareAndSwap(int32(CircuitHalfOpen), int32(CircuitClosed)) {
		cb.transition(CircuitHalfOpen, CircuitClosed)
	}
}

func (cb *CircuitBreaker) RecordFailure() {
	if cb.disabled() {
		return
	}
	fails := cb.consecutiveFails.Add(1)
	switch CircuitState(cb.state.Load()) {
	case CircuitClosed:
		if fails >= cb.threshold && cb.state.CompareAndSwap(int32(CircuitClosed), int32(CircuitOpen)) {
			cb.openedAt.Store(time.Now().UnixNano())
			cb.transition(CircuitClosed, CircuitOpen)
		}
	case CircuitHalfOpen:
		if cb.state.CompareAndSwap(int32(CircuitHalfOpen), int32(CircuitOpen)) {
			cb.openedAt.Store(time.Now().UnixNano())
			cb.transition(CircuitHalfOpen, CircuitOpen)
		}
	}
}

func (cb *CircuitBreaker) transition(from, to CircuitState) {
	cb.logger.Info("circuit breaker state change", "breaker", cb.name, "from", from.String(), "to", to.String())
	cb.metrics.RecordCircuitBreakerStateChange(context.Background(), cb.name, from.String(), to.String())
}

//Personal.AI order the ending
