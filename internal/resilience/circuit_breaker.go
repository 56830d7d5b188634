// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package resilience guards calls to external services.
package resilience

import (
	"errors"
	"sync"
	"time"

	"github.com/tuto/meetd/internal/metrics"
)

// State represents the circuit breaker state.
type State string

const (
	StateClosed   State = "closed"
	StateOpen     State = "open"
	StateHalfOpen State = "half-open"
)

var ErrCircuitOpen = errors.New("circuit breaker is open")

type clock interface {
	Now() time.Time
}

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

// CircuitBreaker opens after threshold consecutive failures and lets one
// probe through once resetTimeout has passed.
type CircuitBreaker struct {
	mu           sync.Mutex
	name         string
	state        State
	failures     int
	threshold    int
	resetTimeout time.Duration
	openedAt     time.Time
	probing      bool
	clock        clock
	isFailure    func(error) bool
}

// Option configures a CircuitBreaker.
type Option func(*CircuitBreaker)

func WithClock(c clock) Option {
	return func(cb *CircuitBreaker) { cb.clock = c }
}

// WithFailureFilter decides which errors count against the service. Errors
// it rejects are returned unchanged and count as a success.
func WithFailureFilter(fn func(error) bool) Option {
	return func(cb *CircuitBreaker) { cb.isFailure = fn }
}

// NewCircuitBreaker creates a closed breaker. name labels its metrics.
func NewCircuitBreaker(name string, threshold int, resetTimeout time.Duration, opts ...Option) *CircuitBreaker {
	if threshold <= 0 {
		threshold = 5
	}
	if resetTimeout <= 0 {
		resetTimeout = 30 * time.Second
	}

	cb := &CircuitBreaker{
		name:         name,
		state:        StateClosed,
		threshold:    threshold,
		resetTimeout: resetTimeout,
		clock:        realClock{},
		isFailure:    func(err error) bool { return err != nil },
	}
	for _, opt := range opts {
		opt(cb)
	}

	metrics.SetCircuitBreakerState(cb.name, string(cb.state))
	return cb
}

// Execute runs fn unless the breaker is open.
func (cb *CircuitBreaker) Execute(fn func() error) error {
	if !cb.allowRequest() {
		return ErrCircuitOpen
	}

	err := fn()
	if err != nil && cb.isFailure(err) {
		cb.recordFailure()
		return err
	}
	cb.recordSuccess()
	return err
}

func (cb *CircuitBreaker) allowRequest() bool {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	switch cb.state {
	case StateClosed:
		return true
	case StateOpen:
		if cb.clock.Now().Sub(cb.openedAt) < cb.resetTimeout {
			return false
		}
		cb.transitionTo(StateHalfOpen)
		cb.probing = true
		return true
	default:
		// One probe at a time while half-open.
		if cb.probing {
			return false
		}
		cb.probing = true
		return true
	}
}

func (cb *CircuitBreaker) recordFailure() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	cb.failures++
	switch {
	case cb.state == StateHalfOpen:
		metrics.RecordCircuitBreakerTrip(cb.name, "half_open_failure")
		cb.transitionTo(StateOpen)
	case cb.state == StateClosed && cb.failures >= cb.threshold:
		metrics.RecordCircuitBreakerTrip(cb.name, "threshold_exceeded")
		cb.transitionTo(StateOpen)
	}
}

func (cb *CircuitBreaker) recordSuccess() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	cb.failures = 0
	cb.transitionTo(StateClosed)
}

// transitionTo requires cb.mu.
func (cb *CircuitBreaker) transitionTo(newState State) {
	cb.probing = false
	if cb.state == newState {
		return
	}
	cb.state = newState
	if newState == StateOpen {
		cb.openedAt = cb.clock.Now()
	}
	metrics.SetCircuitBreakerState(cb.name, string(newState))
}

// State returns the current state.
func (cb *CircuitBreaker) State() State {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.state
}
