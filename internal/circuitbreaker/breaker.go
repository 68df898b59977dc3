// Package circuitbreaker fails calls fast after a run of consecutive
// failures against the same key.
package circuitbreaker

import (
	"errors"
	"sync"
	"time"
)

var ErrCircuitOpen = errors.New("circuit breaker is open")

type state int

const (
	stateClosed state = iota
	stateOpen
	stateHalfOpen
)

func (s state) String() string {
	switch s {
	case stateOpen:
		return "open"
	case stateHalfOpen:
		return "half_open"
	default:
		return "closed"
	}
}

type keyState struct {
	state               state
	consecutiveFailures int
	openedAt            time.Time
}

// StateChangeFunc is called outside the breaker's lock after every transition.
type StateChangeFunc func(key, state string)

type CircuitBreaker struct {
	mu        sync.Mutex
	states    map[string]*keyState
	threshold int
	cooldown  time.Duration
	now       func() time.Time
	onChange  StateChangeFunc
}

func New(threshold int, cooldown time.Duration) *CircuitBreaker {
	return &CircuitBreaker{
		states:    make(map[string]*keyState),
		threshold: threshold,
		cooldown:  cooldown,
		now:       time.Now,
	}
}

// WithClock replaces time.Now; tests drive cooldowns with a fake clock.
func (cb *CircuitBreaker) WithClock(now func() time.Time) *CircuitBreaker {
	cb.now = now
	return cb
}

func (cb *CircuitBreaker) OnStateChange(fn StateChangeFunc) *CircuitBreaker {
	cb.onChange = fn
	return cb
}

// Allow returns ErrCircuitOpen while key is open. Once the cooldown has
// elapsed a single probe is let through; further calls fail until the probe
// is recorded.
func (cb *CircuitBreaker) Allow(key string) error {
	cb.mu.Lock()
	s, ok := cb.states[key]
	if !ok {
		cb.mu.Unlock()
		return nil
	}

	var err error
	changed := false
	switch s.state {
	case stateOpen:
		if cb.now().Sub(s.openedAt) >= cb.cooldown {
			s.state = stateHalfOpen
			changed = true
		} else {
			err = ErrCircuitOpen
		}
	case stateHalfOpen:
		err = ErrCircuitOpen
	}
	cb.mu.Unlock()

	if changed {
		cb.notify(key, stateHalfOpen)
	}
	return err
}

func (cb *CircuitBreaker) RecordSuccess(key string) {
	cb.mu.Lock()
	s, ok := cb.states[key]
	if !ok {
		cb.mu.Unlock()
		return
	}
	changed := s.state != stateClosed
	s.state = stateClosed
	s.consecutiveFailures = 0
	cb.mu.Unlock()

	if changed {
		cb.notify(key, stateClosed)
	}
}

func (cb *CircuitBreaker) RecordFailure(key string) {
	cb.mu.Lock()
	s, ok := cb.states[key]
	if !ok {
		s = &keyState{}
		cb.states[key] = s
	}

	s.consecutiveFailures++
	changed := false
	if s.consecutiveFailures >= cb.threshold || s.state == stateHalfOpen {
		changed = s.state != stateOpen
		s.state = stateOpen
		s.openedAt = cb.now()
	}
	cb.mu.Unlock()

	if changed {
		cb.notify(key, stateOpen)
	}
}

// State reports the current state name of key.
func (cb *CircuitBreaker) State(key string) string {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	if s, ok := cb.states[key]; ok {
		return s.state.String()
	}
	return stateClosed.String()
}

func (cb *CircuitBreaker) notify(key string, s state) {
	if cb.onChange != nil {
		cb.onChange(key, s.String())
	}
}
