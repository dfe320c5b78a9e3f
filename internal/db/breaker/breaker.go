// Package breaker provides the circuit breaker shared by the database
// clients. After a run of failures the circuit opens and calls fail
// fast until a cooldown elapses; a single probe then decides whether
// to close it again.
package breaker

import (
	"errors"
	"sync"
	"time"
)

// ErrOpen is returned when the circuit is open and a call was rejected
// without reaching the backend.
var ErrOpen = errors.New("circuit breaker is open")

// State is the circuit's current mode.
type State int

const (
	// Closed allows all operations.
	Closed State = iota
	// Open fails operations fast.
	Open
	// HalfOpen allows probe operations to test recovery.
	HalfOpen
)

// Breaker is a failure-counting circuit breaker. Safe for concurrent use.
type Breaker struct {
	mu               sync.Mutex
	failureThreshold uint
	failureCount     uint
	resetTimeout     time.Duration
	lastFailure      time.Time
	state            State
}

// New creates a breaker that opens after threshold consecutive
// failures and probes again after resetTimeout.
func New(threshold uint, resetTimeout time.Duration) *Breaker {
	return &Breaker{
		failureThreshold: threshold,
		resetTimeout:     resetTimeout,
		state:            Closed,
	}
}

// Allow reports whether an operation may proceed, transitioning an
// expired Open circuit to HalfOpen.
func (b *Breaker) Allow() bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case Closed, HalfOpen:
		return true
	default:
		if time.Since(b.lastFailure) > b.resetTimeout {
			b.state = HalfOpen
			return true
		}
		return false
	}
}

// Success records a successful operation and closes the circuit.
func (b *Breaker) Success() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.failureCount = 0
	b.state = Closed
}

// Failure records a failed operation, opening the circuit when the
// threshold is reached or when a half-open probe fails.
func (b *Breaker) Failure() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.lastFailure = time.Now()
	if b.state == HalfOpen {
		b.state = Open
		return
	}
	b.failureCount++
	if b.failureCount >= b.failureThreshold {
		b.state = Open
	}
}

// State returns the current state.
func (b *Breaker) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

// Do runs op under the breaker: rejected with ErrOpen when the circuit
// is open, otherwise executed with the outcome recorded.
func (b *Breaker) Do(op func() error) error {
	if !b.Allow() {
		return ErrOpen
	}
	if err := op(); err != nil {
		b.Failure()
		return err
	}
	b.Success()
	return nil
}
