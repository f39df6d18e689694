// Package resilience keeps remote provider outages from stalling the lyrics
// pipeline.
//
// [CircuitBreaker] stops calling a provider after repeated failures and
// probes it again after a cool-down. [FallbackGroup] chains several providers
// of the same kind, each behind its own breaker. [STTFallback] and
// [LyricsFallback] expose those groups as ordinary providers.
//
// All types are safe for concurrent use.
package resilience

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"
)

// ErrCircuitOpen is returned without calling the provider while its breaker
// is open.
var ErrCircuitOpen = errors.New("resilience: circuit breaker is open")

// State is the operating mode of a [CircuitBreaker].
type State int

const (
	// StateClosed forwards every call.
	StateClosed State = iota

	// StateOpen rejects calls with [ErrCircuitOpen] until the reset timeout
	// elapses.
	StateOpen

	// StateHalfOpen lets a limited number of probe calls through.
	StateHalfOpen
)

func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

// Breaker defaults.
const (
	DefaultMaxFailures  = 5
	DefaultResetTimeout = 30 * time.Second
	DefaultHalfOpenMax  = 3
)

// CircuitBreakerConfig tunes a [CircuitBreaker]. Zero values take the
// package defaults.
type CircuitBreakerConfig struct {
	// Name labels log lines.
	Name string

	// MaxFailures is the number of consecutive failures that opens the
	// breaker.
	MaxFailures int

	// ResetTimeout is how long the breaker stays open before probing.
	ResetTimeout time.Duration

	// HalfOpenMax is the number of successful probes needed to close again.
	HalfOpenMax int

	// IsFailure decides whether an error counts against the provider.
	// Defaults to [CountsAsFailure].
	IsFailure func(error) bool

	// OnStateChange, when set, is called with the mutex released after every
	// transition.
	OnStateChange func(name string, from, to State)

	// now is replaced in tests.
	now func() time.Time
}

// CountsAsFailure reports whether err reflects on the provider's health.
// Caller cancellation does not.
func CountsAsFailure(err error) bool {
	return err != nil && !errors.Is(err, context.Canceled)
}

// CircuitBreaker implements the closed, open and half-open breaker.
type CircuitBreaker struct {
	cfg CircuitBreakerConfig

	mu              sync.Mutex
	state           State
	consecutiveFail int
	openedAt        time.Time
	halfOpenCalls   int
	halfOpenOK      int
}

// NewCircuitBreaker returns a closed breaker.
func NewCircuitBreaker(cfg CircuitBreakerConfig) *CircuitBreaker {
	if cfg.MaxFailures <= 0 {
		cfg.MaxFailures = DefaultMaxFailures
	}
	if cfg.ResetTimeout <= 0 {
		cfg.ResetTimeout = DefaultResetTimeout
	}
	if cfg.HalfOpenMax <= 0 {
		cfg.HalfOpenMax = DefaultHalfOpenMax
	}
	if cfg.IsFailure == nil {
		cfg.IsFailure = CountsAsFailure
	}
	if cfg.now == nil {
		cfg.now = time.Now
	}
	return &CircuitBreaker{cfg: cfg}
}

// Name returns the configured label.
func (cb *CircuitBreaker) Name() string { return cb.cfg.Name }

// transition is one state change, reported to OnStateChange after mu is
// released.
type transition struct{ from, to State }

// Execute runs fn unless the breaker is open or its half-open probe budget
// is used up, in which case it returns [ErrCircuitOpen].
func (cb *CircuitBreaker) Execute(fn func() error) error {
	cb.mu.Lock()
	var changes []transition
	if cb.state == StateOpen && cb.cfg.now().Sub(cb.openedAt) >= cb.cfg.ResetTimeout {
		changes = append(changes, cb.setState(StateHalfOpen))
		cb.halfOpenCalls, cb.halfOpenOK = 0, 0
	}
	if cb.state == StateOpen || (cb.state == StateHalfOpen && cb.halfOpenCalls >= cb.cfg.HalfOpenMax) {
		cb.mu.Unlock()
		cb.notify(changes)
		return ErrCircuitOpen
	}
	probe := cb.state == StateHalfOpen
	if probe {
		cb.halfOpenCalls++
	}
	cb.mu.Unlock()
	cb.notify(changes)

	err := fn()

	cb.mu.Lock()
	changes = changes[:0]
	if cb.cfg.IsFailure(err) {
		changes = cb.recordFailure(probe, changes)
	} else {
		changes = cb.recordSuccess(probe, changes)
	}
	cb.mu.Unlock()
	cb.notify(changes)
	return err
}

// setState must be called with mu held.
func (cb *CircuitBreaker) setState(to State) transition {
	t := transition{from: cb.state, to: to}
	cb.state = to
	switch to {
	case StateOpen:
		cb.openedAt = cb.cfg.now()
		slog.Warn("circuit breaker opened", "name", cb.cfg.Name, "from", t.from, "consecutive_failures", cb.consecutiveFail)
	case StateHalfOpen:
		slog.Info("circuit breaker half-open", "name", cb.cfg.Name)
	case StateClosed:
		slog.Info("circuit breaker closed", "name", cb.cfg.Name)
	}
	return t
}

func (cb *CircuitBreaker) recordFailure(probe bool, changes []transition) []transition {
	cb.consecutiveFail++
	if cb.state == StateOpen {
		return changes
	}
	if probe || cb.consecutiveFail >= cb.cfg.MaxFailures {
		changes = append(changes, cb.setState(StateOpen))
	}
	return changes
}

func (cb *CircuitBreaker) recordSuccess(probe bool, changes []transition) []transition {
	if !probe {
		cb.consecutiveFail = 0
		return changes
	}
	cb.halfOpenOK++
	if cb.state == StateHalfOpen && cb.halfOpenOK >= cb.cfg.HalfOpenMax {
		cb.consecutiveFail = 0
		changes = append(changes, cb.setState(StateClosed))
	}
	return changes
}

func (cb *CircuitBreaker) notify(changes []transition) {
	if cb.cfg.OnStateChange == nil {
		return
	}
	for _, t := range changes {
		cb.cfg.OnStateChange(cb.cfg.Name, t.from, t.to)
	}
}

// State returns the current state. An open breaker whose reset timeout has
// elapsed reports [StateHalfOpen]; the transition itself happens on the next
// Execute.
func (cb *CircuitBreaker) State() State {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	if cb.state == StateOpen && cb.cfg.now().Sub(cb.openedAt) >= cb.cfg.ResetTimeout {
		return StateHalfOpen
	}
	return cb.state
}

// Reset forces the breaker closed and clears all counters.
func (cb *CircuitBreaker) Reset() {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	cb.state = StateClosed
	cb.consecutiveFail, cb.halfOpenCalls, cb.halfOpenOK = 0, 0, 0
	slog.Info("circuit breaker manually reset", "name", cb.cfg.Name)
}
