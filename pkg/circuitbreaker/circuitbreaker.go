// Package circuitbreaker pauses calls to a roster or snapshot source that
// keeps failing. Once a source trips, callers get ErrCircuitOpen straight
// away (and the roster loader falls back to its next source) until the
// cooldown passes and a single trial call gets through.
package circuitbreaker

import (
	"context"
	"errors"
	"sync"
	"time"
)

// State is where a breaker stands with its source.
type State int

const (
	// StateClosed passes every call to the source.
	StateClosed State = iota
	// StateOpen rejects calls until the cooldown passes.
	StateOpen
	// StateHalfOpen lets one trial call through.
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

var (
	// ErrCircuitOpen is returned without calling the source while it is paused.
	ErrCircuitOpen = errors.New("source paused after repeated failures")
	// ErrTrialInFlight is returned while another caller runs the trial call.
	ErrTrialInFlight = errors.New("source trial call already in flight")
)

// Transition describes one state change, for logging.
type Transition struct {
	Source string
	From   State
	To     State

	// Failures is the consecutive failure count that led here.
	Failures int
	// Cause is the last source error, nil when closing.
	Cause error
	// RetryAt is when an open breaker will allow its trial call.
	RetryAt time.Time
}

// Config holds breaker settings. Zero values fall back to the defaults in New.
type Config struct {
	// TripAfter consecutive failures open the breaker.
	TripAfter int
	// RecoverAfter consecutive trial successes close it again.
	RecoverAfter int
	// Cooldown is how long the breaker stays open.
	Cooldown time.Duration

	OnTransition func(Transition)
	Now          func() time.Time
}

// Option adjusts a Config.
type Option func(*Config)

// WithTripAfter sets how many consecutive failures open the breaker.
func WithTripAfter(n int) Option {
	return func(c *Config) {
		if n > 0 {
			c.TripAfter = n
		}
	}
}

// WithRecoverAfter sets how many trial successes close the breaker.
func WithRecoverAfter(n int) Option {
	return func(c *Config) {
		if n > 0 {
			c.RecoverAfter = n
		}
	}
}

// WithCooldown sets how long the breaker stays open.
func WithCooldown(d time.Duration) Option {
	return func(c *Config) {
		if d > 0 {
			c.Cooldown = d
		}
	}
}

// WithOnTransition reports every state change.
func WithOnTransition(fn func(Transition)) Option {
	return func(c *Config) {
		c.OnTransition = fn
	}
}

// WithNow replaces the clock used for the cooldown.
func WithNow(fn func() time.Time) Option {
	return func(c *Config) {
		if fn != nil {
			c.Now = fn
		}
	}
}

// CircuitBreaker guards one named source.
type CircuitBreaker struct {
	source string
	config Config

	mu        sync.Mutex
	state     State
	failures  int
	successes int
	lastErr   error
	openedAt  time.Time
	trialBusy bool
}

// New creates a closed breaker for source.
func New(source string, opts ...Option) *CircuitBreaker {
	config := Config{
		TripAfter:    5,
		RecoverAfter: 1,
		Cooldown:     30 * time.Second,
		Now:          time.Now,
	}
	for _, opt := range opts {
		opt(&config)
	}
	return &CircuitBreaker{source: source, config: config}
}

// Execute calls fn unless the source is paused, and records the outcome.
func (cb *CircuitBreaker) Execute(ctx context.Context, fn func(context.Context) error) error {
	if err := cb.admit(); err != nil {
		return err
	}
	err := fn(ctx)
	cb.record(err)
	return err
}

func (cb *CircuitBreaker) admit() error {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	switch cb.state {
	case StateOpen:
		if cb.config.Now().Before(cb.retryAt()) {
			return ErrCircuitOpen
		}
		cb.moveTo(StateHalfOpen)
		cb.trialBusy = true
	case StateHalfOpen:
		if cb.trialBusy {
			return ErrTrialInFlight
		}
		cb.trialBusy = true
	}
	return nil
}

func (cb *CircuitBreaker) record(err error) {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	cb.trialBusy = false
	if err != nil {
		cb.failures++
		cb.successes = 0
		cb.lastErr = err
		if cb.state == StateHalfOpen || cb.failures >= cb.config.TripAfter {
			cb.openedAt = cb.config.Now()
			cb.moveTo(StateOpen)
		}
		return
	}

	cb.failures = 0
	cb.successes++
	if cb.state == StateHalfOpen && cb.successes >= cb.config.RecoverAfter {
		cb.lastErr = nil
		cb.moveTo(StateClosed)
	}
}

// moveTo switches state and reports the change. Callers hold mu.
func (cb *CircuitBreaker) moveTo(to State) {
	if cb.state == to {
		return
	}
	t := Transition{
		Source:   cb.source,
		From:     cb.state,
		To:       to,
		Failures: cb.failures,
		Cause:    cb.lastErr,
	}
	if to == StateOpen {
		t.RetryAt = cb.retryAt()
	}

	cb.state = to
	if to != StateHalfOpen {
		cb.failures = 0
		cb.successes = 0
	}

	if cb.config.OnTransition != nil {
		cb.config.OnTransition(t)
	}
}

func (cb *CircuitBreaker) retryAt() time.Time {
	return cb.openedAt.Add(cb.config.Cooldown)
}

// State returns the current state.
func (cb *CircuitBreaker) State() State {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.state
}

// Name returns the guarded source's name.
func (cb *CircuitBreaker) Name() string {
	return cb.source
}

// ─────────────────────────────────────────────────────────────────────────────
// Presets
// ─────────────────────────────────────────────────────────────────────────────

// RosterSourceBreaker guards the remote roster download. The roster changes a
// few times a year, so three failed downloads pause it for two minutes.
func RosterSourceBreaker(onTransition func(Transition)) *CircuitBreaker {
	return New("roster-http",
		WithTripAfter(3),
		WithCooldown(2*time.Minute),
		WithOnTransition(onTransition),
	)
}

// DatabaseBreaker guards roster and snapshot reads from PostgreSQL.
func DatabaseBreaker(onTransition func(Transition)) *CircuitBreaker {
	return New("database",
		WithTripAfter(3),
		WithCooldown(10*time.Second),
		WithOnTransition(onTransition),
	)
}
