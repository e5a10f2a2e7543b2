package resilience

import (
	"context"
	"sync"
	"time"
)

// State represents the circuit breaker state.
type State int

const (
	// StateClosed means calls flow normally.
	StateClosed State = iota
	// StateOpen means calls are rejected without reaching the upstream.
	StateOpen
	// StateHalfOpen means a probe call is allowed through.
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

// CircuitBreakerConfig configures the circuit breaker.
type CircuitBreakerConfig struct {
	// MaxFailures is the number of consecutive failures that open the circuit.
	// Default: 5
	MaxFailures int

	// ResetTimeout is how long the circuit stays open before probing.
	// Default: 30 seconds
	ResetTimeout time.Duration

	// HalfOpenMaxRequests is the number of concurrent probes.
	// Default: 1
	HalfOpenMaxRequests int

	// OnStateChange is called after a transition, outside the breaker lock.
	OnStateChange func(from, to State)

	// IsFailure decides whether an error counts against the circuit.
	// Default: all non-nil errors.
	IsFailure func(err error) bool

	// Now is the time source. Default: time.Now.
	Now func() time.Time
}

// CircuitBreaker stops calling an upstream that keeps failing.
type CircuitBreaker struct {
	config CircuitBreakerConfig

	mu            sync.Mutex
	state         State
	failures      int
	openedAt      time.Time
	lastFailure   time.Time
	halfOpenCount int
}

type transition struct{ from, to State }

// NewCircuitBreaker creates a closed circuit breaker.
func NewCircuitBreaker(config CircuitBreakerConfig) *CircuitBreaker {
	if config.MaxFailures <= 0 {
		config.MaxFailures = 5
	}
	if config.ResetTimeout <= 0 {
		config.ResetTimeout = 30 * time.Second
	}
	if config.HalfOpenMaxRequests <= 0 {
		config.HalfOpenMaxRequests = 1
	}
	if config.IsFailure == nil {
		config.IsFailure = func(err error) bool { return err != nil }
	}
	if config.Now == nil {
		config.Now = time.Now
	}
	return &CircuitBreaker{config: config, state: StateClosed}
}

// Execute runs op unless the circuit is open.
func (cb *CircuitBreaker) Execute(ctx context.Context, op func(context.Context) error) error {
	if err := cb.beforeRequest(); err != nil {
		return err
	}
	err := op(ctx)
	cb.afterRequest(err)
	return err
}

// State returns the current circuit state.
func (cb *CircuitBreaker) State() State {
	cb.mu.Lock()
	state, changes := cb.advanceLocked()
	cb.mu.Unlock()
	cb.notify(changes)
	return state
}

// Reset closes the circuit and clears counters.
func (cb *CircuitBreaker) Reset() {
	cb.mu.Lock()
	var changes []transition
	if cb.state != StateClosed {
		changes = append(changes, transition{cb.state, StateClosed})
	}
	cb.state = StateClosed
	cb.failures = 0
	cb.halfOpenCount = 0
	cb.mu.Unlock()
	cb.notify(changes)
}

func (cb *CircuitBreaker) beforeRequest() error {
	cb.mu.Lock()
	state, changes := cb.advanceLocked()
	var err error
	switch state {
	case StateOpen:
		err = ErrCircuitOpen
	case StateHalfOpen:
		if cb.halfOpenCount >= cb.config.HalfOpenMaxRequests {
			err = ErrCircuitOpen
		} else {
			cb.halfOpenCount++
		}
	}
	cb.mu.Unlock()
	cb.notify(changes)
	return err
}

func (cb *CircuitBreaker) afterRequest(err error) {
	failed := cb.config.IsFailure(err)

	cb.mu.Lock()
	from := cb.state
	now := cb.config.Now()
	switch cb.state {
	case StateClosed:
		if failed {
			cb.failures++
			cb.lastFailure = now
			if cb.failures >= cb.config.MaxFailures {
				cb.state = StateOpen
				cb.openedAt = now
			}
		} else {
			cb.failures = 0
		}
	case StateHalfOpen:
		if failed {
			cb.lastFailure = now
			cb.openedAt = now
			cb.state = StateOpen
		} else {
			cb.state = StateClosed
			cb.failures = 0
		}
		cb.halfOpenCount = 0
	}
	to := cb.state
	cb.mu.Unlock()

	if from != to {
		cb.notify([]transition{{from, to}})
	}
}

// advanceLocked moves an expired open circuit to half-open.
func (cb *CircuitBreaker) advanceLocked() (State, []transition) {
	if cb.state == StateOpen && cb.config.Now().Sub(cb.openedAt) >= cb.config.ResetTimeout {
		cb.state = StateHalfOpen
		cb.halfOpenCount = 0
		return cb.state, []transition{{StateOpen, StateHalfOpen}}
	}
	return cb.state, nil
}

func (cb *CircuitBreaker) notify(changes []transition) {
	if cb.config.OnStateChange == nil {
		return
	}
	for _, c := range changes {
		cb.config.OnStateChange(c.from, c.to)
	}
}

// Metrics returns current circuit breaker metrics.
func (cb *CircuitBreaker) Metrics() CircuitBreakerMetrics {
	cb.mu.Lock()
	state, changes := cb.advanceLocked()
	m := CircuitBreakerMetrics{
		State:       state,
		Failures:    cb.failures,
		LastFailure: cb.lastFailure,
	}
	cb.mu.Unlock()
	cb.notify(changes)
	return m
}

// CircuitBreakerMetrics contains circuit breaker statistics.
type CircuitBreakerMetrics struct {
	State       State
	Failures    int
	LastFailure time.Time
}
