package resilience

import (
	"context"
	"time"
)

// Config is the flat configuration for a full upstream executor.
type Config struct {
	MaxAttempts   int
	InitialDelay  time.Duration
	MaxFailures   int
	ResetTimeout  time.Duration
	Rate          float64
	Burst         int
	MaxConcurrent int
	Timeout       time.Duration
}

// Executor composes the resilience patterns around one upstream.
type Executor struct {
	circuitBreaker *CircuitBreaker
	retry          *Retry
	rateLimiter    *RateLimiter
	bulkhead       *Bulkhead
	timeout        *Timeout
}

// ExecutorOption configures an Executor.
type ExecutorOption func(*Executor)

// NewExecutor creates an executor from options. With no options it only
// calls through.
func NewExecutor(opts ...ExecutorOption) *Executor {
	e := &Executor{}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// New builds an executor with every pattern enabled from cfg. Only errors
// for which transient returns true are retried or counted by the breaker.
func New(cfg Config, transient func(error) bool) *Executor {
	return NewExecutor(
		WithRateLimiter(NewRateLimiter(RateLimiterConfig{
			Rate:        cfg.Rate,
			Burst:       cfg.Burst,
			WaitOnLimit: true,
		})),
		WithBulkhead(NewBulkhead(BulkheadConfig{
			MaxConcurrent: cfg.MaxConcurrent,
			MaxWait:       cfg.Timeout,
		})),
		WithCircuitBreaker(NewCircuitBreaker(CircuitBreakerConfig{
			MaxFailures:  cfg.MaxFailures,
			ResetTimeout: cfg.ResetTimeout,
			IsFailure:    transient,
		})),
		WithRetry(NewRetry(RetryConfig{
			MaxAttempts:  cfg.MaxAttempts,
			InitialDelay: cfg.InitialDelay,
			Jitter:       true,
			RetryIf:      transient,
		})),
		WithTimeout(cfg.Timeout),
	)
}

// WithCircuitBreaker adds a circuit breaker.
func WithCircuitBreaker(cb *CircuitBreaker) ExecutorOption {
	return func(e *Executor) { e.circuitBreaker = cb }
}

// WithRetry adds retry logic.
func WithRetry(r *Retry) ExecutorOption {
	return func(e *Executor) { e.retry = r }
}

// WithRateLimiter adds rate limiting.
func WithRateLimiter(rl *RateLimiter) ExecutorOption {
	return func(e *Executor) { e.rateLimiter = rl }
}

// WithBulkhead adds a concurrency cap.
func WithBulkhead(b *Bulkhead) ExecutorOption {
	return func(e *Executor) { e.bulkhead = b }
}

// WithTimeout bounds each attempt. Zero leaves attempts unbounded.
func WithTimeout(d time.Duration) ExecutorOption {
	return func(e *Executor) {
		if d > 0 {
			e.timeout = NewTimeout(d)
		}
	}
}

// CircuitBreaker returns the configured breaker, or nil.
func (e *Executor) CircuitBreaker() *CircuitBreaker {
	return e.circuitBreaker
}

// Execute runs op through the configured patterns, outermost first:
// rate limiter, bulkhead, circuit breaker, retry, per-attempt timeout.
func (e *Executor) Execute(ctx context.Context, op func(context.Context) error) error {
	execute := op

	if e.timeout != nil {
		inner := execute
		execute = func(ctx context.Context) error { return e.timeout.Execute(ctx, inner) }
	}
	if e.retry != nil {
		inner := execute
		execute = func(ctx context.Context) error { return e.retry.Execute(ctx, inner) }
	}
	if e.circuitBreaker != nil {
		inner := execute
		execute = func(ctx context.Context) error { return e.circuitBreaker.Execute(ctx, inner) }
	}
	if e.bulkhead != nil {
		inner := execute
		execute = func(ctx context.Context) error { return e.bulkhead.Execute(ctx, inner) }
	}
	if e.rateLimiter != nil {
		inner := execute
		execute = func(ctx context.Context) error { return e.rateLimiter.Execute(ctx, inner) }
	}

	return execute(ctx)
}
