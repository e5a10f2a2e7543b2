package observe

import (
	"context"
	"time"
)

// ExecuteFunc is the signature Middleware wraps.
type ExecuteFunc func(ctx context.Context, meta OpMeta) error

// Middleware wraps operations with tracing, metrics and logging.
//
// Contract:
//   - Concurrency: Wrap returns a thread-safe ExecuteFunc.
//   - Context: the span context is propagated to the wrapped function.
//   - Errors: errors from the wrapped function are recorded and returned unchanged.
type Middleware struct {
	tracer  Tracer
	metrics Metrics
	logger  Logger
}

// NewMiddleware creates a Middleware from its parts. Nil parts are no-ops.
func NewMiddleware(tracer Tracer, metrics Metrics, logger Logger) *Middleware {
	if tracer == nil {
		tracer = newNoopTracer()
	}
	if metrics == nil {
		metrics = noopMetrics{}
	}
	if logger == nil {
		logger = NopLogger()
	}
	return &Middleware{tracer: tracer, metrics: metrics, logger: logger}
}

// NopMiddleware returns a Middleware that only calls through.
func NopMiddleware() *Middleware {
	return NewMiddleware(nil, nil, nil)
}

// Wrap wraps fn with a span, instruments and a completion log line.
// Successful calls log at debug; failures at warn.
func (m *Middleware) Wrap(fn ExecuteFunc) ExecuteFunc {
	return func(ctx context.Context, meta OpMeta) error {
		ctx, span := m.tracer.StartSpan(ctx, meta)
		start := time.Now()

		err := fn(ctx, meta)

		duration := time.Since(start)
		m.tracer.EndSpan(span, err)
		m.metrics.RecordOperation(ctx, meta, duration, err)

		opLogger := m.logger.WithOperation(meta)
		fields := []Field{{Key: "duration_ms", Value: float64(duration.Microseconds()) / 1000}}
		if err != nil {
			fields = append(fields, Field{Key: "error", Value: err.Error()})
			opLogger.Warn(ctx, "operation failed", fields...)
		} else {
			opLogger.Debug(ctx, "operation completed", fields...)
		}
		return err
	}
}

// RecordCache forwards a cache hit or miss to the metrics sink.
func (m *Middleware) RecordCache(ctx context.Context, op string, hit bool) {
	m.metrics.RecordCache(ctx, op, hit)
}

// Logger returns the middleware's base logger.
func (m *Middleware) Logger() Logger {
	return m.logger
}

// Run executes fn through m and returns its typed result.
func Run[T any](ctx context.Context, m *Middleware, meta OpMeta, fn func(context.Context) (T, error)) (T, error) {
	if m == nil {
		return fn(ctx)
	}
	var out T
	err := m.Wrap(func(ctx context.Context, _ OpMeta) error {
		var err error
		out, err = fn(ctx)
		return err
	})(ctx, meta)
	return out, err
}

// MiddlewareFromObserver creates a Middleware for component from an Observer.
func MiddlewareFromObserver(obs Observer, component string) (*Middleware, error) {
	if obs == nil {
		return nil, ErrNilObserver
	}
	metrics, err := newMetrics(obs.Meter(), component)
	if err != nil {
		return nil, err
	}
	return NewMiddleware(newTracer(obs.Tracer()), metrics, obs.Logger()), nil
}
