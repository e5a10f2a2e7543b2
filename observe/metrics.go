package observe

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Metrics records operation and cache instruments.
//
// Contract:
// - Concurrency: implementations must be safe for concurrent use.
// - Errors: implementations must not panic.
type Metrics interface {
	RecordOperation(ctx context.Context, meta OpMeta, duration time.Duration, err error)
	RecordCache(ctx context.Context, op string, hit bool)
}

type metricsImpl struct {
	meter    metric.Meter
	prefix   string
	total    metric.Int64Counter
	errors   metric.Int64Counter
	duration metric.Float64Histogram
	hits     metric.Int64Counter
	misses   metric.Int64Counter
}

// newMetrics registers the instruments for one component, e.g.
// wikigraph.lookup.total, plus the shared wikigraph.cache.* counters.
func newMetrics(meter metric.Meter, component string) (*metricsImpl, error) {
	prefix := "wikigraph." + component
	m := &metricsImpl{meter: meter, prefix: prefix}

	var err error
	if m.total, err = meter.Int64Counter(prefix+".total",
		metric.WithDescription("Total number of operations"),
		metric.WithUnit("{call}"),
	); err != nil {
		return nil, err
	}
	if m.errors, err = meter.Int64Counter(prefix+".errors",
		metric.WithDescription("Total number of failed operations"),
		metric.WithUnit("{error}"),
	); err != nil {
		return nil, err
	}
	if m.duration, err = meter.Float64Histogram(prefix+".duration_ms",
		metric.WithDescription("Operation duration in milliseconds"),
		metric.WithUnit("ms"),
	); err != nil {
		return nil, err
	}
	if m.hits, err = meter.Int64Counter("wikigraph.cache.hits",
		metric.WithDescription("Memoized results served from cache"),
		metric.WithUnit("{hit}"),
	); err != nil {
		return nil, err
	}
	if m.misses, err = meter.Int64Counter("wikigraph.cache.misses",
		metric.WithDescription("Memoized results computed upstream"),
		metric.WithUnit("{miss}"),
	); err != nil {
		return nil, err
	}
	return m, nil
}

// RecordOperation records one operation's count, error and latency.
func (m *metricsImpl) RecordOperation(ctx context.Context, meta OpMeta, duration time.Duration, err error) {
	opt := metric.WithAttributes(attribute.String("operation", meta.Name))

	m.total.Add(ctx, 1, opt)
	if err != nil {
		m.errors.Add(ctx, 1, opt)
	}
	m.duration.Record(ctx, float64(duration.Microseconds())/1000, opt)
}

// RecordCache counts one cache hit or miss for op.
func (m *metricsImpl) RecordCache(ctx context.Context, op string, hit bool) {
	opt := metric.WithAttributes(attribute.String("operation", op))
	if hit {
		m.hits.Add(ctx, 1, opt)
	} else {
		m.misses.Add(ctx, 1, opt)
	}
}

type noopMetrics struct{}

func (noopMetrics) RecordOperation(context.Context, OpMeta, time.Duration, error) {}
func (noopMetrics) RecordCache(context.Context, string, bool)                     {}
