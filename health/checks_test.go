package health

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jonwraymond/wikigraph/cache"
	"github.com/jonwraymond/wikigraph/resilience"
)

type authFunc func(context.Context) error

func (f authFunc) Authenticate(ctx context.Context) error { return f(ctx) }

// TestUpstreamChecker verifies login failures are unhealthy.
func TestUpstreamChecker(t *testing.T) {
	ctx := context.Background()
	if r := UpstreamChecker(authFunc(func(context.Context) error { return nil })).Check(ctx); r.Status != StatusHealthy {
		t.Fatalf("healthy upstream = %+v", r)
	}
	boom := errors.New("connection refused")
	r := UpstreamChecker(authFunc(func(context.Context) error { return boom })).Check(ctx)
	if r.Status != StatusUnhealthy || !errors.Is(r.Error, boom) {
		t.Fatalf("failing upstream = %+v", r)
	}
}

// TestCacheChecker verifies the probe round-trips and is removed.
func TestCacheChecker(t *testing.T) {
	c := cache.NewMemoryCache()
	r := CacheChecker(c).Check(context.Background())
	if r.Status != StatusHealthy {
		t.Fatalf("CacheChecker() = %+v", r)
	}
	if n := c.Len(); n != 0 {
		t.Fatalf("probe entries left behind: %d", n)
	}
}

// TestCircuitChecker verifies each breaker state maps to a status.
func TestCircuitChecker(t *testing.T) {
	now := time.Unix(0, 0)
	cb := resilience.NewCircuitBreaker(resilience.CircuitBreakerConfig{
		MaxFailures:  1,
		ResetTimeout: time.Minute,
		Now:          func() time.Time { return now },
	})
	check := CircuitChecker(cb)
	ctx := context.Background()

	if r := check.Check(ctx); r.Status != StatusHealthy {
		t.Fatalf("closed = %+v", r)
	}
	_ = cb.Execute(ctx, func(context.Context) error { return errors.New("fault") })
	r := check.Check(ctx)
	if r.Status != StatusUnhealthy || r.Details["state"] != "open" {
		t.Fatalf("open = %+v", r)
	}
	now = now.Add(2 * time.Minute)
	if r := check.Check(ctx); r.Status != StatusDegraded {
		t.Fatalf("half-open = %+v", r)
	}
}
