package health

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/jonwraymond/wikigraph/cache"
	"github.com/jonwraymond/wikigraph/resilience"
)

// Authenticator is the part of a document source the upstream check uses.
type Authenticator interface {
	Authenticate(ctx context.Context) error
}

// UpstreamChecker checks that the document store accepts a login.
func UpstreamChecker(src Authenticator) Checker {
	return CheckFunc("upstream", func(ctx context.Context) Result {
		if err := src.Authenticate(ctx); err != nil {
			return Unhealthy("document store unreachable", err)
		}
		return Healthy("document store reachable")
	})
}

// CacheChecker round-trips a probe entry through c.
func CacheChecker(c cache.Cache) Checker {
	return CheckFunc("cache", func(ctx context.Context) Result {
		key := "health:" + uuid.NewString()
		want := []byte("ok")
		if err := c.Set(ctx, key, want, time.Minute); err != nil {
			return Unhealthy("cache write failed", err)
		}
		defer func() { _ = c.Delete(ctx, key) }()
		got, ok := c.Get(ctx, key)
		if !ok || !bytes.Equal(got, want) {
			return Unhealthy("cache read failed", fmt.Errorf("health: probe %s not read back", key))
		}
		return Healthy("cache round-trip ok")
	})
}

// CircuitChecker reports the upstream circuit breaker: open is unhealthy,
// half-open degraded.
func CircuitChecker(cb *resilience.CircuitBreaker) Checker {
	return CheckFunc("circuit", func(context.Context) Result {
		m := cb.Metrics()
		details := map[string]any{"state": m.State.String(), "failures": m.Failures}
		switch m.State {
		case resilience.StateOpen:
			return Unhealthy("circuit open", resilience.ErrCircuitOpen).WithDetails(details)
		case resilience.StateHalfOpen:
			return Degraded("circuit half-open").WithDetails(details)
		default:
			return Healthy("circuit closed").WithDetails(details)
		}
	})
}
