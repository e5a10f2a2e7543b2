// Package resilience guards calls to the wiki upstream.
//
// The patterns compose through an Executor, outermost first:
//
//   - RateLimiter: token bucket (golang.org/x/time/rate).
//   - Bulkhead: caps concurrent calls.
//   - CircuitBreaker: rejects calls while the upstream keeps failing.
//   - Retry: re-runs transient failures with backoff.
//   - Timeout: bounds each attempt.
//
// Usage:
//
//	exec := resilience.New(resilience.Config{
//	    MaxAttempts:  3,
//	    InitialDelay: 200 * time.Millisecond,
//	    MaxFailures:  5,
//	    ResetTimeout: 30 * time.Second,
//	    Rate:         20,
//	    Burst:        10,
//	}, wiki.IsTransient)
//
//	err := exec.Execute(ctx, func(ctx context.Context) error {
//	    text, err = source.FetchRaw(ctx, id)
//	    return err
//	})
package resilience
