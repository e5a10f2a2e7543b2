// Package health reports whether wikigraph can serve: it checks the
// document store, the cache and the upstream circuit breaker, aggregates
// the results and exposes them as liveness, readiness and detail probes.
//
//	agg := health.NewAggregator()
//	agg.Register(health.UpstreamChecker(src))
//	agg.Register(health.CacheChecker(c))
//	http.Handle("/readyz", health.ReadinessHandler(agg))
package health
