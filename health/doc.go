// Package health reports whether the pieces a querysync client depends on
// are usable.
//
// A Checker returns a Result with a Status of healthy, degraded or
// unhealthy. BackendChecker probes the REST API's /health endpoint through
// the fetch client (and so sees its circuit breaker); CacheChecker reports
// watched queries whose last fetch failed. An Aggregator runs checkers
// together and summarizes them into a Report, which the HTTP handlers
// expose:
//
//	agg := health.NewAggregator()
//	agg.Register(health.NewBackendChecker(httpClient, time.Second), health.NewCacheChecker(cache))
//	health.RegisterHandlers(mux, agg) // /healthz, /readyz, /health, /health/{name}
package health
