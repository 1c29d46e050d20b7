// Package fetch is the JSON-over-HTTP client the query cache uses to reach
// the REST API.
//
// It maps responses to typed errors (HTTPError, NetworkError), injects
// per-request headers from a HeaderProvider and tags every request with an
// X-Request-ID. Retries and the circuit breaker are opt-in; with neither
// enabled each call makes exactly one HTTP request, which is what the cache's
// deduplication guarantees are stated in terms of.
package fetch
