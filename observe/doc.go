// Package observe provides observability primitives for the query cache and
// its backend client: OpenTelemetry tracing and metrics, and structured
// logging on zap.
//
// It performs no I/O beyond exporter setup. The query and fetch packages
// accept a *Middleware and run every backend operation through it.
package observe
