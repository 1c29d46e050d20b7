package health

import (
	"context"
	"errors"
	"time"

	"github.com/jonwraymond/querysync/fetch"
)

// BackendChecker probes the REST API's health endpoint.
type BackendChecker struct {
	client *fetch.Client
	slow   time.Duration
}

// NewBackendChecker returns a checker that reports degraded when the
// backend answers slower than slow. A zero slow disables that threshold.
func NewBackendChecker(client *fetch.Client, slow time.Duration) *BackendChecker {
	return &BackendChecker{client: client, slow: slow}
}

func (b *BackendChecker) Name() string {
	return "backend"
}

// Check calls GET /health and expects {"status":"ok"}.
func (b *BackendChecker) Check(ctx context.Context) Result {
	details := map[string]any{
		"base_url": b.client.BaseURL(),
		"breaker":  b.client.BreakerState(),
	}

	start := time.Now()
	var body struct {
		Status string `json:"status"`
	}
	err := b.client.Get(ctx, "/health", nil, &body)
	latency := time.Since(start)
	details["latency"] = latency.String()

	switch {
	case errors.Is(err, fetch.ErrCircuitOpen):
		return Unhealthy("circuit breaker open", err).WithDetails(details)
	case err != nil:
		if code := fetch.StatusCode(err); code != 0 {
			details["status_code"] = code
		}
		return Unhealthy("backend unreachable", err).WithDetails(details)
	case body.Status != "ok":
		details["status"] = body.Status
		return Unhealthy("backend not ready", ErrBackendStatus).WithDetails(details)
	case b.slow > 0 && latency > b.slow:
		return Degraded("backend slow").WithDetails(details)
	}
	return Healthy("backend ok").WithDetails(details)
}
