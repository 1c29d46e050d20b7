package health

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStatus_Names(t *testing.T) {
	for s, want := range map[Status]string{
		StatusHealthy:   "healthy",
		StatusDegraded:  "degraded",
		StatusUnhealthy: "unhealthy",
		Status(99):      "unknown",
	} {
		assert.Equal(t, want, s.String())
		b, err := s.MarshalText()
		assert.NoError(t, err)
		assert.Equal(t, want, string(b))
	}
}

func TestWorst(t *testing.T) {
	assert.Equal(t, StatusDegraded, worst(StatusDegraded, StatusHealthy))
	assert.Equal(t, StatusUnhealthy, worst(StatusDegraded, StatusUnhealthy))
	assert.Equal(t, StatusHealthy, worst(StatusHealthy, StatusHealthy))
}

func TestResultConstructors(t *testing.T) {
	cause := errors.New("connection refused")
	tests := []struct {
		name   string
		result Result
		status Status
		err    error
	}{
		{"healthy", Healthy("up"), StatusHealthy, nil},
		{"degraded", Degraded("slow"), StatusDegraded, nil},
		{"unhealthy", Unhealthy("down", cause), StatusUnhealthy, cause},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.status, tt.result.Status)
			assert.Equal(t, tt.err, tt.result.Error)
			assert.False(t, tt.result.Timestamp.IsZero())
			assert.Equal(t, tt.status != StatusHealthy, tt.result.Failed())
		})
	}
}

func TestResult_WithDetails(t *testing.T) {
	base := Healthy("ok").WithDetails(map[string]any{"watched": 2})
	merged := base.WithDetail("latency_ms", 3).WithDetails(map[string]any{"watched": 5})

	assert.Equal(t, map[string]any{"watched": 5, "latency_ms": 3}, merged.Details)
	assert.Equal(t, map[string]any{"watched": 2}, base.Details, "receiver untouched")
}

func TestCheckerFunc(t *testing.T) {
	c := NewCheckerFunc("backend", func(ctx context.Context) Result {
		if err := ctx.Err(); err != nil {
			return Unhealthy("cancelled", err)
		}
		return Healthy("up")
	})
	assert.Equal(t, "backend", c.Name())
	assert.Equal(t, StatusHealthy, c.Check(context.Background()).Status)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	r := c.Check(ctx)
	assert.Equal(t, StatusUnhealthy, r.Status)
	assert.ErrorIs(t, r.Error, context.Canceled)
}

func TestCheckerFunc_NilFunc(t *testing.T) {
	r := NewCheckerFunc("empty", nil).Check(context.Background())
	assert.Equal(t, StatusUnhealthy, r.Status)
	assert.ErrorIs(t, r.Error, errNoCheckFunc)
}
