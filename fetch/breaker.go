package fetch

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sony/gobreaker"

	"github.com/jonwraymond/querysync/observe"
)

// BreakerConfig configures the client's circuit breaker.
type BreakerConfig struct {
	// Name identifies the breaker in logs.
	// Default: "api"
	Name string

	// MaxRequests is the number of trial requests allowed while half-open.
	// Default: 5
	MaxRequests uint32

	// Interval is the cyclic period in the closed state after which counts
	// are cleared.
	// Default: 30s
	Interval time.Duration

	// Timeout is how long the breaker stays open before going half-open.
	// Default: 60s
	Timeout time.Duration

	// FailureThreshold is the failure ratio that trips the breaker.
	// Default: 0.8
	FailureThreshold float64

	// MinRequests is the number of requests needed before the ratio counts.
	// Default: 5
	MinRequests uint32
}

// DefaultBreakerConfig returns the default breaker configuration.
func DefaultBreakerConfig(name string) BreakerConfig {
	return BreakerConfig{
		Name:             name,
		MaxRequests:      5,
		Interval:         30 * time.Second,
		Timeout:          60 * time.Second,
		FailureThreshold: 0.8,
		MinRequests:      5,
	}
}

func (c BreakerConfig) withDefaults() BreakerConfig {
	d := DefaultBreakerConfig("api")
	if c.Name == "" {
		c.Name = d.Name
	}
	if c.MaxRequests == 0 {
		c.MaxRequests = d.MaxRequests
	}
	if c.Interval <= 0 {
		c.Interval = d.Interval
	}
	if c.Timeout <= 0 {
		c.Timeout = d.Timeout
	}
	if c.FailureThreshold <= 0 {
		c.FailureThreshold = d.FailureThreshold
	}
	if c.MinRequests == 0 {
		c.MinRequests = d.MinRequests
	}
	return c
}

// breaker adapts gobreaker to request execution. Only transport failures
// and temporary statuses count against the backend; a 404 is a valid answer.
type breaker struct {
	cb *gobreaker.CircuitBreaker
}

func newBreaker(cfg BreakerConfig, logger observe.Logger) *breaker {
	cfg = cfg.withDefaults()
	return &breaker{cb: gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        cfg.Name,
		MaxRequests: cfg.MaxRequests,
		Interval:    cfg.Interval,
		Timeout:     cfg.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < cfg.MinRequests {
				return false
			}
			ratio := float64(counts.TotalFailures) / float64(counts.Requests)
			return ratio >= cfg.FailureThreshold
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn(context.Background(), "circuit breaker state changed",
				observe.Field{Key: "breaker", Value: name},
				observe.Field{Key: "from", Value: from.String()},
				observe.Field{Key: "to", Value: to.String()},
			)
		},
		IsSuccessful: func(err error) bool {
			return err == nil || !IsRetryable(err)
		},
	})}
}

func (b *breaker) execute(ctx context.Context, op func(context.Context) error) error {
	_, err := b.cb.Execute(func() (any, error) {
		return nil, op(ctx)
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return fmt.Errorf("%w: %w", ErrCircuitOpen, err)
	}
	return err
}

// state returns the breaker state name.
func (b *breaker) state() string {
	return b.cb.State().String()
}
