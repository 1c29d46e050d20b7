package fetch

import (
	"context"
	"errors"
	"math/rand/v2"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v5"
)

// BackoffStrategy picks how the wait grows between attempts.
type BackoffStrategy int

const (
	BackoffExponential BackoffStrategy = iota // InitialDelay * Multiplier^(n-1)
	BackoffLinear                             // InitialDelay * n
	BackoffConstant                           // InitialDelay every time
)

// RetryConfig configures request retries. Retries are off unless the client
// is built with WithRetry; the query cache itself never retries.
//
// Only idempotent methods are retried unless RetryNonIdempotent is set, and
// only errors RetryIf accepts (default IsRetryable). Every attempt of one
// call carries the same X-Request-ID.
type RetryConfig struct {
	MaxAttempts  int           // including the first; default 3
	InitialDelay time.Duration // default 100ms
	MaxDelay     time.Duration // default 5s
	Multiplier   float64       // exponential only; default 2
	Strategy     BackoffStrategy

	// Jitter randomizes each wait by up to 25%.
	Jitter bool

	RetryNonIdempotent bool
	RetryIf            func(err error) bool

	// OnRetry runs before each wait. attempt is the attempt that failed.
	OnRetry func(attempt int, err error, delay time.Duration)
}

func (c RetryConfig) withDefaults() RetryConfig {
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = 3
	}
	if c.InitialDelay <= 0 {
		c.InitialDelay = 100 * time.Millisecond
	}
	if c.MaxDelay <= 0 {
		c.MaxDelay = 5 * time.Second
	}
	if c.Multiplier <= 0 {
		c.Multiplier = 2
	}
	if c.RetryIf == nil {
		c.RetryIf = IsRetryable
	}
	return c
}

// jitterFactor is the RandomizationFactor matching RetryConfig.Jitter.
const jitterFactor = 0.25

type retrier struct {
	cfg RetryConfig
}

func newRetrier(cfg RetryConfig) *retrier {
	return &retrier{cfg: cfg.withDefaults()}
}

func idempotent(method string) bool {
	switch method {
	case http.MethodGet, http.MethodHead, http.MethodPut, http.MethodDelete, http.MethodOptions:
		return true
	}
	return false
}

// execute runs op until it succeeds, fails permanently, runs out of
// attempts, or ctx ends. The last error of op is returned as is.
func (r *retrier) execute(ctx context.Context, method string, op func(context.Context) error) error {
	if !idempotent(method) && !r.cfg.RetryNonIdempotent {
		return op(ctx)
	}

	attempt := 0
	_, err := backoff.Retry(ctx, func() (struct{}, error) {
		attempt++
		err := op(ctx)
		if err != nil && !r.cfg.RetryIf(err) {
			return struct{}{}, backoff.Permanent(err)
		}
		return struct{}{}, err
	},
		backoff.WithBackOff(r.schedule()),
		backoff.WithMaxTries(uint(r.cfg.MaxAttempts)),
		backoff.WithMaxElapsedTime(0),
		backoff.WithNotify(func(err error, next time.Duration) {
			if r.cfg.OnRetry != nil {
				r.cfg.OnRetry(attempt, err, next)
			}
		}),
	)
	// Retry leaves the wrapper on when the last allowed attempt was permanent.
	var perm *backoff.PermanentError
	if errors.As(err, &perm) {
		return perm.Err
	}
	return err
}

// schedule builds a fresh backoff for one call.
func (r *retrier) schedule() backoff.BackOff {
	cfg := r.cfg
	if cfg.Strategy == BackoffExponential {
		b := backoff.NewExponentialBackOff()
		b.InitialInterval = cfg.InitialDelay
		b.MaxInterval = cfg.MaxDelay
		b.Multiplier = cfg.Multiplier
		b.RandomizationFactor = 0
		if cfg.Jitter {
			b.RandomizationFactor = jitterFactor
		}
		return b
	}
	return &stepBackOff{cfg: cfg}
}

// stepBackOff is the linear and constant schedule.
type stepBackOff struct {
	cfg RetryConfig
	n   int
}

func (s *stepBackOff) NextBackOff() time.Duration {
	s.n++
	d := s.cfg.InitialDelay
	if s.cfg.Strategy == BackoffLinear {
		d *= time.Duration(s.n)
	}
	d = min(d, s.cfg.MaxDelay)
	if s.cfg.Jitter && d >= 4 {
		// #nosec G404 -- timing variance only.
		d += time.Duration(rand.Int64N(int64(d / 4)))
	}
	return d
}

func (s *stepBackOff) Reset() { s.n = 0 }
