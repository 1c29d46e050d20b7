package health

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Status orders outcomes from best to worst, so the worst of several
// results is the largest.
type Status int

const (
	StatusHealthy Status = iota
	// StatusDegraded means usable, but some cached data is failing or the
	// backend is slow.
	StatusDegraded
	// StatusUnhealthy means requests will fail.
	StatusUnhealthy
)

func (s Status) String() string {
	switch s {
	case StatusHealthy:
		return "healthy"
	case StatusDegraded:
		return "degraded"
	case StatusUnhealthy:
		return "unhealthy"
	default:
		return "unknown"
	}
}

// MarshalText encodes the status by name.
func (s Status) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText parses a status name.
func (s *Status) UnmarshalText(text []byte) error {
	for _, st := range []Status{StatusHealthy, StatusDegraded, StatusUnhealthy} {
		if st.String() == string(text) {
			*s = st
			return nil
		}
	}
	return fmt.Errorf("health: unknown status %q", text)
}

// worst returns the worse of two statuses.
func worst(a, b Status) Status {
	if b > a {
		return b
	}
	return a
}

// Result is the outcome of one check.
type Result struct {
	Status  Status
	Message string

	// Details are probe specific, e.g. latency or failing keys.
	Details map[string]any

	// Duration is filled in by the Aggregator.
	Duration  time.Duration
	Timestamp time.Time

	// Error is the cause of a degraded or unhealthy result, if known.
	Error error
}

func newResult(status Status, message string, err error) Result {
	return Result{Status: status, Message: message, Error: err, Timestamp: time.Now()}
}

func Healthy(message string) Result {
	return newResult(StatusHealthy, message, nil)
}

func Degraded(message string) Result {
	return newResult(StatusDegraded, message, nil)
}

func Unhealthy(message string, err error) Result {
	return newResult(StatusUnhealthy, message, err)
}

// WithDetails returns r with details merged over its existing details. The
// receiver's map is not modified.
func (r Result) WithDetails(details map[string]any) Result {
	merged := make(map[string]any, len(r.Details)+len(details))
	for k, v := range r.Details {
		merged[k] = v
	}
	for k, v := range details {
		merged[k] = v
	}
	r.Details = merged
	return r
}

// WithDetail returns r with one detail set.
func (r Result) WithDetail(key string, value any) Result {
	return r.WithDetails(map[string]any{key: value})
}

// Failed reports whether the result is anything but healthy.
func (r Result) Failed() bool {
	return r.Status != StatusHealthy
}

// Checker probes one dependency.
//
// Contract:
// - Concurrency: Check may be called from several goroutines at once.
// - Context: Check must return promptly once ctx is done.
type Checker interface {
	// Name is the key the result is reported under.
	Name() string
	Check(ctx context.Context) Result
}

var errNoCheckFunc = errors.New("health: check function is nil")

// CheckerFunc adapts a function to Checker.
type CheckerFunc struct {
	name string
	fn   func(context.Context) Result
}

func NewCheckerFunc(name string, fn func(context.Context) Result) *CheckerFunc {
	return &CheckerFunc{name: name, fn: fn}
}

func (f *CheckerFunc) Name() string {
	return f.name
}

func (f *CheckerFunc) Check(ctx context.Context) Result {
	if f.fn == nil {
		return Unhealthy("no check", errNoCheckFunc)
	}
	return f.fn(ctx)
}
