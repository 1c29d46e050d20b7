package health

import (
	"context"
	"slices"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/jonwraymond/querysync/observe"
)

const defaultRunTimeout = 10 * time.Second

// AggregatorConfig configures an Aggregator. The zero value is usable.
type AggregatorConfig struct {
	// Timeout bounds one Run or Check. Checks still running when it expires
	// are reported unhealthy with ErrCheckTimeout. Default: 10s.
	Timeout time.Duration

	// Sequential runs checks one after another instead of concurrently.
	Sequential bool

	// Logger receives a warning per failed check.
	Logger observe.Logger
}

// Aggregator runs a set of named checkers and folds their results into a
// Report. It is safe for concurrent use.
type Aggregator struct {
	cfg AggregatorConfig

	mu       sync.RWMutex
	checkers []Checker // registration order
}

func NewAggregator(cfg ...AggregatorConfig) *Aggregator {
	a := &Aggregator{}
	if len(cfg) > 0 {
		a.cfg = cfg[0]
	}
	if a.cfg.Timeout <= 0 {
		a.cfg.Timeout = defaultRunTimeout
	}
	if a.cfg.Logger == nil {
		a.cfg.Logger = observe.NopLogger()
	}
	return a
}

// Register adds checkers. A checker whose name is already registered
// replaces the old one in its original position.
func (a *Aggregator) Register(checkers ...Checker) {
	a.mu.Lock()
	defer a.mu.Unlock()
	for _, c := range checkers {
		i := slices.IndexFunc(a.checkers, func(old Checker) bool { return old.Name() == c.Name() })
		if i >= 0 {
			a.checkers[i] = c
			continue
		}
		a.checkers = append(a.checkers, c)
	}
}

// CheckerNames lists registered checkers in registration order.
func (a *Aggregator) CheckerNames() []string {
	a.mu.RLock()
	defer a.mu.RUnlock()
	names := make([]string, len(a.checkers))
	for i, c := range a.checkers {
		names[i] = c.Name()
	}
	return names
}

func (a *Aggregator) lookup(name string) (Checker, bool) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	i := slices.IndexFunc(a.checkers, func(c Checker) bool { return c.Name() == name })
	if i < 0 {
		return nil, false
	}
	return a.checkers[i], true
}

// Check runs one checker by name.
func (a *Aggregator) Check(ctx context.Context, name string) (Result, error) {
	c, ok := a.lookup(name)
	if !ok {
		return Result{}, ErrCheckerNotFound
	}
	ctx, cancel := context.WithTimeout(ctx, a.cfg.Timeout)
	defer cancel()
	return runCheck(ctx, c), nil
}

// NamedResult is one entry of a Report.
type NamedResult struct {
	Name   string
	Result Result
}

// Report is the outcome of one Run.
type Report struct {
	// Status is the worst status among Checks; healthy when there are none.
	Status    Status
	Checks    []NamedResult // registration order
	Timestamp time.Time
}

// Result returns the result of the named check.
func (r Report) Result(name string) (Result, bool) {
	for _, c := range r.Checks {
		if c.Name == name {
			return c.Result, true
		}
	}
	return Result{}, false
}

// Run executes every registered check and summarizes them.
func (a *Aggregator) Run(ctx context.Context) Report {
	a.mu.RLock()
	checkers := slices.Clone(a.checkers)
	a.mu.RUnlock()

	rep := Report{Checks: make([]NamedResult, len(checkers)), Timestamp: time.Now()}
	if len(checkers) == 0 {
		return rep
	}

	ctx, cancel := context.WithTimeout(ctx, a.cfg.Timeout)
	defer cancel()

	var g errgroup.Group
	if a.cfg.Sequential {
		g.SetLimit(1)
	}
	for i, c := range checkers {
		g.Go(func() error {
			rep.Checks[i] = NamedResult{Name: c.Name(), Result: runCheck(ctx, c)}
			return nil
		})
	}
	_ = g.Wait()

	for _, c := range rep.Checks {
		rep.Status = worst(rep.Status, c.Result.Status)
		if !c.Result.Failed() {
			continue
		}
		a.cfg.Logger.Warn(ctx, "health check failed",
			observe.Field{Key: "check", Value: c.Name},
			observe.Field{Key: "status", Value: c.Result.Status.String()},
			observe.Field{Key: "message", Value: c.Result.Message},
		)
	}
	return rep
}

// runCheck stamps the result with its duration, or gives up when ctx ends
// first. An abandoned check keeps running in its goroutine.
func runCheck(ctx context.Context, c Checker) Result {
	start := time.Now()
	done := make(chan Result, 1)
	go func() {
		done <- c.Check(ctx)
	}()

	var r Result
	select {
	case r = <-done:
	case <-ctx.Done():
		r = Unhealthy("check timed out", ErrCheckTimeout)
	}
	r.Duration = time.Since(start)
	if r.Timestamp.IsZero() {
		r.Timestamp = start
	}
	return r
}
