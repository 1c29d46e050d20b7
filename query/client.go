package query

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/jonwraymond/querysync/observe"
)

// FetchFunc loads the current value for one key from the backend.
type FetchFunc func(ctx context.Context) (any, error)

// Client is the process-wide query cache.
//
// Contract:
// - Concurrency: safe for concurrent use; all entry writes happen under one lock.
// - Context: GetOrFetch honors cancellation of the caller's wait, but the
//   shared fetch itself runs detached and still updates the cache.
// - Errors: fetch errors are stored on the entry and returned to every waiter.
type Client struct {
	mu      sync.Mutex
	entries map[string]*entry
	policy  Policy
	mw      *observe.Middleware
	logger  observe.Logger
	now     func() time.Time

	nextSubID uint64
	pending   int
	idle      chan struct{}
}

// Option configures a Client.
type Option func(*Client)

// WithPolicy sets the freshness and retention policy.
func WithPolicy(p Policy) Option {
	return func(c *Client) {
		c.policy = p
	}
}

// WithMiddleware instruments fetches and mutations with tracing, metrics and
// logging.
func WithMiddleware(mw *observe.Middleware) Option {
	return func(c *Client) {
		if mw != nil {
			c.mw = mw
		}
	}
}

// WithLogger sets the logger used for cache events.
func WithLogger(l observe.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(c *Client) {
		if now != nil {
			c.now = now
		}
	}
}

// New creates a Client. Without options it uses DefaultPolicy and no-op
// telemetry.
func New(opts ...Option) *Client {
	c := &Client{
		entries: make(map[string]*entry),
		policy:  DefaultPolicy(),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.mw == nil {
		c.mw = observe.NopMiddleware()
	}
	if c.logger == nil {
		c.logger = c.mw.Logger()
	}
	return c
}

// Policy returns the client's policy.
func (c *Client) Policy() Policy {
	return c.policy
}

// GetOrFetch returns the cached value for key if it is fresh. Otherwise it
// starts a fetch, or joins the one already in flight for key, and waits for
// it. At most one fetch per key is in flight at any time.
func (c *Client) GetOrFetch(ctx context.Context, key Key, fetch FetchFunc) (any, error) {
	if c == nil {
		return nil, ErrNilClient
	}
	if key.IsZero() {
		return nil, ErrInvalidKey
	}
	if fetch == nil {
		return nil, ErrNilFetch
	}

	meta := opMeta(key)

	c.mu.Lock()
	now := c.now()
	e := c.entryLocked(key)
	e.fetch = fetch
	if c.freshLocked(e, now) {
		data := e.data
		c.mu.Unlock()
		c.mw.Metrics().RecordCacheHit(ctx, meta)
		return data, nil
	}
	joined := e.inflight != nil
	cl := c.startFetchLocked(ctx, e)
	var ds []delivery
	if !joined {
		ds = c.deliveriesLocked(e, now)
	}
	c.scheduleGCLocked(e)
	c.mu.Unlock()

	deliver(ds)
	if joined {
		c.mw.Metrics().RecordDeduplicated(ctx, meta)
	}

	select {
	case <-cl.done:
		return cl.val, cl.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Prefetch warms the cache for key. It is GetOrFetch with the value dropped.
func (c *Client) Prefetch(ctx context.Context, key Key, fetch FetchFunc) error {
	_, err := c.GetOrFetch(ctx, key, fetch)
	return err
}

// startFetchLocked returns the in-flight call for e, starting one if none
// exists. The caller must hold c.mu and e.fetch must be set.
func (c *Client) startFetchLocked(ctx context.Context, e *entry) *call {
	if e.inflight != nil {
		return e.inflight
	}

	cl := &call{done: make(chan struct{})}
	e.inflight = cl
	e.status = StatusLoading
	e.version++
	c.pending++

	go c.runFetch(context.WithoutCancel(ctx), e.key, e.fetch, cl)
	return cl
}

func (c *Client) runFetch(ctx context.Context, key Key, fetch FetchFunc, cl *call) {
	if c.policy.FetchTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.policy.FetchTimeout)
		defer cancel()
	}

	exec := c.mw.Wrap(func(ctx context.Context, _ observe.OpMeta) (any, error) {
		return fetch(ctx)
	})
	cl.val, cl.err = exec(ctx, opMeta(key))

	c.settle(ctx, key, cl)
	close(cl.done)
	c.finish()
}

// settle writes the result of cl into the entry for key and notifies
// subscribers registered at this moment.
func (c *Client) settle(ctx context.Context, key Key, cl *call) {
	c.mu.Lock()
	now := c.now()

	var ds []delivery
	e, ok := c.entries[key.String()]
	if ok && e.inflight == cl {
		e.inflight = nil
		if cl.err != nil {
			e.status = StatusError
			e.err = cl.err
		} else {
			e.data = cl.val
			e.hasData = true
			e.status = StatusSuccess
			e.err = nil
			e.fetchedAt = now
			e.staleAt = c.policy.staleAt(now)
			e.invalidated = false
		}
		if e.refetchAfter {
			e.refetchAfter = false
			e.invalidated = true
			e.staleAt = now
			if len(e.subs) > 0 && e.fetch != nil {
				c.startFetchLocked(ctx, e)
			}
		}
		e.version++
		ds = c.deliveriesLocked(e, now)
		c.scheduleGCLocked(e)
	}
	c.mu.Unlock()

	deliver(ds)
}

// finish marks one fetch as done. It runs after the fetch's snapshots have
// been handed to subscribers.
func (c *Client) finish() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.pending--
	if c.pending == 0 && c.idle != nil {
		close(c.idle)
		c.idle = nil
	}
}

// Invalidate marks every entry accepted by any of preds as stale and returns
// how many entries matched. Each matching entry with at least one subscriber
// is refetched once in the background; entries without subscribers refetch
// on their next read.
func (c *Client) Invalidate(ctx context.Context, preds ...Predicate) int {
	n, _ := c.invalidate(ctx, preds)
	return n
}

// Refetch invalidates like Invalidate and waits for the resulting background
// refetches. It returns the first refetch error.
func (c *Client) Refetch(ctx context.Context, preds ...Predicate) error {
	_, calls := c.invalidate(ctx, preds)

	g, gctx := errgroup.WithContext(ctx)
	for _, cl := range calls {
		g.Go(func() error {
			select {
			case <-cl.done:
				return cl.err
			case <-gctx.Done():
				return gctx.Err()
			}
		})
	}
	return g.Wait()
}

func (c *Client) invalidate(ctx context.Context, preds []Predicate) (int, []*call) {
	if c == nil || len(preds) == 0 {
		return 0, nil
	}
	match := MatchAny(preds...)

	c.mu.Lock()
	now := c.now()
	var (
		ds     []delivery
		calls  []*call
		n      int
		counts = make(map[string]int)
	)
	for _, e := range c.entries {
		if !match(e.key) {
			continue
		}
		n++
		counts[e.key.Kind()]++

		e.invalidated = true
		e.staleAt = now
		if e.inflight != nil {
			e.refetchAfter = true
		} else if len(e.subs) > 0 && e.fetch != nil {
			calls = append(calls, c.startFetchLocked(ctx, e))
		}
		e.version++
		ds = append(ds, c.deliveriesLocked(e, now)...)
	}
	c.mu.Unlock()

	for kind, count := range counts {
		c.mw.Metrics().RecordInvalidation(ctx, kind, count)
		c.logger.Debug(ctx, "queries invalidated",
			observe.Field{Key: "kind", Value: kind},
			observe.Field{Key: "count", Value: count},
		)
	}

	deliver(ds)
	return n, calls
}

// Wait blocks until no fetch is in flight, including background refetches
// scheduled by invalidation.
func (c *Client) Wait(ctx context.Context) error {
	for {
		c.mu.Lock()
		if c.pending == 0 {
			c.mu.Unlock()
			return nil
		}
		if c.idle == nil {
			c.idle = make(chan struct{})
		}
		idle := c.idle
		c.mu.Unlock()

		select {
		case <-idle:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func opMeta(key Key) observe.OpMeta {
	return observe.OpMeta{
		Op:   observe.OpQuery,
		Kind: key.Kind(),
		Key:  key.String(),
	}
}
