package query

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/jonwraymond/querysync/observe"
)

// countingMetrics records how often each metric hook fired.
type countingMetrics struct {
	ops           atomic.Int64
	opErrors      atomic.Int64
	hits          atomic.Int64
	deduplicated  atomic.Int64
	invalidations atomic.Int64
}

func (m *countingMetrics) RecordOperation(_ context.Context, _ observe.OpMeta, _ time.Duration, err error) {
	m.ops.Add(1)
	if err != nil {
		m.opErrors.Add(1)
	}
}

func (m *countingMetrics) RecordCacheHit(context.Context, observe.OpMeta) {
	m.hits.Add(1)
}

func (m *countingMetrics) RecordDeduplicated(context.Context, observe.OpMeta) {
	m.deduplicated.Add(1)
}

func (m *countingMetrics) RecordInvalidation(_ context.Context, _ string, n int) {
	m.invalidations.Add(int64(n))
}

func newTestClient(t *testing.T, opts ...Option) (*Client, *countingMetrics) {
	t.Helper()
	m := &countingMetrics{}
	mw := observe.NewMiddleware(nil, m, nil)
	c := New(append([]Option{WithMiddleware(mw)}, opts...)...)
	t.Cleanup(c.Reset)
	return c, m
}

// backend is a fake data source with a call counter and an optional gate
// that holds fetches until released.
type backend struct {
	mu    sync.Mutex
	value any
	err   error
	calls atomic.Int64
	gate  chan struct{}
}

func newBackend(value any) *backend {
	return &backend{value: value}
}

func (b *backend) set(value any, err error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.value = value
	b.err = err
}

// hold makes subsequent fetches block until release is called.
func (b *backend) hold() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.gate = make(chan struct{})
}

func (b *backend) release() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.gate != nil {
		close(b.gate)
		b.gate = nil
	}
}

func (b *backend) fetch(ctx context.Context) (any, error) {
	b.calls.Add(1)

	b.mu.Lock()
	gate := b.gate
	b.mu.Unlock()
	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	return b.value, b.err
}

// recorder collects snapshots delivered to a listener.
type recorder struct {
	mu    sync.Mutex
	snaps []Snapshot
}

func (r *recorder) listen(s Snapshot) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.snaps = append(r.snaps, s)
}

func (r *recorder) all() []Snapshot {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Snapshot, len(r.snaps))
	copy(out, r.snaps)
	return out
}

func (r *recorder) last() (Snapshot, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.snaps) == 0 {
		return Snapshot{}, false
	}
	return r.snaps[len(r.snaps)-1], true
}

// fakeClock is a manually advanced time source.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func waitIdle(t *testing.T, c *Client) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, c.Wait(ctx))
}
