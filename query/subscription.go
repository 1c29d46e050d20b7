package query

import (
	"context"
	"sync"
	"sync/atomic"
)

// Listener receives snapshots of a subscribed key.
type Listener func(Snapshot)

// Subscription is a live view of one key. While at least one subscription
// exists for a key, invalidating that key refetches it in the background and
// the entry is never garbage collected.
//
// Contract:
// - Ordering: a listener is never called concurrently with itself and sees
//   snapshots in increasing Version order. Intermediate versions may be
//   skipped when updates arrive faster than the listener returns.
// - Reentrancy: listeners may call any Client method, including Unsubscribe.
// - Lifetime: after Unsubscribe or Client.Reset, no further calls are made.
type Subscription struct {
	id       uint64
	client   *Client
	key      Key
	listener Listener
	active   atomic.Bool
	once     sync.Once

	mu          sync.Mutex
	next        *Snapshot
	running     bool
	lastVersion uint64
	delivered   bool
}

// Subscribe registers listener for key. If the entry has no fresh data and
// fetch is non-nil, a fetch is started. A nil fetch makes the subscription
// passive: it observes the entry but never triggers a load.
//
// The listener is called once with the current state and then on every
// change.
func (c *Client) Subscribe(ctx context.Context, key Key, fetch FetchFunc, listener Listener) (*Subscription, error) {
	if c == nil {
		return nil, ErrNilClient
	}
	if key.IsZero() {
		return nil, ErrInvalidKey
	}

	sub := &Subscription{
		client:   c,
		key:      key,
		listener: listener,
	}
	sub.active.Store(true)

	c.mu.Lock()
	now := c.now()
	c.nextSubID++
	sub.id = c.nextSubID

	e := c.entryLocked(key)
	if fetch != nil {
		e.fetch = fetch
	}
	e.subs[sub.id] = sub
	c.stopGCLocked(e)

	var ds []delivery
	if c.needsFetchLocked(e, now) {
		c.startFetchLocked(ctx, e)
		ds = c.deliveriesLocked(e, now)
	} else {
		ds = []delivery{{sub: sub, snap: e.snapshot(c.policy, now)}}
	}
	c.mu.Unlock()

	deliver(ds)
	return sub, nil
}

// Key returns the subscribed key.
func (s *Subscription) Key() Key {
	return s.key
}

// Active reports whether the subscription still receives updates.
func (s *Subscription) Active() bool {
	return s.active.Load()
}

// Snapshot returns the current state of the subscribed key.
func (s *Subscription) Snapshot() (Snapshot, bool) {
	return s.client.Snapshot(s.key)
}

// Refetch invalidates the subscribed key and waits for the refetch.
func (s *Subscription) Refetch(ctx context.Context) error {
	return s.client.Refetch(ctx, MatchExact(s.key))
}

// Unsubscribe stops delivery. When the last subscription for a key goes
// away, the entry becomes eligible for garbage collection. Calling it more
// than once is a no-op.
func (s *Subscription) Unsubscribe() {
	s.once.Do(func() {
		s.active.Store(false)

		c := s.client
		c.mu.Lock()
		defer c.mu.Unlock()

		e, ok := c.entries[s.key.String()]
		if !ok {
			return
		}
		if _, ok := e.subs[s.id]; !ok {
			return
		}
		delete(e.subs, s.id)
		c.scheduleGCLocked(e)
	})
}

// deliver hands snap to the listener. If a delivery is already running on
// another goroutine, or further up this one's stack, snap is parked and
// picked up by that delivery loop.
func (s *Subscription) deliver(snap Snapshot) {
	if s.listener == nil || !s.active.Load() {
		return
	}

	s.mu.Lock()
	if s.next == nil || snap.Version > s.next.Version {
		s.next = &snap
	}
	if s.running {
		s.mu.Unlock()
		return
	}
	s.running = true

	for s.next != nil {
		cur := *s.next
		s.next = nil
		if s.delivered && cur.Version <= s.lastVersion {
			continue
		}
		s.delivered = true
		s.lastVersion = cur.Version
		s.mu.Unlock()

		if s.active.Load() {
			s.listener(cur)
		}

		s.mu.Lock()
	}
	s.running = false
	s.mu.Unlock()
}
