package query

import (
	"sort"
	"time"
)

// Status is the fetch status of a cache entry.
type Status int

const (
	// StatusIdle means the entry exists but has never been fetched.
	StatusIdle Status = iota
	// StatusLoading means a fetch for the entry is in flight.
	StatusLoading
	// StatusSuccess means the last fetch succeeded.
	StatusSuccess
	// StatusError means the last fetch failed. Data from an earlier
	// success, if any, is kept.
	StatusError
)

// String returns the string representation of the status.
func (s Status) String() string {
	switch s {
	case StatusIdle:
		return "idle"
	case StatusLoading:
		return "loading"
	case StatusSuccess:
		return "success"
	case StatusError:
		return "error"
	default:
		return "unknown"
	}
}

// Snapshot is a point-in-time copy of a cache entry. Views receive snapshots
// and never hold the entry itself.
type Snapshot struct {
	Key         Key
	Data        any
	HasData     bool
	Status      Status
	Err         error
	FetchedAt   time.Time
	StaleAt     time.Time
	Stale       bool
	Fetching    bool
	Subscribers int
	Version     uint64
}

// call is the shared record of one in-flight fetch.
type call struct {
	done chan struct{}
	val  any
	err  error
}

// entry is the cached state for one key. All fields are guarded by Client.mu.
type entry struct {
	key         Key
	data        any
	hasData     bool
	status      Status
	err         error
	fetchedAt   time.Time
	staleAt     time.Time
	invalidated bool

	// refetchAfter is set when the entry is invalidated while a fetch is in
	// flight; that fetch may carry pre-invalidation data.
	refetchAfter bool

	fetch    FetchFunc
	inflight *call
	subs     map[uint64]*Subscription
	version  uint64
	gcTimer  *time.Timer
}

func newEntry(key Key) *entry {
	return &entry{
		key:    key,
		status: StatusIdle,
		subs:   make(map[uint64]*Subscription),
	}
}

// stale reports whether the entry's data may no longer reflect the backend.
// Data held by a subscriber stays fresh until it is invalidated.
func (e *entry) stale(p Policy, now time.Time) bool {
	if !e.hasData || e.invalidated {
		return true
	}
	if len(e.subs) > 0 {
		return false
	}
	return p.expired(e.fetchedAt, now)
}

func (e *entry) snapshot(p Policy, now time.Time) Snapshot {
	return Snapshot{
		Key:         e.key,
		Data:        e.data,
		HasData:     e.hasData,
		Status:      e.status,
		Err:         e.err,
		FetchedAt:   e.fetchedAt,
		StaleAt:     e.staleAt,
		Stale:       e.stale(p, now),
		Fetching:    e.inflight != nil,
		Subscribers: len(e.subs),
		Version:     e.version,
	}
}

// delivery pairs a subscriber with the snapshot it should receive.
type delivery struct {
	sub  *Subscription
	snap Snapshot
}

func deliver(ds []delivery) {
	for _, d := range ds {
		d.sub.deliver(d.snap)
	}
}

// entryLocked returns the entry for key, creating it if needed.
func (c *Client) entryLocked(key Key) *entry {
	e, ok := c.entries[key.String()]
	if !ok {
		e = newEntry(key)
		c.entries[key.String()] = e
	}
	return e
}

// deliveriesLocked captures the current snapshot for every live subscriber.
func (c *Client) deliveriesLocked(e *entry, now time.Time) []delivery {
	if len(e.subs) == 0 {
		return nil
	}
	snap := e.snapshot(c.policy, now)
	ds := make([]delivery, 0, len(e.subs))
	for _, sub := range e.subs {
		ds = append(ds, delivery{sub: sub, snap: snap})
	}
	return ds
}

// freshLocked reports whether e can be served without fetching.
func (c *Client) freshLocked(e *entry, now time.Time) bool {
	if e.status != StatusSuccess || e.invalidated {
		return false
	}
	if len(e.subs) > 0 {
		return true
	}
	return !c.policy.expired(e.fetchedAt, now)
}

// needsFetchLocked reports whether a new subscriber should trigger a fetch.
func (c *Client) needsFetchLocked(e *entry, now time.Time) bool {
	if e.fetch == nil || e.inflight != nil {
		return false
	}
	if e.status != StatusSuccess || e.invalidated {
		return true
	}
	return c.policy.expired(e.fetchedAt, now)
}

func (c *Client) scheduleGCLocked(e *entry) {
	if c.policy.GCTime <= 0 || len(e.subs) > 0 {
		return
	}
	if e.gcTimer != nil {
		e.gcTimer.Stop()
	}
	e.gcTimer = time.AfterFunc(c.policy.GCTime, func() {
		c.collect(e)
	})
}

func (c *Client) stopGCLocked(e *entry) {
	if e.gcTimer != nil {
		e.gcTimer.Stop()
		e.gcTimer = nil
	}
}

// collect evicts e if it is still unreferenced and idle.
func (c *Client) collect(e *entry) {
	c.mu.Lock()
	defer c.mu.Unlock()

	cur, ok := c.entries[e.key.String()]
	if !ok || cur != e || len(e.subs) > 0 || e.inflight != nil {
		return
	}
	delete(c.entries, e.key.String())
	e.gcTimer = nil
}

// Snapshot returns the current state of key, if an entry exists.
func (c *Client) Snapshot(key Key) (Snapshot, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key.String()]
	if !ok {
		return Snapshot{}, false
	}
	return e.snapshot(c.policy, c.now()), true
}

// Snapshots returns the state of every entry accepted by any of preds, or of
// all entries when preds is empty, ordered by canonical key.
func (c *Client) Snapshots(preds ...Predicate) []Snapshot {
	match := MatchAny(preds...)

	c.mu.Lock()
	now := c.now()
	out := make([]Snapshot, 0, len(c.entries))
	for _, e := range c.entries {
		if len(preds) > 0 && !match(e.key) {
			continue
		}
		out = append(out, e.snapshot(c.policy, now))
	}
	c.mu.Unlock()

	sort.Slice(out, func(i, j int) bool {
		return out[i].Key.String() < out[j].Key.String()
	})
	return out
}

// GetData returns the cached data for key without fetching.
func (c *Client) GetData(key Key) (any, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key.String()]
	if !ok || !e.hasData {
		return nil, false
	}
	return e.data, true
}

// SetData writes data for key as if it had just been fetched and notifies
// subscribers. A fetch already in flight for key may later overwrite it.
func (c *Client) SetData(key Key, data any) {
	c.mu.Lock()
	now := c.now()
	e := c.entryLocked(key)
	e.data = data
	e.hasData = true
	e.status = StatusSuccess
	e.err = nil
	e.fetchedAt = now
	e.staleAt = c.policy.staleAt(now)
	e.invalidated = false
	e.version++
	ds := c.deliveriesLocked(e, now)
	c.scheduleGCLocked(e)
	c.mu.Unlock()

	deliver(ds)
}

// Remove evicts idle entries accepted by any of preds and returns how many
// were removed. Entries with subscribers or a fetch in flight are kept.
func (c *Client) Remove(preds ...Predicate) int {
	match := MatchAny(preds...)

	c.mu.Lock()
	defer c.mu.Unlock()

	removed := 0
	for k, e := range c.entries {
		if !match(e.key) || len(e.subs) > 0 || e.inflight != nil {
			continue
		}
		c.stopGCLocked(e)
		delete(c.entries, k)
		removed++
	}
	return removed
}

// Reset drops every entry and deactivates every subscription. Fetches still
// in flight complete without writing to the cache.
func (c *Client) Reset() {
	c.mu.Lock()
	var subs []*Subscription
	for _, e := range c.entries {
		c.stopGCLocked(e)
		for _, sub := range e.subs {
			subs = append(subs, sub)
		}
	}
	c.entries = make(map[string]*entry)
	c.mu.Unlock()

	for _, sub := range subs {
		sub.active.Store(false)
	}
}
