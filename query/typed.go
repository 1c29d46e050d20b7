package query

import (
	"context"
	"fmt"
	"time"
)

// Query binds a key to a typed fetch function. A Query with a nil Fetch is
// disabled: it can be read and watched but never loads.
type Query[T any] struct {
	Key   Key
	Fetch func(ctx context.Context) (T, error)
}

// Enabled reports whether the query may trigger a fetch.
func (q Query[T]) Enabled() bool {
	return q.Fetch != nil
}

func (q Query[T]) fetchFunc() FetchFunc {
	if q.Fetch == nil {
		return nil
	}
	return func(ctx context.Context) (any, error) {
		return q.Fetch(ctx)
	}
}

// Fetch returns q's data, from cache when fresh and otherwise from the
// backend, deduplicated with other callers of the same key.
func Fetch[T any](ctx context.Context, c *Client, q Query[T]) (T, error) {
	var zero T
	if !q.Enabled() {
		if v, ok := Peek[T](c, q.Key); ok {
			return v, nil
		}
		return zero, ErrNotCached
	}
	v, err := c.GetOrFetch(ctx, q.Key, q.fetchFunc())
	if err != nil {
		return zero, err
	}
	return cast[T](q.Key, v)
}

// Prefetch loads q into the cache without returning its data.
func Prefetch[T any](ctx context.Context, c *Client, q Query[T]) error {
	_, err := Fetch(ctx, c, q)
	return err
}

// Peek returns cached data for key without fetching. It reports false if
// nothing is cached or the cached value is not a T.
func Peek[T any](c *Client, key Key) (T, bool) {
	var zero T
	if c == nil {
		return zero, false
	}
	v, ok := c.GetData(key)
	if !ok {
		return zero, false
	}
	t, err := cast[T](key, v)
	if err != nil {
		return zero, false
	}
	return t, true
}

// State is the typed form of a Snapshot.
type State[T any] struct {
	Key       Key
	Data      T
	HasData   bool
	Status    Status
	Err       error
	FetchedAt time.Time
	Stale     bool
	Fetching  bool
	Version   uint64
}

// Loading reports whether the query has no data yet and a fetch is running.
func (s State[T]) Loading() bool {
	return !s.HasData && s.Fetching
}

// StateOf converts a Snapshot. A value of the wrong type is reported as an
// error state with the snapshot's other fields kept.
func StateOf[T any](snap Snapshot) State[T] {
	st := State[T]{
		Key:       snap.Key,
		HasData:   snap.HasData,
		Status:    snap.Status,
		Err:       snap.Err,
		FetchedAt: snap.FetchedAt,
		Stale:     snap.Stale,
		Fetching:  snap.Fetching,
		Version:   snap.Version,
	}
	if snap.HasData {
		v, err := cast[T](snap.Key, snap.Data)
		if err != nil {
			st.HasData = false
			st.Status = StatusError
			st.Err = err
		} else {
			st.Data = v
		}
	}
	return st
}

// Watch subscribes to q and calls fn with typed state on every change.
func Watch[T any](ctx context.Context, c *Client, q Query[T], fn func(State[T])) (*Subscription, error) {
	var listener Listener
	if fn != nil {
		listener = func(snap Snapshot) {
			fn(StateOf[T](snap))
		}
	}
	return c.Subscribe(ctx, q.Key, q.fetchFunc(), listener)
}

// SetData writes a typed value for key.
func SetData[T any](c *Client, key Key, v T) {
	c.SetData(key, v)
}

// UpdateData applies fn to the cached value for key and stores the result.
// It does nothing if no T is cached.
func UpdateData[T any](c *Client, key Key, fn func(T) T) bool {
	cur, ok := Peek[T](c, key)
	if !ok {
		return false
	}
	c.SetData(key, fn(cur))
	return true
}

func cast[T any](key Key, v any) (T, error) {
	if t, ok := v.(T); ok {
		return t, nil
	}
	var zero T
	if v == nil {
		return zero, nil
	}
	return zero, fmt.Errorf("%w: %s holds %T, want %T", ErrTypeMismatch, key, v, zero)
}
