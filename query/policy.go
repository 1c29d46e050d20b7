package query

import "time"

// Policy configures freshness and retention of cache entries.
type Policy struct {
	// StaleTime is how long a successful result counts as fresh for callers
	// that do not hold a subscription. Zero means stale immediately after
	// settle; subscribed entries stay fresh until invalidated.
	StaleTime time.Duration

	// GCTime is how long an entry with no subscribers is retained before it
	// is evicted. Zero disables eviction.
	GCTime time.Duration

	// FetchTimeout bounds a shared fetch, which runs detached from the
	// cancellation of any single caller. Zero means no timeout.
	FetchTimeout time.Duration
}

// DefaultPolicy returns the default policy.
// StaleTime: 0, GCTime: 5 minutes, FetchTimeout: 30 seconds
func DefaultPolicy() Policy {
	return Policy{
		StaleTime:    0,
		GCTime:       5 * time.Minute,
		FetchTimeout: 30 * time.Second,
	}
}

// expired reports whether a result fetched at fetchedAt is outside the
// staleness window at now.
func (p Policy) expired(fetchedAt, now time.Time) bool {
	if p.StaleTime <= 0 {
		return true
	}
	return !now.Before(fetchedAt.Add(p.StaleTime))
}

// staleAt returns the instant a result fetched at fetchedAt goes stale.
func (p Policy) staleAt(fetchedAt time.Time) time.Time {
	if p.StaleTime <= 0 {
		return fetchedAt
	}
	return fetchedAt.Add(p.StaleTime)
}
