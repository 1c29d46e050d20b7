package health

import (
	"context"

	"github.com/jonwraymond/querysync/query"
)

// CacheChecker reports on the query cache. Entries that someone is watching
// and whose last fetch failed make the cache degraded; unwatched failures
// are ignored since nothing displays them.
type CacheChecker struct {
	cache *query.Client
}

func NewCacheChecker(c *query.Client) *CacheChecker {
	return &CacheChecker{cache: c}
}

func (c *CacheChecker) Name() string {
	return "cache"
}

func (c *CacheChecker) Check(_ context.Context) Result {
	var watched, fetching int
	var failing []string
	snaps := c.cache.Snapshots()
	for _, s := range snaps {
		if s.Fetching {
			fetching++
		}
		if s.Subscribers == 0 {
			continue
		}
		watched++
		if s.Status == query.StatusError {
			failing = append(failing, s.Key.String())
		}
	}

	details := map[string]any{
		"entries":  len(snaps),
		"watched":  watched,
		"fetching": fetching,
	}
	if len(failing) > 0 {
		details["failing"] = failing
		r := Degraded("watched queries failing").WithDetails(details)
		r.Error = ErrEntriesFailing
		return r
	}
	return Healthy("cache ok").WithDetails(details)
}
