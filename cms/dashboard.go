package cms

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/jonwraymond/querysync/auth"
	"github.com/jonwraymond/querysync/query"
)

// PrefetchDashboard warms every query the admin dashboard shows. The audit
// trail is only loaded for admins. The first failure is returned; the other
// fetches still complete into the cache.
func (a *API) PrefetchDashboard(ctx context.Context) error {
	var g errgroup.Group

	g.Go(func() error { return query.Prefetch(ctx, a.cache, a.DashboardStats()) })
	g.Go(func() error { return query.Prefetch(ctx, a.cache, a.SubscriberAnalytics()) })
	g.Go(func() error { return query.Prefetch(ctx, a.cache, a.AdminComments(CommentPending)) })
	if a.session != nil && a.session.HasPermission(auth.RoleAdmin) {
		g.Go(func() error { return query.Prefetch(ctx, a.cache, a.AuditLogs()) })
	}
	return g.Wait()
}
