package cms

import (
	"context"
	"net/url"
	"strconv"

	"github.com/jonwraymond/querysync/auth"
	"github.com/jonwraymond/querysync/fetch"
	"github.com/jonwraymond/querysync/query"
)

// get builds a query that GETs path and decodes T. Restricted queries name
// the access resource to check first; "" means public.
func get[T any](a *API, key query.Key, resource, path string, params url.Values) query.Query[T] {
	return query.Query[T]{
		Key: key,
		Fetch: func(ctx context.Context) (T, error) {
			if resource != "" {
				if err := a.authorize(ctx, resource, auth.ActionRead); err != nil {
					var zero T
					return zero, err
				}
			}
			return fetch.GetJSON[T](ctx, a.http, path, params)
		},
	}
}

// filters turns non-empty values into both key params and query string.
func filters(pairs ...string) (map[string]any, url.Values) {
	params := make(map[string]any)
	values := url.Values{}
	for i := 0; i+1 < len(pairs); i += 2 {
		if pairs[i+1] == "" {
			continue
		}
		params[pairs[i]] = pairs[i+1]
		values.Set(pairs[i], pairs[i+1])
	}
	return params, values
}

// category drops the "All" pseudo category.
func category(c string) string {
	if c == "All" {
		return ""
	}
	return c
}

// Blogs lists posts, optionally by type (TypeBlog, TypeNews) and category.
func (a *API) Blogs(typ, cat string) query.Query[[]BlogPost] {
	params, values := filters("type", typ, "category", category(cat))
	return get[[]BlogPost](a, query.NewKey(KindBlogs, params), "", "/blogs", values)
}

// News lists news items. It shares the blogs kind so any post mutation
// refreshes it.
func (a *API) News() query.Query[[]BlogPost] {
	return a.Blogs(TypeNews, "")
}

// Blog fetches one post by slug; an unknown slug fails with fetch.ErrNotFound.
func (a *API) Blog(slug string) query.Query[BlogPost] {
	key := query.NewKey(KindBlogs, map[string]any{"slug": slug})
	return get[BlogPost](a, key, "", "/blogs/"+url.PathEscape(slug), nil)
}

// Initiatives lists every programme.
func (a *API) Initiatives() query.Query[[]Initiative] {
	return get[[]Initiative](a, query.NewKey(KindInitiatives), "", "/initiatives", nil)
}

// Initiative fetches one programme by slug; an unknown slug fails with
// fetch.ErrNotFound.
func (a *API) Initiative(slug string) query.Query[Initiative] {
	key := query.NewKey(KindInitiatives, map[string]any{"slug": slug})
	return get[Initiative](a, key, "", "/initiatives/"+url.PathEscape(slug), nil)
}

// Resources lists downloads, optionally by category ("All" means any).
func (a *API) Resources(cat string) query.Query[[]Resource] {
	params, values := filters("category", category(cat))
	return get[[]Resource](a, query.NewKey(KindResources, params), "", "/resources", values)
}

// Jobs lists active vacancies, or every vacancy when all is set.
func (a *API) Jobs(all bool) query.Query[[]Job] {
	params := map[string]any{}
	var values url.Values
	if all {
		params["all"] = true
		values = url.Values{"all": {"true"}}
	}
	return get[[]Job](a, query.NewKey(KindJobs, params), "", "/jobs", values)
}

// CommentFilter narrows a comment listing.
type CommentFilter struct {
	// PostID selects the approved comments of one post. This is public.
	PostID int64

	// Status filters the moderation list when PostID is zero.
	Status string
}

// Comments lists comments. With a PostID the backend returns only approved
// comments whatever Status says; without one this is the moderation list
// and needs a technical user.
func (a *API) Comments(f CommentFilter) query.Query[[]Comment] {
	params := map[string]any{}
	values := url.Values{}
	resource := ResourceModeration
	if f.PostID != 0 {
		params["post_id"] = f.PostID
		values.Set("post_id", strconv.FormatInt(f.PostID, 10))
		resource = ""
	}
	if f.Status != "" {
		params["status"] = f.Status
		values.Set("status", f.Status)
	}
	return get[[]Comment](a, query.NewKey(KindComments, params), resource, "/comments", values)
}

// AdminComments is the moderation list filtered by status ("" for all).
func (a *API) AdminComments(status string) query.Query[[]Comment] {
	return a.Comments(CommentFilter{Status: status})
}

// Users lists CMS accounts without passwords. Admin only.
func (a *API) Users() query.Query[[]User] {
	return get[[]User](a, query.NewKey(KindUsers), KindUsers, "/users", nil)
}

// AuditLogs lists recorded admin actions. Admin only.
func (a *API) AuditLogs() query.Query[[]AuditLog] {
	return get[[]AuditLog](a, query.NewKey(KindAuditLogs), KindAuditLogs, "/audit-logs", nil)
}

// Announcements lists published home page banners.
func (a *API) Announcements() query.Query[[]Announcement] {
	return get[[]Announcement](a, query.NewKey(KindAnnouncements), "", "/announcements", nil)
}

// Partners lists partner organisations.
func (a *API) Partners() query.Query[[]Partner] {
	return get[[]Partner](a, query.NewKey(KindPartners), "", "/partners", nil)
}

// Badges lists awards shown on the home page.
func (a *API) Badges() query.Query[[]Badge] {
	return get[[]Badge](a, query.NewKey(KindBadges), "", "/badges", nil)
}

// Hero fetches the banner for page. The endpoint sits behind a token even
// though the content is public, so a logged out session gets 401.
func (a *API) Hero(page string) query.Query[HeroContent] {
	return get[HeroContent](a, heroKey(page), "", "/content/hero/"+url.PathEscape(page), nil)
}

func heroKey(page string) query.Key {
	return query.NewKey(KindHero, page)
}

// DashboardStats fetches the admin dashboard counters.
func (a *API) DashboardStats() query.Query[DashboardStats] {
	return get[DashboardStats](a, query.NewKey(KindDashboard, "stats"), KindDashboard, "/dashboard/stats", nil)
}

// SubscriberAnalytics fetches newsletter totals and the per-topic breakdown.
func (a *API) SubscriberAnalytics() query.Query[SubscriberAnalytics] {
	key := query.NewKey(KindSubscribers, "analytics")
	return get[SubscriberAnalytics](a, key, KindSubscribers, "/subscribers/analytics", nil)
}
