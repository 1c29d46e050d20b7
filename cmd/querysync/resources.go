package main

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/jonwraymond/querysync/cms"
	"github.com/jonwraymond/querysync/query"
)

// listFlags are the filters accepted by list and watch.
type listFlags struct {
	category string
	typ      string
	all      bool
	postID   int64
	status   string
	slug     string
	page     string
}

// target is a query with its result type erased, so commands can pick a
// resource at runtime.
type target struct {
	key   query.Key
	fetch query.FetchFunc
}

func erase[T any](q query.Query[T]) target {
	return target{
		key: q.Key,
		fetch: func(ctx context.Context) (any, error) {
			return q.Fetch(ctx)
		},
	}
}

// resources maps command line names to queries.
var resources = map[string]func(api *cms.API, f listFlags) target{
	"blogs": func(api *cms.API, f listFlags) target {
		if f.slug != "" {
			return erase(api.Blog(f.slug))
		}
		return erase(api.Blogs(f.typ, f.category))
	},
	"news": func(api *cms.API, _ listFlags) target { return erase(api.News()) },
	"initiatives": func(api *cms.API, f listFlags) target {
		if f.slug != "" {
			return erase(api.Initiative(f.slug))
		}
		return erase(api.Initiatives())
	},
	"resources": func(api *cms.API, f listFlags) target { return erase(api.Resources(f.category)) },
	"jobs":      func(api *cms.API, f listFlags) target { return erase(api.Jobs(f.all)) },
	"comments": func(api *cms.API, f listFlags) target {
		return erase(api.Comments(cms.CommentFilter{PostID: f.postID, Status: f.status}))
	},
	"announcements": func(api *cms.API, _ listFlags) target { return erase(api.Announcements()) },
	"partners":      func(api *cms.API, _ listFlags) target { return erase(api.Partners()) },
	"badges":        func(api *cms.API, _ listFlags) target { return erase(api.Badges()) },
	"users":         func(api *cms.API, _ listFlags) target { return erase(api.Users()) },
	"audit-logs":    func(api *cms.API, _ listFlags) target { return erase(api.AuditLogs()) },
	"hero": func(api *cms.API, f listFlags) target {
		page := f.page
		if page == "" {
			page = "home"
		}
		return erase(api.Hero(page))
	},
	"dashboard":   func(api *cms.API, _ listFlags) target { return erase(api.DashboardStats()) },
	"subscribers": func(api *cms.API, _ listFlags) target { return erase(api.SubscriberAnalytics()) },
}

func resourceNames() []string {
	names := make([]string, 0, len(resources))
	for name := range resources {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func lookup(api *cms.API, name string, f listFlags) (target, error) {
	build, ok := resources[name]
	if !ok {
		return target{}, fmt.Errorf("%w: %q (one of %s)", cms.ErrUnknownResource, name, strings.Join(resourceNames(), ", "))
	}
	return build(api, f), nil
}
