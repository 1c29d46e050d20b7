package cms

import (
	"context"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/jonwraymond/querysync/auth"
	"github.com/jonwraymond/querysync/fetch"
	"github.com/jonwraymond/querysync/observe"
	"github.com/jonwraymond/querysync/query"
)

// Resource kinds. Each is the first element of every cache key for that
// resource, so invalidating a kind reaches every filter variant.
const (
	KindBlogs         = "blogs"
	KindInitiatives   = "initiatives"
	KindResources     = "resources"
	KindJobs          = "jobs"
	KindComments      = "comments"
	KindAnnouncements = "announcements"
	KindPartners      = "partners"
	KindBadges        = "badges"
	KindUsers         = "users"
	KindAuditLogs     = "audit-logs"
	KindHero          = "hero"
	KindDashboard     = "dashboard"
	KindSubscribers   = "subscribers"
)

// Access resources that are not cache kinds.
const (
	ResourceModeration = "comment-moderation"
	ResourceUploads    = "uploads"
)

// DefaultAccess returns the CMS role rules: content is public to read and
// needs a technical user to change; accounts and the audit trail are
// admin-only.
func DefaultAccess() auth.RBACConfig {
	content := auth.AccessRule{Read: auth.RoleNone, Write: auth.RoleTechnical}
	staff := auth.AccessRule{Read: auth.RoleTechnical, Write: auth.RoleTechnical}
	admin := auth.AccessRule{Read: auth.RoleAdmin, Write: auth.RoleAdmin}

	return auth.RBACConfig{
		Resources: map[string]auth.AccessRule{
			KindBlogs:          content,
			KindInitiatives:    content,
			KindResources:      content,
			KindJobs:           content,
			KindAnnouncements:  content,
			KindPartners:       content,
			KindBadges:         content,
			KindHero:           content,
			KindComments:       {Read: auth.RoleNone, Write: auth.RoleNone},
			ResourceModeration: staff,
			ResourceUploads:    staff,
			KindDashboard:      staff,
			KindSubscribers:    staff,
			KindUsers:          admin,
			KindAuditLogs:      admin,
		},
		Default: auth.AccessRule{Read: auth.RoleNone, Write: auth.RoleAdmin},
	}
}

// API is the typed CMS client: queries read through the shared cache and
// mutations write through the backend and invalidate what they change.
//
// Contract:
// - Concurrency: safe for concurrent use.
// - Errors: backend failures surface as fetch errors, role checks as
//   *auth.AuthzError, bad input as *ValidationError.
type API struct {
	http     *fetch.Client
	cache    *query.Client
	session  *auth.Session
	authz    auth.Authorizer
	validate *validator.Validate
	logger   observe.Logger
	now      func() time.Time
}

// Option configures an API.
type Option func(*API)

// WithSession enables login, role checks and the audit trail.
func WithSession(s *auth.Session) Option {
	return func(a *API) {
		a.session = s
	}
}

// WithAuthorizer replaces the role rules.
// Default: auth.NewRoleAuthorizer(DefaultAccess())
func WithAuthorizer(authz auth.Authorizer) Option {
	return func(a *API) {
		if authz != nil {
			a.authz = authz
		}
	}
}

// WithLogger sets the logger for best-effort side effects.
func WithLogger(l observe.Logger) Option {
	return func(a *API) {
		if l != nil {
			a.logger = l
		}
	}
}

// WithClock overrides the time source for audit timestamps.
func WithClock(now func() time.Time) Option {
	return func(a *API) {
		if now != nil {
			a.now = now
		}
	}
}

// New binds an API to a fetch client and a cache.
func New(http *fetch.Client, cache *query.Client, opts ...Option) (*API, error) {
	if http == nil {
		return nil, ErrNilFetchClient
	}
	if cache == nil {
		return nil, ErrNilCache
	}

	a := &API{
		http:     http,
		cache:    cache,
		authz:    auth.NewRoleAuthorizer(DefaultAccess()),
		validate: newValidator(),
		logger:   observe.NopLogger(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a, nil
}

// Cache returns the query client backing the API.
func (a *API) Cache() *query.Client {
	return a.cache
}

// Session returns the configured session, or nil.
func (a *API) Session() *auth.Session {
	return a.session
}

// authorize checks the session against the role rules. Without a session
// every restricted action is refused as not logged in.
func (a *API) authorize(ctx context.Context, resource, action string) error {
	if a.session == nil {
		return a.authz.Authorize(ctx, &auth.AuthzRequest{Resource: resource, Action: action})
	}
	return a.session.Authorize(ctx, a.authz, resource, action)
}

var _ fetch.HeaderProvider = (*auth.Session)(nil)
