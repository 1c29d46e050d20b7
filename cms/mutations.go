package cms

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/jonwraymond/querysync/auth"
	"github.com/jonwraymond/querysync/fetch"
	"github.com/jonwraymond/querysync/observe"
	"github.com/jonwraymond/querysync/query"
)

// adminMutation builds a role-checked mutation that invalidates kinds and
// records an audit entry on success.
func adminMutation[In, Out any](a *API, name, resource, action string, run func(context.Context, In) (Out, error), details func(In, Out) string, kinds ...string) query.Mutation[In, Out] {
	return query.Mutation[In, Out]{
		Name:        name,
		Run:         run,
		Invalidates: []query.Predicate{query.MatchKind(kinds...)},
		Authorize: func(ctx context.Context) error {
			return a.authorize(ctx, resource, action)
		},
		OnSuccess: func(ctx context.Context, in In, out Out) {
			a.audit(ctx, strings.ToUpper(name), details(in, out))
		},
	}
}

// audit records an admin action. It is best effort: failures are logged and
// never reach the caller, and nothing is recorded without a logged in user.
func (a *API) audit(ctx context.Context, action, details string) {
	if a.session == nil {
		return
	}
	id := a.session.Identity()
	if id == nil {
		return
	}

	entry := AuditLog{
		Action:    action,
		Details:   details,
		UserID:    id.UserID,
		UserName:  id.Name(),
		UserRole:  string(id.Role),
		Timestamp: a.now().UTC().Format(time.RFC3339),
	}
	if err := a.http.Post(ctx, "/audit-logs", entry, nil); err != nil {
		a.logger.Warn(ctx, "audit log not recorded",
			observe.Field{Key: "action", Value: action},
			observe.Field{Key: "error", Value: err},
		)
		return
	}
	a.cache.Invalidate(ctx, query.MatchKind(KindAuditLogs))
}

func idPath(base string, id int64) string {
	return base + "/" + strconv.FormatInt(id, 10)
}

// create runs a validated POST of in to path.
func create[T any](ctx context.Context, a *API, name, kind, path string, in T, title func(T) string, kinds ...string) (T, error) {
	if err := a.check(in); err != nil {
		var zero T
		return zero, err
	}
	m := adminMutation(a, name, kind, auth.ActionCreate,
		func(ctx context.Context, in T) (T, error) {
			return fetch.PostJSON[T](ctx, a.http, path, in)
		},
		func(in, _ T) string { return fmt.Sprintf("Created %s: %s", kind, title(in)) },
		append([]string{kind}, kinds...)...,
	)
	return query.Mutate(ctx, a.cache, m, in)
}

type update[T any] struct {
	id   int64
	body T
}

// replace runs a validated PUT of in to path/id.
func replace[T any](ctx context.Context, a *API, name, kind, path string, id int64, in T, kinds ...string) (T, error) {
	if err := a.check(in); err != nil {
		var zero T
		return zero, err
	}
	m := adminMutation(a, name, kind, auth.ActionUpdate,
		func(ctx context.Context, u update[T]) (T, error) {
			return fetch.PutJSON[T](ctx, a.http, idPath(path, u.id), u.body)
		},
		func(u update[T], _ T) string { return fmt.Sprintf("Updated %s #%d", kind, u.id) },
		append([]string{kind}, kinds...)...,
	)
	return query.Mutate(ctx, a.cache, m, update[T]{id: id, body: in})
}

// deletable maps each deletable kind to its endpoint, access resource and
// any extra kinds its removal makes stale.
var deletable = map[string]struct {
	path     string
	resource string
	also     []string
}{
	KindBlogs:         {"/blogs", KindBlogs, []string{KindDashboard}},
	KindJobs:          {"/jobs", KindJobs, nil},
	KindInitiatives:   {"/initiatives", KindInitiatives, nil},
	KindResources:     {"/resources", KindResources, nil},
	KindAnnouncements: {"/announcements", KindAnnouncements, nil},
	KindPartners:      {"/partners", KindPartners, nil},
	KindBadges:        {"/badges", KindBadges, nil},
	KindComments:      {"/comments", ResourceModeration, nil},
	KindUsers:         {"/users", KindUsers, []string{KindDashboard}},
}

// Delete removes item id of kind and invalidates every cached query of
// that kind.
func (a *API) Delete(ctx context.Context, kind string, id int64) error {
	d, ok := deletable[kind]
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownResource, kind)
	}
	m := adminMutation(a, "delete_"+kind, d.resource, auth.ActionDelete,
		func(ctx context.Context, id int64) (struct{}, error) {
			return struct{}{}, a.http.Delete(ctx, idPath(d.path, id))
		},
		func(id int64, _ struct{}) string { return fmt.Sprintf("Deleted %s #%d", kind, id) },
		append([]string{kind}, d.also...)...,
	)
	_, err := query.Mutate(ctx, a.cache, m, id)
	return err
}

// DeletableKinds lists the kinds Delete accepts.
func DeletableKinds() []string {
	return []string{
		KindAnnouncements, KindBadges, KindBlogs, KindComments, KindInitiatives,
		KindJobs, KindPartners, KindResources, KindUsers,
	}
}

// CreateBlogPost publishes a blog or news post.
func (a *API) CreateBlogPost(ctx context.Context, p BlogPost) (BlogPost, error) {
	return create(ctx, a, "create_post", KindBlogs, "/blogs", p,
		func(p BlogPost) string { return p.Title }, KindDashboard)
}

func (a *API) UpdateBlogPost(ctx context.Context, id int64, p BlogPost) (BlogPost, error) {
	return replace(ctx, a, "update_post", KindBlogs, "/blogs", id, p)
}

func (a *API) DeleteBlogPost(ctx context.Context, id int64) error {
	return a.Delete(ctx, KindBlogs, id)
}

func (a *API) CreateJob(ctx context.Context, j Job) (Job, error) {
	return create(ctx, a, "create_job", KindJobs, "/jobs", j, func(j Job) string { return j.Title })
}

func (a *API) UpdateJob(ctx context.Context, id int64, j Job) (Job, error) {
	return replace(ctx, a, "update_job", KindJobs, "/jobs", id, j)
}

func (a *API) DeleteJob(ctx context.Context, id int64) error {
	return a.Delete(ctx, KindJobs, id)
}

func (a *API) CreateInitiative(ctx context.Context, in Initiative) (Initiative, error) {
	return create(ctx, a, "create_initiative", KindInitiatives, "/initiatives", in,
		func(in Initiative) string { return in.Title })
}

func (a *API) UpdateInitiative(ctx context.Context, id int64, in Initiative) (Initiative, error) {
	return replace(ctx, a, "update_initiative", KindInitiatives, "/initiatives", id, in)
}

func (a *API) DeleteInitiative(ctx context.Context, id int64) error {
	return a.Delete(ctx, KindInitiatives, id)
}

func (a *API) CreateResource(ctx context.Context, r Resource) (Resource, error) {
	return create(ctx, a, "create_resource", KindResources, "/resources", r,
		func(r Resource) string { return r.Title })
}

func (a *API) DeleteResource(ctx context.Context, id int64) error {
	return a.Delete(ctx, KindResources, id)
}

func (a *API) CreateAnnouncement(ctx context.Context, an Announcement) (Announcement, error) {
	return create(ctx, a, "create_announcement", KindAnnouncements, "/announcements", an,
		func(an Announcement) string { return an.Title })
}

func (a *API) DeleteAnnouncement(ctx context.Context, id int64) error {
	return a.Delete(ctx, KindAnnouncements, id)
}

func (a *API) CreatePartner(ctx context.Context, p Partner) (Partner, error) {
	return create(ctx, a, "create_partner", KindPartners, "/partners", p,
		func(p Partner) string { return p.Name })
}

func (a *API) DeletePartner(ctx context.Context, id int64) error {
	return a.Delete(ctx, KindPartners, id)
}

func (a *API) CreateBadge(ctx context.Context, b Badge) (Badge, error) {
	return create(ctx, a, "create_badge", KindBadges, "/badges", b, func(b Badge) string { return b.Name })
}

func (a *API) DeleteBadge(ctx context.Context, id int64) error {
	return a.Delete(ctx, KindBadges, id)
}

// CreateUser adds a CMS account. Admin only.
func (a *API) CreateUser(ctx context.Context, u User) (User, error) {
	return create(ctx, a, "create_user", KindUsers, "/users", u,
		func(u User) string { return u.Email + " as " + u.Role }, KindDashboard)
}

// UpdateUser changes the non-empty fields of u, e.g. a role change.
func (a *API) UpdateUser(ctx context.Context, id int64, u UserUpdate) (User, error) {
	if err := a.check(u); err != nil {
		return User{}, err
	}
	m := adminMutation(a, "update_user", KindUsers, auth.ActionUpdate,
		func(ctx context.Context, u UserUpdate) (User, error) {
			return fetch.PutJSON[User](ctx, a.http, idPath("/users", id), u)
		},
		func(u UserUpdate, _ User) string {
			if u.Role != "" {
				return fmt.Sprintf("Changed user %d role to %s", id, u.Role)
			}
			return fmt.Sprintf("Updated user #%d", id)
		},
		KindUsers,
	)
	return query.Mutate(ctx, a.cache, m, u)
}

func (a *API) DeleteUser(ctx context.Context, id int64) error {
	return a.Delete(ctx, KindUsers, id)
}

// CreateComment posts a public comment. The backend stores it as pending,
// so it does not appear in the post's approved list until moderated.
func (a *API) CreateComment(ctx context.Context, c Comment) (Comment, error) {
	if err := a.check(c); err != nil {
		return Comment{}, err
	}
	return query.Mutate(ctx, a.cache, query.Mutation[Comment, Comment]{
		Name: "create_comment",
		Run: func(ctx context.Context, c Comment) (Comment, error) {
			return fetch.PostJSON[Comment](ctx, a.http, "/comments", c)
		},
		Invalidates: []query.Predicate{query.MatchKind(KindComments)},
	}, c)
}

// SetCommentStatus approves or rejects a comment.
func (a *API) SetCommentStatus(ctx context.Context, id int64, status string) error {
	switch status {
	case CommentPending, CommentApproved, CommentRejected:
	default:
		return &ValidationError{Type: "Comment", Fields: []FieldError{{
			Field: "status",
			Rule:  "oneof",
			Param: strings.Join([]string{CommentPending, CommentApproved, CommentRejected}, " "),
		}}}
	}

	m := adminMutation(a, "moderate_comment", ResourceModeration, auth.ActionUpdate,
		func(ctx context.Context, status string) (struct{}, error) {
			body := map[string]string{"status": status}
			return struct{}{}, a.http.Put(ctx, idPath("/comments", id)+"/status", body, nil)
		},
		func(status string, _ struct{}) string { return fmt.Sprintf("Set comment #%d to %s", id, status) },
		KindComments,
	)
	_, err := query.Mutate(ctx, a.cache, m, status)
	return err
}

func (a *API) DeleteComment(ctx context.Context, id int64) error {
	return a.Delete(ctx, KindComments, id)
}

// UpdateHero saves a page banner and writes the result straight into the
// cached Hero(page) entry.
func (a *API) UpdateHero(ctx context.Context, h HeroContent) (HeroContent, error) {
	if err := a.check(h); err != nil {
		return HeroContent{}, err
	}
	m := adminMutation(a, "update_hero", KindHero, auth.ActionUpdate,
		func(ctx context.Context, h HeroContent) (HeroContent, error) {
			return fetch.PostJSON[HeroContent](ctx, a.http, "/content/hero", h)
		},
		func(h HeroContent, _ HeroContent) string { return "Updated hero for " + h.Page },
	)
	m.Invalidates = nil
	m.Update = func(c *query.Client, _ HeroContent, out HeroContent) {
		query.SetData(c, heroKey(out.Page), out)
	}
	return query.Mutate(ctx, a.cache, m, h)
}

// SubmitContact sends the public contact form.
func (a *API) SubmitContact(ctx context.Context, msg ContactMessage) error {
	if err := a.check(msg); err != nil {
		return err
	}
	_, err := query.Mutate(ctx, a.cache, query.Mutation[ContactMessage, message]{
		Name: "submit_contact",
		Run: func(ctx context.Context, msg ContactMessage) (message, error) {
			return fetch.PostJSON[message](ctx, a.http, "/contact", msg)
		},
	}, msg)
	return err
}

// Subscribe signs email up for the newsletter topics.
func (a *API) Subscribe(ctx context.Context, s Subscription) error {
	if err := a.check(s); err != nil {
		return err
	}
	_, err := query.Mutate(ctx, a.cache, query.Mutation[Subscription, message]{
		Name: "subscribe",
		Run: func(ctx context.Context, s Subscription) (message, error) {
			return fetch.PostJSON[message](ctx, a.http, "/subscribe", s)
		},
		Invalidates: []query.Predicate{query.MatchKind(KindSubscribers, KindDashboard)},
	}, s)
	return err
}

// Upload stores a file and returns where the backend put it.
func (a *API) Upload(ctx context.Context, filename string, r io.Reader) (fetch.UploadResult, error) {
	if err := a.authorize(ctx, ResourceUploads, auth.ActionCreate); err != nil {
		return fetch.UploadResult{}, err
	}
	return a.http.Upload(ctx, filename, r)
}
