package cms_test

import (
	"bytes"
	"context"
	"errors"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonwraymond/querysync/apitest"
	"github.com/jonwraymond/querysync/auth"
	"github.com/jonwraymond/querysync/cms"
	"github.com/jonwraymond/querysync/fetch"
	"github.com/jonwraymond/querysync/query"
)

type harness struct {
	srv     *apitest.Server
	cache   *query.Client
	session *auth.Session
	api     *cms.API
}

// newHarness starts a demo backend and an API bound to a fresh cache. A
// non-empty role logs the session in with a token for that role.
func newHarness(t *testing.T, role auth.Role) *harness {
	t.Helper()
	srv := apitest.Start(t)
	srv.SeedDemo()

	session := auth.NewSession()
	if role != auth.RoleNone {
		require.NoError(t, session.Login(context.Background(), srv.TokenFor(role)))
	}
	httpClient, err := fetch.New(srv.URL, fetch.WithHeaders(session))
	require.NoError(t, err)

	cache := query.New()
	api, err := cms.New(httpClient, cache, cms.WithSession(session))
	require.NoError(t, err)
	return &harness{srv: srv, cache: cache, session: session, api: api}
}

func (h *harness) wait(t *testing.T) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, h.cache.Wait(ctx))
}

func watch[T any](t *testing.T, h *harness, q query.Query[T]) {
	t.Helper()
	sub, err := query.Watch(context.Background(), h.cache, q, nil)
	require.NoError(t, err)
	t.Cleanup(sub.Unsubscribe)
}

func peek[T any](t *testing.T, h *harness, q query.Query[T]) T {
	t.Helper()
	v, ok := query.Peek[T](h.cache, q.Key)
	require.True(t, ok, "nothing cached for %s", q.Key)
	return v
}

func TestNew_RequiresClients(t *testing.T) {
	httpClient, err := fetch.New("http://localhost/api")
	require.NoError(t, err)

	_, err = cms.New(nil, query.New())
	assert.ErrorIs(t, err, cms.ErrNilFetchClient)
	_, err = cms.New(httpClient, nil)
	assert.ErrorIs(t, err, cms.ErrNilCache)
}

func TestComments_NewCommentHiddenUntilApproved(t *testing.T) {
	for _, status := range []string{"", cms.CommentApproved} {
		t.Run("status="+status, func(t *testing.T) {
			h := newHarness(t, auth.RoleNone)
			ctx := context.Background()

			posts, err := query.Fetch(ctx, h.cache, h.api.Blogs(cms.TypeBlog, ""))
			require.NoError(t, err)
			var post cms.BlogPost
			for _, p := range posts {
				if p.Slug == "why-turnout-matters" {
					post = p
				}
			}
			require.NotZero(t, post.ID)

			comments := h.api.Comments(cms.CommentFilter{PostID: post.ID, Status: status})
			watch(t, h, comments)
			h.wait(t)
			require.Len(t, peek(t, h, comments), 1)

			created, err := h.api.CreateComment(ctx, cms.Comment{
				PostID:  post.ID,
				Author:  "Reader",
				Email:   "reader@example.org",
				Content: "Agreed.",
			})
			require.NoError(t, err)
			assert.Equal(t, cms.CommentPending, created.Status)
			assert.Equal(t, post.Title, created.PostTitle)

			h.wait(t)
			assert.Equal(t, 2, h.srv.Hits("GET /comments"), "subscribed list refetches after the comment is posted")
			assert.Len(t, peek(t, h, comments), 1, "pending comment is not shown")

			_, err = h.api.Login(ctx, apitest.DemoTechEmail, apitest.DemoTechPassword)
			require.NoError(t, err)
			require.NoError(t, h.api.SetCommentStatus(ctx, created.ID, cms.CommentApproved))

			h.wait(t)
			got := peek(t, h, comments)
			require.Len(t, got, 2)
			assert.Equal(t, "Agreed.", got[0].Content, "newest first")
		})
	}
}

func TestDeleteJob_RefetchesEveryJobsVariant(t *testing.T) {
	h := newHarness(t, auth.RoleAdmin)
	ctx := context.Background()

	active, all := h.api.Jobs(false), h.api.Jobs(true)
	require.False(t, active.Key.Equal(all.Key))
	watch(t, h, active)
	watch(t, h, all)
	h.wait(t)
	require.Len(t, peek(t, h, active), 2)
	require.Len(t, peek(t, h, all), 3)

	target := peek(t, h, active)[0]
	h.srv.ResetHits()
	require.NoError(t, h.api.DeleteJob(ctx, target.ID))
	h.wait(t)

	assert.Equal(t, 1, h.srv.Hits("DELETE /jobs/"+itoa(target.ID)))
	assert.Equal(t, 2, h.srv.Hits("GET /jobs"), "one refetch per cached variant")
	assert.Len(t, peek(t, h, active), 1)
	assert.Len(t, peek(t, h, all), 2)
	for _, j := range peek(t, h, all) {
		assert.NotEqual(t, target.ID, j.ID)
	}
}

func TestDelete_FailureLeavesCacheUntouched(t *testing.T) {
	h := newHarness(t, auth.RoleAdmin)
	ctx := context.Background()

	jobs := h.api.Jobs(false)
	watch(t, h, jobs)
	h.wait(t)
	before := peek(t, h, jobs)

	h.srv.ResetHits()
	h.srv.Fail("/jobs/"+itoa(before[0].ID), 500)
	err := h.api.DeleteJob(ctx, before[0].ID)
	require.Error(t, err)
	assert.Equal(t, 500, fetch.StatusCode(err))

	h.wait(t)
	assert.Zero(t, h.srv.Hits("GET /jobs"))
	assert.Zero(t, h.srv.Hits("POST /audit-logs"), "failed mutations are not audited")
	assert.Equal(t, before, peek(t, h, jobs))
}

func TestDelete_UnknownKind(t *testing.T) {
	h := newHarness(t, auth.RoleAdmin)
	err := h.api.Delete(context.Background(), "hero", 1)
	assert.ErrorIs(t, err, cms.ErrUnknownResource)
	assert.NotContains(t, cms.DeletableKinds(), cms.KindHero)
}

func TestMutations_AreRoleGated(t *testing.T) {
	tests := []struct {
		name string
		role auth.Role
		run  func(ctx context.Context, api *cms.API) error
		want error
	}{
		{
			name: "logged out delete",
			run:  func(ctx context.Context, api *cms.API) error { return api.DeleteJob(ctx, 1) },
			want: auth.ErrNotLoggedIn,
		},
		{
			name: "user cannot delete a job",
			role: auth.RoleUser,
			run:  func(ctx context.Context, api *cms.API) error { return api.DeleteJob(ctx, 1) },
			want: auth.ErrForbidden,
		},
		{
			name: "technical cannot manage users",
			role: auth.RoleTechnical,
			run: func(ctx context.Context, api *cms.API) error {
				_, err := api.CreateUser(ctx, cms.User{Username: "x", Email: "x@example.org", Role: "user", Password: "secret1"})
				return err
			},
			want: auth.ErrForbidden,
		},
		{
			name: "user cannot upload",
			role: auth.RoleUser,
			run: func(ctx context.Context, api *cms.API) error {
				_, err := api.Upload(ctx, "a.txt", bytes.NewBufferString("a"))
				return err
			},
			want: auth.ErrForbidden,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t, tt.role)
			h.srv.ResetHits()

			err := tt.run(context.Background(), h.api)
			require.ErrorIs(t, err, tt.want)

			var authzErr *auth.AuthzError
			assert.True(t, errors.As(err, &authzErr))
			assert.Zero(t, h.srv.Hits("DELETE /jobs/1"), "no request is sent")
			assert.Zero(t, h.srv.Hits("POST /users"))
			assert.Zero(t, h.srv.Hits("POST /upload"))
		})
	}
}

func TestQueries_RestrictedReadsNeedRole(t *testing.T) {
	h := newHarness(t, auth.RoleTechnical)
	ctx := context.Background()

	_, err := query.Fetch(ctx, h.cache, h.api.Users())
	assert.ErrorIs(t, err, auth.ErrForbidden)
	assert.Zero(t, h.srv.Hits("GET /users"))

	pending, err := query.Fetch(ctx, h.cache, h.api.AdminComments(cms.CommentPending))
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, "Which formats?", pending[0].Content)
}

func TestMutations_RecordAuditLog(t *testing.T) {
	h := newHarness(t, auth.RoleAdmin)
	ctx := context.Background()
	now := time.Date(2026, 4, 2, 10, 0, 0, 0, time.UTC)

	api, err := cms.New(mustFetch(t, h), h.cache, cms.WithSession(h.session), cms.WithClock(func() time.Time { return now }))
	require.NoError(t, err)

	logs := api.AuditLogs()
	watch(t, h, logs)
	h.wait(t)
	require.Empty(t, peek(t, h, logs))

	post, err := api.CreateBlogPost(ctx, cms.BlogPost{Title: "Results Are In", Type: cms.TypeNews})
	require.NoError(t, err)
	assert.NotZero(t, post.ID)
	h.wait(t)

	got := peek(t, h, logs)
	require.Len(t, got, 1)
	assert.Equal(t, "CREATE_POST", got[0].Action)
	assert.Equal(t, "Created blogs: Results Are In", got[0].Details)
	assert.Equal(t, "admin", got[0].UserRole)
	assert.Equal(t, "2026-04-02T10:00:00Z", got[0].Timestamp)
}

func TestAudit_FailureDoesNotFailMutation(t *testing.T) {
	h := newHarness(t, auth.RoleAdmin)
	h.srv.Fail("/audit-logs", 500)
	h.srv.ResetHits()
	before := len(h.srv.Records("partners"))

	created, err := h.api.CreatePartner(context.Background(), cms.Partner{Name: "Civic Lab"})
	require.NoError(t, err)
	assert.Equal(t, "Civic Lab", created.Name)
	assert.Len(t, h.srv.Records("partners"), before+1)
	assert.Equal(t, 1, h.srv.Hits("POST /audit-logs"), "audit entry was attempted")
	assert.Empty(t, h.srv.Records("audit-logs"), "and rejected by the backend")
}

func TestValidation_RejectsBeforeSending(t *testing.T) {
	h := newHarness(t, auth.RoleAdmin)
	h.srv.ResetHits()

	_, err := h.api.CreateComment(context.Background(), cms.Comment{Email: "not-an-email"})
	require.ErrorIs(t, err, cms.ErrInvalidInput)

	var verr *cms.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.True(t, verr.Has("content"))
	assert.True(t, verr.Has("author"))
	assert.True(t, verr.Has("email"))
	assert.True(t, verr.Has("post_id"))
	assert.Zero(t, h.srv.Hits("POST /comments"))

	err = h.api.SetCommentStatus(context.Background(), 1, "spam")
	require.ErrorAs(t, err, &verr)
	assert.True(t, verr.Has("status"))
}

func TestUpdateHero_WritesCacheDirectly(t *testing.T) {
	h := newHarness(t, auth.RoleTechnical)
	ctx := context.Background()
	h.srv.ResetHits()

	saved, err := h.api.UpdateHero(ctx, cms.HeroContent{Page: "about", Title: "Who we are"})
	require.NoError(t, err)
	assert.NotZero(t, saved.ID)

	cached := peek(t, h, h.api.Hero("about"))
	assert.Equal(t, "Who we are", cached.Title)
	assert.Zero(t, h.srv.Hits("GET /content/hero/about"))
}

func TestBlog_NotFound(t *testing.T) {
	h := newHarness(t, auth.RoleNone)
	_, err := query.Fetch(context.Background(), h.cache, h.api.Blog("missing"))
	assert.ErrorIs(t, err, fetch.ErrNotFound)
}

func TestBlogs_AllCategorySharesUnfilteredKey(t *testing.T) {
	h := newHarness(t, auth.RoleNone)
	assert.True(t, h.api.Blogs("", "All").Key.Equal(h.api.Blogs("", "").Key))
	assert.True(t, h.api.News().Key.Equal(h.api.Blogs(cms.TypeNews, "").Key))

	news, err := query.Fetch(context.Background(), h.cache, h.api.News())
	require.NoError(t, err)
	require.Len(t, news, 1)
	assert.Equal(t, cms.TypeNews, news[0].Type)
}

func TestUpload(t *testing.T) {
	h := newHarness(t, auth.RoleTechnical)

	res, err := h.api.Upload(context.Background(), "report.pdf", bytes.NewBufferString("%PDF"))
	require.NoError(t, err)
	data, ok := h.srv.Uploaded(res.Filename)
	require.True(t, ok)
	assert.Equal(t, "%PDF", string(data))
}

func TestLogin(t *testing.T) {
	h := newHarness(t, auth.RoleNone)
	ctx := context.Background()

	_, err := h.api.Login(ctx, apitest.DemoAdminEmail, "wrong")
	assert.ErrorIs(t, err, fetch.ErrUnauthorized)
	assert.False(t, h.session.IsLoggedIn())

	user, err := h.api.Login(ctx, apitest.DemoAdminEmail, apitest.DemoAdminPassword)
	require.NoError(t, err)
	assert.Equal(t, "admin", user.Role)
	assert.True(t, h.session.HasPermission(auth.RoleAdmin))

	users, err := query.Fetch(ctx, h.cache, h.api.Users())
	require.NoError(t, err)
	assert.Len(t, users, 3)

	require.NoError(t, h.api.Logout(ctx))
	_, err = query.Fetch(ctx, h.cache, h.api.Users())
	assert.ErrorIs(t, err, auth.ErrNotLoggedIn)
}

func TestLogin_NoSession(t *testing.T) {
	h := newHarness(t, auth.RoleNone)
	api, err := cms.New(mustFetch(t, h), query.New())
	require.NoError(t, err)

	_, err = api.Login(context.Background(), apitest.DemoAdminEmail, apitest.DemoAdminPassword)
	assert.ErrorIs(t, err, cms.ErrNoSession)
	assert.ErrorIs(t, api.Logout(context.Background()), cms.ErrNoSession)
}

func TestSubscribe_RefreshesAnalytics(t *testing.T) {
	h := newHarness(t, auth.RoleTechnical)
	ctx := context.Background()

	analytics := h.api.SubscriberAnalytics()
	watch(t, h, analytics)
	h.wait(t)
	before := peek(t, h, analytics).TotalActive

	require.NoError(t, h.api.Subscribe(ctx, cms.Subscription{Email: "new@example.org", Subscriptions: []string{"Elections"}}))
	h.wait(t)
	assert.Equal(t, before+1, peek(t, h, analytics).TotalActive)

	err := h.api.Subscribe(ctx, cms.Subscription{Email: "new@example.org"})
	assert.Equal(t, 409, fetch.StatusCode(err))
}

func TestSignup_RefreshesUsersAndDashboard(t *testing.T) {
	h := newHarness(t, auth.RoleAdmin)
	ctx := context.Background()

	users, stats := h.api.Users(), h.api.DashboardStats()
	watch(t, h, users)
	watch(t, h, stats)
	h.wait(t)
	before := peek(t, h, stats).Users
	require.Len(t, peek(t, h, users), before)

	created, err := h.api.Signup(ctx, cms.Signup{Username: "newreader", Email: "newreader@example.org", Password: "secret1"})
	require.NoError(t, err)
	assert.NotZero(t, created.ID)
	assert.Equal(t, "user", created.Role)
	assert.Empty(t, created.Password)

	h.wait(t)
	assert.Equal(t, before+1, peek(t, h, stats).Users)
	got := peek(t, h, users)
	require.Len(t, got, before+1)
	assert.Equal(t, 2, h.srv.Hits("GET /users"))

	_, err = h.api.Signup(ctx, cms.Signup{Username: "again", Email: "newreader@example.org", Password: "secret1"})
	assert.Equal(t, 400, fetch.StatusCode(err))

	h.srv.ResetHits()
	_, err = h.api.Signup(ctx, cms.Signup{Username: "x", Email: "nope", Password: "123"})
	var verr *cms.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.True(t, verr.Has("email"))
	assert.True(t, verr.Has("password"))
	assert.Zero(t, h.srv.Hits("POST /signup"))
}

func TestPrefetchDashboard(t *testing.T) {
	t.Run("admin", func(t *testing.T) {
		h := newHarness(t, auth.RoleAdmin)
		require.NoError(t, h.api.PrefetchDashboard(context.Background()))

		stats := peek(t, h, h.api.DashboardStats())
		assert.Equal(t, 2, stats.Blogs)
		assert.Equal(t, 1, stats.News)
		_, ok := query.Peek[[]cms.AuditLog](h.cache, h.api.AuditLogs().Key)
		assert.True(t, ok)
	})

	t.Run("technical skips audit trail", func(t *testing.T) {
		h := newHarness(t, auth.RoleTechnical)
		require.NoError(t, h.api.PrefetchDashboard(context.Background()))

		assert.Len(t, peek(t, h, h.api.AdminComments(cms.CommentPending)), 1)
		assert.Zero(t, h.srv.Hits("GET /audit-logs"))
	})

	t.Run("user is refused", func(t *testing.T) {
		h := newHarness(t, auth.RoleUser)
		err := h.api.PrefetchDashboard(context.Background())
		assert.ErrorIs(t, err, auth.ErrForbidden)
	})
}

func TestConcurrentReadsShareOneRequest(t *testing.T) {
	h := newHarness(t, auth.RoleNone)
	release := h.srv.Block("GET /partners")

	var wg sync.WaitGroup
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := query.Fetch(context.Background(), h.cache, h.api.Partners())
			assert.NoError(t, err)
		}()
	}
	require.Eventually(t, func() bool { return h.srv.Hits("GET /partners") == 1 }, time.Second, 5*time.Millisecond)
	release()
	wg.Wait()
	assert.Equal(t, 1, h.srv.Hits("GET /partners"))
}

func mustFetch(t *testing.T, h *harness) *fetch.Client {
	t.Helper()
	c, err := fetch.New(h.srv.URL, fetch.WithHeaders(h.session))
	require.NoError(t, err)
	return c
}

func itoa(id int64) string {
	return strconv.FormatInt(id, 10)
}
