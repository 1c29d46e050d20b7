package apitest

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/jonwraymond/querysync/auth"
	"github.com/jonwraymond/querysync/observe"
)

// DefaultSigningKey signs tokens when no key is configured.
var DefaultSigningKey = []byte("querysync-demo-key")

// Backend is an in-memory implementation of the CMS REST API.
//
// Contract:
// - Concurrency: safe for concurrent use; handlers and the inspection
//   methods share one mutex.
// - Every request is counted under "METHOD /path" with the /api prefix
//   removed, e.g. "GET /jobs" or "DELETE /jobs/3".
type Backend struct {
	mu      sync.Mutex
	data    map[string]*collection
	uploads map[string][]byte
	hits    map[string]int
	faults  map[string]int
	blocks  map[string]chan struct{}

	key    []byte
	parser *auth.TokenParser
	now    func() time.Time
	logger observe.Logger
	router chi.Router
}

// Option configures a Backend.
type Option func(*Backend)

// WithSigningKey sets the HS256 key used to issue and verify tokens.
func WithSigningKey(key []byte) Option {
	return func(b *Backend) {
		if len(key) > 0 {
			b.key = key
		}
	}
}

// WithClock overrides the time source for timestamps and token expiry.
func WithClock(now func() time.Time) Option {
	return func(b *Backend) {
		if now != nil {
			b.now = now
		}
	}
}

// WithLogger logs each request at debug level.
func WithLogger(l observe.Logger) Option {
	return func(b *Backend) {
		if l != nil {
			b.logger = l
		}
	}
}

// New creates an empty backend.
func New(opts ...Option) *Backend {
	b := &Backend{
		data:    make(map[string]*collection),
		uploads: make(map[string][]byte),
		hits:    make(map[string]int),
		faults:  make(map[string]int),
		blocks:  make(map[string]chan struct{}),
		key:     DefaultSigningKey,
		now:     time.Now,
		logger:  observe.NopLogger(),
	}
	for _, opt := range opts {
		opt(b)
	}
	b.parser = auth.NewTokenParser(auth.NewStaticKeyProvider(b.key), b.now)
	b.router = b.routes()
	return b
}

// Handler returns the HTTP handler serving /api.
func (b *Backend) Handler() http.Handler {
	return b.router
}

// Server is a Backend listening on a local httptest server.
type Server struct {
	*Backend

	// URL is the API root, e.g. "http://127.0.0.1:41234/api".
	URL string
}

// Start serves a new backend for the duration of the test.
func Start(tb testing.TB, opts ...Option) *Server {
	tb.Helper()
	b := New(opts...)
	srv := httptest.NewServer(b.Handler())
	tb.Cleanup(func() {
		b.releaseAll()
		srv.Close()
	})
	return &Server{Backend: b, URL: srv.URL + "/api"}
}

func (b *Backend) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.Recoverer)
	r.Use(b.logRequests)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		ExposedHeaders:   []string{"X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Route("/api", func(r chi.Router) {
		r.Use(b.intercept)

		r.Get("/health", b.health)
		r.Post("/login", b.login)
		r.Post("/signup", b.signup)
		r.Post("/contact", b.submitContact)
		r.Post("/subscribe", b.subscribe)

		r.Get("/announcements", b.listAnnouncements)
		r.Get("/blogs", b.listBlogs)
		r.Get("/blogs/{slug}", b.bySlug("blogs", "Post not found"))
		r.Get("/initiatives", b.listAll("initiatives"))
		r.Get("/initiatives/{slug}", b.bySlug("initiatives", "Initiative not found"))
		r.Get("/resources", b.listResources)
		r.Get("/jobs", b.listJobs)
		r.Get("/comments", b.listComments)
		r.Post("/comments", b.createComment)
		r.Get("/partners", b.listAll("partners"))
		r.Get("/badges", b.listAll("badges"))

		r.Group(func(r chi.Router) {
			r.Use(b.authenticate)

			r.Get("/dashboard/stats", b.dashboardStats)
			r.Get("/subscribers/analytics", b.subscriberAnalytics)
			r.Post("/upload", b.upload)

			r.Get("/content/hero/{page}", b.getHero)
			r.Post("/content/hero", b.updateHero)

			r.Post("/blogs", b.create("blogs", b.blogDefaults))
			r.Put("/blogs/{id}", b.update("blogs", "Post not found"))
			r.Delete("/blogs/{id}", b.remove("blogs"))

			r.Post("/jobs", b.create("jobs", b.jobDefaults))
			r.Put("/jobs/{id}", b.update("jobs", "Job not found"))
			r.Delete("/jobs/{id}", b.remove("jobs"))

			r.Post("/initiatives", b.create("initiatives", initiativeDefaults))
			r.Put("/initiatives/{id}", b.update("initiatives", "Initiative not found"))
			r.Delete("/initiatives/{id}", b.remove("initiatives"))

			r.Post("/resources", b.create("resources", b.publishedNow))
			r.Delete("/resources/{id}", b.remove("resources"))

			r.Post("/announcements", b.create("announcements", b.announcementDefaults))
			r.Delete("/announcements/{id}", b.remove("announcements"))

			r.Post("/partners", b.create("partners", nil))
			r.Delete("/partners/{id}", b.remove("partners"))

			r.Post("/badges", b.create("badges", nil))
			r.Delete("/badges/{id}", b.remove("badges"))

			r.Put("/comments/{id}/status", b.setCommentStatus)
			r.Delete("/comments/{id}", b.remove("comments"))

			r.Get("/users", b.listUsers)
			r.Post("/users", b.createUser)
			r.Put("/users/{id}", b.updateUser)
			r.Delete("/users/{id}", b.remove("users"))

			r.Get("/audit-logs", b.listAll("audit-logs"))
			r.Post("/audit-logs", b.create("audit-logs", b.auditDefaults))
		})
	})
	return r
}

// hitKey is the counter key for r: "METHOD /path" without the /api prefix.
func hitKey(r *http.Request) string {
	return r.Method + " " + strings.TrimPrefix(r.URL.Path, "/api")
}

// intercept counts the request and applies injected faults and blocks.
func (b *Backend) intercept(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := hitKey(r)
		path := strings.TrimPrefix(r.URL.Path, "/api")

		b.mu.Lock()
		b.hits[key]++
		status, failing := b.faults[path]
		block := b.blocks[key]
		b.mu.Unlock()

		if block != nil {
			select {
			case <-block:
			case <-r.Context().Done():
				return
			}
		}
		if failing {
			writeError(w, status, "injected failure")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (b *Backend) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := chimiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		b.logger.Debug(r.Context(), "api request",
			observe.Field{Key: "method", Value: r.Method},
			observe.Field{Key: "path", Value: r.URL.Path},
			observe.Field{Key: "status", Value: ww.Status()},
			observe.Field{Key: "request_id", Value: r.Header.Get("X-Request-ID")},
			observe.Field{Key: "duration_ms", Value: time.Since(start).Milliseconds()},
		)
	})
}

// authenticate requires a valid bearer token and attaches its identity.
func (b *Backend) authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, status, msg := b.identify(r)
		if id == nil {
			writeError(w, status, msg)
			return
		}
		next.ServeHTTP(w, r.WithContext(auth.WithIdentity(r.Context(), id)))
	})
}

func (b *Backend) identify(r *http.Request) (*auth.Identity, int, string) {
	header := r.Header.Get("Authorization")
	if header == "" {
		return nil, http.StatusUnauthorized, "Authorization header required"
	}
	if !strings.HasPrefix(header, "Bearer ") {
		return nil, http.StatusUnauthorized, "Invalid token format"
	}
	id, err := b.parser.Parse(r.Context(), header)
	if err != nil {
		return nil, http.StatusUnauthorized, "Invalid token"
	}
	return id, 0, ""
}

// Hits returns how many requests matched key, e.g. "GET /jobs".
func (b *Backend) Hits(key string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.hits[key]
}

// ResetHits zeroes all request counters.
func (b *Backend) ResetHits() {
	b.mu.Lock()
	b.hits = make(map[string]int)
	b.mu.Unlock()
}

// Fail makes every request to path (any method) answer status until Heal.
func (b *Backend) Fail(path string, status int) {
	b.mu.Lock()
	b.faults[path] = status
	b.mu.Unlock()
}

// Heal removes an injected failure.
func (b *Backend) Heal(path string) {
	b.mu.Lock()
	delete(b.faults, path)
	b.mu.Unlock()
}

// Block holds requests matching key ("METHOD /path") until the returned
// release function is called. Release is idempotent.
func (b *Backend) Block(key string) (release func()) {
	ch := make(chan struct{})
	b.mu.Lock()
	b.blocks[key] = ch
	b.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			b.mu.Lock()
			if b.blocks[key] == ch {
				delete(b.blocks, key)
			}
			b.mu.Unlock()
			close(ch)
		})
	}
}

func (b *Backend) releaseAll() {
	b.mu.Lock()
	blocks := b.blocks
	b.blocks = make(map[string]chan struct{})
	b.mu.Unlock()
	for _, ch := range blocks {
		close(ch)
	}
}

// Seed stores records in resource and returns them with ids assigned.
func (b *Backend) Seed(resource string, recs ...Record) []Record {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]Record, 0, len(recs))
	for _, rec := range recs {
		out = append(out, b.coll(resource).insert(rec))
	}
	return out
}

// Records returns a snapshot of resource ordered by id.
func (b *Backend) Records(resource string) []Record {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.coll(resource).sorted(false)
}

// Uploaded returns the bytes stored under filename by the upload endpoint.
func (b *Backend) Uploaded(filename string) ([]byte, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	data, ok := b.uploads[filename]
	return data, ok
}

// TokenFor issues a 24h token for the first user holding role, creating
// that user if needed. It panics if signing fails.
func (b *Backend) TokenFor(role auth.Role) string {
	b.mu.Lock()
	users := b.coll("users")
	user, ok := users.find(func(r Record) bool { return r.Str("role") == string(role) })
	if !ok {
		user = users.insert(Record{
			"username": string(role),
			"email":    string(role) + "@example.org",
			"password": string(role),
			"role":     string(role),
		})
	}
	b.mu.Unlock()

	token, err := b.issue(user)
	if err != nil {
		panic(err)
	}
	return token
}

// coll returns the named collection, creating it. Callers hold b.mu.
func (b *Backend) coll(name string) *collection {
	c, ok := b.data[name]
	if !ok {
		c = newCollection()
		b.data[name] = c
	}
	return c
}
