package fetch

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/jonwraymond/querysync/observe"
)

// RequestIDHeader carries a per-request identifier. Retries of one logical
// request reuse the same ID.
const RequestIDHeader = "X-Request-ID"

// maxErrorBody bounds how much of an error response is kept.
const maxErrorBody = 4096

// HeaderProvider supplies per-request headers such as Authorization. The
// fetch client never stores or refreshes credentials itself.
//
// Contract:
// - Concurrency: implementations must be safe for concurrent use.
// - Errors: a non-nil error aborts the request before it is sent.
type HeaderProvider interface {
	Headers(ctx context.Context) (map[string]string, error)
}

// HeaderFunc adapts a function to HeaderProvider.
type HeaderFunc func(ctx context.Context) (map[string]string, error)

// Headers calls f.
func (f HeaderFunc) Headers(ctx context.Context) (map[string]string, error) {
	return f(ctx)
}

// StaticHeaders returns a provider that always yields h.
func StaticHeaders(h map[string]string) HeaderProvider {
	return HeaderFunc(func(context.Context) (map[string]string, error) {
		return h, nil
	})
}

// Client performs JSON requests against the REST API.
//
// Contract:
// - Concurrency: safe for concurrent use.
// - Context: every request honors ctx cancellation and deadlines.
// - Errors: non-2xx responses return *HTTPError, transport failures
//   *NetworkError. Errors from the HeaderProvider are returned as is.
type Client struct {
	base       *url.URL
	http       *http.Client
	headers    HeaderProvider
	retry      *retrier
	breaker    *breaker
	breakerCfg *BreakerConfig
	mw         *observe.Middleware
	logger     observe.Logger
	userAgent  string
	newID      func() string
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient sets the underlying HTTP client.
// Default: a client with a 15s timeout.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.http = hc
		}
	}
}

// WithHeaders sets the per-request header provider.
func WithHeaders(p HeaderProvider) Option {
	return func(c *Client) {
		c.headers = p
	}
}

// WithRetry enables retries for idempotent requests.
func WithRetry(cfg RetryConfig) Option {
	return func(c *Client) {
		c.retry = newRetrier(cfg)
	}
}

// WithBreaker enables a circuit breaker in front of the backend.
func WithBreaker(cfg BreakerConfig) Option {
	return func(c *Client) {
		c.breakerCfg = &cfg
	}
}

// WithMiddleware instruments each request.
func WithMiddleware(mw *observe.Middleware) Option {
	return func(c *Client) {
		if mw != nil {
			c.mw = mw
			c.logger = mw.Logger()
		}
	}
}

// WithUserAgent sets the User-Agent header.
// Default: "querysync"
func WithUserAgent(ua string) Option {
	return func(c *Client) {
		c.userAgent = ua
	}
}

// New creates a Client for the API rooted at baseURL, e.g.
// "https://example.org/api".
func New(baseURL string, opts ...Option) (*Client, error) {
	base, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidBaseURL, err)
	}
	if base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("%w: %q is not absolute", ErrInvalidBaseURL, baseURL)
	}

	c := &Client{
		base:      base,
		http:      &http.Client{Timeout: 15 * time.Second},
		mw:        observe.NopMiddleware(),
		logger:    observe.NopLogger(),
		userAgent: "querysync",
		newID:     uuid.NewString,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.breakerCfg != nil {
		c.breaker = newBreaker(*c.breakerCfg, c.logger)
	}
	return c, nil
}

// BaseURL returns the API root.
func (c *Client) BaseURL() string {
	return c.base.String()
}

// BreakerState returns the circuit breaker state, or "disabled".
func (c *Client) BreakerState() string {
	if c.breaker == nil {
		return "disabled"
	}
	return c.breaker.state()
}

// request is one logical API call. body is kept as bytes so retries can
// resend it.
type request struct {
	method      string
	path        string
	query       url.Values
	body        []byte
	contentType string
}

// Get issues GET path?query and decodes the JSON response into out.
func (c *Client) Get(ctx context.Context, path string, query url.Values, out any) error {
	return c.Do(ctx, http.MethodGet, path, query, nil, out)
}

// Post issues POST path with body encoded as JSON.
func (c *Client) Post(ctx context.Context, path string, body, out any) error {
	return c.Do(ctx, http.MethodPost, path, nil, body, out)
}

// Put issues PUT path with body encoded as JSON.
func (c *Client) Put(ctx context.Context, path string, body, out any) error {
	return c.Do(ctx, http.MethodPut, path, nil, body, out)
}

// Delete issues DELETE path. An empty 2xx body is success.
func (c *Client) Delete(ctx context.Context, path string) error {
	return c.Do(ctx, http.MethodDelete, path, nil, nil, nil)
}

// Do issues a request with an optional JSON body and decodes a JSON response
// into out when out is non-nil and the response has a body.
func (c *Client) Do(ctx context.Context, method, path string, query url.Values, body, out any) error {
	req := request{
		method: method,
		path:   path,
		query:  query,
	}
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("fetch: encode %s %s body: %w", method, path, err)
		}
		req.body = raw
		req.contentType = "application/json"
	}
	return c.send(ctx, req, out)
}

// GetJSON issues GET and decodes the response as T.
func GetJSON[T any](ctx context.Context, c *Client, path string, query url.Values) (T, error) {
	var out T
	err := c.Get(ctx, path, query, &out)
	return out, err
}

// PostJSON issues POST and decodes the response as T.
func PostJSON[T any](ctx context.Context, c *Client, path string, body any) (T, error) {
	var out T
	err := c.Post(ctx, path, body, &out)
	return out, err
}

// PutJSON issues PUT and decodes the response as T.
func PutJSON[T any](ctx context.Context, c *Client, path string, body any) (T, error) {
	var out T
	err := c.Put(ctx, path, body, &out)
	return out, err
}

func (c *Client) send(ctx context.Context, req request, out any) error {
	meta := observe.OpMeta{
		Op:   observe.OpRequest,
		Name: req.method + " " + req.path,
	}
	requestID := c.newID()

	exec := c.mw.Wrap(func(ctx context.Context, _ observe.OpMeta) (any, error) {
		attempt := func(ctx context.Context) error {
			return c.attempt(ctx, req, requestID, out)
		}
		if c.breaker != nil {
			inner := attempt
			attempt = func(ctx context.Context) error {
				return c.breaker.execute(ctx, inner)
			}
		}
		if c.retry != nil {
			return nil, c.retry.execute(ctx, req.method, attempt)
		}
		return nil, attempt(ctx)
	})

	_, err := exec(ctx, meta)
	return err
}

func (c *Client) attempt(ctx context.Context, req request, requestID string, out any) error {
	u := c.base.JoinPath(req.path)
	if len(req.query) > 0 {
		u.RawQuery = req.query.Encode()
	}
	target := u.String()

	var body io.Reader
	if req.body != nil {
		body = bytes.NewReader(req.body)
	}
	httpReq, err := http.NewRequestWithContext(ctx, req.method, target, body)
	if err != nil {
		return fmt.Errorf("fetch: build %s %s: %w", req.method, target, err)
	}

	httpReq.Header.Set("Accept", "application/json")
	httpReq.Header.Set("User-Agent", c.userAgent)
	httpReq.Header.Set(RequestIDHeader, requestID)
	if req.contentType != "" {
		httpReq.Header.Set("Content-Type", req.contentType)
	}
	if c.headers != nil {
		h, err := c.headers.Headers(ctx)
		if err != nil {
			return err
		}
		for k, v := range h {
			httpReq.Header.Set(k, v)
		}
	}

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return &NetworkError{Method: req.method, URL: target, Err: err}
	}
	defer resp.Body.Close()

	c.logger.Debug(ctx, "api response",
		observe.Field{Key: "method", Value: req.method},
		observe.Field{Key: "url", Value: target},
		observe.Field{Key: "status", Value: resp.StatusCode},
		observe.Field{Key: "request_id", Value: requestID},
	)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return &HTTPError{
			Method:     req.method,
			URL:        target,
			StatusCode: resp.StatusCode,
			Body:       raw,
			Message:    errorMessage(raw),
		}
	}

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return &NetworkError{Method: req.method, URL: target, Err: err}
	}
	if out == nil || len(bytes.TrimSpace(raw)) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("fetch: decode %s %s response: %w", req.method, target, err)
	}
	return nil
}

// errorMessage extracts a human readable message from an error body.
func errorMessage(raw []byte) string {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return ""
	}
	if trimmed[0] == '{' {
		var payload struct {
			Error   string `json:"error"`
			Message string `json:"message"`
		}
		if json.Unmarshal(trimmed, &payload) == nil {
			if payload.Error != "" {
				return payload.Error
			}
			if payload.Message != "" {
				return payload.Message
			}
		}
	}
	return string(trimmed)
}
