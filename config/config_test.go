package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonwraymond/querysync/observe"
)

func writeFile(t *testing.T, name, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load(context.Background(), "")
	require.NoError(t, err)

	assert.Equal(t, "http://localhost:8080/api", cfg.API.BaseURL)
	assert.Equal(t, 15*time.Second, cfg.API.Timeout)
	assert.Equal(t, 5*time.Minute, cfg.Cache.GCTime)
	assert.Zero(t, cfg.Cache.StaleTime)
	assert.False(t, cfg.Resilience.Retry.Enabled)
	assert.Equal(t, DefaultTokenFile(), cfg.Auth.TokenFile)
	assert.Equal(t, "info", cfg.Observe.LogLevel)
}

func TestLoad_FileAndEnv(t *testing.T) {
	path := writeFile(t, "querysync.yaml", `
api:
  base_url: https://cms.example.org/api
  timeout: 3s
  headers:
    X-Tenant: ${QS_TENANT}
cache:
  stale_time: 30s
resilience:
  retry:
    enabled: true
    max_attempts: 5
`)
	t.Setenv("QS_TENANT", "north")
	t.Setenv("QUERYSYNC_CACHE_GC_TIME", "1m")
	t.Setenv("QUERYSYNC_API_TIMEOUT", "4s")

	cfg, err := Load(context.Background(), path)
	require.NoError(t, err)

	assert.Equal(t, "https://cms.example.org/api", cfg.API.BaseURL)
	assert.Equal(t, 4*time.Second, cfg.API.Timeout, "env wins over file")
	assert.Equal(t, time.Minute, cfg.Cache.GCTime)
	assert.Equal(t, 30*time.Second, cfg.QueryPolicy().StaleTime)
	assert.Equal(t, 5, cfg.Resilience.Retry.MaxAttempts)
	assert.Equal(t, "north", cfg.API.Headers["x-tenant"])
}

func TestLoad_ResolvesSecrets(t *testing.T) {
	t.Setenv("QS_TEST_TOKEN", "tok-123")
	keyFile := writeFile(t, "key", "signing-key\n")
	path := writeFile(t, "querysync.yaml", `
api:
  token: secretref:env:QS_TEST_TOKEN
auth:
  signing_key: secretref:file:`+keyFile+`
`)

	cfg, err := Load(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, "tok-123", cfg.API.Token)
	assert.Equal(t, "signing-key", cfg.Auth.SigningKey)
	assert.Len(t, cfg.SessionOptions(), 2)
}

func TestLoad_Errors(t *testing.T) {
	_, err := Load(context.Background(), filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	t.Setenv("QUERYSYNC_API_TOKEN", "secretref:env:QS_DEFINITELY_UNSET")
	_, err = Load(context.Background(), "")
	assert.ErrorContains(t, err, "api.token")
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		return &Config{
			API:     APIConfig{BaseURL: "https://example.org/api"},
			Observe: ObserveConfig{LogLevel: "info"},
		}
	}

	tests := []struct {
		name   string
		mutate func(*Config)
		want   error
	}{
		{name: "valid", mutate: func(*Config) {}},
		{name: "missing url", mutate: func(c *Config) { c.API.BaseURL = "" }, want: ErrMissingBaseURL},
		{name: "relative url", mutate: func(c *Config) { c.API.BaseURL = "/api" }, want: ErrInvalidBaseURL},
		{name: "ftp url", mutate: func(c *Config) { c.API.BaseURL = "ftp://example.org" }, want: ErrInvalidBaseURL},
		{name: "negative stale time", mutate: func(c *Config) { c.Cache.StaleTime = -time.Second }, want: ErrInvalidDuration},
		{
			name: "retry without attempts",
			mutate: func(c *Config) {
				c.Resilience.Retry = RetryConfig{Enabled: true}
			},
			want: ErrInvalidRetry,
		},
		{
			name: "breaker threshold above one",
			mutate: func(c *Config) {
				c.Resilience.Breaker = BreakerConfig{Enabled: true, FailureThreshold: 1.5}
			},
			want: ErrInvalidBreaker,
		},
		{
			name:   "unknown tracing exporter",
			mutate: func(c *Config) { c.Observe.Tracing = "zipkin" },
			want:   observe.ErrInvalidTracingExporter,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := valid()
			tt.mutate(c)
			err := c.Validate()
			if tt.want == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestFetchOptions(t *testing.T) {
	c := &Config{API: APIConfig{BaseURL: "https://example.org/api", UserAgent: "qs-test"}}
	assert.Len(t, c.FetchOptions(), 2)

	c.Resilience.Retry = RetryConfig{Enabled: true, MaxAttempts: 2}
	c.Resilience.Breaker = BreakerConfig{Enabled: true, FailureThreshold: 0.5}
	assert.Len(t, c.FetchOptions(), 4)
}
