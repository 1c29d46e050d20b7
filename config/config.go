package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"github.com/jonwraymond/querysync/fetch"
	"github.com/jonwraymond/querysync/observe"
	"github.com/jonwraymond/querysync/query"
)

// Config is the complete client configuration.
type Config struct {
	API        APIConfig        `mapstructure:"api"`
	Cache      CacheConfig      `mapstructure:"cache"`
	Resilience ResilienceConfig `mapstructure:"resilience"`
	Auth       AuthConfig       `mapstructure:"auth"`
	Observe    ObserveConfig    `mapstructure:"observe"`
}

// APIConfig locates the REST API.
type APIConfig struct {
	// BaseURL is the API root, e.g. "https://example.org/api".
	BaseURL string `mapstructure:"base_url"`

	// Timeout bounds each HTTP request.
	// Default: 15s
	Timeout time.Duration `mapstructure:"timeout"`

	// Token is a bearer token that takes precedence over a stored login. It
	// may be a secret reference such as "secretref:env:QUERYSYNC_TOKEN".
	Token string `mapstructure:"token"`

	// Headers are sent with every request. Values may hold secret references.
	Headers map[string]string `mapstructure:"headers"`

	// UserAgent overrides the User-Agent header.
	UserAgent string `mapstructure:"user_agent"`
}

// CacheConfig maps onto query.Policy.
type CacheConfig struct {
	StaleTime    time.Duration `mapstructure:"stale_time"`
	GCTime       time.Duration `mapstructure:"gc_time"`
	FetchTimeout time.Duration `mapstructure:"fetch_timeout"`
}

// ResilienceConfig enables the fetch client's optional retry and breaker.
type ResilienceConfig struct {
	Retry   RetryConfig   `mapstructure:"retry"`
	Breaker BreakerConfig `mapstructure:"breaker"`
}

type RetryConfig struct {
	Enabled      bool          `mapstructure:"enabled"`
	MaxAttempts  int           `mapstructure:"max_attempts"`
	InitialDelay time.Duration `mapstructure:"initial_delay"`
	MaxDelay     time.Duration `mapstructure:"max_delay"`
}

type BreakerConfig struct {
	Enabled          bool          `mapstructure:"enabled"`
	Timeout          time.Duration `mapstructure:"timeout"`
	FailureThreshold float64       `mapstructure:"failure_threshold"`
}

// AuthConfig controls where the login token lives.
type AuthConfig struct {
	// TokenFile persists the token between runs.
	// Default: $XDG_CONFIG_HOME/querysync/token
	TokenFile string `mapstructure:"token_file"`

	// SigningKey, when set, makes the session verify token signatures.
	SigningKey string `mapstructure:"signing_key"`
}

// ObserveConfig is the subset of observe.Config exposed to users.
type ObserveConfig struct {
	LogLevel  string  `mapstructure:"log_level"`
	LogFormat string  `mapstructure:"log_format"`
	Tracing   string  `mapstructure:"tracing"`
	Metrics   string  `mapstructure:"metrics"`
	SamplePct float64 `mapstructure:"sample_pct"`
}

// Validate checks the configuration after defaults and secrets are applied.
func (c *Config) Validate() error {
	if c.API.BaseURL == "" {
		return ErrMissingBaseURL
	}
	u, err := url.Parse(c.API.BaseURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("%w: %q", ErrInvalidBaseURL, c.API.BaseURL)
	}

	durations := map[string]time.Duration{
		"api.timeout":         c.API.Timeout,
		"cache.stale_time":    c.Cache.StaleTime,
		"cache.gc_time":       c.Cache.GCTime,
		"cache.fetch_timeout": c.Cache.FetchTimeout,
	}
	for name, d := range durations {
		if d < 0 {
			return fmt.Errorf("%w: %s=%s", ErrInvalidDuration, name, d)
		}
	}

	if r := c.Resilience.Retry; r.Enabled {
		if r.MaxAttempts < 1 || r.InitialDelay < 0 || r.MaxDelay < r.InitialDelay {
			return fmt.Errorf("%w: max_attempts=%d initial_delay=%s max_delay=%s",
				ErrInvalidRetry, r.MaxAttempts, r.InitialDelay, r.MaxDelay)
		}
	}
	if b := c.Resilience.Breaker; b.Enabled {
		if b.FailureThreshold <= 0 || b.FailureThreshold > 1 || b.Timeout < 0 {
			return fmt.Errorf("%w: failure_threshold=%g timeout=%s", ErrInvalidBreaker, b.FailureThreshold, b.Timeout)
		}
	}

	oc := c.ObserveConfig()
	return oc.Validate()
}

// QueryPolicy returns the cache policy.
func (c *Config) QueryPolicy() query.Policy {
	return query.Policy{
		StaleTime:    c.Cache.StaleTime,
		GCTime:       c.Cache.GCTime,
		FetchTimeout: c.Cache.FetchTimeout,
	}
}

// FetchOptions returns the fetch client options for the API settings and
// resilience. Auth headers are added by the caller from its session.
func (c *Config) FetchOptions() []fetch.Option {
	opts := []fetch.Option{
		fetch.WithHTTPClient(newHTTPClient(c.API.Timeout)),
	}
	if c.API.UserAgent != "" {
		opts = append(opts, fetch.WithUserAgent(c.API.UserAgent))
	}
	if r := c.Resilience.Retry; r.Enabled {
		opts = append(opts, fetch.WithRetry(fetch.RetryConfig{
			MaxAttempts:  r.MaxAttempts,
			InitialDelay: r.InitialDelay,
			MaxDelay:     r.MaxDelay,
			Multiplier:   2,
			Strategy:     fetch.BackoffExponential,
			Jitter:       true,
		}))
	}
	if b := c.Resilience.Breaker; b.Enabled {
		cfg := fetch.DefaultBreakerConfig("api")
		cfg.Timeout = b.Timeout
		cfg.FailureThreshold = b.FailureThreshold
		opts = append(opts, fetch.WithBreaker(cfg))
	}
	return opts
}

// ObserveConfig returns the telemetry configuration. Logs and the stdout
// exporters write to stderr so command output stays parseable; tracing and
// metrics are enabled unless their exporter is "none".
func (c *Config) ObserveConfig() observe.Config {
	return observe.Config{
		ServiceName: "querysync",
		Tracing: observe.TracingConfig{
			Enabled:   c.Observe.Tracing != "none" && c.Observe.Tracing != "",
			Exporter:  c.Observe.Tracing,
			SamplePct: c.Observe.SamplePct,
			Output:    os.Stderr,
		},
		Metrics: observe.MetricsConfig{
			Enabled:  c.Observe.Metrics != "none" && c.Observe.Metrics != "",
			Exporter: c.Observe.Metrics,
			Output:   os.Stderr,
		},
		Logging: observe.LoggingConfig{
			Enabled: true,
			Level:   c.Observe.LogLevel,
			Format:  c.Observe.LogFormat,
			Output:  os.Stderr,
		},
	}
}

// DefaultTokenFile is where logins are stored when auth.token_file is unset.
func DefaultTokenFile() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		dir = os.TempDir()
	}
	return filepath.Join(dir, "querysync", "token")
}
