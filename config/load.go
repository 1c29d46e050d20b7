package config

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/jonwraymond/querysync/auth"
	"github.com/jonwraymond/querysync/secret"
)

// EnvPrefix prefixes environment overrides: api.base_url is read from
// QUERYSYNC_API_BASE_URL.
const EnvPrefix = "QUERYSYNC"

// defaults lists every key so that environment overrides apply even when
// the config file omits the key.
var defaults = map[string]any{
	"api.base_url":                         "http://localhost:8080/api",
	"api.timeout":                          "15s",
	"api.token":                            "",
	"api.user_agent":                       "querysync",
	"cache.stale_time":                     "0s",
	"cache.gc_time":                        "5m",
	"cache.fetch_timeout":                  "30s",
	"resilience.retry.enabled":             false,
	"resilience.retry.max_attempts":        3,
	"resilience.retry.initial_delay":       "100ms",
	"resilience.retry.max_delay":           "5s",
	"resilience.breaker.enabled":           false,
	"resilience.breaker.timeout":           "60s",
	"resilience.breaker.failure_threshold": 0.8,
	"auth.token_file":                      "",
	"auth.signing_key":                     "",
	"observe.log_level":                    "info",
	"observe.log_format":                   "console",
	"observe.tracing":                      "none",
	"observe.metrics":                      "none",
	"observe.sample_pct":                   1.0,
}

// Load reads configuration from the optional file at path (YAML, JSON or
// TOML by extension), applies QUERYSYNC_* environment overrides, resolves
// secret references and validates the result.
func Load(ctx context.Context, path string) (*Config, error) {
	v := viper.New()
	for k, val := range defaults {
		v.SetDefault(k, val)
	}
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("config: read %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("config: decode: %w", err)
	}
	if cfg.Auth.TokenFile == "" {
		cfg.Auth.TokenFile = DefaultTokenFile()
	}

	if err := cfg.resolveSecrets(ctx, secret.NewResolver(true)); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) resolveSecrets(ctx context.Context, r *secret.Resolver) error {
	fields := map[string]*string{
		"api.token":        &c.API.Token,
		"auth.signing_key": &c.Auth.SigningKey,
	}
	for name, p := range fields {
		if *p == "" {
			continue
		}
		v, err := r.ResolveValue(ctx, *p)
		if err != nil {
			return fmt.Errorf("config: %s: %w", name, err)
		}
		*p = v
	}

	headers, err := r.ResolveMap(ctx, c.API.Headers)
	if err != nil {
		return fmt.Errorf("config: api.headers: %w", err)
	}
	c.API.Headers = headers
	return nil
}

// SessionOptions returns the auth session options: the token file store and,
// if a signing key is configured, signature verification.
func (c *Config) SessionOptions() []auth.Option {
	var opts []auth.Option
	if c.API.Token != "" {
		opts = append(opts, auth.WithTokenStore(auth.NewMemoryTokenStore()))
	} else {
		opts = append(opts, auth.WithTokenStore(auth.NewFileTokenStore(c.Auth.TokenFile)))
	}
	if c.Auth.SigningKey != "" {
		opts = append(opts, auth.WithKeyProvider(auth.NewStaticKeyProvider([]byte(c.Auth.SigningKey))))
	}
	return opts
}

func newHTTPClient(timeout time.Duration) *http.Client {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &http.Client{Timeout: timeout}
}
