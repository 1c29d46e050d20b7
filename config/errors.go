package config

import "errors"

var (
	ErrMissingBaseURL  = errors.New("config: api.base_url is required")
	ErrInvalidBaseURL  = errors.New("config: api.base_url must be an absolute http(s) URL")
	ErrInvalidDuration = errors.New("config: duration must not be negative")
	ErrInvalidRetry    = errors.New("config: invalid retry settings")
	ErrInvalidBreaker  = errors.New("config: invalid breaker settings")
)
