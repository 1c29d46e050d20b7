package observe

import "errors"

// Config.Validate errors. Each is wrapped with the offending value.
var (
	ErrMissingServiceName     = errors.New("observe: service name is required")
	ErrInvalidSamplePct       = errors.New("observe: sample percentage out of range")
	ErrInvalidTracingExporter = errors.New("observe: invalid tracing exporter")
	ErrInvalidMetricsExporter = errors.New("observe: invalid metrics exporter")
	ErrInvalidLogLevel        = errors.New("observe: invalid log level")
	ErrInvalidLogFormat       = errors.New("observe: invalid log format")
)

// ErrNilObserver is returned by MiddlewareFromObserver(nil).
var ErrNilObserver = errors.New("observe: observer is nil")

// TracingConfig.SamplePct bounds, inclusive.
const (
	MinSamplePct = 0.0
	MaxSamplePct = 1.0
)

// Accepted names. "" selects the default: no exporter, info level, JSON.
var (
	ValidTracingExporters = []string{"", "none", "stdout", "otlp", "jaeger"}
	ValidMetricsExporters = []string{"", "none", "stdout", "otlp", "prometheus"}
	ValidLogLevels        = []string{"", "debug", "info", "warn", "error"}
	ValidLogFormats       = []string{"", "json", "console"}
)

// RedactedFields are field keys whose values the logger replaces. Matching
// ignores case.
var RedactedFields = []string{
	"password", "token", "access_token", "authorization", "api_key",
	"secret", "jwt_secret", "credential", "body",
}
