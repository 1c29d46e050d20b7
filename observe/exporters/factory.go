// Package exporters creates OpenTelemetry trace exporters and metric readers
// by name.
package exporters

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"slices"
	"strings"

	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/exporters/stdout/stdoutmetric"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

var (
	// ErrEndpointNotConfigured means none of the exporter's endpoint
	// variables is set.
	ErrEndpointNotConfigured = errors.New("exporters: endpoint not configured")

	ErrUnknownExporter = errors.New("exporters: unknown exporter")
)

type Option func(*options)

type options struct {
	writer io.Writer
}

// WithWriter sets where the stdout exporters write. nil keeps os.Stdout.
func WithWriter(w io.Writer) Option {
	return func(o *options) {
		if w != nil {
			o.writer = w
		}
	}
}

// requireEnv fails unless one of vars is set. The OTLP exporters read the
// endpoint from the environment themselves.
func requireEnv(vars ...string) error {
	if slices.ContainsFunc(vars, func(v string) bool { return os.Getenv(v) != "" }) {
		return nil
	}
	return fmt.Errorf("%w: set %s", ErrEndpointNotConfigured, strings.Join(vars, " or "))
}

// Jaeger accepts OTLP natively, so it differs from otlp only in which
// variable must be set.
var spanFactories = map[string]func(context.Context, options) (sdktrace.SpanExporter, error){
	"stdout": func(_ context.Context, o options) (sdktrace.SpanExporter, error) {
		return stdouttrace.New(stdouttrace.WithWriter(o.writer), stdouttrace.WithPrettyPrint())
	},
	"otlp": func(ctx context.Context, _ options) (sdktrace.SpanExporter, error) {
		if err := requireEnv("OTEL_EXPORTER_OTLP_ENDPOINT", "OTEL_EXPORTER_OTLP_TRACES_ENDPOINT"); err != nil {
			return nil, err
		}
		return otlptracegrpc.New(ctx)
	},
	"jaeger": func(ctx context.Context, _ options) (sdktrace.SpanExporter, error) {
		if err := requireEnv("OTEL_EXPORTER_JAEGER_ENDPOINT"); err != nil {
			return nil, err
		}
		return otlptracegrpc.New(ctx)
	},
	"none": func(context.Context, options) (sdktrace.SpanExporter, error) {
		return stdouttrace.New(stdouttrace.WithWriter(io.Discard))
	},
}

var readerFactories = map[string]func(context.Context, options) (sdkmetric.Reader, error){
	"stdout": func(_ context.Context, o options) (sdkmetric.Reader, error) {
		exp, err := stdoutmetric.New(stdoutmetric.WithWriter(o.writer))
		if err != nil {
			return nil, err
		}
		return sdkmetric.NewPeriodicReader(exp), nil
	},
	"otlp": func(ctx context.Context, _ options) (sdkmetric.Reader, error) {
		if err := requireEnv("OTEL_EXPORTER_OTLP_ENDPOINT", "OTEL_EXPORTER_OTLP_METRICS_ENDPOINT"); err != nil {
			return nil, err
		}
		exp, err := otlpmetricgrpc.New(ctx)
		if err != nil {
			return nil, err
		}
		return sdkmetric.NewPeriodicReader(exp), nil
	},
	"prometheus": func(context.Context, options) (sdkmetric.Reader, error) {
		return prometheus.New()
	},
	"none": func(context.Context, options) (sdkmetric.Reader, error) {
		return sdkmetric.NewManualReader(), nil
	},
}

// build looks up name ("" means "none") and runs its factory.
func build[T any](ctx context.Context, kind string, factories map[string]func(context.Context, options) (T, error), name string, opts []Option) (T, error) {
	if name == "" {
		name = "none"
	}
	f, ok := factories[name]
	if !ok {
		var zero T
		return zero, fmt.Errorf("%w: %s %q", ErrUnknownExporter, kind, name)
	}
	o := options{writer: os.Stdout}
	for _, opt := range opts {
		opt(&o)
	}
	v, err := f(ctx, o)
	if err != nil {
		var zero T
		return zero, fmt.Errorf("%s exporter %q: %w", kind, name, err)
	}
	return v, nil
}

// NewTracingExporter creates a span exporter: stdout, otlp, jaeger or none.
func NewTracingExporter(ctx context.Context, name string, opts ...Option) (sdktrace.SpanExporter, error) {
	return build(ctx, "tracing", spanFactories, name, opts)
}

// NewMetricsReader creates a metric reader: stdout, otlp, prometheus or none.
func NewMetricsReader(ctx context.Context, name string, opts ...Option) (sdkmetric.Reader, error) {
	return build(ctx, "metrics", readerFactories, name, opts)
}
