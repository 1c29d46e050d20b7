package observe

import (
	"bytes"
	"context"
	"errors"
	"testing"
)

func TestConfigValidate(t *testing.T) {
	valid := func() Config {
		return Config{
			ServiceName: "test-service",
			Version:     "1.0.0",
			Tracing: TracingConfig{
				Enabled:   true,
				Exporter:  "stdout",
				SamplePct: 1.0,
			},
			Metrics: MetricsConfig{
				Enabled:  true,
				Exporter: "stdout",
			},
			Logging: LoggingConfig{
				Enabled: true,
				Level:   "info",
				Format:  "json",
			},
		}
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr error
	}{
		{name: "valid", mutate: func(*Config) {}},
		{
			name:    "missing service name",
			mutate:  func(c *Config) { c.ServiceName = "" },
			wantErr: ErrMissingServiceName,
		},
		{
			name:    "unknown tracing exporter",
			mutate:  func(c *Config) { c.Tracing.Exporter = "zipkin" },
			wantErr: ErrInvalidTracingExporter,
		},
		{
			name:    "sample pct above one",
			mutate:  func(c *Config) { c.Tracing.SamplePct = 1.5 },
			wantErr: ErrInvalidSamplePct,
		},
		{
			name:    "sample pct below zero",
			mutate:  func(c *Config) { c.Tracing.SamplePct = -0.1 },
			wantErr: ErrInvalidSamplePct,
		},
		{
			name:    "unknown metrics exporter",
			mutate:  func(c *Config) { c.Metrics.Exporter = "statsd" },
			wantErr: ErrInvalidMetricsExporter,
		},
		{
			name:    "unknown log level",
			mutate:  func(c *Config) { c.Logging.Level = "trace" },
			wantErr: ErrInvalidLogLevel,
		},
		{
			name:    "unknown log format",
			mutate:  func(c *Config) { c.Logging.Format = "xml" },
			wantErr: ErrInvalidLogFormat,
		},
		{
			name: "disabled subsystems skip validation",
			mutate: func(c *Config) {
				c.Tracing = TracingConfig{Exporter: "zipkin"}
				c.Metrics = MetricsConfig{Exporter: "statsd"}
				c.Logging = LoggingConfig{Level: "trace"}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantErr == nil {
				if err != nil {
					t.Fatalf("expected nil error, got: %v", err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("expected %v, got: %v", tt.wantErr, err)
			}
		})
	}
}

func TestNewObserver_InvalidConfig(t *testing.T) {
	_, err := NewObserver(context.Background(), Config{})
	if !errors.Is(err, ErrMissingServiceName) {
		t.Fatalf("expected ErrMissingServiceName, got: %v", err)
	}
}

func TestNewObserver_LoggingToWriter(t *testing.T) {
	var buf bytes.Buffer
	obs, err := NewObserver(context.Background(), Config{
		ServiceName: "querysync-test",
		Logging: LoggingConfig{
			Enabled: true,
			Level:   "debug",
			Output:  &buf,
		},
	})
	if err != nil {
		t.Fatalf("NewObserver failed: %v", err)
	}
	defer obs.Shutdown(context.Background())

	obs.Logger().Debug(context.Background(), "hello")

	entry := decodeLogLine(t, buf.Bytes())
	if entry["service"] != "querysync-test" {
		t.Errorf("expected service field, got %v", entry["service"])
	}
	if entry["msg"] != "hello" {
		t.Errorf("expected msg 'hello', got %v", entry["msg"])
	}
}

func TestNewObserver_MetricsAndTracingEnabled(t *testing.T) {
	var buf bytes.Buffer
	obs, err := NewObserver(context.Background(), Config{
		ServiceName: "querysync-test",
		Tracing: TracingConfig{
			Enabled:   true,
			Exporter:  "none",
			SamplePct: 0.5,
		},
		Metrics: MetricsConfig{
			Enabled:  true,
			Exporter: "none",
		},
		Logging: LoggingConfig{
			Enabled: true,
			Output:  &buf,
		},
	})
	if err != nil {
		t.Fatalf("NewObserver failed: %v", err)
	}

	mw, err := MiddlewareFromObserver(obs)
	if err != nil {
		t.Fatalf("MiddlewareFromObserver failed: %v", err)
	}
	exec := mw.Wrap(func(ctx context.Context, meta OpMeta) (any, error) {
		return nil, nil
	})
	if _, err := exec(context.Background(), OpMeta{Op: OpQuery, Kind: "posts"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if err := obs.Shutdown(context.Background()); err != nil {
		t.Fatalf("Shutdown failed: %v", err)
	}
}

func TestMiddlewareFromObserver_Nil(t *testing.T) {
	if _, err := MiddlewareFromObserver(nil); !errors.Is(err, ErrNilObserver) {
		t.Fatalf("expected ErrNilObserver, got: %v", err)
	}
}
