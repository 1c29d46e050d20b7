package observe

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	tracenoop "go.opentelemetry.io/otel/trace/noop"
)

// OpType distinguishes the operations the middleware instruments.
type OpType string

const (
	// OpQuery is a cache fetch against the backend.
	OpQuery OpType = "query"
	// OpMutation is a write against the backend.
	OpMutation OpType = "mutation"
	// OpRequest is a single HTTP request made by the fetch client.
	OpRequest OpType = "request"
)

// OpMeta describes one instrumented operation.
type OpMeta struct {
	Op   OpType // Operation type (required)
	Kind string // Resource kind for queries, e.g. "posts"
	Key  string // Canonical query key (optional)
	Name string // Mutation name or "METHOD /path" for requests
}

// SpanName returns the deterministic span name for this operation.
// Format: query.fetch.<kind>, mutation.<name> or http.<name>
func (m OpMeta) SpanName() string {
	switch m.Op {
	case OpQuery:
		return "query.fetch." + m.Kind
	case OpMutation:
		return "mutation." + m.Name
	case OpRequest:
		return "http." + m.Name
	default:
		return string(m.Op)
	}
}

// Label returns a short human readable identifier.
func (m OpMeta) Label() string {
	if m.Op == OpQuery {
		if m.Key != "" {
			return m.Key
		}
		return m.Kind
	}
	return m.Name
}

func (m OpMeta) attributes() []attribute.KeyValue {
	attrs := []attribute.KeyValue{
		attribute.String("op.type", string(m.Op)),
	}
	if m.Kind != "" {
		attrs = append(attrs, attribute.String("query.kind", m.Kind))
	}
	if m.Name != "" {
		attrs = append(attrs, attribute.String("op.name", m.Name))
	}
	return attrs
}

// Tracer wraps OpenTelemetry tracing with operation span management.
//
// Contract:
// - Concurrency: implementations must be safe for concurrent use.
// - Errors: EndSpan must be best-effort and must not panic.
type Tracer interface {
	// StartSpan starts a new span for the operation.
	StartSpan(ctx context.Context, meta OpMeta) (context.Context, trace.Span)

	// EndSpan ends the span, recording any error.
	EndSpan(span trace.Span, err error)
}

type tracerImpl struct {
	tracer trace.Tracer
}

// NewTracer wraps an OpenTelemetry tracer.
func NewTracer(t trace.Tracer) Tracer {
	return &tracerImpl{tracer: t}
}

// StartSpan starts a span carrying the operation's attributes. The full key
// is attached for queries since it is bounded by the caller's key space.
func (t *tracerImpl) StartSpan(ctx context.Context, meta OpMeta) (context.Context, trace.Span) {
	attrs := append(meta.attributes(), attribute.Bool("op.error", false))
	if meta.Key != "" {
		attrs = append(attrs, attribute.String("query.key", meta.Key))
	}

	kind := trace.SpanKindInternal
	if meta.Op == OpRequest {
		kind = trace.SpanKindClient
	}

	return t.tracer.Start(ctx, meta.SpanName(),
		trace.WithAttributes(attrs...),
		trace.WithSpanKind(kind),
	)
}

// EndSpan ends the span and records the error status if present.
func (t *tracerImpl) EndSpan(span trace.Span, err error) {
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		span.SetAttributes(attribute.Bool("op.error", true))
		span.RecordError(err)
	} else {
		span.SetStatus(codes.Ok, "")
	}
	span.End()
}

type noopTracer struct {
	noop trace.Tracer
}

func newNoopTracer() Tracer {
	return &noopTracer{
		noop: tracenoop.NewTracerProvider().Tracer("noop"),
	}
}

func (t *noopTracer) StartSpan(ctx context.Context, meta OpMeta) (context.Context, trace.Span) {
	return t.noop.Start(ctx, meta.SpanName())
}

func (t *noopTracer) EndSpan(span trace.Span, err error) {
	span.End()
}
