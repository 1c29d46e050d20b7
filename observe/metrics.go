package observe

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Metrics records cache and backend operation metrics.
//
// Contract:
// - Concurrency: implementations must be safe for concurrent use.
// - Context: must return quickly.
// - Errors: implementations must not panic.
type Metrics interface {
	// RecordOperation records a fetch, mutation or request with its duration
	// and error status.
	RecordOperation(ctx context.Context, meta OpMeta, duration time.Duration, err error)

	// RecordCacheHit records a read served from fresh cached data.
	RecordCacheHit(ctx context.Context, meta OpMeta)

	// RecordDeduplicated records a read that joined a fetch already in flight.
	RecordDeduplicated(ctx context.Context, meta OpMeta)

	// RecordInvalidation records count entries of kind being invalidated.
	RecordInvalidation(ctx context.Context, kind string, count int)
}

type metricsImpl struct {
	totalCount   metric.Int64Counter
	errorCount   metric.Int64Counter
	durationHist metric.Float64Histogram
	hitCount     metric.Int64Counter
	dedupCount   metric.Int64Counter
	invalidCount metric.Int64Counter
}

// NewMetrics creates the instrument set on meter.
func NewMetrics(meter metric.Meter) (Metrics, error) {
	m := &metricsImpl{}
	var err error

	if m.totalCount, err = meter.Int64Counter(
		"querysync.op.total",
		metric.WithDescription("Total number of backend operations"),
		metric.WithUnit("{call}"),
	); err != nil {
		return nil, err
	}

	if m.errorCount, err = meter.Int64Counter(
		"querysync.op.errors",
		metric.WithDescription("Total number of failed backend operations"),
		metric.WithUnit("{error}"),
	); err != nil {
		return nil, err
	}

	if m.durationHist, err = meter.Float64Histogram(
		"querysync.op.duration_ms",
		metric.WithDescription("Backend operation duration in milliseconds"),
		metric.WithUnit("ms"),
	); err != nil {
		return nil, err
	}

	if m.hitCount, err = meter.Int64Counter(
		"querysync.cache.hits",
		metric.WithDescription("Reads served from fresh cached data"),
		metric.WithUnit("{read}"),
	); err != nil {
		return nil, err
	}

	if m.dedupCount, err = meter.Int64Counter(
		"querysync.cache.deduplicated",
		metric.WithDescription("Reads that joined an in-flight fetch"),
		metric.WithUnit("{read}"),
	); err != nil {
		return nil, err
	}

	if m.invalidCount, err = meter.Int64Counter(
		"querysync.cache.invalidations",
		metric.WithDescription("Cache entries marked stale"),
		metric.WithUnit("{entry}"),
	); err != nil {
		return nil, err
	}

	return m, nil
}

func (m *metricsImpl) RecordOperation(ctx context.Context, meta OpMeta, duration time.Duration, err error) {
	opt := metric.WithAttributes(meta.attributes()...)

	m.totalCount.Add(ctx, 1, opt)
	if err != nil {
		m.errorCount.Add(ctx, 1, opt)
	}
	m.durationHist.Record(ctx, float64(duration.Milliseconds()), opt)
}

func (m *metricsImpl) RecordCacheHit(ctx context.Context, meta OpMeta) {
	m.hitCount.Add(ctx, 1, metric.WithAttributes(meta.attributes()...))
}

func (m *metricsImpl) RecordDeduplicated(ctx context.Context, meta OpMeta) {
	m.dedupCount.Add(ctx, 1, metric.WithAttributes(meta.attributes()...))
}

func (m *metricsImpl) RecordInvalidation(ctx context.Context, kind string, count int) {
	m.invalidCount.Add(ctx, int64(count),
		metric.WithAttributes(attribute.String("query.kind", kind)),
	)
}

type noopMetrics struct{}

func (noopMetrics) RecordOperation(context.Context, OpMeta, time.Duration, error) {}
func (noopMetrics) RecordCacheHit(context.Context, OpMeta)                        {}
func (noopMetrics) RecordDeduplicated(context.Context, OpMeta)                    {}
func (noopMetrics) RecordInvalidation(context.Context, string, int)               {}
