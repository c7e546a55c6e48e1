package storage

import (
	"context"
	"time"

	"github.com/concordtech/contact-api/internal/models"
	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "github.com/concordtech/contact-api/internal/storage"

// Metrics holds the storage collectors. A nil *Metrics records nothing.
type Metrics struct {
	operations *prometheus.CounterVec
	duration   *prometheus.HistogramVec
	fallbacks  *prometheus.CounterVec
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		operations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "contact_storage_operations_total",
				Help: "Storage operations by backend, operation and outcome.",
			},
			[]string{"backend", "operation", "outcome"},
		),
		duration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "contact_storage_operation_duration_seconds",
				Help:    "Storage operation latency in seconds.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"backend", "operation"},
		),
		fallbacks: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "contact_storage_fallback_total",
				Help: "Calls served by the in-memory fallback because the primary failed.",
			},
			[]string{"backend", "operation"},
		),
	}

	if reg != nil {
		reg.MustRegister(m.operations, m.duration, m.fallbacks)
	}

	return m
}

func (m *Metrics) observe(backend, op string, started time.Time, err error) {
	if m == nil {
		return
	}

	outcome := "success"
	if err != nil {
		outcome = "error"
	}

	m.operations.WithLabelValues(backend, op, outcome).Inc()
	m.duration.WithLabelValues(backend, op).Observe(time.Since(started).Seconds())
}

func (m *Metrics) observeFallback(backend, op string) {
	if m == nil {
		return
	}
	m.fallbacks.WithLabelValues(backend, op).Inc()
}

// InstrumentedBackend records a span and metrics around every call to the wrapped backend.
type InstrumentedBackend struct {
	next    Backend
	metrics *Metrics
	tracer  trace.Tracer
}

func Instrument(next Backend, metrics *Metrics) *InstrumentedBackend {
	return &InstrumentedBackend{
		next:    next,
		metrics: metrics,
		tracer:  otel.Tracer(tracerName),
	}
}

func (b *InstrumentedBackend) Name() string {
	return b.next.Name()
}

func (b *InstrumentedBackend) Unwrap() Backend {
	return b.next
}

func (b *InstrumentedBackend) start(ctx context.Context, op string) (context.Context, trace.Span, time.Time) {
	ctx, span := b.tracer.Start(ctx, "storage."+op,
		trace.WithAttributes(attribute.String("storage.backend", b.next.Name())),
	)
	return ctx, span, time.Now()
}

func (b *InstrumentedBackend) finish(span trace.Span, op string, started time.Time, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, op+" failed")
	}
	span.End()
	b.metrics.observe(b.next.Name(), op, started, err)
}

func (b *InstrumentedBackend) Save(ctx context.Context, submission *models.Submission) error {
	ctx, span, started := b.start(ctx, "save")
	err := b.next.Save(ctx, submission)
	b.finish(span, "save", started, err)
	return err
}

func (b *InstrumentedBackend) List(ctx context.Context) ([]models.Submission, error) {
	ctx, span, started := b.start(ctx, "list")
	submissions, err := b.next.List(ctx)
	span.SetAttributes(attribute.Int("storage.count", len(submissions)))
	b.finish(span, "list", started, err)
	return submissions, err
}

func (b *InstrumentedBackend) Ping(ctx context.Context) error {
	ctx, span, started := b.start(ctx, "ping")
	err := b.next.Ping(ctx)
	b.finish(span, "ping", started, err)
	return err
}

func (b *InstrumentedBackend) Close() error {
	return b.next.Close()
}
