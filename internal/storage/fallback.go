package storage

import (
	"context"
	"errors"
	"log/slog"

	"github.com/concordtech/contact-api/internal/log"
	"github.com/concordtech/contact-api/internal/models"
	"github.com/concordtech/contact-api/pkg/circuitbreaker"
)

// FallbackBackend tries the primary on every call and, when it fails, serves the call from an
// owned MemoryBackend instead. Failover is never sticky: the next call tries the primary again
// (or, while the circuit breaker is open, skips straight to memory until it half-opens).
type FallbackBackend struct {
	primary  Backend
	fallback *MemoryBackend
	breaker  circuitbreaker.CircuitBreaker
	metrics  *Metrics
	logger   *log.Logger
}

type FallbackOption func(*FallbackBackend)

func WithCircuitBreaker(cb circuitbreaker.CircuitBreaker) FallbackOption {
	return func(b *FallbackBackend) {
		b.breaker = cb
	}
}

func WithFallbackMetrics(m *Metrics) FallbackOption {
	return func(b *FallbackBackend) {
		b.metrics = m
	}
}

func NewFallbackBackend(primary Backend, fallback *MemoryBackend, logger *log.Logger, opts ...FallbackOption) *FallbackBackend {
	if fallback == nil {
		fallback = NewMemoryBackend()
	}

	b := &FallbackBackend{
		primary:  primary,
		fallback: fallback,
		logger:   logger,
	}

	for _, opt := range opts {
		opt(b)
	}

	return b
}

func (b *FallbackBackend) Name() string {
	return b.primary.Name()
}

func (b *FallbackBackend) Primary() Backend {
	return b.primary
}

func (b *FallbackBackend) Fallback() *MemoryBackend {
	return b.fallback
}

func (b *FallbackBackend) callPrimary(fn func() error) error {
	if b.breaker == nil {
		return fn()
	}
	return b.breaker.Call(fn)
}

func (b *FallbackBackend) Save(ctx context.Context, submission *models.Submission) error {
	err := b.callPrimary(func() error {
		return b.primary.Save(ctx, submission)
	})
	if err == nil {
		return nil
	}

	if ctxErr := ctx.Err(); ctxErr != nil {
		return err
	}

	b.reportFallback(ctx, "save", err)

	return b.fallback.Save(ctx, submission)
}

// List merges the primary's contents with anything saved to memory during an outage, so a
// submission accepted while the primary was down stays visible for the life of the process.
func (b *FallbackBackend) List(ctx context.Context) ([]models.Submission, error) {
	var primaryList []models.Submission

	err := b.callPrimary(func() error {
		var listErr error
		primaryList, listErr = b.primary.List(ctx)
		return listErr
	})

	fallbackList, fallbackErr := b.fallback.List(ctx)
	if fallbackErr != nil {
		return nil, fallbackErr
	}

	if err != nil {
		if ctx.Err() != nil {
			return nil, err
		}
		b.reportFallback(ctx, "list", err)
		return fallbackList, nil
	}

	return mergeByID(primaryList, fallbackList), nil
}

func (b *FallbackBackend) Ping(ctx context.Context) error {
	return b.primary.Ping(ctx)
}

func (b *FallbackBackend) Close() error {
	return errors.Join(b.primary.Close(), b.fallback.Close())
}

func (b *FallbackBackend) reportFallback(ctx context.Context, op string, cause error) {
	b.metrics.observeFallback(b.primary.Name(), op)

	if b.logger == nil {
		return
	}

	logger := log.GetLoggerInstanceFromContext(ctx, b.logger)
	logger.Event(ctx, slog.LevelWarn, log.EventStorageFallback,
		"backend", b.primary.Name(),
		"operation", op,
		"circuit_open", errors.Is(cause, circuitbreaker.ErrCircuitOpen),
		"error", cause.Error(),
	)
}

func mergeByID(primary, secondary []models.Submission) []models.Submission {
	merged := make([]models.Submission, 0, len(primary)+len(secondary))
	seen := make(map[string]struct{}, len(primary)+len(secondary))

	for _, list := range [][]models.Submission{primary, secondary} {
		for _, s := range list {
			if _, dup := seen[s.ID]; dup {
				continue
			}
			seen[s.ID] = struct{}{}
			merged = append(merged, s)
		}
	}

	return merged
}
