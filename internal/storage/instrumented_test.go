package storage

import (
	"context"
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInstrumentedBackend_CountsOutcomes(t *testing.T) {
	ctx := context.Background()
	metrics := NewMetrics(prometheus.NewRegistry())
	b := Instrument(NewMemoryBackend(), metrics)

	require.NoError(t, b.Save(ctx, submission("1", "2024-01-01T00:00:00.000Z")))
	assert.Error(t, b.Save(ctx, nil))
	_, err := b.List(ctx)
	require.NoError(t, err)

	assert.Equal(t, float64(1), testutil.ToFloat64(metrics.operations.WithLabelValues(BackendMemory, "save", "success")))
	assert.Equal(t, float64(1), testutil.ToFloat64(metrics.operations.WithLabelValues(BackendMemory, "save", "error")))
	assert.Equal(t, float64(1), testutil.ToFloat64(metrics.operations.WithLabelValues(BackendMemory, "list", "success")))
	assert.Equal(t, BackendMemory, b.Name())
}

func TestInstrumentedBackend_PassesErrorsThrough(t *testing.T) {
	cause := errors.New("no host")
	b := Instrument(NewUnavailableBackend(BackendRedis, cause), nil)

	err := b.Ping(context.Background())
	assert.ErrorIs(t, err, cause)
	assert.ErrorIs(t, err, ErrUnavailable)
}
