// Package storage persists contact submissions behind a single two-operation contract.
//
// One Backend is selected per process. FallbackBackend optionally routes a failed call to an
// owned in-memory collection; whether that happens is a startup decision, never a per-variant one.
package storage

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/concordtech/contact-api/internal/models"
)

// Backend names accepted by STORAGE_BACKEND.
const (
	BackendMemory   = "memory"
	BackendFile     = "file"
	BackendRedis    = "redis"
	BackendDatabase = "database"
)

// ErrUnavailable is matched with errors.Is by every failure that means "the backend could not
// serve this call": missing configuration, refused connections, failed pings, I/O errors.
var ErrUnavailable = errors.New("storage backend unavailable")

// ErrCorrupt is returned when persisted data cannot be decoded. It is never silently overwritten.
var ErrCorrupt = errors.New("stored submissions are corrupt")

//go:generate mockgen -source=storage.go -destination=../../domain/contact/mock_backend_test.go -package=contact

type Backend interface {
	// Name identifies the backend in logs, metrics and health output.
	Name() string
	// Save persists one submission. The submission is not modified.
	Save(ctx context.Context, submission *models.Submission) error
	// List returns every stored submission in backend order.
	List(ctx context.Context) ([]models.Submission, error)
	// Ping reports whether the backend can currently serve calls.
	Ping(ctx context.Context) error
	// Close releases resources the backend owns. Shared clients are closed by their owner.
	Close() error
}

func unavailable(backend, op string, err error) error {
	return fmt.Errorf("%s %s: %w: %w", backend, op, ErrUnavailable, err)
}

func checkSubmission(submission *models.Submission) error {
	if submission == nil {
		return errors.New("submission is nil")
	}
	if strings.TrimSpace(submission.ID) == "" {
		return errors.New("submission has no id")
	}
	return nil
}

// SortByTimestampDesc orders submissions most-recent-first. Ties keep their input order.
// Timestamps that do not parse as RFC 3339 sort after every parseable one, in descending
// string order among themselves.
func SortByTimestampDesc(submissions []models.Submission) {
	slices.SortStableFunc(submissions, func(a, b models.Submission) int {
		return compareTimestampsDesc(a.Timestamp, b.Timestamp)
	})
}

func compareTimestampsDesc(a, b string) int {
	ta, errA := time.Parse(time.RFC3339Nano, a)
	tb, errB := time.Parse(time.RFC3339Nano, b)

	switch {
	case errA == nil && errB == nil:
		return tb.Compare(ta)
	case errA == nil:
		return -1
	case errB == nil:
		return 1
	default:
		return strings.Compare(b, a)
	}
}

// unavailableBackend stands in for a primary whose configuration is missing, so a memory
// fallback can still serve calls while every primary attempt reports the original cause.
type unavailableBackend struct {
	name  string
	cause error
}

// NewUnavailableBackend returns a Backend whose every operation fails with cause.
func NewUnavailableBackend(name string, cause error) Backend {
	return &unavailableBackend{name: name, cause: cause}
}

func (b *unavailableBackend) Name() string { return b.name }

func (b *unavailableBackend) Save(context.Context, *models.Submission) error {
	return unavailable(b.name, "save", b.cause)
}

func (b *unavailableBackend) List(context.Context) ([]models.Submission, error) {
	return nil, unavailable(b.name, "list", b.cause)
}

func (b *unavailableBackend) Ping(context.Context) error {
	return unavailable(b.name, "ping", b.cause)
}

func (b *unavailableBackend) Close() error { return nil }
