package storage

import (
	"context"
	"sync"

	"github.com/concordtech/contact-api/internal/models"
)

// MemoryBackend keeps submissions for the lifetime of the process. Contents are lost on restart.
type MemoryBackend struct {
	mu          sync.RWMutex
	submissions []models.Submission
}

func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{}
}

func (b *MemoryBackend) Name() string {
	return BackendMemory
}

func (b *MemoryBackend) Save(ctx context.Context, submission *models.Submission) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := checkSubmission(submission); err != nil {
		return err
	}

	b.mu.Lock()
	b.submissions = append(b.submissions, *submission)
	b.mu.Unlock()

	return nil
}

func (b *MemoryBackend) List(ctx context.Context) ([]models.Submission, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	b.mu.RLock()
	defer b.mu.RUnlock()

	out := make([]models.Submission, len(b.submissions))
	copy(out, b.submissions)

	return out, nil
}

func (b *MemoryBackend) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.submissions)
}

func (b *MemoryBackend) Ping(context.Context) error {
	return nil
}

func (b *MemoryBackend) Close() error {
	return nil
}
