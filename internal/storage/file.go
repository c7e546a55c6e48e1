package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/concordtech/contact-api/internal/models"
)

// FileBackend stores every submission in one JSON array that is rewritten on each save.
//
// The in-process mutex serializes read-modify-write and the rewrite goes through a temp file and
// rename, so a crash never leaves a half-written array. Two processes sharing the file can still
// lose each other's writes.
type FileBackend struct {
	path string
	mu   sync.Mutex
}

func NewFileBackend(path string) (*FileBackend, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, unavailable(BackendFile, "init", errors.New("STORAGE_FILE_PATH is not set"))
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, unavailable(BackendFile, "init", err)
	}

	return &FileBackend{path: path}, nil
}

func (b *FileBackend) Name() string {
	return BackendFile
}

func (b *FileBackend) Path() string {
	return b.path
}

func (b *FileBackend) Save(ctx context.Context, submission *models.Submission) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := checkSubmission(submission); err != nil {
		return err
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	submissions, err := b.read()
	if err != nil {
		return err
	}

	submissions = append(submissions, *submission)

	return b.write(submissions)
}

func (b *FileBackend) List(ctx context.Context) ([]models.Submission, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	return b.read()
}

func (b *FileBackend) Ping(context.Context) error {
	info, err := os.Stat(filepath.Dir(b.path))
	if err != nil {
		return unavailable(BackendFile, "ping", err)
	}
	if !info.IsDir() {
		return unavailable(BackendFile, "ping", fmt.Errorf("%s is not a directory", filepath.Dir(b.path)))
	}
	return nil
}

func (b *FileBackend) Close() error {
	return nil
}

func (b *FileBackend) read() ([]models.Submission, error) {
	data, err := os.ReadFile(b.path)
	if errors.Is(err, fs.ErrNotExist) {
		return []models.Submission{}, nil
	}
	if err != nil {
		return nil, unavailable(BackendFile, "read", err)
	}

	if len(strings.TrimSpace(string(data))) == 0 {
		return []models.Submission{}, nil
	}

	var submissions []models.Submission
	if err := json.Unmarshal(data, &submissions); err != nil {
		return nil, fmt.Errorf("%s read %s: %w: %w", BackendFile, b.path, ErrCorrupt, err)
	}

	return submissions, nil
}

func (b *FileBackend) write(submissions []models.Submission) error {
	data, err := json.MarshalIndent(submissions, "", "  ")
	if err != nil {
		return fmt.Errorf("%s encode: %w", BackendFile, err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(b.path), filepath.Base(b.path)+".*.tmp")
	if err != nil {
		return unavailable(BackendFile, "write", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return unavailable(BackendFile, "write", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return unavailable(BackendFile, "write", err)
	}

	if err := os.Rename(tmpName, b.path); err != nil {
		os.Remove(tmpName)
		return unavailable(BackendFile, "write", err)
	}

	return nil
}
