package storage

import (
	"context"
	"errors"

	"github.com/concordtech/contact-api/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// DatabaseBackend stores submissions in the submissions table through gorm.
type DatabaseBackend struct {
	db *gorm.DB
}

func NewDatabaseBackend(db *gorm.DB) (*DatabaseBackend, error) {
	if db == nil {
		return nil, unavailable(BackendDatabase, "init", errors.New("database is not configured"))
	}

	return &DatabaseBackend{db: db}, nil
}

func (b *DatabaseBackend) Name() string {
	return BackendDatabase
}

func (b *DatabaseBackend) Save(ctx context.Context, submission *models.Submission) error {
	if err := checkSubmission(submission); err != nil {
		return err
	}

	// Create takes a copy so gorm cannot write defaults back into the caller's value.
	row := *submission
	if err := b.db.WithContext(ctx).Create(&row).Error; err != nil {
		return unavailable(BackendDatabase, "save", err)
	}

	return nil
}

func (b *DatabaseBackend) List(ctx context.Context) ([]models.Submission, error) {
	var submissions []models.Submission

	err := b.db.WithContext(ctx).
		Order(clause.OrderByColumn{Column: clause.Column{Name: "timestamp"}, Desc: true}).
		Find(&submissions).Error
	if err != nil {
		return nil, unavailable(BackendDatabase, "list", err)
	}

	if submissions == nil {
		submissions = []models.Submission{}
	}

	return submissions, nil
}

func (b *DatabaseBackend) Ping(ctx context.Context) error {
	sqlDB, err := b.db.DB()
	if err != nil {
		return unavailable(BackendDatabase, "ping", err)
	}

	if err := sqlDB.PingContext(ctx); err != nil {
		return unavailable(BackendDatabase, "ping", err)
	}

	return nil
}

// The gorm handle is owned by the ApplicationConfig and closed there
func (b *DatabaseBackend) Close() error {
	return nil
}
