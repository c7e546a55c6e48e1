package contact

import (
	"context"
	"log/slog"
	"regexp"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/concordtech/contact-api/internal/log"
	"github.com/concordtech/contact-api/internal/models"
	"github.com/concordtech/contact-api/internal/storage"
	"github.com/concordtech/contact-api/pkg/constants"
	apperrors "github.com/concordtech/contact-api/pkg/errors"
	"github.com/go-playground/validator/v10"
)

// emailChar excludes the ECMAScript whitespace set, which is wider than RE2's \s.
const emailChar = `[^\t\n\v\f\r\p{Zs}\x{2028}\x{2029}\x{FEFF}@]`

var emailPattern = regexp.MustCompile(`^` + emailChar + `+@` + emailChar + `+\.` + emailChar + `+$`)

type IntakeService interface {
	// Accept validates and stores one submission.
	Accept(ctx context.Context, req *SubmitContactRequest) (*SubmitContactResponse, error)

	// List returns every stored submission, most recent first. It never returns a nil slice on success.
	List(ctx context.Context) ([]models.Submission, error)
}

type intakeService struct {
	logger   *log.Logger
	backend  storage.Backend
	validate *validator.Validate
	now      func() time.Time
	lastID   atomic.Int64
}

type ServiceOption func(*intakeService)

// WithClock replaces time.Now as the source of ids and timestamps.
func WithClock(now func() time.Time) ServiceOption {
	return func(s *intakeService) {
		s.now = now
	}
}

func NewIntakeService(logger *log.Logger, backend storage.Backend, opts ...ServiceOption) IntakeService {
	s := &intakeService{
		logger:   logger,
		backend:  backend,
		validate: newValidator(),
		now:      time.Now,
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

func newValidator() *validator.Validate {
	v := validator.New()
	_ = v.RegisterValidation("contactemail", func(fl validator.FieldLevel) bool {
		return emailPattern.MatchString(fl.Field().String())
	})
	return v
}

func (s *intakeService) Accept(ctx context.Context, req *SubmitContactRequest) (*SubmitContactResponse, error) {
	logger := log.GetLoggerInstanceFromContext(ctx, s.logger)

	if req == nil {
		req = &SubmitContactRequest{}
	}

	if err := s.validate.Struct(req); err != nil {
		message := MsgInvalidEmail
		reason := "invalid_email"
		if apperrors.HasTag(err, "required") {
			message = MsgAllFieldsRequired
			reason = "missing_fields"
		}

		logger.Event(ctx, slog.LevelInfo, log.EventSubmissionRejected,
			"reason", reason,
			"fields", apperrors.FormatValidationErrors(err, req),
		)
		return nil, apperrors.NewValidationError(message, err)
	}

	now := s.now().UTC()
	submission := ToSubmissionModel(req, s.nextID(now), now.Format(constants.ISO8601MillisFormat))

	if err := s.backend.Save(ctx, submission); err != nil {
		logger.Event(ctx, slog.LevelError, log.EventSubmissionFailed,
			"id", submission.ID,
			"backend", s.backend.Name(),
			"error", err,
		)
		return nil, apperrors.NewStorageError(MsgStoreFailed, err)
	}

	logger.Event(ctx, slog.LevelInfo, log.EventSubmissionAccepted,
		"id", submission.ID,
		"backend", s.backend.Name(),
	)

	return &SubmitContactResponse{Success: true, Message: MsgThankYou}, nil
}

func (s *intakeService) List(ctx context.Context) ([]models.Submission, error) {
	logger := log.GetLoggerInstanceFromContext(ctx, s.logger)

	submissions, err := s.backend.List(ctx)
	if err != nil {
		logger.Error("Failed to list submissions", "backend", s.backend.Name(), "error", err)
		return nil, apperrors.NewStorageError(MsgFetchFailed, err)
	}

	if submissions == nil {
		submissions = []models.Submission{}
	}

	storage.SortByTimestampDesc(submissions)

	return submissions, nil
}

// nextID returns the current Unix time in milliseconds, bumped past the last issued id so two
// submissions in the same millisecond do not collide within this process.
func (s *intakeService) nextID(now time.Time) string {
	ms := now.UnixMilli()
	for {
		last := s.lastID.Load()
		id := ms
		if id <= last {
			id = last + 1
		}
		if s.lastID.CompareAndSwap(last, id) {
			return strconv.FormatInt(id, 10)
		}
	}
}
