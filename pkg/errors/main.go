package errors

import (
	"errors"
	"fmt"
)

// Status codes the API emits. Mirrors net/http so callers outside HTTP code need not import it.
const (
	StatusBadRequest          = 400
	StatusUnauthorized        = 401
	StatusNotFound            = 404
	StatusMethodNotAllowed    = 405
	StatusRequestTimeout      = 408
	StatusLocked              = 423
	StatusTooManyRequests     = 429
	StatusInternalServerError = 500
)

// Kind classifies an AppError and decides its HTTP status.
type Kind string

const (
	KindValidation     Kind = "VALIDATION_ERROR"
	KindInvalidRequest Kind = "INVALID_REQUEST"
	KindStorage        Kind = "STORAGE_ERROR"
	KindConfiguration  Kind = "CONFIGURATION_ERROR"
	KindNotFound       Kind = "NOT_FOUND"
	KindUnauthorized   Kind = "UNAUTHORIZED"
	KindLocked         Kind = "LOCKED"
	KindRateLimited    Kind = "TOO_MANY_REQUESTS"
	KindInternal       Kind = "INTERNAL_SERVER_ERROR"
	KindUnknown        Kind = "UNKNOWN_ERROR"
)

// AppError pairs a client-safe Message with the underlying cause, which is only ever logged.
type AppError struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

func newError(kind Kind, message string, err error) *AppError {
	return &AppError{Kind: kind, Message: message, Err: err}
}

// NewValidationError marks user-correctable input. Message is shown to the caller verbatim.
func NewValidationError(message string, err error) *AppError {
	return newError(KindValidation, message, err)
}

func NewInvalidRequestError(message string, err error) *AppError {
	return newError(KindInvalidRequest, message, err)
}

// NewStorageError marks a failed or unavailable backend.
func NewStorageError(message string, err error) *AppError {
	return newError(KindStorage, message, err)
}

func NewConfigurationError(message string, err error) *AppError {
	return newError(KindConfiguration, message, err)
}

func NewNotFoundError(message string, err error) *AppError {
	return newError(KindNotFound, message, err)
}

func NewUnauthorizedError(message string, err error) *AppError {
	return newError(KindUnauthorized, message, err)
}

func NewLockedError(message string, err error) *AppError {
	return newError(KindLocked, message, err)
}

func NewInternalServerError(message string, err error) *AppError {
	return newError(KindInternal, message, err)
}

// KindOf returns the kind of the first AppError in err's chain, KindUnknown for foreign errors
// and "" for nil.
func KindOf(err error) Kind {
	if err == nil {
		return ""
	}

	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Kind
	}
	return KindUnknown
}

func IsValidationError(err error) bool {
	return KindOf(err) == KindValidation
}

func IsStorageError(err error) bool {
	return KindOf(err) == KindStorage
}

func IsConfigurationError(err error) bool {
	return KindOf(err) == KindConfiguration
}
