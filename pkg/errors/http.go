package errors

import (
	"errors"
)

const genericMessage = "An unexpected error occurred"

var statusByKind = map[Kind]int{
	KindValidation:     StatusBadRequest,
	KindInvalidRequest: StatusBadRequest,
	KindNotFound:       StatusNotFound,
	KindUnauthorized:   StatusUnauthorized,
	KindLocked:         StatusLocked,
	KindRateLimited:    StatusTooManyRequests,
}

// HTTPStatusCode maps err to a response status. Anything unclassified is a 500.
func HTTPStatusCode(err error) int {
	if status, ok := statusByKind[KindOf(err)]; ok {
		return status
	}
	return StatusInternalServerError
}

// GetHumanReadableMessage returns the AppError message, never the text of a foreign error: driver
// errors and file paths stay in the logs.
func GetHumanReadableMessage(err error) string {
	var appErr *AppError
	if errors.As(err, &appErr) && appErr.Message != "" {
		return appErr.Message
	}
	return genericMessage
}
