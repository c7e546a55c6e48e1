package errors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
)

func TestHTTPStatusCode(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want int
	}{
		{"validation", NewValidationError("All fields are required", nil), StatusBadRequest},
		{"invalid request", NewInvalidRequestError("bad body", nil), StatusBadRequest},
		{"storage", NewStorageError("Failed to store submission", errors.New("dial tcp: refused")), StatusInternalServerError},
		{"configuration", NewConfigurationError("missing REDIS_HOST", nil), StatusInternalServerError},
		{"unauthorized", NewUnauthorizedError("Invalid password", nil), StatusUnauthorized},
		{"locked", NewLockedError("Access is locked", nil), StatusLocked},
		{"not found", NewNotFoundError("Invalid username", nil), StatusNotFound},
		{"wrapped", fmt.Errorf("save: %w", NewValidationError("x", nil)), StatusBadRequest},
		{"plain", errors.New("boom"), StatusInternalServerError},
		{"nil", nil, StatusInternalServerError},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, HTTPStatusCode(tc.err))
		})
	}
}

func TestGetHumanReadableMessage_HidesInternalErrors(t *testing.T) {
	storageErr := NewStorageError("Failed to store submission. Please try again later.", errors.New("open /var/data/submissions.json: permission denied"))

	assert.Equal(t, "Failed to store submission. Please try again later.", GetHumanReadableMessage(storageErr))
	assert.Equal(t, "An unexpected error occurred", GetHumanReadableMessage(errors.New("pq: password authentication failed")))
	assert.Contains(t, storageErr.Error(), "permission denied")
	assert.True(t, IsStorageError(storageErr))
	assert.False(t, IsValidationError(storageErr))
}

func TestFormatValidationErrors_UsesJSONFieldNames(t *testing.T) {
	type payload struct {
		FirstName string `json:"firstName" validate:"required"`
		Email     string `json:"email" validate:"required,email"`
	}

	v := validator.New()
	err := v.Struct(payload{Email: "nope"})

	formatted := FormatValidationErrors(err, &payload{})
	assert.Len(t, formatted, 2)
	assert.Equal(t, "firstName", formatted[0].Field)
	assert.Equal(t, "This field is required", formatted[0].Message)
	assert.Equal(t, "email", formatted[1].Field)
	assert.Equal(t, "Invalid email format", formatted[1].Message)

	assert.True(t, HasTag(err, "required"))
	assert.False(t, HasTag(err, "max"))
	assert.False(t, HasTag(errors.New("other"), "required"))
}

func TestKindOf(t *testing.T) {
	assert.Equal(t, Kind(""), KindOf(nil))
	assert.Equal(t, KindUnknown, KindOf(errors.New("boom")))
	assert.Equal(t, KindLocked, KindOf(fmt.Errorf("login: %w", NewLockedError("Access is locked", nil))))
	assert.Equal(t, "An unexpected error occurred", GetHumanReadableMessage(nil))
}
