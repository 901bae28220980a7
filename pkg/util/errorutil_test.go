package util

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestToDomainError(t *testing.T) {
	raw := errors.New("pq: connection refused")
	converted := ToDomainError(raw)
	require.NotNil(t, converted)
	assert.Equal(t, CodeInternal, converted.Code)
	assert.Equal(t, http.StatusInternalServerError, converted.HTTPStatus)
	assert.ErrorIs(t, converted, raw)

	domainErr := NewPermissionError("denied")
	assert.Same(t, domainErr, error(ToDomainError(domainErr)))

	wrapped := fmt.Errorf("handling turn: %w", NewNotFound("ticket", nil))
	assert.Equal(t, CodeNotFound, ToDomainError(wrapped).Code)

	assert.Nil(t, ToDomainError(nil))
}

func TestIsCode(t *testing.T) {
	assert.True(t, IsCode(NewValidationError("bad", nil), CodeValidation))
	assert.True(t, IsCode(fmt.Errorf("wrap: %w", NewFatal(errors.New("down"))), CodeFatal))
	assert.False(t, IsCode(NewValidationError("bad", nil), CodePermission))
	assert.False(t, IsCode(errors.New("plain"), CodeValidation))
	assert.False(t, IsCode(nil, CodeValidation))
}

func TestUserMessageNeverEchoesInternals(t *testing.T) {
	secret := "password=hunter2 host=10.0.0.5"
	cases := []error{
		NewFatal(errors.New(secret)),
		NewTransientLookup(errors.New(secret)),
		NewInternalError(errors.New(secret)),
		errors.New(secret),
	}
	for _, err := range cases {
		msg := UserMessage(err)
		assert.NotContains(t, msg, "hunter2")
		assert.NotContains(t, msg, "10.0.0.5")
		assert.NotEmpty(t, msg)
	}
}

func TestUserMessageIsStablePerCode(t *testing.T) {
	assert.Equal(t, "You do not have permission for that action.", UserMessage(NewPermissionError("x")))
	assert.Equal(t, "No such ticket.", UserMessage(NewNotFound("ticket", nil)))
	assert.Equal(t, "The ticket status cannot be changed that way.", UserMessage(NewInvalidTransition("x", nil)))
	assert.Equal(t,
		UserMessage(NewFatal(errors.New("a"))),
		UserMessage(NewFatal(errors.New("b"))))
}
