package util

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/spec-kit/petcare-identity/internal/domain"
)

func TestToDomainErrorMapsSentinels(t *testing.T) {
	tests := []struct {
		err    error
		code   string
		status int
	}{
		{domain.ErrAuthenticationFailed, CodeAuthenticationFailed, http.StatusUnauthorized},
		{domain.ErrAccountDisabled, CodeAccountDisabled, http.StatusUnauthorized},
		{domain.ErrTokenExpired, CodeTokenExpired, http.StatusUnauthorized},
		{fmt.Errorf("%w: bad signature", domain.ErrTokenInvalid), CodeTokenInvalid, http.StatusUnauthorized},
		{domain.ErrAuthenticationRequired, CodeAuthenticationRequired, http.StatusUnauthorized},
		{domain.ErrAuthorizationDenied, CodeAuthorizationDenied, http.StatusForbidden},
		{fmt.Errorf("insert identity: %w", domain.ErrDuplicateUsername), CodeDuplicateUsername, http.StatusBadRequest},
		{domain.ErrDuplicateEmail, CodeDuplicateEmail, http.StatusBadRequest},
		{domain.ErrDuplicateLicenseOrRegistration, CodeDuplicateLicense, http.StatusBadRequest},
		{domain.ErrInvalidState, CodeInvalidState, http.StatusConflict},
		{domain.ErrApplicationNotFound, CodeApplicationNotFound, http.StatusNotFound},
		{domain.ErrIdentityNotFound, CodeIdentityNotFound, http.StatusNotFound},
		{domain.ErrTooManyAttempts, CodeTooManyAttempts, http.StatusTooManyRequests},
		{fmt.Errorf("%w: username is required", domain.ErrValidation), CodeValidation, http.StatusBadRequest},
	}

	for _, tt := range tests {
		de := ToDomainError(tt.err)
		assert.Equal(t, tt.code, de.Code, tt.err.Error())
		assert.Equal(t, tt.status, de.HTTPStatus, tt.err.Error())
		assert.ErrorIs(t, de, tt.err)
	}
}

func TestToDomainErrorHidesUnknownCauses(t *testing.T) {
	cause := errors.New("pq: connection refused to 10.0.0.5")
	de := ToDomainError(cause)
	assert.Equal(t, CodeInternal, de.Code)
	assert.Equal(t, http.StatusInternalServerError, de.HTTPStatus)
	assert.Equal(t, "internal server error", de.Message)
	assert.Empty(t, de.Details)
	assert.ErrorIs(t, de, cause)
}

func TestToDomainErrorPassesThrough(t *testing.T) {
	original := NewValidationError("bad body", map[string]any{"field": "email"})
	de := ToDomainError(fmt.Errorf("wrapped: %w", original))
	assert.Same(t, original.(*DomainError), de)
	assert.ErrorIs(t, de, domain.ErrValidation)

	assert.Nil(t, ToDomainError(nil))
}
