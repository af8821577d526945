package repository

import (
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"

	"github.com/spec-kit/petcare-identity/internal/domain"
)

func TestTranslateUniqueViolation(t *testing.T) {
	tests := map[string]error{
		"identities_username_key":                  domain.ErrDuplicateUsername,
		"identities_email_key":                     domain.ErrDuplicateEmail,
		"veterinarian_profiles_license_number_key": domain.ErrDuplicateLicenseOrRegistration,
		"facility_profiles_tax_id_key":             domain.ErrDuplicateLicenseOrRegistration,
		"registration_applications_username_open":  domain.ErrDuplicateUsername,
		"registration_applications_email_open":     domain.ErrDuplicateEmail,
		"some_future_username_idx":                 domain.ErrDuplicateUsername,
		"unknown_idx":                              domain.ErrDuplicateLicenseOrRegistration,
	}
	for constraint, want := range tests {
		err := fmt.Errorf("insert: %w", &pgconn.PgError{Code: pgUniqueViolationCode, ConstraintName: constraint})
		assert.ErrorIs(t, translateUniqueViolation(err), want, constraint)
	}
}

func TestTranslateUniqueViolationPassesOtherErrors(t *testing.T) {
	fk := &pgconn.PgError{Code: "23503", ConstraintName: "identities_username_key"}
	assert.Same(t, fk, translateUniqueViolation(fk))

	plain := errors.New("boom")
	assert.Equal(t, plain, translateUniqueViolation(plain))
}

func TestOpenStatusesCoverNonTerminalStates(t *testing.T) {
	assert.Equal(t, "('PENDING', 'UNDER_REVIEW')", openStatuses)
	for _, st := range domain.NonTerminalStatuses {
		assert.False(t, st.Terminal(), st)
	}
}
