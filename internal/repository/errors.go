package repository

import (
	"errors"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/spec-kit/petcare-identity/internal/domain"
)

// PostgreSQL error code for unique violation
const pgUniqueViolationCode = "23505"

var constraintErrors = map[string]error{
	"identities_username_key":                                 domain.ErrDuplicateUsername,
	"identities_email_key":                                    domain.ErrDuplicateEmail,
	"veterinarian_profiles_license_number_key":                domain.ErrDuplicateLicenseOrRegistration,
	"facility_profiles_facility_license_number_key":           domain.ErrDuplicateLicenseOrRegistration,
	"facility_profiles_govt_registration_number_key":          domain.ErrDuplicateLicenseOrRegistration,
	"facility_profiles_tax_id_key":                            domain.ErrDuplicateLicenseOrRegistration,
	"registration_applications_username_open":                 domain.ErrDuplicateUsername,
	"registration_applications_email_open":                    domain.ErrDuplicateEmail,
	"registration_applications_license_number_open":           domain.ErrDuplicateLicenseOrRegistration,
	"registration_applications_facility_license_number_open":  domain.ErrDuplicateLicenseOrRegistration,
	"registration_applications_govt_registration_number_open": domain.ErrDuplicateLicenseOrRegistration,
	"registration_applications_tax_id_open":                   domain.ErrDuplicateLicenseOrRegistration,
}

// translateUniqueViolation maps a unique-index race loser onto the same
// Duplicate* errors the pre-checks return. Other errors pass through.
func translateUniqueViolation(err error) error {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) || pgErr.Code != pgUniqueViolationCode {
		return err
	}
	if mapped, ok := constraintErrors[pgErr.ConstraintName]; ok {
		return mapped
	}
	switch {
	case strings.Contains(pgErr.ConstraintName, "username"):
		return domain.ErrDuplicateUsername
	case strings.Contains(pgErr.ConstraintName, "email"):
		return domain.ErrDuplicateEmail
	}
	return domain.ErrDuplicateLicenseOrRegistration
}
