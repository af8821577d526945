package util

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/spec-kit/petcare-identity/internal/domain"
)

// Stable client-visible error codes.
const (
	CodeAuthenticationFailed   = "AUTH_001"
	CodeAccountDisabled        = "AUTH_003"
	CodeTokenExpired           = "AUTH_005"
	CodeTokenInvalid           = "AUTH_006"
	CodeAuthenticationRequired = "AUTH_008"
	CodeAuthorizationDenied    = "BIZ_006"
	CodeIdentityNotFound       = "BIZ_003"
	CodeDuplicateUsername      = "REG_001"
	CodeDuplicateEmail         = "REG_002"
	CodeDuplicateLicense       = "REG_003"
	CodeInvalidState           = "REG_011"
	CodeApplicationNotFound    = "REG_012"
	CodeDocumentStorage        = "REG_013"
	CodeTooManyAttempts        = "RATE_001"
	CodeValidation             = "VAL_001"
	CodeNotFound               = "SYS_004"
	CodeInternal               = "SYS_001"
)

// DomainError standardizes application errors.
type DomainError struct {
	Code       string
	Message    string
	HTTPStatus int
	Details    map[string]any
	Err        error
}

func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *DomainError) Unwrap() error {
	return e.Err
}

// NewDomainError constructs a DomainError.
func NewDomainError(code, message string, status int, details map[string]any) *DomainError {
	return &DomainError{Code: code, Message: message, HTTPStatus: status, Details: details}
}

func NewValidationError(message string, details map[string]any) error {
	return &DomainError{
		Code:       CodeValidation,
		Message:    message,
		HTTPStatus: http.StatusBadRequest,
		Details:    details,
		Err:        domain.ErrValidation,
	}
}

func NewInternalError(err error) error {
	return &DomainError{
		Code:       CodeInternal,
		Message:    "internal server error",
		HTTPStatus: http.StatusInternalServerError,
		Err:        err,
	}
}

type mapping struct {
	target  error
	code    string
	message string
	status  int
}

// Order matters only where sentinels could wrap one another; they do not.
var mappings = []mapping{
	{domain.ErrAuthenticationFailed, CodeAuthenticationFailed, "invalid username/email or password", http.StatusUnauthorized},
	{domain.ErrAccountDisabled, CodeAccountDisabled, "account is disabled", http.StatusUnauthorized},
	{domain.ErrTokenExpired, CodeTokenExpired, "token has expired", http.StatusUnauthorized},
	{domain.ErrTokenInvalid, CodeTokenInvalid, "token is invalid", http.StatusUnauthorized},
	{domain.ErrAuthenticationRequired, CodeAuthenticationRequired, "authentication required", http.StatusUnauthorized},
	{domain.ErrAuthorizationDenied, CodeAuthorizationDenied, "access denied", http.StatusForbidden},
	{domain.ErrDuplicateUsername, CodeDuplicateUsername, "username already exists", http.StatusBadRequest},
	{domain.ErrDuplicateEmail, CodeDuplicateEmail, "email already exists", http.StatusBadRequest},
	{domain.ErrDuplicateLicenseOrRegistration, CodeDuplicateLicense, "license or registration number already exists", http.StatusBadRequest},
	{domain.ErrInvalidState, CodeInvalidState, "registration is not in a state that allows this action", http.StatusConflict},
	{domain.ErrApplicationNotFound, CodeApplicationNotFound, "registration application not found", http.StatusNotFound},
	{domain.ErrIdentityNotFound, CodeIdentityNotFound, "identity not found", http.StatusNotFound},
	{domain.ErrTooManyAttempts, CodeTooManyAttempts, "too many login attempts, try again later", http.StatusTooManyRequests},
	{domain.ErrDocumentStorageUnavailable, CodeDocumentStorage, "document uploads are not available", http.StatusServiceUnavailable},
}

// ToDomainError converts any error into a DomainError. Unknown errors become
// SYS_001 and keep their cause only for logging.
func ToDomainError(err error) *DomainError {
	if err == nil {
		return nil
	}
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr
	}
	for _, m := range mappings {
		if errors.Is(err, m.target) {
			return &DomainError{Code: m.code, Message: m.message, HTTPStatus: m.status, Err: err}
		}
	}
	if errors.Is(err, domain.ErrValidation) {
		return &DomainError{
			Code:       CodeValidation,
			Message:    "validation failed",
			HTTPStatus: http.StatusBadRequest,
			Details:    map[string]any{"reason": err.Error()},
			Err:        err,
		}
	}
	return &DomainError{
		Code:       CodeInternal,
		Message:    "internal server error",
		HTTPStatus: http.StatusInternalServerError,
		Err:        err,
	}
}
