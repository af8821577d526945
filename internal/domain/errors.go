package domain

import "errors"

// Identity and access failures. Callers compare with errors.Is; the HTTP layer
// maps each to a stable client-visible code.
var (
	ErrAuthenticationFailed           = errors.New("invalid username or password")
	ErrAccountDisabled                = errors.New("account is disabled")
	ErrTokenInvalid                   = errors.New("invalid authentication token")
	ErrTokenExpired                   = errors.New("authentication token has expired")
	ErrAuthenticationRequired         = errors.New("authentication required")
	ErrAuthorizationDenied            = errors.New("insufficient permissions to perform this action")
	ErrDuplicateUsername              = errors.New("username already exists")
	ErrDuplicateEmail                 = errors.New("email address already exists")
	ErrDuplicateLicenseOrRegistration = errors.New("license or registration number already exists")
	ErrInvalidState                   = errors.New("registration is not in a state that allows this action")
	ErrApplicationNotFound            = errors.New("registration application not found")
	ErrIdentityNotFound               = errors.New("identity not found")
	ErrTooManyAttempts                = errors.New("too many login attempts, try again later")
	ErrDocumentStorageUnavailable     = errors.New("document storage is not configured")
	ErrValidation                     = errors.New("invalid input")
)
