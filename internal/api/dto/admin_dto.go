package dto

import "github.com/spec-kit/petcare-identity/internal/domain"

// ReviewRequest payload for review and approve.
type ReviewRequest struct {
	Notes string `json:"notes" validate:"max=2000"`
}

// RejectRequest payload; the reason is stored on the application.
type RejectRequest struct {
	Reason string `json:"reason" validate:"required,max=2000"`
}

// StatusRequest payload for PUT /admin/identities/:id/status.
type StatusRequest struct {
	Status domain.AccountStatus `json:"status" validate:"required,oneof=active inactive suspended"`
}

// BulkStatusRequest payload for POST /admin/identities/status.
type BulkStatusRequest struct {
	IdentityIDs []string             `json:"identity_ids" validate:"required,min=1,max=500,dive,uuid"`
	Status      domain.AccountStatus `json:"status" validate:"required,oneof=active inactive suspended"`
}

// VerificationRequest payload for PUT /admin/identities/:id/verification.
type VerificationRequest struct {
	Verified *bool `json:"verified" validate:"required"`
}

// Pagination accompanies list responses.
type Pagination struct {
	Total  int `json:"total"`
	Limit  int `json:"limit"`
	Offset int `json:"offset"`
}
