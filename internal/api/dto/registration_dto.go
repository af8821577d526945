package dto

import (
	"encoding/json"
	"time"

	"github.com/spec-kit/petcare-identity/internal/domain"
)

// RegistrationRequest payload for POST /registrations/:role. Multipart
// submissions send contact and profile as JSON-encoded form values.
type RegistrationRequest struct {
	Username string          `json:"username" form:"username" validate:"required,min=3,max=100"`
	Email    string          `json:"email" form:"email" validate:"required,email,max=255"`
	Password string          `json:"password" form:"password" validate:"required,min=6,max=72"`
	Contact  ContactPayload  `json:"contact" form:"-"`
	Profile  json.RawMessage `json:"profile" form:"-"`
}

// AvailabilityQuery for GET /registrations/availability.
type AvailabilityQuery struct {
	Username      string `query:"username" validate:"omitempty,max=100"`
	Email         string `query:"email" validate:"omitempty,email,max=255"`
	LicenseNumber string `query:"license_number" validate:"omitempty,max=100"`
}

// ApplicationResponse is the admin view of an application.
type ApplicationResponse struct {
	ID            string                    `json:"id"`
	Role          domain.Role               `json:"role"`
	Username      string                    `json:"username"`
	Email         string                    `json:"email"`
	Contact       domain.Contact            `json:"contact"`
	Profile       domain.RoleProfile        `json:"profile"`
	Status        domain.RegistrationStatus `json:"status"`
	ReviewerNotes string                    `json:"reviewer_notes,omitempty"`
	ReviewedBy    *string                   `json:"reviewed_by,omitempty"`
	ReviewedAt    *time.Time                `json:"reviewed_at,omitempty"`
	IdentityID    *string                   `json:"identity_id,omitempty"`
	CreatedAt     time.Time                 `json:"created_at"`
	UpdatedAt     time.Time                 `json:"updated_at"`
}

// SubmitResponse is returned to the applicant.
type SubmitResponse struct {
	ApplicationID string                    `json:"application_id"`
	Status        domain.RegistrationStatus `json:"status"`
	Identity      *IdentitySummary          `json:"identity,omitempty"`
}

// NewApplicationResponse maps an application without its password digest.
func NewApplicationResponse(app *domain.RegistrationApplication) ApplicationResponse {
	return ApplicationResponse{
		ID:            app.ID,
		Role:          app.Role,
		Username:      app.Username,
		Email:         app.Email,
		Contact:       app.Contact,
		Profile:       app.Profile,
		Status:        app.Status,
		ReviewerNotes: app.ReviewerNotes,
		ReviewedBy:    app.ReviewedBy,
		ReviewedAt:    app.ReviewedAt,
		IdentityID:    app.IdentityID,
		CreatedAt:     app.CreatedAt,
		UpdatedAt:     app.UpdatedAt,
	}
}

// NewApplicationResponses maps a page of applications.
func NewApplicationResponses(apps []*domain.RegistrationApplication) []ApplicationResponse {
	out := make([]ApplicationResponse, 0, len(apps))
	for _, app := range apps {
		out = append(out, NewApplicationResponse(app))
	}
	return out
}
