package dto

import (
	"time"

	"github.com/spec-kit/petcare-identity/internal/domain"
)

// LoginRequest payload for both login paths.
type LoginRequest struct {
	UsernameOrEmail string `json:"username_or_email" validate:"required,max=255"`
	Password        string `json:"password" validate:"required,max=72"`
}

// AuthResponse standard response for login endpoints.
type AuthResponse struct {
	Token     string          `json:"token"`
	TokenType string          `json:"token_type"`
	ExpiresAt time.Time       `json:"expires_at"`
	Identity  IdentitySummary `json:"identity"`
	Override  bool            `json:"override,omitempty"`
}

// IdentitySummary is the short identity view returned on login.
type IdentitySummary struct {
	ID       string               `json:"id"`
	Username string               `json:"username"`
	Email    string               `json:"email"`
	Role     domain.Role          `json:"role"`
	Status   domain.AccountStatus `json:"status"`
	Verified bool                 `json:"verified"`
}

// IdentityResponse is the full identity with its role profile.
type IdentityResponse struct {
	IdentitySummary
	Contact   domain.Contact     `json:"contact"`
	Profile   domain.RoleProfile `json:"profile"`
	CreatedAt time.Time          `json:"created_at"`
	UpdatedAt time.Time          `json:"updated_at"`
}

// ContactPayload carries the owner-editable personal fields.
type ContactPayload struct {
	FirstName  string `json:"first_name" validate:"max=100"`
	LastName   string `json:"last_name" validate:"max=100"`
	Phone      string `json:"phone" validate:"max=20"`
	Address    string `json:"address" validate:"max=500"`
	City       string `json:"city" validate:"max=100"`
	State      string `json:"state" validate:"max=100"`
	Country    string `json:"country" validate:"max=100"`
	PostalCode string `json:"postal_code" validate:"max=20"`
}

// UpdateProfileRequest payload for PUT /auth/profile.
type UpdateProfileRequest struct {
	ContactPayload
}

// ChangePasswordRequest payload.
type ChangePasswordRequest struct {
	CurrentPassword string `json:"current_password" validate:"required"`
	NewPassword     string `json:"new_password" validate:"required,min=6,max=72"`
}

// VerifyTokenResponse echoes the decoded principal.
type VerifyTokenResponse struct {
	Valid      bool        `json:"valid"`
	IdentityID string      `json:"identity_id"`
	Subject    string      `json:"subject"`
	Role       domain.Role `json:"role"`
}

// Contact converts the payload to the domain value.
func (p ContactPayload) Contact() domain.Contact {
	return domain.Contact{
		FirstName:  p.FirstName,
		LastName:   p.LastName,
		Phone:      p.Phone,
		Address:    p.Address,
		City:       p.City,
		State:      p.State,
		Country:    p.Country,
		PostalCode: p.PostalCode,
	}
}

// NewIdentitySummary maps an identity; the password digest never leaves the service.
func NewIdentitySummary(identity *domain.Identity) IdentitySummary {
	return IdentitySummary{
		ID:       identity.ID,
		Username: identity.Username,
		Email:    identity.Email,
		Role:     identity.Role,
		Status:   identity.Status(),
		Verified: identity.Verified,
	}
}

// NewIdentityResponse maps an identity with its profile.
func NewIdentityResponse(identity *domain.Identity) IdentityResponse {
	return IdentityResponse{
		IdentitySummary: NewIdentitySummary(identity),
		Contact:         identity.Contact,
		Profile:         identity.Profile,
		CreatedAt:       identity.CreatedAt,
		UpdatedAt:       identity.UpdatedAt,
	}
}

// NewIdentityResponses maps a page of identities.
func NewIdentityResponses(identities []*domain.Identity) []IdentityResponse {
	out := make([]IdentityResponse, 0, len(identities))
	for _, identity := range identities {
		out = append(out, NewIdentityResponse(identity))
	}
	return out
}
