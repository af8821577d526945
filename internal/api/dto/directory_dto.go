package dto

import (
	"strings"

	"github.com/spec-kit/petcare-identity/internal/domain"
)

// ProviderPublicResponse is the anonymous view of a provider. It carries no
// contact details and no document references.
type ProviderPublicResponse struct {
	ID                      string      `json:"id"`
	Role                    domain.Role `json:"role"`
	DisplayName             string      `json:"display_name"`
	City                    string      `json:"city,omitempty"`
	Verified                bool        `json:"verified"`
	Specializations         []string    `json:"specializations,omitempty"`
	ExperienceYears         int         `json:"experience_years,omitempty"`
	FacilityName            string      `json:"facility_name,omitempty"`
	OfferOnlineConsultation bool        `json:"offer_online_consultation"`
}

// PetOwnerDirectoryResponse is what professionals see of a pet owner.
type PetOwnerDirectoryResponse struct {
	ID          string `json:"id"`
	DisplayName string `json:"display_name"`
	City        string `json:"city,omitempty"`
}

func displayName(identity *domain.Identity) string {
	if name := strings.TrimSpace(identity.Contact.FirstName + " " + identity.Contact.LastName); name != "" {
		return name
	}
	return identity.Username
}

// NewProviderPublicResponse maps an identity to its public provider card.
func NewProviderPublicResponse(identity *domain.Identity) ProviderPublicResponse {
	out := ProviderPublicResponse{
		ID:          identity.ID,
		Role:        identity.Role,
		DisplayName: displayName(identity),
		City:        identity.Contact.City,
		Verified:    identity.Verified,
	}
	switch p := identity.Profile.(type) {
	case domain.VeterinarianProfile:
		out.Specializations = p.Specializations
		out.ExperienceYears = p.ExperienceYears
		out.FacilityName = p.Affiliation.FacilityName
		out.OfferOnlineConsultation = p.OfferOnlineConsultation
	case domain.TrainerProfile:
		out.Specializations = p.Specializations
		out.ExperienceYears = p.ExperienceYears
		out.FacilityName = p.TrainingCenterName
		out.OfferOnlineConsultation = p.OfferOnlineTraining
	case domain.FacilityProfile:
		out.DisplayName = p.BusinessName
		out.FacilityName = p.BusinessName
		out.OfferOnlineConsultation = p.OfferOnlineConsultation
	}
	return out
}

// NewProviderPublicResponses maps a page of providers.
func NewProviderPublicResponses(identities []*domain.Identity) []ProviderPublicResponse {
	out := make([]ProviderPublicResponse, 0, len(identities))
	for _, identity := range identities {
		out = append(out, NewProviderPublicResponse(identity))
	}
	return out
}

// NewPetOwnerDirectoryResponses maps a page of pet owners.
func NewPetOwnerDirectoryResponses(identities []*domain.Identity) []PetOwnerDirectoryResponse {
	out := make([]PetOwnerDirectoryResponse, 0, len(identities))
	for _, identity := range identities {
		out = append(out, PetOwnerDirectoryResponse{
			ID:          identity.ID,
			DisplayName: displayName(identity),
			City:        identity.Contact.City,
		})
	}
	return out
}
