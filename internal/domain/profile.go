package domain

import (
	"encoding/json"
	"fmt"
	"strings"
)

// RoleProfile is the role-specific extension attached 1:1 to an Identity.
// The set of variants is closed: PetOwnerProfile, VeterinarianProfile,
// TrainerProfile, FacilityProfile and AdminProfile.
type RoleProfile interface {
	// Matches reports whether the variant may be attached to an identity of role.
	Matches(role Role) bool
	// UniqueKeys returns the globally unique registration keys carried by the variant.
	UniqueKeys() UniqueKeys
	roleProfile()
}

// UniqueKeys are the role-specific values that must not collide across identities
// or in-flight applications. Empty values are not checked.
type UniqueKeys struct {
	LicenseNumber          string
	FacilityLicenseNumber  string
	GovtRegistrationNumber string
	TaxID                  string
}

// Overlaps reports whether any non-empty key of k equals the same key of other.
func (k UniqueKeys) Overlaps(other UniqueKeys) bool {
	same := func(a, b string) bool { return a != "" && a == b }
	return same(k.LicenseNumber, other.LicenseNumber) ||
		same(k.FacilityLicenseNumber, other.FacilityLicenseNumber) ||
		same(k.GovtRegistrationNumber, other.GovtRegistrationNumber) ||
		same(k.TaxID, other.TaxID)
}

// DocumentRef is an opaque reference returned by the document store.
type DocumentRef string

// PetOwnerProfile carries no required fields.
type PetOwnerProfile struct{}

func (PetOwnerProfile) Matches(role Role) bool { return role == RolePetOwner }
func (PetOwnerProfile) UniqueKeys() UniqueKeys { return UniqueKeys{} }
func (PetOwnerProfile) roleProfile()           {}

// Affiliation describes a professional's link to a facility.
type Affiliation struct {
	IsAffiliated bool   `json:"is_affiliated"`
	FacilityName string `json:"facility_name,omitempty"`
	Type         string `json:"type,omitempty"`
}

// VeterinarianDocuments are the proofs reviewed before approval.
type VeterinarianDocuments struct {
	LicenseProof DocumentRef `json:"license_proof,omitempty"`
	IDProof      DocumentRef `json:"id_proof,omitempty"`
	DegreeProof  DocumentRef `json:"degree_proof,omitempty"`
	ProfilePhoto DocumentRef `json:"profile_photo,omitempty"`
}

// VeterinarianProfile is attached to VETERINARIAN identities.
type VeterinarianProfile struct {
	LicenseNumber           string                `json:"license_number"`
	ExperienceYears         int                   `json:"experience_years"`
	Specializations         []string              `json:"specializations,omitempty"`
	Qualifications          []string              `json:"qualifications,omitempty"`
	Documents               VeterinarianDocuments `json:"documents"`
	Affiliation             Affiliation           `json:"affiliation"`
	OfferOnlineConsultation bool                  `json:"offer_online_consultation"`
	OfferHomeConsultation   bool                  `json:"offer_home_consultation"`
	HomeVisitRadiusKm       int                   `json:"home_visit_radius_km,omitempty"`
	AvailabilitySchedule    string                `json:"availability_schedule,omitempty"`
}

func (VeterinarianProfile) Matches(role Role) bool { return role == RoleVeterinarian }
func (p VeterinarianProfile) UniqueKeys() UniqueKeys {
	return UniqueKeys{LicenseNumber: p.LicenseNumber}
}
func (VeterinarianProfile) roleProfile() {}

// TrainerDocuments are the files a trainer submits.
type TrainerDocuments struct {
	Resume       DocumentRef `json:"resume,omitempty"`
	ProfilePhoto DocumentRef `json:"profile_photo,omitempty"`
}

// TrainerProfile is attached to TRAINER identities.
type TrainerProfile struct {
	ExperienceYears      int              `json:"experience_years"`
	Specializations      []string         `json:"specializations,omitempty"`
	Certifications       []string         `json:"certifications,omitempty"`
	Documents            TrainerDocuments `json:"documents"`
	OfferOnlineTraining  bool             `json:"offer_online_training"`
	OfferHomeTraining    bool             `json:"offer_home_training"`
	HasTrainingCenter    bool             `json:"has_training_center"`
	TrainingCenterName   string           `json:"training_center_name,omitempty"`
	HasAcademy           bool             `json:"has_academy"`
	AcademyName          string           `json:"academy_name,omitempty"`
	AcademyAddress       string           `json:"academy_address,omitempty"`
	AvailabilitySchedule string           `json:"availability_schedule,omitempty"`
}

func (TrainerProfile) Matches(role Role) bool { return role == RoleTrainer }
func (TrainerProfile) UniqueKeys() UniqueKeys { return UniqueKeys{} }
func (TrainerProfile) roleProfile()           {}

// FacilityProfile is attached to HOSPITAL and CLINIC identities.
type FacilityProfile struct {
	BusinessName                 string      `json:"business_name"`
	ContactPerson                string      `json:"contact_person,omitempty"`
	FacilityLicenseNumber        string      `json:"facility_license_number"`
	GovtRegistrationNumber       string      `json:"govt_registration_number"`
	TaxID                        string      `json:"tax_id"`
	MedicalDirectorName          string      `json:"medical_director_name,omitempty"`
	MedicalDirectorLicenseNumber string      `json:"medical_director_license_number,omitempty"`
	FacilityLicenseDocument      DocumentRef `json:"facility_license_document,omitempty"`
	OfferOnlineConsultation      bool        `json:"offer_online_consultation"`
	OfferClinicHospital          bool        `json:"offer_clinic_hospital"`
	BusinessHours                string      `json:"business_hours,omitempty"`
}

func (FacilityProfile) Matches(role Role) bool {
	return role == RoleHospital || role == RoleClinic
}
func (p FacilityProfile) UniqueKeys() UniqueKeys {
	return UniqueKeys{
		FacilityLicenseNumber:  p.FacilityLicenseNumber,
		GovtRegistrationNumber: p.GovtRegistrationNumber,
		TaxID:                  p.TaxID,
	}
}
func (FacilityProfile) roleProfile() {}

// AdminProfile is attached to ADMIN identities.
type AdminProfile struct{}

func (AdminProfile) Matches(role Role) bool { return role == RoleAdmin }
func (AdminProfile) UniqueKeys() UniqueKeys { return UniqueKeys{} }
func (AdminProfile) roleProfile()           {}

// EmptyProfile returns the zero variant for role.
func EmptyProfile(role Role) (RoleProfile, error) {
	switch role {
	case RolePetOwner:
		return PetOwnerProfile{}, nil
	case RoleVeterinarian:
		return VeterinarianProfile{}, nil
	case RoleTrainer:
		return TrainerProfile{}, nil
	case RoleHospital, RoleClinic:
		return FacilityProfile{}, nil
	case RoleAdmin:
		return AdminProfile{}, nil
	}
	return nil, fmt.Errorf("%w: unknown role %q", ErrValidation, role)
}

// DecodeProfile unmarshals the variant selected by role.
func DecodeProfile(role Role, data []byte) (RoleProfile, error) {
	if len(data) == 0 {
		data = []byte("{}")
	}
	switch role {
	case RolePetOwner:
		var p PetOwnerProfile
		if err := json.Unmarshal(data, &p); err != nil {
			return nil, err
		}
		return p, nil
	case RoleVeterinarian:
		var p VeterinarianProfile
		if err := json.Unmarshal(data, &p); err != nil {
			return nil, err
		}
		return p, nil
	case RoleTrainer:
		var p TrainerProfile
		if err := json.Unmarshal(data, &p); err != nil {
			return nil, err
		}
		return p, nil
	case RoleHospital, RoleClinic:
		var p FacilityProfile
		if err := json.Unmarshal(data, &p); err != nil {
			return nil, err
		}
		return p, nil
	case RoleAdmin:
		var p AdminProfile
		if err := json.Unmarshal(data, &p); err != nil {
			return nil, err
		}
		return p, nil
	}
	return nil, fmt.Errorf("%w: unknown role %q", ErrValidation, role)
}

// ValidateProfile checks the variant matches role and carries its required fields.
func ValidateProfile(role Role, profile RoleProfile) error {
	if profile == nil {
		return fmt.Errorf("%w: profile required for role %s", ErrValidation, role)
	}
	if !profile.Matches(role) {
		return fmt.Errorf("%w: profile does not match role %s", ErrValidation, role)
	}
	switch p := profile.(type) {
	case VeterinarianProfile:
		if strings.TrimSpace(p.LicenseNumber) == "" {
			return fmt.Errorf("%w: license_number required", ErrValidation)
		}
		if p.ExperienceYears < 0 {
			return fmt.Errorf("%w: experience_years must not be negative", ErrValidation)
		}
	case TrainerProfile:
		if p.ExperienceYears < 0 {
			return fmt.Errorf("%w: experience_years must not be negative", ErrValidation)
		}
	case FacilityProfile:
		missing := make([]string, 0, 4)
		if strings.TrimSpace(p.BusinessName) == "" {
			missing = append(missing, "business_name")
		}
		if strings.TrimSpace(p.FacilityLicenseNumber) == "" {
			missing = append(missing, "facility_license_number")
		}
		if strings.TrimSpace(p.GovtRegistrationNumber) == "" {
			missing = append(missing, "govt_registration_number")
		}
		if strings.TrimSpace(p.TaxID) == "" {
			missing = append(missing, "tax_id")
		}
		if len(missing) > 0 {
			return fmt.Errorf("%w: %s required", ErrValidation, strings.Join(missing, ", "))
		}
	}
	return nil
}
