package domain

import (
	"strings"
	"time"
)

// Role is the immutable account kind attached to an identity.
type Role string

const (
	RolePetOwner     Role = "PET_OWNER"
	RoleVeterinarian Role = "VETERINARIAN"
	RoleTrainer      Role = "TRAINER"
	RoleHospital     Role = "HOSPITAL"
	RoleClinic       Role = "CLINIC"
	RoleAdmin        Role = "ADMIN"
)

// AllRoles lists every role in display order.
var AllRoles = []Role{RolePetOwner, RoleVeterinarian, RoleTrainer, RoleHospital, RoleClinic, RoleAdmin}

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	for _, known := range AllRoles {
		if r == known {
			return true
		}
	}
	return false
}

// Professional reports whether accounts of this role require document review.
func (r Role) Professional() bool {
	switch r {
	case RoleVeterinarian, RoleTrainer, RoleHospital, RoleClinic:
		return true
	}
	return false
}

// Slug returns the URL segment used for the role.
func (r Role) Slug() string {
	return strings.ReplaceAll(strings.ToLower(string(r)), "_", "-")
}

// RoleFromSlug resolves a URL segment such as "pet-owner" to a Role.
func RoleFromSlug(slug string) (Role, bool) {
	role := Role(strings.ToUpper(strings.ReplaceAll(strings.TrimSpace(slug), "-", "_")))
	if !role.Valid() {
		return "", false
	}
	return role, true
}

// AccountStatus is the admin-facing view of the active flag.
type AccountStatus string

const (
	AccountStatusActive    AccountStatus = "active"
	AccountStatusInactive  AccountStatus = "inactive"
	AccountStatusSuspended AccountStatus = "suspended"
)

// Valid reports whether s is a known status.
func (s AccountStatus) Valid() bool {
	switch s {
	case AccountStatusActive, AccountStatusInactive, AccountStatusSuspended:
		return true
	}
	return false
}

// Active maps the status onto the identity active flag.
func (s AccountStatus) Active() bool {
	return s == AccountStatusActive
}

// Contact holds optional personal details editable by the owner.
type Contact struct {
	FirstName  string `json:"first_name,omitempty"`
	LastName   string `json:"last_name,omitempty"`
	Phone      string `json:"phone,omitempty"`
	Address    string `json:"address,omitempty"`
	City       string `json:"city,omitempty"`
	State      string `json:"state,omitempty"`
	Country    string `json:"country,omitempty"`
	PostalCode string `json:"postal_code,omitempty"`
}

// Identity is the authentication-capable account record.
// Exactly one RoleProfile variant is attached, matching Role.
type Identity struct {
	ID           string
	Username     string
	Email        string
	PasswordHash string
	Role         Role
	Active       bool
	Verified     bool
	Contact      Contact
	Profile      RoleProfile
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Status derives the admin-facing status from the active flag.
func (i *Identity) Status() AccountStatus {
	if i.Active {
		return AccountStatusActive
	}
	return AccountStatusInactive
}

// NormalizeLogin lower-cases and trims usernames and emails before storage or lookup.
func NormalizeLogin(value string) string {
	return strings.ToLower(strings.TrimSpace(value))
}
