package domain

import (
	"fmt"
	"time"
)

// RegistrationStatus tracks an application through review.
type RegistrationStatus string

const (
	RegistrationPending     RegistrationStatus = "PENDING"
	RegistrationUnderReview RegistrationStatus = "UNDER_REVIEW"
	RegistrationApproved    RegistrationStatus = "APPROVED"
	RegistrationRejected    RegistrationStatus = "REJECTED"
)

// NonTerminalStatuses are the states from which a review decision may still be made.
var NonTerminalStatuses = []RegistrationStatus{RegistrationPending, RegistrationUnderReview}

var registrationTransitions = map[RegistrationStatus]map[RegistrationStatus]struct{}{
	RegistrationPending: {
		RegistrationUnderReview: {},
		RegistrationApproved:    {},
		RegistrationRejected:    {},
	},
	RegistrationUnderReview: {
		RegistrationApproved: {},
		RegistrationRejected: {},
	},
}

// Valid reports whether s is a known status.
func (s RegistrationStatus) Valid() bool {
	switch s {
	case RegistrationPending, RegistrationUnderReview, RegistrationApproved, RegistrationRejected:
		return true
	}
	return false
}

// Terminal reports whether no further transition is possible.
func (s RegistrationStatus) Terminal() bool {
	return len(registrationTransitions[s]) == 0
}

// CanTransition reports whether from -> to is allowed.
func CanTransition(from, to RegistrationStatus) bool {
	_, ok := registrationTransitions[from][to]
	return ok
}

// CheckTransition returns ErrInvalidState when from -> to is not allowed.
func CheckTransition(from, to RegistrationStatus) error {
	if !CanTransition(from, to) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidState, from, to)
	}
	return nil
}

// RegistrationApplication is a pre-identity request awaiting admin review.
// Once APPROVED it links one-way to the identity it produced.
type RegistrationApplication struct {
	ID            string
	Role          Role
	Username      string
	Email         string
	PasswordHash  string
	Contact       Contact
	Profile       RoleProfile
	Status        RegistrationStatus
	ReviewerNotes string
	ReviewedBy    *string
	ReviewedAt    *time.Time
	IdentityID    *string
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// UniqueKeys returns the role-specific unique keys captured by the application.
func (a *RegistrationApplication) UniqueKeys() UniqueKeys {
	if a.Profile == nil {
		return UniqueKeys{}
	}
	return a.Profile.UniqueKeys()
}

// PromoteToIdentity builds the identity an approval creates. Professional
// accounts are marked verified since their documents were reviewed.
func (a *RegistrationApplication) PromoteToIdentity() *Identity {
	return &Identity{
		Username:     a.Username,
		Email:        a.Email,
		PasswordHash: a.PasswordHash,
		Role:         a.Role,
		Active:       true,
		Verified:     a.Role.Professional(),
		Contact:      a.Contact,
		Profile:      a.Profile,
	}
}

// ReviewDecision carries who made a transition and why.
type ReviewDecision struct {
	ReviewerID string
	Notes      string
	At         time.Time
}
