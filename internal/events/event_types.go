package events

import (
	"time"

	"github.com/google/uuid"

	"github.com/spec-kit/petcare-identity/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventRegistrationSubmitted   EventType = "registration_submitted"
	EventRegistrationUnderReview EventType = "registration_under_review"
	EventRegistrationApproved    EventType = "registration_approved"
	EventRegistrationRejected    EventType = "registration_rejected"
	EventIdentityStatusChanged   EventType = "identity_status_changed"
	EventIdentityDeleted         EventType = "identity_deleted"
	EventAdminOverrideLogin      EventType = "admin_override_login"
)

// Actor encapsulates actor metadata for an event.
type Actor struct {
	IdentityID string      `json:"identity_id,omitempty"`
	Role       domain.Role `json:"role,omitempty"`
	System     bool        `json:"system,omitempty"`
}

// SystemActor is used for transitions no person made, such as auto-approval.
var SystemActor = Actor{System: true}

// ActorFromPrincipal builds an actor from the caller.
func ActorFromPrincipal(p *domain.Principal) Actor {
	if p == nil {
		return SystemActor
	}
	return Actor{IdentityID: p.IdentityID, Role: p.Role}
}

// Event represents a domain event emitted by services.
type Event struct {
	ID        string    `json:"id"`
	Type      EventType `json:"type"`
	SubjectID string    `json:"subject_id"`
	Actor     Actor     `json:"actor"`
	Timestamp time.Time `json:"timestamp"`
	Payload   any       `json:"payload"`
}

// New stamps an event with an id and the current time.
func New(eventType EventType, subjectID string, actor Actor, payload any) Event {
	return Event{
		ID:        uuid.NewString(),
		Type:      eventType,
		SubjectID: subjectID,
		Actor:     actor,
		Timestamp: time.Now().UTC(),
		Payload:   payload,
	}
}

// RegistrationPayload describes an application transition.
type RegistrationPayload struct {
	Role       domain.Role               `json:"role"`
	Username   string                    `json:"username"`
	Email      string                    `json:"email"`
	Status     domain.RegistrationStatus `json:"status"`
	Notes      string                    `json:"notes,omitempty"`
	IdentityID string                    `json:"identity_id,omitempty"`
}

// IdentityStatusPayload describes an admin account-state change.
type IdentityStatusPayload struct {
	IdentityIDs []string             `json:"identity_ids"`
	Status      domain.AccountStatus `json:"status,omitempty"`
	Verified    *bool                `json:"verified,omitempty"`
}

// OverrideLoginPayload records a break-glass admin login.
type OverrideLoginPayload struct {
	Username string `json:"username"`
	IP       string `json:"ip,omitempty"`
}
