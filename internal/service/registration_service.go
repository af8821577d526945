package service

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spec-kit/petcare-identity/internal/config"
	"github.com/spec-kit/petcare-identity/internal/domain"
	"github.com/spec-kit/petcare-identity/internal/events"
	"github.com/spec-kit/petcare-identity/internal/observability"
	"github.com/spec-kit/petcare-identity/internal/repository"
)

// SystemReviewerID marks transitions made by the service itself.
var SystemReviewerID = uuid.Nil.String()

// DocumentStore is the "store bytes, get back a reference" capability used
// for registration uploads.
type DocumentStore interface {
	Store(ctx context.Context, name, contentType string, r io.Reader) (domain.DocumentRef, error)
}

// DocumentUpload is one file attached to a registration. Field names the
// profile slot it fills, for example "license_proof".
type DocumentUpload struct {
	Field       string
	Filename    string
	ContentType string
	Size        int64
	Content     io.Reader
}

var allowedDocumentTypes = map[string]struct{}{
	"application/pdf": {},
	"image/jpeg":      {},
	"image/png":       {},
}

// RegistrationInput is a public registration submission.
type RegistrationInput struct {
	Role      domain.Role
	Username  string
	Email     string
	Password  string
	Contact   domain.Contact
	Profile   domain.RoleProfile
	Documents []DocumentUpload
}

// SubmitResult carries the stored application and, for auto-approved roles,
// the identity it produced.
type SubmitResult struct {
	Application *domain.RegistrationApplication
	Identity    *domain.Identity
}

// AvailabilityResult answers the public availability probe.
type AvailabilityResult struct {
	UsernameAvailable *bool `json:"username_available,omitempty"`
	EmailAvailable    *bool `json:"email_available,omitempty"`
	LicenseAvailable  *bool `json:"license_available,omitempty"`
}

// RegistrationService implements the single registration workflow shared by every role.
type RegistrationService struct {
	registrations repository.RegistrationRepository
	identities    *IdentityService
	documents     DocumentStore
	dispatcher    events.Dispatcher
	metrics       *observability.Metrics
	cfg           config.RegistrationConfig
	logger        *zap.Logger
	now           func() time.Time
}

// RegistrationDependencies encapsulates collaborators for the registration service.
type RegistrationDependencies struct {
	Registrations repository.RegistrationRepository
	Identities    *IdentityService
	Documents     DocumentStore
	Dispatcher    events.Dispatcher
	Metrics       *observability.Metrics
	Config        config.RegistrationConfig
	Logger        *zap.Logger
}

// NewRegistrationService builds the service.
func NewRegistrationService(deps RegistrationDependencies) *RegistrationService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RegistrationService{
		registrations: deps.Registrations,
		identities:    deps.Identities,
		documents:     deps.Documents,
		dispatcher:    deps.Dispatcher,
		metrics:       deps.Metrics,
		cfg:           deps.Config,
		logger:        logger,
		now:           func() time.Time { return time.Now().UTC() },
	}
}

// Submit validates and stores a PENDING application. Pet-owner applications
// are approved immediately when auto-approval is configured.
func (s *RegistrationService) Submit(ctx context.Context, in RegistrationInput) (*SubmitResult, error) {
	username := domain.NormalizeLogin(in.Username)
	email := domain.NormalizeLogin(in.Email)

	if !in.Role.Valid() || in.Role == domain.RoleAdmin {
		return nil, fmt.Errorf("%w: role %q cannot register", domain.ErrValidation, in.Role)
	}
	if err := validateAccount(username, email, in.Password); err != nil {
		return nil, err
	}
	if err := domain.ValidateProfile(in.Role, in.Profile); err != nil {
		return nil, err
	}

	// Early rejection before any upload or hashing; the store re-checks atomically.
	avail, err := s.registrations.CheckAvailability(ctx, username, email, in.Profile.UniqueKeys())
	if err != nil {
		return nil, err
	}
	if err := avail.Err(); err != nil {
		return nil, err
	}

	profile, err := s.storeDocuments(ctx, in.Role, in.Profile, in.Documents)
	if err != nil {
		return nil, err
	}

	hash, err := s.identities.Hasher().Hash(in.Password)
	if err != nil {
		return nil, err
	}

	app := &domain.RegistrationApplication{
		Role:         in.Role,
		Username:     username,
		Email:        email,
		PasswordHash: hash,
		Contact:      in.Contact,
		Profile:      profile,
	}
	if err := s.registrations.Create(ctx, app); err != nil {
		return nil, err
	}

	s.metrics.RecordRegistration(string(app.Role))
	s.logger.Info("registration submitted",
		zap.String("application_id", app.ID),
		zap.String("role", string(app.Role)))
	s.publish(ctx, events.EventRegistrationSubmitted, app, events.SystemActor)

	if app.Role == domain.RolePetOwner && s.cfg.AutoApprovePetOwner {
		approved, identity, err := s.approve(ctx, app.ID, events.SystemActor, SystemReviewerID, "auto-approved")
		if err != nil {
			return nil, err
		}
		return &SubmitResult{Application: approved, Identity: identity}, nil
	}
	return &SubmitResult{Application: app}, nil
}

func (s *RegistrationService) storeDocuments(ctx context.Context, role domain.Role, profile domain.RoleProfile, uploads []DocumentUpload) (domain.RoleProfile, error) {
	if len(uploads) == 0 {
		return profile, nil
	}
	if s.documents == nil {
		return nil, domain.ErrDocumentStorageUnavailable
	}

	for _, up := range uploads {
		if s.cfg.MaxDocumentBytes > 0 && up.Size > s.cfg.MaxDocumentBytes {
			return nil, fmt.Errorf("%w: %s exceeds %d bytes", domain.ErrValidation, up.Field, s.cfg.MaxDocumentBytes)
		}
		contentType := strings.ToLower(strings.TrimSpace(strings.SplitN(up.ContentType, ";", 2)[0]))
		if _, ok := allowedDocumentTypes[contentType]; !ok {
			return nil, fmt.Errorf("%w: %s must be a PDF, JPEG or PNG", domain.ErrValidation, up.Field)
		}
		// Reject unknown slots before writing anything.
		if _, err := attachDocument(role, profile, up.Field, ""); err != nil {
			return nil, err
		}
	}

	for _, up := range uploads {
		ref, err := s.documents.Store(ctx, up.Filename, up.ContentType, up.Content)
		if err != nil {
			return nil, err
		}
		if profile, err = attachDocument(role, profile, up.Field, ref); err != nil {
			return nil, err
		}
	}
	return profile, nil
}

// attachDocument returns profile with ref stored in the slot named field.
func attachDocument(role domain.Role, profile domain.RoleProfile, field string, ref domain.DocumentRef) (domain.RoleProfile, error) {
	unknown := fmt.Errorf("%w: %s does not accept document %q", domain.ErrValidation, role.Slug(), field)
	switch p := profile.(type) {
	case domain.VeterinarianProfile:
		switch field {
		case "license_proof":
			p.Documents.LicenseProof = ref
		case "id_proof":
			p.Documents.IDProof = ref
		case "degree_proof":
			p.Documents.DegreeProof = ref
		case "profile_photo":
			p.Documents.ProfilePhoto = ref
		default:
			return nil, unknown
		}
		return p, nil
	case domain.TrainerProfile:
		switch field {
		case "resume":
			p.Documents.Resume = ref
		case "profile_photo":
			p.Documents.ProfilePhoto = ref
		default:
			return nil, unknown
		}
		return p, nil
	case domain.FacilityProfile:
		if field != "facility_license_document" {
			return nil, unknown
		}
		p.FacilityLicenseDocument = ref
		return p, nil
	}
	return nil, unknown
}

// MarkUnderReview moves a PENDING application to UNDER_REVIEW.
func (s *RegistrationService) MarkUnderReview(ctx context.Context, id string, reviewer *domain.Principal, notes string) (*domain.RegistrationApplication, error) {
	app, err := s.registrations.MarkUnderReview(ctx, id, s.decision(reviewer, notes))
	if err != nil {
		return nil, err
	}
	s.metrics.RecordDecision(string(app.Status))
	s.logger.Info("registration under review",
		zap.String("application_id", app.ID),
		zap.String("reviewer_id", reviewerID(reviewer)))
	s.publish(ctx, events.EventRegistrationUnderReview, app, events.ActorFromPrincipal(reviewer))
	return app, nil
}

// Approve promotes the application into a live identity.
func (s *RegistrationService) Approve(ctx context.Context, id string, reviewer *domain.Principal, notes string) (*domain.RegistrationApplication, *domain.Identity, error) {
	return s.approve(ctx, id, events.ActorFromPrincipal(reviewer), reviewerID(reviewer), notes)
}

func (s *RegistrationService) approve(ctx context.Context, id string, actor events.Actor, reviewer, notes string) (*domain.RegistrationApplication, *domain.Identity, error) {
	app, identity, err := s.registrations.Approve(ctx, id, domain.ReviewDecision{
		ReviewerID: reviewer,
		Notes:      strings.TrimSpace(notes),
		At:         s.now(),
	})
	if err != nil {
		return nil, nil, err
	}

	s.metrics.RecordDecision(string(app.Status))
	s.logger.Info("registration approved",
		zap.String("application_id", app.ID),
		zap.String("identity_id", identity.ID),
		zap.String("role", string(identity.Role)),
		zap.String("reviewer_id", reviewer))
	s.publish(ctx, events.EventRegistrationApproved, app, actor)
	return app, identity, nil
}

// Reject closes the application with reason; no identity is created.
func (s *RegistrationService) Reject(ctx context.Context, id string, reviewer *domain.Principal, reason string) (*domain.RegistrationApplication, error) {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return nil, fmt.Errorf("%w: a rejection reason is required", domain.ErrValidation)
	}
	app, err := s.registrations.Reject(ctx, id, s.decision(reviewer, reason))
	if err != nil {
		return nil, err
	}
	s.metrics.RecordDecision(string(app.Status))
	s.logger.Info("registration rejected",
		zap.String("application_id", app.ID),
		zap.String("reviewer_id", reviewerID(reviewer)))
	s.publish(ctx, events.EventRegistrationRejected, app, events.ActorFromPrincipal(reviewer))
	return app, nil
}

// Get returns one application.
func (s *RegistrationService) Get(ctx context.Context, id string) (*domain.RegistrationApplication, error) {
	return s.registrations.GetByID(ctx, id)
}

// List returns a page of applications and the total match count.
func (s *RegistrationService) List(ctx context.Context, filter repository.RegistrationFilter) ([]*domain.RegistrationApplication, int, error) {
	if filter.Status != "" && !filter.Status.Valid() {
		return nil, 0, fmt.Errorf("%w: unknown status %q", domain.ErrValidation, filter.Status)
	}
	return s.registrations.List(ctx, filter)
}

// CheckAvailability answers only for the values supplied.
func (s *RegistrationService) CheckAvailability(ctx context.Context, username, email, license string) (*AvailabilityResult, error) {
	username, email, license = domain.NormalizeLogin(username), domain.NormalizeLogin(email), strings.TrimSpace(license)
	if username == "" && email == "" && license == "" {
		return nil, fmt.Errorf("%w: provide username, email or license_number", domain.ErrValidation)
	}

	avail, err := s.registrations.CheckAvailability(ctx, username, email, domain.UniqueKeys{
		LicenseNumber:          license,
		FacilityLicenseNumber:  license,
		GovtRegistrationNumber: license,
		TaxID:                  license,
	})
	if err != nil {
		return nil, err
	}

	result := &AvailabilityResult{}
	flag := func(requested string, taken bool) *bool {
		if requested == "" {
			return nil
		}
		v := !taken
		return &v
	}
	result.UsernameAvailable = flag(username, avail.UsernameTaken)
	result.EmailAvailable = flag(email, avail.EmailTaken)
	result.LicenseAvailable = flag(license, avail.LicenseTaken)
	return result, nil
}

func (s *RegistrationService) decision(reviewer *domain.Principal, notes string) domain.ReviewDecision {
	return domain.ReviewDecision{ReviewerID: reviewerID(reviewer), Notes: strings.TrimSpace(notes), At: s.now()}
}

func reviewerID(p *domain.Principal) string {
	if p == nil {
		return SystemReviewerID
	}
	return p.IdentityID
}

func (s *RegistrationService) publish(ctx context.Context, eventType events.EventType, app *domain.RegistrationApplication, actor events.Actor) {
	if s.dispatcher == nil {
		return
	}
	payload := events.RegistrationPayload{
		Role:     app.Role,
		Username: app.Username,
		Email:    app.Email,
		Status:   app.Status,
		Notes:    app.ReviewerNotes,
	}
	if app.IdentityID != nil {
		payload.IdentityID = *app.IdentityID
	}
	_ = s.dispatcher.Publish(ctx, events.New(eventType, app.ID, actor, payload))
}
