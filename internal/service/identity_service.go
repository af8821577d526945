package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/spec-kit/petcare-identity/internal/auth"
	"github.com/spec-kit/petcare-identity/internal/domain"
	"github.com/spec-kit/petcare-identity/internal/repository"
)

// MinPasswordLength is the shortest password accepted on registration or change.
const MinPasswordLength = 6

var fieldValidator = validator.New()

// NewIdentity is the input to CreateIdentity.
type NewIdentity struct {
	Username string
	Email    string
	Password string
	Role     domain.Role
	Verified bool
	Contact  domain.Contact
	Profile  domain.RoleProfile
}

// IdentityService owns identity creation, credential checks and self-service updates.
type IdentityService struct {
	identities repository.IdentityRepository
	hasher     *auth.PasswordHasher
	logger     *zap.Logger
}

// NewIdentityService builds the service.
func NewIdentityService(identities repository.IdentityRepository, hasher *auth.PasswordHasher, logger *zap.Logger) *IdentityService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &IdentityService{identities: identities, hasher: hasher, logger: logger}
}

// Hasher exposes the credential store to the registration workflow.
func (s *IdentityService) Hasher() *auth.PasswordHasher {
	return s.hasher
}

func validateAccount(username, email, password string) error {
	if len(username) < 3 || len(username) > 100 {
		return fmt.Errorf("%w: username must be between 3 and 100 characters", domain.ErrValidation)
	}
	if strings.ContainsAny(username, " @\t\n") {
		return fmt.Errorf("%w: username must not contain spaces or @", domain.ErrValidation)
	}
	if err := fieldValidator.Var(email, "required,email,max=255"); err != nil {
		return fmt.Errorf("%w: a valid email is required", domain.ErrValidation)
	}
	if len(password) < MinPasswordLength {
		return fmt.Errorf("%w: password must be at least %d characters", domain.ErrValidation, MinPasswordLength)
	}
	return nil
}

// CreateIdentity validates the role/profile pairing, hashes the password and
// stores identity and profile together.
func (s *IdentityService) CreateIdentity(ctx context.Context, in NewIdentity) (*domain.Identity, error) {
	username := domain.NormalizeLogin(in.Username)
	email := domain.NormalizeLogin(in.Email)
	if err := validateAccount(username, email, in.Password); err != nil {
		return nil, err
	}
	if !in.Role.Valid() {
		return nil, fmt.Errorf("%w: unknown role %q", domain.ErrValidation, in.Role)
	}
	if err := domain.ValidateProfile(in.Role, in.Profile); err != nil {
		return nil, err
	}

	hash, err := s.hasher.Hash(in.Password)
	if err != nil {
		return nil, err
	}

	identity := &domain.Identity{
		Username:     username,
		Email:        email,
		PasswordHash: hash,
		Role:         in.Role,
		Active:       true,
		Verified:     in.Verified,
		Contact:      in.Contact,
		Profile:      in.Profile,
	}
	if err := s.identities.Create(ctx, identity); err != nil {
		return nil, err
	}

	s.logger.Info("identity created",
		zap.String("identity_id", identity.ID),
		zap.String("role", string(identity.Role)))
	return identity, nil
}

// Authenticate resolves usernameOrEmail and checks the password. Unknown
// identifiers and wrong passwords both yield ErrAuthenticationFailed after the
// same bcrypt work; the active flag is only consulted once the password matched.
func (s *IdentityService) Authenticate(ctx context.Context, usernameOrEmail, password string) (*domain.Identity, error) {
	identity, err := s.identities.GetByLogin(ctx, usernameOrEmail)
	if err != nil {
		if errors.Is(err, domain.ErrIdentityNotFound) {
			s.hasher.VerifyAbsent(password)
			return nil, domain.ErrAuthenticationFailed
		}
		return nil, err
	}

	if !s.hasher.Verify(password, identity.PasswordHash) {
		return nil, domain.ErrAuthenticationFailed
	}
	if !identity.Active {
		return nil, domain.ErrAccountDisabled
	}
	return identity, nil
}

// VerifyAdmin reports whether identity may use admin-only paths.
func (s *IdentityService) VerifyAdmin(identity *domain.Identity) bool {
	return identity != nil && identity.Role == domain.RoleAdmin && identity.Active
}

// GetProfile returns the identity with its role profile.
func (s *IdentityService) GetProfile(ctx context.Context, identityID string) (*domain.Identity, error) {
	return s.identities.GetByID(ctx, identityID)
}

// ListProviders returns active, verified professionals, optionally narrowed to one role.
func (s *IdentityService) ListProviders(ctx context.Context, role domain.Role, search string, limit, offset int) ([]*domain.Identity, int, error) {
	active, verified := true, true
	filter := repository.IdentityFilter{
		Roles:    []domain.Role{domain.RoleVeterinarian, domain.RoleTrainer, domain.RoleHospital, domain.RoleClinic},
		Active:   &active,
		Verified: &verified,
		Search:   strings.TrimSpace(search),
		Limit:    limit,
		Offset:   offset,
	}
	if role != "" {
		if !role.Professional() {
			return nil, 0, fmt.Errorf("%w: %q is not a provider role", domain.ErrValidation, role)
		}
		filter.Roles = []domain.Role{role}
	}
	return s.identities.List(ctx, filter)
}

// ListPetOwners returns active pet owners.
func (s *IdentityService) ListPetOwners(ctx context.Context, search string, limit, offset int) ([]*domain.Identity, int, error) {
	active := true
	return s.identities.List(ctx, repository.IdentityFilter{
		Role:   domain.RolePetOwner,
		Active: &active,
		Search: strings.TrimSpace(search),
		Limit:  limit,
		Offset: offset,
	})
}

// UpdateContact replaces the owner-editable contact fields. Role, username and
// email are not editable here.
func (s *IdentityService) UpdateContact(ctx context.Context, identityID string, contact domain.Contact) (*domain.Identity, error) {
	if err := s.identities.UpdateContact(ctx, identityID, contact); err != nil {
		return nil, err
	}
	return s.identities.GetByID(ctx, identityID)
}

// ChangePassword requires the current password before storing a new digest.
func (s *IdentityService) ChangePassword(ctx context.Context, identityID, current, next string) error {
	identity, err := s.identities.GetByID(ctx, identityID)
	if err != nil {
		return err
	}
	if !s.hasher.Verify(current, identity.PasswordHash) {
		return domain.ErrAuthenticationFailed
	}
	if len(next) < MinPasswordLength {
		return fmt.Errorf("%w: password must be at least %d characters", domain.ErrValidation, MinPasswordLength)
	}
	if current == next {
		return fmt.Errorf("%w: new password must differ from the current one", domain.ErrValidation)
	}

	hash, err := s.hasher.Hash(next)
	if err != nil {
		return err
	}
	if err := s.identities.UpdatePassword(ctx, identityID, hash); err != nil {
		return err
	}
	s.logger.Info("password changed", zap.String("identity_id", identityID))
	return nil
}
