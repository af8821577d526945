package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/petcare-identity/internal/domain"
	"github.com/spec-kit/petcare-identity/internal/events"
	"github.com/spec-kit/petcare-identity/internal/repository"
)

// statsWindow is how far back "recent registrations" reaches on the dashboard.
const statsWindow = 30 * 24 * time.Hour

// IdentityQuery is the admin listing filter as it arrives from the API.
// Status accepts active, inactive, verified and unverified.
type IdentityQuery struct {
	Role   domain.Role
	Status string
	Search string
	Limit  int
	Offset int
}

// DashboardStats is the admin overview.
type DashboardStats struct {
	TotalIdentities     int                               `json:"total_identities"`
	ActiveIdentities    int                               `json:"active_identities"`
	VerifiedIdentities  int                               `json:"verified_identities"`
	RecentRegistrations int                               `json:"recent_registrations"`
	IdentitiesByRole    map[domain.Role]int               `json:"identities_by_role"`
	ApplicationsByState map[domain.RegistrationStatus]int `json:"applications_by_status"`
}

// AdminService implements identity management for ADMIN callers.
type AdminService struct {
	identities    repository.IdentityRepository
	registrations repository.RegistrationRepository
	dispatcher    events.Dispatcher
	logger        *zap.Logger
	now           func() time.Time
}

// NewAdminService builds the service.
func NewAdminService(identities repository.IdentityRepository, registrations repository.RegistrationRepository, dispatcher events.Dispatcher, logger *zap.Logger) *AdminService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AdminService{
		identities:    identities,
		registrations: registrations,
		dispatcher:    dispatcher,
		logger:        logger,
		now:           func() time.Time { return time.Now().UTC() },
	}
}

// ListIdentities returns a page of identities and the total match count.
func (s *AdminService) ListIdentities(ctx context.Context, q IdentityQuery) ([]*domain.Identity, int, error) {
	filter := repository.IdentityFilter{
		Search: strings.TrimSpace(q.Search),
		Limit:  q.Limit,
		Offset: q.Offset,
	}
	if q.Role != "" {
		if !q.Role.Valid() {
			return nil, 0, fmt.Errorf("%w: unknown role %q", domain.ErrValidation, q.Role)
		}
		filter.Role = q.Role
	}

	yes, no := true, false
	switch strings.ToLower(strings.TrimSpace(q.Status)) {
	case "":
	case "active":
		filter.Active = &yes
	case "inactive", "suspended":
		filter.Active = &no
	case "verified":
		filter.Verified = &yes
	case "unverified":
		filter.Verified = &no
	default:
		return nil, 0, fmt.Errorf("%w: unknown status filter %q", domain.ErrValidation, q.Status)
	}
	return s.identities.List(ctx, filter)
}

// GetIdentity returns one identity with its profile.
func (s *AdminService) GetIdentity(ctx context.Context, id string) (*domain.Identity, error) {
	return s.identities.GetByID(ctx, id)
}

// SetStatus applies status to every id or to none. An admin may not
// deactivate their own account.
func (s *AdminService) SetStatus(ctx context.Context, admin *domain.Principal, ids []string, status domain.AccountStatus) (int, error) {
	if !status.Valid() {
		return 0, fmt.Errorf("%w: unknown status %q", domain.ErrValidation, status)
	}
	if len(ids) == 0 {
		return 0, fmt.Errorf("%w: at least one identity id is required", domain.ErrValidation)
	}
	if !status.Active() && admin != nil {
		for _, id := range ids {
			if strings.EqualFold(id, admin.IdentityID) {
				return 0, fmt.Errorf("%w: cannot deactivate your own account", domain.ErrValidation)
			}
		}
	}

	updated, err := s.identities.SetActive(ctx, ids, status.Active())
	if err != nil {
		return 0, err
	}

	s.logger.Info("identity status changed",
		zap.Strings("identity_ids", ids),
		zap.String("status", string(status)),
		zap.String("admin_id", reviewerID(admin)))
	s.publish(ctx, events.EventIdentityStatusChanged, admin, events.IdentityStatusPayload{IdentityIDs: ids, Status: status})
	return updated, nil
}

// SetVerified flips the verified flag.
func (s *AdminService) SetVerified(ctx context.Context, admin *domain.Principal, id string, verified bool) (*domain.Identity, error) {
	if err := s.identities.SetVerified(ctx, id, verified); err != nil {
		return nil, err
	}
	s.logger.Info("identity verification changed",
		zap.String("identity_id", id),
		zap.Bool("verified", verified),
		zap.String("admin_id", reviewerID(admin)))
	s.publish(ctx, events.EventIdentityStatusChanged, admin, events.IdentityStatusPayload{IdentityIDs: []string{id}, Verified: &verified})
	return s.identities.GetByID(ctx, id)
}

// DeleteIdentity removes an identity and its profile.
func (s *AdminService) DeleteIdentity(ctx context.Context, admin *domain.Principal, id string) error {
	if admin != nil && strings.EqualFold(id, admin.IdentityID) {
		return fmt.Errorf("%w: cannot delete your own account", domain.ErrValidation)
	}
	if err := s.identities.Delete(ctx, id); err != nil {
		return err
	}
	s.logger.Warn("identity deleted",
		zap.String("identity_id", id),
		zap.String("admin_id", reviewerID(admin)))
	s.publish(ctx, events.EventIdentityDeleted, admin, events.IdentityStatusPayload{IdentityIDs: []string{id}})
	return nil
}

// Stats builds the dashboard overview.
func (s *AdminService) Stats(ctx context.Context) (*DashboardStats, error) {
	identityStats, err := s.identities.Stats(ctx, s.now().Add(-statsWindow))
	if err != nil {
		return nil, err
	}
	byStatus, err := s.registrations.CountByStatus(ctx)
	if err != nil {
		return nil, err
	}
	return &DashboardStats{
		TotalIdentities:     identityStats.Total,
		ActiveIdentities:    identityStats.Active,
		VerifiedIdentities:  identityStats.Verified,
		RecentRegistrations: identityStats.RegisteredSince,
		IdentitiesByRole:    identityStats.ByRole,
		ApplicationsByState: byStatus,
	}, nil
}

func (s *AdminService) publish(ctx context.Context, eventType events.EventType, admin *domain.Principal, payload events.IdentityStatusPayload) {
	if s.dispatcher == nil {
		return
	}
	subject := ""
	if len(payload.IdentityIDs) == 1 {
		subject = payload.IdentityIDs[0]
	}
	_ = s.dispatcher.Publish(ctx, events.New(eventType, subject, events.ActorFromPrincipal(admin), payload))
}
