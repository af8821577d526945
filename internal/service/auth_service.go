package service

import (
	"context"
	"crypto/subtle"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spec-kit/petcare-identity/internal/auth"
	"github.com/spec-kit/petcare-identity/internal/config"
	"github.com/spec-kit/petcare-identity/internal/domain"
	"github.com/spec-kit/petcare-identity/internal/events"
	"github.com/spec-kit/petcare-identity/internal/observability"
)

// overrideNamespace seeds the deterministic identity id minted for override logins.
var overrideNamespace = uuid.MustParse("6f1c3a52-8d4e-4b7a-9a51-2f0e7c9d1b34")

// LoginResult is returned by every successful login path.
type LoginResult struct {
	Token    domain.IssuedToken
	Identity *domain.Identity
	Override bool
}

// AuthService coordinates login flows on top of the identity model and token codec.
type AuthService struct {
	identities *IdentityService
	tokens     *auth.TokenManager
	limiter    *auth.LoginLimiter
	override   config.AdminOverrideConfig
	dispatcher events.Dispatcher
	metrics    *observability.Metrics
	logger     *zap.Logger
}

// AuthDependencies encapsulates collaborators for the auth service.
type AuthDependencies struct {
	Identities *IdentityService
	Tokens     *auth.TokenManager
	Limiter    *auth.LoginLimiter
	Override   config.AdminOverrideConfig
	Dispatcher events.Dispatcher
	Metrics    *observability.Metrics
	Logger     *zap.Logger
}

// NewAuthService builds the service.
func NewAuthService(deps AuthDependencies) *AuthService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AuthService{
		identities: deps.Identities,
		tokens:     deps.Tokens,
		limiter:    deps.Limiter,
		override:   deps.Override,
		dispatcher: deps.Dispatcher,
		metrics:    deps.Metrics,
		logger:     logger,
	}
}

// Login authenticates any active identity and issues a token.
func (s *AuthService) Login(ctx context.Context, usernameOrEmail, password string) (*LoginResult, error) {
	identity, err := s.authenticate(ctx, "standard", usernameOrEmail, password)
	if err != nil {
		return nil, err
	}
	return s.issue(identity, false)
}

// AdminLogin is the admin-only login. The configured override credential pair
// is checked first and, when it matches, bypasses the identity store entirely.
// Otherwise the caller must be an active ADMIN identity; any other role gets
// the same ErrAuthenticationFailed as a wrong password.
func (s *AuthService) AdminLogin(ctx context.Context, usernameOrEmail, password, remoteIP string) (*LoginResult, error) {
	if s.overrideMatches(usernameOrEmail, password) {
		return s.overrideLogin(ctx, remoteIP)
	}

	identity, err := s.authenticate(ctx, "admin", usernameOrEmail, password)
	if err != nil {
		return nil, err
	}
	if !s.identities.VerifyAdmin(identity) {
		s.metrics.RecordLogin("admin", "not_admin")
		s.logger.Warn("admin login by non-admin identity",
			zap.String("identity_id", identity.ID),
			zap.String("role", string(identity.Role)))
		return nil, domain.ErrAuthenticationFailed
	}
	return s.issue(identity, false)
}

func (s *AuthService) authenticate(ctx context.Context, kind, usernameOrEmail, password string) (*domain.Identity, error) {
	if err := s.limiter.Allow(ctx, usernameOrEmail); err != nil {
		s.metrics.RecordThrottled()
		s.logger.Info("login throttled", zap.String("kind", kind), zap.String("identifier", usernameOrEmail))
		return nil, err
	}

	identity, err := s.identities.Authenticate(ctx, usernameOrEmail, password)
	switch {
	case err == nil:
		s.limiter.Reset(ctx, usernameOrEmail)
		s.metrics.RecordLogin(kind, "success")
		return identity, nil
	case errors.Is(err, domain.ErrAuthenticationFailed):
		s.limiter.RecordFailure(ctx, usernameOrEmail)
		s.metrics.RecordLogin(kind, "failed")
		s.logger.Info("login failed", zap.String("kind", kind), zap.String("identifier", usernameOrEmail))
	case errors.Is(err, domain.ErrAccountDisabled):
		s.metrics.RecordLogin(kind, "disabled")
		s.logger.Info("login for disabled account", zap.String("kind", kind), zap.String("identifier", usernameOrEmail))
	}
	return nil, err
}

func (s *AuthService) issue(identity *domain.Identity, override bool) (*LoginResult, error) {
	token, err := s.tokens.Issue(identity.ID, identity.Email, identity.Role, 0)
	if err != nil {
		return nil, err
	}
	return &LoginResult{Token: token, Identity: identity, Override: override}, nil
}

// overrideMatches compares both values in constant time. A disabled override never matches.
func (s *AuthService) overrideMatches(username, password string) bool {
	if !s.override.Enabled() {
		return false
	}
	userOK := subtle.ConstantTimeCompare([]byte(username), []byte(s.override.Username))
	passOK := subtle.ConstantTimeCompare([]byte(password), []byte(s.override.Password))
	return userOK&passOK == 1
}

// OverrideIdentity is the synthetic ADMIN identity override logins act as.
// It is never persisted.
func (s *AuthService) OverrideIdentity() *domain.Identity {
	return &domain.Identity{
		ID:       uuid.NewSHA1(overrideNamespace, []byte(s.override.Username)).String(),
		Username: s.override.Username,
		Email:    s.override.Email,
		Role:     domain.RoleAdmin,
		Active:   true,
		Verified: true,
		Profile:  domain.AdminProfile{},
	}
}

// IsOverridePrincipal reports whether principal came from the override path.
func (s *AuthService) IsOverridePrincipal(principal *domain.Principal) bool {
	if principal == nil || !s.override.Enabled() {
		return false
	}
	return principal.Role == domain.RoleAdmin && principal.IdentityID == s.OverrideIdentity().ID
}

func (s *AuthService) overrideLogin(ctx context.Context, remoteIP string) (*LoginResult, error) {
	identity := s.OverrideIdentity()
	identity.CreatedAt = time.Now().UTC()

	s.metrics.RecordLogin("admin", "override")
	s.logger.Warn("admin override login",
		zap.String("path", "admin_override"),
		zap.String("username", identity.Username),
		zap.String("identity_id", identity.ID),
		zap.String("ip", remoteIP))
	if s.dispatcher != nil {
		_ = s.dispatcher.Publish(ctx, events.New(events.EventAdminOverrideLogin, identity.ID,
			events.Actor{IdentityID: identity.ID, Role: domain.RoleAdmin},
			events.OverrideLoginPayload{Username: identity.Username, IP: remoteIP}))
	}
	return s.issue(identity, true)
}

// CurrentIdentity loads the caller's identity, resolving override principals
// without touching the store.
func (s *AuthService) CurrentIdentity(ctx context.Context, principal *domain.Principal) (*domain.Identity, error) {
	if principal == nil {
		return nil, domain.ErrAuthenticationRequired
	}
	if s.IsOverridePrincipal(principal) {
		return s.OverrideIdentity(), nil
	}
	return s.identities.GetProfile(ctx, principal.IdentityID)
}
