package auth

import (
	"context"
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/spec-kit/petcare-identity/internal/domain"
	"github.com/spec-kit/petcare-identity/internal/observability"
)

const principalKey = "auth_principal"

type principalCtxKey struct{}

// AuthMiddleware resolves bearer tokens into request principals.
type AuthMiddleware struct {
	tokens  *TokenManager
	logger  *zap.Logger
	metrics *observability.Metrics
}

// NewAuthMiddleware constructs middleware.
func NewAuthMiddleware(tokens *TokenManager, logger *zap.Logger, metrics *observability.Metrics) *AuthMiddleware {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AuthMiddleware{tokens: tokens, logger: logger, metrics: metrics}
}

// Authenticate never rejects a request. A missing, expired or invalid token
// leaves the request anonymous and the route guard decides.
func (m *AuthMiddleware) Authenticate(c *fiber.Ctx) error {
	raw, ok := bearerToken(c.Get(fiber.HeaderAuthorization))
	if !ok {
		return c.Next()
	}

	claims, err := m.tokens.Decode(raw)
	switch {
	case err == nil:
		principal := claims.Principal()
		c.Locals(principalKey, principal)
		c.SetUserContext(WithPrincipal(c.UserContext(), principal))
		m.metrics.RecordTokenDecode("valid")
	case errors.Is(err, domain.ErrTokenExpired):
		m.metrics.RecordTokenDecode("expired")
		m.logger.Debug("expired bearer token", zap.String("path", c.Path()))
	default:
		m.metrics.RecordTokenDecode("invalid")
		m.logger.Warn("invalid bearer token",
			zap.String("path", c.Path()),
			zap.String("ip", c.IP()),
			zap.Error(err))
	}
	return c.Next()
}

func bearerToken(header string) (string, bool) {
	if header == "" {
		return "", false
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", false
	}
	token := strings.TrimSpace(parts[1])
	return token, token != ""
}

// PrincipalFromContext retrieves the authenticated caller, if any.
func PrincipalFromContext(c *fiber.Ctx) (*domain.Principal, bool) {
	val := c.Locals(principalKey)
	if val == nil {
		return nil, false
	}
	principal, ok := val.(*domain.Principal)
	return principal, ok && principal != nil
}

// WithPrincipal stores principal on ctx for code below the HTTP layer.
func WithPrincipal(ctx context.Context, principal *domain.Principal) context.Context {
	return context.WithValue(ctx, principalCtxKey{}, principal)
}

// PrincipalFrom returns the principal stored by WithPrincipal.
func PrincipalFrom(ctx context.Context) (*domain.Principal, bool) {
	principal, ok := ctx.Value(principalCtxKey{}).(*domain.Principal)
	return principal, ok && principal != nil
}
