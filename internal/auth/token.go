package auth

import (
	"errors"
	"fmt"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/spec-kit/petcare-identity/internal/domain"
)

// MinSecretLength is the shortest HMAC secret the token manager accepts.
const MinSecretLength = 32

// ErrWeakSecret is returned when the signing secret is shorter than MinSecretLength.
var ErrWeakSecret = errors.New("token signing secret too short")

// TokenManager handles issuing and validating JWT tokens.
type TokenManager struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// TokenOption customizes a TokenManager.
type TokenOption func(*TokenManager)

// WithClock overrides the time source used for iat/exp.
func WithClock(now func() time.Time) TokenOption {
	return func(tm *TokenManager) {
		if now != nil {
			tm.now = now
		}
	}
}

// NewTokenManager builds a new manager.
func NewTokenManager(secret string, ttl time.Duration, opts ...TokenOption) (*TokenManager, error) {
	if len(secret) < MinSecretLength {
		return nil, ErrWeakSecret
	}
	if ttl <= 0 {
		ttl = time.Hour
	}
	tm := &TokenManager{secret: []byte(secret), ttl: ttl, now: time.Now}
	for _, opt := range opts {
		opt(tm)
	}
	return tm, nil
}

// Claims describes JWT payload.
type Claims struct {
	IdentityID string      `json:"identityId"`
	Role       domain.Role `json:"role"`
	jwt.RegisteredClaims
}

// Principal converts validated claims into the request principal.
func (c *Claims) Principal() *domain.Principal {
	return &domain.Principal{IdentityID: c.IdentityID, Subject: c.Subject, Role: c.Role}
}

// Issue builds and signs a token. ttl <= 0 uses the manager default.
func (tm *TokenManager) Issue(identityID, subject string, role domain.Role, ttl time.Duration) (domain.IssuedToken, error) {
	if ttl <= 0 {
		ttl = tm.ttl
	}
	issuedAt := tm.now()
	expiresAt := issuedAt.Add(ttl)
	claims := &Claims{
		IdentityID: identityID,
		Role:       role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString(tm.secret)
	if err != nil {
		return domain.IssuedToken{}, err
	}
	return domain.IssuedToken{Token: tokenString, ExpiresAt: claims.ExpiresAt.Time}, nil
}

// Decode validates the signature and expiry and returns the claims.
// Failures are either domain.ErrTokenExpired or domain.ErrTokenInvalid.
func (tm *TokenManager) Decode(tokenStr string) (*Claims, error) {
	parsed, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		return tm.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(tm.now),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, domain.ErrTokenExpired
		}
		return nil, fmt.Errorf("%w: %v", domain.ErrTokenInvalid, err)
	}

	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return nil, domain.ErrTokenInvalid
	}
	if claims.Subject == "" || !claims.Role.Valid() {
		return nil, domain.ErrTokenInvalid
	}
	if _, err := uuid.Parse(claims.IdentityID); err != nil {
		return nil, domain.ErrTokenInvalid
	}
	return claims, nil
}
