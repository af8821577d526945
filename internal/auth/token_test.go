package auth

import (
	"encoding/base64"
	"encoding/json"
	"strings"
	"testing"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/petcare-identity/internal/domain"
)

const testSecret = "0123456789abcdef0123456789abcdef"

type fakeClock struct{ t time.Time }

func (c *fakeClock) Now() time.Time          { return c.t }
func (c *fakeClock) Advance(d time.Duration) { c.t = c.t.Add(d) }

func newTestManager(t *testing.T, clock *fakeClock) *TokenManager {
	t.Helper()
	tm, err := NewTokenManager(testSecret, time.Hour, WithClock(clock.Now))
	require.NoError(t, err)
	return tm
}

func TestNewTokenManagerRejectsWeakSecret(t *testing.T) {
	_, err := NewTokenManager("short", time.Hour)
	assert.ErrorIs(t, err, ErrWeakSecret)
}

func TestTokenRoundTrip(t *testing.T) {
	clock := &fakeClock{t: time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)}
	tm := newTestManager(t, clock)
	id := uuid.NewString()

	for _, role := range domain.AllRoles {
		issued, err := tm.Issue(id, "dr.jane@example.com", role, 10*time.Minute)
		require.NoError(t, err)
		assert.Equal(t, clock.t.Add(10*time.Minute), issued.ExpiresAt)
		assert.Len(t, strings.Split(issued.Token, "."), 3)

		claims, err := tm.Decode(issued.Token)
		require.NoError(t, err)
		assert.Equal(t, id, claims.IdentityID)
		assert.Equal(t, "dr.jane@example.com", claims.Subject)
		assert.Equal(t, role, claims.Role)
		assert.Equal(t, clock.t.Unix(), claims.IssuedAt.Unix())
	}
}

func TestTokenExpires(t *testing.T) {
	clock := &fakeClock{t: time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)}
	tm := newTestManager(t, clock)

	issued, err := tm.Issue(uuid.NewString(), "owner", domain.RolePetOwner, time.Minute)
	require.NoError(t, err)

	clock.Advance(59 * time.Second)
	_, err = tm.Decode(issued.Token)
	require.NoError(t, err)

	clock.Advance(2 * time.Second)
	_, err = tm.Decode(issued.Token)
	assert.ErrorIs(t, err, domain.ErrTokenExpired)
	assert.NotErrorIs(t, err, domain.ErrTokenInvalid)
}

func TestTokenDefaultTTL(t *testing.T) {
	clock := &fakeClock{t: time.Now()}
	tm := newTestManager(t, clock)
	issued, err := tm.Issue(uuid.NewString(), "owner", domain.RolePetOwner, 0)
	require.NoError(t, err)
	assert.Equal(t, clock.t.Add(time.Hour).Unix(), issued.ExpiresAt.Unix())
}

func TestTokenTamperedClaimsAreInvalid(t *testing.T) {
	clock := &fakeClock{t: time.Now()}
	tm := newTestManager(t, clock)
	issued, err := tm.Issue(uuid.NewString(), "owner", domain.RolePetOwner, time.Hour)
	require.NoError(t, err)
	parts := strings.Split(issued.Token, ".")

	// Semantically valid escalation: same claims with role=ADMIN.
	raw, err := base64.RawURLEncoding.DecodeString(parts[1])
	require.NoError(t, err)
	var claims map[string]any
	require.NoError(t, json.Unmarshal(raw, &claims))
	claims["role"] = string(domain.RoleAdmin)
	forged, err := json.Marshal(claims)
	require.NoError(t, err)
	escalated := parts[0] + "." + base64.RawURLEncoding.EncodeToString(forged) + "." + parts[2]

	_, err = tm.Decode(escalated)
	assert.ErrorIs(t, err, domain.ErrTokenInvalid)

	// Flip every byte of the claims segment in turn.
	for i := 0; i < len(parts[1]); i++ {
		b := []byte(parts[1])
		if b[i] == 'A' {
			b[i] = 'B'
		} else {
			b[i] = 'A'
		}
		// The trailing character may only carry padding bits.
		if decoded, derr := base64.RawURLEncoding.DecodeString(string(b)); derr == nil && string(decoded) == string(raw) {
			continue
		}
		tampered := parts[0] + "." + string(b) + "." + parts[2]
		_, err := tm.Decode(tampered)
		assert.ErrorIs(t, err, domain.ErrTokenInvalid, "byte %d", i)
	}
}

func TestTokenWrongSecretOrAlgorithm(t *testing.T) {
	clock := &fakeClock{t: time.Now()}
	tm := newTestManager(t, clock)

	other, err := NewTokenManager(strings.Repeat("z", MinSecretLength), time.Hour, WithClock(clock.Now))
	require.NoError(t, err)
	issued, err := other.Issue(uuid.NewString(), "owner", domain.RolePetOwner, time.Hour)
	require.NoError(t, err)
	_, err = tm.Decode(issued.Token)
	assert.ErrorIs(t, err, domain.ErrTokenInvalid)

	unsigned := jwt.NewWithClaims(jwt.SigningMethodNone, &Claims{
		IdentityID: uuid.NewString(),
		Role:       domain.RoleAdmin,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "root",
			ExpiresAt: jwt.NewNumericDate(clock.t.Add(time.Hour)),
		},
	})
	noneToken, err := unsigned.SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)
	_, err = tm.Decode(noneToken)
	assert.ErrorIs(t, err, domain.ErrTokenInvalid)
}

func TestTokenMalformedAndIncompleteClaims(t *testing.T) {
	clock := &fakeClock{t: time.Now()}
	tm := newTestManager(t, clock)

	for _, raw := range []string{"", "abc", "a.b.c", "....."} {
		_, err := tm.Decode(raw)
		assert.ErrorIs(t, err, domain.ErrTokenInvalid, raw)
	}

	sign := func(c *Claims) string {
		s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, c).SignedString([]byte(testSecret))
		require.NoError(t, err)
		return s
	}
	exp := jwt.NewNumericDate(clock.t.Add(time.Hour))

	cases := map[string]*Claims{
		"no expiry":      {IdentityID: uuid.NewString(), Role: domain.RolePetOwner, RegisteredClaims: jwt.RegisteredClaims{Subject: "a"}},
		"unknown role":   {IdentityID: uuid.NewString(), Role: "ROOT", RegisteredClaims: jwt.RegisteredClaims{Subject: "a", ExpiresAt: exp}},
		"no identity id": {Role: domain.RolePetOwner, RegisteredClaims: jwt.RegisteredClaims{Subject: "a", ExpiresAt: exp}},
		"no subject":     {IdentityID: uuid.NewString(), Role: domain.RolePetOwner, RegisteredClaims: jwt.RegisteredClaims{ExpiresAt: exp}},
	}
	for name, c := range cases {
		_, err := tm.Decode(sign(c))
		assert.ErrorIs(t, err, domain.ErrTokenInvalid, name)
	}
}
