package config

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadRequiresSigningSecret(t *testing.T) {
	t.Setenv("AUTH_JWT_SECRET", "")
	_, err := Load()
	assert.ErrorIs(t, err, ErrMissingJWTSecret)

	t.Setenv("AUTH_JWT_SECRET", "too-short")
	_, err = Load()
	assert.ErrorIs(t, err, ErrMissingJWTSecret)
}

func TestLoadDefaults(t *testing.T) {
	t.Setenv("AUTH_JWT_SECRET", strings.Repeat("s", MinJWTSecretLength))
	t.Setenv("AUTH_ACCESS_TOKEN_TTL_MINUTES", "15")
	t.Setenv("ADMIN_OVERRIDE_USERNAME", "")
	t.Setenv("ADMIN_OVERRIDE_PASSWORD", "")
	t.Setenv("REDIS_ADDR", "")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 15*time.Minute, cfg.Auth.AccessTokenTTL())
	assert.False(t, cfg.Admin.Enabled())
	assert.Equal(t, "0.0.0.0:8080", cfg.App.Addr())
	assert.True(t, cfg.Registration.AutoApprovePetOwner)
	assert.Empty(t, cfg.Redis.Addr)
}

func TestAdminOverrideEnabled(t *testing.T) {
	assert.False(t, AdminOverrideConfig{Username: "root"}.Enabled())
	assert.True(t, AdminOverrideConfig{Username: "root", Password: "pw"}.Enabled())
}

func TestInvalidRedisDB(t *testing.T) {
	t.Setenv("AUTH_JWT_SECRET", strings.Repeat("s", MinJWTSecretLength))
	t.Setenv("REDIS_DB", "primary")
	_, err := Load()
	assert.ErrorContains(t, err, "invalid REDIS_DB")
}
