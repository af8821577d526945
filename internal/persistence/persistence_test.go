package persistence

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/spec-kit/petcare-identity/internal/config"
	"github.com/spec-kit/petcare-identity/internal/domain"
)

func TestDisabledBackends(t *testing.T) {
	ctx := context.Background()
	logger := zap.NewNop()

	pg, err := NewPostgres(ctx, config.PostgresConfig{}, logger)
	require.NoError(t, err)
	assert.False(t, pg.Enabled())
	assert.Error(t, pg.Ping(ctx))
	assert.Nil(t, pg.PoolHandle())
	pg.Close()

	r := NewRedis(config.RedisConfig{}, logger)
	assert.False(t, r.Enabled())
	assert.Error(t, r.Ping(ctx))
	r.Close()

	m, err := NewMongo(ctx, config.MongoConfig{}, logger)
	require.NoError(t, err)
	assert.False(t, m.Enabled())
	assert.Error(t, m.Ping(ctx))
	m.Close(ctx)

	store := NewGridFSDocumentStore(m, "docs")
	assert.Nil(t, store)
	_, err = store.Store(ctx, "license.pdf", "application/pdf", strings.NewReader("pdf"))
	assert.ErrorIs(t, err, domain.ErrDocumentStorageUnavailable)

	assert.NoError(t, RunMigrations(ctx, nil, "migrations", logger))
}
