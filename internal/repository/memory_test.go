package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/petcare-identity/internal/domain"
)

func vetApplication(username, email, license string) *domain.RegistrationApplication {
	return &domain.RegistrationApplication{
		Role:         domain.RoleVeterinarian,
		Username:     username,
		Email:        email,
		PasswordHash: "hash",
		Profile:      domain.VeterinarianProfile{LicenseNumber: license},
	}
}

func TestMemoryApplicationUniqueness(t *testing.T) {
	ctx := context.Background()
	regs := NewMemoryStore().Registrations()

	require.NoError(t, regs.Create(ctx, vetApplication("vet1", "vet1@example.com", "VET-001")))

	assert.ErrorIs(t, regs.Create(ctx, vetApplication("vet1", "other@example.com", "VET-002")), domain.ErrDuplicateUsername)
	assert.ErrorIs(t, regs.Create(ctx, vetApplication("vet2", "vet1@example.com", "VET-002")), domain.ErrDuplicateEmail)
	assert.ErrorIs(t, regs.Create(ctx, vetApplication("vet2", "vet2@example.com", "VET-001")), domain.ErrDuplicateLicenseOrRegistration)

	avail, err := regs.CheckAvailability(ctx, "VET1", "fresh@example.com", domain.UniqueKeys{})
	require.NoError(t, err)
	assert.True(t, avail.UsernameTaken)
	assert.False(t, avail.EmailTaken)
}

func TestMemoryRejectedApplicationReleasesKeys(t *testing.T) {
	ctx := context.Background()
	regs := NewMemoryStore().Registrations()

	app := vetApplication("vet1", "vet1@example.com", "VET-001")
	require.NoError(t, regs.Create(ctx, app))
	_, err := regs.Reject(ctx, app.ID, domain.ReviewDecision{ReviewerID: "r", Notes: "blurry scan", At: time.Now()})
	require.NoError(t, err)

	assert.NoError(t, regs.Create(ctx, vetApplication("vet1", "vet1@example.com", "VET-001")))
}

func TestMemoryApproveIsAllOrNothing(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	regs := store.Registrations()

	app := vetApplication("vet1", "vet1@example.com", "VET-001")
	require.NoError(t, regs.Create(ctx, app))

	// An identity claims the username after the application was filed.
	require.NoError(t, store.Identities().Create(ctx, &domain.Identity{
		Username: "vet1", Email: "someone@example.com", Role: domain.RolePetOwner,
		Active: true, Profile: domain.PetOwnerProfile{},
	}))

	_, _, err := regs.Approve(ctx, app.ID, domain.ReviewDecision{ReviewerID: "r", At: time.Now()})
	assert.ErrorIs(t, err, domain.ErrDuplicateUsername)

	got, err := regs.GetByID(ctx, app.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.RegistrationPending, got.Status)
	assert.Nil(t, got.IdentityID)

	_, total, err := store.Identities().List(ctx, IdentityFilter{})
	require.NoError(t, err)
	assert.Equal(t, 1, total)
}

func TestMemoryListPaging(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	ids := store.Identities()
	for _, name := range []string{"a", "b", "c"} {
		require.NoError(t, ids.Create(ctx, &domain.Identity{
			Username: name, Email: name + "@example.com", Role: domain.RolePetOwner,
			Active: true, Profile: domain.PetOwnerProfile{},
		}))
	}

	items, total, err := ids.List(ctx, IdentityFilter{Limit: 2})
	require.NoError(t, err)
	assert.Equal(t, 3, total)
	assert.Len(t, items, 2)

	items, total, err = ids.List(ctx, IdentityFilter{Limit: 2, Offset: 2})
	require.NoError(t, err)
	assert.Equal(t, 3, total)
	assert.Len(t, items, 1)

	items, _, err = ids.List(ctx, IdentityFilter{Search: "B@EXAMPLE"})
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "b", items[0].Username)
}

func TestNormalizePage(t *testing.T) {
	limit, offset := NormalizePage(500, -1)
	assert.Equal(t, MaxPageSize, limit)
	assert.Zero(t, offset)

	limit, offset = NormalizePage(0, 40)
	assert.Equal(t, DefaultPageSize, limit)
	assert.Equal(t, 40, offset)

	limit, _ = NormalizePage(7, 0)
	assert.Equal(t, 7, limit)
}

func TestMemorySetActiveIsAllOrNothing(t *testing.T) {
	ctx := context.Background()
	ids := NewMemoryStore().Identities()
	owner := &domain.Identity{Username: "o", Email: "o@example.com", Role: domain.RolePetOwner, Active: true, Profile: domain.PetOwnerProfile{}}
	require.NoError(t, ids.Create(ctx, owner))

	_, err := ids.SetActive(ctx, []string{owner.ID, "00000000-0000-0000-0000-000000000001"}, false)
	assert.ErrorIs(t, err, domain.ErrIdentityNotFound)

	got, err := ids.GetByID(ctx, owner.ID)
	require.NoError(t, err)
	assert.True(t, got.Active)

	n, err := ids.SetActive(ctx, []string{owner.ID, owner.ID}, false)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}
