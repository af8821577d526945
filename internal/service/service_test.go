package service

import (
	"bytes"
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/spec-kit/petcare-identity/internal/auth"
	"github.com/spec-kit/petcare-identity/internal/config"
	"github.com/spec-kit/petcare-identity/internal/domain"
	"github.com/spec-kit/petcare-identity/internal/events"
	"github.com/spec-kit/petcare-identity/internal/repository"
)

const testSecret = "0123456789abcdef0123456789abcdef"

type testEnv struct {
	store         *repository.MemoryStore
	identities    *IdentityService
	auth          *AuthService
	registrations *RegistrationService
	admin         *AdminService
	tokens        *auth.TokenManager
	dispatcher    events.Dispatcher
}

type envOption func(*testEnvConfig)

type testEnvConfig struct {
	limiter   *auth.LoginLimiter
	override  config.AdminOverrideConfig
	reg       config.RegistrationConfig
	documents DocumentStore
}

func withOverride(username, password string) envOption {
	return func(c *testEnvConfig) {
		c.override = config.AdminOverrideConfig{Username: username, Password: password, Email: "override@example.com"}
	}
}

func withLimiter(l *auth.LoginLimiter) envOption {
	return func(c *testEnvConfig) { c.limiter = l }
}

func withAutoApprove() envOption {
	return func(c *testEnvConfig) { c.reg.AutoApprovePetOwner = true }
}

func withDocuments(store DocumentStore) envOption {
	return func(c *testEnvConfig) { c.documents = store }
}

func newTestEnv(t *testing.T, opts ...envOption) *testEnv {
	t.Helper()
	cfg := testEnvConfig{reg: config.RegistrationConfig{MaxDocumentBytes: 1024}}
	for _, opt := range opts {
		opt(&cfg)
	}

	store := repository.NewMemoryStore()
	tokens, err := auth.NewTokenManager(testSecret, time.Hour)
	require.NoError(t, err)
	dispatcher := events.NewInMemoryDispatcher(nil)
	identities := NewIdentityService(store.Identities(), auth.NewPasswordHasher(bcrypt.MinCost), nil)

	return &testEnv{
		store:      store,
		identities: identities,
		tokens:     tokens,
		dispatcher: dispatcher,
		auth: NewAuthService(AuthDependencies{
			Identities: identities,
			Tokens:     tokens,
			Limiter:    cfg.limiter,
			Override:   cfg.override,
			Dispatcher: dispatcher,
		}),
		registrations: NewRegistrationService(RegistrationDependencies{
			Registrations: store.Registrations(),
			Identities:    identities,
			Documents:     cfg.documents,
			Dispatcher:    dispatcher,
			Config:        cfg.reg,
		}),
		admin: NewAdminService(store.Identities(), store.Registrations(), dispatcher, nil),
	}
}

func (e *testEnv) createIdentity(t *testing.T, username string, role domain.Role) *domain.Identity {
	t.Helper()
	profile, err := domain.EmptyProfile(role)
	require.NoError(t, err)
	if role == domain.RoleVeterinarian {
		profile = domain.VeterinarianProfile{LicenseNumber: "LIC-" + username}
	}
	identity, err := e.identities.CreateIdentity(context.Background(), NewIdentity{
		Username: username,
		Email:    username + "@example.com",
		Password: "secret123",
		Role:     role,
		Profile:  profile,
	})
	require.NoError(t, err)
	return identity
}

func (e *testEnv) record(types ...events.EventType) *[]events.Event {
	var mu sync.Mutex
	seen := &[]events.Event{}
	for _, et := range types {
		e.dispatcher.Subscribe(et, func(_ context.Context, ev events.Event) error {
			mu.Lock()
			defer mu.Unlock()
			*seen = append(*seen, ev)
			return nil
		})
	}
	return seen
}

func vetInput(username, email, license string) RegistrationInput {
	return RegistrationInput{
		Role:     domain.RoleVeterinarian,
		Username: username,
		Email:    email,
		Password: "secret123",
		Profile:  domain.VeterinarianProfile{LicenseNumber: license, ExperienceYears: 4},
	}
}

func adminPrincipal(id string) *domain.Principal {
	return &domain.Principal{IdentityID: id, Role: domain.RoleAdmin}
}

func TestLoginFailuresAreIndistinguishable(t *testing.T) {
	env := newTestEnv(t)
	env.createIdentity(t, "alice", domain.RolePetOwner)
	ctx := context.Background()

	_, unknownErr := env.auth.Login(ctx, "nobody", "secret123")
	_, wrongErr := env.auth.Login(ctx, "alice", "wrong-password")

	require.ErrorIs(t, unknownErr, domain.ErrAuthenticationFailed)
	require.ErrorIs(t, wrongErr, domain.ErrAuthenticationFailed)
	assert.Equal(t, unknownErr.Error(), wrongErr.Error())
}

func TestLoginByUsernameOrEmail(t *testing.T) {
	env := newTestEnv(t)
	created := env.createIdentity(t, "alice", domain.RolePetOwner)
	ctx := context.Background()

	for _, login := range []string{"alice", "ALICE@example.com", " alice@example.com "} {
		res, err := env.auth.Login(ctx, login, "secret123")
		require.NoError(t, err, login)
		assert.Equal(t, created.ID, res.Identity.ID)

		claims, err := env.tokens.Decode(res.Token.Token)
		require.NoError(t, err)
		assert.Equal(t, created.ID, claims.IdentityID)
		assert.Equal(t, domain.RolePetOwner, claims.Role)
		assert.Equal(t, "alice@example.com", claims.Subject)
	}
}

func TestLoginDisabledAccount(t *testing.T) {
	env := newTestEnv(t)
	alice := env.createIdentity(t, "alice", domain.RolePetOwner)
	ctx := context.Background()

	_, err := env.admin.SetStatus(ctx, adminPrincipal("admin-1"), []string{alice.ID}, domain.AccountStatusSuspended)
	require.NoError(t, err)

	_, err = env.auth.Login(ctx, "alice", "secret123")
	assert.ErrorIs(t, err, domain.ErrAccountDisabled)

	// A wrong password on a disabled account still reads as a failed login.
	_, err = env.auth.Login(ctx, "alice", "nope-nope")
	assert.ErrorIs(t, err, domain.ErrAuthenticationFailed)
}

func TestLoginThrottledAfterRepeatedFailures(t *testing.T) {
	srv := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: srv.Addr()})
	defer client.Close()

	env := newTestEnv(t, withLimiter(auth.NewLoginLimiter(client, 2, time.Minute, nil)))
	env.createIdentity(t, "pat", domain.RolePetOwner)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		_, err := env.auth.Login(ctx, "pat", "wrong-password")
		assert.ErrorIs(t, err, domain.ErrAuthenticationFailed)
	}
	// The correct password is refused too until the window ends.
	_, err := env.auth.Login(ctx, "pat", "secret123")
	assert.ErrorIs(t, err, domain.ErrTooManyAttempts)

	srv.FastForward(time.Minute + time.Second)
	_, err = env.auth.Login(ctx, "pat", "secret123")
	assert.NoError(t, err)
}

func TestAdminLoginRejectsNonAdmin(t *testing.T) {
	env := newTestEnv(t)
	env.createIdentity(t, "alice", domain.RolePetOwner)
	env.createIdentity(t, "root", domain.RoleAdmin)
	ctx := context.Background()

	_, err := env.auth.AdminLogin(ctx, "alice", "secret123", "10.0.0.1")
	assert.ErrorIs(t, err, domain.ErrAuthenticationFailed)

	res, err := env.auth.AdminLogin(ctx, "root", "secret123", "10.0.0.1")
	require.NoError(t, err)
	assert.False(t, res.Override)
	assert.Equal(t, domain.RoleAdmin, res.Identity.Role)
}

func TestAdminOverrideLogin(t *testing.T) {
	env := newTestEnv(t, withOverride("breakglass", "very-secret-pass"))
	seen := env.record(events.EventAdminOverrideLogin)
	ctx := context.Background()

	res, err := env.auth.AdminLogin(ctx, "breakglass", "very-secret-pass", "10.0.0.9")
	require.NoError(t, err)
	assert.True(t, res.Override)
	assert.Equal(t, domain.RoleAdmin, res.Identity.Role)

	claims, err := env.tokens.Decode(res.Token.Token)
	require.NoError(t, err)
	principal := claims.Principal()
	assert.True(t, env.auth.IsOverridePrincipal(principal))

	current, err := env.auth.CurrentIdentity(ctx, principal)
	require.NoError(t, err)
	assert.Equal(t, "breakglass", current.Username)

	require.Len(t, *seen, 1)
	assert.Equal(t, events.OverrideLoginPayload{Username: "breakglass", IP: "10.0.0.9"}, (*seen)[0].Payload)

	_, err = env.auth.AdminLogin(ctx, "breakglass", "wrong", "10.0.0.9")
	assert.ErrorIs(t, err, domain.ErrAuthenticationFailed)

	// The override is never reachable from the standard login.
	_, err = env.auth.Login(ctx, "breakglass", "very-secret-pass")
	assert.ErrorIs(t, err, domain.ErrAuthenticationFailed)
}

func TestAdminOverrideDisabledWhenUnset(t *testing.T) {
	env := newTestEnv(t)
	_, err := env.auth.AdminLogin(context.Background(), "", "", "")
	assert.ErrorIs(t, err, domain.ErrAuthenticationFailed)
}

func TestConcurrentCreateIdentitySameUsername(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	const workers = 8
	var wg sync.WaitGroup
	errs := make([]error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = env.identities.CreateIdentity(ctx, NewIdentity{
				Username: "racer",
				Email:    "racer" + string(rune('a'+i)) + "@example.com",
				Password: "secret123",
				Role:     domain.RolePetOwner,
				Profile:  domain.PetOwnerProfile{},
			})
		}(i)
	}
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		if err == nil {
			succeeded++
			continue
		}
		assert.ErrorIs(t, err, domain.ErrDuplicateUsername)
	}
	assert.Equal(t, 1, succeeded)
}

func TestVeterinarianRegistrationLifecycle(t *testing.T) {
	env := newTestEnv(t)
	seen := env.record(events.EventRegistrationSubmitted, events.EventRegistrationApproved)
	ctx := context.Background()
	reviewer := adminPrincipal("admin-1")

	res, err := env.registrations.Submit(ctx, vetInput("drvet", "drvet@example.com", "VET-001"))
	require.NoError(t, err)
	assert.Nil(t, res.Identity)
	assert.Equal(t, domain.RegistrationPending, res.Application.Status)

	// Pending applicants cannot log in yet.
	_, err = env.auth.Login(ctx, "drvet", "secret123")
	assert.ErrorIs(t, err, domain.ErrAuthenticationFailed)

	// The license is reserved while the application is open.
	_, err = env.registrations.Submit(ctx, vetInput("othervet", "othervet@example.com", "VET-001"))
	assert.ErrorIs(t, err, domain.ErrDuplicateLicenseOrRegistration)

	_, err = env.registrations.MarkUnderReview(ctx, res.Application.ID, reviewer, "checking license")
	require.NoError(t, err)

	app, identity, err := env.registrations.Approve(ctx, res.Application.ID, reviewer, "documents ok")
	require.NoError(t, err)
	assert.Equal(t, domain.RegistrationApproved, app.Status)
	require.NotNil(t, app.IdentityID)
	assert.Equal(t, identity.ID, *app.IdentityID)
	assert.True(t, identity.Verified)
	assert.Equal(t, domain.RoleVeterinarian, identity.Role)
	require.NotNil(t, app.ReviewedBy)
	assert.Equal(t, "admin-1", *app.ReviewedBy)

	login, err := env.auth.Login(ctx, "drvet", "secret123")
	require.NoError(t, err)
	assert.Equal(t, identity.ID, login.Identity.ID)

	_, _, err = env.registrations.Approve(ctx, res.Application.ID, reviewer, "again")
	assert.ErrorIs(t, err, domain.ErrInvalidState)
	_, err = env.registrations.Reject(ctx, res.Application.ID, reviewer, "too late")
	assert.ErrorIs(t, err, domain.ErrInvalidState)

	require.Len(t, *seen, 2)
	assert.Equal(t, events.EventRegistrationSubmitted, (*seen)[0].Type)
	assert.Equal(t, events.EventRegistrationApproved, (*seen)[1].Type)
}

func TestRejectTwiceIsInvalidState(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	reviewer := adminPrincipal("admin-1")

	res, err := env.registrations.Submit(ctx, vetInput("drvet", "drvet@example.com", "VET-001"))
	require.NoError(t, err)

	_, err = env.registrations.Reject(ctx, res.Application.ID, reviewer, "   ")
	assert.ErrorIs(t, err, domain.ErrValidation)

	app, err := env.registrations.Reject(ctx, res.Application.ID, reviewer, "license not legible")
	require.NoError(t, err)
	assert.Equal(t, domain.RegistrationRejected, app.Status)
	assert.Equal(t, "license not legible", app.ReviewerNotes)
	assert.Nil(t, app.IdentityID)

	_, err = env.registrations.Reject(ctx, res.Application.ID, reviewer, "again")
	assert.ErrorIs(t, err, domain.ErrInvalidState)
	_, _, err = env.registrations.Approve(ctx, res.Application.ID, reviewer, "")
	assert.ErrorIs(t, err, domain.ErrInvalidState)

	_, _, err = env.registrations.Approve(ctx, "00000000-0000-0000-0000-00000000dead", reviewer, "")
	assert.ErrorIs(t, err, domain.ErrApplicationNotFound)
}

func TestConcurrentApproveRejectIsExactlyOnce(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	reviewer := adminPrincipal("admin-1")

	res, err := env.registrations.Submit(ctx, vetInput("drvet", "drvet@example.com", "VET-001"))
	require.NoError(t, err)

	const workers = 40
	var (
		wg       sync.WaitGroup
		start    = make(chan struct{})
		errs     = make([]error, workers)
		approved = make([]bool, workers)
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			<-start
			if i%2 == 0 {
				_, _, errs[i] = env.registrations.Approve(ctx, res.Application.ID, reviewer, "ok")
				approved[i] = true
				return
			}
			_, errs[i] = env.registrations.Reject(ctx, res.Application.ID, reviewer, "no")
		}(i)
	}
	close(start)
	wg.Wait()

	winner := -1
	for i, err := range errs {
		if err == nil {
			require.Equal(t, -1, winner, "more than one decision succeeded")
			winner = i
			continue
		}
		assert.ErrorIs(t, err, domain.ErrInvalidState)
	}
	require.NotEqual(t, -1, winner)

	identities, total, err := env.store.Identities().List(ctx, repository.IdentityFilter{Search: "drvet"})
	require.NoError(t, err)
	app, err := env.registrations.Get(ctx, res.Application.ID)
	require.NoError(t, err)
	if approved[winner] {
		assert.Equal(t, 1, total)
		require.Len(t, identities, 1)
		assert.Equal(t, domain.RegistrationApproved, app.Status)
		require.NotNil(t, app.IdentityID)
		assert.Equal(t, identities[0].ID, *app.IdentityID)
	} else {
		assert.Zero(t, total)
		assert.Equal(t, domain.RegistrationRejected, app.Status)
	}
}

func TestSubmitValidation(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	cases := map[string]RegistrationInput{
		"admin role":       {Role: domain.RoleAdmin, Username: "boss", Email: "boss@example.com", Password: "secret123", Profile: domain.AdminProfile{}},
		"short password":   {Role: domain.RolePetOwner, Username: "pat", Email: "pat@example.com", Password: "123", Profile: domain.PetOwnerProfile{}},
		"bad email":        {Role: domain.RolePetOwner, Username: "pat", Email: "not-an-email", Password: "secret123", Profile: domain.PetOwnerProfile{}},
		"mismatched":       {Role: domain.RoleTrainer, Username: "pat", Email: "pat@example.com", Password: "secret123", Profile: domain.PetOwnerProfile{}},
		"missing license":  vetInput("drvet", "drvet@example.com", ""),
		"facility missing": {Role: domain.RoleClinic, Username: "clinic", Email: "c@example.com", Password: "secret123", Profile: domain.FacilityProfile{BusinessName: "Paws"}},
	}
	for name, in := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := env.registrations.Submit(ctx, in)
			assert.ErrorIs(t, err, domain.ErrValidation)
		})
	}
}

func TestSubmitRejectsIdentityCollision(t *testing.T) {
	env := newTestEnv(t)
	env.createIdentity(t, "alice", domain.RolePetOwner)
	ctx := context.Background()

	_, err := env.registrations.Submit(ctx, RegistrationInput{
		Role: domain.RolePetOwner, Username: "Alice", Email: "new@example.com", Password: "secret123", Profile: domain.PetOwnerProfile{},
	})
	assert.ErrorIs(t, err, domain.ErrDuplicateUsername)

	_, err = env.registrations.Submit(ctx, RegistrationInput{
		Role: domain.RolePetOwner, Username: "newbie", Email: "alice@example.com", Password: "secret123", Profile: domain.PetOwnerProfile{},
	})
	assert.ErrorIs(t, err, domain.ErrDuplicateEmail)
}

func TestPetOwnerAutoApproval(t *testing.T) {
	env := newTestEnv(t, withAutoApprove())
	ctx := context.Background()

	res, err := env.registrations.Submit(ctx, RegistrationInput{
		Role: domain.RolePetOwner, Username: "pat", Email: "pat@example.com", Password: "secret123", Profile: domain.PetOwnerProfile{},
	})
	require.NoError(t, err)
	require.NotNil(t, res.Identity)
	assert.Equal(t, domain.RegistrationApproved, res.Application.Status)
	assert.False(t, res.Identity.Verified)
	require.NotNil(t, res.Application.ReviewedBy)
	assert.Equal(t, SystemReviewerID, *res.Application.ReviewedBy)

	_, err = env.auth.Login(ctx, "pat", "secret123")
	assert.NoError(t, err)

	// Professionals always wait for review.
	vet, err := env.registrations.Submit(ctx, vetInput("drvet", "drvet@example.com", "VET-001"))
	require.NoError(t, err)
	assert.Nil(t, vet.Identity)
	assert.Equal(t, domain.RegistrationPending, vet.Application.Status)
}

type fakeDocumentStore struct {
	stored map[string][]byte
	err    error
}

func (f *fakeDocumentStore) Store(_ context.Context, name, _ string, r io.Reader) (domain.DocumentRef, error) {
	if f.err != nil {
		return "", f.err
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return "", err
	}
	if f.stored == nil {
		f.stored = make(map[string][]byte)
	}
	f.stored[name] = data
	return domain.DocumentRef("fake:" + name), nil
}

func TestSubmitStoresDocuments(t *testing.T) {
	docs := &fakeDocumentStore{}
	env := newTestEnv(t, withDocuments(docs))
	ctx := context.Background()

	in := vetInput("drvet", "drvet@example.com", "VET-001")
	in.Documents = []DocumentUpload{
		{Field: "license_proof", Filename: "license.pdf", ContentType: "application/pdf", Size: 4, Content: bytes.NewReader([]byte("%PDF"))},
		{Field: "profile_photo", Filename: "me.png", ContentType: "image/png", Size: 3, Content: bytes.NewReader([]byte("png"))},
	}
	res, err := env.registrations.Submit(ctx, in)
	require.NoError(t, err)

	profile, ok := res.Application.Profile.(domain.VeterinarianProfile)
	require.True(t, ok)
	assert.Equal(t, domain.DocumentRef("fake:license.pdf"), profile.Documents.LicenseProof)
	assert.Equal(t, domain.DocumentRef("fake:me.png"), profile.Documents.ProfilePhoto)
	assert.Equal(t, []byte("%PDF"), docs.stored["license.pdf"])
}

func TestSubmitDocumentErrors(t *testing.T) {
	ctx := context.Background()
	upload := func(field, contentType string, size int64) DocumentUpload {
		return DocumentUpload{Field: field, Filename: "f", ContentType: contentType, Size: size, Content: bytes.NewReader(nil)}
	}

	t.Run("no store configured", func(t *testing.T) {
		env := newTestEnv(t)
		in := vetInput("drvet", "drvet@example.com", "VET-001")
		in.Documents = []DocumentUpload{upload("license_proof", "application/pdf", 1)}
		_, err := env.registrations.Submit(ctx, in)
		assert.ErrorIs(t, err, domain.ErrDocumentStorageUnavailable)
	})

	cases := map[string]DocumentUpload{
		"too large":     upload("license_proof", "application/pdf", 4096),
		"bad type":      upload("license_proof", "text/html", 1),
		"unknown field": upload("resume", "application/pdf", 1),
	}
	for name, up := range cases {
		t.Run(name, func(t *testing.T) {
			docs := &fakeDocumentStore{}
			env := newTestEnv(t, withDocuments(docs))
			in := vetInput("drvet", "drvet@example.com", "VET-001")
			in.Documents = []DocumentUpload{up}
			_, err := env.registrations.Submit(ctx, in)
			assert.ErrorIs(t, err, domain.ErrValidation)
			assert.Empty(t, docs.stored)
		})
	}

	t.Run("store failure", func(t *testing.T) {
		env := newTestEnv(t, withDocuments(&fakeDocumentStore{err: errors.New("gridfs down")}))
		in := vetInput("drvet", "drvet@example.com", "VET-001")
		in.Documents = []DocumentUpload{upload("license_proof", "application/pdf", 1)}
		_, err := env.registrations.Submit(ctx, in)
		assert.EqualError(t, err, "gridfs down")

		list, total, err := env.registrations.List(ctx, repository.RegistrationFilter{})
		require.NoError(t, err)
		assert.Zero(t, total)
		assert.Empty(t, list)
	})
}

func TestCheckAvailability(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	_, err := env.registrations.Submit(ctx, vetInput("drvet", "drvet@example.com", "VET-001"))
	require.NoError(t, err)

	res, err := env.registrations.CheckAvailability(ctx, "DrVet", "", "VET-001")
	require.NoError(t, err)
	require.NotNil(t, res.UsernameAvailable)
	assert.False(t, *res.UsernameAvailable)
	assert.Nil(t, res.EmailAvailable)
	require.NotNil(t, res.LicenseAvailable)
	assert.False(t, *res.LicenseAvailable)

	res, err = env.registrations.CheckAvailability(ctx, "", "fresh@example.com", "")
	require.NoError(t, err)
	require.NotNil(t, res.EmailAvailable)
	assert.True(t, *res.EmailAvailable)

	_, err = env.registrations.CheckAvailability(ctx, "", "", "")
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestAdminCannotTargetSelf(t *testing.T) {
	env := newTestEnv(t)
	root := env.createIdentity(t, "root", domain.RoleAdmin)
	alice := env.createIdentity(t, "alice", domain.RolePetOwner)
	ctx := context.Background()
	self := adminPrincipal(root.ID)

	_, err := env.admin.SetStatus(ctx, self, []string{alice.ID, root.ID}, domain.AccountStatusInactive)
	assert.ErrorIs(t, err, domain.ErrValidation)
	assert.ErrorIs(t, env.admin.DeleteIdentity(ctx, self, root.ID), domain.ErrValidation)

	// Nothing changed because the batch was refused as a whole.
	got, err := env.admin.GetIdentity(ctx, alice.ID)
	require.NoError(t, err)
	assert.True(t, got.Active)
}

func TestAdminBulkStatusIsAllOrNothing(t *testing.T) {
	env := newTestEnv(t)
	alice := env.createIdentity(t, "alice", domain.RolePetOwner)
	bob := env.createIdentity(t, "bob", domain.RolePetOwner)
	ctx := context.Background()
	admin := adminPrincipal("admin-1")

	_, err := env.admin.SetStatus(ctx, admin, []string{alice.ID, "00000000-0000-0000-0000-000000000000"}, domain.AccountStatusInactive)
	assert.ErrorIs(t, err, domain.ErrIdentityNotFound)

	n, err := env.admin.SetStatus(ctx, admin, []string{alice.ID, bob.ID}, domain.AccountStatusInactive)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	list, total, err := env.admin.ListIdentities(ctx, IdentityQuery{Status: "inactive"})
	require.NoError(t, err)
	assert.Equal(t, 2, total)
	assert.Len(t, list, 2)

	_, _, err = env.admin.ListIdentities(ctx, IdentityQuery{Status: "sleepy"})
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestAdminVerifyDeleteAndStats(t *testing.T) {
	env := newTestEnv(t)
	seen := env.record(events.EventIdentityStatusChanged, events.EventIdentityDeleted)
	alice := env.createIdentity(t, "alice", domain.RolePetOwner)
	env.createIdentity(t, "drvet", domain.RoleVeterinarian)
	ctx := context.Background()
	admin := adminPrincipal("admin-1")

	_, err := env.registrations.Submit(ctx, vetInput("pending", "pending@example.com", "VET-009"))
	require.NoError(t, err)

	updated, err := env.admin.SetVerified(ctx, admin, alice.ID, true)
	require.NoError(t, err)
	assert.True(t, updated.Verified)

	stats, err := env.admin.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, stats.TotalIdentities)
	assert.Equal(t, 2, stats.RecentRegistrations)
	assert.Equal(t, 1, stats.VerifiedIdentities)
	assert.Equal(t, 1, stats.IdentitiesByRole[domain.RoleVeterinarian])
	assert.Equal(t, 1, stats.ApplicationsByState[domain.RegistrationPending])

	require.NoError(t, env.admin.DeleteIdentity(ctx, admin, alice.ID))
	_, err = env.admin.GetIdentity(ctx, alice.ID)
	assert.ErrorIs(t, err, domain.ErrIdentityNotFound)

	require.Len(t, *seen, 2)
	assert.Equal(t, events.EventIdentityDeleted, (*seen)[1].Type)
	assert.Equal(t, alice.ID, (*seen)[1].SubjectID)
}

func TestChangePassword(t *testing.T) {
	env := newTestEnv(t)
	alice := env.createIdentity(t, "alice", domain.RolePetOwner)
	ctx := context.Background()

	assert.ErrorIs(t, env.identities.ChangePassword(ctx, alice.ID, "wrong", "newsecret"), domain.ErrAuthenticationFailed)
	assert.ErrorIs(t, env.identities.ChangePassword(ctx, alice.ID, "secret123", "123"), domain.ErrValidation)
	require.NoError(t, env.identities.ChangePassword(ctx, alice.ID, "secret123", "newsecret"))

	_, err := env.auth.Login(ctx, "alice", "secret123")
	assert.ErrorIs(t, err, domain.ErrAuthenticationFailed)
	_, err = env.auth.Login(ctx, "alice", "newsecret")
	assert.NoError(t, err)
}

func TestUpdateContactKeepsAccountFields(t *testing.T) {
	env := newTestEnv(t)
	alice := env.createIdentity(t, "alice", domain.RolePetOwner)

	updated, err := env.identities.UpdateContact(context.Background(), alice.ID, domain.Contact{FirstName: "Alice", City: "Pune"})
	require.NoError(t, err)
	assert.Equal(t, "Alice", updated.Contact.FirstName)
	assert.Equal(t, "alice", updated.Username)
	assert.Equal(t, domain.RolePetOwner, updated.Role)
}
