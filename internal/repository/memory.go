package repository

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/spec-kit/petcare-identity/internal/domain"
)

// MemoryStore implements IdentityRepository and RegistrationRepository in
// process. One mutex serialises every read and write, which gives the same
// check-then-insert atomicity the Postgres unique indexes provide. It backs
// development runs without POSTGRES_DSN and the service tests.
type MemoryStore struct {
	mu           sync.Mutex
	identities   map[string]*domain.Identity
	applications map[string]*domain.RegistrationApplication
	now          func() time.Time
}

// NewMemoryStore builds an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		identities:   make(map[string]*domain.Identity),
		applications: make(map[string]*domain.RegistrationApplication),
		now:          func() time.Time { return time.Now().UTC() },
	}
}

// Identities exposes the store as an IdentityRepository.
func (s *MemoryStore) Identities() IdentityRepository { return memoryIdentities{s} }

// Registrations exposes the store as a RegistrationRepository.
func (s *MemoryStore) Registrations() RegistrationRepository { return memoryRegistrations{s} }

type memoryIdentities struct{ s *MemoryStore }

type memoryRegistrations struct{ s *MemoryStore }

func cloneIdentity(i *domain.Identity) *domain.Identity {
	c := *i
	return &c
}

func cloneApplication(a *domain.RegistrationApplication) *domain.RegistrationApplication {
	c := *a
	if a.ReviewedBy != nil {
		v := *a.ReviewedBy
		c.ReviewedBy = &v
	}
	if a.ReviewedAt != nil {
		v := *a.ReviewedAt
		c.ReviewedAt = &v
	}
	if a.IdentityID != nil {
		v := *a.IdentityID
		c.IdentityID = &v
	}
	return &c
}

// identityConflict must be called with mu held.
func (s *MemoryStore) identityConflict(username, email string, keys domain.UniqueKeys) Availability {
	var a Availability
	for _, existing := range s.identities {
		if existing.Username == username {
			a.UsernameTaken = true
		}
		if existing.Email == email {
			a.EmailTaken = true
		}
		if existing.Profile != nil && keys.Overlaps(existing.Profile.UniqueKeys()) {
			a.LicenseTaken = true
		}
	}
	return a
}

// applicationConflict must be called with mu held.
func (s *MemoryStore) applicationConflict(username, email string, keys domain.UniqueKeys, skipID string) Availability {
	var a Availability
	for _, app := range s.applications {
		if app.ID == skipID || app.Status.Terminal() {
			continue
		}
		if app.Username == username {
			a.UsernameTaken = true
		}
		if app.Email == email {
			a.EmailTaken = true
		}
		if keys.Overlaps(app.UniqueKeys()) {
			a.LicenseTaken = true
		}
	}
	return a
}

func merge(a, b Availability) Availability {
	return Availability{
		UsernameTaken: a.UsernameTaken || b.UsernameTaken,
		EmailTaken:    a.EmailTaken || b.EmailTaken,
		LicenseTaken:  a.LicenseTaken || b.LicenseTaken,
	}
}

// insertIdentity must be called with mu held.
func (s *MemoryStore) insertIdentity(identity *domain.Identity) error {
	if identity.Profile == nil || !identity.Profile.Matches(identity.Role) {
		return domain.ErrValidation
	}
	if err := s.identityConflict(identity.Username, identity.Email, identity.Profile.UniqueKeys()).Err(); err != nil {
		return err
	}
	now := s.now()
	identity.ID = uuid.NewString()
	identity.CreatedAt = now
	identity.UpdatedAt = now
	s.identities[identity.ID] = cloneIdentity(identity)
	return nil
}

func (m memoryIdentities) Create(_ context.Context, identity *domain.Identity) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	return m.s.insertIdentity(identity)
}

func (m memoryIdentities) GetByID(_ context.Context, id string) (*domain.Identity, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	identity, ok := m.s.identities[strings.ToLower(id)]
	if !ok {
		return nil, domain.ErrIdentityNotFound
	}
	return cloneIdentity(identity), nil
}

func (m memoryIdentities) GetByLogin(_ context.Context, login string) (*domain.Identity, error) {
	login = domain.NormalizeLogin(login)
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	if login == "" {
		return nil, domain.ErrIdentityNotFound
	}
	var byUsername *domain.Identity
	for _, identity := range m.s.identities {
		if identity.Email == login {
			return cloneIdentity(identity), nil
		}
		if identity.Username == login {
			byUsername = identity
		}
	}
	if byUsername == nil {
		return nil, domain.ErrIdentityNotFound
	}
	return cloneIdentity(byUsername), nil
}

func (m memoryIdentities) List(_ context.Context, filter IdentityFilter) ([]*domain.Identity, int, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()

	term := strings.ToLower(strings.TrimSpace(filter.Search))
	var matched []*domain.Identity
	for _, identity := range m.s.identities {
		if filter.Role != "" && identity.Role != filter.Role {
			continue
		}
		if len(filter.Roles) > 0 && !(&domain.Principal{Role: identity.Role}).HasRole(filter.Roles...) {
			continue
		}
		if filter.Active != nil && identity.Active != *filter.Active {
			continue
		}
		if filter.Verified != nil && identity.Verified != *filter.Verified {
			continue
		}
		if term != "" && !containsAny(term, identity.Username, identity.Email, identity.Contact.FirstName, identity.Contact.LastName) {
			continue
		}
		matched = append(matched, cloneIdentity(identity))
	}
	sort.Slice(matched, func(i, j int) bool {
		if !matched[i].CreatedAt.Equal(matched[j].CreatedAt) {
			return matched[i].CreatedAt.After(matched[j].CreatedAt)
		}
		return matched[i].ID < matched[j].ID
	})
	return page(matched, filter.Limit, filter.Offset), len(matched), nil
}

func containsAny(term string, fields ...string) bool {
	for _, f := range fields {
		if strings.Contains(strings.ToLower(f), term) {
			return true
		}
	}
	return false
}

func page[T any](items []T, limit, offset int) []T {
	limit, offset = NormalizePage(limit, offset)
	if offset >= len(items) {
		return nil
	}
	end := offset + limit
	if end > len(items) {
		end = len(items)
	}
	return items[offset:end]
}

func (m memoryIdentities) update(id string, fn func(*domain.Identity)) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	identity, ok := m.s.identities[strings.ToLower(id)]
	if !ok {
		return domain.ErrIdentityNotFound
	}
	fn(identity)
	identity.UpdatedAt = m.s.now()
	return nil
}

func (m memoryIdentities) UpdateContact(_ context.Context, id string, contact domain.Contact) error {
	return m.update(id, func(i *domain.Identity) { i.Contact = contact })
}

func (m memoryIdentities) UpdatePassword(_ context.Context, id, passwordHash string) error {
	return m.update(id, func(i *domain.Identity) { i.PasswordHash = passwordHash })
}

func (m memoryIdentities) SetVerified(_ context.Context, id string, verified bool) error {
	return m.update(id, func(i *domain.Identity) { i.Verified = verified })
}

func (m memoryIdentities) SetActive(_ context.Context, ids []string, active bool) (int, error) {
	ids = dedupe(ids)
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	for _, id := range ids {
		if _, ok := m.s.identities[id]; !ok {
			return 0, domain.ErrIdentityNotFound
		}
	}
	now := m.s.now()
	for _, id := range ids {
		m.s.identities[id].Active = active
		m.s.identities[id].UpdatedAt = now
	}
	return len(ids), nil
}

func (m memoryIdentities) Delete(_ context.Context, id string) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	id = strings.ToLower(id)
	if _, ok := m.s.identities[id]; !ok {
		return domain.ErrIdentityNotFound
	}
	delete(m.s.identities, id)
	for _, app := range m.s.applications {
		if app.IdentityID != nil && *app.IdentityID == id {
			app.IdentityID = nil
		}
	}
	return nil
}

func (m memoryIdentities) Stats(_ context.Context, since time.Time) (IdentityStats, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	stats := IdentityStats{ByRole: make(map[domain.Role]int)}
	for _, identity := range m.s.identities {
		stats.Total++
		stats.ByRole[identity.Role]++
		if identity.Active {
			stats.Active++
		}
		if identity.Verified {
			stats.Verified++
		}
		if !identity.CreatedAt.Before(since) {
			stats.RegisteredSince++
		}
	}
	return stats, nil
}

func (m memoryRegistrations) CheckAvailability(_ context.Context, username, email string, keys domain.UniqueKeys) (Availability, error) {
	username, email = domain.NormalizeLogin(username), domain.NormalizeLogin(email)
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	return merge(
		m.s.identityConflict(username, email, keys),
		m.s.applicationConflict(username, email, keys, ""),
	), nil
}

func (m memoryRegistrations) Create(_ context.Context, app *domain.RegistrationApplication) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()

	keys := app.UniqueKeys()
	avail := merge(
		m.s.identityConflict(app.Username, app.Email, keys),
		m.s.applicationConflict(app.Username, app.Email, keys, ""),
	)
	if err := avail.Err(); err != nil {
		return err
	}

	now := m.s.now()
	app.ID = uuid.NewString()
	app.Status = domain.RegistrationPending
	app.CreatedAt = now
	app.UpdatedAt = now
	m.s.applications[app.ID] = cloneApplication(app)
	return nil
}

func (m memoryRegistrations) GetByID(_ context.Context, id string) (*domain.RegistrationApplication, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	app, ok := m.s.applications[strings.ToLower(id)]
	if !ok {
		return nil, domain.ErrApplicationNotFound
	}
	return cloneApplication(app), nil
}

func (m memoryRegistrations) List(_ context.Context, filter RegistrationFilter) ([]*domain.RegistrationApplication, int, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()

	term := strings.ToLower(strings.TrimSpace(filter.Search))
	var matched []*domain.RegistrationApplication
	for _, app := range m.s.applications {
		if filter.Status != "" && app.Status != filter.Status {
			continue
		}
		if filter.Role != "" && app.Role != filter.Role {
			continue
		}
		if term != "" && !containsAny(term, app.Username, app.Email) {
			continue
		}
		matched = append(matched, cloneApplication(app))
	}
	sort.Slice(matched, func(i, j int) bool {
		if !matched[i].CreatedAt.Equal(matched[j].CreatedAt) {
			return matched[i].CreatedAt.After(matched[j].CreatedAt)
		}
		return matched[i].ID < matched[j].ID
	})
	return page(matched, filter.Limit, filter.Offset), len(matched), nil
}

// transition applies fn to the application after checking from -> to, under mu.
func (m memoryRegistrations) transition(id string, to domain.RegistrationStatus, fn func(*domain.RegistrationApplication) error) (*domain.RegistrationApplication, error) {
	app, ok := m.s.applications[strings.ToLower(id)]
	if !ok {
		return nil, domain.ErrApplicationNotFound
	}
	if err := domain.CheckTransition(app.Status, to); err != nil {
		return nil, err
	}
	if err := fn(app); err != nil {
		return nil, err
	}
	app.Status = to
	app.UpdatedAt = m.s.now()
	return cloneApplication(app), nil
}

func (m memoryRegistrations) MarkUnderReview(_ context.Context, id string, decision domain.ReviewDecision) (*domain.RegistrationApplication, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	return m.transition(id, domain.RegistrationUnderReview, func(app *domain.RegistrationApplication) error {
		if decision.Notes != "" {
			app.ReviewerNotes = decision.Notes
		}
		app.ReviewedBy = nullIfEmpty(decision.ReviewerID)
		return nil
	})
}

func (m memoryRegistrations) Reject(_ context.Context, id string, decision domain.ReviewDecision) (*domain.RegistrationApplication, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	return m.transition(id, domain.RegistrationRejected, func(app *domain.RegistrationApplication) error {
		at := decision.At
		app.ReviewerNotes = decision.Notes
		app.ReviewedBy = nullIfEmpty(decision.ReviewerID)
		app.ReviewedAt = &at
		return nil
	})
}

func (m memoryRegistrations) Approve(_ context.Context, id string, decision domain.ReviewDecision) (*domain.RegistrationApplication, *domain.Identity, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()

	var identity *domain.Identity
	app, err := m.transition(id, domain.RegistrationApproved, func(app *domain.RegistrationApplication) error {
		identity = app.PromoteToIdentity()
		if err := m.s.insertIdentity(identity); err != nil {
			return err
		}
		at := decision.At
		if decision.Notes != "" {
			app.ReviewerNotes = decision.Notes
		}
		app.ReviewedBy = nullIfEmpty(decision.ReviewerID)
		app.ReviewedAt = &at
		linked := identity.ID
		app.IdentityID = &linked
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	return app, identity, nil
}

func (m memoryRegistrations) CountByStatus(_ context.Context) (map[domain.RegistrationStatus]int, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	out := make(map[domain.RegistrationStatus]int)
	for _, app := range m.s.applications {
		out[app.Status]++
	}
	return out, nil
}
