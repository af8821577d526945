package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/petcare-identity/internal/domain"
)

// IdentityFilter narrows identity listings. Zero values do not filter.
type IdentityFilter struct {
	Role     domain.Role
	Roles    []domain.Role
	Active   *bool
	Verified *bool
	Search   string
	Limit    int
	Offset   int
}

// IdentityStats summarises the identity table for the admin dashboard.
type IdentityStats struct {
	Total           int
	Active          int
	Verified        int
	RegisteredSince int
	ByRole          map[domain.Role]int
}

// IdentityRepository defines persistence access for identities and their profiles.
type IdentityRepository interface {
	// Create stores the identity and its profile atomically. Unique collisions
	// surface as domain.ErrDuplicate* errors.
	Create(ctx context.Context, identity *domain.Identity) error
	GetByID(ctx context.Context, id string) (*domain.Identity, error)
	// GetByLogin matches a normalised email first, then username.
	GetByLogin(ctx context.Context, login string) (*domain.Identity, error)
	List(ctx context.Context, filter IdentityFilter) ([]*domain.Identity, int, error)
	UpdateContact(ctx context.Context, id string, contact domain.Contact) error
	UpdatePassword(ctx context.Context, id, passwordHash string) error
	// SetActive updates every id or none; unknown ids yield domain.ErrIdentityNotFound.
	SetActive(ctx context.Context, ids []string, active bool) (int, error)
	SetVerified(ctx context.Context, id string, verified bool) error
	Delete(ctx context.Context, id string) error
	Stats(ctx context.Context, since time.Time) (IdentityStats, error)
}

// querier is satisfied by both *pgxpool.Pool and pgx.Tx.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type identityRepository struct {
	pool *pgxpool.Pool
}

// NewIdentityRepository returns a Postgres-backed implementation.
func NewIdentityRepository(pool *pgxpool.Pool) IdentityRepository {
	return &identityRepository{pool: pool}
}

const identityColumns = `
        i.id, i.username, i.email, i.password_hash, i.role, i.active, i.verified,
        i.first_name, i.last_name, i.phone, i.address, i.city, i.state, i.country, i.postal_code,
        i.created_at, i.updated_at,
        COALESCE(v.attributes, t.attributes, f.attributes, p.attributes, a.attributes)`

const identityFrom = `
        FROM identities i
        LEFT JOIN veterinarian_profiles v ON v.identity_id = i.id
        LEFT JOIN trainer_profiles t ON t.identity_id = i.id
        LEFT JOIN facility_profiles f ON f.identity_id = i.id
        LEFT JOIN pet_owner_profiles p ON p.identity_id = i.id
        LEFT JOIN admin_profiles a ON a.identity_id = i.id`

func scanIdentity(row pgx.Row, extra ...any) (*domain.Identity, error) {
	var (
		identity domain.Identity
		attrs    []byte
	)
	dest := []any{
		&identity.ID,
		&identity.Username,
		&identity.Email,
		&identity.PasswordHash,
		&identity.Role,
		&identity.Active,
		&identity.Verified,
		&identity.Contact.FirstName,
		&identity.Contact.LastName,
		&identity.Contact.Phone,
		&identity.Contact.Address,
		&identity.Contact.City,
		&identity.Contact.State,
		&identity.Contact.Country,
		&identity.Contact.PostalCode,
		&identity.CreatedAt,
		&identity.UpdatedAt,
		&attrs,
	}
	if err := row.Scan(append(dest, extra...)...); err != nil {
		return nil, err
	}
	profile, err := domain.DecodeProfile(identity.Role, attrs)
	if err != nil {
		return nil, fmt.Errorf("decode %s profile for %s: %w", identity.Role, identity.ID, err)
	}
	identity.Profile = profile
	return &identity, nil
}

func validID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}

func (r *identityRepository) Create(ctx context.Context, identity *domain.Identity) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	if err := insertIdentity(ctx, tx, identity); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// insertIdentity writes the identity row and its single profile row on q.
func insertIdentity(ctx context.Context, q querier, identity *domain.Identity) error {
	if identity.Profile == nil || !identity.Profile.Matches(identity.Role) {
		return fmt.Errorf("%w: profile does not match role %s", domain.ErrValidation, identity.Role)
	}

	const query = `
        INSERT INTO identities (
            username, email, password_hash, role, active, verified,
            first_name, last_name, phone, address, city, state, country, postal_code
        )
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
        RETURNING id, created_at, updated_at`

	c := identity.Contact
	if err := q.QueryRow(ctx, query,
		identity.Username,
		identity.Email,
		identity.PasswordHash,
		identity.Role,
		identity.Active,
		identity.Verified,
		c.FirstName, c.LastName, c.Phone, c.Address, c.City, c.State, c.Country, c.PostalCode,
	).Scan(&identity.ID, &identity.CreatedAt, &identity.UpdatedAt); err != nil {
		if dup := translateUniqueViolation(err); dup != err {
			return dup
		}
		return fmt.Errorf("insert identity: %w", err)
	}

	if err := insertProfile(ctx, q, identity.ID, identity.Profile); err != nil {
		if dup := translateUniqueViolation(err); dup != err {
			return dup
		}
		return fmt.Errorf("insert profile: %w", err)
	}
	return nil
}

func insertProfile(ctx context.Context, q querier, identityID string, profile domain.RoleProfile) error {
	attrs, err := json.Marshal(profile)
	if err != nil {
		return err
	}

	switch p := profile.(type) {
	case domain.VeterinarianProfile:
		_, err = q.Exec(ctx,
			`INSERT INTO veterinarian_profiles (identity_id, license_number, attributes) VALUES ($1, $2, $3)`,
			identityID, p.LicenseNumber, attrs)
	case domain.FacilityProfile:
		_, err = q.Exec(ctx, `
            INSERT INTO facility_profiles (identity_id, facility_license_number, govt_registration_number, tax_id, attributes)
            VALUES ($1, $2, $3, $4, $5)`,
			identityID, p.FacilityLicenseNumber, p.GovtRegistrationNumber, p.TaxID, attrs)
	case domain.TrainerProfile:
		_, err = q.Exec(ctx, `INSERT INTO trainer_profiles (identity_id, attributes) VALUES ($1, $2)`, identityID, attrs)
	case domain.PetOwnerProfile:
		_, err = q.Exec(ctx, `INSERT INTO pet_owner_profiles (identity_id, attributes) VALUES ($1, $2)`, identityID, attrs)
	case domain.AdminProfile:
		_, err = q.Exec(ctx, `INSERT INTO admin_profiles (identity_id, attributes) VALUES ($1, $2)`, identityID, attrs)
	default:
		return fmt.Errorf("%w: unsupported profile %T", domain.ErrValidation, profile)
	}
	return err
}

func (r *identityRepository) GetByID(ctx context.Context, id string) (*domain.Identity, error) {
	if !validID(id) {
		return nil, domain.ErrIdentityNotFound
	}
	query := `SELECT` + identityColumns + identityFrom + ` WHERE i.id = $1`

	identity, err := scanIdentity(r.pool.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrIdentityNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get identity: %w", err)
	}
	return identity, nil
}

func (r *identityRepository) GetByLogin(ctx context.Context, login string) (*domain.Identity, error) {
	login = domain.NormalizeLogin(login)
	if login == "" {
		return nil, domain.ErrIdentityNotFound
	}
	query := `SELECT` + identityColumns + identityFrom + `
        WHERE i.email = $1 OR i.username = $1
        ORDER BY (i.email = $1) DESC
        LIMIT 1`

	identity, err := scanIdentity(r.pool.QueryRow(ctx, query, login))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrIdentityNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get identity by login: %w", err)
	}
	return identity, nil
}

func (r *identityRepository) List(ctx context.Context, filter IdentityFilter) ([]*domain.Identity, int, error) {
	var (
		where []string
		args  []any
	)
	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if filter.Role != "" {
		where = append(where, "i.role = "+arg(filter.Role))
	}
	if len(filter.Roles) > 0 {
		roles := make([]string, 0, len(filter.Roles))
		for _, role := range filter.Roles {
			roles = append(roles, string(role))
		}
		where = append(where, "i.role = ANY("+arg(roles)+")")
	}
	if filter.Active != nil {
		where = append(where, "i.active = "+arg(*filter.Active))
	}
	if filter.Verified != nil {
		where = append(where, "i.verified = "+arg(*filter.Verified))
	}
	if term := strings.TrimSpace(filter.Search); term != "" {
		p := arg("%" + term + "%")
		where = append(where, fmt.Sprintf(
			"(i.username ILIKE %[1]s OR i.email ILIKE %[1]s OR i.first_name ILIKE %[1]s OR i.last_name ILIKE %[1]s)", p))
	}

	query := `SELECT` + identityColumns + `, COUNT(*) OVER()` + identityFrom
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	limit, offset := NormalizePage(filter.Limit, filter.Offset)
	query += " ORDER BY i.created_at DESC, i.id LIMIT " + arg(limit) + " OFFSET " + arg(offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list identities: %w", err)
	}
	defer rows.Close()

	var (
		out   []*domain.Identity
		total int
	)
	for rows.Next() {
		identity, err := scanIdentity(rows, &total)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, identity)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("list identities: %w", err)
	}
	if len(out) == 0 && offset > 0 {
		if err := r.pool.QueryRow(ctx, countQuery(query), args[:len(args)-2]...).Scan(&total); err != nil {
			return nil, 0, fmt.Errorf("count identities: %w", err)
		}
	}
	return out, total, nil
}

// countQuery rewrites a paged listing into a bare count for pages past the end.
func countQuery(listQuery string) string {
	from := strings.Index(listQuery, "FROM identities")
	order := strings.Index(listQuery, " ORDER BY")
	return "SELECT COUNT(*) " + listQuery[from:order]
}

func (r *identityRepository) UpdateContact(ctx context.Context, id string, contact domain.Contact) error {
	if !validID(id) {
		return domain.ErrIdentityNotFound
	}
	const query = `
        UPDATE identities
        SET first_name=$1, last_name=$2, phone=$3, address=$4, city=$5, state=$6,
            country=$7, postal_code=$8, updated_at=NOW()
        WHERE id=$9`

	cmd, err := r.pool.Exec(ctx, query,
		contact.FirstName,
		contact.LastName,
		contact.Phone,
		contact.Address,
		contact.City,
		contact.State,
		contact.Country,
		contact.PostalCode,
		id,
	)
	if err != nil {
		return fmt.Errorf("update contact: %w", err)
	}
	if cmd.RowsAffected() == 0 {
		return domain.ErrIdentityNotFound
	}
	return nil
}

func (r *identityRepository) UpdatePassword(ctx context.Context, id, passwordHash string) error {
	if !validID(id) {
		return domain.ErrIdentityNotFound
	}
	cmd, err := r.pool.Exec(ctx,
		`UPDATE identities SET password_hash=$1, updated_at=NOW() WHERE id=$2`, passwordHash, id)
	if err != nil {
		return fmt.Errorf("update password: %w", err)
	}
	if cmd.RowsAffected() == 0 {
		return domain.ErrIdentityNotFound
	}
	return nil
}

func (r *identityRepository) SetActive(ctx context.Context, ids []string, active bool) (int, error) {
	ids = dedupe(ids)
	if len(ids) == 0 {
		return 0, nil
	}
	for _, id := range ids {
		if !validID(id) {
			return 0, domain.ErrIdentityNotFound
		}
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	cmd, err := tx.Exec(ctx,
		`UPDATE identities SET active=$1, updated_at=NOW() WHERE id = ANY($2::uuid[])`, active, ids)
	if err != nil {
		return 0, fmt.Errorf("set active: %w", err)
	}
	if int(cmd.RowsAffected()) != len(ids) {
		return 0, domain.ErrIdentityNotFound
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return len(ids), nil
}

func (r *identityRepository) SetVerified(ctx context.Context, id string, verified bool) error {
	if !validID(id) {
		return domain.ErrIdentityNotFound
	}
	cmd, err := r.pool.Exec(ctx,
		`UPDATE identities SET verified=$1, updated_at=NOW() WHERE id=$2`, verified, id)
	if err != nil {
		return fmt.Errorf("set verified: %w", err)
	}
	if cmd.RowsAffected() == 0 {
		return domain.ErrIdentityNotFound
	}
	return nil
}

func (r *identityRepository) Delete(ctx context.Context, id string) error {
	if !validID(id) {
		return domain.ErrIdentityNotFound
	}
	cmd, err := r.pool.Exec(ctx, `DELETE FROM identities WHERE id=$1`, id)
	if err != nil {
		return fmt.Errorf("delete identity: %w", err)
	}
	if cmd.RowsAffected() == 0 {
		return domain.ErrIdentityNotFound
	}
	return nil
}

func (r *identityRepository) Stats(ctx context.Context, since time.Time) (IdentityStats, error) {
	stats := IdentityStats{ByRole: make(map[domain.Role]int)}

	const totals = `
        SELECT COUNT(*),
               COUNT(*) FILTER (WHERE active),
               COUNT(*) FILTER (WHERE verified),
               COUNT(*) FILTER (WHERE created_at >= $1)
        FROM identities`
	if err := r.pool.QueryRow(ctx, totals, since).Scan(
		&stats.Total,
		&stats.Active,
		&stats.Verified,
		&stats.RegisteredSince,
	); err != nil {
		return stats, fmt.Errorf("identity totals: %w", err)
	}

	rows, err := r.pool.Query(ctx, `SELECT role, COUNT(*) FROM identities GROUP BY role`)
	if err != nil {
		return stats, fmt.Errorf("identity role counts: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var (
			role  domain.Role
			count int
		)
		if err := rows.Scan(&role, &count); err != nil {
			return stats, err
		}
		stats.ByRole[role] = count
	}
	return stats, rows.Err()
}

// Page bounds applied to every list query.
const (
	DefaultPageSize = 20
	MaxPageSize     = 100
)

// NormalizePage clamps paging input to the bounds list queries run with.
func NormalizePage(limit, offset int) (int, int) {
	if limit <= 0 {
		limit = DefaultPageSize
	}
	if limit > MaxPageSize {
		limit = MaxPageSize
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}

func dedupe(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		id = strings.ToLower(strings.TrimSpace(id))
		if _, ok := seen[id]; ok || id == "" {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
