package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/petcare-identity/internal/domain"
)

// RegistrationFilter narrows application listings. Zero values do not filter.
type RegistrationFilter struct {
	Status domain.RegistrationStatus
	Role   domain.Role
	Search string
	Limit  int
	Offset int
}

// Availability reports which unique keys are already held by a live identity
// or by an in-flight application.
type Availability struct {
	UsernameTaken bool
	EmailTaken    bool
	LicenseTaken  bool
}

// Err returns the first conflict as a Duplicate* error, or nil.
func (a Availability) Err() error {
	switch {
	case a.UsernameTaken:
		return domain.ErrDuplicateUsername
	case a.EmailTaken:
		return domain.ErrDuplicateEmail
	case a.LicenseTaken:
		return domain.ErrDuplicateLicenseOrRegistration
	}
	return nil
}

// RegistrationRepository persists registration applications and drives their
// transitions. Every transition checks the current state and writes the new
// one atomically.
type RegistrationRepository interface {
	// Create stores a PENDING application after checking uniqueness against
	// identities and other non-terminal applications.
	Create(ctx context.Context, app *domain.RegistrationApplication) error
	GetByID(ctx context.Context, id string) (*domain.RegistrationApplication, error)
	List(ctx context.Context, filter RegistrationFilter) ([]*domain.RegistrationApplication, int, error)
	CheckAvailability(ctx context.Context, username, email string, keys domain.UniqueKeys) (Availability, error)
	MarkUnderReview(ctx context.Context, id string, decision domain.ReviewDecision) (*domain.RegistrationApplication, error)
	// Approve promotes the application into an identity and links it, all or nothing.
	Approve(ctx context.Context, id string, decision domain.ReviewDecision) (*domain.RegistrationApplication, *domain.Identity, error)
	Reject(ctx context.Context, id string, decision domain.ReviewDecision) (*domain.RegistrationApplication, error)
	CountByStatus(ctx context.Context) (map[domain.RegistrationStatus]int, error)
}

type registrationRepository struct {
	pool *pgxpool.Pool
}

// NewRegistrationRepository returns a Postgres-backed implementation.
func NewRegistrationRepository(pool *pgxpool.Pool) RegistrationRepository {
	return &registrationRepository{pool: pool}
}

// openStatuses is the SQL list of statuses that still hold unique keys.
var openStatuses = statusList(domain.NonTerminalStatuses)

func statusList(statuses []domain.RegistrationStatus) string {
	quoted := make([]string, 0, len(statuses))
	for _, st := range statuses {
		quoted = append(quoted, "'"+string(st)+"'")
	}
	return "(" + strings.Join(quoted, ", ") + ")"
}

const applicationColumns = `
        id, role, username, email, password_hash, contact, profile, status,
        reviewer_notes, reviewed_by, reviewed_at, identity_id, created_at, updated_at`

func scanApplication(row pgx.Row, extra ...any) (*domain.RegistrationApplication, error) {
	var (
		app     domain.RegistrationApplication
		contact []byte
		profile []byte
	)
	dest := []any{
		&app.ID,
		&app.Role,
		&app.Username,
		&app.Email,
		&app.PasswordHash,
		&contact,
		&profile,
		&app.Status,
		&app.ReviewerNotes,
		&app.ReviewedBy,
		&app.ReviewedAt,
		&app.IdentityID,
		&app.CreatedAt,
		&app.UpdatedAt,
	}
	if err := row.Scan(append(dest, extra...)...); err != nil {
		return nil, err
	}
	if len(contact) > 0 {
		if err := json.Unmarshal(contact, &app.Contact); err != nil {
			return nil, fmt.Errorf("decode contact for application %s: %w", app.ID, err)
		}
	}
	decoded, err := domain.DecodeProfile(app.Role, profile)
	if err != nil {
		return nil, fmt.Errorf("decode profile for application %s: %w", app.ID, err)
	}
	app.Profile = decoded
	return &app, nil
}

func nullIfEmpty(v string) *string {
	if v == "" {
		return nil
	}
	return &v
}

func checkAvailability(ctx context.Context, q querier, username, email string, keys domain.UniqueKeys) (Availability, error) {
	query := `
        SELECT
            EXISTS (SELECT 1 FROM identities WHERE username = $1)
                OR EXISTS (SELECT 1 FROM registration_applications WHERE username = $1 AND status IN ` + openStatuses + `),
            EXISTS (SELECT 1 FROM identities WHERE email = $2)
                OR EXISTS (SELECT 1 FROM registration_applications WHERE email = $2 AND status IN ` + openStatuses + `),
            EXISTS (SELECT 1 FROM veterinarian_profiles WHERE license_number = $3)
                OR EXISTS (SELECT 1 FROM facility_profiles
                           WHERE facility_license_number = $4 OR govt_registration_number = $5 OR tax_id = $6)
                OR EXISTS (SELECT 1 FROM registration_applications
                           WHERE status IN ` + openStatuses + `
                             AND (license_number = $3 OR facility_license_number = $4
                                  OR govt_registration_number = $5 OR tax_id = $6))`

	var a Availability
	err := q.QueryRow(ctx, query,
		domain.NormalizeLogin(username),
		domain.NormalizeLogin(email),
		nullIfEmpty(keys.LicenseNumber),
		nullIfEmpty(keys.FacilityLicenseNumber),
		nullIfEmpty(keys.GovtRegistrationNumber),
		nullIfEmpty(keys.TaxID),
	).Scan(&a.UsernameTaken, &a.EmailTaken, &a.LicenseTaken)
	if err != nil {
		return a, fmt.Errorf("check availability: %w", err)
	}
	return a, nil
}

func (r *registrationRepository) CheckAvailability(ctx context.Context, username, email string, keys domain.UniqueKeys) (Availability, error) {
	return checkAvailability(ctx, r.pool, username, email, keys)
}

func (r *registrationRepository) Create(ctx context.Context, app *domain.RegistrationApplication) error {
	contact, err := json.Marshal(app.Contact)
	if err != nil {
		return err
	}
	profile, err := json.Marshal(app.Profile)
	if err != nil {
		return err
	}
	keys := app.UniqueKeys()

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	avail, err := checkAvailability(ctx, tx, app.Username, app.Email, keys)
	if err != nil {
		return err
	}
	if err := avail.Err(); err != nil {
		return err
	}

	const query = `
        INSERT INTO registration_applications (
            role, username, email, password_hash, contact, profile,
            license_number, facility_license_number, govt_registration_number, tax_id, status
        )
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
        RETURNING id, created_at, updated_at`

	if err := tx.QueryRow(ctx, query,
		app.Role,
		app.Username,
		app.Email,
		app.PasswordHash,
		contact,
		profile,
		nullIfEmpty(keys.LicenseNumber),
		nullIfEmpty(keys.FacilityLicenseNumber),
		nullIfEmpty(keys.GovtRegistrationNumber),
		nullIfEmpty(keys.TaxID),
		domain.RegistrationPending,
	).Scan(&app.ID, &app.CreatedAt, &app.UpdatedAt); err != nil {
		if dup := translateUniqueViolation(err); dup != err {
			return dup
		}
		return fmt.Errorf("insert application: %w", err)
	}
	app.Status = domain.RegistrationPending

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

func (r *registrationRepository) GetByID(ctx context.Context, id string) (*domain.RegistrationApplication, error) {
	if !validID(id) {
		return nil, domain.ErrApplicationNotFound
	}
	app, err := scanApplication(r.pool.QueryRow(ctx,
		`SELECT`+applicationColumns+` FROM registration_applications WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrApplicationNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get application: %w", err)
	}
	return app, nil
}

func (r *registrationRepository) List(ctx context.Context, filter RegistrationFilter) ([]*domain.RegistrationApplication, int, error) {
	var (
		where []string
		args  []any
	)
	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}
	if filter.Status != "" {
		where = append(where, "status = "+arg(filter.Status))
	}
	if filter.Role != "" {
		where = append(where, "role = "+arg(filter.Role))
	}
	if term := strings.TrimSpace(filter.Search); term != "" {
		p := arg("%" + term + "%")
		where = append(where, fmt.Sprintf("(username ILIKE %[1]s OR email ILIKE %[1]s)", p))
	}

	query := `SELECT` + applicationColumns + `, COUNT(*) OVER() FROM registration_applications`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	limit, offset := NormalizePage(filter.Limit, filter.Offset)
	query += " ORDER BY created_at DESC, id LIMIT " + arg(limit) + " OFFSET " + arg(offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list applications: %w", err)
	}
	defer rows.Close()

	var (
		out   []*domain.RegistrationApplication
		total int
	)
	for rows.Next() {
		app, err := scanApplication(rows, &total)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, app)
	}
	return out, total, rows.Err()
}

func (r *registrationRepository) MarkUnderReview(ctx context.Context, id string, decision domain.ReviewDecision) (*domain.RegistrationApplication, error) {
	if !validID(id) {
		return nil, domain.ErrApplicationNotFound
	}
	query := `
        UPDATE registration_applications
        SET status = 'UNDER_REVIEW',
            reviewer_notes = COALESCE(NULLIF($2::text, ''), reviewer_notes),
            reviewed_by = $3,
            updated_at = NOW()
        WHERE id = $1 AND status = 'PENDING'
        RETURNING` + applicationColumns

	app, err := scanApplication(r.pool.QueryRow(ctx, query, id, decision.Notes, nullIfEmpty(decision.ReviewerID)))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, r.explainMiss(ctx, id, domain.RegistrationUnderReview)
	}
	if err != nil {
		return nil, fmt.Errorf("mark under review: %w", err)
	}
	return app, nil
}

func (r *registrationRepository) Reject(ctx context.Context, id string, decision domain.ReviewDecision) (*domain.RegistrationApplication, error) {
	if !validID(id) {
		return nil, domain.ErrApplicationNotFound
	}
	query := `
        UPDATE registration_applications
        SET status = 'REJECTED',
            reviewer_notes = $2,
            reviewed_by = $3,
            reviewed_at = $4,
            updated_at = NOW()
        WHERE id = $1 AND status IN ` + openStatuses + `
        RETURNING` + applicationColumns

	app, err := scanApplication(r.pool.QueryRow(ctx, query, id, decision.Notes, nullIfEmpty(decision.ReviewerID), decision.At))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, r.explainMiss(ctx, id, domain.RegistrationRejected)
	}
	if err != nil {
		return nil, fmt.Errorf("reject application: %w", err)
	}
	return app, nil
}

// explainMiss distinguishes an unknown application from one whose state
// forbids the transition after a conditional update matched nothing.
func (r *registrationRepository) explainMiss(ctx context.Context, id string, to domain.RegistrationStatus) error {
	var status domain.RegistrationStatus
	err := r.pool.QueryRow(ctx, `SELECT status FROM registration_applications WHERE id = $1`, id).Scan(&status)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.ErrApplicationNotFound
	}
	if err != nil {
		return fmt.Errorf("load application status: %w", err)
	}
	if checkErr := domain.CheckTransition(status, to); checkErr != nil {
		return checkErr
	}
	return fmt.Errorf("%w: concurrent transition from %s", domain.ErrInvalidState, status)
}

func (r *registrationRepository) Approve(ctx context.Context, id string, decision domain.ReviewDecision) (*domain.RegistrationApplication, *domain.Identity, error) {
	if !validID(id) {
		return nil, nil, domain.ErrApplicationNotFound
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	app, err := scanApplication(tx.QueryRow(ctx,
		`SELECT`+applicationColumns+` FROM registration_applications WHERE id = $1 FOR UPDATE`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil, domain.ErrApplicationNotFound
	}
	if err != nil {
		return nil, nil, fmt.Errorf("lock application: %w", err)
	}
	if err := domain.CheckTransition(app.Status, domain.RegistrationApproved); err != nil {
		return nil, nil, err
	}

	identity := app.PromoteToIdentity()
	if err := insertIdentity(ctx, tx, identity); err != nil {
		return nil, nil, err
	}

	const link = `
        UPDATE registration_applications
        SET status = 'APPROVED',
            reviewer_notes = COALESCE(NULLIF($2::text, ''), reviewer_notes),
            reviewed_by = $3,
            reviewed_at = $4,
            identity_id = $5,
            updated_at = NOW()
        WHERE id = $1
        RETURNING reviewer_notes, updated_at`
	if err := tx.QueryRow(ctx, link, id, decision.Notes, nullIfEmpty(decision.ReviewerID), decision.At, identity.ID).
		Scan(&app.ReviewerNotes, &app.UpdatedAt); err != nil {
		return nil, nil, fmt.Errorf("link application: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	at := decision.At
	app.Status = domain.RegistrationApproved
	app.ReviewedBy = nullIfEmpty(decision.ReviewerID)
	app.ReviewedAt = &at
	app.IdentityID = &identity.ID
	return app, identity, nil
}

func (r *registrationRepository) CountByStatus(ctx context.Context) (map[domain.RegistrationStatus]int, error) {
	rows, err := r.pool.Query(ctx, `SELECT status, COUNT(*) FROM registration_applications GROUP BY status`)
	if err != nil {
		return nil, fmt.Errorf("count applications: %w", err)
	}
	defer rows.Close()

	out := make(map[domain.RegistrationStatus]int)
	for rows.Next() {
		var (
			status domain.RegistrationStatus
			count  int
		)
		if err := rows.Scan(&status, &count); err != nil {
			return nil, err
		}
		out[status] = count
	}
	return out, rows.Err()
}
