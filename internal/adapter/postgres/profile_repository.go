package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/pscheid92/pawpulse/internal/domain"
)

const profileColumns = `id, email, display_name, role, created_at, updated_at`

type profileRow struct {
	ID          uuid.UUID `db:"id"`
	Email       string    `db:"email"`
	DisplayName string    `db:"display_name"`
	Role        string    `db:"role"`
	CreatedAt   time.Time `db:"created_at"`
	UpdatedAt   time.Time `db:"updated_at"`
}

func (r profileRow) toDomain() *domain.Profile {
	return &domain.Profile{
		ID:          r.ID,
		Email:       r.Email,
		DisplayName: r.DisplayName,
		Role:        domain.Role(r.Role),
		CreatedAt:   r.CreatedAt,
		UpdatedAt:   r.UpdatedAt,
	}
}

type ProfileRepo struct {
	pool *pgxpool.Pool
}

func NewProfileRepo(pool *pgxpool.Pool) *ProfileRepo {
	return &ProfileRepo{pool: pool}
}

func (r *ProfileRepo) one(ctx context.Context, what, sql string, args ...any) (*domain.Profile, error) {
	rows, _ := r.pool.Query(ctx, sql, args...)
	row, err := pgx.CollectExactlyOneRow(rows, pgx.RowToStructByName[profileRow])
	if notFound(err) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to %s: %w", what, err)
	}
	return row.toDomain(), nil
}

func (r *ProfileRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Profile, error) {
	return r.one(ctx, "get profile",
		`SELECT `+profileColumns+` FROM profiles WHERE id = $1`, id)
}

// GetProfile satisfies domain.ProfileSource for uncached lookups.
func (r *ProfileRepo) GetProfile(ctx context.Context, id uuid.UUID) (*domain.Profile, error) {
	return r.GetByID(ctx, id)
}

func (r *ProfileRepo) Upsert(ctx context.Context, p *domain.Profile) (*domain.Profile, error) {
	role := p.Role
	if role == "" {
		role = domain.RoleUser
	}
	return r.one(ctx, "upsert profile", `
		INSERT INTO profiles (id, email, display_name, role)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (id) DO UPDATE
		SET email = EXCLUDED.email, display_name = EXCLUDED.display_name, updated_at = now()
		RETURNING `+profileColumns,
		p.ID, p.Email, p.DisplayName, string(role))
}

func (r *ProfileRepo) UpdateDisplayName(ctx context.Context, id uuid.UUID, displayName string) (*domain.Profile, error) {
	return r.one(ctx, "update display name", `
		UPDATE profiles SET display_name = $2, updated_at = now()
		WHERE id = $1
		RETURNING `+profileColumns,
		id, displayName)
}

func (r *ProfileRepo) UpdateRole(ctx context.Context, id uuid.UUID, role domain.Role) (*domain.Profile, error) {
	return r.one(ctx, "update role", `
		UPDATE profiles SET role = $2, updated_at = now()
		WHERE id = $1
		RETURNING `+profileColumns,
		id, string(role))
}
