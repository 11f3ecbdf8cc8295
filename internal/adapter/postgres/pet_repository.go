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

const petColumns = `id, owner_id, name, species, breed, birth_date, weight_kg, notes, created_at, updated_at`

type petRow struct {
	ID        uuid.UUID  `db:"id"`
	OwnerID   uuid.UUID  `db:"owner_id"`
	Name      string     `db:"name"`
	Species   string     `db:"species"`
	Breed     string     `db:"breed"`
	BirthDate *time.Time `db:"birth_date"`
	WeightKg  *float64   `db:"weight_kg"`
	Notes     string     `db:"notes"`
	CreatedAt time.Time  `db:"created_at"`
	UpdatedAt time.Time  `db:"updated_at"`
}

func (r petRow) toDomain() domain.Pet {
	return domain.Pet(r)
}

type PetRepo struct {
	pool *pgxpool.Pool
}

func NewPetRepo(pool *pgxpool.Pool) *PetRepo {
	return &PetRepo{pool: pool}
}

func (r *PetRepo) one(ctx context.Context, what, sql string, args ...any) (*domain.Pet, error) {
	rows, _ := r.pool.Query(ctx, sql, args...)
	row, err := pgx.CollectExactlyOneRow(rows, pgx.RowToStructByName[petRow])
	if notFound(err) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to %s: %w", what, err)
	}
	pet := row.toDomain()
	return &pet, nil
}

func (r *PetRepo) many(ctx context.Context, what, sql string, args ...any) ([]domain.Pet, error) {
	rows, _ := r.pool.Query(ctx, sql, args...)
	collected, err := pgx.CollectRows(rows, pgx.RowToStructByName[petRow])
	if err != nil {
		return nil, fmt.Errorf("failed to %s: %w", what, err)
	}
	pets := make([]domain.Pet, 0, len(collected))
	for _, row := range collected {
		pets = append(pets, row.toDomain())
	}
	return pets, nil
}

func (r *PetRepo) Create(ctx context.Context, p *domain.Pet) (*domain.Pet, error) {
	return r.one(ctx, "create pet", `
		INSERT INTO pets (owner_id, name, species, breed, birth_date, weight_kg, notes)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING `+petColumns,
		p.OwnerID, p.Name, p.Species, p.Breed, p.BirthDate, p.WeightKg, p.Notes)
}

func (r *PetRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Pet, error) {
	return r.one(ctx, "get pet", `SELECT `+petColumns+` FROM pets WHERE id = $1`, id)
}

func (r *PetRepo) ListByOwner(ctx context.Context, ownerID uuid.UUID) ([]domain.Pet, error) {
	return r.many(ctx, "list pets by owner",
		`SELECT `+petColumns+` FROM pets WHERE owner_id = $1 ORDER BY name, id`, ownerID)
}

func (r *PetRepo) ListAll(ctx context.Context) ([]domain.Pet, error) {
	return r.many(ctx, "list pets", `SELECT `+petColumns+` FROM pets ORDER BY created_at DESC, id`)
}

func (r *PetRepo) Update(ctx context.Context, p *domain.Pet) (*domain.Pet, error) {
	return r.one(ctx, "update pet", `
		UPDATE pets
		SET name = $2, species = $3, breed = $4, birth_date = $5, weight_kg = $6, notes = $7, updated_at = now()
		WHERE id = $1
		RETURNING `+petColumns,
		p.ID, p.Name, p.Species, p.Breed, p.BirthDate, p.WeightKg, p.Notes)
}

func (r *PetRepo) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM pets WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete pet: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}
