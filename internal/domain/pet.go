package domain

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

type Pet struct {
	ID        uuid.UUID
	OwnerID   uuid.UUID
	Name      string
	Species   string
	Breed     string
	BirthDate *time.Time
	WeightKg  *float64
	Notes     string
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (p *Pet) Validate() error {
	p.Name = strings.TrimSpace(p.Name)
	p.Species = strings.TrimSpace(p.Species)
	if p.Name == "" {
		return fmt.Errorf("%w: name is required", ErrInvalidInput)
	}
	if p.Species == "" {
		return fmt.Errorf("%w: species is required", ErrInvalidInput)
	}
	if p.WeightKg != nil && *p.WeightKg <= 0 {
		return fmt.Errorf("%w: weight must be positive", ErrInvalidInput)
	}
	return nil
}

type PetRepository interface {
	Create(ctx context.Context, p *Pet) (*Pet, error)
	GetByID(ctx context.Context, id uuid.UUID) (*Pet, error)
	ListByOwner(ctx context.Context, ownerID uuid.UUID) ([]Pet, error)
	ListAll(ctx context.Context) ([]Pet, error)
	Update(ctx context.Context, p *Pet) (*Pet, error)
	Delete(ctx context.Context, id uuid.UUID) error
}
