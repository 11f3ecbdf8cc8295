package app

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/pscheid92/pawpulse/internal/domain"
)

// PetChanges carries the editable fields of a pet.
type PetChanges struct {
	Name      string
	Species   string
	Breed     string
	BirthDate *time.Time
	WeightKg  *float64
	Notes     string
}

func (s *Service) CreatePet(ctx context.Context, actor domain.Identity, c PetChanges) (*domain.Pet, error) {
	pet := &domain.Pet{OwnerID: actor.UserID}
	c.applyTo(pet)
	if err := pet.Validate(); err != nil {
		return nil, err
	}
	return s.pets.Create(ctx, pet)
}

func (s *Service) GetPet(ctx context.Context, actor domain.Identity, id uuid.UUID) (*domain.Pet, error) {
	pet, err := s.pets.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !canReadPet(actor, pet) {
		return nil, fmt.Errorf("%w: pet %s", domain.ErrForbidden, id)
	}
	return pet, nil
}

// ListPets returns the actor's own pets, or every pet for staff.
func (s *Service) ListPets(ctx context.Context, actor domain.Identity) ([]domain.Pet, error) {
	if actor.Role.IsStaff() {
		return s.pets.ListAll(ctx)
	}
	return s.pets.ListByOwner(ctx, actor.UserID)
}

func (s *Service) UpdatePet(ctx context.Context, actor domain.Identity, id uuid.UUID, c PetChanges) (*domain.Pet, error) {
	pet, err := s.pets.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !canModifyPet(actor, pet) {
		return nil, fmt.Errorf("%w: pet %s", domain.ErrForbidden, id)
	}

	c.applyTo(pet)
	if err := pet.Validate(); err != nil {
		return nil, err
	}
	return s.pets.Update(ctx, pet)
}

func (s *Service) DeletePet(ctx context.Context, actor domain.Identity, id uuid.UUID) error {
	pet, err := s.pets.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if !canModifyPet(actor, pet) {
		return fmt.Errorf("%w: pet %s", domain.ErrForbidden, id)
	}
	return s.pets.Delete(ctx, id)
}

func (c PetChanges) applyTo(p *domain.Pet) {
	p.Name = c.Name
	p.Species = c.Species
	p.Breed = c.Breed
	p.BirthDate = c.BirthDate
	p.WeightKg = c.WeightKg
	p.Notes = c.Notes
}
