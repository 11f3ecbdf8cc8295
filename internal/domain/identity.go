package domain

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

type Role string

const (
	RoleUser         Role = "user"
	RoleVeterinarian Role = "veterinarian"
	RoleAdmin        Role = "admin"
)

// Roles lists every role in a stable order.
var Roles = []Role{RoleUser, RoleVeterinarian, RoleAdmin}

func (r Role) Valid() bool {
	switch r {
	case RoleUser, RoleVeterinarian, RoleAdmin:
		return true
	}
	return false
}

// IsStaff reports whether the role may act on other users' records.
func (r Role) IsStaff() bool {
	return r == RoleVeterinarian || r == RoleAdmin
}

func ParseRole(s string) (Role, error) {
	r := Role(s)
	if !r.Valid() {
		return "", fmt.Errorf("%w: unknown role %q", ErrInvalidInput, s)
	}
	return r, nil
}

type Profile struct {
	ID          uuid.UUID
	Email       string
	DisplayName string
	Role        Role
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

func (p *Profile) Identity() Identity {
	return Identity{UserID: p.ID, Role: p.Role, DisplayName: p.DisplayName}
}

// Identity is the authenticated principal behind a request or a live connection.
type Identity struct {
	UserID      uuid.UUID
	Role        Role
	DisplayName string
}

// TokenVerifier validates a bearer credential with the identity provider and
// returns the subject it was issued for.
type TokenVerifier interface {
	Verify(ctx context.Context, token string) (uuid.UUID, error)
}

type ProfileRepository interface {
	GetByID(ctx context.Context, id uuid.UUID) (*Profile, error)
	Upsert(ctx context.Context, p *Profile) (*Profile, error)
	UpdateDisplayName(ctx context.Context, id uuid.UUID, displayName string) (*Profile, error)
	UpdateRole(ctx context.Context, id uuid.UUID, role Role) (*Profile, error)
}

// ProfileSource provides profile lookup for authentication.
// Implementations may add read-through caching (Redis → PostgreSQL).
type ProfileSource interface {
	GetProfile(ctx context.Context, id uuid.UUID) (*Profile, error)
}

// ProfileCacheInvalidator drops a cached profile after its role or name changed.
type ProfileCacheInvalidator interface {
	InvalidateProfile(ctx context.Context, id uuid.UUID) error
}
