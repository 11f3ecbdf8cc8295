package app

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/pscheid92/pawpulse/internal/domain"
)

const maxDisplayNameLength = 100

func (s *Service) GetProfile(ctx context.Context, actor domain.Identity) (*domain.Profile, error) {
	return s.profiles.GetByID(ctx, actor.UserID)
}

func (s *Service) UpdateDisplayName(ctx context.Context, actor domain.Identity, displayName string) (*domain.Profile, error) {
	displayName = strings.TrimSpace(displayName)
	if displayName == "" || utf8.RuneCountInString(displayName) > maxDisplayNameLength {
		return nil, fmt.Errorf("%w: display name must be 1-%d characters", domain.ErrInvalidInput, maxDisplayNameLength)
	}

	profile, err := s.profiles.UpdateDisplayName(ctx, actor.UserID, displayName)
	if err != nil {
		return nil, err
	}
	s.invalidateProfile(ctx, actor.UserID)
	return profile, nil
}

// UpdateRole changes another user's role. Connections already open keep
// their group memberships until they reconnect.
func (s *Service) UpdateRole(ctx context.Context, actor domain.Identity, userID uuid.UUID, role domain.Role) (*domain.Profile, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	if !role.Valid() {
		return nil, fmt.Errorf("%w: unknown role %q", domain.ErrInvalidInput, role)
	}
	if userID == actor.UserID {
		return nil, fmt.Errorf("%w: admins cannot change their own role", domain.ErrForbidden)
	}

	profile, err := s.profiles.UpdateRole(ctx, userID, role)
	if err != nil {
		return nil, err
	}
	slog.InfoContext(ctx, "Role changed", "user_id", userID, "role", role, "changed_by", actor.UserID)
	s.invalidateProfile(ctx, userID)
	return profile, nil
}

func (s *Service) invalidateProfile(ctx context.Context, userID uuid.UUID) {
	if s.profileCache == nil {
		return
	}
	if err := s.profileCache.InvalidateProfile(ctx, userID); err != nil {
		slog.WarnContext(ctx, "Failed to invalidate profile cache", "user_id", userID, "error", err)
	}
}
