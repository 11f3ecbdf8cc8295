package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/pscheid92/pawpulse/internal/domain"
)

// The notification inbox: every operation is scoped to the actor's own records.

func (s *Service) ListNotifications(ctx context.Context, actor domain.Identity, unreadOnly bool) ([]domain.Notification, error) {
	return s.notifications.ListByUser(ctx, actor.UserID, unreadOnly)
}

func (s *Service) CountUnreadNotifications(ctx context.Context, actor domain.Identity) (int, error) {
	return s.notifications.CountUnread(ctx, actor.UserID)
}

func (s *Service) MarkNotificationRead(ctx context.Context, actor domain.Identity, id uuid.UUID) error {
	return s.notifications.MarkRead(ctx, actor.UserID, id)
}

func (s *Service) MarkAllNotificationsRead(ctx context.Context, actor domain.Identity) (int64, error) {
	return s.notifications.MarkAllRead(ctx, actor.UserID)
}

func (s *Service) MarkNotificationCompleted(ctx context.Context, actor domain.Identity, id uuid.UUID) error {
	return s.notifications.MarkCompleted(ctx, actor.UserID, id)
}

func (s *Service) DeleteNotification(ctx context.Context, actor domain.Identity, id uuid.UUID) error {
	return s.notifications.Delete(ctx, actor.UserID, id)
}

func (s *Service) DeleteAllNotifications(ctx context.Context, actor domain.Identity) (int64, error) {
	return s.notifications.DeleteAll(ctx, actor.UserID)
}

// CreateNotification lets an admin record an ad hoc notification for any
// user. Unlike side-effect notifications the record is the primary result,
// so persistence errors are returned; the live push stays best-effort.
func (s *Service) CreateNotification(ctx context.Context, actor domain.Identity, n domain.NewNotification) (*domain.Notification, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	if err := n.Validate(); err != nil {
		return nil, err
	}

	if _, err := s.profiles.GetByID(ctx, n.UserID); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, fmt.Errorf("%w: recipient %s does not exist", domain.ErrInvalidInput, n.UserID)
		}
		return nil, fmt.Errorf("failed to look up recipient: %w", err)
	}

	created, err := s.notifications.Create(ctx, n)
	if err != nil {
		return nil, fmt.Errorf("failed to create notification: %w", err)
	}
	if s.metrics != nil {
		s.metrics.Created.WithLabelValues(string(created.Type)).Inc()
	}

	s.pushToUser(ctx, created.UserID, domain.EventNotificationNew, newNotificationEvent(created))
	return created, nil
}
