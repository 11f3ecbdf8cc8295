package app

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/pscheid92/pawpulse/internal/domain"
	"github.com/pscheid92/pawpulse/internal/platform/correlation"
)

// Side-effect stages, used as metric labels.
const (
	stagePersist  = "persist"
	stageDispatch = "dispatch"
)

// recordNotification persists a notification that follows from a completed
// business operation. A failure is logged and counted; the caller's
// operation has already succeeded and is not failed by it.
func (s *Service) recordNotification(ctx context.Context, n domain.NewNotification) *domain.Notification {
	ctx = correlation.Detach(ctx)

	if err := n.Validate(); err != nil {
		s.sideEffectFailed(ctx, stagePersist, "Invalid side-effect notification", err, "user_id", n.UserID, "type", n.Type)
		return nil
	}
	created, err := s.notifications.Create(ctx, n)
	if err != nil {
		s.sideEffectFailed(ctx, stagePersist, "Failed to persist notification", err, "user_id", n.UserID, "type", n.Type)
		return nil
	}
	if s.metrics != nil {
		s.metrics.Created.WithLabelValues(string(n.Type)).Inc()
	}
	return created
}

// pushToUser, pushToRole and broadcast hand an event to the dispatcher.
// Delivery is at-most-once; the durable record is the system of record.
func (s *Service) pushToUser(ctx context.Context, userID uuid.UUID, event string, payload any) {
	s.push(ctx, event, func(ctx context.Context) int {
		return s.notifier.SendToUser(ctx, userID, event, payload)
	})
}

func (s *Service) pushToRole(ctx context.Context, role domain.Role, event string, payload any) {
	s.push(ctx, event, func(ctx context.Context) int {
		return s.notifier.SendToRole(ctx, role, event, payload)
	})
}

func (s *Service) broadcast(ctx context.Context, event string, payload any) {
	s.push(ctx, event, func(ctx context.Context) int {
		return s.notifier.Broadcast(ctx, event, payload)
	})
}

func (s *Service) push(ctx context.Context, event string, send func(context.Context) int) {
	if s.notifier == nil {
		return
	}
	ctx = correlation.Detach(ctx)

	defer func() {
		if r := recover(); r != nil {
			s.sideEffectFailed(ctx, stageDispatch, "Recovered panic while dispatching event", fmt.Errorf("panic: %v", r), "event", event)
		}
	}()
	send(ctx)
}

// notifyUser records a notification and pushes it as notification:new.
func (s *Service) notifyUser(ctx context.Context, n domain.NewNotification) *domain.Notification {
	created := s.recordNotification(ctx, n)
	if created == nil {
		return nil
	}
	s.pushToUser(ctx, created.UserID, domain.EventNotificationNew, newNotificationEvent(created))
	return created
}

func (s *Service) sideEffectFailed(ctx context.Context, stage, msg string, err error, attrs ...any) {
	if s.metrics != nil {
		s.metrics.SideEffectErrors.WithLabelValues(stage).Inc()
	}
	slog.ErrorContext(ctx, msg, append(attrs, "stage", stage, "error", err)...)
}
