package domain

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

type NotificationType string

const (
	NotificationVaccinationDue      NotificationType = "vaccination_due"
	NotificationMedicationReminder  NotificationType = "medication_reminder"
	NotificationAppointmentReminder NotificationType = "appointment_reminder"
	NotificationCheckupDue          NotificationType = "checkup_due"
	NotificationAppointmentBooked   NotificationType = "appointment_booked"
	NotificationAppointmentUpdated  NotificationType = "appointment_updated"
)

type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
	PriorityUrgent Priority = "urgent"
)

func (p Priority) Valid() bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh, PriorityUrgent:
		return true
	}
	return false
}

type Notification struct {
	ID        uuid.UUID
	UserID    uuid.UUID
	PetID     *uuid.UUID
	Type      NotificationType
	Title     string
	Message   string
	DueDate   *time.Time
	Priority  Priority
	Read      bool
	Completed bool
	CreatedAt time.Time
}

// NewNotification carries the fields a caller supplies when recording a notification.
type NewNotification struct {
	UserID   uuid.UUID
	PetID    *uuid.UUID
	Type     NotificationType
	Title    string
	Message  string
	DueDate  *time.Time
	Priority Priority
}

const maxNotificationTypeLength = 64

// Validate checks field-level rules and fills the default priority.
func (n *NewNotification) Validate() error {
	if n.UserID == uuid.Nil {
		return fmt.Errorf("%w: recipient is required", ErrInvalidInput)
	}
	n.Title = strings.TrimSpace(n.Title)
	n.Message = strings.TrimSpace(n.Message)
	if n.Title == "" {
		return fmt.Errorf("%w: title is required", ErrInvalidInput)
	}
	if n.Message == "" {
		return fmt.Errorf("%w: message is required", ErrInvalidInput)
	}
	if n.Type == "" || len(n.Type) > maxNotificationTypeLength {
		return fmt.Errorf("%w: type must be 1-%d characters", ErrInvalidInput, maxNotificationTypeLength)
	}
	if n.Priority == "" {
		n.Priority = PriorityMedium
	}
	if !n.Priority.Valid() {
		return fmt.Errorf("%w: unknown priority %q", ErrInvalidInput, n.Priority)
	}
	return nil
}

// NotificationRepository is the durable notification store. Every mutation is
// scoped to the owning user; a record owned by someone else reads as ErrNotFound.
type NotificationRepository interface {
	Create(ctx context.Context, n NewNotification) (*Notification, error)
	ListByUser(ctx context.Context, userID uuid.UUID, unreadOnly bool) ([]Notification, error)
	CountUnread(ctx context.Context, userID uuid.UUID) (int, error)
	MarkRead(ctx context.Context, userID, id uuid.UUID) error
	MarkAllRead(ctx context.Context, userID uuid.UUID) (int64, error)
	MarkCompleted(ctx context.Context, userID, id uuid.UUID) error
	Delete(ctx context.Context, userID, id uuid.UUID) error
	DeleteAll(ctx context.Context, userID uuid.UUID) (int64, error)
}
