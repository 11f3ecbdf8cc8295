package app

import (
	"time"

	"github.com/google/uuid"

	"github.com/pscheid92/pawpulse/internal/domain"
)

// Payloads pushed to live connections.

type NotificationEvent struct {
	ID        uuid.UUID               `json:"id"`
	Type      domain.NotificationType `json:"type"`
	Title     string                  `json:"title"`
	Message   string                  `json:"message"`
	Priority  domain.Priority         `json:"priority"`
	PetID     *uuid.UUID              `json:"petId,omitempty"`
	DueDate   *time.Time              `json:"dueDate,omitempty"`
	CreatedAt time.Time               `json:"createdAt"`
}

func newNotificationEvent(n *domain.Notification) NotificationEvent {
	return NotificationEvent{
		ID:        n.ID,
		Type:      n.Type,
		Title:     n.Title,
		Message:   n.Message,
		Priority:  n.Priority,
		PetID:     n.PetID,
		DueDate:   n.DueDate,
		CreatedAt: n.CreatedAt,
	}
}

type AppointmentEvent struct {
	ID          uuid.UUID                `json:"id"`
	PetID       uuid.UUID                `json:"petId"`
	PetName     string                   `json:"petName,omitempty"`
	OwnerID     uuid.UUID                `json:"ownerId"`
	ScheduledAt time.Time                `json:"scheduledAt"`
	Status      domain.AppointmentStatus `json:"status"`
	Title       string                   `json:"title"`
	Message     string                   `json:"message"`
}

type ArticleEvent struct {
	ID          uuid.UUID  `json:"id"`
	Title       string     `json:"title"`
	Summary     string     `json:"summary,omitempty"`
	Category    string     `json:"category,omitempty"`
	PublishedAt *time.Time `json:"publishedAt,omitempty"`
}
