package httpserver

import (
	"time"

	"github.com/google/uuid"

	"github.com/pscheid92/pawpulse/internal/domain"
)

// Response bodies use camelCase to match the realtime event payloads.

type profileResponse struct {
	ID          uuid.UUID   `json:"id"`
	Email       string      `json:"email"`
	DisplayName string      `json:"displayName"`
	Role        domain.Role `json:"role"`
	CreatedAt   time.Time   `json:"createdAt"`
	UpdatedAt   time.Time   `json:"updatedAt"`
}

func newProfileResponse(p *domain.Profile) profileResponse {
	return profileResponse{
		ID:          p.ID,
		Email:       p.Email,
		DisplayName: p.DisplayName,
		Role:        p.Role,
		CreatedAt:   p.CreatedAt,
		UpdatedAt:   p.UpdatedAt,
	}
}

type notificationResponse struct {
	ID        uuid.UUID               `json:"id"`
	UserID    uuid.UUID               `json:"userId"`
	PetID     *uuid.UUID              `json:"petId,omitempty"`
	Type      domain.NotificationType `json:"type"`
	Title     string                  `json:"title"`
	Message   string                  `json:"message"`
	DueDate   *time.Time              `json:"dueDate,omitempty"`
	Priority  domain.Priority         `json:"priority"`
	Read      bool                    `json:"read"`
	Completed bool                    `json:"completed"`
	CreatedAt time.Time               `json:"createdAt"`
}

func newNotificationResponse(n domain.Notification) notificationResponse {
	return notificationResponse{
		ID:        n.ID,
		UserID:    n.UserID,
		PetID:     n.PetID,
		Type:      n.Type,
		Title:     n.Title,
		Message:   n.Message,
		DueDate:   n.DueDate,
		Priority:  n.Priority,
		Read:      n.Read,
		Completed: n.Completed,
		CreatedAt: n.CreatedAt,
	}
}

type petResponse struct {
	ID        uuid.UUID  `json:"id"`
	OwnerID   uuid.UUID  `json:"ownerId"`
	Name      string     `json:"name"`
	Species   string     `json:"species"`
	Breed     string     `json:"breed,omitempty"`
	BirthDate *time.Time `json:"birthDate,omitempty"`
	WeightKg  *float64   `json:"weightKg,omitempty"`
	Notes     string     `json:"notes,omitempty"`
	CreatedAt time.Time  `json:"createdAt"`
	UpdatedAt time.Time  `json:"updatedAt"`
}

func newPetResponse(p domain.Pet) petResponse {
	return petResponse{
		ID:        p.ID,
		OwnerID:   p.OwnerID,
		Name:      p.Name,
		Species:   p.Species,
		Breed:     p.Breed,
		BirthDate: p.BirthDate,
		WeightKg:  p.WeightKg,
		Notes:     p.Notes,
		CreatedAt: p.CreatedAt,
		UpdatedAt: p.UpdatedAt,
	}
}

type appointmentResponse struct {
	ID             uuid.UUID                `json:"id"`
	PetID          uuid.UUID                `json:"petId"`
	OwnerID        uuid.UUID                `json:"ownerId"`
	VeterinarianID *uuid.UUID               `json:"veterinarianId,omitempty"`
	ScheduledAt    time.Time                `json:"scheduledAt"`
	Reason         string                   `json:"reason"`
	Status         domain.AppointmentStatus `json:"status"`
	Notes          string                   `json:"notes,omitempty"`
	CreatedAt      time.Time                `json:"createdAt"`
	UpdatedAt      time.Time                `json:"updatedAt"`
}

func newAppointmentResponse(a domain.Appointment) appointmentResponse {
	return appointmentResponse{
		ID:             a.ID,
		PetID:          a.PetID,
		OwnerID:        a.OwnerID,
		VeterinarianID: a.VeterinarianID,
		ScheduledAt:    a.ScheduledAt,
		Reason:         a.Reason,
		Status:         a.Status,
		Notes:          a.Notes,
		CreatedAt:      a.CreatedAt,
		UpdatedAt:      a.UpdatedAt,
	}
}

type articleResponse struct {
	ID          uuid.UUID  `json:"id"`
	AuthorID    uuid.UUID  `json:"authorId"`
	Title       string     `json:"title"`
	Summary     string     `json:"summary,omitempty"`
	Body        string     `json:"body"`
	Category    string     `json:"category,omitempty"`
	Published   bool       `json:"published"`
	PublishedAt *time.Time `json:"publishedAt,omitempty"`
	CreatedAt   time.Time  `json:"createdAt"`
}

func newArticleResponse(a domain.Article) articleResponse {
	return articleResponse{
		ID:          a.ID,
		AuthorID:    a.AuthorID,
		Title:       a.Title,
		Summary:     a.Summary,
		Body:        a.Body,
		Category:    a.Category,
		Published:   a.Published,
		PublishedAt: a.PublishedAt,
		CreatedAt:   a.CreatedAt,
	}
}

// mapSlice converts a domain slice, always yielding a non-nil JSON array.
func mapSlice[T, R any](in []T, f func(T) R) []R {
	out := make([]R, 0, len(in))
	for _, v := range in {
		out = append(out, f(v))
	}
	return out
}
