package domain

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

type AppointmentStatus string

const (
	AppointmentPending   AppointmentStatus = "pending"
	AppointmentConfirmed AppointmentStatus = "confirmed"
	AppointmentCompleted AppointmentStatus = "completed"
	AppointmentCancelled AppointmentStatus = "cancelled"
)

func ParseAppointmentStatus(s string) (AppointmentStatus, error) {
	switch st := AppointmentStatus(s); st {
	case AppointmentPending, AppointmentConfirmed, AppointmentCompleted, AppointmentCancelled:
		return st, nil
	}
	return "", fmt.Errorf("%w: unknown appointment status %q", ErrInvalidInput, s)
}

// Terminal reports whether no further transitions are allowed.
func (s AppointmentStatus) Terminal() bool {
	return s == AppointmentCompleted || s == AppointmentCancelled
}

// CanTransition reports whether s may move to next.
func (s AppointmentStatus) CanTransition(next AppointmentStatus) bool {
	if s.Terminal() || s == next {
		return false
	}
	switch next {
	case AppointmentConfirmed:
		return s == AppointmentPending
	case AppointmentCompleted:
		return s == AppointmentConfirmed
	case AppointmentCancelled:
		return true
	}
	return false
}

type Appointment struct {
	ID             uuid.UUID
	PetID          uuid.UUID
	OwnerID        uuid.UUID
	VeterinarianID *uuid.UUID
	ScheduledAt    time.Time
	Reason         string
	Status         AppointmentStatus
	Notes          string
	ReminderSentAt *time.Time
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

const maxAppointmentReasonLength = 500

// Validate checks a booking request. Appointments must be scheduled after now.
func (a *Appointment) Validate(now time.Time) error {
	a.Reason = strings.TrimSpace(a.Reason)
	if a.PetID == uuid.Nil {
		return fmt.Errorf("%w: pet is required", ErrInvalidInput)
	}
	if a.Reason == "" {
		return fmt.Errorf("%w: reason is required", ErrInvalidInput)
	}
	if len(a.Reason) > maxAppointmentReasonLength {
		return fmt.Errorf("%w: reason must be at most %d characters", ErrInvalidInput, maxAppointmentReasonLength)
	}
	if !a.ScheduledAt.After(now) {
		return fmt.Errorf("%w: appointment must be scheduled in the future", ErrInvalidInput)
	}
	return nil
}

type AppointmentRepository interface {
	Create(ctx context.Context, a *Appointment) (*Appointment, error)
	GetByID(ctx context.Context, id uuid.UUID) (*Appointment, error)
	ListByOwner(ctx context.Context, ownerID uuid.UUID) ([]Appointment, error)
	ListAll(ctx context.Context) ([]Appointment, error)
	// UpdateStatus applies from -> to only if the stored status is still from;
	// otherwise it returns ErrInvalidTransition.
	UpdateStatus(ctx context.Context, id uuid.UUID, from, to AppointmentStatus, veterinarianID *uuid.UUID, notes string) (*Appointment, error)

	// ListDueReminders returns open appointments scheduled in [from, until]
	// that have not had a reminder sent.
	ListDueReminders(ctx context.Context, from, until time.Time) ([]Appointment, error)
	MarkReminderSent(ctx context.Context, id uuid.UUID, at time.Time) error
}
