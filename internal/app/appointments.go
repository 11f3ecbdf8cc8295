package app

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/pscheid92/pawpulse/internal/domain"
)

type BookingRequest struct {
	PetID       uuid.UUID
	ScheduledAt time.Time
	Reason      string
}

// BookAppointment books a pending appointment for one of the actor's pets.
// The owner gets a durable appointment_booked record and an
// appointment:created push; every live veterinarian and admin gets
// appointment:new.
func (s *Service) BookAppointment(ctx context.Context, actor domain.Identity, req BookingRequest) (*domain.Appointment, error) {
	appt := &domain.Appointment{
		PetID:       req.PetID,
		ScheduledAt: req.ScheduledAt,
		Reason:      req.Reason,
		Status:      domain.AppointmentPending,
	}
	if err := appt.Validate(s.clock.Now()); err != nil {
		return nil, err
	}

	pet, err := s.pets.GetByID(ctx, req.PetID)
	if err != nil {
		return nil, err
	}
	if !canModifyPet(actor, pet) {
		return nil, fmt.Errorf("%w: pet %s", domain.ErrForbidden, pet.ID)
	}
	appt.OwnerID = pet.OwnerID

	created, err := s.appointments.Create(ctx, appt)
	if err != nil {
		return nil, err
	}
	slog.InfoContext(ctx, "Appointment booked", "appointment_id", created.ID, "pet_id", pet.ID, "user_id", created.OwnerID)

	when := formatSchedule(created.ScheduledAt)
	s.recordNotification(ctx, domain.NewNotification{
		UserID:   created.OwnerID,
		PetID:    &pet.ID,
		Type:     domain.NotificationAppointmentBooked,
		Title:    "Appointment requested",
		Message:  fmt.Sprintf("Your appointment for %s on %s is awaiting confirmation.", pet.Name, when),
		DueDate:  &created.ScheduledAt,
		Priority: domain.PriorityMedium,
	})

	ownerEvent := newAppointmentEvent(created, pet.Name, "Appointment requested",
		fmt.Sprintf("Appointment for %s on %s was booked.", pet.Name, when))
	s.pushToUser(ctx, created.OwnerID, domain.EventAppointmentCreated, ownerEvent)

	staffEvent := newAppointmentEvent(created, pet.Name, "New appointment",
		fmt.Sprintf("%s booked an appointment for %s (%s) on %s.", actor.DisplayName, pet.Name, pet.Species, when))
	s.pushToRole(ctx, domain.RoleVeterinarian, domain.EventAppointmentNew, staffEvent)
	s.pushToRole(ctx, domain.RoleAdmin, domain.EventAppointmentNew, staffEvent)

	return created, nil
}

func (s *Service) GetAppointment(ctx context.Context, actor domain.Identity, id uuid.UUID) (*domain.Appointment, error) {
	appt, err := s.appointments.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !canReadAppointment(actor, appt) {
		return nil, fmt.Errorf("%w: appointment %s", domain.ErrForbidden, id)
	}
	return appt, nil
}

// ListAppointments returns the actor's own appointments, or all for staff.
func (s *Service) ListAppointments(ctx context.Context, actor domain.Identity) ([]domain.Appointment, error) {
	if actor.Role.IsStaff() {
		return s.appointments.ListAll(ctx)
	}
	return s.appointments.ListByOwner(ctx, actor.UserID)
}

// UpdateAppointmentStatus moves an appointment along its workflow. The owner
// gets a durable appointment_updated record and an appointment:updated push;
// when the owner cancels, live staff are told as well.
func (s *Service) UpdateAppointmentStatus(ctx context.Context, actor domain.Identity, id uuid.UUID, next domain.AppointmentStatus, notes string) (*domain.Appointment, error) {
	appt, err := s.appointments.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !canReadAppointment(actor, appt) || !canSetAppointmentStatus(actor, appt, next) {
		return nil, fmt.Errorf("%w: appointment %s", domain.ErrForbidden, id)
	}
	if !appt.Status.CanTransition(next) {
		return nil, fmt.Errorf("%w: %s -> %s", domain.ErrInvalidTransition, appt.Status, next)
	}

	var vetID *uuid.UUID
	if actor.Role == domain.RoleVeterinarian {
		vetID = &actor.UserID
	}
	updated, err := s.appointments.UpdateStatus(ctx, id, appt.Status, next, vetID, strings.TrimSpace(notes))
	if err != nil {
		return nil, err
	}
	slog.InfoContext(ctx, "Appointment status changed", "appointment_id", id, "from", appt.Status, "to", next, "user_id", actor.UserID)

	petName := s.petName(ctx, updated.PetID)
	when := formatSchedule(updated.ScheduledAt)
	title := "Appointment " + string(next)
	message := fmt.Sprintf("Your appointment for %s on %s is now %s.", petName, when, next)

	s.recordNotification(ctx, domain.NewNotification{
		UserID:   updated.OwnerID,
		PetID:    &updated.PetID,
		Type:     domain.NotificationAppointmentUpdated,
		Title:    title,
		Message:  message,
		DueDate:  &updated.ScheduledAt,
		Priority: statusPriority(next),
	})

	event := newAppointmentEvent(updated, petName, title, message)
	s.pushToUser(ctx, updated.OwnerID, domain.EventAppointmentUpdated, event)
	if !actor.Role.IsStaff() {
		s.pushToRole(ctx, domain.RoleVeterinarian, domain.EventAppointmentUpdated, event)
		s.pushToRole(ctx, domain.RoleAdmin, domain.EventAppointmentUpdated, event)
	}

	return updated, nil
}

// petName resolves a pet's name for message text, falling back to a generic
// phrase so a lookup failure never blocks a notification.
func (s *Service) petName(ctx context.Context, petID uuid.UUID) string {
	pet, err := s.pets.GetByID(ctx, petID)
	if err != nil {
		slog.WarnContext(ctx, "Pet lookup for notification text failed", "pet_id", petID, "error", err)
		return "your pet"
	}
	return pet.Name
}

func statusPriority(status domain.AppointmentStatus) domain.Priority {
	if status == domain.AppointmentCancelled {
		return domain.PriorityHigh
	}
	return domain.PriorityMedium
}

func formatSchedule(t time.Time) string {
	return t.UTC().Format("Mon, 02 Jan 2006 15:04 MST")
}

func newAppointmentEvent(a *domain.Appointment, petName, title, message string) AppointmentEvent {
	return AppointmentEvent{
		ID:          a.ID,
		PetID:       a.PetID,
		PetName:     petName,
		OwnerID:     a.OwnerID,
		ScheduledAt: a.ScheduledAt,
		Status:      a.Status,
		Title:       title,
		Message:     message,
	}
}
