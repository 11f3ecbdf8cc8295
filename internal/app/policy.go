package app

import (
	"fmt"

	"github.com/pscheid92/pawpulse/internal/domain"
)

// Access rules: owners act on their own pets and appointments, staff
// (veterinarians and admins) read everything and manage appointment status,
// admins alone delete other people's records and manage roles.

func canReadPet(actor domain.Identity, pet *domain.Pet) bool {
	return pet.OwnerID == actor.UserID || actor.Role.IsStaff()
}

func canModifyPet(actor domain.Identity, pet *domain.Pet) bool {
	return pet.OwnerID == actor.UserID || actor.Role == domain.RoleAdmin
}

func canReadAppointment(actor domain.Identity, a *domain.Appointment) bool {
	return a.OwnerID == actor.UserID || actor.Role.IsStaff()
}

// canSetAppointmentStatus: staff drive the workflow, owners may only cancel.
func canSetAppointmentStatus(actor domain.Identity, a *domain.Appointment, next domain.AppointmentStatus) bool {
	if actor.Role.IsStaff() {
		return true
	}
	return a.OwnerID == actor.UserID && next == domain.AppointmentCancelled
}

func requireStaff(actor domain.Identity) error {
	if !actor.Role.IsStaff() {
		return fmt.Errorf("%w: requires veterinarian or admin role", domain.ErrForbidden)
	}
	return nil
}

func requireAdmin(actor domain.Identity) error {
	if actor.Role != domain.RoleAdmin {
		return fmt.Errorf("%w: requires admin role", domain.ErrForbidden)
	}
	return nil
}
