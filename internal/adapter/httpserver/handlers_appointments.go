package httpserver

import (
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/pscheid92/pawpulse/internal/app"
	"github.com/pscheid92/pawpulse/internal/domain"
)

type bookAppointmentRequest struct {
	PetID       uuid.UUID `json:"petId"`
	ScheduledAt time.Time `json:"scheduledAt"`
	Reason      string    `json:"reason"`
}

type updateStatusRequest struct {
	Status string `json:"status"`
	Notes  string `json:"notes"`
}

func (s *Server) handleListAppointments(c echo.Context) error {
	list, err := s.app.ListAppointments(c.Request().Context(), identityFrom(c))
	if err != nil {
		return err
	}
	return writeJSON(c, http.StatusOK, mapSlice(list, newAppointmentResponse))
}

func (s *Server) handleBookAppointment(c echo.Context) error {
	var req bookAppointmentRequest
	if err := c.Bind(&req); err != nil {
		return err
	}

	appt, err := s.app.BookAppointment(c.Request().Context(), identityFrom(c), app.BookingRequest{
		PetID:       req.PetID,
		ScheduledAt: req.ScheduledAt,
		Reason:      req.Reason,
	})
	if err != nil {
		return err
	}
	return writeJSON(c, http.StatusCreated, newAppointmentResponse(*appt))
}

func (s *Server) handleGetAppointment(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}
	appt, err := s.app.GetAppointment(c.Request().Context(), identityFrom(c), id)
	if err != nil {
		return err
	}
	return writeJSON(c, http.StatusOK, newAppointmentResponse(*appt))
}

func (s *Server) handleUpdateAppointmentStatus(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}
	var req updateStatusRequest
	if err := c.Bind(&req); err != nil {
		return err
	}
	status, err := domain.ParseAppointmentStatus(req.Status)
	if err != nil {
		return err
	}

	appt, err := s.app.UpdateAppointmentStatus(c.Request().Context(), identityFrom(c), id, status, req.Notes)
	if err != nil {
		return err
	}
	return writeJSON(c, http.StatusOK, newAppointmentResponse(*appt))
}
