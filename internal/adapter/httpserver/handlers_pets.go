package httpserver

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/pscheid92/pawpulse/internal/app"
	apperrors "github.com/pscheid92/pawpulse/internal/platform/errors"
)

type petRequest struct {
	Name      string   `json:"name"`
	Species   string   `json:"species"`
	Breed     string   `json:"breed"`
	BirthDate string   `json:"birthDate"`
	WeightKg  *float64 `json:"weightKg"`
	Notes     string   `json:"notes"`
}

// changes accepts birth dates either as YYYY-MM-DD or RFC 3339.
func (r petRequest) changes() (app.PetChanges, error) {
	c := app.PetChanges{
		Name:     r.Name,
		Species:  r.Species,
		Breed:    r.Breed,
		WeightKg: r.WeightKg,
		Notes:    r.Notes,
	}
	if r.BirthDate == "" {
		return c, nil
	}

	t, err := time.Parse(time.DateOnly, r.BirthDate)
	if err != nil {
		t, err = time.Parse(time.RFC3339, r.BirthDate)
	}
	if err != nil {
		return c, apperrors.ValidationError("birthDate must be YYYY-MM-DD").WithField("birthDate", r.BirthDate)
	}
	c.BirthDate = &t
	return c, nil
}

func (s *Server) handleListPets(c echo.Context) error {
	pets, err := s.app.ListPets(c.Request().Context(), identityFrom(c))
	if err != nil {
		return err
	}
	return writeJSON(c, http.StatusOK, mapSlice(pets, newPetResponse))
}

func (s *Server) handleCreatePet(c echo.Context) error {
	var req petRequest
	if err := c.Bind(&req); err != nil {
		return err
	}
	changes, err := req.changes()
	if err != nil {
		return err
	}

	pet, err := s.app.CreatePet(c.Request().Context(), identityFrom(c), changes)
	if err != nil {
		return err
	}
	return writeJSON(c, http.StatusCreated, newPetResponse(*pet))
}

func (s *Server) handleGetPet(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}
	pet, err := s.app.GetPet(c.Request().Context(), identityFrom(c), id)
	if err != nil {
		return err
	}
	return writeJSON(c, http.StatusOK, newPetResponse(*pet))
}

func (s *Server) handleUpdatePet(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}
	var req petRequest
	if err := c.Bind(&req); err != nil {
		return err
	}
	changes, err := req.changes()
	if err != nil {
		return err
	}

	pet, err := s.app.UpdatePet(c.Request().Context(), identityFrom(c), id, changes)
	if err != nil {
		return err
	}
	return writeJSON(c, http.StatusOK, newPetResponse(*pet))
}

func (s *Server) handleDeletePet(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}
	if err := s.app.DeletePet(c.Request().Context(), identityFrom(c), id); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}
