package httpserver

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/pscheid92/pawpulse/internal/domain"
)

type updateMeRequest struct {
	DisplayName string `json:"displayName"`
}

type updateRoleRequest struct {
	Role string `json:"role"`
}

func (s *Server) handleGetMe(c echo.Context) error {
	p, err := s.app.GetProfile(c.Request().Context(), identityFrom(c))
	if err != nil {
		return err
	}
	return writeJSON(c, http.StatusOK, newProfileResponse(p))
}

func (s *Server) handleUpdateMe(c echo.Context) error {
	var req updateMeRequest
	if err := c.Bind(&req); err != nil {
		return err
	}
	p, err := s.app.UpdateDisplayName(c.Request().Context(), identityFrom(c), req.DisplayName)
	if err != nil {
		return err
	}
	return writeJSON(c, http.StatusOK, newProfileResponse(p))
}

func (s *Server) handleUpdateRole(c echo.Context) error {
	userID, err := pathID(c)
	if err != nil {
		return err
	}
	var req updateRoleRequest
	if err := c.Bind(&req); err != nil {
		return err
	}
	role, err := domain.ParseRole(req.Role)
	if err != nil {
		return err
	}

	p, err := s.app.UpdateRole(c.Request().Context(), identityFrom(c), userID, role)
	if err != nil {
		return err
	}
	return writeJSON(c, http.StatusOK, newProfileResponse(p))
}
