package httpserver

import (
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/pscheid92/pawpulse/internal/domain"
	apperrors "github.com/pscheid92/pawpulse/internal/platform/errors"
)

type realtimeStatsResponse struct {
	Total     int                     `json:"total"`
	ByRole    map[domain.Role]int     `json:"byRole"`
	Instances []domain.InstanceStatus `json:"instances,omitempty"`
}

// handleRealtimeStats reports live-connection counts. Admin only. Counts are
// for this instance; the instance list covers the cluster when available.
func (s *Server) handleRealtimeStats(c echo.Context) error {
	if identityFrom(c).Role != domain.RoleAdmin {
		return apperrors.ForbiddenError("forbidden")
	}

	resp := realtimeStatsResponse{ByRole: make(map[domain.Role]int, len(domain.Roles))}
	for _, r := range domain.Roles {
		resp.ByRole[r] = 0
	}
	if s.connections != nil {
		resp.Total = s.connections.CountConnections()
		for _, r := range domain.Roles {
			resp.ByRole[r] = s.connections.CountConnectionsForRole(r)
		}
	}

	if s.instances != nil {
		instances, err := s.instances.ListInstances(c.Request().Context())
		if err != nil {
			slog.WarnContext(c.Request().Context(), "Failed to list instances", "error", err)
		} else {
			resp.Instances = instances
		}
	}

	return writeJSON(c, http.StatusOK, resp)
}
