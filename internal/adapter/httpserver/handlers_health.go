package httpserver

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/pscheid92/pawpulse/internal/platform/version"
)

const (
	startupProbeTimeout   = 2 * time.Second
	readinessProbeTimeout = 5 * time.Second
)

// HealthCheck is a named dependency probe, e.g. a Postgres or Redis ping.
type HealthCheck struct {
	Name  string
	Check func(ctx context.Context) error
}

type livenessResponse struct {
	Status      string  `json:"status"`
	Uptime      float64 `json:"uptime"`
	Connections *int    `json:"connections,omitempty"`
}

type probeResponse struct {
	Status      string            `json:"status"`
	Checks      map[string]string `json:"checks,omitempty"`
	FailedCheck string            `json:"failed_check,omitempty"`
	Error       string            `json:"error,omitempty"`
}

func (s *Server) registerHealthRoutes() {
	s.echo.GET("/health/startup", s.probe(startupProbeTimeout))
	s.echo.GET("/health/live", s.handleLiveness)
	s.echo.GET("/health/ready", s.probe(readinessProbeTimeout))
	s.echo.GET("/version", s.handleVersion)
}

func (s *Server) handleLiveness(c echo.Context) error {
	resp := livenessResponse{
		Status: "ok",
		Uptime: time.Since(s.startTime).Seconds(),
	}
	if s.connections != nil {
		n := s.connections.CountConnections()
		resp.Connections = &n
	}
	return writeJSON(c, http.StatusOK, resp)
}

// probe runs every check under one deadline. The first failure decides the
// 503; the remaining checks still run so the body shows the full picture.
func (s *Server) probe(timeout time.Duration) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx, cancel := context.WithTimeout(c.Request().Context(), timeout)
		defer cancel()

		resp := probeResponse{Status: "ready"}
		if len(s.healthChecks) > 0 {
			resp.Checks = make(map[string]string, len(s.healthChecks))
		}

		for _, hc := range s.healthChecks {
			if err := hc.Check(ctx); err != nil {
				slog.WarnContext(ctx, "Health check failed", "check", hc.Name, "error", err)
				resp.Checks[hc.Name] = "failed"
				if resp.FailedCheck == "" {
					resp.Status = "unhealthy"
					resp.FailedCheck = hc.Name
					resp.Error = err.Error()
				}
				continue
			}
			resp.Checks[hc.Name] = "ok"
		}

		status := http.StatusOK
		if resp.FailedCheck != "" {
			status = http.StatusServiceUnavailable
		}
		return writeJSON(c, status, resp)
	}
}

func (s *Server) handleVersion(c echo.Context) error {
	return writeJSON(c, http.StatusOK, version.Get())
}
