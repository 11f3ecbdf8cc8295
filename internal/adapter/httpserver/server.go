package httpserver

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/pscheid92/pawpulse/internal/adapter/metrics"
	"github.com/pscheid92/pawpulse/internal/app"
	"github.com/pscheid92/pawpulse/internal/domain"
	"github.com/pscheid92/pawpulse/internal/platform/config"
)

type appService interface {
	ListNotifications(ctx context.Context, actor domain.Identity, unreadOnly bool) ([]domain.Notification, error)
	CountUnreadNotifications(ctx context.Context, actor domain.Identity) (int, error)
	MarkNotificationRead(ctx context.Context, actor domain.Identity, id uuid.UUID) error
	MarkAllNotificationsRead(ctx context.Context, actor domain.Identity) (int64, error)
	MarkNotificationCompleted(ctx context.Context, actor domain.Identity, id uuid.UUID) error
	DeleteNotification(ctx context.Context, actor domain.Identity, id uuid.UUID) error
	DeleteAllNotifications(ctx context.Context, actor domain.Identity) (int64, error)
	CreateNotification(ctx context.Context, actor domain.Identity, n domain.NewNotification) (*domain.Notification, error)

	CreatePet(ctx context.Context, actor domain.Identity, c app.PetChanges) (*domain.Pet, error)
	GetPet(ctx context.Context, actor domain.Identity, id uuid.UUID) (*domain.Pet, error)
	ListPets(ctx context.Context, actor domain.Identity) ([]domain.Pet, error)
	UpdatePet(ctx context.Context, actor domain.Identity, id uuid.UUID, c app.PetChanges) (*domain.Pet, error)
	DeletePet(ctx context.Context, actor domain.Identity, id uuid.UUID) error

	BookAppointment(ctx context.Context, actor domain.Identity, req app.BookingRequest) (*domain.Appointment, error)
	GetAppointment(ctx context.Context, actor domain.Identity, id uuid.UUID) (*domain.Appointment, error)
	ListAppointments(ctx context.Context, actor domain.Identity) ([]domain.Appointment, error)
	UpdateAppointmentStatus(ctx context.Context, actor domain.Identity, id uuid.UUID, next domain.AppointmentStatus, notes string) (*domain.Appointment, error)

	ListArticles(ctx context.Context, actor domain.Identity) ([]domain.Article, error)
	GetArticle(ctx context.Context, actor domain.Identity, id uuid.UUID) (*domain.Article, error)
	CreateArticle(ctx context.Context, actor domain.Identity, d app.ArticleDraft) (*domain.Article, error)
	PublishArticle(ctx context.Context, actor domain.Identity, id uuid.UUID) (*domain.Article, error)
	DeleteArticle(ctx context.Context, actor domain.Identity, id uuid.UUID) error

	GetProfile(ctx context.Context, actor domain.Identity) (*domain.Profile, error)
	UpdateDisplayName(ctx context.Context, actor domain.Identity, displayName string) (*domain.Profile, error)
	UpdateRole(ctx context.Context, actor domain.Identity, userID uuid.UUID, role domain.Role) (*domain.Profile, error)
}

// Authenticator resolves a bearer credential to the caller's identity.
type Authenticator interface {
	Authenticate(ctx context.Context, credential string) (*domain.Identity, error)
}

// Realtime groups the live-connection surface the server exposes.
// Any field may be nil.
type Realtime struct {
	Socket      http.Handler
	Connections domain.ConnectionCounter
	Instances   domain.InstanceDirectory
}

type Server struct {
	echo   *echo.Echo
	config *config.Config

	app         appService
	auth        Authenticator
	connections domain.ConnectionCounter
	instances   domain.InstanceDirectory

	socketHandler  http.Handler
	socketLimiter  *ipConnectionLimiter
	metricsHandler http.Handler
	httpMetrics    *metrics.HTTPMetrics

	healthChecks []HealthCheck
	startTime    time.Time
}

func NewServer(cfg *config.Config, svc appService, auth Authenticator, rt Realtime, healthChecks []HealthCheck, metricsHandler http.Handler, httpMetrics *metrics.HTTPMetrics) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	srv := &Server{
		echo:           e,
		config:         cfg,
		app:            svc,
		auth:           auth,
		connections:    rt.Connections,
		instances:      rt.Instances,
		socketHandler:  rt.Socket,
		socketLimiter:  newIPConnectionLimiter(cfg.MaxConnectionsPerIP),
		metricsHandler: metricsHandler,
		httpMetrics:    httpMetrics,
		healthChecks:   healthChecks,
		startTime:      time.Now(),
	}

	srv.registerRoutes()
	return srv
}

func (s *Server) Start() error {
	slog.Info("Starting server", "port", s.config.Port)
	if err := s.echo.Start(":" + s.config.Port); err != nil {
		return fmt.Errorf("failed to start server: %w", err)
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	if err := s.echo.Shutdown(ctx); err != nil {
		return fmt.Errorf("failed to shutdown server: %w", err)
	}
	return nil
}

// ServeHTTP exposes the router, mainly for tests.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.echo.ServeHTTP(w, r)
}
