package httpserver

import (
	"log/slog"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
)

const (
	socketRatePerSecond = 1
	socketBurst         = 5
	apiRatePerSecond    = 10
	apiBurst            = 30
	maxBodySize         = "64K"
)

func (s *Server) registerRoutes() {
	s.echo.HTTPErrorHandler = httpErrorHandler

	s.echo.Use(correlationMiddleware)
	s.echo.Use(s.setupRequestLoggerMiddleware())
	s.echo.Use(middleware.Recover())
	if s.httpMetrics != nil {
		s.echo.Use(s.httpMetrics.Middleware())
	}
	s.echo.Use(ErrorHandlingMiddleware())
	s.echo.Use(middleware.SecureWithConfig(middleware.SecureConfig{
		XSSProtection:         "",
		ContentTypeNosniff:    "nosniff",
		XFrameOptions:         "DENY",
		HSTSMaxAge:            63072000, // 2 years; only sent over HTTPS
		HSTSPreloadEnabled:    true,
		ContentSecurityPolicy: "default-src 'none'; frame-ancestors 'none'",
		ReferrerPolicy:        "strict-origin-when-cross-origin",
	}))
	s.echo.Use(s.setupCORSMiddleware())
	s.echo.Use(middleware.BodyLimit(maxBodySize))

	s.registerHealthRoutes()
	if s.metricsHandler != nil {
		s.echo.GET("/metrics", echo.WrapHandler(s.metricsHandler))
	}
	if s.socketHandler != nil {
		s.echo.GET("/socket", echo.WrapHandler(s.socketHandler),
			newRateLimiter(socketRatePerSecond, socketBurst),
			s.socketLimiter.middleware())
	}

	s.registerAPIRoutes()
}

func (s *Server) registerAPIRoutes() {
	api := s.echo.Group("/api", s.requireAuth, newUserRateLimiter(apiRatePerSecond, apiBurst))

	api.GET("/me", s.handleGetMe)
	api.PATCH("/me", s.handleUpdateMe)

	api.GET("/notifications", s.handleListNotifications)
	api.GET("/notifications/unread-count", s.handleUnreadCount)
	api.POST("/notifications/read-all", s.handleMarkAllRead)
	api.DELETE("/notifications", s.handleDeleteAllNotifications)
	api.POST("/notifications/:id/read", s.handleMarkRead)
	api.POST("/notifications/:id/complete", s.handleMarkCompleted)
	api.DELETE("/notifications/:id", s.handleDeleteNotification)

	api.GET("/pets", s.handleListPets)
	api.POST("/pets", s.handleCreatePet)
	api.GET("/pets/:id", s.handleGetPet)
	api.PUT("/pets/:id", s.handleUpdatePet)
	api.DELETE("/pets/:id", s.handleDeletePet)

	api.GET("/appointments", s.handleListAppointments)
	api.POST("/appointments", s.handleBookAppointment)
	api.GET("/appointments/:id", s.handleGetAppointment)
	api.PATCH("/appointments/:id/status", s.handleUpdateAppointmentStatus)

	api.GET("/articles", s.handleListArticles)
	api.POST("/articles", s.handleCreateArticle)
	api.GET("/articles/:id", s.handleGetArticle)
	api.POST("/articles/:id/publish", s.handlePublishArticle)
	api.DELETE("/articles/:id", s.handleDeleteArticle)

	admin := api.Group("/admin")
	admin.POST("/notifications", s.handleCreateNotification)
	admin.PUT("/users/:id/role", s.handleUpdateRole)
	admin.GET("/realtime/stats", s.handleRealtimeStats)
}

func (s *Server) setupRequestLoggerMiddleware() echo.MiddlewareFunc {
	return middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogStatus:  true,
		LogURI:     true,
		LogMethod:  true,
		LogLatency: true,
		LogError:   true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			attrs := []any{
				"method", v.Method,
				"uri", v.URI,
				"status", v.Status,
				"latency", v.Latency,
			}
			if v.Error != nil {
				attrs = append(attrs, "error", v.Error)
			}
			slog.InfoContext(c.Request().Context(), "Request", attrs...)
			return nil
		},
	})
}

// setupCORSMiddleware allows credentialed browser calls from the configured
// origins. Development without a list reflects any origin.
func (s *Server) setupCORSMiddleware() echo.MiddlewareFunc {
	origins := s.config.AllowedOrigins
	if len(origins) == 0 && !s.config.IsProduction() {
		origins = []string{"*"}
	}
	return middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins:     origins,
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{echo.HeaderAuthorization, echo.HeaderContentType, "X-Correlation-ID"},
		ExposeHeaders:    []string{"X-Correlation-ID"},
		AllowCredentials: true,
		MaxAge:           600,

		UnsafeWildcardOriginWithAllowCredentials: !s.config.IsProduction(),
	})
}
