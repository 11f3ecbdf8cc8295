package httpserver

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"golang.org/x/time/rate"
)

const rateLimiterExpiry = 5 * time.Minute

// newRateLimiter limits requests per client IP.
func newRateLimiter(ratePerSecond float64, burst int) echo.MiddlewareFunc {
	return rateLimiterBy(ratePerSecond, burst, func(c echo.Context) (string, error) {
		return c.RealIP(), nil
	})
}

// newUserRateLimiter limits requests per authenticated user. It must run
// after requireAuth; anonymous requests fall back to the client IP.
func newUserRateLimiter(ratePerSecond float64, burst int) echo.MiddlewareFunc {
	return rateLimiterBy(ratePerSecond, burst, func(c echo.Context) (string, error) {
		if userID, ok := c.Get(userIDKey).(string); ok && userID != "" {
			return "user:" + userID, nil
		}
		return c.RealIP(), nil
	})
}

func rateLimiterBy(ratePerSecond float64, burst int, identify middleware.Extractor) echo.MiddlewareFunc {
	store := middleware.NewRateLimiterMemoryStoreWithConfig(
		middleware.RateLimiterMemoryStoreConfig{
			Rate:      rate.Limit(ratePerSecond),
			Burst:     burst,
			ExpiresIn: rateLimiterExpiry,
		},
	)
	return middleware.RateLimiterWithConfig(middleware.RateLimiterConfig{
		IdentifierExtractor: identify,
		Store:               store,
		DenyHandler: func(c echo.Context, identifier string, err error) error {
			return c.JSON(http.StatusTooManyRequests, map[string]string{
				"error": "rate limit exceeded",
			})
		},
	})
}
