package httpserver

import (
	"errors"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/pscheid92/pawpulse/internal/domain"
	apperrors "github.com/pscheid92/pawpulse/internal/platform/errors"
)

const (
	identityKey = "identity"
	userIDKey   = "userID"

	accessTokenCookie = "access_token"
)

// requireAuth resolves the bearer credential (Authorization header, falling
// back to the access_token cookie) and stores the caller's identity.
func (s *Server) requireAuth(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		credential := credentialFromRequest(c)
		if credential == "" {
			return apperrors.UnauthorizedError("authentication required")
		}

		identity, err := s.auth.Authenticate(c.Request().Context(), credential)
		switch {
		case errors.Is(err, domain.ErrInvalidCredential):
			return apperrors.UnauthorizedError("authentication required").WithField("reason", "invalid_credential")
		case errors.Is(err, domain.ErrProfileNotFound):
			return apperrors.UnauthorizedError("authentication required").WithField("reason", "profile_not_found")
		case err != nil:
			return apperrors.ExternalError("identity lookup failed", err)
		}

		c.Set(identityKey, *identity)
		c.Set(userIDKey, identity.UserID.String())
		return next(c)
	}
}

func credentialFromRequest(c echo.Context) string {
	if h := c.Request().Header.Get(echo.HeaderAuthorization); h != "" {
		if token, ok := strings.CutPrefix(h, "Bearer "); ok {
			return strings.TrimSpace(token)
		}
	}
	if cookie, err := c.Cookie(accessTokenCookie); err == nil {
		return cookie.Value
	}
	return ""
}

// identityFrom returns the identity stored by requireAuth.
func identityFrom(c echo.Context) domain.Identity {
	id, _ := c.Get(identityKey).(domain.Identity)
	return id
}
