package httpserver

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/pscheid92/pawpulse/internal/domain"
	apperrors "github.com/pscheid92/pawpulse/internal/platform/errors"
)

func (s *Server) handleListNotifications(c echo.Context) error {
	unreadOnly := false
	if v := c.QueryParam("unread"); v != "" {
		parsed, err := strconv.ParseBool(v)
		if err != nil {
			return apperrors.ValidationError("unread must be a boolean").WithField("unread", v)
		}
		unreadOnly = parsed
	}

	list, err := s.app.ListNotifications(c.Request().Context(), identityFrom(c), unreadOnly)
	if err != nil {
		return err
	}
	return writeJSON(c, http.StatusOK, mapSlice(list, newNotificationResponse))
}

func (s *Server) handleUnreadCount(c echo.Context) error {
	n, err := s.app.CountUnreadNotifications(c.Request().Context(), identityFrom(c))
	if err != nil {
		return err
	}
	return writeJSON(c, http.StatusOK, map[string]int{"count": n})
}

func (s *Server) handleMarkRead(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}
	if err := s.app.MarkNotificationRead(c.Request().Context(), identityFrom(c), id); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

func (s *Server) handleMarkAllRead(c echo.Context) error {
	n, err := s.app.MarkAllNotificationsRead(c.Request().Context(), identityFrom(c))
	if err != nil {
		return err
	}
	return writeJSON(c, http.StatusOK, map[string]int64{"updated": n})
}

func (s *Server) handleMarkCompleted(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}
	if err := s.app.MarkNotificationCompleted(c.Request().Context(), identityFrom(c), id); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

func (s *Server) handleDeleteNotification(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}
	if err := s.app.DeleteNotification(c.Request().Context(), identityFrom(c), id); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

func (s *Server) handleDeleteAllNotifications(c echo.Context) error {
	n, err := s.app.DeleteAllNotifications(c.Request().Context(), identityFrom(c))
	if err != nil {
		return err
	}
	return writeJSON(c, http.StatusOK, map[string]int64{"deleted": n})
}

type createNotificationRequest struct {
	UserID   uuid.UUID  `json:"userId"`
	PetID    *uuid.UUID `json:"petId"`
	Type     string     `json:"type"`
	Title    string     `json:"title"`
	Message  string     `json:"message"`
	DueDate  *time.Time `json:"dueDate"`
	Priority string     `json:"priority"`
}

func (s *Server) handleCreateNotification(c echo.Context) error {
	var req createNotificationRequest
	if err := c.Bind(&req); err != nil {
		return err
	}

	n, err := s.app.CreateNotification(c.Request().Context(), identityFrom(c), domain.NewNotification{
		UserID:   req.UserID,
		PetID:    req.PetID,
		Type:     domain.NotificationType(req.Type),
		Title:    req.Title,
		Message:  req.Message,
		DueDate:  req.DueDate,
		Priority: domain.Priority(req.Priority),
	})
	if err != nil {
		return err
	}
	return writeJSON(c, http.StatusCreated, newNotificationResponse(*n))
}

// pathID parses the :id route parameter.
func pathID(c echo.Context) (uuid.UUID, error) {
	raw := c.Param("id")
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, apperrors.ValidationError("invalid id").WithField("id", raw)
	}
	return id, nil
}

func writeJSON(c echo.Context, status int, body any) error {
	if err := c.JSON(status, body); err != nil {
		return fmt.Errorf("failed to write response: %w", err)
	}
	return nil
}
