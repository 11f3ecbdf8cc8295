package httpserver

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/pscheid92/pawpulse/internal/app"
)

type createArticleRequest struct {
	Title    string `json:"title"`
	Summary  string `json:"summary"`
	Body     string `json:"body"`
	Category string `json:"category"`
	Publish  bool   `json:"publish"`
}

func (s *Server) handleListArticles(c echo.Context) error {
	list, err := s.app.ListArticles(c.Request().Context(), identityFrom(c))
	if err != nil {
		return err
	}
	return writeJSON(c, http.StatusOK, mapSlice(list, newArticleResponse))
}

func (s *Server) handleGetArticle(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}
	a, err := s.app.GetArticle(c.Request().Context(), identityFrom(c), id)
	if err != nil {
		return err
	}
	return writeJSON(c, http.StatusOK, newArticleResponse(*a))
}

func (s *Server) handleCreateArticle(c echo.Context) error {
	var req createArticleRequest
	if err := c.Bind(&req); err != nil {
		return err
	}

	a, err := s.app.CreateArticle(c.Request().Context(), identityFrom(c), app.ArticleDraft(req))
	if err != nil {
		return err
	}
	return writeJSON(c, http.StatusCreated, newArticleResponse(*a))
}

func (s *Server) handlePublishArticle(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}
	a, err := s.app.PublishArticle(c.Request().Context(), identityFrom(c), id)
	if err != nil {
		return err
	}
	return writeJSON(c, http.StatusOK, newArticleResponse(*a))
}

func (s *Server) handleDeleteArticle(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}
	if err := s.app.DeleteArticle(c.Request().Context(), identityFrom(c), id); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}
