package domain

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

type Article struct {
	ID          uuid.UUID
	AuthorID    uuid.UUID
	Title       string
	Summary     string
	Body        string
	Category    string
	Published   bool
	PublishedAt *time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

func (a *Article) Validate() error {
	a.Title = strings.TrimSpace(a.Title)
	a.Body = strings.TrimSpace(a.Body)
	a.Summary = strings.TrimSpace(a.Summary)
	a.Category = strings.TrimSpace(a.Category)
	if a.Title == "" {
		return fmt.Errorf("%w: title is required", ErrInvalidInput)
	}
	if a.Body == "" {
		return fmt.Errorf("%w: body is required", ErrInvalidInput)
	}
	return nil
}

type ArticleRepository interface {
	Create(ctx context.Context, a *Article) (*Article, error)
	GetByID(ctx context.Context, id uuid.UUID) (*Article, error)
	// List returns published articles, or all articles when includeDrafts is set.
	List(ctx context.Context, includeDrafts bool) ([]Article, error)
	// Publish marks the article published at at. changed reports whether this
	// call published it; an already published article is returned unchanged.
	Publish(ctx context.Context, id uuid.UUID, at time.Time) (a *Article, changed bool, err error)
	Delete(ctx context.Context, id uuid.UUID) error
}
