package app

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/pscheid92/pawpulse/internal/domain"
)

type ArticleDraft struct {
	Title    string
	Summary  string
	Body     string
	Category string
	Publish  bool
}

// ListArticles returns published articles; staff also see drafts.
func (s *Service) ListArticles(ctx context.Context, actor domain.Identity) ([]domain.Article, error) {
	return s.articles.List(ctx, actor.Role.IsStaff())
}

func (s *Service) GetArticle(ctx context.Context, actor domain.Identity, id uuid.UUID) (*domain.Article, error) {
	article, err := s.articles.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !article.Published && !actor.Role.IsStaff() {
		return nil, fmt.Errorf("%w: article %s", domain.ErrNotFound, id)
	}
	return article, nil
}

func (s *Service) CreateArticle(ctx context.Context, actor domain.Identity, d ArticleDraft) (*domain.Article, error) {
	if err := requireStaff(actor); err != nil {
		return nil, err
	}

	article := &domain.Article{
		AuthorID: actor.UserID,
		Title:    d.Title,
		Summary:  d.Summary,
		Body:     d.Body,
		Category: d.Category,
	}
	if err := article.Validate(); err != nil {
		return nil, err
	}

	created, err := s.articles.Create(ctx, article)
	if err != nil {
		return nil, err
	}
	if !d.Publish {
		return created, nil
	}
	return s.PublishArticle(ctx, actor, created.ID)
}

// PublishArticle publishes an article and announces it to every live
// connection. Publishing an already published article announces nothing.
func (s *Service) PublishArticle(ctx context.Context, actor domain.Identity, id uuid.UUID) (*domain.Article, error) {
	if err := requireStaff(actor); err != nil {
		return nil, err
	}

	published, changed, err := s.articles.Publish(ctx, id, s.clock.Now())
	if err != nil {
		return nil, err
	}
	if !changed {
		return published, nil
	}

	slog.InfoContext(ctx, "Article published", "article_id", id, "user_id", actor.UserID)
	s.broadcast(ctx, domain.EventArticlePublished, ArticleEvent{
		ID:          published.ID,
		Title:       published.Title,
		Summary:     published.Summary,
		Category:    published.Category,
		PublishedAt: published.PublishedAt,
	})
	return published, nil
}

func (s *Service) DeleteArticle(ctx context.Context, actor domain.Identity, id uuid.UUID) error {
	if err := requireAdmin(actor); err != nil {
		return err
	}
	return s.articles.Delete(ctx, id)
}
