package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/pscheid92/pawpulse/internal/domain"
)

const articleColumns = `id, author_id, title, summary, body, category, published, published_at, created_at, updated_at`

type articleRow struct {
	ID          uuid.UUID  `db:"id"`
	AuthorID    uuid.UUID  `db:"author_id"`
	Title       string     `db:"title"`
	Summary     string     `db:"summary"`
	Body        string     `db:"body"`
	Category    string     `db:"category"`
	Published   bool       `db:"published"`
	PublishedAt *time.Time `db:"published_at"`
	CreatedAt   time.Time  `db:"created_at"`
	UpdatedAt   time.Time  `db:"updated_at"`
}

type ArticleRepo struct {
	pool *pgxpool.Pool
}

func NewArticleRepo(pool *pgxpool.Pool) *ArticleRepo {
	return &ArticleRepo{pool: pool}
}

func (r *ArticleRepo) one(ctx context.Context, what, sql string, args ...any) (*domain.Article, error) {
	rows, _ := r.pool.Query(ctx, sql, args...)
	row, err := pgx.CollectExactlyOneRow(rows, pgx.RowToStructByName[articleRow])
	if notFound(err) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to %s: %w", what, err)
	}
	a := domain.Article(row)
	return &a, nil
}

func (r *ArticleRepo) Create(ctx context.Context, a *domain.Article) (*domain.Article, error) {
	return r.one(ctx, "create article", `
		INSERT INTO articles (author_id, title, summary, body, category)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING `+articleColumns,
		a.AuthorID, a.Title, a.Summary, a.Body, a.Category)
}

func (r *ArticleRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Article, error) {
	return r.one(ctx, "get article", `SELECT `+articleColumns+` FROM articles WHERE id = $1`, id)
}

func (r *ArticleRepo) List(ctx context.Context, includeDrafts bool) ([]domain.Article, error) {
	rows, _ := r.pool.Query(ctx, `
		SELECT `+articleColumns+`
		FROM articles
		WHERE published OR $1
		ORDER BY COALESCE(published_at, created_at) DESC, id`,
		includeDrafts)
	collected, err := pgx.CollectRows(rows, pgx.RowToStructByName[articleRow])
	if err != nil {
		return nil, fmt.Errorf("failed to list articles: %w", err)
	}
	out := make([]domain.Article, 0, len(collected))
	for _, row := range collected {
		out = append(out, domain.Article(row))
	}
	return out, nil
}

// Publish marks a draft published. Only one of several concurrent calls sees
// changed; publishing twice keeps the first timestamp.
func (r *ArticleRepo) Publish(ctx context.Context, id uuid.UUID, at time.Time) (*domain.Article, bool, error) {
	a, err := r.one(ctx, "publish article", `
		UPDATE articles
		SET published = true, published_at = COALESCE(published_at, $2), updated_at = now()
		WHERE id = $1 AND NOT published
		RETURNING `+articleColumns,
		id, at)
	if err == nil {
		return a, true, nil
	}
	if !errors.Is(err, domain.ErrNotFound) {
		return nil, false, err
	}

	// Either already published or gone.
	a, err = r.GetByID(ctx, id)
	if err != nil {
		return nil, false, err
	}
	return a, false, nil
}

func (r *ArticleRepo) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM articles WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete article: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}
