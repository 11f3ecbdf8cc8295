package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/pscheid92/pawpulse/internal/domain"
)

const notificationColumns = `id, user_id, pet_id, type, title, message, due_date, priority, read, completed, created_at`

type notificationRow struct {
	ID        uuid.UUID  `db:"id"`
	UserID    uuid.UUID  `db:"user_id"`
	PetID     *uuid.UUID `db:"pet_id"`
	Type      string     `db:"type"`
	Title     string     `db:"title"`
	Message   string     `db:"message"`
	DueDate   *time.Time `db:"due_date"`
	Priority  string     `db:"priority"`
	Read      bool       `db:"read"`
	Completed bool       `db:"completed"`
	CreatedAt time.Time  `db:"created_at"`
}

func (r notificationRow) toDomain() domain.Notification {
	return domain.Notification{
		ID:        r.ID,
		UserID:    r.UserID,
		PetID:     r.PetID,
		Type:      domain.NotificationType(r.Type),
		Title:     r.Title,
		Message:   r.Message,
		DueDate:   r.DueDate,
		Priority:  domain.Priority(r.Priority),
		Read:      r.Read,
		Completed: r.Completed,
		CreatedAt: r.CreatedAt,
	}
}

type NotificationRepo struct {
	pool *pgxpool.Pool
}

func NewNotificationRepo(pool *pgxpool.Pool) *NotificationRepo {
	return &NotificationRepo{pool: pool}
}

func (r *NotificationRepo) Create(ctx context.Context, n domain.NewNotification) (*domain.Notification, error) {
	rows, _ := r.pool.Query(ctx, `
		INSERT INTO notifications (user_id, pet_id, type, title, message, due_date, priority)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING `+notificationColumns,
		n.UserID, n.PetID, string(n.Type), n.Title, n.Message, n.DueDate, string(n.Priority))
	row, err := pgx.CollectExactlyOneRow(rows, pgx.RowToStructByName[notificationRow])
	if err != nil {
		return nil, fmt.Errorf("failed to create notification: %w", err)
	}
	created := row.toDomain()
	return &created, nil
}

// ListByUser returns the user's notifications, newest first.
func (r *NotificationRepo) ListByUser(ctx context.Context, userID uuid.UUID, unreadOnly bool) ([]domain.Notification, error) {
	rows, _ := r.pool.Query(ctx, `
		SELECT `+notificationColumns+`
		FROM notifications
		WHERE user_id = $1 AND (NOT $2 OR NOT read)
		ORDER BY created_at DESC, id`,
		userID, unreadOnly)
	collected, err := pgx.CollectRows(rows, pgx.RowToStructByName[notificationRow])
	if err != nil {
		return nil, fmt.Errorf("failed to list notifications: %w", err)
	}
	out := make([]domain.Notification, 0, len(collected))
	for _, row := range collected {
		out = append(out, row.toDomain())
	}
	return out, nil
}

func (r *NotificationRepo) CountUnread(ctx context.Context, userID uuid.UUID) (int, error) {
	var count int
	err := r.pool.QueryRow(ctx, `SELECT count(*) FROM notifications WHERE user_id = $1 AND NOT read`, userID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count unread notifications: %w", err)
	}
	return count, nil
}

func (r *NotificationRepo) MarkRead(ctx context.Context, userID, id uuid.UUID) error {
	return r.execOwned(ctx, "mark notification read",
		`UPDATE notifications SET read = true WHERE id = $1 AND user_id = $2`, id, userID)
}

func (r *NotificationRepo) MarkAllRead(ctx context.Context, userID uuid.UUID) (int64, error) {
	tag, err := r.pool.Exec(ctx, `UPDATE notifications SET read = true WHERE user_id = $1 AND NOT read`, userID)
	if err != nil {
		return 0, fmt.Errorf("failed to mark all notifications read: %w", err)
	}
	return tag.RowsAffected(), nil
}

func (r *NotificationRepo) MarkCompleted(ctx context.Context, userID, id uuid.UUID) error {
	return r.execOwned(ctx, "mark notification completed",
		`UPDATE notifications SET completed = true, read = true WHERE id = $1 AND user_id = $2`, id, userID)
}

func (r *NotificationRepo) Delete(ctx context.Context, userID, id uuid.UUID) error {
	return r.execOwned(ctx, "delete notification",
		`DELETE FROM notifications WHERE id = $1 AND user_id = $2`, id, userID)
}

func (r *NotificationRepo) DeleteAll(ctx context.Context, userID uuid.UUID) (int64, error) {
	tag, err := r.pool.Exec(ctx, `DELETE FROM notifications WHERE user_id = $1`, userID)
	if err != nil {
		return 0, fmt.Errorf("failed to delete notifications: %w", err)
	}
	return tag.RowsAffected(), nil
}

// execOwned runs a statement scoped to one user's record; no affected row means
// the record does not exist for that user.
func (r *NotificationRepo) execOwned(ctx context.Context, what, sql string, args ...any) error {
	tag, err := r.pool.Exec(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("failed to %s: %w", what, err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}
