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

const appointmentColumns = `id, pet_id, owner_id, veterinarian_id, scheduled_at, reason, status, notes,
	reminder_sent_at, created_at, updated_at`

type appointmentRow struct {
	ID             uuid.UUID  `db:"id"`
	PetID          uuid.UUID  `db:"pet_id"`
	OwnerID        uuid.UUID  `db:"owner_id"`
	VeterinarianID *uuid.UUID `db:"veterinarian_id"`
	ScheduledAt    time.Time  `db:"scheduled_at"`
	Reason         string     `db:"reason"`
	Status         string     `db:"status"`
	Notes          string     `db:"notes"`
	ReminderSentAt *time.Time `db:"reminder_sent_at"`
	CreatedAt      time.Time  `db:"created_at"`
	UpdatedAt      time.Time  `db:"updated_at"`
}

func (r appointmentRow) toDomain() domain.Appointment {
	return domain.Appointment{
		ID:             r.ID,
		PetID:          r.PetID,
		OwnerID:        r.OwnerID,
		VeterinarianID: r.VeterinarianID,
		ScheduledAt:    r.ScheduledAt,
		Reason:         r.Reason,
		Status:         domain.AppointmentStatus(r.Status),
		Notes:          r.Notes,
		ReminderSentAt: r.ReminderSentAt,
		CreatedAt:      r.CreatedAt,
		UpdatedAt:      r.UpdatedAt,
	}
}

type AppointmentRepo struct {
	pool *pgxpool.Pool
}

func NewAppointmentRepo(pool *pgxpool.Pool) *AppointmentRepo {
	return &AppointmentRepo{pool: pool}
}

func (r *AppointmentRepo) one(ctx context.Context, what, sql string, args ...any) (*domain.Appointment, error) {
	rows, _ := r.pool.Query(ctx, sql, args...)
	row, err := pgx.CollectExactlyOneRow(rows, pgx.RowToStructByName[appointmentRow])
	if notFound(err) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to %s: %w", what, err)
	}
	a := row.toDomain()
	return &a, nil
}

func (r *AppointmentRepo) many(ctx context.Context, what, sql string, args ...any) ([]domain.Appointment, error) {
	rows, _ := r.pool.Query(ctx, sql, args...)
	collected, err := pgx.CollectRows(rows, pgx.RowToStructByName[appointmentRow])
	if err != nil {
		return nil, fmt.Errorf("failed to %s: %w", what, err)
	}
	out := make([]domain.Appointment, 0, len(collected))
	for _, row := range collected {
		out = append(out, row.toDomain())
	}
	return out, nil
}

func (r *AppointmentRepo) Create(ctx context.Context, a *domain.Appointment) (*domain.Appointment, error) {
	status := a.Status
	if status == "" {
		status = domain.AppointmentPending
	}
	return r.one(ctx, "create appointment", `
		INSERT INTO appointments (pet_id, owner_id, veterinarian_id, scheduled_at, reason, status, notes)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING `+appointmentColumns,
		a.PetID, a.OwnerID, a.VeterinarianID, a.ScheduledAt, a.Reason, string(status), a.Notes)
}

func (r *AppointmentRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Appointment, error) {
	return r.one(ctx, "get appointment",
		`SELECT `+appointmentColumns+` FROM appointments WHERE id = $1`, id)
}

func (r *AppointmentRepo) ListByOwner(ctx context.Context, ownerID uuid.UUID) ([]domain.Appointment, error) {
	return r.many(ctx, "list appointments by owner",
		`SELECT `+appointmentColumns+` FROM appointments WHERE owner_id = $1 ORDER BY scheduled_at DESC, id`, ownerID)
}

func (r *AppointmentRepo) ListAll(ctx context.Context) ([]domain.Appointment, error) {
	return r.many(ctx, "list appointments",
		`SELECT `+appointmentColumns+` FROM appointments ORDER BY scheduled_at DESC, id`)
}

// UpdateStatus moves the appointment from status from to status to. A nil
// veterinarianID keeps the current assignment and empty notes keep the
// current notes. When the stored status is no longer from, nothing is written
// and domain.ErrInvalidTransition is returned.
func (r *AppointmentRepo) UpdateStatus(ctx context.Context, id uuid.UUID, from, to domain.AppointmentStatus, veterinarianID *uuid.UUID, notes string) (*domain.Appointment, error) {
	a, err := r.one(ctx, "update appointment status", `
		UPDATE appointments
		SET status = $2,
		    veterinarian_id = COALESCE($3, veterinarian_id),
		    notes = COALESCE(NULLIF($4, ''), notes),
		    updated_at = now()
		WHERE id = $1 AND status = $5
		RETURNING `+appointmentColumns,
		id, string(to), veterinarianID, notes, string(from))
	if errors.Is(err, domain.ErrNotFound) {
		return nil, fmt.Errorf("%w: appointment %s is no longer %s", domain.ErrInvalidTransition, id, from)
	}
	return a, err
}

func (r *AppointmentRepo) ListDueReminders(ctx context.Context, from, until time.Time) ([]domain.Appointment, error) {
	return r.many(ctx, "list due reminders", `
		SELECT `+appointmentColumns+`
		FROM appointments
		WHERE reminder_sent_at IS NULL
		  AND status IN ('pending', 'confirmed')
		  AND scheduled_at BETWEEN $1 AND $2
		ORDER BY scheduled_at, id`,
		from, until)
}

func (r *AppointmentRepo) MarkReminderSent(ctx context.Context, id uuid.UUID, at time.Time) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE appointments SET reminder_sent_at = $2 WHERE id = $1 AND reminder_sent_at IS NULL`, id, at)
	if err != nil {
		return fmt.Errorf("failed to mark reminder sent: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}
