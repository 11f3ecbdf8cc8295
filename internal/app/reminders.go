package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/pscheid92/pawpulse/internal/domain"
	"github.com/pscheid92/pawpulse/internal/platform/correlation"
)

const leaseReleaseTimeout = 5 * time.Second

// ReminderTicker periodically notifies owners about upcoming appointments.
// Each appointment is reminded at most once: the reminder is claimed in the
// store before the notification is recorded, so concurrent instances never
// both send it. With a lease, only the holder scans at all.
type ReminderTicker struct {
	svc      *Service
	lease    domain.Lease
	interval time.Duration
	leadTime time.Duration
}

// NewReminderTicker creates the ticker. lease may be nil for single-instance deployments.
func NewReminderTicker(svc *Service, lease domain.Lease, interval, leadTime time.Duration) *ReminderTicker {
	return &ReminderTicker{
		svc:      svc,
		lease:    lease,
		interval: interval,
		leadTime: leadTime,
	}
}

// Run starts the periodic reminder loop. It blocks until ctx is cancelled.
func (t *ReminderTicker) Run(ctx context.Context) {
	ticker := t.svc.clock.NewTicker(t.interval)
	defer ticker.Stop()
	defer t.release()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.Chan():
			t.Tick(ctx)
		}
	}
}

// Tick runs one reminder pass and returns how many reminders were sent.
func (t *ReminderTicker) Tick(ctx context.Context) int {
	tickCtx := correlation.WithID(ctx, correlation.NewID())

	if t.lease != nil {
		held, err := t.lease.AcquireOrRenew(tickCtx)
		if err != nil {
			slog.WarnContext(tickCtx, "Reminders: lease check failed, skipping tick", "error", err)
			return 0
		}
		if !held {
			slog.DebugContext(tickCtx, "Reminders: another instance holds the lease")
			return 0
		}
	}

	now := t.svc.clock.Now()
	due, err := t.svc.appointments.ListDueReminders(tickCtx, now, now.Add(t.leadTime))
	if err != nil {
		slog.ErrorContext(tickCtx, "Reminders: listing due appointments failed", "error", err)
		return 0
	}

	sent := t.remindAll(tickCtx, due)
	if sent > 0 {
		slog.InfoContext(tickCtx, "Reminders: sent appointment reminders", "count", sent, "due", len(due))
	}
	return sent
}

func (t *ReminderTicker) remindAll(ctx context.Context, due []domain.Appointment) int {
	now := t.svc.clock.Now()
	sent := 0
	for i := range due {
		if t.remind(ctx, &due[i], now) {
			sent++
		}
	}
	return sent
}

func (t *ReminderTicker) remind(ctx context.Context, appt *domain.Appointment, now time.Time) bool {
	err := t.svc.appointments.MarkReminderSent(ctx, appt.ID, now)
	if errors.Is(err, domain.ErrNotFound) {
		slog.DebugContext(ctx, "Reminders: already claimed", "appointment_id", appt.ID)
		return false
	}
	if err != nil {
		slog.WarnContext(ctx, "Reminders: claim failed", "appointment_id", appt.ID, "error", err)
		return false
	}

	petName := t.svc.petName(ctx, appt.PetID)
	created := t.svc.notifyUser(ctx, domain.NewNotification{
		UserID:   appt.OwnerID,
		PetID:    &appt.PetID,
		Type:     domain.NotificationAppointmentReminder,
		Title:    "Upcoming appointment",
		Message:  fmt.Sprintf("Reminder: %s has an appointment on %s (%s).", petName, formatSchedule(appt.ScheduledAt), appt.Reason),
		DueDate:  &appt.ScheduledAt,
		Priority: domain.PriorityHigh,
	})
	if created == nil {
		return false
	}
	if t.svc.metrics != nil {
		t.svc.metrics.RemindersSent.Inc()
	}
	return true
}

func (t *ReminderTicker) release() {
	if t.lease == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), leaseReleaseTimeout)
	defer cancel()
	if err := t.lease.Release(ctx); err != nil {
		slog.Warn("Reminders: failed to release lease", "error", err)
	}
}
