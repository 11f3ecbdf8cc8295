package metrics

import "github.com/prometheus/client_golang/prometheus"

// NotificationMetrics tracks durable notification side effects of business operations.
type NotificationMetrics struct {
	Created          *prometheus.CounterVec
	SideEffectErrors *prometheus.CounterVec
	RemindersSent    prometheus.Counter
}

// NewNotificationMetrics creates and registers notification metrics on the given registry.
func NewNotificationMetrics(reg prometheus.Registerer) *NotificationMetrics {
	m := &NotificationMetrics{
		Created: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "notifications",
			Name:      "created_total",
			Help:      "Total number of notification records created, by type.",
		}, []string{"type"}),
		SideEffectErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "notifications",
			Name:      "side_effect_errors_total",
			Help:      "Total number of best-effort side effects that failed, by stage.",
		}, []string{"stage"}),
		RemindersSent: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "notifications",
			Name:      "reminders_sent_total",
			Help:      "Total number of appointment reminders sent.",
		}),
	}

	reg.MustRegister(m.Created, m.SideEffectErrors, m.RemindersSent)
	return m
}
