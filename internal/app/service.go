package app

import (
	"github.com/jonboulle/clockwork"

	"github.com/pscheid92/pawpulse/internal/adapter/metrics"
	"github.com/pscheid92/pawpulse/internal/domain"
)

// Repositories groups the durable stores the service orchestrates.
type Repositories struct {
	Profiles      domain.ProfileRepository
	Pets          domain.PetRepository
	Appointments  domain.AppointmentRepository
	Articles      domain.ArticleRepository
	Notifications domain.NotificationRepository
}

// Service is the application layer, the only component that references multiple
// domain components. It orchestrates all use cases.
type Service struct {
	profiles      domain.ProfileRepository
	pets          domain.PetRepository
	appointments  domain.AppointmentRepository
	articles      domain.ArticleRepository
	notifications domain.NotificationRepository
	notifier      domain.Notifier
	profileCache  domain.ProfileCacheInvalidator
	clock         clockwork.Clock
	metrics       *metrics.NotificationMetrics
}

// NewService creates the application layer service.
// profileCache may be nil when profiles are read straight from the database.
func NewService(repos Repositories, notifier domain.Notifier, profileCache domain.ProfileCacheInvalidator, clock clockwork.Clock, m *metrics.NotificationMetrics) *Service {
	return &Service{
		profiles:      repos.Profiles,
		pets:          repos.Pets,
		appointments:  repos.Appointments,
		articles:      repos.Articles,
		notifications: repos.Notifications,
		notifier:      notifier,
		profileCache:  profileCache,
		clock:         clock,
		metrics:       m,
	}
}
