package app

import (
	"context"
	"errors"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/pscheid92/pawpulse/internal/adapter/metrics"
	"github.com/pscheid92/pawpulse/internal/domain"
)

// --- In-memory repositories ---

type memProfiles struct {
	mu       sync.Mutex
	profiles map[uuid.UUID]domain.Profile
}

func (m *memProfiles) GetByID(_ context.Context, id uuid.UUID) (*domain.Profile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.profiles[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &p, nil
}

func (m *memProfiles) Upsert(_ context.Context, p *domain.Profile) (*domain.Profile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.profiles[p.ID] = *p
	out := *p
	return &out, nil
}

func (m *memProfiles) UpdateDisplayName(_ context.Context, id uuid.UUID, displayName string) (*domain.Profile, error) {
	return m.update(id, func(p *domain.Profile) { p.DisplayName = displayName })
}

func (m *memProfiles) UpdateRole(_ context.Context, id uuid.UUID, role domain.Role) (*domain.Profile, error) {
	return m.update(id, func(p *domain.Profile) { p.Role = role })
}

func (m *memProfiles) update(id uuid.UUID, fn func(*domain.Profile)) (*domain.Profile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.profiles[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	fn(&p)
	m.profiles[id] = p
	return &p, nil
}

type memPets struct {
	mu   sync.Mutex
	pets map[uuid.UUID]domain.Pet
}

func (m *memPets) Create(_ context.Context, p *domain.Pet) (*domain.Pet, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := *p
	out.ID = uuid.New()
	m.pets[out.ID] = out
	return &out, nil
}

func (m *memPets) GetByID(_ context.Context, id uuid.UUID) (*domain.Pet, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.pets[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &p, nil
}

func (m *memPets) ListByOwner(_ context.Context, ownerID uuid.UUID) ([]domain.Pet, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.Pet
	for _, p := range m.pets {
		if p.OwnerID == ownerID {
			out = append(out, p)
		}
	}
	return out, nil
}

func (m *memPets) ListAll(_ context.Context) ([]domain.Pet, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]domain.Pet, 0, len(m.pets))
	for _, p := range m.pets {
		out = append(out, p)
	}
	return out, nil
}

func (m *memPets) Update(_ context.Context, p *domain.Pet) (*domain.Pet, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.pets[p.ID]; !ok {
		return nil, domain.ErrNotFound
	}
	m.pets[p.ID] = *p
	out := *p
	return &out, nil
}

func (m *memPets) Delete(_ context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.pets[id]; !ok {
		return domain.ErrNotFound
	}
	delete(m.pets, id)
	return nil
}

type memAppointments struct {
	mu           sync.Mutex
	appointments map[uuid.UUID]domain.Appointment
	listErr      error

	// afterGet runs once GetByID has read, to interleave a competing write.
	afterGet func(id uuid.UUID)
}

func (m *memAppointments) Create(_ context.Context, a *domain.Appointment) (*domain.Appointment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := *a
	out.ID = uuid.New()
	m.appointments[out.ID] = out
	return &out, nil
}

func (m *memAppointments) GetByID(_ context.Context, id uuid.UUID) (*domain.Appointment, error) {
	m.mu.Lock()
	a, ok := m.appointments[id]
	hook := m.afterGet
	m.mu.Unlock()

	if !ok {
		return nil, domain.ErrNotFound
	}
	if hook != nil {
		hook(id)
	}
	return &a, nil
}

func (m *memAppointments) setStatus(id uuid.UUID, status domain.AppointmentStatus) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a := m.appointments[id]
	a.Status = status
	m.appointments[id] = a
}

func (m *memAppointments) ListByOwner(_ context.Context, ownerID uuid.UUID) ([]domain.Appointment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.Appointment
	for _, a := range m.appointments {
		if a.OwnerID == ownerID {
			out = append(out, a)
		}
	}
	return out, nil
}

func (m *memAppointments) ListAll(_ context.Context) ([]domain.Appointment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]domain.Appointment, 0, len(m.appointments))
	for _, a := range m.appointments {
		out = append(out, a)
	}
	return out, nil
}

func (m *memAppointments) UpdateStatus(_ context.Context, id uuid.UUID, from, to domain.AppointmentStatus, vetID *uuid.UUID, notes string) (*domain.Appointment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.appointments[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	if a.Status != from {
		return nil, domain.ErrInvalidTransition
	}
	a.Status = to
	if vetID != nil {
		a.VeterinarianID = vetID
	}
	if notes != "" {
		a.Notes = notes
	}
	m.appointments[id] = a
	return &a, nil
}

func (m *memAppointments) ListDueReminders(_ context.Context, from, until time.Time) ([]domain.Appointment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.listErr != nil {
		return nil, m.listErr
	}
	var out []domain.Appointment
	for _, a := range m.appointments {
		open := a.Status == domain.AppointmentPending || a.Status == domain.AppointmentConfirmed
		inWindow := !a.ScheduledAt.Before(from) && !a.ScheduledAt.After(until)
		if open && inWindow && a.ReminderSentAt == nil {
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ScheduledAt.Before(out[j].ScheduledAt) })
	return out, nil
}

func (m *memAppointments) MarkReminderSent(_ context.Context, id uuid.UUID, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.appointments[id]
	if !ok || a.ReminderSentAt != nil {
		return domain.ErrNotFound
	}
	a.ReminderSentAt = &at
	m.appointments[id] = a
	return nil
}

type memArticles struct {
	mu       sync.Mutex
	articles map[uuid.UUID]domain.Article
}

func (m *memArticles) Create(_ context.Context, a *domain.Article) (*domain.Article, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := *a
	out.ID = uuid.New()
	m.articles[out.ID] = out
	return &out, nil
}

func (m *memArticles) GetByID(_ context.Context, id uuid.UUID) (*domain.Article, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.articles[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &a, nil
}

func (m *memArticles) List(_ context.Context, includeDrafts bool) ([]domain.Article, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.Article
	for _, a := range m.articles {
		if a.Published || includeDrafts {
			out = append(out, a)
		}
	}
	return out, nil
}

func (m *memArticles) Publish(_ context.Context, id uuid.UUID, at time.Time) (*domain.Article, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.articles[id]
	if !ok {
		return nil, false, domain.ErrNotFound
	}
	if a.Published {
		return &a, false, nil
	}
	if a.PublishedAt == nil {
		a.PublishedAt = &at
	}
	a.Published = true
	m.articles[id] = a
	return &a, true, nil
}

func (m *memArticles) Delete(_ context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.articles[id]; !ok {
		return domain.ErrNotFound
	}
	delete(m.articles, id)
	return nil
}

type memNotifications struct {
	mu            sync.Mutex
	notifications []domain.Notification
	createErr     error
}

func (m *memNotifications) Create(_ context.Context, n domain.NewNotification) (*domain.Notification, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.createErr != nil {
		return nil, m.createErr
	}
	out := domain.Notification{
		ID:       uuid.New(),
		UserID:   n.UserID,
		PetID:    n.PetID,
		Type:     n.Type,
		Title:    n.Title,
		Message:  n.Message,
		DueDate:  n.DueDate,
		Priority: n.Priority,
	}
	m.notifications = append(m.notifications, out)
	return &out, nil
}

func (m *memNotifications) ListByUser(_ context.Context, userID uuid.UUID, unreadOnly bool) ([]domain.Notification, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.Notification
	for _, n := range m.notifications {
		if n.UserID == userID && (!unreadOnly || !n.Read) {
			out = append(out, n)
		}
	}
	return out, nil
}

func (m *memNotifications) CountUnread(ctx context.Context, userID uuid.UUID) (int, error) {
	list, _ := m.ListByUser(ctx, userID, true)
	return len(list), nil
}

func (m *memNotifications) MarkRead(_ context.Context, userID, id uuid.UUID) error {
	return m.mutate(userID, id, func(n *domain.Notification) { n.Read = true })
}

func (m *memNotifications) MarkAllRead(_ context.Context, userID uuid.UUID) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var count int64
	for i := range m.notifications {
		if m.notifications[i].UserID == userID && !m.notifications[i].Read {
			m.notifications[i].Read = true
			count++
		}
	}
	return count, nil
}

func (m *memNotifications) MarkCompleted(_ context.Context, userID, id uuid.UUID) error {
	return m.mutate(userID, id, func(n *domain.Notification) { n.Completed = true })
}

func (m *memNotifications) Delete(_ context.Context, userID, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, n := range m.notifications {
		if n.ID == id && n.UserID == userID {
			m.notifications = append(m.notifications[:i], m.notifications[i+1:]...)
			return nil
		}
	}
	return domain.ErrNotFound
}

func (m *memNotifications) DeleteAll(_ context.Context, userID uuid.UUID) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	kept := m.notifications[:0]
	var removed int64
	for _, n := range m.notifications {
		if n.UserID == userID {
			removed++
			continue
		}
		kept = append(kept, n)
	}
	m.notifications = kept
	return removed, nil
}

func (m *memNotifications) mutate(userID, id uuid.UUID, fn func(*domain.Notification)) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.notifications {
		if m.notifications[i].ID == id && m.notifications[i].UserID == userID {
			fn(&m.notifications[i])
			return nil
		}
	}
	return domain.ErrNotFound
}

func (m *memNotifications) forUser(userID uuid.UUID) []domain.Notification {
	list, _ := m.ListByUser(context.Background(), userID, false)
	return list
}

// --- Realtime doubles ---

type pushed struct {
	Target  domain.TargetKind
	Key     string
	Event   string
	Payload any
}

type recordingNotifier struct {
	mu     sync.Mutex
	pushes []pushed
	panics bool
}

func (r *recordingNotifier) record(target domain.TargetKind, key, event string, payload any) int {
	if r.panics {
		panic("dispatcher exploded")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.pushes = append(r.pushes, pushed{Target: target, Key: key, Event: event, Payload: payload})
	return 1
}

func (r *recordingNotifier) SendToUser(_ context.Context, userID uuid.UUID, event string, payload any) int {
	return r.record(domain.TargetUser, userID.String(), event, payload)
}

func (r *recordingNotifier) SendToRole(_ context.Context, role domain.Role, event string, payload any) int {
	return r.record(domain.TargetRole, string(role), event, payload)
}

func (r *recordingNotifier) Broadcast(_ context.Context, event string, payload any) int {
	return r.record(domain.TargetBroadcast, "", event, payload)
}

func (r *recordingNotifier) all() []pushed {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]pushed(nil), r.pushes...)
}

type recordingInvalidator struct {
	mu  sync.Mutex
	ids []uuid.UUID
	err error
}

func (r *recordingInvalidator) InvalidateProfile(_ context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ids = append(r.ids, id)
	return r.err
}

type fakeLease struct {
	held     bool
	err      error
	released bool
}

func (f *fakeLease) AcquireOrRenew(context.Context) (bool, error) { return f.held, f.err }

func (f *fakeLease) Release(context.Context) error {
	f.released = true
	return nil
}

// --- Fixture ---

var testNow = time.Date(2026, 5, 4, 9, 0, 0, 0, time.UTC)

type fixture struct {
	svc           *Service
	clock         *clockwork.FakeClock
	profiles      *memProfiles
	pets          *memPets
	appointments  *memAppointments
	articles      *memArticles
	notifications *memNotifications
	notifier      *recordingNotifier
	invalidator   *recordingInvalidator
	metrics       *metrics.NotificationMetrics

	owner domain.Identity
	other domain.Identity
	vet   domain.Identity
	admin domain.Identity
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	f := &fixture{
		clock:         clockwork.NewFakeClockAt(testNow),
		profiles:      &memProfiles{profiles: make(map[uuid.UUID]domain.Profile)},
		pets:          &memPets{pets: make(map[uuid.UUID]domain.Pet)},
		appointments:  &memAppointments{appointments: make(map[uuid.UUID]domain.Appointment)},
		articles:      &memArticles{articles: make(map[uuid.UUID]domain.Article)},
		notifications: &memNotifications{},
		notifier:      &recordingNotifier{},
		invalidator:   &recordingInvalidator{},
		metrics:       metrics.NewNotificationMetrics(prometheus.NewRegistry()),
	}
	f.owner = f.addProfile("Olivia", domain.RoleUser)
	f.other = f.addProfile("Noah", domain.RoleUser)
	f.vet = f.addProfile("Dr. Vega", domain.RoleVeterinarian)
	f.admin = f.addProfile("Ada", domain.RoleAdmin)

	repos := Repositories{
		Profiles:      f.profiles,
		Pets:          f.pets,
		Appointments:  f.appointments,
		Articles:      f.articles,
		Notifications: f.notifications,
	}
	f.svc = NewService(repos, f.notifier, f.invalidator, f.clock, f.metrics)
	return f
}

func (f *fixture) addProfile(name string, role domain.Role) domain.Identity {
	p := domain.Profile{ID: uuid.New(), Email: name + "@example.com", DisplayName: name, Role: role}
	f.profiles.profiles[p.ID] = p
	return p.Identity()
}

func (f *fixture) addPet(owner domain.Identity, name string) *domain.Pet {
	p := domain.Pet{ID: uuid.New(), OwnerID: owner.UserID, Name: name, Species: "dog"}
	f.pets.pets[p.ID] = p
	return &p
}

func (f *fixture) addAppointment(pet *domain.Pet, at time.Time, status domain.AppointmentStatus) *domain.Appointment {
	a := domain.Appointment{
		ID:          uuid.New(),
		PetID:       pet.ID,
		OwnerID:     pet.OwnerID,
		ScheduledAt: at,
		Reason:      "Annual checkup",
		Status:      status,
	}
	f.appointments.appointments[a.ID] = a
	return &a
}

var errBoom = errors.New("boom")
