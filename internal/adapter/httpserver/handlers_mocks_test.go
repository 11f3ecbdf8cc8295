package httpserver

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"

	"github.com/pscheid92/pawpulse/internal/app"
	"github.com/pscheid92/pawpulse/internal/domain"
	"github.com/pscheid92/pawpulse/internal/platform/config"
)

// --- Mock implementations ---

// mockAppService stubs the calls a test cares about. Anything else panics
// through the nil embedded interface.
type mockAppService struct {
	appService

	listNotificationsFn  func(ctx context.Context, actor domain.Identity, unreadOnly bool) ([]domain.Notification, error)
	markReadFn           func(ctx context.Context, actor domain.Identity, id uuid.UUID) error
	createNotificationFn func(ctx context.Context, actor domain.Identity, n domain.NewNotification) (*domain.Notification, error)
	createPetFn          func(ctx context.Context, actor domain.Identity, c app.PetChanges) (*domain.Pet, error)
	getPetFn             func(ctx context.Context, actor domain.Identity, id uuid.UUID) (*domain.Pet, error)
	bookAppointmentFn    func(ctx context.Context, actor domain.Identity, req app.BookingRequest) (*domain.Appointment, error)
	updateStatusFn       func(ctx context.Context, actor domain.Identity, id uuid.UUID, next domain.AppointmentStatus, notes string) (*domain.Appointment, error)
	createArticleFn      func(ctx context.Context, actor domain.Identity, d app.ArticleDraft) (*domain.Article, error)
	getProfileFn         func(ctx context.Context, actor domain.Identity) (*domain.Profile, error)
	updateRoleFn         func(ctx context.Context, actor domain.Identity, userID uuid.UUID, role domain.Role) (*domain.Profile, error)
}

func (m *mockAppService) ListNotifications(ctx context.Context, actor domain.Identity, unreadOnly bool) ([]domain.Notification, error) {
	if m.listNotificationsFn != nil {
		return m.listNotificationsFn(ctx, actor, unreadOnly)
	}
	return nil, nil
}

func (m *mockAppService) MarkNotificationRead(ctx context.Context, actor domain.Identity, id uuid.UUID) error {
	if m.markReadFn != nil {
		return m.markReadFn(ctx, actor, id)
	}
	return nil
}

func (m *mockAppService) CreateNotification(ctx context.Context, actor domain.Identity, n domain.NewNotification) (*domain.Notification, error) {
	if m.createNotificationFn != nil {
		return m.createNotificationFn(ctx, actor, n)
	}
	return &domain.Notification{ID: uuid.New(), UserID: n.UserID, Type: n.Type, Title: n.Title, Message: n.Message, Priority: n.Priority}, nil
}

func (m *mockAppService) CreatePet(ctx context.Context, actor domain.Identity, c app.PetChanges) (*domain.Pet, error) {
	if m.createPetFn != nil {
		return m.createPetFn(ctx, actor, c)
	}
	return &domain.Pet{ID: uuid.New(), OwnerID: actor.UserID, Name: c.Name, Species: c.Species}, nil
}

func (m *mockAppService) GetPet(ctx context.Context, actor domain.Identity, id uuid.UUID) (*domain.Pet, error) {
	if m.getPetFn != nil {
		return m.getPetFn(ctx, actor, id)
	}
	return nil, domain.ErrNotFound
}

func (m *mockAppService) BookAppointment(ctx context.Context, actor domain.Identity, req app.BookingRequest) (*domain.Appointment, error) {
	if m.bookAppointmentFn != nil {
		return m.bookAppointmentFn(ctx, actor, req)
	}
	return &domain.Appointment{ID: uuid.New(), PetID: req.PetID, OwnerID: actor.UserID, ScheduledAt: req.ScheduledAt, Reason: req.Reason, Status: domain.AppointmentPending}, nil
}

func (m *mockAppService) UpdateAppointmentStatus(ctx context.Context, actor domain.Identity, id uuid.UUID, next domain.AppointmentStatus, notes string) (*domain.Appointment, error) {
	if m.updateStatusFn != nil {
		return m.updateStatusFn(ctx, actor, id, next, notes)
	}
	return &domain.Appointment{ID: id, Status: next, Notes: notes}, nil
}

func (m *mockAppService) CreateArticle(ctx context.Context, actor domain.Identity, d app.ArticleDraft) (*domain.Article, error) {
	if m.createArticleFn != nil {
		return m.createArticleFn(ctx, actor, d)
	}
	return &domain.Article{ID: uuid.New(), AuthorID: actor.UserID, Title: d.Title, Body: d.Body, Published: d.Publish}, nil
}

func (m *mockAppService) GetProfile(ctx context.Context, actor domain.Identity) (*domain.Profile, error) {
	if m.getProfileFn != nil {
		return m.getProfileFn(ctx, actor)
	}
	return &domain.Profile{ID: actor.UserID, DisplayName: actor.DisplayName, Role: actor.Role}, nil
}

func (m *mockAppService) UpdateRole(ctx context.Context, actor domain.Identity, userID uuid.UUID, role domain.Role) (*domain.Profile, error) {
	if m.updateRoleFn != nil {
		return m.updateRoleFn(ctx, actor, userID, role)
	}
	return &domain.Profile{ID: userID, Role: role}, nil
}

// mockAuthenticator maps tokens to identities; unknown tokens are rejected.
type mockAuthenticator struct {
	identities map[string]domain.Identity
	err        error
}

func (m *mockAuthenticator) Authenticate(_ context.Context, credential string) (*domain.Identity, error) {
	if m.err != nil {
		return nil, m.err
	}
	id, ok := m.identities[credential]
	if !ok {
		return nil, domain.ErrInvalidCredential
	}
	return &id, nil
}

type mockConnections struct {
	total  int
	byRole map[domain.Role]int
}

func (m *mockConnections) CountConnections() int { return m.total }

func (m *mockConnections) CountConnectionsForRole(role domain.Role) int { return m.byRole[role] }

// --- Test helpers ---

const (
	ownerToken = "owner-token"
	vetToken   = "vet-token"
	adminToken = "admin-token"
)

var (
	testOwner = domain.Identity{UserID: uuid.MustParse("00000000-0000-0000-0000-000000000001"), Role: domain.RoleUser, DisplayName: "Olive"}
	testVet   = domain.Identity{UserID: uuid.MustParse("00000000-0000-0000-0000-000000000002"), Role: domain.RoleVeterinarian, DisplayName: "Dr. Vera"}
	testAdmin = domain.Identity{UserID: uuid.MustParse("00000000-0000-0000-0000-000000000003"), Role: domain.RoleAdmin, DisplayName: "Ada"}
)

func newTestAuthenticator() *mockAuthenticator {
	return &mockAuthenticator{identities: map[string]domain.Identity{
		ownerToken: testOwner,
		vetToken:   testVet,
		adminToken: testAdmin,
	}}
}

type mockInstances struct {
	list []domain.InstanceStatus
	err  error
}

func (m *mockInstances) ListInstances(context.Context) ([]domain.InstanceStatus, error) {
	return m.list, m.err
}

func withInstances(d domain.InstanceDirectory) func(*Server) {
	return func(s *Server) { s.instances = d }
}

func withHealthChecks(checks ...HealthCheck) func(*Server) {
	return func(s *Server) { s.healthChecks = checks }
}

func withAuthenticator(a Authenticator) func(*Server) {
	return func(s *Server) { s.auth = a }
}

func withConnections(c domain.ConnectionCounter) func(*Server) {
	return func(s *Server) { s.connections = c }
}

func newTestServer(t *testing.T, svc appService, opts ...func(*Server)) *Server {
	t.Helper()

	cfg := &config.Config{AppEnv: "development", Port: "0"}
	srv := NewServer(cfg, svc, newTestAuthenticator(), Realtime{}, nil, nil, nil)
	for _, opt := range opts {
		opt(srv)
	}
	return srv
}

// doRequest runs a request through the full middleware chain.
func doRequest(t *testing.T, srv *Server, method, path, token, body string) *httptest.ResponseRecorder {
	t.Helper()

	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)
	return rec
}


func newCookieRequest(method, path, token string) *http.Request {
	req := httptest.NewRequest(method, path, nil)
	if token != "" {
		req.AddCookie(&http.Cookie{Name: accessTokenCookie, Value: token})
	}
	return req
}

func serve(srv *Server, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)
	return rec
}
