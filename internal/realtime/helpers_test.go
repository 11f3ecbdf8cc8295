package realtime

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	ws "github.com/gorilla/websocket"
	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"

	"github.com/pscheid92/pawpulse/internal/adapter/metrics"
	"github.com/pscheid92/pawpulse/internal/domain"
)

type stubAuthenticator struct {
	mu         sync.Mutex
	identities map[string]domain.Identity
	failures   map[string]error
	calls      atomic.Int32
}

func newStubAuthenticator() *stubAuthenticator {
	return &stubAuthenticator{
		identities: make(map[string]domain.Identity),
		failures:   make(map[string]error),
	}
}

func (s *stubAuthenticator) Authenticate(_ context.Context, credential string) (*domain.Identity, error) {
	s.calls.Add(1)
	s.mu.Lock()
	defer s.mu.Unlock()

	if err, ok := s.failures[credential]; ok {
		return nil, err
	}
	identity, ok := s.identities[credential]
	if !ok {
		return nil, domain.ErrInvalidCredential
	}
	return &identity, nil
}

func (s *stubAuthenticator) fail(credential string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures[credential] = err
}

type testEnv struct {
	registry   *Registry
	dispatcher *Dispatcher
	auth       *stubAuthenticator
	metrics    *metrics.RealtimeMetrics
	url        string
}

func newTestEnv(t *testing.T, configure ...func(*Options)) *testEnv {
	t.Helper()
	return newTestEnvWithClock(t, clockwork.NewRealClock(), configure...)
}

func newTestEnvWithClock(t *testing.T, clock clockwork.Clock, configure ...func(*Options)) *testEnv {
	t.Helper()

	opts := Options{
		Heartbeat:      Heartbeat{PingInterval: time.Second, PongTimeout: time.Second},
		MaxConnections: 100,
		CheckOrigin:    NewCheckOrigin([]string{"https://app.pawpulse.dev"}, false),
	}
	for _, fn := range configure {
		fn(&opts)
	}

	auth := newStubAuthenticator()
	m := metrics.NewRealtimeMetrics(prometheus.NewRegistry())
	registry := NewRegistry(auth, opts, clock, m)
	dispatcher := NewDispatcher(m)
	dispatcher.Bind(registry)

	server := httptest.NewServer(registry)
	t.Cleanup(server.Close)
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = registry.Close(ctx)
	})

	return &testEnv{
		registry:   registry,
		dispatcher: dispatcher,
		auth:       auth,
		metrics:    m,
		url:        "ws" + strings.TrimPrefix(server.URL, "http"),
	}
}

// identity registers a fresh identity and returns it with its credential.
func (e *testEnv) identity(role domain.Role) (domain.Identity, string) {
	id := domain.Identity{UserID: uuid.New(), Role: role, DisplayName: "Test " + string(role)}
	token := "token-" + id.UserID.String()
	e.auth.mu.Lock()
	e.auth.identities[token] = id
	e.auth.mu.Unlock()
	return id, token
}

func (e *testEnv) dialRaw(t *testing.T, token string, header http.Header) *ws.Conn {
	t.Helper()
	url := e.url
	if token != "" {
		url += "?token=" + token
	}
	conn, _, err := ws.DefaultDialer.Dial(url, header)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

// dial connects with token and consumes the connected frame.
func (e *testEnv) dial(t *testing.T, token string) *ws.Conn {
	t.Helper()
	conn := e.dialRaw(t, token, nil)
	f := readFrame(t, conn)
	require.Equal(t, domain.EventConnected, f.Event)
	return conn
}

func (e *testEnv) connect(t *testing.T, role domain.Role) (domain.Identity, *ws.Conn) {
	t.Helper()
	id, token := e.identity(role)
	conn := e.dial(t, token)
	require.True(t, waitFor(func() bool { return e.registry.CountGroup(UserGroup(id.UserID)) > 0 }))
	return id, conn
}

type testFrame struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

func readFrame(t *testing.T, conn *ws.Conn) testFrame {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(time.Second)))
	_, msg, err := conn.ReadMessage()
	require.NoError(t, err)

	var f testFrame
	require.NoError(t, json.Unmarshal(msg, &f))
	return f
}

// expectNoFrame asserts nothing arrives on conn within a short window.
func expectNoFrame(t *testing.T, conn *ws.Conn) {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(50*time.Millisecond)))
	_, msg, err := conn.ReadMessage()
	require.Error(t, err, "unexpected frame: %s", msg)
}

func readCloseError(t *testing.T, conn *ws.Conn) *ws.CloseError {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(time.Second)))
	_, _, err := conn.ReadMessage()
	require.Error(t, err)

	var closeErr *ws.CloseError
	require.ErrorAs(t, err, &closeErr)
	return closeErr
}

// waitFor polls cond until it holds or a second has passed.
func waitFor(cond func() bool) bool {
	for range 200 {
		if cond() {
			return true
		}
		time.Sleep(5 * time.Millisecond)
	}
	return false
}
