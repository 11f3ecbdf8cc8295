package realtime

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/jonboulle/clockwork"

	"github.com/pscheid92/pawpulse/internal/adapter/metrics"
	"github.com/pscheid92/pawpulse/internal/domain"
	"github.com/pscheid92/pawpulse/internal/platform/correlation"
)

// Close codes sent to clients.
const (
	CloseAuthentication = 4401
	CloseInternalError  = websocket.CloseInternalServerErr
	CloseTryAgainLater  = websocket.CloseTryAgainLater
	CloseGoingAway      = websocket.CloseGoingAway
	ClosePolicy         = websocket.ClosePolicyViolation
)

const (
	defaultSendBuffer = 32
	handshakeTimeout  = 10 * time.Second
)

var (
	errAtCapacity     = errors.New("connection limit reached")
	errRegistryClosed = errors.New("registry closed")
)

// Authenticator resolves a bearer credential to an identity. It returns
// domain.ErrMissingCredential, domain.ErrInvalidCredential or
// domain.ErrProfileNotFound for the rejections a client can fix by reconnecting.
type Authenticator interface {
	Authenticate(ctx context.Context, credential string) (*domain.Identity, error)
}

type Options struct {
	Heartbeat      Heartbeat
	MaxConnections int
	SendBuffer     int
	CheckOrigin    func(r *http.Request) bool
}

type connectedPayload struct {
	UserID      uuid.UUID   `json:"userId"`
	Role        domain.Role `json:"role"`
	DisplayName string      `json:"displayName"`
	Timestamp   time.Time   `json:"timestamp"`
}

type pongPayload struct {
	Timestamp time.Time `json:"timestamp"`
}

// Registry authenticates incoming sockets and owns the live group membership.
type Registry struct {
	auth     Authenticator
	opts     Options
	clock    clockwork.Clock
	metrics  *metrics.RealtimeMetrics
	upgrader websocket.Upgrader

	mu     sync.RWMutex
	conns  map[uuid.UUID]*Connection
	groups map[string]map[uuid.UUID]*Connection
	closed bool
}

func NewRegistry(auth Authenticator, opts Options, clock clockwork.Clock, m *metrics.RealtimeMetrics) *Registry {
	if opts.SendBuffer <= 0 {
		opts.SendBuffer = defaultSendBuffer
	}
	return &Registry{
		auth:    auth,
		opts:    opts,
		clock:   clock,
		metrics: m,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     opts.CheckOrigin,
		},
		conns:  make(map[uuid.UUID]*Connection),
		groups: make(map[string]map[uuid.UUID]*Connection),
	}
}

// ServeHTTP performs the handshake for one socket and then serves it until it closes.
func (r *Registry) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	ctx := correlation.WithID(context.WithoutCancel(req.Context()), correlation.FromHeader(req.Header.Get(correlation.Header)))
	credential := credentialFromRequest(req)

	ws, err := r.upgrader.Upgrade(w, req, nil)
	if err != nil {
		// The upgrader has already replied with an HTTP error.
		slog.WarnContext(ctx, "WebSocket upgrade failed", "remote_addr", req.RemoteAddr, "error", err)
		r.countHandshake(metrics.HandshakeError)
		return
	}

	identity, err := r.authenticate(ctx, credential)
	if err != nil {
		r.reject(ctx, ws, err)
		return
	}

	c := newConnection(ws, *identity, r.clock, r.opts.Heartbeat, r.opts.SendBuffer)
	if err := r.admit(c); err != nil {
		slog.WarnContext(ctx, "Connection refused", "user_id", identity.UserID, "error", err)
		r.countHandshake(metrics.HandshakeOverCapacity)
		c.closeWith(CloseTryAgainLater, "Server at capacity")
		return
	}
	r.countHandshake(metrics.HandshakeAccepted)

	c.start()
	log := slog.With("conn_id", c.id, "user_id", identity.UserID, "role", identity.Role)
	log.InfoContext(ctx, "Client connected")

	r.sendTo(c, domain.EventConnected, connectedPayload{
		UserID:      identity.UserID,
		Role:        identity.Role,
		DisplayName: identity.DisplayName,
		Timestamp:   r.clock.Now().UTC(),
	})

	err = c.readLoop(func(msg []byte) { r.handleFrame(ctx, c, msg) })

	// Membership is dropped before the socket is released so no dispatch sees a closing connection.
	r.remove(c)
	c.closeWith(websocket.CloseNormalClosure, "")
	log.InfoContext(ctx, "Client disconnected", "reason", disconnectReason(err))
}

func (r *Registry) authenticate(ctx context.Context, credential string) (*domain.Identity, error) {
	if strings.TrimSpace(credential) == "" {
		return nil, domain.ErrMissingCredential
	}
	ctx, cancel := context.WithTimeout(ctx, handshakeTimeout)
	defer cancel()
	return r.auth.Authenticate(ctx, credential)
}

// reject closes a socket that never got admitted. The cause reaches the
// client as the close reason.
func (r *Registry) reject(ctx context.Context, ws *websocket.Conn, cause error) {
	code := CloseAuthentication
	reason := "Authentication error: "
	result := metrics.HandshakeError

	switch {
	case errors.Is(cause, domain.ErrMissingCredential):
		reason += domain.ErrMissingCredential.Error()
		result = metrics.HandshakeMissingCredential
	case errors.Is(cause, domain.ErrInvalidCredential):
		reason += domain.ErrInvalidCredential.Error()
		result = metrics.HandshakeInvalidCredential
	case errors.Is(cause, domain.ErrProfileNotFound):
		reason += domain.ErrProfileNotFound.Error()
		result = metrics.HandshakeProfileNotFound
	default:
		code = CloseInternalError
		reason = "Internal error"
		slog.ErrorContext(ctx, "Handshake failed", "error", cause)
	}

	if result != metrics.HandshakeError {
		slog.InfoContext(ctx, "Handshake rejected", "reason", reason)
	}
	r.countHandshake(result)

	msg := websocket.FormatCloseMessage(code, reason)
	_ = ws.WriteControl(websocket.CloseMessage, msg, time.Now().Add(writeDeadline))
	_ = ws.Close()
}

func (r *Registry) admit(c *Connection) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return errRegistryClosed
	}
	if r.opts.MaxConnections > 0 && len(r.conns) >= r.opts.MaxConnections {
		return fmt.Errorf("%w (%d)", errAtCapacity, r.opts.MaxConnections)
	}

	r.conns[c.id] = c
	for _, g := range c.groups {
		members, ok := r.groups[g]
		if !ok {
			members = make(map[uuid.UUID]*Connection)
			r.groups[g] = members
		}
		members[c.id] = c
	}

	if r.metrics != nil {
		r.metrics.ActiveConnections.Inc()
	}
	return nil
}

// remove drops c from every group it belongs to. It reports whether c was still registered.
func (r *Registry) remove(c *Connection) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.conns[c.id]; !ok {
		return false
	}
	delete(r.conns, c.id)
	for _, g := range c.groups {
		members := r.groups[g]
		delete(members, c.id)
		if len(members) == 0 {
			delete(r.groups, g)
		}
	}

	if r.metrics != nil {
		r.metrics.ActiveConnections.Dec()
	}
	return true
}

// evict forcibly disconnects c. Its reader goroutine finishes the teardown.
func (r *Registry) evict(c *Connection, code int, reason string) {
	if !r.remove(c) {
		return
	}
	slog.Warn("Evicting connection", "conn_id", c.id, "user_id", c.identity.UserID, "reason", reason)
	go c.closeWith(code, reason)
}

// Members returns a snapshot of the connections in group; empty when nobody is connected.
func (r *Registry) Members(group string) []*Connection {
	r.mu.RLock()
	defer r.mu.RUnlock()

	members := r.groups[group]
	out := make([]*Connection, 0, len(members))
	for _, c := range members {
		out = append(out, c)
	}
	return out
}

// All returns a snapshot of every live connection.
func (r *Registry) All() []*Connection {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*Connection, 0, len(r.conns))
	for _, c := range r.conns {
		out = append(out, c)
	}
	return out
}

func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.conns)
}

func (r *Registry) CountGroup(group string) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.groups[group])
}

// Close refuses new connections and disconnects every live one.
func (r *Registry) Close(ctx context.Context) error {
	r.mu.Lock()
	r.closed = true
	conns := make([]*Connection, 0, len(r.conns))
	for id, c := range r.conns {
		conns = append(conns, c)
		delete(r.conns, id)
	}
	clear(r.groups)
	if r.metrics != nil {
		r.metrics.ActiveConnections.Set(0)
	}
	r.mu.Unlock()

	var wg sync.WaitGroup
	for _, c := range conns {
		wg.Add(1)
		go func() {
			defer wg.Done()
			c.closeWith(CloseGoingAway, "Server shutting down")
		}()
	}

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		slog.Info("Realtime registry closed", "connections", len(conns))
		return nil
	case <-ctx.Done():
		return fmt.Errorf("close realtime registry: %w", ctx.Err())
	}
}

// handleFrame processes one client frame. A failure here only affects c.
func (r *Registry) handleFrame(ctx context.Context, c *Connection, msg []byte) {
	defer func() {
		if p := recover(); p != nil {
			slog.ErrorContext(ctx, "Panic in client frame handler", "conn_id", c.id, "panic", p)
		}
	}()

	event, err := parseClientFrame(msg)
	if err != nil {
		slog.WarnContext(ctx, "Ignoring client frame", "conn_id", c.id, "error", err)
		return
	}

	switch event {
	case "ping":
		r.sendTo(c, domain.EventPong, pongPayload{Timestamp: r.clock.Now().UTC()})
	default:
		slog.DebugContext(ctx, "Unknown client event", "conn_id", c.id, "event", event)
	}
}

func (r *Registry) sendTo(c *Connection, event string, payload any) {
	msg, err := encodeFrame(event, payload)
	if err != nil {
		slog.Error("Failed to encode frame", "event", event, "error", err)
		return
	}
	if err := c.enqueue(msg); errors.Is(err, errSlowClient) {
		r.evict(c, ClosePolicy, "Slow client")
	}
}

func (r *Registry) countHandshake(result string) {
	if r.metrics != nil {
		r.metrics.Handshakes.WithLabelValues(result).Inc()
	}
}

// credentialFromRequest looks for the bearer credential in the token query
// parameter, the Authorization header and the access_token cookie, in that order.
func credentialFromRequest(r *http.Request) string {
	if token := r.URL.Query().Get("token"); token != "" {
		return token
	}
	if auth := r.Header.Get("Authorization"); auth != "" {
		if token, ok := strings.CutPrefix(auth, "Bearer "); ok {
			return strings.TrimSpace(token)
		}
	}
	if cookie, err := r.Cookie("access_token"); err == nil {
		return cookie.Value
	}
	return ""
}

func disconnectReason(err error) string {
	var closeErr *websocket.CloseError
	if errors.As(err, &closeErr) {
		return fmt.Sprintf("close %d", closeErr.Code)
	}
	if err != nil {
		return err.Error()
	}
	return "unknown"
}
