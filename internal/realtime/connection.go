package realtime

import (
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/jonboulle/clockwork"

	"github.com/pscheid92/pawpulse/internal/domain"
)

const (
	writeDeadline  = 5 * time.Second
	maxMessageSize = 4096
)

var (
	errConnectionClosed = errors.New("connection closed")
	errSlowClient       = errors.New("send buffer full")
)

// Connection is one authenticated live socket. Its group memberships are fixed
// at admission and always equal {user:<id>, role:<role>}.
type Connection struct {
	id          uuid.UUID
	identity    domain.Identity
	groups      []string
	connectedAt time.Time

	conn      *websocket.Conn
	clock     clockwork.Clock
	heartbeat Heartbeat

	send     chan []byte
	done     chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

// Heartbeat configures transport-level liveness detection.
type Heartbeat struct {
	PingInterval time.Duration
	PongTimeout  time.Duration
}

func (h Heartbeat) readTimeout() time.Duration {
	return h.PingInterval + h.PongTimeout
}

func newConnection(conn *websocket.Conn, identity domain.Identity, clock clockwork.Clock, hb Heartbeat, bufferSize int) *Connection {
	return &Connection{
		id:          uuid.New(),
		identity:    identity,
		groups:      groupsFor(identity),
		connectedAt: clock.Now(),
		conn:        conn,
		clock:       clock,
		heartbeat:   hb,
		send:        make(chan []byte, bufferSize),
		done:        make(chan struct{}),
	}
}

func (c *Connection) ID() uuid.UUID             { return c.id }
func (c *Connection) Identity() domain.Identity { return c.identity }
func (c *Connection) ConnectedAt() time.Time    { return c.connectedAt }

func (c *Connection) Groups() []string {
	out := make([]string, len(c.groups))
	copy(out, c.groups)
	return out
}

// start installs read limits and deadlines and launches the writer goroutine.
func (c *Connection) start() {
	c.conn.SetReadLimit(maxMessageSize)
	c.extendReadDeadline()
	c.conn.SetPongHandler(func(string) error {
		c.extendReadDeadline()
		return nil
	})

	c.wg.Add(1)
	go c.writeLoop()
}

// enqueue hands a frame to the writer without blocking.
func (c *Connection) enqueue(msg []byte) error {
	select {
	case <-c.done:
		return errConnectionClosed
	default:
	}

	select {
	case c.send <- msg:
		return nil
	case <-c.done:
		return errConnectionClosed
	default:
		return errSlowClient
	}
}

func (c *Connection) writeLoop() {
	defer c.wg.Done()

	ticker := c.clock.NewTicker(c.heartbeat.PingInterval)
	defer ticker.Stop()

	for {
		select {
		case msg := <-c.send:
			c.setWriteDeadline()
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				// Unblocks the reader so the registry can tear the connection down.
				_ = c.conn.Close()
				return
			}
		case <-ticker.Chan():
			c.setWriteDeadline()
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				_ = c.conn.Close()
				return
			}
		case <-c.done:
			return
		}
	}
}

// readLoop blocks until the socket fails or closes, passing every text frame to handle.
func (c *Connection) readLoop(handle func(msg []byte)) error {
	for {
		msgType, msg, err := c.conn.ReadMessage()
		if err != nil {
			return err
		}
		c.extendReadDeadline()
		if msgType != websocket.TextMessage {
			continue
		}
		handle(msg)
	}
}

// closeWith stops the writer, sends a close frame and releases the socket.
// Safe to call more than once and from any goroutine.
func (c *Connection) closeWith(code int, reason string) {
	c.stopOnce.Do(func() {
		close(c.done)
		// The writer must exit before the close frame goes out; gorilla allows one writer at a time.
		c.wg.Wait()

		msg := websocket.FormatCloseMessage(code, reason)
		_ = c.conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(writeDeadline))
		_ = c.conn.Close()
	})
}

// Socket deadlines are compared against the wall clock by the runtime, never
// against c.clock.
func (c *Connection) setWriteDeadline() {
	_ = c.conn.SetWriteDeadline(time.Now().Add(writeDeadline))
}

func (c *Connection) extendReadDeadline() {
	_ = c.conn.SetReadDeadline(time.Now().Add(c.heartbeat.readTimeout()))
}
