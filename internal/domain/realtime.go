package domain

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Event names pushed to live connections.
const (
	EventConnected          = "connected"
	EventPong               = "pong"
	EventNotificationNew    = "notification:new"
	EventAppointmentCreated = "appointment:created"
	EventAppointmentNew     = "appointment:new"
	EventAppointmentUpdated = "appointment:updated"
	EventArticlePublished   = "article:published"
)

// Notifier pushes events to live connections. Delivery is best-effort and
// at-most-once: the returned count is how many local connections the frame
// was handed to and must not be treated as an acknowledgment.
type Notifier interface {
	SendToUser(ctx context.Context, userID uuid.UUID, event string, payload any) int
	SendToRole(ctx context.Context, role Role, event string, payload any) int
	Broadcast(ctx context.Context, event string, payload any) int
}

// ConnectionCounter exposes diagnostic live-connection counts.
type ConnectionCounter interface {
	CountConnections() int
	CountConnectionsForRole(role Role) int
}

type TargetKind string

const (
	TargetUser      TargetKind = "user"
	TargetRole      TargetKind = "role"
	TargetBroadcast TargetKind = "broadcast"
)

// Delivery is one dispatch as seen by other instances.
type Delivery struct {
	Origin  string          `json:"origin"`
	Target  TargetKind      `json:"target"`
	Key     string          `json:"key,omitempty"`
	Event   string          `json:"event"`
	Payload json.RawMessage `json:"payload"`
}

// DeliveryRelay forwards dispatches to other instances of the service.
type DeliveryRelay interface {
	Publish(ctx context.Context, d Delivery) error
}

// InstanceStatus is the last heartbeat one service instance published.
type InstanceStatus struct {
	ID          string    `json:"id"`
	Version     string    `json:"version"`
	Connections int       `json:"connections"`
	SeenAt      time.Time `json:"seenAt"`
}

// InstanceDirectory lists the instances that heartbeated recently.
type InstanceDirectory interface {
	ListInstances(ctx context.Context) ([]InstanceStatus, error)
}
