package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/pscheid92/pawpulse/internal/adapter/metrics"
	"github.com/pscheid92/pawpulse/internal/domain"
)

const (
	relayPublishTimeout = 2 * time.Second
	relayQueueSize      = 256
)

// Dispatcher pushes events to the live members of a target group. It is
// created unbound; until Bind is called every operation is a logged no-op.
type Dispatcher struct {
	registry atomic.Pointer[Registry]
	relay    domain.DeliveryRelay
	origin   string
	metrics  *metrics.RealtimeMetrics

	relayQueue chan relayJob
	stop       chan struct{}
	stopOnce   sync.Once
	relayDone  chan struct{}
}

type relayJob struct {
	ctx      context.Context
	delivery domain.Delivery
}

type DispatcherOption func(*Dispatcher)

// WithRelay also publishes every dispatch to other instances, after local
// delivery and in dispatch order. Deliveries carrying origin are recognised as
// our own and skipped by DeliverRelayed.
func WithRelay(relay domain.DeliveryRelay, origin string) DispatcherOption {
	return func(d *Dispatcher) {
		d.relay = relay
		d.origin = origin
	}
}

func NewDispatcher(m *metrics.RealtimeMetrics, opts ...DispatcherOption) *Dispatcher {
	d := &Dispatcher{metrics: m, stop: make(chan struct{}), relayDone: make(chan struct{})}
	for _, opt := range opts {
		opt(d)
	}
	if d.relay == nil {
		close(d.relayDone)
		return d
	}
	d.relayQueue = make(chan relayJob, relayQueueSize)
	go d.runRelay()
	return d
}

// Close stops relaying. Publishes already queued are sent before it returns,
// unless ctx expires first.
func (d *Dispatcher) Close(ctx context.Context) error {
	d.stopOnce.Do(func() { close(d.stop) })
	select {
	case <-d.relayDone:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Bind attaches the registry whose connections receive dispatched events.
func (d *Dispatcher) Bind(r *Registry) {
	d.registry.Store(r)
}

func (d *Dispatcher) Initialized() bool {
	return d.registry.Load() != nil
}

func (d *Dispatcher) SendToUser(ctx context.Context, userID uuid.UUID, event string, payload any) int {
	return d.dispatch(ctx, domain.TargetUser, userID.String(), event, payload)
}

func (d *Dispatcher) SendToRole(ctx context.Context, role domain.Role, event string, payload any) int {
	return d.dispatch(ctx, domain.TargetRole, string(role), event, payload)
}

func (d *Dispatcher) Broadcast(ctx context.Context, event string, payload any) int {
	return d.dispatch(ctx, domain.TargetBroadcast, "", event, payload)
}

func (d *Dispatcher) CountConnections() int {
	reg := d.registry.Load()
	if reg == nil {
		return 0
	}
	return reg.Count()
}

func (d *Dispatcher) CountConnectionsForRole(role domain.Role) int {
	reg := d.registry.Load()
	if reg == nil {
		return 0
	}
	return reg.CountGroup(RoleGroup(role))
}

// DeliverRelayed pushes a dispatch that originated on another instance to the
// local members of its target.
func (d *Dispatcher) DeliverRelayed(ctx context.Context, delivery domain.Delivery) int {
	if d.origin != "" && delivery.Origin == d.origin {
		return 0
	}
	if d.metrics != nil {
		d.metrics.RelayReceived.Inc()
	}

	reg := d.registry.Load()
	if reg == nil {
		d.drop(metrics.DropUninitialized)
		return 0
	}

	msg, err := encodeFrame(delivery.Event, delivery.Payload)
	if err != nil {
		slog.WarnContext(ctx, "Dropping relayed event", "event", delivery.Event, "error", err)
		return 0
	}
	return d.deliver(ctx, reg, delivery.Target, delivery.Key, delivery.Event, msg)
}

func (d *Dispatcher) dispatch(ctx context.Context, target domain.TargetKind, key, event string, payload any) int {
	reg := d.registry.Load()
	if reg == nil {
		slog.WarnContext(ctx, "Realtime dispatcher not initialized, dropping event", "event", event, "target", target, "key", key)
		d.drop(metrics.DropUninitialized)
		return 0
	}

	if payload == nil {
		payload = struct{}{}
	}
	data, err := json.Marshal(payload)
	if err != nil {
		slog.ErrorContext(ctx, "Failed to encode event payload", "event", event, "error", err)
		return 0
	}
	msg, err := encodeFrame(event, json.RawMessage(data))
	if err != nil {
		slog.ErrorContext(ctx, "Failed to encode event frame", "event", event, "error", err)
		return 0
	}

	n := d.deliver(ctx, reg, target, key, event, msg)
	d.publish(ctx, domain.Delivery{Origin: d.origin, Target: target, Key: key, Event: event, Payload: data})
	return n
}

func (d *Dispatcher) deliver(ctx context.Context, reg *Registry, target domain.TargetKind, key, event string, msg []byte) int {
	var members []*Connection
	switch target {
	case domain.TargetUser:
		members = reg.Members(userGroupPrefix + key)
	case domain.TargetRole:
		members = reg.Members(roleGroupPrefix + key)
	case domain.TargetBroadcast:
		members = reg.All()
	default:
		slog.WarnContext(ctx, "Unknown dispatch target", "target", target)
		return 0
	}

	if len(members) == 0 {
		slog.DebugContext(ctx, "No live connections for target", "event", event, "target", target, "key", key)
		d.drop(metrics.DropNoMembers)
		return 0
	}

	delivered := 0
	for _, c := range members {
		switch err := c.enqueue(msg); {
		case err == nil:
			delivered++
		case errors.Is(err, errSlowClient):
			d.drop(metrics.DropSlowClient)
			reg.evict(c, ClosePolicy, "Slow client")
		}
	}

	if d.metrics != nil && delivered > 0 {
		d.metrics.EventsDelivered.WithLabelValues(string(target)).Add(float64(delivered))
	}
	slog.DebugContext(ctx, "Event dispatched", "event", event, "target", target, "key", key, "connections", delivered)
	return delivered
}

// publish queues delivery for the relay worker. A full queue drops the event
// for other instances rather than stall the caller.
func (d *Dispatcher) publish(ctx context.Context, delivery domain.Delivery) {
	if d.relay == nil {
		return
	}
	select {
	case <-d.stop:
		return
	default:
	}
	select {
	case d.relayQueue <- relayJob{ctx: context.WithoutCancel(ctx), delivery: delivery}:
	default:
		slog.WarnContext(ctx, "Relay queue full, event not relayed", "event", delivery.Event)
		d.drop(metrics.DropRelayBacklog)
	}
}

func (d *Dispatcher) runRelay() {
	defer close(d.relayDone)
	for {
		select {
		case job := <-d.relayQueue:
			d.send(job)
		case <-d.stop:
			for {
				select {
				case job := <-d.relayQueue:
					d.send(job)
				default:
					return
				}
			}
		}
	}
}

func (d *Dispatcher) send(job relayJob) {
	ctx, cancel := context.WithTimeout(job.ctx, relayPublishTimeout)
	defer cancel()
	if err := d.relay.Publish(ctx, job.delivery); err != nil {
		slog.WarnContext(ctx, "Failed to relay event to other instances", "event", job.delivery.Event, "error", err)
	}
}

func (d *Dispatcher) drop(reason string) {
	if d.metrics != nil {
		d.metrics.EventsDropped.WithLabelValues(reason).Inc()
	}
}
