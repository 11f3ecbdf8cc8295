package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	goredis "github.com/redis/go-redis/v9"

	"github.com/pscheid92/pawpulse/internal/domain"
)

const dispatchChannel = "pawpulse:dispatch"

// DeliveryHandler delivers a relayed dispatch to local connections and
// reports how many received it.
type DeliveryHandler func(ctx context.Context, d domain.Delivery) int

// Relay fans dispatches out to every instance subscribed to the dispatch
// channel. Pub/Sub is fire-and-forget, which matches the at-most-once
// contract of live pushes.
type Relay struct {
	rdb *goredis.Client
}

var _ domain.DeliveryRelay = (*Relay)(nil)

func NewRelay(rdb *goredis.Client) *Relay {
	return &Relay{rdb: rdb}
}

func (r *Relay) Publish(ctx context.Context, d domain.Delivery) error {
	encoded, err := json.Marshal(d)
	if err != nil {
		return fmt.Errorf("failed to encode delivery: %w", err)
	}
	if err := r.rdb.Publish(ctx, dispatchChannel, encoded).Err(); err != nil {
		return fmt.Errorf("failed to publish delivery: %w", err)
	}
	return nil
}

// Start subscribes to the dispatch channel and hands every message to handle
// until ctx is done. ready, if non-nil, is closed once the subscription is
// confirmed.
func (r *Relay) Start(ctx context.Context, handle DeliveryHandler, ready chan<- struct{}) error {
	pubsub := r.rdb.Subscribe(ctx, dispatchChannel)
	defer func() { _ = pubsub.Close() }()

	if _, err := pubsub.Receive(ctx); err != nil {
		return fmt.Errorf("failed to subscribe to %s: %w", dispatchChannel, err)
	}
	if ready != nil {
		close(ready)
	}

	ch := pubsub.Channel()
	for {
		select {
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			r.handleMessage(ctx, msg.Payload, handle)
		case <-ctx.Done():
			return nil
		}
	}
}

func (r *Relay) handleMessage(ctx context.Context, payload string, handle DeliveryHandler) {
	var d domain.Delivery
	if err := json.Unmarshal([]byte(payload), &d); err != nil {
		slog.WarnContext(ctx, "Ignoring malformed relayed delivery", "error", err)
		return
	}
	if d.Event == "" {
		slog.WarnContext(ctx, "Ignoring relayed delivery without event", "origin", d.Origin)
		return
	}
	handle(ctx, d)
}
