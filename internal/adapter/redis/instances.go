package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/jonboulle/clockwork"
	goredis "github.com/redis/go-redis/v9"

	"github.com/pscheid92/pawpulse/internal/domain"
)

const (
	instancesKey = "pawpulse:instances"

	// An instance missing this many heartbeats is considered gone.
	instanceStaleBeats = 3
)

// InstanceRegistry publishes this instance's live-connection count to a
// shared hash and lists every instance that heartbeated recently.
type InstanceRegistry struct {
	rdb        *goredis.Client
	instanceID string
	version    string
	heartbeat  time.Duration
	counter    domain.ConnectionCounter
	clock      clockwork.Clock
}

var _ domain.InstanceDirectory = (*InstanceRegistry)(nil)

type instanceRecord struct {
	InstanceID  string `json:"instance_id"`
	Version     string `json:"version"`
	Connections int    `json:"connections"`
	Timestamp   int64  `json:"timestamp"`
}

func NewInstanceRegistry(rdb *goredis.Client, instanceID, version string, heartbeat time.Duration, counter domain.ConnectionCounter, clock clockwork.Clock) *InstanceRegistry {
	return &InstanceRegistry{
		rdb:        rdb,
		instanceID: instanceID,
		version:    version,
		heartbeat:  heartbeat,
		counter:    counter,
		clock:      clock,
	}
}

// Start registers immediately, then heartbeats until ctx is cancelled, and
// finally unregisters.
func (r *InstanceRegistry) Start(ctx context.Context) {
	r.register(ctx)

	ticker := r.clock.NewTicker(r.heartbeat)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.Chan():
			r.register(ctx)
		case <-ctx.Done():
			r.unregister()
			return
		}
	}
}

func (r *InstanceRegistry) register(ctx context.Context) {
	data, err := json.Marshal(instanceRecord{
		InstanceID:  r.instanceID,
		Version:     r.version,
		Connections: r.counter.CountConnections(),
		Timestamp:   r.clock.Now().Unix(),
	})
	if err != nil {
		return
	}
	if err := r.rdb.HSet(ctx, instancesKey, r.instanceID, data).Err(); err != nil {
		slog.WarnContext(ctx, "Instance heartbeat failed", "instance", r.instanceID, "error", err)
	}
}

func (r *InstanceRegistry) unregister() {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := r.rdb.HDel(ctx, instancesKey, r.instanceID).Err(); err != nil {
		slog.Warn("Failed to unregister instance", "instance", r.instanceID, "error", err)
	}
}

// ListInstances returns instances with a recent heartbeat, ordered by id.
func (r *InstanceRegistry) ListInstances(ctx context.Context) ([]domain.InstanceStatus, error) {
	all, err := r.rdb.HGetAll(ctx, instancesKey).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list instances: %w", err)
	}

	cutoff := r.clock.Now().Add(-instanceStaleBeats * r.heartbeat)
	out := make([]domain.InstanceStatus, 0, len(all))
	for _, data := range all {
		var rec instanceRecord
		if err := json.Unmarshal([]byte(data), &rec); err != nil {
			continue
		}
		seen := time.Unix(rec.Timestamp, 0).UTC()
		if seen.Before(cutoff) {
			continue
		}
		out = append(out, domain.InstanceStatus{
			ID:          rec.InstanceID,
			Version:     rec.Version,
			Connections: rec.Connections,
			SeenAt:      seen,
		})
	}

	slices.SortFunc(out, func(a, b domain.InstanceStatus) int { return strings.Compare(a.ID, b.ID) })
	return out, nil
}
