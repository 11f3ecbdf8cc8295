package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	goredis "github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"

	"github.com/pscheid92/pawpulse/internal/adapter/metrics"
	"github.com/pscheid92/pawpulse/internal/domain"
)

const (
	profileRedisTTL            = 1 * time.Hour
	profileInvalidationChannel = "pawpulse:profile:invalidate"
	profileCachePrefix         = "profile_cache:"
	layerMemory                = "memory"
	layerRedis                 = "redis"
)

// ProfileCache is a read-through profile lookup used on every handshake and
// API request: in-memory, then Redis, then the backing source (PostgreSQL).
// Concurrent misses for the same profile share one backing lookup.
type ProfileCache struct {
	rdb     *goredis.Client
	source  domain.ProfileSource
	mem     *memoryCache
	group   singleflight.Group
	metrics *metrics.CacheMetrics

	// generations counts invalidations per profile. A lookup that started
	// before an invalidation must not write what it read back into a layer.
	genMu       sync.Mutex
	generations map[uuid.UUID]uint64
}

var (
	_ domain.ProfileSource           = (*ProfileCache)(nil)
	_ domain.ProfileCacheInvalidator = (*ProfileCache)(nil)
)

func NewProfileCache(rdb *goredis.Client, source domain.ProfileSource, memTTL time.Duration, clock clockwork.Clock, m *metrics.CacheMetrics) *ProfileCache {
	return &ProfileCache{
		rdb:     rdb,
		source:  source,
		mem:     newMemoryCache(memTTL, clock),
		metrics: m,

		generations: make(map[uuid.UUID]uint64),
	}
}

// cachedProfile is the Redis representation of a profile.
type cachedProfile struct {
	ID          uuid.UUID   `json:"id"`
	Email       string      `json:"email"`
	DisplayName string      `json:"display_name"`
	Role        domain.Role `json:"role"`
	CreatedAt   time.Time   `json:"created_at"`
	UpdatedAt   time.Time   `json:"updated_at"`
}

func (r *ProfileCache) GetProfile(ctx context.Context, id uuid.UUID) (*domain.Profile, error) {
	if p, ok := r.mem.get(id); ok {
		r.hit(layerMemory)
		return p, nil
	}
	r.miss(layerMemory)

	v, err, shared := r.group.Do(id.String(), func() (any, error) {
		gen := r.generation(id)

		if p, ok := r.getCached(ctx, id); ok {
			r.hit(layerRedis)
			r.store(ctx, p, gen, false)
			return p, nil
		}
		r.miss(layerRedis)

		p, err := r.source.GetProfile(ctx, id)
		if err != nil {
			return nil, err
		}
		r.store(ctx, p, gen, true)
		return p, nil
	})
	if shared && r.metrics != nil {
		r.metrics.Coalesced.Inc()
	}
	if err != nil {
		return nil, err
	}

	p := *v.(*domain.Profile)
	return &p, nil
}

// InvalidateProfile drops the profile locally and in Redis, then tells other
// instances to drop their in-memory copy.
func (r *ProfileCache) InvalidateProfile(ctx context.Context, id uuid.UUID) error {
	r.evictLocal(id)

	if err := r.rdb.Del(ctx, profileCacheKey(id)).Err(); err != nil {
		return fmt.Errorf("failed to invalidate profile cache: %w", err)
	}
	if err := r.rdb.Publish(ctx, profileInvalidationChannel, id.String()).Err(); err != nil {
		return fmt.Errorf("failed to publish profile invalidation: %w", err)
	}
	return nil
}

// StartInvalidationListener drops in-memory entries named on the invalidation
// channel until ctx is done.
func (r *ProfileCache) StartInvalidationListener(ctx context.Context) {
	pubsub := r.rdb.Subscribe(ctx, profileInvalidationChannel)
	defer func() { _ = pubsub.Close() }()

	ch := pubsub.Channel()
	for {
		select {
		case msg, ok := <-ch:
			if !ok {
				return
			}
			r.handleInvalidation(ctx, msg.Payload)
		case <-ctx.Done():
			return
		}
	}
}

// StartEvictionTimer periodically removes expired in-memory entries until ctx is done.
func (r *ProfileCache) StartEvictionTimer(ctx context.Context, interval time.Duration) {
	ticker := r.mem.clock.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.Chan():
			if evicted := r.mem.evictExpired(); evicted > 0 {
				slog.Debug("Evicted expired profile cache entries", "count", evicted, "remaining", r.mem.size())
			}
		case <-ctx.Done():
			return
		}
	}
}

func (r *ProfileCache) handleInvalidation(ctx context.Context, payload string) {
	id, err := uuid.Parse(payload)
	if err != nil {
		slog.WarnContext(ctx, "Ignoring malformed profile invalidation", "payload", payload)
		return
	}
	r.evictLocal(id)
	slog.DebugContext(ctx, "Profile cache invalidated via pub/sub", "user_id", id)
}

func (r *ProfileCache) generation(id uuid.UUID) uint64 {
	r.genMu.Lock()
	defer r.genMu.Unlock()
	return r.generations[id]
}

// store caches p read at generation gen, unless the profile was invalidated
// since. A Redis write that races an invalidation is undone afterwards.
func (r *ProfileCache) store(ctx context.Context, p *domain.Profile, gen uint64, toRedis bool) {
	r.genMu.Lock()
	if r.generations[p.ID] != gen {
		r.genMu.Unlock()
		slog.DebugContext(ctx, "Profile invalidated during lookup, not caching", "user_id", p.ID)
		return
	}
	r.mem.set(p.ID, p)
	r.genMu.Unlock()

	if !toRedis {
		return
	}
	r.writeCache(ctx, p)
	if r.generation(p.ID) != gen {
		r.mem.invalidate(p.ID)
		if err := r.rdb.Del(ctx, profileCacheKey(p.ID)).Err(); err != nil {
			slog.WarnContext(ctx, "Failed to drop stale profile from Redis cache", "user_id", p.ID, "error", err)
		}
	}
}

func (r *ProfileCache) evictLocal(id uuid.UUID) {
	r.genMu.Lock()
	r.generations[id]++
	r.mem.invalidate(id)
	r.genMu.Unlock()

	r.group.Forget(id.String())
	if r.metrics != nil {
		r.metrics.Invalidations.Inc()
	}
}

func (r *ProfileCache) writeCache(ctx context.Context, p *domain.Profile) {
	encoded, err := json.Marshal(cachedProfile(*p))
	if err != nil {
		slog.WarnContext(ctx, "Failed to marshal profile for Redis cache", "user_id", p.ID, "error", err)
		return
	}
	if err := r.rdb.Set(ctx, profileCacheKey(p.ID), encoded, profileRedisTTL).Err(); err != nil {
		slog.WarnContext(ctx, "Failed to populate Redis profile cache", "user_id", p.ID, "error", err)
	}
}

func (r *ProfileCache) getCached(ctx context.Context, id uuid.UUID) (*domain.Profile, bool) {
	data, err := r.rdb.Get(ctx, profileCacheKey(id)).Bytes()
	if err != nil {
		if !errors.Is(err, goredis.Nil) {
			slog.WarnContext(ctx, "Redis profile cache GET failed", "user_id", id, "error", err)
		}
		return nil, false
	}

	var cp cachedProfile
	if err := json.Unmarshal(data, &cp); err != nil {
		slog.WarnContext(ctx, "Failed to unmarshal cached profile", "user_id", id, "error", err)
		return nil, false
	}
	p := domain.Profile(cp)
	return &p, true
}

func (r *ProfileCache) hit(layer string) {
	if r.metrics != nil {
		r.metrics.Hits.WithLabelValues(layer).Inc()
	}
}

func (r *ProfileCache) miss(layer string) {
	if r.metrics != nil {
		r.metrics.Misses.WithLabelValues(layer).Inc()
	}
}

func profileCacheKey(id uuid.UUID) string {
	return profileCachePrefix + id.String()
}

// memoryCache is an in-memory L1 cache with TTL-based expiry.
type memoryCache struct {
	mu      sync.RWMutex
	entries map[uuid.UUID]memoryCacheEntry
	ttl     time.Duration
	clock   clockwork.Clock
}

type memoryCacheEntry struct {
	profile   domain.Profile
	expiresAt time.Time
}

func newMemoryCache(ttl time.Duration, clock clockwork.Clock) *memoryCache {
	return &memoryCache{
		entries: make(map[uuid.UUID]memoryCacheEntry),
		ttl:     ttl,
		clock:   clock,
	}
}

func (c *memoryCache) get(id uuid.UUID) (*domain.Profile, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	entry, ok := c.entries[id]
	if !ok || c.clock.Now().After(entry.expiresAt) {
		return nil, false
	}
	p := entry.profile
	return &p, true
}

func (c *memoryCache) set(id uuid.UUID, p *domain.Profile) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries[id] = memoryCacheEntry{
		profile:   *p,
		expiresAt: c.clock.Now().Add(c.ttl),
	}
}

func (c *memoryCache) invalidate(id uuid.UUID) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, id)
}

func (c *memoryCache) size() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

func (c *memoryCache) evictExpired() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.clock.Now()
	evicted := 0
	for id, entry := range c.entries {
		if now.After(entry.expiresAt) {
			delete(c.entries, id)
			evicted++
		}
	}
	return evicted
}
