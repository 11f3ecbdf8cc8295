package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/pscheid92/pawpulse/internal/domain"
)

// renewScript extends the lease only while it is still held by ARGV[1].
var renewScript = goredis.NewScript(`
	if redis.call("GET", KEYS[1]) == ARGV[1] then
		return redis.call("PEXPIRE", KEYS[1], ARGV[2])
	end
	return 0
`)

// releaseScript deletes the lease only while it is still held by ARGV[1].
var releaseScript = goredis.NewScript(`
	if redis.call("GET", KEYS[1]) == ARGV[1] then
		return redis.call("DEL", KEYS[1])
	end
	return 0
`)

// Lease is a Redis-backed single-holder lease (SET NX with TTL). The holder
// must renew it within ttl or another instance takes over.
type Lease struct {
	rdb        *goredis.Client
	key        string
	instanceID string
	ttl        time.Duration
}

var _ domain.Lease = (*Lease)(nil)

func NewLease(rdb *goredis.Client, name, instanceID string, ttl time.Duration) *Lease {
	return &Lease{
		rdb:        rdb,
		key:        "pawpulse:lease:" + name,
		instanceID: instanceID,
		ttl:        ttl,
	}
}

func (l *Lease) AcquireOrRenew(ctx context.Context) (bool, error) {
	ok, err := l.rdb.SetNX(ctx, l.key, l.instanceID, l.ttl).Result()
	if err != nil {
		return false, fmt.Errorf("failed to acquire lease %s: %w", l.key, err)
	}
	if ok {
		return true, nil
	}

	renewed, err := renewScript.Run(ctx, l.rdb, []string{l.key}, l.instanceID, l.ttl.Milliseconds()).Int()
	if err != nil && !errors.Is(err, goredis.Nil) {
		return false, fmt.Errorf("failed to renew lease %s: %w", l.key, err)
	}
	return renewed == 1, nil
}

func (l *Lease) Release(ctx context.Context) error {
	if err := releaseScript.Run(ctx, l.rdb, []string{l.key}, l.instanceID).Err(); err != nil && !errors.Is(err, goredis.Nil) {
		return fmt.Errorf("failed to release lease %s: %w", l.key, err)
	}
	return nil
}
