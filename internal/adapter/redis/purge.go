package redis

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"
)

const purgeScanCount = 100

type PurgeStats struct {
	Scanned int
	Purged  int
	Skipped int
}

// PurgeProfileCache deletes every cached profile and announces each one on the
// invalidation channel so running instances drop their in-memory copy too.
// Used after bulk role changes made directly in the database. With dryRun
// nothing is written.
func PurgeProfileCache(ctx context.Context, rdb *goredis.Client, dryRun bool) (PurgeStats, error) {
	var stats PurgeStats
	var cursor uint64

	for {
		keys, next, err := rdb.Scan(ctx, cursor, profileCachePrefix+"*", purgeScanCount).Result()
		if err != nil {
			return stats, fmt.Errorf("scan failed: %w", err)
		}

		for _, key := range keys {
			stats.Scanned++

			id, err := uuid.Parse(strings.TrimPrefix(key, profileCachePrefix))
			if err != nil {
				slog.WarnContext(ctx, "Skipping malformed profile cache key", "key", key)
				stats.Skipped++
				continue
			}

			if !dryRun {
				if err := rdb.Del(ctx, key).Err(); err != nil {
					return stats, fmt.Errorf("del failed for %s: %w", key, err)
				}
				if err := rdb.Publish(ctx, profileInvalidationChannel, id.String()).Err(); err != nil {
					return stats, fmt.Errorf("publish failed for %s: %w", id, err)
				}
			}

			slog.DebugContext(ctx, "Purged cached profile", "user_id", id, "dry_run", dryRun)
			stats.Purged++
		}

		cursor = next
		if cursor == 0 {
			return stats, nil
		}
	}
}
