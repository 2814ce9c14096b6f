package directory

import (
	"context"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	id "chancery/pkg/domain"
)

// activeFlagTTL bounds how long a stale active flag can linger. Deactivated
// actors stop receiving new routing within this window.
const activeFlagTTL = 5 * time.Minute

// CachedDirectory is a read-through Redis cache in front of another
// Directory. Cache failures degrade to the inner directory; they are logged
// and never surfaced, since sanitization must not fail an update because
// Redis is down.
type CachedDirectory struct {
	inner  Directory
	client *redis.Client
	logger *slog.Logger
}

func NewCached(inner Directory, client *redis.Client, logger *slog.Logger) *CachedDirectory {
	return &CachedDirectory{inner: inner, client: client, logger: logger}
}

func cacheKey(actorID id.ActorID) string {
	return "chancery:actor-active:" + actorID.String()
}

func (d *CachedDirectory) ListActive(ctx context.Context, ids []id.ActorID) ([]id.ActorID, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	keys := make([]string, 0, len(ids))
	for _, actorID := range ids {
		keys = append(keys, cacheKey(actorID))
	}

	var (
		active []id.ActorID
		misses []id.ActorID
	)
	cached, err := d.client.MGet(ctx, keys...).Result()
	if err != nil {
		d.logger.WarnContext(ctx, "directory cache read failed, falling back",
			"error", err,
		)
		return d.inner.ListActive(ctx, ids)
	}
	for i, v := range cached {
		switch v {
		case "1":
			active = append(active, ids[i])
		case "0":
			// cached inactive, drop
		default:
			misses = append(misses, ids[i])
		}
	}
	if len(misses) == 0 {
		return active, nil
	}

	fresh, err := d.inner.ListActive(ctx, misses)
	if err != nil {
		return nil, err
	}
	freshSet := make(map[id.ActorID]bool, len(fresh))
	for _, actorID := range fresh {
		freshSet[actorID] = true
	}

	pipe := d.client.Pipeline()
	for _, actorID := range misses {
		flag := "0"
		if freshSet[actorID] {
			flag = "1"
		}
		pipe.Set(ctx, cacheKey(actorID), flag, activeFlagTTL)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		d.logger.WarnContext(ctx, "directory cache write failed",
			"error", err,
		)
	}

	return append(active, fresh...), nil
}
