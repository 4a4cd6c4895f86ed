/**
 * @description
 * Redis-backed replay suppressor. Providers redeliver webhooks aggressively;
 * a short-TTL seen-set lets the dispatcher short-circuit an already-processed
 * event id without touching the ledger. Strictly best-effort: the ledger's
 * unique constraint remains the correctness mechanism, and every Redis
 * failure degrades to "not seen".
 *
 * @dependencies
 * - github.com/redis/go-redis/v9: Redis client.
 */

package app

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

const defaultReplaySuppressTTL = time.Hour

// RedisReplaySuppressor implements ReplaySuppressor on a Redis seen-set.
type RedisReplaySuppressor struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

// NewRedisReplaySuppressor creates a suppressor with the given key prefix and
// TTL. A non-positive TTL falls back to one hour.
func NewRedisReplaySuppressor(client *redis.Client, prefix string, ttl time.Duration) *RedisReplaySuppressor {
	prefix = strings.TrimSpace(prefix)
	if prefix == "" {
		prefix = "donation:webhook_seen"
	}
	if ttl <= 0 {
		ttl = defaultReplaySuppressTTL
	}
	return &RedisReplaySuppressor{client: client, prefix: prefix, ttl: ttl}
}

func (r *RedisReplaySuppressor) key(provider, eventID string) string {
	return fmt.Sprintf("%s:%s:%s", r.prefix, provider, eventID)
}

// Seen reports whether the provider event id was marked processed recently.
func (r *RedisReplaySuppressor) Seen(ctx context.Context, provider, eventID string) (bool, error) {
	n, err := r.client.Exists(ctx, r.key(provider, eventID)).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// MarkSeen records the event id after the callback was fully processed.
func (r *RedisReplaySuppressor) MarkSeen(ctx context.Context, provider, eventID string) error {
	return r.client.Set(ctx, r.key(provider, eventID), "1", r.ttl).Err()
}
