// Package recent keeps each user's latest response per topic in Redis so the
// UI can re-read or clear recently delivered results. It implements the
// bridge's ResponseSink.
package recent

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"

	jsoncodec "github.com/singularis/chater/internal/runtime/jsoncodec"
)

const defaultTTL = 24 * time.Hour

// Cache stores one hash per user keyed by topic.
type Cache struct {
	client *redis.Client
	ttl    time.Duration
}

// New constructs a cache with the default 24h retention.
func New(client *redis.Client) *Cache {
	return &Cache{client: client, ttl: defaultTTL}
}

func key(userEmail string) string { return "responses:" + userEmail }

// Store records the response value under the user's hash. Failures are
// ignored: the cache is best-effort and must never block reply delivery.
func (c *Cache) Store(ctx context.Context, userEmail, topic string, value map[string]any) {
	data, err := jsoncodec.Marshal(value)
	if err != nil {
		return
	}
	pipe := c.client.Pipeline()
	pipe.HSet(ctx, key(userEmail), topic, data)
	pipe.Expire(ctx, key(userEmail), c.ttl)
	_, _ = pipe.Exec(ctx)
}

// Latest returns the last response delivered to the user on topic, nil when
// none is cached.
func (c *Cache) Latest(ctx context.Context, userEmail, topic string) (map[string]any, error) {
	data, err := c.client.HGet(ctx, key(userEmail), topic).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var value map[string]any
	if err := jsoncodec.Unmarshal(data, &value); err != nil {
		return nil, err
	}
	return value, nil
}

// Clear drops every cached response for the user.
func (c *Cache) Clear(ctx context.Context, userEmail string) error {
	return c.client.Del(ctx, key(userEmail)).Err()
}
