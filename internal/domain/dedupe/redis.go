package dedupe

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// redisDeduper stores keys with SET NX so every service instance shares them.
type redisDeduper struct {
	client redis.UniversalClient
	prefix string
	ttl    time.Duration
}

// NewRedisDeduper creates a deduper backed by Redis.
func NewRedisDeduper(client redis.UniversalClient, opts ...Option) Deduper {
	d := &redisDeduper{
		client: client,
		prefix: "techgames:submission",
		ttl:    24 * time.Hour,
	}
	for _, opt := range opts {
		opt.applyRedis(d)
	}
	return d
}

func (d *redisDeduper) key(k string) string {
	return d.prefix + ":" + k
}

func (d *redisDeduper) SeenAndRecord(ctx context.Context, key string) (bool, error) {
	if d.client == nil {
		return false, fmt.Errorf("dedupe: redis client is nil")
	}
	ok, err := d.client.SetNX(ctx, d.key(key), time.Now().UTC().Format(time.RFC3339), d.ttl).Result()
	if err != nil {
		return false, fmt.Errorf("dedupe: setnx: %w", err)
	}
	return !ok, nil
}

func (d *redisDeduper) Unrecord(ctx context.Context, key string) error {
	if d.client == nil {
		return fmt.Errorf("dedupe: redis client is nil")
	}
	if err := d.client.Del(ctx, d.key(key)).Err(); err != nil {
		return fmt.Errorf("dedupe: del: %w", err)
	}
	return nil
}

// Size is not tracked for Redis; counting keys would need a SCAN.
func (d *redisDeduper) Size(context.Context) int64 {
	return -1
}
