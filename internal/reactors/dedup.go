package reactors

import (
	"context"
	"time"

	"github.com/go-redis/redis/v8"
)

const dedupTTL = 7 * 24 * time.Hour

// RedisDeduper claims keys with SETNX. The TTL bounds key growth; it is far
// longer than any realistic redelivery window.
type RedisDeduper struct {
	rdb *redis.Client
}

func NewRedisDeduper(rdb *redis.Client) *RedisDeduper {
	return &RedisDeduper{rdb: rdb}
}

func (d *RedisDeduper) Once(ctx context.Context, key string) (bool, error) {
	return d.rdb.SetNX(ctx, "storefront:dedup:"+key, 1, dedupTTL).Result()
}
