package authority

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/JonMunkholm/busreg/internal/core"
)

// Cache stores authority answers for licences the authority knows.
// Unknown licences are never cached so that a newly granted licence is
// picked up on the next submission.
type Cache interface {
	// GetMany returns the cached entries among licences.
	GetMany(ctx context.Context, licences []string) (map[string]core.AuthorityMetadata, error)
	// SetMany stores entries until the cache TTL expires.
	SetMany(ctx context.Context, entries map[string]core.AuthorityMetadata) error
}

const cacheKeyPrefix = "busreg:authority:licence:"

// RedisCache is a Cache on Redis with JSON values.
type RedisCache struct {
	rdb redis.Cmdable
	ttl time.Duration
}

// NewRedisCache creates a cache writing entries with ttl.
func NewRedisCache(rdb redis.Cmdable, ttl time.Duration) *RedisCache {
	return &RedisCache{rdb: rdb, ttl: ttl}
}

func cacheKey(licence string) string {
	return cacheKeyPrefix + licence
}

func (c *RedisCache) GetMany(ctx context.Context, licences []string) (map[string]core.AuthorityMetadata, error) {
	found := make(map[string]core.AuthorityMetadata, len(licences))
	if len(licences) == 0 {
		return found, nil
	}

	keys := make([]string, len(licences))
	for i, l := range licences {
		keys[i] = cacheKey(l)
	}

	vals, err := c.rdb.MGet(ctx, keys...).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return nil, err
	}

	for i, v := range vals {
		s, ok := v.(string)
		if !ok {
			continue
		}
		var meta core.AuthorityMetadata
		if err := json.Unmarshal([]byte(s), &meta); err != nil {
			continue
		}
		found[licences[i]] = meta
	}
	return found, nil
}

func (c *RedisCache) SetMany(ctx context.Context, entries map[string]core.AuthorityMetadata) error {
	if len(entries) == 0 {
		return nil
	}

	pipe := c.rdb.Pipeline()
	for licence, meta := range entries {
		b, err := json.Marshal(meta)
		if err != nil {
			return err
		}
		pipe.Set(ctx, cacheKey(licence), b, c.ttl)
	}
	_, err := pipe.Exec(ctx)
	return err
}
