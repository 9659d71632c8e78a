package websearch

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

const defaultCacheKeyPrefix = "helpdesk:websearch:"

// Cache stores rendered search results by key.
type Cache interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key string, value string, ttl time.Duration) error
}

// Cached serves repeated queries from a cache. Cache failures are logged and
// never fail the search.
type Cached struct {
	next  Provider
	cache Cache
	ttl   time.Duration
}

func NewCached(next Provider, cache Cache, ttl time.Duration) *Cached {
	return &Cached{next: next, cache: cache, ttl: ttl}
}

func (c *Cached) Search(ctx context.Context, query string) (string, error) {
	q := strings.TrimSpace(query)
	if q == "" {
		return "", ErrEmptyQuery
	}
	key := cacheKey(q)

	if hit, ok, err := c.cache.Get(ctx, key); err != nil {
		log.Warn().Err(err).Str("query", q).Msg("websearch cache read failed")
	} else if ok {
		log.Debug().Str("query", q).Msg("websearch cache hit")
		return hit, nil
	}

	out, err := c.next.Search(ctx, q)
	if err != nil {
		return "", err
	}

	if err := c.cache.Set(ctx, key, out, c.ttl); err != nil {
		log.Warn().Err(err).Str("query", q).Msg("websearch cache write failed")
	}
	return out, nil
}

// cacheKey normalises case and whitespace so equivalent queries share an entry.
func cacheKey(query string) string {
	normalized := strings.Join(strings.Fields(strings.ToLower(query)), " ")
	sum := sha256.Sum256([]byte(normalized))
	return hex.EncodeToString(sum[:])
}

// RedisCache stores entries in a Redis server through go-redis.
type RedisCache struct {
	client    redis.Cmdable
	keyPrefix string
}

func NewRedisCache(client redis.Cmdable, keyPrefix string) *RedisCache {
	prefix := strings.TrimSpace(keyPrefix)
	if prefix == "" {
		prefix = defaultCacheKeyPrefix
	}
	return &RedisCache{client: client, keyPrefix: prefix}
}

func (r *RedisCache) Get(ctx context.Context, key string) (string, bool, error) {
	val, err := r.client.Get(ctx, r.keyPrefix+key).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return val, true, nil
}

func (r *RedisCache) Set(ctx context.Context, key string, value string, ttl time.Duration) error {
	if ttl < 0 {
		ttl = 0
	}
	return r.client.Set(ctx, r.keyPrefix+key, value, ttl).Err()
}
