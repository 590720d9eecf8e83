package selfknowledge

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

type cacheKey struct {
	character string
	kind      InsightKind
}

type cacheEntry struct {
	discovery Discovery
	expiresAt time.Time
}

// memCache is the default process-local Cache.
type memCache struct {
	mu      sync.Mutex
	entries map[cacheKey]cacheEntry
}

func NewInMemoryCache() Cache {
	return &memCache{entries: map[cacheKey]cacheEntry{}}
}

func (c *memCache) Get(ctx context.Context, character string, kind InsightKind) (Discovery, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	entry, ok := c.entries[cacheKey{character, kind}]
	if !ok || time.Now().After(entry.expiresAt) {
		return Discovery{}, false
	}
	return entry.discovery, true
}

func (c *memCache) Put(ctx context.Context, character string, kind InsightKind, d Discovery) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[cacheKey{character, kind}] = cacheEntry{discovery: d, expiresAt: time.Now().Add(cacheTTL)}
}

// redisCache backs Discover's cache with Redis, for deployments that run
// many character processes sharing discovery results.
type redisCache struct {
	client *redis.Client
}

// NewRedisCache returns a Cache backed by an already-configured redis
// client.
func NewRedisCache(client *redis.Client) Cache {
	return &redisCache{client: client}
}

func redisCacheKey(character string, kind InsightKind) string {
	return fmt.Sprintf("whisperengine:selfknowledge:%s:%s", character, kind)
}

func (c *redisCache) Get(ctx context.Context, character string, kind InsightKind) (Discovery, bool) {
	raw, err := c.client.Get(ctx, redisCacheKey(character, kind)).Bytes()
	if err != nil {
		return Discovery{}, false
	}
	var d Discovery
	if err := json.Unmarshal(raw, &d); err != nil {
		return Discovery{}, false
	}
	return d, true
}

func (c *redisCache) Put(ctx context.Context, character string, kind InsightKind, d Discovery) {
	raw, err := json.Marshal(d)
	if err != nil {
		return
	}
	c.client.Set(ctx, redisCacheKey(character, kind), raw, cacheTTL)
}
