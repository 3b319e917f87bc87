package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// ProfilePrefix namespaces cached public accompanist profiles.
const ProfilePrefix = "cache:accompanist"

// JSONCache stores JSON encoded values under a common key prefix.
type JSONCache struct {
	rdb    redis.UniversalClient
	prefix string
	ttl    time.Duration
}

// NewJSONCache creates a cache whose entries expire after ttl. A trailing
// separator on prefix is dropped.
func NewJSONCache(rdb redis.UniversalClient, prefix string, ttl time.Duration) *JSONCache {
	return &JSONCache{rdb: rdb, prefix: strings.TrimRight(prefix, ":"), ttl: ttl}
}

func (c *JSONCache) key(k string) string {
	return c.prefix + ":" + k
}

// Get decodes the value stored at k into dst. It reports false on a miss.
func (c *JSONCache) Get(ctx context.Context, k string, dst any) (bool, error) {
	raw, err := c.rdb.Get(ctx, c.key(k)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return false, nil
		}
		return false, fmt.Errorf("cache get %s: %w", k, err)
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return false, fmt.Errorf("cache decode %s: %w", k, err)
	}
	return true, nil
}

// Set stores v at k.
func (c *JSONCache) Set(ctx context.Context, k string, v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("cache encode %s: %w", k, err)
	}
	if err := c.rdb.Set(ctx, c.key(k), raw, c.ttl).Err(); err != nil {
		return fmt.Errorf("cache set %s: %w", k, err)
	}
	return nil
}

// Delete removes the given keys.
func (c *JSONCache) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	full := make([]string, len(keys))
	for i, k := range keys {
		full[i] = c.key(k)
	}
	return c.rdb.Del(ctx, full...).Err()
}

// DeleteMatching removes every key starting with k.
func (c *JSONCache) DeleteMatching(ctx context.Context, k string) error {
	iter := c.rdb.Scan(ctx, 0, c.key(k)+"*", 100).Iterator()
	var batch []string
	for iter.Next(ctx) {
		batch = append(batch, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return fmt.Errorf("cache scan %s: %w", k, err)
	}
	if len(batch) == 0 {
		return nil
	}
	return c.rdb.Del(ctx, batch...).Err()
}
