package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/noah-isme/nerus-go-api/pkg/ai"
)

// DefaultRedisPrefix namespaces analysis keys in a shared Redis.
const DefaultRedisPrefix = "nerus:analysis:"

const scanBatch = 100

var errCorruptEntry = errors.New("corrupt cache entry")

// RedisCache stores entries in Redis, one key per fingerprint. Keys live for
// twice the TTL so Stats can still see entries that expired logically.
type RedisCache struct {
	client  *redis.Client
	prefix  string
	ttl     time.Duration
	enabled bool
	now     func() time.Time
	logger  zerolog.Logger
}

// NewRedisCache constructs a Redis-backed cache.
func NewRedisCache(client *redis.Client, prefix string, opts Options, logger zerolog.Logger) *RedisCache {
	if prefix == "" {
		prefix = DefaultRedisPrefix
	}
	return &RedisCache{
		client:  client,
		prefix:  prefix,
		ttl:     opts.ttl(),
		enabled: opts.Enabled,
		now:     time.Now,
		logger:  logger.With().Str("component", "analysis_cache").Str("backend", BackendRedis).Logger(),
	}
}

// WithClock overrides the time source.
func (c *RedisCache) WithClock(now func() time.Time) *RedisCache {
	if now != nil {
		c.now = now
	}
	return c
}

func (c *RedisCache) Enabled() bool { return c.enabled && c.client != nil }

func (c *RedisCache) key(fingerprint string) string {
	return c.prefix + fingerprint
}

// Get returns a live entry. Logically expired entries are deleted.
func (c *RedisCache) Get(ctx context.Context, fingerprint string) (ai.AnalysisResult, bool) {
	if c.client == nil {
		return ai.AnalysisResult{}, false
	}

	entry, err := c.load(ctx, c.key(fingerprint))
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.logger.Warn().Err(err).Str("key", fingerprint).Msg("failed to read analysis cache")
		}
		return ai.AnalysisResult{}, false
	}

	if entry.expired(c.now(), c.ttl) {
		if err := c.client.Del(ctx, c.key(fingerprint)).Err(); err != nil {
			c.logger.Warn().Err(err).Str("key", fingerprint).Msg("failed to evict expired entry")
		}
		return ai.AnalysisResult{}, false
	}
	return entry.Result, true
}

// Put stores result with a fresh timestamp.
func (c *RedisCache) Put(ctx context.Context, fingerprint string, result ai.AnalysisResult) {
	if c.client == nil {
		return
	}

	payload, err := json.Marshal(Entry{Result: result, CreatedAt: c.now()})
	if err != nil {
		c.logger.Warn().Err(err).Msg("failed to encode analysis for cache")
		return
	}
	if err := c.client.Set(ctx, c.key(fingerprint), payload, 2*c.ttl).Err(); err != nil {
		c.logger.Warn().Err(err).Str("key", fingerprint).Msg("failed to store analysis cache")
		return
	}
	c.logger.Debug().Str("key", fingerprint).Msg("analysis cached")
}

// Clear deletes every key under the cache prefix.
func (c *RedisCache) Clear(ctx context.Context) error {
	if c.client == nil {
		return nil
	}

	deleted := 0
	err := c.scan(ctx, func(keys []string) error {
		if err := c.client.Del(ctx, keys...).Err(); err != nil {
			return err
		}
		deleted += len(keys)
		return nil
	})
	if err != nil {
		return fmt.Errorf("clear analysis cache: %w", err)
	}
	c.logger.Info().Int("entries", deleted).Msg("cache cleared")
	return nil
}

// Stats walks the prefix and classifies every entry.
func (c *RedisCache) Stats(ctx context.Context) Stats {
	stats := Stats{
		CacheEnabled: c.Enabled(),
		TTLHours:     c.ttl.Hours(),
		Backend:      BackendRedis,
	}
	if c.client == nil {
		return stats
	}

	now := c.now()
	err := c.scan(ctx, func(keys []string) error {
		for _, key := range keys {
			entry, err := c.load(ctx, key)
			if err != nil {
				if errors.Is(err, redis.Nil) {
					continue
				}
				if errors.Is(err, errCorruptEntry) {
					c.logger.Debug().Err(err).Str("key", key).Msg("skipping corrupt cache entry")
					continue
				}
				return err
			}
			stats.TotalEntries++
			if entry.expired(now, c.ttl) {
				stats.ExpiredEntries++
			} else {
				stats.ValidEntries++
			}
		}
		return nil
	})
	if err != nil {
		c.logger.Warn().Err(err).Msg("failed to collect cache stats")
	}
	return stats
}

func (c *RedisCache) load(ctx context.Context, key string) (Entry, error) {
	raw, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		return Entry{}, err
	}
	var entry Entry
	if err := json.Unmarshal(raw, &entry); err != nil {
		return Entry{}, fmt.Errorf("%w: %v", errCorruptEntry, err)
	}
	return entry, nil
}

func (c *RedisCache) scan(ctx context.Context, fn func(keys []string) error) error {
	var cursor uint64
	for {
		keys, next, err := c.client.Scan(ctx, cursor, c.prefix+"*", scanBatch).Result()
		if err != nil {
			return err
		}
		if len(keys) > 0 {
			if err := fn(keys); err != nil {
				return err
			}
		}
		if next == 0 {
			return nil
		}
		cursor = next
	}
}
