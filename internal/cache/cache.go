package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/noah-isme/nerus-go-api/pkg/ai"
)

// Supported cache backends.
const (
	BackendMemory = "memory"
	BackendRedis  = "redis"
)

// DefaultTTL is used when a cache is built without an explicit TTL.
const DefaultTTL = 24 * time.Hour

// ResultCache stores normalized analyses keyed by fingerprint.
type ResultCache interface {
	Get(ctx context.Context, key string) (ai.AnalysisResult, bool)
	Put(ctx context.Context, key string, result ai.AnalysisResult)
	Clear(ctx context.Context) error
	Stats(ctx context.Context) Stats
	Enabled() bool
}

// Stats is a point-in-time view of the cache contents.
type Stats struct {
	TotalEntries   int     `json:"total_entries"`
	ValidEntries   int     `json:"valid_entries"`
	ExpiredEntries int     `json:"expired_entries"`
	CacheEnabled   bool    `json:"cache_enabled"`
	TTLHours       float64 `json:"ttl_hours"`
	Backend        string  `json:"backend"`
}

// Entry is a cached analysis together with its creation time.
type Entry struct {
	Result    ai.AnalysisResult `json:"result"`
	CreatedAt time.Time         `json:"cached_at"`
}

func (e Entry) expired(now time.Time, ttl time.Duration) bool {
	return now.Sub(e.CreatedAt) > ttl
}

// Options configures a cache backend.
type Options struct {
	TTL     time.Duration
	Enabled bool
}

func (o Options) ttl() time.Duration {
	if o.TTL <= 0 {
		return DefaultTTL
	}
	return o.TTL
}

// Fingerprint derives the cache key of a (problem, solution) pair.
func Fingerprint(problemID uint, solution string) string {
	sum := sha256.Sum256([]byte(strconv.FormatUint(uint64(problemID), 10) + ":" + solution))
	return hex.EncodeToString(sum[:])
}

// New builds the cache backend selected by name.
func New(backend string, client *redis.Client, opts Options, logger zerolog.Logger) (ResultCache, error) {
	switch strings.ToLower(strings.TrimSpace(backend)) {
	case "", BackendMemory:
		return NewMemoryCache(opts, logger), nil
	case BackendRedis:
		if client == nil {
			return nil, fmt.Errorf("redis cache backend requires a redis client")
		}
		return NewRedisCache(client, DefaultRedisPrefix, opts, logger), nil
	default:
		return nil, fmt.Errorf("unknown cache backend %q", backend)
	}
}
