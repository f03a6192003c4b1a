package cache

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/noah-isme/nerus-go-api/pkg/ai"
)

// MemoryCache keeps entries in a process-local map.
type MemoryCache struct {
	mu      sync.Mutex
	entries map[string]Entry
	ttl     time.Duration
	enabled bool
	now     func() time.Time
	logger  zerolog.Logger
}

// NewMemoryCache constructs an in-process cache.
func NewMemoryCache(opts Options, logger zerolog.Logger) *MemoryCache {
	return &MemoryCache{
		entries: make(map[string]Entry),
		ttl:     opts.ttl(),
		enabled: opts.Enabled,
		now:     time.Now,
		logger:  logger.With().Str("component", "analysis_cache").Str("backend", BackendMemory).Logger(),
	}
}

// WithClock overrides the time source.
func (c *MemoryCache) WithClock(now func() time.Time) *MemoryCache {
	if now != nil {
		c.now = now
	}
	return c
}

func (c *MemoryCache) Enabled() bool { return c.enabled }

// Get returns a copy of a live entry. Stale entries are evicted.
func (c *MemoryCache) Get(_ context.Context, key string) (ai.AnalysisResult, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.entries[key]
	if !ok {
		return ai.AnalysisResult{}, false
	}
	if entry.expired(c.now(), c.ttl) {
		delete(c.entries, key)
		c.logger.Debug().Str("key", key).Msg("cache entry expired")
		return ai.AnalysisResult{}, false
	}
	return entry.Result.Clone(), true
}

// Put stores result with a fresh timestamp, replacing any previous entry.
func (c *MemoryCache) Put(_ context.Context, key string, result ai.AnalysisResult) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries[key] = Entry{Result: result.Clone(), CreatedAt: c.now()}
	c.logger.Debug().Str("key", key).Msg("analysis cached")
}

// Clear drops every entry.
func (c *MemoryCache) Clear(_ context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	count := len(c.entries)
	c.entries = make(map[string]Entry)
	c.logger.Info().Int("entries", count).Msg("cache cleared")
	return nil
}

// Stats counts entries at call time.
func (c *MemoryCache) Stats(_ context.Context) Stats {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	stats := Stats{
		TotalEntries: len(c.entries),
		CacheEnabled: c.enabled,
		TTLHours:     c.ttl.Hours(),
		Backend:      BackendMemory,
	}
	for _, entry := range c.entries {
		if entry.expired(now, c.ttl) {
			stats.ExpiredEntries++
			continue
		}
		stats.ValidEntries++
	}
	return stats
}
