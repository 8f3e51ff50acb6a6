// Package cache holds validated assessment results keyed by the normalized
// question set of a submission.
//
// Keys ignore answers entirely, so two applicants answering the same form
// share one entry. That makes the cache an approximate cost-saving heuristic,
// not a source of truth: removing it changes how often the model is called,
// never whether a task completes.
package cache

import (
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/phrazzld/recruit-summary/internal/assessment"
	"github.com/phrazzld/recruit-summary/internal/domain"
)

// Defaults for a ResultCache.
const (
	DefaultMaxEntries = 1000
	DefaultMaxAge     = 24 * time.Hour
)

type entry struct {
	result    *domain.AssessmentResult
	createdAt time.Time
}

// Stats is a point-in-time view of the cache.
type Stats struct {
	Entries        int     `json:"totalEntries"`
	ExpiredEntries int     `json:"expiredEntries"`
	MaxEntries     int     `json:"maxEntries"`
	MaxAgeHours    float64 `json:"maxAgeHours"`
	Hits           int64   `json:"hits"`
	Misses         int64   `json:"misses"`
	Stores         int64   `json:"stores"`
	Rejected       int64   `json:"rejected"`
	Evictions      int64   `json:"evictions"`
}

// ResultCache is a bounded, age-limited map from cache key to result. It is
// safe for concurrent use by many task workers.
type ResultCache struct {
	mu         sync.Mutex
	entries    map[string]entry
	maxEntries int
	maxAge     time.Duration
	headroom   int
	now        func() time.Time
	logger     *slog.Logger

	hits, misses, stores, rejected, evictions int64
}

// Option customises a ResultCache.
type Option func(*ResultCache)

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(c *ResultCache) {
		if now != nil {
			c.now = now
		}
	}
}

// WithEvictionHeadroom sets how many extra entries are evicted beyond the
// surplus when the ceiling is reached. Defaults to a tenth of maxEntries.
func WithEvictionHeadroom(n int) Option {
	return func(c *ResultCache) {
		if n >= 0 {
			c.headroom = n
		}
	}
}

// New creates a cache. Non-positive limits fall back to the defaults.
func New(maxEntries int, maxAge time.Duration, logger *slog.Logger, opts ...Option) *ResultCache {
	if maxEntries <= 0 {
		maxEntries = DefaultMaxEntries
	}
	if maxAge <= 0 {
		maxAge = DefaultMaxAge
	}
	if logger == nil {
		logger = slog.Default()
	}
	c := &ResultCache{
		entries:    make(map[string]entry),
		maxEntries: maxEntries,
		maxAge:     maxAge,
		headroom:   maxEntries / 10,
		now:        time.Now,
		logger:     logger.With("component", "result_cache"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Lookup returns a copy of the result cached for the payload's questions.
// An entry older than the max age is removed and reported as a miss.
func (c *ResultCache) Lookup(payload []domain.QuestionAnswer) (*domain.AssessmentResult, bool) {
	key := KeyFor(payload)

	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		c.misses++
		return nil, false
	}
	if c.expired(e, c.now()) {
		delete(c.entries, key)
		c.misses++
		c.logger.Debug("expired cache entry removed", "key", shortKey(key))
		return nil, false
	}
	c.hits++
	c.logger.Debug("cache hit", "key", shortKey(key))
	return e.result.Clone(), true
}

// Store caches result for the payload's questions. Results that are not
// valid for caching (fallbacks, empty summaries) are ignored and Store
// reports false.
func (c *ResultCache) Store(payload []domain.QuestionAnswer, result *domain.AssessmentResult) bool {
	key := KeyFor(payload)

	c.mu.Lock()
	defer c.mu.Unlock()

	if !assessment.IsValidForCaching(result) {
		c.rejected++
		return false
	}

	if _, exists := c.entries[key]; !exists && len(c.entries) >= c.maxEntries {
		c.evictOldest(len(c.entries) - c.maxEntries + 1 + c.headroom)
	}
	c.entries[key] = entry{result: result.Clone(), createdAt: c.now()}
	c.stores++
	return true
}

// evictOldest removes the n entries with the earliest creation time.
// Callers hold c.mu.
func (c *ResultCache) evictOldest(n int) {
	if n <= 0 {
		return
	}
	if n > len(c.entries) {
		n = len(c.entries)
	}

	type aged struct {
		key       string
		createdAt time.Time
	}
	all := make([]aged, 0, len(c.entries))
	for k, e := range c.entries {
		all = append(all, aged{key: k, createdAt: e.createdAt})
	}
	sort.Slice(all, func(i, j int) bool {
		return all[i].createdAt.Before(all[j].createdAt)
	})
	for _, a := range all[:n] {
		delete(c.entries, a.key)
	}
	c.evictions += int64(n)
	c.logger.Info("evicted oldest cache entries", "evicted", n, "remaining", len(c.entries))
}

func (c *ResultCache) expired(e entry, now time.Time) bool {
	return now.Sub(e.createdAt) > c.maxAge
}

// Len returns the number of entries, expired ones included.
func (c *ResultCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Clear removes every entry. Counters are kept.
func (c *ResultCache) Clear() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := len(c.entries)
	c.entries = make(map[string]entry)
	c.logger.Info("cache cleared", "removed", n)
	return n
}

// Stats reports entry counts and hit/miss counters.
func (c *ResultCache) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	expired := 0
	for _, e := range c.entries {
		if c.expired(e, now) {
			expired++
		}
	}
	return Stats{
		Entries:        len(c.entries),
		ExpiredEntries: expired,
		MaxEntries:     c.maxEntries,
		MaxAgeHours:    c.maxAge.Hours(),
		Hits:           c.hits,
		Misses:         c.misses,
		Stores:         c.stores,
		Rejected:       c.rejected,
		Evictions:      c.evictions,
	}
}

func shortKey(key string) string {
	if len(key) > 24 {
		return key[:24]
	}
	return key
}
