package narrate

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"
)

// Entry is one cached audio asset. Entries are immutable once written:
// a later fetch for the same id never overwrites an existing entry.
type Entry struct {
	AudioURL string
	Duration time.Duration
}

// CacheStats tracks asset cache counters.
type CacheStats struct {
	Hits           int64
	Misses         int64
	Synthesized    int64
	Failures       int64
	RateLimitSkips int64
	InFlightJoins  int64
}

// inflightFetch is the shared result of the single network call allowed
// per id. Waiters block on done and then read entry/ok.
type inflightFetch struct {
	done  chan struct{}
	entry Entry
	ok    bool
}

// AssetCache memoizes synthesized audio per item for the lifetime of a
// presentation session. It deduplicates in-flight fetches, records
// permanent per-item failures, and defers to the shared RateLimiter for
// all outbound requests.
type AssetCache struct {
	mu       sync.Mutex
	entries  map[string]Entry
	failed   map[string]struct{}
	inflight map[string]*inflightFetch
	stats    CacheStats

	limiter *RateLimiter
	synth   Synthesizer
	logger  *log.Logger
}

// NewAssetCache creates an asset cache backed by the given synthesizer
// and the shared rate limiter.
func NewAssetCache(synth Synthesizer, limiter *RateLimiter) *AssetCache {
	return &AssetCache{
		entries:  make(map[string]Entry),
		failed:   make(map[string]struct{}),
		inflight: make(map[string]*inflightFetch),
		limiter:  limiter,
		synth:    synth,
		logger:   log.Default().With("component", "assetcache"),
	}
}

// Get returns the cached entry for id, if any. Pure lookup.
func (c *AssetCache) Get(id string) (Entry, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[id]
	return e, ok
}

// Failed reports whether synthesis for id failed permanently this session.
func (c *AssetCache) Failed(id string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, bad := c.failed[id]
	return bad
}

// InFlight reports whether a fetch for id is currently outstanding.
func (c *AssetCache) InFlight(id string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, busy := c.inflight[id]
	return busy
}

// Request resolves the audio asset for an item. It returns a cache hit
// without network activity, stores pre-supplied assets directly, joins
// an outstanding fetch for the same id, and otherwise issues at most one
// synthesis call, subject to the rate limiter. A false result is either
// a skip (non-narratable, failed, rate-limited) or a fresh failure; the
// caller is expected to fall back to nominal durations either way.
func (c *AssetCache) Request(ctx context.Context, item Item) (Entry, bool) {
	if !item.Narratable || (strings.TrimSpace(item.Text) == "" && item.AudioURL == "") {
		return Entry{}, false
	}

	c.mu.Lock()

	if _, bad := c.failed[item.ID]; bad {
		c.mu.Unlock()
		return Entry{}, false
	}
	if e, ok := c.entries[item.ID]; ok {
		c.stats.Hits++
		c.mu.Unlock()
		return e, true
	}
	c.stats.Misses++

	// Already-persisted asset: no synthesis call needed.
	if item.AudioURL != "" {
		e := Entry{AudioURL: item.AudioURL, Duration: item.Fallback}
		c.entries[item.ID] = e
		c.mu.Unlock()
		return e, true
	}

	// Join an outstanding fetch rather than duplicating it.
	if f, busy := c.inflight[item.ID]; busy {
		c.stats.InFlightJoins++
		c.mu.Unlock()
		select {
		case <-f.done:
			return f.entry, f.ok
		case <-ctx.Done():
			return Entry{}, false
		}
	}

	if !c.limiter.Allow() {
		c.stats.RateLimitSkips++
		c.mu.Unlock()
		return Entry{}, false
	}

	f := &inflightFetch{done: make(chan struct{})}
	c.inflight[item.ID] = f
	c.mu.Unlock()

	res, err := c.synth.Synthesize(ctx, item.Text)

	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.inflight, item.ID)
	defer close(f.done)

	if err != nil {
		var rle *RateLimitedError
		switch {
		case errors.As(err, &rle):
			c.limiter.TripCooldown(rle.RetryAfter)
			c.logger.Warn("rate limited", "id", item.ID, "retryAfter", rle.RetryAfter)
		case errors.Is(err, ErrRateLimited):
			c.limiter.TripCooldown(0)
			c.logger.Warn("rate limited", "id", item.ID)
		default:
			c.failed[item.ID] = struct{}{}
			c.stats.Failures++
			c.logger.Error("synthesis failed", "id", item.ID, "error", err)
		}
		return Entry{}, false
	}

	dur := res.Duration
	if dur <= 0 {
		dur = item.Fallback
	}
	e := Entry{AudioURL: res.AudioURL, Duration: dur}
	if existing, ok := c.entries[item.ID]; ok {
		e = existing
	} else {
		c.entries[item.ID] = e
	}
	c.stats.Synthesized++

	f.entry, f.ok = e, true
	return e, true
}

// Stats returns a snapshot of the cache counters.
func (c *AssetCache) Stats() CacheStats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stats
}

// Len returns the number of cached entries.
func (c *AssetCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Reset clears entries and failure markers for a full session reset.
func (c *AssetCache) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]Entry)
	c.failed = make(map[string]struct{})
	c.stats = CacheStats{}
}
