package capability

import (
	"sync"
	"time"

	"pdf-preview/internal/logging"
	"pdf-preview/internal/metrics"
)

// DefaultTTL is how long a probed Snapshot stays valid. Probing loads the
// PDF and WebP paths through libvips, which is cheap but not free, and the
// answers only change when the underlying library changes.
const DefaultTTL = time.Hour

// Cache memoizes capability Snapshots with a TTL.
type Cache struct {
	mu    sync.Mutex
	probe func() Snapshot
	now   func() time.Time
	ttl   time.Duration

	snapshot Snapshot
	valid    bool
}

// NewCache returns a Cache backed by the real Probe function.
func NewCache() *Cache {
	return &Cache{
		probe: Probe,
		now:   time.Now,
		ttl:   DefaultTTL,
	}
}

// NewCacheWithProbe returns a Cache with an injected probe function, TTL,
// and clock. Used by tests and by callers that need a shorter TTL.
func NewCacheWithProbe(probe func() Snapshot, ttl time.Duration, now func() time.Time) *Cache {
	if now == nil {
		now = time.Now
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Cache{probe: probe, now: now, ttl: ttl}
}

// Get returns the cached Snapshot, probing first if the cache is empty,
// expired, or forceRefresh is set.
func (c *Cache) Get(forceRefresh bool) Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.valid && !forceRefresh && c.now().Sub(c.snapshot.CheckedAt) < c.ttl {
		return c.snapshot
	}

	trigger := "expired"
	if forceRefresh {
		trigger = "forced"
	} else if !c.valid {
		trigger = "initial"
	}

	c.snapshot = c.probe()
	c.valid = true
	metrics.CapabilityRefreshTotal.WithLabelValues(trigger).Inc()
	logging.Info("capability snapshot refreshed (%s): method=%s webp=%v",
		trigger, c.snapshot.RecommendedMethod, c.snapshot.WebPSupported)
	return c.snapshot
}

// Invalidate drops the cached Snapshot so the next Get probes again.
func (c *Cache) Invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.valid = false
}
