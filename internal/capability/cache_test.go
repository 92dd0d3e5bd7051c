package capability

import (
	"testing"
	"time"
)

// fakeClock advances only when told to.
type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Now() time.Time { return c.now }

func (c *fakeClock) Advance(d time.Duration) { c.now = c.now.Add(d) }

func newTestCache(clock *fakeClock, ttl time.Duration, probeCount *int) *Cache {
	probe := func() Snapshot {
		*probeCount++
		return Snapshot{
			VipsAvailable:     false,
			RecommendedMethod: "none",
			CheckedAt:         clock.Now(),
		}
	}
	return NewCacheWithProbe(probe, ttl, clock.Now)
}

func TestCacheProbesOnce(t *testing.T) {
	clock := &fakeClock{now: time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)}
	count := 0
	c := newTestCache(clock, time.Hour, &count)

	for i := 0; i < 5; i++ {
		c.Get(false)
	}

	if count != 1 {
		t.Errorf("probe ran %d times, want 1", count)
	}
}

func TestCacheExpiresAfterTTL(t *testing.T) {
	clock := &fakeClock{now: time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)}
	count := 0
	c := newTestCache(clock, time.Hour, &count)

	first := c.Get(false)

	clock.Advance(59 * time.Minute)
	c.Get(false)
	if count != 1 {
		t.Fatalf("probe ran %d times before TTL, want 1", count)
	}

	clock.Advance(2 * time.Minute)
	second := c.Get(false)
	if count != 2 {
		t.Errorf("probe ran %d times after TTL, want 2", count)
	}
	if !second.CheckedAt.After(first.CheckedAt) {
		t.Error("refreshed snapshot should carry a later CheckedAt")
	}
}

func TestCacheForceRefresh(t *testing.T) {
	clock := &fakeClock{now: time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)}
	count := 0
	c := newTestCache(clock, time.Hour, &count)

	c.Get(false)
	c.Get(true)
	c.Get(true)

	if count != 3 {
		t.Errorf("probe ran %d times, want 3 (one initial, two forced)", count)
	}
}

func TestCacheInvalidate(t *testing.T) {
	clock := &fakeClock{now: time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)}
	count := 0
	c := newTestCache(clock, time.Hour, &count)

	c.Get(false)
	c.Invalidate()
	c.Get(false)

	if count != 2 {
		t.Errorf("probe ran %d times, want 2 after invalidation", count)
	}
}

func TestProbeWithoutVips(t *testing.T) {
	// vips is never initialized in tests, so the real probe must report a
	// fully degraded environment without touching cgo.
	s := Probe()

	if s.VipsAvailable {
		t.Error("VipsAvailable = true without initialization")
	}
	if s.PDFSupported || s.WebPSupported {
		t.Error("format support reported without a raster backend")
	}
	if s.RecommendedMethod != "none" {
		t.Errorf("RecommendedMethod = %q, want %q", s.RecommendedMethod, "none")
	}
	if s.ExtractionAvailable {
		t.Error("ExtractionAvailable = true without PDF support")
	}
	if s.CheckedAt.IsZero() {
		t.Error("CheckedAt not set")
	}
}
