package carving

const (
	// Bounds for the fingerprint cache capacity derived from the memory
	// budget.
	minFingerprintCapacity = 100_000
	maxFingerprintCapacity = 50_000_000

	// fingerprintsPerGB scales cache capacity with budgeted memory. Each
	// fingerprint costs a few dozen bytes, so a larger budget buys fewer
	// cleanups and faster scans.
	fingerprintsPerGB = 2_000_000

	// cleanupRetainRatio is the fraction of capacity retained by a cleanup
	// pass when the cache has overflowed. Evicting the oldest 30% trades
	// some duplicate suppression for bounded memory.
	cleanupRetainRatio = 0.7
)

// FingerprintCapacity returns the fingerprint cache bound for a memory budget
// of budgetMB megabytes, clamped to [100,000, 50,000,000].
func FingerprintCapacity(budgetMB int64) int {
	capacity := int(budgetMB / 1024 * fingerprintsPerGB)
	if capacity < minFingerprintCapacity {
		return minFingerprintCapacity
	}
	if capacity > maxFingerprintCapacity {
		return maxFingerprintCapacity
	}
	return capacity
}

const (
	minCleanupInterval = 50_000
	maxCleanupInterval = 500_000

	// cleanupBlocksPerGB scales the cleanup cadence with budgeted memory:
	// more memory means fewer cleanup passes and a faster scan.
	cleanupBlocksPerGB = 100_000
)

// CleanupInterval returns how many scanned blocks may elapse between cache
// cleanup passes for a memory budget of budgetMB megabytes, clamped to
// [50,000, 500,000].
func CleanupInterval(budgetMB int64) int64 {
	interval := budgetMB / 1024 * cleanupBlocksPerGB
	if interval < minCleanupInterval {
		return minCleanupInterval
	}
	if interval > maxCleanupInterval {
		return maxCleanupInterval
	}
	return interval
}

// DedupeCache is a bounded, insertion-ordered collection of content
// fingerprints preventing re-emission of the same recovered content.
//
// The cache is owned exclusively by one orchestrator session and is not safe
// for concurrent use. Eviction is deterministic: a cleanup pass retains the
// most recently inserted 70% of capacity and drops the rest.
type DedupeCache struct {
	capacity int
	seen     map[Fingerprint]int64 // fingerprint -> insertion sequence
	seq      int64
}

// NewDedupeCache creates a cache bounded to the given number of fingerprints.
func NewDedupeCache(capacity int) *DedupeCache {
	if capacity < 1 {
		capacity = 1
	}
	return &DedupeCache{
		capacity: capacity,
		seen:     make(map[Fingerprint]int64),
	}
}

// Contains reports whether the fingerprint is currently in the cache.
func (c *DedupeCache) Contains(fp Fingerprint) bool {
	_, ok := c.seen[fp]
	return ok
}

// Add inserts the fingerprint and reports whether it was newly added.
// Re-adding a present fingerprint does not refresh its insertion order.
func (c *DedupeCache) Add(fp Fingerprint) bool {
	if _, ok := c.seen[fp]; ok {
		return false
	}
	c.seen[fp] = c.seq
	c.seq++
	return true
}

// Len returns the number of fingerprints currently held.
func (c *DedupeCache) Len() int { return len(c.seen) }

// Capacity returns the configured fingerprint bound.
func (c *DedupeCache) Capacity() int { return c.capacity }

// Cleanup enforces the capacity bound. When the cache has grown past its
// capacity it retains the most recently inserted 70% of capacity and evicts
// everything older, returning the number of evicted fingerprints. A cache
// within bounds is left untouched.
func (c *DedupeCache) Cleanup() int {
	if len(c.seen) <= c.capacity {
		return 0
	}

	keep := int(float64(c.capacity) * cleanupRetainRatio)
	if keep < 1 {
		keep = 1
	}

	// Everything inserted at or after cutoff survives.
	cutoff := c.seq - int64(keep)

	evicted := 0
	for fp, at := range c.seen {
		if at < cutoff {
			delete(c.seen, fp)
			evicted++
		}
	}
	return evicted
}
