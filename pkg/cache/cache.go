// Package cache provides a bounded-staleness, in-memory TTL store for
// campaign records and the aggregate campaign count. It performs no network
// I/O; validity is re-evaluated on every read rather than by a background
// sweep, so stale entries are treated as absent until overwritten or
// explicitly invalidated.
package cache

import (
	"sync"
	"time"
)

// DefaultTTL is the maximum age at which a cached value is still served.
const DefaultTTL = 30 * time.Second

type entry[T any] struct {
	value    T
	storedAt time.Time
}

// Campaigns is a TTL cache keyed by campaign id, with one extra slot for the
// aggregate count. All methods are safe for concurrent use; the mutex covers
// the whole read-check-then-write sequence so reads and invalidations cannot
// interleave into lost updates.
type Campaigns[T any] struct {
	mu        sync.Mutex
	ttl       time.Duration
	campaigns map[uint32]entry[T]
	count     *entry[uint32]
	clock     func() time.Time
}

// New creates a cache with the default 30s TTL.
func New[T any]() *Campaigns[T] {
	return &Campaigns[T]{
		ttl:       DefaultTTL,
		campaigns: make(map[uint32]entry[T]),
		clock:     time.Now,
	}
}

// WithTTL overrides the TTL. Zero or negative disables caching entirely.
func (c *Campaigns[T]) WithTTL(ttl time.Duration) *Campaigns[T] {
	c.ttl = ttl
	return c
}

// WithClock overrides the clock for testing.
func (c *Campaigns[T]) WithClock(clock func() time.Time) *Campaigns[T] {
	c.clock = clock
	return c
}

// valid reports whether an entry stored at storedAt is still servable.
// The boundary is closed on the valid side: an entry exactly TTL old is stale.
func (c *Campaigns[T]) valid(storedAt time.Time) bool {
	return c.clock().Sub(storedAt) < c.ttl
}

// Campaign returns the cached record for id. The second return is false both
// when the id was never cached and when the entry has expired; the caller
// cannot distinguish the two, and both require the same re-fetch.
func (c *Campaigns[T]) Campaign(id uint32) (T, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if e, ok := c.campaigns[id]; ok && c.valid(e.storedAt) {
		return e.value, true
	}
	var zero T
	return zero, false
}

// SetCampaign stores a record with the current timestamp, unconditionally
// overwriting any previous entry.
func (c *Campaigns[T]) SetCampaign(id uint32, v T) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.campaigns[id] = entry[T]{value: v, storedAt: c.clock()}
}

// Count returns the cached aggregate campaign count, if still valid.
func (c *Campaigns[T]) Count() (uint32, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.count != nil && c.valid(c.count.storedAt) {
		return c.count.value, true
	}
	return 0, false
}

// SetCount stores the aggregate count with the current timestamp.
func (c *Campaigns[T]) SetCount(n uint32) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.count = &entry[uint32]{value: n, storedAt: c.clock()}
}

// Invalidate clears every per-id entry and the count. Used after any
// operation that could have changed the set of campaigns.
func (c *Campaigns[T]) Invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.campaigns = make(map[uint32]entry[T])
	c.count = nil
}

// InvalidateCampaign clears one per-id entry and also drops the count.
// A single-id invalidation always accompanies uncertainty about aggregate
// state, so serving a stale count alongside fresh detail is not risked.
func (c *Campaigns[T]) InvalidateCampaign(id uint32) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.campaigns, id)
	c.count = nil
}
