package policy

import (
	"container/list"
	"sync"
	"time"

	"github.com/hrops/policy-engine/models"
)

// snapshotEntry is a single cached rule-set snapshot with TTL.
type snapshotEntry struct {
	key        string
	snapshot   *models.RuleSet
	insertedAt time.Time
	element    *list.Element
}

func (e *snapshotEntry) isExpired(ttl time.Duration) bool {
	return time.Since(e.insertedAt) > ttl
}

// SnapshotCache is an in-memory LRU cache with TTL for rule-set snapshots.
// Snapshots are immutable once stored, so readers share them without copying;
// invalidation swaps in a fresh snapshot instead of mutating one in flight.
type SnapshotCache struct {
	mu      sync.Mutex
	entries map[string]*snapshotEntry
	lruList *list.List
	maxSize int
	ttl     time.Duration
	hits    uint64
	misses  uint64
}

// NewSnapshotCache creates a SnapshotCache with the given capacity and TTL.
func NewSnapshotCache(maxSize int, ttl time.Duration) *SnapshotCache {
	return &SnapshotCache{
		entries: make(map[string]*snapshotEntry),
		lruList: list.New(),
		maxSize: maxSize,
		ttl:     ttl,
	}
}

// Get retrieves a snapshot, or nil when absent or expired.
func (c *SnapshotCache) Get(key string) *models.RuleSet {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, exists := c.entries[key]
	if !exists || entry.isExpired(c.ttl) {
		c.misses++
		if exists {
			c.removeEntry(key)
		}
		return nil
	}

	c.lruList.MoveToFront(entry.element)
	c.hits++
	return entry.snapshot
}

// Set stores a snapshot, evicting the least recently used entry when full.
func (c *SnapshotCache) Set(key string, snapshot *models.RuleSet) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if entry, exists := c.entries[key]; exists {
		entry.snapshot = snapshot
		entry.insertedAt = time.Now()
		c.lruList.MoveToFront(entry.element)
		return
	}

	if c.lruList.Len() >= c.maxSize {
		c.evictLRU()
	}

	entry := &snapshotEntry{
		key:        key,
		snapshot:   snapshot,
		insertedAt: time.Now(),
	}
	entry.element = c.lruList.PushFront(key)
	c.entries[key] = entry
}

// Invalidate removes a specific entry.
func (c *SnapshotCache) Invalidate(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.removeEntry(key)
}

// Clear removes all entries.
func (c *SnapshotCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]*snapshotEntry)
	c.lruList.Init()
}

// CacheStats reports cache effectiveness.
type CacheStats struct {
	Size    int
	MaxSize int
	Hits    uint64
	Misses  uint64
	HitRate float64
}

// Stats returns a snapshot of the cache counters.
func (c *SnapshotCache) Stats() CacheStats {
	c.mu.Lock()
	defer c.mu.Unlock()

	total := c.hits + c.misses
	rate := 0.0
	if total > 0 {
		rate = float64(c.hits) / float64(total)
	}
	return CacheStats{
		Size:    c.lruList.Len(),
		MaxSize: c.maxSize,
		Hits:    c.hits,
		Misses:  c.misses,
		HitRate: rate,
	}
}

// CleanupExpired removes all expired entries and returns how many went.
func (c *SnapshotCache) CleanupExpired() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	var expired []string
	for key, entry := range c.entries {
		if entry.isExpired(c.ttl) {
			expired = append(expired, key)
		}
	}
	for _, key := range expired {
		c.removeEntry(key)
	}
	return len(expired)
}

// StartCleanupWorker periodically drops expired entries until stopCh closes.
func (c *SnapshotCache) StartCleanupWorker(interval time.Duration, stopCh <-chan struct{}) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			c.CleanupExpired()
		case <-stopCh:
			return
		}
	}
}

// removeEntry removes an entry (lock must be held).
func (c *SnapshotCache) removeEntry(key string) {
	if entry, exists := c.entries[key]; exists {
		c.lruList.Remove(entry.element)
		delete(c.entries, key)
	}
}

// evictLRU evicts the least recently used entry (lock must be held).
func (c *SnapshotCache) evictLRU() {
	back := c.lruList.Back()
	if back == nil {
		return
	}
	key := back.Value.(string)
	c.lruList.Remove(back)
	delete(c.entries, key)
}
