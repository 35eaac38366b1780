package policy

import (
	"fmt"
	"testing"
	"time"

	"github.com/hrops/policy-engine/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func snapshotOf(policyID string) *models.RuleSet {
	return &models.RuleSet{
		Policies: []*models.Policy{{ID: policyID, Status: models.PolicyStatusActive}},
		Schema:   models.Schema{},
	}
}

func TestSnapshotCacheGetSet(t *testing.T) {
	cache := NewSnapshotCache(4, time.Minute)

	assert.Nil(t, cache.Get("active"), "empty cache misses")

	cache.Set("active", snapshotOf("POL_A"))
	got := cache.Get("active")
	require.NotNil(t, got)
	assert.Equal(t, "POL_A", got.Policies[0].ID)

	// Overwrite replaces the snapshot in place.
	cache.Set("active", snapshotOf("POL_B"))
	assert.Equal(t, "POL_B", cache.Get("active").Policies[0].ID)
	assert.Equal(t, 1, cache.Stats().Size)
}

func TestSnapshotCacheExpiry(t *testing.T) {
	cache := NewSnapshotCache(4, 10*time.Millisecond)
	cache.Set("active", snapshotOf("POL_A"))

	require.NotNil(t, cache.Get("active"))
	time.Sleep(20 * time.Millisecond)
	assert.Nil(t, cache.Get("active"), "expired entries miss")
	assert.Equal(t, 0, cache.Stats().Size, "expired entries are removed on access")
}

func TestSnapshotCacheEviction(t *testing.T) {
	cache := NewSnapshotCache(2, time.Minute)
	cache.Set("a", snapshotOf("POL_A"))
	cache.Set("b", snapshotOf("POL_B"))

	// Touch "a" so "b" becomes least recently used.
	require.NotNil(t, cache.Get("a"))
	cache.Set("c", snapshotOf("POL_C"))

	assert.NotNil(t, cache.Get("a"))
	assert.Nil(t, cache.Get("b"), "LRU entry evicted at capacity")
	assert.NotNil(t, cache.Get("c"))
}

func TestSnapshotCacheInvalidate(t *testing.T) {
	cache := NewSnapshotCache(4, time.Minute)
	cache.Set("active", snapshotOf("POL_A"))

	cache.Invalidate("active")
	assert.Nil(t, cache.Get("active"))

	cache.Set("x", snapshotOf("POL_A"))
	cache.Set("y", snapshotOf("POL_B"))
	cache.Clear()
	assert.Equal(t, 0, cache.Stats().Size)
}

func TestSnapshotCacheStats(t *testing.T) {
	cache := NewSnapshotCache(4, time.Minute)
	cache.Set("active", snapshotOf("POL_A"))

	cache.Get("active")
	cache.Get("active")
	cache.Get("missing")

	stats := cache.Stats()
	assert.Equal(t, uint64(2), stats.Hits)
	assert.Equal(t, uint64(1), stats.Misses)
	assert.InDelta(t, 2.0/3.0, stats.HitRate, 0.001)
}

func TestSnapshotCacheCleanupExpired(t *testing.T) {
	cache := NewSnapshotCache(8, 10*time.Millisecond)
	for i := 0; i < 3; i++ {
		cache.Set(fmt.Sprintf("k%d", i), snapshotOf("POL"))
	}

	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, 3, cache.CleanupExpired())
	assert.Equal(t, 0, cache.Stats().Size)
}
