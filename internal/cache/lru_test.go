package cache

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"wallet/internal/log"
)

func TestLRUCache_EvictsLeastRecentlyUsed(t *testing.T) {
	c := NewLRUCache[int](2, time.Minute)
	c.Set("a", 1)
	c.Set("b", 2)
	_, _ = c.Get("a")
	c.Set("c", 3)

	_, okB := c.Get("b")
	va, okA := c.Get("a")
	assert.False(t, okB, "b should have been evicted")
	assert.True(t, okA)
	assert.Equal(t, 1, va)
	assert.Equal(t, 2, c.Size())
}

func TestLRUCache_TTL(t *testing.T) {
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	c := NewLRUCache[string](10, time.Second)
	c.now = func() time.Time { return now }

	c.Set("k", "v")
	now = now.Add(2 * time.Second)

	_, ok := c.Get("k")
	assert.False(t, ok)

	c.Set("x", "1")
	c.Set("y", "2")
	now = now.Add(2 * time.Second)
	assert.Equal(t, 2, c.CleanExpired())
	assert.Equal(t, 0, c.Size())
}

func TestLRUCache_OverwriteDeletePurge(t *testing.T) {
	c := NewLRUCache[int](3, time.Minute)
	c.Set("a", 1)
	c.Set("a", 2)
	v, _ := c.Get("a")
	assert.Equal(t, 2, v)

	c.Delete("a")
	_, ok := c.Get("a")
	assert.False(t, ok)

	c.Set("b", 1)
	c.Set("c", 1)
	c.Purge()
	assert.Equal(t, 0, c.Size())

	hits, misses := c.Stats()
	assert.Equal(t, uint64(1), hits)
	assert.Equal(t, uint64(1), misses)
}

func TestManager_CleanNowAndStop(t *testing.T) {
	c := NewLRUCache[int](5, -time.Second)
	c.Set("stale", 1)

	m := NewManager(log.Discard())
	m.Register(c)
	assert.Equal(t, 1, m.CleanNow())

	m.StartCleanup(time.Hour)
	m.StartCleanup(time.Hour)
	m.Stop()
	m.Stop()
}
