package cache

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCacheSetAndGet(t *testing.T) {
	c := New(Options{})
	defer c.Close()

	c.Set("key", "value")

	got, found := c.Get("key")
	require.True(t, found)
	assert.Equal(t, "value", got)

	_, found = c.Get("missing")
	assert.False(t, found)
}

func TestCacheExpiration(t *testing.T) {
	c := New(Options{})
	defer c.Close()

	c.SetWithExpiration("short", "value", 10*time.Millisecond)
	c.SetWithExpiration("forever", "value", 0)

	_, found := c.Get("short")
	require.True(t, found)

	time.Sleep(20 * time.Millisecond)

	_, found = c.Get("short")
	assert.False(t, found)
	_, found = c.Get("forever")
	assert.True(t, found)
}

func TestCacheTouchExtendsExpiry(t *testing.T) {
	c := New(Options{DefaultExpiration: 40 * time.Millisecond})
	defer c.Close()

	c.Set("key", "value")

	time.Sleep(25 * time.Millisecond)
	require.True(t, c.Touch("key"))
	time.Sleep(25 * time.Millisecond)

	// Without the touch the item would have expired by now
	_, found := c.Get("key")
	assert.True(t, found)

	assert.False(t, c.Touch("missing"))
}

func TestCacheDeleteAndFlush(t *testing.T) {
	c := New(Options{})
	defer c.Close()

	c.Set("a", 1)
	c.Set("b", 2)
	require.Equal(t, 2, c.Count())

	c.Delete("a")
	assert.Equal(t, 1, c.Count())

	c.Flush()
	assert.Equal(t, 0, c.Count())
}

func TestCacheMaxItemsEvictsOldest(t *testing.T) {
	c := New(Options{MaxItems: 2})
	defer c.Close()

	var evicted []string
	c.SetOnEvicted(func(key string, _ interface{}) {
		evicted = append(evicted, key)
	})

	c.SetWithExpiration("oldest", 1, 10*time.Minute)
	c.SetWithExpiration("newer", 2, 20*time.Minute)
	c.SetWithExpiration("newest", 3, 30*time.Minute)

	assert.Equal(t, 2, c.Count())
	assert.Equal(t, []string{"oldest"}, evicted)

	_, found := c.Get("oldest")
	assert.False(t, found)
	_, found = c.Get("newest")
	assert.True(t, found)
}

func TestCacheSweeperPurgesExpired(t *testing.T) {
	c := New(Options{CleanupInterval: 10 * time.Millisecond})
	defer c.Close()

	c.SetWithExpiration("key", "value", 5*time.Millisecond)

	// Watch the backing map directly so the sweep itself is what empties it
	assert.Eventually(t, func() bool {
		c.mu.RLock()
		defer c.mu.RUnlock()
		return len(c.items) == 0
	}, time.Second, 5*time.Millisecond)
}

func TestCacheCountExcludesExpired(t *testing.T) {
	// No sweeper; expired items linger in the map until touched
	c := New(Options{})
	defer c.Close()

	c.SetWithExpiration("short", "value", 5*time.Millisecond)
	c.SetWithExpiration("long", "value", time.Hour)
	require.Equal(t, 2, c.Count())

	time.Sleep(10 * time.Millisecond)

	assert.Equal(t, 1, c.Count())
}

func TestCacheEvictionSparesNonExpiringItems(t *testing.T) {
	c := New(Options{MaxItems: 2})
	defer c.Close()

	var evicted []string
	c.SetOnEvicted(func(key string, _ interface{}) {
		evicted = append(evicted, key)
	})

	c.SetWithExpiration("pinned", 1, 0)
	c.SetWithExpiration("expiring", 2, time.Hour)
	c.SetWithExpiration("incoming", 3, 2*time.Hour)

	assert.Equal(t, []string{"expiring"}, evicted)

	_, found := c.Get("pinned")
	assert.True(t, found)
	_, found = c.Get("incoming")
	assert.True(t, found)
}

func TestCacheOverwriteExistingKeyAtCapacity(t *testing.T) {
	c := New(Options{MaxItems: 1})
	defer c.Close()

	c.Set("key", "one")
	c.Set("key", "two")

	got, found := c.Get("key")
	require.True(t, found)
	assert.Equal(t, "two", got)
	assert.Equal(t, 1, c.Count())
}
