package cache

import (
	"sync"
	"time"
)

// Item represents a cached item with expiration
type Item struct {
	Value      interface{}
	Expiration int64
}

// Expired checks if the cache item has expired
func (item Item) Expired() bool {
	if item.Expiration == 0 {
		return false
	}
	return time.Now().UnixNano() > item.Expiration
}

// Options configures a Cache instance
type Options struct {
	// DefaultExpiration applies to items set without an explicit TTL; 0 means no expiry
	DefaultExpiration time.Duration
	// CleanupInterval is how often expired items are purged; 0 disables the sweeper
	CleanupInterval time.Duration
	// MaxItems bounds the cache size; 0 means unbounded
	MaxItems int
}

// Cache is a thread-safe in-memory cache with expiration
type Cache struct {
	items             map[string]Item
	mu                sync.RWMutex
	defaultExpiration time.Duration
	cleanupInterval   time.Duration
	maxItems          int
	onEvicted         func(string, interface{})
	stop              chan struct{}
}

// New creates a cache with the given options and starts its cleanup sweeper
func New(opts Options) *Cache {
	cache := &Cache{
		items:             make(map[string]Item),
		defaultExpiration: opts.DefaultExpiration,
		cleanupInterval:   opts.CleanupInterval,
		maxItems:          opts.MaxItems,
		stop:              make(chan struct{}),
	}

	if opts.CleanupInterval > 0 {
		go cache.startCleanupTimer()
	}

	return cache
}

// Set adds an item to the cache with the default expiration
func (c *Cache) Set(key string, value interface{}) {
	c.SetWithExpiration(key, value, c.defaultExpiration)
}

// SetWithExpiration adds an item to the cache with a specific expiration time
func (c *Cache) SetWithExpiration(key string, value interface{}, d time.Duration) {
	var exp int64
	if d > 0 {
		exp = time.Now().Add(d).UnixNano()
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.maxItems > 0 && len(c.items) >= c.maxItems {
		if _, exists := c.items[key]; !exists {
			c.evictOldest()
		}
	}

	c.items[key] = Item{
		Value:      value,
		Expiration: exp,
	}
}

// Get retrieves an item from the cache
func (c *Cache) Get(key string) (interface{}, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	item, found := c.items[key]
	if !found {
		return nil, false
	}

	if item.Expired() {
		return nil, false
	}

	return item.Value, true
}

// Touch resets the expiration clock on an item if it exists
func (c *Cache) Touch(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	item, found := c.items[key]
	if !found || item.Expired() {
		return false
	}

	if c.defaultExpiration > 0 {
		item.Expiration = time.Now().Add(c.defaultExpiration).UnixNano()
		c.items[key] = item
	}
	return true
}

// Delete removes an item from the cache
func (c *Cache) Delete(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if item, found := c.items[key]; found && c.onEvicted != nil {
		c.onEvicted(key, item.Value)
	}

	delete(c.items, key)
}

// Flush removes all items from the cache
func (c *Cache) Flush() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.onEvicted != nil {
		for k, v := range c.items {
			c.onEvicted(k, v.Value)
		}
	}

	c.items = make(map[string]Item)
}

// Count returns the number of live items in the cache. Items past their
// expiration are excluded even if the sweeper has not removed them yet.
func (c *Cache) Count() int {
	c.mu.RLock()
	defer c.mu.RUnlock()

	n := 0
	for _, item := range c.items {
		if !item.Expired() {
			n++
		}
	}
	return n
}

// SetOnEvicted sets the callback to be called when an item is evicted
func (c *Cache) SetOnEvicted(f func(string, interface{})) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.onEvicted = f
}

// Close stops the cleanup sweeper
func (c *Cache) Close() {
	close(c.stop)
}

// startCleanupTimer starts the cleanup ticker
func (c *Cache) startCleanupTimer() {
	ticker := time.NewTicker(c.cleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			c.deleteExpired()
		case <-c.stop:
			return
		}
	}
}

// deleteExpired deletes all expired items from the cache
func (c *Cache) deleteExpired() {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := time.Now().UnixNano()
	for k, v := range c.items {
		if v.Expiration > 0 && now > v.Expiration {
			if c.onEvicted != nil {
				c.onEvicted(k, v.Value)
			}
			delete(c.items, k)
		}
	}
}

// evictOldest finds and removes the item closest to expiry; call with lock
// held. An Expiration of zero means the item never expires, so those are
// only evicted when no expiring item exists.
func (c *Cache) evictOldest() {
	var oldestKey string
	var oldestTime int64

	for k, v := range c.items {
		if v.Expiration == 0 {
			continue
		}
		if oldestKey == "" || v.Expiration < oldestTime {
			oldestKey = k
			oldestTime = v.Expiration
		}
	}

	if oldestKey == "" {
		// Nothing expires; fall back to evicting an arbitrary item
		for k := range c.items {
			oldestKey = k
			break
		}
	}
	if oldestKey == "" {
		return
	}

	if c.onEvicted != nil {
		c.onEvicted(oldestKey, c.items[oldestKey].Value)
	}
	delete(c.items, oldestKey)
}
