package subscribe

import (
	"sync"

	"github.com/ccccccmd/nacos-config-sdk/config"
	"github.com/ccccccmd/nacos-config-sdk/config/codec"
)

// Cache is the subscription cache: one Entry per watched key, created on
// first subscription and dropped once its last listener is removed.
type Cache struct {
	mu      sync.RWMutex
	entries map[config.ConfigKey]*Entry
}

// NewCache returns an empty subscription cache.
func NewCache() *Cache {
	return &Cache{entries: make(map[config.ConfigKey]*Entry)}
}

// GetOrCreate returns the entry for key, creating it if this is the first
// subscriber.
func (c *Cache) GetOrCreate(key config.ConfigKey) *Entry {
	c.mu.RLock()
	entry, ok := c.entries[key]
	c.mu.RUnlock()
	if ok {
		return entry
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if entry, ok = c.entries[key]; ok {
		return entry
	}
	entry = NewEntry()
	c.entries[key] = entry
	return entry
}

// Get returns the entry for key, if a subscription already exists.
func (c *Cache) Get(key config.ConfigKey) (*Entry, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	entry, ok := c.entries[key]
	return entry, ok
}

// DropIfUnwatched removes key's entry once it has no listeners left,
// which keeps the probe's Listening-Configs payload from growing
// unbounded as consumers unsubscribe.
func (c *Cache) DropIfUnwatched(key config.ConfigKey) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if entry, ok := c.entries[key]; ok && !entry.HasListeners() {
		delete(c.entries, key)
	}
}

// TrackedConfigs snapshots every watched key as the codec representation
// the long-polling probe sends on the wire.
func (c *Cache) TrackedConfigs() []codec.TrackedConfig {
	c.mu.RLock()
	defer c.mu.RUnlock()
	tracked := make([]codec.TrackedConfig, 0, len(c.entries))
	for key, entry := range c.entries {
		tracked = append(tracked, codec.TrackedConfig{Key: key, MD5: entry.MD5()})
	}
	return tracked
}

// Keys returns every watched key, in no particular order.
func (c *Cache) Keys() []config.ConfigKey {
	c.mu.RLock()
	defer c.mu.RUnlock()
	keys := make([]config.ConfigKey, 0, len(c.entries))
	for key := range c.entries {
		keys = append(keys, key)
	}
	return keys
}
