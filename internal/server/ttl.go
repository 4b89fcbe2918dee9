package server

import (
	"context"
	"sync"
	"time"
)

// ttlCache is a string-keyed expiring set with per-entry TTLs and an eviction
// callback. Room activity needs two tiers (long TTL while hot, short while
// merely preheated) and a dispose hook that tears the broadcast group down,
// which rules out fixed-TTL caches.
type ttlCache struct {
	mu      sync.Mutex
	entries map[string]time.Time
	onEvict func(key string)
}

func newTTLCache(onEvict func(key string)) *ttlCache {
	if onEvict == nil {
		onEvict = func(string) {}
	}

	return &ttlCache{
		entries: make(map[string]time.Time),
		onEvict: onEvict,
	}
}

// Set stores the key with the given TTL, replacing any existing deadline.
func (c *ttlCache) Set(key string, ttl time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = time.Now().Add(ttl)
}

// Has reports whether the key is present and not expired.
func (c *ttlCache) Has(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	deadline, ok := c.entries[key]
	return ok && time.Now().Before(deadline)
}

// Keys returns all live keys.
func (c *ttlCache) Keys() []string {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := time.Now()
	keys := make([]string, 0, len(c.entries))
	for key, deadline := range c.entries {
		if now.Before(deadline) {
			keys = append(keys, key)
		}
	}

	return keys
}

// Delete removes the key without invoking the eviction callback.
func (c *ttlCache) Delete(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, key)
}

// Sweep evicts expired entries, invoking the callback outside the lock.
func (c *ttlCache) Sweep() {
	c.mu.Lock()
	now := time.Now()
	var expired []string
	for key, deadline := range c.entries {
		if !now.Before(deadline) {
			delete(c.entries, key)
			expired = append(expired, key)
		}
	}
	c.mu.Unlock()

	for _, key := range expired {
		c.onEvict(key)
	}
}

// StartSweeper runs Sweep on an interval until ctx is cancelled.
func (c *ttlCache) StartSweeper(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				c.Sweep()
			}
		}
	}()
}
