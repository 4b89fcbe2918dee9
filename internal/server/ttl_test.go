package server

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestTTLCacheSetHasKeys(t *testing.T) {
	c := newTTLCache(nil)

	c.Set("hot", time.Hour)
	c.Set("cold", -time.Second)

	assert.True(t, c.Has("hot"))
	assert.False(t, c.Has("cold"))
	assert.Equal(t, []string{"hot"}, c.Keys())
}

func TestTTLCacheSweepInvokesEviction(t *testing.T) {
	var evicted []string
	c := newTTLCache(func(key string) {
		evicted = append(evicted, key)
	})

	c.Set("a", -time.Second)
	c.Set("b", time.Hour)
	c.Sweep()

	assert.Equal(t, []string{"a"}, evicted)
	assert.True(t, c.Has("b"))
}

func TestTTLCacheDeleteSkipsCallback(t *testing.T) {
	var evicted []string
	c := newTTLCache(func(key string) {
		evicted = append(evicted, key)
	})

	c.Set("a", time.Hour)
	c.Delete("a")
	c.Sweep()

	assert.Empty(t, evicted)
	assert.False(t, c.Has("a"))
}

func TestTTLCacheRefreshExtendsDeadline(t *testing.T) {
	c := newTTLCache(nil)

	c.Set("room", -time.Second)
	c.Set("room", time.Hour)

	assert.True(t, c.Has("room"))
}
