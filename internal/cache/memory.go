package cache

import (
	"context"
	"sync"
	"time"

	"github.com/jellydator/ttlcache/v3"
)

// DefaultMemoryCapacity bounds the in-process cache; the least recently used
// entry is evicted past it.
const DefaultMemoryCapacity = 1024

// Memory is an in-process TTL cache used when Redis is not configured.
type Memory struct {
	items     *ttlcache.Cache[string, []byte]
	done      chan struct{}
	closeOnce sync.Once
}

func NewMemory(capacity uint64) *Memory {
	if capacity == 0 {
		capacity = DefaultMemoryCapacity
	}
	c := &Memory{
		items: ttlcache.New[string, []byte](
			ttlcache.WithCapacity[string, []byte](capacity),
			ttlcache.WithDisableTouchOnHit[string, []byte](),
		),
		done: make(chan struct{}),
	}

	// Start runs the expiry loop until Stop
	go func() {
		defer close(c.done)
		c.items.Start()
	}()
	return c
}

func (c *Memory) Get(_ context.Context, key string) ([]byte, bool, error) {
	item := c.items.Get(key)
	if item == nil || item.IsExpired() {
		return nil, false, nil
	}
	return item.Value(), true, nil
}

func (c *Memory) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	c.items.Set(key, value, ttl)
	return nil
}

func (c *Memory) Len() int {
	return c.items.Len()
}

// Close stops the expiry loop. Safe to call twice.
func (c *Memory) Close() error {
	c.closeOnce.Do(func() {
		c.items.Stop()
		<-c.done
	})
	return nil
}
