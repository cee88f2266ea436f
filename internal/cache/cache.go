package cache

import (
	"time"

	"github.com/dgraph-io/ristretto"
)

// Cache is a bounded TTL cache for aggregate reads that are expensive to
// recompute, such as sector statistics over the whole store.
type Cache struct {
	c   *ristretto.Cache
	ttl time.Duration
}

func New(maxCost int64, ttl time.Duration) (*Cache, error) {
	c, err := ristretto.NewCache(&ristretto.Config{
		NumCounters: 1e5,
		MaxCost:     maxCost,
		BufferItems: 64,
	})
	if err != nil {
		return nil, err
	}
	return &Cache{c: c, ttl: ttl}, nil
}

func (c *Cache) Get(key string) (any, bool) { return c.c.Get(key) }

// Set stores val and waits for ristretto's write buffer so the value is
// visible to the next Get.
func (c *Cache) Set(key string, val any) {
	c.c.SetWithTTL(key, val, 1, c.ttl)
	c.c.Wait()
}

func (c *Cache) Clear() { c.c.Clear() }

func (c *Cache) Close() { c.c.Close() }
