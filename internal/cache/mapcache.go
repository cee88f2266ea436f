package cache

import "sync"

// MapCache is an unbounded typed cache. Callers clear it when the data it
// was computed from changes; entries never expire on their own.
type MapCache[K comparable, V any] struct{ m sync.Map }

func NewMapCache[K comparable, V any]() *MapCache[K, V] {
	return &MapCache[K, V]{}
}

func (c *MapCache[K, V]) Set(k K, v V) { c.m.Store(k, v) }

func (c *MapCache[K, V]) Get(k K) (V, bool) {
	v, ok := c.m.Load(k)
	if !ok {
		var z V
		return z, false
	}
	return v.(V), true
}

// GetOrLoad returns the cached value for k, computing and storing it with
// load on a miss.
func (c *MapCache[K, V]) GetOrLoad(k K, load func() V) V {
	if v, ok := c.Get(k); ok {
		return v
	}
	v := load()
	c.m.Store(k, v)
	return v
}

func (c *MapCache[K, V]) Clear() {
	c.m.Range(func(k, _ any) bool { c.m.Delete(k); return true })
}

func (c *MapCache[K, V]) Len() int {
	n := 0
	c.m.Range(func(_, _ any) bool { n++; return true })
	return n
}
