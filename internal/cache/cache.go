// Package cache provides the bounded LRU that holds runtime instances keyed by
// instantiation request.
//
// There is no TTL: the container an instance was built from is immutable for
// the loader's lifetime, so entries only leave through eviction or Clear.
package cache

import (
	"container/list"
	"sync"
)

// DefaultCapacity is the capacity used when New is given a non-positive value.
const DefaultCapacity = 1000

// entry is one cached key/value pair.
type entry[K comparable, V any] struct {
	key   K
	value V
}

// LRU is a fixed-capacity least-recently-used cache. It is safe for
// concurrent use.
type LRU[K comparable, V any] struct {
	mu       sync.Mutex
	capacity int
	items    map[K]*list.Element
	order    *list.List // front = most recently used
	onEvict  func(K, V)
}

// New creates an LRU holding at most capacity entries.
func New[K comparable, V any](capacity int) *LRU[K, V] {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &LRU[K, V]{
		capacity: capacity,
		items:    make(map[K]*list.Element, capacity),
		order:    list.New(),
	}
}

// OnEvict registers fn to be called, under the cache lock, for every entry
// dropped to make room. fn must not call back into the cache.
func (c *LRU[K, V]) OnEvict(fn func(K, V)) {
	c.mu.Lock()
	c.onEvict = fn
	c.mu.Unlock()
}

// Get returns the value for key and marks it most recently used.
func (c *LRU[K, V]) Get(key K) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	elem, ok := c.items[key]
	if !ok {
		var zero V
		return zero, false
	}
	c.order.MoveToFront(elem)
	return elem.Value.(*entry[K, V]).value, true
}

// Peek returns the value for key without touching recency.
func (c *LRU[K, V]) Peek(key K) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	elem, ok := c.items[key]
	if !ok {
		var zero V
		return zero, false
	}
	return elem.Value.(*entry[K, V]).value, true
}

// Set stores value under key as the most recently used entry, evicting the
// least recently used entry when the cache is full.
func (c *LRU[K, V]) Set(key K, value V) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if elem, ok := c.items[key]; ok {
		c.order.MoveToFront(elem)
		elem.Value.(*entry[K, V]).value = value
		return
	}

	if c.order.Len() >= c.capacity {
		if back := c.order.Back(); back != nil {
			evicted := c.order.Remove(back).(*entry[K, V])
			delete(c.items, evicted.key)
			if c.onEvict != nil {
				c.onEvict(evicted.key, evicted.value)
			}
		}
	}

	c.items[key] = c.order.PushFront(&entry[K, V]{key: key, value: value})
}

// Clear drops every entry without changing capacity.
func (c *LRU[K, V]) Clear() {
	c.mu.Lock()
	c.items = make(map[K]*list.Element, c.capacity)
	c.order.Init()
	c.mu.Unlock()
}

// Len returns the current number of entries.
func (c *LRU[K, V]) Len() int {
	c.mu.Lock()
	n := c.order.Len()
	c.mu.Unlock()
	return n
}

// Capacity returns the maximum number of entries.
func (c *LRU[K, V]) Capacity() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.capacity
}

// Keys returns the keys from most to least recently used.
func (c *LRU[K, V]) Keys() []K {
	c.mu.Lock()
	defer c.mu.Unlock()
	keys := make([]K, 0, c.order.Len())
	for e := c.order.Front(); e != nil; e = e.Next() {
		keys = append(keys, e.Value.(*entry[K, V]).key)
	}
	return keys
}
