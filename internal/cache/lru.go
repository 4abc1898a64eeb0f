package cache

import "container/list"

type lruEntry[K comparable, V any] struct {
	key   K
	value V
}

// BoundedCache is a fixed-capacity cache with least-recently-used
// eviction. It is not safe for concurrent use; wrap it (PersistentCache
// does) when shared.
type BoundedCache[K comparable, V any] struct {
	capacity int
	entries  map[K]*list.Element
	order    *list.List // front = most recently used
}

// NewBounded creates a cache holding at most capacity entries. A
// non-positive capacity means unbounded.
func NewBounded[K comparable, V any](capacity int) *BoundedCache[K, V] {
	return &BoundedCache[K, V]{
		capacity: capacity,
		entries:  make(map[K]*list.Element),
		order:    list.New(),
	}
}

// Get returns the value for key and marks it most recently used.
func (c *BoundedCache[K, V]) Get(key K) (V, bool) {
	elem, ok := c.entries[key]
	if !ok {
		var zero V
		return zero, false
	}
	c.order.MoveToFront(elem)
	return elem.Value.(*lruEntry[K, V]).value, true
}

// Put inserts or updates key and returns the key evicted to make room, if
// any.
func (c *BoundedCache[K, V]) Put(key K, value V) (evicted K, didEvict bool) {
	if elem, ok := c.entries[key]; ok {
		c.order.MoveToFront(elem)
		elem.Value.(*lruEntry[K, V]).value = value
		return evicted, false
	}

	elem := c.order.PushFront(&lruEntry[K, V]{key: key, value: value})
	c.entries[key] = elem

	if c.capacity > 0 && c.order.Len() > c.capacity {
		oldest := c.order.Back()
		entry := oldest.Value.(*lruEntry[K, V])
		delete(c.entries, entry.key)
		c.order.Remove(oldest)
		return entry.key, true
	}
	return evicted, false
}

// Delete removes key if present.
func (c *BoundedCache[K, V]) Delete(key K) bool {
	elem, ok := c.entries[key]
	if !ok {
		return false
	}
	delete(c.entries, key)
	c.order.Remove(elem)
	return true
}

// Keys returns all keys from most to least recently used.
func (c *BoundedCache[K, V]) Keys() []K {
	keys := make([]K, 0, c.order.Len())
	for elem := c.order.Front(); elem != nil; elem = elem.Next() {
		keys = append(keys, elem.Value.(*lruEntry[K, V]).key)
	}
	return keys
}

// Len returns the number of cached entries.
func (c *BoundedCache[K, V]) Len() int {
	return c.order.Len()
}

// Capacity returns the configured capacity.
func (c *BoundedCache[K, V]) Capacity() int {
	return c.capacity
}
