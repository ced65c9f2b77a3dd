package cache

// ReleaseFunc is called for every entry removed from a Cache.
type ReleaseFunc[K comparable, V any] func(key K, value V)

// Cache is a generic keyed store that remembers insertion order and
// releases values as they leave.
//
// Cache is not safe for concurrent use. It is meant to be owned by a single
// goroutine.
type Cache[K comparable, V any] struct {
	entries map[K]*orderNode[K, V]
	order   orderList[K, V]
	release ReleaseFunc[K, V]

	hits     uint64
	misses   uint64
	releases uint64
}

// New creates an empty cache. release may be nil.
func New[K comparable, V any](release ReleaseFunc[K, V]) *Cache[K, V] {
	return &Cache[K, V]{
		entries: make(map[K]*orderNode[K, V]),
		release: release,
	}
}

// Get retrieves a value from the cache.
// Returns (value, true) if found, (zero, false) otherwise.
func (c *Cache[K, V]) Get(key K) (V, bool) {
	node, ok := c.entries[key]
	if !ok {
		c.misses++
		var zero V
		return zero, false
	}
	c.hits++
	return node.value, true
}

// Set stores a value. An existing value under the same key is released
// first and the key moves to the back of the insertion order.
func (c *Cache[K, V]) Set(key K, value V) {
	c.Delete(key)
	c.entries[key] = c.order.PushBack(key, value)
}

// GetOrCreate returns the cached value or creates and stores it.
// created reports whether create ran. A failed create stores nothing.
func (c *Cache[K, V]) GetOrCreate(key K, create func() (V, error)) (value V, created bool, err error) {
	if v, ok := c.Get(key); ok {
		return v, false, nil
	}
	v, err := create()
	if err != nil {
		var zero V
		return zero, false, err
	}
	c.entries[key] = c.order.PushBack(key, v)
	return v, true, nil
}

// Delete releases and removes an entry.
// Returns true if the entry was found and removed.
func (c *Cache[K, V]) Delete(key K) bool {
	node, ok := c.entries[key]
	if !ok {
		return false
	}
	delete(c.entries, key)
	c.order.Remove(node)
	c.releaseEntry(node)
	return true
}

// Clear releases every entry in insertion order and empties the cache.
// It returns the number of released entries.
func (c *Cache[K, V]) Clear() int {
	n := 0
	for node := c.order.Front(); node != nil; node = c.order.Front() {
		c.order.Remove(node)
		delete(c.entries, node.key)
		c.releaseEntry(node)
		n++
	}
	return n
}

// Len returns the number of entries in the cache.
func (c *Cache[K, V]) Len() int {
	return len(c.entries)
}

// Range calls fn for each entry in insertion order until fn returns false.
// fn must not modify the cache.
func (c *Cache[K, V]) Range(fn func(key K, value V) bool) {
	for node := c.order.Front(); node != nil; node = node.next {
		if !fn(node.key, node.value) {
			return
		}
	}
}

// Keys returns the keys in insertion order.
func (c *Cache[K, V]) Keys() []K {
	keys := make([]K, 0, len(c.entries))
	c.Range(func(k K, _ V) bool {
		keys = append(keys, k)
		return true
	})
	return keys
}

// Stats returns cache statistics.
func (c *Cache[K, V]) Stats() Stats {
	s := Stats{
		Len:      len(c.entries),
		Hits:     c.hits,
		Misses:   c.misses,
		Releases: c.releases,
	}
	if total := c.hits + c.misses; total > 0 {
		s.HitRate = float64(c.hits) / float64(total)
	}
	return s
}

func (c *Cache[K, V]) releaseEntry(node *orderNode[K, V]) {
	c.releases++
	if c.release != nil {
		c.release(node.key, node.value)
	}
}

// Stats contains cache statistics.
type Stats struct {
	// Len is the current number of entries.
	Len int
	// Hits is the number of successful lookups.
	Hits uint64
	// Misses is the number of failed lookups.
	Misses uint64
	// HitRate is Hits / (Hits + Misses), 0 when nothing was looked up.
	HitRate float64
	// Releases is the number of entries removed and released.
	Releases uint64
}
