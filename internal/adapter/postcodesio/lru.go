package postcodesio

import "sync"

// lruCache is a thread-safe bounded cache that evicts the least recently
// used key. A capacity of zero or less stores nothing.
type lruCache[V any] struct {
	capacity int
	mu       sync.Mutex
	items    map[string]*lruNode[V]
	newest   *lruNode[V]
	oldest   *lruNode[V]
}

type lruNode[V any] struct {
	key          string
	value        V
	newer, older *lruNode[V]
}

func newLRUCache[V any](capacity int) *lruCache[V] {
	return &lruCache[V]{
		capacity: capacity,
		items:    make(map[string]*lruNode[V]),
	}
}

func (c *lruCache[V]) get(key string) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	n, ok := c.items[key]
	if !ok {
		var zero V
		return zero, false
	}
	c.touch(n)
	return n.value, true
}

func (c *lruCache[V]) put(key string, value V) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.capacity <= 0 {
		return
	}
	if n, ok := c.items[key]; ok {
		n.value = value
		c.touch(n)
		return
	}

	n := &lruNode[V]{key: key, value: value}
	c.items[key] = n
	c.pushNewest(n)
	for len(c.items) > c.capacity {
		old := c.oldest
		c.detach(old)
		delete(c.items, old.key)
	}
}

func (c *lruCache[V]) len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.items)
}

// touch marks n as the most recently used entry.
func (c *lruCache[V]) touch(n *lruNode[V]) {
	if c.newest == n {
		return
	}
	c.detach(n)
	c.pushNewest(n)
}

func (c *lruCache[V]) pushNewest(n *lruNode[V]) {
	n.older = c.newest
	n.newer = nil
	if c.newest != nil {
		c.newest.newer = n
	}
	c.newest = n
	if c.oldest == nil {
		c.oldest = n
	}
}

func (c *lruCache[V]) detach(n *lruNode[V]) {
	if n.newer != nil {
		n.newer.older = n.older
	} else {
		c.newest = n.older
	}
	if n.older != nil {
		n.older.newer = n.newer
	} else {
		c.oldest = n.newer
	}
	n.newer, n.older = nil, nil
}
