package geocache

import (
	"sync"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/couchcryptid/logistics-locator/internal/domain"
)

// Entry is a cached value together with its bookkeeping timestamps.
// A zero ExpiresAt never expires.
type Entry[V any] struct {
	Key        domain.GeocodeQuery
	Value      V
	InsertedAt time.Time
	ExpiresAt  time.Time
}

func (e *Entry[V]) expired(now time.Time) bool {
	return !e.ExpiresAt.IsZero() && !now.Before(e.ExpiresAt)
}

// Cache is a thread-safe LRU cache with per-entry TTL. Expired entries are
// dropped lazily when read. Values are passed through clone on the way in and
// on the way out so callers never share mutable state with the cache.
type Cache[V any] struct {
	maxEntries int
	clock      clockwork.Clock
	clone      func(V) V

	mu      sync.Mutex
	entries map[domain.GeocodeQuery]*node[V]
	head    *node[V] // most recently used
	tail    *node[V] // least recently used
}

type node[V any] struct {
	entry Entry[V]
	prev  *node[V]
	next  *node[V]
}

// NewCache creates a cache holding at most maxEntries values. A nil clock uses
// real time; a nil clone copies values by assignment.
func NewCache[V any](maxEntries int, clk clockwork.Clock, clone func(V) V) *Cache[V] {
	if maxEntries < 1 {
		maxEntries = 1
	}
	if clk == nil {
		clk = clockwork.NewRealClock()
	}
	if clone == nil {
		clone = func(v V) V { return v }
	}
	return &Cache[V]{
		maxEntries: maxEntries,
		clock:      clk,
		clone:      clone,
		entries:    make(map[domain.GeocodeQuery]*node[V]),
	}
}

// Get returns a copy of the live entry for key.
func (c *Cache[V]) Get(key domain.GeocodeQuery) (Entry[V], bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	n, ok := c.entries[key]
	if !ok {
		return Entry[V]{}, false
	}
	if n.entry.expired(c.clock.Now()) {
		c.removeNode(n)
		return Entry[V]{}, false
	}
	c.moveToFront(n)
	out := n.entry
	out.Value = c.clone(out.Value)
	return out, true
}

// Put stores value under key for ttl. A ttl <= 0 stores it without expiry.
// The least recently used entry is evicted when the cache is full.
func (c *Cache[V]) Put(key domain.GeocodeQuery, value V, ttl time.Duration) {
	now := c.clock.Now()
	e := Entry[V]{Key: key, Value: c.clone(value), InsertedAt: now}
	if ttl > 0 {
		e.ExpiresAt = now.Add(ttl)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if n, ok := c.entries[key]; ok {
		n.entry = e
		c.moveToFront(n)
		return
	}

	n := &node[V]{entry: e}
	c.entries[key] = n
	c.addToFront(n)

	if len(c.entries) > c.maxEntries {
		c.evictTail()
	}
}

// Invalidate removes key and reports whether it was present.
func (c *Cache[V]) Invalidate(key domain.GeocodeQuery) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	n, ok := c.entries[key]
	if !ok {
		return false
	}
	c.removeNode(n)
	return true
}

// Len returns the number of stored entries, including expired ones not yet read.
func (c *Cache[V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

func (c *Cache[V]) moveToFront(n *node[V]) {
	if n == c.head {
		return
	}
	c.unlink(n)
	c.addToFront(n)
}

func (c *Cache[V]) addToFront(n *node[V]) {
	n.next = c.head
	n.prev = nil
	if c.head != nil {
		c.head.prev = n
	}
	c.head = n
	if c.tail == nil {
		c.tail = n
	}
}

func (c *Cache[V]) unlink(n *node[V]) {
	if n.prev != nil {
		n.prev.next = n.next
	} else {
		c.head = n.next
	}
	if n.next != nil {
		n.next.prev = n.prev
	} else {
		c.tail = n.prev
	}
}

func (c *Cache[V]) removeNode(n *node[V]) {
	delete(c.entries, n.entry.Key)
	c.unlink(n)
}

func (c *Cache[V]) evictTail() {
	if c.tail == nil {
		return
	}
	c.removeNode(c.tail)
}
