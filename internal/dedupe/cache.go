// ABOUTME: TTL cache suppressing duplicate inbound frames from client retries
// ABOUTME: Size-bounded with oldest-first eviction and periodic expiry sweeps

package dedupe

import (
	"container/list"
	"sync"
	"time"
)

// Cache tracks recently seen frame keys so a client retry carrying the same
// client-assigned message id is processed once. Thread-safe; entries expire
// after the TTL and the oldest entry is evicted when the size cap is hit.
type Cache struct {
	mu      sync.Mutex
	entries map[string]*entry
	order   *list.List // keys oldest-first
	ttl     time.Duration
	maxSize int
	done    chan struct{}
	closed  bool
}

type entry struct {
	seenAt time.Time
	elem   *list.Element
}

// New creates a cache with the given TTL and maximum size, and starts a
// background sweep of expired entries.
func New(ttl time.Duration, maxSize int) *Cache {
	c := &Cache{
		entries: make(map[string]*entry),
		order:   list.New(),
		ttl:     ttl,
		maxSize: maxSize,
		done:    make(chan struct{}),
	}
	go c.sweepLoop()
	return c
}

// Duplicate atomically reports whether the key was seen inside the TTL
// window, marking it as seen if not. A single call site avoids the
// check-then-mark race of separate operations.
func (c *Cache) Duplicate(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if e, ok := c.entries[key]; ok && time.Since(e.seenAt) < c.ttl {
		return true
	}
	c.record(key)
	return false
}

// record inserts or refreshes a key. Must be called with mu held.
func (c *Cache) record(key string) {
	now := time.Now()
	if e, ok := c.entries[key]; ok {
		e.seenAt = now
		c.order.MoveToBack(e.elem)
		return
	}

	if len(c.entries) >= c.maxSize {
		if front := c.order.Front(); front != nil {
			oldest, _ := front.Value.(string)
			c.order.Remove(front)
			delete(c.entries, oldest)
		}
	}

	c.entries[key] = &entry{seenAt: now, elem: c.order.PushBack(key)}
}

// sweepLoop periodically drops expired entries.
func (c *Cache) sweepLoop() {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			c.sweep()
		case <-c.done:
			return
		}
	}
}

func (c *Cache) sweep() {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := time.Now()
	for key, e := range c.entries {
		if now.Sub(e.seenAt) > c.ttl {
			c.order.Remove(e.elem)
			delete(c.entries, key)
		}
	}
}

// Len returns the current number of tracked keys.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Close stops the background sweep. Safe to call more than once.
func (c *Cache) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.closed {
		close(c.done)
		c.closed = true
	}
}
