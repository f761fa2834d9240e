// ABOUTME: Thread-safe TTL cache for deduplicating redelivered webhook messages.
// ABOUTME: Guarantees exactly one fresh outcome per message id under concurrency.

package dedupe

import (
	"container/list"
	"sync"
	"time"
)

// entry stores the observation time and list element for a cached message id.
type entry struct {
	seenAt  time.Time
	element *list.Element
}

// Cache tracks recently observed message ids so redelivered webhook calls can
// be dropped. The window is both time-bounded (TTL) and size-bounded: once at
// capacity the oldest id is evicted first. An id redelivered after its entry
// has expired or been evicted will be observed as fresh again; that
// reprocessing risk is accepted in exchange for bounded memory.
type Cache struct {
	mu      sync.RWMutex
	seen    map[string]*entry
	order   *list.List // ids in observation order, oldest at front
	ttl     time.Duration
	maxSize int
	done    chan struct{}
	closed  bool
}

// New creates a dedupe cache with the given TTL and maximum entry count.
// A background goroutine periodically removes expired entries.
func New(ttl time.Duration, maxSize int) *Cache {
	c := &Cache{
		seen:    make(map[string]*entry),
		order:   list.New(),
		ttl:     ttl,
		maxSize: maxSize,
		done:    make(chan struct{}),
	}
	go c.sweepLoop()
	return c
}

// Observe atomically records a message id and reports whether it was fresh.
// The first call for an id within the retention window returns true; every
// later call returns false. Concurrent calls with the same id yield true for
// exactly one caller.
func (c *Cache) Observe(messageID string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if e, ok := c.seen[messageID]; ok && time.Since(e.seenAt) < c.ttl {
		return false
	}

	c.record(messageID)
	return true
}

// Seen reports whether a message id is currently tracked, without marking it.
func (c *Cache) Seen(messageID string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()

	e, ok := c.seen[messageID]
	return ok && time.Since(e.seenAt) < c.ttl
}

// record inserts or refreshes an id. Must be called with mu held.
func (c *Cache) record(messageID string) {
	now := time.Now()

	// Expired entry being re-observed: refresh in place
	if e, ok := c.seen[messageID]; ok {
		e.seenAt = now
		c.order.MoveToBack(e.element)
		return
	}

	if len(c.seen) >= c.maxSize {
		c.evictOldest()
	}

	elem := c.order.PushBack(messageID)
	c.seen[messageID] = &entry{seenAt: now, element: elem}
}

// evictOldest removes the oldest tracked id. Must be called with mu held.
func (c *Cache) evictOldest() {
	front := c.order.Front()
	if front == nil {
		return
	}

	id, _ := front.Value.(string)
	c.order.Remove(front)
	delete(c.seen, id)
}

// sweepLoop periodically removes expired entries until Close is called.
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

// sweep removes all expired entries.
func (c *Cache) sweep() {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := time.Now()
	for id, e := range c.seen {
		if now.Sub(e.seenAt) > c.ttl {
			c.order.Remove(e.element)
			delete(c.seen, id)
		}
	}
}

// Len returns the number of currently tracked ids, expired or not.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.seen)
}

// Close stops the background sweep goroutine. Safe to call multiple times.
func (c *Cache) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.closed {
		close(c.done)
		c.closed = true
	}
}
