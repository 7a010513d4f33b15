// Package cache provides an LRU cache for prepared SQL statements.
package cache

import (
	"container/list"
	"database/sql"
	"sync"
	"sync/atomic"
)

// DefaultCapacity is the default maximum number of cached prepared statements.
const DefaultCapacity = 1000

// StmtCache stores prepared statements keyed by their SQL text, evicting the
// least recently used entry once capacity is reached. Evicted and replaced
// statements are closed.
type StmtCache struct {
	mu       sync.Mutex
	capacity int
	items    map[string]*list.Element
	order    *list.List

	hits      atomic.Uint64
	misses    atomic.Uint64
	evictions atomic.Uint64
}

type entry struct {
	sql  string
	stmt *sql.Stmt
}

// New creates a statement cache with the default capacity.
func New() *StmtCache {
	return NewWithCapacity(DefaultCapacity)
}

// NewWithCapacity creates a statement cache holding at most capacity entries.
// Non-positive capacities fall back to the default.
func NewWithCapacity(capacity int) *StmtCache {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &StmtCache{
		capacity: capacity,
		items:    make(map[string]*list.Element, capacity),
		order:    list.New(),
	}
}

// Get retrieves a cached statement by SQL text, marking it most recently used.
func (c *StmtCache) Get(sqlText string) (*sql.Stmt, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	elem, ok := c.items[sqlText]
	if !ok {
		c.misses.Add(1)
		return nil, false
	}
	c.order.MoveToFront(elem)
	c.hits.Add(1)
	return elem.Value.(*entry).stmt, true
}

// Set stores a prepared statement under its SQL text. A statement already
// cached under the same text is closed and replaced.
func (c *StmtCache) Set(sqlText string, stmt *sql.Stmt) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if elem, ok := c.items[sqlText]; ok {
		c.order.MoveToFront(elem)
		old := elem.Value.(*entry)
		_ = old.stmt.Close()
		old.stmt = stmt
		return
	}

	if c.order.Len() >= c.capacity {
		c.evictOldest()
	}
	c.items[sqlText] = c.order.PushFront(&entry{sql: sqlText, stmt: stmt})
}

// evictOldest removes and closes the least recently used statement.
// Caller must hold the lock.
func (c *StmtCache) evictOldest() {
	elem := c.order.Back()
	if elem == nil {
		return
	}
	c.order.Remove(elem)
	e := elem.Value.(*entry)
	delete(c.items, e.sql)
	_ = e.stmt.Close()
	c.evictions.Add(1)
}

// Clear closes and removes all cached statements.
func (c *StmtCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	for elem := c.order.Front(); elem != nil; elem = elem.Next() {
		_ = elem.Value.(*entry).stmt.Close()
	}
	c.items = make(map[string]*list.Element, c.capacity)
	c.order.Init()
}

// Stats holds cache performance counters.
type Stats struct {
	Size      int
	Capacity  int
	Hits      uint64
	Misses    uint64
	Evictions uint64
	HitRate   float64
}

// Stats returns a snapshot of the cache counters.
func (c *StmtCache) Stats() Stats {
	c.mu.Lock()
	size := c.order.Len()
	c.mu.Unlock()

	hits := c.hits.Load()
	misses := c.misses.Load()
	total := hits + misses

	rate := 0.0
	if total > 0 {
		rate = float64(hits) / float64(total)
	}
	return Stats{
		Size:      size,
		Capacity:  c.capacity,
		Hits:      hits,
		Misses:    misses,
		Evictions: c.evictions.Load(),
		HitRate:   rate,
	}
}
