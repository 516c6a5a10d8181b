package services

import (
	"container/list"
	"fmt"
	"sync"
	"time"

	"github.com/desertthunder/vinyl/internal/models"
)

const (
	DefaultSearchTTL      = 30 * time.Second
	DefaultSearchCapacity = 512
)

type searchEntry struct {
	key    string
	stored time.Time
	songs  []models.Song
}

// SearchCache keeps recent search results keyed by query text and limit.
//
// Entries are served while younger than the ttl. The least recently used entry is evicted once
// the cache holds capacity entries.
type SearchCache struct {
	ttl      time.Duration
	capacity int

	mu      sync.Mutex
	entries map[string]*list.Element
	order   *list.List

	// Now is used to get the current time. This is useful for testing.
	Now func() time.Time
}

// NewSearchCache creates a cache. Non-positive arguments select the defaults.
func NewSearchCache(ttl time.Duration, capacity int) *SearchCache {
	if ttl <= 0 {
		ttl = DefaultSearchTTL
	}
	if capacity <= 0 {
		capacity = DefaultSearchCapacity
	}
	return &SearchCache{
		ttl:      ttl,
		capacity: capacity,
		entries:  make(map[string]*list.Element),
		order:    list.New(),
		Now:      time.Now,
	}
}

// SearchKey builds the cache key for query at the clamped limit.
func SearchKey(query string, limit int) string {
	return fmt.Sprintf("%s:%d", query, limit)
}

// Get returns the songs stored under key when they are still fresh.
func (c *SearchCache) Get(key string) ([]models.Song, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	el, ok := c.entries[key]
	if !ok {
		return nil, false
	}
	e := el.Value.(*searchEntry)
	if c.Now().Sub(e.stored) >= c.ttl {
		return nil, false
	}
	c.order.MoveToFront(el)
	return e.songs, true
}

// Set stores songs under key, replacing any previous entry.
func (c *SearchCache) Set(key string, songs []models.Song) {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.Now()
	if el, ok := c.entries[key]; ok {
		e := el.Value.(*searchEntry)
		e.stored, e.songs = now, songs
		c.order.MoveToFront(el)
		return
	}

	c.entries[key] = c.order.PushFront(&searchEntry{key: key, stored: now, songs: songs})
	for c.order.Len() > c.capacity {
		oldest := c.order.Back()
		c.order.Remove(oldest)
		delete(c.entries, oldest.Value.(*searchEntry).key)
	}
}

// Len returns the number of entries, fresh or not.
func (c *SearchCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.order.Len()
}
