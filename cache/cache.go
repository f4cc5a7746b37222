// Package cache holds recently retrieved search results so repeated or
// lightly reworded queries skip the embedding round trip.
package cache

import (
	"container/list"
	"crypto/sha1"
	"encoding/hex"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/ragstack/ragchat/schema"
)

type entry struct {
	key     string
	results []schema.SearchResult
	expires time.Time
	element *list.Element
}

// ResultCache is an LRU cache of retrieval results with per-entry TTL.
// The zero value is not usable; construct with New.
type ResultCache struct {
	mu       sync.Mutex
	capacity int
	ttl      time.Duration
	items    map[string]*entry
	order    *list.List
}

// New creates a cache with the given capacity and default TTL.
func New(capacity int, ttl time.Duration) *ResultCache {
	if capacity <= 0 {
		capacity = 128
	}
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &ResultCache{
		capacity: capacity,
		ttl:      ttl,
		items:    make(map[string]*entry, capacity),
		order:    list.New(),
	}
}

// Key derives a cache key from the normalized query and the index
// version. Bumping the version on every index mutation invalidates all
// cached results without scanning them.
func Key(query string, indexVersion uint64) string {
	normalized := strings.Join(strings.Fields(strings.ToLower(query)), " ")
	sum := sha1.Sum([]byte(normalized + "|" + strconv.FormatUint(indexVersion, 10)))
	return hex.EncodeToString(sum[:])
}

// Get returns the cached results for key, if present and fresh.
func (c *ResultCache) Get(key string) ([]schema.SearchResult, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	ent, ok := c.items[key]
	if !ok {
		return nil, false
	}
	if !ent.expires.IsZero() && !time.Now().Before(ent.expires) {
		c.removeEntry(ent)
		return nil, false
	}
	c.order.MoveToFront(ent.element)
	return ent.results, true
}

// Set stores results under key with the default TTL.
func (c *ResultCache) Set(key string, results []schema.SearchResult) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if ent, ok := c.items[key]; ok {
		ent.results = results
		ent.expires = time.Now().Add(c.ttl)
		c.order.MoveToFront(ent.element)
		return
	}
	if len(c.items) >= c.capacity {
		c.evictOldest()
	}
	elem := c.order.PushFront(key)
	c.items[key] = &entry{
		key:     key,
		results: results,
		expires: time.Now().Add(c.ttl),
		element: elem,
	}
}

// Purge drops everything.
func (c *ResultCache) Purge() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items = make(map[string]*entry, c.capacity)
	c.order.Init()
}

// Len reports the number of live entries.
func (c *ResultCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.items)
}

func (c *ResultCache) evictOldest() {
	elem := c.order.Back()
	if elem == nil {
		return
	}
	if ent, ok := c.items[elem.Value.(string)]; ok {
		c.removeEntry(ent)
	}
}

func (c *ResultCache) removeEntry(ent *entry) {
	if ent.element != nil {
		c.order.Remove(ent.element)
	}
	delete(c.items, ent.key)
}
