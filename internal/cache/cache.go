// Package cache holds resolved stream lists for a short time
package cache

import (
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/alvarorichard/svetserialu/internal/models"
)

// DefaultSize bounds the number of cached episodes
const DefaultSize = 512

// Cache is a TTL cache of stream lists keyed by episode. Only non-empty
// lists are stored so failed resolutions are retried on the next request.
type Cache struct {
	lru *expirable.LRU[string, []models.StreamRecord]
}

// New creates a cache whose entries live for ttl from write time
func New(size int, ttl time.Duration) *Cache {
	if size <= 0 {
		size = DefaultSize
	}
	return &Cache{
		lru: expirable.NewLRU[string, []models.StreamRecord](size, nil, ttl),
	}
}

// Get returns a copy of the cached list for key
func (c *Cache) Get(key string) ([]models.StreamRecord, bool) {
	v, ok := c.lru.Get(key)
	if !ok {
		return nil, false
	}
	return append([]models.StreamRecord(nil), v...), true
}

// Set stores records under key; empty lists are ignored
func (c *Cache) Set(key string, records []models.StreamRecord) bool {
	if len(records) == 0 {
		return false
	}
	c.lru.Add(key, append([]models.StreamRecord(nil), records...))
	return true
}

// Len returns the number of live entries
func (c *Cache) Len() int {
	return c.lru.Len()
}

// Purge drops every entry
func (c *Cache) Purge() {
	c.lru.Purge()
}
