// Package cache keeps resolved upstream identifiers in memory so repeated
// runs in one process skip the search round-trip.
package cache

import (
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/custodia-labs/lexsync/internal/core/ports/driven"
)

// DefaultSize bounds the cache when no size is configured.
const DefaultSize = 256

// Ensure Identifiers implements the interface.
var _ driven.IdentifierCache = (*Identifiers)(nil)

// Identifiers is a bounded LRU of identifier lookups. A zero TTL keeps
// entries until they are evicted.
type Identifiers struct {
	lru *expirable.LRU[string, string]
}

// NewIdentifiers creates a cache holding at most size entries.
func NewIdentifiers(size int, ttl time.Duration) *Identifiers {
	if size <= 0 {
		size = DefaultSize
	}
	if ttl < 0 {
		ttl = 0
	}
	return &Identifiers{lru: expirable.NewLRU[string, string](size, nil, ttl)}
}

// Get returns the cached value for key.
func (c *Identifiers) Get(key string) (string, bool) {
	return c.lru.Get(key)
}

// Add stores value under key, evicting the oldest entry when full.
func (c *Identifiers) Add(key, value string) {
	c.lru.Add(key, value)
}

// Len returns the number of cached entries.
func (c *Identifiers) Len() int {
	return c.lru.Len()
}
