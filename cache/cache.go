// Package cache implements the bounded, write-through MRU read cache
// shared by the persistent store backends. It is a plain component owned
// by each backend, not an inherited mixin.
package cache

import (
	"strconv"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/log2timeline/acstore/container"
)

// DefaultCapacity is the approximate entry capacity used when a backend
// does not override it via its functional options.
const DefaultCapacity = 32 * 1024

// Cache is a bounded most-recently-used cache keyed by "<type>.<index>"
// holding decoded containers.
type Cache struct {
	lru *lru.Cache[string, *container.Container]
}

// New returns a Cache with room for capacity entries. capacity <= 0 is
// replaced with DefaultCapacity.
func New(capacity int) *Cache {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	l, err := lru.New[string, *container.Container](capacity)
	if err != nil {
		// Only returned by golang-lru when size <= 0, which cannot happen
		// here after the guard above.
		panic(err)
	}
	return &Cache{lru: l}
}

func key(typeName string, index int64) string {
	return typeName + "." + strconv.FormatInt(index, 10)
}

// Get returns the cached container for (typeName, index), promoting it to
// most-recently-used, or (nil, false) on a miss.
func (c *Cache) Get(typeName string, index int64) (*container.Container, bool) {
	return c.lru.Get(key(typeName, index))
}

// Put caches con at (typeName, index), evicting the least-recently-used
// entry if the cache is at capacity.
func (c *Cache) Put(typeName string, index int64, con *container.Container) {
	c.lru.Add(key(typeName, index), con)
}

// Remove drops any cached entry for (typeName, index).
func (c *Cache) Remove(typeName string, index int64) {
	c.lru.Remove(key(typeName, index))
}

// Purge empties the cache, e.g. when a store is closed.
func (c *Cache) Purge() {
	c.lru.Purge()
}
