// Package statscache keeps recently computed statistics in a bounded, expiring LRU.
//
// Entries are evicted least recently used first once the capacity is reached and
// expire after a TTL, so processes sharing a database converge even when they miss
// each other's writes. A write should invalidate the test type it touched.
package statscache

import (
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/hyp3rd/mindscore/internal/sentinel"
	"github.com/hyp3rd/mindscore/pkg/stats"
)

// Key identifies one summary. An empty UserID is the global population.
type Key struct {
	TestType string
	UserID   string
}

// Cache is a concurrency safe LRU of stats.Computed values.
type Cache struct {
	lru *expirable.LRU[Key, stats.Computed]
}

// New returns a cache holding at most capacity entries for ttl each. A ttl of zero
// disables expiry.
func New(capacity int, ttl time.Duration) (*Cache, error) {
	if capacity <= 0 {
		return nil, sentinel.ErrInvalidCapacity
	}

	return &Cache{lru: expirable.NewLRU[Key, stats.Computed](capacity, nil, ttl)}, nil
}

// Get returns the value of key unless it is missing or expired.
func (c *Cache) Get(key Key) (stats.Computed, bool) {
	return c.lru.Get(key)
}

// Set stores value under key, evicting the least recently used entry when full.
func (c *Cache) Set(key Key, value stats.Computed) {
	c.lru.Add(key, value)
}

// InvalidateTest drops every entry of testType and returns how many went.
func (c *Cache) InvalidateTest(testType string) int {
	dropped := 0

	for _, key := range c.lru.Keys() {
		if key.TestType == testType && c.lru.Remove(key) {
			dropped++
		}
	}

	return dropped
}

// Purge drops every entry.
func (c *Cache) Purge() {
	c.lru.Purge()
}

// Len returns the number of entries, expired ones not yet collected included.
func (c *Cache) Len() int {
	return c.lru.Len()
}
