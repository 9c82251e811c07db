// Package store implements the domain stores: one per collection, each
// owning a cached snapshot plus loading and error status. Stores follow a
// shared pattern: fetch replaces the cache wholesale, mutations write through
// the gateway and then re-fetch, and a failed refresh never clears
// previously good data.
package store

import (
	"sync"
)

// Status is the observable side-state of a store's cache.
type Status struct {
	IsLoading bool   `json:"isLoading"`
	Error     string `json:"error,omitempty"`
}

// cache holds a store's snapshot guarded by a sequence number. Every fetch
// obtains a ticket before calling the gateway; a response only lands if no
// newer response has landed already, so overlapping fetches resolve to the
// newest initiated request instead of the last one to return.
type cache[T any] struct {
	mu      sync.RWMutex
	data    T
	ok      bool
	loading int
	err     error
	next    uint64
	applied uint64
}

// begin registers an in-flight fetch and returns its ticket. Starting a fetch
// clears the previous error.
func (c *cache[T]) begin() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.next++
	c.loading++
	c.err = nil
	return c.next
}

// complete lands a successful response. Returns false when a newer response
// already landed, in which case the data is discarded.
func (c *cache[T]) complete(ticket uint64, data T) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.loading > 0 {
		c.loading--
	}
	if ticket <= c.applied {
		return false
	}
	c.applied = ticket
	c.data = data
	c.ok = true
	c.err = nil
	return true
}

// fail records a fetch error. Cached data stays untouched; a stale snapshot
// beats an empty one.
func (c *cache[T]) fail(ticket uint64, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.loading > 0 {
		c.loading--
	}
	if ticket > c.applied {
		c.err = err
	}
}

// replace force-lands data outside the fetch path, claiming a fresh ticket.
// Used by live subscriptions whose pushed snapshots supersede any in-flight
// fetch.
func (c *cache[T]) replace(data T) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.next++
	c.applied = c.next
	c.data = data
	c.ok = true
	c.err = nil
}

// snapshot returns the cached data and current status. The data is the
// internal value; stores hand out copies where mutation matters.
func (c *cache[T]) snapshot() (T, Status) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	status := Status{IsLoading: c.loading > 0}
	if c.err != nil {
		status.Error = c.err.Error()
	}
	return c.data, status
}

// hasData reports whether any snapshot has ever landed.
func (c *cache[T]) hasData() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.ok
}
