// Cartographus - Media Server Analytics and Geographic Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cartographus

/*
Package cache provides LRUCache, a thread-safe, fixed-capacity
least-recently-used cache with per-entry TTL, backed by a doubly-linked
list plus a hashmap for O(1) Get/Add/Remove and O(1) LRU eviction.

# Overview

LRUCache stores a time.Time per string key — the shape
internal/cooldown's hot cache needs: "when did MMSI+rule last fire?"
Get, Add, and Remove are O(1); eviction of the least-recently-used entry
when capacity is exceeded is also O(1), avoiding the O(n) scan a
map-only implementation would need.

# Usage Example

	c := cache.NewLRUCache(50000, 5*time.Minute)

	c.Add("244123456|TELEPORT", time.Now())

	if ts, ok := c.Get("244123456|TELEPORT"); ok {
	    // ts is the last time this key was seen
	}

	// IsDuplicate is a convenience wrapper: true if the key is present
	// and unexpired; otherwise it records the key as seen and returns false.
	if c.IsDuplicate("244123456|TELEPORT") {
	    return // already accepted within the TTL window
	}

# Expiration

Expiration is lazy: a Get call on an expired entry removes it and
reports a miss; Contains reports a miss without removing it. CleanupExpired walks the list from the
least-recently-used end and removes anything past its TTL, for callers
(like internal/cooldown's periodic GC) that want to reclaim memory
without waiting for a Get to touch each stale key.

# Thread Safety

All LRUCache methods take the cache's sync.RWMutex; Contains/Len/Stats
use a read lock, Get (which moves the entry to the front) and
Add/Remove/IsDuplicate/Clear/CleanupExpired take a write lock.

# See Also

  - internal/cooldown: hot cache in front of the durable Badger store
*/
package cache
