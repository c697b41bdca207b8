// Cartographus - Media Server Analytics and Geographic Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cartographus

// Package trackstore maintains a per-vessel bounded FIFO ring of recent
// AIS points, scoped to a single replay session.
package trackstore

import (
	"sync"

	"github.com/tomtom215/aisentry/internal/aismodel"
)

// DefaultWindowSize is the default number of points retained per vessel.
const DefaultWindowSize = 5

// DefaultVesselCapacity bounds the number of distinct vessels a single
// session's store will track concurrently. Once exceeded, the least
// recently touched vessel's entire ring is evicted. This never evicts a
// point within a live vessel's own ring — only an entire cold vessel's
// ring, and only once session-wide vessel cardinality would otherwise
// grow unbounded.
const DefaultVesselCapacity = 100000

// ring is a fixed-capacity FIFO buffer of points, oldest first.
type ring struct {
	points []aismodel.AisPoint
	cap    int

	// lruPrev/lruNext thread this ring into the Store's recency list so a
	// cold vessel can be evicted in O(1) without a second map.
	mmsi    string
	lruPrev *ring
	lruNext *ring
}

func newRing(mmsi string, capacity int) *ring {
	return &ring{mmsi: mmsi, points: make([]aismodel.AisPoint, 0, capacity), cap: capacity}
}

// push appends a point, evicting the oldest entry by strict FIFO order
// once the ring is at capacity, and returns the ring ordered oldest-first
// including the just-pushed point.
func (r *ring) push(p aismodel.AisPoint) []aismodel.AisPoint {
	r.points = append(r.points, p)
	if len(r.points) > r.cap {
		r.points = r.points[len(r.points)-r.cap:]
	}
	out := make([]aismodel.AisPoint, len(r.points))
	copy(out, r.points)
	return out
}

func (r *ring) previous() (aismodel.AisPoint, bool) {
	if len(r.points) == 0 {
		return aismodel.AisPoint{}, false
	}
	return r.points[len(r.points)-1], true
}

// Store is a per-session, per-vessel bounded window. Each active replay
// session owns its own Store, keyed by a session identifier, and the
// Store is discarded at session end — it must never be a process-wide
// singleton.
type Store struct {
	mu         sync.Mutex
	windowSize int
	vesselCap  int
	rings      map[string]*ring

	// head/tail are sentinels of a doubly-linked recency list: head.lruNext
	// is most-recently-touched, tail.lruPrev is least-recently-touched.
	head *ring
	tail *ring
}

// New creates a Store bounding each vessel's ring to windowSize points
// and the total distinct vessel count to vesselCapacity.
func New(windowSize, vesselCapacity int) *Store {
	if windowSize <= 0 {
		windowSize = DefaultWindowSize
	}
	if vesselCapacity <= 0 {
		vesselCapacity = DefaultVesselCapacity
	}
	head, tail := &ring{}, &ring{}
	head.lruNext = tail
	tail.lruPrev = head
	return &Store{
		windowSize: windowSize,
		vesselCap:  vesselCapacity,
		rings:      make(map[string]*ring),
		head:       head,
		tail:       tail,
	}
}

// Push appends a point to its vessel's ring and returns the ring
// ordered oldest-first after insertion, including the just-pushed point.
func (s *Store) Push(p aismodel.AisPoint) []aismodel.AisPoint {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.rings[p.MMSI]
	if !ok {
		if len(s.rings) >= s.vesselCap {
			s.evictColdest()
		}
		r = newRing(p.MMSI, s.windowSize)
		s.rings[p.MMSI] = r
		s.addToFront(r)
	} else {
		s.moveToFront(r)
	}

	return r.push(p)
}

// Previous returns the most recent point pushed for mmsi before the
// current one, if any.
func (s *Store) Previous(mmsi string) (aismodel.AisPoint, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.rings[mmsi]
	if !ok {
		return aismodel.AisPoint{}, false
	}
	return r.previous()
}

// VesselCount returns the number of distinct vessels currently tracked.
func (s *Store) VesselCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.rings)
}

// Close discards all per-vessel state. Call at session end.
func (s *Store) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rings = make(map[string]*ring)
	s.head.lruNext = s.tail
	s.tail.lruPrev = s.head
}

// addToFront links r as the most recently touched vessel. Caller holds s.mu.
func (s *Store) addToFront(r *ring) {
	r.lruPrev = s.head
	r.lruNext = s.head.lruNext
	s.head.lruNext.lruPrev = r
	s.head.lruNext = r
}

// moveToFront re-links an already-tracked vessel to the front. Caller holds s.mu.
func (s *Store) moveToFront(r *ring) {
	r.lruPrev.lruNext = r.lruNext
	r.lruNext.lruPrev = r.lruPrev
	s.addToFront(r)
}

// evictColdest drops the least recently touched vessel's ring entirely.
// Caller holds s.mu.
func (s *Store) evictColdest() {
	coldest := s.tail.lruPrev
	if coldest == s.head {
		return
	}
	coldest.lruPrev.lruNext = coldest.lruNext
	coldest.lruNext.lruPrev = coldest.lruPrev
	delete(s.rings, coldest.mmsi)
}

// Session wraps a Store with its owning session identifier.
type Session struct {
	ID    string
	Store *Store
}

// NewSession creates a fresh, empty per-session Track Store.
func NewSession(id string, windowSize, vesselCapacity int) *Session {
	return &Session{ID: id, Store: New(windowSize, vesselCapacity)}
}

// Close discards the session's track store.
func (s *Session) Close() {
	s.Store.Close()
}
