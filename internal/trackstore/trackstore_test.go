// Cartographus - Media Server Analytics and Geographic Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cartographus

package trackstore

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tomtom215/aisentry/internal/aismodel"
)

func pointAt(mmsi string, t time.Time) aismodel.AisPoint {
	return aismodel.AisPoint{MMSI: mmsi, Timestamp: t}
}

func TestPush_RingCappedAtFive(t *testing.T) {
	s := New(DefaultWindowSize, 0)
	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

	var last []aismodel.AisPoint
	for i := 0; i < 10; i++ {
		last = s.Push(pointAt("200000001", base.Add(time.Duration(i)*time.Minute)))
		assert.LessOrEqual(t, len(last), 5, "track store must never hold more than 5 points per vessel")
	}

	require.Len(t, last, 5)
	// Strict FIFO: oldest-first ordering, last pushed entry at the tail.
	assert.Equal(t, base.Add(5*time.Minute), last[0].Timestamp)
	assert.Equal(t, base.Add(9*time.Minute), last[4].Timestamp)
}

func TestPrevious(t *testing.T) {
	s := New(DefaultWindowSize, 0)
	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

	_, ok := s.Previous("200000001")
	assert.False(t, ok, "no points pushed yet")

	s.Push(pointAt("200000001", base))
	prev, ok := s.Previous("200000001")
	require.True(t, ok)
	assert.Equal(t, base, prev.Timestamp)

	s.Push(pointAt("200000001", base.Add(time.Minute)))
	prev, ok = s.Previous("200000001")
	require.True(t, ok)
	assert.Equal(t, base.Add(time.Minute), prev.Timestamp)
}

func TestVesselsAreIndependent(t *testing.T) {
	s := New(DefaultWindowSize, 0)
	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

	s.Push(pointAt("200000001", base))
	s.Push(pointAt("200000002", base))

	assert.Equal(t, 2, s.VesselCount())
}

func TestVesselCardinalityCapEvictsColdestVessel(t *testing.T) {
	s := New(DefaultWindowSize, 2)
	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

	s.Push(pointAt("200000001", base))
	s.Push(pointAt("200000002", base))
	assert.Equal(t, 2, s.VesselCount())

	// Touch vessel 1 again so vessel 2... no, touch 1 so it stays warm,
	// then adding a third vessel must evict the coldest (vessel 2).
	s.Push(pointAt("200000001", base.Add(time.Second)))
	s.Push(pointAt("200000003", base))

	assert.Equal(t, 2, s.VesselCount())
	_, ok := s.Previous("200000002")
	assert.False(t, ok, "coldest vessel's ring must be evicted once cardinality cap is exceeded")

	_, ok = s.Previous("200000001")
	assert.True(t, ok, "recently touched vessel must survive eviction")
}

func TestClose(t *testing.T) {
	s := New(DefaultWindowSize, 0)
	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	s.Push(pointAt("200000001", base))

	s.Close()

	assert.Equal(t, 0, s.VesselCount())
}
