// Cartographus - Media Server Analytics and Geographic Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cartographus

package detection

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tomtom215/aisentry/internal/aismodel"
	"github.com/tomtom215/aisentry/internal/kinematics"
)

func f(v float64) *float64 { return &v }

func findCandidate(cands []aismodel.Candidate, rt aismodel.RuleType) *aismodel.Candidate {
	for i := range cands {
		if cands[i].RuleType == rt {
			return &cands[i]
		}
	}
	return nil
}

func newTestEngine() *Engine {
	e := NewEngine()
	RegisterDefaultDetectors(e)
	return e
}

// S1 — TELEPORT short gap.
func TestScenario_S1_TeleportShort(t *testing.T) {
	e := newTestEngine()
	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	prev := aismodel.AisPoint{MMSI: "200000001", Timestamp: base, Lat: 40.0, Lon: -70.0, SOG: f(12), COG: f(90), Heading: f(90)}
	curr := aismodel.AisPoint{MMSI: "200000001", Timestamp: base.Add(60 * time.Second), Lat: 40.0, Lon: -68.0, SOG: f(12), COG: f(90), Heading: f(90)}

	cands := e.Evaluate(context.Background(), kinematics.Pair{Prev: prev, Curr: curr}, true)

	teleport := findCandidate(cands, aismodel.RuleTeleport)
	require.NotNil(t, teleport, "expected a TELEPORT alert")
	assert.Equal(t, 100, teleport.Severity)
	assert.Nil(t, findCandidate(cands, aismodel.RuleTeleportT2), "TELEPORT and TELEPORT_T2 must not both fire on the same pair")
}

// S2 — TELEPORT_T2 medium: 300s apart, 15km distance, implied ~97kn.
func TestScenario_S2_TeleportT2Medium(t *testing.T) {
	e := newTestEngine()
	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	// 15km eastward near the equator ~ 0.1348 deg longitude.
	prev := aismodel.AisPoint{MMSI: "200000002", Timestamp: base, Lat: 0.0, Lon: 0.0}
	curr := aismodel.AisPoint{MMSI: "200000002", Timestamp: base.Add(300 * time.Second), Lat: 0.0, Lon: 0.1348}

	cands := e.Evaluate(context.Background(), kinematics.Pair{Prev: prev, Curr: curr}, true)

	assert.Nil(t, findCandidate(cands, aismodel.RuleTeleport))
	t2 := findCandidate(cands, aismodel.RuleTeleportT2)
	require.NotNil(t, t2, "expected a TELEPORT_T2 alert")
	assert.GreaterOrEqual(t, t2.Severity, 15)
	assert.LessOrEqual(t, t2.Severity, 60)
}

// S4 — POSITION_INVALID out-of-bounds, no prev required.
func TestScenario_S4_PositionInvalidOutOfBounds(t *testing.T) {
	e := newTestEngine()
	curr := aismodel.AisPoint{MMSI: "300000009", Timestamp: time.Now(), Lat: 95.0, Lon: 0.0}

	cands := e.Evaluate(context.Background(), kinematics.Pair{Curr: curr}, false)

	alert := findCandidate(cands, aismodel.RulePositionInvalid)
	require.NotNil(t, alert)
	assert.Equal(t, 75, alert.Severity)
}

// S5 — TURN_RATE: 10s apart, heading 0 -> 60, sog=25. turn_rate=6 deg/s.
func TestScenario_S5_TurnRate(t *testing.T) {
	e := newTestEngine()
	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	prev := aismodel.AisPoint{MMSI: "300000001", Timestamp: base, Lat: 10, Lon: 10, SOG: f(25), Heading: f(0)}
	curr := aismodel.AisPoint{MMSI: "300000001", Timestamp: base.Add(10 * time.Second), Lat: 10, Lon: 10, SOG: f(25), Heading: f(60)}

	cands := e.Evaluate(context.Background(), kinematics.Pair{Prev: prev, Curr: curr}, true)

	alert := findCandidate(cands, aismodel.RuleTurnRate)
	require.NotNil(t, alert)
	assert.GreaterOrEqual(t, alert.Severity, 80)
}

// S6 — ACCELERATION: 10s apart, sog 5 -> 50, same position.
func TestScenario_S6_Acceleration(t *testing.T) {
	e := newTestEngine()
	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	prev := aismodel.AisPoint{MMSI: "400000001", Timestamp: base, Lat: 10, Lon: 10, SOG: f(5)}
	curr := aismodel.AisPoint{MMSI: "400000001", Timestamp: base.Add(10 * time.Second), Lat: 10, Lon: 10, SOG: f(50)}

	cands := e.Evaluate(context.Background(), kinematics.Pair{Prev: prev, Curr: curr}, true)

	alert := findCandidate(cands, aismodel.RuleAcceleration)
	require.NotNil(t, alert)
}

// S7 — HEADING_COG_CONSISTENCY.
func TestScenario_S7_HeadingCOGConsistency(t *testing.T) {
	e := newTestEngine()
	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	prev := aismodel.AisPoint{MMSI: "500000001", Timestamp: base, Lat: 10, Lon: 10, SOG: f(20), Heading: f(150), COG: f(358)}
	curr := aismodel.AisPoint{MMSI: "500000001", Timestamp: base.Add(5 * time.Second), Lat: 10, Lon: 10, SOG: f(20), Heading: f(180), COG: f(0)}

	cands := e.Evaluate(context.Background(), kinematics.Pair{Prev: prev, Curr: curr}, true)

	alert := findCandidate(cands, aismodel.RuleHeadingCOGConsistency)
	require.NotNil(t, alert)
}

// Boundary: dt_sec == 0 never triggers any pair-wise rule.
func TestBoundary_DtSecZero_NeverFires(t *testing.T) {
	e := newTestEngine()
	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	prev := aismodel.AisPoint{MMSI: "600000001", Timestamp: base, Lat: 10, Lon: 10, SOG: f(20), Heading: f(10), COG: f(10)}
	curr := aismodel.AisPoint{MMSI: "600000001", Timestamp: base, Lat: 10, Lon: 10, SOG: f(90), Heading: f(200), COG: f(200)}

	cands := e.Evaluate(context.Background(), kinematics.Pair{Prev: prev, Curr: curr}, true)

	for _, c := range cands {
		assert.NotEqual(t, aismodel.RuleTeleport, c.RuleType)
		assert.NotEqual(t, aismodel.RuleTeleportT2, c.RuleType)
		assert.NotEqual(t, aismodel.RuleTurnRate, c.RuleType)
		assert.NotEqual(t, aismodel.RuleTurnRateT2, c.RuleType)
		assert.NotEqual(t, aismodel.RuleAcceleration, c.RuleType)
		assert.NotEqual(t, aismodel.RuleHeadingCOGConsistency, c.RuleType)
	}
}

// Boundary: heading 511 is treated as absent for rules 4 and 7.
func TestBoundary_HeadingUnavailableFallsBackToCOG(t *testing.T) {
	e := newTestEngine()
	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	prev := aismodel.AisPoint{MMSI: "700000001", Timestamp: base, Lat: 10, Lon: 10, SOG: f(25), Heading: f(511), COG: f(0)}
	curr := aismodel.AisPoint{MMSI: "700000001", Timestamp: base.Add(10 * time.Second), Lat: 10, Lon: 10, SOG: f(25), Heading: f(511), COG: f(60)}

	cands := e.Evaluate(context.Background(), kinematics.Pair{Prev: prev, Curr: curr}, true)

	alert := findCandidate(cands, aismodel.RuleTurnRate)
	require.NotNil(t, alert, "heading=511 must be treated as missing, falling back to cog")
}

// Round-trip: a point with valid fields and no prev produces no alert
// except possibly POSITION_INVALID.
func TestInvariant_NoPrevOnlyPositionInvalidMayFire(t *testing.T) {
	e := newTestEngine()
	curr := aismodel.AisPoint{MMSI: "800000001", Timestamp: time.Now(), Lat: 10, Lon: 10, SOG: f(12), COG: f(90), Heading: f(90)}

	cands := e.Evaluate(context.Background(), kinematics.Pair{Curr: curr}, false)

	for _, c := range cands {
		assert.Equal(t, aismodel.RulePositionInvalid, c.RuleType)
	}
}
