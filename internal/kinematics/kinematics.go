// Cartographus - Media Server Analytics and Geographic Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cartographus

// Package kinematics implements the pure, deterministic pairwise feature
// functions the Rule Engine evaluates against consecutive AIS points.
package kinematics

import (
	"math"

	"github.com/tomtom215/aisentry/internal/aismodel"
)

// EarthRadiusMeters is the WGS-84 mean Earth radius used by the haversine
// great-circle distance calculation.
const EarthRadiusMeters = 6371000.0

// KnotsPerMeterPerSecond converts m/s to knots.
const KnotsPerMeterPerSecond = 1.9438445

// Pair bundles the previous and current point of a vessel for a single
// rule evaluation, avoiding repeated argument threading across the seven
// detectors.
type Pair struct {
	Prev aismodel.AisPoint
	Curr aismodel.AisPoint
}

// DtSec returns the number of seconds between p's and q's timestamps.
// Negative when q precedes p, i.e. the source delivered points out of
// order for this vessel.
func DtSec(p, q aismodel.AisPoint) float64 {
	return q.Timestamp.Sub(p.Timestamp).Seconds()
}

// DistanceMeters returns the great-circle distance between p and q using
// the haversine formula on the WGS-84 mean radius.
func DistanceMeters(p, q aismodel.AisPoint) float64 {
	lat1 := p.Lat * math.Pi / 180.0
	lon1 := p.Lon * math.Pi / 180.0
	lat2 := q.Lat * math.Pi / 180.0
	lon2 := q.Lon * math.Pi / 180.0

	dLat := lat2 - lat1
	dLon := lon2 - lon1

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLon/2)*math.Sin(dLon/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))

	return EarthRadiusMeters * c
}

// ImpliedSpeedKnots returns the speed in knots implied by the distance
// between p and q over the elapsed time. The second return value is false
// when dt_sec <= 0, in which case implied speed is undefined.
func ImpliedSpeedKnots(p, q aismodel.AisPoint) (float64, bool) {
	dt := DtSec(p, q)
	if dt <= 0 {
		return 0, false
	}
	metersPerSec := DistanceMeters(p, q) / dt
	return metersPerSec * KnotsPerMeterPerSecond, true
}

// AngleDiffDeg returns the smallest signed difference a-b, normalized
// modulo 360 into [-180, 180].
func AngleDiffDeg(a, b float64) float64 {
	diff := math.Mod(a-b, 360)
	if diff > 180 {
		diff -= 360
	} else if diff < -180 {
		diff += 360
	}
	return diff
}

// TurnRateDegPerSec returns the absolute turn rate implied by angle delta
// over dt seconds. The second return value is false when dt <= 0.
func TurnRateDegPerSec(a, b, dt float64) (float64, bool) {
	if dt <= 0 {
		return 0, false
	}
	return math.Abs(AngleDiffDeg(a, b)) / dt, true
}

// ValidLat reports whether lat lies within the AIS-valid latitude range.
func ValidLat(lat float64) bool { return lat >= -90 && lat <= 90 }

// ValidLon reports whether lon lies within the AIS-valid longitude range.
func ValidLon(lon float64) bool { return lon >= -180 && lon <= 180 }

// NullIsland reports whether a coordinate pair sits at the (0,0) sentinel
// within a small tolerance, the classic sign of a dropped/zeroed fix.
func NullIsland(lat, lon float64) bool {
	const epsilon = 0.001
	return math.Abs(lat) < epsilon && math.Abs(lon) < epsilon
}
