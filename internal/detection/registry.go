// Cartographus - Media Server Analytics and Geographic Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cartographus

package detection

// RegisterDefaultDetectors registers all seven rules on e with their
// default thresholds, in the fixed evaluation order.
func RegisterDefaultDetectors(e *Engine) {
	e.RegisterDetector(NewTeleportDetector())
	e.RegisterDetector(NewTeleportT2Detector())
	e.RegisterDetector(NewPositionInvalidDetector())
	e.RegisterDetector(NewTurnRateDetector())
	e.RegisterDetector(NewTurnRateT2Detector())
	e.RegisterDetector(NewAccelerationDetector())
	e.RegisterDetector(NewHeadingCOGConsistencyDetector())
}
