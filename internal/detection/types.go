// Cartographus - Media Server Analytics and Geographic Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cartographus

// Package detection implements the seven AIS plausibility rules and the
// engine that evaluates them, in a fixed order, against consecutive
// vessel points.
package detection

import (
	"context"

	"github.com/goccy/go-json"

	"github.com/tomtom215/aisentry/internal/aismodel"
	"github.com/tomtom215/aisentry/internal/kinematics"
)

// Detector is the interface every detection rule implements.
type Detector interface {
	// Type returns the rule type this detector handles.
	Type() aismodel.RuleType

	// Check evaluates (prev, curr) and returns a candidate alert, or nil
	// if the rule does not fire. hasPrev is false when curr is the first
	// point seen for its vessel in this session; pair.Prev is meaningless
	// in that case and must not be read.
	Check(ctx context.Context, pair kinematics.Pair, hasPrev bool) (*aismodel.Candidate, error)

	// Configure updates the detector's threshold configuration.
	Configure(config json.RawMessage) error

	// Enabled returns whether this detector currently participates.
	Enabled() bool

	// SetEnabled enables or disables the detector.
	SetEnabled(enabled bool)
}

// RequiresPrev reports whether a rule type needs a previous point to
// evaluate at all: if no prev exists, every rule but POSITION_INVALID
// declines to fire, since POSITION_INVALID can judge curr alone.
func RequiresPrev(rt aismodel.RuleType) bool {
	return rt != aismodel.RulePositionInvalid
}
