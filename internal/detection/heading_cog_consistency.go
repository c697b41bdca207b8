// Cartographus - Media Server Analytics and Geographic Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cartographus

package detection

import (
	"context"
	"fmt"
	"math"
	"sync"

	"github.com/goccy/go-json"

	"github.com/tomtom215/aisentry/internal/aismodel"
	"github.com/tomtom215/aisentry/internal/kinematics"
)

// HeadingCOGConsistencyConfig holds the thresholds for rule 7.
type HeadingCOGConsistencyConfig struct {
	MinAngleDiffDeg        float64 `json:"heading_cog_min_angle_diff_deg"`
	MinTurnRateDegPerSec   float64 `json:"heading_cog_min_turn_rate_deg_per_sec"`
	MinSpeedForCheckKn     float64 `json:"min_speed_for_turn_check_knots"`
}

// DefaultHeadingCOGConsistencyConfig returns rule 7's default thresholds.
func DefaultHeadingCOGConsistencyConfig() HeadingCOGConsistencyConfig {
	return HeadingCOGConsistencyConfig{MinAngleDiffDeg: 90, MinTurnRateDegPerSec: 2, MinSpeedForCheckKn: 10}
}

func (c HeadingCOGConsistencyConfig) validate() error {
	if !isFiniteNonNegative(c.MinAngleDiffDeg) {
		return fmt.Errorf("heading_cog_min_angle_diff_deg must be finite and non-negative")
	}
	if !isFiniteNonNegative(c.MinTurnRateDegPerSec) {
		return fmt.Errorf("heading_cog_min_turn_rate_deg_per_sec must be finite and non-negative")
	}
	if !isFiniteNonNegative(c.MinSpeedForCheckKn) {
		return fmt.Errorf("min_speed_for_turn_check_knots must be finite and non-negative")
	}
	return nil
}

// HeadingCOGConsistencyDetector implements the tier-1
// HEADING_COG_CONSISTENCY rule.
type HeadingCOGConsistencyDetector struct {
	mu      sync.RWMutex
	config  HeadingCOGConsistencyConfig
	enabled bool
}

// NewHeadingCOGConsistencyDetector creates the detector with default
// thresholds.
func NewHeadingCOGConsistencyDetector() *HeadingCOGConsistencyDetector {
	return &HeadingCOGConsistencyDetector{config: DefaultHeadingCOGConsistencyConfig(), enabled: true}
}

func (d *HeadingCOGConsistencyDetector) Type() aismodel.RuleType {
	return aismodel.RuleHeadingCOGConsistency
}

func (d *HeadingCOGConsistencyDetector) Check(_ context.Context, pair kinematics.Pair, hasPrev bool) (*aismodel.Candidate, error) {
	if !hasPrev {
		return nil, nil
	}
	curr := pair.Curr
	if !curr.HasHeading() || !curr.HasCOG() {
		return nil, nil
	}

	speedKn, hasSpeed := speedForTurnCheck(pair)
	d.mu.RLock()
	cfg := d.config
	d.mu.RUnlock()
	if !hasSpeed || speedKn < cfg.MinSpeedForCheckKn {
		return nil, nil
	}

	angleDiff := kinematics.AngleDiffDeg(*curr.Heading, *curr.COG)
	if math.Abs(angleDiff) < cfg.MinAngleDiffDeg {
		return nil, nil
	}

	dtSec, turnRate, _, _, angleType, ok := evaluateTurnRate(pair)
	if !ok || turnRate < cfg.MinTurnRateDegPerSec {
		return nil, nil
	}

	severity := int(math.Round(aismodel.Clamp(60+0.2*math.Abs(angleDiff), 70, 85)))

	ev := map[string]interface{}{
		"dt_sec":          dtSec,
		"angle_change_deg": angleDiff,
		"turn_rate_deg_s": turnRate,
		"speed_kn":        speedKn,
		"angle_type":      angleType,
	}
	raw, _ := json.Marshal(ev)

	return &aismodel.Candidate{
		RuleType: aismodel.RuleHeadingCOGConsistency,
		Severity: severity,
		Summary:  fmt.Sprintf("vessel %s heading and course over ground are inconsistent", curr.MMSI),
		Evidence: raw,
	}, nil
}

func (d *HeadingCOGConsistencyDetector) Configure(config json.RawMessage) error {
	var next HeadingCOGConsistencyConfig
	if err := json.Unmarshal(config, &next); err != nil {
		return fmt.Errorf("invalid heading_cog_consistency configuration: %w", err)
	}
	if err := next.validate(); err != nil {
		return err
	}
	d.mu.Lock()
	d.config = next
	d.mu.Unlock()
	return nil
}

func (d *HeadingCOGConsistencyDetector) Enabled() bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.enabled
}

func (d *HeadingCOGConsistencyDetector) SetEnabled(enabled bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.enabled = enabled
}
