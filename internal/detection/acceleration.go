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

// AccelerationConfig holds the thresholds for the ACCELERATION rule.
// Both are operator-configurable like every other rule's thresholds,
// through the acceleration_min_diff_kn and
// acceleration_min_accel_kn_per_sec detection settings.
type AccelerationConfig struct {
	MinDiffKn       float64 `json:"acceleration_min_diff_kn"`
	MinAccelKnPerS  float64 `json:"acceleration_min_accel_kn_per_sec"`
}

// DefaultAccelerationConfig returns rule 6's default thresholds.
func DefaultAccelerationConfig() AccelerationConfig {
	return AccelerationConfig{MinDiffKn: 15, MinAccelKnPerS: 1.0}
}

func (c AccelerationConfig) validate() error {
	if !isFiniteNonNegative(c.MinDiffKn) {
		return fmt.Errorf("acceleration_min_diff_kn must be finite and non-negative")
	}
	if !isFiniteNonNegative(c.MinAccelKnPerS) {
		return fmt.Errorf("acceleration_min_accel_kn_per_sec must be finite and non-negative")
	}
	return nil
}

// AccelerationDetector implements the tier-2 ACCELERATION rule.
type AccelerationDetector struct {
	mu      sync.RWMutex
	config  AccelerationConfig
	enabled bool
}

// NewAccelerationDetector creates an ACCELERATION detector with default
// thresholds.
func NewAccelerationDetector() *AccelerationDetector {
	return &AccelerationDetector{config: DefaultAccelerationConfig(), enabled: true}
}

func (d *AccelerationDetector) Type() aismodel.RuleType { return aismodel.RuleAcceleration }

func (d *AccelerationDetector) Check(_ context.Context, pair kinematics.Pair, hasPrev bool) (*aismodel.Candidate, error) {
	if !hasPrev {
		return nil, nil
	}
	if !pair.Prev.HasSOG() || !pair.Curr.HasSOG() {
		return nil, nil
	}

	dtSec := kinematics.DtSec(pair.Prev, pair.Curr)
	if dtSec <= 1 || dtSec > 300 {
		return nil, nil
	}

	impliedSpeed, ok := kinematics.ImpliedSpeedKnots(pair.Prev, pair.Curr)
	if !ok {
		return nil, nil
	}

	d.mu.RLock()
	cfg := d.config
	d.mu.RUnlock()

	currSOG, prevSOG := *pair.Curr.SOG, *pair.Prev.SOG
	diff := math.Abs(currSOG - impliedSpeed)
	accel := math.Abs(currSOG-prevSOG) / dtSec

	if diff < cfg.MinDiffKn && accel < cfg.MinAccelKnPerS {
		return nil, nil
	}

	severity := int(math.Round(aismodel.Clamp(20+diff, 25, 85)))

	ev := map[string]interface{}{
		"difference_kn":       diff,
		"implied_speed_kn":    impliedSpeed,
		"sog_reported":        currSOG,
		"accel_knots_per_sec": accel,
	}
	raw, _ := json.Marshal(ev)

	return &aismodel.Candidate{
		RuleType: aismodel.RuleAcceleration,
		Severity: severity,
		Summary:  fmt.Sprintf("vessel %s reported speed inconsistent with implied speed", pair.Curr.MMSI),
		Evidence: raw,
	}, nil
}

func (d *AccelerationDetector) Configure(config json.RawMessage) error {
	var next AccelerationConfig
	if err := json.Unmarshal(config, &next); err != nil {
		return fmt.Errorf("invalid acceleration configuration: %w", err)
	}
	if err := next.validate(); err != nil {
		return err
	}
	d.mu.Lock()
	d.config = next
	d.mu.Unlock()
	return nil
}

func (d *AccelerationDetector) Enabled() bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.enabled
}

func (d *AccelerationDetector) SetEnabled(enabled bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.enabled = enabled
}
