// Cartographus - Media Server Analytics and Geographic Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cartographus

package detection

import (
	"context"
	"fmt"
	"sync"

	"github.com/goccy/go-json"

	"github.com/tomtom215/aisentry/internal/aismodel"
	"github.com/tomtom215/aisentry/internal/kinematics"
)

// PositionInvalidConfig configures the stuck-position sub-case of
// POSITION_INVALID; the out-of-bounds and null-island sub-cases have no
// operator-tunable threshold.
type PositionInvalidConfig struct {
	StuckDistanceM      float64 `json:"stuck_distance_m"`
	StuckMinSOGKn        float64 `json:"stuck_min_sog_kn"`
	StuckMinDtSec        float64 `json:"stuck_min_dt_sec"`
}

// DefaultPositionInvalidConfig returns rule 3's stuck-position
// thresholds: distance < 1m, sog >= 1kn, dt >= 60s.
func DefaultPositionInvalidConfig() PositionInvalidConfig {
	return PositionInvalidConfig{StuckDistanceM: 1, StuckMinSOGKn: 1, StuckMinDtSec: 60}
}

func (c PositionInvalidConfig) validate() error {
	if !isFiniteNonNegative(c.StuckDistanceM) {
		return fmt.Errorf("stuck_distance_m must be finite and non-negative")
	}
	if !isFiniteNonNegative(c.StuckMinSOGKn) {
		return fmt.Errorf("stuck_min_sog_kn must be finite and non-negative")
	}
	if !isFiniteNonNegative(c.StuckMinDtSec) {
		return fmt.Errorf("stuck_min_dt_sec must be finite and non-negative")
	}
	return nil
}

// PositionInvalidDetector implements the tier-1 POSITION_INVALID rule.
// Unlike every other rule it may fire with no previous point at all.
type PositionInvalidDetector struct {
	mu      sync.RWMutex
	config  PositionInvalidConfig
	enabled bool
}

// NewPositionInvalidDetector creates a POSITION_INVALID detector with
// default thresholds.
func NewPositionInvalidDetector() *PositionInvalidDetector {
	return &PositionInvalidDetector{config: DefaultPositionInvalidConfig(), enabled: true}
}

func (d *PositionInvalidDetector) Type() aismodel.RuleType { return aismodel.RulePositionInvalid }

func (d *PositionInvalidDetector) Check(_ context.Context, pair kinematics.Pair, hasPrev bool) (*aismodel.Candidate, error) {
	d.mu.RLock()
	cfg := d.config
	d.mu.RUnlock()

	curr := pair.Curr

	var reason string
	severity := 0
	switch {
	case !kinematics.ValidLat(curr.Lat) || !kinematics.ValidLon(curr.Lon):
		reason, severity = "out_of_bounds", 75
	case kinematics.NullIsland(curr.Lat, curr.Lon):
		reason, severity = "null_island", 75
	case hasPrev && d.isStuck(pair, cfg):
		reason, severity = "stuck", 70
	default:
		return nil, nil
	}

	dtSec := 0.0
	if hasPrev {
		dtSec = kinematics.DtSec(pair.Prev, pair.Curr)
	}

	ev := map[string]interface{}{
		"lat":      curr.Lat,
		"lon":      curr.Lon,
		"sog":      curr.SOG,
		"dt_sec":   dtSec,
		"reason":   reason,
	}
	raw, _ := json.Marshal(ev)

	return &aismodel.Candidate{
		RuleType: aismodel.RulePositionInvalid,
		Severity: severity,
		Summary:  fmt.Sprintf("vessel %s position invalid (%s)", curr.MMSI, reason),
		Evidence: raw,
	}, nil
}

func (d *PositionInvalidDetector) isStuck(pair kinematics.Pair, cfg PositionInvalidConfig) bool {
	if !pair.Prev.HasSOG() {
		return false
	}
	distanceM := kinematics.DistanceMeters(pair.Prev, pair.Curr)
	dtSec := kinematics.DtSec(pair.Prev, pair.Curr)
	return distanceM < cfg.StuckDistanceM && *pair.Prev.SOG >= cfg.StuckMinSOGKn && dtSec >= cfg.StuckMinDtSec
}

func (d *PositionInvalidDetector) Configure(config json.RawMessage) error {
	var next PositionInvalidConfig
	if err := json.Unmarshal(config, &next); err != nil {
		return fmt.Errorf("invalid position_invalid configuration: %w", err)
	}
	if err := next.validate(); err != nil {
		return err
	}
	d.mu.Lock()
	d.config = next
	d.mu.Unlock()
	return nil
}

func (d *PositionInvalidDetector) Enabled() bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.enabled
}

func (d *PositionInvalidDetector) SetEnabled(enabled bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.enabled = enabled
}
