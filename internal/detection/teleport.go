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

// TeleportConfig holds the speed thresholds shared by TELEPORT and
// TELEPORT_T2.
type TeleportConfig struct {
	ShortThresholdKn  float64 `json:"teleport_speed_knots_short"`
	MediumThresholdKn float64 `json:"teleport_speed_knots_medium"`
}

// DefaultTeleportConfig returns the default thresholds.
func DefaultTeleportConfig() TeleportConfig {
	return TeleportConfig{ShortThresholdKn: 60, MediumThresholdKn: 100}
}

func (c TeleportConfig) validate() error {
	if !isFiniteNonNegative(c.ShortThresholdKn) {
		return fmt.Errorf("teleport_speed_knots_short must be finite and non-negative")
	}
	if !isFiniteNonNegative(c.MediumThresholdKn) {
		return fmt.Errorf("teleport_speed_knots_medium must be finite and non-negative")
	}
	return nil
}

func isFiniteNonNegative(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0) && v >= 0
}

// teleportTier classifies dt_sec into the short/medium gap used by both
// TELEPORT and TELEPORT_T2, returning the applicable threshold for that
// gap and whether dt_sec falls into either bucket at all.
func teleportTier(dtSec float64, cfg TeleportConfig) (tier string, threshold float64, ok bool) {
	switch {
	case dtSec > 0 && dtSec <= 120:
		return "short", cfg.ShortThresholdKn, true
	case dtSec > 120 && dtSec <= 1800:
		return "medium", cfg.MediumThresholdKn, true
	default:
		return "", 0, false
	}
}

func teleportEvidence(pair kinematics.Pair, dtSec, distanceM, impliedSpeed float64, tier string) json.RawMessage {
	ev := map[string]interface{}{
		"dt_sec":           dtSec,
		"distance_m":       distanceM,
		"implied_speed_kn": impliedSpeed,
		"tier":             tier,
		"p1_lat":           pair.Prev.Lat,
		"p1_lon":           pair.Prev.Lon,
		"p1_timestamp":     pair.Prev.Timestamp,
		"p2_lat":           pair.Curr.Lat,
		"p2_lon":           pair.Curr.Lon,
		"p2_timestamp":     pair.Curr.Timestamp,
	}
	raw, _ := json.Marshal(ev)
	return raw
}

// TeleportDetector implements the tier-1 TELEPORT rule.
type TeleportDetector struct {
	mu      sync.RWMutex
	config  TeleportConfig
	enabled bool
}

// NewTeleportDetector creates a TELEPORT detector with default thresholds.
func NewTeleportDetector() *TeleportDetector {
	return &TeleportDetector{config: DefaultTeleportConfig(), enabled: true}
}

func (d *TeleportDetector) Type() aismodel.RuleType { return aismodel.RuleTeleport }

func (d *TeleportDetector) Check(_ context.Context, pair kinematics.Pair, hasPrev bool) (*aismodel.Candidate, error) {
	if !hasPrev {
		return nil, nil
	}
	d.mu.RLock()
	cfg := d.config
	d.mu.RUnlock()

	fired, severity, evidence := evaluateTeleport(pair, cfg)
	if !fired {
		return nil, nil
	}
	return &aismodel.Candidate{
		RuleType: aismodel.RuleTeleport,
		Severity: severity,
		Summary:  fmt.Sprintf("vessel %s implied speed exceeded teleport threshold", pair.Curr.MMSI),
		Evidence: evidence,
	}, nil
}

// evaluateTeleport is factored out so TeleportT2Detector can ask "would
// TELEPORT have fired on this pair?" without duplicating the arithmetic.
func evaluateTeleport(pair kinematics.Pair, cfg TeleportConfig) (fired bool, severity int, evidence json.RawMessage) {
	dtSec := kinematics.DtSec(pair.Prev, pair.Curr)
	tier, threshold, ok := teleportTier(dtSec, cfg)
	if !ok {
		return false, 0, nil
	}
	impliedSpeed, ok := kinematics.ImpliedSpeedKnots(pair.Prev, pair.Curr)
	if !ok || impliedSpeed < threshold {
		return false, 0, nil
	}

	sev := aismodel.Clamp(40+0.4*(impliedSpeed-threshold), 70, 100)
	distanceM := kinematics.DistanceMeters(pair.Prev, pair.Curr)
	return true, int(math.Round(sev)), teleportEvidence(pair, dtSec, distanceM, impliedSpeed, tier)
}

func (d *TeleportDetector) Configure(config json.RawMessage) error {
	var next TeleportConfig
	if err := json.Unmarshal(config, &next); err != nil {
		return fmt.Errorf("invalid teleport configuration: %w", err)
	}
	if err := next.validate(); err != nil {
		return err
	}
	d.mu.Lock()
	d.config = next
	d.mu.Unlock()
	return nil
}

func (d *TeleportDetector) Enabled() bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.enabled
}

func (d *TeleportDetector) SetEnabled(enabled bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.enabled = enabled
}

// TeleportT2Detector implements the tier-2 TELEPORT_T2 rule: "suspicious
// but not impossible" speeds that don't clear the tier-1 bar.
type TeleportT2Detector struct {
	mu      sync.RWMutex
	config  TeleportConfig
	enabled bool
}

// NewTeleportT2Detector creates a TELEPORT_T2 detector with default
// thresholds, shared in meaning with TeleportDetector's.
func NewTeleportT2Detector() *TeleportT2Detector {
	return &TeleportT2Detector{config: DefaultTeleportConfig(), enabled: true}
}

func (d *TeleportT2Detector) Type() aismodel.RuleType { return aismodel.RuleTeleportT2 }

func (d *TeleportT2Detector) Check(_ context.Context, pair kinematics.Pair, hasPrev bool) (*aismodel.Candidate, error) {
	if !hasPrev {
		return nil, nil
	}
	d.mu.RLock()
	cfg := d.config
	d.mu.RUnlock()

	if fired, _, _ := evaluateTeleport(pair, cfg); fired {
		return nil, nil
	}

	dtSec := kinematics.DtSec(pair.Prev, pair.Curr)
	distanceM := kinematics.DistanceMeters(pair.Prev, pair.Curr)

	var tier string
	var impliedSpeed float64
	switch {
	case dtSec > 0 && dtSec <= 1800:
		t, threshold, _ := teleportTier(dtSec, cfg)
		speed, ok := kinematics.ImpliedSpeedKnots(pair.Prev, pair.Curr)
		if !ok || speed < 25 || speed >= threshold {
			return nil, nil
		}
		tier, impliedSpeed = t, speed
	case dtSec > 1800:
		if distanceM <= 20*dtSec {
			return nil, nil
		}
		speed, ok := kinematics.ImpliedSpeedKnots(pair.Prev, pair.Curr)
		if !ok {
			return nil, nil
		}
		tier, impliedSpeed = "long_gap", speed
	default:
		return nil, nil
	}

	severity := int(math.Round(aismodel.Clamp(15+0.3*impliedSpeed, 15, 60)))
	return &aismodel.Candidate{
		RuleType: aismodel.RuleTeleportT2,
		Severity: severity,
		Summary:  fmt.Sprintf("vessel %s implied speed is suspicious but not conclusively impossible", pair.Curr.MMSI),
		Evidence: teleportEvidence(pair, dtSec, distanceM, impliedSpeed, tier),
	}, nil
}

func (d *TeleportT2Detector) Configure(config json.RawMessage) error {
	var next TeleportConfig
	if err := json.Unmarshal(config, &next); err != nil {
		return fmt.Errorf("invalid teleport_t2 configuration: %w", err)
	}
	if err := next.validate(); err != nil {
		return err
	}
	d.mu.Lock()
	d.config = next
	d.mu.Unlock()
	return nil
}

func (d *TeleportT2Detector) Enabled() bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.enabled
}

func (d *TeleportT2Detector) SetEnabled(enabled bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.enabled = enabled
}
