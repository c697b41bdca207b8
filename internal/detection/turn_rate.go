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

// angleChannel picks which angle field to evaluate turn rate against:
// heading takes priority over cog when both points report a usable
// heading, otherwise cog if both report it. Heading 511 is "unavailable"
// regardless of report rate.
func angleChannel(pair kinematics.Pair) (angleType string, prevAngle, currAngle float64, ok bool) {
	if pair.Prev.HasHeading() && pair.Curr.HasHeading() {
		return "heading", *pair.Prev.Heading, *pair.Curr.Heading, true
	}
	if pair.Prev.HasCOG() && pair.Curr.HasCOG() {
		return "cog", *pair.Prev.COG, *pair.Curr.COG, true
	}
	return "", 0, 0, false
}

// speedForTurnCheck is curr.sog when reported, else the implied speed
// between prev and curr.
func speedForTurnCheck(pair kinematics.Pair) (float64, bool) {
	if pair.Curr.HasSOG() {
		return *pair.Curr.SOG, true
	}
	return kinematics.ImpliedSpeedKnots(pair.Prev, pair.Curr)
}

// TurnRateConfig holds the thresholds shared by TURN_RATE and
// TURN_RATE_T2.
type TurnRateConfig struct {
	MaxTurnRateDegPerSec     float64 `json:"max_turn_rate_deg_per_sec"`
	MinSpeedForTurnCheckKn   float64 `json:"min_speed_for_turn_check_knots"`
}

// DefaultTurnRateConfig returns the default thresholds.
func DefaultTurnRateConfig() TurnRateConfig {
	return TurnRateConfig{MaxTurnRateDegPerSec: 3, MinSpeedForTurnCheckKn: 10}
}

func (c TurnRateConfig) validate() error {
	if !isFiniteNonNegative(c.MaxTurnRateDegPerSec) {
		return fmt.Errorf("max_turn_rate_deg_per_sec must be finite and non-negative")
	}
	if !isFiniteNonNegative(c.MinSpeedForTurnCheckKn) {
		return fmt.Errorf("min_speed_for_turn_check_knots must be finite and non-negative")
	}
	return nil
}

func turnRateEvidence(pair kinematics.Pair, dtSec, deltaAngle, turnRate, speedKn float64, angleType, tier string) json.RawMessage {
	ev := map[string]interface{}{
		"dt_sec":           dtSec,
		"delta_angle_deg":  deltaAngle,
		"turn_rate_deg_s":  turnRate,
		"speed_kn":         speedKn,
		"angle_type":       angleType,
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

// evaluateTurnRate computes the shared turn-rate metrics once so both
// TURN_RATE and TURN_RATE_T2 agree on what "fired" means.
func evaluateTurnRate(pair kinematics.Pair) (dtSec, turnRate, deltaAngle, speedKn float64, angleType string, ok bool) {
	dtSec = kinematics.DtSec(pair.Prev, pair.Curr)
	if dtSec <= 0 || dtSec > 120 {
		return 0, 0, 0, 0, "", false
	}
	at, prevAngle, currAngle, hasAngle := angleChannel(pair)
	if !hasAngle {
		return 0, 0, 0, 0, "", false
	}
	speed, hasSpeed := speedForTurnCheck(pair)
	if !hasSpeed {
		return 0, 0, 0, 0, "", false
	}
	rate, hasRate := kinematics.TurnRateDegPerSec(currAngle, prevAngle, dtSec)
	if !hasRate {
		return 0, 0, 0, 0, "", false
	}
	return dtSec, rate, kinematics.AngleDiffDeg(currAngle, prevAngle), speed, at, true
}

// TurnRateDetector implements the tier-1 TURN_RATE rule.
type TurnRateDetector struct {
	mu      sync.RWMutex
	config  TurnRateConfig
	enabled bool
}

// NewTurnRateDetector creates a TURN_RATE detector with default thresholds.
func NewTurnRateDetector() *TurnRateDetector {
	return &TurnRateDetector{config: DefaultTurnRateConfig(), enabled: true}
}

func (d *TurnRateDetector) Type() aismodel.RuleType { return aismodel.RuleTurnRate }

func (d *TurnRateDetector) Check(_ context.Context, pair kinematics.Pair, hasPrev bool) (*aismodel.Candidate, error) {
	if !hasPrev {
		return nil, nil
	}
	d.mu.RLock()
	cfg := d.config
	d.mu.RUnlock()

	fired, severity, evidence := evaluateTurnRateRule(pair, cfg)
	if !fired {
		return nil, nil
	}
	return &aismodel.Candidate{
		RuleType: aismodel.RuleTurnRate,
		Severity: severity,
		Summary:  fmt.Sprintf("vessel %s turned faster than physically plausible", pair.Curr.MMSI),
		Evidence: evidence,
	}, nil
}

func evaluateTurnRateRule(pair kinematics.Pair, cfg TurnRateConfig) (fired bool, severity int, evidence json.RawMessage) {
	dtSec, turnRate, deltaAngle, speedKn, angleType, ok := evaluateTurnRate(pair)
	if !ok {
		return false, 0, nil
	}
	if speedKn < cfg.MinSpeedForTurnCheckKn || turnRate < cfg.MaxTurnRateDegPerSec {
		return false, 0, nil
	}

	sev := aismodel.Clamp(50+10*(turnRate-cfg.MaxTurnRateDegPerSec), 70, 95)
	return true, int(math.Round(sev)), turnRateEvidence(pair, dtSec, deltaAngle, turnRate, speedKn, angleType, "normal")
}

func (d *TurnRateDetector) Configure(config json.RawMessage) error {
	var next TurnRateConfig
	if err := json.Unmarshal(config, &next); err != nil {
		return fmt.Errorf("invalid turn_rate configuration: %w", err)
	}
	if err := next.validate(); err != nil {
		return err
	}
	d.mu.Lock()
	d.config = next
	d.mu.Unlock()
	return nil
}

func (d *TurnRateDetector) Enabled() bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.enabled
}

func (d *TurnRateDetector) SetEnabled(enabled bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.enabled = enabled
}

// TurnRateT2Detector implements the tier-2 TURN_RATE_T2 rule.
type TurnRateT2Detector struct {
	mu      sync.RWMutex
	config  TurnRateConfig
	enabled bool
}

// NewTurnRateT2Detector creates a TURN_RATE_T2 detector with default
// thresholds, shared in meaning with TurnRateDetector's.
func NewTurnRateT2Detector() *TurnRateT2Detector {
	return &TurnRateT2Detector{config: DefaultTurnRateConfig(), enabled: true}
}

func (d *TurnRateT2Detector) Type() aismodel.RuleType { return aismodel.RuleTurnRateT2 }

func (d *TurnRateT2Detector) Check(_ context.Context, pair kinematics.Pair, hasPrev bool) (*aismodel.Candidate, error) {
	if !hasPrev {
		return nil, nil
	}
	d.mu.RLock()
	cfg := d.config
	d.mu.RUnlock()

	if fired, _, _ := evaluateTurnRateRule(pair, cfg); fired {
		return nil, nil
	}

	dtSec, turnRate, deltaAngle, speedKn, angleType, ok := evaluateTurnRate(pair)
	if !ok {
		return nil, nil
	}
	const t2MinTurnRate = 1.0
	const t2MinSpeedKn = 5.0
	if turnRate < t2MinTurnRate || speedKn < t2MinSpeedKn {
		return nil, nil
	}

	tier := "normal"
	if speedKn < cfg.MinSpeedForTurnCheckKn {
		tier = "low_speed"
	}

	sev := aismodel.Clamp(25+10*turnRate, 25, 55)
	return &aismodel.Candidate{
		RuleType: aismodel.RuleTurnRateT2,
		Severity: int(math.Round(sev)),
		Summary:  fmt.Sprintf("vessel %s turn rate is unusual but not conclusively impossible", pair.Curr.MMSI),
		Evidence: turnRateEvidence(pair, dtSec, deltaAngle, turnRate, speedKn, angleType, tier),
	}, nil
}

func (d *TurnRateT2Detector) Configure(config json.RawMessage) error {
	var next TurnRateConfig
	if err := json.Unmarshal(config, &next); err != nil {
		return fmt.Errorf("invalid turn_rate_t2 configuration: %w", err)
	}
	if err := next.validate(); err != nil {
		return err
	}
	d.mu.Lock()
	d.config = next
	d.mu.Unlock()
	return nil
}

func (d *TurnRateT2Detector) Enabled() bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.enabled
}

func (d *TurnRateT2Detector) SetEnabled(enabled bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.enabled = enabled
}
