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
	"github.com/tomtom215/aisentry/internal/logging"
)

// DefaultRuleOrder is the fixed evaluation order detectors must run in:
// TELEPORT before TELEPORT_T2, TURN_RATE before TURN_RATE_T2, so each
// tier-2 rule can see whether its tier-1 counterpart already fired on the
// same pair.
var DefaultRuleOrder = []aismodel.RuleType{
	aismodel.RuleTeleport,
	aismodel.RuleTeleportT2,
	aismodel.RulePositionInvalid,
	aismodel.RuleTurnRate,
	aismodel.RuleTurnRateT2,
	aismodel.RuleAcceleration,
	aismodel.RuleHeadingCOGConsistency,
}

// DetectorMetrics tracks a single detector's run counts.
type DetectorMetrics struct {
	Checked         int64
	CandidatesFired int64
	Errors          int64
}

// EngineMetrics aggregates detection engine activity.
type EngineMetrics struct {
	mu              sync.Mutex
	PointsEvaluated int64
	DetectionErrors int64
	ByRule          map[aismodel.RuleType]*DetectorMetrics
}

// Engine coordinates evaluation of all registered detectors, in a fixed
// order, against one (prev, curr) pair per incoming point.
type Engine struct {
	mu        sync.RWMutex
	order     []aismodel.RuleType
	detectors map[aismodel.RuleType]Detector
	metrics   *EngineMetrics
}

// NewEngine creates an Engine with no detectors registered.
func NewEngine() *Engine {
	return &Engine{
		order:     append([]aismodel.RuleType{}, DefaultRuleOrder...),
		detectors: make(map[aismodel.RuleType]Detector),
		metrics: &EngineMetrics{
			ByRule: make(map[aismodel.RuleType]*DetectorMetrics),
		},
	}
}

// RegisterDetector adds a detector to the engine.
func (e *Engine) RegisterDetector(d Detector) {
	e.mu.Lock()
	defer e.mu.Unlock()

	rt := d.Type()
	e.detectors[rt] = d
	e.metrics.mu.Lock()
	e.metrics.ByRule[rt] = &DetectorMetrics{}
	e.metrics.mu.Unlock()

	logging.Info().Str("rule_type", string(rt)).Msg("registered detector")
}

// Evaluate runs every enabled detector, in fixed order, against the given
// pair. hasPrev indicates whether pair.Prev is a real previous point for
// this vessel. A panic or error from an individual detector is treated as
// a DetectionError: logged with the offending point identity and skipped,
// never allowed to abort the remaining rules or the caller.
func (e *Engine) Evaluate(ctx context.Context, pair kinematics.Pair, hasPrev bool) []aismodel.Candidate {
	e.mu.RLock()
	order := append([]aismodel.RuleType{}, e.order...)
	e.mu.RUnlock()

	var candidates []aismodel.Candidate
	for _, rt := range order {
		e.mu.RLock()
		d, ok := e.detectors[rt]
		e.mu.RUnlock()
		if !ok || !d.Enabled() {
			continue
		}
		if !hasPrev && RequiresPrev(rt) {
			continue
		}

		cand := e.runOne(ctx, d, pair, hasPrev)
		if cand != nil {
			candidates = append(candidates, *cand)
		}
	}

	e.metrics.mu.Lock()
	e.metrics.PointsEvaluated++
	e.metrics.mu.Unlock()

	return candidates
}

// runOne invokes a single detector, recovering from a panic so a
// programmer error in one rule never takes down the engine loop.
func (e *Engine) runOne(ctx context.Context, d Detector, pair kinematics.Pair, hasPrev bool) (result *aismodel.Candidate) {
	rt := d.Type()

	defer func() {
		if r := recover(); r != nil {
			e.metrics.mu.Lock()
			if m, ok := e.metrics.ByRule[rt]; ok {
				m.Errors++
			}
			e.metrics.DetectionErrors++
			e.metrics.mu.Unlock()
			logging.Error().
				Str("rule_type", string(rt)).
				Str("mmsi", pair.Curr.MMSI).
				Interface("panic", r).
				Msg("detector panicked, skipping rule for this point")
			result = nil
		}
	}()

	e.metrics.mu.Lock()
	if m, ok := e.metrics.ByRule[rt]; ok {
		m.Checked++
	}
	e.metrics.mu.Unlock()

	cand, err := d.Check(ctx, pair, hasPrev)
	if err != nil {
		e.metrics.mu.Lock()
		if m, ok := e.metrics.ByRule[rt]; ok {
			m.Errors++
		}
		e.metrics.DetectionErrors++
		e.metrics.mu.Unlock()
		logging.Error().
			Err(err).
			Str("rule_type", string(rt)).
			Str("mmsi", pair.Curr.MMSI).
			Msg("detector returned an error, skipping rule for this point")
		return nil
	}
	if cand == nil {
		return nil
	}

	e.metrics.mu.Lock()
	if m, ok := e.metrics.ByRule[rt]; ok {
		m.CandidatesFired++
	}
	e.metrics.mu.Unlock()

	return cand
}

// ConfigureDetector updates a single detector's configuration.
func (e *Engine) ConfigureDetector(rt aismodel.RuleType, config json.RawMessage) error {
	e.mu.RLock()
	d, ok := e.detectors[rt]
	e.mu.RUnlock()
	if !ok {
		return fmt.Errorf("detector not found: %s", rt)
	}
	return d.Configure(config)
}

// SetDetectorEnabled enables or disables a single detector.
func (e *Engine) SetDetectorEnabled(rt aismodel.RuleType, enabled bool) error {
	e.mu.RLock()
	d, ok := e.detectors[rt]
	e.mu.RUnlock()
	if !ok {
		return fmt.Errorf("detector not found: %s", rt)
	}
	d.SetEnabled(enabled)
	return nil
}

// Metrics returns a snapshot of engine activity counters.
func (e *Engine) Metrics() EngineMetrics {
	e.metrics.mu.Lock()
	defer e.metrics.mu.Unlock()

	byRule := make(map[aismodel.RuleType]*DetectorMetrics, len(e.metrics.ByRule))
	for k, v := range e.metrics.ByRule {
		cp := *v
		byRule[k] = &cp
	}
	return EngineMetrics{
		PointsEvaluated: e.metrics.PointsEvaluated,
		DetectionErrors: e.metrics.DetectionErrors,
		ByRule:          byRule,
	}
}
