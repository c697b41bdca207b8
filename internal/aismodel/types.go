// Cartographus - Media Server Analytics and Geographic Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cartographus

// Package aismodel defines the core data types flowing through the AIS
// detection pipeline: in-flight points and the rows derived from them.
package aismodel

import (
	"time"

	"github.com/goccy/go-json"
)

// HeadingUnavailable is the AIS sentinel value meaning "no heading reported".
const HeadingUnavailable = 511.0

// AisPoint is an immutable in-flight position report as decoded by the
// Loader. It is never persisted directly; Track Store and Persistence
// derive VesselPosition/VesselLatest/Alert rows from it.
type AisPoint struct {
	MMSI      string
	Timestamp time.Time
	Lat       float64
	Lon       float64
	SOG       *float64
	COG       *float64
	Heading   *float64
}

// HasHeading reports whether the point carries a usable heading value.
// Heading 511 is AIS shorthand for "unavailable" and must be treated as
// absent everywhere a heading-consuming rule reads it.
func (p AisPoint) HasHeading() bool {
	return p.Heading != nil && *p.Heading != HeadingUnavailable
}

// HasCOG reports whether the point carries a course-over-ground value.
func (p AisPoint) HasCOG() bool {
	return p.COG != nil
}

// HasSOG reports whether the point carries a speed-over-ground value.
func (p AisPoint) HasSOG() bool {
	return p.SOG != nil
}

// AlertStatus is the closed enum of an Alert's mutable lifecycle status.
type AlertStatus string

const (
	AlertStatusNew           AlertStatus = "new"
	AlertStatusReviewed      AlertStatus = "reviewed"
	AlertStatusResolved      AlertStatus = "resolved"
	AlertStatusFalsePositive AlertStatus = "false_positive"
)

// ValidAlertStatus reports whether s is one of the four permitted statuses.
func ValidAlertStatus(s string) bool {
	switch AlertStatus(s) {
	case AlertStatusNew, AlertStatusReviewed, AlertStatusResolved, AlertStatusFalsePositive:
		return true
	default:
		return false
	}
}

// RuleType is the closed enum of detection rule identifiers.
type RuleType string

const (
	RuleTeleport                RuleType = "TELEPORT"
	RuleTeleportT2              RuleType = "TELEPORT_T2"
	RulePositionInvalid         RuleType = "POSITION_INVALID"
	RuleTurnRate                RuleType = "TURN_RATE"
	RuleTurnRateT2              RuleType = "TURN_RATE_T2"
	RuleAcceleration            RuleType = "ACCELERATION"
	RuleHeadingCOGConsistency   RuleType = "HEADING_COG_CONSISTENCY"
)

// VesselLatest mirrors the most recently ingested point for a vessel plus
// the highest alert severity observed for it in the current session.
type VesselLatest struct {
	MMSI               string
	Timestamp          time.Time
	Lat                float64
	Lon                float64
	SOG                *float64
	COG                *float64
	Heading            *float64
	LastAlertSeverity  int
}

// VesselPosition is an append-only history row.
type VesselPosition struct {
	ID        int64
	MMSI      string
	Timestamp time.Time
	Lat       float64
	Lon       float64
	SOG       *float64
	COG       *float64
	Heading   *float64
}

// Alert is a persisted detection result. Status and Notes are the only
// mutable fields after insert.
type Alert struct {
	ID        int64
	Timestamp time.Time
	MMSI      string
	RuleType  RuleType
	Severity  int
	Summary   string
	Evidence  json.RawMessage
	Status    AlertStatus
	Notes     string
}

// AlertCooldown is the durable per-(vessel, rule) suppression record.
type AlertCooldown struct {
	MMSI              string
	RuleType          RuleType
	LastAlertTimestamp time.Time
}

// Candidate is a not-yet-accepted alert produced by a detector, before the
// Cooldown Gate and Persistence layer process it.
type Candidate struct {
	RuleType RuleType
	Severity int
	Summary  string
	Evidence json.RawMessage
}

// Clamp restricts v to the inclusive [lo, hi] range.
func Clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// ClampInt restricts v to the inclusive [lo, hi] range.
func ClampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
