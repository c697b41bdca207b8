// Cartographus - Media Server Analytics and Geographic Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cartographus

// Package aiserrors defines the error kinds shared across the AIS
// detection pipeline and their propagation policy: ConfigError and
// SourceError surface synchronously to whatever called in; the rest are
// absorbed into per-session counters and, where applicable, a terminal
// bus event.
package aiserrors

import "fmt"

// ConfigError reports an invalid or missing configuration value. Surfaces
// synchronously; a service refuses to start rather than run degraded.
type ConfigError struct {
	Field string
	Err   error
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("config error (%s): %v", e.Field, e.Err)
}

func (e *ConfigError) Unwrap() error { return e.Err }

// SourceError reports that a replay source (file, stream) could not be
// opened or decoded well enough to start a session at all. Surfaces
// synchronously to the caller of start_replay.
type SourceError struct {
	Path string
	Err  error
}

func (e *SourceError) Error() string {
	return fmt.Sprintf("source error (%s): %v", e.Path, e.Err)
}

func (e *SourceError) Unwrap() error { return e.Err }

// RecordError reports a single malformed input row. Never fatal; counted
// and skipped by the Loader.
type RecordError struct {
	Line int
	Err  error
}

func (e *RecordError) Error() string {
	return fmt.Sprintf("record error (line %d): %v", e.Line, e.Err)
}

func (e *RecordError) Unwrap() error { return e.Err }

// DetectionError reports a panic or error from a single rule evaluation.
// Never fatal; the engine logs and counts it and moves on to the next
// rule.
type DetectionError struct {
	RuleType string
	MMSI     string
	Err      error
}

func (e *DetectionError) Error() string {
	return fmt.Sprintf("detection error (rule=%s mmsi=%s): %v", e.RuleType, e.MMSI, e.Err)
}

func (e *DetectionError) Unwrap() error { return e.Err }

// PersistenceError reports a failed storage unit (DuckDB transaction or
// cooldown store write). Counted; the offending point is treated as
// skipped rather than partially applied, preserving the all-or-nothing
// guarantee on the persistence unit.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("persistence error (%s): %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }

// StateError reports an invalid replay driver state transition, e.g.
// stop_replay while Idle, start_replay while Running.
type StateError struct {
	From string
	To   string
}

func (e *StateError) Error() string {
	return fmt.Sprintf("invalid state transition: %s -> %s", e.From, e.To)
}

// SubscriberOverflow reports that a bus subscriber's mailbox was full and
// the oldest queued message was dropped to keep the producer unblocked.
// Never fatal; counted.
type SubscriberOverflow struct {
	Subscriber string
	Dropped    int64
}

func (e *SubscriberOverflow) Error() string {
	return fmt.Sprintf("subscriber %s overflowed, dropped %d message(s)", e.Subscriber, e.Dropped)
}
