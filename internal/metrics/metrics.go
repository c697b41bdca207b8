// Cartographus - Media Server Analytics and Geographic Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cartographus

package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Prometheus instrumentation for the AIS pipeline: ingestion throughput,
// detection outcomes, cooldown suppressions, persistence health, bus
// backpressure and the control/query HTTP surface.

var (
	PointsIngestedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "aisentry_points_ingested_total",
			Help: "Total number of AIS points successfully ingested from a replay session",
		},
	)

	PointsSkippedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "aisentry_points_skipped_total",
			Help: "Total number of input rows skipped before reaching the detection engine",
		},
		[]string{"reason"}, // "malformed", "rate_limited"
	)

	DetectionCandidatesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "aisentry_detection_candidates_total",
			Help: "Total number of detection candidates raised by the rule engine, before cooldown suppression",
		},
		[]string{"rule_type"},
	)

	DetectionErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "aisentry_detection_errors_total",
			Help: "Total number of detector panics or errors recovered by the engine",
		},
		[]string{"rule_type"},
	)

	AlertsEmittedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "aisentry_alerts_emitted_total",
			Help: "Total number of alerts that passed the cooldown gate and were persisted",
		},
		[]string{"rule_type", "severity"},
	)

	CooldownSuppressedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "aisentry_cooldown_suppressed_total",
			Help: "Total number of candidates suppressed by the cooldown gate",
		},
		[]string{"rule_type"},
	)

	CooldownCacheSize = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "aisentry_cooldown_hot_cache_entries",
			Help: "Current number of entries in the cooldown gate's hot LRU cache",
		},
	)

	PersistenceErrorsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "aisentry_persistence_errors_total",
			Help: "Total number of persistence unit failures during replay",
		},
	)

	PersistenceUnitDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "aisentry_persistence_unit_duration_seconds",
			Help:    "Duration of a single point's persistence transaction",
			Buckets: prometheus.DefBuckets,
		},
	)

	StoreBreakerState = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "aisentry_store_breaker_state",
			Help: "Current circuit breaker state for the DuckDB store (0=closed, 1=half-open, 2=open)",
		},
	)

	BusMessagesPublishedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "aisentry_bus_messages_published_total",
			Help: "Total number of events published to the fan-out bus",
		},
		[]string{"kind"}, // "alert", "tick", "error"
	)

	BusMessagesDroppedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "aisentry_bus_messages_dropped_total",
			Help: "Total number of bus events dropped from a full subscriber mailbox",
		},
	)

	BusSubscriberCount = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "aisentry_bus_subscribers",
			Help: "Current number of active bus subscribers (WebSocket clients + internal consumers)",
		},
	)

	TrackStoreVesselCount = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "aisentry_trackstore_vessels",
			Help: "Current number of vessels held in the replay session's track store",
		},
	)

	ReplaySessionsStartedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "aisentry_replay_sessions_started_total",
			Help: "Total number of replay sessions started",
		},
	)

	ReplaySessionDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "aisentry_replay_session_duration_seconds",
			Help:    "Wall-clock duration of a completed replay session",
			Buckets: []float64{1, 5, 15, 30, 60, 120, 300, 600, 1800},
		},
	)

	// API Endpoint Metrics
	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "aisentry_api_requests_total",
			Help: "Total number of control/query API requests",
		},
		[]string{"method", "endpoint", "status_code"},
	)

	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "aisentry_api_request_duration_seconds",
			Help:    "Control/query API request duration in seconds",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		},
		[]string{"method", "endpoint"},
	)

	APIActiveRequests = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "aisentry_api_active_requests",
			Help: "Current number of in-flight control/query API requests",
		},
	)

	APIRateLimitHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "aisentry_api_rate_limit_hits_total",
			Help: "Total number of rate limit rejections on the control/query API",
		},
		[]string{"endpoint"},
	)
)

// RecordAPIRequest records a completed control/query API request.
func RecordAPIRequest(method, endpoint, statusCode string, duration time.Duration) {
	APIRequestsTotal.WithLabelValues(method, endpoint, statusCode).Inc()
	APIRequestDuration.WithLabelValues(method, endpoint).Observe(duration.Seconds())
}

// TrackActiveRequest increments or decrements the in-flight request gauge.
func TrackActiveRequest(inc bool) {
	if inc {
		APIActiveRequests.Inc()
	} else {
		APIActiveRequests.Dec()
	}
}

// RecordRateLimitHit records a rejected request on a rate-limited endpoint.
func RecordRateLimitHit(endpoint string) {
	APIRateLimitHits.WithLabelValues(endpoint).Inc()
}

// RecordPointIngested records one successfully persisted AIS point.
func RecordPointIngested() {
	PointsIngestedTotal.Inc()
}

// RecordPointSkipped records one row dropped before detection, tagged by reason.
func RecordPointSkipped(reason string) {
	PointsSkippedTotal.WithLabelValues(reason).Inc()
}

// RecordDetectionCandidate records one candidate raised by a rule, before cooldown.
func RecordDetectionCandidate(ruleType string) {
	DetectionCandidatesTotal.WithLabelValues(ruleType).Inc()
}

// RecordDetectionError records one detector panic or error recovered by the engine.
func RecordDetectionError(ruleType string) {
	DetectionErrorsTotal.WithLabelValues(ruleType).Inc()
}

// RecordAlertEmitted records one alert that passed cooldown and was persisted.
func RecordAlertEmitted(ruleType, severity string) {
	AlertsEmittedTotal.WithLabelValues(ruleType, severity).Inc()
}

// RecordCooldownSuppressed records one candidate suppressed by the cooldown gate.
func RecordCooldownSuppressed(ruleType string) {
	CooldownSuppressedTotal.WithLabelValues(ruleType).Inc()
}

// RecordPersistenceError records one failed persistence unit.
func RecordPersistenceError() {
	PersistenceErrorsTotal.Inc()
}

// RecordPersistenceUnitDuration records the wall time of one persistence transaction.
func RecordPersistenceUnitDuration(d time.Duration) {
	PersistenceUnitDuration.Observe(d.Seconds())
}

// RecordBusPublish records one event published to the fan-out bus.
func RecordBusPublish(kind string) {
	BusMessagesPublishedTotal.WithLabelValues(kind).Inc()
}

// RecordBusDropped records one event dropped from a full subscriber mailbox.
func RecordBusDropped() {
	BusMessagesDroppedTotal.Inc()
}

// SetBusSubscriberCount sets the current bus subscriber gauge.
func SetBusSubscriberCount(n int) {
	BusSubscriberCount.Set(float64(n))
}

// SetTrackStoreVesselCount sets the current track-store vessel cardinality gauge.
func SetTrackStoreVesselCount(n int) {
	TrackStoreVesselCount.Set(float64(n))
}

// RecordReplaySessionStarted records the start of a replay session.
func RecordReplaySessionStarted() {
	ReplaySessionsStartedTotal.Inc()
}

// RecordReplaySessionDuration records the wall-clock duration of a finished replay session.
func RecordReplaySessionDuration(d time.Duration) {
	ReplaySessionDuration.Observe(d.Seconds())
}
