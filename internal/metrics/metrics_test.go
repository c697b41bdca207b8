// Cartographus - Media Server Analytics and Geographic Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cartographus

package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

func TestRecordAPIRequest(t *testing.T) {
	APIRequestsTotal.Reset()
	RecordAPIRequest("POST", "/api/v1/replay/start", "200", 15*time.Millisecond)
	require.Equal(t, float64(1), testutil.ToFloat64(APIRequestsTotal.WithLabelValues("POST", "/api/v1/replay/start", "200")))
}

func TestTrackActiveRequest(t *testing.T) {
	before := testutil.ToFloat64(APIActiveRequests)
	TrackActiveRequest(true)
	require.Equal(t, before+1, testutil.ToFloat64(APIActiveRequests))
	TrackActiveRequest(false)
	require.Equal(t, before, testutil.ToFloat64(APIActiveRequests))
}

func TestRecordRateLimitHit(t *testing.T) {
	APIRateLimitHits.Reset()
	RecordRateLimitHit("/api/v1/replay/start")
	require.Equal(t, float64(1), testutil.ToFloat64(APIRateLimitHits.WithLabelValues("/api/v1/replay/start")))
}

func TestRecordPointIngestedAndSkipped(t *testing.T) {
	before := testutil.ToFloat64(PointsIngestedTotal)
	RecordPointIngested()
	require.Equal(t, before+1, testutil.ToFloat64(PointsIngestedTotal))

	PointsSkippedTotal.Reset()
	RecordPointSkipped("malformed")
	RecordPointSkipped("malformed")
	RecordPointSkipped("rate_limited")
	require.Equal(t, float64(2), testutil.ToFloat64(PointsSkippedTotal.WithLabelValues("malformed")))
	require.Equal(t, float64(1), testutil.ToFloat64(PointsSkippedTotal.WithLabelValues("rate_limited")))
}

func TestRecordDetectionCandidateAndError(t *testing.T) {
	DetectionCandidatesTotal.Reset()
	DetectionErrorsTotal.Reset()
	RecordDetectionCandidate("TELEPORT")
	RecordDetectionError("TURN_RATE")
	require.Equal(t, float64(1), testutil.ToFloat64(DetectionCandidatesTotal.WithLabelValues("TELEPORT")))
	require.Equal(t, float64(1), testutil.ToFloat64(DetectionErrorsTotal.WithLabelValues("TURN_RATE")))
}

func TestRecordAlertEmittedAndCooldownSuppressed(t *testing.T) {
	AlertsEmittedTotal.Reset()
	CooldownSuppressedTotal.Reset()
	RecordAlertEmitted("TELEPORT", "high")
	RecordCooldownSuppressed("TELEPORT")
	require.Equal(t, float64(1), testutil.ToFloat64(AlertsEmittedTotal.WithLabelValues("TELEPORT", "high")))
	require.Equal(t, float64(1), testutil.ToFloat64(CooldownSuppressedTotal.WithLabelValues("TELEPORT")))
}

func TestRecordPersistenceError(t *testing.T) {
	before := testutil.ToFloat64(PersistenceErrorsTotal)
	RecordPersistenceError()
	require.Equal(t, before+1, testutil.ToFloat64(PersistenceErrorsTotal))
}

func TestRecordBusPublishAndDropped(t *testing.T) {
	BusMessagesPublishedTotal.Reset()
	before := testutil.ToFloat64(BusMessagesDroppedTotal)
	RecordBusPublish("alert")
	RecordBusDropped()
	require.Equal(t, float64(1), testutil.ToFloat64(BusMessagesPublishedTotal.WithLabelValues("alert")))
	require.Equal(t, before+1, testutil.ToFloat64(BusMessagesDroppedTotal))
}

func TestSetBusSubscriberCountAndTrackStoreVesselCount(t *testing.T) {
	SetBusSubscriberCount(7)
	require.Equal(t, float64(7), testutil.ToFloat64(BusSubscriberCount))

	SetTrackStoreVesselCount(42)
	require.Equal(t, float64(42), testutil.ToFloat64(TrackStoreVesselCount))
}

func TestRecordReplaySessionStartedAndDuration(t *testing.T) {
	before := testutil.ToFloat64(ReplaySessionsStartedTotal)
	RecordReplaySessionStarted()
	require.Equal(t, before+1, testutil.ToFloat64(ReplaySessionsStartedTotal))

	RecordReplaySessionDuration(30 * time.Second)
	require.Equal(t, uint64(1), testutil.CollectAndCount(ReplaySessionDuration))
}
