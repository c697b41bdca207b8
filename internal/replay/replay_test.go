// Cartographus - Media Server Analytics and Geographic Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cartographus

package replay

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/tomtom215/aisentry/internal/bus"
	"github.com/tomtom215/aisentry/internal/cooldown"
	"github.com/tomtom215/aisentry/internal/detection"
	"github.com/tomtom215/aisentry/internal/store"
)

func newTestDriver(t *testing.T) *Driver {
	t.Helper()
	engine := detection.NewEngine()
	detection.RegisterDefaultDetectors(engine)

	gate, err := cooldown.Open(cooldown.DefaultConfig())
	require.NoError(t, err)
	t.Cleanup(func() { _ = gate.Close() })

	st, err := store.Open(store.DefaultConfig())
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })

	b := bus.New(64)
	t.Cleanup(func() { _ = b.Close() })

	thresholds := DefaultThresholds()
	thresholds.RateLimitPerSec = 0
	return New(engine, gate, st, b, thresholds)
}

func writeFixture(t *testing.T, contents string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "fixture.csv")
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o600))
	return path
}

func TestStartReplay_RejectsBadPath(t *testing.T) {
	d := newTestDriver(t)
	_, err := d.StartReplay(context.Background(), StartRequest{Path: "/nonexistent/file.csv", Speedup: 1000})
	require.Error(t, err)
	require.Equal(t, StateIdle, d.State())
}

func TestStartReplay_RejectsLowSpeedup(t *testing.T) {
	d := newTestDriver(t)
	path := writeFixture(t, "mmsi,timestamp,lat,lon\n200000001,2025-01-01T00:00:00Z,40.0,-70.0\n")
	_, err := d.StartReplay(context.Background(), StartRequest{Path: path, Speedup: 0.01})
	require.Error(t, err)
}

func TestStartReplay_RejectsWhileRunning(t *testing.T) {
	d := newTestDriver(t)
	path := writeFixture(t, "mmsi,timestamp,lat,lon\n200000001,2025-01-01T00:00:00Z,40.0,-70.0\n200000001,2025-01-01T00:10:00Z,40.0,-70.0\n")
	_, err := d.StartReplay(context.Background(), StartRequest{Path: path, Speedup: 1e9})
	require.NoError(t, err)

	_, err = d.StartReplay(context.Background(), StartRequest{Path: path, Speedup: 1e9})
	require.Error(t, err)

	require.NoError(t, d.StopReplay())
}

func TestReplay_HeaderOnlyProducesZeroProcessed(t *testing.T) {
	d := newTestDriver(t)
	path := writeFixture(t, "mmsi,timestamp,lat,lon\n")

	_, err := d.StartReplay(context.Background(), StartRequest{Path: path, Speedup: 1e9})
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		return d.State() == StateIdle
	}, 2*time.Second, 10*time.Millisecond)

	require.Equal(t, int64(0), d.Status().ProcessedCount)
}

func TestReplay_ProcessesAllPointsAtHighSpeedup(t *testing.T) {
	d := newTestDriver(t)
	path := writeFixture(t, "mmsi,timestamp,lat,lon,sog,cog,heading\n"+
		"200000001,2025-01-01T00:00:00Z,40.0,-70.0,12,90,90\n"+
		"200000001,2025-01-01T00:01:00Z,40.0,-68.0,12,90,90\n")

	_, err := d.StartReplay(context.Background(), StartRequest{Path: path, Speedup: 1e9})
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		return d.State() == StateIdle
	}, 2*time.Second, 10*time.Millisecond)

	require.Equal(t, int64(2), d.Status().ProcessedCount)
}

func TestStopReplay_IdempotentWhileIdle(t *testing.T) {
	d := newTestDriver(t)
	require.NoError(t, d.StopReplay())
	require.NoError(t, d.StopReplay())
	require.Equal(t, StateIdle, d.State())
}

func TestReplay_TeleportScenarioEmitsAlert(t *testing.T) {
	d := newTestDriver(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	events, unsubscribe, err := d.bus.Subscribe(ctx, "test")
	require.NoError(t, err)
	defer unsubscribe()

	path := writeFixture(t, "mmsi,timestamp,lat,lon,sog,cog,heading\n"+
		"200000001,2025-01-01T00:00:00Z,40.0,-70.0,12,90,90\n"+
		"200000001,2025-01-01T00:01:00Z,40.0,-68.0,12,90,90\n")

	_, err = d.StartReplay(context.Background(), StartRequest{Path: path, Speedup: 1e9})
	require.NoError(t, err)

	sawAlert := false
	deadline := time.After(2 * time.Second)
	for !sawAlert {
		select {
		case ev := <-events:
			if ev.Kind == bus.KindAlert {
				sawAlert = true
			}
		case <-deadline:
			t.Fatal("timed out waiting for TELEPORT alert event")
		}
	}
	require.True(t, sawAlert)
}
