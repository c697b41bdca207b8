// Cartographus - Media Server Analytics and Geographic Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cartographus

package cooldown

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func openTestGate(t *testing.T) *Gate {
	t.Helper()
	g, err := Open(Config{Path: "", HotCacheCapacity: 100})
	require.NoError(t, err)
	t.Cleanup(func() { _ = g.Close() })
	return g
}

func TestGate_AcceptFirstAlertAlwaysAccepted(t *testing.T) {
	g := openTestGate(t)
	ok, err := g.Accept(context.Background(), "123456789", "TELEPORT", time.Unix(1000, 0), 600*time.Second)
	require.NoError(t, err)
	require.True(t, ok)
}

func TestGate_SuppressesWithinInterval(t *testing.T) {
	g := openTestGate(t)
	ctx := context.Background()
	base := time.Unix(1000, 0)

	ok, err := g.Accept(ctx, "123456789", "TELEPORT", base, 600*time.Second)
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = g.Accept(ctx, "123456789", "TELEPORT", base.Add(599*time.Second), 600*time.Second)
	require.NoError(t, err)
	require.False(t, ok)

	ok, err = g.Accept(ctx, "123456789", "TELEPORT", base.Add(600*time.Second), 600*time.Second)
	require.NoError(t, err)
	require.True(t, ok)
}

func TestGate_IndependentPerRuleType(t *testing.T) {
	g := openTestGate(t)
	ctx := context.Background()
	base := time.Unix(1000, 0)

	ok, err := g.Accept(ctx, "123456789", "TELEPORT", base, 600*time.Second)
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = g.Accept(ctx, "123456789", "TURN_RATE", base.Add(time.Second), 600*time.Second)
	require.NoError(t, err)
	require.True(t, ok, "a different rule type must not be suppressed by another rule's cooldown")
}

func TestGate_IndependentPerVessel(t *testing.T) {
	g := openTestGate(t)
	ctx := context.Background()
	base := time.Unix(1000, 0)

	ok, err := g.Accept(ctx, "111111111", "TELEPORT", base, 600*time.Second)
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = g.Accept(ctx, "222222222", "TELEPORT", base.Add(time.Second), 600*time.Second)
	require.NoError(t, err)
	require.True(t, ok, "a different vessel must not be suppressed by another vessel's cooldown")
}

func TestGate_SurvivesHotCacheEviction(t *testing.T) {
	g, err := Open(Config{Path: "", HotCacheCapacity: 1})
	require.NoError(t, err)
	t.Cleanup(func() { _ = g.Close() })
	ctx := context.Background()
	base := time.Unix(1000, 0)

	ok, err := g.Accept(ctx, "111111111", "TELEPORT", base, 600*time.Second)
	require.NoError(t, err)
	require.True(t, ok)

	// Evicts the hot entry for 111111111 from the size-1 cache.
	_, err = g.Accept(ctx, "222222222", "TELEPORT", base, 600*time.Second)
	require.NoError(t, err)

	ok, err = g.Accept(ctx, "111111111", "TELEPORT", base.Add(1*time.Second), 600*time.Second)
	require.NoError(t, err)
	require.False(t, ok, "durable store must still suppress after the hot cache evicted the key")
}

func TestGate_UsesSourceTimestampNotWallClock(t *testing.T) {
	g := openTestGate(t)
	ctx := context.Background()
	// A source timestamp far in the past relative to wall clock must
	// still observe the cooldown window correctly.
	base := time.Date(1999, 1, 1, 0, 0, 0, 0, time.UTC)

	ok, err := g.Accept(ctx, "123456789", "TELEPORT", base, 600*time.Second)
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = g.Accept(ctx, "123456789", "TELEPORT", base.Add(100*time.Second), 600*time.Second)
	require.NoError(t, err)
	require.False(t, ok)
}
