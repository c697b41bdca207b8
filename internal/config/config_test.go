// Cartographus - Media Server Analytics and Geographic Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cartographus

package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func validConfig() *Config {
	return defaultConfig()
}

func TestValidate_DefaultConfigIsValid(t *testing.T) {
	require.NoError(t, validConfig().Validate())
}

func TestValidate_NegativeThresholdRejected(t *testing.T) {
	cfg := validConfig()
	cfg.Detection.MaxTurnRateDegPerSec = -1
	require.Error(t, cfg.Validate())
}

func TestValidate_TeleportMediumBelowShortRejected(t *testing.T) {
	cfg := validConfig()
	cfg.Detection.TeleportSpeedKnotsMedium = cfg.Detection.TeleportSpeedKnotsShort - 1
	require.Error(t, cfg.Validate())
}

func TestValidate_CooldownIntervalMustBePositive(t *testing.T) {
	cfg := validConfig()
	cfg.Cooldown.IntervalSeconds = 0
	require.Error(t, cfg.Validate())
}

func TestValidate_StoreOutOfOrderPolicyMustBeKnown(t *testing.T) {
	cfg := validConfig()
	cfg.Store.OutOfOrderPolicy = "rewind_time"
	require.Error(t, cfg.Validate())
}

func TestValidate_ReplayBatchSizeRange(t *testing.T) {
	cfg := validConfig()
	cfg.Replay.DefaultBatchSize = 0
	require.Error(t, cfg.Validate())

	cfg.Replay.DefaultBatchSize = 20000
	require.Error(t, cfg.Validate())
}

func TestValidate_ServerPortRange(t *testing.T) {
	cfg := validConfig()
	cfg.Server.Port = 0
	require.Error(t, cfg.Validate())

	cfg.Server.Port = 70000
	require.Error(t, cfg.Validate())
}

func TestValidate_LoggingLevelMustBeKnown(t *testing.T) {
	cfg := validConfig()
	cfg.Logging.Level = "verbose"
	require.Error(t, cfg.Validate())
}

func TestCooldownConfig_Interval(t *testing.T) {
	cfg := CooldownConfig{IntervalSeconds: 300}
	require.Equal(t, 300*time.Second, cfg.Interval())
}

func TestReplayConfig_StreamingThresholdBytes(t *testing.T) {
	cfg := ReplayConfig{StreamingThresholdMB: 50}
	require.Equal(t, int64(50*1024*1024), cfg.StreamingThresholdBytes())
}
