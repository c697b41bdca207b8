// Cartographus - Media Server Analytics and Geographic Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cartographus

package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDefaultConfig_MatchesBuiltInDefaults(t *testing.T) {
	cfg := defaultConfig()
	require.Equal(t, 60.0, cfg.Detection.TeleportSpeedKnotsShort)
	require.Equal(t, 100.0, cfg.Detection.TeleportSpeedKnotsMedium)
	require.Equal(t, 3.0, cfg.Detection.MaxTurnRateDegPerSec)
	require.EqualValues(t, 300, cfg.Cooldown.IntervalSeconds)
	require.Equal(t, "append_skip_latest", cfg.Store.OutOfOrderPolicy)
	require.Equal(t, 1000, cfg.Replay.DefaultBatchSize)
	require.Equal(t, 3857, cfg.Server.Port)
	require.Equal(t, "info", cfg.Logging.Level)
}

func TestLoadWithKoanf_NoFileUsesDefaults(t *testing.T) {
	os.Clearenv()
	cfg, err := LoadWithKoanf()
	require.NoError(t, err)
	require.Equal(t, defaultConfig().Detection, cfg.Detection)
}

func TestLoadWithKoanf_EnvOverridesDefault(t *testing.T) {
	os.Clearenv()
	t.Setenv("MAX_TURN_RATE_DEG_PER_SEC", "5")
	t.Setenv("HTTP_PORT", "9000")

	cfg, err := LoadWithKoanf()
	require.NoError(t, err)
	require.Equal(t, 5.0, cfg.Detection.MaxTurnRateDegPerSec)
	require.Equal(t, 9000, cfg.Server.Port)
}

func TestLoadWithKoanf_ConfigFileOverridesDefaultButNotEnv(t *testing.T) {
	os.Clearenv()
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("detection:\n  max_turn_rate_deg_per_sec: 7\nserver:\n  port: 4000\n"), 0o600))

	t.Setenv(ConfigPathEnvVar, path)
	t.Setenv("HTTP_PORT", "5000")

	cfg, err := LoadWithKoanf()
	require.NoError(t, err)
	require.Equal(t, 7.0, cfg.Detection.MaxTurnRateDegPerSec)
	require.Equal(t, 5000, cfg.Server.Port)
}

func TestLoadWithKoanf_InvalidOverrideFailsValidation(t *testing.T) {
	os.Clearenv()
	t.Setenv("HTTP_PORT", "99999")
	_, err := LoadWithKoanf()
	require.Error(t, err)
}

func TestEnvTransformFunc_UnmappedKeyIgnored(t *testing.T) {
	require.Equal(t, "", envTransformFunc("SOME_RANDOM_VAR"))
}

func TestEnvTransformFunc_KnownKeyMapped(t *testing.T) {
	require.Equal(t, "detection.teleport_speed_knots_short", envTransformFunc("TELEPORT_SPEED_KNOTS_SHORT"))
}
