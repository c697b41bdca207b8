// Cartographus - Media Server Analytics and Geographic Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cartographus

package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// DefaultConfigPaths lists the paths where config files are searched in
// order of priority. The first file found is used.
var DefaultConfigPaths = []string{
	"config.yaml",
	"config.yml",
	"/etc/aisentry/config.yaml",
	"/etc/aisentry/config.yml",
}

// ConfigPathEnvVar is the environment variable that can override the
// config file path.
const ConfigPathEnvVar = "CONFIG_PATH"

// defaultConfig returns a Config with the built-in default thresholds.
// These are applied first, then overridden by config file and env vars.
func defaultConfig() *Config {
	return &Config{
		Detection: DetectionConfig{
			TeleportSpeedKnotsShort:        60,
			TeleportSpeedKnotsMedium:       100,
			MaxTurnRateDegPerSec:           3,
			MinSpeedForTurnCheckKnots:      10,
			AccelerationMinDiffKnots:       15,
			AccelerationMinAccelKnPerSec:   1,
			HeadingCOGMinAngleDiffDeg:      90,
			HeadingCOGMinTurnRateDegPerSec: 2,
			StuckDistanceM:                 1,
			StuckMinSOGKnots:                1,
			StuckMinDtSec:                   60,
		},
		Cooldown: CooldownConfig{
			IntervalSeconds:  300,
			Path:             "/data/aisentry-cooldown",
			HotCacheCapacity: 50000,
		},
		Store: StoreConfig{
			Path:                    "/data/aisentry.duckdb",
			Threads:                 0,
			MaxMemory:               "2GB",
			OutOfOrderPolicy:        "append_skip_latest",
			BreakerFailureThreshold: 5,
		},
		Replay: ReplayConfig{
			DefaultBatchSize:     1000,
			StreamingThresholdMB: 50,
			ChunkSize:            10000,
			TrackWindowSize:      5,
			VesselCapacity:       100000,
		},
		Server: ServerConfig{
			Host:    "0.0.0.0",
			Port:    3857,
			Timeout: 30 * time.Second,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Caller: false,
		},
	}
}

// LoadWithKoanf loads configuration using Koanf v2 with layered sources:
//  1. Defaults: built-in sensible defaults
//  2. Config file: optional YAML config file (if found)
//  3. Environment variables: override any setting
func LoadWithKoanf() (*Config, error) {
	k := koanf.New(".")

	defaults := defaultConfig()
	if err := k.Load(structs.Provider(defaults, "koanf"), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	if configPath := findConfigFile(); configPath != "" {
		if err := k.Load(file.Provider(configPath), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
		}
	}

	envProvider := env.Provider("", ".", envTransformFunc)
	if err := k.Load(envProvider, nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// findConfigFile searches for a config file, checking $CONFIG_PATH first
// and falling back to DefaultConfigPaths.
func findConfigFile() string {
	if envPath := os.Getenv(ConfigPathEnvVar); envPath != "" {
		if _, err := os.Stat(envPath); err == nil {
			return envPath
		}
	}
	for _, path := range DefaultConfigPaths {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}

// envTransformFunc maps flat environment variable names to koanf config
// paths, e.g. TELEPORT_SPEED_KNOTS_SHORT -> detection.teleport_speed_knots_short.
func envTransformFunc(key string) string {
	key = strings.ToLower(key)

	envMappings := map[string]string{
		"teleport_speed_knots_short":            "detection.teleport_speed_knots_short",
		"teleport_speed_knots_medium":           "detection.teleport_speed_knots_medium",
		"max_turn_rate_deg_per_sec":              "detection.max_turn_rate_deg_per_sec",
		"min_speed_for_turn_check_knots":         "detection.min_speed_for_turn_check_knots",
		"acceleration_min_diff_kn":               "detection.acceleration_min_diff_kn",
		"acceleration_min_accel_kn_per_sec":       "detection.acceleration_min_accel_kn_per_sec",
		"heading_cog_min_angle_diff_deg":          "detection.heading_cog_min_angle_diff_deg",
		"heading_cog_min_turn_rate_deg_per_sec":   "detection.heading_cog_min_turn_rate_deg_per_sec",
		"stuck_distance_m":                        "detection.stuck_distance_m",
		"stuck_min_sog_kn":                        "detection.stuck_min_sog_kn",
		"stuck_min_dt_sec":                        "detection.stuck_min_dt_sec",

		"alert_cooldown_sec":     "cooldown.alert_cooldown_sec",
		"cooldown_path":          "cooldown.path",
		"cooldown_hot_cache_cap": "cooldown.hot_cache_capacity",

		"duckdb_path":               "store.path",
		"duckdb_threads":            "store.threads",
		"duckdb_max_memory":         "store.max_memory",
		"out_of_order_policy":       "store.out_of_order_policy",
		"breaker_failure_threshold": "store.breaker_failure_threshold",

		"default_batch_size":     "replay.default_batch_size",
		"streaming_threshold_mb": "replay.streaming_threshold_mb",
		"chunk_size":             "replay.chunk_size",
		"track_window_size":      "replay.track_window_size",
		"vessel_capacity":        "replay.vessel_capacity",
		"rate_limit_per_sec":     "replay.rate_limit_per_sec",

		"http_host":    "server.host",
		"http_port":    "server.port",
		"http_timeout": "server.timeout",

		"log_level":  "logging.level",
		"log_format": "logging.format",
		"log_caller": "logging.caller",
	}

	if mapped, ok := envMappings[key]; ok {
		return mapped
	}
	return ""
}

// GetKoanfInstance returns a new Koanf instance for advanced usage (e.g.
// tests needing a fresh layered load without going through Load()).
func GetKoanfInstance() *koanf.Koanf {
	return koanf.New(".")
}
