// Cartographus - Media Server Analytics and Geographic Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cartographus

package config

import (
	"fmt"
	"math"
)

func finiteNonNegative(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0) && v >= 0
}

func (d DetectionConfig) validate() error {
	checks := []struct {
		name string
		v    float64
	}{
		{"teleport_speed_knots_short", d.TeleportSpeedKnotsShort},
		{"teleport_speed_knots_medium", d.TeleportSpeedKnotsMedium},
		{"max_turn_rate_deg_per_sec", d.MaxTurnRateDegPerSec},
		{"min_speed_for_turn_check_knots", d.MinSpeedForTurnCheckKnots},
		{"acceleration_min_diff_kn", d.AccelerationMinDiffKnots},
		{"acceleration_min_accel_kn_per_sec", d.AccelerationMinAccelKnPerSec},
		{"heading_cog_min_angle_diff_deg", d.HeadingCOGMinAngleDiffDeg},
		{"heading_cog_min_turn_rate_deg_per_sec", d.HeadingCOGMinTurnRateDegPerSec},
		{"stuck_distance_m", d.StuckDistanceM},
		{"stuck_min_sog_kn", d.StuckMinSOGKnots},
		{"stuck_min_dt_sec", d.StuckMinDtSec},
	}
	for _, c := range checks {
		if !finiteNonNegative(c.v) {
			return fmt.Errorf("%s must be finite and non-negative, got %v", c.name, c.v)
		}
	}
	if d.TeleportSpeedKnotsMedium < d.TeleportSpeedKnotsShort {
		return fmt.Errorf("teleport_speed_knots_medium must be >= teleport_speed_knots_short")
	}
	return nil
}

func (c CooldownConfig) validate() error {
	if c.IntervalSeconds <= 0 {
		return fmt.Errorf("alert_cooldown_sec must be positive, got %d", c.IntervalSeconds)
	}
	if c.HotCacheCapacity <= 0 {
		return fmt.Errorf("hot_cache_capacity must be positive, got %d", c.HotCacheCapacity)
	}
	return nil
}

func (s StoreConfig) validate() error {
	switch s.OutOfOrderPolicy {
	case "append_skip_latest", "append_and_update_latest", "discard":
	default:
		return fmt.Errorf("out_of_order_policy must be one of append_skip_latest, append_and_update_latest, discard, got %q", s.OutOfOrderPolicy)
	}
	if s.Threads < 0 {
		return fmt.Errorf("threads must be >= 0, got %d", s.Threads)
	}
	return nil
}

func (r ReplayConfig) validate() error {
	if r.DefaultBatchSize < 1 || r.DefaultBatchSize > 10000 {
		return fmt.Errorf("default_batch_size must be in [1,10000], got %d", r.DefaultBatchSize)
	}
	if r.ChunkSize <= 0 {
		return fmt.Errorf("chunk_size must be positive, got %d", r.ChunkSize)
	}
	if r.StreamingThresholdMB <= 0 {
		return fmt.Errorf("streaming_threshold_mb must be positive, got %d", r.StreamingThresholdMB)
	}
	if r.TrackWindowSize <= 0 {
		return fmt.Errorf("track_window_size must be positive, got %d", r.TrackWindowSize)
	}
	if r.VesselCapacity <= 0 {
		return fmt.Errorf("vessel_capacity must be positive, got %d", r.VesselCapacity)
	}
	if r.RateLimitPerSec < 0 {
		return fmt.Errorf("rate_limit_per_sec must be >= 0, got %v", r.RateLimitPerSec)
	}
	return nil
}

func (s ServerConfig) validate() error {
	if s.Port < 1 || s.Port > 65535 {
		return fmt.Errorf("port must be in [1,65535], got %d", s.Port)
	}
	if s.Host == "" {
		return fmt.Errorf("host must not be empty")
	}
	if s.Timeout <= 0 {
		return fmt.Errorf("timeout must be positive, got %v", s.Timeout)
	}
	return nil
}

func (l LoggingConfig) validate() error {
	switch l.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("level must be one of debug, info, warn, error, got %q", l.Level)
	}
	switch l.Format {
	case "json", "console":
	default:
		return fmt.Errorf("format must be one of json, console, got %q", l.Format)
	}
	return nil
}
