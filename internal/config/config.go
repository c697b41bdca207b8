// Cartographus - Media Server Analytics and Geographic Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cartographus

package config

import (
	"fmt"
	"time"
)

// Config holds all application configuration loaded from defaults, an
// optional YAML file, and environment variables (see koanf.go).
//
// Config is immutable after Load() returns and safe for concurrent read
// access from multiple goroutines.
type Config struct {
	Detection DetectionConfig `koanf:"detection"`
	Cooldown  CooldownConfig  `koanf:"cooldown"`
	Store     StoreConfig     `koanf:"store"`
	Replay    ReplayConfig    `koanf:"replay"`
	Server    ServerConfig    `koanf:"server"`
	Logging   LoggingConfig   `koanf:"logging"`
}

// DetectionConfig holds the seven rule thresholds.
type DetectionConfig struct {
	TeleportSpeedKnotsShort        float64 `koanf:"teleport_speed_knots_short"`
	TeleportSpeedKnotsMedium       float64 `koanf:"teleport_speed_knots_medium"`
	MaxTurnRateDegPerSec           float64 `koanf:"max_turn_rate_deg_per_sec"`
	MinSpeedForTurnCheckKnots      float64 `koanf:"min_speed_for_turn_check_knots"`
	AccelerationMinDiffKnots       float64 `koanf:"acceleration_min_diff_kn"`
	AccelerationMinAccelKnPerSec   float64 `koanf:"acceleration_min_accel_kn_per_sec"`
	HeadingCOGMinAngleDiffDeg      float64 `koanf:"heading_cog_min_angle_diff_deg"`
	HeadingCOGMinTurnRateDegPerSec float64 `koanf:"heading_cog_min_turn_rate_deg_per_sec"`
	StuckDistanceM                 float64 `koanf:"stuck_distance_m"`
	StuckMinSOGKnots                float64 `koanf:"stuck_min_sog_kn"`
	StuckMinDtSec                   float64 `koanf:"stuck_min_dt_sec"`
}

// CooldownConfig configures the cooldown gate.
type CooldownConfig struct {
	IntervalSeconds  int64  `koanf:"alert_cooldown_sec"`
	Path             string `koanf:"path"`
	HotCacheCapacity int    `koanf:"hot_cache_capacity"`
}

// Interval returns CooldownConfig.IntervalSeconds as a time.Duration.
func (c CooldownConfig) Interval() time.Duration {
	return time.Duration(c.IntervalSeconds) * time.Second
}

// StoreConfig configures DuckDB persistence.
type StoreConfig struct {
	Path                    string `koanf:"path"`
	Threads                 int    `koanf:"threads"`
	MaxMemory               string `koanf:"max_memory"`
	OutOfOrderPolicy        string `koanf:"out_of_order_policy"`
	BreakerFailureThreshold uint32 `koanf:"breaker_failure_threshold"`
}

// ReplayConfig configures the Replay Driver's default knobs.
type ReplayConfig struct {
	DefaultBatchSize        int     `koanf:"default_batch_size"`
	StreamingThresholdMB    int64   `koanf:"streaming_threshold_mb"`
	ChunkSize               int     `koanf:"chunk_size"`
	TrackWindowSize         int     `koanf:"track_window_size"`
	VesselCapacity          int     `koanf:"vessel_capacity"`
	RateLimitPerSec         float64 `koanf:"rate_limit_per_sec"`
}

// StreamingThresholdBytes returns StreamingThresholdMB converted to bytes.
func (c ReplayConfig) StreamingThresholdBytes() int64 {
	return c.StreamingThresholdMB * 1024 * 1024
}

// ServerConfig configures the control API's HTTP listener.
type ServerConfig struct {
	Host    string        `koanf:"host"`
	Port    int           `koanf:"port"`
	Timeout time.Duration `koanf:"timeout"`
}

// LoggingConfig configures zerolog output.
type LoggingConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
	Caller bool   `koanf:"caller"`
}

// Load reads configuration from defaults, an optional config file, and
// environment variables, in that order of increasing priority, and
// validates the result. See LoadWithKoanf for the implementation.
func Load() (*Config, error) {
	return LoadWithKoanf()
}

// Validate checks that every threshold and path is in a usable range. It
// checks the sections in order and returns the first error it finds,
// prefixed with that section's name, rather than collecting every failure.
func (c *Config) Validate() error {
	if err := c.Detection.validate(); err != nil {
		return fmt.Errorf("detection: %w", err)
	}
	if err := c.Cooldown.validate(); err != nil {
		return fmt.Errorf("cooldown: %w", err)
	}
	if err := c.Store.validate(); err != nil {
		return fmt.Errorf("store: %w", err)
	}
	if err := c.Replay.validate(); err != nil {
		return fmt.Errorf("replay: %w", err)
	}
	if err := c.Server.validate(); err != nil {
		return fmt.Errorf("server: %w", err)
	}
	if err := c.Logging.validate(); err != nil {
		return fmt.Errorf("logging: %w", err)
	}
	return nil
}
