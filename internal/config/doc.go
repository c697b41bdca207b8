// Cartographus - Media Server Analytics and Geographic Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cartographus

/*
Package config loads and validates aisentry's configuration.

# Configuration Sources

Configuration loads in three layers, later layers overriding earlier ones:

 1. Defaults: built-in sensible values for every setting.
 2. Config file: optional YAML file (config.yaml, or $CONFIG_PATH).
 3. Environment variables: highest priority.

# Configuration Structure

  - Detection: the seven rule thresholds
  - Cooldown: per-(vessel, rule) suppression interval and store path
  - Store: DuckDB persistence path, memory limit, out-of-order policy
  - Replay: default batching/chunking/streaming knobs
  - Server: HTTP bind address and timeouts
  - Logging: level and format

# Usage

	cfg, err := config.Load()
	if err != nil {
	    log.Fatalf("failed to load config: %v", err)
	}

# Thread Safety

Config is immutable after Load() returns and safe for concurrent read access.
*/
package config
