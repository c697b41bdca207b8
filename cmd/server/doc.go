// Cartographus - Media Server Analytics and Geographic Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cartographus

/*
Package main is the entry point for the aisentry server.

aisentry replays recorded AIS position streams through a fixed-order
detection engine, persists accepted alerts to DuckDB, and exposes a thin
control API plus a WebSocket feed for live events.

# Application Architecture

The server implements a layered architecture with Suture v4 process
supervision:

	RootSupervisor ("cartographus")
	├── DataSupervisor ("data-layer")
	│   ├── Cooldown cleanup job (Badger value-log GC)
	│   └── Replay Driver (L1->L7 per session)
	├── MessagingSupervisor ("messaging-layer")
	│   ├── Event Bus (in-process pub/sub)
	│   └── WebSocket Hub (bridges the bus to clients)
	└── APISupervisor ("api-layer")
	    └── HTTP Server (control/query API + WebSocket upgrade)

Component initialization order:

 1. Configuration: Koanf v2 with environment variables and config file
 2. Logging: zerolog with JSON/console output modes
 3. Persistence: DuckDB store (vessels_latest, vessel_positions, alerts)
 4. Cooldown Gate: Badger-backed durable dedup store
 5. Detection Engine: seven rules registered and configured
 6. Event Bus + WebSocket Hub: in-process fan-out of alerts/ticks/errors
 7. Replay Driver: single-session orchestration
 8. Supervisor Tree: Suture v4 process supervision
 9. HTTP Server: chi router serving the five control/streaming operations

# Configuration

Configuration is loaded via Koanf v2 with layered sources (highest
priority wins): environment variables, then an optional config file
(config.yaml, or $CONFIG_PATH), then built-in defaults. See
internal/config for the full set of keys (detection thresholds, cooldown
interval, store path, replay defaults, server host/port, log level).

# Signal Handling

The server handles graceful shutdown on SIGINT and SIGTERM:

 1. Stops accepting new HTTP connections
 2. Stops the replay driver and cooldown cleanup job
 3. Closes the event bus and WebSocket hub
 4. Closes the cooldown gate and DuckDB store
 5. Reports any services that failed to stop within the timeout

# Port 3857

The default port 3857 references EPSG:3857 (Web Mercator projection), the
coordinate system AIS positions are plotted against.

# See Also

  - internal/config: Configuration management
  - internal/supervisor: Process supervision
  - internal/api: Control/query HTTP handlers and routing
  - internal/replay: Session orchestration
  - internal/detection: The seven detection rules
*/
package main
