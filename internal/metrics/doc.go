// Cartographus - Media Server Analytics and Geographic Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cartographus

/*
Package metrics provides Prometheus metrics collection and export for the
AIS detection pipeline.

# Overview

The package instruments each pipeline stage:
  - Ingestion: points ingested/skipped during replay
  - Detection: candidates raised and errors recovered, by rule type
  - Cooldown: suppressions and hot-cache size
  - Persistence: unit duration, error counts, circuit breaker state
  - Fan-out bus: publishes, drops, subscriber count
  - Control/query API: request counts, latency, rate limit hits

# Metrics Endpoint

Metrics are exposed at /metrics in Prometheus text format via
promhttp.Handler(), registered on the default registry by promauto.

All metric variables are package-level and safe for concurrent use. Most
have a Record or Set helper function; a few gauges, such as
CooldownCacheSize, are updated by their callers directly.
*/
package metrics
