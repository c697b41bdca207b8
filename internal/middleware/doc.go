// Cartographus - Media Server Analytics and Geographic Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cartographus

/*
Package middleware provides HTTP middleware components for aisentry's
control/query API.

This package implements infrastructure middleware for compression, performance
monitoring, request ID tracking, and Prometheus metrics integration.
internal/api's chi router wires these alongside its own CORS and rate-limit
middleware (internal/api/chi_middleware.go) to form the full stack.

Key Components:

  - Compression: Gzip compression for every response when the client accepts gzip
  - Performance Monitor: Request latency tracking with percentile calculations
  - Request ID: UUID-based request tracking for distributed tracing
  - Prometheus Metrics: HTTP request/response instrumentation

Middleware Stack:

internal/api/chi_router.go's SetupChi registers, in order: request ID +
logging, real-IP, panic recovery, CORS, security headers, the performance
monitor, then gzip compression, ahead of the route-specific rate limiters
and Prometheus metrics on the control/query route groups.

Usage Example - Compression:

	import "github.com/tomtom215/aisentry/internal/middleware"

	// Wrap handler with gzip compression
	http.HandleFunc("/api/v1/data",
	    middleware.Compression(handler),
	)

	// Responses of any size are automatically compressed
	// Accept-Encoding: gzip header is required

Usage Example - Performance Monitoring:

	// Create a performance monitor with a 1000-request sliding window
	perfMon := middleware.NewPerformanceMonitor(1000)

	// Wrap handler
	r.Use(perfMon.Middleware)

	// Get latency percentiles per endpoint
	for _, stat := range perfMon.GetStats() {
	    fmt.Printf("%s: p50=%dms p95=%dms p99=%dms\n",
	        stat.Path, stat.P50Duration, stat.P95Duration, stat.P99Duration)
	}

Usage Example - Request ID:

	// Request ID middleware
	http.HandleFunc("/api/v1/logs",
	    middleware.RequestID(handler),
	)

	// Access request ID in handler
	func handler(w http.ResponseWriter, r *http.Request) {
	    requestID := r.Context().Value(middleware.RequestIDKey).(string)
	    log.Printf("[%s] Processing request", requestID)
	}

Performance Characteristics:

  - Compression: 70-90% size reduction for JSON (text/json mime types)
  - Compression overhead: ~1-2ms for typical responses
  - Metrics overhead: <0.1ms per request
  - Request ID overhead: <0.01ms (UUID generation)
  - Performance monitor: RWMutex-guarded slice of recent latency samples

Compression Details:

The compression middleware:
  - Compresses every response; there is no size threshold
  - Supports gzip encoding (Accept-Encoding: gzip)
  - Does not filter by mime type
  - Skips WebSocket upgrade requests
  - Automatically sets Content-Encoding header and removes Content-Length
  - Does not flush; the gzip stream is closed when the handler returns

Performance Monitor:

The performance monitor tracks:
  - Request count per endpoint
  - Latency percentiles (p50, p95, p99)
  - Rolling window of 1000 most recent requests
  - Thread-safe concurrent access with RWMutex

Thread Safety:

All middleware components are thread-safe:
  - Compression uses per-request gzip writers
  - Performance monitor uses sync.RWMutex
  - Request ID uses context.Context (immutable)
  - Prometheus metrics use atomic operations

See Also:

  - internal/api: chi router and handlers this package wraps
  - internal/metrics: Prometheus metrics definitions
*/
package middleware
