// Cartographus - Media Server Analytics and Geographic Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cartographus

/*
Package services provides suture.Service wrappers for components that don't
already implement Serve/String themselves.

This package adapts existing application components to the suture v4
supervision model, translating lifecycle patterns (Start/Stop, Run,
ListenAndServe) into suture's context-aware Serve pattern.

# Overview

Each wrapper implements the suture.Service interface:

	type Service interface {
	    Serve(ctx context.Context) error
	}

The wrappers handle:
  - Lifecycle translation (ListenAndServe/Shutdown to Serve pattern)
  - Graceful shutdown via context cancellation
  - Error propagation for supervisor restart decisions
  - Service identification via fmt.Stringer

# Available Services

HTTP Server (HTTPServerService):
  - Wraps *http.Server with graceful shutdown
  - Converts the ListenAndServe/Shutdown pattern to Serve
  - Configurable shutdown timeout for draining connections

Most of aisentry's other supervised components implement suture.Service
directly rather than going through a wrapper here, since each already
owns a natural "run until canceled" loop: internal/replay.Driver,
internal/cooldown.CleanupService, and internal/bus.Service. main.go's
small hubService type follows the same pattern for
internal/websocket.Hub, whose dispatch loop (RunWithContext) and bus
bridge (BridgeBus) are two separate blocking calls bundled into one
Serve.

# Usage Example

Creating and registering services:

	import (
	    "net/http"
	    "time"

	    "github.com/tomtom215/aisentry/internal/supervisor"
	    "github.com/tomtom215/aisentry/internal/supervisor/services"
	)

	func setupSupervisor(server *http.Server) {
	    tree, _ := supervisor.NewSupervisorTree(logger, config)

	    // HTTP server with a 10s shutdown timeout
	    httpSvc := services.NewHTTPServerService(server, 10*time.Second)
	    tree.AddAPIService(httpSvc)

	    // Components that already satisfy suture.Service can be added
	    // directly, no wrapper needed.
	    tree.AddDataService(driver) // *replay.Driver

	    tree.Serve(ctx)
	}

# Lifecycle Patterns

The package handles the ListenAndServe pattern used by *http.Server:

	type HTTPServer interface {
	    ListenAndServe() error
	    Shutdown(ctx context.Context) error
	}

	// Wrapped as:
	func (s *HTTPServerService) Serve(ctx context.Context) error {
	    go s.server.ListenAndServe()
	    <-ctx.Done()
	    return s.server.Shutdown(shutdownCtx)
	}

# Error Handling

Return values determine supervisor behavior:

	nil         -> Service stopped cleanly, will not restart
	error       -> Service crashed, supervisor will restart
	ctx.Err()   -> Shutdown requested, normal termination

# Service Identification

Services implement fmt.Stringer for logging:

	func (s *HTTPServerService) String() string {
	    return "http-server"
	}

Suture uses this for log messages:

	INFO http-server: starting
	INFO http-server: stopped
	ERROR http-server: restarting after failure

# Thread Safety

HTTPServerService is safe for concurrent use; its state is limited to the
wrapped *http.Server, which already handles concurrent requests.

# See Also

  - internal/supervisor: SupervisorTree that manages these services
  - github.com/thejerf/suture/v4: Underlying supervision library
  - internal/replay: Driver implementing suture.Service directly
  - internal/cooldown: CleanupService implementing suture.Service directly
  - internal/bus: Service implementing suture.Service directly
*/
package services
