// Cartographus - Media Server Analytics and Geographic Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cartographus

/*
Package websocket provides real-time bidirectional communication for the
subscribe_events live stream.

This package implements a hub-client architecture that bridges
internal/bus events (alert, tick, error) to connected frontend clients
over a WebSocket connection, using the gorilla/websocket library.

Key Components:

  - Hub: Central message broker that manages client connections and broadcasts
  - Client: Represents a single WebSocket connection with read/write goroutines
  - Message: Typed message structure for alert/tick/error/ping/pong frames

Architecture:

The package implements a hub-and-spoke pattern:

	┌──────────┐
	│   Hub    │ ← Broadcasts to all clients
	└────┬─────┘
	     │
	┌────┴─────┬─────────┬─────────┐
	│          │         │         │
	│ Client1  │ Client2 │ Client3 │ Client4
	│          │         │         │
	└──────────┴─────────┴─────────┘

Each client has two goroutines:
  - readPump: Reads from WebSocket, handles pings
  - writePump: Writes to WebSocket, sends pongs

Message Types:

The following message types are supported:

  - alert: A persisted detection alert (see internal/bus.KindAlert)
  - tick: Periodic replay progress heartbeat (internal/bus.KindTick)
  - error: Session-level error notice (internal/bus.KindError)

Usage Example - Server:

	import (
	    "github.com/tomtom215/aisentry/internal/websocket"
	    "github.com/tomtom215/aisentry/internal/wsapi"
	)

	// Create hub
	hub := websocket.NewHub()
	go hub.Run()

	// Bridge fan-out bus events to connected clients
	go hub.BridgeBus(ctx, eventBus, "ws-hub")

	// WebSocket upgrade endpoint (internal/wsapi)
	handler := wsapi.NewHandler(hub, wsapi.DefaultConfig())
	router.Get("/api/v1/events", handler.ServeHTTP)

Usage Example - Client (JavaScript):

	// Connect to WebSocket
	const ws = new WebSocket('ws://localhost:3857/api/v1/events');

	ws.onmessage = (event) => {
	    const msg = JSON.parse(event.data);

	    if (msg.type === 'alert') {
	        console.log(`Alert: ${msg.data.rule_type} for ${msg.data.mmsi}`);
	    }

	    if (msg.type === 'tick') {
	        updateProgress(msg.data);
	    }
	};

Performance Characteristics:

  - Broadcast latency: <10ms for typical payloads
  - Max clients: 1000+ concurrent connections tested
  - Ping interval: 54 seconds (keeps connection alive)
  - Write deadline: 10 seconds per message
  - Message size limit: 512KB (fixed constant)

Connection Lifecycle:

1. Client connects via HTTP upgrade
2. Hub registers client
3. Client starts read/write goroutines
4. Hub broadcasts messages to all clients
5. Client disconnects (network error or explicit close)
6. Hub unregisters client and cleans up

Thread Safety:

The package is fully thread-safe:
  - Hub uses mutex for client map access
  - Channels coordinate goroutine communication
  - Each client has separate read/write goroutines
  - No shared mutable state between clients

Error Handling:

The package handles:
  - Connection upgrades failures: Returns HTTP 400
  - Read errors: Closes connection gracefully
  - Write errors: Removes client from hub
  - Ping/pong timeout: Detects dead connections (60s timeout)

Configuration:

WebSocket settings:
  - writeWait: 10 seconds (time allowed to write message)
  - pongWait: 60 seconds (time allowed to read pong)
  - pingPeriod: 54 seconds (9/10 of pongWait, so it stays below it)
  - maxMessageSize: 512 KB (max message size)

See Also:

  - github.com/gorilla/websocket: Underlying WebSocket library
  - internal/wsapi: WebSocket upgrade endpoint for subscribe_events
  - internal/bus: Fan-out bus whose events this package bridges
*/
package websocket
