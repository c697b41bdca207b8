// Cartographus - Media Server Analytics and Geographic Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cartographus

/*
Package wsapi exposes the subscribe_events operation as a plain
http.Handler suitable for mounting on a chi router.

It does no event routing itself: internal/websocket.Hub.BridgeBus, started
once at application startup against the shared internal/bus.Bus, already
fans every alert/tick/error event out to all registered clients. This
package's only job is the HTTP/WebSocket handshake and handing the
resulting connection to the Hub as a new Client.

Usage:

	hub := websocket.NewHub()
	go hub.Run()
	go hub.BridgeBus(ctx, eventBus, "ws-hub")

	handler := wsapi.NewHandler(hub, wsapi.DefaultConfig())
	router.Get("/api/v1/events", handler.ServeHTTP)
*/
package wsapi
