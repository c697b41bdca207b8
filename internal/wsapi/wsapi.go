// Cartographus - Media Server Analytics and Geographic Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cartographus

// Package wsapi implements the WebSocket upgrade endpoint backing
// subscribe_events: it upgrades an HTTP connection, registers a
// new internal/websocket.Client on the shared Hub, and lets the Hub's
// BridgeBus goroutine (started once at startup) fan every alert/tick/error
// event out to all connected clients.
package wsapi

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/tomtom215/aisentry/internal/logging"
	internalws "github.com/tomtom215/aisentry/internal/websocket"
)

// Config controls the upgrade handshake.
type Config struct {
	// AllowedOrigins lists acceptable WebSocket Origin header values. "*"
	// allows any origin. An empty slice rejects every connection carrying
	// an Origin header, matching the API's secure-by-default CORS posture.
	AllowedOrigins []string
	// HandshakeTimeout bounds how long the upgrade itself may take.
	HandshakeTimeout time.Duration
}

// DefaultConfig returns a secure default: no origins allowed until
// explicitly configured, a 10s handshake timeout.
func DefaultConfig() Config {
	return Config{
		AllowedOrigins:   []string{},
		HandshakeTimeout: 10 * time.Second,
	}
}

// Handler upgrades HTTP connections to WebSocket and registers them on hub.
type Handler struct {
	hub      *internalws.Hub
	upgrader websocket.Upgrader
}

// NewHandler creates a Handler serving subscribe_events off hub.
func NewHandler(hub *internalws.Hub, cfg Config) *Handler {
	h := &Handler{hub: hub}
	h.upgrader = websocket.Upgrader{
		ReadBufferSize:   1024,
		WriteBufferSize:  1024,
		HandshakeTimeout: cfg.HandshakeTimeout,
		CheckOrigin:      h.checkOriginFunc(cfg.AllowedOrigins),
	}
	return h
}

func (h *Handler) checkOriginFunc(allowed []string) func(*http.Request) bool {
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			// Non-browser clients (scripts, CLIs) legitimately omit Origin;
			// browsers always send it, so this cannot be used to bypass
			// the allow-list from a browser context.
			return true
		}
		for _, a := range allowed {
			if a == "*" || a == origin {
				return true
			}
		}
		logging.Warn().Str("origin", origin).Msg("websocket connection rejected from unauthorized origin")
		return false
	}
}

// ServeHTTP upgrades the connection and registers a new client on the hub.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if h.hub == nil {
		http.Error(w, "websocket hub unavailable", http.StatusServiceUnavailable)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		logging.Error().Err(err).Msg("websocket upgrade error")
		return
	}

	client := internalws.NewClient(h.hub, conn)
	h.hub.Register <- client
	client.Start()
}
