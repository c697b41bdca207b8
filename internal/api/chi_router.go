// Cartographus - Media Server Analytics and Geographic Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cartographus

// Package api provides the thin control/query HTTP surface implementing
// exactly four operations: start_replay, stop_replay, replay_status,
// update_alert_status, plus a mount point for the internal/wsapi
// WebSocket handler that serves subscribe_events.
package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	httpSwagger "github.com/swaggo/http-swagger/v2"

	"github.com/tomtom215/aisentry/internal/middleware"
)

// chiMiddleware adapts http.HandlerFunc middleware to Chi's
// func(http.Handler) http.Handler so it can be registered with r.Use().
func chiMiddleware(mw func(http.HandlerFunc) http.HandlerFunc) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return mw(next.ServeHTTP)
	}
}

// Router wires Handler onto a chi.Mux. WebSocketHandler is the
// internal/wsapi upgrade endpoint for subscribe_events; it is injected
// rather than imported directly to avoid internal/api depending on
// internal/websocket's Hub wiring.
type Router struct {
	handler          *Handler
	chiMiddleware    *ChiMiddleware
	perf             *middleware.PerformanceMonitor
	WebSocketHandler http.HandlerFunc
}

// NewRouter creates a Router. mw may be nil, in which case
// DefaultChiMiddlewareConfig is used.
func NewRouter(handler *Handler, mw *ChiMiddleware, wsHandler http.HandlerFunc) *Router {
	if mw == nil {
		mw = NewChiMiddleware(DefaultChiMiddlewareConfig())
	}
	return &Router{
		handler:          handler,
		chiMiddleware:    mw,
		perf:             middleware.NewPerformanceMonitor(1000),
		WebSocketHandler: wsHandler,
	}
}

// PerformanceStats returns latency percentiles per endpoint, gathered by
// the performance monitor wrapping the control/query surface.
func (router *Router) PerformanceStats() []middleware.EndpointStats {
	return router.perf.GetStats()
}

// SetupChi builds the full route table.
func (router *Router) SetupChi() http.Handler {
	r := chi.NewRouter()

	// ========================
	// Global Middleware Stack
	// ========================
	r.Use(RequestIDWithLogging())
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(router.chiMiddleware.CORS())
	r.Use(APISecurityHeaders())
	r.Use(router.perf.Middleware)
	r.Use(chiMiddleware(middleware.Compression))

	// ========================
	// Health & Observability
	// ========================
	r.Route("/api/v1/health", func(r chi.Router) {
		r.Use(router.chiMiddleware.RateLimitCustom(RateLimitHealth.Requests, RateLimitHealth.Window))
		r.Get("/live", router.handler.HealthLive)
		r.Get("/ready", router.handler.HealthReady)
		r.Get("/performance", func(w http.ResponseWriter, r *http.Request) {
			NewResponseWriter(w, r).Success(router.PerformanceStats())
		})
	})
	r.Handle("/metrics", promhttp.Handler())
	r.Get("/swagger/*", httpSwagger.WrapHandler)

	// ========================
	// Control surface
	// ========================
	// start_replay/stop_replay/update_alert_status mutate session or alert
	// state, so they get the tighter RateLimitControl ceiling.
	r.Route("/api/v1/replay", func(r chi.Router) {
		r.Use(chiMiddleware(middleware.PrometheusMetrics))
		r.With(router.chiMiddleware.RateLimitCustom(RateLimitControl.Requests, RateLimitControl.Window)).
			Post("/start", router.handler.StartReplay)
		r.With(router.chiMiddleware.RateLimitCustom(RateLimitControl.Requests, RateLimitControl.Window)).
			Post("/stop", router.handler.StopReplay)
		r.With(router.chiMiddleware.RateLimitCustom(RateLimitQuery.Requests, RateLimitQuery.Window)).
			Get("/status", router.handler.ReplayStatus)
	})

	r.Route("/api/v1/alerts", func(r chi.Router) {
		r.Use(chiMiddleware(middleware.PrometheusMetrics))
		r.With(router.chiMiddleware.RateLimitCustom(RateLimitControl.Requests, RateLimitControl.Window)).
			Post("/{id}/status", router.handler.UpdateAlertStatus)
	})

	// subscribe_events: the WebSocket upgrade itself is handled by
	// internal/wsapi; this surface only mounts it behind the query-tier
	// rate limit (an open connection counts as one request).
	if router.WebSocketHandler != nil {
		r.With(router.chiMiddleware.RateLimitCustom(RateLimitQuery.Requests, RateLimitQuery.Window)).
			Get("/api/v1/events", router.WebSocketHandler)
	}

	return r
}
