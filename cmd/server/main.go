// Cartographus - Media Server Analytics and Geographic Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cartographus

// Package main is the entry point for the aisentry server.
//
// aisentry replays recorded AIS position streams through a fixed-order
// detection engine, persists accepted alerts, and exposes a thin control
// API plus a WebSocket feed for live events. The server initializes its
// components in the following order:
//
//  1. Configuration: Load settings from environment variables and an
//     optional config file (Koanf v2).
//  2. Persistence: Open the DuckDB store (vessels_latest, vessel_positions,
//     alerts tables).
//  3. Cooldown Gate: Open the Badger-backed durable dedup store.
//  4. Detection Engine: Register the seven rules and apply configured
//     thresholds.
//  5. Event Bus: In-process pub/sub fanning alerts/ticks/errors out to
//     subscribers.
//  6. WebSocket Hub: Bridges the bus to connected clients.
//  7. Replay Driver: Orchestrates L1->L7 for one session at a time.
//  8. HTTP Server: Control/query API plus the WebSocket upgrade endpoint.
//
// # Configuration
//
// Configuration is loaded via Koanf v2 with layered sources (highest
// priority wins):
//   - Environment variables
//   - Config file (config.yaml, or $CONFIG_PATH)
//   - Built-in defaults
//
// # Signal Handling
//
// The server handles graceful shutdown on SIGINT and SIGTERM: the
// supervisor tree stops the HTTP server, replay driver, cooldown cleanup
// job, and bus/hub services, then the store and cooldown gate are closed.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/goccy/go-json"

	"github.com/tomtom215/aisentry/internal/api"
	"github.com/tomtom215/aisentry/internal/aismodel"
	"github.com/tomtom215/aisentry/internal/bus"
	"github.com/tomtom215/aisentry/internal/config"
	"github.com/tomtom215/aisentry/internal/cooldown"
	"github.com/tomtom215/aisentry/internal/detection"
	"github.com/tomtom215/aisentry/internal/logging"
	"github.com/tomtom215/aisentry/internal/replay"
	"github.com/tomtom215/aisentry/internal/store"
	"github.com/tomtom215/aisentry/internal/supervisor"
	"github.com/tomtom215/aisentry/internal/supervisor/services"
	ws "github.com/tomtom215/aisentry/internal/websocket"
	"github.com/tomtom215/aisentry/internal/wsapi"
)

const busMailboxCapacity = 256

func main() {
	cfg, err := config.Load()
	if err != nil {
		logging.Fatal().Err(err).Msg("failed to load configuration")
	}

	logging.Init(logging.Config{
		Level:     cfg.Logging.Level,
		Format:    cfg.Logging.Format,
		Caller:    cfg.Logging.Caller,
		Timestamp: true,
	})

	logging.Info().Msg("starting aisentry")

	persist, err := store.Open(store.Config{
		Path:                    cfg.Store.Path,
		Threads:                 cfg.Store.Threads,
		MaxMemory:               cfg.Store.MaxMemory,
		OutOfOrderPolicy:        store.OutOfOrderPolicy(cfg.Store.OutOfOrderPolicy),
		BreakerMaxRequests:      1,
		BreakerInterval:         30 * time.Second,
		BreakerTimeout:          10 * time.Second,
		BreakerFailureThreshold: cfg.Store.BreakerFailureThreshold,
	})
	if err != nil {
		logging.Fatal().Err(err).Msg("failed to open store")
	}
	defer func() {
		if cerr := persist.Close(); cerr != nil {
			logging.Error().Err(cerr).Msg("error closing store")
		}
	}()
	logging.Info().Str("path", cfg.Store.Path).Msg("store opened")

	gate, err := cooldown.Open(cooldown.Config{
		Path:             cfg.Cooldown.Path,
		HotCacheCapacity: cfg.Cooldown.HotCacheCapacity,
	})
	if err != nil {
		logging.Fatal().Err(err).Msg("failed to open cooldown gate")
	}
	defer func() {
		if cerr := gate.Close(); cerr != nil {
			logging.Error().Err(cerr).Msg("error closing cooldown gate")
		}
	}()
	logging.Info().Str("path", cfg.Cooldown.Path).Msg("cooldown gate opened")

	engine := detection.NewEngine()
	detection.RegisterDefaultDetectors(engine)
	if err := configureDetectors(engine, cfg.Detection); err != nil {
		logging.Fatal().Err(err).Msg("failed to apply detection thresholds")
	}
	logging.Info().Msg("detection engine ready")

	eventBus := bus.New(busMailboxCapacity)
	defer func() {
		if cerr := eventBus.Close(); cerr != nil {
			logging.Error().Err(cerr).Msg("error closing event bus")
		}
	}()

	hub := ws.NewHub()

	driver := replay.New(engine, gate, persist, eventBus, replay.Thresholds{
		CooldownInterval: cfg.Cooldown.Interval(),
		TrackWindowSize:  cfg.Replay.TrackWindowSize,
		VesselCapacity:   cfg.Replay.VesselCapacity,
		RateLimitPerSec:  cfg.Replay.RateLimitPerSec,
	})

	handler := api.NewHandler(driver, persist)
	wsHandler := wsapi.NewHandler(hub, wsapi.DefaultConfig())
	router := api.NewRouter(handler, nil, wsHandler.ServeHTTP)

	httpServer := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      router.SetupChi(),
		ReadTimeout:  cfg.Server.Timeout,
		WriteTimeout: cfg.Server.Timeout,
		IdleTimeout:  60 * time.Second,
	}

	slogLogger := logging.NewSlogLogger()
	tree, err := supervisor.NewSupervisorTree(slogLogger, supervisor.DefaultTreeConfig())
	if err != nil {
		logging.Fatal().Err(err).Msg("failed to build supervisor tree")
	}

	tree.AddMessagingService(&bus.Service{Bus: eventBus})
	tree.AddMessagingService(&hubService{hub: hub, bus: eventBus})
	tree.AddDataService(&cooldown.CleanupService{Gate: gate, Interval: 10 * time.Minute})
	tree.AddDataService(driver)
	tree.AddAPIService(services.NewHTTPServerService(httpServer, cfg.Server.Timeout))
	logging.Info().Msg("services registered with supervisor tree")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logging.Info().Str("signal", sig.String()).Msg("shutdown signal received")
		cancel()
	}()

	logging.Info().Str("addr", httpServer.Addr).Msg("starting supervisor tree")
	errCh := tree.ServeBackground(ctx)

	select {
	case <-ctx.Done():
		logging.Info().Msg("context canceled, waiting for supervisor to finish")
	case err := <-errCh:
		if err != nil && !errors.Is(err, context.Canceled) {
			logging.Error().Err(err).Msg("supervisor tree error")
		}
	}

	for err := range errCh {
		if err != nil && !errors.Is(err, context.Canceled) {
			logging.Error().Err(err).Msg("supervisor shutdown error")
		}
	}

	unstopped, _ := tree.UnstoppedServiceReport()
	if len(unstopped) > 0 {
		logging.Warn().Int("count", len(unstopped)).Msg("services failed to stop within timeout")
		for _, svc := range unstopped {
			logging.Warn().Str("service", svc.Name).Msg("service failed to stop")
		}
	}

	logging.Info().Msg("aisentry stopped gracefully")
}

// configureDetectors pushes cfg's thresholds onto the seven registered
// detectors. TELEPORT_T2 and TURN_RATE_T2 share their tier-1 counterpart's
// config shape, so the same payload configures both tiers.
func configureDetectors(engine *detection.Engine, cfg config.DetectionConfig) error {
	teleport, err := json.Marshal(map[string]float64{
		"teleport_speed_knots_short":  cfg.TeleportSpeedKnotsShort,
		"teleport_speed_knots_medium": cfg.TeleportSpeedKnotsMedium,
	})
	if err != nil {
		return err
	}
	turnRate, err := json.Marshal(map[string]float64{
		"max_turn_rate_deg_per_sec":      cfg.MaxTurnRateDegPerSec,
		"min_speed_for_turn_check_knots": cfg.MinSpeedForTurnCheckKnots,
	})
	if err != nil {
		return err
	}
	positionInvalid, err := json.Marshal(map[string]float64{
		"stuck_distance_m": cfg.StuckDistanceM,
		"stuck_min_sog_kn": cfg.StuckMinSOGKnots,
		"stuck_min_dt_sec": cfg.StuckMinDtSec,
	})
	if err != nil {
		return err
	}
	acceleration, err := json.Marshal(map[string]float64{
		"acceleration_min_diff_kn":          cfg.AccelerationMinDiffKnots,
		"acceleration_min_accel_kn_per_sec": cfg.AccelerationMinAccelKnPerSec,
	})
	if err != nil {
		return err
	}
	headingCOG, err := json.Marshal(map[string]float64{
		"heading_cog_min_angle_diff_deg":        cfg.HeadingCOGMinAngleDiffDeg,
		"heading_cog_min_turn_rate_deg_per_sec": cfg.HeadingCOGMinTurnRateDegPerSec,
		"min_speed_for_turn_check_knots":        cfg.MinSpeedForTurnCheckKnots,
	})
	if err != nil {
		return err
	}

	configs := map[aismodel.RuleType]json.RawMessage{
		aismodel.RuleTeleport:              teleport,
		aismodel.RuleTeleportT2:            teleport,
		aismodel.RulePositionInvalid:       positionInvalid,
		aismodel.RuleTurnRate:              turnRate,
		aismodel.RuleTurnRateT2:            turnRate,
		aismodel.RuleAcceleration:          acceleration,
		aismodel.RuleHeadingCOGConsistency: headingCOG,
	}
	for rt, payload := range configs {
		if err := engine.ConfigureDetector(rt, payload); err != nil {
			return fmt.Errorf("configure %s: %w", rt, err)
		}
	}
	return nil
}

// hubService runs the WebSocket hub's dispatch loop and its bus bridge as
// one supervised service: both share hub's lifetime and neither is useful
// without the other.
type hubService struct {
	hub *ws.Hub
	bus *bus.Bus
}

func (s *hubService) Serve(ctx context.Context) error {
	go func() {
		if err := s.hub.RunWithContext(ctx); err != nil && !errors.Is(err, context.Canceled) {
			logging.Error().Err(err).Msg("websocket hub stopped with error")
		}
	}()
	return s.hub.BridgeBus(ctx, s.bus, "ws-hub")
}

func (s *hubService) String() string { return "websocket.Hub" }
