// Cartographus - Media Server Analytics and Geographic Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cartographus

// Package replay implements the Replay Driver: the state
// machine that paces ingestion of one AIS source file through the Track
// Store, Rule Engine, Cooldown Gate, Persistence, and Fan-out Bus, at an
// adjustable wall-clock multiple of source time.
package replay

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/tomtom215/aisentry/internal/aiserrors"
	"github.com/tomtom215/aisentry/internal/aismodel"
	"github.com/tomtom215/aisentry/internal/bus"
	"github.com/tomtom215/aisentry/internal/cooldown"
	"github.com/tomtom215/aisentry/internal/detection"
	"github.com/tomtom215/aisentry/internal/kinematics"
	"github.com/tomtom215/aisentry/internal/loader"
	"github.com/tomtom215/aisentry/internal/logging"
	"github.com/tomtom215/aisentry/internal/metrics"
	"github.com/tomtom215/aisentry/internal/store"
	"github.com/tomtom215/aisentry/internal/trackstore"
)

// State is the Replay Driver's state machine:
// Idle -> Starting -> Running -> Stopping -> Idle.
type State string

const (
	StateIdle     State = "idle"
	StateStarting State = "starting"
	StateRunning  State = "running"
	StateStopping State = "stopping"
)

// StartRequest parameterizes one replay session.
type StartRequest struct {
	Path                    string
	Speedup                 float64
	UseStreaming            bool
	BatchSize               int
	ChunkSize               int
	StreamingThresholdBytes int64
}

func (r StartRequest) validate() error {
	if r.Speedup < 0.1 {
		return &aiserrors.ConfigError{Field: "speedup", Err: fmt.Errorf("must be >= 0.1, got %v", r.Speedup)}
	}
	if r.BatchSize != 0 && (r.BatchSize < 1 || r.BatchSize > 10000) {
		return &aiserrors.ConfigError{Field: "batch_size", Err: fmt.Errorf("must be in [1,10000], got %d", r.BatchSize)}
	}
	return nil
}

// Status reports the current session's progress.
type Status struct {
	Running           bool
	SessionID         string
	ProcessedCount    int64
	LastTimestamp     time.Time
	StopRequested     bool
	MalformedRows     int64
	PersistenceErrors int64
	DetectionErrors   int64
}

// Thresholds are the operator-configurable detection/cooldown knobs that
// the driver needs outside the detection engine itself.
type Thresholds struct {
	CooldownInterval time.Duration
	TrackWindowSize  int
	VesselCapacity   int
	RateLimitPerSec  float64 // 0 disables the throughput ceiling
}

// DefaultThresholds returns the default knob values.
func DefaultThresholds() Thresholds {
	return Thresholds{
		CooldownInterval: 300 * time.Second,
		TrackWindowSize:  trackstore.DefaultWindowSize,
		VesselCapacity:   trackstore.DefaultVesselCapacity,
	}
}

// Driver orchestrates L1->L2->L4->L5->L6->L7 for a single active replay
// session at a time. Only one session may run concurrently;
// concurrent start_replay calls are rejected with a StateError.
type Driver struct {
	engine     *detection.Engine
	cooldown   *cooldown.Gate
	persist    *store.Store
	bus        *bus.Bus
	thresholds Thresholds

	mu      sync.Mutex
	state   State
	session *sessionState
}

type sessionState struct {
	id                string
	cancel            context.CancelFunc
	startedAt         time.Time
	processed         int64
	lastTimestamp     time.Time
	stopRequested     bool
	malformedRows     int64
	persistErrors     int64
	detectErrors      int64
	detectErrBaseline int64
	seenVessels       map[string]bool
}

// New creates an idle Driver.
func New(engine *detection.Engine, gate *cooldown.Gate, persist *store.Store, b *bus.Bus, thresholds Thresholds) *Driver {
	if thresholds.TrackWindowSize <= 0 {
		thresholds.TrackWindowSize = trackstore.DefaultWindowSize
	}
	if thresholds.VesselCapacity <= 0 {
		thresholds.VesselCapacity = trackstore.DefaultVesselCapacity
	}
	if thresholds.CooldownInterval <= 0 {
		thresholds.CooldownInterval = 300 * time.Second
	}
	return &Driver{
		engine:     engine,
		cooldown:   gate,
		persist:    persist,
		bus:        b,
		thresholds: thresholds,
		state:      StateIdle,
	}
}

// State returns the driver's current state.
func (d *Driver) State() State {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.state
}

// Status reports the active (or most recently finished) session's
// progress.
func (d *Driver) Status() Status {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.session == nil {
		return Status{Running: d.state == StateRunning}
	}
	return Status{
		Running:           d.state == StateRunning,
		SessionID:         d.session.id,
		ProcessedCount:    d.session.processed,
		LastTimestamp:     d.session.lastTimestamp,
		StopRequested:     d.session.stopRequested,
		MalformedRows:     d.session.malformedRows,
		PersistenceErrors: d.session.persistErrors,
		DetectionErrors:   d.session.detectErrors,
	}
}

// StartReplay validates req and transitions Idle->Starting synchronously;
// file existence and header decodability are checked before this call
// returns, so a bad path never leaves the driver in a half-started state.
// On success the session runs to completion in a background
// goroutine; StartReplay itself returns immediately.
func (d *Driver) StartReplay(ctx context.Context, req StartRequest) (string, error) {
	if err := req.validate(); err != nil {
		return "", err
	}

	d.mu.Lock()
	if d.state != StateIdle {
		d.mu.Unlock()
		return "", &aiserrors.StateError{From: string(d.state), To: string(StateStarting)}
	}
	d.state = StateStarting
	d.mu.Unlock()

	src, err := loader.OpenSource(req.Path)
	if err != nil {
		d.mu.Lock()
		d.state = StateIdle
		d.mu.Unlock()
		return "", err
	}

	sessionID := uuid.NewString()
	runCtx, cancel := context.WithCancel(context.Background())
	sess := &sessionState{
		id:                sessionID,
		cancel:            cancel,
		startedAt:         time.Now(),
		seenVessels:       make(map[string]bool),
		detectErrBaseline: d.engine.Metrics().DetectionErrors,
	}

	d.mu.Lock()
	d.state = StateRunning
	d.session = sess
	d.mu.Unlock()

	metrics.RecordReplaySessionStarted()
	go d.runSession(runCtx, sessionID, src, req)

	return sessionID, nil
}

// StopReplay transitions Running->Stopping. Idempotent: calling it again
// while already stopping (or while idle) is a no-op success.
func (d *Driver) StopReplay() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.state == StateIdle {
		return nil
	}
	if d.session != nil {
		d.session.stopRequested = true
		d.session.cancel()
	}
	d.state = StateStopping
	return nil
}

func (d *Driver) runSession(ctx context.Context, sessionID string, src *loader.Source, req StartRequest) {
	logger := logging.WithComponent("replay").With().Str("session_id", sessionID).Logger()

	defer func() {
		if r := recover(); r != nil {
			logger.Error().Interface("panic", r).Msg("replay session panicked, returning to idle")
		}
		malformed := src.MalformedRows()
		d.mu.Lock()
		if d.session != nil && d.session.id == sessionID {
			d.session.malformedRows = malformed
		}
		d.mu.Unlock()
		for i := int64(0); i < malformed; i++ {
			metrics.RecordPointSkipped("malformed")
		}
		_ = src.Close()
		d.finish(sessionID)
	}()

	track := trackstore.NewSession(sessionID, d.thresholds.TrackWindowSize, d.thresholds.VesselCapacity)
	defer track.Close()

	var limiter *rate.Limiter
	if d.thresholds.RateLimitPerSec > 0 {
		limiter = rate.NewLimiter(rate.Limit(d.thresholds.RateLimitPerSec), 1)
	}

	chunkSize := req.ChunkSize
	if chunkSize <= 0 {
		chunkSize = loader.DefaultChunkSize
	}
	streaming := req.UseStreaming || loader.ShouldStream(req.Path, req.StreamingThresholdBytes, req.UseStreaming)

	var referenceTimestamp time.Time
	var referenceWall time.Time
	haveReference := false

	pace := func(point aismodel.AisPoint) (stop bool) {
		if limiter != nil {
			_ = limiter.Wait(ctx)
		}
		if !haveReference {
			referenceTimestamp = point.Timestamp
			referenceWall = time.Now()
			haveReference = true
			return false
		}
		delay := time.Duration(float64(point.Timestamp.Sub(referenceTimestamp))/req.Speedup) - time.Since(referenceWall)
		if delay <= 0 {
			return false
		}
		timer := time.NewTimer(delay)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return true
		case <-timer.C:
			return false
		}
	}

	processPoint := func(point aismodel.AisPoint) (stop bool) {
		if d.stopRequested() {
			return true
		}
		if pace(point) {
			return true
		}
		d.ingestOne(ctx, sessionID, track, point, &logger)
		return false
	}

	if streaming {
	chunkLoop:
		for {
			chunk, more := src.NextChunk(chunkSize)
			for _, point := range chunk {
				if processPoint(point) {
					d.publishTick(sessionID, true)
					return
				}
			}
			if !more {
				break chunkLoop
			}
		}
	} else {
		for _, point := range src.All() {
			if processPoint(point) {
				d.publishTick(sessionID, true)
				return
			}
		}
	}

	d.finalizeSummary(sessionID)
}

func (d *Driver) stopRequested() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.session != nil && d.session.stopRequested
}

func (d *Driver) ingestOne(ctx context.Context, sessionID string, track *trackstore.Session, point aismodel.AisPoint, logger *zerolog.Logger) {
	prev, hasPrev := track.Store.Previous(point.MMSI)
	track.Store.Push(point)

	pair := kinematics.Pair{Prev: prev, Curr: point}
	candidates := d.engine.Evaluate(ctx, pair, hasPrev)
	totalDetectErrors := d.engine.Metrics().DetectionErrors

	metrics.RecordPointIngested()
	metrics.SetTrackStoreVesselCount(track.Store.VesselCount())

	d.mu.Lock()
	sess := d.session
	firstForVessel := sess != nil && !sess.seenVessels[point.MMSI]
	var newDetectErrors int64
	if sess != nil {
		sess.seenVessels[point.MMSI] = true
		newDetectErrors = (totalDetectErrors - sess.detectErrBaseline) - sess.detectErrors
		sess.detectErrors = totalDetectErrors - sess.detectErrBaseline
	}
	d.mu.Unlock()
	for i := int64(0); i < newDetectErrors; i++ {
		metrics.RecordDetectionError("unknown")
	}

	var accepted []aismodel.Candidate
	for _, c := range candidates {
		metrics.RecordDetectionCandidate(string(c.RuleType))
		ok, err := d.cooldown.Accept(ctx, point.MMSI, string(c.RuleType), point.Timestamp, d.thresholds.CooldownInterval)
		if err != nil {
			d.countPersistenceError()
			logger.Error().Err(err).Str("mmsi", point.MMSI).Msg("cooldown gate error, treating candidate as suppressed")
			continue
		}
		if ok {
			accepted = append(accepted, c)
		} else {
			metrics.RecordCooldownSuppressed(string(c.RuleType))
		}
	}

	if err := d.persist.Unit(ctx, point, accepted, firstForVessel); err != nil {
		d.countPersistenceError()
		logger.Error().Err(err).Str("mmsi", point.MMSI).Msg("persistence unit failed, point counted as skipped")
	} else {
		for _, a := range accepted {
			d.publishAlert(sessionID, point, a)
		}
	}

	d.mu.Lock()
	shouldTick := false
	if d.session != nil {
		d.session.processed++
		d.session.lastTimestamp = point.Timestamp
		shouldTick = d.session.processed%bus.TickInterval == 0
	}
	d.mu.Unlock()

	if shouldTick {
		d.publishTick(sessionID, false)
	}
}

func (d *Driver) countPersistenceError() {
	metrics.RecordPersistenceError()
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.session != nil {
		d.session.persistErrors++
	}
}

func (d *Driver) publishAlert(sessionID string, point aismodel.AisPoint, c aismodel.Candidate) {
	payload, _ := json.Marshal(struct {
		MMSI      string          `json:"mmsi"`
		Timestamp time.Time       `json:"timestamp"`
		RuleType  string          `json:"rule_type"`
		Severity  int             `json:"severity"`
		Summary   string          `json:"summary"`
		Evidence  json.RawMessage `json:"evidence"`
	}{point.MMSI, point.Timestamp, string(c.RuleType), c.Severity, c.Summary, c.Evidence})

	metrics.RecordAlertEmitted(string(c.RuleType), severityLabel(c.Severity))
	if err := d.bus.Publish(bus.Event{Kind: bus.KindAlert, SessionID: sessionID, Data: payload}); err != nil {
		logging.Error().Err(err).Msg("failed to publish alert event")
		return
	}
	metrics.RecordBusPublish(string(bus.KindAlert))
}

// severityLabel buckets a 0-100 severity score into a low-cardinality
// label suitable for a Prometheus metric dimension.
func severityLabel(severity int) string {
	switch {
	case severity >= 80:
		return "high"
	case severity >= 40:
		return "medium"
	default:
		return "low"
	}
}

func (d *Driver) publishTick(sessionID string, final bool) {
	status := d.Status()
	payload, _ := json.Marshal(struct {
		Processed int64 `json:"processed"`
		Final     bool  `json:"final"`
	}{status.ProcessedCount, final})

	if err := d.bus.Publish(bus.Event{Kind: bus.KindTick, SessionID: sessionID, Data: payload}); err != nil {
		logging.Error().Err(err).Msg("failed to publish tick event")
		return
	}
	metrics.RecordBusPublish(string(bus.KindTick))
}

func (d *Driver) finalizeSummary(sessionID string) {
	d.publishTick(sessionID, true)
}

func (d *Driver) finish(sessionID string) {
	d.mu.Lock()
	if d.session != nil && d.session.id == sessionID {
		metrics.RecordReplaySessionDuration(time.Since(d.session.startedAt))
		d.state = StateIdle
		d.session = nil
	}
	d.mu.Unlock()
}

// Serve satisfies suture.Service so the supervisor tree can supervise the
// Driver's overall lifetime. The session state machine itself still
// governs intentional start/stop; Serve only blocks until ctx is
// cancelled (shutdown) and then stops any running session. A panic inside
// runSession is recovered in runSession's own defer, which returns the
// Driver to Idle; a running session is never resumed.
func (d *Driver) Serve(ctx context.Context) error {
	<-ctx.Done()
	if err := d.StopReplay(); err != nil {
		return err
	}
	return nil
}

func (d *Driver) String() string {
	return "replay.Driver"
}
