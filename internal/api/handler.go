// Cartographus - Media Server Analytics and Geographic Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cartographus

package api

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/tomtom215/aisentry/internal/aiserrors"
	"github.com/tomtom215/aisentry/internal/aismodel"
	"github.com/tomtom215/aisentry/internal/logging"
	"github.com/tomtom215/aisentry/internal/replay"
	"github.com/tomtom215/aisentry/internal/store"
	"github.com/tomtom215/aisentry/internal/validation"
)

// Handler implements the four control/query operations against
// a *replay.Driver and *store.Store. It holds no session state of its own;
// the Driver is the single source of truth for start/stop/status.
type Handler struct {
	driver    *replay.Driver
	persist   *store.Store
	startTime time.Time
}

// NewHandler creates a Handler bound to the given Driver and Store.
func NewHandler(driver *replay.Driver, persist *store.Store) *Handler {
	return &Handler{driver: driver, persist: persist, startTime: time.Now()}
}

// startReplayRequest is the JSON body for POST /api/v1/replay/start.
type startReplayRequest struct {
	Path                    string  `json:"path" validate:"required"`
	Speedup                 float64 `json:"speedup" validate:"omitempty,gte=0.1"`
	UseStreaming            bool    `json:"use_streaming"`
	BatchSize               int     `json:"batch_size" validate:"omitempty,min=1,max=10000"`
	ChunkSize               int     `json:"chunk_size" validate:"omitempty,min=1"`
	StreamingThresholdBytes int64   `json:"streaming_threshold_bytes" validate:"omitempty,min=0"`
}

// StartReplay handles start_replay: validates the request and
// transitions Idle->Running. A bad path or an already-running session both
// surface synchronously rather than leaving the driver half-started.
//
// @Summary Start a replay session
// @Tags Control
// @Accept json
// @Produce json
// @Success 200 {object} APIResponse
// @Failure 400 {object} APIResponse
// @Failure 409 {object} APIResponse
// @Router /api/v1/replay/start [post]
func (h *Handler) StartReplay(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	var req startReplayRequest
	if err := decodeJSON(r, &req); err != nil {
		rw.BadRequest("malformed request body: " + err.Error())
		return
	}
	if req.Speedup == 0 {
		req.Speedup = 1.0
	}
	if verr := validation.ValidateStruct(&req); verr != nil {
		apiErr := verr.ToAPIError()
		rw.ValidationError(apiErr.Message, apiErr.Details)
		return
	}

	sessionID, err := h.driver.StartReplay(r.Context(), replay.StartRequest{
		Path:                    req.Path,
		Speedup:                 req.Speedup,
		UseStreaming:            req.UseStreaming,
		BatchSize:               req.BatchSize,
		ChunkSize:               req.ChunkSize,
		StreamingThresholdBytes: req.StreamingThresholdBytes,
	})
	if err != nil {
		writeDriverError(rw, err)
		return
	}

	rw.Success(map[string]string{"session_id": sessionID})
}

// StopReplay handles stop_replay: idempotent Running->Stopping.
//
// @Summary Stop the active replay session
// @Tags Control
// @Produce json
// @Success 200 {object} APIResponse
// @Router /api/v1/replay/stop [post]
func (h *Handler) StopReplay(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)
	if err := h.driver.StopReplay(); err != nil {
		writeDriverError(rw, err)
		return
	}
	rw.Success(map[string]bool{"stopping": true})
}

// replayStatusResponse mirrors the replay_status output shape.
type replayStatusResponse struct {
	Running           bool      `json:"running"`
	SessionID         string    `json:"session_id,omitempty"`
	ProcessedCount    int64     `json:"processed_count"`
	LastTimestamp     time.Time `json:"last_timestamp,omitempty"`
	StopRequested     bool      `json:"stop_requested"`
	MalformedRows     int64     `json:"malformed_rows"`
	PersistenceErrors int64     `json:"persistence_errors"`
	DetectionErrors   int64     `json:"detection_errors"`
}

// ReplayStatus handles replay_status.
//
// @Summary Report the active (or most recently finished) session's progress
// @Tags Control
// @Produce json
// @Success 200 {object} APIResponse
// @Router /api/v1/replay/status [get]
func (h *Handler) ReplayStatus(w http.ResponseWriter, r *http.Request) {
	status := h.driver.Status()
	NewResponseWriter(w, r).Success(replayStatusResponse{
		Running:           status.Running,
		SessionID:         status.SessionID,
		ProcessedCount:    status.ProcessedCount,
		LastTimestamp:     status.LastTimestamp,
		StopRequested:     status.StopRequested,
		MalformedRows:     status.MalformedRows,
		PersistenceErrors: status.PersistenceErrors,
		DetectionErrors:   status.DetectionErrors,
	})
}

// updateAlertStatusRequest is the JSON body for POST /api/v1/alerts/{id}/status.
type updateAlertStatusRequest struct {
	Status string `json:"status" validate:"required"`
	Notes  string `json:"notes"`
}

// UpdateAlertStatus handles update_alert_status: mutates
// Alert.status/Alert.notes, rejecting an unrecognized status value.
//
// @Summary Update an alert's review status
// @Tags Control
// @Accept json
// @Produce json
// @Param id path int true "Alert ID"
// @Success 200 {object} APIResponse
// @Failure 400 {object} APIResponse
// @Failure 404 {object} APIResponse
// @Router /api/v1/alerts/{id}/status [post]
func (h *Handler) UpdateAlertStatus(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	alertID, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		rw.BadRequest("alert id must be an integer")
		return
	}

	var req updateAlertStatusRequest
	if err := decodeJSON(r, &req); err != nil {
		rw.BadRequest("malformed request body: " + err.Error())
		return
	}
	if verr := validation.ValidateStruct(&req); verr != nil {
		apiErr := verr.ToAPIError()
		rw.ValidationError(apiErr.Message, apiErr.Details)
		return
	}
	if !aismodel.ValidAlertStatus(req.Status) {
		rw.BadRequestWithDetails("unknown alert status", map[string]string{"status": req.Status})
		return
	}

	if err := h.persist.UpdateAlertStatus(r.Context(), alertID, aismodel.AlertStatus(req.Status), req.Notes); err != nil {
		logging.Error().Err(err).Int64("alert_id", alertID).Msg("update_alert_status failed")
		rw.DatabaseError(err)
		return
	}

	rw.Success(map[string]interface{}{"alert_id": alertID, "status": req.Status})
}

// HealthLive reports process liveness, independent of any dependency.
func (h *Handler) HealthLive(w http.ResponseWriter, r *http.Request) {
	NewResponseWriter(w, r).Success(map[string]interface{}{
		"alive":  true,
		"uptime": time.Since(h.startTime).Seconds(),
	})
}

// HealthReady reports whether the service is ready to accept replay and
// query traffic: both the Driver and the Store must be wired.
func (h *Handler) HealthReady(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)
	ready := h.driver != nil && h.persist != nil
	if !ready {
		rw.ServiceUnavailable("dependencies not ready")
		return
	}
	rw.Success(map[string]bool{"ready": true})
}

// writeDriverError maps the aiserrors kinds that can surface synchronously
// from the Driver onto HTTP status codes.
func writeDriverError(rw *ResponseWriter, err error) {
	var stateErr *aiserrors.StateError
	var sourceErr *aiserrors.SourceError
	var configErr *aiserrors.ConfigError

	switch {
	case errors.As(err, &stateErr):
		rw.Conflict(err.Error())
	case errors.As(err, &sourceErr):
		rw.BadRequest(err.Error())
	case errors.As(err, &configErr):
		rw.BadRequest(err.Error())
	default:
		rw.InternalError(err.Error())
	}
}
