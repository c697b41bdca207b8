// Cartographus - Media Server Analytics and Geographic Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cartographus

// Package store implements persistence with DuckDB-backed tables for
// the latest known position per vessel, the full position history,
// accepted alerts, and the durable cooldown record, written atomically
// per ingested point.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	_ "github.com/duckdb/duckdb-go/v2"
	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/tomtom215/aisentry/internal/aiserrors"
	"github.com/tomtom215/aisentry/internal/aismodel"
	"github.com/tomtom215/aisentry/internal/logging"
	"github.com/tomtom215/aisentry/internal/metrics"
)

// OutOfOrderPolicy controls how Unit handles a point whose timestamp is
// older than the vessel's current vessels_latest row.
type OutOfOrderPolicy string

const (
	// AppendSkipLatest appends to vessel_positions but leaves
	// vessels_latest untouched. Default.
	AppendSkipLatest OutOfOrderPolicy = "append_skip_latest"
	// AppendAndUpdateLatest appends to vessel_positions and overwrites
	// vessels_latest regardless of ordering.
	AppendAndUpdateLatest OutOfOrderPolicy = "append_and_update_latest"
	// Discard drops the point entirely; neither table is written.
	Discard OutOfOrderPolicy = "discard"
)

// Config configures a Store.
type Config struct {
	// Path is the DuckDB database file. Empty uses an in-memory database,
	// used by tests.
	Path      string
	Threads   int
	MaxMemory string

	OutOfOrderPolicy OutOfOrderPolicy

	// Breaker tunes the circuit breaker guarding commits.
	BreakerMaxRequests      uint32
	BreakerInterval         time.Duration
	BreakerTimeout          time.Duration
	BreakerFailureThreshold uint32
}

// DefaultConfig returns spec-aligned defaults.
func DefaultConfig() Config {
	return Config{
		MaxMemory:               "2GB",
		OutOfOrderPolicy:        AppendSkipLatest,
		BreakerMaxRequests:      1,
		BreakerInterval:         30 * time.Second,
		BreakerTimeout:          10 * time.Second,
		BreakerFailureThreshold: 5,
	}
}

// Store wraps the DuckDB connection used for all AIS persistence.
type Store struct {
	conn    *sql.DB
	cfg     Config
	breaker *gobreaker.CircuitBreaker[interface{}]
}

// Open creates or opens the DuckDB database at cfg.Path and ensures the
// schema exists.
func Open(cfg Config) (*Store, error) {
	if cfg.Path != "" {
		dbDir := filepath.Dir(cfg.Path)
		if dbDir != "" && dbDir != "." {
			if err := os.MkdirAll(dbDir, 0o750); err != nil {
				return nil, &aiserrors.PersistenceError{Op: "store.Open.mkdir", Err: err}
			}
		}
	}

	numThreads := cfg.Threads
	if numThreads <= 0 {
		numThreads = runtime.NumCPU()
	}
	maxMemory := cfg.MaxMemory
	if maxMemory == "" {
		maxMemory = "2GB"
	}

	target := cfg.Path
	if target == "" {
		target = ":memory:"
	}
	connStr := fmt.Sprintf("%s?access_mode=read_write&threads=%d&max_memory=%s&autoinstall_known_extensions=false&autoload_known_extensions=false",
		target, numThreads, maxMemory)

	conn, err := sql.Open("duckdb", connStr)
	if err != nil {
		return nil, &aiserrors.PersistenceError{Op: "store.Open", Err: err}
	}
	conn.SetMaxOpenConns(numThreads)
	conn.SetMaxIdleConns(2)
	conn.SetConnMaxLifetime(time.Hour)
	conn.SetConnMaxIdleTime(5 * time.Minute)

	policy := cfg.OutOfOrderPolicy
	if policy == "" {
		policy = AppendSkipLatest
	}
	cfg.OutOfOrderPolicy = policy

	s := &Store{conn: conn, cfg: cfg}
	s.breaker = newBreaker(cfg)

	if err := s.migrate(context.Background()); err != nil {
		_ = conn.Close()
		return nil, err
	}
	return s, nil
}

func newBreaker(cfg Config) *gobreaker.CircuitBreaker[interface{}] {
	maxRequests := cfg.BreakerMaxRequests
	if maxRequests == 0 {
		maxRequests = 1
	}
	threshold := cfg.BreakerFailureThreshold
	if threshold == 0 {
		threshold = 5
	}
	settings := gobreaker.Settings{
		Name:        "duckdb-store",
		MaxRequests: maxRequests,
		Interval:    cfg.BreakerInterval,
		Timeout:     cfg.BreakerTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= threshold
		},
		IsSuccessful: func(err error) bool {
			// Only connection-level failures should trip the breaker; a
			// query-level error (constraint violation, bad input) doesn't
			// mean the engine itself is unhealthy.
			return err == nil || !isConnectionError(err)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logging.Warn().Str("breaker", name).Str("from", from.String()).Str("to", to.String()).Msg("store circuit breaker state changed")
			metrics.StoreBreakerState.Set(float64(to))
		},
	}
	return gobreaker.NewCircuitBreaker[interface{}](settings)
}

// Close releases the underlying DuckDB connection.
func (s *Store) Close() error {
	return s.conn.Close()
}

func (s *Store) migrate(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS vessels_latest (
			mmsi VARCHAR PRIMARY KEY,
			ts TIMESTAMP NOT NULL,
			lat DOUBLE NOT NULL,
			lon DOUBLE NOT NULL,
			sog DOUBLE,
			cog DOUBLE,
			heading DOUBLE,
			last_alert_severity INTEGER NOT NULL DEFAULT 0
		)`,
		`CREATE TABLE IF NOT EXISTS vessel_positions (
			id BIGINT PRIMARY KEY DEFAULT nextval('vessel_positions_seq'),
			mmsi VARCHAR NOT NULL,
			ts TIMESTAMP NOT NULL,
			lat DOUBLE NOT NULL,
			lon DOUBLE NOT NULL,
			sog DOUBLE,
			cog DOUBLE,
			heading DOUBLE
		)`,
		`CREATE INDEX IF NOT EXISTS idx_vessel_positions_mmsi_ts ON vessel_positions (mmsi, ts)`,
		`CREATE TABLE IF NOT EXISTS alerts (
			id BIGINT PRIMARY KEY DEFAULT nextval('alerts_seq'),
			ts TIMESTAMP NOT NULL,
			mmsi VARCHAR NOT NULL,
			rule_type VARCHAR NOT NULL,
			severity INTEGER NOT NULL,
			summary VARCHAR NOT NULL,
			evidence JSON,
			status VARCHAR NOT NULL DEFAULT 'new',
			notes VARCHAR NOT NULL DEFAULT ''
		)`,
		`CREATE INDEX IF NOT EXISTS idx_alerts_mmsi_ts ON alerts (mmsi, ts)`,
		`CREATE INDEX IF NOT EXISTS idx_alerts_rule_type ON alerts (rule_type)`,
		`CREATE TABLE IF NOT EXISTS alert_cooldowns (
			mmsi VARCHAR NOT NULL,
			rule_type VARCHAR NOT NULL,
			last_alert_ts TIMESTAMP NOT NULL,
			PRIMARY KEY (mmsi, rule_type)
		)`,
	}
	seqStmts := []string{
		`CREATE SEQUENCE IF NOT EXISTS vessel_positions_seq START 1`,
		`CREATE SEQUENCE IF NOT EXISTS alerts_seq START 1`,
	}
	for _, stmt := range seqStmts {
		if _, err := s.conn.ExecContext(ctx, stmt); err != nil {
			return &aiserrors.PersistenceError{Op: "store.migrate.sequence", Err: err}
		}
	}
	for _, stmt := range stmts {
		if _, err := s.conn.ExecContext(ctx, stmt); err != nil {
			return &aiserrors.PersistenceError{Op: "store.migrate", Err: err}
		}
	}
	return nil
}

// Unit performs the atomic per-point persistence tuple: upsert
// vessels_latest (subject to OutOfOrderPolicy), append to
// vessel_positions, insert any accepted alerts, and durably record their
// cooldown timestamps — all inside a single transaction so a point is
// never partially applied.
//
// sessionReset must be true for the first point of a vessel seen in the
// current replay session, so last_alert_severity starts fresh rather
// than carrying a prior session's value.
func (s *Store) Unit(ctx context.Context, point aismodel.AisPoint, alerts []aismodel.Candidate, sessionReset bool) error {
	_, err := s.breaker.Execute(func() (interface{}, error) {
		return nil, s.unit(ctx, point, alerts, sessionReset)
	})
	if err != nil {
		if err == gobreaker.ErrOpenState || err == gobreaker.ErrTooManyRequests {
			return &aiserrors.PersistenceError{Op: "store.Unit.breaker", Err: err}
		}
		return err
	}
	return nil
}

func (s *Store) unit(ctx context.Context, point aismodel.AisPoint, alerts []aismodel.Candidate, sessionReset bool) error {
	tx, err := s.conn.BeginTx(ctx, nil)
	if err != nil {
		return &aiserrors.PersistenceError{Op: "store.Unit.begin", Err: err}
	}
	defer func() { _ = tx.Rollback() }()

	if err := s.writeLatest(ctx, tx, point, alerts, sessionReset); err != nil {
		return err
	}
	if err := s.writePosition(ctx, tx, point); err != nil {
		return err
	}
	for _, a := range alerts {
		if err := s.writeAlert(ctx, tx, point, a); err != nil {
			return err
		}
		if err := s.writeCooldown(ctx, tx, point.MMSI, a.RuleType, point.Timestamp); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return &aiserrors.PersistenceError{Op: "store.Unit.commit", Err: err}
	}
	return nil
}

func (s *Store) writeLatest(ctx context.Context, tx *sql.Tx, point aismodel.AisPoint, alerts []aismodel.Candidate, sessionReset bool) error {
	if s.cfg.OutOfOrderPolicy == Discard {
		var existingTS time.Time
		err := tx.QueryRowContext(ctx, `SELECT ts FROM vessels_latest WHERE mmsi = ?`, point.MMSI).Scan(&existingTS)
		if err == nil && point.Timestamp.Before(existingTS) {
			return nil
		}
		if err != nil && err != sql.ErrNoRows {
			return &aiserrors.PersistenceError{Op: "store.writeLatest.check", Err: err}
		}
	}

	if s.cfg.OutOfOrderPolicy == AppendSkipLatest {
		var existingTS time.Time
		err := tx.QueryRowContext(ctx, `SELECT ts FROM vessels_latest WHERE mmsi = ?`, point.MMSI).Scan(&existingTS)
		if err == nil && point.Timestamp.Before(existingTS) {
			return nil
		}
		if err != nil && err != sql.ErrNoRows {
			return &aiserrors.PersistenceError{Op: "store.writeLatest.check", Err: err}
		}
	}

	maxSeverity := 0
	if !sessionReset {
		var prev int
		err := tx.QueryRowContext(ctx, `SELECT last_alert_severity FROM vessels_latest WHERE mmsi = ?`, point.MMSI).Scan(&prev)
		if err == nil {
			maxSeverity = prev
		} else if err != sql.ErrNoRows {
			return &aiserrors.PersistenceError{Op: "store.writeLatest.severity", Err: err}
		}
	}
	for _, a := range alerts {
		if a.Severity > maxSeverity {
			maxSeverity = a.Severity
		}
	}

	_, err := tx.ExecContext(ctx, `
		INSERT INTO vessels_latest (mmsi, ts, lat, lon, sog, cog, heading, last_alert_severity)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (mmsi) DO UPDATE SET
			ts = excluded.ts, lat = excluded.lat, lon = excluded.lon,
			sog = excluded.sog, cog = excluded.cog, heading = excluded.heading,
			last_alert_severity = excluded.last_alert_severity
	`, point.MMSI, point.Timestamp, point.Lat, point.Lon, point.SOG, point.COG, point.Heading, maxSeverity)
	if err != nil {
		return &aiserrors.PersistenceError{Op: "store.writeLatest.upsert", Err: err}
	}
	return nil
}

func (s *Store) writePosition(ctx context.Context, tx *sql.Tx, point aismodel.AisPoint) error {
	if s.cfg.OutOfOrderPolicy == Discard {
		var existingTS time.Time
		err := tx.QueryRowContext(ctx, `SELECT ts FROM vessels_latest WHERE mmsi = ?`, point.MMSI).Scan(&existingTS)
		if err == nil && point.Timestamp.Before(existingTS) {
			return nil
		}
		if err != nil && err != sql.ErrNoRows {
			return &aiserrors.PersistenceError{Op: "store.writePosition.check", Err: err}
		}
	}
	_, err := tx.ExecContext(ctx, `
		INSERT INTO vessel_positions (mmsi, ts, lat, lon, sog, cog, heading)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, point.MMSI, point.Timestamp, point.Lat, point.Lon, point.SOG, point.COG, point.Heading)
	if err != nil {
		return &aiserrors.PersistenceError{Op: "store.writePosition", Err: err}
	}
	return nil
}

func (s *Store) writeAlert(ctx context.Context, tx *sql.Tx, point aismodel.AisPoint, a aismodel.Candidate) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO alerts (ts, mmsi, rule_type, severity, summary, evidence, status, notes)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, point.Timestamp, point.MMSI, string(a.RuleType), a.Severity, a.Summary, string(a.Evidence), string(aismodel.AlertStatusNew), "")
	if err != nil {
		return &aiserrors.PersistenceError{Op: "store.writeAlert", Err: err}
	}
	return nil
}

func (s *Store) writeCooldown(ctx context.Context, tx *sql.Tx, mmsi string, ruleType aismodel.RuleType, ts time.Time) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO alert_cooldowns (mmsi, rule_type, last_alert_ts)
		VALUES (?, ?, ?)
		ON CONFLICT (mmsi, rule_type) DO UPDATE SET last_alert_ts = excluded.last_alert_ts
	`, mmsi, string(ruleType), ts)
	if err != nil {
		return &aiserrors.PersistenceError{Op: "store.writeCooldown", Err: err}
	}
	return nil
}

// UpdateAlertStatus implements the update_alert_status control operation:
// mutates only Status and Notes on an existing alert.
func (s *Store) UpdateAlertStatus(ctx context.Context, alertID int64, status aismodel.AlertStatus, notes string) error {
	if !aismodel.ValidAlertStatus(string(status)) {
		return &aiserrors.ConfigError{Field: "status", Err: fmt.Errorf("invalid alert status %q", status)}
	}
	res, err := s.conn.ExecContext(ctx, `UPDATE alerts SET status = ?, notes = ? WHERE id = ?`, string(status), notes, alertID)
	if err != nil {
		return &aiserrors.PersistenceError{Op: "store.UpdateAlertStatus", Err: err}
	}
	n, err := res.RowsAffected()
	if err != nil {
		return &aiserrors.PersistenceError{Op: "store.UpdateAlertStatus.rows", Err: err}
	}
	if n == 0 {
		return &aiserrors.PersistenceError{Op: "store.UpdateAlertStatus", Err: fmt.Errorf("alert %d not found", alertID)}
	}
	return nil
}

// VesselLatest returns the current snapshot row for mmsi, or sql.ErrNoRows
// if the vessel has never been ingested.
func (s *Store) VesselLatest(ctx context.Context, mmsi string) (aismodel.VesselLatest, error) {
	var v aismodel.VesselLatest
	v.MMSI = mmsi
	row := s.conn.QueryRowContext(ctx, `SELECT ts, lat, lon, sog, cog, heading, last_alert_severity FROM vessels_latest WHERE mmsi = ?`, mmsi)
	if err := row.Scan(&v.Timestamp, &v.Lat, &v.Lon, &v.SOG, &v.COG, &v.Heading, &v.LastAlertSeverity); err != nil {
		return aismodel.VesselLatest{}, err
	}
	return v, nil
}

// isConnectionError classifies a DuckDB driver error as connection-level
// (vs a query-level failure), used by the circuit breaker so that only
// connection-level failures count against it.
func isConnectionError(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "connection refused") ||
		strings.Contains(msg, "connection reset") ||
		strings.Contains(msg, "broken pipe") ||
		strings.Contains(msg, "bad connection") ||
		strings.Contains(msg, "database is closed")
}
