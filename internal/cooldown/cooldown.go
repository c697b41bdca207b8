// Cartographus - Media Server Analytics and Geographic Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cartographus

// Package cooldown implements the cooldown gate: a durable,
// per-(vessel, rule_type) suppression window keyed on source timestamps,
// not wall clock. A candidate alert is accepted only if no prior alert of
// the same rule type for the same vessel was accepted within the
// configured interval, measured against the candidate's own timestamp.
package cooldown

import (
	"context"
	"fmt"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/dgraph-io/badger/v4/options"

	"github.com/tomtom215/aisentry/internal/aiserrors"
	"github.com/tomtom215/aisentry/internal/cache"
	"github.com/tomtom215/aisentry/internal/logging"
	"github.com/tomtom215/aisentry/internal/metrics"
)

// EntryTTL bounds how long a cooldown key survives in Badger once
// written. It is deliberately longer than any realistic cooldown
// interval (default 300s) so TTL expiry is a memory-bounding backstop,
// never the mechanism that makes Accept correct.
const EntryTTL = 24 * time.Hour

// Config configures a Gate.
type Config struct {
	// Path is the Badger data directory. Empty uses an in-memory store,
	// useful for tests.
	Path string
	// HotCacheCapacity bounds the in-memory read-through cache in front
	// of Badger.
	HotCacheCapacity int
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{HotCacheCapacity: 50000}
}

// Gate is the durable cooldown store. A hot in-memory LRU cache (the
// teacher's internal/cache.LRUCache, used wholesale since its value type
// of time.Time is an exact fit) sits in front of Badger so the common
// case of "this vessel/rule pair alerted recently" never touches disk;
// Badger remains the source of truth so a cache miss, eviction, or
// process restart can never cause a false accept.
type Gate struct {
	db  *badger.DB
	hot *cache.LRUCache
}

// Open creates or opens the durable cooldown store at cfg.Path.
func Open(cfg Config) (*Gate, error) {
	opts := badger.DefaultOptions(cfg.Path)
	if cfg.Path == "" {
		opts = opts.WithInMemory(true)
	}
	opts = opts.WithLogger(nil)
	opts.Compression = options.Snappy

	db, err := badger.Open(opts)
	if err != nil {
		return nil, &aiserrors.PersistenceError{Op: "cooldown.Open", Err: err}
	}

	capacity := cfg.HotCacheCapacity
	if capacity <= 0 {
		capacity = 50000
	}
	return &Gate{
		db:  db,
		hot: cache.NewLRUCache(capacity, EntryTTL),
	}, nil
}

// Close releases the underlying Badger handle.
func (g *Gate) Close() error {
	return g.db.Close()
}

func cooldownKey(mmsi, ruleType string) string {
	return mmsi + "|" + ruleType
}

// Accept reports whether a candidate alert for (mmsi, ruleType) at
// candidateTS should be accepted, given a cooldown window of interval.
// It is a read-modify-write: on accept, the gate durably records
// candidateTS as the new last-alert timestamp for this (mmsi, ruleType)
// pair so a subsequent candidate within interval is suppressed.
//
// Comparisons are against the candidate's own source timestamp, never
// wall clock, so cooldown behavior is identical in replay at any
// speedup.
func (g *Gate) Accept(ctx context.Context, mmsi string, ruleType string, candidateTS time.Time, interval time.Duration) (bool, error) {
	key := cooldownKey(mmsi, ruleType)

	if last, ok := g.hot.Get(key); ok {
		if candidateTS.Sub(last) < interval {
			return false, nil
		}
	} else if last, ok, err := g.lookup(key); err != nil {
		return false, err
	} else if ok {
		g.hot.Add(key, last)
		if candidateTS.Sub(last) < interval {
			return false, nil
		}
	}

	if err := g.record(key, candidateTS); err != nil {
		return false, err
	}
	g.hot.Add(key, candidateTS)
	metrics.CooldownCacheSize.Set(float64(g.hot.Len()))
	return true, nil
}

func (g *Gate) lookup(key string) (time.Time, bool, error) {
	var last time.Time
	found := false
	err := g.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(key))
		if err == badger.ErrKeyNotFound {
			return nil
		}
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			parsed, err := time.Parse(time.RFC3339Nano, string(val))
			if err != nil {
				return err
			}
			last, found = parsed, true
			return nil
		})
	})
	if err != nil {
		return time.Time{}, false, &aiserrors.PersistenceError{Op: "cooldown.lookup", Err: err}
	}
	return last, found, nil
}

func (g *Gate) record(key string, ts time.Time) error {
	err := g.db.Update(func(txn *badger.Txn) error {
		entry := badger.NewEntry([]byte(key), []byte(ts.Format(time.RFC3339Nano))).WithTTL(EntryTTL)
		return txn.SetEntry(entry)
	})
	if err != nil {
		return &aiserrors.PersistenceError{Op: "cooldown.record", Err: err}
	}
	return nil
}

// Cleanup runs until ctx is cancelled, periodically running Badger's
// value-log garbage collection so expired (TTL'd) cooldown keys are
// reclaimed from disk. Badger's own TTL already makes expired keys
// invisible to reads; this only recovers their storage.
func (g *Gate) Cleanup(ctx context.Context, interval time.Duration) error {
	if interval <= 0 {
		interval = time.Hour
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		again:
			if err := g.db.RunValueLogGC(0.5); err == nil {
				goto again
			} else if err != badger.ErrNoRewrite {
				logging.Warn().Err(err).Msg("cooldown value-log GC failed")
			}
		}
	}
}

// String satisfies suture.Service for supervised restart of Cleanup.
type CleanupService struct {
	Gate     *Gate
	Interval time.Duration
}

func (s *CleanupService) Serve(ctx context.Context) error {
	return s.Gate.Cleanup(ctx, s.Interval)
}

func (s *CleanupService) String() string {
	return fmt.Sprintf("cooldown.CleanupService(interval=%s)", s.Interval)
}
