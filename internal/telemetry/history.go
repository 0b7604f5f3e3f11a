// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package telemetry

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// =============================================================================
// SQLITE-BACKED COUNTER HISTORY
// =============================================================================

// Common history errors.
var (
	// ErrHistoryClosed indicates an operation on a closed history store.
	ErrHistoryClosed = errors.New("telemetry history is closed")
)

// historySchema holds only aggregate route counters. No request payloads,
// no client addresses.
const historySchema = `
CREATE TABLE IF NOT EXISTS route_totals (
	route            TEXT PRIMARY KEY,
	requests         INTEGER NOT NULL DEFAULT 0,
	errors           INTEGER NOT NULL DEFAULT 0,
	total_latency_ms INTEGER NOT NULL DEFAULT 0,
	updated_at       INTEGER NOT NULL
);
`

// History persists route counters across gateway restarts.
type History struct {
	db   *sql.DB
	path string
}

// DefaultHistoryPath returns ~/.foliogate/telemetry.db.
func DefaultHistoryPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("could not determine home directory: %w", err)
	}
	return filepath.Join(home, ".foliogate", "telemetry.db"), nil
}

// OpenHistory opens (or creates) the counter database at path.
// An empty path uses DefaultHistoryPath.
func OpenHistory(path string) (*History, error) {
	if path == "" {
		var err error
		path, err = DefaultHistoryPath()
		if err != nil {
			return nil, err
		}
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create telemetry directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open telemetry database: %w", err)
	}

	// Single writer; sqlite does not benefit from more connections here
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA temp_store=MEMORY",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to set pragma: %w", err)
		}
	}

	if _, err := db.Exec(historySchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize telemetry schema: %w", err)
	}

	return &History{db: db, path: path}, nil
}

// Path returns the database file path.
func (h *History) Path() string {
	return h.path
}

// Totals loads the persisted counters, keyed by route.
func (h *History) Totals() (map[string]RouteStats, error) {
	if h.db == nil {
		return nil, ErrHistoryClosed
	}

	rows, err := h.db.Query("SELECT route, requests, errors, total_latency_ms FROM route_totals")
	if err != nil {
		return nil, fmt.Errorf("failed to load totals: %w", err)
	}
	defer rows.Close()

	totals := make(map[string]RouteStats)
	for rows.Next() {
		var route string
		var stats RouteStats
		if err := rows.Scan(&route, &stats.Requests, &stats.Errors, &stats.TotalLatencyMs); err != nil {
			return nil, fmt.Errorf("failed to scan totals: %w", err)
		}
		totals[route] = stats
	}

	return totals, rows.Err()
}

// Save writes a metrics snapshot. Snapshot counters are cumulative
// (seeded from Totals at startup), so this is a plain upsert.
func (h *History) Save(snap Snapshot) error {
	if h.db == nil {
		return ErrHistoryClosed
	}

	tx, err := h.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	now := time.Now().Unix()
	for route, stats := range snap.Routes {
		_, err := tx.Exec(`
			INSERT INTO route_totals (route, requests, errors, total_latency_ms, updated_at)
			VALUES (?, ?, ?, ?, ?)
			ON CONFLICT(route) DO UPDATE SET
				requests = excluded.requests,
				errors = excluded.errors,
				total_latency_ms = excluded.total_latency_ms,
				updated_at = excluded.updated_at
		`, route, stats.Requests, stats.Errors, stats.TotalLatencyMs, now)
		if err != nil {
			return fmt.Errorf("failed to save totals for %s: %w", route, err)
		}
	}

	return tx.Commit()
}

// Close releases the database handle.
func (h *History) Close() error {
	if h.db == nil {
		return nil
	}
	err := h.db.Close()
	h.db = nil
	return err
}
