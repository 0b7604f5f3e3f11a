// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package telemetry

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestHistory(t *testing.T) *History {
	t.Helper()
	path := filepath.Join(t.TempDir(), "telemetry.db")
	h, err := OpenHistory(path)
	require.NoError(t, err, "OpenHistory")
	t.Cleanup(func() { h.Close() })
	return h
}

// =============================================================================
// HISTORY TESTS
// =============================================================================

func TestOpenHistory_CreatesDatabase(t *testing.T) {
	h := openTestHistory(t)

	totals, err := h.Totals()
	require.NoError(t, err)
	assert.Empty(t, totals, "fresh database should have no counters")
}

func TestHistory_SaveAndReload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "telemetry.db")

	h, err := OpenHistory(path)
	require.NoError(t, err)

	m := NewMetrics()
	m.Record("GET /api/blog", 200, 15*time.Millisecond)
	m.Record("GET /api/blog", 500, 5*time.Millisecond)
	m.Record("POST /api/contact", 200, 8*time.Millisecond)

	require.NoError(t, h.Save(m.Snapshot()))
	require.NoError(t, h.Close())

	// Reopen and seed a fresh metrics instance, as serve does at startup
	h2, err := OpenHistory(path)
	require.NoError(t, err)
	defer h2.Close()

	totals, err := h2.Totals()
	require.NoError(t, err)

	assert.Equal(t, int64(2), totals["GET /api/blog"].Requests)
	assert.Equal(t, int64(1), totals["GET /api/blog"].Errors)
	assert.Equal(t, int64(20), totals["GET /api/blog"].TotalLatencyMs)
	assert.Equal(t, int64(1), totals["POST /api/contact"].Requests)
}

func TestHistory_SaveIsUpsert(t *testing.T) {
	h := openTestHistory(t)

	first := Snapshot{Routes: map[string]RouteStats{
		"GET /health": {Requests: 5, TotalLatencyMs: 50},
	}}
	require.NoError(t, h.Save(first))

	// Cumulative counters: a later save replaces, never adds
	second := Snapshot{Routes: map[string]RouteStats{
		"GET /health": {Requests: 12, TotalLatencyMs: 120},
	}}
	require.NoError(t, h.Save(second))

	totals, err := h.Totals()
	require.NoError(t, err)
	assert.Equal(t, int64(12), totals["GET /health"].Requests)
}

func TestHistory_ClosedOperationsFail(t *testing.T) {
	h := openTestHistory(t)
	require.NoError(t, h.Close())

	_, err := h.Totals()
	assert.ErrorIs(t, err, ErrHistoryClosed)

	err = h.Save(Snapshot{})
	assert.ErrorIs(t, err, ErrHistoryClosed)

	// Double close is fine
	assert.NoError(t, h.Close())
}

func TestHistory_RoundTripThroughSeed(t *testing.T) {
	h := openTestHistory(t)

	m := NewMetrics()
	m.Record("GET /stats", 200, 3*time.Millisecond)
	require.NoError(t, h.Save(m.Snapshot()))

	totals, err := h.Totals()
	require.NoError(t, err)

	m2 := NewMetrics()
	m2.Seed(totals)
	m2.Record("GET /stats", 200, 3*time.Millisecond)

	assert.Equal(t, int64(2), m2.Snapshot().Routes["GET /stats"].Requests)
}
