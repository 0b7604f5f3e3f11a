// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package telemetry provides request metrics for the gateway.
//
// Counters are gateway-side only: per-route request counts, error counts,
// and latency totals. None of the proxied payloads are ever recorded.
package telemetry

import (
	"sync"
	"time"
)

// =============================================================================
// ROUTE METRICS
// =============================================================================

// RouteStats holds the counters for a single route.
type RouteStats struct {
	Requests       int64 `json:"requests"`
	Errors         int64 `json:"errors"`
	TotalLatencyMs int64 `json:"total_latency_ms"`
}

// AvgLatencyMs returns the mean request latency in milliseconds.
func (s RouteStats) AvgLatencyMs() float64 {
	if s.Requests == 0 {
		return 0
	}
	return float64(s.TotalLatencyMs) / float64(s.Requests)
}

// Metrics tracks per-route gateway usage.
type Metrics struct {
	routes    map[string]*RouteStats
	startTime time.Time
	mu        sync.Mutex
}

// NewMetrics creates an empty Metrics instance.
func NewMetrics() *Metrics {
	return &Metrics{
		routes:    make(map[string]*RouteStats),
		startTime: time.Now(),
	}
}

// Record records one completed request for the given route.
// Statuses of 500 and above count as errors; 4xx responses are the
// client's fault and stay out of the error counter.
func (m *Metrics) Record(route string, status int, latency time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()

	stats, ok := m.routes[route]
	if !ok {
		stats = &RouteStats{}
		m.routes[route] = stats
	}

	stats.Requests++
	stats.TotalLatencyMs += latency.Milliseconds()
	if status >= 500 {
		stats.Errors++
	}
}

// Seed preloads route counters, typically from a persisted history so
// totals survive restarts.
func (m *Metrics) Seed(totals map[string]RouteStats) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for route, s := range totals {
		stats := s
		m.routes[route] = &stats
	}
}

// Uptime returns the time since the metrics were created.
func (m *Metrics) Uptime() time.Duration {
	return time.Since(m.startTime)
}

// =============================================================================
// SNAPSHOT
// =============================================================================

// Snapshot is a consistent copy of the current counters.
type Snapshot struct {
	Routes        map[string]RouteStats `json:"routes"`
	TotalRequests int64                 `json:"total_requests"`
	TotalErrors   int64                 `json:"total_errors"`
	UptimeSeconds int64                 `json:"uptime_seconds"`
}

// Snapshot returns a copy of the current stats.
func (m *Metrics) Snapshot() Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()

	snap := Snapshot{
		Routes:        make(map[string]RouteStats, len(m.routes)),
		UptimeSeconds: int64(time.Since(m.startTime).Seconds()),
	}

	for route, stats := range m.routes {
		snap.Routes[route] = *stats
		snap.TotalRequests += stats.Requests
		snap.TotalErrors += stats.Errors
	}

	return snap
}
