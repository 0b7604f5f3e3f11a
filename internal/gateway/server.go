// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package gateway provides the HTTP proxy server fronting the portfolio backend.
//
// Endpoints:
//   - POST /api/contact           - Validated contact form forwarding
//   - GET  /api/admin/messages    - Admin message listing (secret attached server-side)
//   - POST /api/agent/chat        - Chat agent proxy
//   - POST /api/agent/chat/stream - Chat agent SSE relay
//   - GET  /api/blog              - Blog listing / single post proxy
//   - GET  /api/github/stats      - GitHub stats proxy
//   - GET  /health                - Gateway + backend health
//   - GET  /stats                 - Per-route usage statistics
//
// Every route makes exactly one backend call and never retries. Error
// responses are always {"error": "..."} JSON. The admin secret is attached
// on the way out and never appears in anything sent back to a client.
package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"regexp"
	"strconv"
	"sync"
	"time"

	"github.com/jeranaias/foliogate/internal/telemetry"
	"github.com/jeranaias/foliogate/internal/upstream"
)

// ============================================================================
// CONSTANTS
// ============================================================================

const (
	// DefaultPort is the default port for the gateway.
	DefaultPort = 8790

	// MaxRequestBodySize is the maximum size for request bodies (1MB).
	MaxRequestBodySize = 1 * 1024 * 1024

	// healthCheckTimeout bounds the backend probe inside /health.
	healthCheckTimeout = 2 * time.Second

	// Version is the gateway version.
	Version = "1.0.0"
)

// emailPattern is the contact form email check: one non-whitespace local
// part, an @, a domain with at least one dot.
var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// ============================================================================
// SERVER
// ============================================================================

// Server is the HTTP proxy server.
type Server struct {
	port   int
	router *http.ServeMux
	server *http.Server

	backend *upstream.Client
	metrics *telemetry.Metrics
	cors    *CORSConfig
	limiter *RateLimiter

	mu sync.RWMutex
}

// NewServer creates a new Server with the specified port.
// If port is 0, the default port (8790) is used.
func NewServer(port int) *Server {
	if port == 0 {
		port = DefaultPort
	}

	s := &Server{
		port:    port,
		router:  http.NewServeMux(),
		backend: upstream.NewClient(""),
		metrics: telemetry.NewMetrics(),
		cors:    DefaultCORSConfig(),
		limiter: DefaultRateLimiter(),
	}

	s.setupRoutes()
	return s
}

// WithBackend sets the backend client.
func (s *Server) WithBackend(client *upstream.Client) *Server {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.backend = client
	return s
}

// WithMetrics sets the metrics collector.
func (s *Server) WithMetrics(m *telemetry.Metrics) *Server {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.metrics = m
	return s
}

// WithCORS sets the CORS configuration.
func (s *Server) WithCORS(cors *CORSConfig) *Server {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cors = cors
	return s
}

// WithRateLimiter sets the rate limiter.
func (s *Server) WithRateLimiter(rl *RateLimiter) *Server {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.limiter = rl
	return s
}

// Port returns the server port.
func (s *Server) Port() int {
	return s.port
}

// Handler returns the fully assembled handler including middleware.
// Exposed for tests; Start uses the same chain.
func (s *Server) Handler() http.Handler {
	return Chain(
		RecoveryMiddleware(),
		SecurityHeadersMiddleware(),
		LoggingMiddleware(log.Default()),
		CORSMiddleware(s.cors),
		RateLimitMiddleware(s.limiter),
		s.metricsMiddleware(),
	)(s.router)
}

// ============================================================================
// ROUTES
// ============================================================================

// setupRoutes configures all HTTP routes.
func (s *Server) setupRoutes() {
	// Proxy endpoints
	s.router.HandleFunc("POST /api/contact", s.handleContact)
	s.router.HandleFunc("GET /api/admin/messages", s.handleAdminMessages)
	s.router.HandleFunc("POST /api/agent/chat", s.handleChat)
	s.router.HandleFunc("POST /api/agent/chat/stream", s.handleChatStream)
	s.router.HandleFunc("GET /api/blog", s.handleBlog)
	s.router.HandleFunc("GET /api/github/stats", s.handleGitHubStats)

	// Health and stats endpoints
	s.router.HandleFunc("GET /health", s.handleHealth)
	s.router.HandleFunc("GET /stats", s.handleStats)
}

// metricsMiddleware records per-route counters for /stats.
func (s *Server) metricsMiddleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			wrapped := newResponseWriter(w)
			next.ServeHTTP(wrapped, r)

			route := r.Pattern
			if route == "" {
				route = r.Method + " " + r.URL.Path
			}
			s.metrics.Record(route, wrapped.statusCode, time.Since(start))
		})
	}
}

// ============================================================================
// CONTACT HANDLER
// ============================================================================

// handleContact handles POST /api/contact.
//
// Validation failures never reach the backend: all four fields must be
// present and the email must match emailPattern before anything is sent.
func (s *Server) handleContact(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, MaxRequestBodySize)

	var msg upstream.ContactMessage
	if err := json.NewDecoder(r.Body).Decode(&msg); err != nil {
		log.Printf("CONTACT_INVALID_BODY | error=%v", err)
		s.writeError(w, http.StatusBadRequest, "Invalid request format")
		return
	}

	if msg.Name == "" || msg.Email == "" || msg.Subject == "" || msg.Message == "" {
		s.writeError(w, http.StatusBadRequest, "All fields are required")
		return
	}

	if !emailPattern.MatchString(msg.Email) {
		s.writeError(w, http.StatusBadRequest, "Invalid email format")
		return
	}

	raw, err := s.backendClient().SubmitContact(r.Context(), msg)
	if err != nil {
		s.writeUpstreamError(w, err, "Failed to send message")
		return
	}

	s.writeRaw(w, http.StatusOK, raw)
}

// ============================================================================
// ADMIN HANDLER
// ============================================================================

// handleAdminMessages handles GET /api/admin/messages.
//
// The admin secret is attached by the backend client; it never comes from
// the request and never goes back out in a response.
func (s *Server) handleAdminMessages(w http.ResponseWriter, r *http.Request) {
	backend := s.backendClient()

	if !backend.IsAdminConfigured() {
		s.writeError(w, http.StatusServiceUnavailable, "Admin not configured")
		return
	}

	raw, err := backend.Messages(r.Context())
	if err != nil {
		if be, ok := asBackendError(err); ok {
			detail := be.Message
			if detail == "" {
				detail = http.StatusText(be.Status)
			}
			s.writeError(w, http.StatusBadGateway, fmt.Sprintf("Backend %d: %s", be.Status, detail))
			return
		}
		log.Printf("ADMIN_UPSTREAM_ERROR | error=%v", err)
		s.writeError(w, http.StatusServiceUnavailable, "Backend unavailable")
		return
	}

	s.writeRaw(w, http.StatusOK, raw)
}

// ============================================================================
// CHAT HANDLERS
// ============================================================================

// handleChat handles POST /api/agent/chat.
func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, MaxRequestBodySize)

	var req upstream.ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Printf("CHAT_INVALID_BODY | error=%v", err)
		s.writeError(w, http.StatusBadRequest, "Invalid request format")
		return
	}

	if req.Message == "" {
		s.writeError(w, http.StatusBadRequest, "Message is required")
		return
	}

	raw, err := s.backendClient().Chat(r.Context(), req)
	if err != nil {
		s.writeUpstreamError(w, err, "Chat request failed")
		return
	}

	s.writeRaw(w, http.StatusOK, raw)
}

// handleChatStream handles POST /api/agent/chat/stream.
//
// The relay is byte-for-byte: SSE frames are never parsed or reassembled
// here, just copied through with a flush per read.
func (s *Server) handleChatStream(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, MaxRequestBodySize)

	var req upstream.ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Printf("STREAM_INVALID_BODY | error=%v", err)
		s.writeError(w, http.StatusBadRequest, "Invalid request format")
		return
	}

	if req.Message == "" {
		s.writeError(w, http.StatusBadRequest, "Message is required")
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		s.writeError(w, http.StatusInternalServerError, "Streaming not supported")
		return
	}

	stream, err := s.backendClient().ChatStream(r.Context(), req)
	if err != nil {
		log.Printf("STREAM_UPSTREAM_ERROR | error=%v", err)
		s.writeError(w, http.StatusServiceUnavailable, "Stream unavailable")
		return
	}
	defer stream.Close()

	// Set SSE headers
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	buf := make([]byte, 4096)
	for {
		n, err := stream.Read(buf)
		if n > 0 {
			if _, werr := w.Write(buf[:n]); werr != nil {
				// Client went away; stop relaying
				return
			}
			flusher.Flush()
		}
		if err != nil {
			return
		}
	}
}

// ============================================================================
// BLOG HANDLER
// ============================================================================

// handleBlog handles GET /api/blog.
//
// Query forwarding is allow-listed: a slug switches to the single-post
// route, otherwise only featured and limit pass through.
func (s *Server) handleBlog(w http.ResponseWriter, r *http.Request) {
	backend := s.backendClient()
	query := r.URL.Query()

	var raw json.RawMessage
	var err error

	if slug := query.Get("slug"); slug != "" {
		raw, err = backend.PostBySlug(r.Context(), slug)
	} else {
		q := upstream.BlogQuery{
			Featured: query.Get("featured") == "true",
		}
		if limit := query.Get("limit"); limit != "" {
			if n, perr := strconv.Atoi(limit); perr == nil && n > 0 {
				q.Limit = n
			}
		}
		raw, err = backend.Posts(r.Context(), q)
	}

	// Blog content changes out of band; never serve it stale
	w.Header().Set("Cache-Control", "no-store")

	if err != nil {
		s.writeUpstreamError(w, err, "Failed to fetch blog posts")
		return
	}

	s.writeRaw(w, http.StatusOK, raw)
}

// ============================================================================
// GITHUB STATS HANDLER
// ============================================================================

// handleGitHubStats handles GET /api/github/stats.
func (s *Server) handleGitHubStats(w http.ResponseWriter, r *http.Request) {
	raw, err := s.backendClient().Stats(r.Context())
	if err != nil {
		s.writeUpstreamError(w, err, "Failed to fetch GitHub stats")
		return
	}

	s.writeRaw(w, http.StatusOK, raw)
}

// ============================================================================
// HEALTH HANDLER
// ============================================================================

// HealthResponse represents the health check response.
type HealthResponse struct {
	Status          string `json:"status"`
	Version         string `json:"version"`
	BackendStatus   string `json:"backend_status"`
	AdminConfigured bool   `json:"admin_configured"`
}

// handleHealth handles GET /health.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	backend := s.backendClient()

	health := HealthResponse{
		Status:          "ok",
		Version:         Version,
		AdminConfigured: backend.IsAdminConfigured(),
	}

	ctx, cancel := context.WithTimeout(r.Context(), healthCheckTimeout)
	defer cancel()

	if err := backend.Health(ctx); err != nil {
		health.BackendStatus = "unavailable"
		health.Status = "degraded"
	} else {
		health.BackendStatus = "ok"
	}

	s.writeJSON(w, http.StatusOK, health)
}

// ============================================================================
// STATS HANDLER
// ============================================================================

// handleStats handles GET /stats.
func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, s.metrics.Snapshot())
}

// ============================================================================
// SERVER LIFECYCLE
// ============================================================================

// Start starts the HTTP server.
func (s *Server) Start() error {
	addr := fmt.Sprintf("127.0.0.1:%d", s.port)

	s.server = &http.Server{
		Addr:         addr,
		Handler:      s.Handler(),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	log.Printf("SERVER_START | addr=%s version=%s upstream=%s", addr, Version, s.backendClient().BaseURL())
	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}

	log.Printf("SERVER_SHUTDOWN | starting graceful shutdown")
	return s.server.Shutdown(ctx)
}

// ============================================================================
// HELPERS
// ============================================================================

// backendClient returns the current backend client.
func (s *Server) backendClient() *upstream.Client {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.backend
}

// writeJSON writes a JSON response.
func (s *Server) writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeRaw relays a backend body verbatim.
func (s *Server) writeRaw(w http.ResponseWriter, status int, raw json.RawMessage) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write(raw)
}

// writeError writes a JSON error response of the form {"error": "..."}.
func (s *Server) writeError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, map[string]string{"error": message})
}

// writeUpstreamError maps a backend client error onto the wire:
// *BackendError keeps the upstream status (with the extracted detail when
// present), everything else is 503 Backend unavailable.
func (s *Server) writeUpstreamError(w http.ResponseWriter, err error, fallback string) {
	if be, ok := asBackendError(err); ok {
		message := be.Message
		if message == "" {
			message = fallback
		}
		s.writeError(w, be.Status, message)
		return
	}

	log.Printf("UPSTREAM_ERROR | error=%v", err)
	s.writeError(w, http.StatusServiceUnavailable, "Backend unavailable")
}

// asBackendError unwraps err into an *upstream.BackendError if possible.
func asBackendError(err error) (*upstream.BackendError, bool) {
	var be *upstream.BackendError
	if errors.As(err, &be) {
		return be, true
	}
	return nil, false
}
