// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package gateway

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

// =============================================================================
// CORS TESTS
// =============================================================================

func TestCORSConfig_IsOriginAllowed(t *testing.T) {
	config := DefaultCORSConfig()

	tests := []struct {
		origin  string
		allowed bool
	}{
		{"http://localhost", true},
		{"http://localhost:3000", true},
		{"http://127.0.0.1:3000", true},
		{"http://evil.example.com", false},
		{"", false},
	}

	for _, tt := range tests {
		if got := config.isOriginAllowed(tt.origin); got != tt.allowed {
			t.Errorf("isOriginAllowed(%q) = %v, want %v", tt.origin, got, tt.allowed)
		}
	}
}

func TestCORSConfig_WildcardSubdomain(t *testing.T) {
	config := &CORSConfig{AllowedOrigins: []string{"*.example.com"}}

	if !config.isOriginAllowed("https://app.example.com") {
		t.Error("subdomain should be allowed by wildcard")
	}
	if config.isOriginAllowed("https://example.org") {
		t.Error("unrelated domain should not match wildcard")
	}
}

func TestCORSMiddleware_Preflight(t *testing.T) {
	handler := CORSMiddleware(DefaultCORSConfig())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("preflight must not reach the next handler")
	}))

	req := httptest.NewRequest(http.MethodOptions, "/api/contact", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	if w.Code != http.StatusNoContent {
		t.Errorf("status = %d, want 204", w.Code)
	}
	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "http://localhost:3000" {
		t.Errorf("Allow-Origin = %q, want origin echoed", got)
	}
}

func TestCORSMiddleware_DisallowedOriginGetsNoHeaders(t *testing.T) {
	handler := CORSMiddleware(DefaultCORSConfig())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("Origin", "http://evil.example.com")
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "" {
		t.Errorf("Allow-Origin = %q, want empty for disallowed origin", got)
	}
}

// =============================================================================
// RATE LIMITER TESTS
// =============================================================================

func TestRateLimiter_AllowsBurstThenLimits(t *testing.T) {
	// 60/min with burst 15
	rl := NewRateLimiter(60)

	allowed := 0
	for i := 0; i < 100; i++ {
		if rl.Allow("10.1.2.3") {
			allowed++
		}
	}

	if allowed == 0 {
		t.Fatal("no requests allowed at all")
	}
	if allowed == 100 {
		t.Error("limiter never kicked in over 100 immediate requests")
	}
}

func TestRateLimiter_PerIPIsolation(t *testing.T) {
	rl := NewRateLimiter(60)

	// Exhaust one IP
	for i := 0; i < 100; i++ {
		rl.Allow("10.0.0.1")
	}

	if !rl.Allow("10.0.0.2") {
		t.Error("a fresh IP must not inherit another IP's exhausted bucket")
	}
}

func TestRateLimitMiddleware_Returns429(t *testing.T) {
	rl := NewRateLimiter(60)
	handler := RateLimitMiddleware(rl)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	var last *httptest.ResponseRecorder
	for i := 0; i < 100; i++ {
		req := httptest.NewRequest(http.MethodGet, "/api/blog", nil)
		req.RemoteAddr = "203.0.113.9:1234"
		last = httptest.NewRecorder()
		handler.ServeHTTP(last, req)
	}

	if last.Code != http.StatusTooManyRequests {
		t.Errorf("status after 100 immediate requests = %d, want 429", last.Code)
	}
	if got := last.Header().Get("Retry-After"); got != "60" {
		t.Errorf("Retry-After = %q, want 60", got)
	}
}

// =============================================================================
// CLIENT IP TESTS
// =============================================================================

func TestGetClientIP_UntrustedPeerIgnoresForwardedHeaders(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "203.0.113.50:9999"
	req.Header.Set("X-Forwarded-For", "1.2.3.4")

	if got := GetClientIP(req); got != "203.0.113.50" {
		t.Errorf("GetClientIP = %q, want connection IP (spoofed header must be ignored)", got)
	}
}

func TestGetClientIP_TrustedProxyHonorsForwardedFor(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "127.0.0.1:9999"
	req.Header.Set("X-Forwarded-For", "198.51.100.7, 10.0.0.1")

	if got := GetClientIP(req); got != "198.51.100.7" {
		t.Errorf("GetClientIP = %q, want first forwarded IP", got)
	}
}

func TestGetClientIP_RejectsGarbageForwardedValue(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "127.0.0.1:9999"
	req.Header.Set("X-Forwarded-For", "not-an-ip")

	if got := GetClientIP(req); got != "127.0.0.1" {
		t.Errorf("GetClientIP = %q, want fallback to connection IP", got)
	}
}

// =============================================================================
// SECURITY HEADERS AND RECOVERY TESTS
// =============================================================================

func TestSecurityHeadersMiddleware(t *testing.T) {
	handler := SecurityHeadersMiddleware()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))

	expected := map[string]string{
		"X-Content-Type-Options": "nosniff",
		"X-Frame-Options":        "DENY",
	}
	for header, want := range expected {
		if got := w.Header().Get(header); got != want {
			t.Errorf("%s = %q, want %q", header, got, want)
		}
	}
}

func TestRecoveryMiddleware_CatchesPanic(t *testing.T) {
	handler := RecoveryMiddleware()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("handler blew up")
	}))

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))

	if w.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", w.Code)
	}
}

// =============================================================================
// CHAIN TESTS
// =============================================================================

func TestChain_AppliesInOrder(t *testing.T) {
	var order []string

	mw := func(name string) func(http.Handler) http.Handler {
		return func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				order = append(order, name)
				next.ServeHTTP(w, r)
			})
		}
	}

	handler := Chain(mw("first"), mw("second"))(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		order = append(order, "handler")
	}))

	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))

	want := []string{"first", "second", "handler"}
	if len(order) != len(want) {
		t.Fatalf("order = %v, want %v", order, want)
	}
	for i := range want {
		if order[i] != want[i] {
			t.Errorf("order[%d] = %q, want %q", i, order[i], want[i])
		}
	}
}
