// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package upstream

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

// =============================================================================
// CLIENT CONSTRUCTION TESTS
// =============================================================================

func TestNewClient_Defaults(t *testing.T) {
	client := NewClient("")
	if client.BaseURL() != DefaultBaseURL {
		t.Errorf("BaseURL = %q, want %q", client.BaseURL(), DefaultBaseURL)
	}
	if client.IsAdminConfigured() {
		t.Error("IsAdminConfigured = true, want false")
	}
}

func TestNewClient_TrimsTrailingSlash(t *testing.T) {
	client := NewClient("http://api.example.com/")
	if client.BaseURL() != "http://api.example.com" {
		t.Errorf("BaseURL = %q, want trailing slash stripped", client.BaseURL())
	}
}

func TestWithAdminSecret_TrimsWhitespace(t *testing.T) {
	client := NewClient("").WithAdminSecret("  secret  ")
	if !client.IsAdminConfigured() {
		t.Error("trimmed secret should still configure admin")
	}

	client = NewClient("").WithAdminSecret("   ")
	if client.IsAdminConfigured() {
		t.Error("whitespace-only secret must not count as configured")
	}
}

// =============================================================================
// ERROR NORMALIZATION TESTS
// =============================================================================

func TestExtractDetail(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{"fastapi string detail", `{"detail":"Not found"}`, "Not found"},
		{"gateway error shape", `{"error":"Bad input"}`, "Bad input"},
		{"structured detail passes raw", `{"detail":[{"loc":["body"],"msg":"required"}]}`, `[{"loc":["body"],"msg":"required"}]`},
		{"empty body", ``, ""},
		{"not json", `<html>oops</html>`, ""},
		{"empty object", `{}`, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := extractDetail([]byte(tt.body)); got != tt.want {
				t.Errorf("extractDetail(%q) = %q, want %q", tt.body, got, tt.want)
			}
		})
	}
}

func TestDo_Non2xxBecomesBackendError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{"detail":"Post not found"}`))
	}))
	defer server.Close()

	client := NewClient(server.URL)
	_, err := client.PostBySlug(context.Background(), "missing")
	if err == nil {
		t.Fatal("expected an error")
	}

	var be *BackendError
	if !errors.As(err, &be) {
		t.Fatalf("error type = %T, want *BackendError", err)
	}
	if be.Status != http.StatusNotFound {
		t.Errorf("Status = %d, want 404", be.Status)
	}
	if be.Message != "Post not found" {
		t.Errorf("Message = %q, want %q", be.Message, "Post not found")
	}
}

func TestDo_TransportFailureMapsToErrUnavailable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	server.Close() // dial will fail

	client := NewClient(server.URL).WithTimeout(time.Second)
	err := client.Health(context.Background())

	if !errors.Is(err, ErrUnavailable) {
		t.Errorf("err = %v, want ErrUnavailable", err)
	}
}

func TestMessages_NotConfiguredFailsBeforeNetwork(t *testing.T) {
	called := false
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))
	defer server.Close()

	client := NewClient(server.URL)
	_, err := client.Messages(context.Background())

	if !errors.Is(err, ErrNotConfigured) {
		t.Errorf("err = %v, want ErrNotConfigured", err)
	}
	if called {
		t.Error("backend must not be called without a configured secret")
	}
}

func TestMessages_SendsAdminHeader(t *testing.T) {
	var gotToken string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotToken = r.Header.Get(AdminTokenHeader)
		w.Write([]byte(`{"messages":[]}`))
	}))
	defer server.Close()

	client := NewClient(server.URL).WithAdminSecret("top-secret")
	if _, err := client.Messages(context.Background()); err != nil {
		t.Fatalf("Messages: %v", err)
	}
	if gotToken != "top-secret" {
		t.Errorf("token header = %q, want top-secret", gotToken)
	}
}

// =============================================================================
// QUERY FORWARDING TESTS
// =============================================================================

func TestPosts_QueryParameters(t *testing.T) {
	var gotURL string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotURL = r.URL.String()
		w.Write([]byte(`[]`))
	}))
	defer server.Close()

	client := NewClient(server.URL)

	if _, err := client.Posts(context.Background(), BlogQuery{}); err != nil {
		t.Fatalf("Posts: %v", err)
	}
	if gotURL != "/api/blog" {
		t.Errorf("empty query URL = %q, want /api/blog", gotURL)
	}

	if _, err := client.Posts(context.Background(), BlogQuery{Featured: true, Limit: 3}); err != nil {
		t.Fatalf("Posts: %v", err)
	}
	if !strings.Contains(gotURL, "featured=true") || !strings.Contains(gotURL, "limit=3") {
		t.Errorf("query URL = %q, want featured and limit", gotURL)
	}
}

func TestPostBySlug_EscapesSlug(t *testing.T) {
	var gotPath string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.EscapedPath()
		w.Write([]byte(`{}`))
	}))
	defer server.Close()

	client := NewClient(server.URL)
	if _, err := client.PostBySlug(context.Background(), "a/b c"); err != nil {
		t.Fatalf("PostBySlug: %v", err)
	}
	if strings.Contains(gotPath, " ") || strings.Count(gotPath, "/") != 3 {
		t.Errorf("slug not path-escaped: %q", gotPath)
	}
}

// =============================================================================
// STREAMING TESTS
// =============================================================================

func TestChatStream_ReturnsBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Accept"); got != "text/event-stream" {
			t.Errorf("Accept = %q, want text/event-stream", got)
		}
		w.Write([]byte("data: hello\n\n"))
	}))
	defer server.Close()

	client := NewClient(server.URL)
	body, err := client.ChatStream(context.Background(), ChatRequest{Message: "hi"})
	if err != nil {
		t.Fatalf("ChatStream: %v", err)
	}
	defer body.Close()

	data, err := io.ReadAll(body)
	if err != nil {
		t.Fatalf("read stream: %v", err)
	}
	if string(data) != "data: hello\n\n" {
		t.Errorf("stream = %q, want frame verbatim", string(data))
	}
}

func TestChatStream_Non2xxClosedAndNormalized(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		w.Write([]byte(`{"detail":"agent offline"}`))
	}))
	defer server.Close()

	client := NewClient(server.URL)
	_, err := client.ChatStream(context.Background(), ChatRequest{Message: "hi"})

	var be *BackendError
	if !errors.As(err, &be) {
		t.Fatalf("error type = %T, want *BackendError", err)
	}
	if be.Status != http.StatusBadGateway || be.Message != "agent offline" {
		t.Errorf("BackendError = %+v, want 502/agent offline", be)
	}
}

// =============================================================================
// DECODE HELPER TESTS
// =============================================================================

func TestParseMessages_EnvelopeAndBareArray(t *testing.T) {
	envelope := json.RawMessage(`{"messages":[{"id":1,"name":"Ada"}]}`)
	bare := json.RawMessage(`[{"id":2,"name":"Grace"}]`)

	fromEnvelope, err := ParseMessages(envelope)
	if err != nil {
		t.Fatalf("envelope: %v", err)
	}
	if len(fromEnvelope) != 1 || fromEnvelope[0].Name != "Ada" {
		t.Errorf("envelope parse = %+v", fromEnvelope)
	}

	fromBare, err := ParseMessages(bare)
	if err != nil {
		t.Fatalf("bare array: %v", err)
	}
	if len(fromBare) != 1 || fromBare[0].ID != 2 {
		t.Errorf("bare parse = %+v", fromBare)
	}

	if _, err := ParseMessages(json.RawMessage(`"nope"`)); err == nil {
		t.Error("garbage should fail to parse")
	}
}

func TestParsePosts_EnvelopeAndBareArray(t *testing.T) {
	envelope := json.RawMessage(`{"posts":[{"slug":"one","featured":true}]}`)
	bare := json.RawMessage(`[{"slug":"two"}]`)

	fromEnvelope, err := ParsePosts(envelope)
	if err != nil {
		t.Fatalf("envelope: %v", err)
	}
	if len(fromEnvelope) != 1 || !fromEnvelope[0].Featured {
		t.Errorf("envelope parse = %+v", fromEnvelope)
	}

	fromBare, err := ParsePosts(bare)
	if err != nil {
		t.Fatalf("bare array: %v", err)
	}
	if len(fromBare) != 1 || fromBare[0].Slug != "two" {
		t.Errorf("bare parse = %+v", fromBare)
	}
}

func TestParseStats(t *testing.T) {
	raw := json.RawMessage(`{"public_repos":12,"followers":34,"total_stars":56,"top_languages":[{"name":"Go","count":9}]}`)

	stats, err := ParseStats(raw)
	if err != nil {
		t.Fatalf("ParseStats: %v", err)
	}
	if stats.PublicRepos != 12 || stats.TotalStars != 56 {
		t.Errorf("stats = %+v", stats)
	}
	if len(stats.TopLanguages) != 1 || stats.TopLanguages[0].Name != "Go" {
		t.Errorf("top languages = %+v", stats.TopLanguages)
	}
}

func TestParseChatReply(t *testing.T) {
	reply, err := ParseChatReply(json.RawMessage(`{"response":"hi","session_id":"s-9"}`))
	if err != nil {
		t.Fatalf("ParseChatReply: %v", err)
	}
	if reply.Response != "hi" || reply.SessionID != "s-9" {
		t.Errorf("reply = %+v", reply)
	}
}
