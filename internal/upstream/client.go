// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package upstream provides the HTTP client for the portfolio backend.
//
// The backend exposes contact persistence, an admin message store, the chat
// agent, blog content, and GitHub stats aggregation. Every gateway route and
// every dashboard widget goes through this client, so error normalization
// lives here: transport failures map to ErrUnavailable, non-2xx responses map
// to *BackendError with the upstream detail extracted when present.
package upstream

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Configuration constants for the backend API.
const (
	// DefaultBaseURL is the backend used when none is configured.
	DefaultBaseURL = "http://localhost:8000"

	// DefaultTimeout is the default timeout for backend requests.
	DefaultTimeout = 30 * time.Second

	// MaxResponseSize is the maximum allowed response body size.
	// SECURITY: Response size limit prevents memory exhaustion attacks.
	MaxResponseSize = 10 * 1024 * 1024 // 10MB limit

	// AdminTokenHeader carries the admin secret to the backend.
	AdminTokenHeader = "X-Admin-Token"

	userAgent = "foliogate/1.0"
)

var (
	// PERFORMANCE: Connection pooling reduces TCP handshake overhead.
	// Shared HTTP client with connection pooling for all backend requests.
	sharedHTTPClient = &http.Client{
		Transport: &http.Transport{
			MaxIdleConns:        100,
			MaxIdleConnsPerHost: 10,
			IdleConnTimeout:     90 * time.Second,
			TLSHandshakeTimeout: 10 * time.Second,
		},
		Timeout: 60 * time.Second,
	}

	// sharedStreamingClient is used for streaming requests (no timeout, context-controlled).
	sharedStreamingClient = &http.Client{
		Transport: &http.Transport{
			MaxIdleConns:        100,
			MaxIdleConnsPerHost: 10,
			IdleConnTimeout:     90 * time.Second,
			TLSHandshakeTimeout: 10 * time.Second,
		},
		// No timeout for streaming - controlled via context
	}
)

// Error variables for common backend errors.
var (
	// ErrNotConfigured indicates the admin secret is not set.
	ErrNotConfigured = errors.New("admin secret not configured")

	// ErrUnavailable indicates the backend could not be reached.
	ErrUnavailable = errors.New("backend unavailable")

	// ErrNoBody indicates a stream response arrived without a body.
	ErrNoBody = errors.New("stream response has no body")
)

// BackendError represents a non-2xx response from the backend.
type BackendError struct {
	Status  int
	Message string
}

// Error implements the error interface.
func (e *BackendError) Error() string {
	return fmt.Sprintf("backend error (HTTP %d): %s", e.Status, e.Message)
}

// apiErrorResponse extracts the error detail from backend bodies.
// FastAPI uses {"detail": ...}; the gateway itself uses {"error": ...}.
type apiErrorResponse struct {
	Detail json.RawMessage `json:"detail"`
	Error  string          `json:"error"`
}

// =============================================================================
// DOMAIN TYPES
// =============================================================================

// ContactMessage is a contact form submission.
type ContactMessage struct {
	Name    string `json:"name"`
	Email   string `json:"email"`
	Subject string `json:"subject"`
	Message string `json:"message"`
}

// StoredMessage is a contact message as persisted by the backend.
type StoredMessage struct {
	ID        int    `json:"id"`
	Name      string `json:"name"`
	Email     string `json:"email"`
	Subject   string `json:"subject"`
	Message   string `json:"message"`
	CreatedAt string `json:"created_at"`
}

// ChatRequest is a message to the chat agent.
type ChatRequest struct {
	Message   string `json:"message"`
	SessionID string `json:"session_id,omitempty"`
}

// ChatReply is the agent's non-streaming answer.
type ChatReply struct {
	Response  string `json:"response"`
	SessionID string `json:"session_id"`
}

// BlogPost is a single blog entry.
type BlogPost struct {
	Slug     string   `json:"slug"`
	Title    string   `json:"title"`
	Summary  string   `json:"summary"`
	Content  string   `json:"content,omitempty"`
	Date     string   `json:"date"`
	Tags     []string `json:"tags,omitempty"`
	Featured bool     `json:"featured"`
}

// BlogQuery narrows a blog listing request.
// Only featured and limit are forwarded; everything else is dropped.
type BlogQuery struct {
	Featured bool
	Limit    int
}

// LanguageStat is one entry in the GitHub top-languages breakdown.
type LanguageStat struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

// GitHubStats is the aggregated GitHub profile summary.
type GitHubStats struct {
	PublicRepos  int            `json:"public_repos"`
	Followers    int            `json:"followers"`
	Following    int            `json:"following"`
	TotalStars   int            `json:"total_stars"`
	TopLanguages []LanguageStat `json:"top_languages"`
}

// =============================================================================
// CLIENT
// =============================================================================

// Client is a client for the portfolio backend API.
type Client struct {
	baseURL     string
	adminSecret string
	timeout     time.Duration
}

// NewClient creates a backend client for the given base URL.
// An empty URL falls back to DefaultBaseURL.
func NewClient(baseURL string) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		timeout: DefaultTimeout,
	}
}

// WithAdminSecret sets the secret sent on admin requests.
func (c *Client) WithAdminSecret(secret string) *Client {
	c.adminSecret = strings.TrimSpace(secret)
	return c
}

// WithTimeout sets the per-request timeout.
func (c *Client) WithTimeout(timeout time.Duration) *Client {
	c.timeout = timeout
	return c
}

// BaseURL returns the configured backend base URL.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// IsAdminConfigured returns true if an admin secret is set.
func (c *Client) IsAdminConfigured() bool {
	return c.adminSecret != ""
}

// =============================================================================
// REQUEST PLUMBING
// =============================================================================

// readResponse reads the response body with size limits.
// SECURITY: Response size limit prevents memory exhaustion attacks.
func readResponse(resp *http.Response) ([]byte, error) {
	limitedReader := io.LimitReader(resp.Body, MaxResponseSize)
	body, err := io.ReadAll(limitedReader)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if int64(len(body)) == MaxResponseSize {
		return nil, fmt.Errorf("response exceeded maximum size of %d bytes", MaxResponseSize)
	}

	return body, nil
}

// do performs one request and normalizes the outcome. Exactly one backend
// call per invocation; retries are the caller's problem and nobody's policy.
func (c *Client) do(ctx context.Context, method, requestURL string, body []byte, admin bool) (json.RawMessage, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, requestURL, reader)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	c.setHeaders(req, admin)

	resp, err := sharedHTTPClient.Do(req)

	// SECURITY: Drop the admin token from the request immediately after use
	// so it cannot leak through request dumps or error paths.
	req.Header.Del(AdminTokenHeader)

	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	respBody, err := readResponse(resp)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, handleErrorResponse(resp.StatusCode, respBody)
	}

	return json.RawMessage(respBody), nil
}

// setHeaders sets the required headers for backend requests.
func (c *Client) setHeaders(req *http.Request, admin bool) {
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", userAgent)
	if admin && c.adminSecret != "" {
		req.Header.Set(AdminTokenHeader, c.adminSecret)
	}
}

// handleErrorResponse converts non-2xx responses to *BackendError,
// extracting the upstream detail when the body carries one.
func handleErrorResponse(statusCode int, body []byte) error {
	return &BackendError{
		Status:  statusCode,
		Message: extractDetail(body),
	}
}

// extractDetail pulls a human-readable message out of an error body.
// Returns empty string when nothing usable is found.
func extractDetail(body []byte) string {
	var apiErr apiErrorResponse
	if err := json.Unmarshal(body, &apiErr); err == nil {
		if len(apiErr.Detail) > 0 {
			var s string
			if err := json.Unmarshal(apiErr.Detail, &s); err == nil {
				return s
			}
			// Structured detail (FastAPI validation errors): pass through raw
			return string(apiErr.Detail)
		}
		if apiErr.Error != "" {
			return apiErr.Error
		}
	}
	return ""
}

// =============================================================================
// OPERATIONS
// =============================================================================

// SubmitContact forwards a contact form submission to the backend.
// Returns the backend's response body verbatim.
func (c *Client) SubmitContact(ctx context.Context, msg ContactMessage) (json.RawMessage, error) {
	body, err := json.Marshal(msg)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}
	return c.do(ctx, http.MethodPost, c.baseURL+"/api/contact", body, false)
}

// Messages fetches the stored contact messages (admin only).
// Fails with ErrNotConfigured before any network call when no secret is set.
func (c *Client) Messages(ctx context.Context) (json.RawMessage, error) {
	if !c.IsAdminConfigured() {
		return nil, ErrNotConfigured
	}
	return c.do(ctx, http.MethodGet, c.baseURL+"/api/admin/messages", nil, true)
}

// Chat sends a message to the chat agent and returns the reply body verbatim.
func (c *Client) Chat(ctx context.Context, req ChatRequest) (json.RawMessage, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}
	return c.do(ctx, http.MethodPost, c.baseURL+"/api/agent/chat", body, false)
}

// ChatStream opens a streaming chat response. The caller owns the returned
// body and must close it; cancellation is via ctx (the streaming client has
// no timeout of its own).
func (c *Client) ChatStream(ctx context.Context, req ChatRequest) (io.ReadCloser, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/agent/chat/stream", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	c.setHeaders(httpReq, false)
	httpReq.Header.Set("Accept", "text/event-stream")

	resp, err := sharedStreamingClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		respBody, _ := readResponse(resp)
		resp.Body.Close()
		return nil, handleErrorResponse(resp.StatusCode, respBody)
	}

	if resp.Body == nil {
		return nil, ErrNoBody
	}

	return resp.Body, nil
}

// Posts fetches the blog listing. Only the featured flag and limit are
// forwarded as query parameters.
func (c *Client) Posts(ctx context.Context, q BlogQuery) (json.RawMessage, error) {
	params := url.Values{}
	if q.Featured {
		params.Set("featured", "true")
	}
	if q.Limit > 0 {
		params.Set("limit", fmt.Sprintf("%d", q.Limit))
	}

	requestURL := c.baseURL + "/api/blog"
	if len(params) > 0 {
		requestURL += "?" + params.Encode()
	}
	return c.do(ctx, http.MethodGet, requestURL, nil, false)
}

// PostBySlug fetches a single blog post.
func (c *Client) PostBySlug(ctx context.Context, slug string) (json.RawMessage, error) {
	return c.do(ctx, http.MethodGet, c.baseURL+"/api/blog/"+url.PathEscape(slug), nil, false)
}

// Stats fetches the aggregated GitHub profile stats.
func (c *Client) Stats(ctx context.Context) (json.RawMessage, error) {
	return c.do(ctx, http.MethodGet, c.baseURL+"/api/github/stats", nil, false)
}

// Health checks backend reachability.
func (c *Client) Health(ctx context.Context) error {
	_, err := c.do(ctx, http.MethodGet, c.baseURL+"/health", nil, false)
	return err
}

// =============================================================================
// DECODE HELPERS
// =============================================================================

// messagesEnvelope matches the backend's admin listing shape.
type messagesEnvelope struct {
	Messages []StoredMessage `json:"messages"`
}

// ParseMessages decodes an admin message listing. Accepts both the
// {"messages": [...]} envelope and a bare array.
func ParseMessages(raw json.RawMessage) ([]StoredMessage, error) {
	var env messagesEnvelope
	if err := json.Unmarshal(raw, &env); err == nil && env.Messages != nil {
		return env.Messages, nil
	}
	var list []StoredMessage
	if err := json.Unmarshal(raw, &list); err != nil {
		return nil, fmt.Errorf("failed to parse messages: %w", err)
	}
	return list, nil
}

// postsEnvelope matches the backend's blog listing shape.
type postsEnvelope struct {
	Posts []BlogPost `json:"posts"`
}

// ParsePosts decodes a blog listing. Accepts both the {"posts": [...]}
// envelope and a bare array.
func ParsePosts(raw json.RawMessage) ([]BlogPost, error) {
	var env postsEnvelope
	if err := json.Unmarshal(raw, &env); err == nil && env.Posts != nil {
		return env.Posts, nil
	}
	var list []BlogPost
	if err := json.Unmarshal(raw, &list); err != nil {
		return nil, fmt.Errorf("failed to parse posts: %w", err)
	}
	return list, nil
}

// ParsePost decodes a single blog post.
func ParsePost(raw json.RawMessage) (*BlogPost, error) {
	var post BlogPost
	if err := json.Unmarshal(raw, &post); err != nil {
		return nil, fmt.Errorf("failed to parse post: %w", err)
	}
	return &post, nil
}

// ParseChatReply decodes a non-streaming chat reply.
func ParseChatReply(raw json.RawMessage) (*ChatReply, error) {
	var reply ChatReply
	if err := json.Unmarshal(raw, &reply); err != nil {
		return nil, fmt.Errorf("failed to parse chat reply: %w", err)
	}
	return &reply, nil
}

// ParseStats decodes the GitHub stats payload.
func ParseStats(raw json.RawMessage) (*GitHubStats, error) {
	var stats GitHubStats
	if err := json.Unmarshal(raw, &stats); err != nil {
		return nil, fmt.Errorf("failed to parse stats: %w", err)
	}
	return &stats, nil
}
