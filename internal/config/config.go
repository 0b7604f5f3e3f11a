// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package config provides unified configuration loading and management for foliogate.
//
// Supports both TOML and JSON configuration formats, with sensible defaults,
// environment variable overrides, and validation.
//
// Configuration file locations (in order of precedence):
//   - ~/.foliogate/config.toml
//   - ~/.foliogate/config.json
//   - Built-in defaults
package config

import (
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/jeranaias/foliogate/internal/util"
)

// =============================================================================
// CONFIG STRUCTURES
// =============================================================================

// Config represents the complete foliogate configuration.
type Config struct {
	// General settings
	Version string `toml:"version" json:"version"`

	// Gateway HTTP server configuration
	Gateway GatewayConfig `toml:"gateway" json:"gateway"`

	// Upstream backend configuration
	Upstream UpstreamConfig `toml:"upstream" json:"upstream"`

	// UI configuration (terminal dashboard)
	UI UIConfig `toml:"ui" json:"ui"`

	// Telemetry configuration
	Telemetry TelemetryConfig `toml:"telemetry" json:"telemetry"`
}

// GatewayConfig contains the HTTP gateway configuration.
type GatewayConfig struct {
	// Port is the TCP port the gateway listens on
	Port int `toml:"port" json:"port"`
	// PublicBaseURL is the externally visible base URL of the gateway.
	// Used by clients (dashboard, chat REPL) to reach the proxy routes.
	PublicBaseURL string `toml:"public_base_url" json:"public_base_url"`
	// AllowedOrigins is the CORS origin allowlist for browser clients
	AllowedOrigins []string `toml:"allowed_origins" json:"allowed_origins"`
	// RateLimitPerMinute is the per-IP request budget (0 = disabled)
	RateLimitPerMinute int `toml:"rate_limit_per_minute" json:"rate_limit_per_minute"`
}

// UpstreamConfig contains the backend (FastAPI) configuration.
type UpstreamConfig struct {
	// BaseURL is the URL of the backend the gateway forwards to
	BaseURL string `toml:"base_url" json:"base_url"`
	// AdminSecret authenticates the gateway to the backend admin routes.
	// Server-side only: never echoed to clients in any response.
	AdminSecret string `toml:"admin_secret" json:"admin_secret"`
	// TimeoutSecs is the per-request timeout for upstream calls
	TimeoutSecs int `toml:"timeout_secs" json:"timeout_secs"`
}

// UIConfig contains terminal dashboard configuration.
type UIConfig struct {
	// Theme is the UI theme: "dark", "light", "auto"
	Theme string `toml:"theme" json:"theme"`
	// GatePassword protects the admin view in the dashboard.
	// Cosmetic gate only; real authorization is the upstream admin secret.
	GatePassword string `toml:"gate_password" json:"gate_password"`
	// SearchDebounceMs is the search dialog re-filter delay in milliseconds
	SearchDebounceMs int `toml:"search_debounce_ms" json:"search_debounce_ms"`
	// CompactMode uses a more compact dashboard layout
	CompactMode bool `toml:"compact_mode" json:"compact_mode"`
}

// SearchDebounce returns the search re-filter delay as a duration.
func (u UIConfig) SearchDebounce() time.Duration {
	return time.Duration(u.SearchDebounceMs) * time.Millisecond
}

// TelemetryConfig contains request metrics configuration.
type TelemetryConfig struct {
	// Enabled controls whether per-route counters are collected
	Enabled bool `toml:"enabled" json:"enabled"`
	// HistoryPath is the sqlite file for counter snapshots
	// (empty = ~/.foliogate/telemetry.db)
	HistoryPath string `toml:"history_path" json:"history_path"`
}

// =============================================================================
// DEFAULT CONFIGURATION
// =============================================================================

// Default returns a Config with sensible default values.
func Default() *Config {
	return &Config{
		Version: "1.0.0",

		Gateway: GatewayConfig{
			Port:          8790,
			PublicBaseURL: "http://127.0.0.1:8790",
			AllowedOrigins: []string{
				"http://localhost",
				"http://localhost:3000",
				"http://127.0.0.1",
				"http://127.0.0.1:3000",
			},
			RateLimitPerMinute: 120,
		},

		Upstream: UpstreamConfig{
			BaseURL:     "http://localhost:8000",
			AdminSecret: "",
			TimeoutSecs: 30,
		},

		UI: UIConfig{
			Theme:            "dark",
			GatePassword:     "",
			SearchDebounceMs: 150,
			CompactMode:      false,
		},

		Telemetry: TelemetryConfig{
			Enabled:     true,
			HistoryPath: "",
		},
	}
}

// =============================================================================
// CONFIG PATH HELPERS
// =============================================================================

// ConfigDir returns the foliogate configuration directory path.
func ConfigDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("could not determine home directory: %w", err)
	}
	return filepath.Join(home, ".foliogate"), nil
}

// ConfigPathTOML returns the path to the TOML config file.
func ConfigPathTOML() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.toml"), nil
}

// ConfigPathJSON returns the path to the JSON config file.
func ConfigPathJSON() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.json"), nil
}

// EnsureConfigDir ensures the config directory exists.
func EnsureConfigDir() error {
	dir, err := ConfigDir()
	if err != nil {
		return err
	}
	return os.MkdirAll(dir, 0755)
}

// ensureSecurePermissions checks and fixes permissions on config files.
// SECURITY: Config files should be 0600 (owner read/write only) to protect the admin secret.
func ensureSecurePermissions(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return err // File doesn't exist or not accessible
	}

	mode := info.Mode().Perm()
	if mode != 0600 {
		if err := os.Chmod(path, 0600); err != nil {
			return fmt.Errorf("failed to fix insecure permissions (was %o): %w", mode, err)
		}
	}

	return nil
}

// =============================================================================
// LOAD FUNCTIONS
// =============================================================================

// Load loads configuration from the config file(s).
// Tries TOML first, then JSON, and falls back to defaults.
// Environment overrides are applied last.
func Load() (*Config, error) {
	cfg := Default()
	var loadErr error

	// Try TOML first
	tomlPath, err := ConfigPathTOML()
	if err == nil {
		if _, statErr := os.Stat(tomlPath); statErr == nil {
			if err := LoadTOML(cfg, tomlPath); err != nil {
				loadErr = fmt.Errorf("failed to load TOML config: %w", err)
			} else {
				return finalize(cfg)
			}
		}
	}

	// Try JSON as fallback
	jsonPath, err := ConfigPathJSON()
	if err == nil {
		if _, statErr := os.Stat(jsonPath); statErr == nil {
			if err := LoadJSON(cfg, jsonPath); err != nil {
				loadErr = fmt.Errorf("failed to load JSON config: %w", err)
			} else {
				return finalize(cfg)
			}
		}
	}

	cfg, err = finalize(cfg)
	if err != nil {
		return nil, err
	}

	// Return defaults (with any load error for informational purposes)
	return cfg, loadErr
}

// finalize applies env overrides, defaults, and validation to a loaded config.
func finalize(cfg *Config) (*Config, error) {
	cfg.ApplyEnvOverrides()
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// LoadTOML loads configuration from a TOML file.
// SECURITY: Checks and fixes file permissions on load.
func LoadTOML(cfg *Config, path string) error {
	if err := ensureSecurePermissions(path); err != nil {
		// Log warning but don't fail - permissions might not be fixable on all systems
		fmt.Fprintf(os.Stderr, "Warning: could not ensure secure permissions on %s: %v\n", path, err)
	}

	_, err := toml.DecodeFile(path, cfg)
	if err != nil {
		return fmt.Errorf("failed to decode TOML file: %w", err)
	}
	return nil
}

// LoadJSON loads configuration from a JSON file.
// SECURITY: Checks and fixes file permissions on load.
func LoadJSON(cfg *Config, path string) error {
	if err := ensureSecurePermissions(path); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: could not ensure secure permissions on %s: %v\n", path, err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read JSON file: %w", err)
	}
	if err := json.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("failed to decode JSON file: %w", err)
	}
	return nil
}

// LoadFromPath loads configuration from a specific file path with full validation.
func LoadFromPath(path string) (*Config, error) {
	cfg := Default()

	if strings.HasSuffix(path, ".json") {
		if err := LoadJSON(cfg, path); err != nil {
			return nil, fmt.Errorf("failed to load JSON config from %s: %w", path, err)
		}
	} else {
		// Default to TOML
		if err := LoadTOML(cfg, path); err != nil {
			return nil, fmt.Errorf("failed to load TOML config from %s: %w", path, err)
		}
	}

	return finalize(cfg)
}

// =============================================================================
// SAVE FUNCTIONS
// =============================================================================

// Save saves the configuration to the default TOML file.
func Save(cfg *Config) error {
	path, err := ConfigPathTOML()
	if err != nil {
		return err
	}
	return SaveTOML(cfg, path)
}

// SaveTOML saves the configuration to a TOML file.
// SECURITY: Creates config files with 0600 permissions (owner read/write only).
func SaveTOML(cfg *Config, path string) error {
	if err := EnsureConfigDir(); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	file, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0600)
	if err != nil {
		return fmt.Errorf("failed to create config file: %w", err)
	}
	defer file.Close()

	// SECURITY: Ensure permissions are correct even if file already existed
	if err := os.Chmod(path, 0600); err != nil {
		return fmt.Errorf("failed to set config file permissions: %w", err)
	}

	// Write header comment
	fmt.Fprintln(file, "# foliogate configuration file")
	fmt.Fprintln(file, "# Generated by foliogate - edit with care")
	fmt.Fprintln(file, "#")
	fmt.Fprintln(file, "# Documentation: https://github.com/jeranaias/foliogate")
	fmt.Fprintln(file, "")

	encoder := toml.NewEncoder(file)
	if err := encoder.Encode(cfg); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}

	return nil
}

// SaveJSON saves the configuration to a JSON file.
// SECURITY: Creates config files with 0600 permissions (owner read/write only).
// RELIABILITY: Atomic write with fsync prevents data loss on crash
func SaveJSON(cfg *Config, path string) error {
	if err := EnsureConfigDir(); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}

	if err := util.AtomicWriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// =============================================================================
// VALIDATION
// =============================================================================

// ValidationError represents a configuration validation error.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidateErrors is a collection of validation errors.
type ValidateErrors []ValidationError

func (e ValidateErrors) Error() string {
	if len(e) == 0 {
		return "no validation errors"
	}
	var msgs []string
	for _, err := range e {
		msgs = append(msgs, err.Error())
	}
	return strings.Join(msgs, "; ")
}

// Validate validates the configuration and returns any errors.
func (c *Config) Validate() error {
	var errs ValidateErrors

	// Gateway settings
	if c.Gateway.Port < 1 || c.Gateway.Port > 65535 {
		errs = append(errs, ValidationError{
			Field:   "gateway.port",
			Message: fmt.Sprintf("port must be 1-65535, got %d", c.Gateway.Port),
		})
	}
	if c.Gateway.RateLimitPerMinute < 0 {
		errs = append(errs, ValidationError{
			Field:   "gateway.rate_limit_per_minute",
			Message: "must be non-negative",
		})
	}
	if c.Gateway.PublicBaseURL != "" {
		if u, err := url.Parse(c.Gateway.PublicBaseURL); err != nil || u.Scheme == "" || u.Host == "" {
			errs = append(errs, ValidationError{
				Field:   "gateway.public_base_url",
				Message: fmt.Sprintf("invalid URL '%s'", c.Gateway.PublicBaseURL),
			})
		}
	}

	// Upstream settings
	if c.Upstream.BaseURL != "" {
		if u, err := url.Parse(c.Upstream.BaseURL); err != nil || u.Scheme == "" || u.Host == "" {
			errs = append(errs, ValidationError{
				Field:   "upstream.base_url",
				Message: fmt.Sprintf("invalid URL '%s'", c.Upstream.BaseURL),
			})
		}
	}
	if c.Upstream.TimeoutSecs < 1 || c.Upstream.TimeoutSecs > 300 {
		errs = append(errs, ValidationError{
			Field:   "upstream.timeout_secs",
			Message: fmt.Sprintf("timeout must be 1-300 seconds, got %d", c.Upstream.TimeoutSecs),
		})
	}

	// UI settings
	validThemes := map[string]bool{"dark": true, "light": true, "auto": true}
	if !validThemes[strings.ToLower(c.UI.Theme)] {
		errs = append(errs, ValidationError{
			Field:   "ui.theme",
			Message: fmt.Sprintf("invalid theme '%s', must be one of: dark, light, auto", c.UI.Theme),
		})
	}
	if c.UI.SearchDebounceMs < 0 || c.UI.SearchDebounceMs > 2000 {
		errs = append(errs, ValidationError{
			Field:   "ui.search_debounce_ms",
			Message: fmt.Sprintf("debounce must be 0-2000 ms, got %d", c.UI.SearchDebounceMs),
		})
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

// SetDefaults sets default values for any missing or zero-value configuration fields.
func (c *Config) SetDefaults() {
	defaults := Default()

	if c.Version == "" {
		c.Version = defaults.Version
	}

	// Gateway defaults
	if c.Gateway.Port == 0 {
		c.Gateway.Port = defaults.Gateway.Port
	}
	if c.Gateway.PublicBaseURL == "" {
		c.Gateway.PublicBaseURL = fmt.Sprintf("http://127.0.0.1:%d", c.Gateway.Port)
	}
	if c.Gateway.AllowedOrigins == nil {
		c.Gateway.AllowedOrigins = defaults.Gateway.AllowedOrigins
	}

	// Upstream defaults
	if c.Upstream.BaseURL == "" {
		c.Upstream.BaseURL = defaults.Upstream.BaseURL
	}
	if c.Upstream.TimeoutSecs == 0 {
		c.Upstream.TimeoutSecs = defaults.Upstream.TimeoutSecs
	}

	// UI defaults
	if c.UI.Theme == "" {
		c.UI.Theme = defaults.UI.Theme
	}
	if c.UI.SearchDebounceMs == 0 {
		c.UI.SearchDebounceMs = defaults.UI.SearchDebounceMs
	}

	// Trailing slashes break path joining against the upstream
	c.Upstream.BaseURL = strings.TrimSuffix(c.Upstream.BaseURL, "/")
	c.Gateway.PublicBaseURL = strings.TrimSuffix(c.Gateway.PublicBaseURL, "/")
}

// =============================================================================
// ENVIRONMENT OVERRIDES
// =============================================================================

// ApplyEnvOverrides applies environment variable overrides to the config.
//
// Supported environment variables:
//   - FOLIOGATE_PORT: overrides gateway.port
//   - FOLIOGATE_PUBLIC_API_URL: overrides gateway.public_base_url
//   - FOLIOGATE_BACKEND_URL: overrides upstream.base_url
//   - FOLIOGATE_ADMIN_SECRET: overrides upstream.admin_secret
//   - FOLIOGATE_UI_GATE: overrides ui.gate_password
func (c *Config) ApplyEnvOverrides() {
	// FOLIOGATE_PORT
	if port := os.Getenv("FOLIOGATE_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			c.Gateway.Port = p
		}
	}

	// FOLIOGATE_PUBLIC_API_URL
	if u := os.Getenv("FOLIOGATE_PUBLIC_API_URL"); u != "" {
		c.Gateway.PublicBaseURL = u
	}

	// FOLIOGATE_BACKEND_URL
	if u := os.Getenv("FOLIOGATE_BACKEND_URL"); u != "" {
		c.Upstream.BaseURL = u
	}

	// FOLIOGATE_ADMIN_SECRET
	if secret := os.Getenv("FOLIOGATE_ADMIN_SECRET"); secret != "" {
		c.Upstream.AdminSecret = secret
	}

	// FOLIOGATE_UI_GATE
	if gate := os.Getenv("FOLIOGATE_UI_GATE"); gate != "" {
		c.UI.GatePassword = gate
	}
}

// =============================================================================
// HELPER FUNCTIONS
// =============================================================================

// Clone creates a deep copy of the configuration.
// SECURITY: Deep copy prevents unintended mutation of the original config
// through shared slice references.
func (c *Config) Clone() *Config {
	clone := *c

	if c.Gateway.AllowedOrigins != nil {
		clone.Gateway.AllowedOrigins = make([]string, len(c.Gateway.AllowedOrigins))
		copy(clone.Gateway.AllowedOrigins, c.Gateway.AllowedOrigins)
	}

	return &clone
}

// String returns a string representation of the config for debugging.
// SECURITY: Redacts the admin secret and UI gate password to prevent
// accidental exposure in logs, error messages, or debug output.
func (c *Config) String() string {
	safe := c.Clone()

	if safe.Upstream.AdminSecret != "" {
		safe.Upstream.AdminSecret = "[REDACTED]"
	}
	if safe.UI.GatePassword != "" {
		safe.UI.GatePassword = "[REDACTED]"
	}

	data, _ := json.MarshalIndent(safe, "", "  ")
	return string(data)
}

// =============================================================================
// SINGLETON PATTERN (THREAD-SAFE)
// =============================================================================

var (
	globalConfig     *Config
	globalConfigOnce sync.Once
	globalConfigMu   sync.RWMutex
)

// Global returns the global configuration instance.
// Loads configuration on first access. Thread-safe.
func Global() *Config {
	globalConfigOnce.Do(func() {
		// SetGlobal may have installed a config before first access
		if globalConfig != nil {
			return
		}
		cfg, err := Load()
		if err != nil {
			// Log but don't fail - use defaults
			fmt.Fprintf(os.Stderr, "Warning: %v (using defaults)\n", err)
		}
		globalConfig = cfg
	})

	globalConfigMu.RLock()
	defer globalConfigMu.RUnlock()
	return globalConfig
}

// ReloadGlobal reloads the global configuration from disk. Thread-safe.
func ReloadGlobal() error {
	cfg, err := Load()
	if err != nil {
		return err
	}
	globalConfigMu.Lock()
	defer globalConfigMu.Unlock()
	globalConfig = cfg
	return nil
}

// SetGlobal sets the global configuration instance. Thread-safe.
func SetGlobal(cfg *Config) {
	globalConfigMu.Lock()
	defer globalConfigMu.Unlock()
	globalConfig = cfg
}

// ResetGlobalForTesting resets the global config state for testing.
// This should only be used in tests to reset state between test runs.
func ResetGlobalForTesting() {
	globalConfigMu.Lock()
	defer globalConfigMu.Unlock()
	globalConfig = nil
	globalConfigOnce = sync.Once{}
}
