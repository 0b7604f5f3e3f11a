// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

// =============================================================================
// DEFAULT TESTS
// =============================================================================

func TestDefault(t *testing.T) {
	cfg := Default()

	if cfg.Gateway.Port != 8790 {
		t.Errorf("Gateway.Port = %d, want 8790", cfg.Gateway.Port)
	}
	if cfg.Upstream.BaseURL != "http://localhost:8000" {
		t.Errorf("Upstream.BaseURL = %q", cfg.Upstream.BaseURL)
	}
	if cfg.Upstream.AdminSecret != "" {
		t.Error("AdminSecret should default to empty")
	}
	if cfg.UI.Theme != "dark" {
		t.Errorf("UI.Theme = %q, want dark", cfg.UI.Theme)
	}
	if !cfg.Telemetry.Enabled {
		t.Error("Telemetry should default to enabled")
	}

	if err := cfg.Validate(); err != nil {
		t.Errorf("default config must validate: %v", err)
	}
}

func TestUIConfig_SearchDebounce(t *testing.T) {
	ui := UIConfig{SearchDebounceMs: 150}
	if got := ui.SearchDebounce(); got != 150*time.Millisecond {
		t.Errorf("SearchDebounce = %v, want 150ms", got)
	}
}

// =============================================================================
// VALIDATION TESTS
// =============================================================================

func TestValidate_Errors(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		field  string
	}{
		{"port zero", func(c *Config) { c.Gateway.Port = 0 }, "gateway.port"},
		{"port too high", func(c *Config) { c.Gateway.Port = 70000 }, "gateway.port"},
		{"negative rate limit", func(c *Config) { c.Gateway.RateLimitPerMinute = -1 }, "gateway.rate_limit_per_minute"},
		{"bad upstream url", func(c *Config) { c.Upstream.BaseURL = "not a url" }, "upstream.base_url"},
		{"timeout zero", func(c *Config) { c.Upstream.TimeoutSecs = 0 }, "upstream.timeout_secs"},
		{"timeout too long", func(c *Config) { c.Upstream.TimeoutSecs = 999 }, "upstream.timeout_secs"},
		{"bad theme", func(c *Config) { c.UI.Theme = "neon" }, "ui.theme"},
		{"debounce too long", func(c *Config) { c.UI.SearchDebounceMs = 5000 }, "ui.search_debounce_ms"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)

			err := cfg.Validate()
			if err == nil {
				t.Fatal("expected a validation error")
			}
			if !strings.Contains(err.Error(), tt.field) {
				t.Errorf("error %q does not name field %q", err.Error(), tt.field)
			}
		})
	}
}

func TestValidate_ThemeCaseInsensitive(t *testing.T) {
	cfg := Default()
	cfg.UI.Theme = "Light"

	if err := cfg.Validate(); err != nil {
		t.Errorf("mixed-case theme should validate: %v", err)
	}
}

// =============================================================================
// DEFAULTS AND NORMALIZATION TESTS
// =============================================================================

func TestSetDefaults_FillsZeroValues(t *testing.T) {
	cfg := &Config{}
	cfg.SetDefaults()

	if cfg.Gateway.Port != 8790 {
		t.Errorf("Port = %d, want 8790", cfg.Gateway.Port)
	}
	if cfg.Gateway.PublicBaseURL != "http://127.0.0.1:8790" {
		t.Errorf("PublicBaseURL = %q", cfg.Gateway.PublicBaseURL)
	}
	if cfg.Upstream.TimeoutSecs != 30 {
		t.Errorf("TimeoutSecs = %d, want 30", cfg.Upstream.TimeoutSecs)
	}
}

func TestSetDefaults_TrimsTrailingSlashes(t *testing.T) {
	cfg := Default()
	cfg.Upstream.BaseURL = "http://backend:8000/"
	cfg.Gateway.PublicBaseURL = "http://front:8790/"

	cfg.SetDefaults()

	if cfg.Upstream.BaseURL != "http://backend:8000" {
		t.Errorf("BaseURL = %q, want trailing slash stripped", cfg.Upstream.BaseURL)
	}
	if cfg.Gateway.PublicBaseURL != "http://front:8790" {
		t.Errorf("PublicBaseURL = %q, want trailing slash stripped", cfg.Gateway.PublicBaseURL)
	}
}

func TestSetDefaults_PublicURLFollowsPort(t *testing.T) {
	cfg := &Config{}
	cfg.Gateway.Port = 9100
	cfg.SetDefaults()

	if cfg.Gateway.PublicBaseURL != "http://127.0.0.1:9100" {
		t.Errorf("PublicBaseURL = %q, want derived from port", cfg.Gateway.PublicBaseURL)
	}
}

// =============================================================================
// ENVIRONMENT OVERRIDE TESTS
// =============================================================================

func TestApplyEnvOverrides(t *testing.T) {
	t.Setenv("FOLIOGATE_PORT", "9999")
	t.Setenv("FOLIOGATE_BACKEND_URL", "http://env-backend:8000")
	t.Setenv("FOLIOGATE_ADMIN_SECRET", "env-secret")
	t.Setenv("FOLIOGATE_UI_GATE", "env-gate")

	cfg := Default()
	cfg.ApplyEnvOverrides()

	if cfg.Gateway.Port != 9999 {
		t.Errorf("Port = %d, want 9999", cfg.Gateway.Port)
	}
	if cfg.Upstream.BaseURL != "http://env-backend:8000" {
		t.Errorf("BaseURL = %q", cfg.Upstream.BaseURL)
	}
	if cfg.Upstream.AdminSecret != "env-secret" {
		t.Errorf("AdminSecret = %q", cfg.Upstream.AdminSecret)
	}
	if cfg.UI.GatePassword != "env-gate" {
		t.Errorf("GatePassword = %q", cfg.UI.GatePassword)
	}
}

func TestApplyEnvOverrides_BadPortIgnored(t *testing.T) {
	t.Setenv("FOLIOGATE_PORT", "not-a-number")

	cfg := Default()
	cfg.ApplyEnvOverrides()

	if cfg.Gateway.Port != 8790 {
		t.Errorf("Port = %d, want unchanged default", cfg.Gateway.Port)
	}
}

// =============================================================================
// FILE LOAD TESTS
// =============================================================================

func TestLoadFromPath_TOML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	content := `
version = "1.0.0"

[gateway]
port = 9200
rate_limit_per_minute = 30

[upstream]
base_url = "http://toml-backend:8000/"
admin_secret = "toml-secret"
timeout_secs = 10

[ui]
theme = "light"
`
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadFromPath(path)
	if err != nil {
		t.Fatalf("LoadFromPath: %v", err)
	}

	if cfg.Gateway.Port != 9200 {
		t.Errorf("Port = %d, want 9200", cfg.Gateway.Port)
	}
	if cfg.Upstream.BaseURL != "http://toml-backend:8000" {
		t.Errorf("BaseURL = %q, want normalized (no trailing slash)", cfg.Upstream.BaseURL)
	}
	if cfg.Upstream.AdminSecret != "toml-secret" {
		t.Errorf("AdminSecret = %q", cfg.Upstream.AdminSecret)
	}
	if cfg.UI.Theme != "light" {
		t.Errorf("Theme = %q, want light", cfg.UI.Theme)
	}
	// Unset fields keep their defaults
	if cfg.UI.SearchDebounceMs != 150 {
		t.Errorf("SearchDebounceMs = %d, want default 150", cfg.UI.SearchDebounceMs)
	}
}

func TestLoadFromPath_JSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	content := `{"gateway":{"port":9300},"upstream":{"base_url":"http://json-backend:8000"}}`
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadFromPath(path)
	if err != nil {
		t.Fatalf("LoadFromPath: %v", err)
	}
	if cfg.Gateway.Port != 9300 {
		t.Errorf("Port = %d, want 9300", cfg.Gateway.Port)
	}
	if cfg.Upstream.BaseURL != "http://json-backend:8000" {
		t.Errorf("BaseURL = %q", cfg.Upstream.BaseURL)
	}
}

func TestLoadFromPath_InvalidConfigRejected(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	content := `
[gateway]
port = 99999
`
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}

	if _, err := LoadFromPath(path); err == nil {
		t.Error("out-of-range port should fail validation")
	}
}

func TestLoadTOML_FixesLoosePermissions(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte(`version = "1.0.0"`), 0644); err != nil {
		t.Fatal(err)
	}

	cfg := Default()
	if err := LoadTOML(cfg, path); err != nil {
		t.Fatalf("LoadTOML: %v", err)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatal(err)
	}
	if perm := info.Mode().Perm(); perm != 0600 {
		t.Errorf("permissions = %04o, want tightened to 0600", perm)
	}
}

// =============================================================================
// CLONE AND REDACTION TESTS
// =============================================================================

func TestClone_IsDeep(t *testing.T) {
	cfg := Default()
	clone := cfg.Clone()

	clone.Gateway.AllowedOrigins[0] = "http://mutated"

	if cfg.Gateway.AllowedOrigins[0] == "http://mutated" {
		t.Error("Clone shares the AllowedOrigins slice")
	}
}

func TestString_RedactsSecrets(t *testing.T) {
	cfg := Default()
	cfg.Upstream.AdminSecret = "super-secret-token"
	cfg.UI.GatePassword = "gate-pass"

	s := cfg.String()

	if strings.Contains(s, "super-secret-token") {
		t.Error("admin secret leaked into String()")
	}
	if strings.Contains(s, "gate-pass") {
		t.Error("gate password leaked into String()")
	}
	if !strings.Contains(s, "[REDACTED]") {
		t.Error("String() should mark redacted fields")
	}
}

// =============================================================================
// GLOBAL SINGLETON TESTS
// =============================================================================

func TestSetGlobal(t *testing.T) {
	defer ResetGlobalForTesting()

	cfg := Default()
	cfg.Gateway.Port = 9400
	SetGlobal(cfg)

	if got := Global().Gateway.Port; got != 9400 {
		t.Errorf("Global().Gateway.Port = %d, want 9400", got)
	}
}
