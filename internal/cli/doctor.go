// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// doctor.go - System diagnostics command for foliogate.
//
// Command: doctor
// Short:   Run configuration and connectivity checks
//
// Examples:
//   foliogate doctor           Run all checks
//   foliogate doctor --fix     Attempt auto-fixes (permissions, config dir)
//   foliogate doctor --json    Machine-readable output
package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"runtime"
	"time"

	"github.com/jeranaias/foliogate/internal/config"
	"github.com/jeranaias/foliogate/internal/ui/styles"
	"github.com/jeranaias/foliogate/internal/upstream"
)

// healthProbeTimeout bounds the backend reachability check.
const healthProbeTimeout = 5 * time.Second

// checkResult is one diagnostic outcome.
type checkResult struct {
	Name    string `json:"name"`
	OK      bool   `json:"ok"`
	Detail  string `json:"detail"`
	Fixable bool   `json:"fixable,omitempty"`
}

// RunDoctor runs the diagnostics and returns an error when any check
// failed, so the exit code reflects system health.
func RunDoctor(args Args) error {
	var results []checkResult

	// Config loads and validates
	cfg, err := loadConfig(args.ConfigPath)
	if err != nil {
		results = append(results, checkResult{
			Name:   "config",
			OK:     false,
			Detail: err.Error(),
		})
		// Keep probing with defaults so one broken file does not hide
		// the network checks.
		cfg = config.Default()
	} else {
		results = append(results, checkResult{
			Name:   "config",
			OK:     true,
			Detail: "loaded and valid",
		})
	}

	results = append(results, checkConfigPermissions(args.Fix))
	results = append(results, checkBackend(cfg))
	results = append(results, checkAdminSecret(cfg))
	results = append(results, checkGatewayPort(cfg))

	failed := 0
	for _, r := range results {
		if !r.OK {
			failed++
		}
	}

	if args.JSON {
		out := map[string]interface{}{
			"checks": results,
			"passed": len(results) - failed,
			"failed": failed,
		}
		encoder := json.NewEncoder(os.Stdout)
		encoder.SetIndent("", "  ")
		encoder.Encode(out)
	} else {
		fmt.Println(WelcomeStyle.Render("foliogate doctor"))
		fmt.Println()
		for _, r := range results {
			fmt.Println(styles.RenderStatus(r.OK, r.Name+": "+r.Detail))
		}
		fmt.Println()
		if failed == 0 {
			fmt.Println(styles.RenderSuccess("All checks passed"))
		} else {
			fmt.Println(styles.RenderError(fmt.Sprintf("%d check(s) failed", failed)))
		}
	}

	if failed > 0 {
		return fmt.Errorf("%d diagnostic check(s) failed", failed)
	}
	return nil
}

// checkConfigPermissions verifies the config file is not group/world
// readable. The admin secret may live in it.
func checkConfigPermissions(fix bool) checkResult {
	result := checkResult{Name: "config permissions"}

	path, err := config.ConfigPathTOML()
	if err != nil {
		result.Detail = err.Error()
		return result
	}

	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			result.OK = true
			result.Detail = "no config file (defaults in use)"
			return result
		}
		result.Detail = err.Error()
		return result
	}

	if runtime.GOOS == "windows" {
		result.OK = true
		result.Detail = "skipped (windows ACLs)"
		return result
	}

	if perm := info.Mode().Perm(); perm&0077 != 0 {
		if fix {
			if err := os.Chmod(path, 0600); err == nil {
				result.OK = true
				result.Detail = "tightened to 0600"
				return result
			}
		}
		result.Detail = fmt.Sprintf("%s is %04o, want 0600 (run with --fix)", path, perm)
		result.Fixable = true
		return result
	}

	result.OK = true
	result.Detail = "0600"
	return result
}

// checkBackend probes the backend /health endpoint.
func checkBackend(cfg *config.Config) checkResult {
	result := checkResult{Name: "backend"}

	client := upstream.NewClient(cfg.Upstream.BaseURL).
		WithTimeout(healthProbeTimeout)

	ctx, cancel := context.WithTimeout(context.Background(), healthProbeTimeout)
	defer cancel()

	if err := client.Health(ctx); err != nil {
		if errors.Is(err, upstream.ErrUnavailable) {
			result.Detail = cfg.Upstream.BaseURL + " unreachable"
		} else {
			result.Detail = err.Error()
		}
		return result
	}

	result.OK = true
	result.Detail = cfg.Upstream.BaseURL + " healthy"
	return result
}

// checkAdminSecret reports whether the admin routes will work.
// Not configured is a warning-level pass: the gateway runs fine
// without it, admin routes just return 503.
func checkAdminSecret(cfg *config.Config) checkResult {
	if cfg.Upstream.AdminSecret == "" {
		return checkResult{
			Name:   "admin secret",
			OK:     true,
			Detail: "not configured (admin routes disabled)",
		}
	}
	return checkResult{
		Name:   "admin secret",
		OK:     true,
		Detail: "configured",
	}
}

// checkGatewayPort sanity-checks the configured listen port.
func checkGatewayPort(cfg *config.Config) checkResult {
	result := checkResult{Name: "gateway port"}

	if cfg.Gateway.Port < 1 || cfg.Gateway.Port > 65535 {
		result.Detail = fmt.Sprintf("invalid port %d", cfg.Gateway.Port)
		return result
	}

	result.OK = true
	result.Detail = fmt.Sprintf("%d", cfg.Gateway.Port)
	return result
}
