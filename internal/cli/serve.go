// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// serve.go - Gateway server command for foliogate.
//
// Command: serve
// Short:   Start the HTTP gateway
//
// Examples:
//   foliogate serve                 Gateway on the configured port
//   foliogate serve --port 9000     Override the listen port
//   foliogate serve --config FILE   Explicit config file
package cli

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jeranaias/foliogate/internal/config"
	"github.com/jeranaias/foliogate/internal/gateway"
	"github.com/jeranaias/foliogate/internal/telemetry"
	"github.com/jeranaias/foliogate/internal/upstream"
)

// watcherDebounce batches rapid config file writes into one reload.
const watcherDebounce = 500 * time.Millisecond

// RunServe starts the gateway and blocks until SIGINT/SIGTERM.
func RunServe(args Args) error {
	cfg, err := loadConfig(args.ConfigPath)
	if err != nil {
		return NewCommandError("serve", "start", "could not load configuration", err)
	}
	config.SetGlobal(cfg)

	port := cfg.Gateway.Port
	if args.Port != 0 {
		port = args.Port
	}

	// Telemetry: seed counters from the persisted history so /stats
	// survives restarts.
	metrics := telemetry.NewMetrics()
	var history *telemetry.History
	if cfg.Telemetry.Enabled {
		history, err = telemetry.OpenHistory(cfg.Telemetry.HistoryPath)
		if err != nil {
			log.Printf("TELEMETRY_DISABLED | err=%v", err)
		} else {
			defer history.Close()
			if totals, err := history.Totals(); err == nil {
				metrics.Seed(totals)
			} else {
				log.Printf("TELEMETRY_SEED_FAILED | err=%v", err)
			}
		}
	}

	server := gateway.NewServer(port).
		WithBackend(backendFromConfig(cfg)).
		WithMetrics(metrics).
		WithCORS(corsFromConfig(cfg)).
		WithRateLimiter(gateway.NewRateLimiter(cfg.Gateway.RateLimitPerMinute))

	// Hot reload: a changed config file swaps the backend client and
	// rate limiter without restarting the listener.
	watcher, err := config.NewWatcher(watcherDebounce, func(newCfg *config.Config) {
		server.WithBackend(backendFromConfig(newCfg)).
			WithRateLimiter(gateway.NewRateLimiter(newCfg.Gateway.RateLimitPerMinute))
	})
	if err != nil {
		log.Printf("CONFIG_WATCH_DISABLED | err=%v", err)
	} else {
		if err := watcher.Watch(); err != nil {
			log.Printf("CONFIG_WATCH_DISABLED | err=%v", err)
		}
		defer watcher.Close()
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start()
	}()

	if !args.Quiet {
		fmt.Printf("foliogate gateway listening on 127.0.0.1:%d (backend %s)\n",
			server.Port(), cfg.Upstream.BaseURL)
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		if err != nil {
			return NewCommandError("serve", "listen", "server exited", err)
		}
		return nil

	case sig := <-sigCh:
		log.Printf("SERVER_SIGNAL | signal=%v", sig)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Printf("SERVER_SHUTDOWN_ERROR | err=%v", err)
	}

	if history != nil {
		if err := history.Save(metrics.Snapshot()); err != nil {
			log.Printf("TELEMETRY_SAVE_FAILED | err=%v", err)
		}
	}

	return nil
}

// loadConfig loads from an explicit path when given, the default chain
// otherwise.
func loadConfig(path string) (*config.Config, error) {
	if path != "" {
		return config.LoadFromPath(path)
	}
	return config.Load()
}

// backendFromConfig builds the upstream client for the current config.
func backendFromConfig(cfg *config.Config) *upstream.Client {
	return upstream.NewClient(cfg.Upstream.BaseURL).
		WithAdminSecret(cfg.Upstream.AdminSecret).
		WithTimeout(time.Duration(cfg.Upstream.TimeoutSecs) * time.Second)
}

// corsFromConfig builds the CORS policy for the current config.
func corsFromConfig(cfg *config.Config) *gateway.CORSConfig {
	cors := gateway.DefaultCORSConfig()
	if len(cfg.Gateway.AllowedOrigins) > 0 {
		cors.AllowedOrigins = cfg.Gateway.AllowedOrigins
	}
	return cors
}
