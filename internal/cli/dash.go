// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// dash.go - Terminal dashboard command for foliogate.
//
// Command: dash
// Short:   Start the terminal dashboard
//
// The admin messages view is behind the UI gate: a local password prompt
// before launch. The gate is cosmetic; the real credential is the admin
// secret the gateway holds, which never reaches the terminal.
package cli

import (
	"crypto/subtle"
	"fmt"
	"os"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"golang.org/x/term"

	"github.com/jeranaias/foliogate/internal/config"
	"github.com/jeranaias/foliogate/internal/ui/dash"
	"github.com/jeranaias/foliogate/internal/upstream"
)

// gateAttempts is how many password tries the gate allows.
const gateAttempts = 3

// RunDash starts the dashboard.
func RunDash(args Args) error {
	cfg, err := loadConfig(args.ConfigPath)
	if err != nil {
		return NewCommandError("dash", "start", "could not load configuration", err)
	}
	config.SetGlobal(cfg)

	client := upstream.NewClient(cfg.Upstream.BaseURL).
		WithAdminSecret(cfg.Upstream.AdminSecret).
		WithTimeout(time.Duration(cfg.Upstream.TimeoutSecs) * time.Second)

	adminUnlocked := false
	if cfg.Upstream.AdminSecret != "" {
		unlocked, err := promptGate(cfg.UI.GatePassword)
		if err != nil {
			return err
		}
		adminUnlocked = unlocked
	}

	model := dash.New(cfg, client, adminUnlocked)
	program := tea.NewProgram(model, tea.WithAltScreen())

	if _, err := program.Run(); err != nil {
		return NewCommandError("dash", "run", "dashboard exited", err)
	}

	return nil
}

// promptGate asks for the UI gate password. An empty configured password
// means the gate is open. Returns (false, nil) when the user fails the
// gate: the dashboard still runs, just without the admin view.
func promptGate(gatePassword string) (bool, error) {
	if gatePassword == "" {
		return true, nil
	}

	if !term.IsTerminal(int(syscall.Stdin)) {
		return false, nil
	}

	for attempt := 1; attempt <= gateAttempts; attempt++ {
		fmt.Print("Admin view password: ")
		entered, err := term.ReadPassword(int(syscall.Stdin))
		fmt.Println()
		if err != nil {
			return false, NewCommandError("dash", "gate", "could not read password", err)
		}

		if subtle.ConstantTimeCompare(entered, []byte(gatePassword)) == 1 {
			return true, nil
		}

		fmt.Fprintln(os.Stderr, WarningStyle.Render("Wrong password"))
	}

	fmt.Fprintln(os.Stderr, InfoStyle.Render("Continuing without the admin view"))
	return false, nil
}
