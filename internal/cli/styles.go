// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// styles.go - Shared lipgloss styles for CLI output.
package cli

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/jeranaias/foliogate/internal/ui/styles"
)

var (
	// PromptStyle renders REPL prompts.
	PromptStyle = lipgloss.NewStyle().
			Foreground(styles.Cyan).
			Bold(true)

	// WelcomeStyle renders banners.
	WelcomeStyle = lipgloss.NewStyle().
			Foreground(styles.Purple).
			Bold(true)

	// InfoStyle renders secondary output.
	InfoStyle = lipgloss.NewStyle().
			Foreground(styles.TextSecondary)

	// CommandStyle renders slash-command names.
	CommandStyle = lipgloss.NewStyle().
			Foreground(styles.Emerald)

	// WarningStyle renders warnings.
	WarningStyle = lipgloss.NewStyle().
			Foreground(styles.Amber)

	// ErrorStyle renders error markers.
	ErrorStyle = lipgloss.NewStyle().
			Foreground(styles.Rose).
			Bold(true)
)
