// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package components provides UI components for the foliogate dashboard.
package components

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/jeranaias/foliogate/internal/keymap"
	"github.com/jeranaias/foliogate/internal/ui/styles"
	"github.com/jeranaias/foliogate/internal/util"
)

// =============================================================================
// SHORTCUTS OVERLAY
// =============================================================================

// HelpOverlay renders the keyboard shortcut inventory grouped by category.
type HelpOverlay struct {
	width   int
	height  int
	visible bool
	theme   *styles.Theme
}

// NewHelpOverlay creates the shortcuts overlay.
func NewHelpOverlay(theme *styles.Theme) *HelpOverlay {
	return &HelpOverlay{theme: theme}
}

// Show opens the overlay.
func (h *HelpOverlay) Show() {
	h.visible = true
}

// Hide closes the overlay.
func (h *HelpOverlay) Hide() {
	h.visible = false
}

// Toggle flips visibility.
func (h *HelpOverlay) Toggle() {
	h.visible = !h.visible
}

// IsVisible returns true while the overlay is open.
func (h *HelpOverlay) IsVisible() bool {
	return h.visible
}

// SetSize sets the dimensions for centering the overlay.
func (h *HelpOverlay) SetSize(width, height int) {
	h.width = width
	h.height = height
}

// View renders the overlay.
func (h *HelpOverlay) View() string {
	if !h.visible {
		return ""
	}

	boxWidth := 48
	if h.width > 0 && h.width < boxWidth+8 {
		boxWidth = h.width - 8
	}
	if boxWidth < 36 {
		boxWidth = 36
	}

	title := h.theme.DialogTitle.Render("Keyboard Shortcuts")

	catStyle := lipgloss.NewStyle().
		Foreground(styles.TextSecondary).
		Bold(true).
		Padding(1, 0, 0, 0)

	keyWidth := 10
	var sections []string
	grouped := keymap.ByCategory()
	for _, cat := range keymap.CategoryOrder {
		shortcuts := grouped[cat]
		if len(shortcuts) == 0 {
			continue
		}

		var lines []string
		lines = append(lines, catStyle.Render(string(cat)))
		for _, s := range shortcuts {
			key := h.theme.ShortcutKey.Render(util.PadWidth(s.Keys, keyWidth))
			desc := h.theme.ShortcutDesc.Render(s.Description)
			lines = append(lines, "  "+key+desc)
		}
		sections = append(sections, strings.Join(lines, "\n"))
	}

	help := h.theme.DialogHelp.Render("Esc close")

	content := lipgloss.JoinVertical(
		lipgloss.Left,
		title,
		strings.Join(sections, "\n"),
		help,
	)

	box := h.theme.DialogBox.Width(boxWidth).Render(content)

	if h.width > 0 && h.height > 0 {
		return lipgloss.Place(
			h.width, h.height,
			lipgloss.Center, lipgloss.Center,
			box,
		)
	}

	return box
}
