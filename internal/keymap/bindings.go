// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package keymap implements global keyboard dispatch for the dashboard.
//
// This file defines the shortcut inventory shown in the help overlay and
// indexed by the search dialog. The list is static after startup.
package keymap

import (
	"github.com/charmbracelet/bubbles/key"
)

// =============================================================================
// SHORTCUT INVENTORY
// =============================================================================

// Category groups shortcuts for help display.
type Category string

const (
	CategoryGlobal     Category = "Global"
	CategoryNavigation Category = "Navigation"
	CategoryDialogs    Category = "Dialogs"
)

// CategoryOrder is the display order for the help overlay.
var CategoryOrder = []Category{CategoryGlobal, CategoryNavigation, CategoryDialogs}

// Shortcut is one help entry: the key sequence, what it does, and where
// it belongs in the overlay.
type Shortcut struct {
	Keys        string
	Description string
	Category    Category
}

// Shortcuts returns the full shortcut inventory.
func Shortcuts() []Shortcut {
	return []Shortcut{
		{Keys: "ctrl+k", Description: "Open search", Category: CategoryGlobal},
		{Keys: "?", Description: "Show shortcuts", Category: CategoryGlobal},
		{Keys: "esc", Description: "Close dialogs", Category: CategoryDialogs},
		{Keys: "g h", Description: "Go home", Category: CategoryNavigation},
		{Keys: "g a", Description: "Go to AI tools", Category: CategoryNavigation},
		{Keys: "g v", Description: "Go to videos", Category: CategoryNavigation},
		{Keys: "g b", Description: "Go to backendless", Category: CategoryNavigation},
		{Keys: "g p", Description: "Go to privacy", Category: CategoryNavigation},
	}
}

// ByCategory returns the inventory grouped for the overlay, keyed in
// CategoryOrder.
func ByCategory() map[Category][]Shortcut {
	grouped := make(map[Category][]Shortcut)
	for _, s := range Shortcuts() {
		grouped[s.Category] = append(grouped[s.Category], s)
	}
	return grouped
}

// =============================================================================
// BUBBLES KEY MAP
// =============================================================================

// KeyMap exposes the global bindings in bubbles form so the shell can use
// key.Matches in its Update loop.
type KeyMap struct {
	Search key.Binding
	Help   key.Binding
	Close  key.Binding
	Chord  key.Binding
	Quit   key.Binding
}

// DefaultKeyMap returns the default global bindings.
func DefaultKeyMap() KeyMap {
	return KeyMap{
		Search: key.NewBinding(
			key.WithKeys("ctrl+k"),
			key.WithHelp("C-k", "search"),
		),
		Help: key.NewBinding(
			key.WithKeys("?"),
			key.WithHelp("?", "shortcuts"),
		),
		Close: key.NewBinding(
			key.WithKeys("esc"),
			key.WithHelp("Esc", "close"),
		),
		Chord: key.NewBinding(
			key.WithKeys("g"),
			key.WithHelp("g+key", "navigate"),
		),
		Quit: key.NewBinding(
			key.WithKeys("ctrl+c", "q"),
			key.WithHelp("q/C-c", "quit"),
		),
	}
}

// ShortHelp returns the bindings for the one-line help view.
func (k KeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Search, k.Help, k.Quit}
}

// FullHelp returns the bindings grouped for the expanded help view.
func (k KeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Search, k.Help, k.Close},
		{k.Chord, k.Quit},
	}
}
