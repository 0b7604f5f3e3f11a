// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package components provides UI components for the foliogate dashboard.
package components

import (
	"sort"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/jeranaias/foliogate/internal/ui/styles"
	"github.com/jeranaias/foliogate/internal/util"
)

// =============================================================================
// SEARCH DIALOG
// =============================================================================

// Candidate is one searchable entry: a page, a shortcut, or a post.
type Candidate struct {
	Title string
	Route string
	Kind  string
}

// SelectCandidateMsg is sent when a candidate is chosen.
type SelectCandidateMsg struct {
	Candidate Candidate
}

// searchDebounceMsg fires after the debounce window; stale versions are
// discarded so only the latest keystroke triggers a filter pass.
type searchDebounceMsg struct {
	version int
}

// scoredCandidate holds a candidate with its match score.
type scoredCandidate struct {
	candidate Candidate
	score     int
}

// SearchDialog is the ctrl+k overlay: a filter input over the static
// candidate set, debounced so filtering does not run on every keystroke.
type SearchDialog struct {
	input      textinput.Model
	candidates []Candidate
	filtered   []scoredCandidate
	selected   int

	width  int
	height int

	visible bool
	theme   *styles.Theme

	debounce time.Duration
	version  int
	maxItems int
}

// NewSearchDialog creates a search dialog over the given candidates.
// debounce of 0 filters synchronously on every keystroke.
func NewSearchDialog(candidates []Candidate, theme *styles.Theme, debounce time.Duration) *SearchDialog {
	ti := textinput.New()
	ti.Placeholder = "Search pages, shortcuts, posts..."
	ti.Prompt = "> "
	ti.CharLimit = 100
	ti.Width = 50
	ti.PromptStyle = lipgloss.NewStyle().Foreground(styles.Cyan).Bold(true)
	ti.TextStyle = lipgloss.NewStyle().Foreground(styles.TextPrimary)
	ti.PlaceholderStyle = lipgloss.NewStyle().Foreground(styles.TextMuted).Italic(true)

	sd := &SearchDialog{
		input:      ti,
		candidates: candidates,
		theme:      theme,
		debounce:   debounce,
		maxItems:   10,
	}

	sd.updateFiltered()

	return sd
}

// =============================================================================
// BUBBLE TEA INTERFACE
// =============================================================================

// Update handles messages for the search dialog.
func (sd *SearchDialog) Update(msg tea.Msg) (*SearchDialog, tea.Cmd) {
	if !sd.visible {
		return sd, nil
	}

	switch msg := msg.(type) {
	case searchDebounceMsg:
		if msg.version == sd.version {
			sd.updateFiltered()
			sd.selected = 0
		}
		return sd, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "esc":
			sd.Hide()
			return sd, nil

		case "enter":
			if sd.selected >= 0 && sd.selected < len(sd.filtered) {
				chosen := sd.filtered[sd.selected].candidate
				sd.Hide()
				return sd, func() tea.Msg {
					return SelectCandidateMsg{Candidate: chosen}
				}
			}
			return sd, nil

		case "up", "ctrl+p":
			if len(sd.filtered) == 0 {
				return sd, nil
			}
			sd.selected--
			if sd.selected < 0 {
				sd.selected = len(sd.filtered) - 1
			}
			return sd, nil

		case "down", "ctrl+n", "tab":
			if len(sd.filtered) == 0 {
				return sd, nil
			}
			sd.selected++
			if sd.selected >= len(sd.filtered) {
				sd.selected = 0
			}
			return sd, nil
		}
	}

	previousValue := sd.input.Value()
	var cmd tea.Cmd
	sd.input, cmd = sd.input.Update(msg)

	if sd.input.Value() != previousValue {
		sd.version++
		if sd.debounce <= 0 {
			sd.updateFiltered()
			sd.selected = 0
			return sd, cmd
		}

		version := sd.version
		debounceCmd := tea.Tick(sd.debounce, func(time.Time) tea.Msg {
			return searchDebounceMsg{version: version}
		})
		return sd, tea.Batch(cmd, debounceCmd)
	}

	return sd, cmd
}

// View renders the search dialog.
func (sd *SearchDialog) View() string {
	if !sd.visible {
		return ""
	}

	boxWidth := 60
	if sd.width > 0 && sd.width < boxWidth+10 {
		boxWidth = sd.width - 10
	}
	if boxWidth < 40 {
		boxWidth = 40
	}

	header := sd.theme.DialogTitle.Render("Search")

	sepStyle := lipgloss.NewStyle().Foreground(styles.Overlay)
	separator := sepStyle.Render(strings.Repeat("-", boxWidth-4))

	sd.input.Width = boxWidth - 6
	inputView := sd.input.View()

	var listItems []string
	for i, sc := range sd.filtered {
		if i >= sd.maxItems {
			remaining := len(sd.filtered) - sd.maxItems
			if remaining > 0 {
				moreStyle := lipgloss.NewStyle().
					Foreground(styles.TextMuted).
					Italic(true)
				listItems = append(listItems, moreStyle.Render("  ... "+util.IntToString(remaining)+" more"))
			}
			break
		}
		listItems = append(listItems, sd.renderItem(sc.candidate, i == sd.selected, boxWidth-6))
	}

	list := strings.Join(listItems, "\n")
	if len(sd.filtered) == 0 {
		list = sd.theme.EmptyState.Render("No matches")
	}

	help := sd.theme.DialogHelp.Render("Up/Down navigate | Enter open | Esc close")

	content := lipgloss.JoinVertical(
		lipgloss.Left,
		header,
		separator,
		inputView,
		separator,
		list,
		help,
	)

	box := sd.theme.DialogBox.Width(boxWidth).Render(content)

	if sd.width > 0 && sd.height > 0 {
		return lipgloss.Place(
			sd.width, sd.height,
			lipgloss.Center, lipgloss.Center,
			box,
		)
	}

	return box
}

// =============================================================================
// INTERNAL METHODS
// =============================================================================

func (sd *SearchDialog) renderItem(c Candidate, selected bool, width int) string {
	indicator := "  "
	if selected {
		indicator = "> "
	}

	titleStyle := lipgloss.NewStyle().
		Foreground(styles.Cyan).
		Bold(true)

	kindStyle := lipgloss.NewStyle().
		Foreground(styles.TextMuted)

	title := titleStyle.Render(c.Title)

	usedWidth := lipgloss.Width(indicator) + lipgloss.Width(title) + 2
	metaWidth := width - usedWidth
	if metaWidth < 10 {
		metaWidth = 10
	}

	meta := kindStyle.Render(util.TruncateRunes(c.Kind+"  "+c.Route, metaWidth))

	item := indicator + title + "  " + meta

	if selected {
		return sd.theme.DialogSelected.Width(width).Render(item)
	}

	return item
}

// updateFiltered recomputes the visible list. Matching is case-insensitive
// substring over title and route; ranking uses the fuzzy score so tighter
// matches sort first.
func (sd *SearchDialog) updateFiltered() {
	query := strings.TrimSpace(strings.ToLower(sd.input.Value()))

	if query == "" {
		sd.filtered = make([]scoredCandidate, 0, len(sd.candidates))
		for _, c := range sd.candidates {
			sd.filtered = append(sd.filtered, scoredCandidate{candidate: c})
		}
		return
	}

	var scored []scoredCandidate
	for _, c := range sd.candidates {
		title := strings.ToLower(c.Title)
		route := strings.ToLower(c.Route)

		if !strings.Contains(title, query) && !strings.Contains(route, query) {
			continue
		}

		score := FuzzyMatchScore(query, c.Title)
		if routeScore := FuzzyMatchScore(query, c.Route); routeScore > score {
			score = routeScore
		}

		scored = append(scored, scoredCandidate{candidate: c, score: score})
	}

	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].score > scored[j].score
	})

	sd.filtered = scored
}

// =============================================================================
// PUBLIC METHODS
// =============================================================================

// Show opens the dialog with a cleared query.
func (sd *SearchDialog) Show() tea.Cmd {
	sd.visible = true
	sd.input.Reset()
	sd.updateFiltered()
	sd.selected = 0
	return sd.input.Focus()
}

// Hide closes the dialog.
func (sd *SearchDialog) Hide() {
	sd.visible = false
	sd.input.Blur()
}

// IsVisible returns true while the dialog is open.
func (sd *SearchDialog) IsVisible() bool {
	return sd.visible
}

// InputFocused reports whether the dialog's text input owns the keyboard.
func (sd *SearchDialog) InputFocused() bool {
	return sd.visible && sd.input.Focused()
}

// SetCandidates replaces the searchable set.
func (sd *SearchDialog) SetCandidates(candidates []Candidate) {
	sd.candidates = candidates
	sd.updateFiltered()
}

// SetSize sets the dimensions for centering the dialog.
func (sd *SearchDialog) SetSize(width, height int) {
	sd.width = width
	sd.height = height
}

// ResultCount returns the current number of filtered results.
func (sd *SearchDialog) ResultCount() int {
	return len(sd.filtered)
}
