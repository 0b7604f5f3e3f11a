// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package components

import (
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/jeranaias/foliogate/internal/ui/styles"
)

var testCandidates = []Candidate{
	{Title: "Home", Route: "/", Kind: "page"},
	{Title: "AI Tools", Route: "/ai-tools", Kind: "page"},
	{Title: "Videos", Route: "/videos", Kind: "page"},
	{Title: "Backendless", Route: "/backendless", Kind: "page"},
	{Title: "Privacy", Route: "/privacy", Kind: "page"},
}

// newTestDialog returns a visible dialog with synchronous filtering.
func newTestDialog() *SearchDialog {
	sd := NewSearchDialog(testCandidates, styles.NewTheme("dark"), 0)
	sd.Show()
	return sd
}

func typeRunes(sd *SearchDialog, s string) *SearchDialog {
	for _, r := range s {
		sd, _ = sd.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{r}})
	}
	return sd
}

// =============================================================================
// FILTER TESTS
// =============================================================================

func TestSearchDialog_EmptyQueryShowsAll(t *testing.T) {
	sd := newTestDialog()

	if got := sd.ResultCount(); got != len(testCandidates) {
		t.Errorf("ResultCount = %d, want %d", got, len(testCandidates))
	}
}

func TestSearchDialog_SubstringFilter(t *testing.T) {
	sd := newTestDialog()
	sd = typeRunes(sd, "vid")

	if got := sd.ResultCount(); got != 1 {
		t.Fatalf("ResultCount = %d, want 1", got)
	}
	if sd.filtered[0].candidate.Title != "Videos" {
		t.Errorf("top result = %q, want Videos", sd.filtered[0].candidate.Title)
	}
}

func TestSearchDialog_MatchesRouteToo(t *testing.T) {
	sd := newTestDialog()
	sd = typeRunes(sd, "ai-")

	if got := sd.ResultCount(); got != 1 {
		t.Fatalf("ResultCount = %d, want 1 (route match)", got)
	}
	if sd.filtered[0].candidate.Route != "/ai-tools" {
		t.Errorf("top result route = %q", sd.filtered[0].candidate.Route)
	}
}

func TestSearchDialog_CaseInsensitive(t *testing.T) {
	sd := newTestDialog()
	sd = typeRunes(sd, "VIDEOS")

	if got := sd.ResultCount(); got != 1 {
		t.Errorf("ResultCount = %d, want 1", got)
	}
}

func TestSearchDialog_NoMatches(t *testing.T) {
	sd := newTestDialog()
	sd = typeRunes(sd, "zzzz")

	if got := sd.ResultCount(); got != 0 {
		t.Errorf("ResultCount = %d, want 0", got)
	}
}

// =============================================================================
// DEBOUNCE TESTS
// =============================================================================

func TestSearchDialog_DebounceDefersFiltering(t *testing.T) {
	sd := NewSearchDialog(testCandidates, styles.NewTheme("dark"), 50*time.Millisecond)
	sd.Show()

	sd = typeRunes(sd, "vid")

	// Filter has not run yet; the tick has not fired
	if got := sd.ResultCount(); got != len(testCandidates) {
		t.Errorf("ResultCount before tick = %d, want unfiltered %d", got, len(testCandidates))
	}

	sd, _ = sd.Update(searchDebounceMsg{version: sd.version})
	if got := sd.ResultCount(); got != 1 {
		t.Errorf("ResultCount after tick = %d, want 1", got)
	}
}

func TestSearchDialog_StaleDebounceVersionDiscarded(t *testing.T) {
	sd := NewSearchDialog(testCandidates, styles.NewTheme("dark"), 50*time.Millisecond)
	sd.Show()

	sd = typeRunes(sd, "vid")
	staleVersion := sd.version
	sd = typeRunes(sd, "eo") // query is now "video", version advanced

	sd, _ = sd.Update(searchDebounceMsg{version: staleVersion})
	if got := sd.ResultCount(); got != len(testCandidates) {
		t.Errorf("stale tick filtered anyway: ResultCount = %d", got)
	}

	sd, _ = sd.Update(searchDebounceMsg{version: sd.version})
	if got := sd.ResultCount(); got != 1 {
		t.Errorf("current tick did not filter: ResultCount = %d", got)
	}
}

// =============================================================================
// SELECTION TESTS
// =============================================================================

func TestSearchDialog_EnterEmitsSelection(t *testing.T) {
	sd := newTestDialog()
	sd = typeRunes(sd, "priv")

	sd, cmd := sd.Update(tea.KeyMsg{Type: tea.KeyEnter})
	if cmd == nil {
		t.Fatal("enter should produce a command")
	}

	msg, ok := cmd().(SelectCandidateMsg)
	if !ok {
		t.Fatalf("command produced %T, want SelectCandidateMsg", cmd())
	}
	if msg.Candidate.Route != "/privacy" {
		t.Errorf("selected route = %q, want /privacy", msg.Candidate.Route)
	}
	if sd.IsVisible() {
		t.Error("dialog should hide after selection")
	}
}

func TestSearchDialog_ArrowNavigationWraps(t *testing.T) {
	sd := newTestDialog()

	sd, _ = sd.Update(tea.KeyMsg{Type: tea.KeyUp})
	if sd.selected != len(testCandidates)-1 {
		t.Errorf("up from top wrapped to %d, want %d", sd.selected, len(testCandidates)-1)
	}

	sd, _ = sd.Update(tea.KeyMsg{Type: tea.KeyDown})
	if sd.selected != 0 {
		t.Errorf("down from bottom wrapped to %d, want 0", sd.selected)
	}
}

func TestSearchDialog_EscHides(t *testing.T) {
	sd := newTestDialog()

	sd, _ = sd.Update(tea.KeyMsg{Type: tea.KeyEsc})
	if sd.IsVisible() {
		t.Error("esc should hide the dialog")
	}
}

// =============================================================================
// VISIBILITY TESTS
// =============================================================================

func TestSearchDialog_ShowResetsQuery(t *testing.T) {
	sd := newTestDialog()
	sd = typeRunes(sd, "vid")
	sd.Hide()

	sd.Show()

	if got := sd.ResultCount(); got != len(testCandidates) {
		t.Errorf("ResultCount after reopen = %d, want full list", got)
	}
	if !sd.InputFocused() {
		t.Error("input should be focused while the dialog is open")
	}
}

func TestSearchDialog_HiddenIgnoresInput(t *testing.T) {
	sd := NewSearchDialog(testCandidates, styles.NewTheme("dark"), 0)

	sd = typeRunes(sd, "vid")
	if got := sd.ResultCount(); got != len(testCandidates) {
		t.Errorf("hidden dialog filtered input: ResultCount = %d", got)
	}
}

func TestSearchDialog_SetCandidates(t *testing.T) {
	sd := newTestDialog()

	sd.SetCandidates([]Candidate{{Title: "Only", Route: "/only"}})
	if got := sd.ResultCount(); got != 1 {
		t.Errorf("ResultCount = %d, want 1 after SetCandidates", got)
	}
}
