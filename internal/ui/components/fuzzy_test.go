// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package components

import (
	"testing"
)

// =============================================================================
// FUZZY MATCH TESTS
// =============================================================================

func TestFuzzyMatch_Basics(t *testing.T) {
	tests := []struct {
		query   string
		target  string
		matched bool
	}{
		{"vid", "Videos", true},
		{"vds", "Videos", true},
		{"xyz", "Videos", false},
		{"", "Videos", true},
		{"videos", "Videos", true},
		{"videosx", "Videos", false},
	}

	for _, tt := range tests {
		_, matched := FuzzyMatch(tt.query, tt.target)
		if matched != tt.matched {
			t.Errorf("FuzzyMatch(%q, %q) matched = %v, want %v", tt.query, tt.target, matched, tt.matched)
		}
	}
}

func TestFuzzyMatch_PrefixScoresHigherThanScattered(t *testing.T) {
	prefix := FuzzyMatchScore("vid", "Videos")
	scattered := FuzzyMatchScore("vds", "Videos")

	if prefix <= scattered {
		t.Errorf("prefix score %d should beat scattered score %d", prefix, scattered)
	}
}

func TestFuzzyMatch_WordBoundaryBonus(t *testing.T) {
	boundary := FuzzyMatchScore("t", "ai-tools")
	middle := FuzzyMatchScore("o", "ai-tools")

	if boundary <= middle {
		t.Errorf("boundary hit %d should beat mid-word hit %d", boundary, middle)
	}
}

func TestFuzzyMatchScore_NoMatchIsZero(t *testing.T) {
	if got := FuzzyMatchScore("zzz", "Videos"); got != 0 {
		t.Errorf("score = %d, want 0 for non-match", got)
	}
}

func TestFuzzyMatches(t *testing.T) {
	if !FuzzyMatches("bkl", "backendless") {
		t.Error("subsequence should match")
	}
	if FuzzyMatches("lkb", "backendless") {
		t.Error("out-of-order letters should not match")
	}
}

// =============================================================================
// FILTER TESTS
// =============================================================================

func TestFuzzyFilter_SortsByScoreDescending(t *testing.T) {
	targets := []string{"Privacy", "Videos", "video player notes"}

	results := FuzzyFilter("video", targets)

	if len(results) != 2 {
		t.Fatalf("results = %d entries, want 2", len(results))
	}
	if results[0].Score < results[1].Score {
		t.Error("results not sorted by descending score")
	}
}

func TestFuzzyFilter_EmptyQueryKeepsAll(t *testing.T) {
	targets := []string{"a", "b", "c"}
	if got := len(FuzzyFilter("", targets)); got != 3 {
		t.Errorf("empty query kept %d of 3", got)
	}
}

// =============================================================================
// HIGHLIGHT TESTS
// =============================================================================

func TestHighlightMatch_Positions(t *testing.T) {
	positions := HighlightMatch("vd", "Videos")

	if len(positions) != 2 {
		t.Fatalf("positions = %v, want 2 entries", positions)
	}
	if positions[0] != 0 || positions[1] != 2 {
		t.Errorf("positions = %v, want [0 2]", positions)
	}
}

func TestHighlightMatch_NoMatch(t *testing.T) {
	if positions := HighlightMatch("xyz", "Videos"); positions != nil {
		t.Errorf("positions = %v, want nil for non-match", positions)
	}
}
