// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package keymap implements global keyboard dispatch for the dashboard.
//
// This file implements the chord state machine. Sequences like "g h" are
// handled as an explicit two-state machine with a deadline rather than an
// ad-hoc boolean, so a stale prefix can never fire a navigation hours later.
package keymap

import (
	"time"
)

// =============================================================================
// ACTIONS
// =============================================================================

// Action is what a key press resolved to.
type Action int

const (
	// ActionNone means the press mapped to nothing.
	ActionNone Action = iota

	// ActionOpenSearch opens the search dialog.
	ActionOpenSearch

	// ActionShowShortcuts opens the shortcuts overlay.
	ActionShowShortcuts

	// ActionCloseModals dismisses any open overlay.
	ActionCloseModals

	// ActionNavigate switches views; Result.Target carries the route.
	ActionNavigate
)

// String returns the string representation of the action.
func (a Action) String() string {
	switch a {
	case ActionNone:
		return "none"
	case ActionOpenSearch:
		return "open-search"
	case ActionShowShortcuts:
		return "show-shortcuts"
	case ActionCloseModals:
		return "close-modals"
	case ActionNavigate:
		return "navigate"
	default:
		return "unknown"
	}
}

// Result is the outcome of dispatching one key press.
type Result struct {
	Action Action
	Target string // navigation route for ActionNavigate
}

// =============================================================================
// KEY PRESSES
// =============================================================================

// KeyPress is a normalized key event as seen by the dispatcher.
type KeyPress struct {
	// Key is the lowercase key name ("k", "g", "?", "esc").
	Key string

	// Ctrl and Meta are the modifier states. Meta covers the cmd key.
	Ctrl bool
	Meta bool

	// InputFocused is true when a text input owns the keyboard; plain-key
	// shortcuts are suppressed so typing "g" into a field never navigates.
	InputFocused bool
}

func (k KeyPress) plain() bool {
	return !k.Ctrl && !k.Meta
}

// =============================================================================
// DISPATCHER
// =============================================================================

// DefaultChordTimeout is how long a chord prefix stays armed.
const DefaultChordTimeout = 1 * time.Second

type state int

const (
	stateIdle state = iota
	stateAwaitingChord
)

// Dispatcher resolves key presses to actions. It is owned by the UI event
// loop and is not safe for concurrent use.
type Dispatcher struct {
	state    state
	deadline time.Time
	timeout  time.Duration

	// chords maps the second key of a "g" sequence to a navigation route.
	chords map[string]string

	// now is swappable for tests.
	now func() time.Time
}

// NewDispatcher creates a dispatcher with the default chords and timeout.
func NewDispatcher() *Dispatcher {
	return &Dispatcher{
		state:   stateIdle,
		timeout: DefaultChordTimeout,
		chords: map[string]string{
			"h": "/",
			"a": "/ai-tools",
			"v": "/videos",
			"b": "/backendless",
			"p": "/privacy",
		},
		now: time.Now,
	}
}

// WithTimeout overrides the chord deadline.
func (d *Dispatcher) WithTimeout(timeout time.Duration) *Dispatcher {
	if timeout > 0 {
		d.timeout = timeout
	}
	return d
}

// Awaiting reports whether a chord prefix is currently armed. The shell
// uses this to show a pending-key hint in the status line.
func (d *Dispatcher) Awaiting() bool {
	if d.state != stateAwaitingChord {
		return false
	}
	return d.now().Before(d.deadline)
}

// Reset drops any armed chord prefix.
func (d *Dispatcher) Reset() {
	d.state = stateIdle
}

// Handle resolves one key press.
//
// Chord handling comes first: while a prefix is armed, the next press either
// completes a known chord or consumes itself as a silent no-op. An expired
// prefix is discarded and the press is dispatched normally.
func (d *Dispatcher) Handle(k KeyPress) Result {
	if d.state == stateAwaitingChord {
		expired := !d.now().Before(d.deadline)
		d.state = stateIdle

		if !expired {
			if target, ok := d.chords[k.Key]; ok && k.plain() && !k.InputFocused {
				return Result{Action: ActionNavigate, Target: target}
			}
			// Unmapped second key: swallowed, never falls through to the
			// single-key bindings.
			return Result{Action: ActionNone}
		}
	}

	switch {
	case (k.Ctrl || k.Meta) && k.Key == "k":
		// Works even while an input is focused; search is always reachable.
		return Result{Action: ActionOpenSearch}

	case k.Key == "esc":
		return Result{Action: ActionCloseModals}

	case k.Key == "?" && k.plain() && !k.InputFocused:
		return Result{Action: ActionShowShortcuts}

	case k.Key == "g" && k.plain() && !k.InputFocused:
		d.state = stateAwaitingChord
		d.deadline = d.now().Add(d.timeout)
		return Result{Action: ActionNone}
	}

	return Result{Action: ActionNone}
}
