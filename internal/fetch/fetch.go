// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package fetch provides lifecycle-scoped data loading for dashboard widgets.
//
// A Task runs one load exactly once - no retry, no polling - and exposes a
// tagged status instead of a nullable value plus boolean. The task is bound
// to a cancellation token tied to the owning widget: cancelling before the
// load resolves guarantees the task never mutates its state afterwards, so
// a torn-down widget cannot receive a late write.
package fetch

import (
	"context"
	"sync"

	"github.com/google/uuid"
)

// =============================================================================
// STATUS
// =============================================================================

// Status is the lifecycle state of a fetch task.
type Status int

const (
	// StatusIdle means no load is in flight (initial state, or cancelled).
	StatusIdle Status = iota

	// StatusLoading means the load is in flight.
	StatusLoading

	// StatusReady means the load resolved and the value is available.
	StatusReady

	// StatusFailed means the load errored. Consumers render empty rather
	// than surfacing the error; the cause is kept for logging only.
	StatusFailed
)

// String returns the string representation of the status.
func (s Status) String() string {
	switch s {
	case StatusIdle:
		return "idle"
	case StatusLoading:
		return "loading"
	case StatusReady:
		return "ready"
	case StatusFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// IsTerminal returns true for states that never transition again.
func (s Status) IsTerminal() bool {
	return s == StatusReady || s == StatusFailed
}

// =============================================================================
// TASK
// =============================================================================

// LoadFunc produces the value for a task.
type LoadFunc[T any] func(ctx context.Context) (T, error)

// Task is a single in-flight (or settled) load.
type Task[T any] struct {
	id string

	mu       sync.Mutex
	status   Status
	value    T
	err      error
	canceled bool

	cancel context.CancelFunc
	done   chan struct{}
}

// Start begins loading in a new goroutine and returns immediately with the
// task in StatusLoading. The load's context is cancelled by Cancel.
func Start[T any](ctx context.Context, load LoadFunc[T]) *Task[T] {
	ctx, cancel := context.WithCancel(ctx)

	t := &Task[T]{
		id:     uuid.New().String(),
		status: StatusLoading,
		cancel: cancel,
		done:   make(chan struct{}),
	}

	go func() {
		value, err := load(ctx)
		t.settle(ctx, value, err)
	}()

	return t
}

// settle records the load outcome. A cancelled task is never written to:
// the outcome is dropped and the status stays wherever Cancel left it.
func (t *Task[T]) settle(ctx context.Context, value T, err error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.canceled || ctx.Err() != nil {
		return
	}

	if err != nil {
		t.status = StatusFailed
		t.err = err
	} else {
		t.status = StatusReady
		t.value = value
	}

	close(t.done)
}

// Cancel aborts the load. Returns true if the task was still loading,
// false if it had already settled or been cancelled.
func (t *Task[T]) Cancel() bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.canceled || t.status.IsTerminal() {
		return false
	}

	t.canceled = true
	t.status = StatusIdle
	t.cancel()
	close(t.done)
	return true
}

// ID returns the task's unique identifier.
func (t *Task[T]) ID() string {
	return t.id
}

// Status returns the current status. A nil task reports StatusIdle, so
// callers holding an unmounted widget's task need no nil check.
func (t *Task[T]) Status() Status {
	if t == nil {
		return StatusIdle
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.status
}

// Loading reports whether the load is still in flight.
func (t *Task[T]) Loading() bool {
	return t.Status() == StatusLoading
}

// Value returns the loaded value and true when the task is StatusReady.
func (t *Task[T]) Value() (T, bool) {
	if t == nil {
		var zero T
		return zero, false
	}
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.status != StatusReady {
		var zero T
		return zero, false
	}
	return t.value, true
}

// Err returns the failure cause, or nil. Kept for logging; widgets
// render empty on failure instead of showing this.
func (t *Task[T]) Err() error {
	if t == nil {
		return nil
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.err
}

// Done returns a channel closed when the task settles or is cancelled.
func (t *Task[T]) Done() <-chan struct{} {
	return t.done
}
