// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package bus provides a typed in-process event channel for the dashboard.
//
// The shell owns one Bus; keyboard dispatch publishes into it and views
// subscribe. Events are typed constants rather than string keys so a typo
// is a compile error, not a silently dead subscription.
package bus

import (
	"sync"
)

// =============================================================================
// EVENTS
// =============================================================================

// EventType identifies a dashboard event.
type EventType int

const (
	// EventOpenSearch requests the search dialog.
	EventOpenSearch EventType = iota

	// EventShowShortcuts requests the shortcuts help overlay.
	EventShowShortcuts

	// EventCloseModals dismisses whatever overlay is open.
	EventCloseModals

	// EventNavigate requests a view change; Target carries the route.
	EventNavigate

	// EventConfigReloaded announces a config hot reload.
	EventConfigReloaded
)

// String returns the string representation of the event type.
func (t EventType) String() string {
	switch t {
	case EventOpenSearch:
		return "open-search"
	case EventShowShortcuts:
		return "show-shortcuts"
	case EventCloseModals:
		return "close-modals"
	case EventNavigate:
		return "navigate"
	case EventConfigReloaded:
		return "config-reloaded"
	default:
		return "unknown"
	}
}

// Event is a single published event.
type Event struct {
	Type EventType

	// Target is the navigation route for EventNavigate, empty otherwise.
	Target string
}

// =============================================================================
// BUS
// =============================================================================

// DefaultBuffer is the per-subscriber channel buffer.
const DefaultBuffer = 16

// Bus fans events out to subscribers.
type Bus struct {
	mu     sync.RWMutex
	subs   map[int]chan Event
	nextID int
	buffer int
	closed bool
}

// New creates a Bus with the given per-subscriber buffer.
// A buffer of 0 uses DefaultBuffer.
func New(buffer int) *Bus {
	if buffer <= 0 {
		buffer = DefaultBuffer
	}
	return &Bus{
		subs:   make(map[int]chan Event),
		buffer: buffer,
	}
}

// Subscribe registers a new subscriber. The returned cancel function
// removes the subscription and closes the channel.
func (b *Bus) Subscribe() (<-chan Event, func()) {
	b.mu.Lock()
	defer b.mu.Unlock()

	ch := make(chan Event, b.buffer)
	if b.closed {
		close(ch)
		return ch, func() {}
	}

	id := b.nextID
	b.nextID++
	b.subs[id] = ch

	cancel := func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		if sub, ok := b.subs[id]; ok {
			delete(b.subs, id)
			close(sub)
		}
	}

	return ch, cancel
}

// Publish fans the event out to all subscribers without blocking.
// A subscriber with a full buffer misses the event; publishers never stall
// on a slow consumer.
func (b *Bus) Publish(ev Event) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.closed {
		return
	}

	for _, ch := range b.subs {
		select {
		case ch <- ev:
		default:
		}
	}
}

// SubscriberCount returns the number of active subscribers.
func (b *Bus) SubscriberCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs)
}

// Close shuts the bus down and closes all subscriber channels.
func (b *Bus) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return
	}
	b.closed = true

	for id, ch := range b.subs {
		delete(b.subs, id)
		close(ch)
	}
}
