// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"sync/atomic"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/jeranaias/docchat-tui/internal/api"
	engine "github.com/jeranaias/docchat-tui/internal/chat"
)

// =============================================================================
// MESSAGE TYPES
// =============================================================================

// ChatEventMsg wraps a turn engine event for the Bubble Tea update loop.
// Delta events never travel this way; they go through the StreamingBuffer.
type ChatEventMsg struct {
	Event engine.Event
}

// CopyCompleteMsg reports the outcome of a copy-to-clipboard request.
type CopyCompleteMsg struct {
	Err error
}

// CopyFlashClearMsg clears the transient "copied" confirmation.
type CopyFlashClearMsg struct{}

// RatingAppliedMsg reports the outcome of a feedback request. The store is
// updated optimistically before the request, so a failure means the rating
// was rolled back.
type RatingAppliedMsg struct {
	MessageID string
	Err       error
}

// SessionsLoadedMsg delivers the session list for the overlay.
type SessionsLoadedMsg struct {
	Sessions []api.SessionInfo
	Err      error
}

// SessionOpenedMsg reports a session load (or new session) finishing.
type SessionOpenedMsg struct {
	SessionID string
	Err       error
}

// SessionDeletedMsg reports a session delete finishing.
type SessionDeletedMsg struct {
	SessionID string
	Err       error
}

// ErrorMsg carries a non-turn error (session ops, clipboard) to the UI.
type ErrorMsg struct {
	Err error
}

// =============================================================================
// EVENT BRIDGE
// =============================================================================

// EventBridge forwards turn engine events into the Bubble Tea program.
//
// The orchestrator emits events on its own goroutine, and the first events of
// a turn can fire before tea.Program.Run has started. The bridge therefore
// holds the program behind an atomic pointer set by Attach; events arriving
// before Attach are dropped for Send-style events and buffered for deltas.
type EventBridge struct {
	program atomic.Pointer[tea.Program]
	buffer  *StreamingBuffer
}

// NewEventBridge creates a bridge writing deltas into the given buffer.
func NewEventBridge(buffer *StreamingBuffer) *EventBridge {
	return &EventBridge{buffer: buffer}
}

// Buffer returns the delta buffer shared with the chat model.
func (b *EventBridge) Buffer() *StreamingBuffer {
	return b.buffer
}

// Attach binds the running program. Safe to call from any goroutine.
func (b *EventBridge) Attach(p *tea.Program) {
	b.program.Store(p)
}

// Notify routes one engine event. Deltas are batched through the
// StreamingBuffer; the stream tick loop picks them up, so no Send is needed
// and the program is never flooded with per-token messages. Everything else
// is delivered as a ChatEventMsg.
func (b *EventBridge) Notify(ev engine.Event) {
	if delta, ok := ev.(engine.TurnDeltaEvent); ok {
		b.buffer.Write(delta.Content)
		return
	}
	if p := b.program.Load(); p != nil {
		p.Send(ChatEventMsg{Event: ev})
	}
}
