// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package chat drives the conversation turn lifecycle.
package chat

// =============================================================================
// TURN STATE
// =============================================================================

// TurnState is the position of the current turn in its lifecycle.
type TurnState int

const (
	// TurnIdle means no turn has been submitted yet.
	TurnIdle TurnState = iota
	// TurnSubmitted means the user text and placeholder are in the store
	// but the streamed request has not been opened.
	TurnSubmitted
	// TurnAwaitingFirstByte means the request is open and no delta has
	// arrived yet.
	TurnAwaitingFirstByte
	// TurnStreaming means at least one delta has been applied.
	TurnStreaming
	// TurnSettled means the terminal record arrived and the answer is
	// finalized.
	TurnSettled
	// TurnErrored means the turn failed; the placeholder was replaced
	// with failure copy. A new turn may be submitted.
	TurnErrored
)

// String returns the state name for display and debugging.
func (s TurnState) String() string {
	switch s {
	case TurnIdle:
		return "idle"
	case TurnSubmitted:
		return "submitted"
	case TurnAwaitingFirstByte:
		return "awaiting_first_byte"
	case TurnStreaming:
		return "streaming"
	case TurnSettled:
		return "settled"
	case TurnErrored:
		return "errored"
	default:
		return "unknown"
	}
}

// InFlight reports whether the state blocks new turn submission.
func (s TurnState) InFlight() bool {
	switch s {
	case TurnSubmitted, TurnAwaitingFirstByte, TurnStreaming:
		return true
	default:
		return false
	}
}

// =============================================================================
// TURN EVENTS
// =============================================================================

// TurnEvent is one tagged input to the turn reducer.
type TurnEvent interface {
	isTurnEvent()
}

// UserSubmitted starts a new turn.
type UserSubmitted struct {
	Question  string
	WebSearch bool
}

// RequestOpened marks the streamed request as sent, before any byte of
// the response has arrived.
type RequestOpened struct{}

// DeltaReceived carries one content fragment from the stream.
type DeltaReceived struct {
	Content string
}

// Finalized carries the terminal record's authoritative metadata.
type Finalized struct {
	MessageID   string
	SessionID   string
	Suggestions []string
}

// Failed marks the turn as broken: request failure, read failure, or a
// stream that ended without a terminal record.
type Failed struct {
	Err error
}

func (UserSubmitted) isTurnEvent() {}
func (RequestOpened) isTurnEvent() {}
func (DeltaReceived) isTurnEvent() {}
func (Finalized) isTurnEvent()     {}
func (Failed) isTurnEvent()        {}

// =============================================================================
// REDUCER
// =============================================================================

// Reduce applies one event to a turn state and returns the next state.
// ok is false when the event is not legal in the given state, in which
// case the returned state equals the input and the caller should drop the
// event. Reduce is pure: no I/O, no clock, no store access.
func Reduce(state TurnState, event TurnEvent) (next TurnState, ok bool) {
	switch event.(type) {
	case UserSubmitted:
		if state.InFlight() {
			return state, false
		}
		return TurnSubmitted, true

	case RequestOpened:
		if state != TurnSubmitted {
			return state, false
		}
		return TurnAwaitingFirstByte, true

	case DeltaReceived:
		if state != TurnAwaitingFirstByte && state != TurnStreaming {
			return state, false
		}
		return TurnStreaming, true

	case Finalized:
		// A terminal record with zero preceding deltas is legal; the
		// answer is simply empty.
		if !state.InFlight() {
			return state, false
		}
		return TurnSettled, true

	case Failed:
		if !state.InFlight() {
			return state, false
		}
		return TurnErrored, true
	}
	return state, false
}
