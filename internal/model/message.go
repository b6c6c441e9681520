// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package model contains the data structures for conversations and messages.
package model

import (
	"fmt"
	"strings"
	"time"
)

// =============================================================================
// ROLE TYPE
// =============================================================================

// Role represents the sender of a message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// String returns the string representation of the role.
func (r Role) String() string {
	return string(r)
}

// DisplayName returns a human-readable name for the role.
func (r Role) DisplayName() string {
	switch r {
	case RoleUser:
		return "You"
	case RoleAssistant:
		return "Assistant"
	default:
		return string(r)
	}
}

// =============================================================================
// PHASE TYPE
// =============================================================================

// Phase is the lifecycle state of a message.
//
// A message starts pending (placeholder copy, no real content yet), moves
// to streaming on the first delta, and ends settled or failed. Settled and
// failed are both terminal: content never changes again, only the rating
// may toggle. At most one message in a conversation is ever non-terminal.
type Phase int

const (
	PhasePending Phase = iota
	PhaseStreaming
	PhaseSettled
	PhaseFailed
)

// String returns the phase name for display and debugging.
func (p Phase) String() string {
	switch p {
	case PhasePending:
		return "pending"
	case PhaseStreaming:
		return "streaming"
	case PhaseSettled:
		return "settled"
	case PhaseFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Terminal reports whether the phase permits no further content changes.
func (p Phase) Terminal() bool {
	return p == PhaseSettled || p == PhaseFailed
}

// =============================================================================
// RATING TYPE
// =============================================================================

// Rating is the user's feedback on an assistant message.
type Rating int

const (
	RatingNone Rating = 0
	RatingUp   Rating = 1
	RatingDown Rating = -1
)

// =============================================================================
// SOURCE TYPE
// =============================================================================

// Source is one citation attached to a settled assistant message.
type Source struct {
	DocumentID     string `json:"document_id"`
	SourceFilename string `json:"source_filename"`
	PageLabel      string `json:"page_label,omitempty"`
}

// =============================================================================
// MESSAGE TYPE
// =============================================================================

// Placeholder and fallback copy shown to the user. The searching variant
// signals the longer latency of a web-augmented turn.
const (
	PlaceholderThinking  = "Thinking..."
	PlaceholderSearching = "Searching the web..."
	FailureText          = "Sorry, I couldn't finish that answer. Please try again."
)

// Message represents a single message in a conversation.
type Message struct {
	// Identity. ID is empty until the server assigns a persisted id,
	// which arrives with the terminal record of a streamed turn.
	ID        string    `json:"id,omitempty"`
	Role      Role      `json:"role"`
	Timestamp time.Time `json:"timestamp"`

	// Content. While pending this holds placeholder copy; once streaming
	// starts, real content accumulates in streamContent and is merged
	// into Content on finalization.
	Content string `json:"content"`
	Phase   Phase  `json:"phase"`

	// WasSearching marks a message belonging to a web-augmented turn. It
	// drives the search-variant placeholder copy and survives settling so
	// regenerating the answer replays the same web-search flag.
	WasSearching bool `json:"-"`

	// Feedback and finalization metadata.
	Rating      Rating   `json:"rating,omitempty"`
	Sources     []Source `json:"sources,omitempty"`
	Suggestions []string `json:"suggestions,omitempty"`

	// Performance metrics (for assistant messages)
	TTFT          time.Duration `json:"ttft_ns,omitempty"`           // Time to first delta
	TotalDuration time.Duration `json:"total_duration_ns,omitempty"` // Submit to settle

	// Streaming state (not persisted)
	// PERFORMANCE: strings.Builder avoids quadratic allocations during streaming
	streamContent strings.Builder
	startedAt     time.Time
}

// NewUserMessage creates a settled user message.
func NewUserMessage(content string) *Message {
	return &Message{
		Role:      RoleUser,
		Content:   content,
		Timestamp: time.Now(),
		Phase:     PhaseSettled,
	}
}

// NewPlaceholderMessage creates a pending assistant message whose copy
// depends on whether web search was requested for the turn.
func NewPlaceholderMessage(searching bool) *Message {
	content := PlaceholderThinking
	if searching {
		content = PlaceholderSearching
	}
	now := time.Now()
	return &Message{
		Role:         RoleAssistant,
		Content:      content,
		Timestamp:    now,
		Phase:        PhasePending,
		WasSearching: searching,
		startedAt:    now,
	}
}

// NewSettledAssistantMessage creates an already-settled assistant message,
// used when mirroring persisted session history and for the greeting.
func NewSettledAssistantMessage(id, content string, rating Rating) *Message {
	return &Message{
		ID:        id,
		Role:      RoleAssistant,
		Content:   content,
		Timestamp: time.Now(),
		Phase:     PhaseSettled,
		Rating:    rating,
	}
}

// =============================================================================
// MESSAGE METHODS
// =============================================================================

// AppendDelta appends a content fragment to an in-progress message. The
// first delta replaces the placeholder copy entirely and transitions the
// message into the streaming phase. Deltas against a terminal message are
// dropped.
func (m *Message) AppendDelta(text string) {
	switch m.Phase {
	case PhasePending:
		m.Content = ""
		m.Phase = PhaseStreaming
		m.TTFT = time.Since(m.startedAt)
		m.streamContent.WriteString(text)
	case PhaseStreaming:
		m.streamContent.WriteString(text)
	}
}

// FinalMetadata carries the authoritative metadata from the terminal
// record of a streamed turn.
type FinalMetadata struct {
	MessageID   string
	Sources     []Source
	Suggestions []string
}

// Finalize merges streamed content, attaches terminal metadata, and moves
// the message to the settled phase.
func (m *Message) Finalize(meta FinalMetadata) {
	if m.Phase.Terminal() {
		return
	}
	m.Content = m.streamContent.String()
	m.streamContent.Reset()
	m.ID = meta.MessageID
	m.Sources = meta.Sources
	m.Suggestions = meta.Suggestions
	m.Phase = PhaseSettled
	if !m.startedAt.IsZero() {
		m.TotalDuration = time.Since(m.startedAt)
	}
}

// Fail overwrites the message with fixed failure copy and makes it
// terminal. Partial content from a broken stream is thrown away; a
// truncated answer reads as complete and can mislead.
func (m *Message) Fail() {
	if m.Phase.Terminal() {
		return
	}
	m.streamContent.Reset()
	m.Content = FailureText
	m.Sources = nil
	m.Suggestions = nil
	m.Phase = PhaseFailed
}

// DisplayContent returns the content to render: placeholder copy while
// pending, the accumulated stream while streaming, final content after.
func (m *Message) DisplayContent() string {
	if m.Phase == PhaseStreaming {
		return m.streamContent.String()
	}
	return m.Content
}

// DisplayTime returns the creation time formatted for the transcript.
func (m *Message) DisplayTime() string {
	return m.Timestamp.Format("15:04")
}

// Preview returns a truncated preview of the message content.
// Uses rune-based truncation to handle Unicode correctly.
func (m *Message) Preview(maxLen int) string {
	content := m.DisplayContent()
	runes := []rune(content)
	if len(runes) <= maxLen {
		return content
	}
	return string(runes[:maxLen-3]) + "..."
}

// IsEmpty returns true if the message has no content.
func (m *Message) IsEmpty() bool {
	return len(m.Content) == 0 && m.streamContent.Len() == 0
}

// FormatStats returns a formatted string of message timing statistics.
func (m *Message) FormatStats() string {
	if m.Role != RoleAssistant || m.TotalDuration == 0 {
		return ""
	}
	return fmt.Sprintf("%.1fs | TTFT %dms", m.TotalDuration.Seconds(), m.TTFT.Milliseconds())
}

// Clone returns a copy safe to hand to renderers. The stream builder is
// flattened into Content so the copy is a plain value.
func (m *Message) Clone() Message {
	clone := Message{
		ID:            m.ID,
		Role:          m.Role,
		Timestamp:     m.Timestamp,
		Content:       m.DisplayContent(),
		Phase:         m.Phase,
		WasSearching:  m.WasSearching,
		Rating:        m.Rating,
		TTFT:          m.TTFT,
		TotalDuration: m.TotalDuration,
	}
	if len(m.Sources) > 0 {
		clone.Sources = append([]Source(nil), m.Sources...)
	}
	if len(m.Suggestions) > 0 {
		clone.Suggestions = append([]string(nil), m.Suggestions...)
	}
	return clone
}
