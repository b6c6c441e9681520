// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package model contains the data structures for conversations and messages.
package model

import (
	"sync"
	"time"
)

// MaxMessages is the maximum number of messages to keep in conversation history.
// When exceeded, old messages are pruned to prevent unbounded memory growth.
const MaxMessages = 1000

// GreetingText opens every fresh conversation. It is a local, settled
// assistant message with no server id, so it can never be rated.
const GreetingText = "Hi! Ask me anything about your documents."

// =============================================================================
// CONVERSATION TYPE
// =============================================================================

// Conversation holds the transcript of one chat session.
//
// All mutation happens through the methods below under a single mutex, so
// the stream callback goroutine and the UI loop never race. Renderers get
// value copies via Snapshot and never see the builder mid-write.
type Conversation struct {
	mu sync.Mutex

	// SessionID is the server-side session this transcript mirrors.
	// Empty until the first turn settles or a persisted session loads.
	sessionID string
	title     string
	createdAt time.Time
	updatedAt time.Time

	messages []*Message
}

// NewConversation creates a conversation opened with the greeting.
func NewConversation() *Conversation {
	now := time.Now()
	return &Conversation{
		createdAt: now,
		updatedAt: now,
		messages:  []*Message{NewSettledAssistantMessage("", GreetingText, RatingNone)},
	}
}

// Reset discards the transcript and session binding, returning the
// conversation to a fresh greeting.
func (c *Conversation) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sessionID = ""
	c.title = ""
	c.messages = []*Message{NewSettledAssistantMessage("", GreetingText, RatingNone)}
	c.updatedAt = time.Now()
}

// SessionID returns the bound server session id, or "" for an unsaved
// conversation.
func (c *Conversation) SessionID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sessionID
}

// BindSession records the server session id once the backend assigns one.
func (c *Conversation) BindSession(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sessionID = id
}

// =============================================================================
// MESSAGE MANAGEMENT
// =============================================================================

// AddUserMessage appends a settled user message and returns it.
func (c *Conversation) AddUserMessage(content string) *Message {
	c.mu.Lock()
	defer c.mu.Unlock()
	msg := NewUserMessage(content)
	c.appendLocked(msg)
	return msg
}

// AddPlaceholder appends a pending assistant message for an in-flight
// turn. It returns nil if another message is still pending or streaming;
// a conversation carries at most one non-terminal message.
func (c *Conversation) AddPlaceholder(searching bool) *Message {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.activeLocked() != nil {
		return nil
	}
	msg := NewPlaceholderMessage(searching)
	c.appendLocked(msg)
	return msg
}

// ApplyDelta routes a streamed content fragment to the active message.
// Deltas arriving with no active message are dropped.
func (c *Conversation) ApplyDelta(text string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if msg := c.activeLocked(); msg != nil {
		msg.AppendDelta(text)
		c.updatedAt = time.Now()
	}
}

// FinalizeLast settles the active message with terminal metadata and
// returns it, or nil if no turn was in flight.
func (c *Conversation) FinalizeLast(meta FinalMetadata) *Message {
	c.mu.Lock()
	defer c.mu.Unlock()
	msg := c.activeLocked()
	if msg == nil {
		return nil
	}
	msg.Finalize(meta)
	c.updatedAt = time.Now()
	return msg
}

// FailLast replaces the active message's content with failure copy and
// makes it terminal. A no-op when nothing is in flight.
func (c *Conversation) FailLast() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if msg := c.activeLocked(); msg != nil {
		msg.Fail()
		c.updatedAt = time.Now()
	}
}

// HasActiveTurn reports whether a message is pending or streaming.
func (c *Conversation) HasActiveTurn() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.activeLocked() != nil
}

// activeLocked returns the non-terminal message, which is always the
// last one when present. Caller holds c.mu.
func (c *Conversation) activeLocked() *Message {
	if len(c.messages) == 0 {
		return nil
	}
	last := c.messages[len(c.messages)-1]
	if last.Phase.Terminal() {
		return nil
	}
	return last
}

func (c *Conversation) appendLocked(msg *Message) {
	c.messages = append(c.messages, msg)
	c.updatedAt = time.Now()
	c.updateTitleLocked()
	if len(c.messages) > MaxMessages {
		c.messages = c.messages[len(c.messages)-MaxMessages:]
	}
}

// =============================================================================
// FEEDBACK
// =============================================================================

// SetRating records feedback on a persisted assistant message. It returns
// the previous rating and whether the message was found. Messages without
// a server id, the greeting included, cannot be rated.
func (c *Conversation) SetRating(messageID string, rating Rating) (Rating, bool) {
	if messageID == "" {
		return RatingNone, false
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, msg := range c.messages {
		if msg.ID == messageID && msg.Role == RoleAssistant {
			prev := msg.Rating
			msg.Rating = rating
			c.updatedAt = time.Now()
			return prev, true
		}
	}
	return RatingNone, false
}

// =============================================================================
// REGENERATION SUPPORT
// =============================================================================

// QuestionForRegenerate locates the user message preceding the assistant
// message at index and returns its content, the web-search flag of the
// answer being replaced, and the user message index. ok is false when
// index does not name a terminal assistant message or no user turn
// precedes it.
func (c *Conversation) QuestionForRegenerate(index int) (question string, webSearch bool, userIndex int, ok bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if index < 0 || index >= len(c.messages) {
		return "", false, 0, false
	}
	target := c.messages[index]
	if target.Role != RoleAssistant || !target.Phase.Terminal() {
		return "", false, 0, false
	}
	for i := index - 1; i >= 0; i-- {
		if c.messages[i].Role == RoleUser {
			return c.messages[i].Content, target.WasSearching, i, true
		}
	}
	return "", false, 0, false
}

// TruncateFrom drops the message at index and everything after it.
func (c *Conversation) TruncateFrom(index int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if index < 0 || index >= len(c.messages) {
		return
	}
	c.messages = c.messages[:index]
	c.updatedAt = time.Now()
}

// =============================================================================
// HISTORY REPLACEMENT
// =============================================================================

// ReplaceAll swaps in a transcript loaded from the server and binds the
// conversation to that session. An empty history falls back to the
// greeting so a just-created session does not render as a blank screen.
func (c *Conversation) ReplaceAll(sessionID, title string, msgs []*Message) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sessionID = sessionID
	c.title = title
	if len(msgs) == 0 {
		c.messages = []*Message{NewSettledAssistantMessage("", GreetingText, RatingNone)}
	} else {
		c.messages = msgs
	}
	c.updatedAt = time.Now()
}

// =============================================================================
// READ ACCESS
// =============================================================================

// Snapshot returns value copies of every message for rendering.
func (c *Conversation) Snapshot() []Message {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Message, len(c.messages))
	for i, msg := range c.messages {
		out[i] = msg.Clone()
	}
	return out
}

// Len returns the number of messages.
func (c *Conversation) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.messages)
}

// LastMessage returns a copy of the most recent message and whether one
// exists.
func (c *Conversation) LastMessage() (Message, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.messages) == 0 {
		return Message{}, false
	}
	return c.messages[len(c.messages)-1].Clone(), true
}

// MessageAt returns a copy of the message at index.
func (c *Conversation) MessageAt(index int) (Message, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if index < 0 || index >= len(c.messages) {
		return Message{}, false
	}
	return c.messages[index].Clone(), true
}

// =============================================================================
// TITLE MANAGEMENT
// =============================================================================

// updateTitleLocked auto-generates a title from the first user message if
// not set. Caller holds c.mu.
func (c *Conversation) updateTitleLocked() {
	if c.title != "" {
		return
	}
	for _, msg := range c.messages {
		if msg.Role == RoleUser {
			c.title = msg.Preview(50)
			return
		}
	}
}

// SetTitle manually sets the conversation title.
func (c *Conversation) SetTitle(title string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.title = title
	c.updatedAt = time.Now()
}

// Title returns the conversation title or a default.
func (c *Conversation) Title() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.title != "" {
		return c.title
	}
	return "New Conversation"
}

// UpdatedAt returns the time of the last mutation.
func (c *Conversation) UpdatedAt() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.updatedAt
}
