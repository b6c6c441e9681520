// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package api provides the HTTP client for the docchat answer service.
package api

import "time"

// =============================================================================
// REQUEST TYPES
// =============================================================================

// AskRequest is the request body for the streamed answer endpoint.
type AskRequest struct {
	Question       string `json:"question"`                  // The user's question text
	TenantID       string `json:"tenant_id"`                 // Which bot/knowledge base to query
	SessionID      string `json:"session_id,omitempty"`      // Existing session, empty for a fresh conversation
	UserIdentifier string `json:"user_identifier,omitempty"` // Device or account identifier for attribution
	WebSearch      bool   `json:"web_search"`                // Augment retrieval with a live web search
}

// CreateSessionRequest is the request body for creating a chat session.
type CreateSessionRequest struct {
	TenantID       string `json:"tenant_id"`
	Title          string `json:"title,omitempty"`
	UserIdentifier string `json:"user_identifier,omitempty"`
}

// FeedbackRequest sets a rating on a persisted assistant message.
type FeedbackRequest struct {
	Rating int `json:"rating"` // +1, -1, or 0 to clear
}

// =============================================================================
// STREAM TYPES
// =============================================================================

// StreamChunk is one decoded record of the answer stream.
//
// A chunk with IsFinal false carries an incremental content fragment
// (possibly empty). A chunk with IsFinal true terminates the turn and
// carries the authoritative metadata: the session the turn was persisted
// under, the assistant message's server id, follow-up suggestions and
// the citations the answer was grounded on.
type StreamChunk struct {
	Content            string           `json:"content"`
	IsFinal            bool             `json:"is_final"`
	SessionID          string           `json:"session_id,omitempty"`
	AssistantMessageID string           `json:"assistant_message_id,omitempty"`
	Suggestions        []string         `json:"suggestions,omitempty"`
	RetrievedChunks    []RetrievedChunk `json:"retrieved_chunks,omitempty"`
}

// RetrievedChunk is a citation entry attached to a final stream record.
type RetrievedChunk struct {
	DocumentID     string `json:"document_id"`
	SourceFilename string `json:"source_filename"`
	PageLabel      string `json:"page_label,omitempty"`
}

// WebDocumentPrefix marks a document_id as an external web source. The
// remainder after the prefix is a directly openable URL; every other
// document_id resolves through the service's document view endpoint.
const WebDocumentPrefix = "web:"

// IsWebSource reports whether the citation points at an external web page.
func (r RetrievedChunk) IsWebSource() bool {
	return len(r.DocumentID) > len(WebDocumentPrefix) &&
		r.DocumentID[:len(WebDocumentPrefix)] == WebDocumentPrefix
}

// SourceURL resolves the citation to an openable URL. Web sources return
// their embedded URL; stored documents resolve to the service's viewer,
// with a page anchor when a page label is present.
func (r RetrievedChunk) SourceURL(baseURL string) string {
	if r.IsWebSource() {
		return r.DocumentID[len(WebDocumentPrefix):]
	}
	u := baseURL + "/documents/" + r.DocumentID + "/view"
	if r.PageLabel != "" {
		u += "#page=" + r.PageLabel
	}
	return u
}

// =============================================================================
// SESSION TYPES
// =============================================================================

// SessionInfo is one entry of the session catalog.
type SessionInfo struct {
	ID           string    `json:"id"`
	TenantID     string    `json:"tenant_id"`
	Title        string    `json:"title"`
	MessageCount int       `json:"message_count"`
	LastMessage  string    `json:"last_message,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// SessionListResponse is the response body of the session list endpoint.
type SessionListResponse struct {
	Sessions []SessionInfo `json:"sessions"`
	Total    int           `json:"total"`
}

// MessageRecord is one persisted message inside a session detail.
type MessageRecord struct {
	ID        string    `json:"id"`
	Role      string    `json:"role"` // "user" or "assistant"
	Content   string    `json:"content"`
	Rating    int       `json:"rating,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// SessionDetail is a session together with its persisted messages.
type SessionDetail struct {
	SessionInfo
	Messages []MessageRecord `json:"messages"`
}

// =============================================================================
// ERROR RESPONSE
// =============================================================================

// serviceError is the error body the answer service returns on non-2xx.
type serviceError struct {
	Detail string `json:"detail"`
}
