// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package api provides the HTTP client for the docchat answer service.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// =============================================================================
// ERROR TYPES
// =============================================================================

// ClientError represents an error from the answer service client.
type ClientError struct {
	Type    ErrorType
	Message string
	Cause   error
}

func (e *ClientError) Error() string {
	if e.Cause != nil {
		return e.Message + ": " + e.Cause.Error()
	}
	return e.Message
}

func (e *ClientError) Unwrap() error {
	return e.Cause
}

// ErrorType categorizes client errors for handling.
type ErrorType int

const (
	ErrTypeUnknown ErrorType = iota
	ErrTypeConnection
	ErrTypeTimeout
	ErrTypeUnauthorized
	ErrTypeNotFound
	ErrTypeInvalidResponse
	ErrTypeStream
)

// Sentinel errors for easy checking.
var (
	ErrUnreachable     = &ClientError{Type: ErrTypeConnection, Message: "answer service is unreachable"}
	ErrTimeout         = &ClientError{Type: ErrTypeTimeout, Message: "request timed out"}
	ErrUnauthorized    = &ClientError{Type: ErrTypeUnauthorized, Message: "credential rejected"}
	ErrSessionNotFound = &ClientError{Type: ErrTypeNotFound, Message: "session not found"}

	// ErrStreamTruncated marks a stream that ended without a terminal
	// record. AskStream itself returns nil in that case; callers that
	// treat an answer as complete must check for the final chunk and
	// surface this error when it never arrived.
	ErrStreamTruncated = &ClientError{Type: ErrTypeStream, Message: "stream ended before the final record"}
)

// IsAuthError checks whether an error means the credential was rejected.
// Session operations treat this as the trigger for a full local sign-out.
func IsAuthError(err error) bool {
	var clientErr *ClientError
	if errors.As(err, &clientErr) {
		return clientErr.Type == ErrTypeUnauthorized
	}
	return errors.Is(err, ErrUnauthorized)
}

// IsTimeout checks if an error is a timeout error.
func IsTimeout(err error) bool {
	var clientErr *ClientError
	if errors.As(err, &clientErr) {
		return clientErr.Type == ErrTypeTimeout
	}
	return errors.Is(err, ErrTimeout)
}

// IsNotFound checks if an error means the resource does not exist.
func IsNotFound(err error) bool {
	var clientErr *ClientError
	if errors.As(err, &clientErr) {
		return clientErr.Type == ErrTypeNotFound
	}
	return errors.Is(err, ErrSessionNotFound)
}

// =============================================================================
// CLIENT CONFIGURATION
// =============================================================================

// ClientConfig holds configuration options for the answer service client.
type ClientConfig struct {
	// BaseURL is the answer service base URL (default: http://127.0.0.1:8000)
	BaseURL string

	// Timeout for non-streaming requests (default: 30s)
	Timeout time.Duration

	// RequestsPerSecond paces outgoing calls so a busy UI cannot hammer
	// the service (default: 5, burst 10).
	RequestsPerSecond float64
}

// DefaultConfig returns the default client configuration.
func DefaultConfig() *ClientConfig {
	return &ClientConfig{
		BaseURL:           "http://127.0.0.1:8000",
		Timeout:           30 * time.Second,
		RequestsPerSecond: 5,
	}
}

// =============================================================================
// CLIENT
// =============================================================================

// Client handles communication with the answer service.
//
// The Client is safe for concurrent use. A bearer credential, when set,
// rides on every request; its absence is legal for anonymous turns.
type Client struct {
	config     *ClientConfig
	httpClient *http.Client
	limiter    *rate.Limiter

	mu         sync.RWMutex
	credential string
}

// NewClient creates a new answer service client with default configuration.
func NewClient() *Client {
	return NewClientWithConfig(DefaultConfig())
}

// NewClientWithConfig creates a new client with custom configuration.
func NewClientWithConfig(config *ClientConfig) *Client {
	if config == nil {
		config = DefaultConfig()
	}
	if config.BaseURL == "" {
		config.BaseURL = "http://127.0.0.1:8000"
	}
	if config.Timeout == 0 {
		config.Timeout = 30 * time.Second
	}
	if config.RequestsPerSecond == 0 {
		config.RequestsPerSecond = 5
	}

	return &Client{
		config: config,
		httpClient: &http.Client{
			Timeout: config.Timeout,
		},
		limiter: rate.NewLimiter(rate.Limit(config.RequestsPerSecond), 10),
	}
}

// SetCredential installs the bearer credential used on subsequent calls.
// An empty string clears it (anonymous mode).
func (c *Client) SetCredential(token string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.credential = token
}

// HasCredential reports whether a bearer credential is currently set.
func (c *Client) HasCredential() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.credential != ""
}

// BaseURL returns the configured service base URL.
func (c *Client) BaseURL() string {
	return c.config.BaseURL
}

// newRequest builds a request with JSON and credential headers applied.
func (c *Client) newRequest(ctx context.Context, method, path string, body []byte) (*http.Request, error) {
	var reader *bytes.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	} else {
		reader = bytes.NewReader(nil)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.config.BaseURL+path, reader)
	if err != nil {
		return nil, &ClientError{Type: ErrTypeConnection, Message: "failed to create request", Cause: err}
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	c.mu.RLock()
	if c.credential != "" {
		req.Header.Set("Authorization", "Bearer "+c.credential)
	}
	c.mu.RUnlock()

	return req, nil
}

// checkStatus maps non-2xx responses to typed client errors, reading the
// service's error detail when it provides one.
func checkStatus(resp *http.Response, action string) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}

	var svcErr serviceError
	detail := ""
	if err := json.NewDecoder(resp.Body).Decode(&svcErr); err == nil {
		detail = svcErr.Detail
	}

	switch resp.StatusCode {
	case http.StatusUnauthorized, http.StatusForbidden:
		return ErrUnauthorized
	case http.StatusNotFound:
		return ErrSessionNotFound
	}

	msg := action + " failed: " + resp.Status
	if detail != "" {
		msg = action + " failed: " + detail
	}
	return &ClientError{Type: ErrTypeInvalidResponse, Message: msg}
}

// mapTransportErr converts a transport-level failure into a typed error.
func mapTransportErr(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return ErrTimeout
	}
	if errors.Is(err, context.Canceled) {
		return err
	}
	return &ClientError{Type: ErrTypeConnection, Message: "answer service is unreachable", Cause: err}
}

// =============================================================================
// STREAMED ANSWERS
// =============================================================================

// AskStream submits one user turn and consumes the streamed answer,
// calling the callback for each decoded chunk in order. It returns when
// the stream ends (cleanly or not) or the context is cancelled.
//
// The caller is responsible for noticing when a stream ended without a
// final chunk; AskStream itself only distinguishes transport failures.
func (c *Client) AskStream(ctx context.Context, ask AskRequest, callback StreamCallback) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}

	body, err := json.Marshal(ask)
	if err != nil {
		return &ClientError{Type: ErrTypeInvalidResponse, Message: "failed to marshal request", Cause: err}
	}

	req, err := c.newRequest(ctx, http.MethodPost, "/chat/public/stream", body)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "text/event-stream")

	// Streaming uses a client without a global timeout; the context
	// bounds the request instead, since an answer may stream for longer
	// than any sensible per-request deadline.
	streamClient := &http.Client{Transport: c.httpClient.Transport}

	resp, err := streamClient.Do(req)
	if err != nil {
		return mapTransportErr(err)
	}
	defer resp.Body.Close()

	if err := checkStatus(resp, "stream request"); err != nil {
		return err
	}

	reader := NewStreamReader(resp.Body)
	return reader.Process(ctx, callback)
}

// =============================================================================
// SESSION OPERATIONS
// =============================================================================

// ListSessions returns the session catalog for a tenant. Sessions are a
// credential-gated feature; callers should skip the call entirely when
// anonymous rather than expect an error here.
func (c *Client) ListSessions(ctx context.Context, tenantID string) ([]SessionInfo, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	req, err := c.newRequest(ctx, http.MethodGet, "/chat/sessions?tenant_id="+tenantID, nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, mapTransportErr(err)
	}
	defer resp.Body.Close()

	if err := checkStatus(resp, "list sessions"); err != nil {
		return nil, err
	}

	var result SessionListResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, &ClientError{Type: ErrTypeInvalidResponse, Message: "failed to decode session list", Cause: err}
	}
	return result.Sessions, nil
}

// CreateSession creates a fresh session and returns it.
func (c *Client) CreateSession(ctx context.Context, create CreateSessionRequest) (*SessionInfo, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	body, err := json.Marshal(create)
	if err != nil {
		return nil, &ClientError{Type: ErrTypeInvalidResponse, Message: "failed to marshal request", Cause: err}
	}

	req, err := c.newRequest(ctx, http.MethodPost, "/chat/sessions", body)
	if err != nil {
		return nil, err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, mapTransportErr(err)
	}
	defer resp.Body.Close()

	if err := checkStatus(resp, "create session"); err != nil {
		return nil, err
	}

	var result SessionInfo
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, &ClientError{Type: ErrTypeInvalidResponse, Message: "failed to decode session", Cause: err}
	}
	return &result, nil
}

// GetSession fetches a session together with its persisted messages.
func (c *Client) GetSession(ctx context.Context, id string) (*SessionDetail, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	req, err := c.newRequest(ctx, http.MethodGet, "/chat/sessions/"+id, nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, mapTransportErr(err)
	}
	defer resp.Body.Close()

	if err := checkStatus(resp, "get session"); err != nil {
		return nil, err
	}

	var result SessionDetail
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, &ClientError{Type: ErrTypeInvalidResponse, Message: "failed to decode session detail", Cause: err}
	}
	return &result, nil
}

// DeleteSession removes a session from the catalog.
func (c *Client) DeleteSession(ctx context.Context, id string) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}

	req, err := c.newRequest(ctx, http.MethodDelete, "/chat/sessions/"+id, nil)
	if err != nil {
		return err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return mapTransportErr(err)
	}
	defer resp.Body.Close()

	return checkStatus(resp, "delete session")
}

// =============================================================================
// FEEDBACK
// =============================================================================

// RateMessage sets a rating on a persisted assistant message.
func (c *Client) RateMessage(ctx context.Context, messageID string, rating int) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}

	body, err := json.Marshal(FeedbackRequest{Rating: rating})
	if err != nil {
		return &ClientError{Type: ErrTypeInvalidResponse, Message: "failed to marshal request", Cause: err}
	}

	req, err := c.newRequest(ctx, http.MethodPost, "/chat/messages/"+messageID+"/feedback", body)
	if err != nil {
		return err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return mapTransportErr(err)
	}
	defer resp.Body.Close()

	return checkStatus(resp, "rate message")
}
