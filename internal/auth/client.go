// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package auth signs chat users in against the answer service.
package auth

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/jeranaias/docchat-tui/internal/api"
)

// =============================================================================
// TYPES
// =============================================================================

// loginRequest is the request body for the user login endpoint.
type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	TenantID string `json:"tenant_id"`
}

// registerRequest is the request body for the user registration endpoint.
type registerRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	TenantID string `json:"tenant_id"`
}

// Token is the response of a successful login.
type Token struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	UserID      string `json:"user_id"`
	Email       string `json:"email"`
	TenantID    string `json:"tenant_id"`
}

// Account is the response of a successful registration.
type Account struct {
	ID       string `json:"id"`
	Email    string `json:"email"`
	TenantID string `json:"tenant_id"`
	IsActive bool   `json:"is_active"`
}

// serviceError is the error body the service returns on non-2xx.
type serviceError struct {
	Detail string `json:"detail"`
}

// =============================================================================
// CLIENT
// =============================================================================

// Client performs user authentication calls.
type Client struct {
	baseURL    string
	tenantID   string
	httpClient *http.Client
}

// NewClient creates an auth client for one tenant.
func NewClient(baseURL, tenantID string) *Client {
	return &Client{
		baseURL:  strings.TrimRight(baseURL, "/"),
		tenantID: tenantID,
		httpClient: &http.Client{
			Timeout: 15 * time.Second,
		},
	}
}

// Login authenticates a chat user and returns the bearer token. Wrong
// credentials and disabled accounts surface as an auth error, so callers
// can distinguish "try again" from "service is down".
func (c *Client) Login(ctx context.Context, email, password string) (*Token, error) {
	var token Token
	err := c.post(ctx, "/auth/user/login", loginRequest{
		Email:    email,
		Password: password,
		TenantID: c.tenantID,
	}, &token)
	if err != nil {
		return nil, err
	}
	return &token, nil
}

// Register creates a chat user account under the client's tenant.
func (c *Client) Register(ctx context.Context, email, password string) (*Account, error) {
	var account Account
	err := c.post(ctx, "/auth/user/register", registerRequest{
		Email:    email,
		Password: password,
		TenantID: c.tenantID,
	}, &account)
	if err != nil {
		return nil, err
	}
	return &account, nil
}

func (c *Client) post(ctx context.Context, path string, body, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return &api.ClientError{Type: api.ErrTypeUnknown, Message: "failed to encode request", Cause: err}
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return &api.ClientError{Type: api.ErrTypeUnknown, Message: "failed to create request", Cause: err}
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return api.ErrTimeout
		}
		return &api.ClientError{Type: api.ErrTypeConnection, Message: "answer service is unreachable", Cause: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var svcErr serviceError
		_ = json.NewDecoder(resp.Body).Decode(&svcErr)
		switch resp.StatusCode {
		case http.StatusUnauthorized, http.StatusForbidden:
			if svcErr.Detail != "" {
				return &api.ClientError{Type: api.ErrTypeUnauthorized, Message: svcErr.Detail}
			}
			return api.ErrUnauthorized
		default:
			msg := svcErr.Detail
			if msg == "" {
				msg = "authentication request failed: " + resp.Status
			}
			return &api.ClientError{Type: api.ErrTypeInvalidResponse, Message: msg}
		}
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &api.ClientError{Type: api.ErrTypeInvalidResponse, Message: "failed to decode response", Cause: err}
	}
	return nil
}
