// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package auth signs chat users in against the answer service.
//
// Accounts are scoped to a tenant: the same email can exist under two
// tenants with different passwords, so every request carries the tenant
// id alongside the credentials. A successful login yields a bearer token
// that the session manager persists (sealed) and installs on the API
// client.
//
// # Usage
//
//	authc := auth.NewClient("http://127.0.0.1:8000", "acme")
//	tok, err := authc.Login(ctx, "alice@example.com", password)
//	if err == nil {
//	    mgr.SignIn(tok.AccessToken, tok.Email)
//	}
package auth
