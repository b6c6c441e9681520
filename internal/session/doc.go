// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package session manages the server-side session catalog.
//
// This package owns the list of persisted chat sessions, the binding
// between the local conversation and one of those sessions, and the
// credential lifecycle around them.
//
// # Key Behaviors
//
//   - The catalog only exists for signed-in users; guests get an empty
//     list without a network round trip.
//   - Loading a session replaces the conversation with its transcript;
//     an empty session renders as the greeting, never a blank screen.
//   - Deleting the active session resets the conversation; deleting any
//     other session only changes the catalog.
//   - Any credential rejection from the server triggers a full local
//     sign-out: credential and identity cleared, catalog dropped,
//     conversation reset, fresh guest identity minted.
//
// # Usage
//
//	mgr, err := session.NewManager(client, store, conv, "acme")
//	sessions, err := mgr.Refresh(ctx)
//	err = mgr.Load(ctx, sessions[0].ID)
package session
