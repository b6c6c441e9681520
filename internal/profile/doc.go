// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package profile persists per-device identity and credentials.
//
// The Store interface is a small key-value surface (get/set/delete) with
// two implementations: a SQLite-backed store for real runs and an
// in-memory store for tests. On top of it sit three concerns:
//
//   - Identity: a stable user identifier, minted as "guest_<uuid>" on
//     first use and replaced by the account email after sign-in.
//   - Credential sealing: bearer tokens are stored AES-GCM encrypted
//     under a PBKDF2-derived key, marked with the "ENC:" prefix, so a
//     copied profile database does not leak a usable token.
//   - Sign-out: clearing credential and identity together, after which a
//     fresh guest id is minted on next use.
//
// # Usage
//
//	store, err := profile.OpenSQLite(filepath.Join(dir, "profile.db"))
//	id, err := profile.Identity(store)
//	err = profile.StoreCredential(store, token)
package profile
