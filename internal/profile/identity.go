// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package profile persists per-device identity and credentials.
package profile

import (
	"github.com/google/uuid"
)

// GuestPrefix marks an identity minted locally, before any sign-in.
const GuestPrefix = "guest_"

// Identity returns the stored user identifier, minting and persisting a
// guest id on first use. Turns submitted before sign-in are attributed to
// this id.
func Identity(store Store) (string, error) {
	value, ok, err := store.Get(KeyIdentity)
	if err != nil {
		return "", err
	}
	if ok && value != "" {
		return value, nil
	}
	id := GuestPrefix + uuid.NewString()
	if err := store.Set(KeyIdentity, id); err != nil {
		return "", err
	}
	return id, nil
}

// SetIdentity replaces the stored identity, typically with the account
// email after a successful sign-in.
func SetIdentity(store Store, id string) error {
	return store.Set(KeyIdentity, id)
}

// IsGuest reports whether an identity was minted locally.
func IsGuest(id string) bool {
	return len(id) > len(GuestPrefix) && id[:len(GuestPrefix)] == GuestPrefix
}

// =============================================================================
// CREDENTIAL STORAGE
// =============================================================================

// StoreCredential seals a bearer token under the device identity and
// persists it.
func StoreCredential(store Store, token string) error {
	id, err := Identity(store)
	if err != nil {
		return err
	}
	sealed, err := Seal(store, id, token)
	if err != nil {
		return err
	}
	return store.Set(KeyCredential, sealed)
}

// LoadCredential returns the stored bearer token, or "" when none is
// stored. A credential that fails to unseal (profile copied between
// devices, tampered database) is treated as absent and cleared.
func LoadCredential(store Store) (string, error) {
	value, ok, err := store.Get(KeyCredential)
	if err != nil {
		return "", err
	}
	if !ok || value == "" {
		return "", nil
	}
	id, err := Identity(store)
	if err != nil {
		return "", err
	}
	token, err := Unseal(store, id, value)
	if err != nil {
		_ = store.Delete(KeyCredential)
		return "", nil
	}
	return token, nil
}

// ClearCredential removes the stored bearer token.
func ClearCredential(store Store) error {
	return store.Delete(KeyCredential)
}
