// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package profile persists per-device identity and credentials.
package profile

import (
	"path/filepath"
	"strings"
	"testing"
)

// =============================================================================
// STORE TESTS
// =============================================================================

func testStores(t *testing.T) map[string]Store {
	t.Helper()
	sqlite, err := OpenSQLite(filepath.Join(t.TempDir(), "profile.db"))
	if err != nil {
		t.Fatalf("OpenSQLite: %v", err)
	}
	t.Cleanup(func() { sqlite.Close() })
	return map[string]Store{
		"sqlite": sqlite,
		"memory": NewMemoryStore(),
	}
}

func TestStore_RoundTrip(t *testing.T) {
	for name, store := range testStores(t) {
		t.Run(name, func(t *testing.T) {
			if _, ok, err := store.Get("missing"); err != nil || ok {
				t.Errorf("Get(missing) = (_, %v, %v), want absent", ok, err)
			}

			if err := store.Set("k", "v1"); err != nil {
				t.Fatalf("Set: %v", err)
			}
			if v, ok, _ := store.Get("k"); !ok || v != "v1" {
				t.Errorf("Get = (%q, %v)", v, ok)
			}

			// Overwrite
			if err := store.Set("k", "v2"); err != nil {
				t.Fatalf("Set overwrite: %v", err)
			}
			if v, _, _ := store.Get("k"); v != "v2" {
				t.Errorf("after overwrite = %q, want v2", v)
			}

			if err := store.Delete("k"); err != nil {
				t.Fatalf("Delete: %v", err)
			}
			if _, ok, _ := store.Get("k"); ok {
				t.Error("key survived delete")
			}
			// Deleting an absent key is fine.
			if err := store.Delete("k"); err != nil {
				t.Errorf("Delete absent: %v", err)
			}
		})
	}
}

func TestSQLiteStore_PersistsAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "profile.db")

	store, err := OpenSQLite(path)
	if err != nil {
		t.Fatalf("OpenSQLite: %v", err)
	}
	if err := store.Set("identity", "guest_abc"); err != nil {
		t.Fatalf("Set: %v", err)
	}
	store.Close()

	reopened, err := OpenSQLite(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer reopened.Close()
	if v, ok, _ := reopened.Get("identity"); !ok || v != "guest_abc" {
		t.Errorf("after reopen = (%q, %v)", v, ok)
	}
}

// =============================================================================
// IDENTITY TESTS
// =============================================================================

func TestIdentity_MintsStableGuestID(t *testing.T) {
	store := NewMemoryStore()

	id, err := Identity(store)
	if err != nil {
		t.Fatalf("Identity: %v", err)
	}
	if !strings.HasPrefix(id, GuestPrefix) {
		t.Errorf("minted id = %q, want %s prefix", id, GuestPrefix)
	}
	if !IsGuest(id) {
		t.Errorf("IsGuest(%q) = false", id)
	}

	// Stable across calls.
	again, err := Identity(store)
	if err != nil {
		t.Fatalf("Identity: %v", err)
	}
	if again != id {
		t.Errorf("second call minted a new id: %q != %q", again, id)
	}
}

func TestSetIdentity_ReplacesGuest(t *testing.T) {
	store := NewMemoryStore()
	if _, err := Identity(store); err != nil {
		t.Fatalf("Identity: %v", err)
	}
	if err := SetIdentity(store, "alice@example.com"); err != nil {
		t.Fatalf("SetIdentity: %v", err)
	}
	id, _ := Identity(store)
	if id != "alice@example.com" {
		t.Errorf("identity = %q", id)
	}
	if IsGuest(id) {
		t.Error("account identity reported as guest")
	}
}

// =============================================================================
// SEALING TESTS
// =============================================================================

func TestSeal_RoundTrip(t *testing.T) {
	store := NewMemoryStore()

	sealed, err := Seal(store, "secret", "bearer-token-123")
	if err != nil {
		t.Fatalf("Seal: %v", err)
	}
	if !strings.HasPrefix(sealed, SealedPrefix) {
		t.Errorf("sealed value = %q, want %s prefix", sealed, SealedPrefix)
	}
	if strings.Contains(sealed, "bearer-token-123") {
		t.Error("plaintext visible in sealed value")
	}

	plain, err := Unseal(store, "secret", sealed)
	if err != nil {
		t.Fatalf("Unseal: %v", err)
	}
	if plain != "bearer-token-123" {
		t.Errorf("unsealed = %q", plain)
	}
}

func TestUnseal_WrongSecretFails(t *testing.T) {
	store := NewMemoryStore()
	sealed, err := Seal(store, "right", "token")
	if err != nil {
		t.Fatalf("Seal: %v", err)
	}
	if _, err := Unseal(store, "wrong", sealed); err == nil {
		t.Error("unseal with wrong secret succeeded")
	}
}

func TestUnseal_PassesThroughUnsealedValues(t *testing.T) {
	store := NewMemoryStore()
	plain, err := Unseal(store, "secret", "legacy-plaintext-token")
	if err != nil {
		t.Fatalf("Unseal: %v", err)
	}
	if plain != "legacy-plaintext-token" {
		t.Errorf("passthrough = %q", plain)
	}
}

// =============================================================================
// CREDENTIAL TESTS
// =============================================================================

func TestCredential_StoreLoadClear(t *testing.T) {
	store := NewMemoryStore()

	// Absent by default.
	if tok, err := LoadCredential(store); err != nil || tok != "" {
		t.Errorf("LoadCredential empty = (%q, %v)", tok, err)
	}

	if err := StoreCredential(store, "tok-1"); err != nil {
		t.Fatalf("StoreCredential: %v", err)
	}
	// Stored form is sealed.
	raw, _, _ := store.Get(KeyCredential)
	if !strings.HasPrefix(raw, SealedPrefix) {
		t.Errorf("stored credential = %q, want sealed", raw)
	}

	tok, err := LoadCredential(store)
	if err != nil || tok != "tok-1" {
		t.Errorf("LoadCredential = (%q, %v)", tok, err)
	}

	if err := ClearCredential(store); err != nil {
		t.Fatalf("ClearCredential: %v", err)
	}
	if tok, _ := LoadCredential(store); tok != "" {
		t.Errorf("credential survived clear: %q", tok)
	}
}

func TestCredential_UnsealableTreatedAsAbsent(t *testing.T) {
	store := NewMemoryStore()
	if err := StoreCredential(store, "tok-1"); err != nil {
		t.Fatalf("StoreCredential: %v", err)
	}
	// A changed identity (profile copied between devices) makes the
	// sealed value undecryptable; it must read as absent, not error.
	if err := SetIdentity(store, "other@example.com"); err != nil {
		t.Fatalf("SetIdentity: %v", err)
	}
	tok, err := LoadCredential(store)
	if err != nil || tok != "" {
		t.Errorf("LoadCredential = (%q, %v), want absent", tok, err)
	}
	if _, ok, _ := store.Get(KeyCredential); ok {
		t.Error("undecryptable credential not cleared")
	}
}
