// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package profile persists per-device identity and credentials.
package profile

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"strings"

	"golang.org/x/crypto/pbkdf2"
)

// =============================================================================
// CONSTANTS
// =============================================================================

// SealedPrefix marks a stored value as encrypted
// (format: ENC:base64(nonce|ciphertext|tag)).
const SealedPrefix = "ENC:"

// nonceSize is the size of the nonce/IV for AES-GCM (12 bytes / 96 bits)
const nonceSize = 12

// keySize is the size of the AES-256 key (32 bytes / 256 bits)
const keySize = 32

// saltSize is the size of the salt for key derivation (32 bytes)
const saltSize = 32

// pbkdf2Iterations is the number of iterations for PBKDF2 key derivation.
// OWASP 2023 recommends 600,000+ for PBKDF2-SHA-256.
const pbkdf2Iterations = 600000

// =============================================================================
// ERRORS
// =============================================================================

var (
	// ErrInvalidSealed indicates the sealed value format is invalid.
	ErrInvalidSealed = errors.New("invalid sealed value format")
	// ErrUnsealFailed indicates decryption failed (wrong key or tampered data).
	ErrUnsealFailed = errors.New("unseal failed: authentication tag mismatch")
)

// =============================================================================
// SEALING
// =============================================================================

// Seal encrypts plaintext under a key derived from secret and the
// store-local salt, returning an ENC:-prefixed string safe to persist.
func Seal(store Store, secret, plaintext string) (string, error) {
	salt, err := sealSalt(store)
	if err != nil {
		return "", err
	}
	key := pbkdf2.Key([]byte(secret), salt, pbkdf2Iterations, keySize, sha256.New)
	defer zeroBytes(key)

	block, err := aes.NewCipher(key)
	if err != nil {
		return "", fmt.Errorf("failed to create cipher: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return "", fmt.Errorf("failed to create GCM: %w", err)
	}

	nonce := make([]byte, nonceSize)
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", fmt.Errorf("failed to generate nonce: %w", err)
	}
	sealed := gcm.Seal(nonce, nonce, []byte(plaintext), nil)
	return SealedPrefix + base64.StdEncoding.EncodeToString(sealed), nil
}

// Unseal reverses Seal. Values without the ENC: prefix are returned
// verbatim, so a profile written before sealing existed keeps working.
func Unseal(store Store, secret, value string) (string, error) {
	if !strings.HasPrefix(value, SealedPrefix) {
		return value, nil
	}
	raw, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(value, SealedPrefix))
	if err != nil {
		return "", ErrInvalidSealed
	}
	if len(raw) < nonceSize {
		return "", ErrInvalidSealed
	}

	salt, err := sealSalt(store)
	if err != nil {
		return "", err
	}
	key := pbkdf2.Key([]byte(secret), salt, pbkdf2Iterations, keySize, sha256.New)
	defer zeroBytes(key)

	block, err := aes.NewCipher(key)
	if err != nil {
		return "", fmt.Errorf("failed to create cipher: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return "", fmt.Errorf("failed to create GCM: %w", err)
	}

	plaintext, err := gcm.Open(nil, raw[:nonceSize], raw[nonceSize:], nil)
	if err != nil {
		return "", ErrUnsealFailed
	}
	return string(plaintext), nil
}

// sealSalt returns the store's key-derivation salt, minting one on first
// use.
func sealSalt(store Store) ([]byte, error) {
	value, ok, err := store.Get(KeySealSalt)
	if err != nil {
		return nil, err
	}
	if ok {
		salt, err := base64.StdEncoding.DecodeString(value)
		if err != nil || len(salt) != saltSize {
			return nil, ErrInvalidSealed
		}
		return salt, nil
	}

	salt := make([]byte, saltSize)
	if _, err := io.ReadFull(rand.Reader, salt); err != nil {
		return nil, fmt.Errorf("failed to generate salt: %w", err)
	}
	if err := store.Set(KeySealSalt, base64.StdEncoding.EncodeToString(salt)); err != nil {
		return nil, err
	}
	return salt, nil
}

// zeroBytes zeros sensitive byte slices to prevent memory disclosure.
func zeroBytes(b []byte) {
	for i := range b {
		b[i] = 0
	}
}
