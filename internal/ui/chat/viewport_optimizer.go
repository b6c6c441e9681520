// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"crypto/sha256"
	"encoding/hex"
	"sync"
)

// =============================================================================
// VIEWPORT OPTIMIZER
// =============================================================================

// ViewportOptimizer skips redundant viewport repaints during streaming.
// Stream ticks fire ~30 times per second whether or not new fragments
// arrived; a hash comparison against the last rendered transcript lets the
// update loop drop the no-op frames.
type ViewportOptimizer struct {
	mu              sync.Mutex
	lastContentHash string
	rendered        bool
}

// NewViewportOptimizer creates a new viewport optimizer.
func NewViewportOptimizer() *ViewportOptimizer {
	return &ViewportOptimizer{}
}

// ShouldUpdate returns true if the transcript changed since the last render.
// SHA-256 is fast enough here (<1ms for 100KB) and, unlike a length check,
// catches in-place edits such as a rating marker flipping.
func (vo *ViewportOptimizer) ShouldUpdate(newContent string) bool {
	vo.mu.Lock()
	defer vo.mu.Unlock()

	newHash := hashContent(newContent)
	if vo.rendered && newHash == vo.lastContentHash {
		return false
	}
	vo.lastContentHash = newHash
	vo.rendered = true
	return true
}

// MarkClean marks the viewport as up-to-date after a render.
func (vo *ViewportOptimizer) MarkClean() {
	vo.mu.Lock()
	defer vo.mu.Unlock()
	vo.rendered = true
}

// Reset clears the optimizer state. Use when starting a new conversation or
// loading a different session.
func (vo *ViewportOptimizer) Reset() {
	vo.mu.Lock()
	defer vo.mu.Unlock()
	vo.lastContentHash = ""
	vo.rendered = false
}

// ForceUpdate guarantees the next ShouldUpdate returns true, e.g. after a
// terminal resize invalidates the wrapped layout.
func (vo *ViewportOptimizer) ForceUpdate() {
	vo.mu.Lock()
	defer vo.mu.Unlock()
	vo.lastContentHash = ""
	vo.rendered = false
}

// hashContent computes a SHA-256 hash of the content for change detection.
func hashContent(content string) string {
	if content == "" {
		return ""
	}
	hash := sha256.Sum256([]byte(content))
	return hex.EncodeToString(hash[:])
}
