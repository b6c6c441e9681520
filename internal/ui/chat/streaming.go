// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"sync"
	"time"

	tea "github.com/charmbracelet/bubbletea"
)

// ============================================================================
// Streaming Buffer
// ============================================================================

// Batching defaults. Flushing every token repaints the transcript hundreds of
// times per answer and makes the viewport flicker; batching at ~30fps is
// indistinguishable to the eye.
const (
	defaultBatchSize  = 15
	defaultFlushFPS   = 30
	defaultMinFlushMs = 33
)

// StreamingBuffer accumulates answer fragments from the stream goroutine and
// releases them to the render loop in batches. Safe for concurrent use: the
// engine writes, the Bubble Tea update loop flushes.
type StreamingBuffer struct {
	mu         sync.Mutex
	pending    []byte
	tokenCount int
	lastFlush  time.Time

	batchSize  int
	minFlushMs time.Duration
}

// NewStreamingBuffer returns a buffer with the default batching parameters.
func NewStreamingBuffer() *StreamingBuffer {
	return NewStreamingBufferWithConfig(defaultBatchSize, defaultFlushFPS)
}

// NewStreamingBufferWithConfig returns a buffer flushing after batchSize
// fragments or once per 1/fps seconds, whichever comes first. Out-of-range
// values are clamped to sane bounds.
func NewStreamingBufferWithConfig(batchSize, fps int) *StreamingBuffer {
	if batchSize < 1 {
		batchSize = 1
	}
	if batchSize > 100 {
		batchSize = 100
	}
	if fps < 1 {
		fps = 1
	}
	if fps > 120 {
		fps = 120
	}
	return &StreamingBuffer{
		batchSize:  batchSize,
		minFlushMs: time.Second / time.Duration(fps),
		lastFlush:  time.Now(),
	}
}

// Write appends a fragment to the pending batch.
func (b *StreamingBuffer) Write(token string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.pending = append(b.pending, token...)
	b.tokenCount++
}

// Flush returns the pending content if the batch threshold or the frame
// interval has been reached. The second return reports whether anything was
// released.
func (b *StreamingBuffer) Flush() (string, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.shouldFlushLocked() {
		return "", false
	}
	return b.drainLocked()
}

// ForceFlush returns whatever is pending regardless of thresholds. Used when
// a turn settles or fails so the tail of the answer is never stranded.
func (b *StreamingBuffer) ForceFlush() (string, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.drainLocked()
}

// Reset discards pending content. Called when a turn is cancelled.
func (b *StreamingBuffer) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.pending = b.pending[:0]
	b.tokenCount = 0
	b.lastFlush = time.Now()
}

// Pending reports the number of fragments waiting to be flushed.
func (b *StreamingBuffer) Pending() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.tokenCount
}

func (b *StreamingBuffer) shouldFlushLocked() bool {
	if b.tokenCount == 0 {
		return false
	}
	if b.tokenCount >= b.batchSize {
		return true
	}
	return time.Since(b.lastFlush) >= b.minFlushMs
}

func (b *StreamingBuffer) drainLocked() (string, bool) {
	if b.tokenCount == 0 {
		return "", false
	}
	out := string(b.pending)
	b.pending = b.pending[:0]
	b.tokenCount = 0
	b.lastFlush = time.Now()
	return out, true
}

// ============================================================================
// Stream Tick
// ============================================================================

// StreamTickMsg drives the render loop while an answer is streaming.
type StreamTickMsg struct {
	Time time.Time
}

// streamTickCmd schedules the next streaming frame at ~30fps.
func streamTickCmd() tea.Cmd {
	return tea.Tick(defaultMinFlushMs*time.Millisecond, func(t time.Time) tea.Msg {
		return StreamTickMsg{Time: t}
	})
}
