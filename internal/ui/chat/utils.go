// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"fmt"
	"time"

	"github.com/charmbracelet/bubbles/spinner"

	"github.com/jeranaias/docchat-tui/internal/model"
	"github.com/jeranaias/docchat-tui/internal/ui/styles"
)

// =============================================================================
// TRANSCRIPT HELPERS
// =============================================================================

// lastSettledAssistantIndex finds the newest server-answered message. The
// local greeting (empty id) is skipped; copy, rating, and regenerate all
// target real answers.
func lastSettledAssistantIndex(snapshot []model.Message) (int, bool) {
	for i := len(snapshot) - 1; i >= 0; i-- {
		msg := snapshot[i]
		if msg.Role == model.RoleAssistant && msg.Phase == model.PhaseSettled && msg.ID != "" {
			return i, true
		}
	}
	return 0, false
}

// lastFailedAssistantIndex finds the newest failed answer, for regenerate.
func lastFailedAssistantIndex(snapshot []model.Message) (int, bool) {
	for i := len(snapshot) - 1; i >= 0; i-- {
		msg := snapshot[i]
		if msg.Role == model.RoleAssistant && msg.Phase == model.PhaseFailed {
			return i, true
		}
	}
	return 0, false
}

// =============================================================================
// FORMATTING HELPERS
// =============================================================================

// formatRelativeTime renders a timestamp as a compact age ("2h ago").
func formatRelativeTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	d := time.Since(t)
	switch {
	case d < time.Minute:
		return "just now"
	case d < time.Hour:
		return fmt.Sprintf("%dm ago", int(d.Minutes()))
	case d < 24*time.Hour:
		return fmt.Sprintf("%dh ago", int(d.Hours()))
	case d < 30*24*time.Hour:
		return fmt.Sprintf("%dd ago", int(d.Hours()/24))
	default:
		return t.Format("2006-01-02")
	}
}

// padRight pads s with spaces to at least width characters.
func padRight(s string, width int) string {
	for len(s) < width {
		s += " "
	}
	return s
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}

// bubblesSpinner converts a theme spinner config into the bubbles form.
func bubblesSpinner(cfg styles.SpinnerConfig) spinner.Spinner {
	return spinner.Spinner{
		Frames: cfg.Frames,
		FPS:    cfg.Duration(),
	}
}
