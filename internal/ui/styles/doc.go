// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

/*
Package styles provides the visual styling system for the docchat TUI application.

This package defines the complete color palette, typography, and animation
system used throughout the application. All colors use Lip Gloss AdaptiveColor
for automatic light/dark terminal detection.

# Color System (colors.go)

## Primary Accent Colors

  - Purple - Primary accent for assistant answers and selections
  - Cyan - Brand color for info, prompts, and user highlights
  - Emerald - Success states and thumbs-up rating
  - Amber - Warnings and the web-search indicator
  - Rose - Errors, failed answers, and thumbs-down rating

## Semantic Colors

Message bubbles and answer metadata use semantic color tokens:

	UserBubbleBg      - Background for user messages
	UserBubbleFg      - Text color for user messages
	AssistantBubbleBg - Background for assistant answers
	AssistantBubbleFg - Text color for assistant answers
	SourceColor       - Document citation lines
	SuggestionColor   - Follow-up question shortcuts

## Text Colors

Hierarchical text color system:

	TextPrimary   - Main content text
	TextSecondary - Supporting text
	TextMuted     - De-emphasized text
	TextInverse   - Text on colored backgrounds

# Theme System (theme.go)

The Theme struct provides runtime color adaptation:

	theme := styles.NewTheme()
	if theme.IsDark {
		// Dark terminal detected
	}
	if theme.HasTrueColor {
		// Terminal supports 16M colors
	}

# Animation System (animations.go)

Pre-defined spinner styles:

	LineSpinner  - Simple line rotation (awaiting first byte)
	DotsSpinner  - Three-dot animation (thinking placeholder)
	PulseSpinner - Pulsing indicator (web-search placeholder)

Status and rating indicators are ASCII-only for compatibility:

	StatusIndicators.Success - [OK]
	StatusIndicators.Error   - [X]
	RatingIndicators.Up      - [+1]
	RatingIndicators.Down    - [-1]

# Usage Example

	import "github.com/jeranaias/docchat-tui/internal/ui/styles"

	// Use adaptive colors
	headerStyle := lipgloss.NewStyle().
		Background(styles.SurfaceDim).
		Foreground(styles.TextPrimary)

	// Use theme for runtime detection
	theme := styles.NewTheme()
	line := theme.SourceItem.Render("report.pdf, p. 4")
*/
package styles
