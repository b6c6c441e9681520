// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// helpers.go - Small shared utilities for CLI command handlers.
package cli

import (
	"bufio"
	"fmt"
	"os"
	"strings"
	"time"
)

// formatDuration formats a duration in a human-friendly form.
func formatDuration(d time.Duration) string {
	switch {
	case d < time.Second:
		return fmt.Sprintf("%dms", d.Milliseconds())
	case d < time.Minute:
		return fmt.Sprintf("%.1fs", d.Seconds())
	default:
		m := int(d.Minutes())
		s := int(d.Seconds()) - m*60
		return fmt.Sprintf("%dm%ds", m, s)
	}
}

// formatTimestamp renders a server timestamp for list output. Same-day
// timestamps show the clock time, older ones the date.
func formatTimestamp(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	local := t.Local()
	if local.YearDay() == time.Now().YearDay() && local.Year() == time.Now().Year() {
		return local.Format("15:04")
	}
	return local.Format("2006-01-02")
}

// promptInput reads a single trimmed line from stdin.
func promptInput(prompt string) string {
	fmt.Print(prompt)
	reader := bufio.NewReader(os.Stdin)
	line, err := reader.ReadString('\n')
	if err != nil {
		return ""
	}
	return strings.TrimSpace(line)
}

// promptYesNo asks a yes/no question, defaulting to no.
func promptYesNo(question string) bool {
	answer := strings.ToLower(promptInput(question + " [y/N]: "))
	return answer == "y" || answer == "yes"
}

// truncateString shortens a string for single-line list output.
func truncateString(s string, maxLen int) string {
	s = strings.ReplaceAll(s, "\n", " ")
	if len(s) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return s[:maxLen]
	}
	return s[:maxLen-3] + "..."
}
