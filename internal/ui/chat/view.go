// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/jeranaias/docchat-tui/internal/model"
	"github.com/jeranaias/docchat-tui/internal/ui/styles"
	"github.com/jeranaias/docchat-tui/internal/util"
)

// =============================================================================
// TOP-LEVEL LAYOUT
// =============================================================================

func (m Model) renderChat() string {
	if m.width == 0 {
		return "Initializing..."
	}
	if m.showHelp {
		return m.renderHelpOverlay()
	}

	sections := []string{m.renderHeader()}

	if m.sessionOverlay {
		sections = append(sections, m.renderSessionOverlay())
	} else {
		sections = append(sections, m.viewport.View())
	}

	sections = append(sections,
		m.renderSuggestionRow(),
		m.renderInput(),
		m.renderStatusBar(),
	)

	return strings.Join(sections, "\n")
}

// =============================================================================
// HEADER
// =============================================================================

func (m Model) renderHeader() string {
	brand := m.theme.HeaderBrand.Render("docchat")

	title := m.engine.Conversation().Title()
	if title == "" {
		title = "new conversation"
	}
	title = util.TruncateWidth(title, maxInt(10, m.width/2))

	var right string
	if m.webSearch {
		right = m.theme.SearchBadge.Render("[web]") + " "
	}
	right += m.theme.HeaderSubtitle.Render(m.opts.Identity)

	left := brand + "  " + m.theme.HeaderTitle.Render(title)
	gap := m.width - lipgloss.Width(left) - lipgloss.Width(right) - 2
	if gap < 1 {
		gap = 1
	}

	return m.theme.Header.Width(m.width).Render(left + strings.Repeat(" ", gap) + right)
}

// =============================================================================
// TRANSCRIPT
// =============================================================================

// renderMessages builds the full transcript for the viewport.
func (m Model) renderMessages() string {
	snapshot := m.engine.Conversation().Snapshot()
	if len(snapshot) == 0 {
		return m.renderGreeting()
	}

	parts := make([]string, 0, len(snapshot)+1)
	for i := range snapshot {
		msg := &snapshot[i]
		if msg.Role == model.RoleUser {
			parts = append(parts, m.renderUserMessage(msg))
		} else {
			parts = append(parts, m.renderAssistantMessage(msg))
		}
	}

	return strings.Join(parts, "\n\n")
}

// renderGreeting fills the empty transcript with the assistant's opener.
func (m Model) renderGreeting() string {
	bubble := m.theme.AssistantBubble.
		MaxWidth(maxInt(20, m.width-8)).
		Render(model.GreetingText)
	return lipgloss.NewStyle().Margin(1, 0, 0, 2).Render(bubble)
}

func (m Model) renderUserMessage(msg *model.Message) string {
	bubble := m.theme.UserBubble.
		MaxWidth(maxInt(20, m.width-8)).
		Render(msg.Content)

	// Right-align by padding the left margin to the remaining width.
	margin := m.width - lipgloss.Width(bubble) - 4
	if margin < 0 {
		margin = 0
	}
	timestamp := m.theme.SessionMeta.Render(msg.DisplayTime())
	tsMargin := m.width - lipgloss.Width(timestamp) - 4
	if tsMargin < 0 {
		tsMargin = 0
	}
	return lipgloss.NewStyle().MarginLeft(margin).Render(bubble) +
		"\n" + lipgloss.NewStyle().MarginLeft(tsMargin).Render(timestamp)
}

func (m Model) renderAssistantMessage(msg *model.Message) string {
	var body string

	switch msg.Phase {
	case model.PhasePending:
		label := msg.DisplayContent()
		if msg.WasSearching {
			label = m.theme.SearchBadge.Render(label)
		} else {
			label = m.theme.ThinkingText.Render(label)
		}
		elapsed := ""
		if m.thinking && !m.thinkingStart.IsZero() {
			elapsed = m.theme.ThinkingTime.Render(fmt.Sprintf(" %.0fs", time.Since(m.thinkingStart).Seconds()))
		}
		body = m.theme.Spinner.Render(m.spinner.View()) + " " + label + elapsed

	case model.PhaseStreaming:
		// Trailing cursor marks the live answer; it blinks with the
		// stream-tick repaints.
		frame := int(time.Now().UnixMilli()/styles.CursorBlinkRate.Milliseconds()) % len(styles.TypingCursor)
		body = msg.DisplayContent() + styles.TypingCursor[frame]

	case model.PhaseFailed:
		body = m.theme.ErrorMessage.Render(msg.DisplayContent())

	default: // PhaseSettled
		body = m.renderAnswerBody(msg)
	}

	bubble := m.theme.AssistantBubble.
		MaxWidth(maxInt(20, m.width-8)).
		Render(body)

	out := lipgloss.NewStyle().MarginLeft(2).Render(bubble)

	// The local greeting has no server id and carries no extras.
	if msg.Phase == model.PhaseSettled && msg.ID != "" {
		if extras := m.renderAnswerExtras(msg); extras != "" {
			out += "\n" + extras
		}
	}

	return out
}

// renderAnswerBody renders settled answer content, through glamour when a
// markdown renderer is available.
func (m Model) renderAnswerBody(msg *model.Message) string {
	content := msg.DisplayContent()
	if m.markdown == nil {
		return content
	}
	rendered, err := m.markdown.Render(content)
	if err != nil {
		return content
	}
	return strings.TrimRight(rendered, "\n")
}

// renderAnswerExtras builds the source list, rating markers, and stats line
// shown under a settled answer.
func (m Model) renderAnswerExtras(msg *model.Message) string {
	var lines []string

	if m.opts.ShowSources && len(msg.Sources) > 0 {
		lines = append(lines, "  "+m.theme.SourceHeader.Render("Sources:"))
		for _, src := range msg.Sources {
			item := src.SourceFilename
			if src.PageLabel != "" {
				item += ", p. " + src.PageLabel
			}
			lines = append(lines, "    "+m.theme.SourceItem.Render("- "+item))
		}
	}

	meta := "  " + m.renderRatingMarkers(msg)
	if m.opts.ShowStats {
		if stats := msg.FormatStats(); stats != "" {
			meta += "  " + m.theme.StatsValue.Render(stats)
		}
	}
	lines = append(lines, meta)

	return strings.Join(lines, "\n")
}

// renderRatingMarkers shows the feedback state of an answer. The active
// marker is bright; the others stay dim as affordances.
func (m Model) renderRatingMarkers(msg *model.Message) string {
	up := m.theme.RatingIdle.Render(styles.RatingIndicators.UpDim)
	down := m.theme.RatingIdle.Render(styles.RatingIndicators.DownDim)
	switch msg.Rating {
	case model.RatingUp:
		up = m.theme.RatingUp.Render(styles.RatingIndicators.Up)
	case model.RatingDown:
		down = m.theme.RatingDown.Render(styles.RatingIndicators.Down)
	}
	return up + " " + down
}

// =============================================================================
// SUGGESTIONS
// =============================================================================

func (m Model) renderSuggestionRow() string {
	if !m.opts.ShowSuggestions || len(m.suggestions) == 0 || m.state != StateReady {
		return ""
	}
	next := m.suggestions[m.suggestIndex]
	next = util.TruncateWidth(next, maxInt(10, m.width-12))
	return "  " + m.theme.SuggestionKey.Render("Tab") + " " +
		m.theme.SuggestionText.Render(next)
}

// =============================================================================
// INPUT
// =============================================================================

func (m Model) renderInput() string {
	line := m.theme.InputContainer.Width(maxInt(10, m.width-4)).Render(m.input.View())

	count := fmt.Sprintf("%d/%d", len([]rune(m.input.Value())), m.input.CharLimit)
	countStyle := m.theme.CharCount
	switch {
	case len(m.input.Value()) > m.input.CharLimit*9/10:
		countStyle = m.theme.CharCountDanger
	case len(m.input.Value()) > m.input.CharLimit*3/4:
		countStyle = m.theme.CharCountWarning
	}

	return line + "\n  " + countStyle.Render(count)
}

// =============================================================================
// STATUS BAR
// =============================================================================

func (m Model) renderStatusBar() string {
	var left string
	switch m.state {
	case StateStreaming:
		if m.searching {
			left = m.theme.SearchBadge.Render("searching")
		} else {
			left = m.theme.ThinkingText.Render("answering")
		}
	case StateError:
		left = m.theme.ErrorTitle.Render("error")
	default:
		left = m.theme.SuccessStyle.Render("ready")
	}

	if m.copyFlash {
		left += "  " + m.theme.SuccessStyle.Render(styles.StatusIndicators.Success+" copied")
	} else if m.statusMsg != "" {
		left += "  " + m.theme.ShortcutDesc.Render(util.TruncateWidth(m.statusMsg, maxInt(10, m.width/2)))
	}

	var hints []string
	for _, binding := range m.keyMap.ShortHelp() {
		help := binding.Help()
		hints = append(hints, m.theme.ShortcutKey.Render(help.Key)+" "+m.theme.ShortcutDesc.Render(help.Desc))
	}
	right := strings.Join(hints, "  ")

	gap := m.width - lipgloss.Width(left) - lipgloss.Width(right) - 2
	if gap < 1 {
		gap = 1
	}

	return m.theme.StatusBar.Width(m.width).Render(left + strings.Repeat(" ", gap) + right)
}

// =============================================================================
// SESSION OVERLAY
// =============================================================================

func (m Model) renderSessionOverlay() string {
	height := m.viewport.Height
	var lines []string

	lines = append(lines, m.theme.SessionTitle.Render("  Sessions")+
		"  "+m.theme.SessionMeta.Render("enter load / d delete / n new / esc close"))

	switch {
	case m.sessionsErr != nil:
		lines = append(lines, "  "+m.theme.ErrorMessage.Render(m.sessionsErr.Error()))
	case len(m.sessionList) == 0:
		lines = append(lines, "  "+m.theme.SessionMeta.Render("No saved sessions yet."))
	default:
		for i, info := range m.sessionList {
			title := info.Title
			if title == "" {
				title = info.ID
			}
			title = util.TruncateWidth(title, maxInt(10, m.width-30))
			meta := fmt.Sprintf("%d msgs, %s", info.MessageCount, formatRelativeTime(info.UpdatedAt))

			row := fmt.Sprintf("  %s  %s", title, m.theme.SessionMeta.Render(meta))
			if i == m.sessionCursor {
				row = m.theme.SessionItemSelected.Render("> " + title + "  " + meta)
			} else {
				row = m.theme.SessionItem.Render(row)
			}
			if info.ID == m.sessions.ActiveSessionID() {
				row += " " + m.theme.SuccessStyle.Render("(active)")
			}
			lines = append(lines, row)
		}
	}

	for len(lines) < height {
		lines = append(lines, "")
	}
	if len(lines) > height {
		lines = lines[:height]
	}
	return strings.Join(lines, "\n")
}

// =============================================================================
// HELP OVERLAY
// =============================================================================

func (m Model) renderHelpOverlay() string {
	var b strings.Builder
	b.WriteString(m.theme.HeaderTitle.Render("  Keyboard shortcuts") + "\n\n")

	for _, item := range GetHelpItemsForContext(ContextNormal) {
		b.WriteString(fmt.Sprintf("  %s  %s\n",
			m.theme.ShortcutKey.Render(padRight(item.Key, 10)),
			m.theme.ShortcutDesc.Render(item.Desc)))
	}

	b.WriteString("\n" + m.theme.SessionMeta.Render("  Press any key to close."))
	return b.String()
}
