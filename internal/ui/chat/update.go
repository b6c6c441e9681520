// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	engine "github.com/jeranaias/docchat-tui/internal/chat"
	"github.com/jeranaias/docchat-tui/internal/model"
	"github.com/jeranaias/docchat-tui/internal/ui/styles"
)

// =============================================================================
// KEY HANDLING
// =============================================================================

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	// Quit works in every state.
	if key.Matches(msg, m.keyMap.Quit) {
		m.engine.Cancel()
		return m, tea.Quit
	}

	// Overlays swallow input while visible.
	if m.showHelp {
		m.showHelp = false
		return m, nil
	}
	if m.sessionOverlay {
		return m.handleSessionOverlayKey(msg)
	}

	if key.Matches(msg, m.keyMap.Help) {
		m.showHelp = true
		return m, nil
	}

	switch m.state {
	case StateError:
		switch msg.String() {
		case "esc", "enter", " ":
			m.lastError = nil
			m.state = StateReady
			m.input.Focus()
			return m, textinput.Blink
		}
		return m, nil

	case StateStreaming:
		if key.Matches(msg, m.keyMap.Cancel) {
			m.engine.Cancel()
			// The aborted turn settles through the failure path; the
			// TurnFailedEvent resets the screen state.
			m.statusMsg = "Cancelling..."
			return m, nil
		}
		return m.handleNavigationKeys(msg)
	}

	// StateReady from here on.
	switch {
	case key.Matches(msg, m.keyMap.Submit):
		return m.submitInput()

	case key.Matches(msg, m.keyMap.Suggest):
		return m.cycleSuggestion()

	case key.Matches(msg, m.keyMap.WebSearch):
		m.webSearch = !m.webSearch
		if m.webSearch {
			m.statusMsg = "Web search on"
		} else {
			m.statusMsg = "Web search off"
		}
		return m, nil

	case key.Matches(msg, m.keyMap.Copy):
		return m.copyLastAnswer()

	case key.Matches(msg, m.keyMap.Regenerate):
		return m.regenerateLastAnswer()

	case key.Matches(msg, m.keyMap.RateUp):
		return m.rateLastAnswer(model.RatingUp)

	case key.Matches(msg, m.keyMap.RateDown):
		return m.rateLastAnswer(model.RatingDown)

	case key.Matches(msg, m.keyMap.NewSession):
		return m.startNewConversation()

	case key.Matches(msg, m.keyMap.SessionList):
		m.sessionOverlay = true
		m.sessionCursor = 0
		m.sessionsErr = nil
		return m, m.loadSessionsCmd()

	case key.Matches(msg, m.keyMap.PageUp), key.Matches(msg, m.keyMap.PageDown),
		key.Matches(msg, m.keyMap.Home), key.Matches(msg, m.keyMap.End),
		key.Matches(msg, m.keyMap.Up), key.Matches(msg, m.keyMap.Down):
		return m.handleNavigationKeys(msg)
	}

	// Everything else goes to the text input.
	m.statusMsg = ""
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// handleNavigationKeys scrolls the transcript. Works while streaming too.
func (m Model) handleNavigationKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keyMap.Up):
		m.viewport.LineUp(1)
	case key.Matches(msg, m.keyMap.Down):
		m.viewport.LineDown(1)
	case key.Matches(msg, m.keyMap.PageUp):
		m.viewport.HalfViewUp()
	case key.Matches(msg, m.keyMap.PageDown):
		m.viewport.HalfViewDown()
	case key.Matches(msg, m.keyMap.Home):
		m.viewport.GotoTop()
	case key.Matches(msg, m.keyMap.End):
		m.viewport.GotoBottom()
	}
	return m, nil
}

// =============================================================================
// TURN ACTIONS
// =============================================================================

func (m Model) submitInput() (tea.Model, tea.Cmd) {
	question := strings.TrimSpace(m.input.Value())
	if question == "" {
		return m, nil
	}

	err := m.engine.Submit(context.Background(), question, m.webSearch)
	switch {
	case err == nil:
		m.input.Reset()
		m.suggestions = nil
		m.suggestIndex = 0
		m.statusMsg = ""
		// TurnStartedEvent flips the screen into streaming.
		return m, nil
	case errors.Is(err, engine.ErrTurnInFlight):
		m.statusMsg = "Still answering - wait or press Esc"
		return m, nil
	case errors.Is(err, engine.ErrEmptyQuestion):
		return m, nil
	default:
		m.lastError = err
		m.state = StateError
		return m, nil
	}
}

// cycleSuggestion rotates the follow-up suggestions from the last answer
// into the input. Repeated presses walk the list.
func (m Model) cycleSuggestion() (tea.Model, tea.Cmd) {
	if len(m.suggestions) == 0 {
		return m, nil
	}
	m.input.SetValue(m.suggestions[m.suggestIndex])
	m.input.CursorEnd()
	m.suggestIndex = (m.suggestIndex + 1) % len(m.suggestions)
	return m, nil
}

func (m Model) copyLastAnswer() (tea.Model, tea.Cmd) {
	idx, ok := lastSettledAssistantIndex(m.engine.Conversation().Snapshot())
	if !ok {
		m.statusMsg = "Nothing to copy yet"
		return m, nil
	}
	eng := m.engine
	return m, func() tea.Msg {
		return CopyCompleteMsg{Err: eng.Copy(idx)}
	}
}

func (m Model) regenerateLastAnswer() (tea.Model, tea.Cmd) {
	snapshot := m.engine.Conversation().Snapshot()
	idx, ok := lastSettledAssistantIndex(snapshot)
	if !ok {
		// A failed answer can be regenerated too.
		idx, ok = lastFailedAssistantIndex(snapshot)
	}
	if !ok {
		return m, nil
	}
	if err := m.engine.Regenerate(context.Background(), idx); err != nil {
		m.statusMsg = err.Error()
		return m, nil
	}
	m.viewportOptimizer.Reset()
	return m, nil
}

func (m Model) rateLastAnswer(rating model.Rating) (tea.Model, tea.Cmd) {
	snapshot := m.engine.Conversation().Snapshot()
	idx, ok := lastSettledAssistantIndex(snapshot)
	if !ok {
		m.statusMsg = "Nothing to rate yet"
		return m, nil
	}
	messageID := snapshot[idx].ID
	if messageID == "" {
		m.statusMsg = "Answer is not ratable"
		return m, nil
	}

	eng := m.engine
	cmd := func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), sessionOpTimeout)
		defer cancel()
		return RatingAppliedMsg{MessageID: messageID, Err: eng.Rate(ctx, messageID, rating)}
	}
	return m, cmd
}

func (m Model) startNewConversation() (tea.Model, tea.Cmd) {
	if m.engine.Busy() {
		m.statusMsg = "Finish or cancel the current answer first"
		return m, nil
	}
	m.engine.Conversation().Reset()
	m.suggestions = nil
	m.suggestIndex = 0
	m.statusMsg = "New conversation"
	m.viewportOptimizer.Reset()
	m.updateViewport()
	m.viewport.GotoTop()
	return m, nil
}

// =============================================================================
// ENGINE EVENTS
// =============================================================================

func (m Model) handleEngineEvent(msg ChatEventMsg) (tea.Model, tea.Cmd) {
	switch ev := msg.Event.(type) {
	case engine.TurnStartedEvent:
		m.state = StateStreaming
		m.thinking = true
		m.searching = ev.Searching
		if ev.Searching {
			m.spinner.Spinner = bubblesSpinner(styles.PulseSpinner)
		} else {
			m.spinner.Spinner = bubblesSpinner(styles.DotsSpinner)
		}
		m.thinkingStart = time.Now()
		m.streamingBuffer.Reset()
		m.updateViewport()
		m.viewport.GotoBottom()
		return m, tea.Batch(m.spinner.Tick, streamTickCmd())

	case engine.TurnSettledEvent:
		m.streamingBuffer.ForceFlush()
		m.state = StateReady
		m.thinking = false
		m.searching = false
		if m.opts.ShowSuggestions {
			m.suggestions = ev.Suggestions
		}
		m.suggestIndex = 0
		m.updateViewport()
		m.viewport.GotoBottom()
		m.input.Focus()
		return m, textinput.Blink

	case engine.TurnFailedEvent:
		m.streamingBuffer.Reset()
		m.state = StateReady
		m.thinking = false
		m.searching = false
		if errors.Is(ev.Err, context.Canceled) {
			m.statusMsg = "Answer cancelled"
		} else {
			m.statusMsg = "Answer failed: " + ev.Err.Error()
		}
		m.updateViewport()
		m.viewport.GotoBottom()
		m.input.Focus()
		return m, textinput.Blink

	case engine.SessionBoundEvent:
		// The transcript header shows the session; nothing else to do.
		return m, nil
	}

	return m, nil
}

// handleStreamTick repaints the transcript from the store whenever buffered
// deltas are ready. The orchestrator has already applied every delta to the
// conversation; the buffer only signals that new content is waiting.
func (m Model) handleStreamTick(StreamTickMsg) (tea.Model, tea.Cmd) {
	if m.state != StateStreaming {
		// The turn ended; let this tick loop die.
		return m, nil
	}

	if _, ok := m.streamingBuffer.Flush(); ok {
		// First flush means first delta: the placeholder is gone.
		m.thinking = false
		m.updateViewport()
		m.viewport.GotoBottom()
	}

	return m, streamTickCmd()
}

// =============================================================================
// COPY / RATING RESULTS
// =============================================================================

func (m Model) handleCopyComplete(msg CopyCompleteMsg) (tea.Model, tea.Cmd) {
	if msg.Err != nil {
		m.statusMsg = "Copy failed: " + msg.Err.Error()
		return m, nil
	}
	m.copyFlash = true
	m.statusMsg = "Copied to clipboard"
	return m, tea.Tick(2*time.Second, func(time.Time) tea.Msg {
		return CopyFlashClearMsg{}
	})
}

func (m Model) handleRatingApplied(msg RatingAppliedMsg) (tea.Model, tea.Cmd) {
	if msg.Err != nil {
		// The optimistic rating was rolled back by the engine.
		m.statusMsg = "Feedback failed: " + msg.Err.Error()
	} else {
		m.statusMsg = "Feedback sent"
	}
	m.viewportOptimizer.ForceUpdate()
	m.updateViewport()
	return m, nil
}

// =============================================================================
// SESSION OVERLAY
// =============================================================================

func (m Model) handleSessionOverlayKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc", "ctrl+s":
		m.sessionOverlay = false
		return m, nil

	case "up":
		if m.sessionCursor > 0 {
			m.sessionCursor--
		}
		return m, nil

	case "down":
		if m.sessionCursor < len(m.sessionList)-1 {
			m.sessionCursor++
		}
		return m, nil

	case "enter":
		if m.sessionCursor >= len(m.sessionList) {
			return m, nil
		}
		id := m.sessionList[m.sessionCursor].ID
		return m, m.openSessionCmd(id)

	case "d":
		if m.sessionCursor >= len(m.sessionList) {
			return m, nil
		}
		id := m.sessionList[m.sessionCursor].ID
		return m, m.deleteSessionCmd(id)

	case "n":
		m.sessionOverlay = false
		return m.startNewConversation()
	}

	return m, nil
}

func (m Model) loadSessionsCmd() tea.Cmd {
	mgr := m.sessions
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), sessionOpTimeout)
		defer cancel()
		list, err := mgr.Refresh(ctx)
		return SessionsLoadedMsg{Sessions: list, Err: err}
	}
}

func (m Model) openSessionCmd(id string) tea.Cmd {
	mgr := m.sessions
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), sessionOpTimeout)
		defer cancel()
		return SessionOpenedMsg{SessionID: id, Err: mgr.Load(ctx, id)}
	}
}

func (m Model) deleteSessionCmd(id string) tea.Cmd {
	mgr := m.sessions
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), sessionOpTimeout)
		defer cancel()
		return SessionDeletedMsg{SessionID: id, Err: mgr.Delete(ctx, id)}
	}
}

func (m Model) handleSessionsLoaded(msg SessionsLoadedMsg) (tea.Model, tea.Cmd) {
	m.sessionsErr = msg.Err
	m.sessionList = msg.Sessions
	if m.sessionCursor >= len(m.sessionList) {
		m.sessionCursor = 0
	}
	return m, nil
}

func (m Model) handleSessionOpened(msg SessionOpenedMsg) (tea.Model, tea.Cmd) {
	if msg.Err != nil {
		m.sessionsErr = msg.Err
		return m, nil
	}
	m.sessionOverlay = false
	m.suggestions = nil
	m.suggestIndex = 0
	m.viewportOptimizer.Reset()
	m.updateViewport()
	m.viewport.GotoBottom()
	m.input.Focus()
	return m, textinput.Blink
}

func (m Model) handleSessionDeleted(msg SessionDeletedMsg) (tea.Model, tea.Cmd) {
	if msg.Err != nil {
		m.sessionsErr = msg.Err
		return m, nil
	}
	// Deleting the loaded session clears the transcript; repaint either way.
	m.viewportOptimizer.ForceUpdate()
	m.updateViewport()
	return m, m.loadSessionsCmd()
}
