// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

/*
Package chat provides the Bubble Tea chat screen for the docchat TUI.

The screen renders the conversation transcript in a viewport, a single-line
question input, and a status bar with key hints. Streamed answer fragments
arrive from the turn engine on a background goroutine; an EventBridge
forwards engine events into the Bubble Tea loop and batches deltas through
a StreamingBuffer so the transcript repaints at a capped frame rate instead
of once per token.

# Layout

	+--------------------------------------+
	|  header (title, session, identity)   |
	|  viewport (transcript)               |
	|  input (question)                    |
	|  status bar (state, shortcuts)       |
	+--------------------------------------+

# Key bindings

	Enter       submit question
	Esc         cancel the in-flight answer
	Tab         cycle follow-up suggestions into the input
	Ctrl+W      toggle web search for the next question
	Ctrl+Y      copy the last answer
	Ctrl+R      regenerate the last answer
	Ctrl+T/B    rate the last answer up / down
	Ctrl+N      start a new conversation
	Ctrl+S      open the session list
	Ctrl+Q      quit

# Wiring

	conv := model.NewConversation()
	engine := chatengine.NewOrchestrator(client, conv, opts)
	m := chat.New(theme, engine, sessions, chat.Config{...})
	p := tea.NewProgram(m, tea.WithAltScreen())
	m.Bridge().Attach(p)
	p.Run()
*/
package chat
