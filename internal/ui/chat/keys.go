// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"github.com/charmbracelet/bubbles/key"
)

// =============================================================================
// KEY MAP DEFINITION
// =============================================================================

// KeyMap defines all keyboard bindings for the chat screen.
// Each binding supports multiple keys and includes help text.
type KeyMap struct {
	Up          key.Binding
	Down        key.Binding
	PageUp      key.Binding
	PageDown    key.Binding
	Home        key.Binding
	End         key.Binding
	Submit      key.Binding
	Cancel      key.Binding
	Suggest     key.Binding
	WebSearch   key.Binding
	Copy        key.Binding
	Regenerate  key.Binding
	RateUp      key.Binding
	RateDown    key.Binding
	NewSession  key.Binding
	SessionList key.Binding
	Help        key.Binding
	Quit        key.Binding
}

// DefaultKeyMap returns the default key bindings for the chat screen.
func DefaultKeyMap() KeyMap {
	return KeyMap{
		Up: key.NewBinding(
			key.WithKeys("up"),
			key.WithHelp("up", "scroll up"),
		),
		Down: key.NewBinding(
			key.WithKeys("down"),
			key.WithHelp("down", "scroll down"),
		),
		PageUp: key.NewBinding(
			key.WithKeys("pgup", "ctrl+u"),
			key.WithHelp("PgUp/C-u", "page up"),
		),
		PageDown: key.NewBinding(
			key.WithKeys("pgdown", "ctrl+d"),
			key.WithHelp("PgDn/C-d", "page down"),
		),
		Home: key.NewBinding(
			key.WithKeys("home"),
			key.WithHelp("Home", "go to top"),
		),
		End: key.NewBinding(
			key.WithKeys("end"),
			key.WithHelp("End", "go to bottom"),
		),
		Submit: key.NewBinding(
			key.WithKeys("enter"),
			key.WithHelp("Enter", "ask"),
		),
		Cancel: key.NewBinding(
			key.WithKeys("esc"),
			key.WithHelp("Esc", "cancel answer"),
		),
		Suggest: key.NewBinding(
			key.WithKeys("tab"),
			key.WithHelp("Tab", "cycle suggestions"),
		),
		WebSearch: key.NewBinding(
			key.WithKeys("ctrl+w"),
			key.WithHelp("C-w", "toggle web search"),
		),
		Copy: key.NewBinding(
			key.WithKeys("ctrl+y"),
			key.WithHelp("C-y", "copy last answer"),
		),
		Regenerate: key.NewBinding(
			key.WithKeys("ctrl+r"),
			key.WithHelp("C-r", "regenerate"),
		),
		RateUp: key.NewBinding(
			key.WithKeys("ctrl+t"),
			key.WithHelp("C-t", "rate up"),
		),
		RateDown: key.NewBinding(
			key.WithKeys("ctrl+b"),
			key.WithHelp("C-b", "rate down"),
		),
		NewSession: key.NewBinding(
			key.WithKeys("ctrl+n"),
			key.WithHelp("C-n", "new conversation"),
		),
		SessionList: key.NewBinding(
			key.WithKeys("ctrl+s"),
			key.WithHelp("C-s", "sessions"),
		),
		Help: key.NewBinding(
			key.WithKeys("ctrl+_"),
			key.WithHelp("C-/", "toggle help"),
		),
		Quit: key.NewBinding(
			key.WithKeys("ctrl+q", "ctrl+c"),
			key.WithHelp("C-q", "quit"),
		),
	}
}

// =============================================================================
// KEY BINDING HELPERS
// =============================================================================

// ShortHelp returns the bindings shown in the status bar.
func (k KeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Submit, k.Cancel, k.WebSearch, k.SessionList, k.Quit}
}

// FullHelp returns the bindings shown in the help overlay, grouped.
func (k KeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		// Navigation
		{k.Up, k.Down, k.PageUp, k.PageDown, k.Home, k.End},
		// Turn control
		{k.Submit, k.Cancel, k.Suggest, k.WebSearch},
		// Answer actions
		{k.Copy, k.Regenerate, k.RateUp, k.RateDown},
		// Sessions
		{k.NewSession, k.SessionList, k.Help, k.Quit},
	}
}

// =============================================================================
// HELP TEXT DATA
// =============================================================================

// HelpContext represents the UI state used to filter help items.
type HelpContext string

const (
	// ContextNormal is the default state - ready for a question
	ContextNormal HelpContext = "normal"
	// ContextStreaming is while an answer is arriving
	ContextStreaming HelpContext = "streaming"
	// ContextError is when a failed turn is displayed
	ContextError HelpContext = "error"
	// ContextSessions is when the session list overlay is open
	ContextSessions HelpContext = "sessions"
)

// HelpItem is a single help entry with key, description, and contexts.
type HelpItem struct {
	Key      string
	Desc     string
	Contexts []HelpContext
}

// GetHelpItems returns all help entries for the help overlay.
func GetHelpItems() []HelpItem {
	all := []HelpContext{ContextNormal, ContextStreaming, ContextError, ContextSessions}
	normalOnly := []HelpContext{ContextNormal}
	streamingOnly := []HelpContext{ContextStreaming}
	normalAndError := []HelpContext{ContextNormal, ContextError}
	sessionsOnly := []HelpContext{ContextSessions}

	return []HelpItem{
		{"up/down", "Scroll transcript", []HelpContext{ContextNormal, ContextStreaming}},
		{"PgUp/C-u", "Page up", []HelpContext{ContextNormal, ContextStreaming}},
		{"PgDn/C-d", "Page down", []HelpContext{ContextNormal, ContextStreaming}},

		{"Enter", "Ask the typed question", normalOnly},
		{"Esc", "Cancel the answer in progress", streamingOnly},
		{"Tab", "Cycle follow-up suggestions", normalOnly},
		{"C-w", "Toggle web search", normalOnly},

		{"C-y", "Copy the last answer", normalOnly},
		{"C-r", "Regenerate the last answer", normalAndError},
		{"C-t", "Rate the last answer up", normalOnly},
		{"C-b", "Rate the last answer down", normalOnly},

		{"C-n", "Start a new conversation", normalAndError},
		{"C-s", "Open the session list", normalOnly},

		{"up/down", "Select session", sessionsOnly},
		{"Enter", "Load selected session", sessionsOnly},
		{"d", "Delete selected session", sessionsOnly},
		{"n", "New session", sessionsOnly},
		{"Esc", "Close session list", sessionsOnly},

		{"C-q", "Quit", all},
	}
}

// GetHelpItemsForContext returns help entries active in the given context.
func GetHelpItemsForContext(ctx HelpContext) []HelpItem {
	var filtered []HelpItem
	for _, item := range GetHelpItems() {
		for _, itemCtx := range item.Contexts {
			if itemCtx == ctx {
				filtered = append(filtered, item)
				break
			}
		}
	}
	return filtered
}
