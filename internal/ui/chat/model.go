// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"

	"github.com/jeranaias/docchat-tui/internal/api"
	engine "github.com/jeranaias/docchat-tui/internal/chat"
	"github.com/jeranaias/docchat-tui/internal/session"
	"github.com/jeranaias/docchat-tui/internal/ui/styles"
)

// =============================================================================
// CHAT STATE
// =============================================================================

// State represents the current state of the chat screen.
type State int

const (
	StateReady     State = iota // Ready for a question
	StateStreaming              // Receiving a streamed answer
	StateError                  // Showing a blocking error
)

// sessionOpTimeout bounds the catalog calls fired from key handlers.
const sessionOpTimeout = 10 * time.Second

// =============================================================================
// OPTIONS
// =============================================================================

// Options carries the display settings resolved from configuration.
type Options struct {
	WebSearch       bool // initial state of the web-search toggle
	Markdown        bool // render settled answers through glamour
	ShowSources     bool // list retrieved sources under each answer
	ShowSuggestions bool // show follow-up suggestions after an answer
	ShowStats       bool // show duration / time-to-first-token per answer
	Identity        string
}

// =============================================================================
// CHAT MODEL
// =============================================================================

// Model is the Bubble Tea model for the chat screen.
type Model struct {
	// State
	state State

	// Styling
	theme *styles.Theme

	// Dimensions
	width  int
	height int

	// Turn engine and session catalog
	engine   *engine.Orchestrator
	sessions *session.Manager

	// Streaming pipeline
	bridge            *EventBridge
	streamingBuffer   *StreamingBuffer
	viewportOptimizer *ViewportOptimizer

	// UI components
	viewport viewport.Model
	input    textinput.Model
	spinner  spinner.Model

	// Key bindings
	keyMap KeyMap

	// Display settings
	opts      Options
	webSearch bool // live value of the toggle

	// Follow-up suggestions from the last settled answer
	suggestions  []string
	suggestIndex int

	// Overlays
	showHelp       bool
	sessionOverlay bool
	sessionList    []api.SessionInfo
	sessionCursor  int
	sessionsErr    error

	// Transient feedback
	statusMsg string
	copyFlash bool
	lastError error

	// Thinking indicator
	thinking      bool
	searching     bool
	thinkingStart time.Time

	// Markdown rendering for settled answers. Rebuilt on resize so word
	// wrap tracks the terminal width. Nil when markdown is disabled or
	// renderer construction failed; View falls back to plain text.
	markdown *glamour.TermRenderer
}

// New creates the chat screen. The bridge must be the one whose Notify is
// wired into the orchestrator, so deltas land in the shared StreamingBuffer.
func New(theme *styles.Theme, orch *engine.Orchestrator, sessions *session.Manager, bridge *EventBridge, opts Options) Model {
	ti := textinput.New()
	ti.Prompt = "> "
	ti.Placeholder = "Ask about your documents..."
	ti.CharLimit = 4096
	ti.Focus()

	vp := viewport.New(80, 20)
	vp.SetContent("")

	// ASCII spinner frames keep the indicator legible over SSH and in
	// terminals without good glyph coverage.
	sp := spinner.New()
	sp.Spinner = bubblesSpinner(styles.LineSpinner)

	return Model{
		state:             StateReady,
		theme:             theme,
		engine:            orch,
		sessions:          sessions,
		bridge:            bridge,
		streamingBuffer:   bridge.Buffer(),
		viewportOptimizer: NewViewportOptimizer(),
		viewport:          vp,
		input:             ti,
		spinner:           sp,
		keyMap:            DefaultKeyMap(),
		opts:              opts,
		webSearch:         opts.WebSearch,
	}
}

// Bridge returns the event bridge to attach to the running tea.Program.
func (m Model) Bridge() *EventBridge {
	return m.bridge
}

// =============================================================================
// BUBBLE TEA INTERFACE
// =============================================================================

// Init initializes the model.
func (m Model) Init() tea.Cmd {
	return textinput.Blink
}

// Update handles messages and updates the model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		return m.handleResize(msg)

	case tea.KeyMsg:
		return m.handleKey(msg)

	case ChatEventMsg:
		return m.handleEngineEvent(msg)

	case StreamTickMsg:
		return m.handleStreamTick(msg)

	case spinner.TickMsg:
		if m.thinking || m.state == StateStreaming {
			var cmd tea.Cmd
			m.spinner, cmd = m.spinner.Update(msg)
			return m, cmd
		}
		return m, nil

	case CopyCompleteMsg:
		return m.handleCopyComplete(msg)

	case CopyFlashClearMsg:
		m.copyFlash = false
		return m, nil

	case RatingAppliedMsg:
		return m.handleRatingApplied(msg)

	case SessionsLoadedMsg:
		return m.handleSessionsLoaded(msg)

	case SessionOpenedMsg:
		return m.handleSessionOpened(msg)

	case SessionDeletedMsg:
		return m.handleSessionDeleted(msg)

	case ErrorMsg:
		m.lastError = msg.Err
		m.state = StateError
		return m, nil

	default:
		// Unhandled messages still feed the text input (cursor blink) and
		// the viewport (mouse wheel).
		if m.state == StateReady {
			var inputCmd tea.Cmd
			m.input, inputCmd = m.input.Update(msg)
			cmds = append(cmds, inputCmd)
		}

		var vpCmd tea.Cmd
		m.viewport, vpCmd = m.viewport.Update(msg)
		cmds = append(cmds, vpCmd)

		return m, tea.Batch(cmds...)
	}
}

// View renders the chat screen.
func (m Model) View() string {
	return m.renderChat()
}

// =============================================================================
// RESIZE
// =============================================================================

func (m Model) handleResize(msg tea.WindowSizeMsg) (tea.Model, tea.Cmd) {
	m.width = msg.Width
	m.height = msg.Height

	// Layout: header + viewport + suggestions + input area + status bar.
	// Conservative estimates prevent viewport overflow; renderChat measures
	// the real heights and clips if these drift.
	const (
		headerHeight     = 2
		suggestionHeight = 1
		inputAreaHeight  = 3
		statusBarHeight  = 2
	)

	viewportHeight := m.height - headerHeight - suggestionHeight - inputAreaHeight - statusBarHeight
	if viewportHeight < 1 {
		viewportHeight = 1
	}
	viewportWidth := m.width
	if viewportWidth < 1 {
		viewportWidth = 1
	}
	m.viewport.Width = viewportWidth
	m.viewport.Height = viewportHeight

	const promptLen = 2 // "> "
	inputWidth := m.width - 6 - promptLen
	if inputWidth < 10 {
		inputWidth = 10
	}
	m.input.Width = inputWidth

	if m.theme != nil {
		m.theme.SetSize(m.width, m.height)
	}

	m.rebuildMarkdownRenderer()
	m.viewportOptimizer.ForceUpdate()
	m.updateViewport()

	var vpCmd tea.Cmd
	m.viewport, vpCmd = m.viewport.Update(msg)
	return m, vpCmd
}

// rebuildMarkdownRenderer recreates the glamour renderer for the current
// width. Construction failure degrades to plain-text answers.
func (m *Model) rebuildMarkdownRenderer() {
	if !m.opts.Markdown {
		m.markdown = nil
		return
	}
	wrap := m.width - 8
	if wrap < 20 {
		wrap = 20
	}
	r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(wrap),
	)
	if err != nil {
		m.markdown = nil
		return
	}
	m.markdown = r
}

// =============================================================================
// VIEWPORT UPDATE
// =============================================================================

func (m *Model) updateViewport() {
	content := m.renderMessages()
	if m.viewportOptimizer.ShouldUpdate(content) {
		m.viewport.SetContent(content)
		m.viewportOptimizer.MarkClean()
	}
}

// =============================================================================
// GETTERS
// =============================================================================

// GetState returns the current screen state.
func (m *Model) GetState() State {
	return m.state
}

// WebSearchEnabled reports the live state of the web-search toggle.
func (m *Model) WebSearchEnabled() bool {
	return m.webSearch
}

// CurrentContext returns the help-filter context for the current UI state.
func (m *Model) CurrentContext() HelpContext {
	switch {
	case m.sessionOverlay:
		return ContextSessions
	case m.state == StateError:
		return ContextError
	case m.state == StateStreaming:
		return ContextStreaming
	default:
		return ContextNormal
	}
}
