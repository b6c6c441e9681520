// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/jeranaias/docchat-tui/internal/api"
	engine "github.com/jeranaias/docchat-tui/internal/chat"
	"github.com/jeranaias/docchat-tui/internal/model"
	"github.com/jeranaias/docchat-tui/internal/ui/styles"
)

// =============================================================================
// TEST HELPERS
// =============================================================================

// scriptedStreamer replays chunks through the stream callback.
type scriptedStreamer struct {
	mu     sync.Mutex
	chunks []api.StreamChunk
}

func (s *scriptedStreamer) AskStream(ctx context.Context, ask api.AskRequest, callback api.StreamCallback) error {
	s.mu.Lock()
	chunks := s.chunks
	s.mu.Unlock()
	for _, chunk := range chunks {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		callback(chunk)
		if chunk.IsFinal {
			return nil
		}
	}
	return nil
}

func (s *scriptedStreamer) RateMessage(ctx context.Context, messageID string, rating int) error {
	return nil
}

func newTestModel(t *testing.T, streamer engine.Streamer) (Model, *model.Conversation) {
	t.Helper()
	conv := model.NewConversation()
	bridge := NewEventBridge(NewStreamingBuffer())
	orch := engine.NewOrchestrator(streamer, conv, engine.Options{
		TenantID:        "acme",
		Identity:        func() string { return "guest_test" },
		Notify:          bridge.Notify,
		CopyToClipboard: func(string) error { return nil },
	})
	theme := styles.NewThemeForMode("dark")
	m := New(theme, orch, nil, bridge, Options{Identity: "guest_test"})

	resized, _ := m.Update(tea.WindowSizeMsg{Width: 100, Height: 40})
	return resized.(Model), conv
}

func pressKeys(m Model, msgs ...tea.Msg) Model {
	for _, msg := range msgs {
		next, _ := m.Update(msg)
		m = next.(Model)
	}
	return m
}

// =============================================================================
// KEY MAP TESTS
// =============================================================================

func TestDefaultKeyMap(t *testing.T) {
	km := DefaultKeyMap()

	bindings := [][]string{
		km.Submit.Keys(), km.Cancel.Keys(), km.WebSearch.Keys(),
		km.Copy.Keys(), km.Regenerate.Keys(), km.RateUp.Keys(),
		km.RateDown.Keys(), km.NewSession.Keys(), km.SessionList.Keys(),
		km.Quit.Keys(),
	}
	for i, keys := range bindings {
		if len(keys) == 0 {
			t.Errorf("binding %d has no keys", i)
		}
	}

	if len(km.ShortHelp()) == 0 {
		t.Error("ShortHelp returned no bindings")
	}
	if len(km.FullHelp()) == 0 {
		t.Error("FullHelp returned no groups")
	}
}

func TestGetHelpItemsForContext(t *testing.T) {
	sessions := GetHelpItemsForContext(ContextSessions)
	foundLoad := false
	for _, item := range sessions {
		if item.Desc == "Load selected session" {
			foundLoad = true
		}
	}
	if !foundLoad {
		t.Error("session context should include the load entry")
	}

	normal := GetHelpItemsForContext(ContextNormal)
	for _, item := range normal {
		if item.Desc == "Load selected session" {
			t.Error("normal context should not include session overlay entries")
		}
	}
}

// =============================================================================
// HELPER TESTS
// =============================================================================

func TestLastSettledAssistantIndex(t *testing.T) {
	snapshot := []model.Message{
		{Role: model.RoleAssistant, Phase: model.PhaseSettled}, // greeting, no id
		{Role: model.RoleUser, Phase: model.PhaseSettled},
		{Role: model.RoleAssistant, Phase: model.PhaseSettled, ID: "srv-1"},
		{Role: model.RoleUser, Phase: model.PhaseSettled},
		{Role: model.RoleAssistant, Phase: model.PhaseFailed},
	}

	idx, ok := lastSettledAssistantIndex(snapshot)
	if !ok || idx != 2 {
		t.Errorf("expected index 2, got %d (ok=%v)", idx, ok)
	}

	failedIdx, ok := lastFailedAssistantIndex(snapshot)
	if !ok || failedIdx != 4 {
		t.Errorf("expected failed index 4, got %d (ok=%v)", failedIdx, ok)
	}

	if _, ok := lastSettledAssistantIndex(nil); ok {
		t.Error("empty snapshot should report no settled answer")
	}
}

func TestFormatRelativeTime(t *testing.T) {
	now := time.Now()
	tests := []struct {
		name string
		t    time.Time
		want string
	}{
		{"zero", time.Time{}, ""},
		{"seconds", now.Add(-10 * time.Second), "just now"},
		{"minutes", now.Add(-5 * time.Minute), "5m ago"},
		{"hours", now.Add(-3 * time.Hour), "3h ago"},
		{"days", now.Add(-49 * time.Hour), "2d ago"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := formatRelativeTime(tt.t); got != tt.want {
				t.Errorf("formatRelativeTime() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestPadRight(t *testing.T) {
	if got := padRight("ab", 5); got != "ab   " {
		t.Errorf("padRight() = %q", got)
	}
	if got := padRight("abcdef", 3); got != "abcdef" {
		t.Errorf("padRight() should not truncate, got %q", got)
	}
}

// =============================================================================
// MODEL TESTS
// =============================================================================

func TestModel_ViewShowsGreeting(t *testing.T) {
	m, _ := newTestModel(t, &scriptedStreamer{})

	view := m.View()
	if !strings.Contains(view, "Ask me anything") {
		t.Error("fresh screen should show the greeting")
	}
	if !strings.Contains(view, "docchat") {
		t.Error("header should carry the brand")
	}
}

func TestModel_ViewShowsTranscript(t *testing.T) {
	m, conv := newTestModel(t, &scriptedStreamer{})

	conv.AddUserMessage("What is the travel policy?")
	conv.AddPlaceholder(false)
	conv.ApplyDelta("See section four.")
	conv.FinalizeLast(model.FinalMetadata{
		MessageID: "srv-1",
		Sources:   []model.Source{{SourceFilename: "handbook.pdf", PageLabel: "12"}},
	})

	m.opts.ShowSources = true
	m.viewportOptimizer.ForceUpdate()
	m.updateViewport()

	view := m.View()
	if !strings.Contains(view, "What is the travel policy?") {
		t.Error("transcript should show the question")
	}
	if !strings.Contains(view, "See section four.") {
		t.Error("transcript should show the answer")
	}
	if !strings.Contains(view, "handbook.pdf") {
		t.Error("transcript should list the source")
	}
}

func TestModel_SubmitRunsTurn(t *testing.T) {
	streamer := &scriptedStreamer{chunks: []api.StreamChunk{
		{Content: "The answer "},
		{Content: "is here."},
		{IsFinal: true, AssistantMessageID: "srv-9", SessionID: "sess-1"},
	}}
	m, conv := newTestModel(t, streamer)

	m = pressKeys(m,
		tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("hello")},
		tea.KeyMsg{Type: tea.KeyEnter},
	)

	// The turn runs on a background goroutine.
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if last, ok := conv.LastMessage(); ok && last.Phase == model.PhaseSettled && last.ID == "srv-9" {
			break
		}
		time.Sleep(5 * time.Millisecond)
	}

	last, ok := conv.LastMessage()
	if !ok || last.ID != "srv-9" {
		t.Fatalf("turn did not settle: %+v", last)
	}
	if last.Content != "The answer is here." {
		t.Errorf("unexpected answer content %q", last.Content)
	}
	if conv.SessionID() != "sess-1" {
		t.Errorf("conversation should bind the session id, got %q", conv.SessionID())
	}
	if m.input.Value() != "" {
		t.Error("input should reset after submit")
	}
}

func TestModel_WebSearchToggle(t *testing.T) {
	m, _ := newTestModel(t, &scriptedStreamer{})

	if m.WebSearchEnabled() {
		t.Fatal("web search should start off")
	}
	m = pressKeys(m, tea.KeyMsg{Type: tea.KeyCtrlW})
	if !m.WebSearchEnabled() {
		t.Error("ctrl+w should enable web search")
	}
	m = pressKeys(m, tea.KeyMsg{Type: tea.KeyCtrlW})
	if m.WebSearchEnabled() {
		t.Error("ctrl+w should toggle web search back off")
	}
}

func TestModel_SuggestionCycle(t *testing.T) {
	m, _ := newTestModel(t, &scriptedStreamer{})
	m.opts.ShowSuggestions = true
	m.suggestions = []string{"first follow-up", "second follow-up"}

	m = pressKeys(m, tea.KeyMsg{Type: tea.KeyTab})
	if m.input.Value() != "first follow-up" {
		t.Errorf("tab should fill the first suggestion, got %q", m.input.Value())
	}
	m = pressKeys(m, tea.KeyMsg{Type: tea.KeyTab})
	if m.input.Value() != "second follow-up" {
		t.Errorf("tab should cycle to the next suggestion, got %q", m.input.Value())
	}
	m = pressKeys(m, tea.KeyMsg{Type: tea.KeyTab})
	if m.input.Value() != "first follow-up" {
		t.Errorf("tab should wrap around, got %q", m.input.Value())
	}
}

func TestModel_EngineEventTransitions(t *testing.T) {
	m, _ := newTestModel(t, &scriptedStreamer{})

	next, _ := m.Update(ChatEventMsg{Event: engine.TurnStartedEvent{Searching: true}})
	m = next.(Model)
	if m.GetState() != StateStreaming {
		t.Error("TurnStartedEvent should enter streaming state")
	}
	if !m.searching {
		t.Error("searching flag should follow the event")
	}

	next, _ = m.Update(ChatEventMsg{Event: engine.TurnSettledEvent{MessageID: "srv-1", Suggestions: []string{"more?"}}})
	m = next.(Model)
	if m.GetState() != StateReady {
		t.Error("TurnSettledEvent should return to ready state")
	}

	next, _ = m.Update(ChatEventMsg{Event: engine.TurnStartedEvent{}})
	m = next.(Model)
	next, _ = m.Update(ChatEventMsg{Event: engine.TurnFailedEvent{Err: context.Canceled}})
	m = next.(Model)
	if m.GetState() != StateReady {
		t.Error("TurnFailedEvent should return to ready state")
	}
	if m.statusMsg != "Answer cancelled" {
		t.Errorf("cancel should produce a friendly status, got %q", m.statusMsg)
	}
}

func TestModel_HelpOverlay(t *testing.T) {
	m, _ := newTestModel(t, &scriptedStreamer{})

	m.showHelp = true
	view := m.View()
	if !strings.Contains(view, "Keyboard shortcuts") {
		t.Error("help overlay should render shortcut list")
	}

	m = pressKeys(m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("x")})
	if m.showHelp {
		t.Error("any key should close the help overlay")
	}
}

// =============================================================================
// EVENT BRIDGE TESTS
// =============================================================================

func TestEventBridge_DeltasGoToBuffer(t *testing.T) {
	buffer := NewStreamingBuffer()
	bridge := NewEventBridge(buffer)

	bridge.Notify(engine.TurnDeltaEvent{Content: "abc"})
	bridge.Notify(engine.TurnDeltaEvent{Content: "def"})

	if pending := buffer.Pending(); pending != 2 {
		t.Errorf("expected 2 buffered fragments, got %d", pending)
	}

	content, ok := buffer.ForceFlush()
	if !ok || content != "abcdef" {
		t.Errorf("expected buffered content 'abcdef', got %q (ok=%v)", content, ok)
	}
}

func TestEventBridge_DropsEventsBeforeAttach(t *testing.T) {
	bridge := NewEventBridge(NewStreamingBuffer())
	// Must not panic with no program attached.
	bridge.Notify(engine.TurnStartedEvent{})
	bridge.Notify(engine.TurnSettledEvent{MessageID: "srv-1"})
}
