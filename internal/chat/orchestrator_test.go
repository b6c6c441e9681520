// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package chat drives the conversation turn lifecycle.
package chat

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/jeranaias/docchat-tui/internal/api"
	"github.com/jeranaias/docchat-tui/internal/model"
)

// =============================================================================
// TEST HELPERS
// =============================================================================

// fakeStreamer scripts the API client: it replays chunks through the
// callback and records every request it sees.
type fakeStreamer struct {
	mu       sync.Mutex
	requests []api.AskRequest
	chunks   []api.StreamChunk
	err      error

	rateErr   error
	rateCalls []string

	// gate, when set, blocks AskStream until closed or the context ends.
	gate chan struct{}
}

func (f *fakeStreamer) AskStream(ctx context.Context, ask api.AskRequest, callback api.StreamCallback) error {
	f.mu.Lock()
	f.requests = append(f.requests, ask)
	chunks := f.chunks
	err := f.err
	gate := f.gate
	f.mu.Unlock()

	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
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
	return err
}

func (f *fakeStreamer) RateMessage(ctx context.Context, messageID string, rating int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.rateCalls = append(f.rateCalls, messageID)
	return f.rateErr
}

func (f *fakeStreamer) lastRequest(t *testing.T) api.AskRequest {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.requests) == 0 {
		t.Fatal("no request recorded")
	}
	return f.requests[len(f.requests)-1]
}

func newTestOrchestrator(t *testing.T, streamer *fakeStreamer) (*Orchestrator, *model.Conversation, chan Event) {
	t.Helper()
	conv := model.NewConversation()
	events := make(chan Event, 64)
	orch := NewOrchestrator(streamer, conv, Options{
		TenantID: "acme",
		Identity: func() string { return "guest_test" },
		Notify:   func(ev Event) { events <- ev },
		CopyToClipboard: func(string) error { return nil },
	})
	return orch, conv, events
}

// waitFor drains events until match returns true or the test times out.
func waitFor(t *testing.T, events chan Event, match func(Event) bool) Event {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for {
		select {
		case ev := <-events:
			if match(ev) {
				return ev
			}
		case <-deadline:
			t.Fatal("timed out waiting for event")
			return nil
		}
	}
}

func waitSettled(t *testing.T, events chan Event) TurnSettledEvent {
	t.Helper()
	ev := waitFor(t, events, func(ev Event) bool {
		_, ok := ev.(TurnSettledEvent)
		return ok
	})
	return ev.(TurnSettledEvent)
}

func waitFailed(t *testing.T, events chan Event) TurnFailedEvent {
	t.Helper()
	ev := waitFor(t, events, func(ev Event) bool {
		_, ok := ev.(TurnFailedEvent)
		return ok
	})
	return ev.(TurnFailedEvent)
}

// =============================================================================
// SUBMIT TESTS
// =============================================================================

func TestOrchestrator_SubmitHappyPath(t *testing.T) {
	streamer := &fakeStreamer{
		chunks: []api.StreamChunk{
			{Content: "Hi"},
			{IsFinal: true, AssistantMessageID: "m1", Suggestions: []string{"How do I..?"}},
		},
	}
	orch, conv, events := newTestOrchestrator(t, streamer)

	if err := orch.Submit(context.Background(), "hello", false); err != nil {
		t.Fatalf("Submit: %v", err)
	}

	settled := waitSettled(t, events)
	if settled.MessageID != "m1" || len(settled.Suggestions) != 1 {
		t.Errorf("settled event = %+v", settled)
	}

	req := streamer.lastRequest(t)
	if req.Question != "hello" || req.TenantID != "acme" || req.WebSearch {
		t.Errorf("request = %+v", req)
	}
	if req.UserIdentifier != "guest_test" {
		t.Errorf("user identifier = %q", req.UserIdentifier)
	}

	msgs := conv.Snapshot()
	last := msgs[len(msgs)-1]
	if last.Content != "Hi" || last.ID != "m1" || last.Phase != model.PhaseSettled {
		t.Errorf("settled message = %+v", last)
	}
	if orch.State() != TurnSettled {
		t.Errorf("state = %v, want settled", orch.State())
	}
	if orch.Busy() {
		t.Error("orchestrator still busy after settle")
	}
}

func TestOrchestrator_EmptyQuestionRejected(t *testing.T) {
	orch, _, _ := newTestOrchestrator(t, &fakeStreamer{})
	if err := orch.Submit(context.Background(), "   \n", false); !errors.Is(err, ErrEmptyQuestion) {
		t.Errorf("err = %v, want ErrEmptyQuestion", err)
	}
}

func TestOrchestrator_ConcurrentSubmitRejected(t *testing.T) {
	gate := make(chan struct{})
	streamer := &fakeStreamer{
		gate: gate,
		chunks: []api.StreamChunk{
			{IsFinal: true, AssistantMessageID: "m1"},
		},
	}
	orch, _, events := newTestOrchestrator(t, streamer)

	if err := orch.Submit(context.Background(), "first", false); err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if err := orch.Submit(context.Background(), "second", false); !errors.Is(err, ErrTurnInFlight) {
		t.Errorf("second submit err = %v, want ErrTurnInFlight", err)
	}

	close(gate)
	waitSettled(t, events)

	// Once the turn settles, submission opens up again.
	if err := orch.Submit(context.Background(), "third", false); err != nil {
		t.Errorf("submit after settle: %v", err)
	}
	waitSettled(t, events)
}

func TestOrchestrator_SearchPlaceholderVariant(t *testing.T) {
	gate := make(chan struct{})
	streamer := &fakeStreamer{
		gate:   gate,
		chunks: []api.StreamChunk{{IsFinal: true, AssistantMessageID: "m1"}},
	}
	orch, conv, events := newTestOrchestrator(t, streamer)

	if err := orch.Submit(context.Background(), "latest news", true); err != nil {
		t.Fatalf("Submit: %v", err)
	}

	last, _ := conv.LastMessage()
	if last.Content != model.PlaceholderSearching {
		t.Errorf("placeholder = %q, want search variant", last.Content)
	}

	close(gate)
	waitSettled(t, events)

	req := streamer.lastRequest(t)
	if !req.WebSearch {
		t.Error("web_search flag not forwarded")
	}
}

// =============================================================================
// FAILURE TESTS
// =============================================================================

func TestOrchestrator_StreamEndsWithoutFinal(t *testing.T) {
	streamer := &fakeStreamer{
		chunks: []api.StreamChunk{{Content: "partial ans"}},
	}
	orch, conv, events := newTestOrchestrator(t, streamer)

	if err := orch.Submit(context.Background(), "hello", false); err != nil {
		t.Fatalf("Submit: %v", err)
	}

	failed := waitFailed(t, events)
	if !errors.Is(failed.Err, ErrStreamTruncated) {
		t.Errorf("failure err = %v, want ErrStreamTruncated", failed.Err)
	}

	last, _ := conv.LastMessage()
	if last.Phase != model.PhaseFailed || last.Content != model.FailureText {
		t.Errorf("message after truncated stream = %+v", last)
	}
	if orch.State() != TurnErrored {
		t.Errorf("state = %v, want errored", orch.State())
	}
}

func TestOrchestrator_StreamError(t *testing.T) {
	wantErr := errors.New("connection reset")
	streamer := &fakeStreamer{
		chunks: []api.StreamChunk{{Content: "He"}},
		err:    wantErr,
	}
	orch, conv, events := newTestOrchestrator(t, streamer)

	if err := orch.Submit(context.Background(), "hello", false); err != nil {
		t.Fatalf("Submit: %v", err)
	}

	failed := waitFailed(t, events)
	if !errors.Is(failed.Err, wantErr) {
		t.Errorf("failure err = %v, want %v", failed.Err, wantErr)
	}
	last, _ := conv.LastMessage()
	if last.Content != model.FailureText {
		t.Errorf("partial content survived: %q", last.Content)
	}
}

func TestOrchestrator_Cancel(t *testing.T) {
	gate := make(chan struct{}) // never closed; only cancellation releases it
	streamer := &fakeStreamer{gate: gate}
	orch, conv, events := newTestOrchestrator(t, streamer)

	if err := orch.Submit(context.Background(), "hello", false); err != nil {
		t.Fatalf("Submit: %v", err)
	}
	orch.Cancel()

	waitFailed(t, events)
	last, _ := conv.LastMessage()
	if last.Content != model.FailureText {
		t.Errorf("message after cancel = %q", last.Content)
	}
	if orch.Busy() {
		t.Error("orchestrator busy after cancel")
	}
}

// =============================================================================
// SESSION ADOPTION TESTS
// =============================================================================

func TestOrchestrator_AdoptsSessionIDFromFinal(t *testing.T) {
	streamer := &fakeStreamer{
		chunks: []api.StreamChunk{
			{Content: "Hi"},
			{IsFinal: true, AssistantMessageID: "m1", SessionID: "s1"},
		},
	}
	conv := model.NewConversation()
	events := make(chan Event, 64)
	var bound string
	orch := NewOrchestrator(streamer, conv, Options{
		TenantID:       "acme",
		Notify:         func(ev Event) { events <- ev },
		OnSessionBound: func(id string) { bound = id },
	})

	if err := orch.Submit(context.Background(), "hello", false); err != nil {
		t.Fatalf("Submit: %v", err)
	}
	waitSettled(t, events)

	if conv.SessionID() != "s1" {
		t.Errorf("session id = %q, want s1", conv.SessionID())
	}
	if bound != "s1" {
		t.Errorf("OnSessionBound got %q, want s1", bound)
	}

	// The next turn carries the adopted session id.
	if err := orch.Submit(context.Background(), "and then?", false); err != nil {
		t.Fatalf("second submit: %v", err)
	}
	waitSettled(t, events)
	if req := streamer.lastRequest(t); req.SessionID != "s1" {
		t.Errorf("second request session id = %q, want s1", req.SessionID)
	}
}

// =============================================================================
// REGENERATE TESTS
// =============================================================================

func TestOrchestrator_Regenerate(t *testing.T) {
	streamer := &fakeStreamer{
		chunks: []api.StreamChunk{
			{Content: "answer"},
			{IsFinal: true, AssistantMessageID: "m-regen"},
		},
	}
	orch, conv, events := newTestOrchestrator(t, streamer)

	// Transcript: greeting, U0, A0, U1, A1.
	conv.AddUserMessage("first q")
	conv.AddPlaceholder(false)
	conv.ApplyDelta("first a")
	conv.FinalizeLast(model.FinalMetadata{MessageID: "m0"})
	conv.AddUserMessage("second q")
	conv.AddPlaceholder(false)
	conv.ApplyDelta("stale a")
	conv.FinalizeLast(model.FinalMetadata{MessageID: "m1"})

	if err := orch.Regenerate(context.Background(), 4); err != nil {
		t.Fatalf("Regenerate: %v", err)
	}
	waitSettled(t, events)

	if req := streamer.lastRequest(t); req.Question != "second q" {
		t.Errorf("resubmitted question = %q, want %q", req.Question, "second q")
	}

	msgs := conv.Snapshot()
	// greeting, U0, A0, U1, fresh answer — the stale answer is gone and
	// the user message was not duplicated.
	if len(msgs) != 5 {
		t.Fatalf("message count = %d, want 5", len(msgs))
	}
	if msgs[3].Content != "second q" || msgs[3].Role != model.RoleUser {
		t.Errorf("messages[3] = %+v", msgs[3])
	}
	if msgs[4].Content != "answer" || msgs[4].ID != "m-regen" {
		t.Errorf("messages[4] = %+v", msgs[4])
	}
}

func TestOrchestrator_RegenerateReplaysWebSearch(t *testing.T) {
	streamer := &fakeStreamer{
		chunks: []api.StreamChunk{
			{Content: "fresher"},
			{IsFinal: true, AssistantMessageID: "m-regen"},
		},
	}
	orch, conv, events := newTestOrchestrator(t, streamer)

	conv.AddUserMessage("latest filings?")
	conv.AddPlaceholder(true)
	conv.ApplyDelta("stale a")
	conv.FinalizeLast(model.FinalMetadata{MessageID: "m1"})

	// Transcript: greeting, U0, A0 (web-augmented).
	if err := orch.Regenerate(context.Background(), 2); err != nil {
		t.Fatalf("Regenerate: %v", err)
	}
	waitSettled(t, events)

	if req := streamer.lastRequest(t); !req.WebSearch {
		t.Error("regenerating a web-augmented answer should keep web search on")
	}
}

func TestOrchestrator_RegenerateWithoutPriorUserIsNoop(t *testing.T) {
	streamer := &fakeStreamer{}
	orch, conv, _ := newTestOrchestrator(t, streamer)

	// Index 0 is the greeting; nothing precedes it.
	if err := orch.Regenerate(context.Background(), 0); err != nil {
		t.Fatalf("Regenerate: %v", err)
	}
	if len(streamer.requests) != 0 {
		t.Error("no-op regenerate issued a request")
	}
	if conv.Len() != 1 {
		t.Errorf("transcript length = %d, want 1", conv.Len())
	}
}

// =============================================================================
// FEEDBACK / COPY TESTS
// =============================================================================

func seedSettledAnswer(conv *model.Conversation, id string) {
	conv.AddUserMessage("q")
	conv.AddPlaceholder(false)
	conv.ApplyDelta("a")
	conv.FinalizeLast(model.FinalMetadata{MessageID: id})
}

func TestOrchestrator_RateSuccess(t *testing.T) {
	streamer := &fakeStreamer{}
	orch, conv, _ := newTestOrchestrator(t, streamer)
	seedSettledAnswer(conv, "m1")

	if err := orch.Rate(context.Background(), "m1", model.RatingUp); err != nil {
		t.Fatalf("Rate: %v", err)
	}
	last, _ := conv.LastMessage()
	if last.Rating != model.RatingUp {
		t.Errorf("rating = %v, want up", last.Rating)
	}
	if len(streamer.rateCalls) != 1 || streamer.rateCalls[0] != "m1" {
		t.Errorf("rate calls = %v", streamer.rateCalls)
	}
}

func TestOrchestrator_RateRollbackOnRemoteFailure(t *testing.T) {
	streamer := &fakeStreamer{rateErr: errors.New("503")}
	orch, conv, _ := newTestOrchestrator(t, streamer)
	seedSettledAnswer(conv, "m1")

	if err := orch.Rate(context.Background(), "m1", model.RatingDown); err == nil {
		t.Fatal("Rate should surface the remote error")
	}
	last, _ := conv.LastMessage()
	if last.Rating != model.RatingNone {
		t.Errorf("rating after rollback = %v, want none", last.Rating)
	}
}

func TestOrchestrator_RateFailedToggleClearsRating(t *testing.T) {
	streamer := &fakeStreamer{}
	orch, conv, _ := newTestOrchestrator(t, streamer)
	seedSettledAnswer(conv, "m1")

	if err := orch.Rate(context.Background(), "m1", model.RatingUp); err != nil {
		t.Fatalf("Rate: %v", err)
	}

	// A rejected toggle must not fall back to the earlier thumbs-up.
	streamer.rateErr = errors.New("503")
	if err := orch.Rate(context.Background(), "m1", model.RatingDown); err == nil {
		t.Fatal("Rate should surface the remote error")
	}
	last, _ := conv.LastMessage()
	if last.Rating != model.RatingNone {
		t.Errorf("rating after failed toggle = %v, want none", last.Rating)
	}
}

func TestOrchestrator_RateUnperistedMessageRejected(t *testing.T) {
	orch, _, _ := newTestOrchestrator(t, &fakeStreamer{})
	if err := orch.Rate(context.Background(), "", model.RatingUp); !errors.Is(err, ErrNotRatable) {
		t.Errorf("err = %v, want ErrNotRatable", err)
	}
}

func TestOrchestrator_Copy(t *testing.T) {
	streamer := &fakeStreamer{}
	conv := model.NewConversation()
	var copied string
	orch := NewOrchestrator(streamer, conv, Options{
		CopyToClipboard: func(text string) error {
			copied = text
			return nil
		},
	})
	seedSettledAnswer(conv, "m1")

	// greeting, q, a — the answer sits at index 2.
	if err := orch.Copy(2); err != nil {
		t.Fatalf("Copy: %v", err)
	}
	if copied != "a" {
		t.Errorf("copied = %q, want %q", copied, "a")
	}

	if err := orch.Copy(99); !errors.Is(err, ErrNoSuchMessage) {
		t.Errorf("out-of-range copy err = %v", err)
	}
}
