// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/jeranaias/docchat-tui/internal/api"
	"github.com/jeranaias/docchat-tui/internal/config"
)

// answerServer serves a scripted event-stream body for one question.
func answerServer(t *testing.T, body string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		w.Write([]byte(body))
	}))
}

func TestStreamAnswer_CompleteStream(t *testing.T) {
	server := answerServer(t,
		"data: {\"content\":\"The policy \"}\n\n"+
			"data: {\"content\":\"allows it.\"}\n\n"+
			"data: {\"content\":\"\",\"is_final\":true,\"session_id\":\"s1\",\"assistant_message_id\":\"m1\"}\n\n")
	defer server.Close()

	client := api.NewClientWithConfig(&api.ClientConfig{BaseURL: server.URL})

	var deltas []string
	answer, final, err := streamAnswer(context.Background(), client, api.AskRequest{
		Question: "is it allowed?",
	}, func(delta string) {
		deltas = append(deltas, delta)
	})
	if err != nil {
		t.Fatalf("streamAnswer: %v", err)
	}
	if answer != "The policy allows it." {
		t.Errorf("answer = %q", answer)
	}
	if len(deltas) != 2 {
		t.Errorf("deltas = %d, want 2", len(deltas))
	}
	if !final.IsFinal || final.SessionID != "s1" || final.AssistantMessageID != "m1" {
		t.Errorf("final = %+v", final)
	}
}

func TestStreamAnswer_TruncatedStreamIsError(t *testing.T) {
	// The service dies after one delta: the partial answer must come
	// back with a truncation error, never as a completed turn.
	server := answerServer(t, "data: {\"content\":\"partial\"}\n\n")
	defer server.Close()

	client := api.NewClientWithConfig(&api.ClientConfig{BaseURL: server.URL})

	answer, _, err := streamAnswer(context.Background(), client, api.AskRequest{
		Question: "q",
	}, nil)
	if !errors.Is(err, api.ErrStreamTruncated) {
		t.Fatalf("err = %v, want api.ErrStreamTruncated", err)
	}
	if answer != "partial" {
		t.Errorf("answer = %q, want the partial text for display", answer)
	}
	if GetExitCode(err) != ExitNetworkError {
		t.Errorf("exit code = %d, want %d", GetExitCode(err), ExitNetworkError)
	}
}

func TestChatSession_TruncatedStreamNotInTranscript(t *testing.T) {
	server := answerServer(t, "data: {\"content\":\"half an ans\"}\n\n")
	defer server.Close()

	session := &ChatSession{
		Env: &cmdEnv{
			Config:   config.Default(),
			Client:   api.NewClientWithConfig(&api.ClientConfig{BaseURL: server.URL}),
			Identity: "guest_test",
		},
		Quiet: true,
	}

	err := session.processQuestion("what does the policy say?")
	if !errors.Is(err, api.ErrStreamTruncated) {
		t.Fatalf("err = %v, want api.ErrStreamTruncated", err)
	}
	if len(session.Transcript) != 0 {
		t.Errorf("transcript = %d entries, want 0 after a truncated stream", len(session.Transcript))
	}
	if session.Questions != 0 {
		t.Errorf("questions = %d, want 0", session.Questions)
	}
}
