// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func testClient(serverURL string) *Client {
	return NewClientWithConfig(&ClientConfig{
		BaseURL:           serverURL,
		Timeout:           5 * time.Second,
		RequestsPerSecond: 1000, // tests should not be paced
	})
}

// =============================================================================
// STREAMED ANSWER TESTS
// =============================================================================

func TestAskStream_EndToEnd(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/public/stream" {
			t.Errorf("path = %q", r.URL.Path)
		}

		var ask AskRequest
		if err := json.NewDecoder(r.Body).Decode(&ask); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		if ask.Question != "hello" || ask.TenantID != "acme" {
			t.Errorf("request = %+v", ask)
		}
		if ask.WebSearch {
			t.Error("web_search should be false")
		}

		w.Header().Set("Content-Type", "text/event-stream")
		w.Write([]byte("data: {\"content\":\"Hi\"}\n\n"))
		w.Write([]byte("data: {\"content\":\"\",\"is_final\":true,\"session_id\":\"s1\",\"assistant_message_id\":\"m1\",\"suggestions\":[\"How do I..?\"]}\n\n"))
	}))
	defer server.Close()

	client := testClient(server.URL)

	var chunks []StreamChunk
	err := client.AskStream(context.Background(), AskRequest{
		Question: "hello",
		TenantID: "acme",
	}, func(c StreamChunk) {
		chunks = append(chunks, c)
	})
	if err != nil {
		t.Fatalf("AskStream error: %v", err)
	}

	if len(chunks) != 2 {
		t.Fatalf("chunks = %d, want 2", len(chunks))
	}
	if chunks[0].Content != "Hi" {
		t.Errorf("delta = %q, want Hi", chunks[0].Content)
	}
	final := chunks[1]
	if !final.IsFinal || final.SessionID != "s1" || final.AssistantMessageID != "m1" {
		t.Errorf("final = %+v", final)
	}
	if len(final.Suggestions) != 1 || final.Suggestions[0] != "How do I..?" {
		t.Errorf("suggestions = %v", final.Suggestions)
	}
}

func TestAskStream_CredentialHeader(t *testing.T) {
	var gotAuth string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		w.Write([]byte("data: {\"is_final\":true}\n\n"))
	}))
	defer server.Close()

	client := testClient(server.URL)
	client.SetCredential("tok123")

	if err := client.AskStream(context.Background(), AskRequest{Question: "q", TenantID: "t"}, func(StreamChunk) {}); err != nil {
		t.Fatalf("AskStream error: %v", err)
	}
	if gotAuth != "Bearer tok123" {
		t.Errorf("Authorization = %q", gotAuth)
	}
}

func TestAskStream_AnonymousHasNoHeader(t *testing.T) {
	var gotAuth string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		w.Write([]byte("data: {\"is_final\":true}\n\n"))
	}))
	defer server.Close()

	client := testClient(server.URL)
	if err := client.AskStream(context.Background(), AskRequest{Question: "q", TenantID: "t"}, func(StreamChunk) {}); err != nil {
		t.Fatalf("AskStream error: %v", err)
	}
	if gotAuth != "" {
		t.Errorf("Authorization = %q, want empty for anonymous turn", gotAuth)
	}
}

func TestAskStream_Unauthorized(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer server.Close()

	client := testClient(server.URL)
	err := client.AskStream(context.Background(), AskRequest{Question: "q", TenantID: "t"}, func(StreamChunk) {})
	if !IsAuthError(err) {
		t.Errorf("err = %v, want auth error", err)
	}
}

// =============================================================================
// SESSION ENDPOINT TESTS
// =============================================================================

func TestListSessions(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/sessions" {
			t.Errorf("path = %q", r.URL.Path)
		}
		if got := r.URL.Query().Get("tenant_id"); got != "acme" {
			t.Errorf("tenant_id = %q", got)
		}
		json.NewEncoder(w).Encode(SessionListResponse{
			Sessions: []SessionInfo{{ID: "s1", Title: "First chat", MessageCount: 4}},
			Total:    1,
		})
	}))
	defer server.Close()

	client := testClient(server.URL)
	sessions, err := client.ListSessions(context.Background(), "acme")
	if err != nil {
		t.Fatalf("ListSessions error: %v", err)
	}
	if len(sessions) != 1 || sessions[0].ID != "s1" {
		t.Errorf("sessions = %+v", sessions)
	}
}

func TestCreateSession(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/chat/sessions" {
			t.Errorf("%s %s", r.Method, r.URL.Path)
		}
		var create CreateSessionRequest
		json.NewDecoder(r.Body).Decode(&create)
		json.NewEncoder(w).Encode(SessionInfo{ID: "fresh", TenantID: create.TenantID, Title: create.Title})
	}))
	defer server.Close()

	client := testClient(server.URL)
	info, err := client.CreateSession(context.Background(), CreateSessionRequest{
		TenantID: "acme",
		Title:    "New Chat",
	})
	if err != nil {
		t.Fatalf("CreateSession error: %v", err)
	}
	if info.ID != "fresh" || info.TenantID != "acme" {
		t.Errorf("session = %+v", info)
	}
}

func TestGetSession_NotFound(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	client := testClient(server.URL)
	_, err := client.GetSession(context.Background(), "nope")
	if !IsNotFound(err) {
		t.Errorf("err = %v, want not-found", err)
	}
}

func TestDeleteSession(t *testing.T) {
	deleted := false
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodDelete && r.URL.Path == "/chat/sessions/s1" {
			deleted = true
			w.WriteHeader(http.StatusNoContent)
			return
		}
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	client := testClient(server.URL)
	if err := client.DeleteSession(context.Background(), "s1"); err != nil {
		t.Fatalf("DeleteSession error: %v", err)
	}
	if !deleted {
		t.Error("delete request never reached the server")
	}
}

// =============================================================================
// FEEDBACK TESTS
// =============================================================================

func TestRateMessage(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/messages/m1/feedback" {
			t.Errorf("path = %q", r.URL.Path)
		}
		var fb FeedbackRequest
		json.NewDecoder(r.Body).Decode(&fb)
		if fb.Rating != -1 {
			t.Errorf("rating = %d, want -1", fb.Rating)
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	client := testClient(server.URL)
	if err := client.RateMessage(context.Background(), "m1", -1); err != nil {
		t.Fatalf("RateMessage error: %v", err)
	}
}

func TestRateMessage_AuthFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer server.Close()

	client := testClient(server.URL)
	err := client.RateMessage(context.Background(), "m1", 1)
	if !IsAuthError(err) {
		t.Errorf("err = %v, want auth error", err)
	}
}
