// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package api

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"
)

// chunkedReader feeds its pieces one Read call at a time, simulating a
// network body that fragments records at arbitrary boundaries.
type chunkedReader struct {
	pieces []string
	index  int
}

func (r *chunkedReader) Read(p []byte) (int, error) {
	if r.index >= len(r.pieces) {
		return 0, io.EOF
	}
	n := copy(p, r.pieces[r.index])
	r.index++
	return n, nil
}

// failingReader returns some data and then a read error.
type failingReader struct {
	data string
	done bool
}

func (r *failingReader) Read(p []byte) (int, error) {
	if !r.done {
		r.done = true
		return copy(p, r.data), nil
	}
	return 0, errors.New("connection reset")
}

func collect(t *testing.T, r io.Reader) ([]StreamChunk, error) {
	t.Helper()
	reader := NewStreamReader(r)
	reader.DebugLog = func(string, ...any) {}
	var chunks []StreamChunk
	err := reader.Process(context.Background(), func(c StreamChunk) {
		chunks = append(chunks, c)
	})
	return chunks, err
}

// =============================================================================
// FRAMING TESTS
// =============================================================================

func TestStreamReader_CompleteRecords(t *testing.T) {
	body := "data: {\"content\":\"Hel\"}\n\ndata: {\"content\":\"lo\"}\n\ndata: {\"content\":\"\",\"is_final\":true,\"assistant_message_id\":\"m1\"}\n\n"

	chunks, err := collect(t, strings.NewReader(body))
	if err != nil {
		t.Fatalf("Process error: %v", err)
	}

	if len(chunks) != 3 {
		t.Fatalf("chunks = %d, want 3", len(chunks))
	}
	if chunks[0].Content != "Hel" || chunks[1].Content != "lo" {
		t.Errorf("delta contents = %q, %q", chunks[0].Content, chunks[1].Content)
	}
	if !chunks[2].IsFinal || chunks[2].AssistantMessageID != "m1" {
		t.Errorf("final chunk = %+v", chunks[2])
	}
}

func TestStreamReader_PartialReads(t *testing.T) {
	// Record boundaries never align with read boundaries here.
	reader := &chunkedReader{pieces: []string{
		"data: {\"con",
		"tent\":\"A\"}\n",
		"\ndata: {\"content\":\"B\"}",
		"\n\nda",
		"ta: {\"is_final\":true}\n\n",
	}}

	chunks, err := collect(t, reader)
	if err != nil {
		t.Fatalf("Process error: %v", err)
	}

	if len(chunks) != 3 {
		t.Fatalf("chunks = %d, want 3", len(chunks))
	}
	if chunks[0].Content != "A" || chunks[1].Content != "B" {
		t.Errorf("contents = %q, %q, want A, B", chunks[0].Content, chunks[1].Content)
	}
	if !chunks[2].IsFinal {
		t.Error("last chunk should be final")
	}
}

func TestStreamReader_OrderPreserved(t *testing.T) {
	var sb strings.Builder
	want := ""
	for _, frag := range []string{"one ", "two ", "three ", "four"} {
		sb.WriteString("data: {\"content\":\"" + frag + "\"}\n\n")
		want += frag
	}
	sb.WriteString("data: {\"is_final\":true}\n\n")

	chunks, err := collect(t, strings.NewReader(sb.String()))
	if err != nil {
		t.Fatalf("Process error: %v", err)
	}

	got := ""
	for _, c := range chunks {
		got += c.Content
	}
	if got != want {
		t.Errorf("concatenated content = %q, want %q", got, want)
	}
}

func TestStreamReader_MalformedRecordSkipped(t *testing.T) {
	body := "data: {\"content\":\"A\"}\n\ndata: {not json at all\n\ndata: {\"content\":\"B\"}\n\ndata: {\"is_final\":true}\n\n"

	skipped := 0
	reader := NewStreamReader(strings.NewReader(body))
	reader.DebugLog = func(string, ...any) { skipped++ }

	var chunks []StreamChunk
	err := reader.Process(context.Background(), func(c StreamChunk) {
		chunks = append(chunks, c)
	})
	if err != nil {
		t.Fatalf("Process error: %v", err)
	}

	if skipped != 1 {
		t.Errorf("skipped = %d, want 1", skipped)
	}
	if len(chunks) != 3 {
		t.Fatalf("chunks = %d, want 3 (bad record dropped, stream continues)", len(chunks))
	}
	if chunks[0].Content != "A" || chunks[1].Content != "B" {
		t.Errorf("contents = %q, %q", chunks[0].Content, chunks[1].Content)
	}
}

func TestStreamReader_NonDataLinesDiscarded(t *testing.T) {
	body := ": heartbeat\n\nevent: ping\n\ndata: {\"content\":\"A\"}\n\ndata: {\"is_final\":true}\n\n"

	chunks, err := collect(t, strings.NewReader(body))
	if err != nil {
		t.Fatalf("Process error: %v", err)
	}
	if len(chunks) != 2 {
		t.Fatalf("chunks = %d, want 2", len(chunks))
	}
	if chunks[0].Content != "A" {
		t.Errorf("content = %q, want A", chunks[0].Content)
	}
}

func TestStreamReader_TrailingFragmentDiscarded(t *testing.T) {
	// The stream dies mid-record: the half record must not surface.
	body := "data: {\"content\":\"A\"}\n\ndata: {\"content\":\"truncat"

	chunks, err := collect(t, strings.NewReader(body))
	if err != nil {
		t.Fatalf("Process error: %v", err)
	}
	if len(chunks) != 1 {
		t.Fatalf("chunks = %d, want 1", len(chunks))
	}
	if chunks[0].Content != "A" {
		t.Errorf("content = %q, want A", chunks[0].Content)
	}
}

func TestStreamReader_FinalRecordWithoutSeparatorCounts(t *testing.T) {
	// The stream closes right after its last record, before the blank
	// line: the record is complete and must still be delivered.
	body := "data: {\"content\":\"A\"}\n\ndata: {\"content\":\"\",\"is_final\":true,\"assistant_message_id\":\"m9\"}\n"

	chunks, err := collect(t, strings.NewReader(body))
	if err != nil {
		t.Fatalf("Process error: %v", err)
	}
	if len(chunks) != 2 {
		t.Fatalf("chunks = %d, want 2", len(chunks))
	}
	last := chunks[len(chunks)-1]
	if !last.IsFinal || last.AssistantMessageID != "m9" {
		t.Errorf("last chunk = %+v, want final m9", last)
	}
}

func TestStreamReader_EndWithoutFinal(t *testing.T) {
	// A clean EOF without a final record is not a reader-level error;
	// the caller decides what an unfinished turn means.
	body := "data: {\"content\":\"A\"}\n\ndata: {\"content\":\"B\"}\n\n"

	chunks, err := collect(t, strings.NewReader(body))
	if err != nil {
		t.Fatalf("Process error: %v", err)
	}
	for _, c := range chunks {
		if c.IsFinal {
			t.Error("no chunk should be final")
		}
	}
	if len(chunks) != 2 {
		t.Errorf("chunks = %d, want 2", len(chunks))
	}
}

func TestStreamReader_ReadErrorIsStreamFailure(t *testing.T) {
	reader := &failingReader{data: "data: {\"content\":\"A\"}\n\n"}

	chunks, err := collect(t, reader)
	if err == nil {
		t.Fatal("expected a stream-level error")
	}

	var clientErr *ClientError
	if !errors.As(err, &clientErr) || clientErr.Type != ErrTypeStream {
		t.Errorf("error = %v, want ErrTypeStream ClientError", err)
	}

	// Chunks delivered before the failure are still valid.
	if len(chunks) != 1 || chunks[0].Content != "A" {
		t.Errorf("chunks before failure = %+v", chunks)
	}
}

func TestStreamReader_StopsAfterFinal(t *testing.T) {
	// Anything after the final record belongs to no turn and is ignored.
	body := "data: {\"is_final\":true}\n\ndata: {\"content\":\"stray\"}\n\n"

	chunks, err := collect(t, strings.NewReader(body))
	if err != nil {
		t.Fatalf("Process error: %v", err)
	}
	if len(chunks) != 1 || !chunks[0].IsFinal {
		t.Fatalf("chunks = %+v, want single final", chunks)
	}
}

func TestStreamReader_Cancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	reader := NewStreamReader(strings.NewReader("data: {\"content\":\"A\"}\n\n"))
	err := reader.Process(ctx, func(StreamChunk) {})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v, want context.Canceled", err)
	}
}

// =============================================================================
// PAYLOAD EXTRACTION TESTS
// =============================================================================

func TestExtractPayload(t *testing.T) {
	tests := []struct {
		name    string
		record  string
		want    string
		wantOK  bool
	}{
		{"plain", `data: {"content":"x"}`, `{"content":"x"}`, true},
		{"no space after marker", `data:{"content":"x"}`, `{"content":"x"}`, true},
		{"crlf line ending", "data: {\"a\":1}\r", `{"a":1}`, true},
		{"comment line", ": keepalive", "", false},
		{"event line only", "event: ping", "", false},
		{"empty payload", "data: ", "", false},
		{"payload on second line", "event: message\ndata: {}", "{}", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := extractPayload(tt.record)
			if ok != tt.wantOK {
				t.Fatalf("ok = %v, want %v", ok, tt.wantOK)
			}
			if got != tt.want {
				t.Errorf("payload = %q, want %q", got, tt.want)
			}
		})
	}
}

// =============================================================================
// CITATION TESTS
// =============================================================================

func TestRetrievedChunk_SourceURL(t *testing.T) {
	web := RetrievedChunk{DocumentID: "web:https://example.com/page"}
	if !web.IsWebSource() {
		t.Error("web: prefixed id should be a web source")
	}
	if got := web.SourceURL("http://svc"); got != "https://example.com/page" {
		t.Errorf("web SourceURL = %q", got)
	}

	doc := RetrievedChunk{DocumentID: "doc_42", PageLabel: "7"}
	if doc.IsWebSource() {
		t.Error("plain id should not be a web source")
	}
	if got := doc.SourceURL("http://svc"); got != "http://svc/documents/doc_42/view#page=7" {
		t.Errorf("doc SourceURL = %q", got)
	}

	noPage := RetrievedChunk{DocumentID: "doc_42"}
	if got := noPage.SourceURL("http://svc"); got != "http://svc/documents/doc_42/view" {
		t.Errorf("doc SourceURL without page = %q", got)
	}
}
