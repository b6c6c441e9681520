// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package api provides the HTTP client for the docchat answer service.
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
)

// recordSeparator delimits event records on the wire.
const recordSeparator = "\n\n"

// dataPrefix marks the payload line of an event record.
const dataPrefix = "data:"

// =============================================================================
// STREAM READER
// =============================================================================

// StreamReader turns a raw response body into an ordered sequence of
// decoded StreamChunks.
//
// The body arrives in arbitrary read-sized pieces that rarely align with
// record boundaries, so the reader keeps an accumulation buffer: each
// read appends to it, the buffer is split on the blank-line separator,
// every piece except the last is a complete record, and the last piece
// is carried forward as the remainder for the next read.
//
// Lines that do not carry the "data:" marker are discarded. A payload
// that fails to decode is skipped and reported through DebugLog; one bad
// record must not abort an otherwise working stream. When the body ends,
// one last framing pass runs over the buffer so a complete record whose
// trailing blank line never arrived still counts; a remainder whose
// payload does not parse is an incomplete fragment and is discarded,
// because a half-received delta cannot be distinguished from garbage.
type StreamReader struct {
	reader io.Reader
	buffer strings.Builder
	chunk  []byte

	// DebugLog receives diagnostics about skipped records. Defaults to
	// stderr; tests replace it to assert skip behavior.
	DebugLog func(format string, args ...any)
}

// NewStreamReader creates a stream reader over a response body.
func NewStreamReader(r io.Reader) *StreamReader {
	return &StreamReader{
		reader: r,
		chunk:  make([]byte, 4096),
		DebugLog: func(format string, args ...any) {
			fmt.Fprintf(os.Stderr, format+"\n", args...)
		},
	}
}

// StreamCallback is called for each decoded chunk, in stream order.
type StreamCallback func(chunk StreamChunk)

// Process consumes the stream until it ends, delivering every decoded
// chunk to the callback in order. It returns nil on a clean end (with or
// without a final record having been seen; the caller tracks finality),
// the context error on cancellation, and a stream-level ClientError if
// the body breaks mid-read.
func (s *StreamReader) Process(ctx context.Context, callback StreamCallback) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		n, err := s.reader.Read(s.chunk)
		if n > 0 {
			s.buffer.Write(s.chunk[:n])
			if final := s.drainRecords(callback); final {
				return nil
			}
		}
		if err != nil {
			if err == io.EOF {
				s.flushTrailing(callback)
				return nil
			}
			return &ClientError{Type: ErrTypeStream, Message: "stream read failed", Cause: err}
		}
	}
}

// drainRecords splits the buffer into complete records, decodes and
// delivers them, and keeps the trailing remainder. Returns true once a
// final record has been delivered.
func (s *StreamReader) drainRecords(callback StreamCallback) bool {
	buffered := s.buffer.String()
	if !strings.Contains(buffered, recordSeparator) {
		return false
	}

	pieces := strings.Split(buffered, recordSeparator)
	s.buffer.Reset()
	s.buffer.WriteString(pieces[len(pieces)-1])

	for _, record := range pieces[:len(pieces)-1] {
		chunk, ok := s.decodeRecord(record)
		if !ok {
			continue
		}
		callback(chunk)
		if chunk.IsFinal {
			s.buffer.Reset()
			return true
		}
	}
	return false
}

// flushTrailing makes one last framing pass when the body ends. A record
// that the stream closed on before its blank-line separator arrived is
// still delivered if its payload parses; anything else in the buffer is
// an incomplete fragment and is dropped, never guessed at.
func (s *StreamReader) flushTrailing(callback StreamCallback) {
	remainder := s.buffer.String()
	s.buffer.Reset()

	payload, ok := extractPayload(remainder)
	if !ok {
		return
	}
	var chunk StreamChunk
	if err := json.Unmarshal([]byte(payload), &chunk); err != nil {
		// Truncated payloads are indistinguishable from garbage; no
		// DebugLog, the record simply never happened.
		return
	}
	callback(chunk)
}

// decodeRecord extracts the payload of one complete event record.
func (s *StreamReader) decodeRecord(record string) (StreamChunk, bool) {
	payload, ok := extractPayload(record)
	if !ok {
		// Comments, heartbeats, and stray lines carry no payload.
		return StreamChunk{}, false
	}

	var chunk StreamChunk
	if err := json.Unmarshal([]byte(payload), &chunk); err != nil {
		s.DebugLog("api: skipping malformed stream record: %v", err)
		return StreamChunk{}, false
	}
	return chunk, true
}

// extractPayload finds the data line of a record and strips its marker.
// A record may span several lines; only the data line matters.
func extractPayload(record string) (string, bool) {
	for _, line := range strings.Split(record, "\n") {
		line = strings.TrimRight(line, "\r")
		if !strings.HasPrefix(line, dataPrefix) {
			continue
		}
		payload := strings.TrimPrefix(line, dataPrefix)
		payload = strings.TrimPrefix(payload, " ")
		if payload == "" {
			continue
		}
		return payload, true
	}
	return "", false
}
