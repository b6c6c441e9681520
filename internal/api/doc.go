// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package api provides the HTTP client for the docchat answer service.
//
// This package implements the client side of the answer service's
// streamed chat protocol plus the session, feedback and document
// endpoints that surround it.
//
// # Key Types
//
//   - Client: HTTP client for the answer service
//   - AskRequest: one user turn (question, tenant, session, flags)
//   - StreamChunk: one decoded record of the event stream, either an
//     incremental content delta or the terminal record of a turn
//   - StreamReader: frames the raw response body into complete event
//     records and decodes their payloads
//
// # Wire format
//
// The streamed answer endpoint responds with server-sent event records.
// Each record is a single payload line prefixed with "data: " followed
// by a blank line:
//
//	data: {"content":"Hel","is_final":false}
//
//	data: {"content":"lo","is_final":false}
//
//	data: {"content":"","is_final":true,"session_id":"...","assistant_message_id":"...","suggestions":[...],"retrieved_chunks":[...]}
//
// Records arrive in arbitrary read-sized pieces; StreamReader buffers
// partial reads and only ever surfaces complete records, in order. A
// malformed payload is skipped, never fatal; an incomplete trailing
// fragment at end of stream is discarded.
//
// # Usage
//
//	client := api.NewClient()
//	err := client.AskStream(ctx, api.AskRequest{
//	    Question: "hello",
//	    TenantID: "acme",
//	}, func(chunk api.StreamChunk) {
//	    if chunk.IsFinal {
//	        // terminal metadata
//	        return
//	    }
//	    fmt.Print(chunk.Content)
//	})
package api
