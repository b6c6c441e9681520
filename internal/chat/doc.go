// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package chat drives the conversation turn lifecycle.
//
// The package has two layers. The turn state machine (turn.go) is a pure
// reducer over tagged events, so every transition is testable without any
// network code. The Orchestrator (orchestrator.go) feeds that reducer from
// real collaborators: it submits questions through the streaming API
// client, routes deltas into the conversation store, adopts the session id
// carried by the terminal record, and exposes the feedback, regenerate,
// and copy operations.
//
// # Turn Lifecycle
//
//	Submitted -> AwaitingFirstByte -> Streaming -> Settled
//
// with Errored reachable from every non-terminal state. While a turn is
// anywhere between Submitted and Streaming, new submissions are rejected;
// a conversation carries at most one in-flight answer.
//
// # Usage
//
//	orch := chat.NewOrchestrator(client, conv, chat.Options{
//	    TenantID: "acme",
//	    Identity: func() string { return "guest_1234" },
//	    Notify:   func(ev chat.Event) { program.Send(ev) },
//	})
//	err := orch.Submit(ctx, "What changed in v2?", false)
package chat
