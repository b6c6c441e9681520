// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package model contains the data structures for conversations and messages.
//
// This package defines the core domain types used throughout the application
// for representing a chat transcript and the lifecycle of each message.
//
// # Key Types
//
//   - Conversation: Thread-safe container for one session's transcript
//   - Message: Single message with role, content, phase, rating, and citations
//   - Phase: Message lifecycle (pending, streaming, settled, failed)
//   - Source: One document citation attached to a settled answer
//
// # Usage
//
// Drive a streamed turn:
//
//	conv := model.NewConversation()
//	conv.AddUserMessage("What does the contract say about renewals?")
//	conv.AddPlaceholder(false)
//	conv.ApplyDelta("The renewal clause ")
//	conv.ApplyDelta("requires 30 days notice.")
//	conv.FinalizeLast(model.FinalMetadata{MessageID: "m1"})
//
// Renderers read value copies via Snapshot and never touch live messages.
package model
