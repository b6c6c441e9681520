// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package chat drives the conversation turn lifecycle.
package chat

import (
	"context"
	"errors"
	"sync"

	"github.com/atotto/clipboard"

	"github.com/jeranaias/docchat-tui/internal/api"
	"github.com/jeranaias/docchat-tui/internal/model"
	"github.com/jeranaias/docchat-tui/internal/util"
)

// =============================================================================
// ERRORS
// =============================================================================

var (
	// ErrTurnInFlight is returned when a submission arrives while another
	// turn is between Submitted and Streaming.
	ErrTurnInFlight = errors.New("a turn is already in flight")

	// ErrEmptyQuestion is returned for input that is empty after
	// normalization.
	ErrEmptyQuestion = errors.New("question is empty")

	// ErrNotRatable is returned when feedback targets a message without a
	// server-assigned id.
	ErrNotRatable = errors.New("message cannot be rated")

	// ErrStreamTruncated marks a stream that ended without a terminal
	// record. Shared with the client layer so every surface reports
	// truncation the same way.
	ErrStreamTruncated error = api.ErrStreamTruncated

	// ErrNoSuchMessage is returned when an operation names an index not
	// present in the conversation.
	ErrNoSuchMessage = errors.New("no such message")
)

// =============================================================================
// COLLABORATORS
// =============================================================================

// Streamer is the slice of the API client the orchestrator needs.
type Streamer interface {
	AskStream(ctx context.Context, ask api.AskRequest, callback api.StreamCallback) error
	RateMessage(ctx context.Context, messageID string, rating int) error
}

// Event is a notification the orchestrator emits toward the UI. The TUI
// forwards these into the Bubble Tea loop; the REPL handles them inline.
type Event interface {
	isEvent()
}

// TurnStartedEvent fires once the user text and placeholder are in the
// store.
type TurnStartedEvent struct {
	Searching bool
}

// TurnDeltaEvent fires for each content fragment applied to the store.
type TurnDeltaEvent struct {
	Content string
}

// TurnSettledEvent fires when the terminal record settles the answer.
type TurnSettledEvent struct {
	MessageID   string
	Suggestions []string
}

// TurnFailedEvent fires when the turn ends in the Errored state.
type TurnFailedEvent struct {
	Err error
}

// SessionBoundEvent fires when a previously unsaved conversation adopts
// the session id carried by a terminal record.
type SessionBoundEvent struct {
	SessionID string
}

func (TurnStartedEvent) isEvent() {}
func (TurnDeltaEvent) isEvent()   {}
func (TurnSettledEvent) isEvent() {}
func (TurnFailedEvent) isEvent()  {}
func (SessionBoundEvent) isEvent() {}

// Options configures an Orchestrator.
type Options struct {
	// TenantID selects the bot/knowledge base for every turn.
	TenantID string

	// Identity returns the user identifier sent with each request,
	// typically an account email or a generated guest id.
	Identity func() string

	// Notify receives turn events. May be nil.
	Notify func(Event)

	// OnSessionBound runs after a terminal record assigns a session id
	// to a previously unsaved conversation, so the session catalog can
	// refresh. May be nil.
	OnSessionBound func(sessionID string)

	// CopyToClipboard overrides the system clipboard, mainly for tests.
	CopyToClipboard func(text string) error
}

// =============================================================================
// ORCHESTRATOR
// =============================================================================

// Orchestrator runs turns against the streaming API and keeps the
// conversation store consistent with the turn state machine.
type Orchestrator struct {
	client Streamer
	conv   *model.Conversation
	opts   Options

	mu     sync.Mutex
	state  TurnState
	epoch  int
	cancel context.CancelFunc
}

// NewOrchestrator wires an orchestrator to its collaborators.
func NewOrchestrator(client Streamer, conv *model.Conversation, opts Options) *Orchestrator {
	if opts.CopyToClipboard == nil {
		opts.CopyToClipboard = clipboard.WriteAll
	}
	return &Orchestrator{
		client: client,
		conv:   conv,
		opts:   opts,
	}
}

// Conversation returns the store the orchestrator mutates.
func (o *Orchestrator) Conversation() *model.Conversation {
	return o.conv
}

// State returns the current turn state.
func (o *Orchestrator) State() TurnState {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.state
}

// Busy reports whether a turn is in flight and submission is blocked.
func (o *Orchestrator) Busy() bool {
	return o.State().InFlight()
}

// =============================================================================
// TURN SUBMISSION
// =============================================================================

// Submit starts a new turn for the given question. It rejects empty input
// and concurrent turns; on success the user message and placeholder are
// already in the store when it returns, and streaming continues in the
// background.
func (o *Orchestrator) Submit(ctx context.Context, question string, webSearch bool) error {
	question = util.CleanQuestion(question)
	if question == "" {
		return ErrEmptyQuestion
	}
	return o.start(ctx, question, webSearch, true)
}

// Regenerate re-answers the assistant message at index: it finds the
// nearest prior user message, truncates everything after it (the stale
// answer included), and resubmits that user text as a fresh turn carrying
// the same web-search flag as the answer it replaces. Calling it with an
// index that does not name a settled assistant answer is a no-op.
func (o *Orchestrator) Regenerate(ctx context.Context, index int) error {
	if o.Busy() {
		return ErrTurnInFlight
	}
	question, webSearch, userIndex, ok := o.conv.QuestionForRegenerate(index)
	if !ok {
		return nil
	}
	o.conv.TruncateFrom(userIndex + 1)
	// The user message survives the truncation, so the fresh turn must
	// not append it again.
	return o.start(ctx, question, webSearch, false)
}

func (o *Orchestrator) start(ctx context.Context, question string, webSearch bool, appendUser bool) error {
	o.mu.Lock()
	next, ok := Reduce(o.state, UserSubmitted{Question: question, WebSearch: webSearch})
	if !ok {
		o.mu.Unlock()
		return ErrTurnInFlight
	}
	o.state = next
	o.epoch++
	epoch := o.epoch
	turnCtx, cancel := context.WithCancel(ctx)
	o.cancel = cancel
	o.mu.Unlock()

	if appendUser {
		o.conv.AddUserMessage(question)
	}
	o.conv.AddPlaceholder(webSearch)
	o.notify(TurnStartedEvent{Searching: webSearch})

	go o.run(turnCtx, epoch, question, webSearch)
	return nil
}

// Cancel aborts the in-flight turn, if any. The aborted stream settles
// through the failure path so the transcript never shows a half answer.
func (o *Orchestrator) Cancel() {
	o.mu.Lock()
	cancel := o.cancel
	inFlight := o.state.InFlight()
	o.mu.Unlock()
	if inFlight && cancel != nil {
		cancel()
	}
}

// run owns the streamed request for one turn. It is the only goroutine
// that mutates the store for this epoch; a newer epoch wins every
// transition race.
func (o *Orchestrator) run(ctx context.Context, epoch int, question string, webSearch bool) {
	defer func() {
		o.mu.Lock()
		if epoch == o.epoch && o.cancel != nil {
			o.cancel()
			o.cancel = nil
		}
		o.mu.Unlock()
	}()

	req := api.AskRequest{
		Question:  question,
		TenantID:  o.opts.TenantID,
		SessionID: o.conv.SessionID(),
		WebSearch: webSearch,
	}
	if o.opts.Identity != nil {
		req.UserIdentifier = o.opts.Identity()
	}

	if !o.transition(epoch, RequestOpened{}) {
		return
	}

	sawFinal := false
	err := o.client.AskStream(ctx, req, func(chunk api.StreamChunk) {
		if chunk.IsFinal {
			sawFinal = true
			o.finalize(epoch, chunk)
			return
		}
		if chunk.Content == "" {
			return
		}
		if !o.transition(epoch, DeltaReceived{Content: chunk.Content}) {
			return
		}
		o.conv.ApplyDelta(chunk.Content)
		o.notify(TurnDeltaEvent{Content: chunk.Content})
	})

	if err != nil {
		o.fail(epoch, err)
		return
	}
	if !sawFinal {
		o.fail(epoch, ErrStreamTruncated)
	}
}

// transition applies one event to the turn state under the stale-epoch
// guard. Events from superseded turns are dropped.
func (o *Orchestrator) transition(epoch int, event TurnEvent) bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	if epoch != o.epoch {
		return false
	}
	next, ok := Reduce(o.state, event)
	if ok {
		o.state = next
	}
	return ok
}

func (o *Orchestrator) finalize(epoch int, chunk api.StreamChunk) {
	event := Finalized{
		MessageID:   chunk.AssistantMessageID,
		SessionID:   chunk.SessionID,
		Suggestions: chunk.Suggestions,
	}
	if !o.transition(epoch, event) {
		return
	}

	sources := make([]model.Source, 0, len(chunk.RetrievedChunks))
	for _, rc := range chunk.RetrievedChunks {
		sources = append(sources, model.Source{
			DocumentID:     rc.DocumentID,
			SourceFilename: rc.SourceFilename,
			PageLabel:      rc.PageLabel,
		})
	}
	o.conv.FinalizeLast(model.FinalMetadata{
		MessageID:   chunk.AssistantMessageID,
		Sources:     sources,
		Suggestions: chunk.Suggestions,
	})

	// The first turn of an unsaved conversation learns its session id
	// from the terminal record.
	if chunk.SessionID != "" && o.conv.SessionID() == "" {
		o.conv.BindSession(chunk.SessionID)
		if o.opts.OnSessionBound != nil {
			o.opts.OnSessionBound(chunk.SessionID)
		}
		o.notify(SessionBoundEvent{SessionID: chunk.SessionID})
	}

	o.notify(TurnSettledEvent{
		MessageID:   chunk.AssistantMessageID,
		Suggestions: chunk.Suggestions,
	})
}

func (o *Orchestrator) fail(epoch int, err error) {
	if !o.transition(epoch, Failed{Err: err}) {
		return
	}
	o.conv.FailLast()
	o.notify(TurnFailedEvent{Err: err})
}

func (o *Orchestrator) notify(ev Event) {
	if o.opts.Notify != nil {
		o.opts.Notify(ev)
	}
}

// =============================================================================
// FEEDBACK / COPY
// =============================================================================

// Rate applies feedback to a settled message: optimistically in the
// store, then remotely. A failed remote call clears the rating to unset
// rather than restoring the previous value, so a rejected toggle never
// shows stale feedback as current.
func (o *Orchestrator) Rate(ctx context.Context, messageID string, rating model.Rating) error {
	if _, ok := o.conv.SetRating(messageID, rating); !ok {
		return ErrNotRatable
	}
	if err := o.client.RateMessage(ctx, messageID, int(rating)); err != nil {
		o.conv.SetRating(messageID, model.RatingNone)
		return err
	}
	return nil
}

// Copy places the content of the message at index on the clipboard.
func (o *Orchestrator) Copy(index int) error {
	msg, ok := o.conv.MessageAt(index)
	if !ok {
		return ErrNoSuchMessage
	}
	return o.opts.CopyToClipboard(msg.Content)
}
