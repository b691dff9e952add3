// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"

	"golang.org/x/text/unicode/norm"

	"github.com/Jhonatan1998P/chatbot/internal/api"
	"github.com/Jhonatan1998P/chatbot/internal/format"
	"github.com/Jhonatan1998P/chatbot/internal/model"
	"github.com/Jhonatan1998P/chatbot/internal/storage"
)

// State is the orchestrator's submission phase.
type State int

const (
	StateIdle State = iota
	StateSending
	StateStreaming
	StateSettling
)

// String returns the state name for logs and status lines.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateSending:
		return "sending"
	case StateStreaming:
		return "streaming"
	case StateSettling:
		return "settling"
	default:
		return "unknown"
	}
}

// ErrBusy indicates a submission is already in flight.
var ErrBusy = errors.New("a submission is already in flight")

// Streamer is the outbound API dependency.
type Streamer interface {
	IsConfigured() bool
	Stream(ctx context.Context, messages []api.ChatMessage, maxTokens int, onDelta api.DeltaFunc) (string, error)
}

// Callbacks notify the presentation layer. All fields are optional. OnState
// and OnIncrement may be invoked from the streaming goroutine the caller
// runs Send on; subscribers bridge to their own event loop.
type Callbacks struct {
	// OnState fires on every phase transition.
	OnState func(State)
	// OnIncrement fires once per decoded content increment, in order.
	OnIncrement func(delta string)
	// OnTitle fires when a submission names its conversation.
	OnTitle func(title string)
	// OnFinal fires after the assistant turn is committed, on success and
	// on failure alike.
	OnFinal func(turn model.Turn)
}

// Orchestrator drives one request/response cycle: append the user turn,
// build the payload from history, stream the response, then format and
// commit the assistant turn. One submission may be in flight at a time.
type Orchestrator struct {
	store  *storage.Store
	client Streamer
	cb     Callbacks

	mu   sync.Mutex
	busy bool

	// formatFn normalizes the final text. Swappable in tests.
	formatFn func(string) string
}

// New creates an orchestrator over the given store and API client.
func New(store *storage.Store, client Streamer, cb Callbacks) *Orchestrator {
	return &Orchestrator{
		store:    store,
		client:   client,
		cb:       cb,
		formatFn: format.Format,
	}
}

// Busy reports whether a submission is in flight.
func (o *Orchestrator) Busy() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.busy
}

func (o *Orchestrator) setState(s State) {
	if o.cb.OnState != nil {
		o.cb.OnState(s)
	}
}

// Send runs one full submission cycle against the active conversation.
// Empty input is a no-op. A missing credential fails before any turn is
// appended or any request sent. Request and stream failures are committed
// as explanatory assistant turns so the conversation log always shows that
// something went wrong; Send still returns the underlying error.
//
// There is no timeout here: a caller wanting one wraps ctx.
func (o *Orchestrator) Send(ctx context.Context, input string) error {
	input = strings.TrimSpace(norm.NFC.String(input))
	if input == "" {
		return nil
	}
	if !o.client.IsConfigured() {
		// Hard precondition: surfaced to the user by the caller, never
		// recorded in the conversation, no request attempted.
		return api.ErrNoAPIKey
	}

	o.mu.Lock()
	if o.busy {
		o.mu.Unlock()
		return ErrBusy
	}
	o.busy = true
	o.mu.Unlock()

	// Settling runs on every exit path; the in-progress indicator must
	// never survive a panic or an early return.
	defer func() {
		o.setState(StateSettling)
		o.mu.Lock()
		o.busy = false
		o.mu.Unlock()
		o.setState(StateIdle)
	}()

	o.setState(StateSending)

	if title, ok, err := o.store.AppendTurn(model.RoleUser, input); err != nil {
		return err
	} else if ok && o.cb.OnTitle != nil {
		o.cb.OnTitle(title)
	}

	messages := o.buildPayload()
	maxTokens := o.store.Settings().MaxTokens

	// Streaming begins at the first increment, not at the HTTP status:
	// the status check lives inside the client, and a reply that settles
	// without ever producing an increment goes Sending -> Settling with
	// no Streaming phase.
	streaming := false
	text, err := o.client.Stream(ctx, messages, maxTokens, func(delta string) {
		if !streaming {
			streaming = true
			o.setState(StateStreaming)
		}
		if o.cb.OnIncrement != nil {
			o.cb.OnIncrement(delta)
		}
	})
	if err != nil {
		o.commitAssistant(errorTurnText(err, text))
		return err
	}

	o.commitAssistant(o.formatFn(text))
	return nil
}

// buildPayload maps the system prompt plus full turn history to bare
// role/content pairs. No other metadata is forwarded.
func (o *Orchestrator) buildPayload() []api.ChatMessage {
	conv := o.store.Active()
	if conv == nil {
		return nil
	}

	messages := make([]api.ChatMessage, 0, len(conv.Turns)+1)
	if conv.SystemPrompt != "" {
		messages = append(messages, api.NewSystemMessage(conv.SystemPrompt))
	}
	for _, turn := range conv.Turns {
		switch turn.Role {
		case model.RoleAssistant:
			messages = append(messages, api.NewAssistantMessage(turn.Content))
		case model.RoleSystem:
			messages = append(messages, api.NewSystemMessage(turn.Content))
		default:
			messages = append(messages, api.NewUserMessage(turn.Content))
		}
	}
	return messages
}

// commitAssistant records the assistant turn and notifies the subscriber.
func (o *Orchestrator) commitAssistant(text string) {
	if _, _, err := o.store.AppendTurn(model.RoleAssistant, text); err != nil {
		// The reply is already on screen; losing the write is worth a
		// log line but not a crash.
		log.Printf("chat: failed to persist assistant turn: %v", err)
		if o.cb.OnFinal != nil {
			o.cb.OnFinal(model.Turn{Role: model.RoleAssistant, Content: text})
		}
		return
	}
	if o.cb.OnFinal != nil {
		conv := o.store.Active()
		o.cb.OnFinal(conv.Turns[len(conv.Turns)-1])
	}
}

// errorTurnText turns a failed submission into the assistant text recorded
// in its place. Partial streamed content is kept above the notice.
func errorTurnText(err error, partial string) string {
	var sb strings.Builder
	if partial != "" {
		sb.WriteString(partial)
		sb.WriteString("\n\n")
	}
	switch {
	case errors.Is(err, api.ErrAuthFailed):
		sb.WriteString("⚠ The request was rejected: authentication failed. Check your API key.")
	case errors.Is(err, api.ErrRateLimited):
		sb.WriteString("⚠ The request was rejected: rate limited. Wait a moment and try again.")
	default:
		sb.WriteString(fmt.Sprintf("⚠ The request failed: %v", err))
	}
	return sb.String()
}
