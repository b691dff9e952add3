// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/Jhonatan1998P/chatbot/internal/api"
	"github.com/Jhonatan1998P/chatbot/internal/chat"
	"github.com/Jhonatan1998P/chatbot/internal/model"
	"github.com/Jhonatan1998P/chatbot/internal/render"
	"github.com/Jhonatan1998P/chatbot/internal/storage"
)

// stubStreamer satisfies chat.Streamer without any network.
type stubStreamer struct {
	configured bool
	deltas     []string
	text       string
	err        error
}

func (s *stubStreamer) IsConfigured() bool { return s.configured }

func (s *stubStreamer) Stream(ctx context.Context, messages []api.ChatMessage, maxTokens int, onDelta api.DeltaFunc) (string, error) {
	for _, d := range s.deltas {
		onDelta(d)
	}
	return s.text, s.err
}

func newTestREPL(t *testing.T) (*REPL, *bytes.Buffer) {
	t.Helper()
	return newTestREPLWith(t, &stubStreamer{configured: true})
}

func newTestREPLWith(t *testing.T, streamer chat.Streamer) (*REPL, *bytes.Buffer) {
	t.Helper()
	store, err := storage.Open(storage.NewMemoryKV())
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	out := &bytes.Buffer{}
	r := &REPL{store: store, md: render.Plain{}, out: out}
	r.orch = chat.New(store, streamer, chat.Callbacks{
		OnIncrement: func(delta string) { r.out.Write([]byte(delta)) },
	})
	return r, out
}

func TestCommand_QuitAndExit(t *testing.T) {
	r, _ := newTestREPL(t)
	if !r.command("/quit") {
		t.Error("expected /quit to signal exit")
	}
	if !r.command("/exit") {
		t.Error("expected /exit to signal exit")
	}
}

func TestCommand_NewCreatesConversation(t *testing.T) {
	r, _ := newTestREPL(t)
	before := r.store.Len()
	if r.command("/new") {
		t.Fatal("unexpected quit")
	}
	if r.store.Len() != before+1 {
		t.Errorf("expected %d conversations, got %d", before+1, r.store.Len())
	}
}

func TestCommand_SwitchByListIndex(t *testing.T) {
	r, _ := newTestREPL(t)
	r.command("/new")
	list := r.store.List()
	if len(list) < 2 {
		t.Fatalf("expected at least 2 conversations, got %d", len(list))
	}

	// Index 2 is the older conversation (newest first).
	r.command("/switch 2")
	if got := r.store.ActiveID(); got != list[1].ID {
		t.Errorf("active = %q, want %q", got, list[1].ID)
	}

	// Out-of-range and junk arguments leave the selection alone.
	r.command("/switch 99")
	r.command("/switch abc")
	if got := r.store.ActiveID(); got != list[1].ID {
		t.Errorf("active changed on bad input: %q", got)
	}
}

func TestCommand_DeleteTurn(t *testing.T) {
	r, _ := newTestREPL(t)
	for _, content := range []string{"one", "two", "three"} {
		if _, _, err := r.store.AppendTurn(model.RoleUser, content); err != nil {
			t.Fatal(err)
		}
	}

	r.command("/delturn 2")
	turns := r.store.Active().Turns
	if len(turns) != 2 || turns[0].Content != "one" || turns[1].Content != "three" {
		t.Errorf("unexpected turns after delete: %+v", turns)
	}

	// Out-of-range and junk arguments leave the turns alone.
	r.command("/delturn 99")
	r.command("/delturn zero")
	if got := len(r.store.Active().Turns); got != 2 {
		t.Errorf("expected 2 turns, got %d", got)
	}
}

func TestCommand_SystemPrompt(t *testing.T) {
	r, _ := newTestREPL(t)
	r.command("/system You are terse.")
	if got := r.store.Active().SystemPrompt; got != "You are terse." {
		t.Errorf("system prompt = %q", got)
	}
}

func TestCommand_TokensUpdatesSettings(t *testing.T) {
	r, _ := newTestREPL(t)
	r.command("/tokens 2048")
	if got := r.store.Settings().MaxTokens; got != 2048 {
		t.Errorf("maxTokens = %d, want 2048", got)
	}

	r.command("/tokens -5")
	if got := r.store.Settings().MaxTokens; got != 2048 {
		t.Errorf("maxTokens changed on invalid input: %d", got)
	}
}

func TestCommand_ThoughtsToggle(t *testing.T) {
	r, _ := newTestREPL(t)
	if r.store.Settings().ShowThoughts {
		t.Fatal("expected thoughts hidden by default")
	}
	r.command("/thoughts")
	if !r.store.Settings().ShowThoughts {
		t.Error("expected toggle on")
	}
	r.command("/thoughts")
	if r.store.Settings().ShowThoughts {
		t.Error("expected toggle off")
	}
}

func TestSubmit_PrintsReply(t *testing.T) {
	r, out := newTestREPLWith(t, &stubStreamer{
		configured: true,
		deltas:     []string{"Hel", "lo"},
		text:       "Hello",
	})

	r.submit(context.Background(), "Hi")

	if got := out.String(); !strings.Contains(got, "Hello") {
		t.Errorf("output missing reply: %q", got)
	}
	if got := len(r.store.Active().Turns); got != 2 {
		t.Errorf("expected 2 turns, got %d", got)
	}
}

func TestSubmit_PrintsCommittedFailure(t *testing.T) {
	r, out := newTestREPLWith(t, &stubStreamer{
		configured: true,
		err:        &api.APIError{Message: "upstream exploded", Status: 500},
	})

	r.submit(context.Background(), "Hi")

	// The failure notice lands in the conversation log and on screen.
	turns := r.store.Active().Turns
	if len(turns) != 2 || turns[1].Role != model.RoleAssistant {
		t.Fatalf("expected committed failure turn, got %+v", turns)
	}
	if !strings.Contains(turns[1].Content, "request failed") {
		t.Errorf("turn content = %q", turns[1].Content)
	}
	if got := out.String(); !strings.Contains(got, "request failed") {
		t.Errorf("failure not printed: %q", got)
	}
}

func TestSubmit_MissingKeyLeavesLogUntouched(t *testing.T) {
	r, out := newTestREPLWith(t, &stubStreamer{configured: false})

	r.submit(context.Background(), "Hi")

	if got := len(r.store.Active().Turns); got != 0 {
		t.Errorf("expected no turns, got %d", got)
	}
	if got := out.String(); !strings.Contains(got, "No API key") {
		t.Errorf("missing-key notice not printed: %q", got)
	}
}

func TestVisible_StripsThoughtsWhenHidden(t *testing.T) {
	r, _ := newTestREPL(t)
	content := "<think>hmm</think>Answer."
	if got := r.visible(content); got != "Answer." {
		t.Errorf("visible = %q, want %q", got, "Answer.")
	}

	if err := r.store.UpdateSettings(func(s *model.Settings) { s.ShowThoughts = true }); err != nil {
		t.Fatal(err)
	}
	if got := r.visible(content); got != content {
		t.Errorf("visible = %q, want unmodified content", got)
	}
}
