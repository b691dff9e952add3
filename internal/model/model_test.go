// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

import (
	"strings"
	"testing"
	"time"
)

func TestNewConversation_Defaults(t *testing.T) {
	now := time.Now()
	conv := NewConversation(now)

	if conv.ID == "" {
		t.Fatal("Expected non-empty ID")
	}
	if conv.Title != DefaultTitle {
		t.Errorf("Title = %q, want %q", conv.Title, DefaultTitle)
	}
	if conv.SystemPrompt == "" {
		t.Error("Expected non-empty default system prompt")
	}
	if len(conv.Turns) != 0 {
		t.Errorf("Expected no turns, got %d", len(conv.Turns))
	}
	if got := CreatedAt(conv.ID); got.UnixMilli() != now.UnixMilli() {
		t.Errorf("CreatedAt(%q) = %v, want %v", conv.ID, got, now)
	}
}

func TestNewID_SortsChronologically(t *testing.T) {
	t0 := time.UnixMilli(1700000000000)
	t1 := time.UnixMilli(1700000000001)

	if NewID(t0) >= NewID(t1) {
		// Same-width decimal strings compare like numbers.
		t.Errorf("Expected %q < %q", NewID(t0), NewID(t1))
	}
}

func TestCreatedAt_Unparseable(t *testing.T) {
	if got := CreatedAt("not-a-number"); !got.IsZero() {
		t.Errorf("Expected zero time, got %v", got)
	}
}

func TestAppend_FirstUserTurnSetsTitle(t *testing.T) {
	conv := NewConversation(time.Now())

	title, ok := conv.Append(NewTurn(RoleUser, "Hi"))
	if !ok {
		t.Fatal("Expected title to be derived on first user turn")
	}
	if title != "Hi" {
		t.Errorf("Title = %q, want %q", title, "Hi")
	}
	if conv.Title != "Hi" {
		t.Errorf("Conversation title = %q, want %q", conv.Title, "Hi")
	}

	// Later turns never rename the conversation.
	if _, ok := conv.Append(NewTurn(RoleAssistant, "Hello!")); ok {
		t.Error("Assistant turn must not derive a title")
	}
	if _, ok := conv.Append(NewTurn(RoleUser, "Something else entirely")); ok {
		t.Error("Second user turn must not derive a title")
	}
	if conv.Title != "Hi" {
		t.Errorf("Title changed to %q", conv.Title)
	}
}

func TestAppend_AssistantFirstNeverDerivesTitle(t *testing.T) {
	conv := NewConversation(time.Now())

	if _, ok := conv.Append(NewTurn(RoleAssistant, "greeting")); ok {
		t.Fatal("Assistant turn must not derive a title")
	}
	// The user turn is no longer the conversation's first turn.
	if _, ok := conv.Append(NewTurn(RoleUser, "hello")); ok {
		t.Fatal("Non-first user turn must not derive a title")
	}
	if conv.Title != DefaultTitle {
		t.Errorf("Title = %q, want default", conv.Title)
	}
}

func TestDeriveTitle(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"short verbatim", "Hi", "Hi"},
		{"exactly thirty", strings.Repeat("a", 30), strings.Repeat("a", 30)},
		{"thirty one truncates", strings.Repeat("a", 31), strings.Repeat("a", 30) + "..."},
		{"newlines flattened", "first line\nsecond", "first line second"},
		{"unicode counted as runes", strings.Repeat("é", 31), strings.Repeat("é", 30) + "..."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := DeriveTitle(tt.input)
			if got != tt.want {
				t.Errorf("DeriveTitle(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestNewTurn_UniqueIDs(t *testing.T) {
	a := NewTurn(RoleUser, "a")
	b := NewTurn(RoleUser, "b")
	if a.ID == b.ID {
		t.Error("Expected distinct turn IDs")
	}
}

func TestSettingsNormalize(t *testing.T) {
	tests := []struct {
		name string
		in   Settings
		want Settings
	}{
		{"zero value gets defaults", Settings{}, Settings{FontSize: DefaultFontSize, MaxTokens: DefaultMaxTokens}},
		{"valid untouched", Settings{FontSize: 5, MaxTokens: 64, ShowThoughts: true}, Settings{FontSize: 5, MaxTokens: 64, ShowThoughts: true}},
		{"font size too large", Settings{FontSize: 9, MaxTokens: 64}, Settings{FontSize: DefaultFontSize, MaxTokens: 64}},
		{"negative max tokens", Settings{FontSize: 3, MaxTokens: -1}, Settings{FontSize: 3, MaxTokens: DefaultMaxTokens}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.in
			got.Normalize()
			if got != tt.want {
				t.Errorf("Normalize(%+v) = %+v, want %+v", tt.in, got, tt.want)
			}
		})
	}
}
