// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package model defines the core chat data types.
package model

import (
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/Jhonatan1998P/chatbot/internal/util"
)

// Role identifies the author of a turn.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
)

const (
	// DefaultTitle is shown until the first user turn names the conversation.
	DefaultTitle = "New chat"

	// DefaultSystemPrompt seeds every new conversation.
	DefaultSystemPrompt = "You are a helpful assistant."

	// TitleMaxRunes is the cutoff beyond which derived titles are truncated.
	TitleMaxRunes = 30
)

// Turn is a single message within a conversation.
type Turn struct {
	ID      string `json:"id,omitempty"`
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// NewTurn creates a turn with a stable identifier.
func NewTurn(role Role, content string) Turn {
	return Turn{
		ID:      uuid.NewString(),
		Role:    role,
		Content: content,
	}
}

// Conversation is an ordered list of turns with presentation metadata.
// The ID embeds the creation time (unix milliseconds, decimal), so sorting
// IDs numerically sorts conversations by age.
type Conversation struct {
	ID           string `json:"id"`
	Title        string `json:"title"`
	SystemPrompt string `json:"systemPrompt"`
	Turns        []Turn `json:"messages"`
}

// NewConversation creates an empty conversation with default title and
// system prompt. The ID is derived from now.
func NewConversation(now time.Time) *Conversation {
	return &Conversation{
		ID:           NewID(now),
		Title:        DefaultTitle,
		SystemPrompt: DefaultSystemPrompt,
		Turns:        []Turn{},
	}
}

// NewID returns a conversation ID for the given creation time.
func NewID(now time.Time) string {
	return strconv.FormatInt(now.UnixMilli(), 10)
}

// CreatedAt extracts the creation time embedded in a conversation ID.
// Unparseable IDs report the zero time and sort last.
func CreatedAt(id string) time.Time {
	ms, err := strconv.ParseInt(id, 10, 64)
	if err != nil {
		return time.Time{}
	}
	return time.UnixMilli(ms)
}

// Append adds a turn. When the conversation's first turn is a user turn,
// the title is derived from its content and returned with ok=true.
func (c *Conversation) Append(turn Turn) (title string, ok bool) {
	derive := turn.Role == RoleUser && len(c.Turns) == 0
	c.Turns = append(c.Turns, turn)
	if derive {
		c.Title = DeriveTitle(turn.Content)
		return c.Title, true
	}
	return "", false
}

// DeriveTitle produces a conversation title from user input: the first
// TitleMaxRunes runes, with "..." appended only when something was cut.
// Newlines become spaces so the title stays on one line.
func DeriveTitle(content string) string {
	flat := strings.ReplaceAll(content, "\n", " ")
	if util.RuneLen(flat) <= TitleMaxRunes {
		return flat
	}
	return util.TruncateRunesNoEllipsis(flat, TitleMaxRunes) + "..."
}
