// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package model defines the core chat data types shared by storage, the
// orchestrator, and the presentation layers.
//
// # Key Types
//
//   - Conversation: ordered turns plus title and system prompt; the ID
//     embeds the creation time so IDs sort chronologically
//   - Turn: a single user or assistant message with a stable UUID
//   - Settings: persisted user preferences (font size, token limit,
//     thought visibility)
//
// # Usage
//
//	conv := model.NewConversation(time.Now())
//	title, changed := conv.Append(model.NewTurn(model.RoleUser, "Hi"))
package model
