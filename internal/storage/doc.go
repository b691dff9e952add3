// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package storage persists chat state for the chatbot application.
//
// All conversations, the active-conversation pointer, and user settings live
// in one JSON document that is rewritten in full after every mutation
// (write-through). The document travels through a small KV interface with
// three backends:
//
//   - FileKV: one JSON file, written atomically with fsync
//   - SQLiteKV: a single-table SQLite database (pure Go driver)
//   - MemoryKV: in-memory, for tests
//
// # Key Types
//
//   - Store: the conversation store; guarantees an active conversation
//     always exists and reselects on deletion
//   - KV: the durable medium collaborator
//
// # Usage
//
//	kv := storage.NewFileKV(dataDir)
//	store, err := storage.Open(kv)
//	if err != nil { ... }
//	title, titled, err := store.AppendTurn(model.RoleUser, "Hi")
package storage
